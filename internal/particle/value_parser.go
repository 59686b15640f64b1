// Package particle provides the numeric value formats shared by the fireworks
// configuration: fixed values ("6") and uniform ranges ("[1 8]").
package particle

import (
	"fmt"
	"strconv"
	"strings"
)

// Source is the subset of *rand.Rand used for sampling.
// Tests inject deterministic sources through it.
type Source interface {
	Float64() float64
}

// Range is a closed interval sampled uniformly. Min == Max is a fixed value.
type Range struct {
	Min float64
	Max float64
}

// Fixed returns a Range that always samples v.
func Fixed(v float64) Range {
	return Range{Min: v, Max: v}
}

// IsFixed reports whether the range degenerates to a single value.
func (r Range) IsFixed() bool {
	return r.Min == r.Max
}

// Contains reports whether v lies within [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Sample draws a value in [Min, Max) from src. Fixed ranges never consume a draw,
// so the ring burst's constant speed leaves the random sequence untouched.
func (r Range) Sample(src Source) float64 {
	if r.Min >= r.Max {
		return r.Min
	}
	return RandomInRange(src, r.Min, r.Max)
}

// String formats the range in the same syntax ParseRange accepts.
func (r Range) String() string {
	if r.IsFixed() {
		return strconv.FormatFloat(r.Min, 'g', -1, 64)
	}
	return fmt.Sprintf("[%s %s]",
		strconv.FormatFloat(r.Min, 'g', -1, 64),
		strconv.FormatFloat(r.Max, 'g', -1, 64))
}

// ParseRange parses a value string from the show configuration.
// Supported formats:
//   - Fixed value: "6" → {6, 6}
//   - Range: "[1 8]" → {1, 8}
//   - Single bracketed value: "[0.02]" → {0.02, 0.02}
//
// Reversed bounds ("[8 1]") are normalised so that Min <= Max.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, fmt.Errorf("empty value")
	}

	if strings.HasPrefix(s, "[") || strings.HasSuffix(s, "]") {
		if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
			return Range{}, fmt.Errorf("unbalanced brackets in %q", s)
		}
		inner := strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		parts := strings.Fields(inner)
		switch len(parts) {
		case 1:
			v, err := strconv.ParseFloat(parts[0], 64)
			if err != nil {
				return Range{}, fmt.Errorf("invalid value %q: %w", s, err)
			}
			return Fixed(v), nil
		case 2:
			lo, err := strconv.ParseFloat(parts[0], 64)
			if err != nil {
				return Range{}, fmt.Errorf("invalid range minimum in %q: %w", s, err)
			}
			hi, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				return Range{}, fmt.Errorf("invalid range maximum in %q: %w", s, err)
			}
			if lo > hi {
				lo, hi = hi, lo
			}
			return Range{Min: lo, Max: hi}, nil
		default:
			return Range{}, fmt.Errorf("range %q must have one or two values, got %d", s, len(parts))
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Range{}, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return Fixed(v), nil
}

// RandomInRange returns a random float64 in the range [min, max).
func RandomInRange(src Source, min, max float64) float64 {
	if min >= max {
		return min
	}
	return min + src.Float64()*(max-min)
}
