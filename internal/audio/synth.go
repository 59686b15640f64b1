package audio

import (
	"encoding/binary"
	"math"
	"math/rand"
	"time"
)

// BytesPerFrame is the size of one 16-bit stereo frame.
const BytesPerFrame = 4

// SynthesizeCrackle renders a firework "thump and crackle" as 16-bit
// little-endian stereo PCM. It is used when no sound file is configured.
//
// The sound is a low-passed noise thump decaying over the first half second,
// followed by short noise pops scattered across the tail.
func SynthesizeCrackle(sampleRate int, length time.Duration, seed int64) []byte {
	if sampleRate <= 0 || length <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seed))
	frames := int(float64(sampleRate) * length.Seconds())
	mix := make([]float64, frames)

	// Thump: one-pole low-pass over white noise with an exponential envelope.
	var lp float64
	alpha := 1 - math.Exp(-2*math.Pi*180/float64(sampleRate))
	for i := range mix {
		t := float64(i) / float64(sampleRate)
		lp += alpha * (rng.Float64()*2 - 1 - lp)
		mix[i] += 3.2 * lp * math.Exp(-t/0.18)
	}

	// Crackle: 40 pops of 2-6 ms between 15% and 90% of the clip.
	for n := 0; n < 40; n++ {
		start := int(float64(frames) * (0.15 + 0.75*rng.Float64()))
		popLen := int(float64(sampleRate) * (0.002 + 0.004*rng.Float64()))
		amp := 0.25 + 0.35*rng.Float64()
		// 尾部的爆裂声逐渐变弱
		amp *= 1 - float64(start)/float64(frames)*0.7
		for i := 0; i < popLen && start+i < frames; i++ {
			env := 1 - float64(i)/float64(popLen)
			mix[start+i] += amp * env * (rng.Float64()*2 - 1)
		}
	}

	out := make([]byte, frames*BytesPerFrame)
	for i, v := range mix {
		s := int16(math.Max(-1, math.Min(1, v)) * math.MaxInt16)
		binary.LittleEndian.PutUint16(out[i*BytesPerFrame:], uint16(s))
		binary.LittleEndian.PutUint16(out[i*BytesPerFrame+2:], uint16(s))
	}
	return out
}
