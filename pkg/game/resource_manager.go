package game

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	sfx "github.com/decker502/lunarfest/internal/audio"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultSampleRate 音频上下文采样率
const DefaultSampleRate = 48000

// crackleLength 合成音效的长度
const crackleLength = 2 * time.Second

// ResourceManager loads and caches the show's resources: the decoded firework
// sound and the HUD font faces.
//
// Decoded sounds are kept as raw 16-bit stereo PCM at the audio context's
// sample rate, so every voice can be created from the same shared buffer
// without decoding the file again.
//
// This implementation is NOT thread-safe; resources are loaded on the game goroutine.
type ResourceManager struct {
	sampleRate    int                         // Target sample rate (the audio context's)
	soundCache    map[string][]byte           // Cache for decoded PCM: path -> PCM
	fontFaceCache map[string]*text.GoTextFace // Cache for Ebitengine v2 text faces
	defaultFont   *text.GoTextFaceSource
}

// NewResourceManager creates and initializes a new ResourceManager instance.
//
// Parameters:
//   - audioContext: The global audio context, used only for its sample rate.
//     May be nil (headless); DefaultSampleRate is used then.
func NewResourceManager(audioContext *audio.Context) *ResourceManager {
	sampleRate := DefaultSampleRate
	if audioContext != nil {
		sampleRate = audioContext.SampleRate()
	}
	return &ResourceManager{
		sampleRate:    sampleRate,
		soundCache:    make(map[string][]byte),
		fontFaceCache: make(map[string]*text.GoTextFace),
	}
}

// SampleRate returns the sample rate decoded sounds are converted to.
func (rm *ResourceManager) SampleRate() int {
	return rm.sampleRate
}

// LoadFireworkSound decodes the firework sound into PCM and caches it.
// Supported formats: MP3 (.mp3), OGG Vorbis (.ogg), WAV (.wav) and Sun audio (.au).
// An empty path synthesizes a crackle instead.
//
// Parameters:
//   - path: The sound file path, or "" for the synthesized sound.
//
// Returns:
//   - 16-bit little-endian stereo PCM at SampleRate().
//   - An error if the file cannot be read, decoded, or the format is unsupported.
func (rm *ResourceManager) LoadFireworkSound(path string) ([]byte, error) {
	if pcm, exists := rm.soundCache[path]; exists {
		return pcm, nil
	}

	if path == "" {
		pcm := sfx.SynthesizeCrackle(rm.sampleRate, crackleLength, 1)
		rm.soundCache[path] = pcm
		return pcm, nil
	}

	audioData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sound file %s: %w", path, err)
	}

	pcm, err := rm.decodeSound(path, bytes.NewReader(audioData))
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("sound file %s contains no audio", path)
	}

	rm.soundCache[path] = pcm
	return pcm, nil
}

// decodedStream is what every decoder returns
type decodedStream interface {
	io.ReadSeeker
	SampleRate() int
}

func (rm *ResourceManager) decodeSound(path string, reader *bytes.Reader) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		stream decodedStream
		length int64
	)
	switch ext {
	case ".mp3":
		s, err := mp3.DecodeWithoutResampling(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to decode MP3 sound %s: %w", path, err)
		}
		stream, length = s, s.Length()
	case ".ogg":
		s, err := vorbis.DecodeWithoutResampling(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to decode OGG sound %s: %w", path, err)
		}
		stream, length = s, s.Length()
	case ".wav":
		s, err := wav.DecodeWithoutResampling(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to decode WAV sound %s: %w", path, err)
		}
		stream, length = s, s.Length()
	case ".au":
		s, err := sfx.DecodeAU(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to decode AU sound %s: %w", path, err)
		}
		stream, length = s, s.Size()
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .ogg, .wav, .au)", ext)
	}

	var src io.Reader = stream
	if stream.SampleRate() != rm.sampleRate {
		src = audio.Resample(stream, length, stream.SampleRate(), rm.sampleRate)
	}

	pcm, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read decoded sound %s: %w", path, err)
	}
	// 截断到完整的立体声帧
	return pcm[:len(pcm)/sfx.BytesPerFrame*sfx.BytesPerFrame], nil
}

// LoadFont loads a TTF/OTF font and caches the face for the given size.
//
// Parameters:
//   - path: The font file path, or "" for the bundled Go Regular font.
//   - size: The font size in points.
func (rm *ResourceManager) LoadFont(path string, size float64) (*text.GoTextFace, error) {
	cacheKey := fmt.Sprintf("%s:%.1f", path, size)
	if cachedFace, exists := rm.fontFaceCache[cacheKey]; exists {
		return cachedFace, nil
	}

	var source *text.GoTextFaceSource
	if path == "" {
		if rm.defaultFont == nil {
			s, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
			if err != nil {
				return nil, fmt.Errorf("failed to create default font source: %w", err)
			}
			rm.defaultFont = s
		}
		source = rm.defaultFont
	} else {
		fontData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file %s: %w", path, err)
		}
		s, err := text.NewGoTextFaceSource(bytes.NewReader(fontData))
		if err != nil {
			return nil, fmt.Errorf("failed to create font source for %s: %w", path, err)
		}
		source = s
	}

	goTextFace := &text.GoTextFace{
		Source:    source,
		Size:      size,
		Direction: text.DirectionLeftToRight,
	}
	rm.fontFaceCache[cacheKey] = goTextFace
	return goTextFace, nil
}
