package tone

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"tempo/internal/metrics"
)

const (
	sampleRate = 44100
	// Envelope decays from the requested gain down to this floor over the
	// preset duration.
	gainFloor = 0.001
)

type Waveform string

const (
	Sine     Waveform = "sine"
	Square   Waveform = "square"
	Triangle Waveform = "triangle"
)

type Preset struct {
	Frequency float64
	Duration  time.Duration
	Waveform  Waveform
}

var presets = map[string]Preset{
	"classic": {Frequency: 880, Duration: 800 * time.Millisecond, Waveform: Sine},
	"gentle":  {Frequency: 523.25, Duration: 1200 * time.Millisecond, Waveform: Sine},
	"bell":    {Frequency: 660, Duration: 1500 * time.Millisecond, Waveform: Triangle},
	"chime":   {Frequency: 1318.5, Duration: 1000 * time.Millisecond, Waveform: Triangle},
	"digital": {Frequency: 440, Duration: 500 * time.Millisecond, Waveform: Square},
}

// Presets lists the available preset names.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}

// Synthesizer renders alert tones as 16-bit mono PCM WAV. Rendered tones are
// cached per (preset, volume); at most one tone is considered current at a
// time, starting a new one supersedes the previous.
type Synthesizer struct {
	mu      sync.Mutex
	cache   map[string][]byte
	current string
}

func NewSynthesizer() *Synthesizer {
	return &Synthesizer{cache: map[string][]byte{}}
}

// Play renders the named preset at the given volume (0-100) and makes it the
// current tone. Returns false instead of an error when the preset is unknown
// or the tone would be inaudible, so callers can treat audio as best-effort.
func (s *Synthesizer) Play(name string, volume int) bool {
	if _, err := s.Render(name, volume); err != nil {
		return false
	}

	s.mu.Lock()
	s.current = cacheKey(name, volume)
	s.mu.Unlock()

	metrics.TonesRenderedTotal.WithLabelValues(name).Inc()
	return true
}

// Stop discards the current tone.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	s.current = ""
	s.mu.Unlock()
}

// Current returns the WAV bytes of the tone most recently played, if any.
func (s *Synthesizer) Current() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == "" {
		return nil, false
	}
	wav, ok := s.cache[s.current]
	return wav, ok
}

// Render produces the WAV bytes for a preset without making it current.
func (s *Synthesizer) Render(name string, volume int) ([]byte, error) {
	preset, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown tone preset %q", name)
	}
	if volume <= 0 {
		return nil, fmt.Errorf("tone volume %d is inaudible", volume)
	}
	if volume > 100 {
		volume = 100
	}

	key := cacheKey(name, volume)
	s.mu.Lock()
	if wav, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return wav, nil
	}
	s.mu.Unlock()

	wav := renderWAV(preset, float64(volume)/100)

	s.mu.Lock()
	s.cache[key] = wav
	s.mu.Unlock()
	return wav, nil
}

func cacheKey(name string, volume int) string {
	return fmt.Sprintf("%s@%d", name, volume)
}

func renderWAV(preset Preset, gain float64) []byte {
	seconds := preset.Duration.Seconds()
	sampleCount := int(seconds * sampleRate)

	// Exponential decay constant so the envelope hits the floor exactly at
	// the end of the tone.
	decay := math.Log(gain/gainFloor) / seconds
	if decay < 0 {
		decay = 0
	}

	pcm := make([]int16, sampleCount)
	for i := range pcm {
		t := float64(i) / sampleRate
		envelope := gain * math.Exp(-decay*t)
		sample := oscillate(preset.Waveform, preset.Frequency, t) * envelope
		pcm[i] = int16(sample * math.MaxInt16)
	}

	return encodeWAV(pcm)
}

func oscillate(shape Waveform, freq, t float64) float64 {
	phase := 2 * math.Pi * freq * t
	switch shape {
	case Square:
		if math.Sin(phase) >= 0 {
			return 1
		}
		return -1
	case Triangle:
		return 2 / math.Pi * math.Asin(math.Sin(phase))
	default:
		return math.Sin(phase)
	}
}

// encodeWAV wraps PCM samples in a canonical 44-byte RIFF/WAVE header
// (mono, 16-bit, little-endian).
func encodeWAV(pcm []int16) []byte {
	dataSize := len(pcm) * 2
	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))           // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	binary.Write(buf, binary.LittleEndian, pcm)

	return buf.Bytes()
}
