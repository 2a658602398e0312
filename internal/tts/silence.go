package tts

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/kazuvin/teto/internal/script"
)

// SilenceProvider synthesizes silent WAV clips sized by the duration
// heuristic. It exists for offline rendering and dry runs where no vendor
// credentials are available; timings behave exactly as with a real
// provider.
type SilenceProvider struct {
	SampleRate int
}

// NewSilenceProvider returns a provider emitting 44.1kHz mono PCM.
func NewSilenceProvider() *SilenceProvider {
	return &SilenceProvider{SampleRate: 44100}
}

func (p *SilenceProvider) Synthesize(ctx context.Context, text string, voice script.VoiceConfig) (*Result, error) {
	duration := EstimateDuration(text, voice)
	samples := int(duration * float64(p.SampleRate))

	var buf bytes.Buffer
	writeWAVHeader(&buf, samples, p.SampleRate)
	buf.Write(make([]byte, samples*2))

	return &Result{Audio: buf.Bytes(), Ext: ".wav", Duration: duration}, nil
}

func (p *SilenceProvider) EstimateDuration(text string, voice script.VoiceConfig) float64 {
	return EstimateDuration(text, voice)
}

// writeWAVHeader emits a canonical 16-bit mono PCM RIFF header.
func writeWAVHeader(buf *bytes.Buffer, samples, sampleRate int) {
	dataSize := uint32(samples * 2)
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVEfmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataSize)
}
