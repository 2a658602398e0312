// Package tts defines the text-to-speech provider contract. Concrete
// vendor SDK clients live outside this module; they only need to satisfy
// Provider and classify their failures with the teterr TTS kinds.
package tts

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/kazuvin/teto/internal/script"
)

// Result is one synthesized narration clip.
type Result struct {
	Audio    []byte
	Ext      string
	Duration float64
}

// Provider synthesizes speech and estimates clip durations. Synthesize
// blocks on network I/O; EstimateDuration must be cheap and deterministic
// because it also runs for cache hits.
type Provider interface {
	Synthesize(ctx context.Context, text string, voice script.VoiceConfig) (*Result, error)
	EstimateDuration(text string, voice script.VoiceConfig) float64
}

// cjkPrefixes mark languages read at roughly five characters per second;
// everything else is estimated at fifteen.
var cjkPrefixes = []string{"ja", "zh", "ko"}

// EstimateDuration is the shared reading-speed heuristic, used by providers
// that cannot ask the vendor for an exact length.
func EstimateDuration(text string, voice script.VoiceConfig) float64 {
	rate := 15.0
	lang := strings.ToLower(voice.LanguageCode)
	for _, p := range cjkPrefixes {
		if strings.HasPrefix(lang, p) {
			rate = 5.0
			break
		}
	}
	speed := voice.Speed
	if speed <= 0 {
		speed = 1.0
	}
	chars := float64(utf8.RuneCountInString(text))
	return chars / rate / speed
}
