package script

import (
	"errors"
	"strings"
	"testing"

	"github.com/kazuvin/teto/internal/teterr"
)

func validScript() *Script {
	s := &Script{
		Title: "t",
		Scenes: []Scene{
			{Visual: Visual{Path: "a.png"}, Narrations: []NarrationSegment{{Text: "hello"}}},
		},
	}
	s.applyDefaults()
	return s
}

func noLookups() Lookups { return Lookups{} }

func TestValidateOK(t *testing.T) {
	if err := validScript().Validate(noLookups()); err != nil {
		t.Fatalf("expected valid script, got %v", err)
	}
}

func TestValidateSceneWithoutNarrationRequiresDuration(t *testing.T) {
	s := validScript()
	s.Scenes = []Scene{{Visual: Visual{Path: "title.jpg"}}}

	err := s.Validate(noLookups())
	if err == nil {
		t.Fatal("expected validation error")
	}
	var te *teterr.Error
	if !errors.As(err, &te) || te.Kind != teterr.Validation || te.Scene != 0 {
		t.Errorf("error should locate scene 0: %v", err)
	}
}

func TestValidateZeroDurationRejected(t *testing.T) {
	zero := 0.0
	s := validScript()
	s.Scenes = []Scene{{Visual: Visual{Path: "title.jpg"}, Duration: &zero}}

	if err := s.Validate(noLookups()); err == nil {
		t.Fatal("duration 0 must be rejected")
	}
}

func TestValidateVoiceAndProfileMutuallyExclusive(t *testing.T) {
	s := validScript()
	v := s.Voice
	s.VoiceProfiles = map[string]VoiceConfig{"n": s.Voice}
	s.Scenes[0].Voice = &v
	s.Scenes[0].VoiceProfile = "n"

	if err := s.Validate(noLookups()); err == nil {
		t.Fatal("voice + voice_profile must be rejected")
	}
}

func TestValidateUnknownReferences(t *testing.T) {
	s := validScript()
	s.Scenes[0].VoiceProfile = "missing"
	s.Scenes[0].Narrations[0].Text = "a<nosuch>b</nosuch>c"
	s.Scenes[0].Effect = "warp"
	s.DefaultPreset = "ghost"

	lk := Lookups{
		EffectExists: func(string) bool { return false },
		PresetExists: func(string) bool { return false },
	}
	err := s.Validate(lk)
	if err == nil {
		t.Fatal("expected validation errors")
	}

	// All violations surface at once.
	var agg *teterr.ValidationErrors
	if !errors.As(err, &agg) {
		t.Fatalf("expected aggregated errors, got %T", err)
	}
	if len(agg.Errs) < 4 {
		t.Errorf("expected >= 4 violations, got %d: %v", len(agg.Errs), err)
	}
	for _, want := range []string{"missing", "nosuch", "warp", "ghost"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q: %v", want, err)
		}
	}
}

func TestValidateVoiceRanges(t *testing.T) {
	s := validScript()
	s.Voice.Speed = 3.0
	if err := s.Validate(noLookups()); err == nil {
		t.Error("speed 3.0 must be rejected")
	}

	s = validScript()
	s.Voice.Pitch = -30
	if err := s.Validate(noLookups()); err == nil {
		t.Error("pitch -30 must be rejected")
	}
}

func TestResolveVoicePrecedence(t *testing.T) {
	s := validScript()
	profile := VoiceConfig{Provider: "gemini", Speed: 1.0, LanguageCode: "en-US"}
	profile.applyDefaults()
	s.VoiceProfiles = map[string]VoiceConfig{"narrator": profile}

	scene := &s.Scenes[0]
	seg := &scene.Narrations[0]

	if got := s.ResolveVoice(scene, seg); got != s.Voice {
		t.Errorf("default resolution = %+v, want script voice", got)
	}

	scene.VoiceProfile = "narrator"
	if got := s.ResolveVoice(scene, seg); got.Provider != "gemini" {
		t.Errorf("scene profile not applied: %+v", got)
	}

	direct := VoiceConfig{Provider: "elevenlabs", Speed: 1.2}
	direct.applyDefaults()
	seg.Voice = &direct
	if got := s.ResolveVoice(scene, seg); got.Provider != "elevenlabs" {
		t.Errorf("segment voice should win: %+v", got)
	}
}
