// Package script defines the declarative input format: a Script is the
// high-level description of a video (scenes, narration, visuals, pacing)
// that the compiler lowers into an absolutely-timed project.
package script

import (
	"path/filepath"
	"strings"
)

// AssetKind distinguishes moving from still visuals.
type AssetKind string

const (
	AssetVideo AssetKind = "video"
	AssetImage AssetKind = "image"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true, ".m4v": true,
}

// ImageGenConfig configures AI image generation for a visual description.
type ImageGenConfig struct {
	Provider       string `json:"provider,omitempty" yaml:"provider,omitempty"`
	StylePreset    string `json:"style_preset,omitempty" yaml:"style_preset,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty" yaml:"aspect_ratio,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty" yaml:"negative_prompt,omitempty"`
	Seed           *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Visual names the footage for a scene: either a local path or a textual
// description handed to an image generator.
type Visual struct {
	Type        AssetKind       `json:"type,omitempty" yaml:"type,omitempty"`
	Path        string          `json:"path,omitempty" yaml:"path,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Generate    *ImageGenConfig `json:"generate,omitempty" yaml:"generate,omitempty"`
}

// Kind returns the declared asset kind, inferring it from the path extension
// when unset. Description-only visuals are images.
func (v Visual) Kind() AssetKind {
	if v.Type != "" {
		return v.Type
	}
	if v.Path != "" && videoExtensions[strings.ToLower(filepath.Ext(v.Path))] {
		return AssetVideo
	}
	return AssetImage
}

// VoiceConfig selects and tunes a TTS voice. Only the fields listed here
// participate in the cache key; see cache.Key.
type VoiceConfig struct {
	Provider     string  `json:"provider,omitempty" yaml:"provider,omitempty"`
	VoiceID      string  `json:"voice_id,omitempty" yaml:"voice_id,omitempty"`
	LanguageCode string  `json:"language_code,omitempty" yaml:"language_code,omitempty"`
	Speed        float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
	Pitch        float64 `json:"pitch,omitempty" yaml:"pitch,omitempty"`

	// ElevenLabs
	ModelID      string `json:"model_id,omitempty" yaml:"model_id,omitempty"`
	OutputFormat string `json:"output_format,omitempty" yaml:"output_format,omitempty"`

	// Gemini
	VoiceName     string `json:"voice_name,omitempty" yaml:"voice_name,omitempty"`
	GeminiModelID string `json:"gemini_model_id,omitempty" yaml:"gemini_model_id,omitempty"`
	StylePrompt   string `json:"style_prompt,omitempty" yaml:"style_prompt,omitempty"`
}

// AudioExt returns the container extension the provider emits.
func (v VoiceConfig) AudioExt() string {
	if v.Provider == "gemini" {
		return ".wav"
	}
	return ".mp3"
}

func (v *VoiceConfig) applyDefaults() {
	if v.Provider == "" {
		v.Provider = "google"
	}
	if v.LanguageCode == "" {
		v.LanguageCode = "ja-JP"
	}
	if v.Speed == 0 {
		v.Speed = 1.0
	}
	if v.ModelID == "" {
		v.ModelID = "eleven_multilingual_v2"
	}
	if v.OutputFormat == "" {
		v.OutputFormat = "mp3_44100_128"
	}
	if v.VoiceName == "" {
		v.VoiceName = "Kore"
	}
	if v.GeminiModelID == "" {
		v.GeminiModelID = "gemini-2.5-flash-preview-tts"
	}
}

// NarrationSegment is one narrated text chunk, the unit of TTS synthesis.
// Text may contain <tag>…</tag> markup referencing Script.SubtitleStyles.
type NarrationSegment struct {
	Text       string  `json:"text" yaml:"text"`
	PauseAfter float64 `json:"pause_after,omitempty" yaml:"pause_after,omitempty"`

	// Per-segment voice override. At most one of Voice / VoiceProfile.
	Voice        *VoiceConfig `json:"voice,omitempty" yaml:"voice,omitempty"`
	VoiceProfile string       `json:"voice_profile,omitempty" yaml:"voice_profile,omitempty"`

	// Character states active while this segment plays.
	CharacterStates []CharacterState `json:"character_states,omitempty" yaml:"character_states,omitempty"`
}

// SoundEffect plays an audio file offset from its scene start.
type SoundEffect struct {
	Path   string  `json:"path" yaml:"path"`
	Offset float64 `json:"offset,omitempty" yaml:"offset,omitempty"`
	Volume float64 `json:"volume,omitempty" yaml:"volume,omitempty"`
}

// StampPosition is a corner preset for stamp overlays.
type StampPosition string

const (
	StampTopLeft     StampPosition = "top-left"
	StampTopRight    StampPosition = "top-right"
	StampBottomLeft  StampPosition = "bottom-left"
	StampBottomRight StampPosition = "bottom-right"
	StampCustom      StampPosition = "custom"
)

// Stamp is a decorative overlay shown for part of a scene. A path of the
// form "qr:<content>" generates a QR code image.
type Stamp struct {
	Path     string        `json:"path" yaml:"path"`
	Offset   float64       `json:"offset,omitempty" yaml:"offset,omitempty"`
	Duration float64       `json:"duration,omitempty" yaml:"duration,omitempty"`
	Position StampPosition `json:"position,omitempty" yaml:"position,omitempty"`
	X        int           `json:"x,omitempty" yaml:"x,omitempty"`
	Y        int           `json:"y,omitempty" yaml:"y,omitempty"`
	Scale    float64       `json:"scale,omitempty" yaml:"scale,omitempty"`
	Opacity  float64       `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Margin   int           `json:"margin,omitempty" yaml:"margin,omitempty"`
}

// TransitionConfig describes the transition into the following scene.
type TransitionConfig struct {
	Type     string  `json:"type,omitempty" yaml:"type,omitempty"`
	Duration float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
}

func (t *TransitionConfig) applyDefaults() {
	if t.Type == "" {
		t.Type = "crossfade"
	}
	if t.Duration == 0 {
		t.Duration = 0.5
	}
}

// Scene is one visual span composed of zero or more narration segments.
// A scene without narrations must set Duration explicitly.
type Scene struct {
	Narrations []NarrationSegment `json:"narrations,omitempty" yaml:"narrations,omitempty"`
	Visual     Visual             `json:"visual" yaml:"visual"`
	Duration   *float64           `json:"duration,omitempty" yaml:"duration,omitempty"`
	PauseAfter float64            `json:"pause_after,omitempty" yaml:"pause_after,omitempty"`

	Transition   *TransitionConfig `json:"transition,omitempty" yaml:"transition,omitempty"`
	SoundEffects []SoundEffect     `json:"sound_effects,omitempty" yaml:"sound_effects,omitempty"`
	Stamps       []Stamp           `json:"stamps,omitempty" yaml:"stamps,omitempty"`

	Note      string `json:"note,omitempty" yaml:"note,omitempty"`
	Preset    string `json:"preset,omitempty" yaml:"preset,omitempty"`
	Effect    string `json:"effect,omitempty" yaml:"effect,omitempty"`
	MuteVideo bool   `json:"mute_video,omitempty" yaml:"mute_video,omitempty"`

	// Per-scene voice override. At most one of Voice / VoiceProfile.
	Voice        *VoiceConfig `json:"voice,omitempty" yaml:"voice,omitempty"`
	VoiceProfile string       `json:"voice_profile,omitempty" yaml:"voice_profile,omitempty"`

	// Characters shown during this scene, in Z order.
	Characters []SceneCharacterConfig `json:"characters,omitempty" yaml:"characters,omitempty"`
}

// TimingConfig holds the global pacing knobs, all in seconds.
type TimingConfig struct {
	DefaultSegmentGap float64 `json:"default_segment_gap" yaml:"default_segment_gap"`
	DefaultSceneGap   float64 `json:"default_scene_gap" yaml:"default_scene_gap"`
	SubtitlePadding   float64 `json:"subtitle_padding" yaml:"subtitle_padding"`
}

// DefaultTiming returns the pacing used when a script omits timing.
func DefaultTiming() TimingConfig {
	return TimingConfig{DefaultSegmentGap: 0.3, DefaultSceneGap: 0.5, SubtitlePadding: 0.1}
}

// BGMConfig is the single global background track.
type BGMConfig struct {
	Path    string  `json:"path" yaml:"path"`
	Volume  float64 `json:"volume,omitempty" yaml:"volume,omitempty"`
	FadeIn  float64 `json:"fade_in,omitempty" yaml:"fade_in,omitempty"`
	FadeOut float64 `json:"fade_out,omitempty" yaml:"fade_out,omitempty"`
}

// SceneRange is an inclusive scene index range.
type SceneRange struct {
	From int `json:"from" yaml:"from"`
	To   int `json:"to" yaml:"to"`
}

// BGMSection plays background music across a range of scenes. Sections take
// precedence over the global BGM.
type BGMSection struct {
	Path       string     `json:"path" yaml:"path"`
	SceneRange SceneRange `json:"scene_range" yaml:"scene_range"`
	Volume     float64    `json:"volume,omitempty" yaml:"volume,omitempty"`
	FadeIn     float64    `json:"fade_in,omitempty" yaml:"fade_in,omitempty"`
	FadeOut    float64    `json:"fade_out,omitempty" yaml:"fade_out,omitempty"`
	Loop       *bool      `json:"loop,omitempty" yaml:"loop,omitempty"`
}

// Script is the root of the declarative input.
type Script struct {
	Title  string  `json:"title" yaml:"title"`
	Scenes []Scene `json:"scenes" yaml:"scenes"`

	Voice         VoiceConfig            `json:"voice,omitempty" yaml:"voice,omitempty"`
	VoiceProfiles map[string]VoiceConfig `json:"voice_profiles,omitempty" yaml:"voice_profiles,omitempty"`
	Timing        TimingConfig           `json:"timing,omitempty" yaml:"timing,omitempty"`
	BGM           *BGMConfig             `json:"bgm,omitempty" yaml:"bgm,omitempty"`
	BGMSections   []BGMSection           `json:"bgm_sections,omitempty" yaml:"bgm_sections,omitempty"`

	Output    OutputList `json:"output,omitempty" yaml:"output,omitempty"`
	OutputDir string     `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	Characters map[string]CharacterDefinition `json:"characters,omitempty" yaml:"characters,omitempty"`

	SubtitleStyle  SubtitleStyleConfig     `json:"subtitle_style,omitempty" yaml:"subtitle_style,omitempty"`
	SubtitleStyles map[string]PartialStyle `json:"subtitle_styles,omitempty" yaml:"subtitle_styles,omitempty"`

	DefaultPreset string `json:"default_preset,omitempty" yaml:"default_preset,omitempty"`
	DefaultEffect string `json:"default_effect,omitempty" yaml:"default_effect,omitempty"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// applyDefaults fills zero values with documented defaults after decoding.
func (s *Script) applyDefaults() {
	s.Voice.applyDefaults()
	for name, v := range s.VoiceProfiles {
		v.applyDefaults()
		s.VoiceProfiles[name] = v
	}
	if s.Timing == (TimingConfig{}) {
		s.Timing = DefaultTiming()
	}
	if s.DefaultEffect == "" {
		s.DefaultEffect = "default"
	}
	if s.BGM != nil && s.BGM.Volume == 0 {
		s.BGM.Volume = 0.3
	}
	for i := range s.BGMSections {
		if s.BGMSections[i].Volume == 0 {
			s.BGMSections[i].Volume = 0.3
		}
	}
	for i := range s.Scenes {
		sc := &s.Scenes[i]
		if sc.Voice != nil {
			sc.Voice.applyDefaults()
		}
		if sc.Transition != nil {
			sc.Transition.applyDefaults()
		}
		for j := range sc.Narrations {
			if sc.Narrations[j].Voice != nil {
				sc.Narrations[j].Voice.applyDefaults()
			}
		}
		for j := range sc.SoundEffects {
			if sc.SoundEffects[j].Volume == 0 {
				sc.SoundEffects[j].Volume = 1.0
			}
		}
		for j := range sc.Stamps {
			st := &sc.Stamps[j]
			if st.Scale == 0 {
				st.Scale = 1.0
			}
			if st.Opacity == 0 {
				st.Opacity = 1.0
			}
			if st.Margin == 0 {
				st.Margin = 20
			}
			if st.Position == "" {
				st.Position = StampBottomRight
			}
		}
	}
	for id, def := range s.Characters {
		def.applyDefaults()
		s.Characters[id] = def
	}
	if len(s.Output) == 0 {
		s.Output = OutputList{DefaultOutputSettings()}
	}
	for i := range s.Output {
		s.Output[i].applyDefaults()
	}
	s.SubtitleStyle.applyDefaults()
}
