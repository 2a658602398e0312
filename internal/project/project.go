// Package project defines the low-level, time-explicit intermediate form:
// every layer carries absolute start/end seconds, ready for rendering.
// Projects are produced once by the compiler and never mutated afterwards.
package project

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kazuvin/teto/internal/script"
)

// VisualKind tags the two members of the base-track layer union.
type VisualKind string

const (
	KindVideo VisualKind = "video"
	KindImage VisualKind = "image"
)

// AnimationEffect names a registered effect with its parameters. Params is
// a free-form mapping interpreted by the strategy.
type AnimationEffect struct {
	Type     string         `json:"type" yaml:"type"`
	Duration float64        `json:"duration,omitempty" yaml:"duration,omitempty"`
	Params   map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// FloatParam reads a numeric parameter, falling back to def when absent.
func (e AnimationEffect) FloatParam(key string, def float64) float64 {
	switch v := e.Params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// StringParam reads a string parameter, falling back to def when absent.
func (e AnimationEffect) StringParam(key, def string) string {
	if v, ok := e.Params[key].(string); ok {
		return v
	}
	return def
}

// PointParam reads an [x, y] parameter; ok is false when absent or malformed.
func (e AnimationEffect) PointParam(key string) (x, y float64, ok bool) {
	raw, present := e.Params[key]
	if !present {
		return 0, 0, false
	}
	pair, isSlice := raw.([]any)
	if !isSlice || len(pair) != 2 {
		return 0, 0, false
	}
	toF := func(v any) (float64, bool) {
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		}
		return 0, false
	}
	var okX, okY bool
	x, okX = toF(pair[0])
	y, okY = toF(pair[1])
	return x, y, okX && okY
}

// VisualLayer is one entry of the base video track: a video or a still
// image shown for [StartTime, EndTime).
type VisualLayer struct {
	Kind      VisualKind `json:"kind" yaml:"kind"`
	Path      string     `json:"path" yaml:"path"`
	StartTime float64    `json:"start_time" yaml:"start_time"`
	EndTime   float64    `json:"end_time" yaml:"end_time"`

	// Video-only knobs.
	Volume float64 `json:"volume,omitempty" yaml:"volume,omitempty"`
	Loop   bool    `json:"loop,omitempty" yaml:"loop,omitempty"`

	Effects    []AnimationEffect        `json:"effects,omitempty" yaml:"effects,omitempty"`
	Transition *script.TransitionConfig `json:"transition,omitempty" yaml:"transition,omitempty"`
}

// Span returns the layer's duration in seconds.
func (l VisualLayer) Span() float64 { return l.EndTime - l.StartTime }

// AudioLayer is a narration clip, sound effect or background track.
// Audio layers may overlap freely; they are mixed at render time.
type AudioLayer struct {
	Path      string  `json:"path" yaml:"path"`
	StartTime float64 `json:"start_time" yaml:"start_time"`
	EndTime   float64 `json:"end_time" yaml:"end_time"`
	Volume    float64 `json:"volume" yaml:"volume"`
	FadeIn    float64 `json:"fade_in,omitempty" yaml:"fade_in,omitempty"`
	FadeOut   float64 `json:"fade_out,omitempty" yaml:"fade_out,omitempty"`
	Loop      bool    `json:"loop,omitempty" yaml:"loop,omitempty"`
}

// SubtitleItem is one timed caption. Text retains inline markup; strip it
// before showing anywhere styles cannot apply.
type SubtitleItem struct {
	Text      string  `json:"text" yaml:"text"`
	StartTime float64 `json:"start_time" yaml:"start_time"`
	EndTime   float64 `json:"end_time" yaml:"end_time"`
}

// SubtitleLayer groups consecutive items sharing one resolved style.
type SubtitleLayer struct {
	Items  []SubtitleItem                 `json:"items" yaml:"items"`
	Style  script.SubtitleStyleConfig     `json:"style" yaml:"style"`
	Styles map[string]script.PartialStyle `json:"styles,omitempty" yaml:"styles,omitempty"`
}

// StampLayer is a time-bounded decorative overlay.
type StampLayer struct {
	Path      string               `json:"path" yaml:"path"`
	StartTime float64              `json:"start_time" yaml:"start_time"`
	EndTime   float64              `json:"end_time" yaml:"end_time"`
	Position  script.StampPosition `json:"position" yaml:"position"`
	X         int                  `json:"x,omitempty" yaml:"x,omitempty"`
	Y         int                  `json:"y,omitempty" yaml:"y,omitempty"`
	Scale     float64              `json:"scale" yaml:"scale"`
	Opacity   float64              `json:"opacity" yaml:"opacity"`
	Margin    int                  `json:"margin" yaml:"margin"`
	Effects   []AnimationEffect    `json:"effects,omitempty" yaml:"effects,omitempty"`
}

// ExpressionKeyframe switches a character to an expression image at an
// absolute time; the expression holds until the next keyframe.
type ExpressionKeyframe struct {
	Time       float64 `json:"time" yaml:"time"`
	Expression string  `json:"expression" yaml:"expression"`
	Path       string  `json:"path" yaml:"path"`
}

// CharacterLayer composites a character avatar for a time window. Mouth
// keyframes carry the paku-paku open/close alternation generated during
// narration; blink keyframes flash the eyes-closed expression. Both are
// empty for characters without the corresponding config.
type CharacterLayer struct {
	CharacterID string `json:"character_id" yaml:"character_id"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Expression  string `json:"expression" yaml:"expression"`
	Path        string `json:"path" yaml:"path"`

	StartTime float64 `json:"start_time" yaml:"start_time"`
	EndTime   float64 `json:"end_time" yaml:"end_time"`

	Position       script.CharacterPosition  `json:"position" yaml:"position"`
	CustomPosition *[2]int                   `json:"custom_position,omitempty" yaml:"custom_position,omitempty"`
	Scale          float64                   `json:"scale" yaml:"scale"`
	Opacity        float64                   `json:"opacity" yaml:"opacity"`
	Animation      script.CharacterAnimation `json:"animation,omitempty" yaml:"animation,omitempty"`

	MouthKeyframes []ExpressionKeyframe `json:"mouth_keyframes,omitempty" yaml:"mouth_keyframes,omitempty"`
	BlinkKeyframes []ExpressionKeyframe `json:"blink_keyframes,omitempty" yaml:"blink_keyframes,omitempty"`
}

// Timeline holds the layer tracks. The visual track is totally ordered by
// start time and non-overlapping; audio layers may overlap; character and
// stamp layers are free overlays.
type Timeline struct {
	VideoLayers     []VisualLayer    `json:"video_layers" yaml:"video_layers"`
	AudioLayers     []AudioLayer     `json:"audio_layers,omitempty" yaml:"audio_layers,omitempty"`
	SubtitleLayers  []SubtitleLayer  `json:"subtitle_layers,omitempty" yaml:"subtitle_layers,omitempty"`
	StampLayers     []StampLayer     `json:"stamp_layers,omitempty" yaml:"stamp_layers,omitempty"`
	CharacterLayers []CharacterLayer `json:"character_layers,omitempty" yaml:"character_layers,omitempty"`
}

// Duration is the end of the last visual layer, which by construction is
// the total project duration.
func (t Timeline) Duration() float64 {
	if len(t.VideoLayers) == 0 {
		return 0
	}
	return t.VideoLayers[len(t.VideoLayers)-1].EndTime
}

// OutputConfig is an OutputSettings bound to a concrete file path.
type OutputConfig struct {
	script.OutputSettings `yaml:",inline"`

	Path string `json:"path" yaml:"path"`
}

// NewOutputConfig binds settings to a path.
func NewOutputConfig(settings script.OutputSettings, path string) OutputConfig {
	return OutputConfig{OutputSettings: settings, Path: path}
}

// Project is the unit of rendering: one output with one timeline.
type Project struct {
	Output   OutputConfig `json:"output" yaml:"output"`
	Timeline Timeline     `json:"timeline" yaml:"timeline"`
}

// WriteYAML dumps the project for inspection or later rendering.
func (p *Project) WriteYAML(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadYAML loads a project previously written with WriteYAML.
func ReadYAML(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
