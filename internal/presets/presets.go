// Package presets holds composite scene presets: coarse-grained bundles
// (effect stack, transition, subtitle style, timing override) that scripts
// reference by name, typically by narrative role — hook, overview, main
// content, call to action.
package presets

import (
	"sort"

	"github.com/kazuvin/teto/internal/script"
)

// Preset bundles the per-scene settings a name expands into. Nil fields
// leave the script-level setting untouched.
type Preset struct {
	Effect         string
	Transition     *script.TransitionConfig
	SubtitleStyle  *script.SubtitleStyleConfig
	TimingOverride *script.TimingConfig
}

// Registry maps preset names to configurations. It is constructed with the
// built-ins installed and frozen afterwards; WithPreset derives a modified
// copy for tests and custom setups.
type Registry struct {
	presets map[string]Preset
}

// NewRegistry returns a registry holding the built-in presets.
func NewRegistry() *Registry {
	r := &Registry{presets: map[string]Preset{}}
	for name, p := range builtinPresets() {
		r.presets[name] = p
	}
	return r
}

// WithPreset returns a copy with the preset added, replacing any existing
// preset of the same name.
func (r *Registry) WithPreset(name string, p Preset) *Registry {
	next := &Registry{presets: make(map[string]Preset, len(r.presets)+1)}
	for k, v := range r.presets {
		next.presets[k] = v
	}
	next.presets[name] = p
	return next
}

// Lookup returns the named preset.
func (r *Registry) Lookup(name string) (Preset, bool) {
	p, ok := r.presets[name]
	return p, ok
}

// Has reports whether the name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.presets[name]
	return ok
}

// Names returns the registered preset names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func builtinPresets() map[string]Preset {
	return map[string]Preset{
		// Opening seconds: big type, fast pacing, dramatic motion.
		"hook": {
			Effect: "dramatic",
			SubtitleStyle: &script.SubtitleStyleConfig{
				FontSize:   script.Size{Name: "xl"},
				FontWeight: "bold",
				Appearance: "drop-shadow",
			},
			TimingOverride: &script.TimingConfig{
				DefaultSegmentGap: 0.2,
				DefaultSceneGap:   0.5,
				SubtitlePadding:   0.05,
			},
		},

		// Topic overview with a slow Ken Burns drift.
		"overview": {
			Effect: "kenburns-zoom-in",
			SubtitleStyle: &script.SubtitleStyleConfig{
				FontSize:   script.Size{Name: "lg"},
				Appearance: "background",
			},
			TimingOverride: &script.TimingConfig{
				DefaultSegmentGap: 0.3,
				DefaultSceneGap:   0.5,
				SubtitlePadding:   0.1,
			},
		},

		// The body of the video: plain frames, default pacing.
		"main_content": {
			Effect: "default",
			SubtitleStyle: &script.SubtitleStyleConfig{
				FontSize:   script.Size{Name: "base"},
				Appearance: "background",
			},
		},

		// Call to action: loud styling, slower pacing.
		"cta": {
			Effect: "dramatic",
			SubtitleStyle: &script.SubtitleStyleConfig{
				FontSize:   script.Size{Name: "xl"},
				FontWeight: "bold",
				FontColor:  "yellow",
				Appearance: "drop-shadow",
			},
			TimingOverride: &script.TimingConfig{
				DefaultSegmentGap: 0.4,
				DefaultSceneGap:   0.5,
				SubtitlePadding:   0.1,
			},
		},

		// Captions without any decoration.
		"minimal": {
			Effect: "default",
			SubtitleStyle: &script.SubtitleStyleConfig{
				FontSize:   script.Size{Name: "sm"},
				Appearance: "plain",
			},
		},

		// Heavy outlined captions for noisy footage.
		"bold_subtitle": {
			SubtitleStyle: &script.SubtitleStyleConfig{
				FontSize:         script.Size{Name: "lg"},
				FontWeight:       "bold",
				StrokeWidth:      script.Size{Name: "lg"},
				OuterStrokeWidth: script.Size{Name: "sm"},
				Appearance:       "plain",
			},
		},

		// Portrait-format defaults: crossfade cuts and larger type.
		"vertical": {
			Effect:     "kenburns-zoom-in",
			Transition: &script.TransitionConfig{Type: "crossfade", Duration: 0.3},
			SubtitleStyle: &script.SubtitleStyleConfig{
				FontSize:   script.Size{Name: "lg"},
				FontWeight: "bold",
				Appearance: "background",
			},
		},
	}
}
