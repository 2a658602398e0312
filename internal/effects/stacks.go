package effects

import (
	"sort"

	"github.com/kazuvin/teto/internal/project"
)

// Stack is a named bundle of animation effects, with separate stacks for
// image and video layers. Scenes reference stacks by name through their
// `effect` field.
type Stack struct {
	Name  string
	Image []project.AnimationEffect
	Video []project.AnimationEffect
}

// StackRegistry maps stack names to effect bundles. Like Registry it is
// built once and read-only afterwards.
type StackRegistry struct {
	stacks map[string]Stack
}

// NewStackRegistry returns a registry with the built-in stacks installed.
func NewStackRegistry() *StackRegistry {
	r := &StackRegistry{stacks: map[string]Stack{}}
	for _, s := range builtinStacks() {
		r.stacks[s.Name] = s
	}
	return r
}

// WithStack returns a copy with the stack added, replacing any stack of
// the same name.
func (r *StackRegistry) WithStack(s Stack) *StackRegistry {
	next := &StackRegistry{stacks: make(map[string]Stack, len(r.stacks)+1)}
	for k, v := range r.stacks {
		next.stacks[k] = v
	}
	next.stacks[s.Name] = s
	return next
}

// Lookup returns the named stack.
func (r *StackRegistry) Lookup(name string) (Stack, bool) {
	s, ok := r.stacks[name]
	return s, ok
}

// Has reports whether the stack name is registered.
func (r *StackRegistry) Has(name string) bool {
	_, ok := r.stacks[name]
	return ok
}

// Names returns the registered stack names, sorted.
func (r *StackRegistry) Names() []string {
	names := make([]string, 0, len(r.stacks))
	for name := range r.stacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func kenBurnsStack(name string, panStart, panEnd [2]float64, startScale, endScale float64) Stack {
	fx := project.AnimationEffect{
		Type: "kenBurns",
		Params: map[string]any{
			"pan_start":   []any{panStart[0], panStart[1]},
			"pan_end":     []any{panEnd[0], panEnd[1]},
			"start_scale": startScale,
			"end_scale":   endScale,
			"easing":      "linear",
		},
	}
	return Stack{Name: name, Image: []project.AnimationEffect{fx}}
}

func builtinStacks() []Stack {
	gentle := func(name string, panStart, panEnd [2]float64) Stack {
		return kenBurnsStack(name, panStart, panEnd, 1.05, 1.12)
	}

	slideInRight := project.AnimationEffect{
		Type:     "slideIn",
		Duration: 0.5,
		Params:   map[string]any{"direction": "right", "easing": "easeOut"},
	}

	return []Stack{
		// Static frames; the plain base look.
		{Name: "default"},

		{
			Name: "dramatic",
			Image: []project.AnimationEffect{
				{Type: "zoom", Params: map[string]any{
					"start_scale": 1.0, "end_scale": 1.2, "easing": "easeInOut"}},
				{Type: "fadeIn", Duration: 0.5},
			},
			Video: []project.AnimationEffect{
				{Type: "fadeIn", Duration: 0.5},
			},
		},

		{
			Name:  "slideshow",
			Image: []project.AnimationEffect{slideInRight},
			Video: []project.AnimationEffect{slideInRight},
		},

		gentle("kenburns-left-to-right", [2]float64{-0.1, 0}, [2]float64{0.1, 0}),
		gentle("kenburns-right-to-left", [2]float64{0.1, 0}, [2]float64{-0.1, 0}),
		gentle("kenburns-top-to-bottom", [2]float64{0, -0.1}, [2]float64{0, 0.1}),
		gentle("kenburns-bottom-to-top", [2]float64{0, 0.1}, [2]float64{0, -0.1}),
		gentle("kenburns-diagonal-left-top", [2]float64{-0.1, -0.1}, [2]float64{0.1, 0.1}),
		gentle("kenburns-diagonal-right-top", [2]float64{0.1, -0.1}, [2]float64{-0.1, 0.1}),
		kenBurnsStack("kenburns-zoom-in", [2]float64{0, 0}, [2]float64{0, 0}, 1.0, 1.25),
		kenBurnsStack("kenburns-zoom-out", [2]float64{0, 0}, [2]float64{0, 0}, 1.25, 1.0),

		// Pan points omitted on purpose: the render step fills them from
		// the focus analyzer per image.
		{Name: "kenburns-auto", Image: []project.AnimationEffect{{
			Type:   "kenBurns",
			Params: map[string]any{"start_scale": 1.05, "end_scale": 1.15, "easing": "linear"},
		}}},
	}
}
