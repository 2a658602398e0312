package effects

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/kazuvin/teto/internal/media"
	"github.com/kazuvin/teto/internal/project"
)

// Strategy is a pure clip transform: it returns a copy of the clip with
// the effect's filter expressions appended and must not mutate its input.
type Strategy func(clip media.Clip, fx project.AnimationEffect, width, height int) media.Clip

// Registry maps effect type names to strategies. It is built once with the
// built-ins installed and is read-only afterwards, so lookups are safe from
// any goroutine. WithStrategy derives a modified copy for tests.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry returns a registry with every built-in strategy installed.
func NewRegistry() *Registry {
	r := &Registry{strategies: map[string]Strategy{}}
	for name, s := range builtinStrategies() {
		r.strategies[name] = s
	}
	return r
}

// WithStrategy returns a copy with the named strategy added. Registering
// an existing name replaces it silently; the last registration wins.
func (r *Registry) WithStrategy(name string, s Strategy) *Registry {
	next := &Registry{strategies: make(map[string]Strategy, len(r.strategies)+1)}
	for k, v := range r.strategies {
		next.strategies[k] = v
	}
	next.strategies[name] = s
	return next
}

// Lookup returns the strategy for an effect type.
func (r *Registry) Lookup(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Has reports whether the effect type is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.strategies[name]
	return ok
}

// Names returns the registered effect type names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply runs an ordered effect stack over the clip. Unknown types are
// skipped with a warning so a stale project file degrades instead of
// failing mid-render.
func (r *Registry) Apply(clip media.Clip, stack []project.AnimationEffect, width, height int) media.Clip {
	for _, fx := range stack {
		s, ok := r.strategies[fx.Type]
		if !ok {
			log.Warn().Str("effect", fx.Type).Msg("unknown effect type, skipping")
			continue
		}
		clip = s(clip, fx, width, height)
	}
	return clip
}
