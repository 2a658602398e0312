package render

import (
	"context"
	"fmt"
)

// Step is one stage of the render pipeline. Steps either extend the
// context (clips, overlays) or forward it unchanged; they must not undo
// work of earlier steps.
type Step interface {
	Name() string
	Process(ctx context.Context, rc *Context) error
}

// Pipeline is an ordered step chain. Cancellation is honored between
// steps: a cancelled context stops before the next step runs, and
// CleanupStep releases whatever was acquired up to that point.
type Pipeline []Step

// Execute runs the steps in order. On failure or cancellation the trailing
// CleanupStep (when present) still runs so acquired resources are
// released.
func (p Pipeline) Execute(ctx context.Context, rc *Context) error {
	for i, step := range p {
		if err := ctx.Err(); err != nil {
			p.cleanupFrom(ctx, rc, i)
			return err
		}
		if err := step.Process(ctx, rc); err != nil {
			p.cleanupFrom(ctx, rc, i+1)
			return fmt.Errorf("step %s: %w", step.Name(), err)
		}
	}
	return nil
}

// cleanupFrom runs the final step if it is a cleanup step that has not run
// yet.
func (p Pipeline) cleanupFrom(ctx context.Context, rc *Context, next int) {
	if len(p) == 0 || next >= len(p) {
		return
	}
	if c, ok := p[len(p)-1].(*CleanupStep); ok {
		_ = c.Process(ctx, rc)
	}
}

// DefaultPipeline is the standard step order: video layers, audio layers,
// audio merge, stamps, characters, subtitles, encode, cleanup.
func DefaultPipeline() Pipeline {
	return Pipeline{
		&VideoLayerStep{},
		&AudioLayerStep{},
		&AudioMergeStep{},
		&StampLayerStep{},
		&CharacterLayerStep{},
		&SubtitleStep{},
		&OutputStep{},
		&CleanupStep{},
	}
}
