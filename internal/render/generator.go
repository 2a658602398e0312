package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kazuvin/teto/internal/effects"
	"github.com/kazuvin/teto/internal/logging"
	"github.com/kazuvin/teto/internal/media"
	"github.com/kazuvin/teto/internal/project"
)

// Generator renders one project through a pipeline. The default pipeline
// can be replaced wholesale for custom step orders.
type Generator struct {
	backend  media.Backend
	effects  *effects.Registry
	pipeline Pipeline
}

// NewGenerator creates a generator over the given backend. A nil effects
// registry selects the built-ins.
func NewGenerator(backend media.Backend, registry *effects.Registry) *Generator {
	if registry == nil {
		registry = effects.NewRegistry()
	}
	return &Generator{
		backend:  backend,
		effects:  registry,
		pipeline: DefaultPipeline(),
	}
}

// SetPipeline replaces the step chain.
func (g *Generator) SetPipeline(p Pipeline) { g.pipeline = p }

// Options tunes one Generate call.
type Options struct {
	Progress func(string)
	Verbose  bool
}

// Generate renders the project and returns the output path.
func (g *Generator) Generate(ctx context.Context, proj *project.Project, opts Options) (string, error) {
	workspace := filepath.Join(os.TempDir(), "teto-"+uuid.NewString())
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return "", fmt.Errorf("cannot create workspace: %w", err)
	}

	rc := &Context{
		Project:   proj,
		Backend:   g.backend,
		Effects:   g.effects,
		Workspace: workspace,
		Progress:  opts.Progress,
		Verbose:   opts.Verbose,
	}
	rc.logger = logging.WithComponent("render")

	if err := g.pipeline.Execute(ctx, rc); err != nil {
		return "", err
	}
	return proj.Output.Path, nil
}
