package render

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/errgroup"

	"github.com/kazuvin/teto/internal/compiler"
	"github.com/kazuvin/teto/internal/logging"
)

// Result is the outcome of rendering one output. The i-th result always
// corresponds to the i-th compiled project, regardless of completion
// order.
type Result struct {
	Path string
	Err  error
}

// Driver renders a multi-output compile under a bounded worker pool. The
// TTS cache is content-addressed and atomic, so compiles feeding this
// driver are safe to share a cache; pipeline runs own disjoint contexts.
type Driver struct {
	Generator *Generator
	Workers   int
}

// NewDriver wraps a generator with the default worker bound (logical CPU
// count).
func NewDriver(gen *Generator) *Driver {
	return &Driver{Generator: gen, Workers: defaultWorkers()}
}

// defaultWorkers asks gopsutil for the logical CPU count, falling back to
// the runtime's view.
func defaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// RenderAll runs one pipeline per compiled project. Failures are isolated:
// a failed output never aborts its siblings, and the returned slice
// preserves input order. Progress reports fire once per completed output.
func (d *Driver) RenderAll(ctx context.Context, results []compiler.CompileResult, opts Options) []Result {
	logger := logging.WithComponent("parallel")
	workers := d.Workers
	if workers <= 0 {
		workers = defaultWorkers()
	}

	out := make([]Result, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range results {
		g.Go(func() error {
			proj := results[i].Project
			path, err := d.Generator.Generate(gctx, proj, Options{Verbose: opts.Verbose})
			out[i] = Result{Path: path, Err: err}
			if err != nil {
				logger.Error().Err(err).Str("output", proj.Output.Path).Msg("render failed")
			} else if opts.Progress != nil {
				opts.Progress(fmt.Sprintf("completed %s", path))
			}
			// Errors are reported per output; never fail the group.
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Failed counts the outputs that did not render.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
