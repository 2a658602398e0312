// Package render drives a compiled project through the processing
// pipeline: layer clips are built, composed and handed to the media
// backend for a single encode, then run resources are released.
package render

import (
	"github.com/rs/zerolog"

	"github.com/kazuvin/teto/internal/effects"
	"github.com/kazuvin/teto/internal/media"
	"github.com/kazuvin/teto/internal/project"
)

// Context is the mutable state threaded through one pipeline run. Each run
// owns its context exclusively; parallel renders never share one.
type Context struct {
	Project *project.Project
	Backend media.Backend
	Effects *effects.Registry

	Width  int
	Height int

	Videos   []media.Clip
	Audios   []media.Clip
	Overlays []media.Overlay

	// Workspace holds per-run derived files (rasterized subtitles, scaled
	// stamps). CleanupStep removes it.
	Workspace string
	acquired  []string

	Progress func(string)
	Verbose  bool

	logger zerolog.Logger
}

// Acquire records a file for release by CleanupStep, in reverse order.
func (rc *Context) Acquire(path string) {
	rc.acquired = append(rc.acquired, path)
}

func (rc *Context) report(msg string) {
	if rc.Progress != nil {
		rc.Progress(msg)
	}
	rc.logger.Debug().Msg(msg)
}
