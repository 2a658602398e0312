package media

import (
	"context"
)

// EncodeSpec is everything the backend needs for one encoder run: the base
// video track in timeline order, the audio clips to mix, overlays to
// composite, and the output parameters.
type EncodeSpec struct {
	Videos   []Clip
	Audios   []Clip
	Overlays []Overlay

	Width, Height int
	FPS           int
	Codec         string
	Preset        string
	Duration      float64
	OutputPath    string
	Verbose       bool
}

// Backend abstracts clip probing and encoding. The default implementation
// shells out to ffmpeg; tests substitute a recording fake.
type Backend interface {
	Probe(ctx context.Context, path string) (*Info, error)
	Encode(ctx context.Context, spec EncodeSpec) error
}
