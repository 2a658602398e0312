package render

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	"github.com/kazuvin/teto/internal/analyzer"
	"github.com/kazuvin/teto/internal/media"
	"github.com/kazuvin/teto/internal/project"
	"github.com/kazuvin/teto/internal/script"
	"github.com/kazuvin/teto/internal/subtitle"
	"github.com/kazuvin/teto/internal/teterr"
)

// VideoLayerStep turns the base track into clips: output size resolution,
// object fit, effect stacks, transitions.
type VideoLayerStep struct{}

func (s *VideoLayerStep) Name() string { return "video-layers" }

func (s *VideoLayerStep) Process(ctx context.Context, rc *Context) error {
	out := rc.Project.Output
	rc.Width, rc.Height = out.Resolution()
	layers := rc.Project.Timeline.VideoLayers
	if len(layers) == 0 {
		return teterr.New(teterr.Internal, "project has no video layers")
	}
	rc.report(fmt.Sprintf("processing %d video layer(s)", len(layers)))

	for i, layer := range layers {
		clip := media.Clip{
			Source:    layer.Path,
			StartTime: layer.StartTime,
			Duration:  layer.Span(),
			Volume:    layer.Volume,
			Loop:      layer.Loop,
			FPS:       out.FPS,
		}
		if layer.Kind == project.KindVideo {
			clip.Kind = media.ClipVideo
		} else {
			clip.Kind = media.ClipImage
		}

		clip = clip.WithFilter(objectFitFilter(out.ObjectFit, rc.Width, rc.Height))
		clip = rc.Effects.Apply(clip, resolveAutoPan(layer), rc.Width, rc.Height)

		// The transition stored on layer i+1 plays at the i/i+1 boundary.
		if i+1 < len(layers) {
			if t := layers[i+1].Transition; t != nil {
				clip.TransitionType = t.Type
				clip.TransitionDuration = t.Duration
			}
		}
		rc.Videos = append(rc.Videos, clip)
	}
	return nil
}

// objectFitFilter maps source dimensions onto the frame: contain letterboxes
// with black, cover center-crops the excess, fill distorts.
func objectFitFilter(fit script.ObjectFit, w, h int) string {
	switch fit {
	case script.FitCover:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", w, h, w, h)
	case script.FitFill:
		return fmt.Sprintf("scale=%d:%d", w, h)
	default:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", w, h, w, h)
	}
}

// resolveAutoPan fills missing kenBurns pan points from the focus
// analyzer for image layers. The project stays untouched; a patched copy
// of the stack is returned.
func resolveAutoPan(layer project.VisualLayer) []project.AnimationEffect {
	if layer.Kind != project.KindImage {
		return layer.Effects
	}
	patched := false
	stack := make([]project.AnimationEffect, len(layer.Effects))
	copy(stack, layer.Effects)

	for i, fx := range stack {
		if fx.Type != "kenBurns" {
			continue
		}
		if _, _, ok := fx.PointParam("pan_start"); ok {
			continue
		}
		if _, _, ok := fx.PointParam("pan_end"); ok {
			continue
		}
		focus, err := analyzer.FindFocus(layer.Path)
		if err != nil {
			continue
		}
		params := make(map[string]any, len(fx.Params)+2)
		for k, v := range fx.Params {
			params[k] = v
		}
		params["pan_start"] = []any{0.0, 0.0}
		params["pan_end"] = []any{focus.X, focus.Y}
		stack[i].Params = params
		patched = true
	}
	if !patched {
		return layer.Effects
	}
	return stack
}

// AudioLayerStep turns audio layers into clips. An EndTime at or before
// StartTime means the source plays its natural length.
type AudioLayerStep struct{}

func (s *AudioLayerStep) Name() string { return "audio-layers" }

func (s *AudioLayerStep) Process(ctx context.Context, rc *Context) error {
	for _, layer := range rc.Project.Timeline.AudioLayers {
		clip := media.Clip{
			Kind:      media.ClipAudio,
			Source:    layer.Path,
			StartTime: layer.StartTime,
			Volume:    layer.Volume,
			FadeIn:    layer.FadeIn,
			FadeOut:   layer.FadeOut,
			Loop:      layer.Loop,
		}
		if layer.EndTime > layer.StartTime {
			clip.Duration = layer.EndTime - layer.StartTime
		}
		rc.Audios = append(rc.Audios, clip)
	}
	rc.report(fmt.Sprintf("processing %d audio layer(s)", len(rc.Audios)))
	return nil
}

// AudioMergeStep finalizes the mix plan: clips that would play past the
// project end are clamped so the composite track matches the video length.
type AudioMergeStep struct{}

func (s *AudioMergeStep) Name() string { return "audio-merge" }

func (s *AudioMergeStep) Process(ctx context.Context, rc *Context) error {
	total := rc.Project.Timeline.Duration()
	for i := range rc.Audios {
		c := &rc.Audios[i]
		if c.StartTime >= total {
			c.Duration = 0.001
			continue
		}
		remaining := total - c.StartTime
		if c.Loop || (c.Duration > 0 && c.Duration > remaining) {
			c.Duration = remaining
		}
	}
	return nil
}

// StampLayerStep rasterizes stamp overlays: scaling per the layer's scale
// factor and positioning per its preset or custom coordinates.
type StampLayerStep struct{}

func (s *StampLayerStep) Name() string { return "stamp-layers" }

func (s *StampLayerStep) Process(ctx context.Context, rc *Context) error {
	for i, layer := range rc.Project.Timeline.StampLayers {
		img, err := loadImage(layer.Path)
		if err != nil {
			return teterr.Wrap(teterr.AssetNotFound, err, "stamp %s", layer.Path)
		}

		w := img.Bounds().Dx()
		h := img.Bounds().Dy()
		path := layer.Path
		if layer.Scale != 1.0 && layer.Scale > 0 {
			scaled := resize.Resize(uint(float64(w)*layer.Scale), 0, img, resize.Lanczos3)
			w = scaled.Bounds().Dx()
			h = scaled.Bounds().Dy()
			path = filepath.Join(rc.Workspace, fmt.Sprintf("stamp_%03d.png", i))
			if err := writePNG(path, scaled); err != nil {
				return err
			}
			rc.Acquire(path)
		}

		x, y := stampPosition(layer, w, h, rc.Width, rc.Height)
		rc.Overlays = append(rc.Overlays, media.Overlay{
			Path:    path,
			X:       x,
			Y:       y,
			Start:   layer.StartTime,
			End:     layer.EndTime,
			Opacity: layer.Opacity,
		})
	}
	return nil
}

func stampPosition(layer project.StampLayer, w, h, frameW, frameH int) (int, int) {
	m := layer.Margin
	switch layer.Position {
	case script.StampTopLeft:
		return m, m
	case script.StampTopRight:
		return frameW - w - m, m
	case script.StampBottomLeft:
		return m, frameH - h - m
	case script.StampBottomRight:
		return frameW - w - m, frameH - h - m
	default:
		return layer.X, layer.Y
	}
}

// SubtitleStep dispatches on the output's subtitle mode: burn rasterizes
// and composites, srt/vtt write a sidecar next to the video, none is a
// no-op.
type SubtitleStep struct{}

func (s *SubtitleStep) Name() string { return "subtitles" }

func (s *SubtitleStep) Process(ctx context.Context, rc *Context) error {
	layers := rc.Project.Timeline.SubtitleLayers
	if len(layers) == 0 {
		return nil
	}

	switch rc.Project.Output.SubtitleMode {
	case script.SubtitleBurn:
		return s.burn(rc, layers)
	case script.SubtitleSRT:
		return subtitle.WriteSRT(sidecarPath(rc.Project.Output.Path, ".srt"), layers)
	case script.SubtitleVTT:
		return subtitle.WriteVTT(sidecarPath(rc.Project.Output.Path, ".vtt"), layers)
	default:
		return nil
	}
}

func (s *SubtitleStep) burn(rc *Context, layers []project.SubtitleLayer) error {
	renderer, err := subtitle.NewRenderer(rc.Width, rc.Height)
	if err != nil {
		return err
	}

	// Identical text under an identical style rasterizes once and is
	// reused across items.
	rastered := map[string]*subtitle.Rendered{}
	n := 0
	for li, layer := range layers {
		key := subtitle.StyleKey(layer.Style)
		for ii, item := range layer.Items {
			cacheKey := key + "\x00" + item.Text
			rendered, ok := rastered[cacheKey]
			if !ok {
				rendered, err = renderer.Render(item.Text, layer.Style, layer.Styles)
				if err != nil {
					return fmt.Errorf("subtitle %d/%d: %w", li, ii, err)
				}
				rastered[cacheKey] = rendered
			}

			path := filepath.Join(rc.Workspace, fmt.Sprintf("subtitle_%03d_%03d.png", li, ii))
			if err := writePNG(path, rendered.Image); err != nil {
				return err
			}
			rc.Acquire(path)
			rc.Overlays = append(rc.Overlays, media.Overlay{
				Path:    path,
				X:       rendered.X,
				Y:       rendered.Y,
				Start:   item.StartTime,
				End:     item.EndTime,
				Opacity: 1.0,
			})
			n++
		}
	}

	// Every raster has been written to disk; hand the buffers back.
	for _, rendered := range rastered {
		subtitle.PutImage(rendered.Image)
	}
	rc.report(fmt.Sprintf("burned %d subtitle item(s)", n))
	return nil
}

func sidecarPath(videoPath, ext string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ext
}

// OutputStep hands the assembled graph to the backend.
type OutputStep struct{}

func (s *OutputStep) Name() string { return "output" }

func (s *OutputStep) Process(ctx context.Context, rc *Context) error {
	out := rc.Project.Output
	if err := os.MkdirAll(filepath.Dir(out.Path), 0o755); err != nil {
		return teterr.Wrap(teterr.EncoderIO, err, "cannot create output dir for %s", out.Path)
	}
	rc.report("encoding " + out.Path)

	return rc.Backend.Encode(ctx, media.EncodeSpec{
		Videos:     rc.Videos,
		Audios:     rc.Audios,
		Overlays:   rc.Overlays,
		Width:      rc.Width,
		Height:     rc.Height,
		FPS:        out.FPS,
		Codec:      out.Codec,
		Preset:     out.Preset,
		Duration:   rc.Project.Timeline.Duration(),
		OutputPath: out.Path,
		Verbose:    rc.Verbose,
	})
}

// CleanupStep releases run resources in reverse acquisition order, then
// removes the workspace.
type CleanupStep struct{}

func (s *CleanupStep) Name() string { return "cleanup" }

func (s *CleanupStep) Process(ctx context.Context, rc *Context) error {
	for i := len(rc.acquired) - 1; i >= 0; i-- {
		_ = os.Remove(rc.acquired[i])
	}
	rc.acquired = nil
	if rc.Workspace != "" {
		_ = os.RemoveAll(rc.Workspace)
	}
	return nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("cannot encode %s: %w", path, err)
	}
	return f.Close()
}
