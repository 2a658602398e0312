package render

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/nfnt/resize"

	"github.com/kazuvin/teto/internal/media"
	"github.com/kazuvin/teto/internal/project"
	"github.com/kazuvin/teto/internal/script"
	"github.com/kazuvin/teto/internal/teterr"
)

// CharacterLayerStep composites character avatars on top of the base
// track. Each layer becomes a base overlay for its full window, with mouth
// and blink keyframes layered above it in their own enable windows; idle
// animation moves the overlay via position expressions.
type CharacterLayerStep struct{}

func (s *CharacterLayerStep) Name() string { return "character-layers" }

func (s *CharacterLayerStep) Process(ctx context.Context, rc *Context) error {
	layers := rc.Project.Timeline.CharacterLayers
	if len(layers) == 0 {
		return nil
	}

	// Scaled expression images are shared across layers of the same
	// character, so cache by (path, scale).
	scaled := map[string]scaledImage{}

	for i, layer := range layers {
		base, err := s.scaledPath(rc, scaled, layer.Path, layer.Scale, i)
		if err != nil {
			return err
		}

		x, y := characterPosition(layer, base.w, base.h, rc.Width, rc.Height)
		xExpr, yExpr := animationExprs(layer.Animation, x, y)

		rc.Overlays = append(rc.Overlays, media.Overlay{
			Path:    base.path,
			X:       x,
			Y:       y,
			XExpr:   xExpr,
			YExpr:   yExpr,
			Start:   layer.StartTime,
			End:     layer.EndTime,
			Opacity: layer.Opacity,
		})

		// Keyframe tracks draw over the base image inside their windows.
		for _, window := range keyframeWindows(layer.MouthKeyframes, layer.EndTime) {
			if window.path == layer.Path {
				continue
			}
			img, err := s.scaledPath(rc, scaled, window.path, layer.Scale, i)
			if err != nil {
				return err
			}
			rc.Overlays = append(rc.Overlays, media.Overlay{
				Path: img.path, X: x, Y: y, XExpr: xExpr, YExpr: yExpr,
				Start: window.start, End: window.end, Opacity: layer.Opacity,
			})
		}
		for _, window := range keyframeWindows(layer.BlinkKeyframes, layer.EndTime) {
			if window.path == layer.Path {
				continue
			}
			img, err := s.scaledPath(rc, scaled, window.path, layer.Scale, i)
			if err != nil {
				return err
			}
			rc.Overlays = append(rc.Overlays, media.Overlay{
				Path: img.path, X: x, Y: y, XExpr: xExpr, YExpr: yExpr,
				Start: window.start, End: window.end, Opacity: layer.Opacity,
			})
		}
	}
	rc.report(fmt.Sprintf("composited %d character layer(s)", len(layers)))
	return nil
}

type scaledImage struct {
	path string
	w, h int
}

// scaledPath loads an expression image, scales it when needed, and returns
// the path to composite plus its dimensions.
func (s *CharacterLayerStep) scaledPath(rc *Context, cache map[string]scaledImage, path string, scale float64, serial int) (scaledImage, error) {
	key := fmt.Sprintf("%s@%.3f", path, scale)
	if img, ok := cache[key]; ok {
		return img, nil
	}

	src, err := loadImage(path)
	if err != nil {
		return scaledImage{}, teterr.Wrap(teterr.AssetNotFound, err, "character image %s", path)
	}

	out := scaledImage{path: path, w: src.Bounds().Dx(), h: src.Bounds().Dy()}
	if scale > 0 && scale != 1.0 {
		resized := resize.Resize(uint(float64(out.w)*scale), 0, src, resize.Lanczos3)
		out.w = resized.Bounds().Dx()
		out.h = resized.Bounds().Dy()
		out.path = filepath.Join(rc.Workspace, fmt.Sprintf("character_%03d_%03d.png", serial, len(cache)))
		if err := writePNG(out.path, resized); err != nil {
			return scaledImage{}, err
		}
		rc.Acquire(out.path)
	}
	cache[key] = out
	return out, nil
}

// characterPosition resolves a placement preset (or custom coordinates)
// against the frame, with the same bottom margin the original uses.
func characterPosition(layer project.CharacterLayer, w, h, frameW, frameH int) (int, int) {
	if layer.CustomPosition != nil {
		return layer.CustomPosition[0], layer.CustomPosition[1]
	}
	const margin = 20
	switch layer.Position {
	case script.CharacterBottomLeft:
		return margin, frameH - h - margin
	case script.CharacterBottomCenter:
		return (frameW - w) / 2, frameH - h - margin
	case script.CharacterLeft:
		return margin, (frameH - h) / 2
	case script.CharacterRight:
		return frameW - w - margin, (frameH - h) / 2
	case script.CharacterCenter:
		return (frameW - w) / 2, (frameH - h) / 2
	default: // bottom-right
		return frameW - w - margin, frameH - h - margin
	}
}

// animationExprs maps an idle animation onto overlay position expressions.
// Offsets and frequencies follow the original's per-type constants. Scale
// animations (breathe, pulse) have no overlay equivalent and stay static.
func animationExprs(a script.CharacterAnimation, x, y int) (string, string) {
	i := a.Intensity
	s := a.Speed
	switch a.Type {
	case script.AnimationBounce:
		return "", fmt.Sprintf("%d-%d*abs(sin(t*%.4f))", y, int(20*i), 2*math.Pi*3.0*s)
	case script.AnimationShake:
		return fmt.Sprintf("%d+%d*sin(t*%.4f)", x, int(8*i), 2*math.Pi*8.0*s), ""
	case script.AnimationNod:
		return "", fmt.Sprintf("%d+%d*sin(t*%.4f)", y, int(10*i), 2*math.Pi*2.0*s)
	case script.AnimationSway:
		return fmt.Sprintf("%d+%d*sin(t*%.4f)", x, int(15*i), 2*math.Pi*0.5*s), ""
	case script.AnimationFloat:
		return "", fmt.Sprintf("%d-%d*sin(t*%.4f)", y, int(12*i), 2*math.Pi*0.4*s)
	default:
		return "", ""
	}
}

// window is a half-open span during which one expression image shows.
type window struct {
	path  string
	start float64
	end   float64
}

// keyframeWindows converts a keyframe list into display windows: each
// keyframe holds until the next one, the last until layerEnd.
func keyframeWindows(frames []project.ExpressionKeyframe, layerEnd float64) []window {
	if len(frames) == 0 {
		return nil
	}
	ordered := make([]project.ExpressionKeyframe, len(frames))
	copy(ordered, frames)
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].Time < ordered[b].Time })

	windows := make([]window, 0, len(ordered))
	for i, kf := range ordered {
		end := layerEnd
		if i+1 < len(ordered) {
			end = ordered[i+1].Time
		}
		if end <= kf.Time {
			continue
		}
		windows = append(windows, window{path: kf.Path, start: kf.Time, end: end})
	}
	return windows
}
