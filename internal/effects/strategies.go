package effects

import (
	"fmt"
	"math"

	"github.com/kazuvin/teto/internal/media"
	"github.com/kazuvin/teto/internal/project"
)

func builtinStrategies() map[string]Strategy {
	return map[string]Strategy{
		"fadeIn":     fadeIn,
		"fadeOut":    fadeOut,
		"slideIn":    slideIn,
		"slideOut":   slideOut,
		"zoom":       zoomStrategy,
		"kenBurns":   kenBurns,
		"blur":       blur,
		"colorGrade": colorGrade,
		"vignette":   vignette,
		"glitch":     glitch,
		"parallax":   parallax,
		"bounce":     bounce,
		"rotate":     rotateStrategy,
	}
}

func clipFPS(clip media.Clip) int {
	if clip.FPS > 0 {
		return clip.FPS
	}
	return 30
}

func effectDuration(fx project.AnimationEffect, clip media.Clip) float64 {
	d := fx.Duration
	if d <= 0 || d > clip.Duration {
		d = clip.Duration
	}
	return d
}

func fadeIn(clip media.Clip, fx project.AnimationEffect, _, _ int) media.Clip {
	d := fx.Duration
	if d <= 0 {
		d = 1.0
	}
	return clip.WithFilter(fmt.Sprintf("fade=t=in:st=0:d=%.3f", d))
}

func fadeOut(clip media.Clip, fx project.AnimationEffect, _, _ int) media.Clip {
	d := fx.Duration
	if d <= 0 {
		d = 1.0
	}
	start := clip.Duration - d
	if start < 0 {
		start, d = 0, clip.Duration
	}
	return clip.WithFilter(fmt.Sprintf("fade=t=out:st=%.3f:d=%.3f", start, d))
}

// slideIn translates the frame from off-screen to rest over the effect
// duration. The clip is padded onto a double-size canvas and a moving crop
// window plays the translation; the easing curve is embedded as an ffmpeg
// expression so the motion matches the Go-side easing exactly.
func slideIn(clip media.Clip, fx project.AnimationEffect, width, height int) media.Clip {
	return slide(clip, fx, width, height, false)
}

func slideOut(clip media.Clip, fx project.AnimationEffect, width, height int) media.Clip {
	return slide(clip, fx, width, height, true)
}

func slide(clip media.Clip, fx project.AnimationEffect, width, height int, out bool) media.Clip {
	direction := fx.StringParam("direction", "left")
	d := fx.Duration
	if d <= 0 {
		d = 0.5
	}

	var progress string
	if out {
		// Remaining distance grows over the last d seconds.
		progress = fmt.Sprintf("if(gt(t,%.3f),(t-%.3f)/%.3f,0)", clip.Duration-d, clip.Duration-d, d)
	} else {
		progress = fmt.Sprintf("(1-min(t/%.3f,1))", d)
	}
	offset := fmt.Sprintf("(%s)", easingExpr(fx.StringParam("easing", "easeOut"), progress))

	var xExpr, yExpr string
	switch direction {
	case "right":
		xExpr = fmt.Sprintf("(iw-ow)/2+%d*%s", width, offset)
		yExpr = "(ih-oh)/2"
	case "top":
		xExpr = "(iw-ow)/2"
		yExpr = fmt.Sprintf("(ih-oh)/2-%d*%s", height, offset)
	case "bottom":
		xExpr = "(iw-ow)/2"
		yExpr = fmt.Sprintf("(ih-oh)/2+%d*%s", height, offset)
	default: // left
		xExpr = fmt.Sprintf("(iw-ow)/2-%d*%s", width, offset)
		yExpr = "(ih-oh)/2"
	}

	padded := clip.WithFilter(fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", width*2, height*2))
	return padded.WithFilter(fmt.Sprintf("crop=%d:%d:x='%s':y='%s'", width, height, xExpr, yExpr))
}

func zoomStrategy(clip media.Clip, fx project.AnimationEffect, width, height int) media.Clip {
	startScale := fx.FloatParam("start_scale", 1.0)
	endScale := fx.FloatParam("end_scale", 1.2)
	easing := Easing(fx.StringParam("easing", "easeInOut"))
	d := effectDuration(fx, clip)

	frames := sampleEased(d, 8, easing, func(p float64) Keyframe {
		return Keyframe{
			Zoom: startScale + (endScale-startScale)*p,
			CX:   float64(width) / 2,
			CY:   float64(height) / 2,
		}
	})
	if d < clip.Duration {
		last := frames[len(frames)-1]
		last.Time = clip.Duration
		frames = append(frames, last)
	}
	return clip.WithFilter(BuildZoomPan(frames, clipFPS(clip), width, height))
}

// kenBurns combines zoom and pan. Pan points are fractional offsets of the
// frame center in [-0.5, 0.5]; when absent the processor fills them from
// the focus analyzer before the strategy runs.
func kenBurns(clip media.Clip, fx project.AnimationEffect, width, height int) media.Clip {
	startScale := fx.FloatParam("start_scale", 1.05)
	endScale := fx.FloatParam("end_scale", 1.15)
	sx, sy, ok := fx.PointParam("pan_start")
	if !ok {
		sx, sy = 0, 0
	}
	ex, ey, ok := fx.PointParam("pan_end")
	if !ok {
		ex, ey = 0.1, 0.1
	}
	easing := Easing(fx.StringParam("easing", "linear"))
	d := effectDuration(fx, clip)

	frames := sampleEased(d, 8, easing, func(p float64) Keyframe {
		return Keyframe{
			Zoom: startScale + (endScale-startScale)*p,
			CX:   float64(width) * (0.5 + sx + (ex-sx)*p),
			CY:   float64(height) * (0.5 + sy + (ey-sy)*p),
		}
	})
	return clip.WithFilter(BuildZoomPan(frames, clipFPS(clip), width, height))
}

func blur(clip media.Clip, fx project.AnimationEffect, _, _ int) media.Clip {
	sigma := fx.FloatParam("sigma", 5.0)
	return clip.WithFilter(fmt.Sprintf("gblur=sigma=%.2f", sigma))
}

// colorGrade is a LUT-free affine grade: eq handles saturation, contrast
// and brightness; temperature shifts the red/blue balance.
func colorGrade(clip media.Clip, fx project.AnimationEffect, _, _ int) media.Clip {
	temp := fx.FloatParam("temperature", 0)
	sat := fx.FloatParam("saturation", 1)
	contrast := fx.FloatParam("contrast", 1)
	brightness := fx.FloatParam("brightness", 1)

	c := clip.WithFilter(fmt.Sprintf("eq=saturation=%.3f:contrast=%.3f:brightness=%.3f",
		sat, contrast, brightness-1))
	if temp != 0 {
		shift := temp * 0.3
		c = c.WithFilter(fmt.Sprintf("colorbalance=rs=%.3f:bs=%.3f", shift, -shift))
	}
	return c
}

func vignette(clip media.Clip, fx project.AnimationEffect, _, _ int) media.Clip {
	strength := fx.FloatParam("strength", 0.5)
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}
	angle := math.Pi / 5 * (0.5 + strength)
	return clip.WithFilter(fmt.Sprintf("vignette=angle=%.4f", angle))
}

// glitch shifts color channels in short bursts at the requested frequency.
func glitch(clip media.Clip, fx project.AnimationEffect, _, _ int) media.Clip {
	intensity := fx.FloatParam("intensity", 0.5)
	frequency := fx.FloatParam("frequency", 1.5)
	if frequency <= 0 {
		frequency = 1.5
	}
	shift := int(math.Round(10 * intensity))
	if shift < 1 {
		shift = 1
	}
	period := 1 / frequency
	burst := period * 0.15
	return clip.WithFilter(fmt.Sprintf(
		"rgbashift=rh=%d:bv=-%d:enable='lt(mod(t,%.3f),%.3f)'", shift, shift, period, burst))
}

// parallax drifts the viewport horizontally at constant zoom.
func parallax(clip media.Clip, fx project.AnimationEffect, width, height int) media.Clip {
	drift := fx.FloatParam("drift", 0.08)
	d := effectDuration(fx, clip)
	frames := []Keyframe{
		{Time: 0, Zoom: 1.1, CX: float64(width) * (0.5 - drift), CY: float64(height) / 2},
		{Time: d, Zoom: 1.1, CX: float64(width) * (0.5 + drift), CY: float64(height) / 2},
	}
	return clip.WithFilter(BuildZoomPan(frames, clipFPS(clip), width, height))
}

// bounce oscillates the frame vertically on a padded canvas.
func bounce(clip media.Clip, fx project.AnimationEffect, width, height int) media.Clip {
	amplitude := fx.FloatParam("amplitude", 0.02) * float64(height)
	speed := fx.FloatParam("speed", 2.0)
	padded := clip.WithFilter(fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", width*2, height*2))
	return padded.WithFilter(fmt.Sprintf(
		"crop=%d:%d:x='(iw-ow)/2':y='(ih-oh)/2-%.1f*abs(sin(t*%.3f*PI))'",
		width, height, amplitude, speed))
}

func rotateStrategy(clip media.Clip, fx project.AnimationEffect, _, _ int) media.Clip {
	angle := fx.FloatParam("angle", 360) * math.Pi / 180
	d := effectDuration(fx, clip)
	progress := fmt.Sprintf("min(t/%.3f,1)", d)
	eased := easingExpr(fx.StringParam("easing", "linear"), progress)
	return clip.WithFilter(fmt.Sprintf("rotate='%.6f*%s':fillcolor=black", angle, eased))
}
