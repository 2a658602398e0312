package effects

import (
	"fmt"
	"strings"
)

// Keyframe is a camera state at a point in time: zoom level and the source
// center the viewport tracks.
type Keyframe struct {
	Time float64
	Zoom float64
	CX   float64
	CY   float64
}

// BuildZoomPan compiles keyframes into a zoompan filter with piecewise
// linear interpolation between frames. Non-linear easings are approximated
// by sampling the easing into intermediate keyframes before calling this.
func BuildZoomPan(keyframes []Keyframe, fps, width, height int) string {
	if len(keyframes) == 0 {
		return ""
	}
	zoomExpr := buildPiecewise(keyframes, fps, func(kf Keyframe) float64 { return kf.Zoom })
	xExpr := buildPiecewise(keyframes, fps, func(kf Keyframe) float64 { return kf.CX - float64(width)/2 })
	yExpr := buildPiecewise(keyframes, fps, func(kf Keyframe) float64 { return kf.CY - float64(height)/2 })

	return fmt.Sprintf("zoompan=z='%s':x='%s':y='%s':d=1:s=%dx%d:fps=%d",
		zoomExpr, xExpr, yExpr, width, height, fps)
}

// buildPiecewise emits a nested if() expression over the output frame
// counter `on`, linearly interpolating the sampled value between
// consecutive keyframes.
func buildPiecewise(keyframes []Keyframe, fps int, value func(Keyframe) float64) string {
	if len(keyframes) == 1 {
		return fmt.Sprintf("%.6f", value(keyframes[0]))
	}

	var b strings.Builder
	open := 0
	for i := 0; i < len(keyframes)-1; i++ {
		startFrame := int(keyframes[i].Time * float64(fps))
		endFrame := int(keyframes[i+1].Time * float64(fps))
		v0 := value(keyframes[i])
		v1 := value(keyframes[i+1])

		if endFrame <= startFrame {
			continue
		}
		fmt.Fprintf(&b, "if(lte(on,%d),%.6f+(on-%d)/%d*(%.6f-%.6f),",
			endFrame, v0, startFrame, endFrame-startFrame, v1, v0)
		open++
	}
	fmt.Fprintf(&b, "%.6f", value(keyframes[len(keyframes)-1]))
	b.WriteString(strings.Repeat(")", open))
	return b.String()
}

// sampleEased expands a start/end pair into keyframes that trace the easing
// curve, so the piecewise-linear zoompan closely follows the eased motion.
func sampleEased(duration float64, steps int, easing EasingFunc, at func(p float64) Keyframe) []Keyframe {
	if steps < 2 {
		steps = 2
	}
	frames := make([]Keyframe, 0, steps+1)
	for i := 0; i <= steps; i++ {
		linear := float64(i) / float64(steps)
		kf := at(easing(linear))
		kf.Time = linear * duration
		frames = append(frames, kf)
	}
	return frames
}
