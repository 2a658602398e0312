// Package analyzer finds the visually dense region of a still image. The
// kenBurns auto-pan mode uses it to aim the camera drift at the subject
// instead of the geometric center.
package analyzer

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Region is a detected area of interest with a confidence score.
type Region struct {
	Rect       image.Rectangle
	Confidence float64
}

// Focus is the pan target of an image, as fractional offsets of the frame
// center in [-0.5, 0.5].
type Focus struct {
	X float64
	Y float64
}

// FindFocus loads an image and returns the center of its strongest detail
// region. Images with no detectable structure focus on the center.
func FindFocus(path string) (Focus, error) {
	f, err := os.Open(path)
	if err != nil {
		return Focus{}, fmt.Errorf("cannot open image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Focus{}, fmt.Errorf("cannot decode image %s: %w", path, err)
	}
	return FocusOf(img), nil
}

// FocusOf picks the focus point of an already-decoded image.
func FocusOf(img image.Image) Focus {
	regions := DetectRegions(img)
	if len(regions) == 0 {
		return Focus{}
	}

	// Weight area by confidence and take the strongest region.
	best := regions[0]
	bestScore := score(best)
	for _, r := range regions[1:] {
		if s := score(r); s > bestScore {
			best, bestScore = r, s
		}
	}

	bounds := img.Bounds()
	cx := float64(best.Rect.Min.X+best.Rect.Dx()/2-bounds.Min.X) / float64(bounds.Dx())
	cy := float64(best.Rect.Min.Y+best.Rect.Dy()/2-bounds.Min.Y) / float64(bounds.Dy())

	return Focus{X: clampOffset(cx - 0.5), Y: clampOffset(cy - 0.5)}
}

func score(r Region) float64 {
	return float64(r.Rect.Dx()*r.Rect.Dy()) * r.Confidence
}

// clampOffset keeps the pan target inside the range a 1.15x zoom can reach
// without exposing the frame edge.
func clampOffset(v float64) float64 {
	const limit = 0.15
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
