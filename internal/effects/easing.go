// Package effects holds the effect registries: named strategies that
// compile AnimationEffect parameters into ffmpeg filter expressions, and
// named effect stacks referenced by scenes.
package effects

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// EasingFunc maps linear progress [0,1] to eased progress [0,1].
type EasingFunc func(t float64) float64

// Linear is the identity easing.
func Linear(t float64) float64 { return t }

// EaseIn is the cubic ease-in.
func EaseIn(t float64) float64 { return t * t * t }

// EaseOut is the cubic ease-out.
func EaseOut(t float64) float64 { return 1 - math.Pow(1-t, 3) }

// EaseInOut is the cubic ease-in-out used across the module.
func EaseInOut(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// Easing resolves an easing by name. Unknown names fall back to linear
// with a warning.
func Easing(name string) EasingFunc {
	switch name {
	case "", "linear":
		return Linear
	case "easeIn":
		return EaseIn
	case "easeOut":
		return EaseOut
	case "easeInOut":
		return EaseInOut
	default:
		log.Warn().Str("easing", name).Msg("unknown easing, falling back to linear")
		return Linear
	}
}

// easingExpr returns the easing curve as an ffmpeg expression over the
// progress expression p (itself evaluating to [0,1]).
func easingExpr(name, p string) string {
	switch name {
	case "easeIn":
		return fmt.Sprintf("pow(%s,3)", p)
	case "easeOut":
		return fmt.Sprintf("(1-pow(1-%s,3))", p)
	case "easeInOut":
		return fmt.Sprintf("if(lt(%s,0.5),4*pow(%s,3),1-pow(-2*%s+2,3)/2)", p, p, p)
	default:
		return p
	}
}
