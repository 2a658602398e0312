// Package subtitle turns styled caption text into rasterized overlays and
// sidecar files. Inline markup selects partial styles per span; the layer
// style supplies everything else.
package subtitle

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/kazuvin/teto/internal/script"
)

// namedColors covers the color words scripts actually use; anything else
// must be #RRGGBB.
var namedColors = map[string]color.RGBA{
	"white":   {255, 255, 255, 255},
	"black":   {0, 0, 0, 255},
	"red":     {220, 40, 40, 255},
	"green":   {40, 180, 80, 255},
	"blue":    {50, 90, 220, 255},
	"yellow":  {250, 210, 50, 255},
	"orange":  {250, 150, 40, 255},
	"purple":  {160, 80, 200, 255},
	"pink":    {240, 120, 170, 255},
	"gray":    {128, 128, 128, 255},
	"grey":    {128, 128, 128, 255},
	"cyan":    {60, 200, 220, 255},
	"magenta": {220, 60, 200, 255},
}

// ParseColor parses a color name or #RRGGBB, with an optional @opacity
// suffix ("black@0.5"). Unknown colors come back white so a typo degrades
// visibly instead of failing a render.
func ParseColor(s string) color.RGBA {
	name := s
	alpha := 1.0
	if i := strings.LastIndex(s, "@"); i >= 0 {
		name = s[:i]
		if v, err := strconv.ParseFloat(s[i+1:], 64); err == nil && v >= 0 && v <= 1 {
			alpha = v
		}
	}

	c, ok := namedColors[strings.ToLower(name)]
	if !ok {
		c = parseHexColor(name)
	}
	c.A = uint8(alpha * 255)
	return c
}

func parseHexColor(s string) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return namedColors["white"]
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return namedColors["white"]
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// ResolvedStyle is a layer style with every size resolved against the
// output height and every color parsed.
type ResolvedStyle struct {
	FontSize   int
	FontColor  color.RGBA
	FontWeight string

	StrokeWidth      int
	StrokeColor      color.RGBA
	OuterStrokeWidth int
	OuterStrokeColor color.RGBA

	BGColor    color.RGBA
	Position   string
	Appearance string

	MarginHorizontal int
}

// Resolve flattens a layer style for a given output height.
func Resolve(cfg script.SubtitleStyleConfig, frameHeight int) ResolvedStyle {
	return ResolvedStyle{
		FontSize:         cfg.FontSize.Resolve(frameHeight),
		FontColor:        ParseColor(cfg.FontColor),
		FontWeight:       cfg.FontWeight,
		StrokeWidth:      cfg.StrokeWidth.ResolveStroke(frameHeight),
		StrokeColor:      ParseColor(cfg.StrokeColor),
		OuterStrokeWidth: cfg.OuterStrokeWidth.ResolveStroke(frameHeight),
		OuterStrokeColor: ParseColor(cfg.OuterStrokeColor),
		BGColor:          ParseColor(cfg.BGColor),
		Position:         cfg.Position,
		Appearance:       cfg.Appearance,
		MarginHorizontal: cfg.MarginHorizontal,
	}
}

// SpanStyle is the per-span subset after merging a partial style onto the
// layer style. Stroke and background stay layer-global.
type SpanStyle struct {
	FontSize   int
	FontColor  color.RGBA
	FontWeight string
}

// SpanStyleFor merges the named partial style (if any) onto the base.
func SpanStyleFor(base ResolvedStyle, styles map[string]script.PartialStyle, name string, frameHeight int) SpanStyle {
	out := SpanStyle{FontSize: base.FontSize, FontColor: base.FontColor, FontWeight: base.FontWeight}
	if name == "" {
		return out
	}
	p, ok := styles[name]
	if !ok {
		return out
	}
	if p.FontColor != "" {
		out.FontColor = ParseColor(p.FontColor)
	}
	if p.FontWeight != "" {
		out.FontWeight = p.FontWeight
	}
	if p.FontSize != nil {
		out.FontSize = p.FontSize.Resolve(frameHeight)
	}
	return out
}

// StyleKey identifies a resolved style for grouping consecutive segments
// into one layer.
func StyleKey(cfg script.SubtitleStyleConfig) string {
	return fmt.Sprintf("%v|%s|%s|%v|%s|%v|%s|%s|%s|%s|%d",
		cfg.FontSize, cfg.FontColor, cfg.FontWeight,
		cfg.StrokeWidth, cfg.StrokeColor,
		cfg.OuterStrokeWidth, cfg.OuterStrokeColor,
		cfg.BGColor, cfg.Position, cfg.Appearance, cfg.MarginHorizontal)
}
