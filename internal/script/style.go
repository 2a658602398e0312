package script

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Size is a pixel count or a named responsive size (xs sm base lg xl 2xl)
// resolved against the output height, so one script renders correctly at
// both 16:9 and 9:16.
type Size struct {
	Pixels int
	Name   string
}

var sizeScale = map[string]float64{
	"xs":   0.6,
	"sm":   0.8,
	"base": 1.0,
	"lg":   1.25,
	"xl":   1.5,
	"2xl":  2.0,
}

// Zero reports whether the size was left unset.
func (s Size) Zero() bool { return s.Pixels == 0 && s.Name == "" }

// Resolve returns the pixel value for the given output height. Named sizes
// scale from a base of height/18.
func (s Size) Resolve(height int) int {
	if s.Name == "" {
		return s.Pixels
	}
	base := float64(height) / 18.0
	return int(math.Round(base * sizeScale[s.Name]))
}

// ResolveStroke is Resolve with a smaller base (height/270), used for
// stroke widths.
func (s Size) ResolveStroke(height int) int {
	if s.Name == "" {
		return s.Pixels
	}
	base := float64(height) / 270.0
	return int(math.Round(base * sizeScale[s.Name]))
}

func (s *Size) setFromAny(v any) error {
	switch x := v.(type) {
	case float64:
		s.Pixels = int(x)
	case int:
		s.Pixels = x
	case string:
		if _, ok := sizeScale[x]; !ok {
			return fmt.Errorf("unknown size name %q", x)
		}
		s.Name = x
	default:
		return fmt.Errorf("size must be a number or a size name")
	}
	return nil
}

func (s *Size) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return s.setFromAny(v)
}

func (s Size) MarshalJSON() ([]byte, error) {
	if s.Name != "" {
		return json.Marshal(s.Name)
	}
	return json.Marshal(s.Pixels)
}

func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return s.setFromAny(v)
}

func (s Size) MarshalYAML() (any, error) {
	if s.Name != "" {
		return s.Name, nil
	}
	return s.Pixels, nil
}

// SubtitleStyleConfig is the layer-wide subtitle style.
type SubtitleStyleConfig struct {
	FontFamily string `json:"font_family,omitempty" yaml:"font_family,omitempty"`
	FontSize   Size   `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	FontColor  string `json:"font_color,omitempty" yaml:"font_color,omitempty"`
	FontWeight string `json:"font_weight,omitempty" yaml:"font_weight,omitempty"`

	StrokeWidth      Size   `json:"stroke_width,omitempty" yaml:"stroke_width,omitempty"`
	StrokeColor      string `json:"stroke_color,omitempty" yaml:"stroke_color,omitempty"`
	OuterStrokeWidth Size   `json:"outer_stroke_width,omitempty" yaml:"outer_stroke_width,omitempty"`
	OuterStrokeColor string `json:"outer_stroke_color,omitempty" yaml:"outer_stroke_color,omitempty"`

	BGColor    string `json:"bg_color,omitempty" yaml:"bg_color,omitempty"`
	Position   string `json:"position,omitempty" yaml:"position,omitempty"`
	Appearance string `json:"appearance,omitempty" yaml:"appearance,omitempty"`

	MarginHorizontal int `json:"margin_horizontal,omitempty" yaml:"margin_horizontal,omitempty"`
}

func (c *SubtitleStyleConfig) applyDefaults() {
	if c.FontSize.Zero() {
		c.FontSize = Size{Name: "base"}
	}
	if c.FontColor == "" {
		c.FontColor = "white"
	}
	if c.FontWeight == "" {
		c.FontWeight = "normal"
	}
	if c.StrokeColor == "" {
		c.StrokeColor = "black"
	}
	if c.OuterStrokeColor == "" {
		c.OuterStrokeColor = "white"
	}
	if c.BGColor == "" {
		c.BGColor = "black@0.5"
	}
	if c.Position == "" {
		c.Position = "bottom"
	}
	if c.Appearance == "" {
		c.Appearance = "background"
	}
}

// PartialStyle overrides a subset of the layer style inside a markup span.
type PartialStyle struct {
	FontColor  string `json:"font_color,omitempty" yaml:"font_color,omitempty"`
	FontWeight string `json:"font_weight,omitempty" yaml:"font_weight,omitempty"`
	FontSize   *Size  `json:"font_size,omitempty" yaml:"font_size,omitempty"`
}
