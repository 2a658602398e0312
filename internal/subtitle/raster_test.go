package subtitle

import (
	"image/color"
	"strings"
	"testing"

	"github.com/kazuvin/teto/internal/script"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"white", color.RGBA{255, 255, 255, 255}},
		{"black@0.5", color.RGBA{0, 0, 0, 127}},
		{"#ff8800", color.RGBA{255, 136, 0, 255}},
		{"#ff8800@0.25", color.RGBA{255, 136, 0, 63}},
		{"bogus", color.RGBA{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		if got := ParseColor(tt.in); got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func baseStyle() script.SubtitleStyleConfig {
	return script.SubtitleStyleConfig{
		FontSize:   script.Size{Pixels: 32},
		FontColor:  "white",
		FontWeight: "normal",
		Position:   "bottom",
		Appearance: "plain",
		BGColor:    "black@0.5",
	}
}

func TestRenderProducesOpaqueGlyphs(t *testing.T) {
	r, err := NewRenderer(1280, 720)
	if err != nil {
		t.Fatal(err)
	}
	rendered, err := r.Render("Hello world", baseStyle(), nil)
	if err != nil {
		t.Fatal(err)
	}

	bounds := rendered.Image.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		t.Fatal("empty raster")
	}
	opaque := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := rendered.Image.At(x, y).RGBA(); a > 0 {
				opaque++
			}
		}
	}
	if opaque == 0 {
		t.Error("no pixels drawn")
	}

	// Bottom-positioned block sits above the bottom margin and inside the
	// frame.
	if rendered.Y+bounds.Dy() > 720 || rendered.Y < 0 {
		t.Errorf("block position out of frame: y=%d h=%d", rendered.Y, bounds.Dy())
	}
	if rendered.X < 0 || rendered.X+bounds.Dx() > 1280 {
		t.Errorf("block not horizontally inside frame: x=%d w=%d", rendered.X, bounds.Dx())
	}
}

func TestRenderSpanStyleOverridesColor(t *testing.T) {
	r, err := NewRenderer(1280, 720)
	if err != nil {
		t.Fatal(err)
	}
	styles := map[string]script.PartialStyle{"em": {FontColor: "red"}}
	rendered, err := r.Render("a<em>b</em>c", baseStyle(), styles)
	if err != nil {
		t.Fatal(err)
	}

	// Some pixels must be red-dominant (the <em> span), some white (the
	// plain spans).
	red, white := false, false
	bounds := rendered.Image.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y && !(red && white); y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := rendered.Image.RGBAAt(x, y)
			if c.A < 200 {
				continue
			}
			if c.R > 180 && c.G < 100 && c.B < 100 {
				red = true
			}
			if c.R > 200 && c.G > 200 && c.B > 200 {
				white = true
			}
		}
	}
	if !red || !white {
		t.Errorf("expected both red and white glyph pixels, red=%v white=%v", red, white)
	}
}

func TestLayoutWrapsLatinAtSpaces(t *testing.T) {
	r, err := NewRenderer(400, 720)
	if err != nil {
		t.Fatal(err)
	}
	base := Resolve(baseStyle(), 720)
	spans := script.ParseMarkup("alpha beta gamma delta epsilon zeta eta theta")

	lines := r.Layout(spans, base, nil, 200, 720)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping, got %d line(s)", len(lines))
	}

	// Every line must consist of complete words: breaks happen only at
	// whitespace.
	words := map[string]bool{
		"alpha": true, "beta": true, "gamma": true, "delta": true,
		"epsilon": true, "zeta": true, "eta": true, "theta": true,
	}
	for i, line := range lines {
		var text string
		for _, run := range line.Runs {
			text += run.Text
		}
		for _, w := range strings.Fields(text) {
			if !words[w] {
				t.Errorf("line %d holds a broken word %q (line: %q)", i, w, text)
			}
		}
	}
}

func TestLayoutBreaksCJKAnywhere(t *testing.T) {
	r, err := NewRenderer(400, 720)
	if err != nil {
		t.Fatal(err)
	}
	base := Resolve(baseStyle(), 720)
	spans := script.ParseMarkup("これは長い日本語の字幕テキストです")

	lines := r.Layout(spans, base, nil, 150, 720)
	if len(lines) < 2 {
		t.Fatalf("CJK text should wrap without spaces, got %d line(s)", len(lines))
	}
}

func TestPositionClamp(t *testing.T) {
	r, err := NewRenderer(640, 360)
	if err != nil {
		t.Fatal(err)
	}
	// A block taller than the bottom band must be pinned inside the frame.
	long := "one two three four five six seven eight nine ten eleven twelve " +
		"thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty"
	rendered, err := r.Render(long, baseStyle(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if rendered.Y < 0 {
		t.Errorf("clamped Y must stay >= 0, got %d", rendered.Y)
	}
	if rendered.Y+rendered.Image.Bounds().Dy() > 360 {
		t.Errorf("block extends past frame bottom")
	}
}
