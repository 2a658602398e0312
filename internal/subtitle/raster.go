package subtitle

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/kazuvin/teto/internal/script"
)

const (
	lineSpacing = 1.25
	bgPaddingX  = 24
	bgPaddingY  = 12
	bgRadius    = 12
	marginEdge  = 48
)

// Renderer rasterizes subtitle blocks for one output resolution. It caches
// font faces per (weight, size) and is not safe for concurrent use; each
// pipeline run owns its own renderer.
type Renderer struct {
	frameWidth  int
	frameHeight int

	regular *sfnt.Font
	bold    *sfnt.Font
	faces   map[faceKey]font.Face
}

type faceKey struct {
	weight string
	size   int
}

// NewRenderer creates a renderer for the given frame size using the
// embedded Go faces.
func NewRenderer(frameWidth, frameHeight int) (*Renderer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("cannot parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("cannot parse bold font: %w", err)
	}
	return &Renderer{
		frameWidth:  frameWidth,
		frameHeight: frameHeight,
		regular:     regular,
		bold:        bold,
		faces:       map[faceKey]font.Face{},
	}, nil
}

func (r *Renderer) face(weight string, size int) font.Face {
	if size <= 0 {
		size = 12
	}
	key := faceKey{weight: weight, size: size}
	if f, ok := r.faces[key]; ok {
		return f
	}
	src := r.regular
	if weight == "bold" {
		src = r.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size: float64(size), DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		// The embedded fonts parse at construction; face creation only
		// fails on absurd sizes. Fall back to a tiny face.
		face, _ = opentype.NewFace(src, &opentype.FaceOptions{Size: 12, DPI: 72})
	}
	r.faces[key] = face
	return face
}

// Rendered is a rasterized subtitle block and the frame position it
// composites at. Image comes from the package pool; callers done with it
// may hand it back through PutImage.
type Rendered struct {
	Image *image.RGBA
	X     int
	Y     int
}

// Render rasterizes one subtitle item. The block is laid out against the
// frame width minus margins, drawn with outer stroke, inner stroke, then
// per-span glyphs, and positioned per the layer style.
func (r *Renderer) Render(text string, cfg script.SubtitleStyleConfig, styles map[string]script.PartialStyle) (*Rendered, error) {
	base := Resolve(cfg, r.frameHeight)
	spans := script.ParseMarkup(text)

	maxWidth := r.frameWidth - 2*(marginEdge+base.MarginHorizontal)
	if maxWidth < r.frameWidth/4 {
		maxWidth = r.frameWidth / 4
	}
	lines := r.Layout(spans, base, styles, maxWidth, r.frameHeight)
	if len(lines) == 0 {
		return nil, fmt.Errorf("subtitle text produced no lines")
	}

	textWidth, textHeight := 0, 0
	for _, line := range lines {
		if line.Width > textWidth {
			textWidth = line.Width
		}
		textHeight += int(float64(line.Height) * lineSpacing)
	}

	pad := base.OuterStrokeWidth + base.StrokeWidth + 4
	blockWidth := textWidth + 2*pad
	blockHeight := textHeight + 2*pad
	withBG := base.Appearance == "background"
	if withBG {
		blockWidth += 2 * bgPaddingX
		blockHeight += 2 * bgPaddingY
	}

	img := GetImage(image.Rect(0, 0, blockWidth, blockHeight))
	if withBG {
		drawRoundedRect(img, img.Bounds(), bgRadius, base.BGColor)
	}

	originX := pad
	originY := pad
	if withBG {
		originX += bgPaddingX
		originY += bgPaddingY
	}

	y := originY
	for _, line := range lines {
		x := originX + (textWidth-line.Width)/2
		baseline := y + line.Height
		r.drawLine(img, line, base, x, baseline)
		y += int(float64(line.Height) * lineSpacing)
	}

	pos := r.position(blockWidth, blockHeight, base)
	return &Rendered{Image: img, X: pos.X, Y: pos.Y}, nil
}

// drawLine draws one line: shadow (if configured), outer stroke, inner
// stroke, then the glyphs run by run.
func (r *Renderer) drawLine(dst *image.RGBA, line Line, base ResolvedStyle, x, baseline int) {
	switch base.Appearance {
	case "shadow":
		r.drawLinePass(dst, line, x+3, baseline+3, color.RGBA{0, 0, 0, 160}, 0)
	case "drop-shadow":
		// A cluster of translucent offsets approximates a blurred shadow.
		for _, off := range [][2]int{{2, 2}, {3, 3}, {4, 4}, {2, 4}, {4, 2}} {
			r.drawLinePass(dst, line, x+off[0], baseline+off[1], color.RGBA{0, 0, 0, 70}, 0)
		}
	}
	if base.OuterStrokeWidth > 0 {
		r.drawLinePass(dst, line, x, baseline, base.OuterStrokeColor, base.StrokeWidth+base.OuterStrokeWidth)
	}
	if base.StrokeWidth > 0 {
		r.drawLinePass(dst, line, x, baseline, base.StrokeColor, base.StrokeWidth)
	}
	r.drawLinePass(dst, line, x, baseline, color.RGBA{}, -1)
}

// drawLinePass draws the whole line once. A positive radius draws the text
// silhouette in the override color offset in rings (the stroke); radius -1
// draws each run in its own color.
func (r *Renderer) drawLinePass(dst *image.RGBA, line Line, x, baseline int, override color.RGBA, radius int) {
	if radius > 0 {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx*dx+dy*dy > radius*radius || (dx == 0 && dy == 0) {
					continue
				}
				r.drawRuns(dst, line, x+dx, baseline+dy, &override)
			}
		}
		return
	}
	if radius == 0 {
		r.drawRuns(dst, line, x, baseline, &override)
		return
	}
	r.drawRuns(dst, line, x, baseline, nil)
}

func (r *Renderer) drawRuns(dst *image.RGBA, line Line, x, baseline int, override *color.RGBA) {
	pen := x
	for _, run := range line.Runs {
		col := run.Style.FontColor
		if override != nil {
			col = *override
		}
		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(col),
			Face: r.face(run.Style.FontWeight, run.Style.FontSize),
			Dot:  fixed.P(pen, baseline),
		}
		d.DrawString(run.Text)
		pen += run.Width
	}
}

// position places the block horizontally centered and vertically per the
// style, clamped so the block never leaves the frame even when wrapping
// produced more lines than the margin band holds.
func (r *Renderer) position(blockWidth, blockHeight int, base ResolvedStyle) image.Point {
	x := (r.frameWidth - blockWidth) / 2
	var y int
	switch base.Position {
	case "top":
		y = marginEdge
	case "center":
		y = (r.frameHeight - blockHeight) / 2
	default: // bottom
		y = r.frameHeight - blockHeight - marginEdge
	}
	if y+blockHeight > r.frameHeight-marginEdge {
		y = r.frameHeight - marginEdge - blockHeight
	}
	if y < 0 {
		y = 0
	}
	return image.Point{X: x, Y: y}
}

// drawRoundedRect fills the rectangle with rounded corners of the given
// radius.
func drawRoundedRect(dst *image.RGBA, rect image.Rectangle, radius int, fill color.RGBA) {
	src := image.NewUniform(fill)
	draw.Draw(dst, rect, src, image.Point{}, draw.Src)

	// Carve the corners back out.
	transparent := color.RGBA{}
	corners := [][2]int{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			inCornerBand := (x < rect.Min.X+radius || x >= rect.Max.X-radius) &&
				(y < rect.Min.Y+radius || y >= rect.Max.Y-radius)
			if !inCornerBand {
				continue
			}
			keep := false
			for _, c := range corners {
				dx, dy := x-c[0], y-c[1]
				if dx*dx+dy*dy <= radius*radius {
					keep = true
					break
				}
			}
			if !keep {
				dst.SetRGBA(x, y, transparent)
			}
		}
	}
}
