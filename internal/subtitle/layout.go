package subtitle

import (
	"strings"
	"unicode"

	"golang.org/x/image/font"

	"github.com/kazuvin/teto/internal/script"
)

// Run is a measured stretch of same-styled text inside a line.
type Run struct {
	Text  string
	Style SpanStyle
	Width int
}

// Line is one wrapped display line.
type Line struct {
	Runs   []Run
	Width  int
	Height int
}

// wrapUnit is the smallest breakable piece: a Latin word (with trailing
// spaces) or a single CJK rune.
type wrapUnit struct {
	text  string
	style SpanStyle
}

func isCJK(r rune) bool {
	return unicode.In(r,
		unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// splitUnits breaks spans into wrap units: whitespace bounds Latin words,
// and a break is permitted between any two CJK codepoints.
func splitUnits(spans []script.Span, base ResolvedStyle, styles map[string]script.PartialStyle, frameHeight int) []wrapUnit {
	var units []wrapUnit
	for _, span := range spans {
		style := SpanStyleFor(base, styles, span.Style, frameHeight)
		var word strings.Builder
		flush := func() {
			if word.Len() > 0 {
				units = append(units, wrapUnit{text: word.String(), style: style})
				word.Reset()
			}
		}
		for _, r := range span.Text {
			switch {
			case r == '\n':
				flush()
				units = append(units, wrapUnit{text: "\n", style: style})
			case isCJK(r):
				flush()
				units = append(units, wrapUnit{text: string(r), style: style})
			case unicode.IsSpace(r):
				word.WriteRune(r)
				flush()
			default:
				word.WriteRune(r)
			}
		}
		flush()
	}
	return units
}

// Layout wraps the spans into lines no wider than maxWidth, measuring with
// the renderer's font faces. A unit wider than maxWidth gets a line of its
// own rather than being split mid-word.
func (r *Renderer) Layout(spans []script.Span, base ResolvedStyle, styles map[string]script.PartialStyle, maxWidth, frameHeight int) []Line {
	units := splitUnits(spans, base, styles, frameHeight)

	var lines []Line
	var current []wrapUnit
	currentWidth := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		lines = append(lines, r.buildLine(current))
		current = nil
		currentWidth = 0
	}

	for _, u := range units {
		if u.text == "\n" {
			flush()
			continue
		}
		w := r.measure(u.text, u.style)
		if currentWidth > 0 && currentWidth+w > maxWidth {
			flush()
			// Drop leading whitespace carried over the break.
			if strings.TrimSpace(u.text) == "" {
				continue
			}
		}
		current = append(current, u)
		currentWidth += w
	}
	flush()
	return lines
}

// buildLine merges adjacent units with identical styles into runs and
// records line metrics.
func (r *Renderer) buildLine(units []wrapUnit) Line {
	var line Line
	for _, u := range units {
		if n := len(line.Runs); n > 0 && line.Runs[n-1].Style == u.style {
			line.Runs[n-1].Text += u.text
			continue
		}
		line.Runs = append(line.Runs, Run{Text: u.text, Style: u.style})
	}
	for i := range line.Runs {
		run := &line.Runs[i]
		run.Width = r.measure(run.Text, run.Style)
		line.Width += run.Width
		if h := r.lineHeight(run.Style); h > line.Height {
			line.Height = h
		}
	}
	return line
}

func (r *Renderer) measure(text string, style SpanStyle) int {
	face := r.face(style.FontWeight, style.FontSize)
	return font.MeasureString(face, text).Ceil()
}

func (r *Renderer) lineHeight(style SpanStyle) int {
	face := r.face(style.FontWeight, style.FontSize)
	m := face.Metrics()
	return (m.Ascent + m.Descent).Ceil()
}
