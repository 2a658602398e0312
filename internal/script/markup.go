package script

import "regexp"

// Span is a stretch of narration text with an optional style tag. Spans
// outside any markup carry an empty Style.
type Span struct {
	Text  string
	Style string
}

// Tag names start with a letter or underscore and may contain digits,
// underscores and hyphens. Matching is non-greedy, so a match ends at the
// first closing tag after its opening tag, whatever that tag's name; nested
// tags are not supported.
var markupPattern = regexp.MustCompile(`(?s)<([A-Za-z_][A-Za-z0-9_-]*)>(.*?)</([A-Za-z_][A-Za-z0-9_-]*)>`)

// ParseMarkup splits text into styled spans. A <tag>…</tag> pair whose
// opening and closing names differ is treated as plain text.
func ParseMarkup(text string) []Span {
	var spans []Span
	last := 0

	for _, m := range markupPattern.FindAllStringSubmatchIndex(text, -1) {
		opening := text[m[2]:m[3]]
		closing := text[m[6]:m[7]]
		if opening != closing {
			continue
		}
		if m[0] > last {
			spans = append(spans, Span{Text: text[last:m[0]]})
		}
		if inner := text[m[4]:m[5]]; inner != "" {
			spans = append(spans, Span{Text: inner, Style: opening})
		}
		last = m[1]
	}

	if last < len(text) {
		spans = append(spans, Span{Text: text[last:]})
	}
	if spans == nil && text != "" {
		spans = []Span{{Text: text}}
	}
	return spans
}

// StripMarkup returns the text with all markup removed; this is the string
// fed to TTS and written to subtitle sidecars.
func StripMarkup(text string) string {
	spans := ParseMarkup(text)
	if len(spans) == 1 && spans[0].Style == "" {
		return spans[0].Text
	}
	var out []byte
	for _, s := range spans {
		out = append(out, s.Text...)
	}
	return string(out)
}

// MarkupTags returns the set of style tags referenced by the text.
func MarkupTags(text string) []string {
	var tags []string
	seen := map[string]bool{}
	for _, s := range ParseMarkup(text) {
		if s.Style != "" && !seen[s.Style] {
			seen[s.Style] = true
			tags = append(tags, s.Style)
		}
	}
	return tags
}
