package script

import (
	"strings"
	"testing"
)

func TestParseMarkup(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Span
	}{
		{
			name: "plain text",
			text: "plain text",
			want: []Span{{Text: "plain text"}},
		},
		{
			name: "single tag",
			text: "<em>hello</em>",
			want: []Span{{Text: "hello", Style: "em"}},
		},
		{
			name: "tag between plain stretches",
			text: "a<em>b</em>c",
			want: []Span{{Text: "a"}, {Text: "b", Style: "em"}, {Text: "c"}},
		},
		{
			name: "two tags back to back",
			text: "<A>hello</A><B>world</B>",
			want: []Span{{Text: "hello", Style: "A"}, {Text: "world", Style: "B"}},
		},
		{
			name: "tag then plain tail",
			text: "<emphasis>key:</emphasis> detail",
			want: []Span{{Text: "key:", Style: "emphasis"}, {Text: " detail"}},
		},
		{
			name: "mismatched closing tag stays plain",
			text: "<a>text</b>",
			want: []Span{{Text: "<a>text</b>"}},
		},
		{
			name: "empty text",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMarkup(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("span count = %d, want %d (%v)", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("span %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"a<em>b</em>c", "abc"},
		{"<A>hello</A><B>world</B>", "helloworld"},
		{"no markup here", "no markup here"},
		{"<x>中身</x>と外", "中身と外"},
	}
	for _, tt := range tests {
		if got := StripMarkup(tt.text); got != tt.want {
			t.Errorf("StripMarkup(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

// Stripping is idempotent and equals the concatenation of parsed span
// texts, for any input.
func TestStripMarkupProperties(t *testing.T) {
	inputs := []string{
		"a<em>b</em>c",
		"plain",
		"<A>x</A><B>y</B>tail",
		"nested <a>one <b>two</b></a>",
		"字幕<strong>強調</strong>テキスト",
	}
	for _, text := range inputs {
		stripped := StripMarkup(text)
		if again := StripMarkup(stripped); again != stripped {
			t.Errorf("strip not idempotent for %q: %q -> %q", text, stripped, again)
		}
		var parts []string
		for _, span := range ParseMarkup(text) {
			parts = append(parts, span.Text)
		}
		if joined := strings.Join(parts, ""); joined != stripped {
			t.Errorf("span concat %q != stripped %q for %q", joined, stripped, text)
		}
	}
}

func TestMarkupTags(t *testing.T) {
	tags := MarkupTags("<em>a</em> plain <hi>b</hi> <em>c</em>")
	if len(tags) != 2 || tags[0] != "em" || tags[1] != "hi" {
		t.Errorf("tags = %v, want [em hi]", tags)
	}
}
