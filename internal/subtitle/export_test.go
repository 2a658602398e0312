package subtitle

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/kazuvin/teto/internal/project"
)

func TestFormatTimes(t *testing.T) {
	tests := []struct {
		seconds float64
		srt     string
		vtt     string
	}{
		{0, "00:00:00,000", "00:00:00.000"},
		{1.5, "00:00:01,500", "00:00:01.500"},
		{61.25, "00:01:01,250", "00:01:01.250"},
		{3661.007, "01:01:01,007", "01:01:01.007"},
	}
	for _, tt := range tests {
		if got := FormatSRTTime(tt.seconds); got != tt.srt {
			t.Errorf("FormatSRTTime(%v) = %s, want %s", tt.seconds, got, tt.srt)
		}
		if got := FormatVTTTime(tt.seconds); got != tt.vtt {
			t.Errorf("FormatVTTTime(%v) = %s, want %s", tt.seconds, got, tt.vtt)
		}
	}
}

func sampleLayers() []project.SubtitleLayer {
	return []project.SubtitleLayer{{
		Items: []project.SubtitleItem{
			{Text: "a<em>b</em>c", StartTime: 0, EndTime: 1.2},
			{Text: "second line", StartTime: 2, EndTime: 3.5},
		},
	}}
}

var timeRangeRe = regexp.MustCompile(`^(\d\d):(\d\d):(\d\d)[,.](\d{3}) --> (\d\d):(\d\d):(\d\d)[,.](\d{3})$`)

// parseSidecar recovers (start, end, text) triples from an SRT or VTT body.
func parseSidecar(t *testing.T, body string) [][3]string {
	t.Helper()
	var out [][3]string
	lines := strings.Split(body, "\n")
	for i := 0; i < len(lines); i++ {
		m := timeRangeRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		toSec := func(h, mi, s, ms string) float64 {
			hh, _ := strconv.Atoi(h)
			mm, _ := strconv.Atoi(mi)
			ss, _ := strconv.Atoi(s)
			mss, _ := strconv.Atoi(ms)
			return float64(hh*3600+mm*60+ss) + float64(mss)/1000
		}
		start := strconv.FormatFloat(toSec(m[1], m[2], m[3], m[4]), 'f', 3, 64)
		end := strconv.FormatFloat(toSec(m[5], m[6], m[7], m[8]), 'f', 3, 64)
		out = append(out, [3]string{start, end, lines[i+1]})
	}
	return out
}

func TestSRTRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.srt")
	if err := WriteSRT(path, sampleLayers()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	body := string(data)

	if !strings.HasPrefix(body, "1\n00:00:00,000 --> 00:00:01,200\n") {
		t.Errorf("unexpected SRT head:\n%s", body)
	}
	got := parseSidecar(t, body)
	want := [][3]string{
		{"0.000", "1.200", "abc"},
		{"2.000", "3.500", "second line"},
	}
	if len(got) != len(want) {
		t.Fatalf("parsed %d cues, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cue %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestVTTRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.vtt")
	if err := WriteVTT(path, sampleLayers()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	body := string(data)

	if !strings.HasPrefix(body, "WEBVTT\n\n") {
		t.Errorf("VTT must start with WEBVTT header:\n%s", body)
	}
	if strings.Contains(body, ",") {
		t.Error("VTT times must use '.' as decimal separator")
	}
	got := parseSidecar(t, body)
	if len(got) != 2 || got[0][2] != "abc" {
		t.Errorf("parsed cues = %v", got)
	}
}
