package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/kazuvin/teto/internal/project"
	"github.com/kazuvin/teto/internal/script"
)

// FormatSRTTime renders seconds as HH:MM:SS,mmm.
func FormatSRTTime(seconds float64) string {
	return formatClock(seconds, ',')
}

// FormatVTTTime renders seconds as HH:MM:SS.mmm.
func FormatVTTTime(seconds float64) string {
	return formatClock(seconds, '.')
}

func formatClock(seconds float64, sep byte) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int(math.Round(seconds * 1000))
	h := millis / 3600000
	m := millis % 3600000 / 60000
	s := millis % 60000 / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}

// WriteSRT writes the subtitle layers as an SRT sidecar. Markup is
// stripped; items appear in time order with 1-based indexes.
func WriteSRT(path string, layers []project.SubtitleLayer) error {
	return writeSidecar(path, layers, false)
}

// WriteVTT writes the subtitle layers as a WebVTT sidecar.
func WriteVTT(path string, layers []project.SubtitleLayer) error {
	return writeSidecar(path, layers, true)
}

func writeSidecar(path string, layers []project.SubtitleLayer, vtt bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create subtitle file: %w", err)
	}
	w := bufio.NewWriter(f)

	if err := exportTo(w, layers, vtt); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func exportTo(w io.Writer, layers []project.SubtitleLayer, vtt bool) error {
	if vtt {
		if _, err := fmt.Fprint(w, "WEBVTT\n\n"); err != nil {
			return err
		}
	}
	index := 1
	for _, layer := range layers {
		for _, item := range layer.Items {
			var start, end string
			if vtt {
				start, end = FormatVTTTime(item.StartTime), FormatVTTTime(item.EndTime)
			} else {
				start, end = FormatSRTTime(item.StartTime), FormatSRTTime(item.EndTime)
				if _, err := fmt.Fprintf(w, "%d\n", index); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%s --> %s\n%s\n\n", start, end, script.StripMarkup(item.Text)); err != nil {
				return err
			}
			index++
		}
	}
	return nil
}
