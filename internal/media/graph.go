package media

import (
	"fmt"
	"strings"

	"github.com/kazuvin/teto/internal/teterr"
)

// xfadeNames maps transition types from the project model onto ffmpeg
// xfade transition names.
var xfadeNames = map[string]string{
	"crossfade": "fade",
	"fade":      "fade",
	"wipeleft":  "wipeleft",
	"wiperight": "wiperight",
	"slideup":   "slideup",
	"slidedown": "slidedown",
	"dissolve":  "dissolve",
	"pixelize":  "pixelize",
}

// buildEncodeArgs turns an EncodeSpec into a complete ffmpeg argument list:
// one input per clip and overlay plus a silent audio anchor, a filter graph
// that chains the base track (xfade where a transition is declared, concat
// otherwise), composites overlays inside their time windows, and mixes the
// audio clips over the anchor.
func buildEncodeArgs(spec EncodeSpec) ([]string, error) {
	if len(spec.Videos) == 0 {
		return nil, teterr.New(teterr.Internal, "encode spec has no video clips")
	}

	args := []string{"-y"}
	if !spec.Verbose {
		args = append(args, "-hide_banner", "-loglevel", "error")
	}

	var graph []string

	// Video inputs. Input index == clip index.
	for _, c := range spec.Videos {
		switch c.Kind {
		case ClipImage:
			args = append(args, "-loop", "1", "-t", ffSeconds(c.Duration), "-i", c.Source)
		default:
			if c.Loop {
				args = append(args, "-stream_loop", "-1")
			}
			args = append(args, "-t", ffSeconds(c.Duration), "-i", c.Source)
		}
	}

	// Overlay inputs follow the video inputs.
	overlayBase := len(spec.Videos)
	for _, o := range spec.Overlays {
		args = append(args, "-i", o.Path)
	}

	// Silent anchor pinning the mix length to the project duration.
	anchorIndex := overlayBase + len(spec.Overlays)
	args = append(args, "-f", "lavfi", "-t", ffSeconds(spec.Duration),
		"-i", "anullsrc=channel_layout=stereo:sample_rate=44100")

	// Audio inputs follow the anchor.
	audioBase := anchorIndex + 1
	for _, c := range spec.Audios {
		if c.Loop {
			args = append(args, "-stream_loop", "-1")
		}
		args = append(args, "-i", c.Source)
	}

	// Per-clip video chains.
	for i, c := range spec.Videos {
		chain := make([]string, 0, len(c.Filters)+2)
		chain = append(chain, c.Filters...)
		chain = append(chain, fmt.Sprintf("fps=%d", spec.FPS), "format=yuv420p", "setsar=1")
		graph = append(graph, fmt.Sprintf("[%d:v]%s[v%d]", i, strings.Join(chain, ","), i))
	}

	// Base track: fold clips left to right.
	last := "[v0]"
	elapsed := spec.Videos[0].Duration
	for i := 1; i < len(spec.Videos); i++ {
		prev := spec.Videos[i-1]
		out := fmt.Sprintf("[vc%d]", i)
		if prev.TransitionType != "" && prev.TransitionDuration > 0 {
			name, ok := xfadeNames[prev.TransitionType]
			if !ok {
				name = "fade"
			}
			offset := elapsed - prev.TransitionDuration
			graph = append(graph, fmt.Sprintf("%s[v%d]xfade=transition=%s:duration=%s:offset=%s%s",
				last, i, name, ffSeconds(prev.TransitionDuration), ffSeconds(offset), out))
			elapsed += spec.Videos[i].Duration - prev.TransitionDuration
		} else {
			graph = append(graph, fmt.Sprintf("%s[v%d]concat=n=2:v=1:a=0%s", last, i, out))
			elapsed += spec.Videos[i].Duration
		}
		last = out
	}

	// Overlays composite on top, limited to their windows.
	for k, o := range spec.Overlays {
		in := fmt.Sprintf("[%d:v]", overlayBase+k)
		src := in
		if o.Opacity > 0 && o.Opacity < 1 {
			pre := fmt.Sprintf("[ov%d]", k)
			graph = append(graph, fmt.Sprintf("%sformat=rgba,colorchannelmixer=aa=%.3f%s", in, o.Opacity, pre))
			src = pre
		}
		xExpr := fmt.Sprintf("%d", o.X)
		if o.XExpr != "" {
			xExpr = o.XExpr
		}
		yExpr := fmt.Sprintf("%d", o.Y)
		if o.YExpr != "" {
			yExpr = o.YExpr
		}
		out := fmt.Sprintf("[vo%d]", k)
		graph = append(graph, fmt.Sprintf("%s%soverlay=x='%s':y='%s':enable='between(t,%s,%s)'%s",
			last, src, xExpr, yExpr, ffSeconds(o.Start), ffSeconds(o.End), out))
		last = out
	}

	// Audio chains: shift each clip to its start time, then mix over the
	// anchor. duration=first clamps everything (BGM loops included) to the
	// project length.
	mixInputs := []string{fmt.Sprintf("[%d:a]", anchorIndex)}
	for j, c := range spec.Audios {
		chain := []string{fmt.Sprintf("volume=%.3f", c.Volume)}
		if c.FadeIn > 0 {
			chain = append(chain, fmt.Sprintf("afade=t=in:st=0:d=%s", ffSeconds(c.FadeIn)))
		}
		if c.FadeOut > 0 && c.Duration > 0 {
			chain = append(chain, fmt.Sprintf("afade=t=out:st=%s:d=%s",
				ffSeconds(c.Duration-c.FadeOut), ffSeconds(c.FadeOut)))
		}
		if c.Duration > 0 {
			chain = append(chain, fmt.Sprintf("atrim=0:%s", ffSeconds(c.Duration)))
		}
		chain = append(chain, c.Filters...)
		delay := int(c.StartTime * 1000)
		chain = append(chain, fmt.Sprintf("adelay=%d|%d", delay, delay))
		out := fmt.Sprintf("[a%d]", j)
		graph = append(graph, fmt.Sprintf("[%d:a]%s%s", audioBase+j, strings.Join(chain, ","), out))
		mixInputs = append(mixInputs, out)
	}
	graph = append(graph, fmt.Sprintf("%samix=inputs=%d:duration=first:dropout_transition=0:normalize=0[aout]",
		strings.Join(mixInputs, ""), len(mixInputs)))

	args = append(args, "-filter_complex", strings.Join(graph, ";"))
	args = append(args, "-map", last, "-map", "[aout]")
	args = append(args, codecArgs(spec)...)
	args = append(args, "-t", ffSeconds(spec.Duration), spec.OutputPath)
	return args, nil
}

// codecArgs picks quality flags per encoder; hardware encoders take a
// bitrate or constant-quality flag instead of CRF.
func codecArgs(spec EncodeSpec) []string {
	args := []string{"-c:v", spec.Codec}
	switch spec.Codec {
	case "h264_videotoolbox":
		args = append(args, "-b:v", "7500k")
	case "h264_nvenc":
		args = append(args, "-cq", "23")
	default:
		args = append(args, "-crf", "23", "-preset", spec.Preset)
	}
	args = append(args,
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprintf("%d", spec.FPS),
		"-c:a", "aac", "-b:a", "192k",
	)
	return args
}

// ffSeconds formats a duration for ffmpeg arguments.
func ffSeconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
