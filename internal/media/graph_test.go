package media

import (
	"strings"
	"testing"
)

func baseSpec() EncodeSpec {
	return EncodeSpec{
		Videos: []Clip{
			{Kind: ClipImage, Source: "a.png", Duration: 2, Filters: []string{"scale=1920:1080"}},
			{Kind: ClipVideo, Source: "b.mp4", StartTime: 2, Duration: 3},
		},
		Width: 1920, Height: 1080, FPS: 30,
		Codec: "libx264", Preset: "medium",
		Duration:   5,
		OutputPath: "out.mp4",
	}
}

func argString(t *testing.T, spec EncodeSpec) string {
	t.Helper()
	args, err := buildEncodeArgs(spec)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Join(args, " ")
}

func TestBuildEncodeArgsBasics(t *testing.T) {
	s := argString(t, baseSpec())

	for _, want := range []string{
		"-loop 1 -t 2.000 -i a.png",
		"-i b.mp4",
		"anullsrc=channel_layout=stereo:sample_rate=44100",
		"concat=n=2:v=1:a=0",
		"-c:v libx264",
		"-crf 23 -preset medium",
		"-c:a aac",
		"-t 5.000 out.mp4",
		"scale=1920:1080",
		"fps=30",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("args missing %q:\n%s", want, s)
		}
	}
	if !strings.HasPrefix(s, "-y -hide_banner -loglevel error") {
		t.Errorf("quiet flags missing: %s", s)
	}
}

func TestBuildEncodeArgsTransitionUsesXfade(t *testing.T) {
	spec := baseSpec()
	spec.Videos[0].TransitionType = "crossfade"
	spec.Videos[0].TransitionDuration = 0.5

	s := argString(t, spec)
	if !strings.Contains(s, "xfade=transition=fade:duration=0.500:offset=1.500") {
		t.Errorf("xfade missing or wrong offset:\n%s", s)
	}
	if strings.Contains(s, "concat=n=2") {
		t.Error("transition boundary must not concat")
	}
}

func TestBuildEncodeArgsAudioChain(t *testing.T) {
	spec := baseSpec()
	spec.Audios = []Clip{
		{Kind: ClipAudio, Source: "n.mp3", StartTime: 1.5, Duration: 2, Volume: 1.0},
		{Kind: ClipAudio, Source: "bgm.mp3", Volume: 0.3, Loop: true, Duration: 5, FadeIn: 1, FadeOut: 2},
	}

	s := argString(t, spec)
	for _, want := range []string{
		"adelay=1500|1500",
		"volume=1.000",
		"volume=0.300",
		"-stream_loop -1 -i bgm.mp3",
		"afade=t=in:st=0:d=1.000",
		"afade=t=out:st=3.000:d=2.000",
		"amix=inputs=3:duration=first",
		"atrim=0:2.000",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("args missing %q:\n%s", want, s)
		}
	}
}

func TestBuildEncodeArgsOverlayWindow(t *testing.T) {
	spec := baseSpec()
	spec.Overlays = []Overlay{
		{Path: "sub.png", X: 100, Y: 900, Start: 0.5, End: 2.5, Opacity: 1.0},
		{Path: "stamp.png", X: 20, Y: 20, Start: 0, End: 5, Opacity: 0.6},
	}

	s := argString(t, spec)
	if !strings.Contains(s, "overlay=x='100':y='900':enable='between(t,0.500,2.500)'") {
		t.Errorf("subtitle overlay window missing:\n%s", s)
	}
	if !strings.Contains(s, "colorchannelmixer=aa=0.600") {
		t.Errorf("opacity premix missing:\n%s", s)
	}
}

func TestBuildEncodeArgsOverlayPositionExpressions(t *testing.T) {
	spec := baseSpec()
	spec.Overlays = []Overlay{{
		Path:  "char.png",
		XExpr: "1500+12*sin(t*3.142)",
		Y:     600,
		Start: 0, End: 5, Opacity: 1.0,
	}}

	s := argString(t, spec)
	if !strings.Contains(s, "overlay=x='1500+12*sin(t*3.142)':y='600'") {
		t.Errorf("position expression missing:\n%s", s)
	}
}

func TestBuildEncodeArgsHardwareCodecs(t *testing.T) {
	spec := baseSpec()
	spec.Codec = "h264_nvenc"
	s := argString(t, spec)
	if !strings.Contains(s, "-cq 23") || strings.Contains(s, "-crf") {
		t.Errorf("nvenc quality flags wrong:\n%s", s)
	}

	spec.Codec = "h264_videotoolbox"
	s = argString(t, spec)
	if !strings.Contains(s, "-b:v 7500k") {
		t.Errorf("videotoolbox bitrate missing:\n%s", s)
	}
}

func TestBuildEncodeArgsRejectsEmptyTrack(t *testing.T) {
	if _, err := buildEncodeArgs(EncodeSpec{OutputPath: "x.mp4"}); err == nil {
		t.Fatal("empty video track must be rejected")
	}
}

func TestBuildEncodeArgsVerboseKeepsChatter(t *testing.T) {
	spec := baseSpec()
	spec.Verbose = true
	s := argString(t, spec)
	if strings.Contains(s, "-loglevel error") {
		t.Error("verbose run must not suppress encoder output")
	}
}
