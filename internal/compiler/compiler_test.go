package compiler

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/kazuvin/teto/internal/cache"
	"github.com/kazuvin/teto/internal/project"
	"github.com/kazuvin/teto/internal/script"
	"github.com/kazuvin/teto/internal/tts"
)

// fakeTTS records synthesized texts and returns fixed-length clips.
type fakeTTS struct {
	calls     int
	texts     []string
	durations map[string]float64
}

func (f *fakeTTS) dur(text string) float64 {
	if d, ok := f.durations[text]; ok {
		return d
	}
	return 1.0
}

func (f *fakeTTS) Synthesize(_ context.Context, text string, _ script.VoiceConfig) (*tts.Result, error) {
	f.calls++
	f.texts = append(f.texts, text)
	return &tts.Result{Audio: []byte("AUDIO:" + text), Ext: ".mp3", Duration: f.dur(text)}, nil
}

func (f *fakeTTS) EstimateDuration(text string, _ script.VoiceConfig) float64 {
	return f.dur(text)
}

// passResolver returns visual paths untouched.
type passResolver struct{}

func (passResolver) Resolve(_ context.Context, v script.Visual) (string, error) {
	return v.Path, nil
}

func newTestCompiler(t *testing.T, provider tts.Provider, cacheDir string) *Compiler {
	t.Helper()
	cc, err := cache.Open(cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(provider, passResolver{},
		WithOutputDir(t.TempDir()),
		WithCache(cc),
	)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func singleSceneScript() *script.Script {
	data := []byte(`{
		"title": "s1",
		"scenes": [
			{"visual": {"path": "a.png"}, "narrations": [{"text": "Hello"}]}
		],
		"timing": {"subtitle_padding": 0.1, "default_segment_gap": 0.3, "default_scene_gap": 0.5}
	}`)
	s, err := script.ParseJSON(data)
	if err != nil {
		panic(err)
	}
	return s
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCompileSingleImageSingleNarration(t *testing.T) {
	provider := &fakeTTS{}
	c := newTestCompiler(t, provider, t.TempDir())

	res, err := c.Compile(context.Background(), singleSceneScript(), "out.mp4")
	if err != nil {
		t.Fatal(err)
	}

	tl := res.Project.Timeline
	if len(tl.VideoLayers) != 1 {
		t.Fatalf("video layers = %d, want 1", len(tl.VideoLayers))
	}
	video := tl.VideoLayers[0]
	if video.Kind != project.KindImage {
		t.Errorf("layer kind = %v, want image", video.Kind)
	}
	if !almostEqual(video.StartTime, 0) || !almostEqual(video.EndTime, 1.2) {
		t.Errorf("image layer span = [%v, %v], want [0, 1.2]", video.StartTime, video.EndTime)
	}

	if len(tl.AudioLayers) != 1 {
		t.Fatalf("audio layers = %d, want 1", len(tl.AudioLayers))
	}
	if !almostEqual(tl.AudioLayers[0].StartTime, 0.1) {
		t.Errorf("narration start = %v, want 0.1", tl.AudioLayers[0].StartTime)
	}

	if len(tl.SubtitleLayers) != 1 || len(tl.SubtitleLayers[0].Items) != 1 {
		t.Fatalf("subtitle layers wrong: %+v", tl.SubtitleLayers)
	}
	item := tl.SubtitleLayers[0].Items[0]
	if item.Text != "Hello" || !almostEqual(item.StartTime, 0.0) || !almostEqual(item.EndTime, 1.2) {
		t.Errorf("subtitle item = %+v, want Hello [0, 1.2]", item)
	}

	if !almostEqual(res.Metadata.TotalDuration, 1.2) {
		t.Errorf("total duration = %v, want 1.2", res.Metadata.TotalDuration)
	}

	// Narration file landed under narrations/ with the indexed name.
	if len(res.Metadata.GeneratedAssets) != 1 {
		t.Fatalf("generated assets = %v", res.Metadata.GeneratedAssets)
	}
	name := filepath.Base(res.Metadata.GeneratedAssets[0])
	if name != "scene_000_seg_000.mp3" {
		t.Errorf("narration name = %s", name)
	}
	if _, err := os.Stat(res.Metadata.GeneratedAssets[0]); err != nil {
		t.Errorf("narration file missing: %v", err)
	}
}

func TestCompileMarkupPassthrough(t *testing.T) {
	provider := &fakeTTS{}
	c := newTestCompiler(t, provider, t.TempDir())

	s := singleSceneScript()
	s.Scenes[0].Narrations[0].Text = "a<em>b</em>c"
	s.SubtitleStyles = map[string]script.PartialStyle{"em": {FontColor: "red"}}

	res, err := c.Compile(context.Background(), s, "out.mp4")
	if err != nil {
		t.Fatal(err)
	}

	if len(provider.texts) != 1 || provider.texts[0] != "abc" {
		t.Errorf("TTS received %v, want [abc]", provider.texts)
	}
	item := res.Project.Timeline.SubtitleLayers[0].Items[0]
	if item.Text != "a<em>b</em>c" {
		t.Errorf("subtitle text = %q, markup must be retained", item.Text)
	}
}

func TestCompileSecondRunHitsCache(t *testing.T) {
	cacheDir := t.TempDir()

	build := func() *script.Script {
		data := []byte(`{
			"title": "s3",
			"voice_profiles": {"n": {"provider": "google", "voice_id": "A"}},
			"scenes": [
				{"visual": {"path": "a.png"}, "voice_profile": "n", "narrations": [{"text": "ok"}]},
				{"visual": {"path": "b.png"}, "voice_profile": "n", "narrations": [{"text": "ok"}]}
			]
		}`)
		s, err := script.ParseJSON(data)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	first := &fakeTTS{}
	c1 := newTestCompiler(t, first, cacheDir)
	res1, err := c1.Compile(context.Background(), build(), "out.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if res1.Metadata.CacheMisses == 0 || first.calls != res1.Metadata.CacheMisses {
		t.Errorf("first compile: calls=%d misses=%d", first.calls, res1.Metadata.CacheMisses)
	}

	// A fresh compiler over the same cache dir must not call the provider.
	second := &fakeTTS{}
	c2 := newTestCompiler(t, second, cacheDir)
	res2, err := c2.Compile(context.Background(), build(), "out.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if second.calls != 0 {
		t.Errorf("second compile called provider %d times", second.calls)
	}
	if res2.Metadata.CacheHits != 2 {
		t.Errorf("second compile hits = %d, want 2 (total segment count)", res2.Metadata.CacheHits)
	}
}

func TestCompileAllTimingsIdenticalAcrossOutputs(t *testing.T) {
	provider := &fakeTTS{}
	c := newTestCompiler(t, provider, t.TempDir())

	s := singleSceneScript()
	s.Scenes = append(s.Scenes, script.Scene{
		Visual:     script.Visual{Path: "b.png"},
		Narrations: []script.NarrationSegment{{Text: "World"}},
	})
	s.Output = script.OutputList{
		{Name: "wide", AspectRatio: "16:9"},
		{Name: "tall", AspectRatio: "9:16"},
	}
	for i := range s.Output {
		out := &s.Output[i]
		out.FPS = 30
		out.Codec = "libx264"
		out.Preset = "medium"
		out.SubtitleMode = script.SubtitleBurn
		out.ObjectFit = script.FitContain
	}

	results, err := c.CompileAll(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	a := results[0].Project.Timeline
	b := results[1].Project.Timeline
	if len(a.SubtitleLayers) != len(b.SubtitleLayers) {
		t.Fatal("subtitle layer counts differ across outputs")
	}
	for li := range a.SubtitleLayers {
		ia, ib := a.SubtitleLayers[li].Items, b.SubtitleLayers[li].Items
		if len(ia) != len(ib) {
			t.Fatalf("item counts differ in layer %d", li)
		}
		for k := range ia {
			if ia[k] != ib[k] {
				t.Errorf("subtitle item %d/%d differs: %+v vs %+v", li, k, ia[k], ib[k])
			}
		}
	}
	for k := range a.VideoLayers {
		if a.VideoLayers[k].StartTime != b.VideoLayers[k].StartTime ||
			a.VideoLayers[k].EndTime != b.VideoLayers[k].EndTime {
			t.Errorf("video layer %d timing differs across outputs", k)
		}
	}

	wa, ha := results[0].Project.Output.Resolution()
	wb, hb := results[1].Project.Output.Resolution()
	if wa != 1920 || ha != 1080 || wb != 1080 || hb != 1920 {
		t.Errorf("resolutions = %dx%d / %dx%d", wa, ha, wb, hb)
	}
}

func TestCompileDurationIgnoredWhenNarrated(t *testing.T) {
	provider := &fakeTTS{}
	c := newTestCompiler(t, provider, t.TempDir())

	s := singleSceneScript()
	d := 30.0
	s.Scenes[0].Duration = &d

	res, err := c.Compile(context.Background(), s, "out.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(res.Metadata.TotalDuration, 1.2) {
		t.Errorf("explicit duration must be ignored for narrated scenes, got %v", res.Metadata.TotalDuration)
	}
}

func TestCompileTimingsMonotone(t *testing.T) {
	provider := &fakeTTS{durations: map[string]float64{"one": 2.0, "two": 0.5}}
	c := newTestCompiler(t, provider, t.TempDir())

	data := []byte(`{
		"title": "m",
		"scenes": [
			{"visual": {"path": "a.png"}, "narrations": [{"text": "one"}, {"text": "two"}]},
			{"visual": {"path": "b.png"}, "duration": 3.0, "pause_after": 0.25},
			{"visual": {"path": "c.mp4"}, "narrations": [{"text": "one"}]}
		]
	}`)
	s, err := script.ParseJSON(data)
	if err != nil {
		t.Fatal(err)
	}

	res, err := c.Compile(context.Background(), s, "out.mp4")
	if err != nil {
		t.Fatal(err)
	}

	timings := res.Metadata.SceneTimings
	for i := 0; i < len(timings)-1; i++ {
		if timings[i].EndTime > timings[i+1].StartTime {
			t.Errorf("scene %d end %v > scene %d start %v",
				i, timings[i].EndTime, i+1, timings[i+1].StartTime)
		}
	}
	for _, st := range timings {
		for k := 0; k < len(st.Segments)-1; k++ {
			if st.Segments[k].EndTime >= st.Segments[k+1].StartTime {
				t.Errorf("scene %d: segment %d end %v >= segment %d start %v",
					st.Index, k, st.Segments[k].EndTime, k+1, st.Segments[k+1].StartTime)
			}
		}
	}

	// Video track is contiguous and ordered.
	layers := res.Project.Timeline.VideoLayers
	for i := 0; i < len(layers)-1; i++ {
		if layers[i].StartTime >= layers[i+1].StartTime {
			t.Errorf("video layers out of order at %d", i)
		}
		if !almostEqual(layers[i].EndTime, layers[i+1].StartTime) {
			t.Errorf("video track gap between %d and %d: %v != %v",
				i, i+1, layers[i].EndTime, layers[i+1].StartTime)
		}
	}

	// The last layer's end is the project duration.
	if !almostEqual(layers[len(layers)-1].EndTime, res.Metadata.TotalDuration) {
		t.Errorf("last layer end %v != total %v",
			layers[len(layers)-1].EndTime, res.Metadata.TotalDuration)
	}

	// Video scene keeps its audio and mute flag defaults.
	last := layers[len(layers)-1]
	if last.Kind != project.KindVideo || last.Volume != 1.0 {
		t.Errorf("video layer = %+v", last)
	}
}

func TestCompileBGMClampedToProject(t *testing.T) {
	provider := &fakeTTS{}
	c := newTestCompiler(t, provider, t.TempDir())

	s := singleSceneScript()
	s.BGM = &script.BGMConfig{Path: "bgm.mp3", Volume: 0.3, FadeIn: 1, FadeOut: 2}

	res, err := c.Compile(context.Background(), s, "out.mp4")
	if err != nil {
		t.Fatal(err)
	}

	var bgm *project.AudioLayer
	for i := range res.Project.Timeline.AudioLayers {
		l := &res.Project.Timeline.AudioLayers[i]
		if l.Path == "bgm.mp3" {
			bgm = l
		}
	}
	if bgm == nil {
		t.Fatal("bgm layer missing")
	}
	if !bgm.Loop || !almostEqual(bgm.StartTime, 0) || !almostEqual(bgm.EndTime, res.Metadata.TotalDuration) {
		t.Errorf("bgm layer = %+v", bgm)
	}
}

func TestCompilePresetExpansion(t *testing.T) {
	provider := &fakeTTS{}
	c := newTestCompiler(t, provider, t.TempDir())

	s := singleSceneScript()
	s.Scenes[0].Preset = "hook"

	res, err := c.Compile(context.Background(), s, "out.mp4")
	if err != nil {
		t.Fatal(err)
	}

	// hook overrides subtitle padding to 0.05; segment [0.05, 1.05],
	// item padded back out to [0.0, 1.1].
	item := res.Project.Timeline.SubtitleLayers[0].Items[0]
	if !almostEqual(item.StartTime, 0.0) || !almostEqual(item.EndTime, 1.1) {
		t.Errorf("preset timing override not applied: %+v", item)
	}

	// hook selects the dramatic effect stack for images.
	layer := res.Project.Timeline.VideoLayers[0]
	if len(layer.Effects) == 0 || layer.Effects[0].Type != "zoom" {
		t.Errorf("dramatic stack not attached: %+v", layer.Effects)
	}

	// Preset subtitle style replaces the layer style.
	style := res.Project.Timeline.SubtitleLayers[0].Style
	if style.FontWeight != "bold" || style.Appearance != "drop-shadow" {
		t.Errorf("preset style not applied: %+v", style)
	}
}

func TestCompileUnknownEffectFailsBeforeTTS(t *testing.T) {
	provider := &fakeTTS{}
	c := newTestCompiler(t, provider, t.TempDir())

	s := singleSceneScript()
	s.Scenes[0].Effect = "nosuch"

	if _, err := c.Compile(context.Background(), s, "out.mp4"); err == nil {
		t.Fatal("expected validation error")
	}
	if provider.calls != 0 {
		t.Errorf("validation must fail before TTS, got %d calls", provider.calls)
	}
}
