package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kazuvin/teto/internal/compiler"
	"github.com/kazuvin/teto/internal/media"
	"github.com/kazuvin/teto/internal/project"
	"github.com/kazuvin/teto/internal/script"
)

// fakeBackend records encode specs and optionally delays per output path.
type fakeBackend struct {
	mu     sync.Mutex
	specs  []media.EncodeSpec
	delays map[string]time.Duration
	fail   map[string]error
}

func (f *fakeBackend) Probe(ctx context.Context, path string) (*media.Info, error) {
	return &media.Info{Duration: 1, HasVideo: true, HasAudio: true}, nil
}

func (f *fakeBackend) Encode(ctx context.Context, spec media.EncodeSpec) error {
	if d := f.delays[spec.OutputPath]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.specs = append(f.specs, spec)
	f.mu.Unlock()
	if err := f.fail[spec.OutputPath]; err != nil {
		return err
	}
	return nil
}

func testProject(t *testing.T, outPath string, mode script.SubtitleMode) *project.Project {
	t.Helper()
	out := script.DefaultOutputSettings()
	out.SubtitleMode = mode

	return &project.Project{
		Output: project.NewOutputConfig(out, outPath),
		Timeline: project.Timeline{
			VideoLayers: []project.VisualLayer{
				{Kind: project.KindImage, Path: "a.png", StartTime: 0, EndTime: 1.2},
			},
			AudioLayers: []project.AudioLayer{
				{Path: "n.mp3", StartTime: 0.1, EndTime: 1.1, Volume: 1.0},
				{Path: "bgm.mp3", StartTime: 0, EndTime: 1.2, Volume: 0.3, Loop: true},
			},
			SubtitleLayers: []project.SubtitleLayer{{
				Items: []project.SubtitleItem{{Text: "Hello", StartTime: 0, EndTime: 1.2}},
				Style: script.SubtitleStyleConfig{
					FontSize: script.Size{Pixels: 40}, FontColor: "white",
					Position: "bottom", Appearance: "plain", BGColor: "black@0.5",
				},
			}},
		},
	}
}

func TestGenerateBurnsSubtitlesAndEncodes(t *testing.T) {
	backend := &fakeBackend{}
	gen := NewGenerator(backend, nil)
	outPath := filepath.Join(t.TempDir(), "out", "video.mp4")

	path, err := gen.Generate(context.Background(), testProject(t, outPath, script.SubtitleBurn), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if path != outPath {
		t.Errorf("path = %s, want %s", path, outPath)
	}

	if len(backend.specs) != 1 {
		t.Fatalf("encodes = %d, want 1", len(backend.specs))
	}
	spec := backend.specs[0]
	if spec.Width != 1920 || spec.Height != 1080 || spec.FPS != 30 {
		t.Errorf("output geometry = %dx%d@%d", spec.Width, spec.Height, spec.FPS)
	}
	if len(spec.Videos) != 1 || spec.Videos[0].Kind != media.ClipImage {
		t.Fatalf("video clips = %+v", spec.Videos)
	}
	if len(spec.Audios) != 2 {
		t.Errorf("audio clips = %d, want 2", len(spec.Audios))
	}
	if len(spec.Overlays) != 1 {
		t.Fatalf("burned subtitle overlay missing: %+v", spec.Overlays)
	}
	ov := spec.Overlays[0]
	if ov.Start != 0 || ov.End != 1.2 {
		t.Errorf("overlay window = [%v, %v]", ov.Start, ov.End)
	}

	// The object-fit chain is on the clip.
	if len(spec.Videos[0].Filters) == 0 {
		t.Error("object-fit filter missing on base clip")
	}

	// Workspace is cleaned up after the run.
	if _, err := os.Stat(filepath.Dir(ov.Path)); !os.IsNotExist(err) {
		t.Errorf("workspace not removed: %v", err)
	}
}

func TestGenerateWritesSRTSidecar(t *testing.T) {
	backend := &fakeBackend{}
	gen := NewGenerator(backend, nil)
	outPath := filepath.Join(t.TempDir(), "video.mp4")

	if _, err := gen.Generate(context.Background(), testProject(t, outPath, script.SubtitleSRT), Options{}); err != nil {
		t.Fatal(err)
	}

	sidecar := filepath.Join(filepath.Dir(outPath), "video.srt")
	if _, err := os.Stat(sidecar); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	if len(backend.specs[0].Overlays) != 0 {
		t.Error("srt mode must not burn overlays")
	}
}

func TestGenerateSubtitleModeNone(t *testing.T) {
	backend := &fakeBackend{}
	gen := NewGenerator(backend, nil)
	outPath := filepath.Join(t.TempDir(), "video.mp4")

	if _, err := gen.Generate(context.Background(), testProject(t, outPath, script.SubtitleNone), Options{}); err != nil {
		t.Fatal(err)
	}
	if len(backend.specs[0].Overlays) != 0 {
		t.Error("none mode must not composite subtitles")
	}
	entries, _ := os.ReadDir(filepath.Dir(outPath))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".srt" || filepath.Ext(e.Name()) == ".vtt" {
			t.Errorf("unexpected sidecar %s", e.Name())
		}
	}
}

func TestAudioMergeClampsToProjectEnd(t *testing.T) {
	rc := &Context{
		Project: testProject(t, "x.mp4", script.SubtitleNone),
		Audios: []media.Clip{
			{Source: "bgm.mp3", Loop: true, Duration: 100},
			{Source: "late.mp3", StartTime: 0.5, Duration: 5},
		},
	}
	if err := (&AudioMergeStep{}).Process(context.Background(), rc); err != nil {
		t.Fatal(err)
	}
	if rc.Audios[0].Duration != 1.2 {
		t.Errorf("looping bgm duration = %v, want 1.2", rc.Audios[0].Duration)
	}
	if rc.Audios[1].Duration != 0.7 {
		t.Errorf("overlong clip duration = %v, want 0.7", rc.Audios[1].Duration)
	}
}

func TestStampStepPositionsAndScales(t *testing.T) {
	dir := t.TempDir()
	stampPath := filepath.Join(dir, "stamp.png")
	writeTestPNG(t, stampPath, 100, 50)

	proj := testProject(t, filepath.Join(dir, "v.mp4"), script.SubtitleNone)
	proj.Timeline.StampLayers = []project.StampLayer{{
		Path: stampPath, StartTime: 0.2, EndTime: 1.0,
		Position: script.StampBottomRight, Scale: 0.5, Opacity: 0.8, Margin: 20,
	}}

	rc := &Context{Project: proj, Width: 1920, Height: 1080, Workspace: t.TempDir()}
	if err := (&StampLayerStep{}).Process(context.Background(), rc); err != nil {
		t.Fatal(err)
	}
	if len(rc.Overlays) != 1 {
		t.Fatalf("overlays = %d", len(rc.Overlays))
	}
	ov := rc.Overlays[0]
	// 100x50 at scale 0.5 -> 50x25, bottom-right with margin 20.
	if ov.X != 1920-50-20 || ov.Y != 1080-25-20 {
		t.Errorf("stamp position = (%d, %d)", ov.X, ov.Y)
	}
	if ov.Opacity != 0.8 || ov.Start != 0.2 || ov.End != 1.0 {
		t.Errorf("overlay = %+v", ov)
	}
}

func TestDriverPreservesOrderAndIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "slow.mp4"),
		filepath.Join(dir, "broken.mp4"),
		filepath.Join(dir, "fast.mp4"),
	}
	backend := &fakeBackend{
		delays: map[string]time.Duration{paths[0]: 150 * time.Millisecond},
		fail:   map[string]error{paths[1]: fmt.Errorf("encoder exploded")},
	}

	var results []compiler.CompileResult
	for _, p := range paths {
		results = append(results, compiler.CompileResult{
			Project: testProject(t, p, script.SubtitleNone),
		})
	}

	driver := NewDriver(NewGenerator(backend, nil))
	driver.Workers = 3
	out := driver.RenderAll(context.Background(), results, Options{})

	if len(out) != 3 {
		t.Fatalf("results = %d", len(out))
	}
	// The slow output still lands at index 0.
	if out[0].Err != nil || out[0].Path != paths[0] {
		t.Errorf("result 0 = %+v, want %s", out[0], paths[0])
	}
	if out[1].Err == nil {
		t.Error("result 1 should carry the encoder failure")
	}
	if out[2].Err != nil || out[2].Path != paths[2] {
		t.Errorf("result 2 = %+v", out[2])
	}
	if Failed(out) != 1 {
		t.Errorf("Failed = %d, want 1", Failed(out))
	}
}

func TestPipelineCancellationBetweenSteps(t *testing.T) {
	backend := &fakeBackend{}
	gen := NewGenerator(backend, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gen.Generate(ctx, testProject(t, filepath.Join(t.TempDir(), "v.mp4"), script.SubtitleNone), Options{})
	if err == nil {
		t.Fatal("cancelled context must abort the run")
	}
	if len(backend.specs) != 0 {
		t.Error("no encode should happen after cancellation")
	}
}

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}
