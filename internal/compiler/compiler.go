// Package compiler lowers a Script into one Project per requested output:
// it synthesizes (or retrieves) narration audio, computes absolute
// timings, resolves visuals and presets, and emits explicit layer
// timelines. Compilation is a fixed sequence of phases; nothing here
// touches the render pipeline.
package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/kazuvin/teto/internal/assets"
	"github.com/kazuvin/teto/internal/cache"
	"github.com/kazuvin/teto/internal/effects"
	"github.com/kazuvin/teto/internal/logging"
	"github.com/kazuvin/teto/internal/presets"
	"github.com/kazuvin/teto/internal/project"
	"github.com/kazuvin/teto/internal/script"
	"github.com/kazuvin/teto/internal/teterr"
	"github.com/kazuvin/teto/internal/tts"
)

// SegmentTiming is the absolute time span of one narration segment.
type SegmentTiming struct {
	Index     int     `yaml:"index"`
	StartTime float64 `yaml:"start_time"`
	EndTime   float64 `yaml:"end_time"`
	Path      string  `yaml:"path"`
	Text      string  `yaml:"text"`
}

// SceneTiming is the absolute time span of one scene.
type SceneTiming struct {
	Index     int             `yaml:"index"`
	StartTime float64         `yaml:"start_time"`
	EndTime   float64         `yaml:"end_time"`
	Segments  []SegmentTiming `yaml:"segments,omitempty"`
}

// Metadata summarizes a compile: total duration, per-scene timings, the
// generated narration files, and cache statistics.
type Metadata struct {
	TotalDuration   float64       `yaml:"total_duration"`
	SceneTimings    []SceneTiming `yaml:"scene_timings"`
	GeneratedAssets []string      `yaml:"generated_assets,omitempty"`
	CacheHits       int           `yaml:"cache_hits"`
	CacheMisses     int           `yaml:"cache_misses"`
}

// CompileResult pairs the emitted project with its metadata.
type CompileResult struct {
	Project  *project.Project `yaml:"project"`
	Metadata Metadata         `yaml:"metadata"`
}

// Compiler converts scripts to projects. Construct with New; the zero
// value is not usable.
type Compiler struct {
	tts       tts.Provider
	assets    assets.Resolver
	outputDir string
	cache     *cache.Cache
	useCache  bool
	presets   *presets.Registry
	stacks    *effects.StackRegistry
	logger    zerolog.Logger
}

// Option customizes a Compiler.
type Option func(*Compiler)

// WithOutputDir sets the directory narrations and outputs land in.
func WithOutputDir(dir string) Option {
	return func(c *Compiler) { c.outputDir = dir }
}

// WithCache substitutes the TTS cache (nil disables caching).
func WithCache(cc *cache.Cache) Option {
	return func(c *Compiler) { c.cache = cc; c.useCache = cc != nil }
}

// WithoutCache disables TTS caching.
func WithoutCache() Option {
	return func(c *Compiler) { c.useCache = false }
}

// WithPresets substitutes the composite preset registry.
func WithPresets(r *presets.Registry) Option {
	return func(c *Compiler) { c.presets = r }
}

// WithEffectStacks substitutes the effect stack registry.
func WithEffectStacks(r *effects.StackRegistry) Option {
	return func(c *Compiler) { c.stacks = r }
}

// New creates a compiler with the default registries and cache location.
func New(provider tts.Provider, resolver assets.Resolver, opts ...Option) (*Compiler, error) {
	c := &Compiler{
		tts:       provider,
		assets:    resolver,
		outputDir: "./output",
		useCache:  true,
		presets:   presets.NewRegistry(),
		stacks:    effects.NewStackRegistry(),
		logger:    logging.WithComponent("compiler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.useCache && c.cache == nil {
		cc, err := cache.Open("")
		if err != nil {
			return nil, err
		}
		c.cache = cc
	}
	return c, nil
}

// sceneView is a scene with its composite preset expanded: the effective
// effect stack name, transition, timing and subtitle style, resolved with
// the documented precedence (scene > preset > script default).
type sceneView struct {
	scene      *script.Scene
	effect     string
	transition *script.TransitionConfig
	timing     script.TimingConfig
	style      script.SubtitleStyleConfig
}

func (c *Compiler) expandScenes(s *script.Script) []sceneView {
	views := make([]sceneView, len(s.Scenes))
	for i := range s.Scenes {
		sc := &s.Scenes[i]
		v := sceneView{
			scene:      sc,
			effect:     s.DefaultEffect,
			transition: sc.Transition,
			timing:     s.Timing,
			style:      s.SubtitleStyle,
		}

		presetName := sc.Preset
		if presetName == "" {
			presetName = s.DefaultPreset
		}
		if presetName != "" {
			if p, ok := c.presets.Lookup(presetName); ok {
				if p.Effect != "" {
					v.effect = p.Effect
				}
				if v.transition == nil && p.Transition != nil {
					t := *p.Transition
					v.transition = &t
				}
				if p.TimingOverride != nil {
					v.timing = *p.TimingOverride
				}
				if p.SubtitleStyle != nil {
					v.style = *p.SubtitleStyle
				}
			}
		}
		if sc.Effect != "" {
			v.effect = sc.Effect
		}
		views[i] = v
	}
	return views
}

// Compile converts the script into a single project written to outputPath,
// using the script's first output settings.
func (c *Compiler) Compile(ctx context.Context, s *script.Script, outputPath string) (*CompileResult, error) {
	return c.compileOne(ctx, s, s.Output[0], outputPath)
}

// CompileAll emits one project per output settings entry, in declaration
// order. Each output is compiled on its own, so narrations are synthesized
// or fetched from the TTS cache once per output (with the cache enabled,
// later outputs hit the entries the first one wrote). All projects share
// identical timings and layer structure, differing only in output
// configuration.
func (c *Compiler) CompileAll(ctx context.Context, s *script.Script) ([]CompileResult, error) {
	results := make([]CompileResult, 0, len(s.Output))
	for i, out := range s.Output {
		res, err := c.compileOne(ctx, s, out, c.outputPathFor(s, out, i))
		if err != nil {
			return nil, fmt.Errorf("output %d (%s): %w", i, out.Name, err)
		}
		results = append(results, *res)
	}
	return results, nil
}

// outputPathFor derives the file path for one output of a multi-output
// script: the output's name, falling back to an index suffix.
func (c *Compiler) outputPathFor(s *script.Script, out script.OutputSettings, index int) string {
	dir := c.outputDir
	if s.OutputDir != "" {
		dir = s.OutputDir
	}
	name := out.Name
	if name == "" {
		if len(s.Output) == 1 {
			name = "output"
		} else {
			name = fmt.Sprintf("output_%d", index)
		}
	}
	return filepath.Join(dir, name+".mp4")
}

func (c *Compiler) compileOne(ctx context.Context, s *script.Script, out script.OutputSettings, outputPath string) (*CompileResult, error) {
	if err := s.Validate(script.Lookups{
		EffectExists: c.stacks.Has,
		PresetExists: c.presets.Has,
	}); err != nil {
		return nil, err
	}

	views := c.expandScenes(s)

	if err := c.prepare(); err != nil {
		return nil, err
	}

	narrations, meta, err := c.generateNarrations(ctx, s, views)
	if err != nil {
		return nil, err
	}

	timings := c.computeTimings(views, narrations)

	videoLayers, err := c.buildVideoLayers(ctx, views, timings)
	if err != nil {
		return nil, err
	}
	audioLayers := c.buildAudioLayers(s, views, timings)
	subtitleLayers := c.buildSubtitleLayers(s, views, timings)
	stampLayers, err := c.buildStampLayers(ctx, views, timings)
	if err != nil {
		return nil, err
	}
	characterLayers := c.buildCharacterLayers(s, views, timings)

	proj := &project.Project{
		Output: project.NewOutputConfig(out, outputPath),
		Timeline: project.Timeline{
			VideoLayers:     videoLayers,
			AudioLayers:     audioLayers,
			SubtitleLayers:  subtitleLayers,
			StampLayers:     stampLayers,
			CharacterLayers: characterLayers,
		},
	}

	meta.SceneTimings = timings
	if len(timings) > 0 {
		meta.TotalDuration = proj.Timeline.Duration()
	}
	return &CompileResult{Project: proj, Metadata: *meta}, nil
}

func (c *Compiler) prepare() error {
	if err := os.MkdirAll(filepath.Join(c.outputDir, "narrations"), 0o755); err != nil {
		return teterr.Wrap(teterr.CacheIO, err, "cannot create output dir %s", c.outputDir)
	}
	return nil
}

// narration is one synthesized segment before timing assignment.
type narration struct {
	path     string
	duration float64
	text     string
}

// generateNarrations synthesizes every segment in declaration order,
// consulting the cache first. Bytes are written to
// narrations/scene_NNN_seg_MMM.<ext> regardless of cache outcome so the
// project references stable paths.
func (c *Compiler) generateNarrations(ctx context.Context, s *script.Script, views []sceneView) ([][]narration, *Metadata, error) {
	meta := &Metadata{}
	all := make([][]narration, len(views))

	for i, v := range views {
		scene := v.scene
		all[i] = make([]narration, len(scene.Narrations))

		for j := range scene.Narrations {
			seg := &scene.Narrations[j]
			voice := s.ResolveVoice(scene, seg)
			plain := script.StripMarkup(seg.Text)
			ext := voice.AudioExt()

			var audio []byte
			var duration float64

			if c.useCache {
				data, hit, err := c.cache.Get(plain, voice, ext)
				if err != nil {
					return nil, nil, err
				}
				if hit {
					meta.CacheHits++
					audio = data
					duration = c.tts.EstimateDuration(plain, voice)
				}
			}

			if audio == nil {
				meta.CacheMisses++
				res, err := c.tts.Synthesize(ctx, plain, voice)
				if err != nil {
					var te *teterr.Error
					if ok := asTetErr(err, &te); ok {
						return nil, nil, te.AtSegment(i, j)
					}
					return nil, nil, fmt.Errorf("tts failed at scene %d segment %d: %w", i, j, err)
				}
				audio = res.Audio
				duration = res.Duration
				if duration == 0 {
					duration = c.tts.EstimateDuration(plain, voice)
				}
				if c.useCache {
					if err := c.cache.Put(plain, voice, ext, audio); err != nil {
						return nil, nil, err
					}
				}
			}

			path := filepath.Join(c.outputDir, "narrations",
				fmt.Sprintf("scene_%03d_seg_%03d%s", i, j, ext))
			if err := os.WriteFile(path, audio, 0o644); err != nil {
				return nil, nil, teterr.Wrap(teterr.CacheIO, err, "cannot write narration %s", path)
			}

			all[i][j] = narration{path: path, duration: duration, text: seg.Text}
			meta.GeneratedAssets = append(meta.GeneratedAssets, path)
		}
	}

	if total := meta.CacheHits + meta.CacheMisses; total > 0 {
		c.logger.Info().
			Int("hits", meta.CacheHits).
			Int("total", total).
			Msgf("tts cache: %d/%d hits (%d%%)", meta.CacheHits, total, meta.CacheHits*100/total)
	}
	return all, meta, nil
}

// computeTimings walks scenes in order and assigns absolute times: each
// segment starts subtitle_padding after the cursor and advances it by the
// clip length plus padding, pause_after, and the segment gap between
// consecutive segments. Scenes advance by pause_after plus the scene gap.
func (c *Compiler) computeTimings(views []sceneView, narrations [][]narration) []SceneTiming {
	timings := make([]SceneTiming, len(views))
	t := 0.0

	for i, v := range views {
		scene := v.scene
		padding := v.timing.SubtitlePadding
		st := SceneTiming{Index: i, StartTime: t}

		if len(scene.Narrations) == 0 {
			st.EndTime = t + *scene.Duration
			t = st.EndTime
		} else {
			for j := range scene.Narrations {
				seg := &scene.Narrations[j]
				segStart := t + padding
				segEnd := segStart + narrations[i][j].duration
				st.Segments = append(st.Segments, SegmentTiming{
					Index:     j,
					StartTime: segStart,
					EndTime:   segEnd,
					Path:      narrations[i][j].path,
					Text:      seg.Text,
				})
				t = segEnd + padding + seg.PauseAfter
				if j < len(scene.Narrations)-1 {
					t += v.timing.DefaultSegmentGap
				}
			}
			st.EndTime = t
		}

		timings[i] = st
		t += scene.PauseAfter
		if i < len(views)-1 {
			t += v.timing.DefaultSceneGap
		}
	}
	return timings
}

// buildVideoLayers emits one base-track layer per scene. Layers extend to
// the next scene's start so inter-scene gaps stay covered, plus the
// overlap a transition consumes.
func (c *Compiler) buildVideoLayers(ctx context.Context, views []sceneView, timings []SceneTiming) ([]project.VisualLayer, error) {
	layers := make([]project.VisualLayer, len(views))

	for i, v := range views {
		scene := v.scene
		assetPath, err := c.assets.Resolve(ctx, scene.Visual)
		if err != nil {
			var te *teterr.Error
			if ok := asTetErr(err, &te); ok {
				return nil, te.AtScene(i)
			}
			return nil, fmt.Errorf("scene %d: %w", i, err)
		}

		end := timings[i].EndTime
		if i < len(views)-1 {
			end = timings[i+1].StartTime
			if next := views[i+1].transition; next != nil {
				end += next.Duration
			}
		}

		stack, _ := c.stacks.Lookup(v.effect)
		layer := project.VisualLayer{
			Path:       assetPath,
			StartTime:  timings[i].StartTime,
			EndTime:    end,
			Transition: v.transition,
		}
		if scene.Visual.Kind() == script.AssetVideo {
			layer.Kind = project.KindVideo
			layer.Effects = stack.Video
			layer.Loop = true
			layer.Volume = 1.0
			if scene.MuteVideo {
				layer.Volume = 0
			}
		} else {
			layer.Kind = project.KindImage
			layer.Effects = stack.Image
		}
		layers[i] = layer
	}
	return layers, nil
}

// buildAudioLayers emits narration clips, sound effects, and background
// music. An EndTime of zero means the clip plays its natural length.
func (c *Compiler) buildAudioLayers(s *script.Script, views []sceneView, timings []SceneTiming) []project.AudioLayer {
	var layers []project.AudioLayer

	for _, st := range timings {
		for _, seg := range st.Segments {
			layers = append(layers, project.AudioLayer{
				Path:      seg.Path,
				StartTime: seg.StartTime,
				EndTime:   seg.EndTime,
				Volume:    1.0,
			})
		}
	}

	for i, v := range views {
		for _, se := range v.scene.SoundEffects {
			layers = append(layers, project.AudioLayer{
				Path:      se.Path,
				StartTime: timings[i].StartTime + se.Offset,
				Volume:    se.Volume,
			})
		}
	}

	total := 0.0
	if len(timings) > 0 {
		total = timings[len(timings)-1].EndTime
	}

	switch {
	case len(s.BGMSections) > 0:
		for _, sec := range s.BGMSections {
			from := sec.SceneRange.From
			to := sec.SceneRange.To
			if from >= len(timings) {
				continue
			}
			if to >= len(timings) {
				to = len(timings) - 1
			}
			loop := true
			if sec.Loop != nil {
				loop = *sec.Loop
			}
			layers = append(layers, project.AudioLayer{
				Path:      sec.Path,
				StartTime: timings[from].StartTime,
				EndTime:   timings[to].EndTime,
				Volume:    sec.Volume,
				FadeIn:    sec.FadeIn,
				FadeOut:   sec.FadeOut,
				Loop:      loop,
			})
		}
	case s.BGM != nil:
		layers = append(layers, project.AudioLayer{
			Path:      s.BGM.Path,
			StartTime: 0,
			EndTime:   total,
			Volume:    s.BGM.Volume,
			FadeIn:    s.BGM.FadeIn,
			FadeOut:   s.BGM.FadeOut,
			Loop:      true,
		})
	}
	return layers
}

// buildSubtitleLayers emits one item per segment, padded outward by the
// scene's subtitle padding. Consecutive segments sharing a resolved style
// stay in one layer; a style change starts a new one.
func (c *Compiler) buildSubtitleLayers(s *script.Script, views []sceneView, timings []SceneTiming) []project.SubtitleLayer {
	var layers []project.SubtitleLayer
	var current *project.SubtitleLayer
	currentKey := ""

	for i, v := range views {
		padding := v.timing.SubtitlePadding
		for _, seg := range timings[i].Segments {
			style := c.segmentSubtitleStyle(s, v, seg.Index)
			key := styleKey(style)
			if current == nil || key != currentKey {
				layers = append(layers, project.SubtitleLayer{
					Style:  style,
					Styles: s.SubtitleStyles,
				})
				current = &layers[len(layers)-1]
				currentKey = key
			}
			current.Items = append(current.Items, project.SubtitleItem{
				Text:      seg.Text,
				StartTime: seg.StartTime - padding,
				EndTime:   seg.EndTime + padding,
			})
		}
	}
	return layers
}

// segmentSubtitleStyle picks the style for one segment: the subtitle style
// of the first visible character speaking in it, else the scene's resolved
// style.
func (c *Compiler) segmentSubtitleStyle(s *script.Script, v sceneView, segIdx int) script.SubtitleStyleConfig {
	if segIdx < len(v.scene.Narrations) {
		for _, st := range v.scene.Narrations[segIdx].CharacterStates {
			if !st.Shown() {
				continue
			}
			if def, ok := s.Characters[st.CharacterID]; ok && def.SubtitleStyle != nil {
				return *def.SubtitleStyle
			}
		}
	}
	return v.style
}

// buildStampLayers resolves stamp paths through the asset resolver, so
// qr: specs work for stamps the same way they do for visuals.
func (c *Compiler) buildStampLayers(ctx context.Context, views []sceneView, timings []SceneTiming) ([]project.StampLayer, error) {
	var layers []project.StampLayer
	for i, v := range views {
		for _, st := range v.scene.Stamps {
			path, err := c.assets.Resolve(ctx, script.Visual{Path: st.Path})
			if err != nil {
				var te *teterr.Error
				if ok := asTetErr(err, &te); ok {
					return nil, te.AtScene(i)
				}
				return nil, fmt.Errorf("scene %d stamp: %w", i, err)
			}
			start := timings[i].StartTime + st.Offset
			end := timings[i].EndTime
			if st.Duration > 0 {
				end = start + st.Duration
			}
			layers = append(layers, project.StampLayer{
				Path:      path,
				StartTime: start,
				EndTime:   end,
				Position:  st.Position,
				X:         st.X,
				Y:         st.Y,
				Scale:     st.Scale,
				Opacity:   st.Opacity,
				Margin:    st.Margin,
			})
		}
	}
	return layers, nil
}
