package script

import "github.com/kazuvin/teto/internal/teterr"

// Lookups supplies name-existence checks for the registries the script may
// reference. Nil funcs skip the corresponding check.
type Lookups struct {
	EffectExists func(name string) bool
	PresetExists func(name string) bool
}

// Validate checks every invariant that can be decided without I/O and
// returns all violations at once. It must pass before any TTS or asset
// work begins.
func (s *Script) Validate(lk Lookups) error {
	var errs teterr.ValidationErrors

	if len(s.Scenes) == 0 {
		errs.Add(teterr.New(teterr.Validation, "script has no scenes"))
	}
	if err := validateVoice(s.Voice); err != nil {
		errs.Add(err)
	}
	for name, v := range s.VoiceProfiles {
		if err := validateVoice(v); err != nil {
			errs.Add(teterr.New(teterr.Validation, "voice profile %q: %s", name, err.Message))
		}
	}
	if s.Timing.DefaultSegmentGap < 0 || s.Timing.DefaultSceneGap < 0 || s.Timing.SubtitlePadding < 0 {
		errs.Add(teterr.New(teterr.Validation, "timing values must be >= 0"))
	}
	if s.BGM != nil && (s.BGM.Volume < 0 || s.BGM.Volume > 1) {
		errs.Add(teterr.New(teterr.Validation, "bgm volume %.2f outside [0, 1]", s.BGM.Volume))
	}
	for i, sec := range s.BGMSections {
		if sec.SceneRange.To < sec.SceneRange.From || sec.SceneRange.From < 0 {
			errs.Add(teterr.New(teterr.Validation,
				"bgm section %d: scene range %d..%d is invalid", i, sec.SceneRange.From, sec.SceneRange.To))
		}
		if sec.Volume < 0 || sec.Volume > 1 {
			errs.Add(teterr.New(teterr.Validation, "bgm section %d: volume %.2f outside [0, 1]", i, sec.Volume))
		}
	}
	if s.DefaultEffect != "" && lk.EffectExists != nil && !lk.EffectExists(s.DefaultEffect) {
		errs.Add(teterr.New(teterr.Validation, "unknown default effect %q", s.DefaultEffect))
	}
	if s.DefaultPreset != "" && lk.PresetExists != nil && !lk.PresetExists(s.DefaultPreset) {
		errs.Add(teterr.New(teterr.Validation, "unknown default preset %q", s.DefaultPreset))
	}

	for id, def := range s.Characters {
		s.validateCharacter(id, def, &errs)
	}
	for i := range s.Scenes {
		s.validateScene(i, lk, &errs)
	}
	return errs.OrNil()
}

func (s *Script) validateCharacter(id string, def CharacterDefinition, errs *teterr.ValidationErrors) {
	if len(def.Expressions) == 0 {
		errs.Add(teterr.New(teterr.Validation, "character %q declares no expressions", id))
		return
	}
	if _, ok := def.ExpressionPath(def.DefaultExpression); !ok {
		errs.Add(teterr.New(teterr.Validation,
			"character %q: default expression %q is not declared", id, def.DefaultExpression))
	}
	if def.Scale <= 0 || def.Scale > 3.0 {
		errs.Add(teterr.New(teterr.Validation, "character %q: scale %.2f outside (0, 3]", id, def.Scale))
	}
	if def.VoiceProfile != "" {
		if _, ok := s.VoiceProfiles[def.VoiceProfile]; !ok {
			errs.Add(teterr.New(teterr.Validation,
				"character %q: unknown voice profile %q", id, def.VoiceProfile))
		}
	}
	if def.Mouth != nil {
		for _, name := range []string{def.Mouth.OpenExpression, def.Mouth.ClosedExpression} {
			if _, ok := def.ExpressionPath(name); !ok {
				errs.Add(teterr.New(teterr.Validation,
					"character %q: mouth expression %q is not declared", id, name))
			}
		}
		if def.Mouth.Interval < 0 {
			errs.Add(teterr.New(teterr.Validation, "character %q: mouth interval must be >= 0", id))
		}
	}
	if def.Blink != nil {
		if _, ok := def.ExpressionPath(def.Blink.ClosedExpression); !ok {
			errs.Add(teterr.New(teterr.Validation,
				"character %q: blink expression %q is not declared", id, def.Blink.ClosedExpression))
		}
		if def.Blink.IntervalMax < def.Blink.IntervalMin {
			errs.Add(teterr.New(teterr.Validation, "character %q: blink interval range is inverted", id))
		}
	}
}

func (s *Script) validateScene(i int, lk Lookups, errs *teterr.ValidationErrors) {
	sc := &s.Scenes[i]

	if len(sc.Narrations) == 0 {
		if sc.Duration == nil {
			errs.Add(teterr.New(teterr.Validation, "scene without narration requires an explicit duration").AtScene(i))
		} else if *sc.Duration <= 0 {
			errs.Add(teterr.New(teterr.Validation, "duration must be positive, got %.3f", *sc.Duration).AtScene(i))
		}
	}
	if sc.PauseAfter < 0 {
		errs.Add(teterr.New(teterr.Validation, "pause_after must be >= 0").AtScene(i))
	}
	if sc.Visual.Path == "" && sc.Visual.Description == "" {
		errs.Add(teterr.New(teterr.Validation, "visual needs a path or a description").AtScene(i))
	}
	if sc.Visual.Generate != nil && sc.Visual.Description == "" {
		errs.Add(teterr.New(teterr.Validation, "generated visual requires a description prompt").AtScene(i))
	}
	if sc.Voice != nil && sc.VoiceProfile != "" {
		errs.Add(teterr.New(teterr.Validation, "voice and voice_profile are mutually exclusive").AtScene(i))
	}
	if sc.VoiceProfile != "" {
		if _, ok := s.VoiceProfiles[sc.VoiceProfile]; !ok {
			errs.Add(teterr.New(teterr.Validation, "unknown voice profile %q", sc.VoiceProfile).AtScene(i))
		}
	}
	if sc.Voice != nil {
		if err := validateVoice(*sc.Voice); err != nil {
			errs.Add(err.AtScene(i))
		}
	}
	if sc.Effect != "" && lk.EffectExists != nil && !lk.EffectExists(sc.Effect) {
		errs.Add(teterr.New(teterr.Validation, "unknown effect %q", sc.Effect).AtScene(i))
	}
	if sc.Preset != "" && lk.PresetExists != nil && !lk.PresetExists(sc.Preset) {
		errs.Add(teterr.New(teterr.Validation, "unknown preset %q", sc.Preset).AtScene(i))
	}
	for j, se := range sc.SoundEffects {
		if se.Offset < 0 {
			errs.Add(teterr.New(teterr.Validation, "sound effect %d: offset must be >= 0", j).AtScene(i))
		}
		if se.Volume < 0 || se.Volume > 1 {
			errs.Add(teterr.New(teterr.Validation, "sound effect %d: volume %.2f outside [0, 1]", j, se.Volume).AtScene(i))
		}
	}
	for j, st := range sc.Stamps {
		if st.Opacity < 0 || st.Opacity > 1 {
			errs.Add(teterr.New(teterr.Validation, "stamp %d: opacity %.2f outside [0, 1]", j, st.Opacity).AtScene(i))
		}
	}
	for _, cc := range sc.Characters {
		if _, ok := s.Characters[cc.CharacterID]; !ok {
			errs.Add(teterr.New(teterr.Validation, "unknown character %q", cc.CharacterID).AtScene(i))
		}
	}

	for j := range sc.Narrations {
		seg := &sc.Narrations[j]
		if seg.Text == "" {
			errs.Add(teterr.New(teterr.Validation, "narration text is empty").AtSegment(i, j))
		}
		if seg.PauseAfter < 0 {
			errs.Add(teterr.New(teterr.Validation, "pause_after must be >= 0").AtSegment(i, j))
		}
		if seg.Voice != nil && seg.VoiceProfile != "" {
			errs.Add(teterr.New(teterr.Validation, "voice and voice_profile are mutually exclusive").AtSegment(i, j))
		}
		if seg.VoiceProfile != "" {
			if _, ok := s.VoiceProfiles[seg.VoiceProfile]; !ok {
				errs.Add(teterr.New(teterr.Validation, "unknown voice profile %q", seg.VoiceProfile).AtSegment(i, j))
			}
		}
		if seg.Voice != nil {
			if err := validateVoice(*seg.Voice); err != nil {
				errs.Add(err.AtSegment(i, j))
			}
		}
		for _, tag := range MarkupTags(seg.Text) {
			if _, ok := s.SubtitleStyles[tag]; !ok {
				errs.Add(teterr.New(teterr.Validation, "unknown subtitle style tag <%s>", tag).AtSegment(i, j))
			}
		}
		for _, st := range seg.CharacterStates {
			def, ok := s.Characters[st.CharacterID]
			if !ok {
				errs.Add(teterr.New(teterr.Validation, "unknown character %q", st.CharacterID).AtSegment(i, j))
				continue
			}
			if st.Expression != "" {
				if _, ok := def.ExpressionPath(st.Expression); !ok {
					errs.Add(teterr.New(teterr.Validation,
						"character %q has no expression %q", st.CharacterID, st.Expression).AtSegment(i, j))
				}
			}
		}
	}
}

func validateVoice(v VoiceConfig) *teterr.Error {
	if v.Speed < 0.5 || v.Speed > 2.0 {
		return teterr.New(teterr.Validation, "voice speed %.2f outside [0.5, 2.0]", v.Speed)
	}
	if v.Pitch < -20 || v.Pitch > 20 {
		return teterr.New(teterr.Validation, "voice pitch %.1f outside [-20, 20]", v.Pitch)
	}
	return nil
}

// ResolveVoice returns the effective voice for a segment: segment override,
// then scene override, then the voice profile of the first visible
// character speaking in the segment, then the script default. Profile names
// never reach the cache key, only the resolved config does.
func (s *Script) ResolveVoice(scene *Scene, seg *NarrationSegment) VoiceConfig {
	if seg != nil {
		if seg.Voice != nil {
			return *seg.Voice
		}
		if seg.VoiceProfile != "" {
			return s.VoiceProfiles[seg.VoiceProfile]
		}
	}
	if scene.Voice != nil {
		return *scene.Voice
	}
	if scene.VoiceProfile != "" {
		return s.VoiceProfiles[scene.VoiceProfile]
	}
	if seg != nil {
		for _, st := range seg.CharacterStates {
			if !st.Shown() {
				continue
			}
			def, ok := s.Characters[st.CharacterID]
			if !ok || def.VoiceProfile == "" {
				continue
			}
			if v, ok := s.VoiceProfiles[def.VoiceProfile]; ok {
				return v
			}
		}
	}
	return s.Voice
}
