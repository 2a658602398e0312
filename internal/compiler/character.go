package compiler

import (
	"hash/fnv"
	"math/rand"

	"github.com/kazuvin/teto/internal/project"
	"github.com/kazuvin/teto/internal/script"
)

// buildCharacterLayers lowers scene character configs into absolutely-timed
// layers. A character changing expression per segment becomes one layer per
// segment, split so the intervals never overlap: the first segment's layer
// starts at the scene start, later ones at their segment start, and the
// last extends to the scene end — or to the next scene's start when the
// same character stays visible there, bridging the inter-scene gap.
func (c *Compiler) buildCharacterLayers(s *script.Script, views []sceneView, timings []SceneTiming) []project.CharacterLayer {
	var layers []project.CharacterLayer
	if len(s.Characters) == 0 {
		return layers
	}

	for i, v := range views {
		scene := v.scene
		if len(scene.Characters) == 0 {
			continue
		}

		var nextStart *float64
		if i < len(timings)-1 {
			t := timings[i+1].StartTime
			nextStart = &t
		}

		for _, cc := range scene.Characters {
			def, ok := s.Characters[cc.CharacterID]
			if !ok || !cc.Shown() {
				continue
			}

			position := def.Position
			if cc.Position != nil {
				position = *cc.Position
			}
			customPos := def.CustomPosition
			if cc.CustomPosition != nil {
				customPos = cc.CustomPosition
			}
			scale := def.Scale
			if cc.Scale != nil {
				scale = *cc.Scale
			}

			continues := characterInScene(s, i+1, cc.CharacterID)
			endOfChar := timings[i].EndTime
			if continues && nextStart != nil {
				endOfChar = *nextStart
			}

			base := project.CharacterLayer{
				CharacterID:    cc.CharacterID,
				Name:           def.Name,
				Position:       position,
				CustomPosition: customPos,
				Scale:          scale,
				Opacity:        1.0,
			}

			if len(timings[i].Segments) == 0 {
				layer := base
				layer.Expression = def.DefaultExpression
				layer.Path, _ = def.ExpressionPath(def.DefaultExpression)
				layer.StartTime = timings[i].StartTime
				layer.EndTime = endOfChar
				layer.Animation = def.DefaultAnimation
				layer.BlinkKeyframes = c.blinkKeyframes(&def, cc.CharacterID, i, layer.StartTime, layer.EndTime, false)
				layers = append(layers, layer)
				continue
			}

			segs := timings[i].Segments
			for si, seg := range segs {
				state := stateFor(&scene.Narrations[si], cc.CharacterID)
				expression := def.DefaultExpression
				animation := def.DefaultAnimation
				if state != nil {
					if !state.Shown() {
						continue
					}
					if state.Expression != "" {
						expression = state.Expression
					}
					if state.Animation != nil {
						animation = *state.Animation
						animation = withAnimationDefaults(animation)
					}
				}

				layer := base
				layer.Expression = expression
				layer.Path, _ = def.ExpressionPath(expression)
				layer.Animation = animation

				if si == 0 {
					layer.StartTime = timings[i].StartTime
				} else {
					layer.StartTime = seg.StartTime
				}
				if si == len(segs)-1 {
					layer.EndTime = endOfChar
				} else {
					layer.EndTime = segs[si+1].StartTime
				}

				layer.MouthKeyframes = mouthKeyframes(&def, seg.StartTime, seg.EndTime)
				layer.BlinkKeyframes = c.blinkKeyframes(&def, cc.CharacterID, i*1000+si, layer.StartTime, layer.EndTime, true)
				layers = append(layers, layer)
			}
		}
	}
	return layers
}

func withAnimationDefaults(a script.CharacterAnimation) script.CharacterAnimation {
	if a.Type == "" {
		a.Type = script.AnimationNone
	}
	if a.Intensity == 0 {
		a.Intensity = 1.0
	}
	if a.Speed == 0 {
		a.Speed = 1.0
	}
	return a
}

func characterInScene(s *script.Script, sceneIdx int, charID string) bool {
	if sceneIdx >= len(s.Scenes) {
		return false
	}
	for _, cc := range s.Scenes[sceneIdx].Characters {
		if cc.CharacterID == charID && cc.Shown() {
			return true
		}
	}
	return false
}

func stateFor(seg *script.NarrationSegment, charID string) *script.CharacterState {
	for i := range seg.CharacterStates {
		if seg.CharacterStates[i].CharacterID == charID {
			return &seg.CharacterStates[i]
		}
	}
	return nil
}

// mouthKeyframes alternates the open and closed mouth expressions at the
// configured interval across the narration window — no waveform or phoneme
// analysis, just the paku-paku cadence. The mouth is closed at both ends.
func mouthKeyframes(def *script.CharacterDefinition, narrStart, narrEnd float64) []project.ExpressionKeyframe {
	if def.Mouth == nil || narrEnd <= narrStart {
		return nil
	}
	openPath, _ := def.ExpressionPath(def.Mouth.OpenExpression)
	closedPath, _ := def.ExpressionPath(def.Mouth.ClosedExpression)

	frames := []project.ExpressionKeyframe{
		{Time: narrStart, Expression: def.Mouth.ClosedExpression, Path: closedPath},
	}
	isOpen := false
	t := narrStart
	for {
		t += def.Mouth.Interval / 2
		if t >= narrEnd {
			break
		}
		isOpen = !isOpen
		if isOpen {
			frames = append(frames, project.ExpressionKeyframe{
				Time: t, Expression: def.Mouth.OpenExpression, Path: openPath,
			})
		} else {
			frames = append(frames, project.ExpressionKeyframe{
				Time: t, Expression: def.Mouth.ClosedExpression, Path: closedPath,
			})
		}
	}
	frames = append(frames, project.ExpressionKeyframe{
		Time: narrEnd, Expression: def.Mouth.ClosedExpression, Path: closedPath,
	})
	return frames
}

// blinkKeyframes flashes the eyes-closed expression at random intervals.
// The generator is seeded from the character and its slot in the script so
// compiling the same script twice yields identical projects; speech
// stretches the interval to keep blinks out of the way of the mouth.
func (c *Compiler) blinkKeyframes(def *script.CharacterDefinition, charID string, slot int, start, end float64, speaking bool) []project.ExpressionKeyframe {
	if def.Blink == nil || end <= start {
		return nil
	}
	closedPath, _ := def.ExpressionPath(def.Blink.ClosedExpression)
	restPath, _ := def.ExpressionPath(def.DefaultExpression)

	h := fnv.New64a()
	h.Write([]byte(charID))
	rng := rand.New(rand.NewSource(int64(h.Sum64()) ^ int64(slot)))

	suppress := def.Blink.SuppressDuringSpeech == nil || *def.Blink.SuppressDuringSpeech

	var frames []project.ExpressionKeyframe
	t := start
	for {
		interval := def.Blink.IntervalMin +
			rng.Float64()*(def.Blink.IntervalMax-def.Blink.IntervalMin)
		if speaking && suppress {
			interval *= 1.5
		}
		next := t + interval
		if next+def.Blink.Duration >= end {
			break
		}
		frames = append(frames,
			project.ExpressionKeyframe{Time: next, Expression: def.Blink.ClosedExpression, Path: closedPath},
			project.ExpressionKeyframe{Time: next + def.Blink.Duration, Expression: def.DefaultExpression, Path: restPath},
		)
		t = next + def.Blink.Duration
	}
	return frames
}
