package render

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kazuvin/teto/internal/project"
	"github.com/kazuvin/teto/internal/script"
)

func TestCharacterStepCompositesBaseAndKeyframes(t *testing.T) {
	dir := t.TempDir()
	normal := filepath.Join(dir, "normal.png")
	open := filepath.Join(dir, "open.png")
	writeTestPNG(t, normal, 200, 300)
	writeTestPNG(t, open, 200, 300)

	proj := testProject(t, filepath.Join(dir, "v.mp4"), script.SubtitleNone)
	proj.Timeline.CharacterLayers = []project.CharacterLayer{{
		CharacterID: "host",
		Expression:  "normal",
		Path:        normal,
		StartTime:   0,
		EndTime:     1.2,
		Position:    script.CharacterBottomRight,
		Scale:       1.0,
		Opacity:     1.0,
		MouthKeyframes: []project.ExpressionKeyframe{
			{Time: 0.1, Expression: "normal", Path: normal},
			{Time: 0.25, Expression: "open", Path: open},
			{Time: 0.4, Expression: "normal", Path: normal},
		},
	}}

	rc := &Context{Project: proj, Width: 1920, Height: 1080, Workspace: t.TempDir()}
	if err := (&CharacterLayerStep{}).Process(context.Background(), rc); err != nil {
		t.Fatal(err)
	}

	// Base overlay for the whole window plus one open-mouth window; the
	// closed keyframes match the base image and are skipped.
	if len(rc.Overlays) != 2 {
		t.Fatalf("overlays = %d, want 2: %+v", len(rc.Overlays), rc.Overlays)
	}

	base := rc.Overlays[0]
	if base.Path != normal || base.Start != 0 || base.End != 1.2 {
		t.Errorf("base overlay = %+v", base)
	}
	// Bottom-right placement with the 20px margin.
	if base.X != 1920-200-20 || base.Y != 1080-300-20 {
		t.Errorf("base position = (%d, %d)", base.X, base.Y)
	}

	mouth := rc.Overlays[1]
	if mouth.Path != open || mouth.Start != 0.25 || mouth.End != 0.4 {
		t.Errorf("mouth overlay = %+v", mouth)
	}
	// Keyframe overlays sit at the same position as the base.
	if mouth.X != base.X || mouth.Y != base.Y {
		t.Errorf("mouth overlay misplaced: (%d, %d)", mouth.X, mouth.Y)
	}
}

func TestCharacterStepScalesImages(t *testing.T) {
	dir := t.TempDir()
	normal := filepath.Join(dir, "normal.png")
	writeTestPNG(t, normal, 400, 400)

	proj := testProject(t, filepath.Join(dir, "v.mp4"), script.SubtitleNone)
	proj.Timeline.CharacterLayers = []project.CharacterLayer{{
		CharacterID: "host",
		Expression:  "normal",
		Path:        normal,
		StartTime:   0,
		EndTime:     1.2,
		Position:    script.CharacterBottomLeft,
		Scale:       0.5,
		Opacity:     0.9,
	}}

	ws := t.TempDir()
	rc := &Context{Project: proj, Width: 1280, Height: 720, Workspace: ws}
	if err := (&CharacterLayerStep{}).Process(context.Background(), rc); err != nil {
		t.Fatal(err)
	}
	if len(rc.Overlays) != 1 {
		t.Fatalf("overlays = %d", len(rc.Overlays))
	}
	ov := rc.Overlays[0]
	// 400x400 at 0.5 -> 200x200, bottom-left with margin 20.
	if ov.X != 20 || ov.Y != 720-200-20 {
		t.Errorf("scaled position = (%d, %d)", ov.X, ov.Y)
	}
	if !strings.HasPrefix(ov.Path, ws) {
		t.Errorf("scaled image should live in the workspace: %s", ov.Path)
	}
	if ov.Opacity != 0.9 {
		t.Errorf("opacity = %v", ov.Opacity)
	}
}

func TestCharacterAnimationExpressions(t *testing.T) {
	tests := []struct {
		anim  script.CharacterAnimationType
		axisX bool
	}{
		{script.AnimationBounce, false},
		{script.AnimationShake, true},
		{script.AnimationNod, false},
		{script.AnimationSway, true},
		{script.AnimationFloat, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.anim), func(t *testing.T) {
			xExpr, yExpr := animationExprs(script.CharacterAnimation{
				Type: tt.anim, Intensity: 1.0, Speed: 1.0,
			}, 100, 200)
			if tt.axisX {
				if xExpr == "" || yExpr != "" {
					t.Errorf("expected X motion only, got x=%q y=%q", xExpr, yExpr)
				}
				if !strings.Contains(xExpr, "sin(t") {
					t.Errorf("x expression not time-based: %s", xExpr)
				}
			} else {
				if yExpr == "" || xExpr != "" {
					t.Errorf("expected Y motion only, got x=%q y=%q", xExpr, yExpr)
				}
				if !strings.Contains(yExpr, "sin(t") {
					t.Errorf("y expression not time-based: %s", yExpr)
				}
			}
		})
	}

	// Static and scale-based animations produce no motion expressions.
	for _, anim := range []script.CharacterAnimationType{
		script.AnimationNone, script.AnimationBreathe, script.AnimationPulse,
	} {
		x, y := animationExprs(script.CharacterAnimation{Type: anim, Intensity: 1, Speed: 1}, 0, 0)
		if x != "" || y != "" {
			t.Errorf("%s should be static, got x=%q y=%q", anim, x, y)
		}
	}
}

func TestKeyframeWindows(t *testing.T) {
	frames := []project.ExpressionKeyframe{
		{Time: 0.0, Expression: "closed", Path: "c.png"},
		{Time: 0.5, Expression: "open", Path: "o.png"},
		{Time: 1.0, Expression: "closed", Path: "c.png"},
	}
	windows := keyframeWindows(frames, 2.0)
	if len(windows) != 3 {
		t.Fatalf("windows = %d, want 3", len(windows))
	}
	if windows[1].start != 0.5 || windows[1].end != 1.0 || windows[1].path != "o.png" {
		t.Errorf("middle window = %+v", windows[1])
	}
	if windows[2].end != 2.0 {
		t.Errorf("last window must extend to layer end, got %v", windows[2].end)
	}
}
