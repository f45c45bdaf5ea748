package renderer

import (
	"context"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/rig2video/internal/config"
	"github.com/ivlev/rig2video/internal/director"
)

func walkerScene(t *testing.T, frames int) *director.Scene {
	t.Helper()
	cfg := config.Default()
	cfg.TotalFrames = frames
	cfg.Workers = 2
	cfg.RunID = "test-run"
	scene, err := director.NewDirector(cfg).Sequence(context.Background())
	if err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}
	return scene
}

func TestInterpolateCues(t *testing.T) {
	cues := []director.CameraCue{
		{Frame: 0, Location: mgl64.Vec3{0, 0, 0}},
		{Frame: 10, Location: mgl64.Vec3{10, 0, 0}},
		{Frame: 20, Location: mgl64.Vec3{10, 10, 0}},
	}

	tests := []struct {
		frame float64
		want  mgl64.Vec3
	}{
		{-5, mgl64.Vec3{0, 0, 0}},  // Before first cue
		{0, mgl64.Vec3{0, 0, 0}},   // First cue
		{5, mgl64.Vec3{5, 0, 0}},   // Midpoint
		{10, mgl64.Vec3{10, 0, 0}}, // Second cue
		{15, mgl64.Vec3{10, 5, 0}},
		{25, mgl64.Vec3{10, 10, 0}}, // After last cue
	}

	for _, tt := range tests {
		got := InterpolateCues(cues, tt.frame)
		if !within(got, tt.want, 1e-9) {
			t.Errorf("At frame %.1f: expected %v, got %v", tt.frame, tt.want, got)
		}
	}
}

func TestSimplifyCues(t *testing.T) {
	var straight []director.CameraCue
	for f := 0; f <= 100; f++ {
		straight = append(straight, director.CameraCue{Frame: f, Location: mgl64.Vec3{8, -12 + float64(f)*0.1, 4.6}})
	}
	got := SimplifyCues(straight, cueTolerance)
	if len(got) != 2 || got[0].Frame != 0 || got[1].Frame != 100 {
		t.Errorf("straight path should collapse to endpoints, got %d cues", len(got))
	}

	// A corner must survive.
	corner := []director.CameraCue{
		{Frame: 0, Location: mgl64.Vec3{0, 0, 0}},
		{Frame: 1, Location: mgl64.Vec3{1, 0, 0}},
		{Frame: 2, Location: mgl64.Vec3{2, 0, 0}},
		{Frame: 3, Location: mgl64.Vec3{2, 1, 0}},
		{Frame: 4, Location: mgl64.Vec3{2, 2, 0}},
	}
	got = SimplifyCues(corner, cueTolerance)
	frames := []int{}
	for _, c := range got {
		frames = append(frames, c.Frame)
	}
	if len(frames) != 3 || frames[1] != 2 {
		t.Errorf("expected cues at 0,2,4, got %v", frames)
	}

	for _, c := range corner {
		if p := InterpolateCues(got, float64(c.Frame)); !within(p, c.Location, cueTolerance) {
			t.Errorf("simplified path misses frame %d: %v vs %v", c.Frame, p, c.Location)
		}
	}
}

func TestGenerateScriptSectionOrder(t *testing.T) {
	script := GenerateScript(walkerScene(t, 30), DefaultOptions())

	order := []string{
		"import bpy",
		"# run test-run (walker)",
		"scene.frame_end = 30",
		"# --- Materials ---",
		"objs[\"Torso\"] = make_part(",
		"objs[\"LegR_Lower\"] = make_part(",
		"objs[\"BeatStrip\"] = make_part(",
		"# --- Parenting ---",
		"objs[\"Head\"].parent = objs[\"Torso\"]",
		"# --- Animation ---",
		"key(\"Torso\", 'location', (0.0000, 0.0000, 1.6000), 0)",
		"key(\"Torso\", 'location', (0.0000, 3.0000, 1.6000), 30)",
		"# --- Ground ---",
		"# --- Setup Camera ---",
		"track.target = objs[\"Torso\"]",
		"# --- Audio ---",
		"channel=1, frame_start=0",
		"# --- Beat strip ---",
		"key(\"BeatStrip\", 'scale',",
		"scene.render.ffmpeg.audio_codec = 'AAC'",
		"scene.render.filepath = \"//render_output\"",
	}

	pos := 0
	for _, marker := range order {
		i := strings.Index(script[pos:], marker)
		if i < 0 {
			t.Fatalf("marker %q missing or out of order", marker)
		}
		pos += i + len(marker)
	}

	if !strings.Contains(script, "objs[\"BeatStrip\"] = make_part(\"BeatStrip\", (-1.5000, 1.5000, 0.0000), (0.1000, 3.5000, 0.0200), \"secondary_accent\", False)") {
		t.Error("beat strip should keep its object scale")
	}
	if !strings.Contains(script, "\"primary_accent\", True)") {
		t.Error("rig parts should bake their scale")
	}
	if strings.Contains(script, "-0.0000") {
		t.Error("negative zero leaked into the script")
	}
}

func TestGenerateScriptDeterministic(t *testing.T) {
	a := GenerateScript(walkerScene(t, 45), DefaultOptions())
	b := GenerateScript(walkerScene(t, 45), DefaultOptions())
	if a != b {
		t.Error("script output differs between identical runs")
	}
}

func TestGenerateScriptCameraSimplified(t *testing.T) {
	scene := walkerScene(t, 120)

	simple := GenerateScript(scene, DefaultOptions())
	if n := strings.Count(simple, "camera_object.keyframe_insert"); n != 2 {
		t.Errorf("expected 2 camera keys, got %d", n)
	}

	opts := DefaultOptions()
	opts.SimplifyCamera = false
	full := GenerateScript(scene, opts)
	if n := strings.Count(full, "camera_object.keyframe_insert"); n != 121 {
		t.Errorf("expected 121 camera keys, got %d", n)
	}
}

func TestGenerateScriptWave(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = config.ModeWave
	cfg.TotalFrames = director.WaveFrames
	scene, err := director.EmitWave(cfg)
	if err != nil {
		t.Fatal(err)
	}

	script := GenerateScript(scene, DefaultOptions())
	for _, want := range []string{
		"scene.frame_end = 60",
		"camera_object.rotation_euler = (1.1000, 0.0000, 0.0000)",
		"camera_object.location = (12.0000, -25.0000, 10.0000)",
		"key(\"Cube_00\", 'location', (0.0000, 0.0000, 0.0000), 0)",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("wave script missing %q", want)
		}
	}
	for _, unwanted := range []string{"# --- Parenting ---", "# --- Audio ---", "TRACK_TO", "audio_codec"} {
		if strings.Contains(script, unwanted) {
			t.Errorf("wave script should not contain %q", unwanted)
		}
	}
}

func TestPyString(t *testing.T) {
	if got := pyString(`C:\out\beat.wav`); got != `"C:\\out\\beat.wav"` {
		t.Errorf("pyString: %s", got)
	}
}
