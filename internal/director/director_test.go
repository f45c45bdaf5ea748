package director

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/rig2video/internal/config"
	"github.com/ivlev/rig2video/internal/pose"
	"github.com/ivlev/rig2video/internal/rig"
)

func testConfig(frames int) *config.Config {
	cfg := config.Default()
	cfg.TotalFrames = frames
	cfg.Workers = 4
	cfg.AudioPath = "beat.wav"
	return cfg
}

func TestSequence(t *testing.T) {
	d := NewDirector(testConfig(120))
	scene, err := d.Sequence(context.Background())
	if err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}

	if scene.Version != SceneVersion || scene.FrameEnd != 120 || scene.FrameRate != 60 {
		t.Errorf("unexpected header: %+v", scene)
	}

	parts := d.Rig.Len()
	if len(scene.Declarations) != parts+1 {
		t.Errorf("expected %d declarations (rig + beat strip), got %d", parts+1, len(scene.Declarations))
	}
	if len(scene.Parents) != parts-1 {
		t.Errorf("expected %d parent links, got %d", parts-1, len(scene.Parents))
	}
	if want := 121 * parts * 2; len(scene.Keyframes) != want {
		t.Errorf("expected %d keyframes, got %d", want, len(scene.Keyframes))
	}
	if len(scene.Camera.Cues) != 121 || scene.Camera.Target != rig.RootName {
		t.Errorf("camera: %d cues, target %q", len(scene.Camera.Cues), scene.Camera.Target)
	}
	if scene.Audio == nil || scene.Audio.Path != "beat.wav" || scene.Audio.StartFrame != 0 || scene.Audio.Channel != 1 {
		t.Errorf("unexpected audio cue: %+v", scene.Audio)
	}
	if len(scene.BeatKeyframes) == 0 {
		t.Error("expected beat strip keyframes")
	}
	if scene.Bounds == nil || scene.Bounds.Max.Y() < 12 {
		t.Errorf("bounds should cover the walk: %+v", scene.Bounds)
	}

	t.Logf("Scene: %d declarations, %d keyframes, %d beat keys", len(scene.Declarations), len(scene.Keyframes), len(scene.BeatKeyframes))
}

func TestSequenceWithoutAudio(t *testing.T) {
	cfg := testConfig(10)
	cfg.AudioPath = ""
	cfg.BPM = 0
	scene, err := NewDirector(cfg).Sequence(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if scene.Audio != nil || len(scene.BeatKeyframes) != 0 {
		t.Error("no audio cue or beat strip expected")
	}
}

func TestSequenceRejectsNegativeFrames(t *testing.T) {
	_, err := NewDirector(testConfig(-1)).Sequence(context.Background())
	if !errors.Is(err, pose.ErrInvalidFrame) {
		t.Errorf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestParentLinksFollowDeclarations(t *testing.T) {
	r := rig.BuildRig()
	decls := EmitBindPose(r)
	links := EmitParentLinks(r)

	declared := map[string]bool{}
	for i, d := range decls {
		if d.Name != r.Part(i).Name {
			t.Errorf("declaration %d is %s, want rig order %s", i, d.Name, r.Part(i).Name)
		}
		if d.Material != rig.Classify(d.Name) {
			t.Errorf("%s: material %v", d.Name, d.Material)
		}
		declared[d.Name] = true
	}
	for _, l := range links {
		if !declared[l.Child] || !declared[l.Parent] {
			t.Errorf("link %s -> %s references an undeclared part", l.Child, l.Parent)
		}
		if l.Child == rig.RootName {
			t.Error("root must not be parented")
		}
	}
}

func TestTimelineSpaces(t *testing.T) {
	r := rig.BuildRig()
	s := pose.NewSolver(0.1, 2*math.Pi/60)
	events, err := EmitTimeline(context.Background(), s, r, 30, 3)
	if err != nil {
		t.Fatal(err)
	}

	last := 0
	for _, e := range events {
		if e.Frame < last {
			t.Fatalf("frames go backwards at %+v", e)
		}
		last = e.Frame
		if e.Channel != ChannelLocation {
			continue
		}
		want := Local
		if e.Part == rig.RootName {
			want = World
			if math.Abs(e.Value.Y()-float64(e.Frame)*0.1) > 1e-4 {
				t.Errorf("root world y at frame %d = %f", e.Frame, e.Value.Y())
			}
		}
		if e.Space != want {
			t.Errorf("%s frame %d: space %s, want %s", e.Part, e.Frame, e.Space, want)
		}
	}
}

func TestSolveFramesMatchesSequential(t *testing.T) {
	r := rig.BuildRig()
	s := pose.NewSolver(0.1, 2*math.Pi/60)

	parallel, err := SolveFrames(context.Background(), s, r, 300, 8)
	if err != nil {
		t.Fatal(err)
	}
	for f := 0; f <= 300; f++ {
		seq, _ := s.Solve(r, f, 300)
		if !reflect.DeepEqual(seq, parallel[f]) {
			t.Fatalf("frame %d differs between parallel and sequential solve", f)
		}
	}
}

func TestSolveFramesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SolveFrames(ctx, pose.NewSolver(0.1, 0.1), rig.BuildRig(), 100, 2)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCameraKeepsDistance(t *testing.T) {
	r := rig.BuildRig()
	s := pose.NewSolver(0.1, 2*math.Pi/60)
	cam := EmitCameraPath(r.Root(), 600, 0.1, DefaultCameraOffset)

	want := DefaultCameraOffset.Len()
	for _, cue := range cam.Cues {
		poses, err := s.Solve(r, cue.Frame, 600)
		if err != nil {
			t.Fatal(err)
		}
		root := poses[r.RootIndex()].Location
		if d := cue.Location.Sub(root).Len(); math.Abs(d-want) > 1e-3 {
			t.Errorf("frame %d: distance %f, want %f", cue.Frame, d, want)
		}
		if trail := cue.Location.Y() - root.Y(); math.Abs(trail-DefaultCameraOffset.Y()) > 1e-3 {
			t.Errorf("frame %d: travel-axis gap %f", cue.Frame, trail)
		}
	}
}

func TestCameraPathNegativeFrames(t *testing.T) {
	cam := EmitCameraPath(rig.BuildRig().Root(), -5, 0.1, DefaultCameraOffset)
	if len(cam.Cues) != 0 {
		t.Errorf("expected no cues, got %d", len(cam.Cues))
	}
}

func TestBeatFrames(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		fps    int
		bpm    float64
		expect []int
	}{
		{"120bpm", 120, 60, 120, []int{0, 30, 60, 90, 120}},
		{"90bpm", 100, 60, 90, []int{0, 40, 80}},
		{"100bpm rounding", 60, 30, 100, []int{0, 18, 36, 54}},
		{"no bpm", 100, 60, 0, nil},
		{"infinite bpm", 10, 60, math.Inf(1), nil},
		{"nan bpm", 10, 60, math.NaN(), nil},
		{"faster than a frame", 10, 60, 7200.5, nil},
		{"huge bpm", 10, 60, 1e308, nil},
		{"one beat per frame", 3, 60, 3600, []int{0, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BeatFrames(tt.total, tt.fps, tt.bpm)
			if !reflect.DeepEqual(got, tt.expect) {
				t.Errorf("got %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestEmitBeatStrip(t *testing.T) {
	beats := []int{0, 30, 60}
	decl, events := EmitBeatStrip(beats, 62, 0.1)
	if decl.Name != BeatStripName || decl.Material != rig.SecondaryAccent {
		t.Errorf("unexpected declaration %+v", decl)
	}

	wantFrames := []int{0, 6, 30, 36, 60, 62}
	if len(events) != len(wantFrames) {
		t.Fatalf("expected %d events, got %d", len(wantFrames), len(events))
	}
	for i, e := range events {
		if e.Frame != wantFrames[i] {
			t.Errorf("event %d at frame %d, want %d", i, e.Frame, wantFrames[i])
		}
		pulse := i%2 == 0
		if (e.Value.Z() == beatPulseHeight) != pulse {
			t.Errorf("event %d: height %f", i, e.Value.Z())
		}
	}
}

func TestEmitWave(t *testing.T) {
	cfg := testConfig(WaveFrames)
	scene, err := EmitWave(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(scene.Declarations) != WaveCubes || len(scene.Parents) != 0 {
		t.Errorf("expected %d unparented cubes", WaveCubes)
	}
	if len(scene.Keyframes) != (WaveFrames+1)*WaveCubes {
		t.Errorf("expected %d keyframes, got %d", (WaveFrames+1)*WaveCubes, len(scene.Keyframes))
	}
	if scene.Camera.Rotation == nil || scene.Camera.Target != "" {
		t.Error("wave camera is fixed, not tracking")
	}

	// Cube 3 at frame 10: sin(2.0 + 1.5) * 3
	want := math.Round(math.Sin(3.5)*3*1e4) / 1e4
	for _, e := range scene.Keyframes {
		if e.Frame == 10 && e.Part == WaveCubeName(3) {
			if e.Value.Z() != want || e.Value.X() != 7.5 {
				t.Errorf("cube 3 frame 10: %v, want z=%f x=7.5", e.Value, want)
			}
		}
	}
}

func TestValidateCatchesBadOrder(t *testing.T) {
	base := func() *Scene {
		return &Scene{
			FrameEnd:     10,
			FrameRate:    60,
			Declarations: []PartDeclaration{{Name: "A"}, {Name: "B"}},
			Parents:      []ParentLink{{Child: "B", Parent: "A"}},
			Keyframes: []KeyframeEvent{
				{Frame: 0, Part: "A", Channel: ChannelLocation},
				{Frame: 1, Part: "B", Channel: ChannelLocation},
			},
		}
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("valid scene rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(s *Scene)
	}{
		{"undeclared parent", func(s *Scene) { s.Parents[0].Parent = "C" }},
		{"undeclared keyed part", func(s *Scene) { s.Keyframes[1].Part = "C" }},
		{"frames backwards", func(s *Scene) { s.Keyframes[0].Frame = 5 }},
		{"frame past end", func(s *Scene) { s.Keyframes[1].Frame = 11 }},
		{"camera target", func(s *Scene) { s.Camera.Target = "C" }},
		{"duplicate", func(s *Scene) { s.Declarations[1].Name = "A" }},
		{"zero frame rate", func(s *Scene) { s.FrameRate = 0 }},
		{"end before start", func(s *Scene) { s.FrameStart = 11 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			if err := s.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSceneWriteRead(t *testing.T) {
	scene, err := NewDirector(testConfig(12)).Sequence(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := WriteScene(scene, path); err != nil {
		t.Fatalf("WriteScene failed: %v", err)
	}
	read, err := ReadScene(path)
	if err != nil {
		t.Fatalf("ReadScene failed: %v", err)
	}

	if !reflect.DeepEqual(scene, read) {
		t.Errorf("scene changed after write/read")
	}
	if read.Declarations[1].Material != rig.Skin {
		t.Errorf("material lost: %v", read.Declarations[1].Material)
	}
}

func TestReadSceneRejectsZeroFrameRate(t *testing.T) {
	scene, err := NewDirector(testConfig(5)).Sequence(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	scene.FrameRate = 0

	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := WriteScene(scene, path); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadScene(path); err == nil {
		t.Error("a dump with frame_rate 0 must not load")
	}
}

func TestBoundsFromPoses(t *testing.T) {
	r := rig.BuildRig()
	s := pose.NewSolver(0.1, 2*math.Pi/60)
	frames, _ := SolveFrames(context.Background(), s, r, 0, 1)

	b := BoundsFromPoses(r, frames)
	if !b.Min.ApproxEqualThreshold(mgl64.Vec3{-0.6, 0, 0.25}, 1e-9) {
		t.Errorf("min %v", b.Min)
	}
	if !b.Max.ApproxEqualThreshold(mgl64.Vec3{0.6, 0, 2.55}, 1e-9) {
		t.Errorf("max %v", b.Max)
	}
}
