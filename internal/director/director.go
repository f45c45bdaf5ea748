package director

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/rig2video/internal/config"
	"github.com/ivlev/rig2video/internal/pose"
	"github.com/ivlev/rig2video/internal/rig"
)

const (
	SceneVersion = "1.0"
	CameraName   = "Camera"
	AudioChannel = 1
)

// DefaultCameraOffset keeps the camera to the side, behind and above the
// root. The offset is constant, so the following distance is too.
var DefaultCameraOffset = mgl64.Vec3{8, -12, 3}

// Director sequences a walker rig into a Scene.
type Director struct {
	Rig          *rig.Rig
	Solver       *pose.Solver
	TotalFrames  int
	FrameRate    int
	ForwardSpeed float64
	BPM          float64
	Workers      int
	CameraOffset mgl64.Vec3
	AudioPath    string
	RunID        string
}

// NewDirector creates a Director for the walker character with the fixed
// animation settings of cfg.
func NewDirector(cfg *config.Config) *Director {
	return &Director{
		Rig:          rig.BuildRig(),
		Solver:       pose.NewSolver(cfg.ForwardSpeed, cfg.GaitFrequency),
		TotalFrames:  cfg.TotalFrames,
		FrameRate:    cfg.FrameRate,
		ForwardSpeed: cfg.ForwardSpeed,
		BPM:          cfg.BPM,
		Workers:      cfg.Workers,
		CameraOffset: DefaultCameraOffset,
		AudioPath:    cfg.AudioPath,
		RunID:        cfg.RunID,
	}
}

// Sequence runs every producer in emission order and validates the result.
// Any error aborts the whole scene; nothing partial is returned.
func (d *Director) Sequence(ctx context.Context) (*Scene, error) {
	poses, err := SolveFrames(ctx, d.Solver, d.Rig, d.TotalFrames, d.Workers)
	if err != nil {
		return nil, fmt.Errorf("solve timeline: %w", err)
	}

	scene := &Scene{
		Version:    SceneVersion,
		RunID:      d.RunID,
		Mode:       config.ModeWalker,
		FrameStart: 0,
		FrameEnd:   d.TotalFrames,
		FrameRate:  d.FrameRate,
	}

	scene.Declarations = EmitBindPose(d.Rig)
	scene.Parents = EmitParentLinks(d.Rig)
	scene.Keyframes = TimelineFromPoses(d.Rig, poses)
	scene.Camera = EmitCameraPath(d.Rig.Root(), d.TotalFrames, d.ForwardSpeed, d.CameraOffset)

	if d.AudioPath != "" {
		cue := EmitAudioCue(d.AudioPath)
		scene.Audio = &cue
	}

	if beats := BeatFrames(d.TotalFrames, d.FrameRate, d.BPM); len(beats) > 0 {
		decl, events := EmitBeatStrip(beats, d.TotalFrames, d.ForwardSpeed)
		scene.Declarations = append(scene.Declarations, decl)
		scene.BeatKeyframes = events
	}

	b := BoundsFromPoses(d.Rig, poses)
	scene.Bounds = &b

	if err := scene.Validate(); err != nil {
		return nil, fmt.Errorf("scene order: %w", err)
	}
	return scene, nil
}

// EmitBindPose declares every part in rig order with its bind geometry and
// material. Parent names are carried along but not linked here.
func EmitBindPose(r *rig.Rig) []PartDeclaration {
	decls := make([]PartDeclaration, 0, r.Len())
	for _, p := range r.Parts() {
		decls = append(decls, PartDeclaration{
			Name:     p.Name,
			Location: pose.Round4(p.BindLocation),
			Scale:    pose.Round4(p.BindScale),
			Material: p.Material(),
			Parent:   p.Parent,
		})
	}
	return decls
}

// EmitParentLinks is the second declaration pass: it runs after every part
// exists so a link never names an object that has not been created.
func EmitParentLinks(r *rig.Rig) []ParentLink {
	var links []ParentLink
	for _, p := range r.Parts() {
		if p.IsRoot() {
			continue
		}
		links = append(links, ParentLink{Child: p.Name, Parent: p.Parent})
	}
	return links
}

// EmitTimeline solves frames 0..=totalFrames and flattens them into
// keyframe events.
func EmitTimeline(ctx context.Context, s *pose.Solver, r *rig.Rig, totalFrames, workers int) ([]KeyframeEvent, error) {
	poses, err := SolveFrames(ctx, s, r, totalFrames, workers)
	if err != nil {
		return nil, err
	}
	return TimelineFromPoses(r, poses), nil
}

// TimelineFromPoses emits one location and one rotation event per part per
// frame, frame-major. The root is keyed in world space, every other part in
// its parent's space.
func TimelineFromPoses(r *rig.Rig, frames [][]pose.Pose) []KeyframeEvent {
	events := make([]KeyframeEvent, 0, len(frames)*r.Len()*2)
	for frame, poses := range frames {
		for _, p := range poses {
			space := Local
			if p.Parent == "" {
				space = World
			}
			events = append(events,
				KeyframeEvent{Frame: frame, Part: p.Name, Channel: ChannelLocation, Value: p.Location, Space: space},
				KeyframeEvent{Frame: frame, Part: p.Name, Channel: ChannelRotation, Value: p.Rotation},
			)
		}
	}
	return events
}

// EmitCameraPath keeps the camera at a constant offset from the root while
// the root walks; aiming is a single track-to constraint on the root.
func EmitCameraPath(root rig.Part, totalFrames int, forwardSpeed float64, offset mgl64.Vec3) CameraRig {
	cam := CameraRig{
		Name:   CameraName,
		Target: root.Name,
		Cues:   make([]CameraCue, 0, max(totalFrames+1, 0)),
	}
	base := root.BindLocation.Add(offset)
	for frame := 0; frame <= totalFrames; frame++ {
		loc := base
		loc[pose.TravelAxis] += float64(frame) * forwardSpeed
		cam.Cues = append(cam.Cues, CameraCue{Frame: frame, Location: pose.Round4(loc)})
	}
	return cam
}

// EmitAudioCue places the waveform at the first frame on channel 1.
func EmitAudioCue(waveformPath string) AudioCue {
	return AudioCue{Path: waveformPath, StartFrame: 0, Channel: AudioChannel}
}

// BoundsFromPoses walks every solved frame through forward kinematics and
// returns the world box covering all part origins.
func BoundsFromPoses(r *rig.Rig, frames [][]pose.Pose) Bounds {
	b := Bounds{
		Min: mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	if len(frames) == 0 {
		return Bounds{}
	}

	locals := make([]rig.Transform, r.Len())
	for _, poses := range frames {
		for i, p := range poses {
			locals[i] = p.Transform()
		}
		for _, m := range rig.WorldTransforms(r, locals) {
			b.extend(rig.WorldLocation(m))
		}
	}
	b.Min = pose.Round4(b.Min)
	b.Max = pose.Round4(b.Max)
	return b
}
