package director

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/rig2video/internal/rig"
)

// Channel is the animated property a keyframe writes.
type Channel string

const (
	ChannelLocation Channel = "location"
	ChannelRotation Channel = "rotation_euler"
	ChannelScale    Channel = "scale"
)

// Space tells the emitter how to read a location value.
type Space string

const (
	World Space = "world"
	Local Space = "local" // relative to the parent
)

// Scene is the complete, ordered event stream handed to the emitter.
// Field order is emission order.
type Scene struct {
	Version    string `yaml:"version"`
	RunID      string `yaml:"run_id,omitempty"`
	Mode       string `yaml:"mode"`
	FrameStart int    `yaml:"frame_start"`
	FrameEnd   int    `yaml:"frame_end"`
	FrameRate  int    `yaml:"frame_rate"`

	Declarations  []PartDeclaration `yaml:"declarations"`
	Parents       []ParentLink      `yaml:"parents,omitempty"`
	Keyframes     []KeyframeEvent   `yaml:"keyframes"`
	Camera        CameraRig         `yaml:"camera"`
	Audio         *AudioCue         `yaml:"audio,omitempty"`
	BeatKeyframes []KeyframeEvent   `yaml:"beat_keyframes,omitempty"`

	Bounds *Bounds `yaml:"bounds,omitempty"`
}

// PartDeclaration creates one object in its bind pose.
type PartDeclaration struct {
	Name     string            `yaml:"name"`
	Location mgl64.Vec3        `yaml:"location,flow"`
	Scale    mgl64.Vec3        `yaml:"scale,flow"`
	Material rig.MaterialClass `yaml:"material"`
	Parent   string            `yaml:"parent,omitempty"` // informational; linking happens in Parents
}

// ParentLink attaches an already declared child to an already declared parent.
type ParentLink struct {
	Child  string `yaml:"child"`
	Parent string `yaml:"parent"`
}

// KeyframeEvent is one sampled channel value of one object at one frame.
type KeyframeEvent struct {
	Frame   int        `yaml:"frame"`
	Part    string     `yaml:"part"`
	Channel Channel    `yaml:"channel"`
	Value   mgl64.Vec3 `yaml:"value,flow"`
	Space   Space      `yaml:"space,omitempty"`
}

// CameraRig is the camera object: per-frame location cues plus either a
// persistent track-to target or a fixed rotation.
type CameraRig struct {
	Name     string      `yaml:"name"`
	Target   string      `yaml:"target,omitempty"`
	Rotation *mgl64.Vec3 `yaml:"rotation,omitempty,flow"`
	Cues     []CameraCue `yaml:"cues"`
}

type CameraCue struct {
	Frame    int        `yaml:"frame"`
	Location mgl64.Vec3 `yaml:"location,flow"`
}

// AudioCue places the waveform file on the sequencer timeline.
type AudioCue struct {
	Path       string `yaml:"path"`
	StartFrame int    `yaml:"start_frame"`
	Channel    int    `yaml:"channel"`
}

// Bounds is the world-space box swept by part origins over the timeline.
type Bounds struct {
	Min mgl64.Vec3 `yaml:"min,flow"`
	Max mgl64.Vec3 `yaml:"max,flow"`
}

func (b *Bounds) extend(p mgl64.Vec3) {
	for i := range p {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

func (b Bounds) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Bounds) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// Validate checks the ordering contract the emitter depends on: objects are
// declared before they are parented or keyed, and keyframe frames never go
// backwards.
func (s *Scene) Validate() error {
	if s.FrameRate <= 0 {
		return fmt.Errorf("frame rate must be > 0, got %d", s.FrameRate)
	}
	if s.FrameEnd < s.FrameStart {
		return fmt.Errorf("frame range %d..%d is empty", s.FrameStart, s.FrameEnd)
	}

	declared := make(map[string]bool, len(s.Declarations))
	for _, d := range s.Declarations {
		if declared[d.Name] {
			return fmt.Errorf("duplicate declaration %q", d.Name)
		}
		declared[d.Name] = true
	}

	for _, l := range s.Parents {
		if !declared[l.Child] {
			return fmt.Errorf("parent link for undeclared child %q", l.Child)
		}
		if !declared[l.Parent] {
			return fmt.Errorf("parent link %q -> undeclared parent %q", l.Child, l.Parent)
		}
	}

	if err := s.checkKeyframes("keyframes", s.Keyframes, declared); err != nil {
		return err
	}
	if err := s.checkKeyframes("beat_keyframes", s.BeatKeyframes, declared); err != nil {
		return err
	}

	if s.Camera.Target != "" && !declared[s.Camera.Target] {
		return fmt.Errorf("camera tracks undeclared %q", s.Camera.Target)
	}
	last := s.FrameStart - 1
	for _, c := range s.Camera.Cues {
		if c.Frame <= last || c.Frame > s.FrameEnd {
			return fmt.Errorf("camera cue at frame %d out of order", c.Frame)
		}
		last = c.Frame
	}
	return nil
}

func (s *Scene) checkKeyframes(what string, events []KeyframeEvent, declared map[string]bool) error {
	last := s.FrameStart
	for i, e := range events {
		if !declared[e.Part] {
			return fmt.Errorf("%s[%d]: undeclared part %q", what, i, e.Part)
		}
		if e.Frame < last || e.Frame > s.FrameEnd {
			return fmt.Errorf("%s[%d]: frame %d out of order (last %d, end %d)", what, i, e.Frame, last, s.FrameEnd)
		}
		last = e.Frame
	}
	return nil
}
