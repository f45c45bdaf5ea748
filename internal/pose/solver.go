package pose

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/rig2video/internal/rig"
)

var ErrInvalidFrame = errors.New("invalid frame")

// TravelAxis is the index of the axis the root advances along (+Y).
const TravelAxis = 1

// Swing amplitudes, radians for rotation and scene units for location.
const (
	RootSway = 0.05

	LegUpperSwing = 0.6
	LegLowerSwing = 0.3
	ArmUpperSwing = 0.4
	ArmLowerSwing = 0.2
	HeadNod       = 0.05

	LegStride = 0.05
	ArmStride = 0.03
)

// Pose is one part's transform at one frame. Location and rotation of
// non-root parts are local to the parent.
type Pose struct {
	Name     string
	Parent   string
	Location mgl64.Vec3
	Rotation mgl64.Vec3
	Scale    mgl64.Vec3
}

func (p Pose) Transform() rig.Transform {
	return rig.Transform{Location: p.Location, Rotation: p.Rotation, Scale: p.Scale}
}

// Solver derives poses from the frame number alone; it keeps no state
// between calls and is safe for concurrent use.
type Solver struct {
	ForwardSpeed  float64
	GaitFrequency float64
	cycle         int
}

func NewSolver(forwardSpeed, gaitFrequency float64) *Solver {
	s := &Solver{ForwardSpeed: forwardSpeed, GaitFrequency: gaitFrequency}
	if gaitFrequency > 0 {
		n := math.Round(2 * math.Pi / gaitFrequency)
		if n >= 1 && math.Abs(n*gaitFrequency-2*math.Pi) < 1e-9 {
			s.cycle = int(n)
		}
	}
	return s
}

// CycleFrames is the gait cycle length in frames, or 0 if the frequency
// does not divide a full turn into a whole number of frames.
func (s *Solver) CycleFrames() int {
	return s.cycle
}

// gaitAngle reduces the frame into the cycle first so that frames one cycle
// apart produce bit-identical phases.
func (s *Solver) gaitAngle(frame int) float64 {
	if s.cycle > 0 {
		frame %= s.cycle
	}
	return s.GaitFrequency * float64(frame)
}

// SwingPhase is the phase offset of a part within the gait: left and right
// are half a turn apart, and an arm swings against the leg on its side.
func SwingPhase(name string) float64 {
	kind, side := rig.ParseLimb(name)
	phase := 0.0
	if kind == rig.Arm {
		phase = math.Pi
	}
	if side == rig.Right {
		phase += math.Pi
	}
	return math.Mod(phase, 2*math.Pi)
}

// Angle is the full swing argument for a part at a frame.
func (s *Solver) Angle(name string, frame int) float64 {
	return s.gaitAngle(frame) + SwingPhase(name)
}

// Solve returns one pose per part in rig declaration order.
func (s *Solver) Solve(r *rig.Rig, frame, totalFrames int) ([]Pose, error) {
	if frame < 0 || frame > totalFrames {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidFrame, frame, totalFrames)
	}

	poses := make([]Pose, r.Len())
	for i := 0; i < r.Len(); i++ {
		part := r.Part(i)
		var p Pose
		if part.IsRoot() {
			p = s.solveRoot(part, frame)
		} else {
			p = s.solveLimb(part, frame)
		}
		p.Name = part.Name
		p.Parent = part.Parent
		p.Location = Round4(p.Location)
		p.Rotation = Round4(p.Rotation)
		p.Scale = Round4(p.Scale)
		poses[i] = p
	}
	return poses, nil
}

func (s *Solver) solveRoot(part rig.Part, frame int) Pose {
	loc := part.BindLocation
	loc[TravelAxis] += float64(frame) * s.ForwardSpeed
	return Pose{
		Location: loc,
		Rotation: mgl64.Vec3{0, 0, RootSway * math.Sin(s.gaitAngle(frame))},
		Scale:    part.BindScale,
	}
}

func (s *Solver) solveLimb(part rig.Part, frame int) Pose {
	rotAmp, strideAmp := swingAmplitudes(part.Name)
	swing := math.Sin(s.Angle(part.Name, frame))

	loc := part.BindLocation
	loc[TravelAxis] += strideAmp * swing
	return Pose{
		Location: loc,
		Rotation: mgl64.Vec3{rotAmp * swing, 0, 0},
		Scale:    part.BindScale,
	}
}

func swingAmplitudes(name string) (rot, stride float64) {
	kind, _ := rig.ParseLimb(name)
	lower := rig.IsLowerSegment(name)
	switch kind {
	case rig.Leg:
		if lower {
			return LegLowerSwing, 0
		}
		return LegUpperSwing, LegStride
	case rig.Arm:
		if lower {
			return ArmLowerSwing, 0
		}
		return ArmUpperSwing, ArmStride
	case rig.Head:
		return HeadNod, 0
	default:
		return 0, 0
	}
}

// Round4 rounds every component to 4 decimal digits so the emitted text is
// stable across runs and platforms. Negative zero is normalized.
func Round4(v mgl64.Vec3) mgl64.Vec3 {
	for i := range v {
		r := math.Round(v[i]*1e4) / 1e4
		if r == 0 {
			r = 0
		}
		v[i] = r
	}
	return v
}
