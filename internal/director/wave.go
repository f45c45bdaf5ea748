package director

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/rig2video/internal/config"
	"github.com/ivlev/rig2video/internal/pose"
	"github.com/ivlev/rig2video/internal/rig"
)

// Wave variant: a row of cubes bobbing on a sine wave, each one a bit
// further along the wave than its left neighbour.
const (
	WaveCubes     = 10
	WaveSpacing   = 2.5
	WaveTimeStep  = 0.2
	WavePhaseStep = 0.5
	WaveAmplitude = 3.0
	WaveFrames    = 60
)

var (
	waveCameraLocation = mgl64.Vec3{12, -25, 10}
	waveCameraRotation = mgl64.Vec3{1.1, 0, 0}
)

func WaveCubeName(i int) string {
	return fmt.Sprintf("Cube_%02d", i)
}

// WaveHeight is the z of cube i at frame.
func WaveHeight(i, frame int) float64 {
	return math.Sin(float64(frame)*WaveTimeStep+float64(i)*WavePhaseStep) * WaveAmplitude
}

// EmitWave builds the cube-line scene for frames 0..=totalFrames. Cubes are
// independent objects: no parenting, no audio, a fixed camera.
func EmitWave(cfg *config.Config) (*Scene, error) {
	if cfg.TotalFrames < 0 {
		return nil, fmt.Errorf("%w: total frames %d", pose.ErrInvalidFrame, cfg.TotalFrames)
	}

	rot := waveCameraRotation
	scene := &Scene{
		Version:    SceneVersion,
		RunID:      cfg.RunID,
		Mode:       config.ModeWave,
		FrameStart: 0,
		FrameEnd:   cfg.TotalFrames,
		FrameRate:  cfg.FrameRate,
		Camera: CameraRig{
			Name:     CameraName,
			Rotation: &rot,
			Cues:     []CameraCue{{Frame: 0, Location: waveCameraLocation}},
		},
	}

	for i := 0; i < WaveCubes; i++ {
		name := WaveCubeName(i)
		scene.Declarations = append(scene.Declarations, PartDeclaration{
			Name:     name,
			Location: pose.Round4(mgl64.Vec3{float64(i) * WaveSpacing, 0, 0}),
			Scale:    mgl64.Vec3{1, 1, 1},
			Material: rig.Classify(name),
		})
	}

	b := Bounds{
		Min: mgl64.Vec3{0, 0, -WaveAmplitude},
		Max: mgl64.Vec3{float64(WaveCubes-1) * WaveSpacing, 0, WaveAmplitude},
	}
	scene.Bounds = &b

	for frame := 0; frame <= cfg.TotalFrames; frame++ {
		for i := 0; i < WaveCubes; i++ {
			loc := mgl64.Vec3{float64(i) * WaveSpacing, 0, WaveHeight(i, frame)}
			scene.Keyframes = append(scene.Keyframes, KeyframeEvent{
				Frame:   frame,
				Part:    WaveCubeName(i),
				Channel: ChannelLocation,
				Value:   pose.Round4(loc),
				Space:   World,
			})
		}
	}

	if err := scene.Validate(); err != nil {
		return nil, fmt.Errorf("scene order: %w", err)
	}
	return scene, nil
}
