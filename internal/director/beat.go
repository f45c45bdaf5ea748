package director

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/rig2video/internal/pose"
	"github.com/ivlev/rig2video/internal/rig"
)

const (
	BeatStripName   = "BeatStrip"
	BeatDecayFrames = 6
	beatRestHeight  = 0.02
	beatPulseHeight = 0.2
	beatStripX      = -1.5
	beatStripWidth  = 0.1
)

// BeatFrames returns the frames in [0, totalFrames] that fall on a beat.
// A tempo faster than one beat per frame has no strip.
func BeatFrames(totalFrames, frameRate int, bpm float64) []int {
	if bpm <= 0 || frameRate <= 0 || totalFrames < 0 {
		return nil
	}
	interval := 60 * float64(frameRate) / bpm
	if !(interval >= 1) || math.IsInf(interval, 0) {
		return nil
	}

	var frames []int
	for k := 0; k <= totalFrames; k++ {
		at := math.Round(float64(k) * interval)
		if at > float64(totalFrames) {
			break
		}
		f := int(at)
		if len(frames) > 0 && f == frames[len(frames)-1] {
			continue
		}
		frames = append(frames, f)
	}
	return frames
}

// EmitBeatStrip declares a flat strip running alongside the walk path and
// keys its height: up on every beat, back to rest BeatDecayFrames later or
// just before the next beat, whichever comes first.
func EmitBeatStrip(beats []int, totalFrames int, forwardSpeed float64) (PartDeclaration, []KeyframeEvent) {
	length := float64(totalFrames)*forwardSpeed + 4
	rest := mgl64.Vec3{beatStripWidth, length / 2, beatRestHeight}
	pulse := mgl64.Vec3{beatStripWidth, length / 2, beatPulseHeight}

	decl := PartDeclaration{
		Name:     BeatStripName,
		Location: pose.Round4(mgl64.Vec3{beatStripX, float64(totalFrames) * forwardSpeed / 2, 0}),
		Scale:    pose.Round4(rest),
		Material: rig.Classify(BeatStripName),
	}

	var events []KeyframeEvent
	for i, f := range beats {
		events = append(events, KeyframeEvent{Frame: f, Part: BeatStripName, Channel: ChannelScale, Value: pose.Round4(pulse), Space: World})

		off := f + BeatDecayFrames
		if i+1 < len(beats) && off >= beats[i+1] {
			off = beats[i+1] - 1
		}
		if off > totalFrames {
			off = totalFrames
		}
		if off > f {
			events = append(events, KeyframeEvent{Frame: off, Part: BeatStripName, Channel: ChannelScale, Value: pose.Round4(rest), Space: World})
		}
	}
	return decl, events
}
