package renderer

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/rig2video/internal/director"
)

// cueTolerance is one step of the 4-decimal emission.
const cueTolerance = 0.0001

// InterpolateCues returns the camera location at a (possibly fractional)
// frame by linear interpolation between cues
func InterpolateCues(cues []director.CameraCue, frame float64) mgl64.Vec3 {
	if len(cues) == 0 {
		return mgl64.Vec3{}
	}

	// Before the first cue or after the last one the camera holds still
	if frame <= float64(cues[0].Frame) {
		return cues[0].Location
	}
	if frame >= float64(cues[len(cues)-1].Frame) {
		return cues[len(cues)-1].Location
	}

	// Find surrounding cues
	var prev, next director.CameraCue
	for i := 0; i < len(cues)-1; i++ {
		if frame >= float64(cues[i].Frame) && frame < float64(cues[i+1].Frame) {
			prev = cues[i]
			next = cues[i+1]
			break
		}
	}

	span := float64(next.Frame - prev.Frame)
	if span == 0 {
		return prev.Location
	}
	t := (frame - float64(prev.Frame)) / span

	return lerp(prev.Location, next.Location, t)
}

// SimplifyCues drops every cue that linear interpolation between the kept
// neighbours reproduces within tolerance. First and last cues are always
// kept, so a camera moving at constant speed collapses to two keys.
func SimplifyCues(cues []director.CameraCue, tolerance float64) []director.CameraCue {
	if len(cues) <= 2 {
		return cues
	}

	kept := []director.CameraCue{cues[0]}
	anchor := 0
	for i := 2; i < len(cues); i++ {
		segment := []director.CameraCue{cues[anchor], cues[i]}
		ok := true
		for j := anchor + 1; j < i; j++ {
			p := InterpolateCues(segment, float64(cues[j].Frame))
			if !within(p, cues[j].Location, tolerance) {
				ok = false
				break
			}
		}
		if !ok {
			anchor = i - 1
			kept = append(kept, cues[anchor])
		}
	}
	kept = append(kept, cues[len(cues)-1])
	return kept
}

func within(a, b mgl64.Vec3, tolerance float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tolerance {
			return false
		}
	}
	return true
}

// lerp performs linear interpolation between a and b
func lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
