package rig

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// LimbKind is the gait role of a part, parsed from its name.
type LimbKind int

const (
	Body LimbKind = iota
	Head
	Arm
	Leg
)

type Side int

const (
	Center Side = iota
	Left
	Right
)

// ParseLimb reads the gait role from a part name: "ArmL_Upper" is a left
// arm, "LegR_Lower" a right leg, "Head" a centered head. The side is the
// letter right after the kind keyword.
func ParseLimb(name string) (LimbKind, Side) {
	for _, k := range []struct {
		key  string
		kind LimbKind
	}{
		{"Head", Head},
		{"Arm", Arm},
		{"Leg", Leg},
	} {
		i := strings.Index(name, k.key)
		if i < 0 {
			continue
		}
		rest := name[i+len(k.key):]
		switch {
		case strings.HasPrefix(rest, "L"):
			return k.kind, Left
		case strings.HasPrefix(rest, "R"):
			return k.kind, Right
		default:
			return k.kind, Center
		}
	}
	return Body, Center
}

// IsLowerSegment reports whether the part is the distal half of a limb.
func IsLowerSegment(name string) bool {
	return strings.HasSuffix(name, "_Lower")
}

// BuildRig returns the walker character. Child locations are local to the
// parent; the torso sits at hip height so the feet touch z=0.
func BuildRig() *Rig {
	limb := mgl64.Vec3{0.12, 0.12, 0.25}
	parts := []Part{
		{Name: RootName, BindLocation: mgl64.Vec3{0, 0, 1.6}, BindScale: mgl64.Vec3{0.45, 0.25, 0.6}},
		{Name: "Head", BindLocation: mgl64.Vec3{0, 0, 0.95}, BindScale: mgl64.Vec3{0.25, 0.25, 0.25}, Parent: RootName},

		{Name: "ArmL_Upper", BindLocation: mgl64.Vec3{0.6, 0, 0.35}, BindScale: limb, Parent: RootName},
		{Name: "ArmL_Lower", BindLocation: mgl64.Vec3{0, 0, -0.55}, BindScale: limb, Parent: "ArmL_Upper"},
		{Name: "ArmR_Upper", BindLocation: mgl64.Vec3{-0.6, 0, 0.35}, BindScale: limb, Parent: RootName},
		{Name: "ArmR_Lower", BindLocation: mgl64.Vec3{0, 0, -0.55}, BindScale: limb, Parent: "ArmR_Upper"},

		{Name: "LegL_Upper", BindLocation: mgl64.Vec3{0.22, 0, -0.85}, BindScale: limb, Parent: RootName},
		{Name: "LegL_Lower", BindLocation: mgl64.Vec3{0, 0, -0.5}, BindScale: limb, Parent: "LegL_Upper"},
		{Name: "LegR_Upper", BindLocation: mgl64.Vec3{-0.22, 0, -0.85}, BindScale: limb, Parent: RootName},
		{Name: "LegR_Lower", BindLocation: mgl64.Vec3{0, 0, -0.5}, BindScale: limb, Parent: "LegR_Upper"},
	}

	r, err := New(parts)
	if err != nil {
		// Static table; a failure here is a programming error.
		panic(err)
	}
	return r
}
