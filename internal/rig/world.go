package rig

import "github.com/go-gl/mathgl/mgl64"

// Transform is a part's local transform in Blender's conventions: XYZ Euler
// rotation in radians.
type Transform struct {
	Location mgl64.Vec3
	Rotation mgl64.Vec3
	Scale    mgl64.Vec3
}

// Matrix composes T * Rz * Ry * Rx. Scale is left out because the emitter
// applies bind scale to the mesh data, so children never inherit it.
func (t Transform) Matrix() mgl64.Mat4 {
	m := mgl64.Translate3D(t.Location.X(), t.Location.Y(), t.Location.Z())
	m = m.Mul4(mgl64.HomogRotate3DZ(t.Rotation.Z()))
	m = m.Mul4(mgl64.HomogRotate3DY(t.Rotation.Y()))
	m = m.Mul4(mgl64.HomogRotate3DX(t.Rotation.X()))
	return m
}

// WorldTransforms chains local transforms down the hierarchy and returns one
// world matrix per part, indexed like the rig. locals must be in rig order.
func WorldTransforms(r *Rig, locals []Transform) []mgl64.Mat4 {
	worlds := make([]mgl64.Mat4, r.Len())
	done := make([]bool, r.Len())

	var resolve func(i int) mgl64.Mat4
	resolve = func(i int) mgl64.Mat4 {
		if done[i] {
			return worlds[i]
		}
		local := locals[i].Matrix()
		if p := r.ParentIndex(i); p >= 0 {
			worlds[i] = resolve(p).Mul4(local)
		} else {
			worlds[i] = local
		}
		done[i] = true
		return worlds[i]
	}

	for i := range worlds {
		resolve(i)
	}
	return worlds
}

// WorldLocation extracts the translation column of a world matrix.
func WorldLocation(m mgl64.Mat4) mgl64.Vec3 {
	return m.Col(3).Vec3()
}
