package export

import (
	"github.com/Faultbox/midgard-3mf/pkg/math"
	"github.com/Faultbox/midgard-3mf/pkg/threemf"
)

// identityEps is the tolerance under which a placement is written without a
// transform attribute.
const identityEps = 1e-6

// zUp rotates Y-up coordinates +90 degrees about X: (x, y, z) -> (x, -z, y).
var zUp = math.Mat4{
	1, 0, 0, 0,
	0, 0, 1, 0,
	0, -1, 0, 0,
	0, 0, 0, 1,
}

// yUp is the inverse of zUp.
var yUp = math.Mat4{
	1, 0, 0, 0,
	0, 0, -1, 0,
	0, 1, 0, 0,
	0, 0, 0, 1,
}

// YUpToZUp is a vertex handler that converts a Y-up vertex to the Z-up
// build volume of 3MF.
func YUpToZUp(v threemf.Vertex) threemf.Vertex {
	return threemf.Vertex{X: v.X, Y: -v.Z, Z: v.Y}
}

// ToMatrix3d converts a Y-up world matrix into a Z-up 3MF transform. Vertices
// are already rotated by YUpToZUp, so the matrix is conjugated by the same
// rotation before its columns are laid out as 3MF rows.
func ToMatrix3d(world math.Mat4) threemf.Matrix3d {
	m := zUp.Mul(world).Mul(yUp)
	return threemf.Matrix3d{
		float64(m[0]), float64(m[1]), float64(m[2]),
		float64(m[4]), float64(m[5]), float64(m[6]),
		float64(m[8]), float64(m[9]), float64(m[10]),
		float64(m[12]), float64(m[13]), float64(m[14]),
	}
}

// transformOf returns nil for an identity placement.
func transformOf(world math.Mat4) *threemf.Matrix3d {
	m := ToMatrix3d(world)
	if m.IsIdentity(identityEps) {
		return nil
	}
	return &m
}
