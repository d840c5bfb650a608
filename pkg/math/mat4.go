package math

import "github.com/chewxy/math32"

// Mat4 is a 4x4 float32 matrix stored column by column, so the
// translation sits in elements 12, 13 and 14.
type Mat4 [16]float32

// at returns the element in row r and column c.
func (m *Mat4) at(r, c int) float32 { return m[c*4+r] }

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Scale(1, 1, 1)
}

// Translate returns a matrix that moves points by (x, y, z).
func Translate(x, y, z float32) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scale returns a matrix that scales each axis.
func Scale(x, y, z float32) Mat4 {
	return Mat4{0: x, 5: y, 10: z, 15: 1}
}

// RotateX rotates counter-clockwise about +X by angle radians.
func RotateX(angle float32) Mat4 {
	return RotateAxis(Vec3{X: 1}, angle)
}

// RotateY rotates counter-clockwise about +Y by angle radians, taking +X
// towards -Z.
func RotateY(angle float32) Mat4 {
	return RotateAxis(Vec3{Y: 1}, angle)
}

// RotateZ rotates counter-clockwise about +Z by angle radians.
func RotateZ(angle float32) Mat4 {
	return RotateAxis(Vec3{Z: 1}, angle)
}

// RotateAxis rotates about a unit axis by angle radians.
func RotateAxis(axis Vec3, angle float32) Mat4 {
	s, c := math32.Sincos(angle)
	t := 1 - c
	x, y, z := axis.X, axis.Y, axis.Z
	return Mat4{
		t*x*x + c, t*x*y + s*z, t*x*z - s*y, 0,
		t*x*y - s*z, t*y*y + c, t*y*z + s*x, 0,
		t*x*z + s*y, t*y*z - s*x, t*z*z + c, 0,
		0, 0, 0, 1,
	}
}

// FromMat3x3 embeds a column-major 3x3 matrix, leaving translation zero.
func FromMat3x3(m3 [9]float32) Mat4 {
	var m Mat4
	for c := range 3 {
		copy(m[c*4:c*4+3], m3[c*3:c*3+3])
	}
	m[15] = 1
	return m
}

// Radians converts degrees to radians.
func Radians(deg float32) float32 {
	return deg * math32.Pi / 180
}

// Mul returns m * n, the transform that applies n first.
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for c := range 4 {
		for r := range 4 {
			var sum float32
			for k := range 4 {
				sum += m.at(r, k) * n.at(k, c)
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// TransformPoint applies m to p with w = 1, dividing by the resulting w
// when the matrix is projective.
func (m Mat4) TransformPoint(p [3]float32) [3]float32 {
	var out [4]float32
	for r := range 4 {
		out[r] = m.at(r, 0)*p[0] + m.at(r, 1)*p[1] + m.at(r, 2)*p[2] + m.at(r, 3)
	}
	if w := out[3]; w != 0 && w != 1 {
		return [3]float32{out[0] / w, out[1] / w, out[2] / w}
	}
	return [3]float32{out[0], out[1], out[2]}
}
