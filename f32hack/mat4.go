// Package f32hack fills the gaps in golang.org/x/mobile/exp/f32 needed to
// build camera and model transforms.
//
// Matrices are stored the way f32 documents them, m[row][col], and transform
// column vectors: v' = M v.  Shaders that consume these matrices expect them
// column-major, which is the order Serialize4 packs them in.
package f32hack

import (
	"github.com/chewxy/math32"
	"golang.org/x/mobile/exp/f32"
)

// TwoPi is one full turn in radians.
const TwoPi = 2 * math32.Pi

// Transpose4 performs an in-place matrix transpose of m.
func Transpose4(m *f32.Mat4) {
	*m = Transposed(m)
}

// Transposed returns the transpose of m without modifying it.
func Transposed(m *f32.Mat4) f32.Mat4 {
	return f32.Mat4{
		{m[0][0], m[1][0], m[2][0], m[3][0]},
		{m[0][1], m[1][1], m[2][1], m[3][1]},
		{m[0][2], m[1][2], m[2][2], m[3][2]},
		{m[0][3], m[1][3], m[2][3], m[3][3]},
	}
}

// Identity returns the 4x4 identity matrix.
func Identity() f32.Mat4 {
	var m f32.Mat4
	m.Identity()
	return m
}

// LookAt is like f32.LookAt but the resulting matrix is transposed to be in
// the proper form.
func LookAt(m *f32.Mat4, eye, center, up *f32.Vec3) {
	m.LookAt(eye, center, up)
	Transpose4(m)
}

// SetPerspective is like f32.Perspective(m, r, aspect, near, far) but the
// resulting matrix is transposed to be in the proper form.  View space depths
// -near and -far map to clip depths -1 and 1.
func SetPerspective(m *f32.Mat4, r f32.Radian, aspect, near, far float32) {
	m.Perspective(r, aspect, near, far)
	Transpose4(m)
}

// RotateY sets m to a rotation of angle radians about the +Y axis.
func RotateY(m *f32.Mat4, angle f32.Radian) {
	s, c := math32.Sincos(float32(angle))
	*m = f32.Mat4{
		{c, 0, s, 0},
		{0, 1, 0, 0},
		{-s, 0, c, 0},
		{0, 0, 0, 1},
	}
}

// WrapAngle reduces a to the range [0, 2π).
func WrapAngle(a f32.Radian) f32.Radian {
	r := math32.Mod(float32(a), TwoPi)
	if r < 0 {
		r += TwoPi
	}
	return f32.Radian(r)
}

// Degrees converts an angle in degrees to radians.
func Degrees(deg float32) f32.Radian {
	return f32.Radian(deg * math32.Pi / 180)
}

// Serialize4 returns a slice containing m serialized into column-major order.
// If len(dst) is at least 16 then the returned a slice of dst will be used to
// serialize the data and returned.
func Serialize4(dst []float32, m *f32.Mat4) []float32 {
	if len(dst) < 16 {
		dst = make([]float32, 16)
	}
	dst = dst[:16]
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			dst[4*col+row] = m[row][col]
		}
	}
	return dst
}

