package f32hack

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"golang.org/x/mobile/exp/f32"
)

const tol = 1e-5

func assertVec4(t *testing.T, want, got f32.Vec4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "component %d of %v", i, got)
	}
}

// mulVec4 returns m*v.
func mulVec4(m *f32.Mat4, v f32.Vec4) f32.Vec4 {
	var u f32.Vec4
	for i := range u {
		u[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2] + m[i][3]*v[3]
	}
	return u
}

func camera() (view, proj f32.Mat4) {
	LookAt(&view, &f32.Vec3{0, 0, -3}, &f32.Vec3{0, 0, 0}, &f32.Vec3{0, 1, 0})
	SetPerspective(&proj, Degrees(90), 800.0/600.0, 0.01, 100)
	return view, proj
}

func TestTransposeInvolution(t *testing.T) {
	view, proj := camera()
	for name, m := range map[string]f32.Mat4{"view": view, "projection": proj} {
		twice := Transposed(&m)
		Transpose4(&twice)
		assert.Equal(t, m, twice, name)
	}
}

func TestTransposeSwapsRowsAndColumns(t *testing.T) {
	m := f32.Mat4{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11, 12},
		{13, 14, 15, 16},
	}
	tr := Transposed(&m)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			assert.Equal(t, m[i][j], tr[j][i])
		}
	}
	// Serialize4 emits column-major order, which is the transpose read row by row.
	flat := Serialize4(nil, &m)
	assert.Equal(t, []float32{1, 5, 9, 13, 2, 6, 10, 14, 3, 7, 11, 15, 4, 8, 12, 16}, flat)
}

func TestLookAt(t *testing.T) {
	view, _ := camera()
	// The eye maps to the origin and the target lies straight ahead (-Z).
	assertVec4(t, f32.Vec4{0, 0, 0, 1}, mulVec4(&view, f32.Vec4{0, 0, -3, 1}))
	assertVec4(t, f32.Vec4{0, 0, -3, 1}, mulVec4(&view, f32.Vec4{0, 0, 0, 1}))
	// Up stays up.
	assertVec4(t, f32.Vec4{0, 1, 0, 0}, mulVec4(&view, f32.Vec4{0, 1, 0, 0}))
}

func TestPerspectiveDepthRange(t *testing.T) {
	var proj f32.Mat4
	SetPerspective(&proj, Degrees(90), 1, 0.01, 100)

	ndcZ := func(z float32) float32 {
		c := mulVec4(&proj, f32.Vec4{0, 0, z, 1})
		return c[2] / c[3]
	}
	assert.InDelta(t, -1, ndcZ(-0.01), 1e-3)
	assert.InDelta(t, 1, ndcZ(-100), 1e-3)

	// With a 90 degree field of view y == -z lands on the top edge.
	c := mulVec4(&proj, f32.Vec4{0, 5, -5, 1})
	assert.InDelta(t, 1, c[1]/c[3], tol)
}

func TestRotateY(t *testing.T) {
	var m f32.Mat4
	RotateY(&m, f32.Radian(math32.Pi/2))
	assertVec4(t, f32.Vec4{0, 0, -1, 1}, mulVec4(&m, f32.Vec4{1, 0, 0, 1}))
	assertVec4(t, f32.Vec4{0, 1, 0, 1}, mulVec4(&m, f32.Vec4{0, 1, 0, 1}))

	RotateY(&m, 0)
	assert.Equal(t, Identity(), m)
}

func TestWrapAngle(t *testing.T) {
	assert.InDelta(t, 0, float32(WrapAngle(0)), tol)
	assert.InDelta(t, 1, float32(WrapAngle(f32.Radian(1+TwoPi))), 1e-4)
	assert.InDelta(t, TwoPi-1, float32(WrapAngle(-1)), 1e-4)
	for _, a := range []f32.Radian{-100, -7, 0.5, 6.3, 1000} {
		w := WrapAngle(a)
		assert.GreaterOrEqual(t, float32(w), float32(0))
		assert.Less(t, float32(w), float32(TwoPi))
	}
}
