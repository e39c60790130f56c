package gles

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/mobile/gl"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
	"github.com/bmatsuo/gles-pipeline-tutorial/shader"
)

func TestViewportRect(t *testing.T) {
	x, y, w, h := viewportRect(gpu.Viewport{Width: 800, Height: 600}, 600)
	assert.Equal(t, []int{0, 0, 800, 600}, []int{x, y, w, h})

	// The top half of the target is the upper half in GL window coordinates.
	x, y, w, h = viewportRect(gpu.Viewport{TopLeftX: 10, Width: 400, Height: 300}, 600)
	assert.Equal(t, []int{10, 300, 400, 300}, []int{x, y, w, h})
}

func TestRenderbufferFormat(t *testing.T) {
	f, err := renderbufferFormat(gpu.FormatR8G8B8A8UNorm, gpu.FeatureLevel3)
	require.NoError(t, err)
	assert.Equal(t, glRGBA8, f)

	f, err = renderbufferFormat(gpu.FormatD24UNormS8UInt, gpu.FeatureLevel3)
	require.NoError(t, err)
	assert.Equal(t, glDepth24Stencil8, f)

	f, err = renderbufferFormat(gpu.FormatD24UNormS8UInt, gpu.FeatureLevel2)
	require.NoError(t, err)
	assert.Equal(t, gl.Enum(gl.DEPTH_COMPONENT16), f)

	_, err = renderbufferFormat(gpu.FormatR32Float, gpu.FeatureLevel3)
	assert.True(t, errors.Is(err, gpu.ErrUnsupported), "%v", err)
}

func TestPrimitiveModeAndIndexType(t *testing.T) {
	m, err := primitiveMode(gpu.TopologyTriangleList)
	require.NoError(t, err)
	assert.Equal(t, gl.Enum(gl.TRIANGLES), m)
	_, err = primitiveMode(gpu.TopologyUndefined)
	assert.True(t, errors.Is(err, gpu.ErrNotBound), "%v", err)

	ty, err := indexType(gpu.FormatR16UInt)
	require.NoError(t, err)
	assert.Equal(t, gl.Enum(gl.UNSIGNED_SHORT), ty)
	_, err = indexType(gpu.FormatR32G32B32Float)
	assert.True(t, errors.Is(err, gpu.ErrInvalidArg), "%v", err)
}

func floats(vs ...float32) []byte {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

func TestUniformValues(t *testing.T) {
	data := make([]float32, 32)
	for i := range data {
		data[i] = float32(i)
	}
	buf := floats(data...)

	fs, is, err := uniformValues(shader.Constant{Name: "M", Type: "mat4", Offset: 64, Size: 64}, buf)
	require.NoError(t, err)
	assert.Nil(t, is)
	assert.Equal(t, data[16:32], fs)

	// mat3 columns sit in 16 byte registers; the fourth float of each is
	// padding.
	fs, _, err = uniformValues(shader.Constant{Name: "N", Type: "mat3", Offset: 0, Size: 44}, buf)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 2, 4, 5, 6, 8, 9, 10}, fs)

	fs, _, err = uniformValues(shader.Constant{Name: "L", Type: "vec4", Offset: 16, Size: 16}, buf)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 6, 7}, fs)

	ints := make([]byte, 16)
	binary.LittleEndian.PutUint32(ints[4:], 7)
	_, is, err = uniformValues(shader.Constant{Name: "I", Type: "ivec2", Offset: 0, Size: 8}, ints)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 7}, is)

	_, _, err = uniformValues(shader.Constant{Name: "M", Type: "mat4", Offset: 96, Size: 64}, buf)
	assert.True(t, errors.Is(err, gpu.ErrInvalidArg), "%v", err)

	_, _, err = uniformValues(shader.Constant{Name: "U", Type: "uint", Offset: 0, Size: 4}, buf)
	assert.True(t, errors.Is(err, gpu.ErrUnsupported), "%v", err)
}

func TestGLError(t *testing.T) {
	assert.True(t, errors.Is(glError("draw", gl.OUT_OF_MEMORY), gpu.ErrDeviceLost))
	assert.True(t, errors.Is(glError("draw", gl.INVALID_VALUE), gpu.ErrInvalidArg))
	assert.True(t, errors.Is(glError("draw", gl.INVALID_FRAMEBUFFER_OPERATION), gpu.ErrNotBound))
	err := glError("draw", gl.INVALID_OPERATION)
	assert.EqualError(t, err, "draw: GL error 0x502")
}

func TestMatchAttribsIndexZero(t *testing.T) {
	elems := gpu.ResolveOffsets([]gpu.InputElement{
		{SemanticName: "POSITION", Format: gpu.FormatR32G32B32Float, AlignedByteOffset: gpu.AppendAligned},
		{SemanticName: "TEXCOORD", Format: gpu.FormatR32G32Float, AlignedByteOffset: gpu.AppendAligned},
		{SemanticName: "COLOR", SemanticIndex: 1, Format: gpu.FormatR32G32B32A32Float, AlignedByteOffset: gpu.AppendAligned},
	})
	sig := shader.Signature{
		{Name: "POSITION", SemanticName: "POSITION", Type: "vec3", Components: 3, Location: -1},
		{Name: "TEXCOORD0", SemanticName: "TEXCOORD", Type: "vec2", Components: 2, Location: -1},
	}
	require.NoError(t, gpu.ValidateInputLayout(elems, sig))

	binds := matchAttribs(elems, sig)
	require.Len(t, binds, 2, "COLOR1 is not a shader input")
	assert.Equal(t, "POSITION", binds[0].input)
	assert.Equal(t, "TEXCOORD0", binds[1].input)
	assert.Equal(t, 12, binds[1].elem.AlignedByteOffset)

	prog := &program{attribs: map[string]gl.Attrib{
		"POSITION":  {Value: 0},
		"TEXCOORD0": {Value: 1},
	}}
	for _, b := range binds {
		loc, active, err := prog.attrib(b.input)
		require.NoError(t, err, b.input)
		assert.True(t, active, b.input)
		assert.Equal(t, sig[loc.Value].Name, b.input)
	}
}

func TestProgramAttrib(t *testing.T) {
	prog := &program{attribs: map[string]gl.Attrib{
		"POSITION": {Value: 2},
		"NORMAL":   {Value: uint(math.MaxUint32)},
	}}

	loc, active, err := prog.attrib("POSITION")
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, uint(2), loc.Value)

	_, active, err = prog.attrib("NORMAL")
	require.NoError(t, err)
	assert.False(t, active, "inputs the linker dropped are skipped")

	_, _, err = prog.attrib("TEXCOORD")
	assert.True(t, errors.Is(err, gpu.ErrNotBound), "%v", err)
}
