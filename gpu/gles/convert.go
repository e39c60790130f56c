package gles

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/mobile/gl"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
	"github.com/bmatsuo/gles-pipeline-tutorial/shader"
)

func bufferUsage(u gpu.Usage) gl.Enum {
	if u == gpu.UsageDynamic {
		return gl.DYNAMIC_DRAW
	}
	return gl.STATIC_DRAW
}

func renderbufferFormat(f gpu.Format, level gpu.FeatureLevel) (gl.Enum, error) {
	switch f {
	case gpu.FormatR8G8B8A8UNorm:
		if level >= gpu.FeatureLevel3 {
			return glRGBA8, nil
		}
		return gl.RGBA4, nil
	case gpu.FormatD24UNormS8UInt:
		if level >= gpu.FeatureLevel3 {
			return glDepth24Stencil8, nil
		}
		return gl.DEPTH_COMPONENT16, nil
	}
	return 0, fmt.Errorf("%w: texture format %v", gpu.ErrUnsupported, f)
}

func primitiveMode(t gpu.PrimitiveTopology) (gl.Enum, error) {
	switch t {
	case gpu.TopologyPointList:
		return gl.POINTS, nil
	case gpu.TopologyLineList:
		return gl.LINES, nil
	case gpu.TopologyTriangleList:
		return gl.TRIANGLES, nil
	case gpu.TopologyTriangleStrip:
		return gl.TRIANGLE_STRIP, nil
	}
	return 0, fmt.Errorf("%w: primitive topology", gpu.ErrNotBound)
}

func indexType(f gpu.Format) (gl.Enum, error) {
	switch f {
	case gpu.FormatR16UInt:
		return gl.UNSIGNED_SHORT, nil
	case gpu.FormatR32UInt:
		return gl.UNSIGNED_INT, nil
	}
	return 0, fmt.Errorf("%w: index format %v", gpu.ErrInvalidArg, f)
}

// viewportRect converts a viewport with a top-left origin to GL window
// coordinates, whose origin is bottom-left, on a target targetHeight pixels
// tall.
func viewportRect(v gpu.Viewport, targetHeight int) (x, y, width, height int) {
	x = int(v.TopLeftX)
	width = int(v.Width)
	height = int(v.Height)
	y = targetHeight - int(v.TopLeftY) - height
	return x, y, width, height
}

// uniformValues decodes constant c from a register-packed constant buffer.
// Float types come back in fs, integer types in is.  Matrix columns are
// unpacked from their 16 byte registers.
func uniformValues(c shader.Constant, data []byte) (fs []float32, is []int32, err error) {
	if c.Offset < 0 || c.Offset+c.Size > len(data) {
		return nil, nil, fmt.Errorf("%w: constant %s [%d,%d) outside a %d byte buffer",
			gpu.ErrInvalidArg, c.Name, c.Offset, c.Offset+c.Size, len(data))
	}
	f := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	}
	i := func(off int) int32 {
		return int32(binary.LittleEndian.Uint32(data[off:]))
	}
	switch c.Type {
	case "float", "vec2", "vec3", "vec4":
		for off := c.Offset; off < c.Offset+c.Size; off += 4 {
			fs = append(fs, f(off))
		}
	case "int", "bool", "ivec2", "ivec3", "ivec4":
		for off := c.Offset; off < c.Offset+c.Size; off += 4 {
			is = append(is, i(off))
		}
	case "mat2", "mat3", "mat4":
		n := int(c.Type[3] - '0')
		for col := 0; col < n; col++ {
			for row := 0; row < n; row++ {
				fs = append(fs, f(c.Offset+16*col+4*row))
			}
		}
	default:
		return nil, nil, fmt.Errorf("%w: constant type %s", gpu.ErrUnsupported, c.Type)
	}
	return fs, is, nil
}
