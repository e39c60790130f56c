// Package mesh holds the static vertex and index tables the tutorials draw,
// together with the input layouts that describe their bytes.
package mesh

import (
	"encoding/binary"
	colour "image/color"
	"unsafe"

	"golang.org/x/mobile/exp/f32"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
)

// PositionVertex is a vertex carrying only a position.
type PositionVertex struct {
	Pos f32.Vec3
}

// Vertex is a lit, colored vertex.
type Vertex struct {
	Pos    f32.Vec3
	Normal f32.Vec3
	Color  f32.Vec4
}

// PositionLayout describes PositionVertex.
var PositionLayout = []gpu.InputElement{
	{SemanticName: "POSITION", Format: gpu.FormatR32G32B32Float, AlignedByteOffset: int(unsafe.Offsetof(PositionVertex{}.Pos))},
}

// VertexLayout describes Vertex.
var VertexLayout = []gpu.InputElement{
	{SemanticName: "POSITION", Format: gpu.FormatR32G32B32Float, AlignedByteOffset: int(unsafe.Offsetof(Vertex{}.Pos))},
	{SemanticName: "NORMAL", Format: gpu.FormatR32G32B32Float, AlignedByteOffset: int(unsafe.Offsetof(Vertex{}.Normal))},
	{SemanticName: "COLOR", Format: gpu.FormatR32G32B32A32Float, AlignedByteOffset: int(unsafe.Offsetof(Vertex{}.Color))},
}

// Mesh is vertex data ready for upload.
type Mesh struct {
	Name        string
	Vertices    []byte
	Stride      int
	VertexCount int
	Layout      []gpu.InputElement
	Topology    gpu.PrimitiveTopology

	// Indices is nil for meshes drawn without an index buffer.
	Indices []uint16
}

// Indexed reports whether m is drawn through an index buffer.
func (m *Mesh) Indexed() bool {
	return len(m.Indices) > 0
}

// IndexFormat is the format of the bytes returned by IndexBytes.
func (m *Mesh) IndexFormat() gpu.Format {
	return gpu.FormatR16UInt
}

// IndexBytes returns the little endian encoding of m.Indices.
func (m *Mesh) IndexBytes() []byte {
	b := make([]byte, 2*len(m.Indices))
	for i, x := range m.Indices {
		binary.LittleEndian.PutUint16(b[2*i:], x)
	}
	return b
}

func positionBytes(vs []PositionVertex) []byte {
	fs := make([]float32, 0, 3*len(vs))
	for _, v := range vs {
		fs = append(fs, v.Pos[:]...)
	}
	return f32.Bytes(binary.LittleEndian, fs...)
}

func vertexBytes(vs []Vertex) []byte {
	fs := make([]float32, 0, 10*len(vs))
	for _, v := range vs {
		fs = append(fs, v.Pos[:]...)
		fs = append(fs, v.Normal[:]...)
		fs = append(fs, v.Color[:]...)
	}
	return f32.Bytes(binary.LittleEndian, fs...)
}

// rgba converts c to normalized float components.
func rgba(c colour.Color) f32.Vec4 {
	r, g, b, a := c.RGBA()
	return f32.Vec4{
		float32(r) / float32(uint16(0xffff)),
		float32(g) / float32(uint16(0xffff)),
		float32(b) / float32(uint16(0xffff)),
		float32(a) / float32(uint16(0xffff)),
	}
}
