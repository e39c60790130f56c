package mesh

import (
	"unsafe"

	"golang.org/x/mobile/exp/f32"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
)

var triangleVertices = []PositionVertex{
	{f32.Vec3{0.0, 0.5, 0.5}},   // top
	{f32.Vec3{0.5, -0.5, 0.5}},  // bottom right
	{f32.Vec3{-0.5, -0.5, 0.5}}, // bottom left
}

// Triangle returns the single triangle of the first tutorial.
func Triangle() *Mesh {
	return &Mesh{
		Name:        "triangle",
		Vertices:    positionBytes(triangleVertices),
		Stride:      int(unsafe.Sizeof(PositionVertex{})),
		VertexCount: len(triangleVertices),
		Layout:      PositionLayout,
		Topology:    gpu.TopologyTriangleList,
	}
}
