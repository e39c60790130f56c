package mesh

import (
	colour "image/color"
	"unsafe"

	"golang.org/x/mobile/exp/f32"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
)

const (
	cubeVertexCount = 4 * 6
	cubeIndexCount  = 3 * 2 * 6
)

var cubeFaceColors = [6]f32.Vec4{
	rgba(colour.RGBA{R: 255, G: 0, B: 0, A: 255}),
	rgba(colour.RGBA{R: 0, G: 255, B: 0, A: 255}),
	rgba(colour.RGBA{R: 0, G: 0, B: 255, A: 255}),
	rgba(colour.RGBA{R: 255, G: 255, B: 0, A: 255}),
	rgba(colour.RGBA{R: 0, G: 255, B: 255, A: 255}),
	rgba(colour.RGBA{R: 255, G: 0, B: 255, A: 255}),
}

// Every face has its own four vertices so it can carry its own normal and
// color.  Vertices of a face are listed counter-clockwise seen from outside.
var cubeVertices = [cubeVertexCount]Vertex{
	// top
	{f32.Vec3{-1, 1, -1}, f32.Vec3{0, 1, 0}, cubeFaceColors[0]},
	{f32.Vec3{-1, 1, 1}, f32.Vec3{0, 1, 0}, cubeFaceColors[0]},
	{f32.Vec3{1, 1, 1}, f32.Vec3{0, 1, 0}, cubeFaceColors[0]},
	{f32.Vec3{1, 1, -1}, f32.Vec3{0, 1, 0}, cubeFaceColors[0]},

	// bottom
	{f32.Vec3{-1, -1, -1}, f32.Vec3{0, -1, 0}, cubeFaceColors[1]},
	{f32.Vec3{1, -1, -1}, f32.Vec3{0, -1, 0}, cubeFaceColors[1]},
	{f32.Vec3{1, -1, 1}, f32.Vec3{0, -1, 0}, cubeFaceColors[1]},
	{f32.Vec3{-1, -1, 1}, f32.Vec3{0, -1, 0}, cubeFaceColors[1]},

	// left
	{f32.Vec3{-1, -1, -1}, f32.Vec3{-1, 0, 0}, cubeFaceColors[2]},
	{f32.Vec3{-1, -1, 1}, f32.Vec3{-1, 0, 0}, cubeFaceColors[2]},
	{f32.Vec3{-1, 1, 1}, f32.Vec3{-1, 0, 0}, cubeFaceColors[2]},
	{f32.Vec3{-1, 1, -1}, f32.Vec3{-1, 0, 0}, cubeFaceColors[2]},

	// right
	{f32.Vec3{1, -1, -1}, f32.Vec3{1, 0, 0}, cubeFaceColors[3]},
	{f32.Vec3{1, 1, -1}, f32.Vec3{1, 0, 0}, cubeFaceColors[3]},
	{f32.Vec3{1, 1, 1}, f32.Vec3{1, 0, 0}, cubeFaceColors[3]},
	{f32.Vec3{1, -1, 1}, f32.Vec3{1, 0, 0}, cubeFaceColors[3]},

	// back
	{f32.Vec3{-1, -1, -1}, f32.Vec3{0, 0, -1}, cubeFaceColors[4]},
	{f32.Vec3{-1, 1, -1}, f32.Vec3{0, 0, -1}, cubeFaceColors[4]},
	{f32.Vec3{1, 1, -1}, f32.Vec3{0, 0, -1}, cubeFaceColors[4]},
	{f32.Vec3{1, -1, -1}, f32.Vec3{0, 0, -1}, cubeFaceColors[4]},

	// front
	{f32.Vec3{-1, -1, 1}, f32.Vec3{0, 0, 1}, cubeFaceColors[5]},
	{f32.Vec3{1, -1, 1}, f32.Vec3{0, 0, 1}, cubeFaceColors[5]},
	{f32.Vec3{1, 1, 1}, f32.Vec3{0, 0, 1}, cubeFaceColors[5]},
	{f32.Vec3{-1, 1, 1}, f32.Vec3{0, 0, 1}, cubeFaceColors[5]},
}

var cubeIndices = [cubeIndexCount]uint16{
	0, 1, 2, 0, 2, 3, // top
	4, 5, 6, 4, 6, 7, // bottom
	8, 9, 10, 8, 10, 11, // left
	12, 13, 14, 12, 14, 15, // right
	16, 17, 18, 16, 18, 19, // back
	20, 21, 22, 20, 22, 23, // front
}

// Cube returns the lit cube of the second tutorial.
func Cube() *Mesh {
	return &Mesh{
		Name:        "cube",
		Vertices:    vertexBytes(cubeVertices[:]),
		Stride:      int(unsafe.Sizeof(Vertex{})),
		VertexCount: cubeVertexCount,
		Layout:      VertexLayout,
		Topology:    gpu.TopologyTriangleList,
		Indices:     append([]uint16(nil), cubeIndices[:]...),
	}
}
