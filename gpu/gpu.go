/*
Package gpu is a small immediate-mode graphics API in the shape of the
classic device / immediate context / swap chain model.

A Driver creates the three together.  The Device creates resources, the
DeviceContext binds them into the fixed pipeline and issues draws, and the
SwapChain owns the presentation surface.  Every object is exclusively owned
and must be released exactly once with Release.

Backends: gpu/gles drives OpenGL ES 3 through golang.org/x/mobile/gl and
gpu/gputest records calls in memory for tests.
*/
package gpu

import "github.com/bmatsuo/gles-pipeline-tutorial/shader"

// Resource is any object created by a Driver or Device.
type Resource interface {
	Release()
}

// FeatureLevel is the capability tier a device was created at.
type FeatureLevel int

// Feature levels.  Level2 is OpenGL ES 2.0, Level3 OpenGL ES 3.0.
const (
	FeatureLevel2 FeatureLevel = 2
	FeatureLevel3 FeatureLevel = 3
)

func (l FeatureLevel) String() string {
	switch l {
	case FeatureLevel2:
		return "2_0"
	case FeatureLevel3:
		return "3_0"
	}
	return "unknown"
}

// Usage tells a backend how a resource will be accessed.
type Usage int

// Resource usages.
const (
	UsageDefault   Usage = iota // GPU read/write, CPU updates through UpdateSubresource
	UsageImmutable              // initialized at creation, never written again
	UsageDynamic                // rewritten by the CPU often
)

// BindFlag says which pipeline slots a resource may be bound to.
type BindFlag uint

// Bind flags.
const (
	BindVertexBuffer BindFlag = 1 << iota
	BindIndexBuffer
	BindConstantBuffer
	BindRenderTarget
	BindDepthStencil
)

// BufferDesc describes a buffer.
type BufferDesc struct {
	ByteWidth int
	Usage     Usage
	BindFlags BindFlag
}

// Texture2DDesc describes a two dimensional texture.
type Texture2DDesc struct {
	Width       int
	Height      int
	Format      Format
	Usage       Usage
	BindFlags   BindFlag
	SampleCount int
}

// Rational is a refresh rate in Hz.
type Rational struct {
	Numerator   int
	Denominator int
}

// Window is the native output a swap chain presents to.
type Window interface {
	// FramebufferSize returns the drawable size in pixels.
	FramebufferSize() (width, height int)
	// Present shows the completed frame.  A sync interval of 0 presents
	// immediately, n waits for n vertical blanks.
	Present(syncInterval int) error
}

// SwapChainDesc describes the presentation surface created together with a
// device.
type SwapChainDesc struct {
	Width        int
	Height       int
	Format       Format
	RefreshRate  Rational
	BufferCount  int
	SampleCount  int
	OutputWindow Window
	Windowed     bool
}

// InputClassification is the step rate class of an input element.
type InputClassification int

// Input classifications.
const (
	PerVertexData InputClassification = iota
	PerInstanceData
)

// InputElement maps bytes of a vertex buffer to one shader input.
type InputElement struct {
	SemanticName         string
	SemanticIndex        int
	Format               Format
	InputSlot            int
	AlignedByteOffset    int
	InputSlotClass       InputClassification
	InstanceDataStepRate int
}

// AppendAligned as an AlignedByteOffset places an element directly after
// the previous element of the same slot.
const AppendAligned = -1

// PrimitiveTopology is how the vertex stream groups into primitives.
type PrimitiveTopology int

// Topologies.
const (
	TopologyUndefined PrimitiveTopology = iota
	TopologyPointList
	TopologyLineList
	TopologyTriangleList
	TopologyTriangleStrip
)

// FillMode is the rasterizer fill mode.
type FillMode int

// Fill modes.
const (
	FillSolid FillMode = iota
	FillWireframe
)

// CullMode selects which triangles the rasterizer discards.
type CullMode int

// Cull modes.
const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// RasterizerDesc describes rasterizer state.
type RasterizerDesc struct {
	FillMode              FillMode
	CullMode              CullMode
	FrontCounterClockwise bool
}

// Viewport maps normalized device coordinates to a pixel rectangle with a
// top-left origin and a depth range.
type Viewport struct {
	TopLeftX float32
	TopLeftY float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

// ClearFlag selects the planes cleared by ClearDepthStencilView.
type ClearFlag uint

// Clear flags.
const (
	ClearDepth ClearFlag = 1 << iota
	ClearStencil
)

// Buffer is a block of GPU memory.
type Buffer interface {
	Resource
	Desc() BufferDesc
}

// Texture2D is a two dimensional image.
type Texture2D interface {
	Resource
	Desc() Texture2DDesc
}

// RenderTargetView is a writable view over a color texture.
type RenderTargetView interface {
	Resource
}

// DepthStencilView is a writable view over a depth/stencil texture.
type DepthStencilView interface {
	Resource
}

// VertexShader is a program bound to the vertex stage.
type VertexShader interface {
	Resource
}

// PixelShader is a program bound to the pixel stage.
type PixelShader interface {
	Resource
}

// InputLayout is a validated list of input elements.
type InputLayout interface {
	Resource
}

// RasterizerState is an immutable rasterizer configuration.
type RasterizerState interface {
	Resource
}

// Driver creates a device, its immediate context and a swap chain.
type Driver interface {
	CreateDeviceAndSwapChain(desc SwapChainDesc) (Device, DeviceContext, SwapChain, error)
}

// Device creates resources.
type Device interface {
	Resource
	FeatureLevel() FeatureLevel
	// Description names the adapter for logs.
	Description() string

	// CreateBuffer creates a buffer.  Initial data, if given, must be exactly
	// desc.ByteWidth long; immutable buffers require it.
	CreateBuffer(desc BufferDesc, initial []byte) (Buffer, error)
	CreateTexture2D(desc Texture2DDesc) (Texture2D, error)
	CreateRenderTargetView(tex Texture2D) (RenderTargetView, error)
	CreateDepthStencilView(tex Texture2D) (DepthStencilView, error)
	CreateVertexShader(blob *shader.Blob) (VertexShader, error)
	CreatePixelShader(blob *shader.Blob) (PixelShader, error)
	// CreateInputLayout validates elems against the input signature of the
	// vertex shader blob; see ValidateInputLayout.
	CreateInputLayout(elems []InputElement, vs *shader.Blob) (InputLayout, error)
	CreateRasterizerState(desc RasterizerDesc) (RasterizerState, error)
}

// DeviceContext binds state and issues commands.  Binding methods never
// fail; problems with the bound state surface from the draw calls.
type DeviceContext interface {
	Resource

	IASetInputLayout(layout InputLayout)
	IASetVertexBuffers(startSlot int, bufs []Buffer, strides, offsets []int)
	IASetIndexBuffer(buf Buffer, format Format, offset int)
	IASetPrimitiveTopology(topology PrimitiveTopology)

	VSSetShader(vs VertexShader)
	VSSetConstantBuffers(startSlot int, bufs []Buffer)
	PSSetShader(ps PixelShader)
	PSSetConstantBuffers(startSlot int, bufs []Buffer)

	RSSetViewports(viewports []Viewport)
	RSSetState(state RasterizerState)

	OMSetRenderTargets(rtvs []RenderTargetView, dsv DepthStencilView)

	// UpdateSubresource overwrites the whole buffer with data.
	UpdateSubresource(buf Buffer, data []byte) error

	ClearRenderTargetView(rtv RenderTargetView, color [4]float32)
	ClearDepthStencilView(dsv DepthStencilView, flags ClearFlag, depth float32, stencil uint8)

	Draw(vertexCount, startVertex int) error
	DrawIndexed(indexCount, startIndex, baseVertex int) error

	// ClearState unbinds everything and restores default state.
	ClearState()
}

// SwapChain owns the presentation buffers.
type SwapChain interface {
	Resource
	Desc() SwapChainDesc
	// Buffer returns a new reference to back buffer i which the caller must
	// release.
	Buffer(i int) (Texture2D, error)
	Present(syncInterval int) error
}
