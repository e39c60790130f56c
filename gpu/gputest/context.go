package gputest

import (
	"encoding/binary"
	"fmt"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
)

// VertexBinding is a vertex buffer bound to an input slot.
type VertexBinding struct {
	Buffer *Buffer
	Stride int
	Offset int
}

// DrawCall records the arguments of a successful draw.
type DrawCall struct {
	Indexed    bool
	Count      int
	Start      int
	BaseVertex int
}

// Context is a gpu.DeviceContext.  Its exported fields are the currently
// bound state.
type Context struct {
	resource

	Layout        *InputLayout
	VertexBuffers map[int]VertexBinding
	IndexBuffer   *Buffer
	IndexFormat   gpu.Format
	IndexOffset   int
	Topology      gpu.PrimitiveTopology
	VS            *Shader
	PS            *Shader
	VSConstants   map[int]*Buffer
	PSConstants   map[int]*Buffer
	Viewports     []gpu.Viewport
	Rasterizer    *RasterizerState
	RenderTargets []*View
	DepthStencil  *View

	ClearColor [4]float32
	ClearDepth float32
	Draws      []DrawCall
}

var _ gpu.DeviceContext = (*Context)(nil)

// IASetInputLayout implements gpu.DeviceContext.
func (c *Context) IASetInputLayout(layout gpu.InputLayout) {
	c.drv.call("IASetInputLayout")
	c.Layout, _ = layout.(*InputLayout)
}

// IASetVertexBuffers implements gpu.DeviceContext.
func (c *Context) IASetVertexBuffers(startSlot int, bufs []gpu.Buffer, strides, offsets []int) {
	c.drv.call("IASetVertexBuffers")
	if c.VertexBuffers == nil {
		c.VertexBuffers = map[int]VertexBinding{}
	}
	for i, b := range bufs {
		vb := VertexBinding{}
		vb.Buffer, _ = b.(*Buffer)
		if i < len(strides) {
			vb.Stride = strides[i]
		}
		if i < len(offsets) {
			vb.Offset = offsets[i]
		}
		c.VertexBuffers[startSlot+i] = vb
	}
}

// IASetIndexBuffer implements gpu.DeviceContext.
func (c *Context) IASetIndexBuffer(buf gpu.Buffer, format gpu.Format, offset int) {
	c.drv.call("IASetIndexBuffer")
	c.IndexBuffer, _ = buf.(*Buffer)
	c.IndexFormat = format
	c.IndexOffset = offset
}

// IASetPrimitiveTopology implements gpu.DeviceContext.
func (c *Context) IASetPrimitiveTopology(topology gpu.PrimitiveTopology) {
	c.drv.call("IASetPrimitiveTopology")
	c.Topology = topology
}

// VSSetShader implements gpu.DeviceContext.
func (c *Context) VSSetShader(vs gpu.VertexShader) {
	c.drv.call("VSSetShader")
	c.VS, _ = vs.(*Shader)
}

// VSSetConstantBuffers implements gpu.DeviceContext.
func (c *Context) VSSetConstantBuffers(startSlot int, bufs []gpu.Buffer) {
	c.drv.call("VSSetConstantBuffers")
	c.VSConstants = setConstants(c.VSConstants, startSlot, bufs)
}

// PSSetShader implements gpu.DeviceContext.
func (c *Context) PSSetShader(ps gpu.PixelShader) {
	c.drv.call("PSSetShader")
	c.PS, _ = ps.(*Shader)
}

// PSSetConstantBuffers implements gpu.DeviceContext.
func (c *Context) PSSetConstantBuffers(startSlot int, bufs []gpu.Buffer) {
	c.drv.call("PSSetConstantBuffers")
	c.PSConstants = setConstants(c.PSConstants, startSlot, bufs)
}

func setConstants(m map[int]*Buffer, start int, bufs []gpu.Buffer) map[int]*Buffer {
	if m == nil {
		m = map[int]*Buffer{}
	}
	for i, b := range bufs {
		m[start+i], _ = b.(*Buffer)
	}
	return m
}

// RSSetViewports implements gpu.DeviceContext.
func (c *Context) RSSetViewports(viewports []gpu.Viewport) {
	c.drv.call("RSSetViewports")
	c.Viewports = append([]gpu.Viewport(nil), viewports...)
}

// RSSetState implements gpu.DeviceContext.
func (c *Context) RSSetState(state gpu.RasterizerState) {
	c.drv.call("RSSetState")
	c.Rasterizer, _ = state.(*RasterizerState)
}

// OMSetRenderTargets implements gpu.DeviceContext.
func (c *Context) OMSetRenderTargets(rtvs []gpu.RenderTargetView, dsv gpu.DepthStencilView) {
	c.drv.call("OMSetRenderTargets")
	c.RenderTargets = c.RenderTargets[:0]
	for _, rtv := range rtvs {
		if v, ok := rtv.(*View); ok {
			c.RenderTargets = append(c.RenderTargets, v)
		}
	}
	c.DepthStencil, _ = dsv.(*View)
}

// UpdateSubresource implements gpu.DeviceContext.
func (c *Context) UpdateSubresource(buf gpu.Buffer, data []byte) error {
	if err := c.drv.call("UpdateSubresource"); err != nil {
		return err
	}
	b, ok := buf.(*Buffer)
	if !ok || b == nil {
		return fmt.Errorf("%w: foreign buffer %T", gpu.ErrInvalidArg, buf)
	}
	if err := b.check(); err != nil {
		return err
	}
	if b.desc.Usage == gpu.UsageImmutable {
		return fmt.Errorf("%w: update of %v", gpu.ErrImmutable, &b.resource)
	}
	if len(data) != b.desc.ByteWidth {
		return fmt.Errorf("%w: %d bytes for a %d byte buffer", gpu.ErrInvalidArg, len(data), b.desc.ByteWidth)
	}
	copy(b.data, data)
	return nil
}

// ClearRenderTargetView implements gpu.DeviceContext.
func (c *Context) ClearRenderTargetView(rtv gpu.RenderTargetView, color [4]float32) {
	c.drv.call("ClearRenderTargetView")
	c.ClearColor = color
}

// ClearDepthStencilView implements gpu.DeviceContext.
func (c *Context) ClearDepthStencilView(dsv gpu.DepthStencilView, flags gpu.ClearFlag, depth float32, stencil uint8) {
	c.drv.call("ClearDepthStencilView")
	if flags&gpu.ClearDepth != 0 {
		c.ClearDepth = depth
	}
}

// Draw implements gpu.DeviceContext.
func (c *Context) Draw(vertexCount, startVertex int) error {
	if err := c.drv.call("Draw"); err != nil {
		return err
	}
	n, err := c.validate()
	if err != nil {
		return err
	}
	if startVertex < 0 || startVertex+vertexCount > n {
		return fmt.Errorf("%w: vertices [%d,%d) of %d", gpu.ErrInvalidArg, startVertex, startVertex+vertexCount, n)
	}
	c.Draws = append(c.Draws, DrawCall{Count: vertexCount, Start: startVertex})
	return nil
}

// DrawIndexed implements gpu.DeviceContext.  Every referenced index is
// checked against the bound vertex buffer.
func (c *Context) DrawIndexed(indexCount, startIndex, baseVertex int) error {
	if err := c.drv.call("DrawIndexed"); err != nil {
		return err
	}
	n, err := c.validate()
	if err != nil {
		return err
	}
	ib := c.IndexBuffer
	if ib == nil {
		return fmt.Errorf("%w: index buffer", gpu.ErrNotBound)
	}
	if err := ib.check(); err != nil {
		return err
	}
	size := c.IndexFormat.Size()
	if c.IndexFormat != gpu.FormatR16UInt && c.IndexFormat != gpu.FormatR32UInt {
		return fmt.Errorf("%w: index format %v", gpu.ErrInvalidArg, c.IndexFormat)
	}
	end := c.IndexOffset + (startIndex+indexCount)*size
	if startIndex < 0 || end > len(ib.data) {
		return fmt.Errorf("%w: indices [%d,%d) overrun the index buffer", gpu.ErrInvalidArg, startIndex, startIndex+indexCount)
	}
	for i := startIndex; i < startIndex+indexCount; i++ {
		p := ib.data[c.IndexOffset+i*size:]
		var x int
		if size == 2 {
			x = int(binary.LittleEndian.Uint16(p))
		} else {
			x = int(binary.LittleEndian.Uint32(p))
		}
		if x+baseVertex < 0 || x+baseVertex >= n {
			return fmt.Errorf("%w: index %d references vertex %d of %d", gpu.ErrInvalidArg, i, x+baseVertex, n)
		}
	}
	c.Draws = append(c.Draws, DrawCall{Indexed: true, Count: indexCount, Start: startIndex, BaseVertex: baseVertex})
	return nil
}

// validate checks the bound state and returns the number of vertices
// available in slot 0.
func (c *Context) validate() (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	switch {
	case c.Layout == nil:
		return 0, fmt.Errorf("%w: input layout", gpu.ErrNotBound)
	case c.VS == nil:
		return 0, fmt.Errorf("%w: vertex shader", gpu.ErrNotBound)
	case c.PS == nil:
		return 0, fmt.Errorf("%w: pixel shader", gpu.ErrNotBound)
	case c.Topology == gpu.TopologyUndefined:
		return 0, fmt.Errorf("%w: primitive topology", gpu.ErrNotBound)
	case len(c.RenderTargets) == 0:
		return 0, fmt.Errorf("%w: render target", gpu.ErrNotBound)
	case len(c.Viewports) == 0:
		return 0, fmt.Errorf("%w: viewport", gpu.ErrNotBound)
	}
	for _, r := range []*resource{&c.Layout.resource, &c.VS.resource, &c.PS.resource, &c.RenderTargets[0].resource} {
		if err := r.check(); err != nil {
			return 0, err
		}
	}
	if c.DepthStencil != nil {
		if err := c.DepthStencil.check(); err != nil {
			return 0, err
		}
	}

	if err := checkConstants("vertex", c.VS, c.VSConstants); err != nil {
		return 0, err
	}
	if err := checkConstants("pixel", c.PS, c.PSConstants); err != nil {
		return 0, err
	}

	vb, ok := c.VertexBuffers[0]
	if !ok || vb.Buffer == nil {
		return 0, fmt.Errorf("%w: vertex buffer in slot 0", gpu.ErrNotBound)
	}
	if err := vb.Buffer.check(); err != nil {
		return 0, err
	}
	if need := gpu.SlotStride(c.Layout.elems, 0); vb.Stride <= 0 || vb.Stride < need {
		return 0, fmt.Errorf("%w: stride %d is smaller than the %d byte vertex", gpu.ErrInvalidArg, vb.Stride, need)
	}
	return (len(vb.Buffer.data) - vb.Offset) / vb.Stride, nil
}

func checkConstants(stage string, s *Shader, bound map[int]*Buffer) error {
	need := s.Blob.Constants.Size
	if need == 0 {
		return nil
	}
	cb := bound[0]
	if cb == nil {
		return fmt.Errorf("%w: %s constant buffer 0", gpu.ErrNotBound, stage)
	}
	if err := cb.check(); err != nil {
		return err
	}
	if cb.desc.ByteWidth < need {
		return fmt.Errorf("%w: %s constant buffer is %d bytes, shader reads %d", gpu.ErrInvalidArg, stage, cb.desc.ByteWidth, need)
	}
	return nil
}

// ClearState implements gpu.DeviceContext.
func (c *Context) ClearState() {
	c.drv.call("ClearState")
	draws := c.Draws
	*c = Context{resource: c.resource, Draws: draws}
}
