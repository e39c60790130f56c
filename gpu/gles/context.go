package gles

import (
	"fmt"

	"golang.org/x/mobile/gl"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
)

type vertexBinding struct {
	buf    *Buffer
	stride int
	offset int
}

// Context is the immediate context.  Bindings that have a GL equivalent
// take effect at once; shaders, input layout and constant buffers are
// resolved into a program and attribute pointers when drawing.
type Context struct {
	object
	dev *Device

	layout   *InputLayout
	vbs      map[int]vertexBinding
	ib       *Buffer
	ibFormat gpu.Format
	ibOffset int
	topology gpu.PrimitiveTopology
	vs       *Shader
	ps       *Shader
	vsCB     map[int]*Buffer
	psCB     map[int]*Buffer
	viewport bool
	rtv      *RenderTargetView
	dsv      *DepthStencilView

	enabled []gl.Attrib
}

var _ gpu.DeviceContext = (*Context)(nil)

func (c *Context) Release() {
	if c.release() {
		c.disableAttribs()
	}
}

func (c *Context) resetState() {
	c.layout = nil
	c.vbs = map[int]vertexBinding{}
	c.ib = nil
	c.ibFormat = gpu.FormatUnknown
	c.ibOffset = 0
	c.topology = gpu.TopologyUndefined
	c.vs, c.ps = nil, nil
	c.vsCB = map[int]*Buffer{}
	c.psCB = map[int]*Buffer{}
	c.viewport = false
	c.rtv, c.dsv = nil, nil
}

func (c *Context) IASetInputLayout(layout gpu.InputLayout) {
	c.layout, _ = layout.(*InputLayout)
}

func (c *Context) IASetVertexBuffers(startSlot int, bufs []gpu.Buffer, strides, offsets []int) {
	for i, b := range bufs {
		vb := vertexBinding{}
		vb.buf, _ = b.(*Buffer)
		if i < len(strides) {
			vb.stride = strides[i]
		}
		if i < len(offsets) {
			vb.offset = offsets[i]
		}
		c.vbs[startSlot+i] = vb
	}
}

func (c *Context) IASetIndexBuffer(buf gpu.Buffer, format gpu.Format, offset int) {
	c.ib, _ = buf.(*Buffer)
	c.ibFormat = format
	c.ibOffset = offset
}

func (c *Context) IASetPrimitiveTopology(topology gpu.PrimitiveTopology) {
	c.topology = topology
}

func (c *Context) VSSetShader(vs gpu.VertexShader) {
	c.vs, _ = vs.(*Shader)
}

func (c *Context) VSSetConstantBuffers(startSlot int, bufs []gpu.Buffer) {
	for i, b := range bufs {
		c.vsCB[startSlot+i], _ = b.(*Buffer)
	}
}

func (c *Context) PSSetShader(ps gpu.PixelShader) {
	c.ps, _ = ps.(*Shader)
}

func (c *Context) PSSetConstantBuffers(startSlot int, bufs []gpu.Buffer) {
	for i, b := range bufs {
		c.psCB[startSlot+i], _ = b.(*Buffer)
	}
}

// RSSetViewports sets the first viewport; GLES has only one.
func (c *Context) RSSetViewports(viewports []gpu.Viewport) {
	if len(viewports) == 0 {
		return
	}
	v := viewports[0]
	x, y, w, h := viewportRect(v, c.dev.height)
	c.dev.ctx.Viewport(x, y, w, h)
	c.dev.ctx.DepthRangef(v.MinDepth, v.MaxDepth)
	c.viewport = true
}

func (c *Context) RSSetState(state gpu.RasterizerState) {
	desc := defaultRasterizer
	if rs, ok := state.(*RasterizerState); ok && rs != nil {
		desc = rs.desc
	}
	c.applyRasterizer(desc)
}

func (c *Context) applyRasterizer(desc gpu.RasterizerDesc) {
	ctx := c.dev.ctx
	if desc.FrontCounterClockwise {
		ctx.FrontFace(gl.CCW)
	} else {
		ctx.FrontFace(gl.CW)
	}
	switch desc.CullMode {
	case gpu.CullNone:
		ctx.Disable(gl.CULL_FACE)
	case gpu.CullFront:
		ctx.Enable(gl.CULL_FACE)
		ctx.CullFace(gl.FRONT)
	default:
		ctx.Enable(gl.CULL_FACE)
		ctx.CullFace(gl.BACK)
	}
}

// OMSetRenderTargets binds the first render target and attaches dsv to it.
func (c *Context) OMSetRenderTargets(rtvs []gpu.RenderTargetView, dsv gpu.DepthStencilView) {
	c.rtv = nil
	if len(rtvs) > 0 {
		c.rtv, _ = rtvs[0].(*RenderTargetView)
	}
	c.dsv, _ = dsv.(*DepthStencilView)
	c.bindTarget()

	ctx := c.dev.ctx
	if c.rtv != nil && !c.rtv.tex.window {
		var rb gl.Renderbuffer
		if c.dsv != nil {
			rb = c.dsv.tex.rb
		}
		ctx.FramebufferRenderbuffer(gl.FRAMEBUFFER, glDepthStencilAttachment, gl.RENDERBUFFER, rb)
	}
	if c.dsv != nil {
		ctx.Enable(gl.DEPTH_TEST)
		ctx.DepthFunc(gl.LESS)
		ctx.DepthMask(true)
	} else {
		ctx.Disable(gl.DEPTH_TEST)
	}
}

// bindTarget binds the framebuffer of the current render target.
func (c *Context) bindTarget() {
	fbo := gl.Framebuffer{}
	if c.rtv != nil {
		fbo = c.rtv.fbo
	}
	c.dev.ctx.BindFramebuffer(gl.FRAMEBUFFER, fbo)
}

func (c *Context) UpdateSubresource(buf gpu.Buffer, data []byte) error {
	b, ok := buf.(*Buffer)
	if !ok || b == nil {
		return fmt.Errorf("%w: foreign buffer %T", gpu.ErrInvalidArg, buf)
	}
	switch {
	case b.released:
		return fmt.Errorf("%w: released buffer", gpu.ErrInvalidArg)
	case b.desc.Usage == gpu.UsageImmutable:
		return gpu.ErrImmutable
	case len(data) != b.desc.ByteWidth:
		return fmt.Errorf("%w: %d bytes for a %d byte buffer", gpu.ErrInvalidArg, len(data), b.desc.ByteWidth)
	}
	if b.shadow != nil {
		copy(b.shadow, data)
		return nil
	}
	c.dev.ctx.BindBuffer(b.target, b.buf)
	c.dev.ctx.BufferSubData(b.target, 0, data)
	return nil
}

func (c *Context) ClearRenderTargetView(rtv gpu.RenderTargetView, color [4]float32) {
	v, ok := rtv.(*RenderTargetView)
	if !ok || v == nil || v.released {
		return
	}
	ctx := c.dev.ctx
	if v != c.rtv {
		ctx.BindFramebuffer(gl.FRAMEBUFFER, v.fbo)
		defer c.bindTarget()
	}
	ctx.ColorMask(true, true, true, true)
	ctx.ClearColor(color[0], color[1], color[2], color[3])
	ctx.Clear(gl.COLOR_BUFFER_BIT)
}

// ClearDepthStencilView clears dsv, which must be the bound depth stencil
// view.
func (c *Context) ClearDepthStencilView(dsv gpu.DepthStencilView, flags gpu.ClearFlag, depth float32, stencil uint8) {
	v, ok := dsv.(*DepthStencilView)
	if !ok || v == nil || v != c.dsv {
		return
	}
	ctx := c.dev.ctx
	var mask gl.Enum
	if flags&gpu.ClearDepth != 0 {
		ctx.DepthMask(true)
		ctx.ClearDepthf(depth)
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if flags&gpu.ClearStencil != 0 {
		ctx.ClearStencil(int(stencil))
		mask |= gl.STENCIL_BUFFER_BIT
	}
	if mask != 0 {
		ctx.Clear(mask)
	}
}

func (c *Context) Draw(vertexCount, startVertex int) error {
	mode, err := c.prepare()
	if err != nil {
		return err
	}
	c.dev.ctx.DrawArrays(mode, startVertex, vertexCount)
	return nil
}

// DrawIndexed draws from the bound index buffer.  GLES 3.0 cannot offset
// indices, so baseVertex must be 0.
func (c *Context) DrawIndexed(indexCount, startIndex, baseVertex int) error {
	if baseVertex != 0 {
		return fmt.Errorf("%w: base vertex %d", gpu.ErrUnsupported, baseVertex)
	}
	if c.ib == nil || c.ib.released {
		return fmt.Errorf("%w: index buffer", gpu.ErrNotBound)
	}
	ty, err := indexType(c.ibFormat)
	if err != nil {
		return err
	}
	end := c.ibOffset + (startIndex+indexCount)*c.ibFormat.Size()
	if startIndex < 0 || end > c.ib.desc.ByteWidth {
		return fmt.Errorf("%w: indices [%d,%d) overrun the index buffer", gpu.ErrInvalidArg, startIndex, startIndex+indexCount)
	}
	mode, err := c.prepare()
	if err != nil {
		return err
	}
	c.dev.ctx.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, c.ib.buf)
	c.dev.ctx.DrawElements(mode, indexCount, ty, c.ibOffset+startIndex*c.ibFormat.Size())
	return nil
}

// prepare makes the program current, uploads constants and points the
// program's attributes at the bound vertex buffers.
func (c *Context) prepare() (gl.Enum, error) {
	switch {
	case c.released:
		return 0, fmt.Errorf("%w: released context", gpu.ErrInvalidArg)
	case c.layout == nil:
		return 0, fmt.Errorf("%w: input layout", gpu.ErrNotBound)
	case c.vs == nil || c.vs.released:
		return 0, fmt.Errorf("%w: vertex shader", gpu.ErrNotBound)
	case c.ps == nil || c.ps.released:
		return 0, fmt.Errorf("%w: pixel shader", gpu.ErrNotBound)
	case c.rtv == nil || c.rtv.released:
		return 0, fmt.Errorf("%w: render target", gpu.ErrNotBound)
	case !c.viewport:
		return 0, fmt.Errorf("%w: viewport", gpu.ErrNotBound)
	}
	mode, err := primitiveMode(c.topology)
	if err != nil {
		return 0, err
	}

	prog, err := c.dev.program(c.vs, c.ps)
	if err != nil {
		return 0, err
	}
	ctx := c.dev.ctx
	ctx.UseProgram(prog.p)

	for _, stage := range []struct {
		name string
		s    *Shader
		cbs  map[int]*Buffer
	}{{"vertex", c.vs, c.vsCB}, {"pixel", c.ps, c.psCB}} {
		layout := stage.s.blob.Constants
		if layout.Size == 0 {
			continue
		}
		cb := stage.cbs[0]
		if cb == nil || cb.released || cb.shadow == nil {
			return 0, fmt.Errorf("%w: %s constant buffer 0", gpu.ErrNotBound, stage.name)
		}
		if err := c.dev.uploadConstants(prog, layout, cb); err != nil {
			return 0, err
		}
	}

	c.disableAttribs()
	for _, b := range matchAttribs(c.layout.elems, c.vs.blob.Inputs) {
		e := b.elem
		loc, active, err := prog.attrib(b.input)
		if err != nil {
			return 0, err
		}
		if !active {
			continue
		}
		vb, ok := c.vbs[e.InputSlot]
		if !ok || vb.buf == nil || vb.buf.released {
			return 0, fmt.Errorf("%w: vertex buffer in slot %d", gpu.ErrNotBound, e.InputSlot)
		}
		ctx.BindBuffer(gl.ARRAY_BUFFER, vb.buf.buf)
		ctx.EnableVertexAttribArray(loc)
		ctx.VertexAttribPointer(loc, e.Format.Components(), gl.FLOAT, false, vb.stride, vb.offset+e.AlignedByteOffset)
		c.enabled = append(c.enabled, loc)
	}
	return mode, nil
}

func (c *Context) disableAttribs() {
	for _, a := range c.enabled {
		c.dev.ctx.DisableVertexAttribArray(a)
	}
	c.enabled = c.enabled[:0]
}

// ClearState unbinds everything and restores the default GL state.
func (c *Context) ClearState() {
	ctx := c.dev.ctx
	c.disableAttribs()
	ctx.UseProgram(gl.Program{})
	ctx.BindBuffer(gl.ARRAY_BUFFER, gl.Buffer{})
	ctx.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gl.Buffer{})
	ctx.Disable(gl.DEPTH_TEST)
	c.applyRasterizer(defaultRasterizer)
	c.resetState()
	c.bindTarget()
}
