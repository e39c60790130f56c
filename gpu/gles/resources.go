package gles

import (
	"golang.org/x/mobile/gl"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
	"github.com/bmatsuo/gles-pipeline-tutorial/shader"
)

// object guards a resource against being released twice.
type object struct {
	released bool
}

// release reports whether the caller holds the last live reference and must
// free the GL object.
func (o *object) release() bool {
	if o.released {
		return false
	}
	o.released = true
	return true
}

// Buffer is a GL buffer object.  Constant buffers have no GL object; they
// are a CPU copy uploaded to uniforms at draw time.
type Buffer struct {
	object
	dev    *Device
	desc   gpu.BufferDesc
	target gl.Enum
	buf    gl.Buffer
	shadow []byte
}

func (b *Buffer) Desc() gpu.BufferDesc { return b.desc }

func (b *Buffer) Release() {
	if b.release() && b.shadow == nil {
		b.dev.ctx.DeleteBuffer(b.buf)
	}
}

// renderbuffer is the storage shared by the references to a texture.
type renderbuffer struct {
	dev  *Device
	rb   gl.Renderbuffer
	refs int
	// window is set for storage owned by the window's framebuffer.
	window bool
}

func (r *renderbuffer) retain() {
	r.refs++
}

func (r *renderbuffer) unref() {
	r.refs--
	if r.refs == 0 && !r.window {
		r.dev.ctx.DeleteRenderbuffer(r.rb)
	}
}

// Texture is one reference to renderbuffer storage.
type Texture struct {
	object
	desc    gpu.Texture2DDesc
	storage *renderbuffer
}

func (t *Texture) Desc() gpu.Texture2DDesc { return t.desc }

func (t *Texture) Release() {
	if t.release() {
		t.storage.unref()
	}
}

// RenderTargetView is a framebuffer object with a color renderbuffer.  At
// feature level 2 it is the window framebuffer.
type RenderTargetView struct {
	object
	dev *Device
	fbo gl.Framebuffer
	tex *renderbuffer
}

func (v *RenderTargetView) Release() {
	if !v.release() {
		return
	}
	if !v.tex.window {
		v.dev.ctx.DeleteFramebuffer(v.fbo)
	}
	v.tex.unref()
}

// DepthStencilView is attached to the bound render target's framebuffer by
// OMSetRenderTargets.
type DepthStencilView struct {
	object
	tex *renderbuffer
}

func (v *DepthStencilView) Release() {
	if v.release() {
		v.tex.unref()
	}
}

// Shader is a compiled GL shader object.
type Shader struct {
	object
	dev  *Device
	sh   gl.Shader
	blob *shader.Blob
}

func (s *Shader) Release() {
	if s.release() {
		s.dev.dropPrograms(s)
		s.dev.ctx.DeleteShader(s.sh)
	}
}

// InputLayout is a validated element list.  GL has no layout object; the
// elements are applied as attribute pointers at draw time.
type InputLayout struct {
	object
	elems []gpu.InputElement
}

func (l *InputLayout) Release() { l.release() }

// RasterizerState is applied with Enable/CullFace/FrontFace.
type RasterizerState struct {
	object
	desc gpu.RasterizerDesc
}

func (s *RasterizerState) Release() { s.release() }

// defaultRasterizer is the state in effect when none is bound.
var defaultRasterizer = gpu.RasterizerDesc{
	FillMode:              gpu.FillSolid,
	CullMode:              gpu.CullBack,
	FrontCounterClockwise: false,
}
