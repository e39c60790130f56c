package gputest

import (
	"fmt"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
	"github.com/bmatsuo/gles-pipeline-tutorial/shader"
)

// Device is a gpu.Device.
type Device struct {
	resource
}

var _ gpu.Device = (*Device)(nil)

// FeatureLevel implements gpu.Device.
func (d *Device) FeatureLevel() gpu.FeatureLevel {
	return d.drv.Level
}

// Description implements gpu.Device.
func (d *Device) Description() string {
	return "gputest recording device"
}

// Buffer is a gpu.Buffer holding a copy of its contents.
type Buffer struct {
	resource
	desc gpu.BufferDesc
	data []byte
}

// Desc implements gpu.Buffer.
func (b *Buffer) Desc() gpu.BufferDesc {
	return b.desc
}

// Data returns the current contents of the buffer.
func (b *Buffer) Data() []byte {
	return b.data
}

// CreateBuffer implements gpu.Device.
func (d *Device) CreateBuffer(desc gpu.BufferDesc, initial []byte) (gpu.Buffer, error) {
	if err := d.drv.call("CreateBuffer"); err != nil {
		return nil, err
	}
	switch {
	case desc.ByteWidth <= 0:
		return nil, fmt.Errorf("%w: buffer size %d", gpu.ErrInvalidArg, desc.ByteWidth)
	case desc.BindFlags == 0:
		return nil, fmt.Errorf("%w: buffer without bind flags", gpu.ErrInvalidArg)
	case desc.BindFlags&gpu.BindConstantBuffer != 0 && desc.ByteWidth%16 != 0:
		return nil, fmt.Errorf("%w: constant buffer size %d is not a multiple of 16", gpu.ErrInvalidArg, desc.ByteWidth)
	case initial != nil && len(initial) != desc.ByteWidth:
		return nil, fmt.Errorf("%w: %d bytes of initial data for a %d byte buffer", gpu.ErrInvalidArg, len(initial), desc.ByteWidth)
	case desc.Usage == gpu.UsageImmutable && initial == nil:
		return nil, fmt.Errorf("%w: immutable buffer without initial data", gpu.ErrInvalidArg)
	}
	b := &Buffer{resource: d.drv.newResource(bufferKind(desc.BindFlags)), desc: desc}
	b.data = make([]byte, desc.ByteWidth)
	copy(b.data, initial)
	d.drv.track(&b.resource)
	return b, nil
}

func bufferKind(flags gpu.BindFlag) string {
	switch {
	case flags&gpu.BindVertexBuffer != 0:
		return "VertexBuffer"
	case flags&gpu.BindIndexBuffer != 0:
		return "IndexBuffer"
	case flags&gpu.BindConstantBuffer != 0:
		return "ConstantBuffer"
	}
	return "Buffer"
}

// Texture is a gpu.Texture2D.
type Texture struct {
	resource
	desc gpu.Texture2DDesc
}

// Desc implements gpu.Texture2D.
func (t *Texture) Desc() gpu.Texture2DDesc {
	return t.desc
}

// CreateTexture2D implements gpu.Device.
func (d *Device) CreateTexture2D(desc gpu.Texture2DDesc) (gpu.Texture2D, error) {
	if err := d.drv.call("CreateTexture2D"); err != nil {
		return nil, err
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: texture size %dx%d", gpu.ErrInvalidArg, desc.Width, desc.Height)
	}
	if desc.Format.Size() == 0 {
		return nil, fmt.Errorf("%w: texture format %v", gpu.ErrInvalidArg, desc.Format)
	}
	t := &Texture{resource: d.drv.newResource("Texture2D"), desc: desc}
	d.drv.track(&t.resource)
	return t, nil
}

// View is a render target or depth stencil view.
type View struct {
	resource
	Texture *Texture
}

// CreateRenderTargetView implements gpu.Device.
func (d *Device) CreateRenderTargetView(tex gpu.Texture2D) (gpu.RenderTargetView, error) {
	if err := d.drv.call("CreateRenderTargetView"); err != nil {
		return nil, err
	}
	t, err := d.texture(tex, gpu.BindRenderTarget)
	if err != nil {
		return nil, err
	}
	v := &View{resource: d.drv.newResource("RenderTargetView"), Texture: t}
	d.drv.track(&v.resource)
	return v, nil
}

// CreateDepthStencilView implements gpu.Device.
func (d *Device) CreateDepthStencilView(tex gpu.Texture2D) (gpu.DepthStencilView, error) {
	if err := d.drv.call("CreateDepthStencilView"); err != nil {
		return nil, err
	}
	t, err := d.texture(tex, gpu.BindDepthStencil)
	if err != nil {
		return nil, err
	}
	if t.desc.Format != gpu.FormatD24UNormS8UInt {
		return nil, fmt.Errorf("%w: depth stencil format %v", gpu.ErrInvalidArg, t.desc.Format)
	}
	v := &View{resource: d.drv.newResource("DepthStencilView"), Texture: t}
	d.drv.track(&v.resource)
	return v, nil
}

func (d *Device) texture(tex gpu.Texture2D, bind gpu.BindFlag) (*Texture, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: foreign texture %T", gpu.ErrInvalidArg, tex)
	}
	if err := t.check(); err != nil {
		return nil, err
	}
	if t.desc.BindFlags&bind == 0 {
		return nil, fmt.Errorf("%w: texture lacks bind flag %d", gpu.ErrInvalidArg, bind)
	}
	return t, nil
}

// Shader is a vertex or pixel shader.
type Shader struct {
	resource
	Blob *shader.Blob
}

// CreateVertexShader implements gpu.Device.
func (d *Device) CreateVertexShader(blob *shader.Blob) (gpu.VertexShader, error) {
	s, err := d.createShader("CreateVertexShader", "VertexShader", blob, shader.StageVertex)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreatePixelShader implements gpu.Device.
func (d *Device) CreatePixelShader(blob *shader.Blob) (gpu.PixelShader, error) {
	s, err := d.createShader("CreatePixelShader", "PixelShader", blob, shader.StagePixel)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (d *Device) createShader(method, kind string, blob *shader.Blob, stage shader.Stage) (*Shader, error) {
	if err := d.drv.call(method); err != nil {
		return nil, err
	}
	if blob == nil || blob.Len() == 0 {
		return nil, fmt.Errorf("%w: empty shader blob", gpu.ErrInvalidArg)
	}
	if blob.Stage() != stage {
		return nil, fmt.Errorf("%w: %s blob for a %s shader", gpu.ErrInvalidArg, blob.Stage(), stage)
	}
	s := &Shader{resource: d.drv.newResource(kind), Blob: blob}
	d.drv.track(&s.resource)
	return s, nil
}

// InputLayout is a gpu.InputLayout.
type InputLayout struct {
	resource
	elems []gpu.InputElement
}

// CreateInputLayout implements gpu.Device.
func (d *Device) CreateInputLayout(elems []gpu.InputElement, vs *shader.Blob) (gpu.InputLayout, error) {
	if err := d.drv.call("CreateInputLayout"); err != nil {
		return nil, err
	}
	if vs == nil || vs.Stage() != shader.StageVertex {
		return nil, fmt.Errorf("%w: input layout needs a vertex shader blob", gpu.ErrInvalidArg)
	}
	if err := gpu.ValidateInputLayout(elems, vs.Inputs); err != nil {
		return nil, err
	}
	l := &InputLayout{resource: d.drv.newResource("InputLayout"), elems: gpu.ResolveOffsets(elems)}
	d.drv.track(&l.resource)
	return l, nil
}

// RasterizerState is a gpu.RasterizerState.
type RasterizerState struct {
	resource
	Desc gpu.RasterizerDesc
}

// CreateRasterizerState implements gpu.Device.
func (d *Device) CreateRasterizerState(desc gpu.RasterizerDesc) (gpu.RasterizerState, error) {
	if err := d.drv.call("CreateRasterizerState"); err != nil {
		return nil, err
	}
	s := &RasterizerState{resource: d.drv.newResource("RasterizerState"), Desc: desc}
	d.drv.track(&s.resource)
	return s, nil
}
