package gles

import (
	"fmt"

	"golang.org/x/mobile/gl"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
	"github.com/bmatsuo/gles-pipeline-tutorial/shader"
)

// Device creates GL objects.
type Device struct {
	object
	ctx   gl.Context
	ctx3  gl.Context3 // nil at feature level 2
	level gpu.FeatureLevel
	desc  string

	// size of the swap chain, which is the size of every render target
	width, height int

	imm      *Context
	programs map[programKey]*program
}

var _ gpu.Device = (*Device)(nil)

func (d *Device) FeatureLevel() gpu.FeatureLevel { return d.level }

func (d *Device) Description() string { return d.desc }

func (d *Device) Release() {
	if !d.release() {
		return
	}
	for key, p := range d.programs {
		d.ctx.DeleteProgram(p.p)
		delete(d.programs, key)
	}
}

func (d *Device) CreateBuffer(desc gpu.BufferDesc, initial []byte) (gpu.Buffer, error) {
	switch {
	case desc.ByteWidth <= 0:
		return nil, fmt.Errorf("%w: buffer size %d", gpu.ErrInvalidArg, desc.ByteWidth)
	case initial != nil && len(initial) != desc.ByteWidth:
		return nil, fmt.Errorf("%w: %d bytes of initial data for a %d byte buffer", gpu.ErrInvalidArg, len(initial), desc.ByteWidth)
	case desc.Usage == gpu.UsageImmutable && initial == nil:
		return nil, fmt.Errorf("%w: immutable buffer without initial data", gpu.ErrInvalidArg)
	}

	b := &Buffer{dev: d, desc: desc}
	switch {
	case desc.BindFlags == gpu.BindConstantBuffer:
		if desc.ByteWidth%16 != 0 {
			return nil, fmt.Errorf("%w: constant buffer size %d is not a multiple of 16", gpu.ErrInvalidArg, desc.ByteWidth)
		}
		b.shadow = make([]byte, desc.ByteWidth)
		copy(b.shadow, initial)
		return b, nil
	case desc.BindFlags == gpu.BindVertexBuffer:
		b.target = gl.ARRAY_BUFFER
	case desc.BindFlags == gpu.BindIndexBuffer:
		b.target = gl.ELEMENT_ARRAY_BUFFER
	default:
		return nil, fmt.Errorf("%w: buffer bind flags %#x", gpu.ErrUnsupported, uint(desc.BindFlags))
	}

	b.buf = d.ctx.CreateBuffer()
	d.ctx.BindBuffer(b.target, b.buf)
	if initial != nil {
		d.ctx.BufferData(b.target, initial, bufferUsage(desc.Usage))
	} else {
		d.ctx.BufferInit(b.target, desc.ByteWidth, bufferUsage(desc.Usage))
	}
	if err := checkError(d.ctx, "create buffer"); err != nil {
		d.ctx.DeleteBuffer(b.buf)
		return nil, err
	}
	return b, nil
}

func (d *Device) CreateTexture2D(desc gpu.Texture2DDesc) (gpu.Texture2D, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: texture size %dx%d", gpu.ErrInvalidArg, desc.Width, desc.Height)
	}
	if desc.SampleCount > 1 {
		return nil, fmt.Errorf("%w: multisampled textures", gpu.ErrUnsupported)
	}
	if desc.BindFlags&^(gpu.BindRenderTarget|gpu.BindDepthStencil) != 0 || desc.BindFlags == 0 {
		return nil, fmt.Errorf("%w: texture bind flags %#x", gpu.ErrUnsupported, uint(desc.BindFlags))
	}
	internal, err := renderbufferFormat(desc.Format, d.level)
	if err != nil {
		return nil, err
	}

	storage := &renderbuffer{dev: d, refs: 1}
	if d.level < gpu.FeatureLevel3 {
		// Only the window's own buffers can be drawn to.
		if desc.Width != d.width || desc.Height != d.height {
			return nil, fmt.Errorf("%w: %dx%d texture at feature level %v", gpu.ErrUnsupported, desc.Width, desc.Height, d.level)
		}
		storage.window = true
		return &Texture{desc: desc, storage: storage}, nil
	}

	storage.rb = d.ctx.CreateRenderbuffer()
	d.ctx.BindRenderbuffer(gl.RENDERBUFFER, storage.rb)
	d.ctx.RenderbufferStorage(gl.RENDERBUFFER, internal, desc.Width, desc.Height)
	if err := checkError(d.ctx, "create texture"); err != nil {
		d.ctx.DeleteRenderbuffer(storage.rb)
		return nil, err
	}
	return &Texture{desc: desc, storage: storage}, nil
}

func (d *Device) texture(tex gpu.Texture2D, bind gpu.BindFlag) (*Texture, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: foreign texture %T", gpu.ErrInvalidArg, tex)
	}
	if t.released {
		return nil, fmt.Errorf("%w: released texture", gpu.ErrInvalidArg)
	}
	if t.desc.BindFlags&bind == 0 {
		return nil, fmt.Errorf("%w: texture lacks bind flag %#x", gpu.ErrInvalidArg, uint(bind))
	}
	if t.desc.Width != d.width || t.desc.Height != d.height {
		return nil, fmt.Errorf("%w: %dx%d view on a %dx%d swap chain", gpu.ErrUnsupported, t.desc.Width, t.desc.Height, d.width, d.height)
	}
	return t, nil
}

func (d *Device) CreateRenderTargetView(tex gpu.Texture2D) (gpu.RenderTargetView, error) {
	t, err := d.texture(tex, gpu.BindRenderTarget)
	if err != nil {
		return nil, err
	}
	if t.storage.window {
		t.storage.retain()
		return &RenderTargetView{dev: d, tex: t.storage}, nil
	}

	fbo := d.ctx.CreateFramebuffer()
	d.ctx.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	d.ctx.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, t.storage.rb)
	status := d.ctx.CheckFramebufferStatus(gl.FRAMEBUFFER)
	d.imm.bindTarget()
	if status != gl.FRAMEBUFFER_COMPLETE {
		d.ctx.DeleteFramebuffer(fbo)
		return nil, fmt.Errorf("%w: framebuffer status %#x", gpu.ErrUnsupported, uint32(status))
	}
	t.storage.retain()
	return &RenderTargetView{dev: d, fbo: fbo, tex: t.storage}, nil
}

func (d *Device) CreateDepthStencilView(tex gpu.Texture2D) (gpu.DepthStencilView, error) {
	t, err := d.texture(tex, gpu.BindDepthStencil)
	if err != nil {
		return nil, err
	}
	if t.desc.Format != gpu.FormatD24UNormS8UInt {
		return nil, fmt.Errorf("%w: depth stencil format %v", gpu.ErrInvalidArg, t.desc.Format)
	}
	t.storage.retain()
	return &DepthStencilView{tex: t.storage}, nil
}

func (d *Device) CreateVertexShader(blob *shader.Blob) (gpu.VertexShader, error) {
	s, err := d.createShader(blob, shader.StageVertex, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (d *Device) CreatePixelShader(blob *shader.Blob) (gpu.PixelShader, error) {
	s, err := d.createShader(blob, shader.StagePixel, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// createShader compiles the blob's code.  Driver compile errors come back as
// *shader.CompileError with the info log.
func (d *Device) createShader(blob *shader.Blob, stage shader.Stage, ty gl.Enum) (*Shader, error) {
	if blob == nil || blob.Len() == 0 {
		return nil, fmt.Errorf("%w: empty shader blob", gpu.ErrInvalidArg)
	}
	if blob.Stage() != stage {
		return nil, fmt.Errorf("%w: %s blob for a %s shader", gpu.ErrInvalidArg, blob.Stage(), stage)
	}
	if blob.Profile.ES3() && d.level < gpu.FeatureLevel3 {
		return nil, fmt.Errorf("%w: profile %s at feature level %v", gpu.ErrUnsupported, blob.Profile.Name, d.level)
	}

	sh := d.ctx.CreateShader(ty)
	if sh.Value == 0 {
		return nil, fmt.Errorf("%w: could not create %s shader", gpu.ErrDeviceLost, stage)
	}
	d.ctx.ShaderSource(sh, blob.Code)
	d.ctx.CompileShader(sh)
	if d.ctx.GetShaderi(sh, gl.COMPILE_STATUS) == 0 {
		info := d.ctx.GetShaderInfoLog(sh)
		d.ctx.DeleteShader(sh)
		return nil, &shader.CompileError{
			Entry:      blob.Entry,
			Profile:    blob.Profile.Name,
			Diagnostic: blob.Path + ": " + info,
		}
	}
	return &Shader{dev: d, sh: sh, blob: blob}, nil
}

func (d *Device) CreateInputLayout(elems []gpu.InputElement, vs *shader.Blob) (gpu.InputLayout, error) {
	if vs == nil || vs.Stage() != shader.StageVertex {
		return nil, fmt.Errorf("%w: input layout needs a vertex shader blob", gpu.ErrInvalidArg)
	}
	if err := gpu.ValidateInputLayout(elems, vs.Inputs); err != nil {
		return nil, err
	}
	return &InputLayout{elems: gpu.ResolveOffsets(elems)}, nil
}

func (d *Device) CreateRasterizerState(desc gpu.RasterizerDesc) (gpu.RasterizerState, error) {
	if desc.FillMode != gpu.FillSolid {
		return nil, fmt.Errorf("%w: GLES has no wireframe fill", gpu.ErrUnsupported)
	}
	return &RasterizerState{desc: desc}, nil
}
