// Package pipeline owns every object of a tutorial's rendering pipeline.  Init
// creates and binds them in order, Render draws one frame and Teardown
// releases whatever Init managed to create.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/mobile/exp/f32"

	"github.com/bmatsuo/gles-pipeline-tutorial/config"
	"github.com/bmatsuo/gles-pipeline-tutorial/f32hack"
	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
	"github.com/bmatsuo/gles-pipeline-tutorial/log"
	"github.com/bmatsuo/gles-pipeline-tutorial/mesh"
	"github.com/bmatsuo/gles-pipeline-tutorial/shader"
)

// Options selects what a Pipeline draws.
type Options struct {
	Mesh *mesh.Mesh

	// Lit adds a depth buffer, an index buffer for indexed meshes, the
	// transform constant buffer and a rasterizer state.
	Lit bool

	// Open reads the shader source.  It defaults to the file system.
	Open shader.Opener

	// Clock defaults to the wall clock.
	Clock Clock
	Log   *log.Logger
}

// Pipeline is the owning context of one tutorial's GPU objects.  A nil
// handle was never created or has been released.
type Pipeline struct {
	cfg   config.Config
	mesh  *mesh.Mesh
	lit   bool
	open  shader.Opener
	clock Clock
	log   *log.Logger

	device     gpu.Device
	context    gpu.DeviceContext
	swapChain  gpu.SwapChain
	backBuffer gpu.Texture2D
	rtv        gpu.RenderTargetView
	depthTex   gpu.Texture2D
	dsv        gpu.DepthStencilView
	vs         gpu.VertexShader
	ps         gpu.PixelShader
	layout     gpu.InputLayout
	vb         gpu.Buffer
	ib         gpu.Buffer
	cb         gpu.Buffer
	rs         gpu.RasterizerState

	world      f32.Mat4
	view       f32.Mat4
	projection f32.Mat4
	angle      f32.Radian
	last       time.Time

	stats frameStats
}

// New returns a pipeline that will draw opts.Mesh with the settings in cfg.
func New(cfg config.Config, opts Options) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = wallClock{}
	}
	return &Pipeline{
		cfg:   cfg,
		mesh:  opts.Mesh,
		lit:   opts.Lit,
		open:  opts.Open,
		clock: opts.Clock,
		log:   opts.Log,
	}
}

// Step names an initialization step.
type Step string

// Initialization steps in the order Init runs them.
const (
	StepCreateDevice          Step = "create device and swap chain"
	StepCompileVertexShader   Step = "compile vertex shader"
	StepCreateVertexShader    Step = "create vertex shader"
	StepCreateInputLayout     Step = "create input layout"
	StepCompilePixelShader    Step = "compile pixel shader"
	StepCreatePixelShader     Step = "create pixel shader"
	StepGetBackBuffer         Step = "get back buffer"
	StepCreateRenderTarget    Step = "create render target view"
	StepCreateDepthBuffer     Step = "create depth stencil texture"
	StepCreateDepthStencil    Step = "create depth stencil view"
	StepCreateVertexBuffer    Step = "create vertex buffer"
	StepCreateIndexBuffer     Step = "create index buffer"
	StepCreateConstantBuffer  Step = "create constant buffer"
	StepCreateRasterizerState Step = "create rasterizer state"
)

// StepError is returned by Init.  Objects created before Step are left in
// place for Teardown.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Init creates the device and every pipeline object, binding them as it
// goes.  It stops at the first failure.
func (p *Pipeline) Init(drv gpu.Driver, win gpu.Window) error {
	if p.device != nil {
		return errors.New("pipeline: already initialized")
	}
	if p.mesh == nil {
		return errors.New("pipeline: no mesh")
	}
	fail := func(step Step, err error) error {
		p.log.Error("Pipeline initialization failed", slog.String("step", string(step)), slog.Any("error", err))
		return &StepError{Step: step, Err: err}
	}
	cfg := &p.cfg

	p.log.Debug("Creating device", slog.Int("width", cfg.Width), slog.Int("height", cfg.Height))
	device, context, swapChain, err := drv.CreateDeviceAndSwapChain(gpu.SwapChainDesc{
		Width:        cfg.Width,
		Height:       cfg.Height,
		Format:       gpu.FormatR8G8B8A8UNorm,
		RefreshRate:  gpu.Rational{Numerator: cfg.RefreshNumerator, Denominator: cfg.RefreshDenominator},
		BufferCount:  1,
		SampleCount:  1,
		OutputWindow: win,
		Windowed:     true,
	})
	if err != nil {
		return fail(StepCreateDevice, err)
	}
	p.device, p.context, p.swapChain = device, context, swapChain
	p.log.Info("Device created",
		slog.String("device", p.device.Description()),
		slog.String("feature_level", p.device.FeatureLevel().String()))

	p.log.Debug("Compiling vertex shader", slog.String("file", cfg.ShaderFile), slog.String("entry", cfg.VertexEntry))
	vsBlob, err := p.compile(cfg.VertexEntry, cfg.VertexProfile)
	if err != nil {
		return fail(StepCompileVertexShader, err)
	}
	if p.vs, err = p.device.CreateVertexShader(vsBlob); err != nil {
		return fail(StepCreateVertexShader, err)
	}

	if p.layout, err = p.device.CreateInputLayout(p.mesh.Layout, vsBlob); err != nil {
		return fail(StepCreateInputLayout, err)
	}
	p.context.IASetInputLayout(p.layout)

	p.log.Debug("Compiling pixel shader", slog.String("file", cfg.ShaderFile), slog.String("entry", cfg.PixelEntry))
	psBlob, err := p.compile(cfg.PixelEntry, cfg.PixelProfile)
	if err != nil {
		return fail(StepCompilePixelShader, err)
	}
	if p.ps, err = p.device.CreatePixelShader(psBlob); err != nil {
		return fail(StepCreatePixelShader, err)
	}

	if p.backBuffer, err = p.swapChain.Buffer(0); err != nil {
		return fail(StepGetBackBuffer, err)
	}
	p.rtv, err = p.device.CreateRenderTargetView(p.backBuffer)
	release(&p.backBuffer)
	if err != nil {
		return fail(StepCreateRenderTarget, err)
	}

	if p.lit {
		p.depthTex, err = p.device.CreateTexture2D(gpu.Texture2DDesc{
			Width:       cfg.Width,
			Height:      cfg.Height,
			Format:      gpu.FormatD24UNormS8UInt,
			Usage:       gpu.UsageDefault,
			BindFlags:   gpu.BindDepthStencil,
			SampleCount: 1,
		})
		if err != nil {
			return fail(StepCreateDepthBuffer, err)
		}
		if p.dsv, err = p.device.CreateDepthStencilView(p.depthTex); err != nil {
			return fail(StepCreateDepthStencil, err)
		}
		p.context.OMSetRenderTargets([]gpu.RenderTargetView{p.rtv}, p.dsv)
	} else {
		p.context.OMSetRenderTargets([]gpu.RenderTargetView{p.rtv}, nil)
	}

	p.vb, err = p.device.CreateBuffer(gpu.BufferDesc{
		ByteWidth: len(p.mesh.Vertices),
		Usage:     gpu.UsageImmutable,
		BindFlags: gpu.BindVertexBuffer,
	}, p.mesh.Vertices)
	if err != nil {
		return fail(StepCreateVertexBuffer, err)
	}
	p.context.IASetVertexBuffers(0, []gpu.Buffer{p.vb}, []int{p.mesh.Stride}, []int{0})
	p.context.IASetPrimitiveTopology(p.mesh.Topology)

	if p.lit && p.mesh.Indexed() {
		indices := p.mesh.IndexBytes()
		p.ib, err = p.device.CreateBuffer(gpu.BufferDesc{
			ByteWidth: len(indices),
			Usage:     gpu.UsageImmutable,
			BindFlags: gpu.BindIndexBuffer,
		}, indices)
		if err != nil {
			return fail(StepCreateIndexBuffer, err)
		}
		p.context.IASetIndexBuffer(p.ib, p.mesh.IndexFormat(), 0)
	}

	p.context.RSSetViewports([]gpu.Viewport{{
		Width:    float32(cfg.Width),
		Height:   float32(cfg.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}})

	if !p.lit {
		p.log.Debug("Pipeline initialized", slog.String("mesh", p.mesh.Name))
		return nil
	}

	for _, blob := range []*shader.Blob{vsBlob, psBlob} {
		if err := checkConstantLayout(blob.Constants); err != nil {
			return fail(StepCreateConstantBuffer, fmt.Errorf("%s stage: %w", blob.Stage(), err))
		}
	}
	p.cb, err = p.device.CreateBuffer(gpu.BufferDesc{
		ByteWidth: ConstantBufferSize,
		Usage:     gpu.UsageDefault,
		BindFlags: gpu.BindConstantBuffer,
	}, nil)
	if err != nil {
		return fail(StepCreateConstantBuffer, err)
	}

	p.world = f32hack.Identity()
	eye := f32.Vec3(cfg.Eye)
	target := f32.Vec3(cfg.Target)
	up := f32.Vec3(cfg.Up)
	f32hack.LookAt(&p.view, &eye, &target, &up)
	f32hack.SetPerspective(&p.projection, f32hack.Degrees(cfg.FieldOfView), cfg.Aspect(), cfg.Near, cfg.Far)

	p.rs, err = p.device.CreateRasterizerState(gpu.RasterizerDesc{
		FillMode: gpu.FillSolid,
		CullMode: gpu.CullNone,
	})
	if err != nil {
		return fail(StepCreateRasterizerState, err)
	}
	p.context.RSSetState(p.rs)

	p.log.Debug("Pipeline initialized", slog.String("mesh", p.mesh.Name), slog.Bool("lit", true))
	return nil
}

// compile compiles one entry point of the shader file, logging the compiler
// diagnostic when there is one.
func (p *Pipeline) compile(entry, profile string) (*shader.Blob, error) {
	path := p.cfg.ShaderFile
	var blob *shader.Blob
	var err error
	if p.open != nil {
		blob, err = shader.CompileFrom(p.open, path, entry, profile)
	} else {
		blob, err = shader.CompileFromFile(path, entry, profile)
	}
	var cerr *shader.CompileError
	switch {
	case errors.As(err, &cerr):
		p.log.Error("Shader compilation failed", slog.String("entry", entry), slog.String("diagnostic", cerr.Diagnostic))
	case errors.Is(err, shader.ErrSourceNotFound):
		p.log.Error("Shader source not found", slog.String("file", path))
	}
	return blob, err
}

// Teardown clears the pipeline state and releases every object Init
// created, in reverse order.  It may be called after a failed Init and more
// than once.
func (p *Pipeline) Teardown() {
	if p.context != nil {
		p.context.ClearState()
	}
	release(&p.rs)
	release(&p.cb)
	release(&p.ib)
	release(&p.vb)
	release(&p.dsv)
	release(&p.depthTex)
	release(&p.rtv)
	release(&p.backBuffer)
	release(&p.ps)
	release(&p.layout)
	release(&p.vs)
	release(&p.swapChain)
	release(&p.context)
	release(&p.device)
}

// release releases the object *r refers to, if any, and clears *r.
func release[T interface {
	comparable
	gpu.Resource
}](r *T) {
	var zero T
	if *r != zero {
		(*r).Release()
		*r = zero
	}
}
