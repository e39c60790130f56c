package pipeline

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/mobile/exp/f32"

	"github.com/bmatsuo/gles-pipeline-tutorial/config"
	"github.com/bmatsuo/gles-pipeline-tutorial/f32hack"
	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
	"github.com/bmatsuo/gles-pipeline-tutorial/gpu/gputest"
	"github.com/bmatsuo/gles-pipeline-tutorial/mesh"
	"github.com/bmatsuo/gles-pipeline-tutorial/shader"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type harness struct {
	p     *Pipeline
	drv   *gputest.Driver
	win   *gputest.Window
	clock *fakeClock
}

func cubeConfig() config.Config {
	cfg := config.Default()
	cfg.ShaderFile = filepath.Join("testdata", "lit.glsl")
	return cfg
}

func triangleConfig() config.Config {
	cfg := config.Default()
	cfg.ShaderFile = filepath.Join("testdata", "triangle.glsl")
	cfg.VertexProfile = "vs_2_0"
	cfg.PixelProfile = "ps_2_0"
	return cfg
}

func newHarness(cfg config.Config, m *mesh.Mesh, lit bool) *harness {
	h := &harness{
		drv:   gputest.NewDriver(),
		win:   &gputest.Window{Width: cfg.Width, Height: cfg.Height},
		clock: &fakeClock{t: time.Unix(1000, 0)},
	}
	h.p = New(cfg, Options{Mesh: m, Lit: lit, Clock: h.clock})
	return h
}

func (h *harness) init() error {
	return h.p.Init(h.drv, h.win)
}

func (h *harness) context() *gputest.Context {
	return h.p.context.(*gputest.Context)
}

// frameCalls returns the calls made by fn.
func (h *harness) frameCalls(fn func()) []string {
	n := len(h.drv.Calls)
	fn()
	return append([]string(nil), h.drv.Calls[n:]...)
}

func floats(b []byte) []float32 {
	fs := make([]float32, len(b)/4)
	for i := range fs {
		fs[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return fs
}

func TestInitCube(t *testing.T) {
	h := newHarness(cubeConfig(), mesh.Cube(), true)
	require.NoError(t, h.init())
	p := h.p

	for name, r := range map[string]gpu.Resource{
		"device": p.device, "context": p.context, "swap chain": p.swapChain,
		"render target": p.rtv, "depth texture": p.depthTex, "depth view": p.dsv,
		"vertex shader": p.vs, "pixel shader": p.ps, "input layout": p.layout,
		"vertex buffer": p.vb, "index buffer": p.ib, "constant buffer": p.cb,
		"rasterizer": p.rs,
	} {
		assert.NotNil(t, r, name)
	}
	assert.Nil(t, p.backBuffer, "back buffer reference is released once the view exists")
	assert.ElementsMatch(t, []string{
		"ConstantBuffer", "DepthStencilView", "Device", "DeviceContext", "IndexBuffer",
		"InputLayout", "PixelShader", "RasterizerState", "RenderTargetView", "SwapChain",
		"Texture2D", "VertexBuffer", "VertexShader",
	}, h.drv.Live())

	ctx := h.context()
	assert.Same(t, p.layout, ctx.Layout)
	assert.Equal(t, 40, ctx.VertexBuffers[0].Stride)
	assert.Equal(t, 0, ctx.VertexBuffers[0].Offset)
	assert.Equal(t, gpu.FormatR16UInt, ctx.IndexFormat)
	assert.Equal(t, gpu.TopologyTriangleList, ctx.Topology)
	assert.Equal(t, []gpu.Viewport{{Width: 800, Height: 600, MaxDepth: 1}}, ctx.Viewports)
	require.NotNil(t, ctx.Rasterizer)
	assert.Equal(t, gpu.RasterizerDesc{FillMode: gpu.FillSolid, CullMode: gpu.CullNone}, ctx.Rasterizer.Desc)
	assert.NotNil(t, ctx.DepthStencil)
	require.Len(t, ctx.RenderTargets, 1)

	sc := p.swapChain.Desc()
	assert.Equal(t, 800, sc.Width)
	assert.Equal(t, 600, sc.Height)
	assert.Equal(t, gpu.FormatR8G8B8A8UNorm, sc.Format)
	assert.Equal(t, gpu.Rational{Numerator: 60, Denominator: 1}, sc.RefreshRate)

	assert.Equal(t, ConstantBufferSize, p.cb.Desc().ByteWidth)
	assert.Equal(t, f32hack.Identity(), p.world)
	assert.Equal(t, float32(-1), p.projection[3][2])

	assert.Error(t, h.init(), "second Init")
}

func TestInitTriangle(t *testing.T) {
	h := newHarness(triangleConfig(), mesh.Triangle(), false)
	require.NoError(t, h.init())
	assert.Nil(t, h.p.dsv)
	assert.Nil(t, h.p.ib)
	assert.Nil(t, h.p.cb)
	assert.Nil(t, h.p.rs)
	assert.ElementsMatch(t, []string{
		"Device", "DeviceContext", "InputLayout", "PixelShader", "RenderTargetView",
		"SwapChain", "VertexBuffer", "VertexShader",
	}, h.drv.Live())
	assert.Equal(t, 12, h.context().VertexBuffers[0].Stride)
	assert.Nil(t, h.context().DepthStencil)

	calls := h.frameCalls(func() { require.NoError(t, h.p.Render()) })
	assert.Equal(t, []string{"ClearRenderTargetView", "VSSetShader", "PSSetShader", "Draw", "Present"}, calls)
	assert.Equal(t, []gputest.DrawCall{{Count: 3}}, h.context().Draws)
	assert.Equal(t, [4]float32{0, 0.125, 0.6, 1}, h.context().ClearColor)
	assert.Equal(t, 1, h.win.Presents)
}

func TestInitOpener(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("testdata", "triangle.glsl"))
	require.NoError(t, err)
	assets := fstest.MapFS{"Shaders.glsl": {Data: src}}

	cfg := triangleConfig()
	cfg.ShaderFile = "Shaders.glsl"
	h := newHarness(cfg, mesh.Triangle(), false)
	h.p.open = func(name string) (io.ReadCloser, error) { return assets.Open(name) }
	require.NoError(t, h.init())
	require.NoError(t, h.p.Render())

	delete(assets, "Shaders.glsl")
	h.p.Teardown()
	err = h.init()
	assert.True(t, errors.Is(err, shader.ErrSourceNotFound), "%v", err)
}

func TestInitShaderSourceNotFound(t *testing.T) {
	cfg := cubeConfig()
	cfg.ShaderFile = filepath.Join("testdata", "missing.glsl")
	h := newHarness(cfg, mesh.Cube(), true)

	err := h.init()
	var serr *StepError
	require.True(t, errors.As(err, &serr), "%v", err)
	assert.Equal(t, StepCompileVertexShader, serr.Step)
	assert.True(t, errors.Is(err, shader.ErrSourceNotFound))
	var cerr *shader.CompileError
	assert.False(t, errors.As(err, &cerr))

	h.p.Teardown()
	assert.Empty(t, h.drv.Live())
}

func TestInitCompileError(t *testing.T) {
	cfg := triangleConfig()
	cfg.ShaderFile = filepath.Join("testdata", "nops.glsl")
	h := newHarness(cfg, mesh.Triangle(), false)

	err := h.init()
	var serr *StepError
	require.True(t, errors.As(err, &serr), "%v", err)
	assert.Equal(t, StepCompilePixelShader, serr.Step)
	var cerr *shader.CompileError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "PS", cerr.Entry)
	assert.NotEmpty(t, cerr.Diagnostic)
	assert.False(t, errors.Is(err, shader.ErrSourceNotFound))

	h.p.Teardown()
	assert.Empty(t, h.drv.Live())
}

func TestInitInputLayoutMismatch(t *testing.T) {
	cfg := triangleConfig()
	cfg.ShaderFile = filepath.Join("testdata", "texcoord.glsl")
	h := newHarness(cfg, mesh.Triangle(), false)

	err := h.init()
	var serr *StepError
	require.True(t, errors.As(err, &serr), "%v", err)
	assert.Equal(t, StepCreateInputLayout, serr.Step)
	assert.True(t, errors.Is(err, gpu.ErrInvalidArg))

	h.p.Teardown()
	assert.Empty(t, h.drv.Live())
}

func TestInitConstantLayoutMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swapped.glsl")
	require.NoError(t, os.WriteFile(path, []byte(`
uniform vec4 LightDir;
uniform mat4 World;

#ifdef VS
in vec3 POSITION;
void VS() { gl_Position = World * vec4(POSITION, 1.0); }
#endif

#ifdef PS
out vec4 SV_Target;
void PS() { SV_Target = LightDir; }
#endif
`), 0o644))
	cfg := cubeConfig()
	cfg.ShaderFile = path
	h := newHarness(cfg, mesh.Cube(), true)

	err := h.init()
	var serr *StepError
	require.True(t, errors.As(err, &serr), "%v", err)
	assert.Equal(t, StepCreateConstantBuffer, serr.Step)
	assert.True(t, errors.Is(err, gpu.ErrInvalidArg))

	h.p.Teardown()
	assert.Empty(t, h.drv.Live())
}

func TestInitStepFailures(t *testing.T) {
	for method, step := range map[string]Step{
		"CreateDeviceAndSwapChain": StepCreateDevice,
		"CreateVertexShader":       StepCreateVertexShader,
		"CreateInputLayout":        StepCreateInputLayout,
		"CreatePixelShader":        StepCreatePixelShader,
		"GetBuffer":                StepGetBackBuffer,
		"CreateRenderTargetView":   StepCreateRenderTarget,
		"CreateTexture2D":          StepCreateDepthBuffer,
		"CreateDepthStencilView":   StepCreateDepthStencil,
		"CreateBuffer#1":           StepCreateVertexBuffer,
		"CreateBuffer#2":           StepCreateIndexBuffer,
		"CreateBuffer#3":           StepCreateConstantBuffer,
		"CreateRasterizerState":    StepCreateRasterizerState,
	} {
		h := newHarness(cubeConfig(), mesh.Cube(), true)
		boom := errors.New("injected " + method)
		h.drv.FailOn[method] = boom

		err := h.init()
		var serr *StepError
		require.True(t, errors.As(err, &serr), "%s: %v", method, err)
		assert.Equal(t, step, serr.Step, method)
		assert.True(t, errors.Is(err, boom), method)

		assert.NotPanics(t, h.p.Teardown, method)
		assert.Empty(t, h.drv.Live(), method)
		assert.NotPanics(t, h.p.Teardown, method)
		assert.Empty(t, h.drv.DoubleReleases, method)
	}
}

func TestTeardownWithoutInit(t *testing.T) {
	p := New(cubeConfig(), Options{Mesh: mesh.Cube(), Lit: true})
	assert.NotPanics(t, p.Teardown)
	assert.Error(t, p.Render())
}

func TestTeardown(t *testing.T) {
	h := newHarness(cubeConfig(), mesh.Cube(), true)
	require.NoError(t, h.init())
	require.NoError(t, h.p.Render())

	calls := h.frameCalls(h.p.Teardown)
	require.NotEmpty(t, calls)
	assert.Equal(t, "ClearState", calls[0], "state is cleared before anything is released")
	assert.Equal(t, "Release Device", calls[len(calls)-1])
	assert.Empty(t, h.drv.Live())
	assert.Empty(t, h.drv.DoubleReleases)
	assert.Nil(t, h.p.device)
}

func TestRenderCube(t *testing.T) {
	cfg := cubeConfig()
	h := newHarness(cfg, mesh.Cube(), true)
	require.NoError(t, h.init())

	calls := h.frameCalls(func() { require.NoError(t, h.p.Render()) })
	assert.Equal(t, []string{
		"ClearRenderTargetView", "ClearDepthStencilView", "UpdateSubresource",
		"VSSetConstantBuffers", "PSSetConstantBuffers", "VSSetShader", "PSSetShader",
		"DrawIndexed", "Present",
	}, calls)
	assert.Equal(t, f32.Radian(0), h.p.Angle(), "the first frame does not move")

	h.clock.Advance(100 * time.Millisecond)
	require.NoError(t, h.p.Render())
	assert.InDelta(t, 0.1, float64(h.p.Angle()), 1e-5)

	ctx := h.context()
	assert.Equal(t, []gputest.DrawCall{{Indexed: true, Count: 36}, {Indexed: true, Count: 36}}, ctx.Draws)
	assert.Equal(t, float32(1), ctx.ClearDepth)
	assert.Equal(t, cfg.ClearColor, ctx.ClearColor)
	assert.Equal(t, 2, h.win.Presents)

	data := h.p.cb.(*gputest.Buffer).Data()
	require.Len(t, data, ConstantBufferSize)
	fs := floats(data)
	s, c := math32.Sincos(float32(h.p.Angle()))

	// Matrices arrive column by column.
	world := fs[0:16]
	assert.InDelta(t, c, world[0], 1e-6)
	assert.InDelta(t, -s, world[2], 1e-6)
	assert.InDelta(t, s, world[8], 1e-6)
	assert.Equal(t, float32(1), world[15])

	proj := fs[32:48]
	assert.Equal(t, float32(-1), proj[11])
	assert.InDelta(t, 2*cfg.Far*cfg.Near/(cfg.Near-cfg.Far), proj[14], 1e-6)

	view := fs[16:32]
	assert.InDelta(t, h.p.view[2][3], view[14], 1e-6)

	assert.Equal(t, cfg.LightDir[:], fs[48:52])
}

func TestRenderErrors(t *testing.T) {
	h := newHarness(cubeConfig(), mesh.Cube(), true)
	require.NoError(t, h.init())

	boom := errors.New("present failed")
	h.drv.FailOn["Present#2"] = boom
	require.NoError(t, h.p.Render())
	assert.True(t, errors.Is(h.p.Render(), boom))
	require.NoError(t, h.p.Render())

	h.drv.FailOn["DrawIndexed"] = gpu.ErrDeviceLost
	assert.True(t, errors.Is(h.p.Render(), gpu.ErrDeviceLost))
}

func TestConstantBufferBytes(t *testing.T) {
	var world, view, proj f32.Mat4
	f32hack.RotateY(&world, 0.5)
	view = f32.Mat4{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11, 12},
		{13, 14, 15, 16},
	}
	f32hack.SetPerspective(&proj, f32hack.Degrees(90), 4.0/3.0, 0.01, 100)

	cb := newConstantBuffer(&world, &view, &proj, f32.Vec4{1, 2, 3, 0})
	assert.Equal(t, view, cb.View)
	assert.Equal(t, world, cb.World)

	fs := floats(cb.Bytes())
	require.Len(t, fs, ConstantBufferSize/4)
	assert.Equal(t, []float32{1, 5, 9, 13}, fs[16:20], "first column of View")
	assert.Equal(t, []float32{1, 2, 3, 0}, fs[48:])

	// Each packed matrix is its transpose read row by row.
	for i, m := range []f32.Mat4{world, view, proj} {
		tr := f32hack.Transposed(&m)
		var rows []float32
		for r := range tr {
			rows = append(rows, tr[r][:]...)
		}
		assert.Equal(t, rows, fs[16*i:16*i+16], "matrix %d", i)
	}
}

func TestCheckConstantLayout(t *testing.T) {
	blob, err := shader.CompileFromFile(filepath.Join("testdata", "lit.glsl"), "VS", "vs_3_0")
	require.NoError(t, err)
	require.NoError(t, checkConstantLayout(blob.Constants))
	assert.Equal(t, ConstantBufferSize, blob.Constants.Size)

	assert.NoError(t, checkConstantLayout(shader.ConstantLayout{}))
	bad := shader.ConstantLayout{Vars: []shader.Constant{{Name: "Tint", Type: "vec4", Size: 16}}, Size: 16}
	assert.True(t, errors.Is(checkConstantLayout(bad), gpu.ErrInvalidArg))
}

func TestAdvance(t *testing.T) {
	var angle f32.Radian
	var unwrapped float64
	prev := angle
	for i, dt := range []time.Duration{0, time.Millisecond, 16 * time.Millisecond, 33 * time.Millisecond, 200 * time.Millisecond} {
		for j := 0; j < 40; j++ {
			angle = advance(angle, dt, 1)
			assert.True(t, angle >= 0 && float32(angle) < f32hack.TwoPi, "sample %d: %v", i, angle)
			step := float64(angle - prev)
			if step < 0 {
				step += 2 * math.Pi
			}
			assert.InDelta(t, dt.Seconds(), step, 1e-4, "sample %d", i)
			unwrapped += step
			prev = angle
		}
	}
	assert.Greater(t, unwrapped, 2*math.Pi, "the samples wrap at least once")

	assert.Equal(t, f32.Radian(0.25), advance(0, 10*time.Second, 1), "large steps are clamped")
	assert.Equal(t, f32.Radian(1), advance(1, -time.Second, 1))
}
