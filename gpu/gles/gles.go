/*
Package gles implements the gpu interfaces on OpenGL ES through
golang.org/x/mobile/gl.

With a GLES 3 context (gl.Context3) the device runs at feature level 3: the
swap chain's back buffer is an RGBA8 renderbuffer, render target views are
framebuffer objects, depth stencil textures are DEPTH24_STENCIL8
renderbuffers and Present blits the back buffer to the window.  A plain GLES 2
context gives feature level 2, where the back buffer and the depth buffer are
the window's own.

Every gl.Context call is queued for the context's worker, so the caller must
arrange for the worker to be serviced (see package platform).
*/
package gles

import (
	"fmt"

	"golang.org/x/mobile/gl"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
)

// GLES 3 enums missing from the GLES 2 set.
const (
	glRGBA8                  gl.Enum = 0x8058
	glDepth24Stencil8        gl.Enum = 0x88F0
	glDepthStencilAttachment gl.Enum = 0x821A
	glReadFramebuffer        gl.Enum = 0x8CA8
	glDrawFramebuffer        gl.Enum = 0x8CA9
)

// Driver creates devices on a GL context.
type Driver struct {
	ctx gl.Context
}

var _ gpu.Driver = (*Driver)(nil)

// NewDriver returns a driver for ctx.
func NewDriver(ctx gl.Context) *Driver {
	return &Driver{ctx: ctx}
}

// CreateDeviceAndSwapChain implements gpu.Driver.
func (drv *Driver) CreateDeviceAndSwapChain(desc gpu.SwapChainDesc) (gpu.Device, gpu.DeviceContext, gpu.SwapChain, error) {
	switch {
	case drv.ctx == nil:
		return nil, nil, nil, fmt.Errorf("%w: no GL context", gpu.ErrInvalidArg)
	case desc.OutputWindow == nil:
		return nil, nil, nil, fmt.Errorf("%w: no output window", gpu.ErrInvalidArg)
	case desc.Width <= 0 || desc.Height <= 0:
		return nil, nil, nil, fmt.Errorf("%w: swap chain size %dx%d", gpu.ErrInvalidArg, desc.Width, desc.Height)
	case desc.Format != gpu.FormatR8G8B8A8UNorm:
		return nil, nil, nil, fmt.Errorf("%w: swap chain format %v", gpu.ErrUnsupported, desc.Format)
	case desc.SampleCount > 1:
		return nil, nil, nil, fmt.Errorf("%w: multisampled swap chain", gpu.ErrUnsupported)
	}
	if w, h := desc.OutputWindow.FramebufferSize(); w < desc.Width || h < desc.Height {
		return nil, nil, nil, fmt.Errorf("%w: %dx%d swap chain on a %dx%d window", gpu.ErrInvalidArg, desc.Width, desc.Height, w, h)
	}

	dev := &Device{
		ctx:      drv.ctx,
		level:    gpu.FeatureLevel2,
		width:    desc.Width,
		height:   desc.Height,
		programs: map[programKey]*program{},
	}
	if ctx3, ok := drv.ctx.(gl.Context3); ok {
		dev.ctx3 = ctx3
		dev.level = gpu.FeatureLevel3
	}
	dev.desc = fmt.Sprintf("%s (%s, GLSL %s)",
		drv.ctx.GetString(gl.RENDERER),
		drv.ctx.GetString(gl.VERSION),
		drv.ctx.GetString(gl.SHADING_LANGUAGE_VERSION))

	sc, err := newSwapChain(dev, desc)
	if err != nil {
		return nil, nil, nil, err
	}
	imm := &Context{dev: dev}
	imm.resetState()
	dev.imm = imm
	return dev, imm, sc, nil
}

// checkError reports the first pending GL error.  It waits for the queued
// calls to run.
func checkError(ctx gl.Context, what string) error {
	if e := ctx.GetError(); e != gl.NO_ERROR {
		return glError(what, e)
	}
	return nil
}

func glError(what string, e gl.Enum) error {
	switch e {
	case gl.OUT_OF_MEMORY:
		return fmt.Errorf("%s: %w: GL_OUT_OF_MEMORY", what, gpu.ErrDeviceLost)
	case gl.INVALID_ENUM, gl.INVALID_VALUE:
		return fmt.Errorf("%s: %w: GL error %#x", what, gpu.ErrInvalidArg, uint32(e))
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return fmt.Errorf("%s: %w: incomplete framebuffer", what, gpu.ErrNotBound)
	}
	return fmt.Errorf("%s: GL error %#x", what, uint32(e))
}
