package gles

import (
	"fmt"

	"golang.org/x/mobile/gl"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
)

// SwapChain presents the back buffer to the output window.
type SwapChain struct {
	object
	dev  *Device
	desc gpu.SwapChainDesc

	back *renderbuffer
	// readFBO holds back as the source of the blit in Present.
	readFBO gl.Framebuffer
}

var _ gpu.SwapChain = (*SwapChain)(nil)

func newSwapChain(dev *Device, desc gpu.SwapChainDesc) (*SwapChain, error) {
	if desc.BufferCount < 1 {
		desc.BufferCount = 1
	}
	sc := &SwapChain{dev: dev, desc: desc}
	if dev.level < gpu.FeatureLevel3 {
		sc.back = &renderbuffer{dev: dev, refs: 1, window: true}
		return sc, nil
	}

	ctx := dev.ctx
	back := &renderbuffer{dev: dev, refs: 1}
	back.rb = ctx.CreateRenderbuffer()
	ctx.BindRenderbuffer(gl.RENDERBUFFER, back.rb)
	ctx.RenderbufferStorage(gl.RENDERBUFFER, glRGBA8, desc.Width, desc.Height)

	sc.readFBO = ctx.CreateFramebuffer()
	ctx.BindFramebuffer(gl.FRAMEBUFFER, sc.readFBO)
	ctx.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, back.rb)
	status := ctx.CheckFramebufferStatus(gl.FRAMEBUFFER)
	ctx.BindFramebuffer(gl.FRAMEBUFFER, gl.Framebuffer{})
	if status != gl.FRAMEBUFFER_COMPLETE {
		ctx.DeleteFramebuffer(sc.readFBO)
		ctx.DeleteRenderbuffer(back.rb)
		return nil, fmt.Errorf("%w: back buffer framebuffer status %#x", gpu.ErrUnsupported, uint32(status))
	}
	if err := checkError(ctx, "create swap chain"); err != nil {
		ctx.DeleteFramebuffer(sc.readFBO)
		ctx.DeleteRenderbuffer(back.rb)
		return nil, err
	}
	sc.back = back
	return sc, nil
}

func (sc *SwapChain) Desc() gpu.SwapChainDesc { return sc.desc }

// Buffer returns a new reference to the back buffer.  Only buffer 0 is
// addressable.
func (sc *SwapChain) Buffer(i int) (gpu.Texture2D, error) {
	if sc.released {
		return nil, fmt.Errorf("%w: released swap chain", gpu.ErrInvalidArg)
	}
	if i != 0 {
		return nil, fmt.Errorf("%w: back buffer %d", gpu.ErrInvalidArg, i)
	}
	sc.back.retain()
	return &Texture{
		desc: gpu.Texture2DDesc{
			Width:       sc.desc.Width,
			Height:      sc.desc.Height,
			Format:      sc.desc.Format,
			BindFlags:   gpu.BindRenderTarget,
			SampleCount: 1,
		},
		storage: sc.back,
	}, nil
}

// Present copies the back buffer to the window and shows it.
func (sc *SwapChain) Present(syncInterval int) error {
	if syncInterval < 0 || syncInterval > 4 {
		return fmt.Errorf("%w: sync interval %d", gpu.ErrInvalidArg, syncInterval)
	}
	if sc.released {
		return fmt.Errorf("%w: released swap chain", gpu.ErrInvalidArg)
	}
	dev := sc.dev
	if dev.ctx3 != nil {
		w, h := sc.desc.Width, sc.desc.Height
		dev.ctx.BindFramebuffer(glReadFramebuffer, sc.readFBO)
		dev.ctx.BindFramebuffer(glDrawFramebuffer, gl.Framebuffer{})
		dev.ctx3.BlitFramebuffer(0, 0, w, h, 0, 0, w, h, gl.COLOR_BUFFER_BIT, gl.NEAREST)
		dev.imm.bindTarget()
	}
	if err := checkError(dev.ctx, "present"); err != nil {
		return err
	}
	return sc.desc.OutputWindow.Present(syncInterval)
}

func (sc *SwapChain) Release() {
	if !sc.release() {
		return
	}
	if sc.readFBO.Value != 0 {
		sc.dev.ctx.DeleteFramebuffer(sc.readFBO)
	}
	sc.back.unref()
}
