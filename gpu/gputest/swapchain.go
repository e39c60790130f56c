package gputest

import (
	"fmt"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
)

// SwapChain is a gpu.SwapChain presenting to its output window.
type SwapChain struct {
	resource
	desc gpu.SwapChainDesc
	back Texture
}

var _ gpu.SwapChain = (*SwapChain)(nil)

// Desc implements gpu.SwapChain.
func (sc *SwapChain) Desc() gpu.SwapChainDesc {
	return sc.desc
}

// Buffer implements gpu.SwapChain.  Every call returns a distinct
// "BackBuffer" reference.
func (sc *SwapChain) Buffer(i int) (gpu.Texture2D, error) {
	if err := sc.drv.call("GetBuffer"); err != nil {
		return nil, err
	}
	if err := sc.check(); err != nil {
		return nil, err
	}
	if i != 0 {
		return nil, fmt.Errorf("%w: back buffer %d", gpu.ErrInvalidArg, i)
	}
	t := &Texture{resource: sc.drv.newResource("BackBuffer"), desc: sc.back.desc}
	sc.drv.track(&t.resource)
	return t, nil
}

// Present implements gpu.SwapChain.
func (sc *SwapChain) Present(syncInterval int) error {
	if err := sc.drv.call("Present"); err != nil {
		return err
	}
	if err := sc.check(); err != nil {
		return err
	}
	if syncInterval < 0 || syncInterval > 4 {
		return fmt.Errorf("%w: sync interval %d", gpu.ErrInvalidArg, syncInterval)
	}
	return sc.desc.OutputWindow.Present(syncInterval)
}
