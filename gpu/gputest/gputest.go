// Package gputest implements the gpu interfaces in memory.  It records every
// call, tracks which resources are still alive, validates arguments the way a
// debug runtime would and can be told to fail chosen calls.
package gputest

import (
	"fmt"
	"sort"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
)

// Driver is a gpu.Driver.  The zero value is not usable; use NewDriver.
type Driver struct {
	// Level is the feature level reported by created devices.
	Level gpu.FeatureLevel

	// FailOn maps a method name to the error it returns.  A key of the form
	// "Name#n" fails only the n-th call (counting from 1).
	FailOn map[string]error

	// Calls lists every method called on the driver and the objects it
	// created, in order.
	Calls []string

	// DoubleReleases lists the kinds of resources released more than once.
	DoubleReleases []string

	counts map[string]int
	live   map[*resource]bool
	nextID int
}

// NewDriver returns a driver creating feature level 3 devices.
func NewDriver() *Driver {
	return &Driver{
		Level:  gpu.FeatureLevel3,
		FailOn: map[string]error{},
		counts: map[string]int{},
		live:   map[*resource]bool{},
	}
}

// Window is a gpu.Window of fixed size which counts presents.
type Window struct {
	Width, Height int
	Presents      int
	// Err is returned by Present when not nil.
	Err error
}

var _ gpu.Window = (*Window)(nil)

// FramebufferSize implements gpu.Window.
func (w *Window) FramebufferSize() (int, int) {
	return w.Width, w.Height
}

// Present implements gpu.Window.
func (w *Window) Present(syncInterval int) error {
	if w.Err != nil {
		return w.Err
	}
	w.Presents++
	return nil
}

// Live returns the kinds of the resources not yet released, sorted.
func (d *Driver) Live() []string {
	var kinds []string
	for r := range d.live {
		kinds = append(kinds, r.kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Count returns the number of times method was called.
func (d *Driver) Count(method string) int {
	return d.counts[method]
}

// call records method and returns the injected failure for it, if any.
func (d *Driver) call(method string) error {
	d.Calls = append(d.Calls, method)
	d.counts[method]++
	if err, ok := d.FailOn[fmt.Sprintf("%s#%d", method, d.counts[method])]; ok {
		return err
	}
	return d.FailOn[method]
}

func (d *Driver) newResource(kind string) resource {
	d.nextID++
	return resource{drv: d, kind: kind, id: d.nextID}
}

func (d *Driver) track(r *resource) {
	d.live[r] = true
}

// resource is embedded in every object the driver hands out.
type resource struct {
	drv      *Driver
	kind     string
	id       int
	released bool
}

func (r *resource) Release() {
	if r.released {
		r.drv.DoubleReleases = append(r.drv.DoubleReleases, r.kind)
		return
	}
	r.released = true
	delete(r.drv.live, r)
	r.drv.Calls = append(r.drv.Calls, "Release "+r.kind)
}

func (r *resource) String() string {
	return fmt.Sprintf("%s#%d", r.kind, r.id)
}

// Released reports whether Release was called.
func (r *resource) Released() bool {
	return r.released
}

func (r *resource) check() error {
	if r.released {
		return fmt.Errorf("%w: use of released %v", gpu.ErrInvalidArg, r)
	}
	return nil
}

// CreateDeviceAndSwapChain implements gpu.Driver.
func (d *Driver) CreateDeviceAndSwapChain(desc gpu.SwapChainDesc) (gpu.Device, gpu.DeviceContext, gpu.SwapChain, error) {
	if err := d.call("CreateDeviceAndSwapChain"); err != nil {
		return nil, nil, nil, err
	}
	switch {
	case desc.OutputWindow == nil:
		return nil, nil, nil, fmt.Errorf("%w: no output window", gpu.ErrInvalidArg)
	case desc.Width <= 0 || desc.Height <= 0:
		return nil, nil, nil, fmt.Errorf("%w: swap chain size %dx%d", gpu.ErrInvalidArg, desc.Width, desc.Height)
	case desc.Format != gpu.FormatR8G8B8A8UNorm:
		return nil, nil, nil, fmt.Errorf("%w: swap chain format %v", gpu.ErrUnsupported, desc.Format)
	}

	dev := &Device{resource: d.newResource("Device")}
	ctx := &Context{resource: d.newResource("DeviceContext")}
	sc := &SwapChain{resource: d.newResource("SwapChain"), desc: desc}
	sc.back = Texture{desc: gpu.Texture2DDesc{
		Width:     desc.Width,
		Height:    desc.Height,
		Format:    desc.Format,
		BindFlags: gpu.BindRenderTarget,
	}}
	for _, r := range []*resource{&dev.resource, &ctx.resource, &sc.resource} {
		d.track(r)
	}
	return dev, ctx, sc, nil
}
