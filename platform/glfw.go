//go:build !android && !ios

package platform

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"golang.org/x/mobile/gl"

	"github.com/bmatsuo/gles-pipeline-tutorial/config"
	"github.com/bmatsuo/gles-pipeline-tutorial/gpu/gles"
	"github.com/bmatsuo/gles-pipeline-tutorial/log"
)

func init() {
	// GLFW and the GL worker must stay on the main thread.
	runtime.LockOSThread()
}

// glfwWindow is the gpu.Window of a GLFW window.  Its methods may be called
// from any goroutine; swaps are forwarded to the main thread.
type glfwWindow struct {
	width, height int
	present       chan int
	presented     chan error
}

func (w *glfwWindow) FramebufferSize() (width, height int) {
	return w.width, w.height
}

func (w *glfwWindow) Present(syncInterval int) error {
	w.present <- syncInterval
	return <-w.presented
}

// glfwPlatform is the main thread side of a window.
type glfwPlatform struct {
	window *glfw.Window
	worker gl.Worker
	win    *glfwWindow
}

// Run opens a fixed size window for cfg and runs app in it until the window
// is closed.  It must be called from the main goroutine.  The returned
// value is the process exit code.
func Run(cfg config.Config, lg *log.Logger, app App) int {
	p, err := newGLFW(cfg, lg)
	if err != nil {
		lg.Errorf("platform: %v", err)
		return ExitOK
	}
	defer p.dispose()

	glctx, worker := gl.NewContext()
	p.worker = worker
	drv := gles.NewDriver(glctx)

	if err := p.run(func() error { return app.Init(drv, p.win) }); err != nil {
		lg.Error("Initialization failed", slog.Any("error", err))
		p.run(func() error { app.Teardown(); return nil })
		return ExitOK
	}

	code := ExitOK
	guard := &frameGuard{max: cfg.MaxFrameFailures, log: lg}
	for {
		glfw.PollEvents()
		if p.window.ShouldClose() {
			break
		}
		if guard.done(p.run(app.Render)) {
			code = ExitFrameFailures
			break
		}
	}
	p.run(func() error { app.Teardown(); return nil })
	lg.Info("Exiting", slog.Int("code", code))
	return code
}

func newGLFW(cfg config.Config, lg *log.Logger) (*glfwPlatform, error) {
	lg.Info("Starting GLFW initialization")
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize glfw: %w", err)
	}
	lg.Infof("GLFW: %s", glfw.GetVersionString())

	glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLESAPI)
	glfw.WindowHint(glfw.ContextCreationAPI, glfw.EGLContextAPI)
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 0)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.DepthBits, 24)
	glfw.WindowHint(glfw.StencilBits, 8)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	window.MakeContextCurrent()
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	width, height := window.GetFramebufferSize()
	lg.Info("Finished GLFW initialization", slog.Int("width", width), slog.Int("height", height))
	return &glfwPlatform{
		window: window,
		win: &glfwWindow{
			width:     width,
			height:    height,
			present:   make(chan int),
			presented: make(chan error),
		},
	}, nil
}

// run calls f on another goroutine and services GL work and buffer swaps on
// the calling thread until f returns.
func (p *glfwPlatform) run(f func() error) error {
	done := make(chan error, 1)
	go func() { done <- f() }()
	for {
		select {
		case <-p.worker.WorkAvailable():
			p.worker.DoWork()
		case sync := <-p.win.present:
			glfw.SwapInterval(sync)
			p.window.SwapBuffers()
			p.win.presented <- nil
		case err := <-done:
			return err
		}
	}
}

func (p *glfwPlatform) dispose() {
	p.window.Destroy()
	glfw.Terminate()
}
