// Package platform opens the tutorial window, hands the pipeline a GL
// backed driver and runs the message loop until the window closes.
//
// On desktop the window comes from GLFW with an OpenGL ES 3 context made
// through EGL.  On Android and iOS the golang.org/x/mobile app event loop
// provides the surface instead.
package platform

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"golang.org/x/mobile/asset"

	"github.com/bmatsuo/gles-pipeline-tutorial/config"
	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
	"github.com/bmatsuo/gles-pipeline-tutorial/log"
)

// Process exit codes returned by Run.
const (
	ExitOK = 0
	// ExitFrameFailures means the loop stopped after too many consecutive
	// frames failed.
	ExitFrameFailures = 1
)

// App is the program a window runs.  Init is called once the GL context
// exists, Render once per loop iteration and Teardown before the context
// goes away, including after a failed Init.
type App interface {
	Init(drv gpu.Driver, win gpu.Window) error
	Render() error
	Teardown()
}

// LoadConfig reads config.FileName from the assets over def.  A missing
// asset yields def.  On error def is returned along with it.
func LoadConfig(def config.Config) (config.Config, error) {
	f, err := asset.Open(config.FileName)
	if err != nil {
		return def, nil
	}
	defer f.Close()
	return config.Read(f, config.FileName, def)
}

// Open opens shader source from the assets: the app bundle on mobile, the
// assets directory under the working directory on desktop.  Failing to open
// an asset is reported as fs.ErrNotExist.
func Open(name string) (io.ReadCloser, error) {
	f, err := asset.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fs.ErrNotExist, err)
	}
	return f, nil
}

// frameGuard counts consecutive frame failures.
type frameGuard struct {
	max      int
	failures int
	log      *log.Logger
}

// done records the result of one frame and reports whether the loop must
// stop.
func (g *frameGuard) done(err error) bool {
	if err == nil {
		g.failures = 0
		return false
	}
	g.failures++
	g.log.Warn("Frame failed", slog.Any("error", err), slog.Int("consecutive", g.failures))
	if g.max > 0 && g.failures >= g.max {
		g.log.Error("Too many consecutive frame failures", slog.Int("failures", g.failures))
		return true
	}
	return false
}
