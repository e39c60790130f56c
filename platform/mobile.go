//go:build android || ios

package platform

import (
	"log/slog"

	"golang.org/x/mobile/app"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"
	"golang.org/x/mobile/gl"

	"github.com/bmatsuo/gles-pipeline-tutorial/config"
	"github.com/bmatsuo/gles-pipeline-tutorial/gpu/gles"
	"github.com/bmatsuo/gles-pipeline-tutorial/log"
)

// mobileWindow is the app's surface.  Present publishes the frame; the
// platform always waits for the display, whatever the sync interval.
type mobileWindow struct {
	a  app.App
	sz size.Event
}

func (w *mobileWindow) FramebufferSize() (width, height int) {
	return w.sz.WidthPx, w.sz.HeightPx
}

func (w *mobileWindow) Present(syncInterval int) error {
	w.a.Publish()
	return nil
}

// Run drives app from the x/mobile event loop.  The pipeline is created
// when the surface becomes visible and torn down when it goes away.
func Run(cfg config.Config, lg *log.Logger, a App) int {
	code := ExitOK
	app.Main(func(ma app.App) {
		var (
			glctx   gl.Context
			running bool
			stopped bool
		)
		win := &mobileWindow{a: ma}
		guard := &frameGuard{max: cfg.MaxFrameFailures, log: lg}
		stop := func() {
			if running {
				a.Teardown()
				running = false
			}
		}

		for e := range ma.Events() {
			switch e := ma.Filter(e).(type) {
			case lifecycle.Event:
				switch e.Crosses(lifecycle.StageVisible) {
				case lifecycle.CrossOn:
					glctx, _ = e.DrawContext.(gl.Context)
					ma.Send(paint.Event{})
				case lifecycle.CrossOff:
					stop()
					glctx = nil
				}
			case size.Event:
				win.sz = e
			case paint.Event:
				if glctx == nil || e.External || stopped {
					continue
				}
				if !running {
					if err := a.Init(gles.NewDriver(glctx), win); err != nil {
						lg.Error("Initialization failed", slog.Any("error", err))
						a.Teardown()
						stopped = true
						continue
					}
					running = true
				}
				if guard.done(a.Render()) {
					stop()
					stopped = true
					code = ExitFrameFailures
					continue
				}
				ma.Send(paint.Event{})
			}
		}
	})
	return code
}
