package pipeline

import (
	"log/slog"
	"time"

	"github.com/bmatsuo/gles-pipeline-tutorial/log"
)

// frameStats logs the frame rate about once a second.
type frameStats struct {
	start  time.Time
	frames int
}

func (s *frameStats) frame(now time.Time, l *log.Logger) {
	if s.start.IsZero() {
		s.start = now
	}
	s.frames++
	if d := now.Sub(s.start); d >= time.Second {
		l.Debug("Frame rate",
			slog.Float64("fps", float64(s.frames)/d.Seconds()),
			slog.Int("frames", s.frames))
		s.start = now
		s.frames = 0
	}
}
