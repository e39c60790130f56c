package platform

import (
	"bytes"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bmatsuo/gles-pipeline-tutorial/config"
	"github.com/bmatsuo/gles-pipeline-tutorial/log"
)

func TestFrameGuard(t *testing.T) {
	var buf bytes.Buffer
	g := &frameGuard{max: 3, log: log.NewWriter("debug", &buf)}
	boom := errors.New("boom")

	assert.False(t, g.done(boom))
	assert.False(t, g.done(boom))
	assert.False(t, g.done(nil), "a good frame resets the count")
	assert.Equal(t, 0, g.failures)

	assert.False(t, g.done(boom))
	assert.False(t, g.done(boom))
	assert.True(t, g.done(boom))
	assert.Contains(t, buf.String(), "Too many consecutive frame failures")
}

func TestFrameGuardUnlimited(t *testing.T) {
	g := &frameGuard{}
	for i := 0; i < 10; i++ {
		assert.False(t, g.done(errors.New("boom")))
	}
	assert.Equal(t, 10, g.failures)
}

func TestMissingAssets(t *testing.T) {
	_, err := Open("no-such-shader.glsl")
	assert.True(t, errors.Is(err, fs.ErrNotExist), "%v", err)

	def := config.Default()
	def.Title = "missing"
	c, err := LoadConfig(def)
	assert.NoError(t, err)
	assert.Equal(t, def, c)
}
