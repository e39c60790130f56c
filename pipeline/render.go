package pipeline

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/mobile/exp/f32"

	"github.com/bmatsuo/gles-pipeline-tutorial/f32hack"
	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
	"github.com/bmatsuo/gles-pipeline-tutorial/shader"
)

// ConstantBuffer is the layout of constant buffer 0 in the lit shaders.
// Matrices are kept in row form and transposed by Bytes.
type ConstantBuffer struct {
	World      f32.Mat4
	View       f32.Mat4
	Projection f32.Mat4
	LightDir   f32.Vec4
}

// ConstantBufferSize is the packed size of ConstantBuffer in bytes.
const ConstantBufferSize = 3*16*4 + 4*4

// constantFields is the register layout shaders must declare for
// ConstantBuffer.  A shader may leave out fields it does not read.
var constantFields = map[string]shader.Constant{
	"World":      {Name: "World", Type: "mat4", Offset: 0, Size: 64},
	"View":       {Name: "View", Type: "mat4", Offset: 64, Size: 64},
	"Projection": {Name: "Projection", Type: "mat4", Offset: 128, Size: 64},
	"LightDir":   {Name: "LightDir", Type: "vec4", Offset: 192, Size: 16},
}

func checkConstantLayout(l shader.ConstantLayout) error {
	for _, c := range l.Vars {
		want, ok := constantFields[c.Name]
		if !ok {
			return fmt.Errorf("%w: unknown constant %s %s", gpu.ErrInvalidArg, c.Type, c.Name)
		}
		if c != want {
			return fmt.Errorf("%w: constant %s %s at offset %d, want %s at %d",
				gpu.ErrInvalidArg, c.Type, c.Name, c.Offset, want.Type, want.Offset)
		}
	}
	if l.Size > ConstantBufferSize {
		return fmt.Errorf("%w: constant buffer of %d bytes, at most %d", gpu.ErrInvalidArg, l.Size, ConstantBufferSize)
	}
	return nil
}

func newConstantBuffer(world, view, projection *f32.Mat4, light f32.Vec4) *ConstantBuffer {
	return &ConstantBuffer{
		World:      *world,
		View:       *view,
		Projection: *projection,
		LightDir:   light,
	}
}

// Bytes returns the little endian encoding of cb, ConstantBufferSize bytes
// long.  Each matrix is written column-major, so the shader reads the
// transpose of its row form.
func (cb *ConstantBuffer) Bytes() []byte {
	fs := make([]float32, ConstantBufferSize/4)
	f32hack.Serialize4(fs[0:16], &cb.World)
	f32hack.Serialize4(fs[16:32], &cb.View)
	f32hack.Serialize4(fs[32:48], &cb.Projection)
	copy(fs[48:], cb.LightDir[:])
	return f32.Bytes(binary.LittleEndian, fs...)
}

// Clock tells the frame renderer the time.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// maxFrameDelta bounds the animation step so a stall does not jump the cube.
const maxFrameDelta = 250 * time.Millisecond

// advance returns angle moved on by dt at speed radians per second, wrapped
// to [0, 2π).
func advance(angle f32.Radian, dt time.Duration, speed float32) f32.Radian {
	if dt < 0 {
		dt = 0
	}
	if dt > maxFrameDelta {
		dt = maxFrameDelta
	}
	return f32hack.WrapAngle(angle + f32.Radian(float32(dt.Seconds())*speed))
}

// Render draws one frame and presents it.
func (p *Pipeline) Render() error {
	if p.context == nil || p.rtv == nil {
		return fmt.Errorf("pipeline: render: %w", gpu.ErrNotBound)
	}
	cfg := &p.cfg

	p.context.ClearRenderTargetView(p.rtv, cfg.ClearColor)

	if p.lit {
		p.context.ClearDepthStencilView(p.dsv, gpu.ClearDepth, 1, 0)

		now := p.clock.Now()
		if !p.last.IsZero() {
			p.angle = advance(p.angle, now.Sub(p.last), cfg.RotationSpeed)
		}
		p.last = now
		f32hack.RotateY(&p.world, p.angle)

		cb := newConstantBuffer(&p.world, &p.view, &p.projection, f32.Vec4(cfg.LightDir))
		if err := p.context.UpdateSubresource(p.cb, cb.Bytes()); err != nil {
			return fmt.Errorf("pipeline: update constant buffer: %w", err)
		}
		p.context.VSSetConstantBuffers(0, []gpu.Buffer{p.cb})
		p.context.PSSetConstantBuffers(0, []gpu.Buffer{p.cb})
	}

	p.context.VSSetShader(p.vs)
	p.context.PSSetShader(p.ps)

	var err error
	if p.ib != nil {
		err = p.context.DrawIndexed(len(p.mesh.Indices), 0, 0)
	} else {
		err = p.context.Draw(p.mesh.VertexCount, 0)
	}
	if err != nil {
		return fmt.Errorf("pipeline: draw: %w", err)
	}

	if err := p.swapChain.Present(cfg.SyncInterval); err != nil {
		if errors.Is(err, gpu.ErrDeviceLost) {
			p.log.Error("Device lost", slog.Any("error", err))
		}
		return fmt.Errorf("pipeline: present: %w", err)
	}
	p.stats.frame(p.clock.Now(), p.log)
	return nil
}

// Angle returns the current world rotation about +Y.
func (p *Pipeline) Angle() f32.Radian {
	return p.angle
}
