package gles

import (
	"fmt"

	"golang.org/x/mobile/gl"

	"github.com/bmatsuo/gles-pipeline-tutorial/gpu"
	"github.com/bmatsuo/gles-pipeline-tutorial/shader"
)

type programKey struct {
	vs, ps *Shader
}

// program is a linked vertex/pixel shader pair with its attribute and
// uniform locations.
type program struct {
	p        gl.Program
	attribs  map[string]gl.Attrib
	uniforms map[string]gl.Uniform
}

// program returns the linked program for vs and ps, linking it on first use.
func (d *Device) program(vs, ps *Shader) (*program, error) {
	key := programKey{vs, ps}
	if p, ok := d.programs[key]; ok {
		return p, nil
	}

	p := d.ctx.CreateProgram()
	if !p.Init {
		return nil, fmt.Errorf("%w: could not create program", gpu.ErrDeviceLost)
	}
	d.ctx.AttachShader(p, vs.sh)
	d.ctx.AttachShader(p, ps.sh)
	d.ctx.LinkProgram(p)
	if d.ctx.GetProgrami(p, gl.LINK_STATUS) == 0 {
		info := d.ctx.GetProgramInfoLog(p)
		d.ctx.DeleteProgram(p)
		return nil, fmt.Errorf("link %s %s/%s %s: %s", vs.blob.Path, vs.blob.Entry, ps.blob.Entry, ps.blob.Path, info)
	}

	prog := &program{
		p:        p,
		attribs:  map[string]gl.Attrib{},
		uniforms: map[string]gl.Uniform{},
	}
	for _, in := range vs.blob.Inputs {
		prog.attribs[in.Name] = d.ctx.GetAttribLocation(p, in.Name)
	}
	for _, blob := range []*shader.Blob{vs.blob, ps.blob} {
		for _, c := range blob.Constants.Vars {
			if _, ok := prog.uniforms[c.Name]; !ok {
				prog.uniforms[c.Name] = d.ctx.GetUniformLocation(p, c.Name)
			}
		}
	}
	d.programs[key] = prog
	return prog, nil
}

// dropPrograms deletes the programs linked with s.
func (d *Device) dropPrograms(s *Shader) {
	for key, p := range d.programs {
		if key.vs == s || key.ps == s {
			d.ctx.DeleteProgram(p.p)
			delete(d.programs, key)
		}
	}
}

// attrib returns the location of the vertex input named name.  It reports
// false when the linker dropped the input as unused.
func (p *program) attrib(name string) (gl.Attrib, bool, error) {
	a, ok := p.attribs[name]
	if !ok {
		return gl.Attrib{}, false, fmt.Errorf("%w: vertex input %s", gpu.ErrNotBound, name)
	}
	if int32(a.Value) < 0 {
		return gl.Attrib{}, false, nil
	}
	return a, true, nil
}

// uploadConstants sets the uniforms of layout from the bytes of cb.
func (d *Device) uploadConstants(p *program, layout shader.ConstantLayout, cb *Buffer) error {
	for _, c := range layout.Vars {
		loc, ok := p.uniforms[c.Name]
		if !ok || loc.Value < 0 {
			continue
		}
		fs, is, err := uniformValues(c, cb.shadow)
		if err != nil {
			return err
		}
		switch c.Type {
		case "float":
			d.ctx.Uniform1fv(loc, fs)
		case "vec2":
			d.ctx.Uniform2fv(loc, fs)
		case "vec3":
			d.ctx.Uniform3fv(loc, fs)
		case "vec4":
			d.ctx.Uniform4fv(loc, fs)
		case "mat2":
			d.ctx.UniformMatrix2fv(loc, fs)
		case "mat3":
			d.ctx.UniformMatrix3fv(loc, fs)
		case "mat4":
			d.ctx.UniformMatrix4fv(loc, fs)
		case "int", "bool":
			d.ctx.Uniform1iv(loc, is)
		case "ivec2":
			d.ctx.Uniform2iv(loc, is)
		case "ivec3":
			d.ctx.Uniform3iv(loc, is)
		case "ivec4":
			d.ctx.Uniform4iv(loc, is)
		}
	}
	return nil
}

// attribBinding is a layout element and the vertex shader input it feeds.
type attribBinding struct {
	elem  gpu.InputElement
	input string
}

// matchAttribs pairs each element with the input of sig that has the same
// semantic name and index.  Elements the shader does not declare are left out.
func matchAttribs(elems []gpu.InputElement, sig shader.Signature) []attribBinding {
	var out []attribBinding
	for _, e := range elems {
		in, ok := sig.Lookup(e.SemanticName, e.SemanticIndex)
		if !ok {
			continue
		}
		out = append(out, attribBinding{elem: e, input: in.Name})
	}
	return out
}
