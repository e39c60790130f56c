/*
Package shader is the front end of the shader compiler.  It reads a
single-source GLSL ES file holding several entry points, selects one of them
for a target profile and reflects what the pipeline has to agree with: the
vertex input signature and the layout of constant buffer 0.

Each entry point lives behind a preprocessor guard named after it and its
function carries the same name:

	uniform mat4 World;

	#ifdef VS
	in vec3 POSITION;
	void VS() { gl_Position = World * vec4(POSITION, 1.0); }
	#endif

Compiling entry VS prepends the profile's #version line and "#define VS main",
so the guard is taken and the function becomes the stage's main.  The result
is a Blob which the gpu backends turn into shader objects.
*/
package shader

import (
	"fmt"
	"strings"
)

// Stage is a programmable pipeline stage.
type Stage int

// Pipeline stages a Blob can target.
const (
	StageVertex Stage = iota
	StagePixel
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StagePixel:
		return "pixel"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Profile is a compile target such as "vs_3_0" or "ps_2_0".  The 2_0
// profiles produce GLSL ES 1.00, the 3_0 profiles GLSL ES 3.00.
type Profile struct {
	Name    string
	Stage   Stage
	Version string // GLSL #version argument
}

// ParseProfile parses a profile name.
func ParseProfile(name string) (Profile, error) {
	prefix, model, ok := strings.Cut(name, "_")
	if !ok {
		return Profile{}, fmt.Errorf("invalid profile %q", name)
	}
	p := Profile{Name: name}
	switch prefix {
	case "vs":
		p.Stage = StageVertex
	case "ps":
		p.Stage = StagePixel
	default:
		return Profile{}, fmt.Errorf("invalid profile %q: unknown stage %q", name, prefix)
	}
	switch model {
	case "2_0":
		p.Version = "100"
	case "3_0":
		p.Version = "300 es"
	default:
		return Profile{}, fmt.Errorf("invalid profile %q: unsupported shader model %q", name, model)
	}
	return p, nil
}

// ES3 reports whether the profile targets GLSL ES 3.00.
func (p Profile) ES3() bool {
	return p.Version == "300 es"
}

// Blob is a compiled entry point.  Code is the complete GLSL text handed to
// the driver.
type Blob struct {
	Path    string
	Entry   string
	Profile Profile
	Code    string

	// Inputs is the input signature.  It is empty for pixel shaders.
	Inputs Signature
	// Constants is the layout of constant buffer 0 as seen by this stage.
	Constants ConstantLayout
}

// Stage returns the pipeline stage the blob was compiled for.
func (b *Blob) Stage() Stage {
	return b.Profile.Stage
}

// Len returns the size of the compiled code in bytes.
func (b *Blob) Len() int {
	return len(b.Code)
}
