package shader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Opener opens shader source by name.
type Opener func(name string) (io.ReadCloser, error)

// CompileFromFile reads the source file at path and compiles the named entry
// point for profile.  A missing file is reported as ErrSourceNotFound, every
// other failure as a *CompileError.
func CompileFromFile(path, entry, profile string) (*Blob, error) {
	return CompileFrom(openFile, path, entry, profile)
}

func openFile(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// CompileFrom is CompileFromFile reading through open.  Opener errors
// matching fs.ErrNotExist are reported as ErrSourceNotFound.
func CompileFrom(open Opener, path, entry, profile string) (*Blob, error) {
	f, err := open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", path, err)
	}
	return Compile(src, path, entry, profile)
}

// Compile compiles the named entry point of src for profile.  The path is
// only used in diagnostics.
func Compile(src []byte, path, entry, profile string) (*Blob, error) {
	fail := func(line int, format string, args ...interface{}) error {
		return &CompileError{Entry: entry, Profile: profile, Diagnostic: diagnostic(path, line, format, args...)}
	}

	prof, err := ParseProfile(profile)
	if err != nil {
		return nil, fail(0, "%v", err)
	}
	if !isIdent(entry) {
		return nil, fail(0, "invalid entry point name %q", entry)
	}

	lines := strings.Split(stripComments(string(src)), "\n")
	sel, err := selectEntry(lines, entry)
	if err != nil {
		var pe *preprocessError
		if errors.As(err, &pe) {
			return nil, fail(pe.line, "%s", pe.msg)
		}
		return nil, fail(0, "%v", err)
	}
	if !sel.guarded {
		return nil, fail(0, "entry point %s not found: no #ifdef %s section", entry, entry)
	}

	refl, err := reflectSource(sel.active, entry, prof.Stage)
	if err != nil {
		var pe *preprocessError
		if errors.As(err, &pe) {
			return nil, fail(pe.line, "%s", pe.msg)
		}
		return nil, fail(0, "%v", err)
	}
	if !refl.entryFound {
		return nil, fail(0, "entry point %s not found: missing function void %s()", entry, entry)
	}

	return &Blob{
		Path:      path,
		Entry:     entry,
		Profile:   prof,
		Code:      generate(string(src), entry, prof),
		Inputs:    refl.inputs,
		Constants: refl.constants,
	}, nil
}

// generate prefixes the source with the profile header.  A #version line in
// the source is blanked so line numbers in driver logs stay close to the
// file's.
func generate(src, entry string, prof Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#version %s\n", prof.Version)
	// Uniforms shared with the vertex stage need its precision under
	// GLSL ES 3.00, where highp is always available to pixel shaders.
	switch {
	case prof.Stage == StagePixel && prof.ES3():
		b.WriteString("precision highp float;\n")
	case prof.Stage == StagePixel:
		b.WriteString("precision mediump float;\n")
	}
	fmt.Fprintf(&b, "#define %s main\n", entry)
	for i, l := range strings.Split(src, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		if directive(l) == "version" {
			continue
		}
		b.WriteString(l)
	}
	return b.String()
}

type srcLine struct {
	n    int
	text string
}

type preprocessError struct {
	line int
	msg  string
}

func (e *preprocessError) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.msg)
}

type condFrame struct {
	line   int
	kind   string
	parent bool
	active bool
	taken  bool
}

type selection struct {
	active  []srcLine
	guarded bool
}

// selectEntry evaluates conditional directives with only entry (and macros
// defined along the way) considered defined, returning the lines that are
// compiled for that entry.  Conditions it cannot evaluate are assumed true.
func selectEntry(lines []string, entry string) (selection, error) {
	var sel selection
	defined := map[string]bool{entry: true}
	var stack []*condFrame
	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}

	for i, l := range lines {
		n := i + 1
		name := directive(l)
		if name == "" {
			if active() {
				sel.active = append(sel.active, srcLine{n: n, text: l})
			}
			continue
		}
		rest := directiveArgs(l)
		switch name {
		case "ifdef", "ifndef":
			macro := firstWord(rest)
			if macro == "" {
				return sel, &preprocessError{n, "#" + name + " without macro name"}
			}
			if macro == entry {
				sel.guarded = true
			}
			v := defined[macro]
			if name == "ifndef" {
				v = !v
			}
			cur := active()
			stack = append(stack, &condFrame{line: n, kind: name, parent: cur, active: cur && v, taken: v})
		case "if":
			v, macro := evalCond(rest, defined)
			if macro == entry {
				sel.guarded = true
			}
			cur := active()
			stack = append(stack, &condFrame{line: n, kind: name, parent: cur, active: cur && v, taken: v})
		case "elif":
			if len(stack) == 0 {
				return sel, &preprocessError{n, "#elif without #if"}
			}
			top := stack[len(stack)-1]
			v, macro := evalCond(rest, defined)
			if macro == entry {
				sel.guarded = true
			}
			top.active = top.parent && !top.taken && v
			top.taken = top.taken || v
		case "else":
			if len(stack) == 0 {
				return sel, &preprocessError{n, "#else without #if"}
			}
			top := stack[len(stack)-1]
			top.active = top.parent && !top.taken
			top.taken = true
		case "endif":
			if len(stack) == 0 {
				return sel, &preprocessError{n, "#endif without #if"}
			}
			stack = stack[:len(stack)-1]
		case "define":
			if active() {
				defined[macroName(rest)] = true
			}
		case "undef":
			if active() {
				delete(defined, firstWord(rest))
			}
		case "error":
			if active() {
				return sel, &preprocessError{n, "#error " + rest}
			}
		}
	}
	if len(stack) > 0 {
		return sel, &preprocessError{stack[0].line, "unterminated #" + stack[0].kind}
	}
	return sel, nil
}

// evalCond evaluates "defined(X)", "defined X", their negations and integer
// literals.  It returns the macro name the condition tests, if any.
func evalCond(expr string, defined map[string]bool) (bool, string) {
	expr = strings.TrimSpace(expr)
	neg := false
	if strings.HasPrefix(expr, "!") {
		neg = true
		expr = strings.TrimSpace(expr[1:])
	}
	if strings.HasPrefix(expr, "defined") {
		arg := strings.TrimSpace(strings.TrimPrefix(expr, "defined"))
		arg = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(arg, "("), ")"))
		if isIdent(arg) {
			return defined[arg] != neg, arg
		}
	}
	if expr == "0" {
		return neg, ""
	}
	return !neg, ""
}

// directive returns the name of the preprocessor directive on line l, or ""
// if l is not a directive.
func directive(l string) string {
	t := strings.TrimSpace(l)
	if !strings.HasPrefix(t, "#") {
		return ""
	}
	return firstWord(t[1:])
}

func directiveArgs(l string) string {
	t := strings.TrimSpace(strings.TrimSpace(l)[1:])
	name := firstWord(t)
	return strings.TrimSpace(t[len(name):])
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if !isIdentRune(r, i) {
			return s[:i]
		}
	}
	return s
}

func macroName(s string) string {
	return firstWord(s)
}

func isIdentRune(r rune, i int) bool {
	switch {
	case r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		return true
	case '0' <= r && r <= '9':
		return i > 0
	}
	return false
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if !isIdentRune(r, i) {
			return false
		}
	}
	return true
}

// stripComments replaces comments with spaces, keeping newlines so line
// numbers are preserved.
func stripComments(src string) string {
	b := []byte(src)
	for i := 0; i < len(b); i++ {
		if b[i] != '/' || i+1 >= len(b) {
			continue
		}
		switch b[i+1] {
		case '/':
			for ; i < len(b) && b[i] != '\n'; i++ {
				b[i] = ' '
			}
		case '*':
			b[i], b[i+1] = ' ', ' '
			i += 2
			for ; i < len(b); i++ {
				if b[i] == '*' && i+1 < len(b) && b[i+1] == '/' {
					b[i], b[i+1] = ' ', ' '
					i++
					break
				}
				if b[i] != '\n' {
					b[i] = ' '
				}
			}
		}
	}
	return string(b)
}
