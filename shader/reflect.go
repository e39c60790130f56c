package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// Param is one field of a vertex input signature.  The semantic of an input
// is its name with any trailing digits split off as the semantic index, so
// "COLOR1" has semantic COLOR, index 1.
type Param struct {
	Name          string
	SemanticName  string
	SemanticIndex int
	Type          string
	Components    int
	Location      int // -1 unless given with layout(location = N)
	Line          int
}

// Signature is the ordered list of inputs a vertex shader expects.
type Signature []Param

// Lookup finds the input with the given semantic.
func (s Signature) Lookup(semantic string, index int) (Param, bool) {
	for _, p := range s {
		if p.SemanticName == semantic && p.SemanticIndex == index {
			return p, true
		}
	}
	return Param{}, false
}

// Constant is a variable of constant buffer 0.
type Constant struct {
	Name   string
	Type   string
	Offset int
	Size   int
}

// ConstantLayout is the packed layout of constant buffer 0.  Variables are
// packed in declaration order into 16 byte registers: no variable straddles a
// register boundary and matrices start on one.  Size is rounded up to a whole
// register.
type ConstantLayout struct {
	Vars []Constant
	Size int
}

// Lookup finds the named variable.
func (l ConstantLayout) Lookup(name string) (Constant, bool) {
	for _, c := range l.Vars {
		if c.Name == name {
			return c, true
		}
	}
	return Constant{}, false
}

const registerSize = 16

func (l *ConstantLayout) add(name, typ string) error {
	ti, ok := types[typ]
	if !ok {
		return fmt.Errorf("unsupported constant type %s", typ)
	}
	if _, dup := l.Lookup(name); dup {
		return fmt.Errorf("constant %s redeclared", name)
	}
	off := l.end()
	if ti.matrix || off%registerSize+ti.size > registerSize {
		off = roundUp(off, registerSize)
	}
	l.Vars = append(l.Vars, Constant{Name: name, Type: typ, Offset: off, Size: ti.size})
	l.Size = roundUp(off+ti.size, registerSize)
	return nil
}

func (l *ConstantLayout) end() int {
	if len(l.Vars) == 0 {
		return 0
	}
	last := l.Vars[len(l.Vars)-1]
	return last.Offset + last.Size
}

func roundUp(n, to int) int {
	return (n + to - 1) / to * to
}

type typeInfo struct {
	components int
	size       int
	matrix     bool
}

// types lists the GLSL types allowed in signatures and constant buffers.
// Matrix sizes follow register packing: every column but the last occupies a
// whole register.
var types = map[string]typeInfo{
	"float": {1, 4, false},
	"vec2":  {2, 8, false},
	"vec3":  {3, 12, false},
	"vec4":  {4, 16, false},
	"int":   {1, 4, false},
	"ivec2": {2, 8, false},
	"ivec3": {3, 12, false},
	"ivec4": {4, 16, false},
	"uint":  {1, 4, false},
	"bool":  {1, 4, false},
	"mat2":  {4, 16 + 8, true},
	"mat3":  {9, 2*16 + 12, true},
	"mat4":  {16, 4 * 16, true},
}

var qualifiers = map[string]bool{
	"in": true, "out": true, "attribute": true, "varying": true, "uniform": true,
	"const": true, "flat": true, "smooth": true, "centroid": true, "invariant": true,
	"highp": true, "mediump": true, "lowp": true,
}

type token struct {
	text string
	line int
}

type reflection struct {
	inputs     Signature
	constants  ConstantLayout
	entryFound bool
}

// reflectSource scans the top level declarations of the selected source.
// Function bodies are skipped.
func reflectSource(lines []srcLine, entry string, stage Stage) (*reflection, error) {
	r := &reflection{}
	depth := 0
	var stmt []token
	for _, tok := range tokenize(lines) {
		switch tok.text {
		case "{":
			if depth == 0 {
				if len(stmt) > 0 && stmt[0].text == "uniform" {
					return nil, &preprocessError{tok.line, "uniform blocks are not supported; declare constants as top level uniforms"}
				}
				if isEntryHeader(stmt, entry) {
					r.entryFound = true
				}
				stmt = nil
			}
			depth++
			continue
		case "}":
			depth--
			if depth < 0 {
				return nil, &preprocessError{tok.line, "unbalanced }"}
			}
			continue
		case ";":
			if depth == 0 {
				if err := r.declare(stmt, stage); err != nil {
					return nil, err
				}
				stmt = nil
			}
			continue
		}
		if depth == 0 {
			stmt = append(stmt, tok)
		}
	}
	if depth != 0 {
		line := 0
		if len(lines) > 0 {
			line = lines[len(lines)-1].n
		}
		return nil, &preprocessError{line, "unbalanced {"}
	}
	return r, nil
}

func isEntryHeader(stmt []token, entry string) bool {
	for i := 0; i+2 < len(stmt); i++ {
		if stmt[i].text == "void" && stmt[i+1].text == entry && stmt[i+2].text == "(" {
			return true
		}
	}
	return false
}

// declare records a top level declaration if it is a vertex input or a
// uniform.
func (r *reflection) declare(stmt []token, stage Stage) error {
	if len(stmt) == 0 {
		return nil
	}
	line := stmt[0].line
	i := 0
	location := -1
	if stmt[0].text == "layout" {
		end := -1
		for j := 1; j < len(stmt); j++ {
			if stmt[j].text == ")" {
				end = j
				break
			}
			if stmt[j].text == "location" && j+2 < len(stmt) && stmt[j+1].text == "=" {
				n, err := strconv.Atoi(stmt[j+2].text)
				if err != nil {
					return &preprocessError{line, "invalid location " + stmt[j+2].text}
				}
				location = n
			}
		}
		if end < 0 {
			return &preprocessError{line, "unterminated layout qualifier"}
		}
		i = end + 1
	}

	storage := ""
	for ; i < len(stmt) && qualifiers[stmt[i].text]; i++ {
		switch stmt[i].text {
		case "in", "attribute", "uniform", "out", "varying":
			storage = stmt[i].text
		}
	}
	switch storage {
	case "uniform":
	case "in", "attribute":
		if stage != StageVertex {
			return nil
		}
	default:
		return nil
	}
	if i >= len(stmt) {
		return &preprocessError{line, storage + " declaration without type"}
	}
	typ := stmt[i].text
	i++
	if strings.HasPrefix(typ, "sampler") {
		// Samplers are bound as resources, not through the constant buffer.
		return nil
	}
	ti, ok := types[typ]
	if !ok {
		return &preprocessError{line, fmt.Sprintf("unsupported %s type %s", storage, typ)}
	}

	for i < len(stmt) {
		name := stmt[i].text
		if !isIdent(name) {
			return &preprocessError{stmt[i].line, "expected identifier, found " + name}
		}
		i++
		if i < len(stmt) && stmt[i].text == "[" {
			return &preprocessError{stmt[i].line, "arrays are not supported in " + storage + " declarations"}
		}
		if storage == "uniform" {
			if err := r.constants.add(name, typ); err != nil {
				return &preprocessError{line, err.Error()}
			}
		} else {
			if ti.matrix {
				return &preprocessError{line, "matrix vertex inputs are not supported"}
			}
			sem, idx := splitSemantic(name)
			r.inputs = append(r.inputs, Param{
				Name:          name,
				SemanticName:  sem,
				SemanticIndex: idx,
				Type:          typ,
				Components:    ti.components,
				Location:      location,
				Line:          line,
			})
		}
		if i < len(stmt) && stmt[i].text == "," {
			i++
			continue
		}
		break
	}
	return nil
}

func splitSemantic(name string) (string, int) {
	end := len(name)
	for end > 0 && '0' <= name[end-1] && name[end-1] <= '9' {
		end--
	}
	if end == len(name) || end == 0 {
		return name, 0
	}
	n, _ := strconv.Atoi(name[end:])
	return name[:end], n
}

func tokenize(lines []srcLine) []token {
	var toks []token
	for _, l := range lines {
		s := l.text
		for i := 0; i < len(s); {
			c := s[i]
			switch {
			case c == ' ' || c == '\t' || c == '\r':
				i++
			case isIdentRune(rune(c), 0):
				j := i + 1
				for j < len(s) && isIdentRune(rune(s[j]), 1) {
					j++
				}
				toks = append(toks, token{s[i:j], l.n})
				i = j
			case '0' <= c && c <= '9' || c == '.':
				j := i + 1
				for j < len(s) && (isIdentRune(rune(s[j]), 1) || s[j] == '.') {
					j++
				}
				toks = append(toks, token{s[i:j], l.n})
				i = j
			default:
				toks = append(toks, token{s[i : i+1], l.n})
				i++
			}
		}
	}
	return toks
}
