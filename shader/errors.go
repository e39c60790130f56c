package shader

import (
	"errors"
	"fmt"
)

// ErrSourceNotFound is returned when the shader source file does not exist.
var ErrSourceNotFound = errors.New("shader source not found")

// CompileError is returned when a source was read but could not be compiled.
// Diagnostic holds the compiler output, one "file:line: message" per line
// where a location is known.
type CompileError struct {
	Entry      string
	Profile    string
	Diagnostic string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s (%s): %s", e.Entry, e.Profile, e.Diagnostic)
}

func diagnostic(path string, line int, format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if line <= 0 {
		return path + ": " + msg
	}
	return fmt.Sprintf("%s:%d: %s", path, line, msg)
}
