package gpu

import "errors"

// Errors returned by devices, contexts and swap chains.  Backends wrap them
// with detail, so compare with errors.Is.
var (
	ErrInvalidArg  = errors.New("gpu: invalid argument")
	ErrUnsupported = errors.New("gpu: unsupported")
	ErrDeviceLost  = errors.New("gpu: device lost")
	ErrImmutable   = errors.New("gpu: resource is immutable")
	ErrNotBound    = errors.New("gpu: required state not bound")
)
