package gpu

import "fmt"

// Format describes the layout of one element of vertex, index or pixel data.
type Format int

// Formats used by the tutorials.
const (
	FormatUnknown Format = iota
	FormatR8G8B8A8UNorm
	FormatR32Float
	FormatR32G32Float
	FormatR32G32B32Float
	FormatR32G32B32A32Float
	FormatR16UInt
	FormatR32UInt
	FormatD24UNormS8UInt
)

var formatInfo = map[Format]struct {
	name       string
	size       int
	components int
}{
	FormatR8G8B8A8UNorm:     {"R8G8B8A8_UNORM", 4, 4},
	FormatR32Float:          {"R32_FLOAT", 4, 1},
	FormatR32G32Float:       {"R32G32_FLOAT", 8, 2},
	FormatR32G32B32Float:    {"R32G32B32_FLOAT", 12, 3},
	FormatR32G32B32A32Float: {"R32G32B32A32_FLOAT", 16, 4},
	FormatR16UInt:           {"R16_UINT", 2, 1},
	FormatR32UInt:           {"R32_UINT", 4, 1},
	FormatD24UNormS8UInt:    {"D24_UNORM_S8_UINT", 4, 2},
}

// Size returns the size of one element in bytes, or 0 for an unknown format.
func (f Format) Size() int {
	return formatInfo[f].size
}

// Components returns the number of components in one element.
func (f Format) Components() int {
	return formatInfo[f].components
}

// IsFloatVector reports whether f holds 32 bit float components, the only
// kind of vertex attribute the tutorials feed.
func (f Format) IsFloatVector() bool {
	switch f {
	case FormatR32Float, FormatR32G32Float, FormatR32G32B32Float, FormatR32G32B32A32Float:
		return true
	}
	return false
}

func (f Format) String() string {
	if fi, ok := formatInfo[f]; ok {
		return fi.name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}
