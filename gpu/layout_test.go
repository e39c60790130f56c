package gpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmatsuo/gles-pipeline-tutorial/shader"
)

var litSignature = shader.Signature{
	{Name: "POSITION", SemanticName: "POSITION", Type: "vec3", Components: 3, Location: -1},
	{Name: "NORMAL", SemanticName: "NORMAL", Type: "vec3", Components: 3, Location: -1},
	{Name: "COLOR", SemanticName: "COLOR", Type: "vec4", Components: 4, Location: -1},
}

func litLayout() []InputElement {
	return []InputElement{
		{SemanticName: "POSITION", Format: FormatR32G32B32Float, AlignedByteOffset: 0},
		{SemanticName: "NORMAL", Format: FormatR32G32B32Float, AlignedByteOffset: 12},
		{SemanticName: "COLOR", Format: FormatR32G32B32A32Float, AlignedByteOffset: 24},
	}
}

func TestResolveOffsets(t *testing.T) {
	elems := litLayout()
	for i := range elems {
		elems[i].AlignedByteOffset = AppendAligned
	}
	resolved := ResolveOffsets(elems)
	assert.Equal(t, litLayout(), resolved)
	assert.Equal(t, AppendAligned, elems[0].AlignedByteOffset, "input is not modified")
	assert.Equal(t, 40, SlotStride(elems, 0))
	assert.Equal(t, 0, SlotStride(elems, 1))
}

func TestValidateInputLayout(t *testing.T) {
	require.NoError(t, ValidateInputLayout(litLayout(), litSignature))

	// Unused elements are fine.
	require.NoError(t, ValidateInputLayout(litLayout(), litSignature[:1]))

	tests := map[string]func([]InputElement) []InputElement{
		"missing input": func(es []InputElement) []InputElement { return es[:2] },
		"too few components": func(es []InputElement) []InputElement {
			es[2].Format = FormatR32G32B32Float
			return es
		},
		"overlap": func(es []InputElement) []InputElement {
			es[1].AlignedByteOffset = 8
			return es
		},
		"misaligned": func(es []InputElement) []InputElement {
			es[2].AlignedByteOffset = 26
			return es
		},
		"duplicate semantic": func(es []InputElement) []InputElement {
			es[1].SemanticName = "POSITION"
			return es
		},
		"integer format": func(es []InputElement) []InputElement {
			es[0].Format = FormatR32UInt
			return es
		},
		"empty": func([]InputElement) []InputElement { return nil },
	}
	for name, mutate := range tests {
		err := ValidateInputLayout(mutate(litLayout()), litSignature)
		assert.True(t, errors.Is(err, ErrInvalidArg), "%s: %v", name, err)
	}
}

func TestValidateInputLayoutSemanticIndex(t *testing.T) {
	sig := shader.Signature{{Name: "COLOR1", SemanticName: "COLOR", SemanticIndex: 1, Type: "vec4", Components: 4}}
	elems := []InputElement{{SemanticName: "COLOR", SemanticIndex: 1, Format: FormatR32G32B32A32Float}}
	require.NoError(t, ValidateInputLayout(elems, sig))
	assert.Equal(t, "COLOR1", elems[0].Semantic())

	elems[0].SemanticIndex = 0
	assert.Error(t, ValidateInputLayout(elems, sig))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, 12, FormatR32G32B32Float.Size())
	assert.Equal(t, 4, FormatR32G32B32A32Float.Components())
	assert.Equal(t, 2, FormatR16UInt.Size())
	assert.Equal(t, "R8G8B8A8_UNORM", FormatR8G8B8A8UNorm.String())
	assert.Equal(t, "Format(99)", Format(99).String())
	assert.Equal(t, 0, FormatUnknown.Size())
}
