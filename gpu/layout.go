package gpu

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/bmatsuo/gles-pipeline-tutorial/shader"
)

// Semantic returns the shader input name an element feeds: the semantic name
// followed by its index when the index is not zero.
func (e InputElement) Semantic() string {
	if e.SemanticIndex == 0 {
		return e.SemanticName
	}
	return e.SemanticName + strconv.Itoa(e.SemanticIndex)
}

// ResolveOffsets returns a copy of elems with every AppendAligned offset
// replaced by the end of the previous element in the same slot.
func ResolveOffsets(elems []InputElement) []InputElement {
	out := make([]InputElement, len(elems))
	next := map[int]int{}
	for i, e := range elems {
		if e.AlignedByteOffset == AppendAligned {
			e.AlignedByteOffset = next[e.InputSlot]
		}
		next[e.InputSlot] = e.AlignedByteOffset + e.Format.Size()
		out[i] = e
	}
	return out
}

// SlotStride returns the number of bytes the elements of slot occupy, which
// is the smallest stride a vertex buffer bound to that slot may use.
func SlotStride(elems []InputElement, slot int) int {
	stride := 0
	for _, e := range ResolveOffsets(elems) {
		if e.InputSlot != slot {
			continue
		}
		if end := e.AlignedByteOffset + e.Format.Size(); end > stride {
			stride = end
		}
	}
	return stride
}

// ValidateInputLayout checks elems against the input signature of a vertex
// shader.  Every shader input must be fed by exactly one element with at
// least as many float components; offsets must be 4 byte aligned and
// elements of one slot must not overlap.  Elements the shader does not read
// are allowed.
func ValidateInputLayout(elems []InputElement, sig shader.Signature) error {
	if len(elems) == 0 && len(sig) > 0 {
		return fmt.Errorf("%w: empty input layout for a shader with %d inputs", ErrInvalidArg, len(sig))
	}
	elems = ResolveOffsets(elems)

	seen := map[string]bool{}
	for i, e := range elems {
		if e.SemanticName == "" {
			return fmt.Errorf("%w: element %d has no semantic name", ErrInvalidArg, i)
		}
		if !e.Format.IsFloatVector() {
			return fmt.Errorf("%w: element %s: unsupported vertex format %v", ErrInvalidArg, e.Semantic(), e.Format)
		}
		if e.AlignedByteOffset < 0 || e.AlignedByteOffset%4 != 0 {
			return fmt.Errorf("%w: element %s: offset %d is not 4 byte aligned", ErrInvalidArg, e.Semantic(), e.AlignedByteOffset)
		}
		if e.InputSlotClass != PerVertexData {
			return fmt.Errorf("%w: element %s: per-instance data", ErrUnsupported, e.Semantic())
		}
		if seen[e.Semantic()] {
			return fmt.Errorf("%w: semantic %s declared twice", ErrInvalidArg, e.Semantic())
		}
		seen[e.Semantic()] = true
	}

	bySlot := map[int][]InputElement{}
	for _, e := range elems {
		bySlot[e.InputSlot] = append(bySlot[e.InputSlot], e)
	}
	for slot, es := range bySlot {
		sort.Slice(es, func(i, j int) bool { return es[i].AlignedByteOffset < es[j].AlignedByteOffset })
		for i := 1; i < len(es); i++ {
			prev := es[i-1]
			if prev.AlignedByteOffset+prev.Format.Size() > es[i].AlignedByteOffset {
				return fmt.Errorf("%w: slot %d: %s [%d,%d) overlaps %s at %d", ErrInvalidArg, slot,
					prev.Semantic(), prev.AlignedByteOffset, prev.AlignedByteOffset+prev.Format.Size(),
					es[i].Semantic(), es[i].AlignedByteOffset)
			}
		}
	}

	for _, p := range sig {
		var match *InputElement
		for i := range elems {
			if elems[i].SemanticName == p.SemanticName && elems[i].SemanticIndex == p.SemanticIndex {
				match = &elems[i]
				break
			}
		}
		if match == nil {
			return fmt.Errorf("%w: shader input %s (%s) is not fed by the input layout", ErrInvalidArg, p.Name, p.Type)
		}
		if match.Format.Components() < p.Components {
			return fmt.Errorf("%w: shader input %s is %s but element format %v has %d components",
				ErrInvalidArg, p.Name, p.Type, match.Format, match.Format.Components())
		}
	}
	return nil
}
