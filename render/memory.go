package render

import "github.com/cockroachdb/errors"

// FindMemoryType returns the lowest memory type index i such that bit i
// is set in typeFilter and type i carries every flag in required. The
// device's enumeration order is preserved; there is no fallback when no
// type satisfies both constraints, because an allocation with the wrong
// memory type cannot proceed.
func FindMemoryType(props MemoryProperties, typeFilter uint32, required MemoryPropertyFlags) (int, error) {
	for i, memoryType := range props.Types {
		typeBit := uint32(1) << i

		if typeFilter&typeBit != 0 && memoryType.PropertyFlags&required == required {
			return i, nil
		}
	}

	return 0, errors.Newf("could not find a memory type matching type request %x with flags %x", typeFilter, required)
}
