package raster

// Control word layout:
//
//	bits  0-15  texture index
//	bits 16-31  region reference (region ID, 0 = unset)
//
// The layout is persisted as-is, so it must not change.
const (
	IndexBits = 16
	IndexMask = 1<<IndexBits - 1
	MaxIndex  = IndexMask

	refShift = IndexBits
	refMask  = 0xFFFF << refShift
)

// ControlIndex extracts the texture index from a control word.
func ControlIndex(w uint32) uint32 {
	return w & IndexMask
}

// ControlWithIndex returns w with its texture index replaced; all other bits are kept.
func ControlWithIndex(w, index uint32) uint32 {
	return w&^IndexMask | index&IndexMask
}

// ControlRef extracts the region reference from a control word.
func ControlRef(w uint32) uint16 {
	return uint16(w >> refShift)
}

// ControlWithRef returns w with its region reference replaced.
func ControlWithRef(w uint32, ref uint16) uint32 {
	return w&^refMask | uint32(ref)<<refShift
}
