// Package libffi wraps the libffi native call interface.
//
// All cgo references live in this package. The rest of the library works
// with opaque Type descriptors and the Bufferspec/Callspec builders, which
// mirror libffi's own model:
//
//	Type       - an ffi_type descriptor (scalar, pointer, or struct)
//	Bufferspec - accumulates argument types into a buffer layout,
//	             computing offsets, cumulative size, and max alignment;
//	             doubles as a struct layout builder
//	Callspec   - a Bufferspec plus a return slot and a prepared ffi_cif,
//	             ready to drive ffi_call
//	Closure    - an ffi_closure trampoline bound to an integer identifier
//
// A Bufferspec starts in the building state. Adding an argument that has no
// structural ffi_type description (an unpassable aggregate) irrevocably
// drops the descriptor array; only size/alignment bookkeeping continues.
// Preparing a Callspec or completing a struct layout seals the spec: the
// shape can no longer change, and further argument additions panic.
//
// The call buffer layout is a scratch area for arguments and the return
// value, followed by the void** argument pointer array at pointer
// alignment. One extra pointer-sized word is reserved after the return
// slot to work around a libffi overwrite bug (atgreen/libffi#35).
package libffi
