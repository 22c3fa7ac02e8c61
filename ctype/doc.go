// Package ctype describes C types as first-class Go values.
//
// A Type is a node in the C type algebra: primitives (fixed-width signed
// and unsigned integers, floats, the pointer-sized integer, C strings),
// pointers, fixed-length arrays, structs and unions, function pointers,
// views, and abstract blobs of known size and alignment.
//
// # Construction
//
// Primitives are package-level values (Int32, Float64, ...). Compound
// types are built bottom-up:
//
//	tv := ctype.NewStructBuilder("timeval")
//	sec, _ := tv.AddField("tv_sec", ctype.Int64)
//	usec, _ := tv.AddField("tv_usec", ctype.Int64)
//	timeval, _ := tv.Seal()
//
//	sig, _ := ctype.NewSignature([]*ctype.Type{ctype.PointerTo(timeval)}, ctype.Int32)
//
// Struct and union descriptors are mutable while building and immutable
// after Seal. Sealed types are safe for unsynchronized concurrent reads.
//
// # Completeness and passability
//
// Size and Alignment are total over complete types and fail with an
// incomplete_type condition for an unsealed struct or union and for Void.
//
// A type is passable when it may appear as a by-value argument or return
// type: primitives, pointers, and function pointers always; a struct only
// when sealed and composed entirely of passable, non-array, non-union
// fields; arrays, unions, and abstract types never. Building a signature
// with a non-passable argument or return fails immediately, so an invalid
// signature can never be used to initiate a call.
//
// # Views
//
// A view layers a logical type over an underlying native type via two pure
// conversion functions. Nullable pointers and enum-like integers are
// expressed this way without touching the native call layer.
package ctype
