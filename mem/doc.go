// Package mem manages native memory for typed C values.
//
// Alloc and AllocN obtain zero-initialized blocks from the C allocator and
// return typed pointers into them. Each block is tracked by an Allocation
// that frees the native memory when it becomes unreachable; Release frees
// it immediately.
//
// A Ptr pairs a native address with the ctype of the value it points at,
// which gives pointer arithmetic its C semantics: Advance moves in element
// strides, Index addresses array elements with bounds checks, and Field
// addresses a struct member by name. Pointers derived from an allocation
// keep that allocation reachable, so interior pointers never outlive their
// block.
package mem
