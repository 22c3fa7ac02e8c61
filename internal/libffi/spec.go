package libffi

/*
#include <ffi.h>
#include <stdlib.h>

ffi_cif *ffirt_alloc_cif(void);
void ffirt_call(ffi_cif *cif, void *fn, void *rvalue, void **avalue);
int ffirt_call_errno(ffi_cif *cif, void *fn, void *rvalue, void **avalue);
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/ffi-runtime/errors"
)

type state uint8

const (
	building state = iota
	buildingUnpassable
	structSpec
	structSpecUnpassable
	callSpec
)

// argIncrement is the growth step for the argument descriptor array.
const argIncrement = 8

// Bufferspec accumulates argument types into a buffer layout. It serves a
// dual purpose: it describes the argument buffer passed to ffi_call, and
// it describes the layout of structs.
type Bufferspec struct {
	bytes     uintptr
	nelements int
	capacity  int
	maxAlign  uintptr
	state     state
	args      unsafe.Pointer // C-heap, NULL-terminated ffi_type* array
}

// Callspec is a Bufferspec with a return slot and a prepared ffi_cif.
type Callspec struct {
	Bufferspec
	roffset uintptr
	cif     *C.ffi_cif
}

func NewBufferspec() *Bufferspec {
	return &Bufferspec{state: building}
}

func NewCallspec() *Callspec {
	return &Callspec{Bufferspec: Bufferspec{state: building}}
}

func (b *Bufferspec) argSlice(n int) []*C.ffi_type {
	return unsafe.Slice((**C.ffi_type)(b.args), n)
}

// AddArgument aligns the running size to the argument's alignment, advances
// it by the argument's size, records the descriptor, and returns the
// argument's offset. Calling it on a sealed spec is a programming error.
func (b *Bufferspec) AddArgument(t *Type) (uintptr, error) {
	switch b.state {
	case building:
		offset := alignUp(b.bytes, t.Alignment())
		b.bytes = offset + t.Size()

		if b.nelements+2 >= b.capacity {
			newCap := b.capacity + argIncrement
			grown := C.realloc(b.args, C.size_t(newCap)*C.size_t(unsafe.Sizeof(uintptr(0))))
			if grown == nil {
				return 0, errors.AllocationFailed(errors.PhaseLayout, uintptr(newCap)*PointerSize)
			}
			b.args = grown
			b.capacity = newCap
		}
		vec := b.argSlice(b.nelements + 2)
		vec[b.nelements] = t.c
		vec[b.nelements+1] = nil
		b.nelements++
		if t.Alignment() > b.maxAlign {
			b.maxAlign = t.Alignment()
		}
		return offset, nil
	case buildingUnpassable:
		return b.AddUnpassableArgument(t.Size(), t.Alignment()), nil
	default:
		panic("libffi: AddArgument on sealed spec")
	}
}

// AddUnpassableArgument records an element known only by size and
// alignment. The descriptor array is discarded; the spec can no longer
// describe a by-value call.
func (b *Bufferspec) AddUnpassableArgument(size, align uintptr) uintptr {
	if b.state != building && b.state != buildingUnpassable {
		panic("libffi: AddUnpassableArgument on sealed spec")
	}
	b.state = buildingUnpassable
	if b.args != nil {
		C.free(b.args)
		b.args = nil
		b.capacity = 0
	}

	offset := alignUp(b.bytes, align)
	b.bytes = offset + size

	b.nelements++
	if align > b.maxAlign {
		b.maxAlign = align
	}
	return offset
}

// Unpassable reports whether a non-structurally-describable element has
// been added.
func (b *Bufferspec) Unpassable() bool {
	return b.state == buildingUnpassable || b.state == structSpecUnpassable
}

// CompleteStruct finalizes the spec as a struct layout and returns its
// descriptor. In the passable case libffi computes size and alignment from
// the accumulated element descriptors (via a dummy cif preparation, which
// triggers aggregate initialization); in the unpassable case the running
// total is aligned to the maximum member alignment.
func (b *Bufferspec) CompleteStruct() (*Type, error) {
	switch b.state {
	case building:
		st := (*C.ffi_type)(C.calloc(1, C.size_t(unsafe.Sizeof(C.ffi_type{}))))
		if st == nil {
			return nil, errors.AllocationFailed(errors.PhaseLayout, unsafe.Sizeof(C.ffi_type{}))
		}
		st._type = C.FFI_TYPE_STRUCT
		st.elements = (**C.ffi_type)(b.args)
		b.args = nil // ownership moves to the descriptor
		b.capacity = 0

		var dummy C.ffi_cif
		if err := statusErr(C.ffi_prep_cif(&dummy, C.FFI_DEFAULT_ABI, 0, st, nil)); err != nil {
			return nil, err
		}

		b.state = structSpec
		return &Type{st}, nil
	case buildingUnpassable:
		st := (*C.ffi_type)(C.calloc(1, C.size_t(unsafe.Sizeof(C.ffi_type{}))))
		if st == nil {
			return nil, errors.AllocationFailed(errors.PhaseLayout, unsafe.Sizeof(C.ffi_type{}))
		}
		st._type = C.FFI_TYPE_STRUCT
		st.size = C.size_t(alignUp(b.bytes, b.maxAlign))
		st.alignment = C.ushort(b.maxAlign)

		b.state = structSpecUnpassable
		return &Type{st}, nil
	default:
		panic("libffi: CompleteStruct on sealed spec")
	}
}

// Prepare attaches the return type and compiles the call descriptor. After
// Prepare succeeds the spec is read-only.
func (c *Callspec) Prepare(ret *Type) error {
	if c.state != building {
		panic("libffi: Prepare on sealed or unpassable spec")
	}

	c.roffset = alignUp(c.bytes, ret.Alignment())
	c.bytes = c.roffset + ret.Size()

	// Extra word after the return slot: libffi can write past the return
	// value space (atgreen/libffi#35).
	c.bytes = alignUp(c.bytes, PointerAlign) + PointerSize

	c.cif = C.ffirt_alloc_cif()
	if c.cif == nil {
		return errors.AllocationFailed(errors.PhaseLayout, unsafe.Sizeof(C.ffi_cif{}))
	}

	var argv **C.ffi_type
	if c.args != nil {
		argv = (**C.ffi_type)(c.args)
	}
	if err := statusErr(C.ffi_prep_cif(c.cif, C.FFI_DEFAULT_ABI, C.uint(c.nelements), ret.c, argv)); err != nil {
		return err
	}

	c.state = callSpec
	return nil
}

// Prepared reports whether the spec has been finalized by Prepare.
func (c *Callspec) Prepared() bool {
	return c.state == callSpec
}

// NumArgs returns the number of recorded arguments.
func (c *Callspec) NumArgs() int {
	return c.nelements
}

// ReturnOffset is the byte offset of the return slot within the call buffer.
func (c *Callspec) ReturnOffset() uintptr {
	return c.roffset
}

// BufferSize returns the total call buffer size and the offset of the
// trailing void** argument pointer array. The scratch area comes first,
// the pointer array follows at pointer alignment.
func (c *Callspec) BufferSize() (total, argArrayOffset uintptr) {
	if c.state != callSpec {
		panic("libffi: BufferSize before Prepare")
	}
	argArrayOffset = alignUp(c.bytes, PointerAlign)
	total = argArrayOffset + uintptr(c.nelements)*PointerSize
	return total, argArrayOffset
}

// PopulateArgArray fills the argument pointer array so each entry points at
// the correctly aligned slot for its argument within buf.
func (c *Callspec) PopulateArgArray(buf unsafe.Pointer) {
	_, argArrayOffset := c.BufferSize()
	arr := unsafe.Slice((*unsafe.Pointer)(unsafe.Add(buf, argArrayOffset)), c.nelements)

	vec := c.argSlice(c.nelements)
	offset := uintptr(0)
	for i := 0; i < c.nelements; i++ {
		offset = alignUp(offset, uintptr(vec[i].alignment))
		arr[i] = unsafe.Add(buf, offset)
		offset += uintptr(vec[i].size)
	}
}

// Call performs the native call. buf must have been populated via
// PopulateArgArray and the per-argument writers.
func (c *Callspec) Call(fn uintptr, buf unsafe.Pointer) {
	if c.state != callSpec {
		panic("libffi: Call before Prepare")
	}
	_, argArrayOffset := c.BufferSize()
	C.ffirt_call(c.cif,
		unsafe.Pointer(fn), //nolint:govet // native code address, not a Go pointer
		unsafe.Add(buf, c.roffset),
		(*unsafe.Pointer)(unsafe.Add(buf, argArrayOffset)))
}

// CallErrno performs the native call with the errno bracket: the platform
// error indicator is cleared immediately before the call and read
// immediately after, with no intervening native or managed code.
func (c *Callspec) CallErrno(fn uintptr, buf unsafe.Pointer) int {
	if c.state != callSpec {
		panic("libffi: CallErrno before Prepare")
	}
	_, argArrayOffset := c.BufferSize()
	return int(C.ffirt_call_errno(c.cif,
		unsafe.Pointer(fn), //nolint:govet // native code address, not a Go pointer
		unsafe.Add(buf, c.roffset),
		(*unsafe.Pointer)(unsafe.Add(buf, argArrayOffset))))
}
