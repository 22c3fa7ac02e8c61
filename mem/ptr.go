package mem

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/wippyai/ffi-runtime/ctype"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/libffi"
)

// Ptr is a typed pointer into native memory. The zero Ptr is the null
// pointer. Pointers derived from Go-owned allocations carry a reference to
// the owning Allocation, so the block stays live as long as any pointer
// into it does.
type Ptr struct {
	elem  *ctype.Type
	addr  uintptr
	owner *Allocation
}

// FromAddr wraps a raw native address as a pointer to a value of type t.
// The caller asserts that the address is valid for that type; no ownership
// is taken.
func FromAddr(t *ctype.Type, addr uintptr) *Ptr {
	return &Ptr{elem: t, addr: addr}
}

// Elem returns the pointee type.
func (p *Ptr) Elem() *ctype.Type {
	return p.elem
}

// Addr returns the native address.
func (p *Ptr) Addr() uintptr {
	return p.addr
}

// Owner returns the allocation the pointer refers into, or nil for
// foreign memory.
func (p *Ptr) Owner() *Allocation {
	return p.owner
}

// IsNull reports whether the pointer is null.
func (p *Ptr) IsNull() bool {
	return p == nil || p.addr == 0
}

// Advance returns a pointer n elements past p. n may be negative. The
// pointee type must be complete.
func (p *Ptr) Advance(n int) (*Ptr, error) {
	size, err := p.stride()
	if err != nil {
		return nil, err
	}
	return &Ptr{
		elem:  p.elem,
		addr:  uintptr(int64(p.addr) + int64(n)*int64(size)),
		owner: p.owner,
	}, nil
}

// Diff returns the distance from q to p in elements. Both pointers must
// have the same pointee type.
func (p *Ptr) Diff(q *Ptr) (int, error) {
	if p.elem != q.elem {
		return 0, errors.InvalidInput(errors.PhaseType,
			fmt.Sprintf("pointer difference between %s and %s", p.elem, q.elem))
	}
	size, err := p.stride()
	if err != nil {
		return 0, err
	}
	return int((int64(p.addr) - int64(q.addr)) / int64(size)), nil
}

// stride returns the pointee size for element arithmetic. Zero-size
// pointees (empty arrays, zero-size abstract types) have no stride.
func (p *Ptr) stride() (uintptr, error) {
	size, err := p.elem.Size()
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, errors.InvalidInput(errors.PhaseType,
			fmt.Sprintf("pointer arithmetic on zero-size type %s", p.elem))
	}
	return size, nil
}

// Field returns a pointer to the named member of the struct or union the
// pointer refers to.
func (p *Ptr) Field(name string) (*Ptr, error) {
	k := p.elem.Kind()
	if k != ctype.KindStruct && k != ctype.KindUnion {
		return nil, errors.New(errors.PhaseType, errors.KindTypeMismatch).
			CType(p.elem.Name()).
			Detail("field access on non-aggregate type").
			Build()
	}
	f, ok := p.elem.FieldByName(name)
	if !ok {
		return nil, errors.NotFound("field", name)
	}
	return &Ptr{elem: f.Type, addr: p.addr + f.Offset, owner: p.owner}, nil
}

// Index returns a pointer to element i of the array the pointer refers
// to. The index is checked against the array length.
func (p *Ptr) Index(i int) (*Ptr, error) {
	if p.elem.Kind() != ctype.KindArray {
		return nil, errors.New(errors.PhaseType, errors.KindTypeMismatch).
			CType(p.elem.Name()).
			Detail("indexing a non-array type").
			Build()
	}
	n := p.elem.Len()
	if i < 0 || i >= n {
		return nil, errors.OutOfBounds(errors.PhaseType, nil, i, n)
	}
	et := p.elem.Elem()
	size, err := et.Size()
	if err != nil {
		return nil, err
	}
	return &Ptr{elem: et, addr: p.addr + uintptr(i)*size, owner: p.owner}, nil
}

func (p *Ptr) String() string {
	if p.IsNull() {
		return fmt.Sprintf("(%s*) null", p.elem)
	}
	return fmt.Sprintf("(%s*) 0x%x", p.elem, p.addr)
}

// Copy copies n bytes from src to dst. The regions must not overlap.
func Copy(dst, src *Ptr, n uintptr) error {
	if dst.IsNull() || src.IsNull() {
		return errors.NilPointer(errors.PhaseType, nil, "*mem.Ptr")
	}
	libffi.Memcpy(unsafe.Pointer(dst.addr), unsafe.Pointer(src.addr), n)
	runtime.KeepAlive(dst.owner)
	runtime.KeepAlive(src.owner)
	return nil
}

// NewCString copies s into a fresh NUL-terminated native buffer and
// returns a pointer to its first byte.
func NewCString(s string) (*Ptr, error) {
	a, err := newAllocation(uintptr(len(s)) + 1)
	if err != nil {
		return nil, err
	}
	copyIn(a.base, s)
	return &Ptr{elem: ctype.Int8, addr: uintptr(a.base), owner: a}, nil
}

// GoString copies the NUL-terminated bytes at p into a Go string.
func GoString(p *Ptr) string {
	if p.IsNull() {
		return ""
	}
	s := libffi.GoString(unsafe.Pointer(p.addr))
	runtime.KeepAlive(p.owner)
	return s
}

func copyIn(dst unsafe.Pointer, s string) {
	b := unsafe.Slice((*byte)(dst), len(s)+1)
	copy(b, s)
	b[len(s)] = 0
}
