package mem

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/ffi-runtime/ctype"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/libffi"
)

// Allocation is an owned block of native memory. The block is freed when
// the Allocation becomes unreachable, or earlier by an explicit Release.
type Allocation struct {
	base     unsafe.Pointer
	size     uintptr
	released atomic.Bool
}

func newAllocation(size uintptr) (*Allocation, error) {
	p, err := libffi.Calloc(size)
	if err != nil {
		return nil, err
	}
	a := &Allocation{base: p, size: size}
	runtime.SetFinalizer(a, (*Allocation).Release)
	return a, nil
}

// Release frees the native block. It is safe to call more than once;
// subsequent calls are no-ops. Any Ptr still referring into the block is
// invalid after Release.
func (a *Allocation) Release() {
	if a.released.Swap(true) {
		return
	}
	runtime.SetFinalizer(a, nil)
	libffi.Free(a.base)
	a.base = nil
}

// Size returns the block size in bytes.
func (a *Allocation) Size() uintptr {
	return a.size
}

// Alloc allocates a zero-initialized native value of type t and returns a
// typed pointer to it.
func Alloc(t *ctype.Type) (*Ptr, error) {
	return AllocN(t, 1)
}

// AllocN allocates a zero-initialized native array of n values of type t
// and returns a typed pointer to its first element.
func AllocN(t *ctype.Type, n int) (*Ptr, error) {
	if n <= 0 {
		return nil, errors.InvalidInput(errors.PhaseType, "allocation count must be positive")
	}
	size, err := t.Size()
	if err != nil {
		return nil, err
	}
	a, err := newAllocation(size * uintptr(n))
	if err != nil {
		return nil, err
	}
	return &Ptr{elem: t, addr: uintptr(a.base), owner: a}, nil
}
