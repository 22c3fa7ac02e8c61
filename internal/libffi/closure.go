package libffi

/*
#include <ffi.h>
#include <stdint.h>
#include <string.h>

// Declarations only: this file carries the //export, so its preamble must
// not define anything. Definitions live in libffi.go.
int ffirt_prep_closure(void *closure, ffi_cif *cif, void *user, void *code);
void *ffirt_closure_alloc(void **code);
void ffirt_closure_free(void *closure);
*/
import "C"

import (
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/ffi-runtime/errors"
)

// Closure is an allocated ffi_closure trampoline. Code is the natively
// callable address; invoking it re-enters Go through the registered
// invoke handler with the identifier the closure was built with.
type Closure struct {
	writable unsafe.Pointer
	Code     uintptr
}

// InvokeHandler receives native callback invocations. ret points at the
// native return slot; args holds one pointer per argument slot.
type InvokeHandler func(id uintptr, ret unsafe.Pointer, args []unsafe.Pointer)

var invokeHandler atomic.Value // InvokeHandler

// SetInvokeHandler installs the process-wide callback dispatcher. The call
// engine installs it once at init; later replacement is not supported.
func SetInvokeHandler(h InvokeHandler) {
	invokeHandler.Store(h)
}

// NewClosure allocates a native trampoline bound to id through the
// prepared callspec.
func NewClosure(spec *Callspec, id uintptr) (*Closure, error) {
	if !spec.Prepared() {
		panic("libffi: NewClosure on unprepared spec")
	}

	var code unsafe.Pointer
	cl := C.ffirt_closure_alloc(&code)
	if cl == nil {
		return nil, errors.New(errors.PhaseCallback, errors.KindAllocation).
			Detail("ffi_closure_alloc failed").
			Build()
	}

	// The identifier travels as the closure's user data; the C thunk casts
	// it back to uintptr_t on the way into Go.
	st := C.ffirt_prep_closure(cl, spec.cif, unsafe.Pointer(id), code) //nolint:govet // integer identifier, not a Go pointer
	if err := statusErr(C.ffi_status(st)); err != nil {
		C.ffirt_closure_free(cl)
		return nil, err
	}

	return &Closure{writable: cl, Code: uintptr(code)}, nil
}

// Free releases the trampoline. It is only safe while the code address
// has not been handed to native code: a published address must stay
// allocated so late invocations land in the thunk, not in freed memory.
func (c *Closure) Free() {
	if c.writable != nil {
		C.ffirt_closure_free(c.writable)
		c.writable = nil
		c.Code = 0
	}
}

//export ffirtClosureInvoke
func ffirtClosureInvoke(cif *C.ffi_cif, ret unsafe.Pointer, args *unsafe.Pointer, id C.uintptr_t) {
	n := int(cif.nargs)
	var argv []unsafe.Pointer
	if n > 0 {
		argv = unsafe.Slice(args, n)
	}
	// Zero the return slot up front so a handler that declines to write
	// (or an expired callback) hands a defined value back to native code.
	// Small integer returns occupy a full ffi_arg slot.
	if cif.rtype._type != C.FFI_TYPE_VOID {
		slot := uintptr(cif.rtype.size)
		if slot < unsafe.Sizeof(uintptr(0)) {
			slot = unsafe.Sizeof(uintptr(0))
		}
		C.memset(ret, 0, C.size_t(slot))
	}
	if h, ok := invokeHandler.Load().(InvokeHandler); ok && h != nil {
		h(uintptr(id), ret, argv)
	}
}
