package libffi

/*
#cgo pkg-config: libffi
#cgo LDFLAGS: -ldl
#include <ffi.h>
#include <errno.h>
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

// The ffirt_* helpers are defined here (this file carries no //export) and
// declared in the preambles of the sibling cgo files that call them. They
// deliberately have external linkage so every translation unit in the
// package links against this single set of definitions.

// ffi_call wrapper taking a generic void* target so cgo call sites avoid
// C function-pointer typing.
void ffirt_call(ffi_cif *cif, void *fn, void *rvalue, void **avalue) {
	ffi_call(cif, (void (*)(void))fn, rvalue, avalue);
}

// Clear errno, perform the call, and read errno back before returning to
// Go. Nothing may run between ffi_call and the errno read, so the bracket
// lives on the C side.
int ffirt_call_errno(ffi_cif *cif, void *fn, void *rvalue, void **avalue) {
	errno = 0;
	ffi_call(cif, (void (*)(void))fn, rvalue, avalue);
	return errno;
}

ffi_cif *ffirt_alloc_cif(void) {
	return (ffi_cif *)calloc(1, sizeof(ffi_cif));
}

void *ffirt_closure_alloc(void **code) {
	return ffi_closure_alloc(sizeof(ffi_closure), code);
}

void ffirt_closure_free(void *closure) {
	ffi_closure_free((ffi_closure *)closure);
}

// The thunk binds on the C side to avoid cgo function-pointer pitfalls.
// It forwards into Go with the registered integer identifier.
extern void ffirtClosureInvoke(ffi_cif *cif, void *ret, void **args, uintptr_t id);
static void ffirt_closure_thunk(ffi_cif *cif, void *ret, void **args, void *user) {
	ffirtClosureInvoke(cif, ret, args, (uintptr_t)user);
}

int ffirt_prep_closure(void *closure, ffi_cif *cif, void *user, void *code) {
	return ffi_prep_closure_loc((ffi_closure *)closure, cif, ffirt_closure_thunk, user, code);
}
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/ffi-runtime/errors"
)

// Type is an opaque ffi_type descriptor.
type Type struct {
	c *C.ffi_type
}

// Builtin scalar descriptors. These alias libffi's static ffi_type objects
// and must never be freed.
var (
	TypeVoid    = &Type{&C.ffi_type_void}
	TypeSint8   = &Type{&C.ffi_type_sint8}
	TypeUint8   = &Type{&C.ffi_type_uint8}
	TypeSint16  = &Type{&C.ffi_type_sint16}
	TypeUint16  = &Type{&C.ffi_type_uint16}
	TypeSint32  = &Type{&C.ffi_type_sint32}
	TypeUint32  = &Type{&C.ffi_type_uint32}
	TypeSint64  = &Type{&C.ffi_type_sint64}
	TypeUint64  = &Type{&C.ffi_type_uint64}
	TypeFloat   = &Type{&C.ffi_type_float}
	TypeDouble  = &Type{&C.ffi_type_double}
	TypePointer = &Type{&C.ffi_type_pointer}
)

// PointerSize is sizeof(void*) as libffi sees it.
var PointerSize = uintptr(C.ffi_type_pointer.size)

// PointerAlign is alignof(void*) as libffi sees it.
var PointerAlign = uintptr(C.ffi_type_pointer.alignment)

func (t *Type) Size() uintptr {
	return uintptr(t.c.size)
}

func (t *Type) Alignment() uintptr {
	return uintptr(t.c.alignment)
}

// statusErr maps an ffi_status to an abi_preparation error, or nil for
// FFI_OK. Bad type definitions and bad ABIs are configuration errors,
// never per-call conditions.
func statusErr(status C.ffi_status) error {
	switch status {
	case C.FFI_OK:
		return nil
	case C.FFI_BAD_TYPEDEF:
		return errors.ABIPreparation("bad type definition")
	case C.FFI_BAD_ABI:
		return errors.ABIPreparation("bad calling convention")
	default:
		return errors.ABIPreparation("unknown ffi_prep failure")
	}
}

// alignUp rounds off up to the next multiple of align.
func alignUp(off, align uintptr) uintptr {
	if align <= 1 {
		return off
	}
	return (off + align - 1) &^ (align - 1)
}

// AlignUp is alignUp for callers outside the package.
func AlignUp(off, align uintptr) uintptr {
	return alignUp(off, align)
}

// C heap helpers. Buffers handed to libffi must not move, so they live on
// the C heap rather than the Go heap.

func Malloc(n uintptr) (unsafe.Pointer, error) {
	if n == 0 {
		n = 1
	}
	p := C.malloc(C.size_t(n))
	if p == nil {
		return nil, errors.AllocationFailed(errors.PhaseCall, n)
	}
	return p, nil
}

func Calloc(n uintptr) (unsafe.Pointer, error) {
	if n == 0 {
		n = 1
	}
	p := C.calloc(1, C.size_t(n))
	if p == nil {
		return nil, errors.AllocationFailed(errors.PhaseCall, n)
	}
	return p, nil
}

func Free(p unsafe.Pointer) {
	C.free(p)
}

func Memcpy(dst, src unsafe.Pointer, n uintptr) {
	if n > 0 {
		C.memcpy(dst, src, C.size_t(n))
	}
}

func Memset(p unsafe.Pointer, b byte, n uintptr) {
	if n > 0 {
		C.memset(p, C.int(b), C.size_t(n))
	}
}

// CString copies s to the C heap with a trailing NUL.
func CString(s string) (unsafe.Pointer, error) {
	p := C.CString(s)
	if p == nil {
		return nil, errors.AllocationFailed(errors.PhaseMarshal, uintptr(len(s)+1))
	}
	return unsafe.Pointer(p), nil
}

// GoString copies a NUL-terminated C string into a Go string.
func GoString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	return C.GoString((*C.char)(p))
}

// Strerror formats an errno value using the platform's message table.
func Strerror(errno int) string {
	return C.GoString(C.strerror(C.int(errno)))
}
