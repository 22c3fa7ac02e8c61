package call

import (
	"runtime"
	"unsafe"

	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/mem"
)

// Load reads the value p points at and returns its Go representation,
// using the same decoding rules as function returns.
func Load(p *mem.Ptr) (any, error) {
	if p.IsNull() {
		return nil, errors.NilPointer(errors.PhaseMarshal, nil, "*mem.Ptr")
	}
	r, err := readerFor(p.Elem())
	if err != nil {
		return nil, err
	}
	v, err := r(&frame{buf: unsafe.Pointer(p.Addr())}, 0)
	runtime.KeepAlive(p.Owner())
	return v, err
}

// Store writes v, in its Go representation, into the memory p points at.
// Storing a string through a char* slot copies it into a fresh native
// buffer that is never reclaimed by this package; prefer mem.NewCString
// when the lifetime matters.
func Store(p *mem.Ptr, v any) error {
	if p.IsNull() {
		return errors.NilPointer(errors.PhaseMarshal, nil, "*mem.Ptr")
	}
	w, err := writerFor(p.Elem())
	if err != nil {
		return err
	}
	// Temps are deliberately not freed: unlike a call frame, stored
	// pointers outlive this function.
	err = w(&frame{buf: unsafe.Pointer(p.Addr())}, 0, v)
	runtime.KeepAlive(p.Owner())
	return err
}

// LoadField reads the named member of the struct or union p points at.
func LoadField(p *mem.Ptr, name string) (any, error) {
	fp, err := p.Field(name)
	if err != nil {
		return nil, err
	}
	return Load(fp)
}

// StoreField writes the named member of the struct or union p points at.
func StoreField(p *mem.Ptr, name string, v any) error {
	fp, err := p.Field(name)
	if err != nil {
		return err
	}
	return Store(fp, v)
}

// LoadIndex reads element i of the array p points at.
func LoadIndex(p *mem.Ptr, i int) (any, error) {
	ep, err := p.Index(i)
	if err != nil {
		return nil, err
	}
	return Load(ep)
}

// StoreIndex writes element i of the array p points at.
func StoreIndex(p *mem.Ptr, i int, v any) error {
	ep, err := p.Index(i)
	if err != nil {
		return err
	}
	return Store(ep, v)
}
