package ffiruntime

import (
	"github.com/wippyai/ffi-runtime/call"
	"github.com/wippyai/ffi-runtime/ctype"
	"github.com/wippyai/ffi-runtime/dl"
	"github.com/wippyai/ffi-runtime/mem"
)

// Foreign resolves symbol in lib and binds it as a callable Go function
// with the given signature. The call spec is compiled eagerly, so an
// unsupported signature fails here rather than at the first call.
func Foreign(lib *dl.Library, symbol string, sig *ctype.Signature) (call.Func, error) {
	addr, err := lib.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	if _, err := call.CompileSpec(sig); err != nil {
		return nil, err
	}
	return call.Bind(sig, symbol, addr), nil
}

// ForeignValue resolves symbol in lib as a global of type t and returns a
// typed pointer to it. The memory is owned by the library.
func ForeignValue(lib *dl.Library, symbol string, t *ctype.Type) (*mem.Ptr, error) {
	addr, err := lib.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return mem.FromAddr(t, addr), nil
}

// Callback exposes a Go function to native code under the given
// signature. See call.NewCallback for the expected Go parameter types.
func Callback(sig *ctype.Signature, fn any) (*call.Callback, error) {
	return call.NewCallback(sig, fn)
}

// Load reads the value p points at into its Go representation.
func Load(p *mem.Ptr) (any, error) {
	return call.Load(p)
}

// Store writes a Go value into the memory p points at.
func Store(p *mem.Ptr, v any) error {
	return call.Store(p, v)
}
