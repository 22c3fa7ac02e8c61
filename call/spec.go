package call

import (
	"sync"

	"github.com/wippyai/ffi-runtime/ctype"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/libffi"
)

// Spec is a compiled call descriptor for one signature: the prepared
// native call interface, the slot offset of every argument within the
// call buffer, and the marshal functions for arguments and return value.
// Specs are immutable and safe for concurrent use.
type Spec struct {
	sig     *ctype.Signature
	cs      *libffi.Callspec
	offsets []uintptr
	writers []writeFn
	reader  readFn // nil for a void return
}

var specCache sync.Map // *ctype.Signature -> *Spec

// CompileSpec builds the call descriptor for sig. Results are cached per
// signature value, so repeated compilation of the same signature is cheap.
func CompileSpec(sig *ctype.Signature) (*Spec, error) {
	if cached, ok := specCache.Load(sig); ok {
		return cached.(*Spec), nil
	}

	spec, err := compile(sig)
	if err != nil {
		return nil, err
	}

	actual, _ := specCache.LoadOrStore(sig, spec)
	return actual.(*Spec), nil
}

func compile(sig *ctype.Signature) (*Spec, error) {
	args := sig.Args()
	spec := &Spec{
		sig:     sig,
		cs:      libffi.NewCallspec(),
		offsets: make([]uintptr, len(args)),
		writers: make([]writeFn, len(args)),
	}

	for i, a := range args {
		off, err := spec.cs.AddArgument(a.Native())
		if err != nil {
			return nil, err
		}
		w, err := writerFor(a)
		if err != nil {
			return nil, err
		}
		spec.offsets[i] = off
		spec.writers[i] = w
	}

	ret := sig.Ret()
	retNative := libffi.TypeVoid
	if ret.Kind() != ctype.KindVoid {
		retNative = ret.Native()
		r, err := readerFor(ret)
		if err != nil {
			return nil, err
		}
		spec.reader = r
	}
	if err := spec.cs.Prepare(retNative); err != nil {
		return nil, err
	}
	return spec, nil
}

// Signature returns the signature the spec was compiled from.
func (s *Spec) Signature() *ctype.Signature {
	return s.sig
}

// Arity returns the number of arguments the compiled call takes.
func (s *Spec) Arity() int {
	return len(s.writers)
}

// ArgOffset returns the call buffer offset of argument i.
func (s *Spec) ArgOffset(i int) uintptr {
	return s.offsets[i]
}

// ReturnOffset returns the call buffer offset of the return slot.
func (s *Spec) ReturnOffset() uintptr {
	return s.cs.ReturnOffset()
}

func (s *Spec) checkArity(n int) error {
	if n != len(s.writers) {
		return errors.New(errors.PhaseCall, errors.KindInvalidInput).
			Detail("call takes %d arguments, got %d", len(s.writers), n).
			Build()
	}
	return nil
}
