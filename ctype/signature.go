package ctype

import (
	"fmt"
	"strings"

	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/libffi"
)

// Signature describes a C function: its argument types in declaration
// order and its return type, optionally annotated to check the platform's
// last-error indicator after each call.
type Signature struct {
	args       []*Type
	ret        *Type
	checkErrno bool
}

// NewSignature builds a function signature. Every argument must be a
// complete passable type; the return must be passable or Void. A
// non-passable type here fails immediately with an unsupported condition,
// so an invalid signature can never reach the call path.
func NewSignature(args []*Type, ret *Type) (*Signature, error) {
	for i, a := range args {
		if a == nil {
			return nil, errors.InvalidInput(errors.PhaseType, fmt.Sprintf("argument %d is nil", i))
		}
		if a.kind == KindVoid {
			return nil, errors.NotPassable(a.name, fmt.Sprintf("arg[%d]", i))
		}
		if !a.Complete() {
			return nil, errors.Incomplete(errors.PhaseType, a.name)
		}
		if !a.Passable() {
			return nil, errors.NotPassable(a.name, fmt.Sprintf("arg[%d]", i))
		}
	}
	if ret == nil {
		return nil, errors.InvalidInput(errors.PhaseType, "return type is nil")
	}
	if ret.kind != KindVoid {
		if !ret.Complete() {
			return nil, errors.Incomplete(errors.PhaseType, ret.name)
		}
		if !ret.Passable() {
			return nil, errors.NotPassable(ret.name, "return")
		}
	}

	s := &Signature{args: make([]*Type, len(args)), ret: ret}
	copy(s.args, args)
	return s, nil
}

// WithErrno returns a copy of the signature marked so that the engine
// clears errno before each call and reports a native_errno condition when
// the call leaves it non-zero.
func (s *Signature) WithErrno() *Signature {
	dup := *s
	dup.checkErrno = true
	return &dup
}

// Args returns the argument types in declaration order.
func (s *Signature) Args() []*Type {
	return s.args
}

// Ret returns the return type.
func (s *Signature) Ret() *Type {
	return s.ret
}

// CheckErrno reports whether the last-error indicator must be checked
// after each call.
func (s *Signature) CheckErrno() bool {
	return s.checkErrno
}

func (s *Signature) String() string {
	parts := make([]string, len(s.args))
	for i, a := range s.args {
		parts[i] = a.name
	}
	return fmt.Sprintf("%s (%s)", s.ret.name, strings.Join(parts, ", "))
}

// FuncPtrOf returns the type of a pointer to a function with the given
// signature.
func FuncPtrOf(sig *Signature) *Type {
	return &Type{
		kind:     KindFuncPtr,
		name:     fmt.Sprintf("%s (*)(%s)", sig.ret.name, argNames(sig)),
		size:     libffi.PointerSize,
		align:    libffi.PointerAlign,
		native:   libffi.TypePointer,
		sig:      sig,
		sealed:   true,
		passable: true,
	}
}

func argNames(sig *Signature) string {
	parts := make([]string, len(sig.args))
	for i, a := range sig.args {
		parts[i] = a.name
	}
	return strings.Join(parts, ", ")
}
