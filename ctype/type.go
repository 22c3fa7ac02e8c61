package ctype

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/libffi"
)

// Type describes a C type. Types are immutable once complete (primitives
// and pointers at construction, structs and unions at Seal) and may be
// freely shared between goroutines.
type Type struct {
	kind     Kind
	name     string
	size     uintptr
	align    uintptr
	native   *libffi.Type // nil when the type has no by-value descriptor
	elem     *Type        // pointer target, array element, view underlying
	length   int          // array length
	fields   []Field      // struct/union members, in declaration order
	sig      *Signature   // funcptr signature
	read     ViewFn       // view decode (underlying -> logical)
	write    ViewFn       // view encode (logical -> underlying)
	sealed   bool
	passable bool
}

// ViewFn converts between the logical and underlying representation of a
// view type. Conversion functions must be pure and total.
type ViewFn func(any) (any, error)

// Field is a named member of a struct or union with its byte offset within
// the aggregate.
type Field struct {
	Name   string
	Type   *Type
	Offset uintptr
}

var pointerSizedInt = func() *libffi.Type {
	if unsafe.Sizeof(uintptr(0)) == 8 {
		return libffi.TypeUint64
	}
	return libffi.TypeUint32
}()

func primitive(kind Kind, name string, size, align uintptr, native *libffi.Type) *Type {
	return &Type{
		kind:     kind,
		name:     name,
		size:     size,
		align:    align,
		native:   native,
		sealed:   true,
		passable: true,
	}
}

// Primitive types. All are complete and passable.
var (
	// Void is complete only as a function return type; Size and Alignment
	// fail on it.
	Void = &Type{kind: KindVoid, name: "void", passable: true}

	Int8    = primitive(KindInt8, "int8_t", 1, 1, libffi.TypeSint8)
	Uint8   = primitive(KindUint8, "uint8_t", 1, 1, libffi.TypeUint8)
	Int16   = primitive(KindInt16, "int16_t", 2, 2, libffi.TypeSint16)
	Uint16  = primitive(KindUint16, "uint16_t", 2, 2, libffi.TypeUint16)
	Int32   = primitive(KindInt32, "int32_t", 4, 4, libffi.TypeSint32)
	Uint32  = primitive(KindUint32, "uint32_t", 4, 4, libffi.TypeUint32)
	Int64   = primitive(KindInt64, "int64_t", 8, 8, libffi.TypeSint64)
	Uint64  = primitive(KindUint64, "uint64_t", 8, 8, libffi.TypeUint64)
	Float32 = primitive(KindFloat32, "float", 4, 4, libffi.TypeFloat)
	Float64 = primitive(KindFloat64, "double", 8, 8, libffi.TypeDouble)

	// Uintptr is the pointer-sized integer.
	Uintptr = primitive(KindUintptr, "uintptr_t",
		unsafe.Sizeof(uintptr(0)), unsafe.Alignof(uintptr(0)), pointerSizedInt)

	// CString transfers NUL-terminated char* data by copy in both
	// directions.
	CString = primitive(KindCString, "char*",
		libffi.PointerSize, libffi.PointerAlign, libffi.TypePointer)
)

// PointerTo returns the type of a pointer to t. The target may still be
// incomplete, which permits self-referential struct definitions.
func PointerTo(t *Type) *Type {
	return &Type{
		kind:     KindPointer,
		name:     t.name + "*",
		size:     libffi.PointerSize,
		align:    libffi.PointerAlign,
		native:   libffi.TypePointer,
		elem:     t,
		sealed:   true,
		passable: true,
	}
}

// ArrayOf returns the type of a fixed-length array of n elements of t.
// Arrays are never passable by value.
func ArrayOf(t *Type, n int) (*Type, error) {
	if n < 0 {
		return nil, errors.InvalidInput(errors.PhaseType, fmt.Sprintf("negative array length %d", n))
	}
	size, err := t.Size()
	if err != nil {
		return nil, err
	}
	align, err := t.Alignment()
	if err != nil {
		return nil, err
	}
	return &Type{
		kind:   KindArray,
		name:   fmt.Sprintf("%s[%d]", t.name, n),
		size:   size * uintptr(n),
		align:  align,
		elem:   t,
		length: n,
		sealed: true,
	}, nil
}

// NewAbstract returns an opaque type of known size and alignment with no
// further structure. Abstract types are never passable by value.
func NewAbstract(name string, size, align uintptr) (*Type, error) {
	if align == 0 || (align&(align-1)) != 0 {
		return nil, errors.InvalidInput(errors.PhaseType, fmt.Sprintf("alignment %d is not a power of two", align))
	}
	return &Type{
		kind:   KindAbstract,
		name:   name,
		size:   size,
		align:  align,
		sealed: true,
	}, nil
}

// NewView layers a logical type over underlying via two pure conversion
// functions: read decodes an underlying value into the logical
// representation, write encodes a logical value into the underlying one.
func NewView(name string, underlying *Type, read, write ViewFn) *Type {
	return &Type{
		kind:     KindView,
		name:     name,
		size:     underlying.size,
		align:    underlying.align,
		native:   underlying.native,
		elem:     underlying,
		read:     read,
		write:    write,
		sealed:   underlying.sealed,
		passable: underlying.passable,
	}
}

// Nullable wraps a pointer type so that Go nil converts to the C null
// pointer and back: a null read through the view decodes to nil rather
// than a non-nil handle with address zero.
func Nullable(ptr *Type) *Type {
	if ptr.kind != KindPointer && ptr.kind != KindFuncPtr {
		panic("ctype: Nullable requires a pointer type")
	}
	return NewView("nullable "+ptr.name, ptr,
		func(v any) (any, error) {
			if isNullish(v) {
				return nil, nil
			}
			return v, nil
		},
		func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			return v, nil
		})
}

// isNullish reports whether a decoded pointer value represents C null.
// Pointer reads yield handles that report IsNull; function pointer reads
// yield a nil func.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	if n, ok := v.(interface{ IsNull() bool }); ok {
		return n.IsNull()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// Kind returns the type's kind.
func (t *Type) Kind() Kind {
	return t.kind
}

// Name returns the type's display name, e.g. "struct timeval" or
// "int32_t*".
func (t *Type) Name() string {
	return t.name
}

// Complete reports whether size and alignment are known.
func (t *Type) Complete() bool {
	return t.sealed && t.kind != KindVoid
}

// Size returns the type's size in bytes, or an incomplete_type error for
// void and unsealed aggregates.
func (t *Type) Size() (uintptr, error) {
	if !t.Complete() {
		return 0, errors.Incomplete(errors.PhaseType, t.name)
	}
	return t.size, nil
}

// Alignment returns the type's alignment requirement in bytes, or an
// incomplete_type error for void and unsealed aggregates.
func (t *Type) Alignment() (uintptr, error) {
	if !t.Complete() {
		return 0, errors.Incomplete(errors.PhaseType, t.name)
	}
	return t.align, nil
}

// Passable reports whether t may appear as a by-value function argument
// or return type.
func (t *Type) Passable() bool {
	return t.passable
}

// Elem returns the pointer target, array element, or view underlying type.
func (t *Type) Elem() *Type {
	return t.elem
}

// Len returns the length of an array type.
func (t *Type) Len() int {
	return t.length
}

// Fields returns the sealed field list of a struct or union.
func (t *Type) Fields() []Field {
	return t.fields
}

// FieldByName looks up a struct or union member.
func (t *Type) FieldByName(name string) (Field, bool) {
	for _, f := range t.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Fn returns the signature of a function pointer type.
func (t *Type) Fn() *Signature {
	return t.sig
}

// ViewFns returns the conversion functions of a view type.
func (t *Type) ViewFns() (read, write ViewFn) {
	return t.read, t.write
}

// Native returns the libffi descriptor used for by-value transfers. It is
// nil for types that can never be passed by value.
func (t *Type) Native() *libffi.Type {
	return t.native
}

func (t *Type) String() string {
	return t.name
}
