package ctype

import (
	"fmt"

	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/libffi"
)

// StructBuilder accumulates named fields for a struct or union type.
// Fields may be appended until Seal, which produces an immutable Type
// snapshot; the sealed Type holds no reference back to the builder.
type StructBuilder struct {
	tag      string
	union    bool
	spec     *libffi.Bufferspec // struct layout; nil for unions
	fields   []Field
	size     uintptr // unions: size of the largest member
	align    uintptr // unions: max member alignment
	passable bool
	sealed   bool
}

// NewStructBuilder starts a struct type with the given tag.
func NewStructBuilder(tag string) *StructBuilder {
	return &StructBuilder{
		tag:      tag,
		spec:     libffi.NewBufferspec(),
		passable: true,
	}
}

// NewUnionBuilder starts a union type with the given tag. Unions are never
// passable by value.
func NewUnionBuilder(tag string) *StructBuilder {
	return &StructBuilder{tag: tag, union: true, align: 1}
}

// AddField appends a member and returns its descriptor, including the
// computed byte offset. The field type must be complete. Adding a field
// after Seal fails with a sealed_type condition.
func (b *StructBuilder) AddField(name string, t *Type) (Field, error) {
	if b.sealed {
		return Field{}, errors.Sealed(b.displayName())
	}
	for _, f := range b.fields {
		if f.Name == name {
			return Field{}, errors.InvalidInput(errors.PhaseType,
				fmt.Sprintf("duplicate field %q in %s", name, b.displayName()))
		}
	}

	size, err := t.Size()
	if err != nil {
		return Field{}, err
	}
	align, err := t.Alignment()
	if err != nil {
		return Field{}, err
	}

	var offset uintptr
	if b.union {
		// All union members start at offset zero.
		if size > b.size {
			b.size = size
		}
		if align > b.align {
			b.align = align
		}
	} else if t.Passable() && t.Native() != nil {
		offset, err = b.spec.AddArgument(t.Native())
		if err != nil {
			return Field{}, err
		}
	} else {
		offset = b.spec.AddUnpassableArgument(size, align)
	}

	if !t.Passable() {
		b.passable = false
	}

	f := Field{Name: name, Type: t, Offset: offset}
	b.fields = append(b.fields, f)
	return f, nil
}

// Seal finalizes the field list and returns the completed type. Size,
// alignment, and passability are fixed from this point on.
func (b *StructBuilder) Seal() (*Type, error) {
	if b.sealed {
		return nil, errors.Sealed(b.displayName())
	}
	if len(b.fields) == 0 {
		return nil, errors.InvalidInput(errors.PhaseType,
			fmt.Sprintf("%s has no fields", b.displayName()))
	}
	b.sealed = true

	fields := make([]Field, len(b.fields))
	copy(fields, b.fields)

	if b.union {
		return &Type{
			kind:   KindUnion,
			name:   b.displayName(),
			size:   libffi.AlignUp(b.size, b.align),
			align:  b.align,
			fields: fields,
			sealed: true,
		}, nil
	}

	native, err := b.spec.CompleteStruct()
	if err != nil {
		return nil, err
	}

	return &Type{
		kind:     KindStruct,
		name:     b.displayName(),
		size:     native.Size(),
		align:    native.Alignment(),
		native:   native,
		fields:   fields,
		sealed:   true,
		passable: b.passable && !b.spec.Unpassable(),
	}, nil
}

func (b *StructBuilder) displayName() string {
	if b.union {
		return "union " + b.tag
	}
	return "struct " + b.tag
}
