package ctype

// Kind identifies the shape of a Type.
type Kind uint8

const (
	KindVoid Kind = iota
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindUintptr
	KindFloat32
	KindFloat64
	KindCString
	KindPointer
	KindArray
	KindStruct
	KindUnion
	KindFuncPtr
	KindView
	KindAbstract
)

var kindNames = [...]string{
	KindVoid:     "void",
	KindInt8:     "int8",
	KindUint8:    "uint8",
	KindInt16:    "int16",
	KindUint16:   "uint16",
	KindInt32:    "int32",
	KindUint32:   "uint32",
	KindInt64:    "int64",
	KindUint64:   "uint64",
	KindUintptr:  "uintptr",
	KindFloat32:  "float32",
	KindFloat64:  "float64",
	KindCString:  "cstring",
	KindPointer:  "pointer",
	KindArray:    "array",
	KindStruct:   "struct",
	KindUnion:    "union",
	KindFuncPtr:  "funcptr",
	KindView:     "view",
	KindAbstract: "abstract",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether k is a scalar kind with a direct native
// encoding.
func (k Kind) IsPrimitive() bool {
	return k >= KindInt8 && k <= KindCString
}

// IsInteger reports whether k is a fixed-width or pointer-sized integer.
func (k Kind) IsInteger() bool {
	return k >= KindInt8 && k <= KindUintptr
}

// IsFloat reports whether k is a floating point kind.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}
