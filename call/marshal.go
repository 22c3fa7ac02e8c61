package call

import (
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/wippyai/ffi-runtime/ctype"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/libffi"
	"github.com/wippyai/ffi-runtime/mem"
)

// frame is the per-call marshal state: the call buffer plus everything
// that must stay alive or be cleaned up once the native call returns.
type frame struct {
	buf   unsafe.Pointer
	temps []unsafe.Pointer // native copies to free after the call
	keep  []any            // Go values pinned across the call
}

func (f *frame) slot(off uintptr) unsafe.Pointer {
	return unsafe.Add(f.buf, off)
}

func (f *frame) freeTemps() {
	for _, t := range f.temps {
		libffi.Free(t)
	}
	f.temps = nil
}

// writeFn stores a Go value into its slot in the call buffer.
// readFn decodes a native slot back into a Go value.
type (
	writeFn func(f *frame, off uintptr, v any) error
	readFn  func(f *frame, off uintptr) (any, error)
)

var (
	writerCache sync.Map // *ctype.Type -> writeFn
	readerCache sync.Map // *ctype.Type -> readFn
)

// writerFor returns the memoized marshal function for t.
func writerFor(t *ctype.Type) (writeFn, error) {
	if w, ok := writerCache.Load(t); ok {
		return w.(writeFn), nil
	}
	w, err := buildWriter(t)
	if err != nil {
		return nil, err
	}
	actual, _ := writerCache.LoadOrStore(t, w)
	return actual.(writeFn), nil
}

// readerFor returns the memoized decode function for t.
func readerFor(t *ctype.Type) (readFn, error) {
	if r, ok := readerCache.Load(t); ok {
		return r.(readFn), nil
	}
	r, err := buildReader(t)
	if err != nil {
		return nil, err
	}
	actual, _ := readerCache.LoadOrStore(t, r)
	return actual.(readFn), nil
}

func mismatch(t *ctype.Type, v any) error {
	return errors.TypeMismatch(errors.PhaseMarshal, nil, fmt.Sprintf("%T", v), t.Name())
}

func overflow(t *ctype.Type, v any) error {
	return errors.Overflow(errors.PhaseMarshal, nil, v, t.Name())
}

// asInt64 widens any signed Go integer.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

// asUint64 widens any unsigned Go integer, and accepts non-negative
// signed values.
func asUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case uintptr:
		return uint64(n), true
	}
	if s, ok := asInt64(v); ok && s >= 0 {
		return uint64(s), true
	}
	return 0, false
}

func signedWriter(t *ctype.Type, min, max int64, store func(p unsafe.Pointer, n int64)) writeFn {
	return func(f *frame, off uintptr, v any) error {
		n, ok := asInt64(v)
		if !ok {
			return mismatch(t, v)
		}
		if n < min || n > max {
			return overflow(t, v)
		}
		store(f.slot(off), n)
		return nil
	}
}

func unsignedWriter(t *ctype.Type, max uint64, store func(p unsafe.Pointer, n uint64)) writeFn {
	return func(f *frame, off uintptr, v any) error {
		n, ok := asUint64(v)
		if !ok {
			return mismatch(t, v)
		}
		if n > max {
			return overflow(t, v)
		}
		store(f.slot(off), n)
		return nil
	}
}

func buildWriter(t *ctype.Type) (writeFn, error) {
	switch t.Kind() {
	case ctype.KindInt8:
		return signedWriter(t, math.MinInt8, math.MaxInt8, func(p unsafe.Pointer, n int64) { *(*int8)(p) = int8(n) }), nil
	case ctype.KindInt16:
		return signedWriter(t, math.MinInt16, math.MaxInt16, func(p unsafe.Pointer, n int64) { *(*int16)(p) = int16(n) }), nil
	case ctype.KindInt32:
		return signedWriter(t, math.MinInt32, math.MaxInt32, func(p unsafe.Pointer, n int64) { *(*int32)(p) = int32(n) }), nil
	case ctype.KindInt64:
		return signedWriter(t, math.MinInt64, math.MaxInt64, func(p unsafe.Pointer, n int64) { *(*int64)(p) = n }), nil
	case ctype.KindUint8:
		return unsignedWriter(t, math.MaxUint8, func(p unsafe.Pointer, n uint64) { *(*uint8)(p) = uint8(n) }), nil
	case ctype.KindUint16:
		return unsignedWriter(t, math.MaxUint16, func(p unsafe.Pointer, n uint64) { *(*uint16)(p) = uint16(n) }), nil
	case ctype.KindUint32:
		return unsignedWriter(t, math.MaxUint32, func(p unsafe.Pointer, n uint64) { *(*uint32)(p) = uint32(n) }), nil
	case ctype.KindUint64:
		return unsignedWriter(t, math.MaxUint64, func(p unsafe.Pointer, n uint64) { *(*uint64)(p) = n }), nil
	case ctype.KindUintptr:
		return func(f *frame, off uintptr, v any) error {
			n, ok := asUint64(v)
			if !ok {
				return mismatch(t, v)
			}
			*(*uintptr)(f.slot(off)) = uintptr(n)
			return nil
		}, nil

	case ctype.KindFloat32:
		return func(f *frame, off uintptr, v any) error {
			switch n := v.(type) {
			case float32:
				*(*float32)(f.slot(off)) = n
			case float64:
				*(*float32)(f.slot(off)) = float32(n)
			default:
				return mismatch(t, v)
			}
			return nil
		}, nil
	case ctype.KindFloat64:
		return func(f *frame, off uintptr, v any) error {
			switch n := v.(type) {
			case float64:
				*(*float64)(f.slot(off)) = n
			case float32:
				*(*float64)(f.slot(off)) = float64(n)
			default:
				return mismatch(t, v)
			}
			return nil
		}, nil

	case ctype.KindCString:
		return func(f *frame, off uintptr, v any) error {
			if v == nil {
				*(*unsafe.Pointer)(f.slot(off)) = nil
				return nil
			}
			s, ok := v.(string)
			if !ok {
				return mismatch(t, v)
			}
			p, err := libffi.CString(s)
			if err != nil {
				return err
			}
			f.temps = append(f.temps, p)
			*(*unsafe.Pointer)(f.slot(off)) = p
			return nil
		}, nil

	case ctype.KindPointer:
		return func(f *frame, off uintptr, v any) error {
			switch p := v.(type) {
			case nil:
				*(*uintptr)(f.slot(off)) = 0
			case *mem.Ptr:
				if p == nil {
					*(*uintptr)(f.slot(off)) = 0
					return nil
				}
				*(*uintptr)(f.slot(off)) = p.Addr()
				f.keep = append(f.keep, p.Owner())
			case uintptr:
				*(*uintptr)(f.slot(off)) = p
			default:
				return mismatch(t, v)
			}
			return nil
		}, nil

	case ctype.KindFuncPtr:
		return func(f *frame, off uintptr, v any) error {
			switch p := v.(type) {
			case nil:
				*(*uintptr)(f.slot(off)) = 0
			case *Callback:
				*(*uintptr)(f.slot(off)) = p.Code()
				f.keep = append(f.keep, p)
			case uintptr:
				*(*uintptr)(f.slot(off)) = p
			default:
				return mismatch(t, v)
			}
			return nil
		}, nil

	case ctype.KindStruct:
		size, err := t.Size()
		if err != nil {
			return nil, err
		}
		return func(f *frame, off uintptr, v any) error {
			p, ok := v.(*mem.Ptr)
			if !ok {
				return mismatch(t, v)
			}
			if p.IsNull() {
				return errors.NilPointer(errors.PhaseMarshal, nil, fmt.Sprintf("%T", v))
			}
			if p.Elem() != t {
				return errors.TypeMismatch(errors.PhaseMarshal, nil, p.Elem().Name(), t.Name())
			}
			libffi.Memcpy(f.slot(off), unsafe.Pointer(p.Addr()), size)
			f.keep = append(f.keep, p.Owner())
			return nil
		}, nil

	case ctype.KindView:
		inner, err := writerFor(t.Elem())
		if err != nil {
			return nil, err
		}
		_, encode := t.ViewFns()
		return func(f *frame, off uintptr, v any) error {
			enc, err := encode(v)
			if err != nil {
				return errors.Wrap(errors.PhaseMarshal, errors.KindInvalidInput, err, "view encode")
			}
			return inner(f, off, enc)
		}, nil
	}

	return nil, errors.Unsupported(errors.PhaseMarshal, t.Name())
}

func buildReader(t *ctype.Type) (readFn, error) {
	switch t.Kind() {
	case ctype.KindInt8:
		return func(f *frame, off uintptr) (any, error) { return *(*int8)(f.slot(off)), nil }, nil
	case ctype.KindInt16:
		return func(f *frame, off uintptr) (any, error) { return *(*int16)(f.slot(off)), nil }, nil
	case ctype.KindInt32:
		return func(f *frame, off uintptr) (any, error) { return *(*int32)(f.slot(off)), nil }, nil
	case ctype.KindInt64:
		return func(f *frame, off uintptr) (any, error) { return *(*int64)(f.slot(off)), nil }, nil
	case ctype.KindUint8:
		return func(f *frame, off uintptr) (any, error) { return *(*uint8)(f.slot(off)), nil }, nil
	case ctype.KindUint16:
		return func(f *frame, off uintptr) (any, error) { return *(*uint16)(f.slot(off)), nil }, nil
	case ctype.KindUint32:
		return func(f *frame, off uintptr) (any, error) { return *(*uint32)(f.slot(off)), nil }, nil
	case ctype.KindUint64:
		return func(f *frame, off uintptr) (any, error) { return *(*uint64)(f.slot(off)), nil }, nil
	case ctype.KindUintptr:
		return func(f *frame, off uintptr) (any, error) { return *(*uintptr)(f.slot(off)), nil }, nil
	case ctype.KindFloat32:
		return func(f *frame, off uintptr) (any, error) { return *(*float32)(f.slot(off)), nil }, nil
	case ctype.KindFloat64:
		return func(f *frame, off uintptr) (any, error) { return *(*float64)(f.slot(off)), nil }, nil

	case ctype.KindCString:
		return func(f *frame, off uintptr) (any, error) {
			p := *(*unsafe.Pointer)(f.slot(off))
			if p == nil {
				return "", nil
			}
			return libffi.GoString(p), nil
		}, nil

	case ctype.KindPointer:
		elem := t.Elem()
		return func(f *frame, off uintptr) (any, error) {
			return mem.FromAddr(elem, *(*uintptr)(f.slot(off))), nil
		}, nil

	case ctype.KindFuncPtr:
		sig := t.Fn()
		return func(f *frame, off uintptr) (any, error) {
			addr := *(*uintptr)(f.slot(off))
			if addr == 0 {
				return Func(nil), nil
			}
			return bindFunc(sig, "", addr), nil
		}, nil

	case ctype.KindStruct:
		size, err := t.Size()
		if err != nil {
			return nil, err
		}
		return func(f *frame, off uintptr) (any, error) {
			out, err := mem.Alloc(t)
			if err != nil {
				return nil, err
			}
			libffi.Memcpy(unsafe.Pointer(out.Addr()), f.slot(off), size)
			return out, nil
		}, nil

	case ctype.KindView:
		inner, err := readerFor(t.Elem())
		if err != nil {
			return nil, err
		}
		decode, _ := t.ViewFns()
		return func(f *frame, off uintptr) (any, error) {
			raw, err := inner(f, off)
			if err != nil {
				return nil, err
			}
			out, err := decode(raw)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseMarshal, errors.KindInvalidInput, err, "view decode")
			}
			return out, nil
		}, nil
	}

	return nil, errors.Unsupported(errors.PhaseMarshal, t.Name())
}
