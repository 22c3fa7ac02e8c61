package call

import (
	"fmt"
	"math"
	"reflect"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-runtime/ctype"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/libffi"
	"github.com/wippyai/ffi-runtime/mem"
)

// Callback is a Go function exposed as a natively callable code pointer.
// The pointer remains valid until Release.
type Callback struct {
	id         uintptr
	sig        *ctype.Signature
	fn         reflect.Value
	closure    *libffi.Closure
	argReaders []readFn
	retWriter  writeFn // nil for void
	released   atomic.Bool
}

var registry = struct {
	mu   sync.Mutex
	next uintptr
	byID map[uintptr]*Callback
}{
	next: 1,
	byID: make(map[uintptr]*Callback),
}

// expiredHook is called when native code invokes a released callback.
var expiredHook atomic.Value // func(*errors.Error)

// SetExpiredCallbackHandler overrides what happens when native code calls
// a released callback, in addition to the error log. The handler receives
// the expired_callback condition; the offending identifier is in its
// Value field. The native caller always receives a zeroed return value;
// the handler may panic to abort the process instead.
func SetExpiredCallbackHandler(h func(err *errors.Error)) {
	expiredHook.Store(h)
}

func init() {
	libffi.SetInvokeHandler(dispatch)
}

// goParamType returns the Go type a callback parameter or result must
// have for the given ctype. Views have no statically known logical type;
// they are matched at invocation time.
func goParamType(t *ctype.Type) (reflect.Type, bool) {
	switch t.Kind() {
	case ctype.KindInt8:
		return reflect.TypeOf(int8(0)), true
	case ctype.KindInt16:
		return reflect.TypeOf(int16(0)), true
	case ctype.KindInt32:
		return reflect.TypeOf(int32(0)), true
	case ctype.KindInt64:
		return reflect.TypeOf(int64(0)), true
	case ctype.KindUint8:
		return reflect.TypeOf(uint8(0)), true
	case ctype.KindUint16:
		return reflect.TypeOf(uint16(0)), true
	case ctype.KindUint32:
		return reflect.TypeOf(uint32(0)), true
	case ctype.KindUint64:
		return reflect.TypeOf(uint64(0)), true
	case ctype.KindUintptr:
		return reflect.TypeOf(uintptr(0)), true
	case ctype.KindFloat32:
		return reflect.TypeOf(float32(0)), true
	case ctype.KindFloat64:
		return reflect.TypeOf(float64(0)), true
	case ctype.KindCString:
		return reflect.TypeOf(""), true
	case ctype.KindPointer:
		return reflect.TypeOf((*mem.Ptr)(nil)), true
	case ctype.KindStruct:
		return reflect.TypeOf((*mem.Ptr)(nil)), true
	case ctype.KindFuncPtr:
		return reflect.TypeOf(Func(nil)), true
	}
	return nil, false
}

// NewCallback wraps fn as a native function pointer with the calling
// convention described by sig. fn must be a non-variadic func whose
// parameters and result use the Go representations of the signature's
// types: integer and float kinds map to their Go counterparts, char*
// to string, pointers and structs to *mem.Ptr, function pointers to
// Func. A void return means fn has no results.
func NewCallback(sig *ctype.Signature, fn any) (*Callback, error) {
	v := reflect.ValueOf(fn)
	ft := v.Type()
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, errors.InvalidInput(errors.PhaseCallback, "callback target must be a non-nil func")
	}
	if ft.IsVariadic() {
		return nil, errors.InvalidInput(errors.PhaseCallback, "variadic callback targets are not supported")
	}

	args := sig.Args()
	if ft.NumIn() != len(args) {
		return nil, errors.InvalidInput(errors.PhaseCallback,
			fmt.Sprintf("callback takes %d parameters, signature has %d", ft.NumIn(), len(args)))
	}
	for i, a := range args {
		if want, ok := goParamType(a); ok && ft.In(i) != want {
			return nil, errors.TypeMismatch(errors.PhaseCallback,
				[]string{fmt.Sprintf("arg[%d]", i)}, ft.In(i).String(), a.Name())
		}
	}

	ret := sig.Ret()
	if ret.Kind() == ctype.KindVoid {
		if ft.NumOut() != 0 {
			return nil, errors.InvalidInput(errors.PhaseCallback, "void callback must not return a value")
		}
	} else {
		if ft.NumOut() != 1 {
			return nil, errors.InvalidInput(errors.PhaseCallback, "callback must return exactly one value")
		}
		if want, ok := goParamType(ret); ok && ft.Out(0) != want {
			return nil, errors.TypeMismatch(errors.PhaseCallback,
				[]string{"return"}, ft.Out(0).String(), ret.Name())
		}
	}

	spec, err := CompileSpec(sig)
	if err != nil {
		return nil, err
	}

	cb := &Callback{
		sig:        sig,
		fn:         v,
		argReaders: make([]readFn, len(args)),
	}
	for i, a := range args {
		r, err := readerFor(a)
		if err != nil {
			return nil, err
		}
		cb.argReaders[i] = r
	}
	if ret.Kind() != ctype.KindVoid {
		w, err := returnWriter(ret)
		if err != nil {
			return nil, err
		}
		cb.retWriter = w
	}

	registry.mu.Lock()
	cb.id = registry.next
	registry.next++
	registry.byID[cb.id] = cb
	registry.mu.Unlock()

	closure, err := libffi.NewClosure(spec.cs, cb.id)
	if err != nil {
		registry.mu.Lock()
		delete(registry.byID, cb.id)
		registry.mu.Unlock()
		return nil, err
	}
	cb.closure = closure

	Logger().Debug("callback registered",
		zap.Uintptr("id", cb.id),
		zap.String("signature", sig.String()))
	return cb, nil
}

// returnWriter builds the store for a callback's native return slot.
// libffi requires closure returns narrower than ffi_arg to be widened to
// a full word: zero-extended for unsigned kinds, sign-extended for
// signed ones. Wider kinds use the regular marshal writer.
func returnWriter(t *ctype.Type) (writeFn, error) {
	switch t.Kind() {
	case ctype.KindInt8:
		return widenedSigned(t, math.MinInt8, math.MaxInt8), nil
	case ctype.KindInt16:
		return widenedSigned(t, math.MinInt16, math.MaxInt16), nil
	case ctype.KindInt32:
		return widenedSigned(t, math.MinInt32, math.MaxInt32), nil
	case ctype.KindUint8:
		return widenedUnsigned(t, math.MaxUint8), nil
	case ctype.KindUint16:
		return widenedUnsigned(t, math.MaxUint16), nil
	case ctype.KindUint32:
		return widenedUnsigned(t, math.MaxUint32), nil
	case ctype.KindView:
		inner, err := returnWriter(t.Elem())
		if err != nil {
			return nil, err
		}
		_, encode := t.ViewFns()
		return func(f *frame, off uintptr, v any) error {
			enc, err := encode(v)
			if err != nil {
				return errors.Wrap(errors.PhaseCallback, errors.KindInvalidInput, err, "view encode")
			}
			return inner(f, off, enc)
		}, nil
	}
	return writerFor(t)
}

func widenedSigned(t *ctype.Type, min, max int64) writeFn {
	return func(f *frame, off uintptr, v any) error {
		n, ok := asInt64(v)
		if !ok {
			return mismatch(t, v)
		}
		if n < min || n > max {
			return overflow(t, v)
		}
		*(*uintptr)(f.slot(off)) = uintptr(n)
		return nil
	}
}

func widenedUnsigned(t *ctype.Type, max uint64) writeFn {
	return func(f *frame, off uintptr, v any) error {
		n, ok := asUint64(v)
		if !ok {
			return mismatch(t, v)
		}
		if n > max {
			return overflow(t, v)
		}
		*(*uintptr)(f.slot(off)) = uintptr(n)
		return nil
	}
}

// Code returns the natively callable address.
func (c *Callback) Code() uintptr {
	return c.closure.Code
}

// Release invalidates the callback: native invocations arriving after
// Release are reported as expired. The trampoline allocation itself is
// retained for the life of the process, because native code may still
// hold the code address; freeing it would turn a late invocation into a
// jump through reclaimed memory instead of a reportable condition.
func (c *Callback) Release() {
	if c.released.Swap(true) {
		return
	}
	registry.mu.Lock()
	delete(registry.byID, c.id)
	registry.mu.Unlock()
}

func lookupCallback(id uintptr) *Callback {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return registry.byID[id]
}

// dispatch is the process-wide closure handler. It runs on whatever
// thread the native caller used, possibly one the Go runtime has never
// seen.
func dispatch(id uintptr, ret unsafe.Pointer, args []unsafe.Pointer) {
	cb := lookupCallback(id)
	if cb == nil {
		err := errors.ExpiredCallback(id)
		Logger().Error("expired callback invoked", zap.Uintptr("id", id), zap.Error(err))
		if h, ok := expiredHook.Load().(func(*errors.Error)); ok && h != nil {
			h(err)
		}
		// Return slot was zeroed by the trampoline.
		return
	}

	defer func() {
		if r := recover(); r != nil {
			// A panic must not unwind through the native frame.
			Logger().Error("callback panicked",
				zap.Uintptr("id", id),
				zap.Any("panic", r))
		}
	}()

	in := make([]reflect.Value, len(cb.argReaders))
	for i, read := range cb.argReaders {
		v, err := read(&frame{buf: args[i]}, 0)
		if err != nil {
			Logger().Error("callback argument decode failed",
				zap.Uintptr("id", id), zap.Int("arg", i), zap.Error(err))
			return
		}
		in[i] = reflect.ValueOf(v)
	}

	out := cb.fn.Call(in)

	if cb.retWriter != nil {
		if err := cb.retWriter(&frame{buf: ret}, 0, out[0].Interface()); err != nil {
			Logger().Error("callback return encode failed",
				zap.Uintptr("id", id), zap.Error(err))
		}
	}
}
