package call

import (
	"fmt"
	"runtime"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/wippyai/ffi-runtime/ctype"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/libffi"
)

// Func is a bound native function. Arguments and the result use the Go
// representations of the signature's ctypes.
type Func func(args ...any) (any, error)

// Invoke calls the native function at fn through the compiled spec.
// symbol is used only for error reporting and may be empty.
//
// The call buffer is allocated per invocation: return slot and argument
// slots first, then the pointer array libffi walks. Arguments are written
// left to right; a marshal failure aborts before the native call.
func Invoke(spec *Spec, symbol string, fn uintptr, args ...any) (any, error) {
	if fn == 0 {
		return nil, errors.NilPointer(errors.PhaseCall, nil, "function address")
	}
	if err := spec.checkArity(len(args)); err != nil {
		return nil, err
	}

	total, _ := spec.cs.BufferSize()
	buf, err := libffi.Calloc(total)
	if err != nil {
		return nil, err
	}
	defer libffi.Free(buf)

	f := &frame{buf: buf}
	defer f.freeTemps()

	spec.cs.PopulateArgArray(buf)
	for i, w := range spec.writers {
		if err := w(f, spec.offsets[i], args[i]); err != nil {
			return nil, annotateArg(err, i, symbol)
		}
	}

	if spec.sig.CheckErrno() {
		if errno := spec.cs.CallErrno(fn, buf); errno != 0 {
			runtime.KeepAlive(f.keep)
			return nil, errnoError(symbol, errno)
		}
	} else {
		spec.cs.Call(fn, buf)
	}
	runtime.KeepAlive(f.keep)

	if spec.reader == nil {
		return nil, nil
	}
	out, err := spec.reader(f, spec.cs.ReturnOffset())
	if err != nil {
		return nil, err
	}

	Logger().Debug("native call completed",
		zap.String("symbol", symbol),
		zap.Int("args", len(args)))
	return out, nil
}

// Bind wraps a native address as a Func, compiling the signature's spec
// on first use.
func Bind(sig *ctype.Signature, symbol string, fn uintptr) Func {
	return bindFunc(sig, symbol, fn)
}

func bindFunc(sig *ctype.Signature, symbol string, fn uintptr) Func {
	return func(args ...any) (any, error) {
		spec, err := CompileSpec(sig)
		if err != nil {
			return nil, err
		}
		return Invoke(spec, symbol, fn, args...)
	}
}

func annotateArg(err error, i int, symbol string) error {
	fe, ok := err.(*errors.Error)
	if !ok {
		return err
	}
	dup := *fe
	dup.Path = append([]string{fmt.Sprintf("arg[%d]", i)}, fe.Path...)
	dup.Symbol = symbol
	return &dup
}

func errnoError(symbol string, errno int) error {
	name := unix.ErrnoName(syscall.Errno(errno))
	msg := libffi.Strerror(errno)
	if name != "" {
		msg = fmt.Sprintf("%s (%s)", msg, name)
	}
	return errors.NativeErrno(symbol, errno, msg)
}
