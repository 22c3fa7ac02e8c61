package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseType     Phase = "type"     // type algebra construction
	PhaseLayout   Phase = "layout"   // call/struct layout building
	PhaseMarshal  Phase = "marshal"  // value transfer to/from buffers
	PhaseCall     Phase = "call"     // outbound native calls
	PhaseCallback Phase = "callback" // native-to-Go trampolines
	PhaseResolve  Phase = "resolve"  // dynamic symbol resolution
)

// Kind categorizes the error
type Kind string

const (
	KindIncompleteType  Kind = "incomplete_type"
	KindSealedType      Kind = "sealed_type"
	KindUnsupported     Kind = "unsupported"
	KindABIPreparation  Kind = "abi_preparation"
	KindAllocation      Kind = "allocation"
	KindNativeErrno     Kind = "native_errno"
	KindExpiredCallback Kind = "expired_callback"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindNotFound        Kind = "not_found"
	KindTypeMismatch    Kind = "type_mismatch"
	KindOverflow        Kind = "overflow"
	KindNilPointer      Kind = "nil_pointer"
	KindInvalidInput    Kind = "invalid_input"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	CType  string
	Symbol string
	Detail string
	Errno  int
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Symbol != "" {
		b.WriteString(" in ")
		b.WriteString(e.Symbol)
	}

	if e.GoType != "" || e.CType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.CType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", C type ")
			b.WriteString(e.CType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("C type ")
			b.WriteString(e.CType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.CType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Errno != 0 {
		fmt.Fprintf(&b, " (errno %d)", e.Errno)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field or argument path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// CType sets the C type name
func (b *Builder) CType(t string) *Builder {
	b.err.CType = t
	return b
}

// Symbol sets the native symbol name
func (b *Builder) Symbol(s string) *Builder {
	b.err.Symbol = s
	return b
}

// Errno sets the platform error indicator value
func (b *Builder) Errno(code int) *Builder {
	b.err.Errno = code
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Incomplete creates an incomplete-type error: size or alignment was
// requested for an unsealed struct/union or for void.
func Incomplete(phase Phase, ctype string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIncompleteType,
		CType:  ctype,
		Detail: "type is incomplete",
	}
}

// Sealed creates a sealed-type modification error
func Sealed(ctype string) *Error {
	return &Error{
		Phase:  PhaseType,
		Kind:   KindSealedType,
		CType:  ctype,
		Detail: "cannot add fields after sealing",
	}
}

// Unsupported creates an unsupported-configuration error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotPassable reports a non-passable type used as a by-value argument or
// return type. Raised at signature construction time, never at call time.
func NotPassable(ctype string, path ...string) *Error {
	return &Error{
		Phase:  PhaseType,
		Kind:   KindUnsupported,
		Path:   path,
		CType:  ctype,
		Detail: "type cannot be passed by value",
	}
}

// ABIPreparation creates a native call interface preparation failure
func ABIPreparation(detail string) *Error {
	return &Error{
		Phase:  PhaseLayout,
		Kind:   KindABIPreparation,
		Detail: detail,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
	}
}

// NativeErrno creates a native last-error condition. The call itself
// completed; this reports the platform error indicator it left behind.
func NativeErrno(symbol string, errno int, message string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindNativeErrno,
		Symbol: symbol,
		Errno:  errno,
		Detail: message,
	}
}

// ExpiredCallback reports a native invocation of a released trampoline
func ExpiredCallback(id uintptr) *Error {
	return &Error{
		Phase:  PhaseCallback,
		Kind:   KindExpiredCallback,
		Detail: fmt.Sprintf("callback %d is no longer registered", id),
		Value:  id,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NotFound creates a not-found error for symbol resolution
func NotFound(what, name string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, ctype string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		CType:  ctype,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		CType:  targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
