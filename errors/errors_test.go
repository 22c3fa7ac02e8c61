package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseMarshal,
				Kind:   KindTypeMismatch,
				Path:   []string{"timespec", "tv_sec"},
				GoType: "string",
				CType:  "long",
				Detail: "cannot convert",
			},
			contains: []string{"[marshal]", "type_mismatch", "timespec.tv_sec", "string", "long", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseMarshal,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[marshal]", "out_of_bounds"},
		},
		{
			name: "errno error",
			err: &Error{
				Phase:  PhaseCall,
				Kind:   KindNativeErrno,
				Symbol: "open",
				Errno:  2,
				Detail: "ENOENT: no such file or directory",
			},
			contains: []string{"[call]", "native_errno", "open", "(errno 2)", "ENOENT"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLayout,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[layout]", "allocation", "memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseCall,
		Kind:  KindNativeErrno,
		Cause: cause,
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestError_Is(t *testing.T) {
	a := &Error{Phase: PhaseType, Kind: KindSealedType}
	b := &Error{Phase: PhaseType, Kind: KindSealedType, Detail: "other detail"}
	c := &Error{Phase: PhaseType, Kind: KindIncompleteType}

	if !errors.Is(a, b) {
		t.Error("errors with same phase and kind should match")
	}
	if errors.Is(a, c) {
		t.Error("errors with different kinds should not match")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseCallback, KindExpiredCallback).
		Path("callback", "invoke").
		Detail("id %d reused", 42).
		Value(uintptr(42)).
		Build()

	if err.Phase != PhaseCallback {
		t.Errorf("Phase = %q, want %q", err.Phase, PhaseCallback)
	}
	if err.Kind != KindExpiredCallback {
		t.Errorf("Kind = %q, want %q", err.Kind, KindExpiredCallback)
	}
	if err.Detail != "id 42 reused" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if len(err.Path) != 2 {
		t.Errorf("Path = %v", err.Path)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"incomplete", Incomplete(PhaseType, "struct stat"), KindIncompleteType},
		{"sealed", Sealed("struct stat"), KindSealedType},
		{"not passable", NotPassable("int[4]"), KindUnsupported},
		{"abi preparation", ABIPreparation("bad type definition"), KindABIPreparation},
		{"allocation", AllocationFailed(PhaseCall, 128), KindAllocation},
		{"native errno", NativeErrno("stat", 13, "permission denied"), KindNativeErrno},
		{"expired callback", ExpiredCallback(7), KindExpiredCallback},
		{"out of bounds", OutOfBounds(PhaseMarshal, nil, 10, 10), KindOutOfBounds},
		{"not found", NotFound("symbol", "no_such_fn"), KindNotFound},
		{"overflow", Overflow(PhaseMarshal, nil, 300, "char"), KindOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("Error() should not be empty")
			}
		})
	}
}

func TestNativeErrnoFields(t *testing.T) {
	err := NativeErrno("connect", 111, "connection refused")
	if err.Symbol != "connect" {
		t.Errorf("Symbol = %q", err.Symbol)
	}
	if err.Errno != 111 {
		t.Errorf("Errno = %d", err.Errno)
	}
}
