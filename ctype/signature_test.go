package ctype

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/ffi-runtime/errors"
)

func TestNewSignature(t *testing.T) {
	sig, err := NewSignature([]*Type{Int32, CString}, Float64)
	if err != nil {
		t.Fatalf("NewSignature: %v", err)
	}
	if len(sig.Args()) != 2 || sig.Ret() != Float64 {
		t.Error("signature shape mismatch")
	}
	if sig.CheckErrno() {
		t.Error("errno checking should default off")
	}
	if got := sig.String(); got != "double (int32_t, char*)" {
		t.Errorf("String = %q", got)
	}
}

func TestNewSignatureVoidReturn(t *testing.T) {
	sig, err := NewSignature(nil, Void)
	if err != nil {
		t.Fatalf("void return should be accepted: %v", err)
	}
	if sig.Ret() != Void {
		t.Error("Ret should be Void")
	}
}

func TestNewSignatureRejections(t *testing.T) {
	arr, err := ArrayOf(Int32, 4)
	if err != nil {
		t.Fatal(err)
	}
	abstract, err := NewAbstract("opaque", 16, 8)
	if err != nil {
		t.Fatal(err)
	}
	ub := NewUnionBuilder("u")
	if _, err := ub.AddField("i", Int32); err != nil {
		t.Fatal(err)
	}
	union, err := ub.Seal()
	if err != nil {
		t.Fatal(err)
	}
	sb := NewStructBuilder("withArr")
	if _, err := sb.AddField("a", arr); err != nil {
		t.Fatal(err)
	}
	structWithArr, err := sb.Seal()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []*Type
		ret  *Type
	}{
		{"void argument", []*Type{Void}, Int32},
		{"array argument", []*Type{arr}, Int32},
		{"union argument", []*Type{union}, Int32},
		{"abstract argument", []*Type{abstract}, Int32},
		{"struct with array argument", []*Type{structWithArr}, Int32},
		{"array return", nil, arr},
		{"union return", nil, union},
		{"abstract return", nil, abstract},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSignature(tc.args, tc.ret); err == nil {
				t.Error("expected rejection")
			}
		})
	}
}

func TestNewSignatureNotPassableError(t *testing.T) {
	arr, _ := ArrayOf(Int8, 4)
	_, err := NewSignature([]*Type{Int32, arr}, Void)
	if !stderrors.Is(err, errors.NotPassable("", "")) {
		t.Fatalf("want unsupported condition, got %v", err)
	}
	var fe *errors.Error
	if !stderrors.As(err, &fe) {
		t.Fatal("want *errors.Error")
	}
	if len(fe.Path) == 0 || fe.Path[0] != "arg[1]" {
		t.Errorf("Path = %v, want arg[1]", fe.Path)
	}
}

func TestWithErrno(t *testing.T) {
	sig, err := NewSignature([]*Type{CString}, Int32)
	if err != nil {
		t.Fatal(err)
	}
	with := sig.WithErrno()
	if !with.CheckErrno() {
		t.Error("WithErrno should enable errno checking")
	}
	if sig.CheckErrno() {
		t.Error("WithErrno must not mutate the receiver")
	}
}

func TestFuncPtrOf(t *testing.T) {
	sig, err := NewSignature([]*Type{Int32, Int32}, Int32)
	if err != nil {
		t.Fatal(err)
	}
	fp := FuncPtrOf(sig)
	if fp.Kind() != KindFuncPtr {
		t.Errorf("Kind = %s", fp.Kind())
	}
	if !fp.Passable() {
		t.Error("function pointers are passable")
	}
	if fp.Fn() != sig {
		t.Error("Fn should return the signature")
	}
	if fp.Name() != "int32_t (*)(int32_t, int32_t)" {
		t.Errorf("Name = %q", fp.Name())
	}

	// A function pointer is a valid argument and return type.
	if _, err := NewSignature([]*Type{fp}, fp); err != nil {
		t.Errorf("funcptr in signature: %v", err)
	}
}
