package mem

import (
	stderrors "errors"
	"testing"
	"unsafe"

	"github.com/wippyai/ffi-runtime/ctype"
	"github.com/wippyai/ffi-runtime/errors"
)

func TestAllocZeroed(t *testing.T) {
	p, err := Alloc(ctype.Int64)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer p.Owner().Release()

	if p.IsNull() {
		t.Fatal("allocation returned null")
	}
	if *(*int64)(unsafe.Pointer(p.Addr())) != 0 {
		t.Error("allocation not zero-initialized")
	}
	if p.Owner().Size() != 8 {
		t.Errorf("Size = %d", p.Owner().Size())
	}
}

func TestAllocIncompleteType(t *testing.T) {
	if _, err := Alloc(ctype.Void); !stderrors.Is(err, errors.Incomplete(errors.PhaseType, "")) {
		t.Errorf("Alloc(void) = %v, want incomplete_type", err)
	}
}

func TestAllocNRejectsNonPositive(t *testing.T) {
	if _, err := AllocN(ctype.Int32, 0); err == nil {
		t.Error("AllocN(0) should fail")
	}
	if _, err := AllocN(ctype.Int32, -3); err == nil {
		t.Error("AllocN(-3) should fail")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	p, err := Alloc(ctype.Int32)
	if err != nil {
		t.Fatal(err)
	}
	a := p.Owner()
	a.Release()
	a.Release() // must not double-free
}

func TestAdvanceAndDiff(t *testing.T) {
	p, err := AllocN(ctype.Int32, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Owner().Release()

	q, err := p.Advance(3)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if q.Addr() != p.Addr()+12 {
		t.Errorf("Advance(3) moved %d bytes", q.Addr()-p.Addr())
	}
	if q.Owner() != p.Owner() {
		t.Error("Advance must carry ownership")
	}

	back, err := q.Advance(-3)
	if err != nil {
		t.Fatal(err)
	}
	if back.Addr() != p.Addr() {
		t.Error("Advance(-3) did not return to base")
	}

	d, err := q.Diff(p)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if d != 3 {
		t.Errorf("Diff = %d, want 3", d)
	}

	other, err := Alloc(ctype.Int64)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Owner().Release()
	if _, err := q.Diff(other); err == nil {
		t.Error("Diff across pointee types should fail")
	}
}

func TestZeroSizeElementArithmetic(t *testing.T) {
	empty, err := ctype.NewAbstract("empty", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	p := FromAddr(empty, 0x1000)
	q := FromAddr(empty, 0x2000)

	if _, err := p.Advance(1); err == nil {
		t.Error("Advance over a zero-size type should fail")
	}
	if _, err := q.Diff(p); err == nil {
		t.Error("Diff over a zero-size type should fail")
	}
}

func TestField(t *testing.T) {
	b := ctype.NewStructBuilder("tv")
	if _, err := b.AddField("sec", ctype.Int64); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddField("usec", ctype.Int64); err != nil {
		t.Fatal(err)
	}
	tv, err := b.Seal()
	if err != nil {
		t.Fatal(err)
	}

	p, err := Alloc(tv)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Owner().Release()

	usec, err := p.Field("usec")
	if err != nil {
		t.Fatalf("Field: %v", err)
	}
	if usec.Addr() != p.Addr()+8 {
		t.Errorf("usec at +%d, want +8", usec.Addr()-p.Addr())
	}
	if usec.Elem() != ctype.Int64 {
		t.Error("field pointee type mismatch")
	}

	if _, err := p.Field("nope"); !stderrors.Is(err, errors.NotFound("", "")) {
		t.Errorf("missing field = %v, want not_found", err)
	}

	scalar, err := Alloc(ctype.Int32)
	if err != nil {
		t.Fatal(err)
	}
	defer scalar.Owner().Release()
	if _, err := scalar.Field("x"); err == nil {
		t.Error("Field on scalar should fail")
	}
}

func TestIndex(t *testing.T) {
	arr, err := ctype.ArrayOf(ctype.Int16, 5)
	if err != nil {
		t.Fatal(err)
	}
	p, err := Alloc(arr)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Owner().Release()

	e3, err := p.Index(3)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if e3.Addr() != p.Addr()+6 {
		t.Errorf("element 3 at +%d, want +6", e3.Addr()-p.Addr())
	}

	for _, i := range []int{-1, 5, 100} {
		if _, err := p.Index(i); !stderrors.Is(err, errors.OutOfBounds(errors.PhaseType, nil, 0, 0)) {
			t.Errorf("Index(%d) = %v, want out_of_bounds", i, err)
		}
	}
}

func TestCStringRoundTrip(t *testing.T) {
	tests := []string{"", "hello", "with\tcontrol", "日本語"}
	for _, s := range tests {
		p, err := NewCString(s)
		if err != nil {
			t.Fatalf("NewCString(%q): %v", s, err)
		}
		if got := GoString(p); got != s {
			t.Errorf("round trip %q = %q", s, got)
		}
		p.Owner().Release()
	}
}

func TestGoStringNull(t *testing.T) {
	if got := GoString(FromAddr(ctype.Int8, 0)); got != "" {
		t.Errorf("GoString(null) = %q", got)
	}
}

func TestFromAddr(t *testing.T) {
	p := FromAddr(ctype.Float64, 0x1000)
	if p.Addr() != 0x1000 || p.Owner() != nil {
		t.Error("FromAddr should wrap the address without ownership")
	}
	if p.IsNull() {
		t.Error("non-zero address is not null")
	}
}
