package libffi

import "testing"

func TestAlignUp(t *testing.T) {
	tests := []struct {
		off, align, want uintptr
	}{
		{0, 1, 0},
		{0, 8, 0},
		{1, 1, 1},
		{1, 8, 8},
		{7, 4, 8},
		{8, 8, 8},
		{9, 8, 16},
	}
	for _, tc := range tests {
		if got := AlignUp(tc.off, tc.align); got != tc.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tc.off, tc.align, got, tc.want)
		}
	}
}

func TestBuiltinTypes(t *testing.T) {
	tests := []struct {
		name  string
		typ   *Type
		size  uintptr
		align uintptr
	}{
		{"sint8", TypeSint8, 1, 1},
		{"uint8", TypeUint8, 1, 1},
		{"sint16", TypeSint16, 2, 2},
		{"sint32", TypeSint32, 4, 4},
		{"sint64", TypeSint64, 8, 8},
		{"float", TypeFloat, 4, 4},
		{"double", TypeDouble, 8, 8},
		{"pointer", TypePointer, PointerSize, PointerAlign},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.typ.Size() != tc.size {
				t.Errorf("Size = %d, want %d", tc.typ.Size(), tc.size)
			}
			if tc.typ.Alignment() != tc.align {
				t.Errorf("Alignment = %d, want %d", tc.typ.Alignment(), tc.align)
			}
		})
	}
}

func TestAddArgumentOffsets(t *testing.T) {
	// int32 at 0, int8 at 4, int64 aligned to 8.
	b := NewBufferspec()

	off, err := b.AddArgument(TypeSint32)
	if err != nil || off != 0 {
		t.Fatalf("first offset = %d, %v", off, err)
	}
	off, err = b.AddArgument(TypeSint8)
	if err != nil || off != 4 {
		t.Fatalf("second offset = %d, %v", off, err)
	}
	off, err = b.AddArgument(TypeSint64)
	if err != nil || off != 8 {
		t.Fatalf("third offset = %d, %v", off, err)
	}
}

func TestAddArgumentGrowth(t *testing.T) {
	// Push past the initial descriptor array capacity.
	b := NewBufferspec()
	for i := 0; i < 20; i++ {
		if _, err := b.AddArgument(TypeSint32); err != nil {
			t.Fatalf("arg %d: %v", i, err)
		}
	}
	native, err := b.CompleteStruct()
	if err != nil {
		t.Fatalf("CompleteStruct: %v", err)
	}
	if native.Size() != 80 {
		t.Errorf("struct of 20 int32 = %d bytes, want 80", native.Size())
	}
}

func TestCompleteStructPassable(t *testing.T) {
	b := NewBufferspec()
	for _, ft := range []*Type{TypeSint32, TypeSint8, TypeSint64} {
		if _, err := b.AddArgument(ft); err != nil {
			t.Fatal(err)
		}
	}
	native, err := b.CompleteStruct()
	if err != nil {
		t.Fatalf("CompleteStruct: %v", err)
	}
	if native.Size() != 16 {
		t.Errorf("Size = %d, want 16", native.Size())
	}
	if native.Alignment() != 8 {
		t.Errorf("Alignment = %d, want 8", native.Alignment())
	}
	if b.Unpassable() {
		t.Error("scalar members should stay passable")
	}
}

func TestCompleteStructUnpassable(t *testing.T) {
	b := NewBufferspec()
	if _, err := b.AddArgument(TypeSint32); err != nil {
		t.Fatal(err)
	}
	// An element known only by size and alignment drops the descriptors.
	off := b.AddUnpassableArgument(12, 4)
	if off != 4 {
		t.Errorf("unpassable offset = %d, want 4", off)
	}
	if !b.Unpassable() {
		t.Error("spec should be unpassable")
	}

	native, err := b.CompleteStruct()
	if err != nil {
		t.Fatalf("CompleteStruct: %v", err)
	}
	if native.Size() != 16 {
		t.Errorf("Size = %d, want 16", native.Size())
	}
}

func TestCallspecPrepare(t *testing.T) {
	c := NewCallspec()
	if _, err := c.AddArgument(TypeSint32); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddArgument(TypeDouble); err != nil {
		t.Fatal(err)
	}
	if c.Prepared() {
		t.Error("Prepared before Prepare")
	}
	if err := c.Prepare(TypeSint64); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !c.Prepared() {
		t.Error("not Prepared after Prepare")
	}
	if c.NumArgs() != 2 {
		t.Errorf("NumArgs = %d", c.NumArgs())
	}

	// args: int32 at 0, double at 8; return aligned after them.
	if c.ReturnOffset() != 16 {
		t.Errorf("ReturnOffset = %d, want 16", c.ReturnOffset())
	}

	total, arrayOff := c.BufferSize()
	// Scratch area ends after the return slot plus the guard word, then
	// the pointer array holds one entry per argument.
	if arrayOff < c.ReturnOffset()+8 {
		t.Errorf("argArrayOffset = %d overlaps the return slot", arrayOff)
	}
	if total != arrayOff+2*PointerSize {
		t.Errorf("total = %d, arrayOff = %d", total, arrayOff)
	}
}

func TestCallspecGuardWord(t *testing.T) {
	// The buffer reserves one pointer-sized word past the return slot.
	c := NewCallspec()
	if err := c.Prepare(TypeSint8); err != nil {
		t.Fatal(err)
	}
	_, arrayOff := c.BufferSize()
	if arrayOff < c.ReturnOffset()+1+PointerSize {
		t.Errorf("no guard word: return at %d, array at %d", c.ReturnOffset(), arrayOff)
	}
}

func TestMallocFree(t *testing.T) {
	p, err := Calloc(64)
	if err != nil {
		t.Fatalf("Calloc: %v", err)
	}
	if p == nil {
		t.Fatal("Calloc returned nil")
	}
	Free(p)
}

func TestCStringRoundTrip(t *testing.T) {
	p, err := CString("bonjour")
	if err != nil {
		t.Fatal(err)
	}
	defer Free(p)
	if got := GoString(p); got != "bonjour" {
		t.Errorf("GoString = %q", got)
	}
}

func TestStrerror(t *testing.T) {
	if Strerror(2) == "" { // ENOENT
		t.Error("Strerror(2) should not be empty")
	}
}
