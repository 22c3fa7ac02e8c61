//go:build darwin || freebsd || linux

package dl

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/ffi-runtime/errors"
)

func TestDefaultLookup(t *testing.T) {
	lib := Default()
	addr, err := lib.Lookup("strlen")
	if err != nil {
		t.Fatalf("Lookup(strlen): %v", err)
	}
	if addr == 0 {
		t.Fatal("strlen resolved to null")
	}
}

func TestLookupMissing(t *testing.T) {
	_, err := Default().Lookup("definitely_not_a_symbol_xyzzy")
	if !stderrors.Is(err, errors.NotFound("", "")) {
		t.Errorf("missing symbol = %v, want not_found", err)
	}
}

func TestOpenMissingLibrary(t *testing.T) {
	if _, err := Open("libdoesnotexist-xyzzy.so"); err == nil {
		t.Error("Open of a missing library should fail")
	}
}

func TestCloseDefault(t *testing.T) {
	if err := Default().Close(); err == nil {
		t.Error("closing the default handle should fail")
	}
}
