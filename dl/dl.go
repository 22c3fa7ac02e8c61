//go:build darwin || freebsd || linux

package dl

import (
	"sync"

	"github.com/ebitengine/purego"

	"github.com/wippyai/ffi-runtime/errors"
)

// Library is an open shared library handle.
type Library struct {
	name   string
	handle uintptr

	mu     sync.Mutex
	closed bool
}

// Open loads the named shared library. Resolution is lazy; symbols bind
// on first use.
func Open(name string) (*Library, error) {
	h, err := purego.Dlopen(name, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, errors.New(errors.PhaseResolve, errors.KindNotFound).
			Symbol(name).
			Cause(err).
			Detail("cannot load library").
			Build()
	}
	return &Library{name: name, handle: h}, nil
}

var (
	defaultLib  *Library
	defaultOnce sync.Once
)

// Default returns a handle searching the process's global symbol scope.
// It is shared and must not be closed.
func Default() *Library {
	defaultOnce.Do(func() {
		defaultLib = &Library{name: "<default>", handle: purego.RTLD_DEFAULT}
	})
	return defaultLib
}

// Name returns the name the library was opened with.
func (l *Library) Name() string {
	return l.name
}

// Lookup resolves a symbol to its address.
func (l *Library) Lookup(symbol string) (uintptr, error) {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return 0, errors.InvalidInput(errors.PhaseResolve, "library is closed")
	}

	addr, err := purego.Dlsym(l.handle, symbol)
	if err != nil || addr == 0 {
		return 0, errors.NotFound("symbol", symbol)
	}
	return addr, nil
}

// Close unloads the library. Addresses previously resolved from it must
// not be used afterwards. Closing the Default handle is an error.
func (l *Library) Close() error {
	if l == Default() {
		return errors.InvalidInput(errors.PhaseResolve, "cannot close the default handle")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return purego.Dlclose(l.handle)
}
