// Package call executes native functions through prepared call interfaces.
//
// CompileSpec turns a ctype signature into a Spec holding the libffi call
// interface, the offsets of each argument within a call buffer, and
// memoized marshal functions per type. Specs are cached per signature and
// shared across calls.
//
// Invoke allocates a single buffer sized for the return slot, all
// arguments, and the pointer array libffi consumes, writes the Go values
// into their slots left to right, dispatches the native call, and decodes
// the return slot. When the signature requests errno checking, the
// indicator is cleared and read inside the same native bracket as the
// call, so no Go runtime activity can clobber it.
//
// NewCallback wraps a Go function as a native code pointer with the same
// calling convention, via a libffi closure. Callbacks stay valid until
// Release; invoking a released callback logs through this package's
// logger, runs the configurable expired-callback hook, and returns a
// zeroed value to the native caller.
package call
