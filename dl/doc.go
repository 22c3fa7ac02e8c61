// Package dl loads shared libraries and resolves symbols.
//
// Open wraps the platform's dynamic loader. Default returns a handle that
// searches the process image and its already-loaded libraries, which is
// enough to reach libc without naming it.
package dl
