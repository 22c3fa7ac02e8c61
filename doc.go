// Package ffiruntime binds native C functions and data into Go programs.
//
// Types are described at runtime with the ctype package, memory is
// managed through mem, and calls run through libffi-prepared call
// interfaces in the call package.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	ffiruntime/          Root package binding symbols to callable Go funcs
//	├── ctype/           Runtime C type descriptions and layout
//	├── mem/             Native memory allocation and typed pointers
//	├── call/            Call spec compilation, marshalling, callbacks
//	├── dl/              Shared library loading and symbol resolution
//	├── errors/          Structured error types for debugging
//	└── internal/libffi/ cgo bindings to the libffi call engine
//
// # Quick Start
//
// Bind and call a C function:
//
//	sig, err := ctype.NewSignature([]*ctype.Type{ctype.Float64}, ctype.Float64)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sqrt, err := ffiruntime.Foreign(dl.Default(), "sqrt", sig)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := sqrt(2.0)
//	fmt.Println(result) // 1.4142135623730951
//
// # Type System
//
// The full C type algebra is available at runtime:
//
//   - Primitives: int8_t-uint64_t, uintptr_t, float, double, char*
//   - Compound: pointers, fixed-length arrays, structs, unions
//   - Function pointers with their own signatures
//   - Views layering a logical Go representation over any type
//   - Abstract types known only by size and alignment
//
// Structs are built incrementally and sealed before use; arrays, unions,
// and abstract types can be stored and addressed but never passed by
// value.
//
// # Callbacks
//
// Expose Go functions to native code:
//
//	cmp, err := ffiruntime.Callback(cmpSig, func(a, b *mem.Ptr) int32 { ... })
//	defer cmp.Release()
//
// # Thread Safety
//
// Types, signatures, and compiled call specs are immutable and safe for
// concurrent use. A *mem.Ptr may be shared, but concurrent writes to the
// memory it addresses need external synchronization, exactly as in C.
//
// # Memory Model
//
// Memory obtained through mem.Alloc is owned by the Go runtime and freed
// when unreachable, or eagerly via Release. Pointers received from native
// code are borrowed; the library never frees them.
package ffiruntime
