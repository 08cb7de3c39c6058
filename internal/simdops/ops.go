// Package simdops provides generic SIMD operations for float32 and float64 types.
// This lets the engine stages be written once for both precision levels.
//
// With Profile-Guided Optimization (Go 1.22+), function pointer calls in hot paths
// can be devirtualized and inlined, achieving near-zero overhead.
package simdops

import (
	"github.com/tphakala/simd/cpu"
	"github.com/tphakala/simd/f32"
	"github.com/tphakala/simd/f64"
)

// Float is the type constraint for supported floating-point types.
type Float interface {
	float32 | float64
}

// Ops provides SIMD-accelerated operations for type F.
// Function pointers allow type-safe generic code while delegating
// to optimized type-specific implementations.
type Ops[F Float] struct {
	// DotProductUnsafe computes the dot product without bounds checking.
	// Use only when slices are guaranteed to have equal length.
	DotProductUnsafe func(a, b []F) F

	// ConvolveValid computes dst[n] = Σ signal[n+k]*kernel[k] for every n
	// where the kernel fits entirely inside the signal. Pass a reversed
	// kernel to get a true convolution.
	ConvolveValid func(dst, signal, kernel []F)

	// ConvolveValidMulti runs ConvolveValid for several kernels over one signal.
	ConvolveValidMulti func(dsts [][]F, signal []F, kernels [][]F)

	// Interleave2 interleaves two slices: dst[0]=a[0], dst[1]=b[0], dst[2]=a[1], ...
	Interleave2 func(dst, a, b []F)

	// Sum returns the sum of all elements.
	Sum func(a []F) F

	// Scale multiplies each element by scalar s: dst[i] = a[i] * s
	Scale func(dst, a []F, s F)
}

var (
	ops32 = Ops[float32]{
		DotProductUnsafe:   f32.DotProductUnsafe,
		ConvolveValid:      f32.ConvolveValid,
		ConvolveValidMulti: f32.ConvolveValidMulti,
		Interleave2:        f32.Interleave2,
		Sum:                f32.Sum,
		Scale:              f32.Scale,
	}
	ops64 = Ops[float64]{
		DotProductUnsafe:   f64.DotProductUnsafe,
		ConvolveValid:      f64.ConvolveValid,
		ConvolveValidMulti: f64.ConvolveValidMulti,
		Interleave2:        f64.Interleave2,
		Sum:                f64.Sum,
		Scale:              f64.Scale,
	}
)

// For returns the Ops instance for type F.
// The type switch happens at instantiation time, not in hot paths.
func For[F Float]() *Ops[F] {
	var zero F
	switch any(zero).(type) {
	case float32:
		ops, ok := any(&ops32).(*Ops[F])
		if !ok {
			panic("simdops: type assertion failed for float32")
		}
		return ops
	case float64:
		ops, ok := any(&ops64).(*Ops[F])
		if !ok {
			panic("simdops: type assertion failed for float64")
		}
		return ops
	default:
		panic("simdops: unsupported float type")
	}
}

// Convert copies src into dst, converting element types. It returns the
// number of elements copied.
func Convert[D, S Float](dst []D, src []S) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = D(src[i])
	}
	return n
}

// Info describes the SIMD instruction set selected on this CPU.
func Info() string {
	return cpu.Info()
}
