package engine

import (
	"errors"
	"slices"

	"github.com/tphakala/go-songfinder/internal/buffer"
	"github.com/tphakala/go-songfinder/internal/filter"
	"github.com/tphakala/go-songfinder/internal/pipeline"
	"github.com/tphakala/go-songfinder/internal/simdops"
)

// FIRFilter is a streaming FIR stage between two advancing buffers.
//
// The input is primed with len(coeffs)-1 zeros, so every input sample
// appended afterwards yields exactly one output sample.
type FIRFilter[F simdops.Float] struct {
	coeffs   []float64
	reversed []F

	in  *buffer.AdvancingBuffer[F]
	out *buffer.AdvancingBuffer[F]

	ops *simdops.Ops[F]
}

// NewFIRFilter creates the filter and primes its input buffer.
func NewFIRFilter[F simdops.Float](coeffs []float64, in, out *buffer.AdvancingBuffer[F]) (*FIRFilter[F], error) {
	if len(coeffs) == 0 {
		return nil, errors.New("FIR filter needs at least one coefficient")
	}

	reversed := make([]F, len(coeffs))
	simdops.Convert(reversed, filter.Reverse(coeffs))

	f := &FIRFilter[F]{
		coeffs:   slices.Clone(coeffs),
		reversed: reversed,
		in:       in,
		out:      out,
		ops:      simdops.For[F](),
	}
	if err := f.prime(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FIRFilter[F]) prime() error {
	return f.in.AppendZeros(len(f.reversed) - 1)
}

// Process filters every complete input window: each output is the inner
// product of len consecutive inputs with the reversed coefficients.
func (f *FIRFilter[F]) Process() error {
	taps := len(f.reversed)
	n := f.in.Size() - taps + 1
	if n <= 0 {
		return nil
	}

	dst, err := f.out.Extend(n)
	if err != nil {
		return err
	}
	f.ops.ConvolveValid(dst, f.in.Data()[:n+taps-1], f.reversed)

	return f.in.Discard(n)
}

// Reset re-primes the input history.
func (f *FIRFilter[F]) Reset() error {
	return f.prime()
}

// Type implements pipeline.Stage.
func (f *FIRFilter[F]) Type() pipeline.StageType {
	return pipeline.StageHighPass
}

// Coefficients returns a copy of the filter coefficients.
func (f *FIRFilter[F]) Coefficients() []float64 {
	return slices.Clone(f.coeffs)
}

// Len returns the number of taps.
func (f *FIRFilter[F]) Len() int {
	return len(f.coeffs)
}
