package engine

import (
	"fmt"
	"slices"

	"github.com/tphakala/go-songfinder/internal/buffer"
	"github.com/tphakala/go-songfinder/internal/filter"
	"github.com/tphakala/go-songfinder/internal/pipeline"
	"github.com/tphakala/go-songfinder/internal/simdops"
)

// Interpolator upsamples by an integer factor with a polyphase FIR filter.
//
// Conceptually the input is zero-stuffed and filtered; the zeros are never
// materialized. Each input record of InputRecordSize samples produces
// Factor output samples, and the input is primed with
// InputRecordSize-1 zeros so that every appended sample yields one record.
type Interpolator[F simdops.Float] struct {
	factor int
	coeffs []float64
	bank   *filter.PolyphaseBank[F]

	in  *buffer.AdvancingBuffer[F]
	out *buffer.AdvancingBuffer[F]

	// Per-phase scratch, processed in chunks of at most chunkSize records.
	phaseBufs  [][]F
	phaseViews [][]F
	chunkSize  int

	ops *simdops.Ops[F]
}

// NewInterpolator creates the interpolator and primes its input buffer.
// coeffs must already include the gain that compensates for the inserted
// zeros. maxRecords sizes the scratch space; larger batches are processed
// in chunks.
func NewInterpolator[F simdops.Float](
	factor int,
	coeffs []float64,
	in, out *buffer.AdvancingBuffer[F],
	maxRecords int,
) (*Interpolator[F], error) {
	bank, err := filter.Decompose[F](coeffs, factor)
	if err != nil {
		return nil, fmt.Errorf("failed to decompose interpolation filter: %w", err)
	}

	chunk := min(max(maxRecords, 1), interpChunkSize)
	phaseBufs := make([][]F, factor)
	for i := range phaseBufs {
		phaseBufs[i] = make([]F, chunk)
	}

	s := &Interpolator[F]{
		factor:     factor,
		coeffs:     slices.Clone(coeffs),
		bank:       bank,
		in:         in,
		out:        out,
		phaseBufs:  phaseBufs,
		phaseViews: make([][]F, factor),
		chunkSize:  chunk,
		ops:        simdops.For[F](),
	}
	if err := s.prime(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Interpolator[F]) prime() error {
	return s.in.AppendZeros(s.bank.TapsPerPhase - 1)
}

// Process turns every complete input record into Factor output samples.
func (s *Interpolator[F]) Process() error {
	recordSize := s.bank.TapsPerPhase
	records := s.in.Size() - recordSize + 1
	if records <= 0 {
		return nil
	}

	dst, err := s.out.Extend(records * s.factor)
	if err != nil {
		return err
	}
	data := s.in.Data()

	for start := 0; start < records; start += s.chunkSize {
		n := min(s.chunkSize, records-start)
		for phase := range s.phaseViews {
			s.phaseViews[phase] = s.phaseBufs[phase][:n]
		}

		s.ops.ConvolveValidMulti(s.phaseViews, data[start:start+n+recordSize-1], s.bank.Kernels)
		s.interleave(dst[start*s.factor:(start+n)*s.factor], n)
	}

	return s.in.Discard(records)
}

func (s *Interpolator[F]) interleave(dst []F, n int) {
	if s.factor == interleave2Factor {
		s.ops.Interleave2(dst, s.phaseViews[0], s.phaseViews[1])
		return
	}
	for i := range n {
		base := i * s.factor
		for phase := range s.factor {
			dst[base+phase] = s.phaseViews[phase][i]
		}
	}
}

// Reset re-primes the input history.
func (s *Interpolator[F]) Reset() error {
	return s.prime()
}

// Type implements pipeline.Stage.
func (s *Interpolator[F]) Type() pipeline.StageType {
	return pipeline.StageInterpolate
}

// Factor returns the interpolation factor.
func (s *Interpolator[F]) Factor() int {
	return s.factor
}

// Filter returns a copy of the (scaled) interpolation filter.
func (s *Interpolator[F]) Filter() []float64 {
	return slices.Clone(s.coeffs)
}

// InputRecordSize returns the number of input samples per output record.
func (s *Interpolator[F]) InputRecordSize() int {
	return s.bank.TapsPerPhase
}
