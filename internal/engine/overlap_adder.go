package engine

import (
	"fmt"
	"math"

	"github.com/tphakala/go-songfinder/internal/buffer"
	"github.com/tphakala/go-songfinder/internal/filter"
	"github.com/tphakala/go-songfinder/internal/pipeline"
	"github.com/tphakala/go-songfinder/internal/simdops"
)

// OverlapAdder decimates by windowing consecutive non-overlapping input
// windows and overlap-adding them with a hop of one segment.
//
// A window is Factor segments long. For every input window the first
// windowed segment is added to the accumulator and emitted, the internal
// segments are accumulated, and the last segment overwrites the accumulator
// slot that was just emitted. The accumulator holds Factor-1 segments and
// its position persists across calls, so output is continuous at window
// boundaries.
type OverlapAdder[F simdops.Float] struct {
	factor     int
	windowType filter.WindowType
	duration   float64

	segmentSize int
	windowSize  int
	window      []F

	accumulator []F
	accPos      int

	in  *buffer.AdvancingBuffer[F]
	out *buffer.AdvancingBuffer[F]
}

// NewOverlapAdder creates an overlap-adder for windows of duration seconds
// at sampleRate.
func NewOverlapAdder[F simdops.Float](
	factor int,
	windowType filter.WindowType,
	duration, sampleRate float64,
	in, out *buffer.AdvancingBuffer[F],
) (*OverlapAdder[F], error) {
	segment := int(math.Round(duration / float64(factor) * sampleRate))

	window64, err := filter.NewWindow(windowType, factor, segment)
	if err != nil {
		return nil, fmt.Errorf("failed to create overlap-add window: %w", err)
	}
	window := make([]F, len(window64))
	simdops.Convert(window, window64)

	return &OverlapAdder[F]{
		factor:      factor,
		windowType:  windowType,
		duration:    duration,
		segmentSize: segment,
		windowSize:  len(window),
		window:      window,
		accumulator: make([]F, (factor-1)*segment),
		in:          in,
		out:         out,
	}, nil
}

// Process consumes every complete input window and emits one segment each.
func (s *OverlapAdder[F]) Process() error {
	count := s.in.Size() / s.windowSize
	if count == 0 {
		return nil
	}

	y, err := s.out.Extend(count * s.segmentSize)
	if err != nil {
		return err
	}
	x := s.in.Data()

	seg := s.segmentSize
	last := s.factor - 1
	for i := range count {
		xw := x[i*s.windowSize : (i+1)*s.windowSize]
		yw := y[i*seg : (i+1)*seg]

		acc := s.accumulator[s.accPos : s.accPos+seg]
		w := s.window[:seg]
		for j := range seg {
			yw[j] = acc[j] + w[j]*xw[j]
		}
		s.advance()

		for k := 1; k < last; k++ {
			acc = s.accumulator[s.accPos : s.accPos+seg]
			w = s.window[k*seg : (k+1)*seg]
			xs := xw[k*seg : (k+1)*seg]
			for j := range seg {
				acc[j] += w[j] * xs[j]
			}
			s.advance()
		}

		acc = s.accumulator[s.accPos : s.accPos+seg]
		w = s.window[last*seg:]
		xs := xw[last*seg:]
		for j := range seg {
			acc[j] = w[j] * xs[j]
		}
		s.advance()
	}

	return s.in.Discard(count * s.windowSize)
}

func (s *OverlapAdder[F]) advance() {
	s.accPos += s.segmentSize
	if s.accPos == len(s.accumulator) {
		s.accPos = 0
	}
}

// Reset zeroes the accumulator and rewinds its position.
func (s *OverlapAdder[F]) Reset() error {
	clear(s.accumulator)
	s.accPos = 0
	return nil
}

// Type implements pipeline.Stage.
func (s *OverlapAdder[F]) Type() pipeline.StageType {
	return pipeline.StageOverlapAdd
}

// WindowType returns the window type.
func (s *OverlapAdder[F]) WindowType() filter.WindowType {
	return s.windowType
}

// Window returns a copy of the window.
func (s *OverlapAdder[F]) Window() []F {
	out := make([]F, len(s.window))
	copy(out, s.window)
	return out
}

// SegmentSize returns the number of samples per window segment.
func (s *OverlapAdder[F]) SegmentSize() int {
	return s.segmentSize
}

// WindowSize returns the number of samples per window.
func (s *OverlapAdder[F]) WindowSize() int {
	return s.windowSize
}
