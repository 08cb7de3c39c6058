package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-songfinder/internal/buffer"
	"github.com/tphakala/go-songfinder/internal/filter"
	"github.com/tphakala/go-songfinder/internal/pipeline"
	"github.com/tphakala/go-songfinder/internal/testutil"
)

// Test rate and segment lengths. The Hann envelope ripple shrinks with the
// window length, so the gain test uses longer segments.
const (
	olaTestRate        = 1000.0
	olaTestSegment     = 10
	olaTestLongSegment = 240
)

func newTestOverlapAdder(t *testing.T, factor int, windowType filter.WindowType, segment int) (*OverlapAdder[float64], *buffer.AdvancingBuffer[float64], *buffer.AdvancingBuffer[float64]) {
	t.Helper()
	in := buffer.New[float64](1 << 14)
	out := buffer.New[float64](1 << 14)
	duration := float64(segment*factor) / olaTestRate
	s, err := NewOverlapAdder(factor, windowType, duration, olaTestRate, in, out)
	require.NoError(t, err)
	require.Equal(t, segment, s.SegmentSize())
	return s, in, out
}

func TestOverlapAdder_Sizes(t *testing.T) {
	tests := []struct {
		factor   int
		duration float64
		segment  int
	}{
		{2, 0.020, 480},
		{3, 0.020, 320},
		{4, 0.020, 240},
		{3, 0.005, 80},
		{4, 0.050, 600},
	}

	for _, tt := range tests {
		s, err := NewOverlapAdder(tt.factor, filter.WindowCustom, tt.duration, filter.SampleRate,
			buffer.New[float32](8), buffer.New[float32](8))
		require.NoError(t, err)
		assert.Equal(t, tt.segment, s.SegmentSize())
		assert.Equal(t, tt.segment*tt.factor, s.WindowSize())
		assert.Len(t, s.Window(), s.WindowSize())
	}
}

// TestOverlapAdder_ConstantInput verifies unity gain once the accumulator
// holds contributions from factor-1 earlier windows.
func TestOverlapAdder_ConstantInput(t *testing.T) {
	tolerances := map[filter.WindowType]float64{
		filter.WindowCustom: 1e-12,
		filter.WindowHann:   1e-2,
	}

	for _, factor := range filter.SupportedFactors() {
		for windowType, tol := range tolerances {
			t.Run(fmt.Sprintf("%s/factor=%d", windowType, factor), func(t *testing.T) {
				s, in, out := newTestOverlapAdder(t, factor, windowType, olaTestLongSegment)
				windows := 2 * factor

				require.NoError(t, in.Append(testutil.Constant(windows*s.WindowSize(), 1.0)))
				require.NoError(t, s.Process())
				require.Equal(t, windows*s.SegmentSize(), out.Size())
				assert.Zero(t, in.Size())

				steady := out.Data()[(factor-1)*s.SegmentSize():]
				testutil.AssertAllNear(t, steady, 1.0, tol)
			})
		}
	}
}

func TestOverlapAdder_FirstSegmentIsWindowed(t *testing.T) {
	s, in, out := newTestOverlapAdder(t, 3, filter.WindowCustom, olaTestSegment)

	require.NoError(t, in.Append(testutil.Constant(s.WindowSize(), 1.0)))
	require.NoError(t, s.Process())
	assert.InDeltaSlice(t, s.Window()[:s.SegmentSize()], out.Data(), 1e-15)
}

func TestOverlapAdder_PartialWindowWaits(t *testing.T) {
	s, in, out := newTestOverlapAdder(t, 2, filter.WindowHann, olaTestSegment)

	require.NoError(t, in.Append(make([]float64, s.WindowSize()-1)))
	require.NoError(t, s.Process())
	assert.Zero(t, out.Size())
	assert.Equal(t, s.WindowSize()-1, in.Size())

	require.NoError(t, in.Append([]float64{0}))
	require.NoError(t, s.Process())
	assert.Equal(t, s.SegmentSize(), out.Size())
	assert.Zero(t, in.Size())
}

// TestOverlapAdder_CallInvariance verifies that the accumulator position
// carries across calls.
func TestOverlapAdder_CallInvariance(t *testing.T) {
	for _, factor := range filter.SupportedFactors() {
		t.Run(fmt.Sprintf("factor=%d", factor), func(t *testing.T) {
			whole, wholeIn, wholeOut := newTestOverlapAdder(t, factor, filter.WindowHann, olaTestSegment)
			split, splitIn, splitOut := newTestOverlapAdder(t, factor, filter.WindowHann, olaTestSegment)

			signal := testutil.Sine[float64](5*whole.WindowSize(), 37, olaTestRate, 1)
			require.NoError(t, wholeIn.Append(signal))
			require.NoError(t, whole.Process())

			for start := 0; start < len(signal); start += 7 {
				end := min(start+7, len(signal))
				require.NoError(t, splitIn.Append(signal[start:end]))
				require.NoError(t, split.Process())
			}

			assert.Equal(t, wholeOut.Data(), splitOut.Data())
		})
	}
}

func TestOverlapAdder_Reset(t *testing.T) {
	s, in, out := newTestOverlapAdder(t, 4, filter.WindowCustom, olaTestSegment)
	signal := testutil.Constant(3*s.WindowSize(), 1.0)

	require.NoError(t, in.Append(signal))
	require.NoError(t, s.Process())
	first := append([]float64(nil), out.Data()...)

	out.Reset()
	require.NoError(t, s.Reset())
	require.NoError(t, in.Append(signal))
	require.NoError(t, s.Process())

	assert.Equal(t, first, out.Data())
}

func TestOverlapAdder_OutputOverflow(t *testing.T) {
	in := buffer.New[float64](4096)
	out := buffer.New[float64](5)
	s, err := NewOverlapAdder(2, filter.WindowCustom, 0.02, olaTestRate, in, out)
	require.NoError(t, err)

	require.NoError(t, in.Append(make([]float64, s.WindowSize())))
	assert.ErrorIs(t, s.Process(), buffer.ErrOverflow)
}

func TestOverlapAdder_Accessors(t *testing.T) {
	s, _, _ := newTestOverlapAdder(t, 2, filter.WindowHann, olaTestSegment)
	assert.Equal(t, pipeline.StageOverlapAdd, s.Type())
	assert.Equal(t, filter.WindowHann, s.WindowType())

	w := s.Window()
	w[0] = 42
	assert.NotEqual(t, 42.0, s.Window()[0], "Window must return a copy")
}

func TestNewOverlapAdder_Invalid(t *testing.T) {
	in, out := buffer.New[float64](8), buffer.New[float64](8)

	_, err := NewOverlapAdder(1, filter.WindowHann, 0.02, olaTestRate, in, out)
	assert.Error(t, err, "factor below 2")

	_, err = NewOverlapAdder(2, filter.WindowType(7), 0.02, olaTestRate, in, out)
	assert.Error(t, err, "unknown window")

	_, err = NewOverlapAdder(2, filter.WindowHann, 0.0001, olaTestRate, in, out)
	assert.Error(t, err, "empty segment")
}
