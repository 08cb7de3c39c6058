package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-songfinder/internal/testutil"
)

const testRate = 48000.0

func TestDominantFrequency(t *testing.T) {
	for _, freq := range []float64{440, 4000, 8000, 15000} {
		tone := testutil.Sine[float64](8192, freq, testRate, 0.5)
		got, err := DominantFrequency(tone, testRate)
		require.NoError(t, err)
		assert.InDelta(t, freq, got, testRate/8192, "tone %g Hz", freq)
	}
}

func TestAnalyzer_ReusesBuffers(t *testing.T) {
	a, err := NewAnalyzer(1024)
	require.NoError(t, err)

	first := a.Power(testutil.Sine[float64](1024, 1000, testRate, 1))
	second := a.Power(testutil.Sine[float64](1024, 3000, testRate, 1))
	assert.Same(t, &first[0], &second[0])
	assert.Len(t, second, 513)
}

func TestAnalyzer_ShortInputIsPadded(t *testing.T) {
	a, err := NewAnalyzer(256)
	require.NoError(t, err)
	power := a.Power([]float64{1, 1, 1})
	testutil.AssertNoNaNOrInf(t, power)
}

func TestAnalyzer_Magnitude(t *testing.T) {
	a, err := NewAnalyzer(512)
	require.NoError(t, err)
	samples := testutil.Sine[float64](512, 3000, testRate, 1)

	mag := a.Magnitude(samples)
	power := a.Power(samples)
	for k := range mag {
		assert.InDelta(t, math.Sqrt(power[k]), mag[k], 1e-9)
	}
}

func TestNewAnalyzer_TooSmall(t *testing.T) {
	_, err := NewAnalyzer(2)
	assert.Error(t, err)
}

func TestRMSAndPeak(t *testing.T) {
	sine := testutil.Sine[float32](48000, 1000, testRate, 1)
	assert.InDelta(t, 1/math.Sqrt2, RMS(sine), 1e-3)
	assert.InDelta(t, 1.0, Peak(sine), 1e-3)

	assert.Zero(t, RMS([]float64{}))
	assert.InDelta(t, 2.0, RMS([]float64{2, -2, 2, -2}), 1e-12)
}
