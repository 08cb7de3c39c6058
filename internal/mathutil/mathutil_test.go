package mathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tphakala/go-songfinder/internal/testutil"
)

// TestBesselI0 tests BesselI0 against tabulated values.
func TestBesselI0(t *testing.T) {
	tests := []struct {
		name      string
		x         float64
		expected  float64
		tolerance float64
	}{
		{"zero", 0.0, 1.0, 1e-15},
		{"half", 0.5, 1.063483344, 1e-7},
		{"one", 1.0, 1.266065848, 1e-7},
		{"boundary", 3.75, 9.118945994, 1e-7},
		{"five", 5.0, 27.23987183, 1e-7},
		{"ten", 10.0, 2815.716628, 1e-6},
		{"negative", -1.0, 1.266065848, 1e-7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertRelativeError(t, tt.expected, BesselI0(tt.x), tt.tolerance)
		})
	}
}

func TestBesselI0_Monotonic(t *testing.T) {
	prev := BesselI0(0)
	for x := 0.1; x < 10.0; x += 0.1 {
		curr := BesselI0(x)
		assert.Greater(t, curr, prev, "not increasing at x=%v", x)
		prev = curr
	}
}

func TestKaiserBeta(t *testing.T) {
	tests := []struct {
		name        string
		attenuation float64
		expectedMin float64
		expectedMax float64
	}{
		{"20dB", 20.0, 0.0, 0.1},
		{"50dB", 50.0, 4.5, 4.6},
		{"60dB", 60.0, 5.6, 5.7},
		{"80dB", 80.0, 7.8, 7.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertInRange(t, KaiserBeta(tt.attenuation), tt.expectedMin, tt.expectedMax)
		})
	}
}

func TestKaiserAttenuation_Inverse(t *testing.T) {
	for _, att := range []float64{60.0, 80.0, 100.0} {
		testutil.AssertRelativeError(t, att, KaiserAttenuation(KaiserBeta(att)), 0.05)
	}
}

func TestEstimateFilterLength(t *testing.T) {
	tests := []struct {
		name         string
		attenuation  float64
		transitionBW float64
		minTaps      int
		maxTaps      int
	}{
		{"lowpass_factor_2", 80.0, 0.05, 95, 105},
		{"lowpass_factor_4", 80.0, 0.025, 195, 205},
		{"highpass_1kHz_at_48k", 60.0, 1000.0 / 48000.0, 170, 180},
		{"wide_transition", 80.0, 0.2, 20, 35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taps := EstimateFilterLength(tt.attenuation, tt.transitionBW)
			assert.Equal(t, 1, taps%2, "length should be odd: %d", taps)
			assert.GreaterOrEqual(t, taps, tt.minTaps)
			assert.LessOrEqual(t, taps, tt.maxTaps)
		})
	}
}

func TestEstimateFilterLength_Bounds(t *testing.T) {
	assert.GreaterOrEqual(t, EstimateFilterLength(100.0, 0.0), minFilterLength)
	assert.GreaterOrEqual(t, EstimateFilterLength(10.0, 0.4), minFilterLength)
	assert.LessOrEqual(t, EstimateFilterLength(200.0, 0.0001), maxFilterLength)
}

func TestDecibelConversion(t *testing.T) {
	assert.InDelta(t, 1.0, DBToLinear(0), 1e-12)
	assert.InDelta(t, 10.0, DBToLinear(20), 1e-9)
	assert.InDelta(t, 0.1, DBToLinear(-20), 1e-12)
	assert.InDelta(t, -6.0206, LinearToDB(0.5), 1e-4)
	assert.Equal(t, FloorDB, LinearToDB(0))
}

func TestBalanceGains(t *testing.T) {
	left, right := BalanceGains(0)
	assert.Equal(t, 1.0, left)
	assert.Equal(t, 1.0, right)

	left, right = BalanceGains(6)
	assert.Less(t, left, 1.0, "positive balance attenuates left")
	assert.Equal(t, 1.0, right)
	assert.InDelta(t, DBToLinear(-6), left, 1e-12)

	left, right = BalanceGains(-10)
	assert.Equal(t, 1.0, left)
	assert.InDelta(t, DBToLinear(-10), right, 1e-12)
}

func BenchmarkBesselI0(b *testing.B) {
	for b.Loop() {
		_ = BesselI0(7.857)
	}
}
