// Package testutil provides reusable test helpers for the pitch-lowering engine tests.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tphakala/go-songfinder/internal/simdops"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance   = 1e-10
	Float32Tolerance   = 1e-5
	MagnitudeTolerance = 1e-2
)

// halfDivisor is used for finding center indices in symmetric arrays.
const halfDivisor = 2

// AssertSymmetric verifies that a slice is symmetric (s[i] == s[n-1-i]).
func AssertSymmetric[F simdops.Float](t *testing.T, s []F, tolerance float64) bool {
	t.Helper()
	n := len(s)
	for i := 0; i < n/halfDivisor; i++ {
		j := n - 1 - i
		if !assert.InDelta(t, float64(s[i]), float64(s[j]), tolerance,
			"slice not symmetric at i=%d: s[%d]=%f != s[%d]=%f", i, i, s[i], j, s[j]) {
			return false
		}
	}
	return true
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf[F simdops.Float](t *testing.T, s []F) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(float64(v)) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(float64(v), 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllZero verifies that every element is exactly zero.
func AssertAllZero[F simdops.Float](t *testing.T, s []F, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v != 0 {
			return assert.Fail(t, "expected silence", "s[%d]=%g", i, v)
		}
	}
	return true
}

// AssertAllNear verifies that every element is within tolerance of want.
func AssertAllNear[F simdops.Float](t *testing.T, s []F, want, tolerance float64) bool {
	t.Helper()
	for i, v := range s {
		if math.Abs(float64(v)-want) > tolerance {
			return assert.Fail(t, "value out of tolerance",
				"s[%d]=%g, want %g ± %g", i, v, want, tolerance)
		}
	}
	return true
}

// AssertDCGain verifies that the sum of coefficients equals the expected DC gain.
func AssertDCGain(t *testing.T, coeffs []float64, expectedGain, tolerance float64) bool {
	t.Helper()
	var sum float64
	for _, c := range coeffs {
		sum += c
	}
	return assert.InDelta(t, expectedGain, sum, tolerance,
		"DC gain = %f, want %f", sum, expectedGain)
}

// AssertRelativeError verifies that the relative error between actual and expected is within tolerance.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relError := math.Abs(actual-expected) / math.Abs(expected)
	return assert.LessOrEqual(t, relError, tolerance,
		"relative error %e exceeds tolerance %e (expected=%f, actual=%f)",
		relError, tolerance, expected, actual)
}

// AssertOddLength verifies that a slice has an odd length.
func AssertOddLength(t *testing.T, s []float64) bool {
	t.Helper()
	return assert.Equal(t, 1, len(s)%halfDivisor, "slice length %d is not odd", len(s))
}

// AssertInRange verifies that a value is within [min, max].
func AssertInRange(t *testing.T, value, minVal, maxVal float64) bool {
	t.Helper()
	if value < minVal || value > maxVal {
		return assert.Fail(t, "value out of range",
			"value %f is outside range [%f, %f]", value, minVal, maxVal)
	}
	return true
}

// Sine returns n samples of a sine wave at freq Hz.
func Sine[F simdops.Float](n int, freq, sampleRate, amplitude float64) []F {
	out := make([]F, n)
	step := 2 * math.Pi * freq / sampleRate
	for i := range out {
		out[i] = F(amplitude * math.Sin(step*float64(i)))
	}
	return out
}

// Constant returns n copies of v.
func Constant[F simdops.Float](n int, v F) []F {
	out := make([]F, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Impulse returns n samples with a unit impulse at position at.
func Impulse[F simdops.Float](n, at int) []F {
	out := make([]F, n)
	if at >= 0 && at < n {
		out[at] = 1
	}
	return out
}
