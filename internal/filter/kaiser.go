// Package filter designs the FIR filters and overlap-add windows used by the
// pitch-lowering engine, and holds the immutable filter tables built from them.
package filter

import (
	"fmt"
	"math"

	"github.com/tphakala/go-songfinder/internal/mathutil"
	"github.com/tphakala/simd/f64"
)

const (
	minFilterTaps = 3
	maxFilterTaps = 8191

	halfLength        = 2.0
	sincZeroThreshold = 1e-10
	nyquist           = 0.5
)

// KaiserWindow generates a Kaiser window of the given length and β.
//
//	w[n] = I₀(β·√(1 − ((n − α)/α)²)) / I₀(β),  α = (length − 1)/2
//
// The window is symmetric and peaks at 1 in the center.
func KaiserWindow(length int, beta float64) []float64 {
	if length < 1 {
		return []float64{}
	}

	window := make([]float64, length)
	if length == 1 {
		window[0] = 1
		return window
	}

	alpha := float64(length-1) / halfLength
	i0Beta := mathutil.BesselI0(beta)

	for n := range length {
		x := (float64(n) - alpha) / alpha
		window[n] = mathutil.BesselI0(beta*math.Sqrt(1.0-x*x)) / i0Beta
	}

	return window
}

// FilterParams holds parameters for windowed-sinc filter design.
type FilterParams struct {
	// NumTaps is the filter length. Highpass designs require it to be odd.
	NumTaps int

	// CutoffFreq is the normalized cutoff frequency in (0, 0.5), where
	// 0.5 is the Nyquist frequency.
	CutoffFreq float64

	// Attenuation is the desired stopband attenuation in dB.
	Attenuation float64

	// Gain is the passband gain.
	Gain float64
}

// Validate checks if filter parameters are valid.
func (fp *FilterParams) Validate() error {
	if fp.NumTaps < minFilterTaps {
		return fmt.Errorf("filter too short: %d taps (minimum %d)", fp.NumTaps, minFilterTaps)
	}

	if fp.NumTaps > maxFilterTaps {
		return fmt.Errorf("filter too long: %d taps (maximum %d)", fp.NumTaps, maxFilterTaps)
	}

	if fp.CutoffFreq <= 0 || fp.CutoffFreq >= nyquist {
		return fmt.Errorf("invalid cutoff frequency: %f (must be in (0, 0.5))", fp.CutoffFreq)
	}

	if fp.Attenuation < 0 {
		return fmt.Errorf("invalid attenuation: %f dB (must be positive)", fp.Attenuation)
	}

	if fp.Gain <= 0 {
		return fmt.Errorf("invalid gain: %f (must be positive)", fp.Gain)
	}

	return nil
}

// DesignLowPassFilter designs a linear-phase lowpass filter by the Kaiser
// window method and normalizes its DC gain to params.Gain.
func DesignLowPassFilter(params FilterParams) ([]float64, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	taps := windowedSinc(params.NumTaps, params.CutoffFreq, params.Attenuation)

	if sum := f64.Sum(taps); math.Abs(sum) > sincZeroThreshold {
		f64.Scale(taps, taps, params.Gain/sum)
	}

	return taps, nil
}

// DesignLowPassFilterAuto designs a lowpass filter whose length is derived
// from the attenuation and transition bandwidth (both normalized to the
// sample rate).
func DesignLowPassFilterAuto(cutoffFreq, transitionBW, attenuation, gain float64) ([]float64, error) {
	return DesignLowPassFilter(FilterParams{
		NumTaps:     mathutil.EstimateFilterLength(attenuation, transitionBW),
		CutoffFreq:  cutoffFreq,
		Attenuation: attenuation,
		Gain:        gain,
	})
}

// DesignHighPassFilter designs a linear-phase highpass filter by spectral
// inversion of a unity-gain lowpass: h = δ[center] − lowpass. The result
// has zero DC gain and unity gain well above the cutoff.
func DesignHighPassFilter(params FilterParams) ([]float64, error) {
	if params.NumTaps%2 == 0 {
		return nil, fmt.Errorf("highpass filter needs an odd length, got %d taps", params.NumTaps)
	}

	lowpass := params
	lowpass.Gain = 1
	taps, err := DesignLowPassFilter(lowpass)
	if err != nil {
		return nil, fmt.Errorf("failed to design prototype lowpass: %w", err)
	}

	f64.Scale(taps, taps, -params.Gain)
	taps[params.NumTaps/2] += params.Gain

	return taps, nil
}

// DesignHighPassFilterAuto is the highpass counterpart of DesignLowPassFilterAuto.
func DesignHighPassFilterAuto(cutoffFreq, transitionBW, attenuation float64) ([]float64, error) {
	return DesignHighPassFilter(FilterParams{
		NumTaps:     mathutil.EstimateFilterLength(attenuation, transitionBW),
		CutoffFreq:  cutoffFreq,
		Attenuation: attenuation,
		Gain:        1,
	})
}

// windowedSinc returns the Kaiser-windowed ideal lowpass response
// sin(2π·fc·x)/(π·x), centered on the middle tap.
func windowedSinc(numTaps int, cutoff, attenuation float64) []float64 {
	window := KaiserWindow(numTaps, mathutil.KaiserBeta(attenuation))
	taps := make([]float64, numTaps)
	center := float64(numTaps-1) / halfLength

	for n := range numTaps {
		x := float64(n) - center
		var sinc float64
		if math.Abs(x) < sincZeroThreshold {
			sinc = halfLength * cutoff
		} else {
			sinc = math.Sin(halfLength*math.Pi*cutoff*x) / (math.Pi * x)
		}
		taps[n] = sinc * window[n]
	}

	return taps
}

// Reverse returns a reversed copy of coeffs.
func Reverse(coeffs []float64) []float64 {
	n := len(coeffs)
	out := make([]float64, n)
	for i, c := range coeffs {
		out[n-1-i] = c
	}
	return out
}

// FilterResponse holds the frequency response of a filter.
type FilterResponse struct {
	// Frequencies at which the response was evaluated (normalized, 0 to 0.5).
	Frequencies []float64

	// Magnitude response at each frequency (linear).
	Magnitude []float64

	// Phase response at each frequency (radians).
	Phase []float64
}

// ComputeFrequencyResponse evaluates the DTFT of an FIR filter at numPoints
// frequencies from DC up to (but excluding) Nyquist.
func ComputeFrequencyResponse(coeffs []float64, numPoints int) FilterResponse {
	if numPoints <= 0 {
		numPoints = defaultResponsePoints
	}

	response := FilterResponse{
		Frequencies: make([]float64, numPoints),
		Magnitude:   make([]float64, numPoints),
		Phase:       make([]float64, numPoints),
	}

	for k := range numPoints {
		freq := float64(k) / float64(halfLength*float64(numPoints))
		response.Frequencies[k] = freq
		response.Magnitude[k], response.Phase[k] = ResponseAt(coeffs, freq)
	}

	return response
}

// ResponseAt returns the magnitude and phase of an FIR filter at a single
// normalized frequency.
func ResponseAt(coeffs []float64, freq float64) (magnitude, phase float64) {
	omega := halfLength * math.Pi * freq
	var re, im float64
	for n, h := range coeffs {
		angle := omega * float64(n)
		re += h * math.Cos(angle)
		im -= h * math.Sin(angle)
	}
	return math.Hypot(re, im), math.Atan2(im, re)
}

// MagnitudeDB converts linear magnitude to decibels.
func MagnitudeDB(magnitude float64) float64 {
	return mathutil.LinearToDB(magnitude)
}
