// Package analysis measures signals: power spectra, dominant frequency and
// RMS level. It backs the level meters, the command line tools and the
// pitch checks in tests.
package analysis

import (
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
	"github.com/tphakala/go-songfinder/internal/simdops"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyzer computes Hann-windowed power spectra of a fixed length. It
// preallocates all working memory and is not safe for concurrent use.
type Analyzer struct {
	size   int
	fft    *fourier.FFT
	window []float64

	frame  []float64
	coeffs []complex128
	re     []float64
	im     []float64
	power  []float64
}

// NewAnalyzer creates an analyzer for frames of size samples.
func NewAnalyzer(size int) (*Analyzer, error) {
	if size < minFrameSize {
		return nil, fmt.Errorf("analysis frame must have at least %d samples: %d", minFrameSize, size)
	}

	bins := size/2 + 1
	window := make([]float64, size)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size))
	}

	return &Analyzer{
		size:   size,
		fft:    fourier.NewFFT(size),
		window: window,
		frame:  make([]float64, size),
		coeffs: make([]complex128, bins),
		re:     make([]float64, bins),
		im:     make([]float64, bins),
		power:  make([]float64, bins),
	}, nil
}

// Size returns the frame length.
func (a *Analyzer) Size() int {
	return a.size
}

// Power returns the power spectrum (bins 0..size/2) of the first Size()
// samples; shorter input is zero padded. The returned slice is reused by
// the next call.
func (a *Analyzer) Power(samples []float64) []float64 {
	n := copy(a.frame, samples)
	clear(a.frame[n:])
	vecmath.MulBlockInPlace(a.frame, a.window)

	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)
	for i, c := range a.coeffs {
		a.re[i] = real(c)
		a.im[i] = imag(c)
	}
	vecmath.Power(a.power, a.re, a.im)
	return a.power
}

// Magnitude returns the magnitude spectrum of samples in a new slice.
func (a *Analyzer) Magnitude(samples []float64) []float64 {
	a.Power(samples)
	mag := make([]float64, len(a.re))
	vecmath.Magnitude(mag, a.re, a.im)
	return mag
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC bin.
func (a *Analyzer) DominantFrequency(samples []float64, sampleRate float64) float64 {
	power := a.Power(samples)
	best := 1
	for k := 2; k < len(power); k++ {
		if power[k] > power[best] {
			best = k
		}
	}
	return float64(best) * sampleRate / float64(a.size)
}

// BinFrequency returns the center frequency of bin k.
func (a *Analyzer) BinFrequency(k int, sampleRate float64) float64 {
	return float64(k) * sampleRate / float64(a.size)
}

// DominantFrequency is a one-shot helper that analyzes all of samples.
func DominantFrequency(samples []float64, sampleRate float64) (float64, error) {
	a, err := NewAnalyzer(len(samples))
	if err != nil {
		return 0, err
	}
	return a.DominantFrequency(samples, sampleRate), nil
}

// RMS returns the root mean square of samples.
func RMS[F simdops.Float](samples []F) float64 {
	if len(samples) == 0 {
		return 0
	}
	sumSquares := simdops.For[F]().DotProductUnsafe(samples, samples)
	return math.Sqrt(float64(sumSquares) / float64(len(samples)))
}

// Peak returns the largest absolute sample value.
func Peak[F simdops.Float](samples []F) float64 {
	var peak float64
	for _, v := range samples {
		peak = max(peak, math.Abs(float64(v)))
	}
	return peak
}

const minFrameSize = 4
