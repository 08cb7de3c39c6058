package filter

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrUnsupportedFactor is returned for a pitch-shift factor with no interpolation filter.
	ErrUnsupportedFactor = errors.New("unsupported pitch shift factor")

	// ErrUnsupportedCutoff is returned for a highpass cutoff with no filter.
	ErrUnsupportedCutoff = errors.New("unsupported highpass cutoff")
)

// Coefficients is one immutable entry of the filter tables.
type Coefficients struct {
	taps     []float64
	reversed []float64

	// Cutoff is the normalized design cutoff (0.5 = Nyquist).
	Cutoff float64

	// TransitionBW is the normalized design transition bandwidth.
	TransitionBW float64

	// Attenuation is the design stopband attenuation in dB.
	Attenuation float64
}

func newCoefficients(taps []float64, cutoff, transitionBW, attenuation float64) *Coefficients {
	return &Coefficients{
		taps:         taps,
		reversed:     Reverse(taps),
		Cutoff:       cutoff,
		TransitionBW: transitionBW,
		Attenuation:  attenuation,
	}
}

// Taps returns a copy of the filter coefficients in natural order.
func (c *Coefficients) Taps() []float64 {
	return slices.Clone(c.taps)
}

// Reversed returns a copy of the coefficients in reversed order.
func (c *Coefficients) Reversed() []float64 {
	return slices.Clone(c.reversed)
}

// Len returns the number of taps.
func (c *Coefficients) Len() int {
	return len(c.taps)
}

// Scaled returns a copy of the coefficients multiplied by gain.
func (c *Coefficients) Scaled(gain float64) []float64 {
	out := make([]float64, len(c.taps))
	for i, v := range c.taps {
		out[i] = v * gain
	}
	return out
}

// GroupDelay returns the filter delay in samples (taps are symmetric).
func (c *Coefficients) GroupDelay() float64 {
	return float64(len(c.taps)-1) / halfLength
}

// Tables holds the interpolation lowpass filters keyed by pitch-shift factor
// and the highpass filters keyed by cutoff in Hz. All filters are designed
// for SampleRate.
type Tables struct {
	lowpass  map[int]*Coefficients
	highpass map[int]*Coefficients
}

var loadTables = sync.OnceValues(buildTables)

// LoadTables returns the process-wide filter tables, designing them on
// first use.
func LoadTables() (*Tables, error) {
	return loadTables()
}

func buildTables() (*Tables, error) {
	t := &Tables{
		lowpass:  make(map[int]*Coefficients, len(supportedFactors)),
		highpass: make(map[int]*Coefficients, len(supportedCutoffs)),
	}

	for _, factor := range supportedFactors {
		// Normalized to the 48 kHz output of the interpolator, the band
		// to keep ends at 0.5/factor.
		cutoff := lowpassCutoffRatio / float64(factor)
		transition := lowpassTransitionRatio / float64(factor)
		taps, err := DesignLowPassFilterAuto(cutoff, transition, lowpassAttenuation, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to design lowpass for factor %d: %w", factor, err)
		}
		t.lowpass[factor] = newCoefficients(taps, cutoff, transition, lowpassAttenuation)
	}

	for _, hz := range supportedCutoffs {
		cutoff := float64(hz) / SampleRate
		transition := highpassTransitionHz / SampleRate
		taps, err := DesignHighPassFilterAuto(cutoff, transition, highpassAttenuation)
		if err != nil {
			return nil, fmt.Errorf("failed to design highpass for %d Hz: %w", hz, err)
		}
		t.highpass[hz] = newCoefficients(taps, cutoff, transition, highpassAttenuation)
	}

	return t, nil
}

// Lowpass returns the unscaled interpolation filter for a pitch-shift factor.
// Its DC gain is one; the interpolator scales it by the factor.
func (t *Tables) Lowpass(factor int) (*Coefficients, error) {
	c, ok := t.lowpass[factor]
	if !ok {
		return nil, fmt.Errorf("%w: %d (supported: %v)", ErrUnsupportedFactor, factor, supportedFactors)
	}
	return c, nil
}

// Highpass returns the highpass filter for a cutoff in Hz.
func (t *Tables) Highpass(cutoff int) (*Coefficients, error) {
	c, ok := t.highpass[cutoff]
	if !ok {
		return nil, fmt.Errorf("%w: %d Hz (supported: %v)", ErrUnsupportedCutoff, cutoff, supportedCutoffs)
	}
	return c, nil
}

// SupportedFactors lists the pitch-shift factors that have filters.
func SupportedFactors() []int {
	return slices.Clone(supportedFactors)
}

// SupportedCutoffs lists the highpass cutoffs in Hz that have filters.
func SupportedCutoffs() []int {
	return slices.Clone(supportedCutoffs)
}
