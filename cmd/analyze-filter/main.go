// Command analyze-filter prints the design and measured response of the
// pitch-shift filter tables and the overlap-add window envelopes.
package main

import (
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/tphakala/go-songfinder/internal/filter"
	"github.com/tphakala/go-songfinder/internal/simdops"
)

const (
	// Overlap-add window duration used for the envelope report.
	envelopeWindowSeconds = 0.020

	// Offset from the cutoff at which stopband attenuation is measured, as
	// a fraction of the transition bandwidth.
	stopbandMargin = 0.5
)

func main() {
	tables, err := filter.LoadTables()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Interpolation Lowpass Filters ===")
	for _, factor := range filter.SupportedFactors() {
		if err := reportLowpass(tables, factor); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("\n=== Highpass Filters ===")
	for _, cutoff := range filter.SupportedCutoffs() {
		if err := reportHighpass(tables, cutoff); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("\n=== Overlap-Add Window Envelopes ===")
	for _, wt := range []filter.WindowType{filter.WindowHann, filter.WindowCustom} {
		for _, factor := range filter.SupportedFactors() {
			if err := reportEnvelope(wt, factor); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
	}
}

func reportLowpass(tables *filter.Tables, factor int) error {
	lp, err := tables.Lowpass(factor)
	if err != nil {
		return err
	}
	taps := lp.Taps()

	fmt.Printf("\nFactor %d:\n", factor)
	fmt.Printf("  Taps: %d, group delay: %.1f samples\n", lp.Len(), lp.GroupDelay())
	fmt.Printf("  Cutoff: %.1f Hz, transition: %.1f Hz, attenuation: %.0f dB\n",
		lp.Cutoff*filter.SampleRate, lp.TransitionBW*filter.SampleRate, lp.Attenuation)

	bank, err := filter.Decompose[float64](lp.Scaled(float64(factor)), factor)
	if err != nil {
		return err
	}
	fmt.Printf("  Taps per phase: %d\n", bank.TapsPerPhase)
	ops := simdops.For[float64]()
	for phase, kernel := range bank.Kernels {
		fmt.Printf("    Phase %d: DC gain = %.10f\n", phase, ops.Sum(kernel))
	}

	passband := lp.Cutoff - lp.TransitionBW/2
	stopband := lp.Cutoff + stopbandMargin*lp.TransitionBW
	fmt.Printf("  Ripple to %.0f Hz: %.4f dB\n", passband*filter.SampleRate, passbandRipple(taps, passband))
	fmt.Printf("  Worst stopband from %.0f Hz: %.1f dB\n", stopband*filter.SampleRate, stopbandPeak(taps, stopband))
	return nil
}

func reportHighpass(tables *filter.Tables, cutoff int) error {
	hp, err := tables.Highpass(cutoff)
	if err != nil {
		return err
	}
	taps := hp.Taps()

	fmt.Printf("\n%d Hz:\n", cutoff)
	fmt.Printf("  Taps: %d, group delay: %.1f samples\n", hp.Len(), hp.GroupDelay())
	for _, hz := range []float64{0, 1000, float64(cutoff), 6000, 12000} {
		mag, _ := filter.ResponseAt(taps, hz/filter.SampleRate)
		fmt.Printf("    %6.0f Hz: %8.2f dB\n", hz, filter.MagnitudeDB(mag))
	}
	return nil
}

func reportEnvelope(wt filter.WindowType, factor int) error {
	segment := int(envelopeWindowSeconds / float64(factor) * filter.SampleRate)
	window, err := filter.NewWindow(wt, factor, segment)
	if err != nil {
		return err
	}
	env := filter.Envelope(window, factor)
	fmt.Printf("  %-10s factor %d, %d x %d: envelope %.6f .. %.6f\n",
		wt, factor, factor, segment, slices.Min(env), slices.Max(env))
	return nil
}

// passbandRipple returns the peak deviation from 0 dB below edge.
func passbandRipple(taps []float64, edge float64) float64 {
	resp := filter.ComputeFrequencyResponse(taps, 0)
	var worst float64
	for k, f := range resp.Frequencies {
		if f > edge {
			break
		}
		worst = max(worst, math.Abs(filter.MagnitudeDB(resp.Magnitude[k])))
	}
	return worst
}

// stopbandPeak returns the largest response above edge in dB.
func stopbandPeak(taps []float64, edge float64) float64 {
	resp := filter.ComputeFrequencyResponse(taps, 0)
	worst := filter.MagnitudeDB(0)
	for k, f := range resp.Frequencies {
		if f >= edge {
			worst = max(worst, filter.MagnitudeDB(resp.Magnitude[k]))
		}
	}
	return worst
}
