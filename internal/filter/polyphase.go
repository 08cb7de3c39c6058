package filter

import (
	"fmt"

	"github.com/tphakala/go-songfinder/internal/simdops"
)

// PolyphaseBank is an interpolation filter split into one sub-filter per
// output phase, so that upsampling never multiplies inserted zeros.
//
// Each kernel is laid out for simdops ConvolveValid over the raw input: for
// an input window x[i .. i+TapsPerPhase-1], phase j produces
//
//	y[j] = Σ_k x[i+TapsPerPhase-1-k] · rf[j+k·Factor]
//
// where rf is the reversed prototype filter. Taps that fall past the end of
// the prototype are zero.
type PolyphaseBank[F simdops.Float] struct {
	// Kernels holds Factor kernels of TapsPerPhase taps each.
	Kernels [][]F

	// Factor is the interpolation factor (number of phases).
	Factor int

	// TapsPerPhase is ceil(len(prototype) / Factor), the number of input
	// samples each output record depends on.
	TapsPerPhase int
}

// Decompose splits the prototype filter coeffs into a polyphase bank for
// the given interpolation factor. The coefficients are used as given, so any
// gain compensation for the inserted zeros must already be applied.
func Decompose[F simdops.Float](coeffs []float64, factor int) (*PolyphaseBank[F], error) {
	if factor < 1 {
		return nil, fmt.Errorf("interpolation factor must be >= 1: %d", factor)
	}
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("empty interpolation filter")
	}

	n := len(coeffs)
	tapsPerPhase := (n + factor - 1) / factor
	reversed := Reverse(coeffs)

	kernels := make([][]F, factor)
	for phase := range factor {
		kernel := make([]F, tapsPerPhase)
		for m := range tapsPerPhase {
			idx := phase + (tapsPerPhase-1-m)*factor
			if idx < n {
				kernel[m] = F(reversed[idx])
			}
		}
		kernels[phase] = kernel
	}

	return &PolyphaseBank[F]{
		Kernels:      kernels,
		Factor:       factor,
		TapsPerPhase: tapsPerPhase,
	}, nil
}
