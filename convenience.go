package songfinder

import (
	"fmt"

	"github.com/tphakala/go-songfinder/internal/engine"
	"github.com/tphakala/go-songfinder/internal/simdops"
)

// ShiftMono is a convenience function for one-shot offline processing of a
// mono signal in float64. It primes a fresh engine, feeds input in blocks
// of cfg.MaxInputSize and returns an output of the same length, delayed by
// the engine latency. cfg.Channels is ignored.
func ShiftMono(input []float64, cfg Config) ([]float64, error) {
	return shift(input, cfg)
}

// ShiftMonoFloat32 is the float32 equivalent of ShiftMono.
func ShiftMonoFloat32(input []float32, cfg Config) ([]float32, error) {
	return shift(input, cfg)
}

// ShiftStereo is a convenience function for one-shot stereo processing.
// The channels are processed by independent engines.
func ShiftStereo(left, right []float64, cfg Config) (leftOut, rightOut []float64, err error) {
	leftOut, err = ShiftMono(left, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("left channel: %w", err)
	}

	rightOut, err = ShiftMono(right, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("right channel: %w", err)
	}

	return leftOut, rightOut, nil
}

func shift[F simdops.Float](input []F, cfg Config) ([]F, error) {
	cfg.Channels = 1
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	proc, err := engine.NewProcessor[F](cfg.params(), buildOptions(nil).logger)
	if err != nil {
		return nil, err
	}
	if err := proc.PrimeInput(proc.Latency()); err != nil {
		return nil, err
	}

	output := make([]F, len(input))
	for start := 0; start < len(input); start += cfg.MaxInputSize {
		end := min(start+cfg.MaxInputSize, len(input))
		proc.Process(input[start:end], output[start:end])
	}
	return output, nil
}

// InterleaveToStereo converts two mono channels to interleaved stereo.
// Output format: [L0, R0, L1, R1, L2, R2, ...]
func InterleaveToStereo(left, right []float32) []float32 {
	minLen := min(len(left), len(right))
	result := make([]float32, minLen*stereoChannels)
	simdops.For[float32]().Interleave2(result, left[:minLen], right[:minLen])
	return result
}

// DeinterleaveFromStereo converts interleaved stereo to two mono channels.
// Input format: [L0, R0, L1, R1, L2, R2, ...]
func DeinterleaveFromStereo(interleaved []float32) (left, right []float32) {
	numSamples := len(interleaved) / stereoChannels
	left = make([]float32, numSamples)
	right = make([]float32, numSamples)
	for i := range numSamples {
		left[i] = interleaved[i*stereoChannels]
		right[i] = interleaved[i*stereoChannels+1]
	}
	return left, right
}
