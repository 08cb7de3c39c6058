package filter

// SampleRate is the only rate the filter tables are designed for.
const SampleRate = 48000.0

// Interpolation lowpass design, relative to the output rate divided by the
// pitch-shift factor.
const (
	lowpassCutoffRatio     = 0.45
	lowpassTransitionRatio = 0.1
	lowpassAttenuation     = 80.0
)

// Highpass design.
const (
	highpassTransitionHz = 1000.0
	highpassAttenuation  = 60.0
)

const (
	minWindowFactor       = 2
	defaultResponsePoints = 512
)

var (
	supportedFactors = []int{2, 3, 4}
	supportedCutoffs = []int{2000, 2500, 3000, 4000}
)
