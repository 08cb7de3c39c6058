package songfinder

// SampleRate is the only sample rate the filter tables are designed for.
const SampleRate = 48000

// Channel constants
const (
	stereoChannels = 2  // Stereo channel count (used by interleave functions)
	maxChannels    = 64 // Maximum supported channel count
)

// Defaults, matching the host application's initial parameter values.
const (
	DefaultMaxInputSize = 4096
	DefaultCutoff       = 0
	DefaultPitchShift   = 2
	DefaultWindowSize   = 0.020 // seconds
	DefaultChannels     = stereoChannels
)

// Configuration limits
const (
	maxInputSizeLimit = 1 << 20
	minWindowSize     = 0.005 // seconds
	maxWindowSize     = 0.050 // seconds
)

// Host parameter ranges.
const (
	minCutoffParam     = 0
	maxCutoffParam     = 4000
	minPitchShiftParam = 2
	maxPitchShiftParam = 4
	minWindowTypeParam = 0
	maxWindowTypeParam = 1
	minWindowSizeParam = 5  // ms
	maxWindowSizeParam = 50 // ms
	minGainParam       = -20
	maxGainParam       = 20
	minBalanceParam    = -10
	maxBalanceParam    = 10
)

// Memory estimate
const bytesPerFloat32 = 4

// msPerSecond converts the window size parameter.
const msPerSecond = 1000.0

// Log fields
const (
	fieldChannel  = "channel"
	fieldChannels = "channels"
	fieldFrames   = "frames"
)
