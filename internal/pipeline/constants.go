package pipeline

// Buffer sizing
const (
	// bufferMultiple sizes each buffer in units of the maximum input size,
	// scaled down by the factor for the decimated buffers.
	bufferMultiple = 50

	// windowHeadroom adds whole windows on top so tiny block sizes with
	// long windows still fit.
	windowHeadroom = 3

	maxStages = 3
)

// Parameter limits
const (
	maxInputSizeLimit = 1 << 20
	maxWindowDuration = 1.0 // seconds
)
