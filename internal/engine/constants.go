package engine

const (
	// interpChunkSize caps interpolator records per ConvolveValidMulti call
	// so the phase scratch stays in L2 cache.
	interpChunkSize = 4096

	// interleave2Factor is the factor served by the SIMD Interleave2 path.
	interleave2Factor = 2
)

// Log messages and fields.
const (
	msgOversizeBlock = "block exceeds max input size, emitting silence"
	msgZeroFill      = "processor output short, zero-filling"
	msgStageFailure  = "stage failed, emitting silence and resetting"
	msgShortOutput   = "output slice shorter than input, emitting silence"

	fieldBlock       = "block"
	fieldInputCount  = "input_count"
	fieldOutputCount = "output_count"
	fieldZeroCount   = "zero_count"
	fieldStage       = "stage"
)
