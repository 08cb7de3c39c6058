// Package songfinder lowers the pitch of live audio by an integer factor in
// pure Go, bringing high bird song down into the audible range.
//
// # Features
//
//   - Pitch lowering by 2, 3 or 4 at 48 kHz with constant, queryable latency
//   - Equal-sized output for every input block; the render path never
//     allocates, blocks, or fails
//   - Optional highpass (2000, 2500, 3000 or 4000 Hz) applied before
//     interpolation
//   - Hann or piecewise linear ("SongFinder") overlap-add windows, 5 to 50 ms
//   - SIMD-accelerated FIR convolution via github.com/tphakala/simd
//   - Host adapter with a lock-free parameter tree, gain, balance and level
//     metering
//
// # Quick Start
//
// For one-shot offline processing:
//
//	output, err := songfinder.ShiftMono(input, songfinder.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For streaming with a reusable processor:
//
//	cfg := songfinder.DefaultConfig()
//	cfg.MaxInputSize = 512
//	p, err := songfinder.New(&cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := p.Prime(); err != nil {
//	    log.Fatal(err)
//	}
//
//	for block := range blocks {
//	    if err := p.ProcessMulti(block.In, block.Out); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Architecture
//
// Each channel runs the same three-stage chain:
//
//	Input -> [Overlap-Add /D] -> [Highpass FIR] -> [Polyphase Interpolator xD] -> Output
//	                              (optional)
//
// The overlap-adder cuts the input into windows of D segments, windows them
// and sums the segments into one, so every window of input yields one
// segment of output and content keeps its frequency relative to the sample
// index. The interpolator then stretches each segment back to a full window
// with a zero-stuffing lowpass filter, which divides every frequency by D.
//
// Stages are connected by advancing buffers. Priming the input with one
// window of zeros ([Processor.Prime]) makes the output keep up with any
// block of up to MaxInputSize samples; the price is one window of latency.
//
// # Thread Safety
//
// A [Processor] must be driven from one goroutine, except that distinct
// channels may be processed concurrently via [Processor.ProcessChannel].
// [Unit] parameters may be written from any goroutine while rendering.
package songfinder
