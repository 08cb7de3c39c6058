package songfinder

import (
	"github.com/tphakala/go-songfinder/internal/simdops"
)

// Info describes a processor's configuration after planning.
type Info struct {
	// Algorithm describes the processing chain.
	Algorithm string

	// PitchShift is the factor the pitch is lowered by.
	PitchShift int

	// SegmentSize and WindowSize are the overlap-add sizes in samples.
	SegmentSize int
	WindowSize  int

	// LowpassLength is the number of interpolation filter taps.
	LowpassLength int

	// TapsPerPhase is the polyphase filter length per output phase.
	TapsPerPhase int

	// HighpassLength is the number of highpass taps, or 0 when disabled.
	HighpassLength int

	// Latency is the priming delay in samples.
	Latency int

	// FilterDelay is the FIR group delay in samples.
	FilterDelay float64

	// MemoryUsage is the approximate buffer memory in bytes over all channels.
	MemoryUsage int64

	// SIMDEnabled indicates if SIMD optimizations are active.
	SIMDEnabled bool

	// SIMDType describes the SIMD instruction set in use.
	SIMDType string
}

// GetInfo returns information about a processor.
func GetInfo(p *Processor) Info {
	plan := p.channels[0].Plan()

	info := Info{
		Algorithm:     algorithmName(plan.Highpass != nil),
		PitchShift:    plan.Factor,
		SegmentSize:   plan.SegmentSize,
		WindowSize:    plan.WindowSize,
		LowpassLength: plan.Lowpass.Len(),
		TapsPerPhase:  plan.InterpRecordSize(),
		Latency:       plan.Latency(),
		FilterDelay:   plan.FilterDelay(),
	}
	if plan.Highpass != nil {
		info.HighpassLength = plan.Highpass.Len()
	}

	perChannel := plan.InputCapacity + plan.OLACapacity + plan.HPCapacity + plan.OutputCapacity
	info.MemoryUsage = int64(perChannel) * bytesPerFloat32 * int64(len(p.channels))

	info.SIMDType = simdops.Info()
	info.SIMDEnabled = info.SIMDType != "" && info.SIMDType != simdNone

	return info
}

func algorithmName(highpass bool) string {
	if highpass {
		return "overlap-add decimation + highpass FIR + polyphase interpolation"
	}
	return "overlap-add decimation + polyphase interpolation"
}

const simdNone = "none"
