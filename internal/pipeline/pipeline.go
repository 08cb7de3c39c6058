// Package pipeline plans the pitch-lowering stage chain: which stages run,
// how large each inter-stage buffer must be, and how much priming the chain
// needs. Everything that could make a buffer overflow at render time is
// checked here, at configuration time.
package pipeline

import (
	"fmt"
	"math"

	"github.com/tphakala/go-songfinder/internal/filter"
)

// Stage is a single processing step. A stage reads whatever its input
// buffer holds, writes to its output buffer, and discards what it consumed.
type Stage interface {
	// Process consumes as much buffered input as the stage can.
	Process() error

	// Reset clears internal state and re-primes the stage's input history.
	// The caller must have emptied the stage buffers first.
	Reset() error

	// Type identifies the stage.
	Type() StageType
}

// StageType identifies the type of processing stage.
type StageType int

const (
	// StageOverlapAdd windows and overlap-adds input segments, decimating
	// by the pitch-shift factor.
	StageOverlapAdd StageType = iota

	// StageHighPass applies the optional highpass FIR at the decimated rate.
	StageHighPass

	// StageInterpolate upsamples by the pitch-shift factor.
	StageInterpolate
)

func (s StageType) String() string {
	switch s {
	case StageOverlapAdd:
		return "overlap-add"
	case StageHighPass:
		return "highpass"
	case StageInterpolate:
		return "interpolate"
	default:
		return fmt.Sprintf("StageType(%d)", int(s))
	}
}

// StageSpec describes one planned stage.
type StageSpec struct {
	Type StageType

	// Factor is the decimation or interpolation factor (1 for the highpass).
	Factor int

	// FilterLength is the number of FIR taps (window length for overlap-add).
	FilterLength int

	// History is the number of zeros the stage primes its input with.
	History int

	// InputCapacity is the size of the buffer the stage reads from.
	InputCapacity int
}

// Params are the structural settings of one channel's processor.
type Params struct {
	// MaxInputSize is the largest block Process will run the DSP for.
	MaxInputSize int

	// Cutoff is the highpass cutoff in Hz; 0 disables the highpass.
	Cutoff int

	// Factor is the pitch-shift factor.
	Factor int

	// Window selects the overlap-add window.
	Window filter.WindowType

	// WindowDuration is the overlap-add window length in seconds.
	WindowDuration float64
}

// Validate checks the parameters that do not depend on the filter tables.
func (p *Params) Validate() error {
	if p.MaxInputSize < 1 {
		return fmt.Errorf("max input size must be positive: %d", p.MaxInputSize)
	}
	if p.MaxInputSize > maxInputSizeLimit {
		return fmt.Errorf("max input size %d exceeds limit %d", p.MaxInputSize, maxInputSizeLimit)
	}
	if p.Cutoff < 0 {
		return fmt.Errorf("cutoff must not be negative: %d", p.Cutoff)
	}
	if !p.Window.Valid() {
		return fmt.Errorf("unknown window type: %v", p.Window)
	}
	if p.WindowDuration <= 0 || p.WindowDuration > maxWindowDuration {
		return fmt.Errorf("window duration %g s out of range (0, %g]", p.WindowDuration, maxWindowDuration)
	}
	return nil
}

// Plan is the resolved construction plan for one channel.
type Plan struct {
	Params

	// SegmentSize is the number of samples per window segment; it is also
	// the number of samples the overlap-adder emits per window.
	SegmentSize int

	// WindowSize is Factor × SegmentSize.
	WindowSize int

	// Lowpass is the unscaled interpolation filter.
	Lowpass *filter.Coefficients

	// Highpass is the highpass filter, or nil when Cutoff is 0.
	Highpass *filter.Coefficients

	// Buffer capacities in samples.
	InputCapacity  int
	OLACapacity    int
	HPCapacity     int
	OutputCapacity int

	// PrimeCount is the number of zeros to prime the input with so that
	// every block of up to MaxInputSize samples is answered in full.
	PrimeCount int

	stages []StageSpec
}

// Build resolves params against the filter tables and sizes every buffer.
func Build(params Params) (*Plan, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	tables, err := filter.LoadTables()
	if err != nil {
		return nil, fmt.Errorf("failed to load filter tables: %w", err)
	}

	lowpass, err := tables.Lowpass(params.Factor)
	if err != nil {
		return nil, err
	}

	var highpass *filter.Coefficients
	if params.Cutoff != 0 {
		highpass, err = tables.Highpass(params.Cutoff)
		if err != nil {
			return nil, err
		}
	}

	segment := int(math.Round(params.WindowDuration / float64(params.Factor) * filter.SampleRate))
	if segment < 1 {
		return nil, fmt.Errorf("window duration %g s is shorter than one segment sample at factor %d",
			params.WindowDuration, params.Factor)
	}

	p := &Plan{
		Params:      params,
		SegmentSize: segment,
		WindowSize:  segment * params.Factor,
		Lowpass:     lowpass,
		Highpass:    highpass,
	}
	p.PrimeCount = p.WindowSize
	p.sizeBuffers()
	p.buildStages()

	if err := p.checkCapacities(); err != nil {
		return nil, err
	}

	return p, nil
}

// InterpRecordSize returns the number of input samples each interpolator
// output record depends on.
func (p *Plan) InterpRecordSize() int {
	return (p.Lowpass.Len() + p.Factor - 1) / p.Factor
}

func (p *Plan) highpassLen() int {
	if p.Highpass == nil {
		return 0
	}
	return p.Highpass.Len()
}

func (p *Plan) sizeBuffers() {
	m := p.MaxInputSize
	w := p.WindowSize
	histories := p.highpassLen() + p.InterpRecordSize()

	p.InputCapacity = bufferMultiple*m + windowHeadroom*w
	p.OLACapacity = bufferMultiple*m/p.Factor + windowHeadroom*w + histories
	p.OutputCapacity = bufferMultiple*m + windowHeadroom*w
	if p.Highpass != nil {
		p.HPCapacity = p.OLACapacity
	}
}

func (p *Plan) buildStages() {
	p.stages = make([]StageSpec, 0, maxStages)
	p.stages = append(p.stages, StageSpec{
		Type:          StageOverlapAdd,
		Factor:        p.Factor,
		FilterLength:  p.WindowSize,
		InputCapacity: p.InputCapacity,
	})
	if p.Highpass != nil {
		p.stages = append(p.stages, StageSpec{
			Type:          StageHighPass,
			Factor:        1,
			FilterLength:  p.Highpass.Len(),
			History:       p.Highpass.Len() - 1,
			InputCapacity: p.OLACapacity,
		})
	}
	interpInput := p.OLACapacity
	if p.Highpass != nil {
		interpInput = p.HPCapacity
	}
	p.stages = append(p.stages, StageSpec{
		Type:          StageInterpolate,
		Factor:        p.Factor,
		FilterLength:  p.Lowpass.Len(),
		History:       p.InterpRecordSize() - 1,
		InputCapacity: interpInput,
	})
}

// checkCapacities verifies the worst-case fill of every buffer in steady
// state after priming with PrimeCount zeros.
//
// The input holds fewer than one window of leftovers plus one block. Each
// window turns into one segment, so the decimated buffers hold at most the
// stage history plus the segments from (WindowSize + MaxInputSize) input
// samples. After priming, the output never holds more than WindowSize
// samples beyond what the caller has consumed.
func (p *Plan) checkCapacities() error {
	inputDemand := p.PrimeCount + p.WindowSize + p.MaxInputSize
	windows := (p.PrimeCount+p.WindowSize+p.MaxInputSize)/p.WindowSize + 1
	decimatedDemand := windows*p.SegmentSize + p.highpassLen() + p.InterpRecordSize()
	outputDemand := p.PrimeCount + p.WindowSize + p.MaxInputSize

	check := func(name string, capacity, demand int) error {
		if capacity < demand {
			return fmt.Errorf("%s buffer capacity %d below worst-case fill %d", name, capacity, demand)
		}
		return nil
	}

	if err := check("input", p.InputCapacity, inputDemand); err != nil {
		return err
	}
	if err := check("overlap-add", p.OLACapacity, decimatedDemand); err != nil {
		return err
	}
	if p.Highpass != nil {
		if err := check("highpass", p.HPCapacity, decimatedDemand); err != nil {
			return err
		}
	}
	return check("output", p.OutputCapacity, outputDemand)
}

// Stages returns the planned stages in processing order.
func (p *Plan) Stages() []StageSpec {
	out := make([]StageSpec, len(p.stages))
	copy(out, p.stages)
	return out
}

// Latency returns the delay, in samples, that priming introduces between
// input and output.
func (p *Plan) Latency() int {
	return p.PrimeCount
}

// FilterDelay returns the group delay of the FIR stages in output samples.
func (p *Plan) FilterDelay() float64 {
	delay := p.Lowpass.GroupDelay()
	if p.Highpass != nil {
		delay += p.Highpass.GroupDelay() * float64(p.Factor)
	}
	return delay
}

// MaxRecordsPerCall bounds the interpolator records one Process call can
// produce, which sizes its scratch space.
func (p *Plan) MaxRecordsPerCall() int {
	windows := (p.PrimeCount+p.WindowSize+p.MaxInputSize)/p.WindowSize + 1
	return windows * p.SegmentSize
}
