// Package engine implements the streaming pitch-lowering stages and the
// single-channel processor that chains them.
//
// Type parameter F selects float32 or float64 processing. All buffers and
// scratch space are allocated at construction, so Process never allocates
// on the normal path.
package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tphakala/go-songfinder/internal/buffer"
	"github.com/tphakala/go-songfinder/internal/filter"
	"github.com/tphakala/go-songfinder/internal/pipeline"
	"github.com/tphakala/go-songfinder/internal/simdops"
)

// Processor lowers the pitch of one channel.
//
// Stage chain:
//
//	input → OverlapAdder → ola → [highpass FIR → hp] → Interpolator → output
//
// The highpass stage exists only when the cutoff is non-zero.
type Processor[F simdops.Float] struct {
	plan *pipeline.Plan

	input  *buffer.AdvancingBuffer[F]
	ola    *buffer.AdvancingBuffer[F]
	hp     *buffer.AdvancingBuffer[F]
	output *buffer.AdvancingBuffer[F]

	overlapAdder *OverlapAdder[F]
	highpass     *FIRFilter[F]
	interpolator *Interpolator[F]
	stages       []pipeline.Stage

	logger logrus.FieldLogger

	blocks    uint64
	zeroFills uint64
	degraded  uint64
}

// NewProcessor builds the stage chain for params. A nil logger uses the
// logrus standard logger.
func NewProcessor[F simdops.Float](params pipeline.Params, logger logrus.FieldLogger) (*Processor[F], error) {
	plan, err := pipeline.Build(params)
	if err != nil {
		return nil, fmt.Errorf("failed to plan processor: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	p := &Processor[F]{
		plan:   plan,
		input:  buffer.New[F](plan.InputCapacity),
		ola:    buffer.New[F](plan.OLACapacity),
		output: buffer.New[F](plan.OutputCapacity),
		logger: logger,
	}

	p.overlapAdder, err = NewOverlapAdder(
		plan.Factor, plan.Window, plan.WindowDuration, filter.SampleRate, p.input, p.ola)
	if err != nil {
		return nil, err
	}
	p.stages = append(p.stages, p.overlapAdder)

	interpInput := p.ola
	if plan.Highpass != nil {
		p.hp = buffer.New[F](plan.HPCapacity)
		p.highpass, err = NewFIRFilter(plan.Highpass.Taps(), p.ola, p.hp)
		if err != nil {
			return nil, fmt.Errorf("failed to create highpass stage: %w", err)
		}
		p.stages = append(p.stages, p.highpass)
		interpInput = p.hp
	}

	p.interpolator, err = NewInterpolator(
		plan.Factor, plan.Lowpass.Scaled(float64(plan.Factor)), interpInput, p.output, plan.MaxRecordsPerCall())
	if err != nil {
		return nil, fmt.Errorf("failed to create interpolator: %w", err)
	}
	p.stages = append(p.stages, p.interpolator)

	return p, nil
}

// PrimeInput appends n zeros to the input. Call it before streaming; priming
// with Latency() samples guarantees that no block is zero-filled.
func (p *Processor[F]) PrimeInput(n int) error {
	if err := p.input.AppendZeros(n); err != nil {
		return fmt.Errorf("failed to prime %d samples: %w", n, err)
	}
	return nil
}

// Process consumes len(input) samples and writes the same number of output
// samples to output. It never fails: a block larger than the configured
// maximum, an output slice that is too short, or an internal stage error
// all produce silence and a log entry. Output the pipeline has not produced
// yet is zero-filled.
func (p *Processor[F]) Process(input, output []F) {
	count := len(input)
	block := p.blocks
	p.blocks++

	if len(output) < count {
		clear(output)
		p.degraded++
		p.logBlock(block, count, 0, len(output)).Error(msgShortOutput)
		return
	}
	out := output[:count]

	if count > p.plan.MaxInputSize {
		clear(out)
		p.degraded++
		p.logBlock(block, count, 0, count).Warn(msgOversizeBlock)
		return
	}

	if err := p.run(input); err != nil {
		clear(out)
		p.degraded++
		p.logBlock(block, count, 0, count).WithError(err).Error(msgStageFailure)
		p.restore()
		return
	}

	available := min(p.output.Size(), count)
	copy(out, p.output.Data()[:available])
	clear(out[available:])
	if err := p.output.Discard(available); err != nil {
		p.logBlock(block, count, available, count-available).WithError(err).Error(msgStageFailure)
		p.restore()
		return
	}

	if available < count {
		p.zeroFills++
		p.logBlock(block, count, available, count-available).Warn(msgZeroFill)
	}
}

func (p *Processor[F]) run(input []F) error {
	if err := p.input.Append(input); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	for _, stage := range p.stages {
		if err := stage.Process(); err != nil {
			return fmt.Errorf("%s: %w", stage.Type(), err)
		}
	}
	return nil
}

// restore restores the buffer invariants after a stage failure.
func (p *Processor[F]) restore() {
	blocks := p.blocks
	defer func() { p.blocks = blocks }()

	if err := p.Reset(); err != nil {
		p.logger.WithError(err).Error("processor reset failed")
		return
	}
	if err := p.PrimeInput(p.plan.PrimeCount); err != nil {
		p.logger.WithError(err).Error("processor re-prime failed")
	}
}

func (p *Processor[F]) logBlock(block uint64, inputCount, outputCount, zeroCount int) logrus.FieldLogger {
	return p.logger.WithFields(logrus.Fields{
		fieldBlock:       block,
		fieldInputCount:  inputCount,
		fieldOutputCount: outputCount,
		fieldZeroCount:   zeroCount,
	})
}

// Reset empties every buffer, clears the overlap-add accumulator and
// re-primes the filter histories. Input priming must be redone with
// PrimeInput.
func (p *Processor[F]) Reset() error {
	p.input.Reset()
	p.ola.Reset()
	if p.hp != nil {
		p.hp.Reset()
	}
	p.output.Reset()

	for _, stage := range p.stages {
		if err := stage.Reset(); err != nil {
			return fmt.Errorf("failed to reset %s stage: %w", stage.Type(), err)
		}
	}
	p.blocks = 0
	return nil
}

// Plan returns the construction plan.
func (p *Processor[F]) Plan() *pipeline.Plan {
	return p.plan
}

// Latency returns the number of priming samples that guarantee a full
// output block for every input block.
func (p *Processor[F]) Latency() int {
	return p.plan.Latency()
}

// FilterDelay returns the group delay of the FIR stages in output samples.
func (p *Processor[F]) FilterDelay() float64 {
	return p.plan.FilterDelay()
}

// BlockCount returns the number of Process calls since construction or Reset.
func (p *Processor[F]) BlockCount() uint64 {
	return p.blocks
}

// ZeroFillCount returns the number of blocks that were partly zero-filled.
func (p *Processor[F]) ZeroFillCount() uint64 {
	return p.zeroFills
}

// DegradedCount returns the number of blocks answered with silence.
func (p *Processor[F]) DegradedCount() uint64 {
	return p.degraded
}

// OverlapAdder returns the overlap-add stage.
func (p *Processor[F]) OverlapAdder() *OverlapAdder[F] {
	return p.overlapAdder
}

// Highpass returns the highpass stage, or nil when disabled.
func (p *Processor[F]) Highpass() *FIRFilter[F] {
	return p.highpass
}

// Interpolator returns the interpolation stage.
func (p *Processor[F]) Interpolator() *Interpolator[F] {
	return p.interpolator
}
