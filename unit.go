package songfinder

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/tphakala/go-songfinder/internal/analysis"
	"github.com/tphakala/go-songfinder/internal/mathutil"
	"github.com/tphakala/go-songfinder/internal/simdops"
)

// Unit adapts a Processor to an audio host: a parameter tree written from
// a control goroutine, render resource allocation, and a Render callback
// that applies gain and balance after pitch lowering and meters the
// output level.
//
// SetParameter, Parameter, SetBypass and Levels may be called concurrently
// with Render. AllocateRenderResources and DeallocateRenderResources must
// not run concurrently with Render.
type Unit struct {
	params *parameterSet
	bypass atomic.Bool

	proc      *Processor
	maxFrames int
	levels    []atomic.Uint32

	ops    *simdops.Ops[float32]
	logger logrus.FieldLogger
}

// NewUnit creates a unit with every parameter at its default value.
func NewUnit(opts ...Option) *Unit {
	o := buildOptions(opts)
	return &Unit{
		params: newParameterSet(),
		ops:    simdops.For[float32](),
		logger: o.logger,
	}
}

// SetParameter clamps value to the parameter's range and stores it.
// Structural parameters apply at the next AllocateRenderResources.
func (u *Unit) SetParameter(addr ParameterAddress, value float32) error {
	return u.params.set(addr, value)
}

// Parameter returns the stored value, or 0 for an unknown address.
func (u *Unit) Parameter(addr ParameterAddress) float32 {
	if addr >= paramCount {
		return 0
	}
	return u.params.load(addr)
}

// Config returns the configuration the structural parameters map to.
func (u *Unit) Config(channels, maxFrames int) Config {
	return u.params.config(channels, maxFrames)
}

// ApplyConfig stores the structural parameters of cfg. Channels and
// MaxInputSize are ignored; they are given to AllocateRenderResources.
func (u *Unit) ApplyConfig(cfg Config) error {
	values := [...]struct {
		addr  ParameterAddress
		value float32
	}{
		{ParamCutoff, float32(cfg.Cutoff)},
		{ParamPitchShift, float32(cfg.PitchShift)},
		{ParamWindowType, float32(cfg.WindowType)},
		{ParamWindowSize, float32(cfg.WindowSize * msPerSecond)},
	}
	for _, v := range values {
		if err := u.params.set(v.addr, v.value); err != nil {
			return fmt.Errorf("%s: %w", v.addr, err)
		}
	}
	return nil
}

// AllocateRenderResources builds and primes one engine per channel from
// the current parameter values. Blocks longer than maxFrames render as
// silence.
func (u *Unit) AllocateRenderResources(channels, maxFrames int) error {
	cfg := u.params.config(channels, maxFrames)
	proc, err := New(&cfg, WithLogger(u.logger))
	if err != nil {
		return fmt.Errorf("failed to allocate render resources: %w", err)
	}
	if err := proc.Prime(); err != nil {
		return fmt.Errorf("failed to prime processor: %w", err)
	}

	u.proc = proc
	u.maxFrames = maxFrames
	u.levels = make([]atomic.Uint32, channels)

	u.logger.WithFields(logrus.Fields{
		fieldChannels:   channels,
		fieldFrames:     maxFrames,
		"pitch_shift":   cfg.PitchShift,
		"cutoff":        cfg.Cutoff,
		"window_type":   cfg.WindowType.String(),
		"window_size_s": cfg.WindowSize,
		"latency":       proc.Latency(),
	}).Info("render resources allocated")

	return nil
}

// DeallocateRenderResources releases the engines.
func (u *Unit) DeallocateRenderResources() {
	u.proc = nil
	u.levels = nil
	u.maxFrames = 0
}

// Allocated reports whether render resources exist.
func (u *Unit) Allocated() bool {
	return u.proc != nil
}

// Processor returns the allocated processor, or nil.
func (u *Unit) Processor() *Processor {
	return u.proc
}

// MaximumFramesToRender returns the block size allocated for.
func (u *Unit) MaximumFramesToRender() int {
	return u.maxFrames
}

// SetBypass switches pass-through on or off.
func (u *Unit) SetBypass(bypass bool) {
	u.bypass.Store(bypass)
}

// Bypassed reports whether the unit passes input through.
func (u *Unit) Bypassed() bool {
	return u.bypass.Load()
}

// Render processes frames samples of every channel. inputs and outputs
// must have one slice per allocated channel, each at least frames long.
func (u *Unit) Render(inputs, outputs [][]float32, frames int) error {
	if u.proc == nil {
		return ErrNotAllocated
	}
	channels := u.proc.Channels()
	if len(inputs) != channels || len(outputs) != channels {
		return fmt.Errorf("%w: expected %d channels, got %d in and %d out",
			ErrChannelMismatch, channels, len(inputs), len(outputs))
	}
	for ch := range channels {
		if len(inputs[ch]) < frames || len(outputs[ch]) < frames {
			return fmt.Errorf("%w: channel %d buffers shorter than %d frames", ErrChannelMismatch, ch, frames)
		}
	}

	if u.bypass.Load() {
		for ch := range channels {
			copy(outputs[ch][:frames], inputs[ch][:frames])
			u.meter(ch, outputs[ch][:frames])
		}
		return nil
	}

	gain := mathutil.DBToLinear(float64(u.params.load(ParamGain)))
	left, right := 1.0, 1.0
	if channels == stereoChannels {
		left, right = mathutil.BalanceGains(float64(u.params.load(ParamBalance)))
	}

	for ch := range channels {
		out := outputs[ch][:frames]
		u.proc.channels[ch].Process(inputs[ch][:frames], out)

		scale := gain
		switch {
		case channels == stereoChannels && ch == 0:
			scale *= left
		case channels == stereoChannels && ch == 1:
			scale *= right
		}
		if scale != 1 {
			u.ops.Scale(out, out, float32(scale))
		}
		u.meter(ch, out)
	}
	return nil
}

func (u *Unit) meter(ch int, samples []float32) {
	u.levels[ch].Store(math.Float32bits(float32(analysis.RMS(samples))))
}

// Levels returns the RMS level of each channel's last rendered block.
func (u *Unit) Levels() []float32 {
	levels := make([]float32, len(u.levels))
	for ch := range u.levels {
		levels[ch] = math.Float32frombits(u.levels[ch].Load())
	}
	return levels
}

// LevelsDB returns Levels in dBFS.
func (u *Unit) LevelsDB() []float64 {
	levels := u.Levels()
	out := make([]float64, len(levels))
	for ch, v := range levels {
		out[ch] = mathutil.LinearToDB(float64(v))
	}
	return out
}
