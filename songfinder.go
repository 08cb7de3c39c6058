package songfinder

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/tphakala/go-songfinder/internal/filter"
	"github.com/tphakala/go-songfinder/internal/pipeline"
)

// WindowType selects the overlap-add window.
type WindowType = filter.WindowType

const (
	// WindowHann is a Hann window whose segments sum to approximately one.
	WindowHann = filter.WindowHann

	// WindowCustom is a piecewise linear window whose segments sum to
	// exactly one. The host application calls it the SongFinder window.
	WindowCustom = filter.WindowCustom
)

// ParseWindowType parses "hann", "custom" or "songfinder".
func ParseWindowType(s string) (WindowType, error) {
	return filter.ParseWindowType(s)
}

// Config holds the structural settings of a Processor.
type Config struct {
	// MaxInputSize is the largest block Process runs the DSP for. Larger
	// blocks are answered with silence.
	MaxInputSize int `yaml:"max_input_size"`

	// Cutoff is the highpass cutoff in Hz. Zero disables the highpass;
	// other values must be one of SupportedCutoffs().
	Cutoff int `yaml:"cutoff"`

	// PitchShift is the factor the pitch is lowered by, one of
	// SupportedPitchShifts().
	PitchShift int `yaml:"pitch_shift"`

	// WindowType selects the overlap-add window.
	WindowType WindowType `yaml:"window_type"`

	// WindowSize is the overlap-add window length in seconds.
	WindowSize float64 `yaml:"window_size"`

	// Channels is the number of independent channels.
	Channels int `yaml:"channels"`
}

// Common errors returned by the package.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid songfinder configuration")

	// ErrNotAllocated indicates Render was called without render resources.
	ErrNotAllocated = errors.New("render resources not allocated")

	// ErrChannelMismatch indicates the buffers do not match the channel count.
	ErrChannelMismatch = errors.New("channel count mismatch")

	// ErrUnknownParameter indicates a parameter address outside the tree.
	ErrUnknownParameter = errors.New("unknown parameter")
)

// DefaultConfig returns the host application's initial settings.
func DefaultConfig() Config {
	return Config{
		MaxInputSize: DefaultMaxInputSize,
		Cutoff:       DefaultCutoff,
		PitchShift:   DefaultPitchShift,
		WindowType:   WindowHann,
		WindowSize:   DefaultWindowSize,
		Channels:     DefaultChannels,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxInputSize < 1 || c.MaxInputSize > maxInputSizeLimit {
		return fmt.Errorf("%w: max input size must be 1-%d, got %d", ErrInvalidConfig, maxInputSizeLimit, c.MaxInputSize)
	}

	if c.Cutoff != 0 && !slices.Contains(filter.SupportedCutoffs(), c.Cutoff) {
		return fmt.Errorf("%w: cutoff must be 0 or one of %v Hz, got %d",
			ErrInvalidConfig, filter.SupportedCutoffs(), c.Cutoff)
	}

	if !slices.Contains(filter.SupportedFactors(), c.PitchShift) {
		return fmt.Errorf("%w: pitch shift must be one of %v, got %d",
			ErrInvalidConfig, filter.SupportedFactors(), c.PitchShift)
	}

	if !c.WindowType.Valid() {
		return fmt.Errorf("%w: unknown window type %v", ErrInvalidConfig, c.WindowType)
	}

	if c.WindowSize < minWindowSize || c.WindowSize > maxWindowSize {
		return fmt.Errorf("%w: window size must be %g-%g s, got %g",
			ErrInvalidConfig, minWindowSize, maxWindowSize, c.WindowSize)
	}

	if c.Channels < 1 || c.Channels > maxChannels {
		return fmt.Errorf("%w: channels must be 1-%d, got %d", ErrInvalidConfig, maxChannels, c.Channels)
	}

	return nil
}

func (c *Config) params() pipeline.Params {
	return pipeline.Params{
		MaxInputSize:   c.MaxInputSize,
		Cutoff:         c.Cutoff,
		Factor:         c.PitchShift,
		Window:         c.WindowType,
		WindowDuration: c.WindowSize,
	}
}

// SupportedPitchShifts lists the pitch-shift factors.
func SupportedPitchShifts() []int {
	return filter.SupportedFactors()
}

// SupportedCutoffs lists the non-zero highpass cutoffs in Hz.
func SupportedCutoffs() []int {
	return filter.SupportedCutoffs()
}

// Option configures New.
type Option func(*options)

type options struct {
	logger logrus.FieldLogger
}

// WithLogger sets the logger for block diagnostics. The default is the
// logrus standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
