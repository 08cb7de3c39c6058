package songfinder

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tphakala/go-songfinder/internal/engine"
)

// Processor lowers the pitch of one or more channels. Each channel has its
// own engine; channels share only the immutable filter tables.
//
// A Processor is not safe for concurrent use, except that different
// channels may be processed from different goroutines via ProcessChannel.
type Processor struct {
	config   Config
	channels []*engine.Processor[float32]
	logger   logrus.FieldLogger
}

// Stats counts processed blocks over all channels.
type Stats struct {
	Blocks    uint64
	ZeroFills uint64
	Degraded  uint64
}

// New creates a processor for config. The processor must be primed with
// Prime before streaming.
func New(config *Config, opts ...Option) (*Processor, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	p := &Processor{
		config:   *config,
		channels: make([]*engine.Processor[float32], config.Channels),
		logger:   o.logger,
	}

	params := config.params()
	for ch := range p.channels {
		proc, err := engine.NewProcessor[float32](params, o.logger.WithField(fieldChannel, ch))
		if err != nil {
			return nil, fmt.Errorf("failed to create channel %d: %w", ch, err)
		}
		p.channels[ch] = proc
	}

	return p, nil
}

// Prime appends Latency() zeros to every channel, which guarantees full
// output blocks from the first call on.
func (p *Processor) Prime() error {
	return p.PrimeInput(p.Latency())
}

// PrimeInput appends n zeros to every channel.
func (p *Processor) PrimeInput(n int) error {
	for ch, proc := range p.channels {
		if err := proc.PrimeInput(n); err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}
	}
	return nil
}

// Process lowers the pitch of channel 0. len(output) must be at least
// len(input). Process never fails; see ProcessChannel.
func (p *Processor) Process(input, output []float32) {
	p.channels[0].Process(input, output)
}

// ProcessChannel lowers the pitch of one channel. The only error is an
// out-of-range channel index; faults inside the engine produce silence
// and a log entry instead.
func (p *Processor) ProcessChannel(ch int, input, output []float32) error {
	if ch < 0 || ch >= len(p.channels) {
		return fmt.Errorf("%w: channel %d of %d", ErrChannelMismatch, ch, len(p.channels))
	}
	p.channels[ch].Process(input, output)
	return nil
}

// ProcessMulti processes every channel in order. input and output must
// each have one slice per channel.
func (p *Processor) ProcessMulti(input, output [][]float32) error {
	if len(input) != len(p.channels) || len(output) != len(p.channels) {
		return fmt.Errorf("%w: expected %d channels, got %d in and %d out",
			ErrChannelMismatch, len(p.channels), len(input), len(output))
	}
	for ch, proc := range p.channels {
		proc.Process(input[ch], output[ch])
	}
	return nil
}

// Latency returns the delay in samples between input and output.
func (p *Processor) Latency() int {
	return p.channels[0].Latency()
}

// FilterDelay returns the group delay of the FIR stages in samples.
func (p *Processor) FilterDelay() float64 {
	return p.channels[0].FilterDelay()
}

// Channels returns the channel count.
func (p *Processor) Channels() int {
	return len(p.channels)
}

// Config returns a copy of the configuration.
func (p *Processor) Config() Config {
	return p.config
}

// Stats returns the block counters summed over channels.
func (p *Processor) Stats() Stats {
	var s Stats
	for _, proc := range p.channels {
		s.Blocks += proc.BlockCount()
		s.ZeroFills += proc.ZeroFillCount()
		s.Degraded += proc.DegradedCount()
	}
	return s
}

// Reset returns every channel to its unprimed state.
func (p *Processor) Reset() error {
	for ch, proc := range p.channels {
		if err := proc.Reset(); err != nil {
			return fmt.Errorf("channel %d: %w", ch, err)
		}
	}
	return nil
}
