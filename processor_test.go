package songfinder

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineFloat32(n int, freq, amplitude, phase float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/SampleRate+phase))
	}
	return out
}

func newTestProcessor(t *testing.T, modify func(*Config)) *Processor {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxInputSize = 256
	if modify != nil {
		modify(&cfg)
	}
	p, err := New(&cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, p.Prime())
	return p
}

func TestProcessor_Basics(t *testing.T) {
	p := newTestProcessor(t, nil)

	assert.Equal(t, 2, p.Channels())
	assert.Equal(t, 960, p.Latency(), "one 20 ms window at 48 kHz")
	assert.Positive(t, p.FilterDelay())
	assert.Equal(t, 256, p.Config().MaxInputSize)
}

// TestProcessMulti_MatchesPerChannel verifies that channels are independent:
// processing them together equals processing each with its own mono
// processor, concurrently or not.
func TestProcessMulti_MatchesPerChannel(t *testing.T) {
	const (
		blocks    = 20
		blockSize = 256
	)
	left := sineFloat32(blocks*blockSize, 6000, 0.5, 0)
	right := sineFloat32(blocks*blockSize, 9000, 0.5, math.Pi/4)

	stereo := newTestProcessor(t, nil)
	gotLeft := make([]float32, len(left))
	gotRight := make([]float32, len(right))
	for b := range blocks {
		s, e := b*blockSize, (b+1)*blockSize
		require.NoError(t, stereo.ProcessMulti(
			[][]float32{left[s:e], right[s:e]},
			[][]float32{gotLeft[s:e], gotRight[s:e]}))
	}

	inputs := [][]float32{left, right}
	wants := make([][]float32, 2)
	var wg sync.WaitGroup
	for ch := range inputs {
		mono := newTestProcessor(t, func(c *Config) { c.Channels = 1 })
		wants[ch] = make([]float32, len(inputs[ch]))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range blocks {
				s, e := b*blockSize, (b+1)*blockSize
				mono.Process(inputs[ch][s:e], wants[ch][s:e])
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, wants[0], gotLeft)
	assert.Equal(t, wants[1], gotRight)
	assert.Equal(t, Stats{Blocks: 2 * blocks}, stereo.Stats())
}

func TestProcessMulti_ChannelMismatch(t *testing.T) {
	p := newTestProcessor(t, nil)
	buf := make([]float32, 16)

	err := p.ProcessMulti([][]float32{buf}, [][]float32{buf, buf})
	assert.ErrorIs(t, err, ErrChannelMismatch)

	err = p.ProcessMulti([][]float32{buf, buf}, [][]float32{buf})
	assert.ErrorIs(t, err, ErrChannelMismatch)
}

func TestProcessChannel(t *testing.T) {
	p := newTestProcessor(t, nil)
	in := sineFloat32(128, 5000, 0.5, 0)
	out := make([]float32, 128)

	require.NoError(t, p.ProcessChannel(1, in, out))
	assert.ErrorIs(t, p.ProcessChannel(2, in, out), ErrChannelMismatch)
	assert.ErrorIs(t, p.ProcessChannel(-1, in, out), ErrChannelMismatch)

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Blocks)
	assert.Zero(t, stats.ZeroFills)
}

func TestProcessor_OversizeBlockDegrades(t *testing.T) {
	p := newTestProcessor(t, func(c *Config) { c.Channels = 1 })

	in := sineFloat32(300, 5000, 0.5, 0)
	out := make([]float32, 300)
	for i := range out {
		out[i] = 1
	}
	p.Process(in, out)

	for i, v := range out {
		require.Zero(t, v, "sample %d", i)
	}
	assert.Equal(t, uint64(1), p.Stats().Degraded)
}

func TestProcessor_ResetAndReprime(t *testing.T) {
	p := newTestProcessor(t, func(c *Config) { c.Channels = 1 })
	in := sineFloat32(256, 5000, 0.5, 0)
	out := make([]float32, 256)

	for range 10 {
		p.Process(in, out)
	}
	require.NoError(t, p.Reset())
	assert.Zero(t, p.Stats().Blocks)

	// Without priming the first block is zero-filled.
	p.Process(in, out)
	assert.Equal(t, uint64(1), p.Stats().ZeroFills)

	require.NoError(t, p.Reset())
	require.NoError(t, p.Prime())
	p.Process(in, out)
	assert.Equal(t, uint64(1), p.Stats().ZeroFills, "counter is cumulative")
}

func BenchmarkProcessor_ProcessMulti(b *testing.B) {
	cfg := DefaultConfig()
	cfg.MaxInputSize = 512
	cfg.Cutoff = 2000
	p, err := New(&cfg, WithLogger(quietLogger()))
	require.NoError(b, err)
	require.NoError(b, p.Prime())

	in := [][]float32{sineFloat32(512, 6000, 0.5, 0), sineFloat32(512, 7000, 0.5, 0)}
	out := [][]float32{make([]float32, 512), make([]float32, 512)}

	for b.Loop() {
		_ = p.ProcessMulti(in, out)
	}
}
