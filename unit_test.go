package songfinder

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUnit(t *testing.T) *Unit {
	t.Helper()
	return NewUnit(WithLogger(quietLogger()))
}

func TestUnit_ParameterDefaults(t *testing.T) {
	u := newTestUnit(t)

	assert.InDelta(t, 0, u.Parameter(ParamCutoff), 0)
	assert.InDelta(t, 2, u.Parameter(ParamPitchShift), 0)
	assert.InDelta(t, 0, u.Parameter(ParamWindowType), 0)
	assert.InDelta(t, 20, u.Parameter(ParamWindowSize), 1e-6)
	assert.InDelta(t, 0, u.Parameter(ParamGain), 0)
	assert.InDelta(t, 0, u.Parameter(ParamBalance), 0)
	assert.InDelta(t, 0, u.Parameter(ParameterAddress(42)), 0)
}

func TestUnit_SetParameterClamps(t *testing.T) {
	u := newTestUnit(t)

	tests := []struct {
		addr  ParameterAddress
		value float32
		want  float32
	}{
		{ParamCutoff, 9000, 4000},
		{ParamCutoff, -5, 0},
		{ParamPitchShift, 3, 3},
		{ParamPitchShift, 10, 4},
		{ParamWindowType, 1, 1},
		{ParamWindowSize, 2, 5},
		{ParamWindowSize, 75, 50},
		{ParamGain, -30, -20},
		{ParamGain, 6, 6},
		{ParamBalance, 12, 10},
	}

	for _, tt := range tests {
		require.NoError(t, u.SetParameter(tt.addr, tt.value))
		assert.InDelta(t, tt.want, u.Parameter(tt.addr), 0, "%v=%v", tt.addr, tt.value)
	}

	assert.ErrorIs(t, u.SetParameter(paramCount, 1), ErrUnknownParameter)
	assert.Error(t, u.SetParameter(ParamGain, float32(math.NaN())))
}

func TestUnit_ConfigSnapshot(t *testing.T) {
	u := newTestUnit(t)
	require.NoError(t, u.SetParameter(ParamCutoff, 2600))
	require.NoError(t, u.SetParameter(ParamPitchShift, 3.4))
	require.NoError(t, u.SetParameter(ParamWindowType, 0.8))
	require.NoError(t, u.SetParameter(ParamWindowSize, 35))

	cfg := u.Config(2, 512)
	assert.Equal(t, Config{
		MaxInputSize: 512,
		Cutoff:       2500,
		PitchShift:   3,
		WindowType:   WindowCustom,
		WindowSize:   0.035,
		Channels:     2,
	}, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestUnit_ApplyConfig(t *testing.T) {
	u := newTestUnit(t)
	want := Config{
		MaxInputSize: 256,
		Cutoff:       3000,
		PitchShift:   4,
		WindowType:   WindowCustom,
		WindowSize:   0.045,
		Channels:     1,
	}
	require.NoError(t, u.ApplyConfig(want))

	got := u.Config(1, 256)
	assert.Equal(t, want.Cutoff, got.Cutoff)
	assert.Equal(t, want.PitchShift, got.PitchShift)
	assert.Equal(t, want.WindowType, got.WindowType)
	assert.InDelta(t, want.WindowSize, got.WindowSize, 1e-6)
}

func TestSnapCutoff(t *testing.T) {
	tests := map[float32]int{
		0: 0, 900: 0, 1100: 2000, 2200: 2000, 2300: 2500, 2800: 3000, 3600: 4000, 4000: 4000,
	}
	for in, want := range tests {
		assert.Equal(t, want, snapCutoff(in), "cutoff %v", in)
	}
}

func TestUnit_RenderRequiresAllocation(t *testing.T) {
	u := newTestUnit(t)
	buf := [][]float32{make([]float32, 8)}
	assert.ErrorIs(t, u.Render(buf, buf, 8), ErrNotAllocated)
	assert.False(t, u.Allocated())
}

func TestUnit_AllocateAndRender(t *testing.T) {
	u := newTestUnit(t)
	require.NoError(t, u.AllocateRenderResources(2, 256))
	assert.True(t, u.Allocated())
	assert.Equal(t, 256, u.MaximumFramesToRender())
	require.NotNil(t, u.Processor())

	in := [][]float32{sineFloat32(256, 8000, 0.5, 0), sineFloat32(256, 8000, 0.5, 0)}
	out := [][]float32{make([]float32, 256), make([]float32, 256)}

	for range 20 {
		require.NoError(t, u.Render(in, out, 256))
	}
	assert.Zero(t, u.Processor().Stats().ZeroFills)

	levels := u.Levels()
	require.Len(t, levels, 2)
	assert.Greater(t, levels[0], float32(0.1))
	assert.InDelta(t, levels[0], levels[1], 1e-6)

	u.DeallocateRenderResources()
	assert.False(t, u.Allocated())
	assert.ErrorIs(t, u.Render(in, out, 256), ErrNotAllocated)
}

// TestUnit_GainAndBalance compares a unit with gain and balance against one
// without; positive balance makes the right channel louder.
func TestUnit_GainAndBalance(t *testing.T) {
	plain := newTestUnit(t)
	require.NoError(t, plain.AllocateRenderResources(2, 256))

	shaped := newTestUnit(t)
	require.NoError(t, shaped.AllocateRenderResources(2, 256))
	require.NoError(t, shaped.SetParameter(ParamGain, 6))
	require.NoError(t, shaped.SetParameter(ParamBalance, 6))

	in := [][]float32{sineFloat32(256, 7000, 0.3, 0), sineFloat32(256, 7000, 0.3, 0)}
	plainOut := [][]float32{make([]float32, 256), make([]float32, 256)}
	shapedOut := [][]float32{make([]float32, 256), make([]float32, 256)}

	for range 10 {
		require.NoError(t, plain.Render(in, plainOut, 256))
		require.NoError(t, shaped.Render(in, shapedOut, 256))
	}

	gain := math.Pow(10, 6.0/20)
	for i := range 256 {
		assert.InDelta(t, float64(plainOut[0][i]), float64(shapedOut[0][i]), 1e-5, "left: +6 dB gain, -6 dB balance")
		assert.InDelta(t, gain*float64(plainOut[1][i]), float64(shapedOut[1][i]), 1e-5, "right: +6 dB gain")
	}

	db := shaped.LevelsDB()
	assert.Greater(t, db[1], db[0])
}

func TestUnit_Bypass(t *testing.T) {
	u := newTestUnit(t)
	require.NoError(t, u.AllocateRenderResources(1, 128))
	require.NoError(t, u.SetParameter(ParamGain, 12))
	u.SetBypass(true)
	assert.True(t, u.Bypassed())

	in := [][]float32{sineFloat32(128, 1000, 0.25, 0)}
	out := [][]float32{make([]float32, 128)}
	require.NoError(t, u.Render(in, out, 128))
	assert.Equal(t, in[0], out[0])
}

func TestUnit_RenderShapeErrors(t *testing.T) {
	u := newTestUnit(t)
	require.NoError(t, u.AllocateRenderResources(2, 64))

	short := [][]float32{make([]float32, 32), make([]float32, 32)}
	full := [][]float32{make([]float32, 64), make([]float32, 64)}

	assert.ErrorIs(t, u.Render(full[:1], full, 64), ErrChannelMismatch)
	assert.ErrorIs(t, u.Render(short, full, 64), ErrChannelMismatch)
	assert.ErrorIs(t, u.Render(full, short, 64), ErrChannelMismatch)
}

func TestUnit_OversizeRenderIsSilent(t *testing.T) {
	u := newTestUnit(t)
	require.NoError(t, u.AllocateRenderResources(1, 64))

	in := [][]float32{sineFloat32(128, 5000, 0.5, 0)}
	out := [][]float32{make([]float32, 128)}
	require.NoError(t, u.Render(in, out, 128))
	for _, v := range out[0] {
		require.Zero(t, v)
	}
	assert.Equal(t, uint64(1), u.Processor().Stats().Degraded)
}

func TestUnit_StructuralChangeAppliesOnReallocate(t *testing.T) {
	u := newTestUnit(t)
	require.NoError(t, u.AllocateRenderResources(1, 128))
	assert.Equal(t, 2, u.Processor().Config().PitchShift)

	require.NoError(t, u.SetParameter(ParamPitchShift, 4))
	assert.Equal(t, 2, u.Processor().Config().PitchShift)

	require.NoError(t, u.AllocateRenderResources(1, 128))
	assert.Equal(t, 4, u.Processor().Config().PitchShift)
}

func TestUnit_AllocateInvalid(t *testing.T) {
	u := newTestUnit(t)
	assert.ErrorIs(t, u.AllocateRenderResources(0, 128), ErrInvalidConfig)
	assert.ErrorIs(t, u.AllocateRenderResources(2, 0), ErrInvalidConfig)
	assert.False(t, u.Allocated())
}

// TestUnit_ConcurrentParameterWrites exercises the lock-free parameter path
// under the race detector.
func TestUnit_ConcurrentParameterWrites(t *testing.T) {
	u := newTestUnit(t)
	require.NoError(t, u.AllocateRenderResources(2, 128))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			_ = u.SetParameter(ParamGain, float32(i%40-20))
			_ = u.SetParameter(ParamBalance, float32(i%20-10))
			_ = u.Levels()
		}
	}()

	in := [][]float32{make([]float32, 128), make([]float32, 128)}
	out := [][]float32{make([]float32, 128), make([]float32, 128)}
	for range 200 {
		require.NoError(t, u.Render(in, out, 128))
	}
	wg.Wait()
}

func TestParameters(t *testing.T) {
	params := Parameters()
	require.Len(t, params, int(paramCount))
	for i, p := range params {
		assert.Equal(t, ParameterAddress(i), p.Address)
		assert.LessOrEqual(t, p.Min, p.Default)
		assert.GreaterOrEqual(t, p.Max, p.Default)
	}

	info, ok := LookupParameter("windowSize")
	require.True(t, ok)
	assert.Equal(t, ParamWindowSize, info.Address)
	assert.True(t, info.Structural)
	assert.Equal(t, "gain", ParamGain.String())
	assert.Equal(t, "ParameterAddress(9)", ParameterAddress(9).String())

	_, ok = LookupParameter("volume")
	assert.False(t, ok)
}
