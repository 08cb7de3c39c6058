package songfinder

import (
	"fmt"
	"math"
	"sync/atomic"
)

// ParameterAddress identifies a host parameter.
type ParameterAddress uint32

// Host parameters, in parameter tree order.
const (
	ParamCutoff ParameterAddress = iota
	ParamPitchShift
	ParamWindowType
	ParamWindowSize
	ParamGain
	ParamBalance

	paramCount
)

// ParameterInfo describes one host parameter.
type ParameterInfo struct {
	Address    ParameterAddress
	Identifier string
	Name       string
	Unit       string
	Min        float32
	Max        float32
	Default    float32

	// Structural parameters take effect at the next
	// AllocateRenderResources; the others apply on the next Render.
	Structural bool
}

var parameterTree = [paramCount]ParameterInfo{
	ParamCutoff: {
		Address: ParamCutoff, Identifier: "cutoff", Name: "Cutoff", Unit: "Hz",
		Min: minCutoffParam, Max: maxCutoffParam, Default: DefaultCutoff, Structural: true,
	},
	ParamPitchShift: {
		Address: ParamPitchShift, Identifier: "pitchShift", Name: "Pitch Shift",
		Min: minPitchShiftParam, Max: maxPitchShiftParam, Default: DefaultPitchShift, Structural: true,
	},
	ParamWindowType: {
		Address: ParamWindowType, Identifier: "windowType", Name: "Window Type",
		Min: minWindowTypeParam, Max: maxWindowTypeParam, Default: float32(WindowHann), Structural: true,
	},
	ParamWindowSize: {
		Address: ParamWindowSize, Identifier: "windowSize", Name: "Window Size", Unit: "ms",
		Min: minWindowSizeParam, Max: maxWindowSizeParam, Default: DefaultWindowSize * msPerSecond, Structural: true,
	},
	ParamGain: {
		Address: ParamGain, Identifier: "gain", Name: "Gain", Unit: "dB",
		Min: minGainParam, Max: maxGainParam,
	},
	ParamBalance: {
		Address: ParamBalance, Identifier: "balance", Name: "Balance", Unit: "dB",
		Min: minBalanceParam, Max: maxBalanceParam,
	},
}

// Parameters returns the parameter tree.
func Parameters() []ParameterInfo {
	out := make([]ParameterInfo, len(parameterTree))
	copy(out, parameterTree[:])
	return out
}

// LookupParameter finds a parameter by identifier.
func LookupParameter(identifier string) (ParameterInfo, bool) {
	for _, info := range parameterTree {
		if info.Identifier == identifier {
			return info, true
		}
	}
	return ParameterInfo{}, false
}

func (a ParameterAddress) String() string {
	if a < paramCount {
		return parameterTree[a].Identifier
	}
	return fmt.Sprintf("ParameterAddress(%d)", uint32(a))
}

// parameterSet stores parameter goal values as float bits so a control
// goroutine can write them while the render goroutine reads.
type parameterSet struct {
	values [paramCount]atomic.Uint32
}

func newParameterSet() *parameterSet {
	s := &parameterSet{}
	for _, info := range parameterTree {
		s.store(info.Address, info.Default)
	}
	return s
}

func (s *parameterSet) store(addr ParameterAddress, value float32) {
	s.values[addr].Store(math.Float32bits(value))
}

func (s *parameterSet) load(addr ParameterAddress) float32 {
	return math.Float32frombits(s.values[addr].Load())
}

// set clamps value to the parameter range and stores it.
func (s *parameterSet) set(addr ParameterAddress, value float32) error {
	if addr >= paramCount {
		return fmt.Errorf("%w: %v", ErrUnknownParameter, addr)
	}
	if math.IsNaN(float64(value)) {
		return fmt.Errorf("parameter %v: value is NaN", addr)
	}
	info := parameterTree[addr]
	s.store(addr, min(max(value, info.Min), info.Max))
	return nil
}

// config snapshots the structural parameters.
func (s *parameterSet) config(channels, maxFrames int) Config {
	return Config{
		MaxInputSize: maxFrames,
		Cutoff:       snapCutoff(s.load(ParamCutoff)),
		PitchShift:   int(math.Round(float64(s.load(ParamPitchShift)))),
		WindowType:   WindowType(math.Round(float64(s.load(ParamWindowType)))),
		WindowSize:   math.Round(float64(s.load(ParamWindowSize))) / msPerSecond,
		Channels:     channels,
	}
}

// snapCutoff maps a continuous cutoff value to the nearest available
// highpass, or to 0 (off) when that is nearer.
func snapCutoff(value float32) int {
	best := 0
	bestDist := math.Abs(float64(value))
	for _, c := range SupportedCutoffs() {
		if d := math.Abs(float64(value) - float64(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
