package filter

import (
	"fmt"
	"math"
	"strings"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// WindowType selects the overlap-add synthesis window.
type WindowType int

const (
	// WindowHann is a Hann window without its zero end points, scaled so
	// that its segments sum to approximately one.
	WindowHann WindowType = iota

	// WindowCustom is the piecewise linear window whose segments sum to
	// exactly one: a triangle for even factors, a trapezoid for odd ones.
	WindowCustom
)

func (w WindowType) String() string {
	switch w {
	case WindowHann:
		return "hann"
	case WindowCustom:
		return "custom"
	default:
		return fmt.Sprintf("WindowType(%d)", int(w))
	}
}

// Valid reports whether w is a known window type.
func (w WindowType) Valid() bool {
	return w == WindowHann || w == WindowCustom
}

// ParseWindowType parses a window name. "songfinder" is accepted as an
// alias of "custom", and the numeric forms "0" and "1" are accepted too.
func ParseWindowType(s string) (WindowType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hann", "0":
		return WindowHann, nil
	case "custom", "songfinder", "1":
		return WindowCustom, nil
	default:
		return 0, fmt.Errorf("unknown window type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (w WindowType) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("unknown window type: %d", int(w))
	}
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *WindowType) UnmarshalText(text []byte) error {
	parsed, err := ParseWindowType(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// NewWindow builds an overlap-add window made of factor segments of
// segmentSize samples each.
func NewWindow(windowType WindowType, factor, segmentSize int) ([]float64, error) {
	if factor < minWindowFactor {
		return nil, fmt.Errorf("window factor must be >= %d: %d", minWindowFactor, factor)
	}
	if segmentSize < 1 {
		return nil, fmt.Errorf("window segment size must be positive: %d", segmentSize)
	}

	switch windowType {
	case WindowHann:
		return hannWindow(factor * segmentSize, factor), nil
	case WindowCustom:
		return customWindow(factor, segmentSize), nil
	default:
		return nil, fmt.Errorf("unknown window type: %v", windowType)
	}
}

// hannWindow returns the symmetric Hann window of length size+2 with its
// leading and trailing zeros removed, scaled by 1/factor.
func hannWindow(size, factor int) []float64 {
	window := make([]float64, size)
	phase := 2 * math.Pi / float64(size+1)
	for i := range window {
		window[i] = 1 - math.Cos(phase*float64(i+1))
	}
	vecmath.ScaleBlock(window, window, 1/float64(factor))
	return window
}

func customWindow(factor, segmentSize int) []float64 {
	size := factor * segmentSize
	window := make([]float64, size)

	if factor%2 == 0 {
		half := size / 2
		step := 1 / float64(half+1) / float64(factor/2)
		for i := range half {
			x := float64(i+1) * step
			window[i] = x
			window[size-1-i] = x
		}
		return window
	}

	// Odd factors ramp up over the first segment, ramp down over the last,
	// and hold 1/2 in between.
	step := 0.5 / float64(segmentSize+1)
	for i := range size {
		window[i] = 0.5
	}
	for i := range segmentSize {
		x := float64(i+1) * step
		window[i] = x
		window[size-1-i] = x
	}
	return window
}

// Envelope returns the sum of the factor segments of window, i.e. the gain
// the overlap-adder applies to a constant input in steady state.
func Envelope(window []float64, factor int) []float64 {
	if factor < 1 || len(window) == 0 {
		return nil
	}
	segmentSize := len(window) / factor
	envelope := make([]float64, segmentSize)
	for k := range factor {
		vecmath.AddBlockInPlace(envelope, window[k*segmentSize:(k+1)*segmentSize])
	}
	return envelope
}
