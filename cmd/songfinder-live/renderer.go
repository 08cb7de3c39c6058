package main

import (
	"encoding/binary"
	"math"

	"github.com/sirupsen/logrus"
	songfinder "github.com/tphakala/go-songfinder"
)

const bytesPerFloat32 = 4

// renderer bridges interleaved float32 device buffers and a Unit's
// per-channel Render. All buffers are allocated up front.
type renderer struct {
	unit     *songfinder.Unit
	channels int
	in       [][]float32
	out      [][]float32
	logger   logrus.FieldLogger
}

func newRenderer(unit *songfinder.Unit, channels, maxFrames int, logger logrus.FieldLogger) *renderer {
	r := &renderer{
		unit:     unit,
		channels: channels,
		in:       make([][]float32, channels),
		out:      make([][]float32, channels),
		logger:   logger,
	}
	for ch := range channels {
		r.in[ch] = make([]float32, maxFrames)
		r.out[ch] = make([]float32, maxFrames)
	}
	return r
}

// process is the device data callback. Blocks the renderer was not sized
// for, and render failures, produce silence.
func (r *renderer) process(output, input []byte, frameCount uint32) {
	frames := int(frameCount)
	need := frames * r.channels * bytesPerFloat32
	if frames > len(r.in[0]) || len(input) < need || len(output) < need {
		clear(output)
		return
	}

	deinterleaveBytes(input, r.in, frames)
	if err := r.unit.Render(r.in, r.out, frames); err != nil {
		r.logger.WithError(err).Debug("render failed")
		clear(output)
		return
	}
	interleaveBytes(r.out, output, frames)
}

// deinterleaveBytes splits interleaved little-endian float32 samples.
func deinterleaveBytes(src []byte, dst [][]float32, frames int) {
	channels := len(dst)
	for i := range frames {
		base := i * channels
		for ch := range channels {
			off := (base + ch) * bytesPerFloat32
			dst[ch][i] = math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
		}
	}
}

// interleaveBytes writes per-channel samples as interleaved little-endian
// float32.
func interleaveBytes(src [][]float32, dst []byte, frames int) {
	channels := len(src)
	for i := range frames {
		base := i * channels
		for ch := range channels {
			off := (base + ch) * bytesPerFloat32
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(src[ch][i]))
		}
	}
}
