package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"
	songfinder "github.com/tphakala/go-songfinder"
	"github.com/tphakala/go-songfinder/internal/analysis"
)

const (
	monoChannels   = 1
	stereoChannels = 2

	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0

	wavFormatPCM = 1

	// Samples kept from the end of each stream for frequency analysis.
	analysisSize = 8192
)

var errUnsupportedWAV = errors.New("unsupported WAV file")

// wavInputInfo holds validated input file information.
type wavInputInfo struct {
	file     *os.File
	decoder  *wav.Decoder
	channels int
	bitDepth int
	format   *audio.Format
}

// openWAVInput opens a WAV file and checks that the engine can process it.
func openWAVInput(path string, logger logrus.FieldLogger) (*wavInputInfo, error) {
	inputFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	decoder := wav.NewDecoder(inputFile)
	if !decoder.IsValidFile() {
		_ = inputFile.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	logger.WithFields(logrus.Fields{
		"sample_rate": format.SampleRate,
		"channels":    format.NumChannels,
		"bit_depth":   bitDepth,
	}).Debug("input format")

	if err := checkInputFormat(format.SampleRate, bitDepth, int(decoder.WavAudioFormat)); err != nil {
		_ = inputFile.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &wavInputInfo{
		file:     inputFile,
		decoder:  decoder,
		channels: format.NumChannels,
		bitDepth: bitDepth,
		format:   format,
	}, nil
}

// checkInputFormat rejects files the fixed-rate integer pipeline cannot take.
func checkInputFormat(sampleRate, bitDepth, audioFormat int) error {
	if sampleRate != songfinder.SampleRate {
		return fmt.Errorf("%w: sample rate %d Hz, need %d Hz", errUnsupportedWAV, sampleRate, songfinder.SampleRate)
	}
	if audioFormat != wavFormatPCM {
		return fmt.Errorf("%w: audio format %d, need integer PCM", errUnsupportedWAV, audioFormat)
	}
	if getMaxValue(bitDepth) == 0 {
		return fmt.Errorf("%w: %d-bit samples", errUnsupportedWAV, bitDepth)
	}
	return nil
}

// Close closes the input file.
func (w *wavInputInfo) Close() error {
	return w.file.Close()
}

// wavOutputWriter wraps the output file and its encoder.
type wavOutputWriter struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
}

// createWAVOutput creates the output file and encoder.
func createWAVOutput(path string, bitDepth, channels int) (*wavOutputWriter, error) {
	outputFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &wavOutputWriter{
		file:    outputFile,
		encoder: wav.NewEncoder(outputFile, songfinder.SampleRate, bitDepth, channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: songfinder.SampleRate},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// WriteSamples writes interleaved samples.
func (w *wavOutputWriter) WriteSamples(samples []int) error {
	w.buf.Data = samples
	return w.encoder.Write(w.buf)
}

// Close finalizes the WAV header and closes the file.
func (w *wavOutputWriter) Close() error {
	if err := w.encoder.Close(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// shiftBuffers holds all preallocated buffers for one block.
type shiftBuffers struct {
	intBuffer    *audio.IntBuffer
	input        [][]float32
	output       [][]float32
	outputIntBuf []int
	invMaxVal    float64
	maxVal       float64
}

// newShiftBuffers preallocates buffers for blocks of up to blockSize frames.
func newShiftBuffers(channels, bitDepth, blockSize int, format *audio.Format) *shiftBuffers {
	input := make([][]float32, channels)
	output := make([][]float32, channels)
	for ch := range channels {
		input[ch] = make([]float32, blockSize)
		output[ch] = make([]float32, blockSize)
	}

	maxVal := getMaxValue(bitDepth)
	return &shiftBuffers{
		intBuffer: &audio.IntBuffer{
			Data:   make([]int, blockSize*channels),
			Format: format,
		},
		input:        input,
		output:       output,
		outputIntBuf: make([]int, blockSize*channels),
		invMaxVal:    1.0 / maxVal,
		maxVal:       maxVal,
	}
}

// getMaxValue returns the maximum sample value for the given bit depth, or
// zero if the depth is unsupported.
func getMaxValue(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample16:
		return maxInt16
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return 0
	}
}

// deinterleaveInto converts interleaved int samples into per-channel buffers.
func deinterleaveInto(data []int, channelBufs [][]float32, frames int, invMaxVal float64) {
	numChannels := len(channelBufs)

	if numChannels == monoChannels {
		buf := channelBufs[0]
		for i := range frames {
			buf[i] = float32(float64(data[i]) * invMaxVal)
		}
		return
	}

	if numChannels == stereoChannels {
		buf0, buf1 := channelBufs[0], channelBufs[1]
		for i := range frames {
			idx := i * stereoChannels
			buf0[i] = float32(float64(data[idx]) * invMaxVal)
			buf1[i] = float32(float64(data[idx+1]) * invMaxVal)
		}
		return
	}

	for i := range frames {
		base := i * numChannels
		for ch := range numChannels {
			channelBufs[ch][i] = float32(float64(data[base+ch]) * invMaxVal)
		}
	}
}

// interleaveInto converts per-channel float samples into dst, clamping to
// full scale. Returns the number of elements written.
func interleaveInto(channels [][]float32, dst []int, frames int, maxVal float64) int {
	numChannels := len(channels)
	for i := range frames {
		base := i * numChannels
		for ch := range numChannels {
			sample := float64(channels[ch][i])
			if sample > 1.0 {
				sample = 1.0
			} else if sample < -1.0 {
				sample = -1.0
			}
			dst[base+ch] = int(sample * maxVal)
		}
	}
	return frames * numChannels
}

// processChannels runs one block through every channel of proc.
func processChannels(proc *songfinder.Processor, input, output [][]float32, frames int, parallel bool) error {
	if !parallel || len(input) == monoChannels {
		for ch := range input {
			if err := proc.ProcessChannel(ch, input[ch][:frames], output[ch][:frames]); err != nil {
				return err
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(input))
	for ch := range input {
		wg.Add(1)
		go func(channel int) {
			defer wg.Done()
			errs[channel] = proc.ProcessChannel(channel, input[channel][:frames], output[channel][:frames])
		}(ch)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// tailRecorder keeps the most recent samples of a stream.
type tailRecorder struct {
	samples []float64
	size    int
}

func newTailRecorder(size int) *tailRecorder {
	return &tailRecorder{samples: make([]float64, 0, 2*size), size: size}
}

func (r *tailRecorder) push(block []float32) {
	for _, v := range block {
		r.samples = append(r.samples, float64(v))
	}
	if len(r.samples) > r.size {
		n := copy(r.samples, r.samples[len(r.samples)-r.size:])
		r.samples = r.samples[:n]
	}
}

func (r *tailRecorder) dominantFrequency() (float64, error) {
	if len(r.samples) == 0 {
		return 0, nil
	}
	// Short recordings are zero-padded to the analysis size.
	a, err := analysis.NewAnalyzer(r.size)
	if err != nil {
		return 0, err
	}
	return a.DominantFrequency(r.samples, songfinder.SampleRate), nil
}

type shiftOptions struct {
	parallel bool
	analyze  bool
}

type shiftStats struct {
	channels        int
	bitDepth        int
	inputFrames     int64
	outputFrames    int64
	latency         int
	zeroFills       uint64
	degraded        uint64
	inputFrequency  float64
	outputFrequency float64
}

// shiftWAV lowers the pitch of inputPath and writes the result to outputPath.
func shiftWAV(inputPath, outputPath string, cfg songfinder.Config, opts shiftOptions, logger logrus.FieldLogger) (stats *shiftStats, err error) {
	input, err := openWAVInput(inputPath, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = input.Close() }()

	cfg.Channels = input.channels
	proc, err := songfinder.New(&cfg, songfinder.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := proc.Prime(); err != nil {
		return nil, err
	}

	output, err := createWAVOutput(outputPath, input.bitDepth, input.channels)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := output.Close(); err == nil {
			err = closeErr
		}
	}()

	buffers := newShiftBuffers(input.channels, input.bitDepth, cfg.MaxInputSize, input.format)
	stats = &shiftStats{
		channels: input.channels,
		bitDepth: input.bitDepth,
		latency:  proc.Latency(),
	}

	var inTail, outTail *tailRecorder
	if opts.analyze {
		inTail = newTailRecorder(analysisSize)
		outTail = newTailRecorder(analysisSize)
	}

	writeBlock := func(frames int) error {
		if err := processChannels(proc, buffers.input, buffers.output, frames, opts.parallel); err != nil {
			return err
		}
		n := interleaveInto(buffers.output, buffers.outputIntBuf, frames, buffers.maxVal)
		if err := output.WriteSamples(buffers.outputIntBuf[:n]); err != nil {
			return fmt.Errorf("failed to write audio data: %w", err)
		}
		stats.outputFrames += int64(frames)
		if outTail != nil {
			outTail.push(buffers.output[0][:frames])
		}
		return nil
	}

	for {
		n, err := input.decoder.PCMBuffer(buffers.intBuffer)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read audio data: %w", err)
		}
		frames := n / input.channels
		if frames == 0 {
			break
		}

		deinterleaveInto(buffers.intBuffer.Data[:n], buffers.input, frames, buffers.invMaxVal)
		stats.inputFrames += int64(frames)
		if inTail != nil {
			inTail.push(buffers.input[0][:frames])
		}

		if err := writeBlock(frames); err != nil {
			return nil, err
		}
	}

	// Drain the latency with silence so the end of the input is heard.
	for ch := range buffers.input {
		clear(buffers.input[ch])
	}
	for remaining := stats.latency; remaining > 0; {
		frames := min(remaining, cfg.MaxInputSize)
		if err := writeBlock(frames); err != nil {
			return nil, err
		}
		remaining -= frames
	}

	procStats := proc.Stats()
	stats.zeroFills = procStats.ZeroFills
	stats.degraded = procStats.Degraded

	if opts.analyze {
		if stats.inputFrequency, err = inTail.dominantFrequency(); err != nil {
			return nil, err
		}
		if stats.outputFrequency, err = outTail.dominantFrequency(); err != nil {
			return nil, err
		}
	}

	logger.WithFields(logrus.Fields{
		"input_frames":  stats.inputFrames,
		"output_frames": stats.outputFrames,
		"zero_fills":    stats.zeroFills,
		"degraded":      stats.degraded,
	}).Info("processing complete")

	return stats, nil
}
