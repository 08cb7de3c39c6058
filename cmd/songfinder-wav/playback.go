package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"
)

const (
	bytesPerFloat32  = 4
	playbackPollTime = 50 * time.Millisecond
)

// playWAV plays a WAV file through the default output device and returns
// when playback has finished.
func playWAV(path string, logger logrus.FieldLogger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for playback: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	pcm := encodeFloat32LE(buf.Data, getMaxValue(int(decoder.BitDepth)))

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   buf.Format.SampleRate,
		ChannelCount: buf.Format.NumChannels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(bytes.NewReader(pcm))
	defer func() { _ = player.Close() }()

	logger.WithField("frames", len(buf.Data)/max(buf.Format.NumChannels, 1)).Info("playing")
	player.Play()
	for player.IsPlaying() {
		time.Sleep(playbackPollTime)
	}

	return player.Err()
}

// encodeFloat32LE converts integer samples to little-endian float32 bytes.
func encodeFloat32LE(samples []int, maxVal float64) []byte {
	if maxVal == 0 {
		return nil
	}
	out := make([]byte, len(samples)*bytesPerFloat32)
	inv := 1.0 / maxVal
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*bytesPerFloat32:], math.Float32bits(float32(float64(s)*inv)))
	}
	return out
}
