// Command songfinder-live lowers the pitch of the default capture device
// and plays the result on the default playback device.
//
// Usage:
//
//	songfinder-live
//	songfinder-live -pitch 3 -cutoff 3000 -gain 6
//	songfinder-live -config songfinder.yaml -frames 256
//
// Press Ctrl-C to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/sirupsen/logrus"
	songfinder "github.com/tphakala/go-songfinder"
)

const (
	defaultFrames        = 512
	defaultPeriods       = 3
	defaultLevelInterval = 2 * time.Second
	msPerSecond          = 1000.0
)

type cliFlags struct {
	configPath    string
	pitch         int
	cutoff        int
	window        string
	windowMs      float64
	gain          float64
	balance       float64
	channels      int
	frames        int
	periods       int
	levelInterval time.Duration
	verbose       bool
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	defaults := songfinder.DefaultConfig()

	var f cliFlags
	flag.StringVar(&f.configPath, "config", "", "YAML configuration file (flags override its values)")
	flag.IntVar(&f.pitch, "pitch", defaults.PitchShift, "Pitch shift factor: 2, 3 or 4")
	flag.IntVar(&f.cutoff, "cutoff", defaults.Cutoff, "Highpass cutoff in Hz: 0 (off), 2000, 2500, 3000 or 4000")
	flag.StringVar(&f.window, "window", defaults.WindowType.String(), "Window type: hann or songfinder")
	flag.Float64Var(&f.windowMs, "window-ms", defaults.WindowSize*msPerSecond, "Window size in milliseconds (5 to 50)")
	flag.Float64Var(&f.gain, "gain", 0, "Output gain in dB (-20 to 20)")
	flag.Float64Var(&f.balance, "balance", 0, "Stereo balance in dB (-10 to 10, positive favors right)")
	flag.IntVar(&f.channels, "channels", defaults.Channels, "Capture and playback channels")
	flag.IntVar(&f.frames, "frames", defaultFrames, "Device period size in frames")
	flag.IntVar(&f.periods, "periods", defaultPeriods, "Device periods")
	flag.DurationVar(&f.levelInterval, "levels", defaultLevelInterval, "Interval between level reports (0 disables)")
	flag.BoolVar(&f.verbose, "v", false, "Verbose output")
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	cfg, err := resolveConfig(&f, set)
	if err != nil {
		return err
	}

	logger, closer, err := cfg.Logging.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	unit, err := newUnit(cfg.Engine, &f, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return runDevice(ctx, unit, cfg.Engine, f.periods, f.levelInterval, logger)
}

// resolveConfig loads the configuration file, if any, and applies the flags
// that were given explicitly on top of it.
func resolveConfig(f *cliFlags, set map[string]bool) (*songfinder.FileConfig, error) {
	cfg := songfinder.DefaultFileConfig()
	if f.configPath != "" {
		loaded, err := songfinder.LoadConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	override := func(name string) bool { return f.configPath == "" || set[name] }
	if override("pitch") {
		cfg.Engine.PitchShift = f.pitch
	}
	if override("cutoff") {
		cfg.Engine.Cutoff = f.cutoff
	}
	if override("window") {
		wt, err := songfinder.ParseWindowType(f.window)
		if err != nil {
			return nil, err
		}
		cfg.Engine.WindowType = wt
	}
	if override("window-ms") {
		cfg.Engine.WindowSize = f.windowMs / msPerSecond
	}
	if override("channels") {
		cfg.Engine.Channels = f.channels
	}
	if override("frames") {
		cfg.Engine.MaxInputSize = f.frames
	}
	if f.verbose {
		cfg.Logging.Level = logrus.DebugLevel.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newUnit creates a unit from the engine configuration and the level
// controls and allocates it for the device.
func newUnit(cfg songfinder.Config, f *cliFlags, logger logrus.FieldLogger) (*songfinder.Unit, error) {
	unit := songfinder.NewUnit(songfinder.WithLogger(logger))
	if err := unit.ApplyConfig(cfg); err != nil {
		return nil, err
	}
	if err := unit.SetParameter(songfinder.ParamGain, float32(f.gain)); err != nil {
		return nil, err
	}
	if err := unit.SetParameter(songfinder.ParamBalance, float32(f.balance)); err != nil {
		return nil, err
	}
	if err := unit.AllocateRenderResources(cfg.Channels, cfg.MaxInputSize); err != nil {
		return nil, err
	}
	return unit, nil
}

// runDevice streams capture through unit to playback until ctx is done.
func runDevice(ctx context.Context, unit *songfinder.Unit, cfg songfinder.Config, periods int, levelInterval time.Duration, logger logrus.FieldLogger) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug(strings.TrimSpace(message))
	})
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.PerformanceProfile = malgo.LowLatency
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = songfinder.SampleRate
	deviceConfig.PeriodSizeInFrames = uint32(cfg.MaxInputSize)
	deviceConfig.Periods = uint32(periods)
	deviceConfig.NoClip = 1

	r := newRenderer(unit, cfg.Channels, cfg.MaxInputSize, logger)
	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: r.process,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize audio device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start audio device: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"channels": cfg.Channels,
		"frames":   cfg.MaxInputSize,
		"latency":  unit.Processor().Latency(),
	}).Info("streaming, press Ctrl-C to stop")

	reportLevels(ctx, unit, levelInterval, logger)

	if err := device.Stop(); err != nil {
		return fmt.Errorf("failed to stop audio device: %w", err)
	}

	stats := unit.Processor().Stats()
	logger.WithFields(logrus.Fields{
		"blocks":     stats.Blocks,
		"zero_fills": stats.ZeroFills,
		"degraded":   stats.Degraded,
	}).Info("stopped")
	return nil
}

// reportLevels logs the output levels every interval until ctx is done.
func reportLevels(ctx context.Context, unit *songfinder.Unit, interval time.Duration, logger logrus.FieldLogger) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fields := logrus.Fields{}
			for ch, db := range unit.LevelsDB() {
				fields[fmt.Sprintf("ch%d_dbfs", ch)] = fmt.Sprintf("%.1f", db)
			}
			logger.WithFields(fields).Info("levels")
		}
	}
}
