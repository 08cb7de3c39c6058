// Command songfinder-wav lowers the pitch of a 48 kHz WAV file.
//
// Usage:
//
//	songfinder-wav input.wav output.wav
//	songfinder-wav -pitch 3 -cutoff 3000 input.wav output.wav
//	songfinder-wav -window hann -window-ms 30 input.wav output.wav
//	songfinder-wav -config songfinder.yaml -analyze -play input.wav out.wav
//
// Channels are processed concurrently by default. The output is longer than
// the input by the processing latency so the tail of the recording is kept.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"
	songfinder "github.com/tphakala/go-songfinder"
)

const (
	minRequiredArgs = 2
	msPerSecond     = 1000.0
)

var errUsage = errors.New("insufficient arguments")

type cliFlags struct {
	configPath string
	pitch      int
	cutoff     int
	window     string
	windowMs   float64
	block      int
	parallel   bool
	analyze    bool
	play       bool
	verbose    bool
	cpuprofile string
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
	flag.IntVar(&f.block, "block", defaults.MaxInputSize, "Frames per processing block")
	flag.BoolVar(&f.parallel, "parallel", true, "Process channels concurrently")
	flag.BoolVar(&f.analyze, "analyze", false, "Report the dominant frequency of input and output")
	flag.BoolVar(&f.play, "play", false, "Play the output after processing")
	flag.BoolVar(&f.verbose, "v", false, "Verbose output")
	flag.StringVar(&f.cpuprofile, "cpuprofile", "", "Write CPU profile to file")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav output.wav\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s warbler.wav warbler_low.wav                 # One octave down\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -pitch 3 -cutoff 3000 in.wav out.wav        # Third, highpassed\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -analyze -play kinglet.wav kinglet_low.wav  # Check and listen\n", os.Args[0])
		return errUsage
	}

	cfg, err := resolveConfig(&f, visitedFlags())
	if err != nil {
		return err
	}

	logger, closer, err := cfg.Logging.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	if f.cpuprofile != "" {
		pf, err := os.Create(f.cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(pf); err != nil {
			_ = pf.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = pf.Close()
		}()
	}

	inputPath, outputPath := args[0], args[1]
	logger.WithFields(logrus.Fields{
		"input":       inputPath,
		"output":      outputPath,
		"pitch_shift": cfg.Engine.PitchShift,
		"cutoff":      cfg.Engine.Cutoff,
		"window_type": cfg.Engine.WindowType.String(),
		"window_ms":   cfg.Engine.WindowSize * msPerSecond,
		"block":       cfg.Engine.MaxInputSize,
		"parallel":    f.parallel,
	}).Debug("starting")

	start := time.Now()
	stats, err := shiftWAV(inputPath, outputPath, cfg.Engine, shiftOptions{
		parallel: f.parallel,
		analyze:  f.analyze,
	}, logger)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("Shifted %s -> %s\n", filepath.Base(inputPath), filepath.Base(outputPath))
	fmt.Printf("  Pitch /%d, %d channels, %d-bit, %s window %.0f ms\n",
		cfg.Engine.PitchShift, stats.channels, stats.bitDepth,
		cfg.Engine.WindowType, cfg.Engine.WindowSize*msPerSecond)
	fmt.Printf("  %d frames -> %d frames (latency %d)\n", stats.inputFrames, stats.outputFrames, stats.latency)
	fmt.Printf("  Duration: %.2fs, Speed: %.1fx realtime\n",
		elapsed.Seconds(),
		float64(stats.inputFrames)/songfinder.SampleRate/elapsed.Seconds())
	if stats.zeroFills > 0 || stats.degraded > 0 {
		fmt.Printf("  Warning: %d zero-filled and %d silenced blocks\n", stats.zeroFills, stats.degraded)
	}
	if f.analyze {
		fmt.Printf("  Dominant frequency: %.1f Hz -> %.1f Hz\n", stats.inputFrequency, stats.outputFrequency)
	}

	if f.play {
		return playWAV(outputPath, logger)
	}
	return nil
}

// visitedFlags returns the names of the flags set on the command line.
func visitedFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return set
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

	if f.configPath == "" || set["pitch"] {
		cfg.Engine.PitchShift = f.pitch
	}
	if f.configPath == "" || set["cutoff"] {
		cfg.Engine.Cutoff = f.cutoff
	}
	if f.configPath == "" || set["window"] {
		wt, err := songfinder.ParseWindowType(f.window)
		if err != nil {
			return nil, err
		}
		cfg.Engine.WindowType = wt
	}
	if f.configPath == "" || set["window-ms"] {
		cfg.Engine.WindowSize = f.windowMs / msPerSecond
	}
	if f.configPath == "" || set["block"] {
		cfg.Engine.MaxInputSize = f.block
	}
	if f.verbose {
		cfg.Logging.Level = logrus.DebugLevel.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
