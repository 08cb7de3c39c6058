package songfinder

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML configuration file used by the command line tools.
type FileConfig struct {
	Engine  Config        `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DefaultFileConfig returns the defaults that a file overrides.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Engine: DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// LoadConfig reads, parses and validates a configuration file.
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses YAML on top of DefaultFileConfig and validates it.
func ParseConfig(data []byte) (*FileConfig, error) {
	cfg := DefaultFileConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates every section.
func (c *FileConfig) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("%w: level: %w", ErrInvalidConfig, err)
	}

	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: format must be 'json' or 'text', got '%s'", ErrInvalidConfig, l.Format)
	}

	return nil
}

// NewLogger builds a logrus logger from the configuration. A file output
// is opened for appending; the returned closer releases it.
func (l *LoggingConfig) NewLogger() (*logrus.Logger, io.Closer, error) {
	if err := l.Validate(); err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	level, _ := logrus.ParseLevel(l.Level)
	logger.SetLevel(level)

	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var closer io.Closer = nopCloser{}
	switch l.Output {
	case "", "stderr":
		logger.SetOutput(os.Stderr)
	case "stdout":
		logger.SetOutput(os.Stdout)
	default:
		f, err := os.OpenFile(l.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", l.Output, err)
		}
		logger.SetOutput(f)
		closer = f
	}

	return logger, closer, nil
}

// Marshal encodes the configuration as YAML.
func (c *FileConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

const logFileMode = 0o644
