package songfinder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	data := []byte(`
engine:
  max_input_size: 1024
  cutoff: 3000
  pitch_shift: 3
  window_type: songfinder
  window_size: 0.03
  channels: 1
logging:
  level: debug
  format: json
`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, Config{
		MaxInputSize: 1024,
		Cutoff:       3000,
		PitchShift:   3,
		WindowType:   WindowCustom,
		WindowSize:   0.03,
		Channels:     1,
	}, cfg.Engine)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output, "unset fields keep defaults")
}

func TestParseConfig_PartialKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("engine:\n  pitch_shift: 4\n"))
	require.NoError(t, err)

	want := DefaultConfig()
	want.PitchShift = 4
	assert.Equal(t, want, cfg.Engine)
}

func TestParseConfig_NumericWindowType(t *testing.T) {
	cfg, err := ParseConfig([]byte("engine:\n  window_type: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, WindowCustom, cfg.Engine.WindowType)
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"syntax", "engine: [unclosed"},
		{"window type", "engine:\n  window_type: hamming\n"},
		{"pitch shift", "engine:\n  pitch_shift: 8\n"},
		{"cutoff", "engine:\n  cutoff: 1500\n"},
		{"log level", "logging:\n  level: loud\n"},
		{"log format", "logging:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "songfinder.yaml")

	original := DefaultFileConfig()
	original.Engine.Cutoff = 2500
	original.Engine.WindowType = WindowCustom
	data, err := original.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, original, *loaded)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoggingConfig_NewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songfinder.log")
	l := LoggingConfig{Level: "warn", Format: "json", Output: path}

	logger, closer, err := l.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger.Warn("zero-fill")
	require.NoError(t, closer.Close())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), `"msg":"zero-fill"`)

	_, _, err = (&LoggingConfig{Level: "nope", Format: "text"}).NewLogger()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
