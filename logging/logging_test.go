package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "", cfg.Director)
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.True(t, cfg.LogInTerminal)
}

func TestConfigTransportLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Config{Level: tt.level}
			assert.Equal(t, tt.expected, cfg.TransportLevel())
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	assert.Equal(t, "imgpipe", cfg.FileName)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, 100, cfg.MaxSize)
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Director = dir
	cfg.FileName = "run"
	cfg.Format = "json"
	cfg.LogInTerminal = false

	logger := NewLogger(cfg)
	logger.Info("batch finished", zap.Int("succeeded", 3))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "run.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"batch finished"`)
	assert.Contains(t, string(data), `"succeeded":3`)

	require.NoError(t, CloseAllWriters())
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Director = dir
	cfg.Level = "warn"
	cfg.LogInTerminal = false

	logger := NewLogger(cfg)
	logger.Info("hidden")
	logger.Warn("shown")

	data, err := os.ReadFile(filepath.Join(dir, "imgpipe.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")

	require.NoError(t, CloseAllWriters())
}

func TestLoggerDerivation(t *testing.T) {
	logger := NewNop()

	child := logger.With(zap.String("component", "test"))
	assert.NotSame(t, logger, child)
	assert.NotNil(t, logger.Named("processor"))
	assert.NotNil(t, logger.WithError(os.ErrNotExist))
	assert.NotNil(t, logger.Zap())
}

func TestSetGlobal(t *testing.T) {
	previous := Global()
	defer SetGlobal(previous)

	nop := NewNop()
	SetGlobal(nop)
	assert.Same(t, nop.Zap(), Global().Zap())

	Info("info message", zap.Int("count", 42))
	Warn("warn message")
	Error("error message")
	assert.NotNil(t, Named("pkg"))
}

func TestEncoderFormats(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = "json"

	core := zapcore.NewCore(GetEncoder(cfg), zapcore.AddSync(&buf), zapcore.InfoLevel)
	zap.New(core).Info("test message", zap.String("key", "value"))

	assert.Contains(t, buf.String(), `"message":"test message"`)
	assert.Contains(t, buf.String(), `"key":"value"`)

	cfg.Format = "console"
	assert.NotNil(t, GetEncoder(cfg))
}
