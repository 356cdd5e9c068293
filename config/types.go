package config

import (
	"github.com/leeforge/imgpipe/logging"
)

// Config is the application configuration.
type Config struct {
	Log      logging.Config `mapstructure:"log"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	// Concurrency caps in-flight images per batch; 0 means GOMAXPROCS at call time.
	Concurrency int `mapstructure:"concurrency" validate:"gte=0"`

	// Scheduler is the batch scheduling strategy: window or stream.
	Scheduler string `mapstructure:"scheduler" default:"window" validate:"oneof=window stream"`

	// OutputDir is used when a descriptor does not name an output directory.
	OutputDir string `mapstructure:"output-dir" default:"output" validate:"required"`

	// Pattern is used when a descriptor does not name an output pattern.
	Pattern string `mapstructure:"pattern" default:"{base}_{width}x{height}.{ext}"`

	// FormatFallbacks maps an output format the codec cannot encode to one it can.
	FormatFallbacks map[string]string `mapstructure:"format-fallbacks" validate:"dive,keys,oneof=jpg png webp avif tiff,endkeys,oneof=jpg png webp avif tiff"`
}

// Options controls where configuration files are looked up.
type Options struct {
	BasePath  string
	FileName  string
	FileType  string
	EnvPrefix string
}
