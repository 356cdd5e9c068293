package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	validatorV10 "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/leeforge/imgpipe/logging"
)

var validate = validatorV10.New()

func DefaultOptions() Options {
	basePath := os.Getenv("CONFIG_PATH")
	if basePath == "" {
		basePath = "config"
	}

	return Options{
		BasePath:  basePath,
		FileName:  "config",
		FileType:  "yaml",
		EnvPrefix: "IMGPIPE",
	}
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{Log: logging.DefaultConfig()}
	_ = defaults.Set(&cfg)
	return cfg
}

// Load merges every config file found for the current environment mode,
// applies environment overrides, fills defaults and validates the result.
// Missing files are not an error.
func Load(optsArr ...Options) (Config, error) {
	opts := DefaultOptions()
	if len(optsArr) > 0 {
		opts = optsArr[0]
	}

	v, err := newViper(opts)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("❌ Failed to unmarshal config (path: %s, file: %s.%s): %w",
			opts.BasePath, opts.FileName, opts.FileType, err)
	}

	if err := defaults.Set(&cfg); err != nil {
		return Config{}, fmt.Errorf("❌ Failed to set defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the struct tags of the pipeline section.
func (c Config) Validate() error {
	if err := validate.Struct(c.Pipeline); err != nil {
		return fmt.Errorf("❌ Config validation failed: %w", err)
	}
	return nil
}

func newViper(opts Options) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType(opts.FileType)

	// Known keys must exist for AutomaticEnv to resolve them.
	def := Default()
	v.SetDefault("pipeline.concurrency", def.Pipeline.Concurrency)
	v.SetDefault("pipeline.scheduler", def.Pipeline.Scheduler)
	v.SetDefault("pipeline.output-dir", def.Pipeline.OutputDir)
	v.SetDefault("pipeline.pattern", def.Pipeline.Pattern)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.director", def.Log.Director)
	v.SetDefault("log.log-in-terminal", def.Log.LogInTerminal)

	for _, path := range configFilePaths(opts) {
		tempV := viper.New()
		tempV.SetConfigFile(path)
		if err := tempV.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("❌ Error reading config file %s: %w", path, err)
		}
		if err := v.MergeConfigMap(tempV.AllSettings()); err != nil {
			return nil, fmt.Errorf("❌ Error merging config file %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()

	return v, nil
}

// configFilePaths returns existing files in merge order: base, local, then
// the environment-specific overlays.
func configFilePaths(opts Options) []string {
	names := []string{opts.FileName, opts.FileName + ".local"}
	for _, suffix := range modeSuffixes(Mode()) {
		names = append(names,
			fmt.Sprintf("%s.%s", opts.FileName, suffix),
			fmt.Sprintf("%s.%s.local", opts.FileName, suffix),
		)
	}

	var files []string
	for _, name := range names {
		file := filepath.Join(opts.BasePath, fmt.Sprintf("%s.%s", name, opts.FileType))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			files = append(files, file)
		}
	}
	return files
}
