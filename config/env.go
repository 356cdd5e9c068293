package config

import (
	"os"
	"strings"
)

const EnvModeKey = "GO_ENV_MODE"

type EnvMode string

const (
	DevMode  EnvMode = "development"
	ProMode  EnvMode = "production"
	TestMode EnvMode = "test"
)

func ParseEnv(env string) EnvMode {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// Mode reads the environment mode on every call so tests can switch it.
func Mode() EnvMode {
	return ParseEnv(os.Getenv(EnvModeKey))
}

// modeSuffixes lists the file name suffixes tried for a mode, most generic first.
func modeSuffixes(mode EnvMode) []string {
	switch mode {
	case ProMode:
		return []string{"production", "prod"}
	case TestMode:
		return []string{"test"}
	default:
		return []string{"development", "dev"}
	}
}
