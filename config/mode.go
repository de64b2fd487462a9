package config

import (
	"os"
	"strings"
)

// EnvModeKey is the environment variable selecting the config overlay.
const EnvModeKey = "GO_ENV_MODE"

// Mode is the environment a process runs in.
type Mode string

const (
	DevMode  Mode = "development"
	ProMode  Mode = "production"
	TestMode Mode = "test"
)

// ParseMode normalizes an environment name, defaulting to DevMode.
func ParseMode(env string) Mode {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// CurrentMode reads the mode from GO_ENV_MODE.
func CurrentMode() Mode {
	return ParseMode(os.Getenv(EnvModeKey))
}

// aliases returns the extra file suffixes accepted for a mode.
func (m Mode) aliases() []string {
	switch m {
	case DevMode:
		return []string{"dev", "development"}
	case ProMode:
		return []string{"pro", "prod", "production"}
	case TestMode:
		return []string{"test"}
	}
	return nil
}
