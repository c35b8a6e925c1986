package tracker

import "github.com/hazyhaar/xptrail/tracker/internal/config"

// Config is the top-level xptrail configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls the Chrome instance behind each extraction.
type BrowserConfig = config.BrowserConfig

// SelectorsConfig locates the profile page elements.
type SelectorsConfig = config.SelectorsConfig

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
