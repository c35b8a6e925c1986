// CLAUDE:SUMMARY Defines xptrail config structs and parses YAML configuration files with defaults.
// Package config holds xptrail configuration, loaded from YAML or built in
// code, with defaults applied for every zero field.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level xptrail configuration.
type Config struct {
	BaseURL             string `yaml:"base_url"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
	WaitTimeoutMs       int    `yaml:"wait_timeout_ms"`
	RefreshDelayMs      int    `yaml:"refresh_delay_ms"`
	CallTimeoutMs       int    `yaml:"call_timeout_ms"`
	// Timezone is the observer's IANA zone. Empty = process local zone.
	Timezone  string          `yaml:"timezone"`
	Browser   BrowserConfig   `yaml:"browser"`
	Selectors SelectorsConfig `yaml:"selectors"`
}

// BrowserConfig controls the Chrome instance owned by each session.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"` // ws:// URL, empty = launch locally
	Bin              string   `yaml:"bin"`
	Headless         *bool    `yaml:"headless"`
	Stealth          *bool    `yaml:"stealth"`
	NoSandbox        bool     `yaml:"no_sandbox"`
	ResourceBlocking []string `yaml:"resource_blocking"`
}

// SelectorsConfig locates the page elements. Values starting with "/" or
// "(" are XPath, everything else is CSS.
type SelectorsConfig struct {
	Refresh     string `yaml:"refresh"`
	ProfileName string `yaml:"profile_name"`
	UTCOffset   string `yaml:"utc_offset"`
	RawButton   string `yaml:"raw_button"`
	RawLog      string `yaml:"raw_log"`
	Canvas      string `yaml:"canvas"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://duome.eu"
	}
	if c.NavigationTimeoutMs <= 0 {
		c.NavigationTimeoutMs = 15000
	}
	if c.WaitTimeoutMs <= 0 {
		c.WaitTimeoutMs = 10000
	}
	if c.RefreshDelayMs <= 0 {
		c.RefreshDelayMs = 5000
	}
	if c.CallTimeoutMs <= 0 {
		c.CallTimeoutMs = 90000
	}
	if c.Browser.Headless == nil {
		c.Browser.Headless = boolPtr(true)
	}
	if c.Browser.Stealth == nil {
		c.Browser.Stealth = boolPtr(true)
	}
	if c.Browser.ResourceBlocking == nil {
		c.Browser.ResourceBlocking = []string{"fonts", "media"}
	}

	s := &c.Selectors
	if s.Refresh == "" {
		s.Refresh = "a#update, a.update"
	}
	if s.ProfileName == "" {
		s.ProfileName = "h3 span.json-name"
	}
	if s.UTCOffset == "" {
		s.UTCOffset = "/html/body/div[4]/h4/span"
	}
	if s.RawButton == "" {
		s.RawButton = "a.btn.q.raw"
	}
	if s.RawLog == "" {
		s.RawLog = "#raw"
	}
	if s.Canvas == "" {
		s.Canvas = "#myCanvas"
	}
}

func (c *Config) NavigationTimeout() time.Duration { return ms(c.NavigationTimeoutMs) }
func (c *Config) WaitTimeout() time.Duration       { return ms(c.WaitTimeoutMs) }
func (c *Config) RefreshDelay() time.Duration      { return ms(c.RefreshDelayMs) }
func (c *Config) CallTimeout() time.Duration       { return ms(c.CallTimeoutMs) }

// Location resolves Timezone. Empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.ApplyDefaults()
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func boolPtr(b bool) *bool { return &b }
