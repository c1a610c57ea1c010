// Package config handles smldaq configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// searchPathsFunc is indirected so tests can override it without
// touching the real filesystem search order.
var searchPathsFunc = DefaultSearchPaths

// DefaultSearchPaths returns the config file search order:
// ./config.yaml, ~/.config/smldaq/config.yaml, /config/config.yaml,
// /etc/smldaq/config.yaml. FindConfig checks an explicit path (from the
// -config flag) before any of these.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "smldaq", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/smldaq/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches searchPathsFunc and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	paths := searchPathsFunc()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", paths)
}

// Config holds all smldaq configuration: the meter list, the listen
// addresses for the TCP/HTTP/websocket surfaces, the persistent log
// destination, and the log level.
type Config struct {
	Meters      []MeterConfig `yaml:"meters"`
	Listen      ListenConfig  `yaml:"listen"`
	DatabasePath string       `yaml:"database_path"`
	LogInterval time.Duration `yaml:"log_interval"`
	LogLevel    string        `yaml:"log_level"`
}

// ListenConfig defines the bind addresses for the daemon's network
// surfaces: a raw framed server, a power-only raw server, an HTML
// server, an HTML power-only server, and a websocket push server.
type ListenConfig struct {
	Raw        string `yaml:"raw"`
	RawPower   string `yaml:"raw_power"`
	HTML       string `yaml:"html"`
	HTMLPower  string `yaml:"html_power"`
	WebSocket  string `yaml:"websocket"`
}

// PositionType is the expected payload type of a configured measurement
// position.
type PositionType string

const (
	PositionNumber PositionType = "number"
	PositionString PositionType = "string"
	PositionNull   PositionType = "null"
)

// PositionConfig names one measured quantity to extract from a meter's
// telegrams: an OBIS code, a human label, and the expected value type.
type PositionConfig struct {
	Obis  string       `yaml:"obis"`  // hex-encoded 6-byte OBIS code, e.g. "0100010800ff"
	Label string       `yaml:"label"`
	Type  PositionType `yaml:"type"`
}

// MeterConfig describes one configured EDL21 meter: its dense index in
// the meter system, a human name, the serial device path, and up to
// four measured positions.
type MeterConfig struct {
	Index        uint32           `yaml:"index"`
	Name         string           `yaml:"name"`
	SerialDevice string           `yaml:"serial_device"`
	Positions    []PositionConfig `yaml:"positions"`
}

// MaxPositions is the maximum number of measured positions per meter.
const MaxPositions = 4

// Load reads configuration from a YAML file and validates the result.
// After Load returns successfully, all fields are usable without
// additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.DatabasePath == "" {
		c.DatabasePath = "./smldaq.db"
	}
	if c.LogInterval == 0 {
		c.LogInterval = 10 * time.Second
	}
	if c.Listen.Raw == "" {
		c.Listen.Raw = ":5000"
	}
	if c.Listen.RawPower == "" {
		c.Listen.RawPower = ":5001"
	}
	if c.Listen.HTML == "" {
		c.Listen.HTML = ":8080"
	}
	if c.Listen.HTMLPower == "" {
		c.Listen.HTMLPower = ":8081"
	}
	if c.Listen.WebSocket == "" {
		c.Listen.WebSocket = ":8082"
	}
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults, so it can assume defaults are populated.
// Meter indices must be dense and unique, and no meter may declare
// more than MaxPositions.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if len(c.Meters) == 0 {
		return nil
	}
	seen := make([]bool, len(c.Meters))
	for _, m := range c.Meters {
		if len(m.Positions) > MaxPositions {
			return fmt.Errorf("meter %d (%s): %d positions exceeds max %d", m.Index, m.Name, len(m.Positions), MaxPositions)
		}
		if int(m.Index) >= len(c.Meters) {
			return fmt.Errorf("meter index %d out of dense range 0..%d", m.Index, len(c.Meters)-1)
		}
		if seen[m.Index] {
			return fmt.Errorf("duplicate meter index %d", m.Index)
		}
		seen[m.Index] = true
	}
	return nil
}
