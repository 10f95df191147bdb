package driver

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the driver configuration, read from litho.toml when one is
// present next to the inputs.
type Config struct {
	// Jobs limits concurrent snapshot loads; zero means one per CPU.
	Jobs        int               `toml:"jobs"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Cache       CacheConfig       `toml:"cache"`
}

type DiagnosticsConfig struct {
	// Max caps stored diagnostics per input file.
	Max       int    `toml:"max"`
	Color     string `toml:"color"` // auto | on | off
	ShowNotes bool   `toml:"show_notes"`
}

type CacheConfig struct {
	Enabled bool `toml:"enabled"`
	// Dir overrides the XDG cache location; empty means the default.
	Dir string `toml:"dir"`
}

func DefaultConfig() Config {
	return Config{
		Diagnostics: DiagnosticsConfig{Max: 100, Color: "auto", ShowNotes: true},
		Cache:       CacheConfig{Enabled: true},
	}
}

// LoadConfig reads a config file, falling back to defaults when the
// file does not exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) // #nosec G304 -- path is provided by the caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("driver: parse %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Diagnostics.Color {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("driver: diagnostics.color must be auto, on or off, got %q", c.Diagnostics.Color)
	}
	if c.Diagnostics.Max <= 0 {
		return errors.New("driver: diagnostics.max must be positive")
	}
	if c.Jobs < 0 {
		return errors.New("driver: jobs must not be negative")
	}
	return nil
}
