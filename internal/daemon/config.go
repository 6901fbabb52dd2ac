// Package daemon holds process-level wiring shared by every command:
// the TOML configuration and the zap logger built from it.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tutu-network/ledger/internal/domain"
)

// Config is the full ledger configuration.
//
//	[input]
//	strict = false
//
//	[output]
//	places = 4
//	sqlite_path = ""
//
//	[log]
//	level = "warn"
//	format = "json"
//
//	[serve]
//	addr = "127.0.0.1:8088"
//	metrics = true
type Config struct {
	Input  InputConfig  `toml:"input"`
	Output OutputConfig `toml:"output"`
	Log    LogConfig    `toml:"log"`
	Serve  ServeConfig  `toml:"serve"`
}

// InputConfig controls how the transaction log is read.
type InputConfig struct {
	Strict bool `toml:"strict"` // fail the run on the first malformed row
}

// OutputConfig controls the final snapshot sinks.
type OutputConfig struct {
	Places     int32  `toml:"places"`      // fractional digits printed for amounts
	SQLitePath string `toml:"sqlite_path"` // also export to this database when set
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json or console
}

// ServeConfig controls `ledger serve`.
type ServeConfig struct {
	Addr    string `toml:"addr"`
	Metrics bool   `toml:"metrics"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{Strict: false},
		Output: OutputConfig{
			Places: domain.AmountPlaces,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "json",
		},
		Serve: ServeConfig{
			Addr:    "127.0.0.1:8088",
			Metrics: true,
		},
	}
}

// LoadConfig overlays the TOML file at path onto the defaults.
// An empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Output.Places < 0 || c.Output.Places > 28 {
		return fmt.Errorf("%w: output.places must be between 0 and 28, got %d", ErrInvalidConfig, c.Output.Places)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.format must be json or console, got %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}
