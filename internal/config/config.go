package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/scrobblewatch/internal/observer"
	"github.com/llehouerou/scrobblewatch/internal/scrobble"
)

// Source kinds.
const (
	SourceMPRIS  = "mpris"
	SourceBridge = "bridge"
)

// Durations are TOML strings such as "5s" or "1m30s".
type Config struct {
	Observer ObserverConfig `koanf:"observer"`

	Scrobble ScrobbleConfig `koanf:"scrobble"`

	// Last.fm API credentials (enables scrobbling when configured)
	Lastfm LastfmConfig `koanf:"lastfm"`

	// Where track state is read from
	Source SourceConfig `koanf:"source"`

	Notify NotifyConfig `koanf:"notify"`

	Log LogConfig `koanf:"log"`
}

// ObserverConfig holds polling cadence and classification tolerances.
type ObserverConfig struct {
	ChangeInterval    time.Duration `koanf:"change_interval"`    // default: 5s
	SnapshotInterval  time.Duration `koanf:"snapshot_interval"`  // default: 1s
	SeekTolerance     time.Duration `koanf:"seek_tolerance"`     // default: 5s
	EndBuffer         time.Duration `koanf:"end_buffer"`         // default: 5s
	StartBuffer       time.Duration `koanf:"start_buffer"`       // default: 5s
	DuplicateCooldown time.Duration `koanf:"duplicate_cooldown"` // default: 2s
	MissedReads       int           `koanf:"missed_reads"`       // default: 2
}

// ScrobbleConfig holds the eligibility policy.
type ScrobbleConfig struct {
	Enabled        *bool         `koanf:"enabled"`          // default: true
	MinTrackLength time.Duration `koanf:"min_track_length"` // default: 30s
	Threshold      float64       `koanf:"threshold"`        // played fraction (0.0-1.0, default: 0.5)
	PlayedCap      time.Duration `koanf:"played_cap"`       // e.g. "4m", default: off
	DedupeWindow   time.Duration `koanf:"dedupe_window"`    // default: 30s
}

// LastfmConfig holds Last.fm scrobbling configuration.
type LastfmConfig struct {
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

// SourceConfig selects and configures the host surface.
type SourceConfig struct {
	Kind        string        `koanf:"kind"`         // "mpris" or "bridge" (default: "mpris")
	MprisPlayer string        `koanf:"mpris_player"` // bus name filter, e.g. "firefox" (default: any)
	BridgeAddr  string        `koanf:"bridge_addr"`  // default: "127.0.0.1:9848"
	StaleAfter  time.Duration `koanf:"stale_after"`  // bridge state older than this is ignored (default: 10s)
}

// NotifyConfig controls desktop notifications.
type NotifyConfig struct {
	Enabled bool `koanf:"enabled"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `koanf:"level"` // "debug", "info", "warn", "error" (default: "info")
	File  string `koanf:"file"`  // default: dated file under the XDG state dir
}

// Load reads the default config files.
func Load() (*Config, error) {
	return LoadFrom(getConfigPaths()...)
}

// LoadFrom reads the given files in order (last wins). Missing files are
// skipped.
func LoadFrom(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Source.Kind = strings.ToLower(strings.TrimSpace(cfg.Source.Kind))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File)
	}

	return cfg, nil
}

// DefaultPaths returns the files Load reads.
func DefaultPaths() []string {
	return getConfigPaths()
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/scrobblewatch/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "scrobblewatch", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasLastfmConfig returns true if Last.fm scrobbling is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// GetObserverConfig returns the observer policy with defaults applied.
func (c *Config) GetObserverConfig() observer.Config {
	d := observer.DefaultConfig()
	o := c.Observer
	pick := func(v, def time.Duration) time.Duration {
		if v <= 0 {
			return def
		}
		return v
	}

	cfg := observer.Config{
		ChangeInterval:    pick(o.ChangeInterval, d.ChangeInterval),
		SnapshotInterval:  pick(o.SnapshotInterval, d.SnapshotInterval),
		SeekTolerance:     pick(o.SeekTolerance, d.SeekTolerance),
		EndBuffer:         pick(o.EndBuffer, d.EndBuffer),
		StartBuffer:       pick(o.StartBuffer, d.StartBuffer),
		DuplicateCooldown: pick(o.DuplicateCooldown, d.DuplicateCooldown),
		MissedReads:       o.MissedReads,
	}
	if cfg.MissedReads <= 0 {
		cfg.MissedReads = d.MissedReads
	}
	// The snapshot must refresh more often than identity is checked.
	if cfg.SnapshotInterval >= cfg.ChangeInterval {
		cfg.SnapshotInterval = d.SnapshotInterval
		if cfg.SnapshotInterval >= cfg.ChangeInterval {
			cfg.SnapshotInterval = cfg.ChangeInterval / 2
		}
	}
	return cfg
}

// GetScrobbleSettings returns the eligibility policy with defaults applied.
func (c *Config) GetScrobbleSettings() scrobble.Settings {
	s := scrobble.DefaultSettings()
	sc := c.Scrobble

	if sc.Enabled != nil {
		s.Enabled = *sc.Enabled
	}
	if sc.MinTrackLength > 0 {
		s.MinTrackLength = sc.MinTrackLength
	}
	if sc.Threshold > 0 && sc.Threshold <= 1 {
		s.Threshold = sc.Threshold
	}
	if sc.PlayedCap > 0 {
		s.PlayedCap = sc.PlayedCap
	}
	if sc.DedupeWindow > 0 {
		s.DedupeWindow = sc.DedupeWindow
	}
	return s
}

// GetSourceConfig returns the source configuration with defaults applied.
func (c *Config) GetSourceConfig() SourceConfig {
	cfg := c.Source
	if cfg.Kind != SourceBridge {
		cfg.Kind = SourceMPRIS
	}
	if cfg.BridgeAddr == "" {
		cfg.BridgeAddr = "127.0.0.1:9848"
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Second
	}
	return cfg
}

// GetLogConfig returns the log configuration with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		cfg.Level = "info"
	}
	return cfg
}
