package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "cadence"

// Lyrics providers.
const (
	ProviderNetEase = "netease"
	ProviderLRCLib  = "lrclib"
	ProviderNone    = "none"
)

type Config struct {
	Playback PlaybackConfig `koanf:"playback"`
	Lyrics   LyricsConfig   `koanf:"lyrics"`
	Cursor   CursorConfig   `koanf:"cursor"`
	Log      LogConfig      `koanf:"log"`
	MPRIS    MPRISConfig    `koanf:"mpris"`
	Notify   NotifyConfig   `koanf:"notify"`

	// StatePath overrides the session database location.
	StatePath string `koanf:"state_path"`
}

// PlaybackConfig holds playback defaults for a fresh session.
type PlaybackConfig struct {
	Volume      *float64 `koanf:"volume"`       // 0.0-1.0 (default: 0.8)
	Mode        string   `koanf:"mode"`         // "list", "single", "random" (default: "list")
	HistorySize int      `koanf:"history_size"` // default: 50
}

// LyricsConfig holds lyric retrieval and alignment settings.
type LyricsConfig struct {
	Provider          string  `koanf:"provider"`            // "netease", "lrclib", "none" (default: "lrclib")
	APIBaseURL        string  `koanf:"api_base_url"`        // required for "netease"
	RequestsPerSecond float64 `koanf:"requests_per_second"` // default: 2
	ToleranceMS       int     `koanf:"tolerance_ms"`        // merge tolerance (default: 500)
	OffsetMS          int     `koanf:"offset_ms"`           // added to the playback time, may be negative
	Cache             *bool   `koanf:"cache"`               // default: true
	CachePath         string  `koanf:"cache_path"`
	CacheTTLDays      int     `koanf:"cache_ttl_days"` // 0 keeps entries forever
	ShowTranslation   *bool   `koanf:"show_translation"`
	ShowRomanization  *bool   `koanf:"show_romanization"`
}

// CursorConfig holds lyric font scale bounds.
type CursorConfig struct {
	ScaleStep float64 `koanf:"scale_step"` // default: 0.05
	MinScale  float64 `koanf:"min_scale"`  // default: 0.8
	MaxScale  float64 `koanf:"max_scale"`  // default: 1.4
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`  // default: "info"
	Format string `koanf:"format"` // "text" or "json" (default: "text")
	File   string `koanf:"file"`   // empty logs to stderr
}

// MPRISConfig holds the D-Bus media player bridge settings.
type MPRISConfig struct {
	Enabled *bool `koanf:"enabled"` // default: true
}

// NotifyConfig holds desktop notification settings.
type NotifyConfig struct {
	Enabled *bool `koanf:"enabled"` // default: false
}

// Load reads the config files in priority order (last wins).
func Load() (*Config, error) {
	return LoadFrom(getConfigPaths()...)
}

// LoadFrom reads the given TOML files, skipping missing ones.
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

	cfg.StatePath = expandPath(cfg.StatePath)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Lyrics.CachePath = expandPath(cfg.Lyrics.CachePath)
	cfg.Lyrics.APIBaseURL = strings.TrimSuffix(cfg.Lyrics.APIBaseURL, "/")
	cfg.Lyrics.Provider = strings.ToLower(strings.TrimSpace(cfg.Lyrics.Provider))

	return cfg, nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/cadence/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// GetPlaybackConfig returns the playback configuration with defaults applied.
func (c *Config) GetPlaybackConfig() PlaybackConfig {
	cfg := c.Playback
	if cfg.Volume == nil || *cfg.Volume < 0 || *cfg.Volume > 1 {
		v := 0.8
		cfg.Volume = &v
	}
	switch cfg.Mode {
	case "list", "single", "random":
	default:
		cfg.Mode = "list"
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	return cfg
}

// GetLyricsConfig returns the lyrics configuration with defaults applied.
func (c *Config) GetLyricsConfig() LyricsConfig {
	cfg := c.Lyrics
	switch cfg.Provider {
	case ProviderNetEase, ProviderLRCLib, ProviderNone:
	default:
		cfg.Provider = ProviderLRCLib
	}
	if cfg.Provider == ProviderNetEase && cfg.APIBaseURL == "" {
		cfg.Provider = ProviderNone
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.ToleranceMS <= 0 {
		cfg.ToleranceMS = 500
	}
	if cfg.CacheTTLDays < 0 {
		cfg.CacheTTLDays = 0
	}
	t := true
	if cfg.Cache == nil {
		cfg.Cache = &t
	}
	if cfg.ShowTranslation == nil {
		cfg.ShowTranslation = &t
	}
	if cfg.ShowRomanization == nil {
		f := false
		cfg.ShowRomanization = &f
	}
	return cfg
}

// Tolerance returns the merge tolerance.
func (l LyricsConfig) Tolerance() time.Duration {
	return time.Duration(l.ToleranceMS) * time.Millisecond
}

// Offset returns the lyric time offset.
func (l LyricsConfig) Offset() time.Duration {
	return time.Duration(l.OffsetMS) * time.Millisecond
}

// CacheTTL returns the cache entry lifetime, 0 for no expiry.
func (l LyricsConfig) CacheTTL() time.Duration {
	return time.Duration(l.CacheTTLDays) * 24 * time.Hour
}

// CacheEnabled reports whether lyric caching is on.
func (l LyricsConfig) CacheEnabled() bool { return boolOr(l.Cache, true) }

// GetCursorConfig returns the cursor configuration with defaults applied.
func (c *Config) GetCursorConfig() CursorConfig {
	cfg := c.Cursor
	if cfg.ScaleStep <= 0 {
		cfg.ScaleStep = 0.05
	}
	if cfg.MinScale <= 0 {
		cfg.MinScale = 0.8
	}
	if cfg.MaxScale <= 0 {
		cfg.MaxScale = 1.4
	}
	if cfg.MaxScale < cfg.MinScale {
		cfg.MinScale, cfg.MaxScale = 0.8, 1.4
	}
	return cfg
}

// GetLogConfig returns the log configuration with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format != "json" {
		cfg.Format = "text"
	}
	return cfg
}

// MPRISEnabled reports whether the D-Bus bridge should run.
func (c *Config) MPRISEnabled() bool {
	return boolOr(c.MPRIS.Enabled, true)
}

// NotifyEnabled reports whether track changes raise desktop notifications.
func (c *Config) NotifyEnabled() bool {
	return boolOr(c.Notify.Enabled, false)
}
