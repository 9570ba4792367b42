// Package cmd holds the cadence command tree.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"

	"github.com/llehouerou/cadence/internal/cache"
	"github.com/llehouerou/cadence/internal/config"
	"github.com/llehouerou/cadence/internal/errmsg"
	"github.com/llehouerou/cadence/internal/logging"
	"github.com/llehouerou/cadence/internal/lrclib"
	"github.com/llehouerou/cadence/internal/lyricapi"
	"github.com/llehouerou/cadence/internal/lyrics"
	"github.com/llehouerou/cadence/internal/state"
)

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configPath string
	logLevel   string
}

// app bundles the services shared by subcommands. Fields are opened on
// demand so commands only pay for what they use.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	logCloser io.Closer

	store *state.Manager
	cache *cache.Cache
}

func newApp(flags *globalFlags) (*app, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFrom(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, errors.New(errmsg.Format(errmsg.OpConfigLoad, err))
	}

	logCfg := cfg.GetLogConfig()
	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}
	log, closer, err := logging.New(logging.Options{
		Level:  logCfg.Level,
		Format: logCfg.Format,
		File:   logCfg.File,
	})
	if err != nil {
		return nil, errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}

	return &app{cfg: cfg, log: log, logCloser: closer}, nil
}

// openStore opens the session database.
func (a *app) openStore() (*state.Manager, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := state.Open(a.cfg.StatePath, a.log)
	if err != nil {
		return nil, errors.New(errmsg.Format(errmsg.OpSessionLoad, err))
	}
	a.store = store
	return store, nil
}

// openCache opens the lyric cache. It returns nil when caching is off.
func (a *app) openCache() (*cache.Cache, error) {
	lc := a.cfg.GetLyricsConfig()
	if !lc.CacheEnabled() {
		return nil, nil //nolint:nilnil // caching disabled
	}
	if a.cache != nil {
		return a.cache, nil
	}
	path := lc.CachePath
	if path == "" {
		var err error
		if path, err = xdg.CacheFile(filepath.Join("cadence", "lyrics.db")); err != nil {
			return nil, errors.New(errmsg.Format(errmsg.OpLyricsCache, err))
		}
	}
	c, err := cache.Open(path, cache.Options{TTL: lc.CacheTTL(), Logger: a.log})
	if err != nil {
		return nil, errors.New(errmsg.Format(errmsg.OpLyricsCache, err))
	}
	a.cache = c
	return c, nil
}

// newFetcher builds the remote lyric provider named in the config.
func (a *app) newFetcher() (lyrics.Fetcher, error) {
	lc := a.cfg.GetLyricsConfig()
	switch lc.Provider {
	case config.ProviderNetEase:
		client, err := lyricapi.New(lyricapi.Options{
			BaseURL:           lc.APIBaseURL,
			RequestsPerSecond: lc.RequestsPerSecond,
			Logger:            a.log,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderLRCLib:
		opts := []lrclib.Option{lrclib.WithRateLimit(lc.RequestsPerSecond)}
		if lc.APIBaseURL != "" {
			opts = append(opts, lrclib.WithBaseURL(lc.APIBaseURL))
		}
		return lrclib.New(opts...), nil
	default:
		return nil, nil //nolint:nilnil // no remote provider
	}
}

// newLyricsSource combines sidecar files, the cache and the provider.
func (a *app) newLyricsSource() (*lyrics.Source, error) {
	fetcher, err := a.newFetcher()
	if err != nil {
		return nil, fmt.Errorf("lyrics provider: %w", err)
	}
	c, err := a.openCache()
	if err != nil {
		a.log.WithError(err).Warn("lyrics cache unavailable")
	}

	var lc lyrics.Cache
	if c != nil {
		lc = c
	}
	return lyrics.NewSource(fetcher, lc, a.cfg.GetLyricsConfig().Tolerance(), a.log), nil
}

// Close releases everything the app opened.
func (a *app) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	errs = append(errs, a.logCloser.Close())
	return errors.Join(errs...)
}
