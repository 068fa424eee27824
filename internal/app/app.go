// Package app wires together configuration, logging, the forecast engine,
// the local store and the planner into a single Deps struct that commands
// receive at runtime.
package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/derickschaefer/stockcast/internal/config"
	"github.com/derickschaefer/stockcast/internal/forecast"
	"github.com/derickschaefer/stockcast/internal/logging"
	"github.com/derickschaefer/stockcast/internal/metrics"
	"github.com/derickschaefer/stockcast/internal/planner"
	"github.com/derickschaefer/stockcast/internal/series"
	"github.com/derickschaefer/stockcast/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store and Planner are nil until RequireStore succeeds; commands that only
// read stdin never touch the database.
type Deps struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
	Engine  *forecast.Engine
	Store   *store.Store
	Planner *planner.Planner
}

// New builds a Deps from resolved config.
func New(cfg *config.Config) *Deps {
	level := cfg.LogLevel
	switch {
	case cfg.Verbose:
		level = "debug"
	case cfg.Quiet:
		level = "error"
	}
	log := logging.New(logging.Options{Level: level, Format: cfg.LogFormat})

	var src series.Source = series.DefaultSource()
	if cfg.Seeded {
		src = series.NewSeededSource(cfg.Seed)
	}
	prep := series.New(series.Options{
		MinObservations: cfg.MinHistory,
		FallbackLength:  cfg.FallbackLength,
		FillGaps:        cfg.FillGaps,
		Source:          src,
		Logger:          log,
	})
	engine := forecast.New(forecast.Options{
		SafetyStockMultiplier: cfg.SafetyStockMultiplier,
		Source:                src,
		Preparer:              prep,
		Logger:                log,
	})

	return &Deps{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.New(),
		Engine:  engine,
	}
}

// RequireStore opens the local database and builds the planner on top of it.
// Calling it again is a no-op.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	path := d.Config.DBPath
	if path == "" {
		return fmt.Errorf("no database path configured (set db_path or %s)", config.EnvDBPath)
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	p, err := planner.New(planner.Options{
		Engine:              d.Engine,
		Repo:                st,
		Metrics:             d.Metrics,
		Logger:              d.Logger,
		CacheSize:           d.Config.CacheSize,
		CacheTTL:            d.Config.CacheTTL,
		Concurrency:         d.Config.Concurrency,
		DefaultLeadTimeDays: d.Config.LeadTimeDays,
	})
	if err != nil {
		_ = st.Close()
		return err
	}
	d.Store = st
	d.Planner = p
	d.Logger.WithField("path", path).Debug("store opened")
	return nil
}

// Close releases the database if it was opened.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	d.Planner = nil
	return err
}
