package app_test

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/stockcast/internal/app"
	"github.com/derickschaefer/stockcast/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "stockcast.db")
	return cfg
}

func TestNewLeavesStoreClosed(t *testing.T) {
	d := app.New(testConfig(t))
	assert.NotNil(t, d.Engine)
	assert.NotNil(t, d.Metrics)
	assert.Nil(t, d.Store)
	assert.Nil(t, d.Planner)
	assert.NoError(t, d.Close())
}

func TestRequireStoreOpensOnce(t *testing.T) {
	d := app.New(testConfig(t))
	require.NoError(t, d.RequireStore())
	st := d.Store
	require.NotNil(t, st)
	require.NotNil(t, d.Planner)

	require.NoError(t, d.RequireStore())
	assert.Same(t, st, d.Store)

	require.NoError(t, d.Close())
	assert.Nil(t, d.Store)
}

func TestRequireStoreNeedsPath(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = ""
	assert.Error(t, app.New(cfg).RequireStore())
}

func TestLogLevelFromFlags(t *testing.T) {
	cfg := testConfig(t)
	cfg.Verbose = true
	assert.Equal(t, logrus.DebugLevel, app.New(cfg).Logger.GetLevel())

	cfg = testConfig(t)
	cfg.Quiet = true
	assert.Equal(t, logrus.ErrorLevel, app.New(cfg).Logger.GetLevel())
}

func TestSeedMakesFallbackReproducible(t *testing.T) {
	cfg := testConfig(t)
	cfg.Seed, cfg.Seeded = 42, true

	a := app.New(cfg).Engine.ForecastHistory(nil, 7)
	b := app.New(cfg).Engine.ForecastHistory(nil, 7)
	assert.True(t, a.Synthetic)
	assert.Equal(t, a, b)
}
