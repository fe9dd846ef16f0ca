package app_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/article-archiver/internal/app"
	"github.com/JakeFAU/article-archiver/internal/config"
)

// MockIDGenerator mocks app.IDGenerator.
type MockIDGenerator struct {
	mock.Mock
}

func (m *MockIDGenerator) NewRunID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func loadDefaults(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNewTagsLoggerWithRun(t *testing.T) {
	t.Parallel()

	ids := new(MockIDGenerator)
	ids.On("NewRunID").Return("run-1", nil).Once()
	core, logs := observer.New(zapcore.InfoLevel)

	a, err := app.New(loadDefaults(t), "crawl", ids, zap.New(core))
	require.NoError(t, err)
	ids.AssertExpectations(t)

	assert.Equal(t, "run-1", a.RunID)
	a.Logger.Info("hello")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "run-1", logs.All()[0].ContextMap()["run_id"])
	assert.Equal(t, "crawl", logs.All()[0].ContextMap()["job"])
}

func TestNewRunIDFailure(t *testing.T) {
	t.Parallel()

	ids := new(MockIDGenerator)
	ids.On("NewRunID").Return("", errors.New("no entropy"))

	_, err := app.New(loadDefaults(t), "crawl", ids, zap.NewNop())
	require.Error(t, err)
}

func TestCloseWritesMetricsTextfile(t *testing.T) {
	t.Parallel()

	cfg := loadDefaults(t)
	cfg.Metrics.TextfilePath = filepath.Join(t.TempDir(), "archiver.prom")
	ids := new(MockIDGenerator)
	ids.On("NewRunID").Return("run-2", nil)

	a, err := app.New(cfg, "download", ids, zap.NewNop())
	require.NoError(t, err)
	a.Close(nil)

	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(cfg.Metrics.TextfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `archiver_last_run_timestamp_seconds{job="download"}`)
}

func TestCollectorWrappedInRetrier(t *testing.T) {
	t.Parallel()

	ids := new(MockIDGenerator)
	ids.On("NewRunID").Return("run-3", nil)
	a, err := app.New(loadDefaults(t), "download", ids, zap.NewNop())
	require.NoError(t, err)

	f, err := a.Collector("", nil)
	require.NoError(t, err)
	assert.NotNil(t, f)
	assert.NotNil(t, a.Fetcher(f))
}
