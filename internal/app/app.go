// Package app holds the services shared by one archiver job invocation.
package app

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/article-archiver/internal/clock/system"
	"github.com/JakeFAU/article-archiver/internal/config"
	"github.com/JakeFAU/article-archiver/internal/fetch"
	"github.com/JakeFAU/article-archiver/internal/logging"
	"github.com/JakeFAU/article-archiver/internal/metrics"
)

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewRunID() (string, error)
}

// App is the dependency container handed to each subcommand.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Recorder *metrics.Recorder
	Clock    *system.Clock
	Job      string
	RunID    string

	started time.Time
	base    *zap.Logger
}

// New builds the services for job from cfg. base may be nil, in which case a
// logger is built from cfg.Logging.
func New(cfg config.Config, job string, ids IDGenerator, base *zap.Logger) (*App, error) {
	if base == nil {
		l, err := logging.New(cfg.Logging.Development)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		base = l
	}
	runID, err := ids.NewRunID()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	clk := system.New(loc)
	return &App{
		Config:   cfg,
		Logger:   logging.ForRun(base, job, runID),
		Recorder: metrics.New(),
		Clock:    clk,
		Job:      job,
		RunID:    runID,
		started:  clk.Now(),
		base:     base,
	}, nil
}

// Fetcher wraps transport in the configured retry policy.
func (a *App) Fetcher(transport fetch.Fetcher) *fetch.Retrier {
	return fetch.NewRetrier(transport, a.Config.Retry(), a.Logger.Named("fetch"), a.Recorder)
}

// Collector builds the Colly transport from the fetch section. cookieURL and
// cookies may be empty.
func (a *App) Collector(cookieURL string, cookies []*http.Cookie) (*fetch.CollyFetcher, error) {
	f, err := fetch.NewCollyFetcher(fetch.CollyConfig{
		UserAgent: a.Config.Fetch.UserAgent,
		Timeout:   a.Config.Fetch.Timeout,
		CookieURL: cookieURL,
		Cookies:   cookies,
	})
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}
	return f, nil
}

// Close stamps the run metrics, flushes the metrics textfile and syncs the
// logger. runErr is the job's outcome and is only logged.
func (a *App) Close(runErr error) {
	finished := a.Clock.Now()
	a.Recorder.ObserveRun(a.Job, finished, finished.Sub(a.started))
	if err := a.Recorder.WriteTextfile(a.Config.Metrics.TextfilePath); err != nil {
		a.Logger.Warn("Failed to write metrics textfile", zap.Error(err))
	}
	if runErr != nil {
		a.Logger.Error("job failed", zap.Error(runErr), zap.Duration("elapsed", finished.Sub(a.started)))
	} else {
		a.Logger.Info("job finished", zap.Duration("elapsed", finished.Sub(a.started)))
	}
	_ = a.base.Sync()
}
