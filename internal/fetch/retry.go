// Package fetch provides the transport capability used by both jobs and the
// bounded retry policy wrapped around it.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/article-archiver/internal/metrics"
)

// DefaultAttempts is the number of tries made before giving up on a URL.
const DefaultAttempts = 5

// ErrRetriesExhausted is returned once every attempt has failed.
var ErrRetriesExhausted = errors.New("fetch retries exhausted")

// Fetcher retrieves the body behind url. Any error is a full failure.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// RetryConfig controls Retrier behavior.
type RetryConfig struct {
	// Attempts is the maximum number of tries per URL.
	Attempts int
	// Delay is slept before every attempt, including the first.
	Delay time.Duration
}

// Retrier applies a fixed attempt budget and fixed pre-request delay.
type Retrier struct {
	fetcher  Fetcher
	cfg      RetryConfig
	logger   *zap.Logger
	recorder *metrics.Recorder
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRetrier wraps fetcher. Non-positive attempts fall back to DefaultAttempts.
func NewRetrier(fetcher Fetcher, cfg RetryConfig, logger *zap.Logger, recorder *metrics.Recorder) *Retrier {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{
		fetcher:  fetcher,
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		sleep:    sleepContext,
	}
}

// Fetch tries url up to the configured number of times. Each attempt starts
// from nothing; a failed attempt's partial output is dropped.
func (r *Retrier) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		if r.cfg.Delay > 0 {
			if err := r.sleep(ctx, r.cfg.Delay); err != nil {
				return nil, fmt.Errorf("wait before fetch: %w", err)
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch canceled: %w", err)
		}

		r.logger.Debug("fetching", zap.String("url", url), zap.Int("attempt", attempt))
		body, err := r.fetcher.Fetch(ctx, url)
		if err == nil {
			r.recorder.ObserveFetchAttempt(true, len(body))
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
		}
		r.recorder.ObserveFetchAttempt(false, 0)
		r.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.cfg.Attempts),
			zap.Error(err),
		)
		lastErr = err
	}
	return nil, fmt.Errorf("%w after %d attempts for %s: %w", ErrRetriesExhausted, r.cfg.Attempts, url, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
