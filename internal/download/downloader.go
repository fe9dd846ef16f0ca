// Package download fetches every ledger article not yet in the archive and
// files it into capacity-bounded shard directories.
package download

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/article-archiver/internal/archive"
	"github.com/JakeFAU/article-archiver/internal/compress"
	"github.com/JakeFAU/article-archiver/internal/fetch"
	"github.com/JakeFAU/article-archiver/internal/ledger"
	"github.com/JakeFAU/article-archiver/internal/metrics"
)

// ErrCompress wraps compressor failures, which abort the run.
var ErrCompress = errors.New("compress article")

// Config controls a download run.
type Config struct {
	// BaseURL is prepended to each reference to form the article URL.
	BaseURL string
	Layout  archive.Layout
}

// DefaultConfig targets the production site with the default shard layout.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://seekingalpha.com",
		Layout:  archive.DefaultLayout(),
	}
}

// Validate rejects unusable settings.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("download base url must be set")
	}
	return c.Layout.Validate()
}

// Stats are the run totals.
type Stats struct {
	ToDownload int
	Processed  int
	Succeeded  int
	Failed     int
}

// Downloader archives missing articles one at a time.
type Downloader struct {
	cfg        Config
	fetcher    fetch.Fetcher
	compressor compress.Compressor
	store      *archive.Store
	logger     *zap.Logger
	recorder   *metrics.Recorder
}

// New builds a Downloader. fetcher is expected to already apply the retry
// policy.
func New(
	cfg Config,
	fetcher fetch.Fetcher,
	compressor compress.Compressor,
	store *archive.Store,
	logger *zap.Logger,
	recorder *metrics.Recorder,
) (*Downloader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		cfg:        cfg,
		fetcher:    fetcher,
		compressor: compressor,
		store:      store,
		logger:     logger,
		recorder:   recorder,
	}, nil
}

// Run archives every key in the ledger at ledgerDir that the archive lacks.
func (d *Downloader) Run(ctx context.Context, ledgerDir string) (Stats, error) {
	known, err := ledger.Load(ledgerDir)
	if err != nil {
		return Stats{}, fmt.Errorf("load ledger: %w", err)
	}
	d.logger.Info("loaded article ids",
		zap.Int("references", known.Len()),
		zap.Int("files", len(known.Files())),
	)

	idx, err := archive.Scan(d.store.Root())
	if err != nil {
		return Stats{}, fmt.Errorf("scan archive: %w", err)
	}
	return d.Archive(ctx, known, idx)
}

// Archive downloads known minus idx. Keys are visited in sorted order so
// shard assignment is deterministic.
func (d *Downloader) Archive(ctx context.Context, known *ledger.Ledger, idx *archive.Index) (Stats, error) {
	pending := idx.Pending(known.Keys())
	base := idx.BaseShard()
	stats := Stats{ToDownload: len(pending)}
	d.logger.Info("new articles to download",
		zap.Int("count", len(pending)),
		zap.Int("archived", idx.Len()),
		zap.Int("base_shard", base),
	)

	for _, key := range pending {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("download canceled: %w", err)
		}
		shard, err := d.cfg.Layout.ShardFor(base, stats.Processed)
		if err != nil {
			return stats, err
		}
		ref, _ := known.Lookup(key)

		stats.Processed++
		d.logger.Info("downloading",
			zap.Int("n", stats.Processed),
			zap.Int("total", stats.ToDownload),
			zap.String("key", key),
			zap.Int("shard", shard),
			zap.Int("succeeded", stats.Succeeded),
			zap.Int("failed", stats.Failed),
		)

		body, err := d.fetcher.Fetch(ctx, ref.URL(d.cfg.BaseURL))
		if err != nil {
			if ctx.Err() != nil {
				return stats, fmt.Errorf("download canceled: %w", ctx.Err())
			}
			stats.Failed++
			d.recorder.ObserveArticle(false)
			d.logger.Warn("article download failed", zap.String("key", key), zap.Error(err))
			continue
		}

		data, err := d.compressor.Compress(body)
		if err != nil {
			return stats, fmt.Errorf("%w %s: %w", ErrCompress, key, err)
		}
		if _, err := d.store.Put(ctx, shard, key, data); err != nil {
			return stats, fmt.Errorf("store article %s: %w", key, err)
		}
		stats.Succeeded++
		d.recorder.ObserveArticle(true)
	}

	d.logger.Info("processed files",
		zap.Int("processed", stats.Processed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}
