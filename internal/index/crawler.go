package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/article-archiver/internal/article"
	"github.com/JakeFAU/article-archiver/internal/fetch"
	"github.com/JakeFAU/article-archiver/internal/ledger"
	"github.com/JakeFAU/article-archiver/internal/metrics"
)

// Crawl failures. All of them abort the run.
var (
	ErrPageFetch         = errors.New("listing page fetch failed")
	ErrTooManyReferences = errors.New("too many references on one page")
	ErrNothingNew        = errors.New("crawl discovered no new references")
	ErrEmptyListing      = errors.New("first listing page has no references")
)

// StopReason records why the page loop ended.
type StopReason string

// Stop reasons.
const (
	StopEmptyPage StopReason = "empty_page"
	StopCaughtUp  StopReason = "caught_up"
	StopPageLimit StopReason = "page_limit"
)

// Config controls a crawl.
type Config struct {
	BaseURL            string
	MaxPages           int
	MaxRefsPerPage     int
	TerminateOnFailure bool
	Quote              string
	AllowEmptyRun      bool
}

// DefaultConfig mirrors the production listing site.
func DefaultConfig() Config {
	return Config{
		BaseURL:            "http://seekingalpha.com/analysis/all/all",
		MaxPages:           10000,
		MaxRefsPerPage:     55,
		TerminateOnFailure: true,
		Quote:              "'",
	}
}

// Validate rejects unusable settings.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("index base url must be set")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("index max pages must be > 0")
	}
	if c.MaxRefsPerPage <= 0 {
		return fmt.Errorf("index max references per page must be > 0")
	}
	if c.Quote == "" {
		return fmt.Errorf("index quote must be set")
	}
	return nil
}

// PageURL is the listing URL of page n.
func (c Config) PageURL(n int) string {
	return fmt.Sprintf("%s/%d", strings.TrimRight(c.BaseURL, "/"), n)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Result summarizes a crawl.
type Result struct {
	Pages         int
	SkippedPages  int
	// LastPage is the number of the last page visited, fetched or skipped.
	LastPage      int
	NewReferences []article.Reference
	StopReason    StopReason
	LedgerFile    string
}

// Crawler discovers new references and appends them to the ledger directory.
type Crawler struct {
	cfg       Config
	fetcher   fetch.Fetcher
	extractor *Extractor
	ledgerDir string
	clock     Clock
	logger    *zap.Logger
	recorder  *metrics.Recorder
}

// New builds a Crawler. fetcher is expected to already apply the retry
// policy.
func New(
	cfg Config,
	fetcher fetch.Fetcher,
	ledgerDir string,
	clock Clock,
	logger *zap.Logger,
	recorder *metrics.Recorder,
) (*Crawler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	extractor, err := NewExtractor(cfg.Quote, article.Prefix)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		ledgerDir: ledgerDir,
		clock:     clock,
		logger:    logger,
		recorder:  recorder,
	}, nil
}

// Run loads the ledger, discovers new references and writes them to a fresh
// run file.
func (c *Crawler) Run(ctx context.Context) (Result, error) {
	runAt := c.clock.Now()
	if err := ledger.CheckRunFile(c.ledgerDir, runAt); err != nil {
		return Result{}, err
	}

	known, err := ledger.Load(c.ledgerDir)
	if err != nil {
		return Result{}, fmt.Errorf("load ledger: %w", err)
	}
	c.logger.Info("loaded article ids",
		zap.Int("references", known.Len()),
		zap.Int("files", len(known.Files())),
	)

	res, err := c.Discover(ctx, known)
	if err != nil {
		return res, err
	}

	if len(res.NewReferences) == 0 {
		noNew := ErrNothingNew
		if res.StopReason == StopEmptyPage && res.LastPage == 1 {
			noNew = ErrEmptyListing
		}
		if c.cfg.AllowEmptyRun {
			c.logger.Info("no new references; nothing written", zap.String("reason", noNew.Error()))
			return res, nil
		}
		return res, noNew
	}

	path, err := ledger.WriteRunFile(c.ledgerDir, runAt, res.NewReferences)
	if err != nil {
		return res, err
	}
	res.LedgerFile = path
	c.logger.Info("ledger file written",
		zap.String("path", path),
		zap.Int("references", len(res.NewReferences)),
	)
	return res, nil
}

// Discover pages through the listing until a termination condition holds.
// known is extended with every reference accepted during the crawl.
func (c *Crawler) Discover(ctx context.Context, known *ledger.Ledger) (Result, error) {
	res := Result{StopReason: StopPageLimit}

	for page := 1; page <= c.cfg.MaxPages; page++ {
		res.LastPage = page
		url := c.cfg.PageURL(page)
		body, err := c.fetcher.Fetch(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return res, fmt.Errorf("crawl canceled: %w", ctx.Err())
			}
			if c.cfg.TerminateOnFailure {
				return res, fmt.Errorf("%w: page %d: %w", ErrPageFetch, page, err)
			}
			res.SkippedPages++
			c.recorder.ObservePageSkipped()
			c.logger.Warn("skipping listing page", zap.Int("page", page), zap.Error(err))
			continue
		}
		res.Pages++

		refs, err := c.extractor.Extract(body)
		if err != nil {
			return res, fmt.Errorf("page %d: %w", page, err)
		}
		if len(refs) > c.cfg.MaxRefsPerPage {
			return res, fmt.Errorf("%w: page %d has %d, limit %d",
				ErrTooManyReferences, page, len(refs), c.cfg.MaxRefsPerPage)
		}

		if len(refs) == 0 {
			c.recorder.ObservePage(0)
			c.logger.Info("no ids found on page", zap.Int("page", page))
			res.StopReason = StopEmptyPage
			return res, nil
		}

		fresh := make([]article.Reference, 0, len(refs))
		for _, ref := range refs {
			if !known.Contains(ref) {
				fresh = append(fresh, ref)
			}
		}
		if len(fresh) == 0 {
			c.recorder.ObservePage(0)
			c.logger.Info("all ids on page have been seen", zap.Int("page", page))
			res.StopReason = StopCaughtUp
			return res, nil
		}

		for _, ref := range fresh {
			if _, err := known.Add(ref); err != nil {
				return res, fmt.Errorf("page %d: %w", page, err)
			}
			res.NewReferences = append(res.NewReferences, ref)
		}
		c.recorder.ObservePage(len(fresh))
		c.logger.Info("page processed",
			zap.Int("page", page),
			zap.Int("page_ids", len(refs)),
			zap.Int("page_new_ids", len(fresh)),
			zap.Int("total_new_ids", len(res.NewReferences)),
		)
	}

	c.logger.Warn("page limit reached", zap.Int("max_pages", c.cfg.MaxPages))
	return res, nil
}
