package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

const defaultTimeout = 60 * time.Second

// CollyConfig controls collector behavior.
type CollyConfig struct {
	UserAgent string
	Timeout   time.Duration
	// CookieURL scopes Cookies in the collector's jar.
	CookieURL string
	Cookies   []*http.Cookie
}

// CollyFetcher implements Fetcher with a synchronous Colly collector.
type CollyFetcher struct {
	cfg           CollyConfig
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// NewCollyFetcher builds a CollyFetcher. Retries revisit the same URL, so
// revisits are allowed.
func NewCollyFetcher(cfg CollyConfig) (*CollyFetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
	)
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	if len(cfg.Cookies) > 0 {
		if cfg.CookieURL == "" {
			return nil, fmt.Errorf("cookie url is required when cookies are set")
		}
		if err := c.SetCookies(cfg.CookieURL, cfg.Cookies); err != nil {
			return nil, fmt.Errorf("set cookies: %w", err)
		}
	}
	return &CollyFetcher{cfg: cfg, baseCollector: c}, nil
}

// Fetch performs one GET. Transport errors and non-2xx responses both fail.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var (
		body     []byte
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, &body, &fetchErr)

	if err := runCollector(ctx, collector, url, &fetchErr); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *CollyFetcher) configureCollectorHooks(hooks collectorHooks, body *[]byte, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		*body = append([]byte(nil), r.Body...)
	})
	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		*fetchErr = err
	})
}

func runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
