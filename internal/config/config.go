// Package config loads and validates archiver configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/article-archiver/internal/archive"
	"github.com/JakeFAU/article-archiver/internal/download"
	"github.com/JakeFAU/article-archiver/internal/fetch"
	"github.com/JakeFAU/article-archiver/internal/index"
)

// EnvPrefix scopes environment overrides, e.g. ARCHIVER_FETCH_ATTEMPTS=3.
const EnvPrefix = "ARCHIVER"

// Config captures all knobs loaded via Viper.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Index    IndexConfig    `mapstructure:"index"`
	Download DownloadConfig `mapstructure:"download"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// FetchConfig configures the transport and its retry budget.
type FetchConfig struct {
	Attempts  int           `mapstructure:"attempts"`
	Delay     time.Duration `mapstructure:"delay"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// IndexConfig governs the listing crawl.
type IndexConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	MaxPages           int    `mapstructure:"max_pages"`
	MaxRefsPerPage     int    `mapstructure:"max_refs_per_page"`
	TerminateOnFailure bool   `mapstructure:"terminate_on_failure"`
	Quote              string `mapstructure:"quote"`
	AllowEmptyRun      bool   `mapstructure:"allow_empty_run"`
	// Timezone names the location used for ledger file timestamps.
	Timezone string `mapstructure:"timezone"`
}

// DownloadConfig governs article fetching and archive layout.
type DownloadConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	ShardCapacity int    `mapstructure:"shard_capacity"`
	MaxShards     int    `mapstructure:"max_shards"`
	GzipLevel     int    `mapstructure:"gzip_level"`
}

// MirrorConfig enables uploading archived objects to GCS.
type MirrorConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig sets where run metrics are flushed.
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	idx := index.DefaultConfig()
	dl := download.DefaultConfig()

	v.SetDefault("logging.development", false)
	v.SetDefault("fetch.attempts", fetch.DefaultAttempts)
	v.SetDefault("fetch.delay", "0s")
	v.SetDefault("fetch.timeout", "60s")
	v.SetDefault("fetch.user_agent", "article-archiver/1.0")
	v.SetDefault("index.base_url", idx.BaseURL)
	v.SetDefault("index.max_pages", idx.MaxPages)
	v.SetDefault("index.max_refs_per_page", idx.MaxRefsPerPage)
	v.SetDefault("index.terminate_on_failure", idx.TerminateOnFailure)
	v.SetDefault("index.quote", idx.Quote)
	v.SetDefault("index.allow_empty_run", false)
	v.SetDefault("index.timezone", "UTC")
	v.SetDefault("download.base_url", dl.BaseURL)
	v.SetDefault("download.shard_capacity", dl.Layout.Capacity)
	v.SetDefault("download.max_shards", dl.Layout.MaxShards)
	v.SetDefault("download.gzip_level", 0)
	v.SetDefault("mirror.gcs_bucket", "")
	v.SetDefault("mirror.prefix", "articles")
	v.SetDefault("metrics.textfile_path", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Fetch.Attempts <= 0 {
		return fmt.Errorf("fetch.attempts must be > 0")
	}
	if c.Fetch.Delay < 0 {
		return fmt.Errorf("fetch.delay must be >= 0")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0")
	}
	if err := c.IndexCrawl().Validate(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if err := c.ArticleDownload().Validate(); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	return nil
}

// Retry converts the fetch section into a retry policy.
func (c Config) Retry() fetch.RetryConfig {
	return fetch.RetryConfig{Attempts: c.Fetch.Attempts, Delay: c.Fetch.Delay}
}

// IndexCrawl converts the index section into crawler settings.
func (c Config) IndexCrawl() index.Config {
	return index.Config{
		BaseURL:            c.Index.BaseURL,
		MaxPages:           c.Index.MaxPages,
		MaxRefsPerPage:     c.Index.MaxRefsPerPage,
		TerminateOnFailure: c.Index.TerminateOnFailure,
		Quote:              c.Index.Quote,
		AllowEmptyRun:      c.Index.AllowEmptyRun,
	}
}

// ArticleDownload converts the download section into downloader settings.
func (c Config) ArticleDownload() download.Config {
	return download.Config{
		BaseURL: c.Download.BaseURL,
		Layout: archive.Layout{
			Capacity:  c.Download.ShardCapacity,
			MaxShards: c.Download.MaxShards,
		},
	}
}

// Location resolves index.timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Index.Timezone)
	if err != nil {
		return nil, fmt.Errorf("index.timezone %q: %w", c.Index.Timezone, err)
	}
	return loc, nil
}

// MirrorEnabled reports whether archived objects are uploaded to GCS.
func (c Config) MirrorEnabled() bool {
	return strings.TrimSpace(c.Mirror.GCSBucket) != ""
}
