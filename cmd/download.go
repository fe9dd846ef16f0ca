package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-archiver/internal/app"
	"github.com/JakeFAU/article-archiver/internal/archive"
	"github.com/JakeFAU/article-archiver/internal/compress"
	"github.com/JakeFAU/article-archiver/internal/download"
	"github.com/JakeFAU/article-archiver/internal/fetch"
	"github.com/JakeFAU/article-archiver/internal/storage/gcs"
)

type downloadOptions struct {
	idDir      string
	cookieFile string
	articleDir string
}

func newDownloadCmd() *cobra.Command {
	var opts downloadOptions

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Archives every recorded article missing from the archive",
		Long: `Loads all article ids, subtracts those already present under the
article directory and fetches the rest one at a time, storing each page
gzip-compressed in numbered shard directories.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJob(cmd, func(ctx context.Context, a *app.App) error {
				return runDownload(ctx, a, opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.idDir, "id-dir", "", "directory holding article id files")
	cmd.Flags().StringVar(&opts.cookieFile, "cookie-file", "", "Netscape cookies.txt sent with article requests")
	cmd.Flags().StringVar(&opts.articleDir, "article-dir", "", "archive root directory")
	_ = cmd.MarkFlagRequired("id-dir")
	_ = cmd.MarkFlagRequired("cookie-file")
	_ = cmd.MarkFlagRequired("article-dir")
	return cmd
}

func runDownload(ctx context.Context, a *app.App, opts downloadOptions) error {
	dlCfg := a.Config.ArticleDownload()

	var cookieURL string
	cookies, err := fetch.LoadCookieFile(opts.cookieFile)
	if err != nil {
		return fmt.Errorf("load cookies: %w", err)
	}
	if len(cookies) > 0 {
		cookieURL = dlCfg.BaseURL
	}
	transport, err := a.Collector(cookieURL, cookies)
	if err != nil {
		return err
	}

	compressor, err := compress.NewGzip(a.Config.Download.GzipLevel)
	if err != nil {
		return fmt.Errorf("init compressor: %w", err)
	}

	var mirror archive.BlobStore
	if a.Config.MirrorEnabled() {
		m, err := gcs.Dial(ctx, gcs.Config{
			Bucket: a.Config.Mirror.GCSBucket,
			Prefix: a.Config.Mirror.Prefix,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("init mirror: %w", err)
		}
		defer func() {
			if cerr := m.Close(); cerr != nil {
				a.Logger.Warn("Failed to close GCS client", zap.Error(cerr))
			}
		}()
		a.Logger.Info("mirroring archive to GCS", zap.String("bucket", a.Config.Mirror.GCSBucket))
		mirror = m
	}

	store, err := archive.NewStore(opts.articleDir, mirror)
	if err != nil {
		return fmt.Errorf("init archive: %w", err)
	}

	downloader, err := download.New(dlCfg, a.Fetcher(transport), compressor, store, a.Logger, a.Recorder)
	if err != nil {
		return fmt.Errorf("init downloader: %w", err)
	}

	stats, err := downloader.Run(ctx, opts.idDir)
	if err != nil {
		return fmt.Errorf("run download: %w", err)
	}
	a.Logger.Info("download complete",
		zap.Int("to_download", stats.ToDownload),
		zap.Int("processed", stats.Processed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
	)
	return nil
}
