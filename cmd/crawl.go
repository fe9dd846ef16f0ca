package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-archiver/internal/app"
	"github.com/JakeFAU/article-archiver/internal/index"
)

func newCrawlCmd() *cobra.Command {
	var idDir string

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Records article references published since the last crawl",
		Long: `Pages through the listing site from page 1, stopping once every
reference on a page is already known, and writes the newly discovered
references to a fresh run_<timestamp>.txt file in the id directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJob(cmd, func(ctx context.Context, a *app.App) error {
				return runCrawl(ctx, a, idDir)
			})
		},
	}
	cmd.Flags().StringVar(&idDir, "id-dir", "", "directory holding article id files")
	_ = cmd.MarkFlagRequired("id-dir")
	return cmd
}

func runCrawl(ctx context.Context, a *app.App, idDir string) error {
	transport, err := a.Collector("", nil)
	if err != nil {
		return err
	}
	crawler, err := index.New(
		a.Config.IndexCrawl(),
		a.Fetcher(transport),
		idDir,
		a.Clock,
		a.Logger,
		a.Recorder,
	)
	if err != nil {
		return fmt.Errorf("init crawler: %w", err)
	}

	res, err := crawler.Run(ctx)
	if err != nil {
		return fmt.Errorf("run crawl: %w", err)
	}
	a.Logger.Info("crawl complete",
		zap.Int("pages", res.Pages),
		zap.Int("skipped_pages", res.SkippedPages),
		zap.Int("new_references", len(res.NewReferences)),
		zap.String("stop_reason", string(res.StopReason)),
		zap.String("ledger_file", res.LedgerFile),
	)
	return nil
}
