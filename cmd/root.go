// Package cmd defines the archiver CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/article-archiver/internal/app"
	"github.com/JakeFAU/article-archiver/internal/config"
	"github.com/JakeFAU/article-archiver/internal/id/uuid"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. Tests swap it to inject a logger.
var newApp = func(cfg config.Config, job string) (*app.App, error) {
	return app.New(cfg, job, uuid.NewGenerator(), nil)
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "archiver",
		Short: "Discovers and archives articles from a listing site.",
		Long: `archiver runs two batch jobs over a shared directory of article ids.

  crawl     pages through the listing and records new article references
  download  fetches every recorded article not yet in the archive`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cfg, cmd.Name())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newDownloadCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// runJob resolves the App, runs fn and closes the App with fn's outcome.
func runJob(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) (err error) {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { appInstance.Close(err) }()
	return fn(cmd.Context(), appInstance)
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the running job.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// cobra prints the error.
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
