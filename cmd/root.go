package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/app"
	"github.com/JakeFAU/newopenings-crawler/internal/config"
	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
	"github.com/JakeFAU/newopenings-crawler/internal/logging"
	"github.com/JakeFAU/newopenings-crawler/internal/pipeline"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use.
// This allows a fake app to be injected during tests.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetConfig() config.Config
	Handler() http.Handler
	RunWorkers(ctx context.Context)
	StartScheduler()
	StopScheduler(ctx context.Context) error
	SeedIfEmpty(ctx context.Context) (bool, error)
	RunNow(ctx context.Context, trigger crawler.Trigger) (pipeline.RunEvent, error)
}

// newApp is the application factory. It is a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.NewApp(ctx, cfg, logger)
}

type rootOptions struct {
	configFile string
	envFile    string
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "newopenings",
		Short: "Tracks restaurants that opened in Hong Kong over the last seven days.",
		Long: `newopenings discovers newly opened Hong Kong restaurants from a chain of sources
(Places search, listing pages, structured guide pages), keeps a rolling seven-day
list of them and refreshes it weekly or on demand.`,
		SilenceUsage: true,

		// Builds the App once config is loaded and hands it to the subcommand.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := buildApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
				_ = appInstance.GetLogger().Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (YAML, JSON or TOML)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRunCmd())
	return cmd
}

func buildApp(ctx context.Context, opts *rootOptions) (App, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", opts.envFile, err)
		}
	}
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	appInstance, err := newApp(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application services: %w", err)
	}
	return appInstance, nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
