package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// newServeCmd creates the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the API and run the weekly refresh",
		Long: `Starts the HTTP API, the weekly scheduler and the run worker. When the store
is empty a startup run is queued so the list is populated right away.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			addr := fmt.Sprintf(":%d", appInstance.GetConfig().Server.Port)
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			return serve(ctx, appInstance, ln)
		},
	}
}

// serve runs the API on ln, the worker and the scheduler until ctx ends, then drains them.
func serve(ctx context.Context, a App, ln net.Listener) error {
	logger := a.GetLogger()
	cfg := a.GetConfig()
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("run worker started")
		a.RunWorkers(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.Schedule.Enabled {
		a.StartScheduler()
		logger.Info("scheduler started", zap.String("cron", cfg.Schedule.Cron), zap.String("timezone", cfg.Schedule.Timezone))
	}
	if cfg.Schedule.SeedOnEmpty {
		if _, err := a.SeedIfEmpty(gctx); err != nil {
			logger.Warn("startup seeding skipped", zap.Error(err))
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if cfg.Schedule.Enabled {
			if err := a.StopScheduler(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
