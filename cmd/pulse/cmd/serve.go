package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/market-pulse/internal/config"
	"github.com/rickgao/market-pulse/internal/refresh"
	"github.com/rickgao/market-pulse/internal/server"
	"github.com/rickgao/market-pulse/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket service",
	Long: `Serve starts the refresh scheduler and the HTTP server. A pass runs
immediately, then every active_interval during business hours and every
quiet_interval otherwise. SIGINT or SIGTERM shuts down gracefully.`,
	RunE: runServe,
}

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	logger := setupLogger(cfg.Logging, os.Stdout)
	logger.Info("starting pulse",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	logger.Info("providers configured",
		"order", cfg.Providers.Order,
		"alphavantage", cfg.Providers.AlphaVantage.Enabled(),
		"finnhub", cfg.Providers.Finnhub.Enabled(),
		"instruments", eng.catalog.Len(),
	)

	sched, err := scheduleConfig(cfg.Refresh)
	if err != nil {
		return fmt.Errorf("refresh schedule: %w", err)
	}
	scheduler := refresh.NewScheduler(sched, eng.coordinator, logger)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	srv := server.New(server.Config{
		MaxAge:         cfg.Refresh.MaxAge,
		StaticDir:      cfg.Server.StaticDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestLimit:   cfg.Server.RequestLimit,
		RequestWindow:  cfg.Server.RequestWindow,
		PingInterval:   cfg.Hub.PingInterval,
		WriteTimeout:   cfg.Hub.WriteTimeout,
	}, server.Deps{
		Refresh:   eng.coordinator,
		Cache:     eng.cache,
		Hub:       eng.hub,
		Catalog:   eng.catalog,
		History:   eng.generator,
		Providers: eng.providers,
	}, server.WithLogger(logger))

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown
	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err := <-errCh:
		stop()
		if err != nil {
			logger.Error("http server error", "err", err)
			shutdownScheduler(scheduler, cfg.Server.ShutdownTimeout)
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	srv.CloseClients()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown incomplete", "err", err)
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler shutdown incomplete", "err", err)
	}

	logger.Info("pulse stopped")
	return nil
}

func shutdownScheduler(s *refresh.Scheduler, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.Stop(ctx)
}
