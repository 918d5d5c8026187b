package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/api"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run the sync scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.buildPipeline(ctx); err != nil {
		return err
	}
	keys, err := apiKeys(cfg)
	if err != nil {
		return err
	}

	if v != nil && v.ConfigFileUsed() != "" {
		config.Watch(v, func(next *config.Config) {
			logger.SetLevel(next.LogLevel)
			app.logs.SetLogLevel(next.LogLevel)
			slog.Info("log level reloaded", "level", next.LogLevel)
		})
	}

	if cfg.Sync.Enabled {
		if err := app.scheduler.Start(); err != nil {
			return err
		}
		defer func() { <-app.scheduler.Stop().Done() }()
	} else {
		slog.Info("sync scheduler disabled, use POST /api/sync or the sync command")
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(api.Deps{
		Store:       app.store,
		Files:       app.files,
		Logs:        app.logs,
		Sync:        app.scheduler,
		Outbound:    app.outbound,
		APIKeys:     keys,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Minute, // manual sync runs a full cycle in-request
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.APIPort, "data_dir", cfg.DataDir, "database", cfg.DatabaseDriver)
		if !keys.IsPinned() {
			slog.Info("api key loaded from data dir, see `rfpd key show`")
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		return err
	}
	slog.Info("server exited gracefully")
	return nil
}
