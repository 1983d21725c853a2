package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/maltedev/coinafrique-scraper/internal/api"
	"github.com/maltedev/coinafrique-scraper/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cleaned datasets, statistics and zip export over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", "", "Listen address (default SERVER_ADDR)")
	cmd.Flags().String("dir", "", "Directory of cleaned datasets (default OUTPUT_CLEAN_DIR)")
	cmd.Flags().StringSlice("cors-origin", nil, "Allowed CORS origins (default localhost)")

	return cmd
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.Output.CleanDir
	}
	origins, _ := cmd.Flags().GetStringSlice("cors-origin")

	handlers := api.NewHandlers(storage.NewCSVStore(), dir, logger)
	router := api.NewRouter(handlers, api.RouterOptions{
		AllowedOrigins: origins,
		Metrics:        promhttp.Handler(),
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		logger.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", cfg.Server.Addr, "dir", dir)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	<-shutdownDone
	logger.Info("server stopped")
	return nil
}
