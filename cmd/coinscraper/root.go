package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/maltedev/coinafrique-scraper/internal/config"
	"github.com/maltedev/coinafrique-scraper/pkg/logger"
	"github.com/spf13/cobra"
)

var version = "dev"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coinscraper",
		Short: "Scrape and clean CoinAfrique clothing and footwear listings",
		Long: `coinscraper collects clothing and footwear listings from CoinAfrique
category pages, writes one raw CSV per category plus a combined CSV,
cleans the combined dataset and serves cleaned datasets over HTTP.

Configuration comes from the environment (optionally a .env file);
see SCRAPER_*, OUTPUT_*, DATABASE_URL, REDIS_ADDR and LOG_* variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewCleanCmd())
	cmd.AddCommand(NewServeCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and builds the process logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}

	log := logger.New(level, cfg.Logging.Format)
	slog.SetDefault(log)

	return cfg, log, nil
}
