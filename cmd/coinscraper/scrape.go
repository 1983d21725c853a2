package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/maltedev/coinafrique-scraper/internal/cleaner"
	"github.com/maltedev/coinafrique-scraper/internal/config"
	"github.com/maltedev/coinafrique-scraper/internal/database"
	"github.com/maltedev/coinafrique-scraper/internal/events"
	"github.com/maltedev/coinafrique-scraper/internal/fetcher"
	"github.com/maltedev/coinafrique-scraper/internal/metrics"
	"github.com/maltedev/coinafrique-scraper/internal/models"
	"github.com/maltedev/coinafrique-scraper/internal/parser"
	"github.com/maltedev/coinafrique-scraper/internal/pipeline"
	"github.com/maltedev/coinafrique-scraper/internal/ratelimit"
	"github.com/maltedev/coinafrique-scraper/internal/scraper"
	"github.com/maltedev/coinafrique-scraper/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the configured categories and clean the combined dataset",
		Long: `Scrape fetches every configured category page by page, keeps one
record per (title, image) pair, and writes:

  <raw-dir>/<category>.csv        one raw dataset per category
  <raw-dir>/all_categories.csv    all categories combined
  <clean-out>                     the cleaned combined dataset

Examples:
  # Default CoinAfrique categories, 5 pages each
  coinscraper scrape

  # Footwear categories only, 2 pages each
  coinscraper scrape --category chaussures --pages 2

  # One category by name
  coinscraper scrape --category "Vêtements Hommes"

  # Categories from a YAML file
  coinscraper scrape --categories categories.yaml`,
		Args: cobra.NoArgs,
		RunE: runScrapeCmd,
	}

	cmd.Flags().StringP("categories", "c", "", "YAML category file (overrides SCRAPER_CATEGORIES_FILE)")
	cmd.Flags().StringSlice("category", nil, "Only scrape these categories (name or label)")
	cmd.Flags().IntP("pages", "p", 0, fmt.Sprintf("Pages per category, %d-%d (default from configuration)", config.MinPages, config.MaxPages))
	cmd.Flags().String("raw-dir", "", "Directory for raw datasets (default OUTPUT_RAW_DIR)")
	cmd.Flags().String("clean-out", "", "Cleaned dataset path (default <OUTPUT_CLEAN_DIR>/cleaned_data.csv)")
	cmd.Flags().Bool("no-clean", false, "Skip cleaning the combined dataset")

	return cmd
}

func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := applyScrapeFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Port > 0 {
		metrics.Serve(cfg.Metrics.Port, logger)
	}

	runner, repo, closeAll, err := buildRunner(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer closeAll()

	summary := runner.Run(ctx, cfg.Categories)
	printSummary(cmd, summary)
	if repo != nil {
		printStoredCounts(ctx, cmd.OutOrStdout(), repo, summary.RunID, logger)
	}

	noClean, _ := cmd.Flags().GetBool("no-clean")
	if noClean || summary.CombinedFile == "" {
		return nil
	}

	cleanOut, _ := cmd.Flags().GetString("clean-out")
	if cleanOut == "" {
		cleanOut = filepath.Join(cfg.Output.CleanDir, cfg.Output.CleanedFile)
	}

	report, err := cleaner.New(storage.NewCSVStore(), logger, m).CleanFile(summary.CombinedFile, cleanOut)
	if err != nil {
		return fmt.Errorf("clean failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleaned: %d of %d rows kept -> %s\n",
		report.OutputRows, report.InputRows, cleanOut)

	return nil
}

func applyScrapeFlags(cmd *cobra.Command, cfg *config.Config) error {
	if path, _ := cmd.Flags().GetString("categories"); path != "" {
		if err := cfg.LoadCategoriesFile(path); err != nil {
			return err
		}
	}

	if names, _ := cmd.Flags().GetStringSlice("category"); len(names) > 0 {
		selected, err := config.FilterCategories(cfg.Categories, names)
		if err != nil {
			return err
		}
		cfg.Categories = selected
	}

	if pages, _ := cmd.Flags().GetInt("pages"); cmd.Flags().Changed("pages") {
		if pages < config.MinPages || pages > config.MaxPages {
			return fmt.Errorf("--pages must be between %d and %d", config.MinPages, config.MaxPages)
		}
		cfg.Categories = config.WithPages(cfg.Categories, pages)
	}

	if dir, _ := cmd.Flags().GetString("raw-dir"); dir != "" {
		cfg.Output.RawDir = dir
	}

	return nil
}

// buildRunner wires the scrape pipeline. The repository is nil when no
// database is configured. The returned func releases the optional database
// and Redis connections.
func buildRunner(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*pipeline.Runner, *database.ListingRepository, func(), error) {
	f := fetcher.New(fetcher.Options{
		UserAgent:      cfg.Scraper.UserAgent,
		AcceptLanguage: cfg.Scraper.AcceptLanguage,
		Timeout:        cfg.Scraper.Timeout,
		MaxRetries:     cfg.Scraper.MaxRetries,
		RetryDelay:     cfg.Scraper.RetryDelay,
	}, logger, m)

	extractor, err := parser.NewExtractor(cfg.Scraper.BaseURL,
		parser.WithSelectors(cfg.Selectors),
		parser.WithLogger(logger))
	if err != nil {
		return nil, nil, nil, err
	}

	s, err := scraper.NewCategoryScraper(f, extractor, ratelimit.NewFixed(cfg.Scraper.PageDelay),
		cfg.Scraper.BaseURL, logger, m)
	if err != nil {
		return nil, nil, nil, err
	}

	var (
		opts    []pipeline.RunnerOption
		closers []func()
		repo    *database.ListingRepository
	)

	if cfg.DatabaseEnabled() {
		db, err := database.New(ctx, database.Config{
			DSN:      cfg.Database.DSN(),
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, db.Close)

		repo = database.NewListingRepository(db, logger)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		opts = append(opts, pipeline.WithSink(repo))
	}

	if cfg.RedisEnabled() {
		client, err := events.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, nil, err
		}
		publisher := events.NewPublisher(client, cfg.Redis.Stream, logger)
		closers = append(closers, func() { publisher.Close() })
		opts = append(opts, pipeline.WithPublisher(publisher))
	}

	runner := pipeline.NewRunner(s, storage.NewCSVStore(), pipeline.Options{
		RawDir:       cfg.Output.RawDir,
		CombinedFile: cfg.Output.CombinedFile,
	}, logger, opts...)

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	return runner, repo, closeAll, nil
}

type listingCounter interface {
	CountByCategory(ctx context.Context, runID uuid.UUID) ([]database.CategoryCount, error)
}

// printStoredCounts reports the listings the database holds for the run.
func printStoredCounts(ctx context.Context, out io.Writer, counter listingCounter, runID uuid.UUID, logger *slog.Logger) {
	counts, err := counter.CountByCategory(ctx, runID)
	if err != nil {
		logger.Warn("failed to count stored listings", "run_id", runID, "error", err)
		return
	}
	for _, c := range counts {
		fmt.Fprintf(out, "stored %-12s %5d listings\n", c.Category, c.Count)
	}
}

func printSummary(cmd *cobra.Command, summary *models.RunSummary) {
	out := cmd.OutOrStdout()
	for _, c := range summary.Categories {
		if c.Failed() {
			fmt.Fprintf(out, "%-28s %-12s FAILED: %s\n", c.Name, c.Label, c.Err)
			continue
		}
		fmt.Fprintf(out, "%-28s %-12s %5d records\n", c.Name, c.Label, c.Count)
	}
	fmt.Fprintf(out, "total: %d records", summary.Total)
	if summary.CombinedFile != "" {
		fmt.Fprintf(out, " -> %s", summary.CombinedFile)
	}
	fmt.Fprintln(out)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
