// Package pipeline runs the category scrapers and persists their datasets.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/coinafrique-scraper/internal/models"
	"github.com/maltedev/coinafrique-scraper/internal/scraper"
)

// DatasetWriter persists a dataset at a path.
type DatasetWriter interface {
	Write(path string, ds *models.Dataset) error
}

// ListingSink receives the records of each scraped category.
type ListingSink interface {
	SaveListings(ctx context.Context, runID uuid.UUID, category string, products []*models.Product) (int, error)
}

// ErrCancelled is recorded for a category interrupted by cancellation.
var ErrCancelled = errors.New("cancelled")

// Publisher announces finished runs.
type Publisher interface {
	PublishRunCompleted(ctx context.Context, summary *models.RunSummary) error
}

type Options struct {
	RawDir       string
	CombinedFile string
}

type Runner struct {
	scraper   scraper.Scraper
	store     DatasetWriter
	opts      Options
	sink      ListingSink
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

type RunnerOption func(*Runner)

func WithSink(sink ListingSink) RunnerOption {
	return func(r *Runner) {
		r.sink = sink
	}
}

func WithPublisher(p Publisher) RunnerOption {
	return func(r *Runner) {
		r.publisher = p
	}
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

func NewRunner(s scraper.Scraper, store DatasetWriter, opts Options, logger *slog.Logger, options ...RunnerOption) *Runner {
	if opts.RawDir == "" {
		opts.RawDir = "data"
	}
	if opts.CombinedFile == "" {
		opts.CombinedFile = "all_categories.csv"
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		scraper: s,
		store:   store,
		opts:    opts,
		logger:  logger.With("component", "pipeline"),
		now:     time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Run scrapes categories one after another. A category that fails, or whose
// dataset cannot be written, is recorded with a zero count and left out of
// the combined dataset; the remaining categories still run. Cancellation
// stops before the next category. A summary is always returned.
func (r *Runner) Run(ctx context.Context, categories []models.Category) *models.RunSummary {
	summary := models.NewRunSummary(r.now())
	logger := r.logger.With("run_id", summary.RunID)
	logger.Info("run started", "categories", len(categories))

	datasets := make([]*models.Dataset, 0, len(categories))
	stems := make(map[string]bool, len(categories))

	for _, cat := range categories {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled", "remaining_from", cat.Name, "error", err)
			break
		}

		result, ds := r.runCategory(ctx, summary.RunID, cat, fileStem(stems, cat.Name))
		summary.Add(result)
		if ds != nil {
			datasets = append(datasets, ds)
		}
	}

	combined := models.Concat(datasets...)
	if len(combined.Columns) == 0 {
		combined = models.NewDataset(models.ProductColumns...)
	}
	combinedPath := filepath.Join(r.opts.RawDir, r.opts.CombinedFile)
	if err := r.store.Write(combinedPath, combined); err != nil {
		logger.Error("failed to save combined dataset", "path", combinedPath, "error", err)
	} else {
		summary.CombinedFile = combinedPath
	}

	summary.FinishedAt = r.now()

	if r.publisher != nil {
		if err := r.publisher.PublishRunCompleted(ctx, summary); err != nil {
			logger.Error("failed to publish run event", "error", err)
		}
	}

	logger.Info("run finished",
		"total", summary.Total,
		"failed_categories", summary.Failed(),
		"duration", summary.FinishedAt.Sub(summary.StartedAt))

	return summary
}

// runCategory returns the category result and, when the dataset was
// persisted, the dataset itself.
func (r *Runner) runCategory(ctx context.Context, runID uuid.UUID, cat models.Category, stem string) (models.CategoryResult, *models.Dataset) {
	logger := r.logger.With("run_id", runID, "category", cat.Name)
	result := models.CategoryResult{Name: cat.Name, Label: cat.Label}

	products, err := r.scrape(ctx, cat)
	if err != nil {
		if scraper.IsCancelled(err) {
			logger.Warn("category cancelled", "partial_records", len(products))
			result.Err = ErrCancelled.Error()
			return result, nil
		}
		logger.Error("category failed", "error", err)
		result.Err = err.Error()
		return result, nil
	}

	ds := models.ProductsToDataset(products)
	path := filepath.Join(r.opts.RawDir, stem+".csv")
	if err := r.store.Write(path, ds); err != nil {
		logger.Error("failed to save category dataset", "path", path, "error", err)
		result.Err = fmt.Sprintf("save %s: %v", path, err)
		return result, nil
	}

	result.Count = len(products)
	result.File = path

	if r.sink != nil {
		saved, err := r.sink.SaveListings(ctx, runID, cat.Label, products)
		if err != nil {
			logger.Error("failed to store listings", "error", err)
		} else {
			logger.Debug("listings stored", "rows", saved)
		}
	}

	logger.Info("category done", "records", result.Count, "file", path)
	return result, ds
}

// scrape turns a panic inside the scraper into an error so one category
// cannot take down the run.
func (r *Runner) scrape(ctx context.Context, cat models.Category) (products []*models.Product, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("scraper panic: %v", rec)
		}
	}()

	return r.scraper.Scrape(ctx, cat)
}
