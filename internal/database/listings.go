package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/coinafrique-scraper/internal/models"
	"github.com/maltedev/coinafrique-scraper/internal/scraper"
)

const createListingsTable = `
	CREATE TABLE IF NOT EXISTS listings (
		run_id      UUID        NOT NULL,
		fingerprint UUID        NOT NULL,
		category    TEXT        NOT NULL,
		title       TEXT,
		raw_price   TEXT,
		price       NUMERIC(14, 2),
		location    TEXT,
		image_url   TEXT,
		scraped_at  TIMESTAMPTZ NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, category, fingerprint)
	);
	CREATE INDEX IF NOT EXISTS idx_listings_category ON listings (category);
	CREATE INDEX IF NOT EXISTS idx_listings_scraped_at ON listings (scraped_at DESC);
`

const insertListing = `
	INSERT INTO listings (
		run_id, fingerprint, category, title, raw_price,
		price, location, image_url, scraped_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (run_id, category, fingerprint) DO NOTHING
`

// CategoryCount is the number of listings stored for a category in a run.
type CategoryCount struct {
	Category string
	Count    int
}

type ListingRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewListingRepository(db *DB, logger *slog.Logger) *ListingRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingRepository{
		db:     db,
		logger: logger.With("component", "listing_repository"),
	}
}

// Migrate creates the listings table and its indexes when missing.
func (r *ListingRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createListingsTable); err != nil {
		return fmt.Errorf("failed to migrate listings: %w", err)
	}
	return nil
}

// SaveListings inserts the products of one category for a run in a single
// batch. Rows already stored for the run and category are skipped; the same
// listing under another category is kept. It returns the number
// of inserted rows.
func (r *ListingRepository) SaveListings(ctx context.Context, runID uuid.UUID, category string, products []*models.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(insertListing, listingArgs(runID, category, p)...)
	}

	inserted := 0
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		defer results.Close()

		for range products {
			tag, err := results.Exec()
			if err != nil {
				return fmt.Errorf("failed to insert listing: %w", err)
			}
			inserted += int(tag.RowsAffected())
		}
		return results.Close()
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debug("listings saved",
		"run_id", runID,
		"category", category,
		"inserted", inserted,
		"skipped", len(products)-inserted)

	return inserted, nil
}

func listingArgs(runID uuid.UUID, category string, p *models.Product) []interface{} {
	return []interface{}{
		runID,
		scraper.Fingerprint(p.TitleOrEmpty(), p.ImageURLOrEmpty()),
		category,
		p.Title,
		p.RawPrice,
		p.Price,
		p.Location,
		p.ImageURL,
		p.ScrapedAt,
	}
}

// CountByCategory returns per-category listing counts for a run.
func (r *ListingRepository) CountByCategory(ctx context.Context, runID uuid.UUID) ([]CategoryCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT category, COUNT(*)
		FROM listings
		WHERE run_id = $1
		GROUP BY category
		ORDER BY category
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}

	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (CategoryCount, error) {
		var c CategoryCount
		err := row.Scan(&c.Category, &c.Count)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan counts: %w", err)
	}

	return counts, nil
}
