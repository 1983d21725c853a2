package scraper

import (
	"context"
	"errors"

	"github.com/maltedev/coinafrique-scraper/internal/models"
)

var (
	ErrInvalidCategoryURL = errors.New("invalid category URL")
)

// Scraper collects the deduplicated listings of one category.
type Scraper interface {
	Scrape(ctx context.Context, category models.Category) ([]*models.Product, error)
}
