package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/maltedev/coinafrique-scraper/internal/fetcher"
	"github.com/maltedev/coinafrique-scraper/internal/metrics"
	"github.com/maltedev/coinafrique-scraper/internal/models"
	"github.com/maltedev/coinafrique-scraper/internal/parser"
	"github.com/maltedev/coinafrique-scraper/internal/ratelimit"
)

// CategoryScraper walks the pages of one category in order, one request at
// a time.
type CategoryScraper struct {
	fetcher fetcher.Fetcher
	parser  parser.Parser
	limiter ratelimit.RateLimiter
	baseURL *url.URL
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewCategoryScraper(
	f fetcher.Fetcher,
	p parser.Parser,
	limiter ratelimit.RateLimiter,
	baseURL string,
	logger *slog.Logger,
	m *metrics.Metrics,
) (*CategoryScraper, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base %q", ErrInvalidCategoryURL, baseURL)
	}
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CategoryScraper{
		fetcher: f,
		parser:  p,
		limiter: limiter,
		baseURL: base,
		logger:  logger.With("component", "category_scraper"),
		metrics: m,
	}, nil
}

// PageURL resolves categoryURL against the base URL and sets its page
// query parameter.
func (s *CategoryScraper) PageURL(categoryURL string, page int) (string, error) {
	ref, err := url.Parse(categoryURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCategoryURL, err)
	}

	u := s.baseURL.ResolveReference(ref)
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Scrape fetches pages 1..category.Pages. A page that cannot be fetched is
// skipped; a page without cards ends the category. Listings repeating an
// earlier fingerprint are dropped. The only errors returned are an invalid
// category URL and context cancellation.
func (s *CategoryScraper) Scrape(ctx context.Context, category models.Category) ([]*models.Product, error) {
	logger := s.logger.With("category", category.Name, "label", category.Label)

	seen := make(map[uuid.UUID]struct{})
	results := make([]*models.Product, 0)

	for page := 1; page <= category.Pages; page++ {
		if err := s.limiter.Wait(ctx); err != nil {
			logger.Info("scrape cancelled", "page", page, "records", len(results))
			return results, err
		}

		pageURL, err := s.PageURL(category.URL, page)
		if err != nil {
			return results, err
		}

		logger.Info("scraping page", "page", page, "url", pageURL)

		body, err := s.fetcher.Fetch(ctx, pageURL)
		s.limiter.Done()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return results, ctxErr
			}
			s.metrics.Page(metrics.PageFailed)
			logger.Warn("skipping page", "page", page, "error", err)
			continue
		}

		doc, err := s.parser.ParsePage(body)
		if err != nil {
			s.metrics.Page(metrics.PageFailed)
			logger.Warn("skipping unparseable page", "page", page, "error", err)
			continue
		}

		cards := s.parser.Cards(doc)
		if cards.Length() == 0 {
			s.metrics.Page(metrics.PageEmpty)
			logger.Info("no listings on page, end of category", "page", page)
			break
		}
		s.metrics.Page(metrics.PageFetched)

		added, dupes, malformed := 0, 0, 0
		for i := range cards.Nodes {
			product, err := s.parser.Extract(cards.Eq(i), category.Label)
			if err != nil {
				malformed++
				logger.Debug("skipping card", "page", page, "card", i, "error", err)
				continue
			}

			fp := Fingerprint(product.TitleOrEmpty(), product.ImageURLOrEmpty())
			if _, dup := seen[fp]; dup {
				dupes++
				s.metrics.Duplicate(category.Label)
				continue
			}

			seen[fp] = struct{}{}
			results = append(results, product)
			added++
			s.metrics.Record(category.Label)
		}

		logger.Info("page done",
			"page", page,
			"cards", cards.Length(),
			"added", added,
			"duplicates", dupes,
			"malformed", malformed)
	}

	logger.Info("category scraped", "records", len(results))
	return results, nil
}

// IsCancelled reports whether err came from context cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
