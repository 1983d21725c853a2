package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/coinafrique-scraper/internal/models"
	"github.com/maltedev/coinafrique-scraper/internal/price"
)

// Extractor reads listing cards with a data-driven SelectorSet.
type Extractor struct {
	selectors SelectorSet
	baseURL   *url.URL
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Extractor)

func WithSelectors(s SelectorSet) Option {
	return func(e *Extractor) {
		e.selectors = s.Merge(DefaultSelectors())
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

func NewExtractor(baseURL string, opts ...Option) (*Extractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	e := &Extractor{
		selectors: DefaultSelectors(),
		baseURL:   base,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "extractor")

	return e, nil
}

func (e *Extractor) ParsePage(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHTML, err)
	}
	return doc, nil
}

// Cards returns the listing cards of a page using the first card selector
// that matches anything. Matches nested inside another match of the same
// selector belong to that card and are dropped. An empty selection means
// the end of the listings.
func (e *Extractor) Cards(doc *goquery.Document) *goquery.Selection {
	for _, selector := range e.selectors.Cards {
		cards := doc.Find(selector)
		if cards.Length() == 0 {
			continue
		}
		return cards.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.ParentsFiltered(selector).Length() == 0
		})
	}
	return doc.FindNodes()
}

// Extract reads one card. Missing fields stay nil. A panic inside the
// card is turned into ErrMalformedCard so the remaining cards still run.
func (e *Extractor) Extract(card *goquery.Selection, category string) (product *models.Product, err error) {
	defer func() {
		if r := recover(); r != nil {
			product = nil
			err = fmt.Errorf("%w: %v", ErrMalformedCard, r)
		}
	}()

	if card == nil {
		return nil, ErrMalformedCard
	}

	product = models.NewProduct(category, e.now())
	product.Title = e.firstText(card, e.selectors.Title)
	product.RawPrice = e.firstText(card, e.selectors.Price)
	product.Location = e.firstText(card, e.selectors.Location)
	product.ImageURL = e.firstImage(card, e.selectors.Image)

	if product.RawPrice != nil {
		if v, ok := price.Normalize(*product.RawPrice); ok {
			product.Price = models.Float64Ptr(v)
		}
	}

	return product, nil
}

func (e *Extractor) firstText(card *goquery.Selection, strategies []Strategy) *string {
	for _, s := range strategies {
		if v := e.apply(card, s); v != "" {
			return &v
		}
	}
	return nil
}

func (e *Extractor) firstImage(card *goquery.Selection, strategies []Strategy) *string {
	for _, s := range strategies {
		v := e.apply(card, s)
		if v == "" {
			continue
		}
		resolved := e.resolve(v)
		return &resolved
	}
	return nil
}

func (e *Extractor) apply(card *goquery.Selection, s Strategy) string {
	match := card.Find(s.Selector).First()
	if match.Length() == 0 {
		return ""
	}

	if len(s.Attrs) == 0 {
		return collapseSpaces(match.Text())
	}

	for _, attr := range s.Attrs {
		v, ok := match.Attr(attr)
		v = strings.TrimSpace(v)
		if !ok || v == "" || strings.HasPrefix(v, "data:") {
			continue
		}
		return v
	}
	return ""
}

func (e *Extractor) resolve(raw string) string {
	ref, err := url.Parse(raw)
	if err != nil {
		e.logger.Debug("unresolvable image url", "url", raw, "error", err)
		return raw
	}
	return e.baseURL.ResolveReference(ref).String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
