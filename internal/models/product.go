package models

import (
	"strconv"
	"time"
)

// Product is one listing extracted from a category page card. Optional
// fields are nil when the card did not carry them.
type Product struct {
	Category  string    `json:"category"`
	Title     *string   `json:"title,omitempty"`
	RawPrice  *string   `json:"raw_price,omitempty"`
	Price     *float64  `json:"price,omitempty"`
	Location  *string   `json:"location,omitempty"`
	ImageURL  *string   `json:"image_url,omitempty"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// Category is one configured listing source.
type Category struct {
	Name  string `json:"name" yaml:"name"`
	URL   string `json:"url" yaml:"url"`
	Label string `json:"label" yaml:"label"`
	Pages int    `json:"pages" yaml:"pages"`
}

// Raw dataset columns, in the order they are persisted.
const (
	ColumnType      = "type"
	ColumnTitle     = "title"
	ColumnRawPrice  = "raw_price"
	ColumnPrice     = "price"
	ColumnAddress   = "address"
	ColumnImageURL  = "image_url"
	ColumnScrapedAt = "scraped_at"
)

var ProductColumns = []string{
	ColumnType,
	ColumnTitle,
	ColumnRawPrice,
	ColumnPrice,
	ColumnAddress,
	ColumnImageURL,
	ColumnScrapedAt,
}

func NewProduct(category string, scrapedAt time.Time) *Product {
	return &Product{
		Category:  category,
		ScrapedAt: scrapedAt.Truncate(time.Second),
	}
}

// TitleOrEmpty and ImageURLOrEmpty are the fingerprint inputs.
func (p *Product) TitleOrEmpty() string {
	return deref(p.Title)
}

func (p *Product) ImageURLOrEmpty() string {
	return deref(p.ImageURL)
}

// Row renders the product in ProductColumns order.
func (p *Product) Row() []string {
	price := ""
	if p.Price != nil {
		price = FormatPrice(*p.Price)
	}

	scrapedAt := ""
	if !p.ScrapedAt.IsZero() {
		scrapedAt = p.ScrapedAt.Format(time.RFC3339)
	}

	return []string{
		p.Category,
		deref(p.Title),
		deref(p.RawPrice),
		price,
		deref(p.Location),
		deref(p.ImageURL),
		scrapedAt,
	}
}

// FormatPrice is the canonical decimal form used in every persisted dataset.
func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ProductsToDataset builds a raw dataset from extracted products.
func ProductsToDataset(products []*Product) *Dataset {
	ds := NewDataset(ProductColumns...)
	for _, p := range products {
		ds.Rows = append(ds.Rows, p.Row())
	}
	return ds
}

func StringPtr(s string) *string {
	return &s
}

func Float64Ptr(f float64) *float64 {
	return &f
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
