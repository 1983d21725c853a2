package parser

import (
	"errors"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/coinafrique-scraper/internal/models"
)

var (
	ErrMalformedCard = errors.New("malformed listing card")
	ErrInvalidHTML   = errors.New("invalid listing page html")
)

// Parser turns a category page into listing cards and cards into products.
type Parser interface {
	ParsePage(body []byte) (*goquery.Document, error)
	Cards(doc *goquery.Document) *goquery.Selection
	Extract(card *goquery.Selection, category string) (*models.Product, error)
}
