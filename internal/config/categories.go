package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/maltedev/coinafrique-scraper/internal/models"
	"github.com/maltedev/coinafrique-scraper/internal/parser"
	"gopkg.in/yaml.v3"
)

var ErrCategoryNotFound = errors.New("category not found")

// CategoriesFile is the YAML layout of SCRAPER_CATEGORIES_FILE.
//
//	categories:
//	  - name: Chaussures Enfants
//	    url: /categorie/chaussures-enfants
//	    label: chaussures
//	    pages: 5
//	selectors:
//	  title:
//	    - {name: heading, selector: h2}
type CategoriesFile struct {
	Categories []models.Category   `yaml:"categories"`
	Selectors  *parser.SelectorSet `yaml:"selectors,omitempty"`
}

const defaultPages = 5

func DefaultCategories() []models.Category {
	return []models.Category{
		{Name: "Chaussures Enfants", URL: "https://sn.coinafrique.com/categorie/chaussures-enfants", Label: "chaussures", Pages: defaultPages},
		{Name: "Chaussures Hommes", URL: "https://sn.coinafrique.com/categorie/chaussures-homme", Label: "chaussures", Pages: defaultPages},
		{Name: "Vêtements Enfants", URL: "https://sn.coinafrique.com/categorie/vetements-enfants", Label: "habits", Pages: defaultPages},
		{Name: "Vêtements Hommes", URL: "https://sn.coinafrique.com/categorie/vetements-homme", Label: "habits", Pages: defaultPages},
	}
}

// LoadCategoriesFile replaces the category list (and, when present, the
// selector set) with the content of a YAML file.
func (c *Config) LoadCategoriesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read categories file: %w", err)
	}

	var cf CategoriesFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse categories file %s: %w", path, err)
	}

	if len(cf.Categories) == 0 {
		return fmt.Errorf("categories file %s lists no categories", path)
	}

	for i := range cf.Categories {
		if cf.Categories[i].Pages == 0 {
			cf.Categories[i].Pages = defaultPages
		}
	}

	c.Categories = cf.Categories
	if cf.Selectors != nil {
		c.Selectors = cf.Selectors.Merge(parser.DefaultSelectors())
	}

	return nil
}

// FilterCategories keeps the categories whose name or label matches one of
// names, case-insensitively, in configuration order.
func FilterCategories(categories []models.Category, names []string) ([]models.Category, error) {
	var selected []models.Category
	for _, cat := range categories {
		for _, n := range names {
			if strings.EqualFold(cat.Name, n) || strings.EqualFold(cat.Label, n) {
				selected = append(selected, cat)
				break
			}
		}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, strings.Join(names, ", "))
	}
	return selected, nil
}

// WithPages returns a copy of categories with every page count set to pages.
func WithPages(categories []models.Category, pages int) []models.Category {
	out := make([]models.Category, len(categories))
	for i, cat := range categories {
		cat.Pages = pages
		out[i] = cat
	}
	return out
}
