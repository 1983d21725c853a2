package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maltedev/coinafrique-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://sn.coinafrique.com", cfg.Scraper.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 2, cfg.Scraper.MaxRetries)
	assert.Equal(t, "data_clean", cfg.Output.CleanDir)
	assert.Len(t, cfg.Categories, 4)
	assert.False(t, cfg.DatabaseEnabled())
	assert.False(t, cfg.RedisEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCRAPER_MAX_RETRIES", "4")
	t.Setenv("SCRAPER_PAGE_DELAY", "250ms")
	t.Setenv("SCRAPER_ONLY", "Chaussures Hommes, habits")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DB_HOST", "db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Scraper.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Scraper.PageDelay)
	require.Len(t, cfg.Categories, 3)
	assert.Equal(t, "Chaussures Hommes", cfg.Categories[0].Name)
	assert.Equal(t, "habits", cfg.Categories[1].Label)
	assert.True(t, cfg.RedisEnabled())
	assert.True(t, cfg.DatabaseEnabled())
	assert.Equal(t, "postgres://postgres:@db:5432/coinafrique?sslmode=disable", cfg.Database.DSN())
}

func TestLoadUnknownOnlyCategory(t *testing.T) {
	t.Setenv("SCRAPER_ONLY", "Montres")

	_, err := Load()
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestLoadCategoriesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	content := `categories:
  - name: Chaussures Femmes
    url: /categorie/chaussures-femme
    label: chaussures
    pages: 3
  - name: Sacs
    url: https://sn.coinafrique.com/categorie/sacs
    label: accessoires
selectors:
  title:
    - name: heading
      selector: h2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("SCRAPER_CATEGORIES_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Categories, 2)
	assert.Equal(t, 3, cfg.Categories[0].Pages)
	assert.Equal(t, 5, cfg.Categories[1].Pages)
	require.Len(t, cfg.Selectors.Title, 1)
	assert.Equal(t, "h2", cfg.Selectors.Title[0].Selector)
	assert.NotEmpty(t, cfg.Selectors.Price, "unset selector lists keep defaults")
}

func TestLoadCategoriesFileErrors(t *testing.T) {
	cfg := &Config{}

	err := cfg.LoadCategoriesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("categories: []\n"), 0o644))
	err = cfg.LoadCategoriesFile(empty)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Scraper: ScraperConfig{
				BaseURL:    "https://sn.coinafrique.com",
				Timeout:    time.Second,
				MaxRetries: 2,
			},
			Categories: DefaultCategories(),
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no retries", func(c *Config) { c.Scraper.MaxRetries = 0 }, "SCRAPER_MAX_RETRIES"},
		{"negative delay", func(c *Config) { c.Scraper.PageDelay = -time.Second }, "negative"},
		{"no categories", func(c *Config) { c.Categories = nil }, "at least one category"},
		{"too many pages", func(c *Config) { c.Categories[0].Pages = 21 }, "between 1 and 20"},
		{"zero pages", func(c *Config) { c.Categories[0].Pages = 0 }, "between 1 and 20"},
		{"missing label", func(c *Config) { c.Categories[1].Label = "" }, "label is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestWithPages(t *testing.T) {
	cats := []models.Category{{Name: "A", Pages: 5}, {Name: "B", Pages: 2}}

	out := WithPages(cats, 1)

	assert.Equal(t, 1, out[0].Pages)
	assert.Equal(t, 1, out[1].Pages)
	assert.Equal(t, 5, cats[0].Pages)
}
