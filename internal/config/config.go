package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/maltedev/coinafrique-scraper/internal/models"
	"github.com/maltedev/coinafrique-scraper/internal/parser"
)

const (
	MinPages = 1
	MaxPages = 20
)

type Config struct {
	Scraper    ScraperConfig
	Output     OutputConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Server     ServerConfig
	Metrics    MetricsConfig
	Logging    LoggingConfig
	Categories []models.Category
	Selectors  parser.SelectorSet
}

type ScraperConfig struct {
	BaseURL        string
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	PageDelay      time.Duration
	CategoriesFile string
	Only           []string
}

type OutputConfig struct {
	RawDir       string
	CleanDir     string
	CombinedFile string
	CleanedFile  string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type MetricsConfig struct {
	Port int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file, then the environment, then the category
// file when SCRAPER_CATEGORIES_FILE is set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Default().Warn("failed to read .env file", "error", err)
	}

	cfg := &Config{
		Scraper: ScraperConfig{
			BaseURL:        getEnvOrDefault("SCRAPER_BASE_URL", "https://sn.coinafrique.com"),
			UserAgent:      getEnvOrDefault("SCRAPER_USER_AGENT", defaultUserAgent),
			AcceptLanguage: getEnvOrDefault("SCRAPER_ACCEPT_LANGUAGE", "fr-FR,fr;q=0.9,en;q=0.8"),
			Timeout:        getDurationOrDefault("SCRAPER_TIMEOUT", 15*time.Second),
			MaxRetries:     getIntOrDefault("SCRAPER_MAX_RETRIES", 2),
			RetryDelay:     getDurationOrDefault("SCRAPER_RETRY_DELAY", 2*time.Second),
			PageDelay:      getDurationOrDefault("SCRAPER_PAGE_DELAY", 1*time.Second),
			CategoriesFile: getEnvOrDefault("SCRAPER_CATEGORIES_FILE", ""),
			Only:           getStringSliceOrDefault("SCRAPER_ONLY", nil),
		},
		Output: OutputConfig{
			RawDir:       getEnvOrDefault("OUTPUT_RAW_DIR", "data"),
			CleanDir:     getEnvOrDefault("OUTPUT_CLEAN_DIR", "data_clean"),
			CombinedFile: getEnvOrDefault("OUTPUT_COMBINED_FILE", "all_categories.csv"),
			CleanedFile:  getEnvOrDefault("OUTPUT_CLEANED_FILE", "cleaned_data.csv"),
		},
		Database: DatabaseConfig{
			URL:      getEnvOrDefault("DATABASE_URL", ""),
			Host:     getEnvOrDefault("DB_HOST", ""),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "coinafrique"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 4)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:scrape_runs"),
		},
		Server: ServerConfig{
			Addr:            getEnvOrDefault("SERVER_ADDR", ":8080"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Metrics: MetricsConfig{
			Port: getIntOrDefault("METRICS_PORT", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Categories: DefaultCategories(),
		Selectors:  parser.DefaultSelectors(),
	}

	if cfg.Scraper.CategoriesFile != "" {
		if err := cfg.LoadCategoriesFile(cfg.Scraper.CategoriesFile); err != nil {
			return nil, err
		}
	}

	if len(cfg.Scraper.Only) > 0 {
		selected, err := FilterCategories(cfg.Categories, cfg.Scraper.Only)
		if err != nil {
			return nil, err
		}
		cfg.Categories = selected
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.BaseURL == "" {
		return fmt.Errorf("SCRAPER_BASE_URL is required")
	}

	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1")
	}

	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("SCRAPER_TIMEOUT must be positive")
	}

	if c.Scraper.RetryDelay < 0 || c.Scraper.PageDelay < 0 {
		return fmt.Errorf("scraper delays cannot be negative")
	}

	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}

	for _, cat := range c.Categories {
		if err := ValidateCategory(cat); err != nil {
			return err
		}
	}

	return nil
}

func ValidateCategory(cat models.Category) error {
	if cat.Name == "" {
		return fmt.Errorf("category name is required")
	}
	if cat.URL == "" {
		return fmt.Errorf("category %q: url is required", cat.Name)
	}
	if cat.Label == "" {
		return fmt.Errorf("category %q: label is required", cat.Name)
	}
	if cat.Pages < MinPages || cat.Pages > MaxPages {
		return fmt.Errorf("category %q: pages must be between %d and %d, got %d",
			cat.Name, MinPages, MaxPages, cat.Pages)
	}
	return nil
}

// DatabaseEnabled reports whether a PostgreSQL sink was configured.
func (c *Config) DatabaseEnabled() bool {
	return c.Database.URL != "" || c.Database.Host != ""
}

func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
