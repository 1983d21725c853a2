package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/maltedev/coinafrique-scraper/internal/metrics"
)

// ErrFetchFailed is returned once every attempt for a URL has failed. The
// page is then treated as having no data.
var ErrFetchFailed = errors.New("fetch failed")

const maxBodyBytes = 10 << 20

// Fetcher retrieves a page body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Options struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

type HTTPFetcher struct {
	client  *http.Client
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(opts Options, logger *slog.Logger, m *metrics.Metrics) *HTTPFetcher {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPFetcher{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		logger:  logger.With("component", "fetcher"),
		metrics: m,
	}
}

// Fetch GETs url, retrying network errors and non-2xx responses up to
// MaxRetries attempts. Attempt n waits RetryDelay*(n-1) first.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= f.opts.MaxRetries; attempt++ {
		if attempt > 1 {
			wait := f.opts.RetryDelay * time.Duration(attempt-1)
			if err := sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, url, err)
			}
		}

		f.metrics.FetchAttempt()
		body, err := f.get(ctx, url)
		if err == nil {
			f.logger.Debug("page fetched", "url", url, "attempt", attempt, "bytes", len(body))
			return body, nil
		}

		lastErr = err
		f.logger.Warn("fetch attempt failed",
			"url", url,
			"attempt", attempt,
			"max_attempts", f.opts.MaxRetries,
			"error", err)

		if ctx.Err() != nil {
			break
		}
	}

	f.metrics.FetchFailed()
	return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrFetchFailed, url, f.opts.MaxRetries, lastErr)
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept-Language", f.opts.AcceptLanguage)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
