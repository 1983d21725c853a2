package metrics

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the scraper counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	FetchAttempts prometheus.Counter
	FetchFailures prometheus.Counter
	Pages         *prometheus.CounterVec
	Records       *prometheus.CounterVec
	Duplicates    *prometheus.CounterVec
	CleanedRows   prometheus.Counter
}

const (
	PageFetched = "fetched"
	PageFailed  = "failed"
	PageEmpty   = "empty"
)

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scraper_fetch_attempts_total",
			Help: "HTTP GET attempts, retries included.",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scraper_fetch_failures_total",
			Help: "Pages given up on after the last retry.",
		}),
		Pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_pages_total",
			Help: "Category pages by outcome.",
		}, []string{"outcome"}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_records_total",
			Help: "Listings kept after deduplication.",
		}, []string{"category"}),
		Duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_duplicates_total",
			Help: "Listings dropped as duplicates within a run.",
		}, []string{"category"}),
		CleanedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scraper_cleaned_rows_total",
			Help: "Rows written to cleaned datasets.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.FetchAttempts, m.FetchFailures, m.Pages, m.Records, m.Duplicates, m.CleanedRows)
	}

	return m
}

func (m *Metrics) FetchAttempt() {
	if m == nil {
		return
	}
	m.FetchAttempts.Inc()
}

func (m *Metrics) FetchFailed() {
	if m == nil {
		return
	}
	m.FetchFailures.Inc()
}

func (m *Metrics) Page(outcome string) {
	if m == nil {
		return
	}
	m.Pages.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Record(category string) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(category).Inc()
}

func (m *Metrics) Duplicate(category string) {
	if m == nil {
		return
	}
	m.Duplicates.WithLabelValues(category).Inc()
}

func (m *Metrics) Cleaned(n int) {
	if m == nil {
		return
	}
	m.CleanedRows.Add(float64(n))
}

// Serve exposes the default gatherer on :port/metrics in the background.
func Serve(port int, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
}
