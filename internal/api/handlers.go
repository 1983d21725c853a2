package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/coinafrique-scraper/internal/models"
	"github.com/maltedev/coinafrique-scraper/internal/stats"
	"github.com/maltedev/coinafrique-scraper/internal/storage"
)

var ErrInvalidName = errors.New("invalid dataset name")

// DatasetStore is the read side of dataset storage.
type DatasetStore interface {
	List(dir string) ([]storage.Artifact, error)
	Read(path string) (*models.Dataset, error)
	Archive(w io.Writer, paths []string) error
}

// Handlers serve the cleaned datasets of one directory.
type Handlers struct {
	store  DatasetStore
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

func NewHandlers(store DatasetStore, dir string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:  store,
		dir:    dir,
		logger: logger.With("component", "api"),
		now:    time.Now,
	}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Datasets int    `json:"datasets"`
	Message  string `json:"message,omitempty"`
}

// Health reports whether the dataset directory can be listed.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	artifacts, err := h.store.List(h.dir)
	if err != nil {
		h.logger.Error("health check failed", "error", err)
		h.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:  "error",
			Message: "dataset directory unavailable",
		})
		return
	}

	h.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Datasets: len(artifacts)})
}

// ListDatasets returns the cleaned CSV artifacts.
func (h *Handlers) ListDatasets(w http.ResponseWriter, r *http.Request) {
	artifacts, err := h.store.List(h.dir)
	if err != nil {
		h.logger.Error("failed to list datasets", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list datasets")
		return
	}

	h.respondJSON(w, http.StatusOK, artifacts)
}

// GetDataset streams one CSV file.
func (h *Handlers) GetDataset(w http.ResponseWriter, r *http.Request) {
	path, ok := h.datasetPath(w, r)
	if !ok {
		return
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		h.respondError(w, http.StatusNotFound, "dataset not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to open dataset", "path", path, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to open dataset")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to open dataset")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

type SummaryResponse struct {
	Name string `json:"name"`
	stats.Summary
}

// GetSummary returns the statistics of one dataset.
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	path, ok := h.datasetPath(w, r)
	if !ok {
		return
	}

	ds, err := h.store.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		h.respondError(w, http.StatusNotFound, "dataset not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to read dataset", "path", path, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to read dataset")
		return
	}

	h.respondJSON(w, http.StatusOK, SummaryResponse{
		Name:    filepath.Base(path),
		Summary: stats.Summarize(ds),
	})
}

// Export sends every cleaned artifact as one zip archive.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	artifacts, err := h.store.List(h.dir)
	if err != nil {
		h.logger.Error("failed to list datasets", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list datasets")
		return
	}
	if len(artifacts) == 0 {
		h.respondError(w, http.StatusNotFound, "no datasets to export")
		return
	}

	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		paths = append(paths, a.Path)
	}

	filename := fmt.Sprintf("datasets_%s.zip", h.now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	// Headers are sent with the first byte, so a failure here can only be
	// logged.
	if err := h.store.Archive(w, paths); err != nil {
		h.logger.Error("failed to write export archive", "error", err)
	}
}

// datasetPath resolves the {name} URL parameter inside the dataset
// directory, answering 400 for anything that is not a plain .csv file name.
func (h *Handlers) datasetPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if err := ValidateName(name); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return filepath.Join(h.dir, name), true
}

// ValidateName accepts plain CSV file names only.
func ValidateName(name string) error {
	switch {
	case name == "",
		strings.ContainsAny(name, `/\`),
		strings.Contains(name, ".."),
		strings.HasPrefix(name, "."),
		!strings.EqualFold(filepath.Ext(name), ".csv"):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
