package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/coinafrique-scraper/internal/models"
	"github.com/maltedev/coinafrique-scraper/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	results map[string][]*models.Product
	errs    map[string]error
	panics  map[string]bool
	onCall  func(name string)
	calls   []string
}

func (f *fakeScraper) Scrape(ctx context.Context, cat models.Category) ([]*models.Product, error) {
	f.calls = append(f.calls, cat.Name)
	if f.onCall != nil {
		f.onCall(cat.Name)
	}
	if f.panics[cat.Name] {
		panic("selector exploded")
	}
	if err := f.errs[cat.Name]; err != nil {
		return nil, err
	}
	return f.results[cat.Name], nil
}

// failingWriter fails for the listed base names and delegates otherwise.
type failingWriter struct {
	next  DatasetWriter
	fails map[string]bool
}

func (w failingWriter) Write(path string, ds *models.Dataset) error {
	if w.fails[filepath.Base(path)] {
		return os.ErrPermission
	}
	return w.next.Write(path, ds)
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) SaveListings(ctx context.Context, runID uuid.UUID, category string, products []*models.Product) (int, error) {
	args := m.Called(ctx, runID, category, products)
	return args.Int(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishRunCompleted(ctx context.Context, summary *models.RunSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

var testTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func product(label, title string) *models.Product {
	p := models.NewProduct(label, testTime)
	p.Title = models.StringPtr(title)
	p.RawPrice = models.StringPtr("5 000 CFA")
	p.Price = models.Float64Ptr(5000)
	return p
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func categories() []models.Category {
	return []models.Category{
		{Name: "Chaussures Enfants", URL: "/categorie/chaussures-enfants", Label: "chaussures", Pages: 1},
		{Name: "Vêtements Hommes", URL: "/categorie/vetements-homme", Label: "habits", Pages: 1},
	}
}

func TestRunPersistsCategoriesAndCombined(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewCSVStore()
	s := &fakeScraper{results: map[string][]*models.Product{
		"Chaussures Enfants": {product("chaussures", "Sandales"), product("chaussures", "Baskets")},
		"Vêtements Hommes":   {product("habits", "Boubou")},
	}}

	r := NewRunner(s, store, Options{RawDir: dir}, testLogger(), WithClock(func() time.Time { return testTime }))
	summary := r.Run(context.Background(), categories())

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 0, summary.Failed())
	require.Len(t, summary.Categories, 2)
	assert.Equal(t, models.CategoryResult{
		Name:  "Chaussures Enfants",
		Label: "chaussures",
		Count: 2,
		File:  filepath.Join(dir, "chaussures-enfants.csv"),
	}, summary.Categories[0])
	assert.Equal(t, filepath.Join(dir, "vetements-hommes.csv"), summary.Categories[1].File)
	assert.Equal(t, filepath.Join(dir, "all_categories.csv"), summary.CombinedFile)

	combined, err := store.Read(summary.CombinedFile)
	require.NoError(t, err)
	assert.Equal(t, models.ProductColumns, combined.Columns)
	require.Equal(t, 3, combined.Len())
	assert.Equal(t, "Sandales", combined.Value(0, models.ColumnTitle))
	assert.Equal(t, "habits", combined.Value(2, models.ColumnType))
	assert.Equal(t, "5000", combined.Value(2, models.ColumnPrice))
}

func TestRunIsolatesCategoryFailures(t *testing.T) {
	dir := t.TempDir()
	s := &fakeScraper{
		results: map[string][]*models.Product{"c": {product("habits", "Veste")}},
		errs:    map[string]error{"a": errors.New("boom")},
		panics:  map[string]bool{"b": true},
	}
	cats := []models.Category{
		{Name: "a", Label: "habits", Pages: 1},
		{Name: "b", Label: "habits", Pages: 1},
		{Name: "c", Label: "habits", Pages: 1},
	}

	summary := NewRunner(s, storage.NewCSVStore(), Options{RawDir: dir}, testLogger()).Run(context.Background(), cats)

	assert.Equal(t, []string{"a", "b", "c"}, s.calls)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 2, summary.Failed())
	assert.Equal(t, "boom", summary.Categories[0].Err)
	assert.Contains(t, summary.Categories[1].Err, "selector exploded")
	assert.Equal(t, 0, summary.Categories[1].Count)
	assert.Equal(t, 1, summary.Categories[2].Count)

	_, err := os.Stat(filepath.Join(dir, "a.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunPersistenceFailure(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewCSVStore()
	s := &fakeScraper{results: map[string][]*models.Product{
		"Chaussures Enfants": {product("chaussures", "Sandales")},
		"Vêtements Hommes":   {product("habits", "Boubou")},
	}}
	w := failingWriter{next: store, fails: map[string]bool{"chaussures-enfants.csv": true}}

	summary := NewRunner(s, w, Options{RawDir: dir}, testLogger()).Run(context.Background(), categories())

	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 0, summary.Categories[0].Count)
	assert.Contains(t, summary.Categories[0].Err, "permission")
	assert.Equal(t, 1, summary.Categories[1].Count)

	combined, err := store.Read(summary.CombinedFile)
	require.NoError(t, err)
	require.Equal(t, 1, combined.Len())
	assert.Equal(t, "Boubou", combined.Value(0, models.ColumnTitle))
}

func TestRunCombinedWriteFailure(t *testing.T) {
	s := &fakeScraper{results: map[string][]*models.Product{}}
	w := failingWriter{next: storage.NewCSVStore(), fails: map[string]bool{"all_categories.csv": true}}

	summary := NewRunner(s, w, Options{RawDir: t.TempDir()}, testLogger()).Run(context.Background(), categories())

	assert.Empty(t, summary.CombinedFile)
	assert.Equal(t, 0, summary.Failed())
}

func TestRunAllFailing(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewCSVStore()
	s := &fakeScraper{errs: map[string]error{
		"Chaussures Enfants": errors.New("down"),
		"Vêtements Hommes":   errors.New("down"),
	}}

	summary := NewRunner(s, store, Options{RawDir: dir}, testLogger()).Run(context.Background(), categories())

	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 2, summary.Failed())

	combined, err := store.Read(summary.CombinedFile)
	require.NoError(t, err)
	assert.Equal(t, models.ProductColumns, combined.Columns)
	assert.Equal(t, 0, combined.Len())
}

func TestRunStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &fakeScraper{
		results: map[string][]*models.Product{"Chaussures Enfants": {product("chaussures", "Sandales")}},
		onCall:  func(string) { cancel() },
	}

	summary := NewRunner(s, storage.NewCSVStore(), Options{RawDir: t.TempDir()}, testLogger()).Run(ctx, categories())

	assert.Equal(t, []string{"Chaussures Enfants"}, s.calls)
	require.Len(t, summary.Categories, 1)
	assert.Equal(t, 1, summary.Total)
	assert.NotEmpty(t, summary.CombinedFile)
}

func TestRunCancelledCategory(t *testing.T) {
	s := &fakeScraper{errs: map[string]error{
		"Chaussures Enfants": fmt.Errorf("page 2: %w", context.Canceled),
	}}

	summary := NewRunner(s, storage.NewCSVStore(), Options{RawDir: t.TempDir()}, testLogger()).
		Run(context.Background(), categories())

	require.Len(t, summary.Categories, 2)
	assert.Equal(t, ErrCancelled.Error(), summary.Categories[0].Err)
	assert.Equal(t, 0, summary.Categories[0].Count)
	assert.False(t, summary.Categories[1].Failed())
}

func TestRunCollidingSlugs(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewCSVStore()
	s := &fakeScraper{results: map[string][]*models.Product{
		"Vêtements Hommes": {product("habits", "Boubou")},
		"vetements-hommes": {product("habits", "Chemise")},
		"vetements hommes": {product("habits", "Veste")},
	}}
	cats := []models.Category{
		{Name: "Vêtements Hommes", Label: "habits", Pages: 1},
		{Name: "vetements-hommes", Label: "habits", Pages: 1},
		{Name: "vetements hommes", Label: "habits", Pages: 1},
	}

	summary := NewRunner(s, store, Options{RawDir: dir}, testLogger()).Run(context.Background(), cats)

	require.Len(t, summary.Categories, 3)
	assert.Equal(t, filepath.Join(dir, "vetements-hommes.csv"), summary.Categories[0].File)
	assert.Equal(t, filepath.Join(dir, "vetements-hommes-2.csv"), summary.Categories[1].File)
	assert.Equal(t, filepath.Join(dir, "vetements-hommes-3.csv"), summary.Categories[2].File)

	for i, want := range []string{"Boubou", "Chemise", "Veste"} {
		ds, err := store.Read(summary.Categories[i].File)
		require.NoError(t, err)
		require.Equal(t, 1, ds.Len())
		assert.Equal(t, want, ds.Value(0, models.ColumnTitle))
	}
}

func TestRunSinkAndPublisher(t *testing.T) {
	products := []*models.Product{product("chaussures", "Sandales")}
	s := &fakeScraper{results: map[string][]*models.Product{"Chaussures Enfants": products}}

	sink := new(mockSink)
	sink.On("SaveListings", mock.Anything, mock.AnythingOfType("uuid.UUID"), "chaussures", products).Return(1, nil)
	sink.On("SaveListings", mock.Anything, mock.Anything, "habits", mock.Anything).Return(0, errors.New("db down"))

	pub := new(mockPublisher)
	pub.On("PublishRunCompleted", mock.Anything, mock.MatchedBy(func(s *models.RunSummary) bool {
		return s.Total == 1 && len(s.Categories) == 2
	})).Return(errors.New("redis down"))

	r := NewRunner(s, storage.NewCSVStore(), Options{RawDir: t.TempDir()}, testLogger(),
		WithSink(sink), WithPublisher(pub))
	summary := r.Run(context.Background(), categories())

	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 0, summary.Failed())
	sink.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Chaussures Enfants":      "chaussures-enfants",
		"Vêtements Hommes":        "vetements-hommes",
		"vetements-homme":         "vetements-homme",
		"  Sacs & Accessoires!! ": "sacs-accessoires",
		"../../etc/passwd":        "etc-passwd",
		"¿?":                      "category",
	}

	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestFileStem(t *testing.T) {
	used := map[string]bool{}

	assert.Equal(t, "habits", fileStem(used, "Habits"))
	assert.Equal(t, "habits-2", fileStem(used, "habits"))
	assert.Equal(t, "habits-2-2", fileStem(used, "Habits 2"))
	assert.Equal(t, "habits-3", fileStem(used, "HABITS"))
}
