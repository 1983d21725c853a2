package storage

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maltedev/coinafrique-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

func sampleDataset() *models.Dataset {
	ds := models.NewDataset("type", "title", "price", "address")
	ds.Rows = append(ds.Rows,
		[]string{"habits", "Boubou brodé", "15000", "Thiès, Sénégal"},
		[]string{"chaussures", "Baskets \"Air\", taille 42", "", "Dakar"},
	)
	return ds
}

func TestWriteAddsBOMAndRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "habits.csv")
	store := NewCSVStore()

	require.NoError(t, store.Write(path, sampleDataset()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, bom), "file starts with a UTF-8 BOM")
	assert.Equal(t, 1, bytes.Count(raw, bom))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")

	got, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, sampleDataset(), got)
}

func TestWriteReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	store := NewCSVStore()

	require.NoError(t, store.Write(path, sampleDataset()))
	require.NoError(t, store.Write(path, models.NewDataset("title")))

	got, err := store.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, got.Columns)
	assert.Equal(t, 0, got.Len())
}

func TestDecodeWithoutBOM(t *testing.T) {
	ds, err := Decode(strings.NewReader("Title,Prix\nRobe,5 000 CFA\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Prix"}, ds.Columns)
	assert.Equal(t, [][]string{{"Robe", "5 000 CFA"}}, ds.Rows)
}

func TestDecodeNormalizesRowWidth(t *testing.T) {
	ds, err := Decode(strings.NewReader("a,b,c\n1\n1,2,3,4\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "", ""}, {"1", "2", "3"}}, ds.Rows)
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestReadMissingFile(t *testing.T) {
	_, err := NewCSVStore().Read(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	store := NewCSVStore()

	require.NoError(t, store.Write(filepath.Join(dir, "b.csv"), sampleDataset()))
	require.NoError(t, store.Write(filepath.Join(dir, "a.csv"), sampleDataset()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	artifacts, err := store.List(dir)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "a.csv", artifacts[0].Name)
	assert.Equal(t, "b.csv", artifacts[1].Name)
	assert.Greater(t, artifacts[0].Size, int64(0))
	assert.Equal(t, filepath.Join(dir, "a.csv"), artifacts[0].Path)
}

func TestListMissingDir(t *testing.T) {
	artifacts, err := NewCSVStore().List(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	store := NewCSVStore()
	first := filepath.Join(dir, "cleaned_data.csv")
	second := filepath.Join(dir, "habits.csv")
	require.NoError(t, store.Write(first, sampleDataset()))
	require.NoError(t, store.Write(second, models.NewDataset("title")))

	var buf bytes.Buffer
	require.NoError(t, store.Archive(&buf, []string{first, second}))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "cleaned_data.csv", zr.File[0].Name)
	assert.Equal(t, "habits.csv", zr.File[1].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)

	want, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, want, content)
}

func TestArchiveMissingFile(t *testing.T) {
	var buf bytes.Buffer
	err := NewCSVStore().Archive(&buf, []string{filepath.Join(t.TempDir(), "gone.csv")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
