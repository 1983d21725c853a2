package storage

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/maltedev/coinafrique-scraper/internal/models"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrEmptyFile = errors.New("csv file has no header")
)

// Artifact describes a dataset file on disk.
type Artifact struct {
	Name     string    `json:"name"`
	Path     string    `json:"-"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// CSVStore reads and writes datasets as UTF-8 CSV with a byte order mark,
// which spreadsheet tools need to detect the encoding.
type CSVStore struct{}

func NewCSVStore() *CSVStore {
	return &CSVStore{}
}

// Write replaces path with ds. The file is written next to its target and
// renamed into place, so readers never see a partial file.
func (s *CSVStore) Write(path string, ds *models.Dataset) error {
	if ds == nil {
		ds = models.NewDataset()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpFile := path + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmpFile, err)
	}

	if err := encode(f, ds); err != nil {
		f.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("close %s: %w", tmpFile, err)
	}

	return os.Rename(tmpFile, path)
}

func encode(w io.Writer, ds *models.Dataset) error {
	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bw)

	if err := cw.Write(ds.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(ds.Rows); err != nil {
		return err
	}

	return bw.Close()
}

// Read loads a dataset. A leading byte order mark is accepted but not
// required. Rows are padded or cut to the header width.
func (s *CSVStore) Read(path string) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}

func Decode(r io.Reader) (*models.Dataset, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	ds := models.NewDataset(header...)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", ds.Len()+1, err)
		}

		row := make([]string, len(header))
		copy(row, record)
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}

// List returns the CSV artifacts in dir sorted by name. A missing directory
// is an empty list.
func (s *CSVStore) List(dir string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Artifact{}, nil
	}
	if err != nil {
		return nil, err
	}

	artifacts := make([]Artifact, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, err
		}

		artifacts = append(artifacts, Artifact{
			Name:     entry.Name(),
			Path:     filepath.Join(dir, entry.Name()),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})

	return artifacts, nil
}

// Archive writes the files at paths into one zip stream, each under its
// base name.
func (s *CSVStore) Archive(w io.Writer, paths []string) error {
	zw := zip.NewWriter(w)

	for _, path := range paths {
		if err := addToZip(zw, path); err != nil {
			zw.Close()
			return err
		}
	}

	return zw.Close()
}

func addToZip(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	entry, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add %s: %w", header.Name, err)
	}

	_, err = io.Copy(entry, f)
	return err
}
