// Package cleaner turns a raw listings dataset into its analysis-ready form.
package cleaner

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/maltedev/coinafrique-scraper/internal/metrics"
	"github.com/maltedev/coinafrique-scraper/internal/models"
	"github.com/maltedev/coinafrique-scraper/internal/price"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PriceColumns are the names recognised as the price column after column
// normalization, in order of preference.
var PriceColumns = []string{models.ColumnPrice, "prix"}

// Report counts what a cleaning pass removed.
type Report struct {
	InputRows        int `json:"input_rows"`
	OutputRows       int `json:"output_rows"`
	DroppedPrice     int `json:"dropped_price"`
	DroppedEmpty     int `json:"dropped_empty"`
	DroppedDuplicate int `json:"dropped_duplicate"`
}

// Clean returns a cleaned copy of ds. See CleanWithReport.
func Clean(ds *models.Dataset) *models.Dataset {
	out, _ := CleanWithReport(ds)
	return out
}

// CleanWithReport applies, in order: column name normalization, cell
// trimming, price coercion (rows without a positive price are dropped),
// removal of empty rows and removal of exact duplicates keeping the first.
// The input is not modified and cleaning a cleaned dataset changes nothing.
func CleanWithReport(ds *models.Dataset) (*models.Dataset, Report) {
	if ds == nil {
		return models.NewDataset(), Report{}
	}

	out := ds.Clone()
	report := Report{InputRows: out.Len()}

	for i, col := range out.Columns {
		out.Columns[i] = NormalizeColumn(col)
	}

	for _, row := range out.Rows {
		for j := range row {
			row[j] = strings.TrimSpace(row[j])
		}
	}

	if idx := priceColumn(out); idx >= 0 {
		column := out.Columns[idx]
		kept := out.Rows[:0]
		for _, row := range out.Rows {
			if idx >= len(row) {
				report.DroppedPrice++
				continue
			}
			v, ok := ParsePrice(column, row[idx])
			if !ok || v <= 0 {
				report.DroppedPrice++
				continue
			}
			row[idx] = FormatPrice(column, v)
			kept = append(kept, row)
		}
		out.Rows = kept
	}

	kept := out.Rows[:0]
	seen := make(map[string]struct{}, len(out.Rows))
	for _, row := range out.Rows {
		if isEmpty(row) {
			report.DroppedEmpty++
			continue
		}

		key := rowKey(row)
		if _, dup := seen[key]; dup {
			report.DroppedDuplicate++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}
	out.Rows = kept

	report.OutputRows = out.Len()
	return out, report
}

var lower = cases.Lower(language.Und)

// NormalizeColumn trims, lower-cases and replaces spaces with underscores.
func NormalizeColumn(name string) string {
	name = strings.TrimSpace(name)
	name = lower.String(name)
	return strings.ReplaceAll(name, " ", "_")
}

// ParsePrice reads a cell of the named price column. Only the scraper's
// own price column holds canonical decimals; any other column goes through
// the full price rule, so "5.000" there is 5000.
func ParsePrice(column, cell string) (float64, bool) {
	if column == models.ColumnPrice {
		return price.ParseCanonical(cell)
	}
	return price.Normalize(cell)
}

// FormatPrice writes v in the form ParsePrice reads back for column.
func FormatPrice(column string, v float64) string {
	s := models.FormatPrice(v)
	if column == models.ColumnPrice {
		return s
	}
	return strings.Replace(s, ".", ",", 1)
}

func priceColumn(ds *models.Dataset) int {
	for _, name := range PriceColumns {
		if idx := ds.ColumnIndex(name); idx >= 0 {
			return idx
		}
	}
	return -1
}

func isEmpty(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

func rowKey(row []string) string {
	var b strings.Builder
	for _, cell := range row {
		fmt.Fprintf(&b, "%d:%s", len(cell), cell)
	}
	return b.String()
}

// Store is the dataset persistence the file cleaner needs.
type Store interface {
	Read(path string) (*models.Dataset, error)
	Write(path string, ds *models.Dataset) error
}

type Cleaner struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(store Store, logger *slog.Logger, m *metrics.Metrics) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		store:   store,
		logger:  logger.With("component", "cleaner"),
		metrics: m,
	}
}

// CleanFile reads the dataset at in, cleans it and writes it to out.
func (c *Cleaner) CleanFile(in, out string) (Report, error) {
	ds, err := c.store.Read(in)
	if err != nil {
		return Report{}, fmt.Errorf("read %s: %w", in, err)
	}

	cleaned, report := CleanWithReport(ds)

	if err := c.store.Write(out, cleaned); err != nil {
		return report, fmt.Errorf("write %s: %w", out, err)
	}

	c.metrics.Cleaned(report.OutputRows)
	c.logger.Info("dataset cleaned",
		"in", in,
		"out", out,
		"input_rows", report.InputRows,
		"output_rows", report.OutputRows,
		"dropped_price", report.DroppedPrice,
		"dropped_empty", report.DroppedEmpty,
		"dropped_duplicate", report.DroppedDuplicate)

	return report, nil
}
