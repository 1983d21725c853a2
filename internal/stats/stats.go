// Package stats aggregates a cleaned dataset for the dashboard.
package stats

import (
	"math"
	"sort"

	"github.com/maltedev/coinafrique-scraper/internal/cleaner"
	"github.com/maltedev/coinafrique-scraper/internal/models"
)

// HistogramBins is the number of equal-width price buckets.
const HistogramBins = 10

type PriceSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type Bucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type Summary struct {
	Rows       int          `json:"rows"`
	Price      PriceSummary `json:"price"`
	Histogram  []Bucket     `json:"histogram"`
	ByCategory []Count      `json:"by_category"`
	ByLocation []Count      `json:"by_location"`
}

// Summarize computes row and price aggregates plus listing counts per
// category and per location, most frequent first. Cells that do not parse
// as a price are left out of the price figures.
func Summarize(ds *models.Dataset) Summary {
	s := Summary{
		Histogram:  []Bucket{},
		ByCategory: []Count{},
		ByLocation: []Count{},
	}
	if ds == nil {
		return s
	}
	s.Rows = ds.Len()

	prices := make([]float64, 0, ds.Len())
	if col := priceColumn(ds); col != "" {
		for i := range ds.Rows {
			if v, ok := cleaner.ParsePrice(col, ds.Value(i, col)); ok {
				prices = append(prices, v)
			}
		}
	}

	s.Price = summarizePrices(prices)
	s.Histogram = histogram(prices, s.Price)
	s.ByCategory = countBy(ds, models.ColumnType)
	s.ByLocation = countBy(ds, models.ColumnAddress)

	return s
}

func priceColumn(ds *models.Dataset) string {
	for _, name := range cleaner.PriceColumns {
		if ds.ColumnIndex(name) >= 0 {
			return name
		}
	}
	return ""
}

func summarizePrices(prices []float64) PriceSummary {
	if len(prices) == 0 {
		return PriceSummary{}
	}

	ps := PriceSummary{
		Count: len(prices),
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
	}
	sum := 0.0
	for _, p := range prices {
		sum += p
		ps.Min = math.Min(ps.Min, p)
		ps.Max = math.Max(ps.Max, p)
	}
	ps.Mean = sum / float64(len(prices))

	return ps
}

func histogram(prices []float64, ps PriceSummary) []Bucket {
	if len(prices) == 0 {
		return []Bucket{}
	}
	if ps.Min == ps.Max {
		return []Bucket{{Low: ps.Min, High: ps.Max, Count: len(prices)}}
	}

	width := (ps.Max - ps.Min) / HistogramBins
	buckets := make([]Bucket, HistogramBins)
	for i := range buckets {
		buckets[i].Low = ps.Min + float64(i)*width
		buckets[i].High = ps.Min + float64(i+1)*width
	}
	buckets[HistogramBins-1].High = ps.Max

	for _, p := range prices {
		i := int((p - ps.Min) / width)
		if i >= HistogramBins {
			i = HistogramBins - 1
		}
		buckets[i].Count++
	}

	return buckets
}

// countBy counts non-empty values of column, sorted by count descending
// then value.
func countBy(ds *models.Dataset, column string) []Count {
	if ds.ColumnIndex(column) < 0 {
		return []Count{}
	}

	counts := make(map[string]int)
	for i := range ds.Rows {
		if v := ds.Value(i, column); v != "" {
			counts[v]++
		}
	}

	out := make([]Count, 0, len(counts))
	for v, n := range counts {
		out = append(out, Count{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})

	return out
}
