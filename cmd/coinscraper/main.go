// Package main provides the coinscraper CLI.
//
// Usage:
//
//	coinscraper scrape [--category name-or-label] [--pages N]
//	coinscraper clean --in data/all_categories.csv --out data_clean/cleaned_data.csv
//	coinscraper serve [--addr :8080]
package main

func main() {
	Execute()
}
