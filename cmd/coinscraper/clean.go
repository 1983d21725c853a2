package main

import (
	"fmt"
	"path/filepath"

	"github.com/maltedev/coinafrique-scraper/internal/cleaner"
	"github.com/maltedev/coinafrique-scraper/internal/storage"
	"github.com/spf13/cobra"
)

// NewCleanCmd creates the clean command.
func NewCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean a raw dataset",
		Long: `Clean normalizes column names, trims cells, converts the price column
to a number (dropping rows without a positive price), then removes empty
and duplicate rows. Cleaning a cleaned file changes nothing.`,
		Args: cobra.NoArgs,
		RunE: runCleanCmd,
	}

	cmd.Flags().StringP("in", "i", "", "Raw CSV (default <OUTPUT_RAW_DIR>/all_categories.csv)")
	cmd.Flags().StringP("out", "o", "", "Cleaned CSV (default <OUTPUT_CLEAN_DIR>/cleaned_data.csv)")

	return cmd
}

func runCleanCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	in, _ := cmd.Flags().GetString("in")
	if in == "" {
		in = filepath.Join(cfg.Output.RawDir, cfg.Output.CombinedFile)
	}
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = filepath.Join(cfg.Output.CleanDir, cfg.Output.CleanedFile)
	}

	report, err := cleaner.New(storage.NewCSVStore(), logger, nil).CleanFile(in, out)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "cleaned: %d of %d rows kept (%d without price, %d empty, %d duplicates) -> %s\n",
		report.OutputRows, report.InputRows,
		report.DroppedPrice, report.DroppedEmpty, report.DroppedDuplicate, out)

	return nil
}
