package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"duck-rollup/internal/config"
	"duck-rollup/internal/domain"
)

func newPrepareCmd() *cobra.Command {
	var (
		dataDir string
		table   string
		sortBy  []string
	)

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Build the main table from event parts",
		Long:  "Loads CSV or Parquet parts from the data directory into the DuckDB main table, sorted for zonemap pruning, and reports table statistics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, cleanup, err := setupApp(cmd.Context(), func(cfg *config.Config) {
				if cmd.Flags().Changed("data-dir") {
					cfg.DataDir = dataDir
				}
				if cmd.Flags().Changed("table") {
					cfg.MainTable = table
				}
				if cmd.Flags().Changed("sort") {
					cfg.SortColumns = sortBy
				}
			})
			if err != nil {
				return err
			}
			defer cleanup()

			// 1. Load the parts into the main table.
			if err := a.Loader.Build(cmd.Context()); err != nil {
				return err
			}

			// 2. Report what was loaded.
			stats, err := a.Loader.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("compute table statistics: %w", err)
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, stats)
			}
			renderStats(stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory (or s3:// prefix) holding event parts")
	cmd.Flags().StringVar(&table, "table", "", "Main table name")
	cmd.Flags().StringSliceVar(&sortBy, "sort", nil, "Sort columns for the main table layout")

	return cmd
}

func renderStats(stats *domain.TableStats) {
	fmt.Fprintf(os.Stdout, "Table %s: %d rows\n\n", stats.Table, stats.Rows)

	cols := make([]string, 0, len(stats.Distinct))
	for col := range stats.Distinct {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "COLUMN\tDISTINCT")
	for _, col := range cols {
		fmt.Fprintf(tw, "%s\t%d\n", col, stats.Distinct[col])
	}
	_ = tw.Flush()
}
