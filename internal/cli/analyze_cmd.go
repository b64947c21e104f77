package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"duck-rollup/internal/service"
	"duck-rollup/internal/workload"
)

func newAnalyzeCmd() *cobra.Command {
	var workloadPath string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Plan and materialize summary tables for a workload",
		Long:  "Classifies every query in the workload, merges the candidates into summary-table specs, materializes them in DuckDB, and persists the catalog.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cfg, cleanup, err := setupApp(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			// 1. Decode the workload.
			wl, err := workload.Load(workloadPath, cfg.MainTable)
			if err != nil {
				return err
			}

			// 2. Compute main-table statistics for the cardinality guard.
			stats, err := a.Loader.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("compute table statistics: %w", err)
			}

			// 3. Analyze, materialize, and persist the catalog.
			report, failures, err := a.Runner.Analyze(cmd.Context(), wl.Queries, stats)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]interface{}{
					"specs":                report.Specs,
					"queries":              report.Queries,
					"materialize_failures": failures,
				})
			}
			renderAnalyzeReport(report, failures)
			return nil
		},
	}

	cmd.Flags().StringVar(&workloadPath, "workload", "", "Workload file (.json, .yaml, or .yml)")
	_ = cmd.MarkFlagRequired("workload")

	return cmd
}

func renderAnalyzeReport(report *service.AnalyzeReport, failures []service.MaterializeFailure) {
	fmt.Fprintf(os.Stdout, "Planned %d summary table(s) from %d query(ies)\n\n", len(report.Specs), len(report.Queries))

	if len(report.Specs) > 0 {
		tw := newTable(os.Stdout)
		fmt.Fprintln(tw, "TABLE\tDIMENSIONS\tCONSTANTS\tAGGREGATES")
		for _, spec := range report.Specs {
			constants, aggregates := specColumns(spec)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", spec.Table, strings.Join(spec.Dimensions, ", "), constants, aggregates)
		}
		_ = tw.Flush()
		fmt.Fprintln(os.Stdout)
	}

	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "QUERY\tSTATUS\tTABLE\tDETAIL")
	for _, qa := range report.Queries {
		detail := qa.Reason
		if qa.Error != "" {
			detail = qa.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", qa.QueryID, qa.Status, qa.Table, detail)
	}
	_ = tw.Flush()

	for _, failure := range failures {
		fmt.Fprintf(os.Stderr, "materialize %s failed: %s\n", failure.Table, failure.Error)
	}
}
