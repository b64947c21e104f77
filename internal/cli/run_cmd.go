package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"duck-rollup/internal/config"
	"duck-rollup/internal/service"
	"duck-rollup/internal/workload"
)

func newRunCmd() *cobra.Command {
	var (
		workloadPath string
		outDir       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workload end to end",
		Long:  "Analyzes the workload, materializes summary tables, then routes and executes every query, writing one CSV per query plus routing_report.json to the output directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cfg, cleanup, err := setupApp(cmd.Context(), func(cfg *config.Config) {
				if cmd.Flags().Changed("out") {
					cfg.OutDir = outDir
				}
			})
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

			// 3. Analyze, materialize, route, and execute.
			report, err := a.Runner.Run(cmd.Context(), wl.Queries, stats, service.RunOptions{OutDir: cfg.OutDir})
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, report)
			}
			renderRunReport(report, cfg.OutDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&workloadPath, "workload", "", "Workload file (.json, .yaml, or .yml)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory for query CSVs and the routing report")
	_ = cmd.MarkFlagRequired("workload")

	return cmd
}

func renderRunReport(report *service.RunReport, outDir string) {
	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "QUERY\tROUTED\tTARGET\tROWS\tMS\tSTATUS\tERROR")
	for _, qr := range report.Queries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			qr.QueryID, yesNo(qr.Routed), qr.Target, qr.RowCount, qr.DurationMS, qr.Status, qr.Error)
	}
	_ = tw.Flush()

	fmt.Fprintf(os.Stdout, "\nRun %s: %d/%d queries answered from summaries (%.1f%% hit rate)\n",
		report.RunID, report.Stats.SummaryTableHits, report.Stats.QueryCount, report.Stats.HitRatePercent)
	if outDir != "" {
		fmt.Fprintf(os.Stdout, "Results written to %s\n", outDir)
	}

	for _, failure := range report.Failures {
		fmt.Fprintf(os.Stderr, "materialize %s failed: %s\n", failure.Table, failure.Error)
	}
}
