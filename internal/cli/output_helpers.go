package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"duck-rollup/internal/domain"
)

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTable returns a tabwriter for aligned column output. Call Flush
// after the last row.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
}

// specColumns renders a spec's constants and aggregates for table output.
func specColumns(spec *domain.SummarySpec) (constants, aggregates string) {
	parts := make([]string, 0, len(spec.Constants))
	for _, c := range spec.Constants {
		parts = append(parts, fmt.Sprintf("%s=%v", c.Column, c.Value))
	}
	constants = strings.Join(parts, ", ")

	names := make([]string, 0, len(spec.Aggregates))
	for _, a := range spec.Aggregates {
		names = append(names, a.Name())
	}
	aggregates = strings.Join(names, ", ")
	return constants, aggregates
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
