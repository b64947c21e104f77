package service

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"duck-rollup/internal/domain"
)

// writeResultCSV writes a query result with a header row.
func writeResultCSV(path string, res *domain.QueryResult) error {
	f, err := os.Create(path) //nolint:gosec // path derives from the configured output dir
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	writeErr := w.Write(res.Columns)
	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		if writeErr != nil {
			break
		}
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = renderValue(row[i])
			}
		}
		writeErr = w.Write(record)
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}
	if writeErr != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, writeErr)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// renderValue formats one result cell. DATE values scan as midnight
// timestamps; rendering them as plain dates keeps summary and
// main-table outputs byte-identical.
func renderValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// writeRoutingReport writes the run report as indented JSON.
func writeRoutingReport(path string, report *RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode routing report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // report is not sensitive
		return fmt.Errorf("write routing report: %w", err)
	}
	return nil
}
