// Package workload loads query batches from JSON or YAML files. Decoding
// is shape-lenient on purpose: semantic problems (unknown operators,
// malformed select lists) stay attached to their query so batch analysis
// can record them individually instead of rejecting the file.
package workload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"duck-rollup/internal/domain"
)

// Workload is a decoded query batch.
type Workload struct {
	Queries []*domain.Query
}

// Load reads a workload file, dispatching on extension: .json, .yaml, or
// .yml. Queries without an id get q1, q2, ... by position; queries
// without a from get mainTable.
func Load(path, mainTable string) (*Workload, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("read workload %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return Parse(data, mainTable)
	case ".yaml", ".yml":
		return ParseYAML(data, mainTable)
	default:
		return nil, domain.ErrValidation("workload %s: unsupported extension (want .json, .yaml, or .yml)", path)
	}
}

// Parse decodes a JSON workload: either {"queries": [...]} or a bare
// query array.
func Parse(data []byte, mainTable string) (*Workload, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, domain.ErrValidation("workload is empty")
	}

	var queries []*domain.Query
	if trimmed[0] == '[' {
		if err := json.Unmarshal(data, &queries); err != nil {
			return nil, domain.ErrValidation("decode workload: %v", err)
		}
	} else {
		var doc struct {
			Queries []*domain.Query `json:"queries"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, domain.ErrValidation("decode workload: %v", err)
		}
		queries = doc.Queries
	}

	return finish(queries, mainTable)
}

// ParseYAML decodes a YAML workload by converting the document to its
// JSON equivalent and reusing the JSON path, so both formats share one
// set of shape rules and exact numeric capture.
func ParseYAML(data []byte, mainTable string) (*Workload, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, domain.ErrValidation("decode workload yaml: %v", err)
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, domain.ErrValidation("convert workload yaml: %v", err)
	}
	return Parse(jsonData, mainTable)
}

func finish(queries []*domain.Query, mainTable string) (*Workload, error) {
	if len(queries) == 0 {
		return nil, domain.ErrValidation("workload has no queries")
	}

	seen := make(map[string]struct{}, len(queries))
	for i, q := range queries {
		if q == nil {
			return nil, domain.ErrValidation("workload query %d is null", i+1)
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		if q.From == "" {
			q.From = mainTable
		}
		if _, dup := seen[q.ID]; dup {
			return nil, domain.ErrValidation("duplicate query id %q", q.ID)
		}
		seen[q.ID] = struct{}{}
	}

	return &Workload{Queries: queries}, nil
}
