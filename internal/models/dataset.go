package models

import (
	"encoding/json"
	"fmt"
)

// Column type constants
const (
	ColumnNumerical   = "numerical"
	ColumnCategorical = "categorical"
	ColumnDatetime    = "datetime"
)

// ColumnDescriptor is the profiled type of one column
type ColumnDescriptor struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// StatsSchemaVersion tags persisted statistics snapshots.
const StatsSchemaVersion = "autoviz.stats/v1"

// DatasetInfo mirrors the structural part of a snapshot
type DatasetInfo struct {
	Columns       []string       `json:"columns"`
	NonNullCounts map[string]int `json:"non_null_counts"`
	MemoryUsage   int            `json:"memory_usage"`
}

// DatasetStats is the statistics snapshot taken from the raw upload.
// Describe holds one list per statistic, aligned with DescribeColumns.
type DatasetStats struct {
	SchemaVersion    string               `json:"schema_version"`
	Shape            [2]int               `json:"shape"`
	TotalNullValues  int                  `json:"total_null_values"`
	ColumnNullValues map[string]int       `json:"column_null_values"`
	DTypes           map[string]string    `json:"dtypes"`
	Head             map[string][]any     `json:"head"`
	Describe         map[string][]float64 `json:"describe"`
	DescribeColumns  []string             `json:"describe_columns"`
	Info             DatasetInfo          `json:"info"`
}

// EmptyDatasetStats returns a well-formed snapshot with zeroed fields.
func EmptyDatasetStats() DatasetStats {
	s := DatasetStats{SchemaVersion: StatsSchemaVersion}
	s.Normalize()
	return s
}

// Normalize replaces nil collections with empty ones.
func (s *DatasetStats) Normalize() {
	if s.ColumnNullValues == nil {
		s.ColumnNullValues = map[string]int{}
	}
	if s.DTypes == nil {
		s.DTypes = map[string]string{}
	}
	if s.Head == nil {
		s.Head = map[string][]any{}
	}
	if s.Describe == nil {
		s.Describe = map[string][]float64{}
	}
	if s.DescribeColumns == nil {
		s.DescribeColumns = []string{}
	}
	if s.Info.Columns == nil {
		s.Info.Columns = []string{}
	}
	if s.Info.NonNullCounts == nil {
		s.Info.NonNullCounts = map[string]int{}
	}
}

// NumericColumns returns the columns whose dtype is numeric.
func (s DatasetStats) NumericColumns() []string {
	var out []string
	for _, col := range s.Info.Columns {
		switch s.DTypes[col] {
		case "int64", "float64":
			out = append(out, col)
		}
	}
	return out
}

// ParseDatasetStats decodes a persisted snapshot. Payloads without a schema
// version are read as legacy data; other versions are rejected.
func ParseDatasetStats(data []byte) (DatasetStats, error) {
	s := EmptyDatasetStats()
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return EmptyDatasetStats(), fmt.Errorf("decode dataset stats: %w", err)
	}
	if s.SchemaVersion != "" && s.SchemaVersion != StatsSchemaVersion {
		return EmptyDatasetStats(), fmt.Errorf("unsupported stats schema version %q", s.SchemaVersion)
	}
	s.Normalize()
	return s, nil
}
