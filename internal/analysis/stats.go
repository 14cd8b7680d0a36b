package analysis

import (
	"autoviz/internal/frame"
	"autoviz/internal/logger"
	"autoviz/internal/models"
	"fmt"
)

const headRows = 5

// describeStats is the order of the describe lists.
var describeStats = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Snapshot summarizes df. It never fails: on any internal error it logs and
// returns an empty, well-formed snapshot.
func Snapshot(df *frame.DataFrame) (stats models.DatasetStats) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("dataset snapshot failed, using empty snapshot", "error", fmt.Sprint(r))
			stats = models.EmptyDatasetStats()
		}
	}()

	stats = models.EmptyDatasetStats()
	if df == nil {
		return stats
	}

	rows, cols := df.NumRows(), df.NumCols()
	stats.Shape = [2]int{rows, cols}
	stats.Info.Columns = df.Headers()
	stats.Info.MemoryUsage = 8*rows*cols + 128

	for _, c := range df.Columns {
		nulls := c.NullCount()
		stats.ColumnNullValues[c.Name] = nulls
		stats.TotalNullValues += nulls
		stats.Info.NonNullCounts[c.Name] = rows - nulls
		stats.DTypes[c.Name] = c.DType()

		n := headRows
		if rows < n {
			n = rows
		}
		head := make([]any, n)
		for i := 0; i < n; i++ {
			head[i] = c.Value(i)
		}
		stats.Head[c.Name] = head
	}

	for _, name := range describeStats {
		stats.Describe[name] = []float64{}
	}
	for _, c := range df.NumericColumns() {
		stats.DescribeColumns = append(stats.DescribeColumns, c.Name)
		for name, v := range describe(c.Present()) {
			stats.Describe[name] = append(stats.Describe[name], v)
		}
	}
	return stats
}

func describe(values []float64) map[string]float64 {
	out := make(map[string]float64, len(describeStats))
	out["count"] = float64(len(values))
	sorted := Sorted(values)
	out["mean"] = Mean(values)
	out["std"] = Std(values)
	out["min"] = Quantile(sorted, 0)
	out["25%"] = Quantile(sorted, 0.25)
	out["50%"] = Quantile(sorted, 0.5)
	out["75%"] = Quantile(sorted, 0.75)
	out["max"] = Quantile(sorted, 1)
	for k, v := range out {
		out[k] = Finite(v)
	}
	return out
}
