package analysis

import (
	"autoviz/internal/frame"
	"autoviz/internal/models"
)

// Profile classifies every column by its storage kind, preserving column order.
func Profile(df *frame.DataFrame) []models.ColumnDescriptor {
	out := make([]models.ColumnDescriptor, 0, df.NumCols())
	if df == nil {
		return out
	}
	for _, c := range df.Columns {
		out = append(out, models.ColumnDescriptor{Name: c.Name, Type: columnType(c.Kind)})
	}
	return out
}

func columnType(k frame.Kind) string {
	switch k {
	case frame.KindText:
		return models.ColumnCategorical
	case frame.KindDatetime:
		return models.ColumnDatetime
	}
	return models.ColumnNumerical
}

// ColumnsOfType filters descriptors by type.
func ColumnsOfType(cols []models.ColumnDescriptor, typ string) []string {
	var out []string
	for _, c := range cols {
		if c.Type == typ {
			out = append(out, c.Name)
		}
	}
	return out
}
