package frame

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind is the storage kind of a column.
type Kind int

const (
	KindNumeric Kind = iota
	KindText
	KindDatetime
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindDatetime:
		return "datetime"
	}
	return "unknown"
}

// DateLayout is used when datetime cells are rendered as text.
const DateLayout = "2006-01-02 15:04:05"

// Column holds one typed column. Only the slice matching Kind is populated;
// Missing has one entry per row for every kind.
type Column struct {
	Name    string
	Kind    Kind
	Numbers []float64
	Texts   []string
	Times   []time.Time
	Missing []bool
}

// NewNumeric creates a numeric column. A nil missing slice means no missing cells.
func NewNumeric(name string, values []float64, missing []bool) *Column {
	return &Column{Name: name, Kind: KindNumeric, Numbers: values, Missing: fillMissing(missing, len(values))}
}

// NewText creates a text column.
func NewText(name string, values []string, missing []bool) *Column {
	return &Column{Name: name, Kind: KindText, Texts: values, Missing: fillMissing(missing, len(values))}
}

// NewDatetime creates a datetime column.
func NewDatetime(name string, values []time.Time, missing []bool) *Column {
	return &Column{Name: name, Kind: KindDatetime, Times: values, Missing: fillMissing(missing, len(values))}
}

func fillMissing(missing []bool, n int) []bool {
	if missing != nil {
		return missing
	}
	return make([]bool, n)
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	return len(c.Missing)
}

// IsMissing reports whether row i has no value.
func (c *Column) IsMissing(i int) bool {
	return c.Missing[i]
}

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, m := range c.Missing {
		if m {
			n++
		}
	}
	return n
}

// IsIntegral reports whether a numeric column has no missing cells and
// only whole values.
func (c *Column) IsIntegral() bool {
	if c.Kind != KindNumeric {
		return false
	}
	for i, v := range c.Numbers {
		if c.Missing[i] || v != math.Trunc(v) {
			return false
		}
	}
	return true
}

// DType returns the pandas-style dtype name of the column.
func (c *Column) DType() string {
	switch c.Kind {
	case KindNumeric:
		if c.IsIntegral() {
			return "int64"
		}
		return "float64"
	case KindDatetime:
		return "datetime64[ns]"
	}
	return "object"
}

// Value returns the cell at row i as a JSON friendly value, nil when missing.
func (c *Column) Value(i int) any {
	if c.Missing[i] {
		return nil
	}
	switch c.Kind {
	case KindNumeric:
		v := c.Numbers[i]
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int64(v)
		}
		return v
	case KindDatetime:
		return c.Times[i].Format(DateLayout)
	}
	return c.Texts[i]
}

// Key returns a canonical string for row i, used for equality and counting.
func (c *Column) Key(i int) string {
	if c.Missing[i] {
		return "\x00"
	}
	return c.Label(i)
}

// Label returns the display text of row i.
func (c *Column) Label(i int) string {
	if c.Missing[i] {
		return ""
	}
	switch c.Kind {
	case KindNumeric:
		return strconv.FormatFloat(c.Numbers[i], 'g', -1, 64)
	case KindDatetime:
		return c.Times[i].Format(DateLayout)
	}
	return c.Texts[i]
}

// Present returns the non-missing values of a numeric column in row order.
func (c *Column) Present() []float64 {
	if c.Kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.Numbers))
	for i, v := range c.Numbers {
		if !c.Missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// Take returns a new column holding the given rows in order.
func (c *Column) Take(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Missing: make([]bool, len(rows))}
	switch c.Kind {
	case KindNumeric:
		out.Numbers = make([]float64, len(rows))
	case KindText:
		out.Texts = make([]string, len(rows))
	case KindDatetime:
		out.Times = make([]time.Time, len(rows))
	}
	for j, i := range rows {
		out.Missing[j] = c.Missing[i]
		switch c.Kind {
		case KindNumeric:
			out.Numbers[j] = c.Numbers[i]
		case KindText:
			out.Texts[j] = c.Texts[i]
		case KindDatetime:
			out.Times[j] = c.Times[i]
		}
	}
	return out
}

// DataFrame is an in-memory table of typed columns. Frames are treated as
// immutable once built; transforms return new frames.
type DataFrame struct {
	Columns  []*Column
	FileName string
}

// New builds a frame and checks that all columns have the same length and
// distinct names.
func New(columns ...*Column) (*DataFrame, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if c.Len() != columns[0].Len() {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), columns[0].Len())
		}
	}
	return &DataFrame{Columns: columns}, nil
}

// NumRows returns the number of rows.
func (df *DataFrame) NumRows() int {
	if df == nil || len(df.Columns) == 0 {
		return 0
	}
	return df.Columns[0].Len()
}

// NumCols returns the number of columns.
func (df *DataFrame) NumCols() int {
	if df == nil {
		return 0
	}
	return len(df.Columns)
}

// Empty reports whether the frame has no rows or no columns.
func (df *DataFrame) Empty() bool {
	return df.NumRows() == 0 || df.NumCols() == 0
}

// Headers returns the column names in order.
func (df *DataFrame) Headers() []string {
	names := make([]string, len(df.Columns))
	for i, c := range df.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by name.
func (df *DataFrame) Column(name string) (*Column, bool) {
	for _, c := range df.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// NumericColumns returns the numeric columns in frame order.
func (df *DataFrame) NumericColumns() []*Column {
	var out []*Column
	for _, c := range df.Columns {
		if c.Kind == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// Take returns a new frame with the given rows.
func (df *DataFrame) Take(rows []int) *DataFrame {
	cols := make([]*Column, len(df.Columns))
	for i, c := range df.Columns {
		cols[i] = c.Take(rows)
	}
	return &DataFrame{Columns: cols, FileName: df.FileName}
}
