package analysis

import (
	"autoviz/internal/frame"
	"sort"
	"strconv"
	"strings"
)

// UnknownValue fills text columns that have no value at all.
const UnknownValue = "Unknown"

// Clean returns a deduplicated, imputed and label-encoded copy of df together
// with the code tables of every encoded column. df is not modified.
//
// Numeric gaps take the column median, other gaps the most frequent value
// (ties go to the smallest) or UnknownValue. Text columns are then encoded
// with codes assigned in sorted order of their distinct values.
func Clean(df *frame.DataFrame) (*frame.DataFrame, frame.EncodingMap) {
	enc := frame.EncodingMap{}
	if df == nil {
		return &frame.DataFrame{}, enc
	}

	deduped := df.Take(uniqueRows(df))
	cols := make([]*frame.Column, len(deduped.Columns))
	for i, c := range deduped.Columns {
		filled := fillMissing(c)
		if filled.Kind == frame.KindText {
			encoded, table := labelEncode(filled)
			enc[c.Name] = table
			filled = encoded
		}
		cols[i] = filled
	}
	return &frame.DataFrame{Columns: cols, FileName: df.FileName}, enc
}

// uniqueRows returns the index of the first occurrence of every distinct row.
// Cells are length-prefixed in the row key so no cell content can shift the
// boundary between two cells.
func uniqueRows(df *frame.DataFrame) []int {
	n := df.NumRows()
	seen := make(map[string]bool, n)
	keep := make([]int, 0, n)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.Reset()
		for _, c := range df.Columns {
			if c.IsMissing(i) {
				b.WriteString("-;")
				continue
			}
			label := c.Label(i)
			b.WriteString(strconv.Itoa(len(label)))
			b.WriteByte(':')
			b.WriteString(label)
		}
		k := b.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		keep = append(keep, i)
	}
	return keep
}

// fillMissing works on a column that Take already copied, so it may write in place.
func fillMissing(c *frame.Column) *frame.Column {
	if c.NullCount() == 0 {
		return c
	}
	switch c.Kind {
	case frame.KindNumeric:
		present := c.Present()
		if len(present) == 0 {
			return c
		}
		m := Median(present)
		for i := range c.Numbers {
			if c.Missing[i] {
				c.Numbers[i] = m
				c.Missing[i] = false
			}
		}
	case frame.KindDatetime:
		idx := modeIndex(c)
		if idx < 0 {
			return c
		}
		fill := c.Times[idx]
		for i := range c.Times {
			if c.Missing[i] {
				c.Times[i] = fill
				c.Missing[i] = false
			}
		}
	case frame.KindText:
		fill := UnknownValue
		if idx := modeIndex(c); idx >= 0 {
			fill = c.Texts[idx]
		}
		for i := range c.Texts {
			if c.Missing[i] {
				c.Texts[i] = fill
				c.Missing[i] = false
			}
		}
	}
	return c
}

// modeIndex returns a row holding the most frequent present value, or -1.
func modeIndex(c *frame.Column) int {
	counts := map[string]int{}
	first := map[string]int{}
	for i := 0; i < c.Len(); i++ {
		if c.Missing[i] {
			continue
		}
		k := c.Key(i)
		if _, ok := first[k]; !ok {
			first[k] = i
		}
		counts[k]++
	}
	best, bestKey := -1, ""
	for k, n := range counts {
		if best < 0 || n > counts[bestKey] || (n == counts[bestKey] && lessKey(c, first[k], first[bestKey])) {
			best, bestKey = first[k], k
		}
	}
	return best
}

func lessKey(c *frame.Column, i, j int) bool {
	switch c.Kind {
	case frame.KindDatetime:
		return c.Times[i].Before(c.Times[j])
	case frame.KindNumeric:
		return c.Numbers[i] < c.Numbers[j]
	}
	return c.Texts[i] < c.Texts[j]
}

func labelEncode(c *frame.Column) (*frame.Column, map[int]string) {
	distinct := map[string]bool{}
	for _, v := range c.Texts {
		distinct[v] = true
	}
	values := make([]string, 0, len(distinct))
	for v := range distinct {
		values = append(values, v)
	}
	sort.Strings(values)

	table := make(map[int]string, len(values))
	codes := make(map[string]int, len(values))
	for code, v := range values {
		table[code] = v
		codes[v] = code
	}

	out := make([]float64, len(c.Texts))
	for i, v := range c.Texts {
		out[i] = float64(codes[v])
	}
	return frame.NewNumeric(c.Name, out, nil), table
}

// DecodeColumn maps an encoded column back to its original strings.
func DecodeColumn(c *frame.Column, table map[int]string) []string {
	out := make([]string, c.Len())
	for i, v := range c.Numbers {
		out[i] = table[int(v)]
	}
	return out
}
