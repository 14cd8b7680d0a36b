package viz

import (
	"autoviz/internal/frame"
	"sort"
)

// category is one distinct value of a column with the rows holding it.
type category struct {
	label string
	num   float64
	rows  []int
}

// groupRows groups the non-missing rows of c by value. Labels of encoded
// columns are decoded through table. Groups come back in natural value order.
func groupRows(c *frame.Column, table map[int]string) []*category {
	index := map[string]*category{}
	var out []*category
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			continue
		}
		key := c.Key(i)
		g, ok := index[key]
		if !ok {
			g = &category{label: labelOf(c, i, table)}
			if c.Kind == frame.KindNumeric {
				g.num = c.Numbers[i]
			} else if c.Kind == frame.KindDatetime {
				g.num = float64(c.Times[i].UnixNano())
			}
			index[key] = g
			out = append(out, g)
		}
		g.rows = append(g.rows, i)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if c.Kind == frame.KindText {
			return out[a].label < out[b].label
		}
		return out[a].num < out[b].num
	})
	return out
}

func labelOf(c *frame.Column, i int, table map[int]string) string {
	if table != nil && c.Kind == frame.KindNumeric {
		if v, ok := table[int(c.Numbers[i])]; ok {
			return v
		}
	}
	return c.Label(i)
}

// topByCount keeps the n largest groups by row count, ties by label, and
// returns them in natural order. truncated reports whether groups were dropped.
func topByCount(groups []*category, n int) (kept []*category, truncated bool) {
	if n <= 0 || len(groups) <= n {
		return groups, false
	}
	pos := make(map[*category]int, len(groups))
	for i, g := range groups {
		pos[g] = i
	}
	ranked := append([]*category(nil), groups...)
	sort.SliceStable(ranked, func(a, b int) bool {
		if len(ranked[a].rows) != len(ranked[b].rows) {
			return len(ranked[a].rows) > len(ranked[b].rows)
		}
		return pos[ranked[a]] < pos[ranked[b]]
	})
	kept = ranked[:n]
	sort.SliceStable(kept, func(a, b int) bool { return pos[kept[a]] < pos[kept[b]] })
	return kept, true
}

// byCountDesc orders groups by count, largest first, ties in natural order.
func byCountDesc(groups []*category) []*category {
	out := append([]*category(nil), groups...)
	sort.SliceStable(out, func(a, b int) bool { return len(out[a].rows) > len(out[b].rows) })
	return out
}

// valuesAt returns the present values of a numeric column at rows.
func valuesAt(c *frame.Column, rows []int) []float64 {
	out := make([]float64, 0, len(rows))
	for _, i := range rows {
		if !c.IsMissing(i) {
			out = append(out, c.Numbers[i])
		}
	}
	return out
}

func labels(groups []*category) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.label
	}
	return out
}
