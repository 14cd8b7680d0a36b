package viz

import (
	"autoviz/internal/analysis"
	"autoviz/internal/frame"
	"autoviz/internal/models"
	"errors"
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func requireNumeric(c *frame.Column) error {
	if c.Kind != frame.KindNumeric {
		return fmt.Errorf("column '%s' is not numerical", c.Name)
	}
	return nil
}

func (r *Renderer) histogram(xc *frame.Column) (Result, error) {
	if err := requireNumeric(xc); err != nil {
		return Result{}, err
	}
	values := xc.Present()
	if len(values) == 0 {
		return Result{}, fmt.Errorf("column '%s' has no values to plot", xc.Name)
	}

	sorted := analysis.Sorted(values)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	bins := r.HistogramBins
	if lo == hi {
		bins = 1
	}
	width := hi/float64(bins) - lo/float64(bins)
	counts := make([]int, bins)
	for _, v := range values {
		b := bins - 1
		if width > 0 {
			b = int((v/2 - lo/2) / (width / 2))
			if b >= bins {
				b = bins - 1
			}
		}
		counts[b]++
	}

	xLabels := make([]string, bins)
	data := make([]opts.BarData, bins)
	for i := range counts {
		start := lo + float64(i)*width
		xLabels[i] = fmt.Sprintf("%.4g to %.4g", start, start+width)
		data[i] = opts.BarData{Value: counts[i]}
	}

	stats := map[string]float64{
		"count":    float64(len(values)),
		"min":      lo,
		"max":      hi,
		"mean":     analysis.Mean(values),
		"std":      analysis.Std(values),
		"skewness": analysis.Skewness(values),
	}
	desc := fmt.Sprintf("Histogram of %s over %d values: min %.2f, max %.2f, mean %.2f, std %.2f, skewness %.2f.",
		xc.Name, len(values), stats["min"], stats["max"], stats["mean"], stats["std"], stats["skewness"])

	c := charts.NewBar()
	c.SetGlobalOptions(append(baseOptions("Distribution of "+xc.Name, ""),
		charts.WithXAxisOpts(opts.XAxis{Name: xc.Name, AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Frequency"}),
	)...)
	c.SetXAxis(xLabels).AddSeries("Frequency", data)
	return finish(c, desc, stats)
}

func (r *Renderer) bar(xc, yc *frame.Column, enc frame.EncodingMap) (Result, error) {
	all := groupRows(xc, enc[xc.Name])
	groups, truncated := topByCount(all, r.BarMaxCategories)
	if len(groups) == 0 {
		return Result{}, fmt.Errorf("column '%s' has no values to plot", xc.Name)
	}
	note := ""
	if truncated {
		note = fmt.Sprintf(" (top %d of %d by frequency)", len(groups), len(all))
	}

	if yc == nil {
		data := make([]opts.BarData, len(groups))
		lowest, highest := groups[0], groups[0]
		for i, g := range groups {
			data[i] = opts.BarData{Value: len(g.rows)}
			if len(g.rows) < len(lowest.rows) {
				lowest = g
			}
			if len(g.rows) > len(highest.rows) {
				highest = g
			}
		}
		stats := map[string]float64{
			"categories": float64(len(groups)),
			"min_count":  float64(len(lowest.rows)),
			"max_count":  float64(len(highest.rows)),
		}
		desc := fmt.Sprintf("Bar chart of %s frequency across %d categories%s; counts range from %d (%s) to %d (%s).",
			xc.Name, len(groups), note, len(lowest.rows), lowest.label, len(highest.rows), highest.label)

		c := charts.NewBar()
		c.SetGlobalOptions(append(baseOptions("Frequency of "+xc.Name, ""),
			charts.WithXAxisOpts(opts.XAxis{Name: xc.Name, AxisLabel: &opts.AxisLabel{Rotate: 45}}),
			charts.WithYAxisOpts(opts.YAxis{Name: "Count"}),
		)...)
		c.SetXAxis(labels(groups)).AddSeries("Count", data)
		return finish(c, desc, stats)
	}

	if err := requireNumeric(yc); err != nil {
		return Result{}, err
	}
	var kept []*category
	var means []float64
	for _, g := range groups {
		vals := valuesAt(yc, g.rows)
		if len(vals) == 0 {
			continue
		}
		kept = append(kept, g)
		means = append(means, analysis.Mean(vals))
	}
	if len(kept) == 0 {
		return Result{}, fmt.Errorf("column '%s' has no values to plot", yc.Name)
	}

	lo, hi := 0, 0
	data := make([]opts.BarData, len(kept))
	for i, m := range means {
		data[i] = opts.BarData{Value: round4(m)}
		if m < means[lo] {
			lo = i
		}
		if m > means[hi] {
			hi = i
		}
	}
	stats := map[string]float64{
		"categories": float64(len(kept)),
		"min_mean":   means[lo],
		"max_mean":   means[hi],
	}
	desc := fmt.Sprintf("Bar chart of mean %s by %s across %d categories%s; means range from %.2f (%s) to %.2f (%s).",
		yc.Name, xc.Name, len(kept), note, means[lo], kept[lo].label, means[hi], kept[hi].label)

	c := charts.NewBar()
	c.SetGlobalOptions(append(baseOptions(fmt.Sprintf("%s by %s", yc.Name, xc.Name), ""),
		charts.WithXAxisOpts(opts.XAxis{Name: xc.Name, AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Mean " + yc.Name}),
	)...)
	c.SetXAxis(labels(kept)).AddSeries("Mean "+yc.Name, data)
	return finish(c, desc, stats)
}

func (r *Renderer) line(xc, yc *frame.Column, enc frame.EncodingMap) (Result, error) {
	// Without y the x values are drawn against their row position.
	series, axis := yc, xc
	if series == nil {
		series, axis = xc, nil
	}
	if err := requireNumeric(series); err != nil {
		return Result{}, err
	}

	var xLabels []string
	var data []opts.LineData
	var values []float64
	for i := 0; i < series.Len(); i++ {
		if series.IsMissing(i) {
			continue
		}
		if axis != nil {
			xLabels = append(xLabels, labelOf(axis, i, enc[axis.Name]))
		} else {
			xLabels = append(xLabels, fmt.Sprint(i))
		}
		values = append(values, series.Numbers[i])
		data = append(data, opts.LineData{Value: round4(series.Numbers[i])})
	}
	if len(values) == 0 {
		return Result{}, fmt.Errorf("column '%s' has no values to plot", series.Name)
	}

	sorted := analysis.Sorted(values)
	stats := map[string]float64{
		"points": float64(len(values)),
		"min":    sorted[0],
		"max":    sorted[len(sorted)-1],
		"first":  values[0],
		"last":   values[len(values)-1],
	}
	over := "row order"
	if axis != nil {
		over = axis.Name
	}
	desc := fmt.Sprintf("Line chart of %s over %s across %d points; %s ranges from %.2f to %.2f, starting at %.2f and ending at %.2f.",
		series.Name, over, len(values), series.Name, stats["min"], stats["max"], stats["first"], stats["last"])

	c := charts.NewLine()
	c.SetGlobalOptions(append(baseOptions(fmt.Sprintf("%s over %s", series.Name, over), ""),
		charts.WithXAxisOpts(opts.XAxis{Name: over}),
		charts.WithYAxisOpts(opts.YAxis{Name: series.Name}),
	)...)
	c.SetXAxis(xLabels).AddSeries(series.Name, data)
	return finish(c, desc, stats)
}

func (r *Renderer) pie(xc *frame.Column, enc frame.EncodingMap) (Result, error) {
	all := groupRows(xc, enc[xc.Name])
	if len(all) == 0 {
		return Result{}, fmt.Errorf("column '%s' has no values to plot", xc.Name)
	}
	slices := byCountDesc(all)
	if len(slices) > r.PieSlices {
		slices = slices[:r.PieSlices]
	}

	shown := 0
	data := make([]opts.PieData, len(slices))
	for i, g := range slices {
		shown += len(g.rows)
		data[i] = opts.PieData{Name: g.label, Value: len(g.rows)}
	}
	largest := slices[0]
	share := 100 * float64(len(largest.rows)) / float64(shown)
	stats := map[string]float64{
		"categories":    float64(len(all)),
		"shown":         float64(len(slices)),
		"largest_share": share,
	}
	desc := fmt.Sprintf("Pie chart of %s showing the top %d of %d categories; the largest segment is %s with %.1f%% of the shown values.",
		xc.Name, len(slices), len(all), largest.label, share)

	c := charts.NewPie()
	c.SetGlobalOptions(append(baseOptions("Share of "+xc.Name, ""),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)...)
	c.AddSeries(xc.Name, data)
	return finish(c, desc, stats)
}

// distribution draws box and violin charts of y across x categories, or of
// x alone when there is no y. Violins are drawn as box plots because the
// chart library has no violin series; the description reports the spread.
func (r *Renderer) distribution(chartType string, xc, yc *frame.Column, enc frame.EncodingMap) (Result, error) {
	kind := "Box plot"
	if chartType == models.ChartViolin {
		kind = "Violin plot"
	}

	if yc == nil {
		if err := requireNumeric(xc); err != nil {
			return Result{}, err
		}
		values := xc.Present()
		if len(values) == 0 {
			return Result{}, fmt.Errorf("column '%s' has no values to plot", xc.Name)
		}
		box := fiveNumbers(values)
		outliers := analysis.IQROutliers(values)
		stats := map[string]float64{"median": box[2], "iqr": box[3] - box[1], "outliers": float64(outliers)}
		desc := fmt.Sprintf("%s of %s over %d values: median %.2f, IQR %.2f, %d outliers.",
			kind, xc.Name, len(values), box[2], box[3]-box[1], outliers)

		c := charts.NewBoxPlot()
		c.SetGlobalOptions(baseOptions(kind+" of "+xc.Name, "")...)
		c.SetXAxis([]string{xc.Name}).AddSeries(xc.Name, []opts.BoxPlotData{{Name: xc.Name, Value: box}})
		return finish(c, desc, stats)
	}

	if err := requireNumeric(yc); err != nil {
		return Result{}, err
	}
	all := groupRows(xc, enc[xc.Name])
	groups, truncated := topByCount(all, r.BoxMaxCategories)

	var kept []*category
	var boxes [][]float64
	var spreads []float64
	for _, g := range groups {
		vals := valuesAt(yc, g.rows)
		if len(vals) == 0 {
			continue
		}
		kept = append(kept, g)
		boxes = append(boxes, fiveNumbers(vals))
		spreads = append(spreads, analysis.Std(vals))
	}
	if len(kept) == 0 {
		return Result{}, fmt.Errorf("column '%s' has no values to plot", yc.Name)
	}

	note := ""
	if truncated {
		note = fmt.Sprintf(" (top %d of %d by frequency)", len(groups), len(all))
	}
	lo, hi, maxIQR := 0, 0, 0.0
	data := make([]opts.BoxPlotData, len(kept))
	for i, b := range boxes {
		data[i] = opts.BoxPlotData{Name: kept[i].label, Value: b}
		if b[2] < boxes[lo][2] {
			lo = i
		}
		if b[2] > boxes[hi][2] {
			hi = i
		}
		maxIQR = math.Max(maxIQR, b[3]-b[1])
	}

	var desc string
	stats := map[string]float64{"categories": float64(len(kept)), "min_median": boxes[lo][2], "max_median": boxes[hi][2], "max_iqr": maxIQR}
	if chartType == models.ChartViolin {
		sorted := analysis.Sorted(spreads)
		sLo, sHi := sorted[0], sorted[len(sorted)-1]
		stats["min_std"], stats["max_std"] = sLo, sHi
		desc = fmt.Sprintf("%s of %s across %d %s categories%s; medians range from %.2f (%s) to %.2f (%s) and standard deviations from %.2f to %.2f.",
			kind, yc.Name, len(kept), xc.Name, note, boxes[lo][2], kept[lo].label, boxes[hi][2], kept[hi].label, sLo, sHi)
	} else {
		desc = fmt.Sprintf("%s of %s across %d %s categories%s; medians range from %.2f (%s) to %.2f (%s), largest IQR %.2f.",
			kind, yc.Name, len(kept), xc.Name, note, boxes[lo][2], kept[lo].label, boxes[hi][2], kept[hi].label, maxIQR)
	}

	c := charts.NewBoxPlot()
	c.SetGlobalOptions(append(baseOptions(fmt.Sprintf("Distribution of %s by %s", yc.Name, xc.Name), ""),
		charts.WithXAxisOpts(opts.XAxis{Name: xc.Name, AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Name: yc.Name}),
	)...)
	c.SetXAxis(labels(kept)).AddSeries(yc.Name, data)
	return finish(c, desc, stats)
}

// fiveNumbers returns min, Q1, median, Q3 and max.
func fiveNumbers(values []float64) []float64 {
	s := analysis.Sorted(values)
	return []float64{
		round4(s[0]),
		round4(analysis.Quantile(s, 0.25)),
		round4(analysis.Quantile(s, 0.5)),
		round4(analysis.Quantile(s, 0.75)),
		round4(s[len(s)-1]),
	}
}

func finish(c renderable, desc string, stats map[string]float64) (Result, error) {
	payload, err := renderHTML(c)
	if err != nil {
		return Result{}, err
	}
	if payload == "" {
		return Result{}, errors.New("chart rendered empty")
	}
	return Result{Payload: payload, Description: desc, Stats: stats}, nil
}
