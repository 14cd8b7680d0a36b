package viz

import (
	"autoviz/internal/analysis"
	"autoviz/internal/frame"
	"fmt"
	"math"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func (r *Renderer) enoughRows(df *frame.DataFrame) error {
	if df.NumRows() < r.MinRows {
		return fmt.Errorf("not enough rows for this chart (need at least %d, found %d)", r.MinRows, df.NumRows())
	}
	return nil
}

// correlationHeatmap draws the Pearson matrix of every numerical column.
func (r *Renderer) correlationHeatmap(df *frame.DataFrame, enc frame.EncodingMap) Result {
	cols := analyticNumeric(df, enc)
	if len(cols) < 2 {
		return errorResult(fmt.Sprintf("Not enough numerical columns for a correlation heatmap (need at least 2, found %d)", len(cols)))
	}
	if err := r.enoughRows(df); err != nil {
		return errorResult(err.Error())
	}

	n := len(cols)
	names := make([]string, n)
	matrix := make([][]float64, n)
	for i, c := range cols {
		names[i] = c.Name
		matrix[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		matrix[i][i] = 1
		for j := i + 1; j < n; j++ {
			x, y := pairwise(cols[i], cols[j])
			rv := analysis.Pearson(x, y)
			matrix[i][j], matrix[j][i] = rv, rv
		}
	}

	strong := 0
	bestI, bestJ, best := -1, -1, 0.0
	var data []opts.HeatMapData
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, i, math.Round(matrix[i][j]*100) / 100}})
			if j <= i {
				continue
			}
			if math.Abs(matrix[i][j]) > r.StrongCorrelation {
				strong++
			}
			if bestI < 0 || math.Abs(matrix[i][j]) > math.Abs(best) {
				bestI, bestJ, best = i, j, matrix[i][j]
			}
		}
	}

	stats := map[string]float64{
		"columns":       float64(n),
		"strong_pairs":  float64(strong),
		"strongest_abs": math.Abs(best),
	}
	desc := fmt.Sprintf("Correlation heatmap of %d numerical columns; %d strongly correlated pairs (|r| > %.1f). The strongest pair is %s and %s (r = %.2f).",
		n, strong, r.StrongCorrelation, names[bestI], names[bestJ], best)

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Correlation heatmap", Subtitle: "Pearson correlation of numerical columns"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			SplitArea: &opts.SplitArea{Show: opts.Bool(true)},
			AxisLabel: &opts.AxisLabel{Rotate: 45},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:      "category",
			Data:      names,
			SplitArea: &opts.SplitArea{Show: opts.Bool(true)},
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        1,
			InRange: &opts.VisualMapInRange{
				Color: []string{"#313695", "#74add1", "#e0f3f8", "#fee090", "#f46d43", "#a50026"},
			},
		}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "520px"}),
	)
	hm.SetXAxis(names).AddSeries("r", data)

	payload, err := renderHTML(hm)
	if err != nil {
		return errorResult(err.Error())
	}
	return Result{Payload: payload, Description: desc, Stats: stats}
}

// pairwise returns the rows where both columns have values.
func pairwise(a, b *frame.Column) (x, y []float64) {
	for i := 0; i < a.Len(); i++ {
		if a.IsMissing(i) || b.IsMissing(i) {
			continue
		}
		x = append(x, a.Numbers[i])
		y = append(y, b.Numbers[i])
	}
	return x, y
}

// outlierBoxes draws one box plot per numerical column, at most
// BoxMaxColumns, laid out BoxColumnsPerRow to a row, and counts outliers
// with the 1.5 x IQR rule.
func (r *Renderer) outlierBoxes(df *frame.DataFrame, enc frame.EncodingMap) Result {
	cols := analyticNumeric(df, enc)
	if len(cols) == 0 {
		return errorResult("Not enough numerical columns for box plots (need at least 1, found 0)")
	}
	if err := r.enoughRows(df); err != nil {
		return errorResult(err.Error())
	}
	if len(cols) > r.BoxMaxColumns {
		cols = cols[:r.BoxMaxColumns]
	}

	perRow := r.BoxColumnsPerRow
	if perRow > len(cols) {
		perRow = len(cols)
	}
	width := fmt.Sprintf("%d%%", 96/perRow)

	page := components.NewPage()
	page.PageTitle = "Outlier box plots"
	page.SetLayout(components.PageFlexLayout)

	total, worst, worstCount := 0, "", -1
	for _, c := range cols {
		values := c.Present()
		if len(values) == 0 {
			continue
		}
		outliers := analysis.IQROutliers(values)
		total += outliers
		if outliers > worstCount {
			worst, worstCount = c.Name, outliers
		}

		box := charts.NewBoxPlot()
		box.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: c.Name, Subtitle: fmt.Sprintf("%d outliers", outliers)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
			charts.WithInitializationOpts(opts.Initialization{Width: width, Height: "320px"}),
		)
		box.SetXAxis([]string{c.Name}).AddSeries(c.Name, []opts.BoxPlotData{{Name: c.Name, Value: fiveNumbers(values)}})
		page.AddCharts(box)
	}
	if worstCount < 0 {
		return errorResult("Numerical columns have no values to plot")
	}

	gridRows := (len(cols) + perRow - 1) / perRow
	stats := map[string]float64{
		"columns":        float64(len(cols)),
		"total_outliers": float64(total),
		"max_outliers":   float64(worstCount),
	}
	var desc strings.Builder
	fmt.Fprintf(&desc, "Box plots of %d numerical columns in %d rows of up to %d; ", len(cols), gridRows, perRow)
	if total == 0 {
		desc.WriteString("no outliers by the 1.5 x IQR rule.")
	} else {
		fmt.Fprintf(&desc, "%d outliers in total by the 1.5 x IQR rule, most in %s (%d).", total, worst, worstCount)
	}

	payload, err := renderHTML(page)
	if err != nil {
		return errorResult(err.Error())
	}
	return Result{Payload: payload, Description: desc.String(), Stats: stats}
}
