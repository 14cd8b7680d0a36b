// Package viz renders chart specifications against a cleaned frame. Every
// chart is an embeddable go-echarts HTML document plus a description that
// states the statistics of what was drawn.
package viz

import (
	"autoviz/internal/analysis"
	"autoviz/internal/frame"
	"autoviz/internal/logger"
	"autoviz/internal/models"
	"fmt"
	"runtime/debug"
)

// Result is a rendered chart. Failed results carry the error payload and
// the reason as description.
type Result struct {
	Payload     string
	Description string
	Failed      bool
	// Stats are the headline numbers behind the description.
	Stats map[string]float64
}

// Renderer holds the drawing limits.
type Renderer struct {
	// MinRows is the fewest rows the essential charts are drawn for.
	MinRows           int
	HistogramBins     int
	BarMaxCategories  int
	PieSlices         int
	BoxMaxCategories  int
	BoxMaxColumns     int
	BoxColumnsPerRow  int
	StrongCorrelation float64
}

func NewRenderer(minRows int) *Renderer {
	if minRows < 1 {
		minRows = 1
	}
	return &Renderer{
		MinRows:           minRows,
		HistogramBins:     20,
		BarMaxCategories:  20,
		PieSlices:         8,
		BoxMaxCategories:  10,
		BoxMaxColumns:     6,
		BoxColumnsPerRow:  3,
		StrongCorrelation: 0.7,
	}
}

// Render draws one chart. It never panics and never returns an error:
// invalid input and drawing failures come back as a failed Result.
// x may be models.AllNumericColumns for heatmap and box charts.
func (r *Renderer) Render(df *frame.DataFrame, enc frame.EncodingMap, chartType, x, y string) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("chart rendering panicked", "chart", chartType, "x", x, "y", y, "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
			res = errorResult(fmt.Sprintf("Error generating visualization: %v", rec))
		}
		for k, v := range res.Stats {
			res.Stats[k] = analysis.Finite(v)
		}
	}()

	if df.Empty() {
		return errorResult("Invalid data: the dataset is empty")
	}

	if x == models.AllNumericColumns {
		switch chartType {
		case models.ChartHeatmap:
			return r.correlationHeatmap(df, enc)
		case models.ChartBox:
			return r.outlierBoxes(df, enc)
		}
		return errorResult(fmt.Sprintf("Chart type '%s' cannot be drawn over all numerical columns", chartType))
	}

	xc, ok := df.Column(x)
	if !ok {
		return errorResult(fmt.Sprintf("Column '%s' not found in data", x))
	}
	var yc *frame.Column
	if y != "" {
		if yc, ok = df.Column(y); !ok {
			return errorResult(fmt.Sprintf("Y-axis column '%s' not found in data", y))
		}
	}

	var out Result
	var err error
	switch chartType {
	case models.ChartHistogram:
		out, err = r.histogram(xc)
	case models.ChartBar:
		out, err = r.bar(xc, yc, enc)
	case models.ChartLine:
		out, err = r.line(xc, yc, enc)
	case models.ChartPie:
		out, err = r.pie(xc, enc)
	case models.ChartBox, models.ChartViolin:
		out, err = r.distribution(chartType, xc, yc, enc)
	case models.ChartHeatmap:
		return r.correlationHeatmap(df, enc)
	default:
		out, err = r.histogram(xc)
	}
	if err != nil {
		return errorResult(err.Error())
	}
	return out
}

// analyticNumeric returns the numeric columns that were numeric before
// cleaning, i.e. not label-encoded.
func analyticNumeric(df *frame.DataFrame, enc frame.EncodingMap) []*frame.Column {
	var out []*frame.Column
	for _, c := range df.NumericColumns() {
		if _, encoded := enc[c.Name]; encoded {
			continue
		}
		out = append(out, c)
	}
	return out
}
