package viz

import (
	"autoviz/internal/frame"
	"autoviz/internal/models"
	"encoding/json"
	"math"
	"strings"
	"testing"
)

// testFrame is a cleaned frame: city is label-encoded through testEncoding.
func testFrame(t *testing.T) (*frame.DataFrame, frame.EncodingMap) {
	t.Helper()
	df, err := frame.New(
		frame.NewNumeric("age", []float64{20, 25, 30, 35, 40, 45, 50, 90}, nil),
		frame.NewNumeric("income", []float64{2000, 2500, 3000, 3500, 4000, 4500, 5000, 9000}, nil),
		frame.NewNumeric("score", []float64{5, 3, 4, 1, 2, 5, 3, 4}, nil),
		frame.NewNumeric("city", []float64{0, 1, 2, 0, 1, 2, 0, 0}, nil),
	)
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}
	enc := frame.EncodingMap{"city": {0: "Berlin", 1: "Paris", 2: "Rome"}}
	return df, enc
}

func TestRender_MissingColumns(t *testing.T) {
	df, enc := testFrame(t)
	r := NewRenderer(2)

	res := r.Render(df, enc, models.ChartHistogram, "nope", "")
	if !res.Failed || !IsErrorPayload(res.Payload) {
		t.Fatal("expected an error payload for a missing x column")
	}
	if res.Description != "Column 'nope' not found in data" {
		t.Errorf("unexpected description %q", res.Description)
	}

	res = r.Render(df, enc, models.ChartBar, "city", "ghost")
	if !res.Failed || !strings.Contains(res.Description, "'ghost' not found") {
		t.Errorf("expected y column error, got %q", res.Description)
	}
}

func TestRender_EmptyFrame(t *testing.T) {
	df, err := frame.New(frame.NewNumeric("a", []float64{}, nil))
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}
	res := NewRenderer(2).Render(df, nil, models.ChartHistogram, "a", "")
	if !res.Failed || !strings.Contains(res.Description, "empty") {
		t.Errorf("expected empty dataset error, got %q", res.Description)
	}
}

func TestRender_HeatmapNeedsTwoColumns(t *testing.T) {
	df, err := frame.New(
		frame.NewNumeric("age", []float64{1, 2, 3}, nil),
		frame.NewNumeric("city", []float64{0, 1, 0}, nil),
	)
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}
	enc := frame.EncodingMap{"city": {0: "a", 1: "b"}}

	res := NewRenderer(2).Render(df, enc, models.ChartHeatmap, models.AllNumericColumns, "")
	want := "Not enough numerical columns for a correlation heatmap (need at least 2, found 1)"
	if !res.Failed || res.Description != want {
		t.Errorf("got %q, want %q", res.Description, want)
	}
	if !IsErrorPayload(res.Payload) || !strings.Contains(res.Payload, "Visualization error") {
		t.Error("expected the error chart payload")
	}
}

func TestRender_Heatmap(t *testing.T) {
	df, enc := testFrame(t)
	res := NewRenderer(2).Render(df, enc, models.ChartHeatmap, models.AllNumericColumns, "")
	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Description)
	}
	if !strings.HasPrefix(res.Description, "Correlation heatmap of 3 numerical columns; 1 strongly correlated pairs") {
		t.Errorf("unexpected description %q", res.Description)
	}
	if !strings.Contains(res.Description, "age and income (r = 1.00)") {
		t.Errorf("expected age/income as strongest pair, got %q", res.Description)
	}
	if IsErrorPayload(res.Payload) || !strings.Contains(res.Payload, "echarts") {
		t.Error("expected an echarts payload")
	}
}

func TestRender_OutlierBoxes(t *testing.T) {
	df, enc := testFrame(t)
	res := NewRenderer(2).Render(df, enc, models.ChartBox, models.AllNumericColumns, "")
	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Description)
	}
	if !strings.HasPrefix(res.Description, "Box plots of 3 numerical columns in 1 rows of up to 3;") {
		t.Errorf("unexpected description %q", res.Description)
	}
	if res.Stats["total_outliers"] != 2 || !strings.Contains(res.Description, "most in age (1)") {
		t.Errorf("expected the 90 and 9000 outliers, got %q (%v)", res.Description, res.Stats)
	}
}

func TestRender_MinimumRows(t *testing.T) {
	df, err := frame.New(
		frame.NewNumeric("a", []float64{1}, nil),
		frame.NewNumeric("b", []float64{2}, nil),
	)
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}
	r := NewRenderer(2)
	for _, typ := range []string{models.ChartHeatmap, models.ChartBox} {
		res := r.Render(df, nil, typ, models.AllNumericColumns, "")
		if !res.Failed || !strings.HasPrefix(res.Description, "Not enough rows") {
			t.Errorf("%s: expected minimum-row error, got %q", typ, res.Description)
		}
	}
}

func TestRender_Charts(t *testing.T) {
	df, enc := testFrame(t)
	r := NewRenderer(2)

	tests := []struct {
		name   string
		typ    string
		x, y   string
		prefix string
		parts  []string
	}{
		{"histogram", models.ChartHistogram, "age", "", "Histogram of age over 8 values", []string{"min 20.00", "max 90.00", "mean 41.8"}},
		{"bar frequency", models.ChartBar, "city", "", "Bar chart of city frequency across 3 categories", []string{"from 2 (Paris)", "to 4 (Berlin)"}},
		{"bar mean", models.ChartBar, "city", "income", "Bar chart of mean income by city", []string{"from 3250.00 (Paris)", "to 4875.00 (Berlin)"}},
		{"line", models.ChartLine, "age", "income", "Line chart of income over age across 8 points", []string{"starting at 2000.00", "ending at 9000.00"}},
		{"pie", models.ChartPie, "city", "", "Pie chart of city showing the top 3 of 3 categories", []string{"largest segment is Berlin with 50.0%"}},
		{"box", models.ChartBox, "city", "age", "Box plot of age across 3 city categories", []string{"largest IQR"}},
		{"violin", models.ChartViolin, "city", "age", "Violin plot of age across 3 city categories", []string{"standard deviations"}},
		{"single box", models.ChartBox, "score", "", "Box plot of score over 8 values", []string{"0 outliers"}},
		{"unknown type", "scatter", "age", "", "Histogram of age", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Render(df, enc, tt.typ, tt.x, tt.y)
			if res.Failed {
				t.Fatalf("unexpected failure: %s", res.Description)
			}
			if !strings.HasPrefix(res.Description, tt.prefix) {
				t.Errorf("description %q does not start with %q", res.Description, tt.prefix)
			}
			for _, p := range tt.parts {
				if !strings.Contains(res.Description, p) {
					t.Errorf("description %q missing %q", res.Description, p)
				}
			}
		})
	}
}

func TestRender_HugeValues(t *testing.T) {
	df, err := frame.New(
		frame.NewNumeric("big", []float64{1e308, 1.5e308, -1e308}, nil),
		frame.NewNumeric("label", []float64{0, 1, 2}, nil),
	)
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}
	enc := frame.EncodingMap{"label": {0: "a", 1: "b", 2: "c"}}
	r := NewRenderer(2)

	for _, typ := range []string{models.ChartHistogram, models.ChartLine} {
		y := ""
		x := "big"
		if typ == models.ChartLine {
			x, y = "label", "big"
		}
		res := r.Render(df, enc, typ, x, y)
		if res.Failed {
			t.Fatalf("%s: unexpected failure: %s", typ, res.Description)
		}
		for k, v := range res.Stats {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("%s: stat %s is not finite: %v", typ, k, v)
			}
		}
		if _, err := json.Marshal(res.Stats); err != nil {
			t.Errorf("%s: stats do not encode: %v", typ, err)
		}
	}
}

func TestRender_NonNumericErrors(t *testing.T) {
	df, err := frame.New(
		frame.NewText("name", []string{"a", "b"}, nil),
		frame.NewNumeric("n", []float64{1, 2}, nil),
	)
	if err != nil {
		t.Fatalf("frame.New failed: %v", err)
	}
	r := NewRenderer(2)

	res := r.Render(df, nil, models.ChartHistogram, "name", "")
	if !res.Failed || res.Description != "Column 'name' is not numerical" {
		t.Errorf("unexpected result %q", res.Description)
	}
	res = r.Render(df, nil, models.ChartBar, "n", "name")
	if !res.Failed {
		t.Error("expected failure for a text y column")
	}
}

func TestRender_DescriptionsAreStable(t *testing.T) {
	df, enc := testFrame(t)
	r := NewRenderer(2)

	specs := [][3]string{
		{models.ChartHistogram, "income", ""},
		{models.ChartBar, "city", "age"},
		{models.ChartPie, "city", ""},
		{models.ChartViolin, "city", "income"},
		{models.ChartHeatmap, models.AllNumericColumns, ""},
		{models.ChartBox, models.AllNumericColumns, ""},
	}
	for _, s := range specs {
		first := r.Render(df, enc, s[0], s[1], s[2])
		second := r.Render(df, enc, s[0], s[1], s[2])
		if first.Description != second.Description {
			t.Errorf("%s: descriptions differ:\n%s\n%s", s[0], first.Description, second.Description)
		}
		for k, v := range first.Stats {
			if second.Stats[k] != v {
				t.Errorf("%s: stat %s differs: %v vs %v", s[0], k, v, second.Stats[k])
			}
		}
	}
}
