package service

import (
	"autoviz/internal/llm"
	"autoviz/internal/llm/llmtest"
	"autoviz/internal/models"
	"context"
	"strings"
	"testing"
	"time"
)

func newSummarizer(p llm.Provider) *InsightSummarizer {
	return NewInsightSummarizer(llm.NewService(p, llm.Config{Timeout: time.Second}), 0.2, 200)
}

var histogramRequest = InsightRequest{
	ChartType:   models.ChartHistogram,
	X:           "age",
	Description: "Histogram of age over 100 values: mean 44.5, range 20 to 69.",
	AxisStats:   map[string]float64{"mean": 44.5, "max": 69},
}

func TestSummarize_AcceptsGoodAnswer(t *testing.T) {
	answer := "Ages are spread evenly between 20 and 69, centred on a mean of 44.5."
	p := &llmtest.Provider{Default: "<think>let me look</think>\n\"" + answer + "\""}

	got := newSummarizer(p).Summarize(context.Background(), histogramRequest)
	if got != answer {
		t.Errorf("got %q, want %q", got, answer)
	}

	prompts := p.Prompts()
	if len(prompts) != 1 {
		t.Fatalf("expected one model call, got %d", len(prompts))
	}
	for _, want := range []string{"histogram chart", "X-axis: age", "N/A (single variable)", "mean 44.5", "- max: 69", "shape of the distribution"} {
		if !strings.Contains(prompts[0], want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if o := p.Options()[0]; o.Temperature != 0.2 || o.MaxTokens != 200 || o.Model != "" {
		t.Errorf("unexpected options %+v", o)
	}
	if sp := p.Options()[0].SystemPrompts; len(sp) != 1 || !strings.Contains(sp[0], "data analyst") {
		t.Errorf("expected the role system prompt, got %q", sp)
	}
}

func TestSummarize_ModelOverride(t *testing.T) {
	p := &llmtest.Provider{Default: "Ages are spread evenly between 20 and 69."}
	s := newSummarizer(p)
	s.Model = "llama3.1"

	s.Summarize(context.Background(), histogramRequest)
	if opts := p.Options(); len(opts) != 1 || opts[0].Model != "llama3.1" {
		t.Errorf("expected model override, got %+v", opts)
	}
}

func TestSummarize_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
	}{
		{"five characters", &llmtest.Provider{Default: "Nice."}},
		{"apology", &llmtest.Provider{Default: "I'm sorry, but I cannot interpret this chart without the data."}},
		{"error text", &llmtest.Provider{Default: "Error: the request could not be completed at this time."}},
		{"unavailable", llm.Disabled{}},
	}
	want := FallbackInsight(histogramRequest)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newSummarizer(tt.provider).Summarize(context.Background(), histogramRequest)
			if got != want {
				t.Errorf("got %q, want fallback %q", got, want)
			}
		})
	}
}

func TestFallbackInsight(t *testing.T) {
	tests := []struct {
		req  InsightRequest
		want string
	}{
		{InsightRequest{ChartType: models.ChartHistogram, X: "age"}, "This histogram shows how values of age are distributed."},
		{InsightRequest{ChartType: models.ChartBar, X: "city", Y: "income"}, "This bar chart compares the average income across city categories."},
		{InsightRequest{ChartType: models.ChartBar, X: "city"}, "This bar chart compares how often each city value occurs."},
		{InsightRequest{ChartType: models.ChartPie, X: "city"}, "This pie chart shows the share of each city category."},
		{InsightRequest{ChartType: models.ChartBox, X: models.AllNumericColumns}, "These box plots show the spread and outliers of each numerical column."},
		{InsightRequest{ChartType: models.ChartHeatmap, X: models.AllNumericColumns}, "This heatmap shows the pairwise correlations between the numerical columns."},
		{InsightRequest{ChartType: "radar", X: "a", Description: "Some text."}, "This chart summarizes a. Some text."},
	}
	for _, tt := range tests {
		if got := FallbackInsight(tt.req); got != tt.want {
			t.Errorf("FallbackInsight(%s) = %q, want %q", tt.req.ChartType, got, tt.want)
		}
	}
}
