package service

import (
	"autoviz/internal/llm"
	"autoviz/internal/logger"
	"autoviz/internal/models"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// MinInsightLength is the shortest model answer accepted as an insight.
const MinInsightLength = 20

// rejectPhrases mark apologies or error text instead of an interpretation.
var rejectPhrases = []string{
	"sorry",
	"apologi",
	"i cannot",
	"i can't",
	"i am unable",
	"i'm unable",
	"unable to generate",
	"as an ai",
	"an error",
	"error occurred",
	"error:",
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// chartFocus tells the model what matters for each chart type.
var chartFocus = map[string]string{
	models.ChartHistogram: "the shape of the distribution: where values concentrate, skewness, spread and any extreme values",
	models.ChartBar:       "how the categories compare: which are highest and lowest and how large the gap is",
	models.ChartLine:      "the trend: overall direction, the range covered and notable rises or drops",
	models.ChartPie:       "the composition: which segment dominates and how concentrated the shares are",
	models.ChartBox:       "the spread and outliers: medians, interquartile ranges and how many values fall outside the whiskers",
	models.ChartViolin:    "how the distributions differ across categories: medians, spread and shape",
	models.ChartHeatmap:   "the correlations: the strongest positive and negative pairs and how many pairs are strongly related",
}

// InsightRequest describes a rendered chart.
type InsightRequest struct {
	ChartType   string
	X           string
	Y           string
	Description string
	// AxisStats are optional precomputed statistics, e.g. "mean" → 4.2.
	AxisStats map[string]float64
}

const insightSystemPrompt = "You are a data analyst who explains charts in plain, factual sentences."

type InsightSummarizer struct {
	// Model overrides the provider's default model when set.
	Model string

	llmService  *llm.Service
	temperature float64
	maxTokens   int
}

func NewInsightSummarizer(llmService *llm.Service, temperature float64, maxTokens int) *InsightSummarizer {
	return &InsightSummarizer{
		llmService:  llmService,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Summarize returns a short interpretation of a chart. It never fails: a
// missing, short or apologetic answer is replaced by FallbackInsight.
func (s *InsightSummarizer) Summarize(ctx context.Context, req InsightRequest) string {
	opts := []llm.GenerateOption{
		llm.WithSystemPrompts(insightSystemPrompt),
		llm.WithTemperature(s.temperature),
		llm.WithMaxTokens(s.maxTokens),
	}
	if s.Model != "" {
		opts = append(opts, llm.WithModel(s.Model))
	}

	response, err := s.llmService.Complete(ctx, buildInsightPrompt(req), opts...)
	if err != nil {
		logger.Warn("insight generation unavailable, using fallback", "chart", req.ChartType, "error", err)
		return FallbackInsight(req)
	}

	text := cleanInsight(response)
	if reason := rejectInsight(text); reason != "" {
		logger.Warn("insight rejected, using fallback", "chart", req.ChartType, "reason", reason)
		return FallbackInsight(req)
	}
	return text
}

func buildInsightPrompt(req InsightRequest) string {
	focus, ok := chartFocus[req.ChartType]
	if !ok {
		focus = "the main pattern the chart shows"
	}

	y := req.Y
	if y == "" {
		y = "N/A (single variable)"
	}

	var stats strings.Builder
	if len(req.AxisStats) > 0 {
		keys := make([]string, 0, len(req.AxisStats))
		for k := range req.AxisStats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		stats.WriteString("\nAxis statistics:\n")
		for _, k := range keys {
			fmt.Fprintf(&stats, "- %s: %.4g\n", k, req.AxisStats[k])
		}
	}

	return fmt.Sprintf(`
You are a data scientist interpreting a %s chart.

The visualization shows:
- X-axis: %s
- Y-axis: %s

Chart description:
%s
%s
Write 2-3 factual sentences about %s.
Use only the numbers given above. Do not apologize, do not mention being an AI, and do not add headings or lists.
`, req.ChartType, req.X, y, req.Description, stats.String(), focus)
}

func cleanInsight(response string) string {
	text := thinkBlock.ReplaceAllString(response, "")
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "\"")
	return strings.TrimSpace(text)
}

// rejectInsight returns why text is not usable, or "".
func rejectInsight(text string) string {
	if len(text) < MinInsightLength {
		return "too short"
	}
	lower := strings.ToLower(text)
	for _, p := range rejectPhrases {
		if strings.Contains(lower, p) {
			return fmt.Sprintf("contains %q", p)
		}
	}
	return ""
}

// FallbackInsight is the deterministic insight for a chart type.
func FallbackInsight(req InsightRequest) string {
	var lead string
	switch req.ChartType {
	case models.ChartHistogram:
		lead = fmt.Sprintf("This histogram shows how values of %s are distributed.", req.X)
	case models.ChartBar:
		if req.Y != "" {
			lead = fmt.Sprintf("This bar chart compares the average %s across %s categories.", req.Y, req.X)
		} else {
			lead = fmt.Sprintf("This bar chart compares how often each %s value occurs.", req.X)
		}
	case models.ChartLine:
		if req.Y != "" {
			lead = fmt.Sprintf("This line chart follows %s across %s.", req.Y, req.X)
		} else {
			lead = fmt.Sprintf("This line chart follows %s in row order.", req.X)
		}
	case models.ChartPie:
		lead = fmt.Sprintf("This pie chart shows the share of each %s category.", req.X)
	case models.ChartBox:
		switch {
		case req.X == models.AllNumericColumns:
			lead = "These box plots show the spread and outliers of each numerical column."
		case req.Y == "":
			lead = fmt.Sprintf("This box plot shows the spread of %s.", req.X)
		default:
			lead = fmt.Sprintf("This box plot shows the spread of %s across %s categories.", req.Y, req.X)
		}
	case models.ChartViolin:
		if req.Y != "" {
			lead = fmt.Sprintf("This violin plot compares the distribution of %s across %s categories.", req.Y, req.X)
		} else {
			lead = fmt.Sprintf("This violin plot shows the distribution of %s.", req.X)
		}
	case models.ChartHeatmap:
		lead = "This heatmap shows the pairwise correlations between the numerical columns."
	default:
		lead = fmt.Sprintf("This chart summarizes %s.", req.X)
	}
	if d := strings.TrimSpace(req.Description); d != "" {
		return lead + " " + d
	}
	return lead
}
