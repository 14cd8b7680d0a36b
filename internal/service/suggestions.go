package service

import (
	"autoviz/internal/analysis"
	"autoviz/internal/llm"
	"autoviz/internal/logger"
	"autoviz/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MaxSuggestions caps the validated suggestion list.
const MaxSuggestions = 5

// ExcludedChartTypes are never taken from the model: heatmap and box are
// generated as essential charts, scatter and line are disallowed.
var ExcludedChartTypes = map[string]bool{
	models.ChartHeatmap: true,
	models.ChartBox:     true,
	models.ChartScatter: true,
	models.ChartLine:    true,
}

// suggestableChartTypes are the types the model may propose.
var suggestableChartTypes = map[string]bool{
	models.ChartHistogram: true,
	models.ChartBar:       true,
	models.ChartPie:       true,
	models.ChartViolin:    true,
}

// suggestionSystemPrompt frames the suggestion call.
const suggestionSystemPrompt = "You are a data visualization expert. You answer with a JSON array of chart suggestions and nothing else."

type SuggestionEngine struct {
	// Model overrides the provider's default model when set.
	Model string

	llmService  *llm.Service
	temperature float64
	maxTokens   int
}

func NewSuggestionEngine(llmService *llm.Service, temperature float64, maxTokens int) *SuggestionEngine {
	return &SuggestionEngine{
		llmService:  llmService,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Suggest returns between 1 and MaxSuggestions validated chart suggestions
// for a dataset with at least one numerical, categorical or datetime column.
// stats may be a JSON string, raw JSON bytes, a decoded map or a
// models.DatasetStats.
func (s *SuggestionEngine) Suggest(ctx context.Context, columns []models.ColumnDescriptor, stats any) []models.ChartSuggestion {
	normalized := NormalizeStats(stats)

	opts := []llm.GenerateOption{
		llm.WithSystemPrompts(suggestionSystemPrompt),
		llm.WithTemperature(s.temperature),
		llm.WithMaxTokens(s.maxTokens),
	}
	if s.Model != "" {
		opts = append(opts, llm.WithModel(s.Model))
	}

	response, err := s.llmService.Complete(ctx, buildSuggestionPrompt(columns, normalized), opts...)
	if err != nil {
		logger.Warn("chart suggestions unavailable, using rule-based suggestions", "error", err)
		return FallbackSuggestions(columns)
	}

	parsed, err := ParseSuggestions(response)
	if err != nil {
		logger.Warn("could not parse chart suggestions, using rule-based suggestions", "error", err)
		return FallbackSuggestions(columns)
	}

	valid := ValidateSuggestions(parsed, columns)
	if len(valid) == 0 {
		logger.Warn("model returned no usable chart suggestions, using rule-based suggestions", "proposed", len(parsed))
		return FallbackSuggestions(columns)
	}
	return valid
}

// NormalizeStats turns the accepted snapshot shapes into a generic map.
// Anything unrecognised becomes an empty map.
func NormalizeStats(stats any) map[string]any {
	var raw []byte
	switch v := stats.(type) {
	case map[string]any:
		return v
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case models.DatasetStats, *models.DatasetStats:
		b, err := json.Marshal(v)
		if err != nil {
			return map[string]any{}
		}
		raw = b
	default:
		return map[string]any{}
	}

	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

func buildSuggestionPrompt(columns []models.ColumnDescriptor, stats map[string]any) string {
	numerical := analysis.ColumnsOfType(columns, models.ColumnNumerical)
	categorical := analysis.ColumnsOfType(columns, models.ColumnCategorical)
	datetime := analysis.ColumnsOfType(columns, models.ColumnDatetime)

	rows, cols := shapeOf(stats)
	if cols == 0 {
		cols = len(columns)
	}

	return fmt.Sprintf(`
You are an expert data analyst. Suggest the most insightful visualizations for this dataset.

Dataset Summary:
- Rows: %d
- Columns: %d
- Numerical columns: %s
- Categorical columns: %s
- Datetime columns: %s
- Missing values: %d

Suggest 3-5 visualizations. Allowed chart types: histogram, bar, pie, violin.
Do not suggest heatmap, box, scatter or line charts; those are handled separately.
Use only the column names listed above, spelled exactly.

Return a JSON array of objects with these keys: type, x, y, reason.
"y" is optional; omit it for single-column charts.

Example:
[
	{"type": "histogram", "x": "age", "reason": "Shows the distribution of ages."},
	{"type": "bar", "x": "city", "y": "income", "reason": "Compares average income across cities."}
]

Return ONLY the JSON.
`, rows, cols, listOrNone(numerical), listOrNone(categorical), listOrNone(datetime), intOf(stats["total_null_values"]))
}

func shapeOf(stats map[string]any) (rows, cols int) {
	shape, ok := stats["shape"].([]any)
	if !ok || len(shape) != 2 {
		return 0, 0
	}
	return intOf(shape[0]), intOf(shape[1])
}

func intOf(v any) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}

func listOrNone(cols []string) string {
	if len(cols) == 0 {
		return "none"
	}
	return strings.Join(takeFirst(cols, 30), ", ")
}

func takeFirst(s []string, n int) []string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// ParseSuggestions extracts and decodes the suggestion list from a model
// response. It accepts a bare array or an object wrapping one.
func ParseSuggestions(response string) ([]models.ChartSuggestion, error) {
	doc, err := llm.ExtractJSON(response)
	if err != nil {
		return nil, err
	}

	var items []map[string]any
	if err := llm.UnmarshalFlexible(doc, &items); err != nil {
		var wrapper map[string]any
		if werr := llm.UnmarshalFlexible(doc, &wrapper); werr != nil {
			return nil, err
		}
		items = firstObjectList(wrapper)
		if items == nil {
			return nil, fmt.Errorf("no suggestion list in response object")
		}
	}

	out := make([]models.ChartSuggestion, 0, len(items))
	for _, item := range items {
		out = append(out, models.ChartSuggestion{
			Type:   strings.ToLower(strings.TrimSpace(stringField(item, "type"))),
			X:      strings.TrimSpace(stringField(item, "x")),
			Y:      strings.TrimSpace(stringField(item, "y")),
			Reason: strings.TrimSpace(stringField(item, "reason")),
		})
	}
	return out, nil
}

// firstObjectList finds the first array of objects among the wrapper's values,
// trying the usual key first.
func firstObjectList(wrapper map[string]any) []map[string]any {
	if l := asObjectList(wrapper["suggestions"]); l != nil {
		return l
	}
	for _, v := range wrapper {
		if l := asObjectList(v); l != nil {
			return l
		}
	}
	return nil
}

func asObjectList(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// stringField reads a string value; non-string values read as empty.
func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// ValidateSuggestions drops excluded or unknown chart types, suggestions that
// name columns not in the dataset and duplicates, then caps the list.
func ValidateSuggestions(in []models.ChartSuggestion, columns []models.ColumnDescriptor) []models.ChartSuggestion {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c.Name] = true
	}

	seen := map[string]bool{}
	out := []models.ChartSuggestion{}
	for _, sg := range in {
		if ExcludedChartTypes[sg.Type] || !suggestableChartTypes[sg.Type] {
			continue
		}
		if !known[sg.X] {
			continue
		}
		if sg.Y != "" && !known[sg.Y] {
			continue
		}
		key := sg.Type + "\x00" + sg.X + "\x00" + sg.Y
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sg)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

// FallbackSuggestions derives suggestions from column types alone.
func FallbackSuggestions(columns []models.ColumnDescriptor) []models.ChartSuggestion {
	numerical := analysis.ColumnsOfType(columns, models.ColumnNumerical)
	categorical := analysis.ColumnsOfType(columns, models.ColumnCategorical)

	out := []models.ChartSuggestion{}
	if len(numerical) > 0 {
		out = append(out, models.ChartSuggestion{
			Type:   models.ChartHistogram,
			X:      numerical[0],
			Reason: fmt.Sprintf("Distribution of %s.", numerical[0]),
		})
	}
	if len(categorical) > 0 && len(numerical) > 0 {
		out = append(out, models.ChartSuggestion{
			Type:   models.ChartBar,
			X:      categorical[0],
			Y:      numerical[0],
			Reason: fmt.Sprintf("Average %s for each %s.", numerical[0], categorical[0]),
		})
	}
	if len(categorical) > 0 && len(numerical) == 0 {
		out = append(out, models.ChartSuggestion{
			Type:   models.ChartBar,
			X:      categorical[0],
			Reason: fmt.Sprintf("Frequency of each %s.", categorical[0]),
		})
	}
	if len(numerical) > 1 {
		out = append(out, models.ChartSuggestion{
			Type:   models.ChartHistogram,
			X:      numerical[1],
			Reason: fmt.Sprintf("Distribution of %s.", numerical[1]),
		})
	}
	if len(categorical) > 0 {
		out = append(out, models.ChartSuggestion{
			Type:   models.ChartPie,
			X:      categorical[0],
			Reason: fmt.Sprintf("Share of each %s.", categorical[0]),
		})
	}
	if len(out) == 0 {
		if datetime := analysis.ColumnsOfType(columns, models.ColumnDatetime); len(datetime) > 0 {
			out = append(out, models.ChartSuggestion{
				Type:   models.ChartBar,
				X:      datetime[0],
				Reason: fmt.Sprintf("Number of rows for each %s.", datetime[0]),
			})
		}
	}
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}
