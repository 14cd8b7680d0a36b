package service

import (
	"autoviz/internal/analysis"
	"autoviz/internal/frame"
	"autoviz/internal/llm"
	"autoviz/internal/llm/llmtest"
	"autoviz/internal/models"
	"autoviz/internal/store"
	"autoviz/internal/viz"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const scriptedInsight = "Values cluster around the middle of the range with no extreme outliers."

func peopleCSV() string {
	cities := []string{"Paris", "Berlin", "Madrid", "Rome", "Vienna", "Oslo", "Lisbon", "Dublin"}
	var b strings.Builder
	b.WriteString("age,city\n")
	for i := 0; i < 100; i++ {
		age := fmt.Sprint(20 + i%50)
		if i%20 == 3 {
			age = "NA"
		}
		fmt.Fprintf(&b, "%s,%s\n", age, cities[i%8])
	}
	return b.String()
}

func scriptedProvider() *llmtest.Provider {
	return &llmtest.Provider{
		Rules: []llmtest.Rule{
			{Contains: "Suggest the most insightful", Response: `[
				{"type": "histogram", "x": "age", "reason": "Age distribution"},
				{"type": "bar", "x": "city", "y": "age", "reason": "Average age per city"},
				{"type": "pie", "x": "city", "reason": "City share"},
				{"type": "violin", "x": "city", "y": "age", "reason": "Age spread per city"}
			]`},
			{Contains: "interpreting a", Response: scriptedInsight},
		},
	}
}

func newTestAnalyzer(t *testing.T, p llm.Provider, eager bool) (*Analyzer, *store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := store.DefaultConfig()
	cfg.DSN = "file:" + filepath.Join(dir, "test.db") + "?mode=rwc"
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	llmService := llm.NewService(p, llm.Config{Timeout: time.Second, MaxConcurrent: 2})
	uploads := filepath.Join(dir, "uploads")
	a := NewAnalyzer(
		analysis.NewCSVService(),
		NewSuggestionEngine(llmService, 0.7, 300),
		NewInsightSummarizer(llmService, 0.2, 200),
		viz.NewRenderer(2),
		st,
		AnalyzerConfig{UploadDir: uploads, ChartsPerUpload: 3, EagerInsights: eager},
	)
	return a, st, uploads
}

func TestAnalyze_PersistsSession(t *testing.T) {
	a, st, uploads := newTestAnalyzer(t, scriptedProvider(), true)
	ctx := context.Background()

	sess, vizs, res, err := a.Analyze(ctx, "alice", "people.csv", strings.NewReader(peopleCSV()))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Raw.NumRows() != 100 || len(res.Suggestions) != 4 {
		t.Errorf("unexpected analysis: %d rows, %d suggestions", res.Raw.NumRows(), len(res.Suggestions))
	}

	wantTypes := []string{"heatmap", "box", "histogram", "bar", "pie"}
	if len(vizs) != len(wantTypes) {
		t.Fatalf("expected %d visualizations, got %d", len(wantTypes), len(vizs))
	}
	for i, v := range vizs {
		if v.GraphType != wantTypes[i] {
			t.Errorf("visualization %d: type %s, want %s", i, v.GraphType, wantTypes[i])
		}
	}

	heatmap := vizs[0]
	if !strings.Contains(heatmap.Description, "Not enough numerical columns") {
		t.Errorf("expected heatmap error description, got %q", heatmap.Description)
	}
	if heatmap.Insights != heatmap.Description {
		t.Errorf("error chart insights should repeat the description, got %q", heatmap.Insights)
	}
	for _, v := range vizs[1:] {
		if v.Insights != scriptedInsight {
			t.Errorf("%s: unexpected insights %q", v.GraphType, v.Insights)
		}
	}

	stored, err := st.GetSession(ctx, "alice", sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	stats, err := models.ParseDatasetStats([]byte(stored.DatasetStats))
	if err != nil {
		t.Fatalf("ParseDatasetStats failed: %v", err)
	}
	if stats.TotalNullValues != 5 || stats.Shape != [2]int{100, 2} {
		t.Errorf("unexpected stored stats: nulls %d, shape %v", stats.TotalNullValues, stats.Shape)
	}
	enc, err := frame.UnmarshalEncoding([]byte(stored.EncodingMap))
	if err != nil {
		t.Fatalf("UnmarshalEncoding failed: %v", err)
	}
	if len(enc["city"]) != 8 {
		t.Errorf("expected 8 city codes, got %v", enc["city"])
	}

	full, err := st.GetVisualization(ctx, "alice", heatmap.ID)
	if err != nil {
		t.Fatalf("GetVisualization failed: %v", err)
	}
	if !viz.IsErrorPayload(full.Payload) {
		t.Error("expected the heatmap payload to be the error chart")
	}

	entries, err := os.ReadDir(uploads)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), "_people.csv") {
		t.Errorf("unexpected upload dir contents %v", entries)
	}
}

func TestAnalyze_LazyInsights(t *testing.T) {
	p := scriptedProvider()
	a, _, _ := newTestAnalyzer(t, p, false)

	_, vizs, _, err := a.Analyze(context.Background(), "alice", "people.csv", strings.NewReader(peopleCSV()))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if n := len(p.Prompts()); n != 1 {
		t.Errorf("expected only the suggestion call, got %d model calls", n)
	}
	hist := vizs[2]
	want := FallbackInsight(InsightRequest{ChartType: hist.GraphType, X: hist.XColumn, Description: hist.Description})
	if hist.Insights != want {
		t.Errorf("got %q, want %q", hist.Insights, want)
	}
}

func TestAnalyze_InvalidUploads(t *testing.T) {
	a, st, uploads := newTestAnalyzer(t, llm.Disabled{}, true)
	ctx := context.Background()

	tests := []struct {
		name     string
		userID   string
		filename string
		content  string
	}{
		{"wrong extension", "alice", "data.txt", "a,b\n1,2\n"},
		{"empty file", "alice", "empty.csv", ""},
		{"missing user", "", "data.csv", "a,b\n1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := a.Analyze(ctx, tt.userID, tt.filename, strings.NewReader(tt.content))
			if !errors.Is(err, ErrInvalidUpload) {
				t.Errorf("expected ErrInvalidUpload, got %v", err)
			}
		})
	}

	sessions, err := st.ListSessions(ctx, "alice")
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no sessions after rejected uploads, got %d", len(sessions))
	}
	if entries, err := os.ReadDir(uploads); err == nil && len(entries) != 0 {
		t.Errorf("rejected uploads left files behind: %v", entries)
	}
}

func TestAnalyze_HeaderOnlyRejectedBeforeModelCalls(t *testing.T) {
	p := scriptedProvider()
	a, st, _ := newTestAnalyzer(t, p, true)
	ctx := context.Background()

	_, _, _, err := a.Analyze(ctx, "alice", "header.csv", strings.NewReader("a,b\n"))
	if !errors.Is(err, ErrInvalidUpload) {
		t.Fatalf("expected ErrInvalidUpload, got %v", err)
	}
	if n := len(p.Prompts()); n != 0 {
		t.Errorf("expected no model calls, got %d", n)
	}
	if sessions, _ := st.ListSessions(ctx, "alice"); len(sessions) != 0 {
		t.Errorf("expected no sessions, got %d", len(sessions))
	}
}

func TestAnalyze_HugeValues(t *testing.T) {
	a, st, _ := newTestAnalyzer(t, llm.Disabled{}, true)
	ctx := context.Background()

	csv := "big,label\n1e308,a\n1.5e308,b\n-1e308,c\n"
	sess, vizs, _, err := a.Analyze(ctx, "alice", "big.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(vizs) < 3 {
		t.Errorf("expected essential and suggested charts, got %d", len(vizs))
	}

	stored, err := st.GetSession(ctx, "alice", sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	stats, err := models.ParseDatasetStats([]byte(stored.DatasetStats))
	if err != nil {
		t.Fatalf("ParseDatasetStats failed: %v", err)
	}
	if m := stats.Describe["mean"][0]; m <= 0 {
		t.Errorf("expected a finite positive mean, got %v", m)
	}
}

func TestPrepare_DatetimeOnly(t *testing.T) {
	a, _, _ := newTestAnalyzer(t, llm.Disabled{}, true)

	res, err := a.Prepare(context.Background(), strings.NewReader("day\n2024-01-01\n2024-01-02\n2024-01-01\n"), "days.csv")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if len(res.Suggestions) != 1 || res.Suggestions[0].Type != models.ChartBar || res.Suggestions[0].X != "day" {
		t.Fatalf("expected a frequency bar on day, got %+v", res.Suggestions)
	}
	bar := res.Charts[len(res.Charts)-1]
	if bar.Result.Failed {
		t.Errorf("frequency bar failed: %s", bar.Result.Description)
	}
}

func TestPrepare_BelowMinimumRows(t *testing.T) {
	a, _, _ := newTestAnalyzer(t, llm.Disabled{}, true)

	res, err := a.Prepare(context.Background(), strings.NewReader("a,b\n1,2\n"), "tiny.csv")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	for _, c := range res.Charts[:2] {
		if !c.Result.Failed || !strings.Contains(c.Result.Description, "Not enough rows") {
			t.Errorf("%s: expected the minimum-row error, got %q", c.Type, c.Result.Description)
		}
	}
	if len(res.Suggestions) == 0 {
		t.Error("expected fallback suggestions")
	}
}

func TestRegenerateInsights(t *testing.T) {
	a, st, _ := newTestAnalyzer(t, scriptedProvider(), false)
	ctx := context.Background()

	_, vizs, _, err := a.Analyze(ctx, "alice", "people.csv", strings.NewReader(peopleCSV()))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	got, err := a.RegenerateInsights(ctx, "alice", vizs[2].ID)
	if err != nil {
		t.Fatalf("RegenerateInsights failed: %v", err)
	}
	if got != scriptedInsight {
		t.Errorf("unexpected insights %q", got)
	}
	stored, _ := st.GetVisualization(ctx, "alice", vizs[2].ID)
	if stored.Insights != scriptedInsight {
		t.Errorf("insights not stored, got %q", stored.Insights)
	}

	again, err := a.RegenerateInsights(ctx, "alice", vizs[0].ID)
	if err != nil {
		t.Fatalf("RegenerateInsights failed: %v", err)
	}
	if again != vizs[0].Description {
		t.Errorf("error chart should keep its description, got %q", again)
	}

	if _, err := a.RegenerateInsights(ctx, "bob", vizs[2].ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign user, got %v", err)
	}
}
