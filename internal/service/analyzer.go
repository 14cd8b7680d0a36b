package service

import (
	"autoviz/internal/analysis"
	"autoviz/internal/frame"
	"autoviz/internal/logger"
	"autoviz/internal/models"
	"autoviz/internal/store"
	"autoviz/internal/viz"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidUpload marks uploads rejected before analysis.
var ErrInvalidUpload = errors.New("invalid upload")

// AnalyzerConfig controls one upload run.
type AnalyzerConfig struct {
	UploadDir       string
	ChartsPerUpload int
	EagerInsights   bool
}

// Analyzer runs the upload pipeline: load, clean and snapshot, profile,
// essential charts, suggestions, rendering, insights and persistence.
type Analyzer struct {
	csv         *analysis.CSVService
	suggestions *SuggestionEngine
	insights    *InsightSummarizer
	renderer    *viz.Renderer
	store       *store.Store
	config      AnalyzerConfig
}

func NewAnalyzer(
	csv *analysis.CSVService,
	suggestions *SuggestionEngine,
	insights *InsightSummarizer,
	renderer *viz.Renderer,
	st *store.Store,
	cfg AnalyzerConfig,
) *Analyzer {
	return &Analyzer{
		csv:         csv,
		suggestions: suggestions,
		insights:    insights,
		renderer:    renderer,
		store:       st,
		config:      cfg,
	}
}

// Chart is a rendered chart of an analysis run.
type Chart struct {
	Type      string
	X         string
	Y         string
	Reason    string
	Essential bool
	Result    viz.Result
	Insights  string
}

// Analysis is the in-memory outcome of the pipeline for one file.
type Analysis struct {
	FileName    string
	Raw         *frame.DataFrame
	Cleaned     *frame.DataFrame
	Encoding    frame.EncodingMap
	Columns     []models.ColumnDescriptor
	Stats       models.DatasetStats
	Suggestions []models.ChartSuggestion
	Charts      []Chart
}

// ============================================================================
// PIPELINE
// ============================================================================

// Prepare runs the pipeline on r without persisting anything. Only input
// errors are returned; model and rendering failures fall back per stage.
func (a *Analyzer) Prepare(ctx context.Context, r io.Reader, filename string) (*Analysis, error) {
	raw, err := a.csv.Load(r, filename)
	if err != nil {
		return nil, errors.Join(ErrInvalidUpload, err)
	}
	return a.PrepareFrame(ctx, raw, filename)
}

// PrepareFrame runs the pipeline on an already loaded frame. A frame without
// columns or rows is rejected before any model call.
func (a *Analyzer) PrepareFrame(ctx context.Context, raw *frame.DataFrame, filename string) (*Analysis, error) {
	if raw.NumCols() == 0 {
		return nil, errors.Join(ErrInvalidUpload, errors.New("the file has no columns"))
	}
	if raw.NumRows() == 0 {
		return nil, errors.Join(ErrInvalidUpload, errors.New("the dataset is empty"))
	}

	res := &Analysis{FileName: filename, Raw: raw}

	// Cleaning and the snapshot both read the raw frame and never write it.
	var g errgroup.Group
	g.Go(func() error {
		res.Cleaned, res.Encoding = analysis.Clean(raw)
		return nil
	})
	g.Go(func() error {
		res.Stats = analysis.Snapshot(raw)
		return nil
	})
	_ = g.Wait()

	res.Columns = analysis.Profile(raw)

	res.Charts = append(res.Charts,
		a.render(res, models.ChartSuggestion{Type: models.ChartHeatmap, X: models.AllNumericColumns, Reason: "Correlation between numerical columns"}, true),
		a.render(res, models.ChartSuggestion{Type: models.ChartBox, X: models.AllNumericColumns, Reason: "Outliers in numerical columns"}, true),
	)

	res.Suggestions = a.suggestions.Suggest(ctx, res.Columns, res.Stats)
	limit := a.config.ChartsPerUpload
	if limit > len(res.Suggestions) {
		limit = len(res.Suggestions)
	}
	for _, s := range res.Suggestions[:limit] {
		res.Charts = append(res.Charts, a.render(res, s, false))
	}

	a.summarize(ctx, res.Charts)

	logger.Info("analysis prepared",
		"file", filename,
		"rows", raw.NumRows(),
		"columns", raw.NumCols(),
		"encoded", len(res.Encoding),
		"charts", len(res.Charts),
	)
	return res, nil
}

func (a *Analyzer) render(res *Analysis, s models.ChartSuggestion, essential bool) Chart {
	out := a.renderer.Render(res.Cleaned, res.Encoding, s.Type, s.X, s.Y)
	if out.Failed {
		logger.Warn("chart rendering failed", "chart", s.Type, "x", s.X, "y", s.Y, "reason", out.Description)
	}
	return Chart{
		Type:      s.Type,
		X:         s.X,
		Y:         s.Y,
		Reason:    s.Reason,
		Essential: essential,
		Result:    out,
	}
}

// summarize fills in the insights of every chart. Model calls run
// concurrently; the model service bounds how many are in flight.
func (a *Analyzer) summarize(ctx context.Context, charts []Chart) {
	var g errgroup.Group
	for i := range charts {
		c := &charts[i]
		if c.Result.Failed {
			c.Insights = c.Result.Description
			continue
		}
		req := insightRequest(c)
		if !a.config.EagerInsights {
			c.Insights = FallbackInsight(req)
			continue
		}
		g.Go(func() error {
			c.Insights = a.insights.Summarize(ctx, req)
			return nil
		})
	}
	_ = g.Wait()
}

func insightRequest(c *Chart) InsightRequest {
	return InsightRequest{
		ChartType:   c.Type,
		X:           c.X,
		Y:           c.Y,
		Description: c.Result.Description,
		AxisStats:   c.Result.Stats,
	}
}

// ============================================================================
// UPLOADS
// ============================================================================

// Analyze stores the upload, runs the pipeline and persists the session
// with all its visualizations in one transaction.
func (a *Analyzer) Analyze(ctx context.Context, userID, filename string, r io.Reader) (*models.Session, []models.Visualization, *Analysis, error) {
	if userID == "" {
		return nil, nil, nil, errors.Join(ErrInvalidUpload, errors.New("missing user"))
	}
	if !IsCSVFile(filename) {
		return nil, nil, nil, errors.Join(ErrInvalidUpload, errors.New("only .csv files are accepted"))
	}

	path, err := a.saveUpload(r, filename)
	if err != nil {
		return nil, nil, nil, err
	}
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(path)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to reopen upload: %w", err)
	}
	defer f.Close()

	res, err := a.Prepare(ctx, f, filename)
	if err != nil {
		return nil, nil, nil, err
	}

	statsJSON, err := json.Marshal(res.Stats)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode dataset stats: %w", err)
	}
	encJSON, err := frame.MarshalEncoding(res.Encoding)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode encoding map: %w", err)
	}

	sess := &models.Session{
		UserID:       userID,
		Filename:     filename,
		DatasetStats: string(statsJSON),
		EncodingMap:  string(encJSON),
	}
	var vizs []models.Visualization
	err = a.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.CreateSession(ctx, sess); err != nil {
			return err
		}
		for _, c := range res.Charts {
			v := models.Visualization{
				SessionID:   sess.ID,
				GraphType:   c.Type,
				XColumn:     c.X,
				YColumn:     c.Y,
				Payload:     c.Result.Payload,
				Description: c.Result.Description,
				Insights:    c.Insights,
			}
			if err := tx.CreateVisualization(ctx, &v); err != nil {
				return err
			}
			v.Payload = ""
			vizs = append(vizs, v)
		}
		return nil
	})
	if err != nil {
		logger.Error("failed to persist analysis", "file", filename, "user", userID, "error", err)
		return nil, nil, nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	keep = true
	logger.Info("analysis saved", "session", sess.ID, "user", userID, "visualizations", len(vizs))
	return sess, vizs, res, nil
}

// RegenerateInsights asks the model again for one visualization's insights
// and stores the result.
func (a *Analyzer) RegenerateInsights(ctx context.Context, userID, vizID string) (string, error) {
	v, err := a.store.GetVisualization(ctx, userID, vizID)
	if err != nil {
		return "", err
	}

	var insights string
	if viz.IsErrorPayload(v.Payload) {
		insights = v.Description
	} else {
		insights = a.insights.Summarize(ctx, InsightRequest{
			ChartType:   v.GraphType,
			X:           v.XColumn,
			Y:           v.YColumn,
			Description: v.Description,
		})
	}

	if err := a.store.UpdateInsights(ctx, v.ID, insights); err != nil {
		return "", err
	}
	return insights, nil
}

// IsCSVFile reports whether name has a .csv extension.
func IsCSVFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// saveUpload copies r into the upload directory under a random name and
// returns the stored path.
func (a *Analyzer) saveUpload(r io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(a.config.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate file id: %w", err)
	}
	path := filepath.Join(a.config.UploadDir, id+"_"+filepath.Base(filename))

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return path, nil
}
