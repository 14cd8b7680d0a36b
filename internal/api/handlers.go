package api

import (
	"autoviz/internal/frame"
	"autoviz/internal/llm"
	"autoviz/internal/logger"
	"autoviz/internal/models"
	"autoviz/internal/service"
	"autoviz/internal/store"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator"
)

// UserHeader identifies the caller. Authentication happens upstream.
const UserHeader = "X-User-ID"

// multipartSlack covers the multipart framing around the file itself.
const multipartSlack = 64 << 10

type Handler struct {
	Analyzer       *service.Analyzer
	Store          *store.Store
	LLMService     *llm.Service
	MaxUploadBytes int64
	validate       *validator.Validate
}

func NewHandler(analyzer *service.Analyzer, st *store.Store, llmSvc *llm.Service, maxUploadBytes int64) *Handler {
	return &Handler{
		Analyzer:       analyzer,
		Store:          st,
		LLMService:     llmSvc,
		MaxUploadBytes: maxUploadBytes,
		validate:       validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Post("/api/upload", h.Upload)

	r.Get("/api/sessions", h.ListSessions)
	r.Get("/api/sessions/{sessionID}", h.GetSession)
	r.Get("/api/sessions/{sessionID}/dataset-info", h.GetDatasetInfo)
	r.Delete("/api/sessions/{sessionID}", h.DeleteSession)

	r.Get("/api/visualizations/{vizID}/chart", h.GetChart)
	r.Post("/api/visualizations/{vizID}/insights", h.RegenerateInsights)

	r.Get("/api/config/llm", h.GetLLMConfig)
}

type uploadRequest struct {
	UserID   string `validate:"required,max=128"`
	Filename string `validate:"required,max=255"`
}

type resourceRequest struct {
	UserID string `validate:"required,max=128"`
	ID     string `validate:"required,max=64"`
}

// ============================================================================
// Health
// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// ============================================================================
// Upload
// ============================================================================

// Upload handles POST /api/upload
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.MaxUploadBytes+multipartSlack {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large (max %d MiB)", h.MaxUploadBytes>>20))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+multipartSlack)

	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large (max %d MiB)", h.MaxUploadBytes>>20))
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	req := uploadRequest{UserID: r.Header.Get(UserHeader), Filename: header.Filename}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if header.Size > h.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large (max %d MiB)", h.MaxUploadBytes>>20))
		return
	}
	if !service.IsCSVFile(header.Filename) {
		writeError(w, http.StatusBadRequest, "Only CSV files are allowed")
		return
	}

	sess, vizs, res, err := h.Analyzer.Analyze(r.Context(), req.UserID, header.Filename, file)
	if err != nil {
		if errors.Is(err, service.ErrInvalidUpload) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to process file: %v", err))
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing file: %v", err))
		return
	}

	resp := models.UploadResponse{
		Message:        fmt.Sprintf("File '%s' analyzed successfully", header.Filename),
		SessionID:      sess.ID,
		Filename:       sess.Filename,
		Rows:           res.Raw.NumRows(),
		Columns:        res.Raw.NumCols(),
		ColumnNames:    res.Raw.Headers(),
		ColumnTypes:    res.Columns,
		Visualizations: summaries(vizs),
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ============================================================================
// Sessions
// ============================================================================

// ListSessions handles GET /api/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(UserHeader)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "Missing "+UserHeader+" header")
		return
	}

	sessions, err := h.Store.ListSessions(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := models.SessionListResponse{Sessions: make([]models.SessionSummary, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, sessionSummary(&s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSession handles GET /api/sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	vizs, err := h.Store.ListVisualizations(r.Context(), sess.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stats, enc, warnings := decodeSession(sess)
	writeJSON(w, http.StatusOK, models.SessionDetailResponse{
		Session:          sessionSummary(sess),
		DatasetStats:     stats,
		EncodingMappings: enc,
		Visualizations:   summaries(vizs),
		Warnings:         warnings,
	})
}

// GetDatasetInfo handles GET /api/sessions/{sessionID}/dataset-info
func (h *Handler) GetDatasetInfo(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	stats, enc, warnings := decodeSession(sess)
	writeJSON(w, http.StatusOK, models.DatasetInfoResponse{
		Session:          sessionSummary(sess),
		DatasetStats:     stats,
		EncodingMappings: enc,
		Warnings:         warnings,
	})
}

// DeleteSession handles DELETE /api/sessions/{sessionID}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	req, ok := h.resource(w, r, "sessionID")
	if !ok {
		return
	}

	if err := h.Store.DeleteSession(r.Context(), req.UserID, req.ID); err != nil {
		writeStoreError(w, err, "Session not found")
		return
	}
	logger.Info("session deleted", "session", req.ID, "user", req.UserID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	req, ok := h.resource(w, r, "sessionID")
	if !ok {
		return nil, false
	}
	sess, err := h.Store.GetSession(r.Context(), req.UserID, req.ID)
	if err != nil {
		writeStoreError(w, err, "Session not found")
		return nil, false
	}
	return sess, true
}

// decodeSession parses the stored documents. Unreadable documents are
// replaced by empty ones and reported as warnings.
func decodeSession(sess *models.Session) (models.DatasetStats, map[string]map[int]string, []string) {
	var warnings []string

	stats, err := models.ParseDatasetStats([]byte(sess.DatasetStats))
	if err != nil {
		logger.Warn("stored dataset stats unreadable", "session", sess.ID, "error", err)
		warnings = append(warnings, fmt.Sprintf("dataset stats unavailable: %v", err))
		stats = models.EmptyDatasetStats()
	}

	enc, err := frame.UnmarshalEncoding([]byte(sess.EncodingMap))
	if err != nil {
		logger.Warn("stored encoding map unreadable", "session", sess.ID, "error", err)
		warnings = append(warnings, fmt.Sprintf("encoding map unavailable: %v", err))
		enc = frame.EncodingMap{}
	}
	return stats, enc, warnings
}

// ============================================================================
// Visualizations
// ============================================================================

// GetChart handles GET /api/visualizations/{vizID}/chart
func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	req, ok := h.resource(w, r, "vizID")
	if !ok {
		return
	}

	v, err := h.Store.GetVisualization(r.Context(), req.UserID, req.ID)
	if err != nil {
		writeStoreError(w, err, "Visualization not found")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(v.Payload))
}

// RegenerateInsights handles POST /api/visualizations/{vizID}/insights
func (h *Handler) RegenerateInsights(w http.ResponseWriter, r *http.Request) {
	req, ok := h.resource(w, r, "vizID")
	if !ok {
		return
	}

	insights, err := h.Analyzer.RegenerateInsights(r.Context(), req.UserID, req.ID)
	if err != nil {
		status := http.StatusInternalServerError
		msg := err.Error()
		if errors.Is(err, store.ErrNotFound) {
			status, msg = http.StatusNotFound, "Visualization not found"
		}
		writeJSON(w, status, models.InsightsResponse{Error: msg})
		return
	}
	writeJSON(w, http.StatusOK, models.InsightsResponse{Success: true, Insights: insights})
}

// ============================================================================
// Config
// ============================================================================

// GetLLMConfig handles GET /api/config/llm
func (h *Handler) GetLLMConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.LLMConfig{
		Provider:   h.LLMService.Provider(),
		Model:      h.LLMService.Model(),
		TimeoutSec: int(h.LLMService.Timeout().Seconds()),
	})
}

// ============================================================================
// Helpers
// ============================================================================

func (h *Handler) resource(w http.ResponseWriter, r *http.Request, param string) (resourceRequest, bool) {
	req := resourceRequest{UserID: r.Header.Get(UserHeader), ID: chi.URLParam(r, param)}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return req, false
	}
	return req, true
}

func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		if field == "UserID" {
			field = UserHeader + " header"
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
	}
	return "Invalid request: " + strings.Join(msgs, ", ")
}

func sessionSummary(s *models.Session) models.SessionSummary {
	return models.SessionSummary{ID: s.ID, Filename: s.Filename, CreatedAt: s.CreatedAt}
}

func summaries(vizs []models.Visualization) []models.VisualizationSummary {
	out := make([]models.VisualizationSummary, 0, len(vizs))
	for _, v := range vizs {
		out = append(out, models.VisualizationSummary{
			ID:          v.ID,
			GraphType:   v.GraphType,
			XColumn:     v.XColumn,
			YColumn:     v.YColumn,
			Description: v.Description,
			Insights:    v.Insights,
			ChartURL:    "/api/visualizations/" + v.ID + "/chart",
		})
	}
	return out
}

func writeStoreError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
