package models

import "time"

// UploadResponse is returned after a successful upload and analysis
type UploadResponse struct {
	Message        string                 `json:"message"`
	SessionID      string                 `json:"session_id"`
	Filename       string                 `json:"filename"`
	Rows           int                    `json:"rows"`
	Columns        int                    `json:"columns"`
	ColumnNames    []string               `json:"column_names"`
	ColumnTypes    []ColumnDescriptor     `json:"column_types"`
	Visualizations []VisualizationSummary `json:"visualizations"`
}

// VisualizationSummary describes a chart without its payload
type VisualizationSummary struct {
	ID          string `json:"id"`
	GraphType   string `json:"graph_type"`
	XColumn     string `json:"x_column"`
	YColumn     string `json:"y_column,omitempty"`
	Description string `json:"description"`
	Insights    string `json:"insights"`
	ChartURL    string `json:"chart_url"`
}

// SessionSummary is one row of the session list
type SessionSummary struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionListResponse for GET /api/sessions
type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// SessionDetailResponse for GET /api/sessions/{sessionID}
type SessionDetailResponse struct {
	Session          SessionSummary            `json:"session"`
	DatasetStats     DatasetStats              `json:"dataset_stats"`
	EncodingMappings map[string]map[int]string `json:"encoding_mappings"`
	Visualizations   []VisualizationSummary    `json:"visualizations"`
	Warnings         []string                  `json:"warnings,omitempty"`
}

// DatasetInfoResponse for GET /api/sessions/{sessionID}/dataset-info
type DatasetInfoResponse struct {
	Session          SessionSummary            `json:"session"`
	DatasetStats     DatasetStats              `json:"dataset_stats"`
	EncodingMappings map[string]map[int]string `json:"encoding_mappings"`
	Warnings         []string                  `json:"warnings,omitempty"`
}

// InsightsResponse carries either regenerated insights or an error
type InsightsResponse struct {
	Success  bool   `json:"success,omitempty"`
	Insights string `json:"insights,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// LLMConfig for GET /api/config/llm
type LLMConfig struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	TimeoutSec int    `json:"timeout_sec"`
}
