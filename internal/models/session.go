package models

import "time"

// Session is a persisted analysis of one uploaded file.
// DatasetStats and EncodingMap hold versioned JSON documents.
type Session struct {
	ID           string
	UserID       string
	Filename     string
	DatasetStats string
	EncodingMap  string
	CreatedAt    time.Time
}

// Visualization is one rendered chart of a session
type Visualization struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	GraphType   string    `json:"graph_type"`
	XColumn     string    `json:"x_column"`
	YColumn     string    `json:"y_column,omitempty"`
	Payload     string    `json:"payload,omitempty"`
	Description string    `json:"description"`
	Insights    string    `json:"insights"`
	CreatedAt   time.Time `json:"created_at"`
}
