package types

import (
	"encoding/json"
	"time"

	"browsekit/browsekit/services/normalize"
)

type BatchSearchRequest struct {
	Queries    []string      `json:"queries"`
	MaxResults int           `json:"maxResults,omitempty"`
	Filters    SearchFilters `json:"filters"`
}

// BatchResult is one query's outcome; Results or Error is set, never both.
type BatchResult struct {
	Index     int                      `json:"index"`
	Query     string                   `json:"query"`
	Success   bool                     `json:"success"`
	Results   []normalize.SearchResult `json:"results,omitempty"`
	Error     string                   `json:"error,omitempty"`
	ElapsedMs int64                    `json:"elapsedMs"`
}

type BatchSearchResponse struct {
	Success      bool          `json:"success"`
	RunID        string        `json:"runId"`
	TotalQueries int           `json:"totalQueries"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Results      []BatchResult `json:"results"`
	Timestamp    time.Time     `json:"timestamp"`
}

// BatchEvent is one websocket frame: an "item" per finished query, then a "summary".
type BatchEvent struct {
	Type    string               `json:"type"`
	RunID   string               `json:"runId"`
	Item    *BatchResult         `json:"item,omitempty"`
	Summary *BatchSearchResponse `json:"summary,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type BatchRun struct {
	RunID        string    `json:"runId"`
	TotalQueries int       `json:"totalQueries"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
}

type WebhookRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type WebhookResponse struct {
	Success   bool      `json:"success"`
	Action    string    `json:"action"`
	Result    any       `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}
