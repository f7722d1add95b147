package models

import (
	"time"
)

// SyncResult summarizes one reconciliation run for a document
type SyncResult struct {
	Created           int       `json:"created"`
	Updated           int       `json:"updated"`
	Total             int       `json:"total"` // Shapes processed, including failures
	Errors            []string  `json:"errors,omitempty"`
	AliasesDiscovered int       `json:"aliases_discovered"`
	DurationMs        int64     `json:"duration_ms"`
	SyncedAt          time.Time `json:"synced_at"`
	TriggeredBy       string    `json:"triggered_by"` // manual, scheduled
}

// ErrorCount returns the number of per-shape failures in the run
func (r SyncResult) ErrorCount() int {
	return len(r.Errors)
}

// SyncStatus is what the sync status endpoint returns: the most recent
// cached result, when available, plus the persisted run history.
type SyncStatus struct {
	LastResult *SyncResult `json:"last_result,omitempty"`
	History    []*SyncLog  `json:"history"`
}

// SyncLog is the persisted record of a reconciliation run
type SyncLog struct {
	ID                string    `json:"id"`
	ProjectID         string    `json:"project_id"`
	DocumentID        string    `json:"document_id"`
	CreatedCount      int       `json:"created_count"`
	UpdatedCount      int       `json:"updated_count"`
	ErrorCount        int       `json:"error_count"`
	TotalCount        int       `json:"total_count"`
	AliasesDiscovered int       `json:"aliases_discovered"`
	Errors            []string  `json:"errors,omitempty"`
	DurationMs        int64     `json:"duration_ms"`
	TriggeredBy       string    `json:"triggered_by"`
	CreatedDate       time.Time `json:"created_date"`
}
