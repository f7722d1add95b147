package models

import (
	"time"
)

// Document represents a linked diagram document that can be synced
type Document struct {
	ID                 string     `json:"id"`
	ProjectID          string     `json:"project_id"`
	ExternalDocumentID string     `json:"external_document_id"`
	Title              string     `json:"title"`
	AutoSync           bool       `json:"auto_sync"`
	SyncSchedule       *string    `json:"sync_schedule,omitempty"` // Cron expression, nil = server default
	LastSyncedAt       *time.Time `json:"last_synced_at,omitempty"`
	IsSyncing          bool       `json:"is_syncing"`
	CreatedDate        time.Time  `json:"created_date"`
	LastModifiedDate   time.Time  `json:"last_modified_date"`
}
