package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestDocumentTryAcquireSyncLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)

	query := "UPDATE documents SET is_syncing = 1, last_modified_date = ? WHERE id = ? AND (is_syncing = 0 OR last_modified_date < ?)"

	// Lock free, acquire wins
	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs(sqlmock.AnyArg(), "doc-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	acquired, err := repo.TryAcquireSyncLock(context.Background(), "doc-1", 10*time.Minute)
	assert.NoError(t, err)
	assert.True(t, acquired)

	// Another sync holds the document
	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs(sqlmock.AnyArg(), "doc-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	acquired, err = repo.TryAcquireSyncLock(context.Background(), "doc-1", 10*time.Minute)
	assert.NoError(t, err)
	assert.False(t, acquired)
}

func TestDocumentMarkSynced(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)

	query := "UPDATE documents SET last_synced_at = ?, is_syncing = 0, last_modified_date = ? WHERE id = ?"

	syncedAt := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs(syncedAt, sqlmock.AnyArg(), "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.MarkSynced(context.Background(), "doc-1", syncedAt)
	assert.NoError(t, err)
}

func TestDocumentFindAutoSyncEnabled(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentRepository(db)

	query := "SELECT " + documentColumns + " FROM documents WHERE auto_sync = 1"

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "project_id", "external_document_id", "title", "auto_sync",
			"sync_schedule", "last_synced_at", "is_syncing", "created_date", "last_modified_date",
		}).
			AddRow("doc-1", "p-1", "ext-1", "Low Voltage Plan", true, "0 * * * *", "2026-08-20 10:00:00", false, "2026-01-10 09:00:00", "2026-08-20 10:00:00").
			AddRow("doc-2", "p-2", "ext-2", "AV Riser", true, nil, nil, false, "2026-01-10 09:00:00", "2026-01-10 09:00:00"))

	docs, err := repo.FindAutoSyncEnabled(context.Background())
	assert.NoError(t, err)
	assert.Len(t, docs, 2)

	assert.Equal(t, "Low Voltage Plan", docs[0].Title)
	assert.NotNil(t, docs[0].SyncSchedule)
	assert.Equal(t, "0 * * * *", *docs[0].SyncSchedule)
	assert.NotNil(t, docs[0].LastSyncedAt)

	assert.Nil(t, docs[1].SyncSchedule)
	assert.Nil(t, docs[1].LastSyncedAt)
}
