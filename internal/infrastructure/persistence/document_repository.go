package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/pkg/constants"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = "id, project_id, external_document_id, title, auto_sync, sync_schedule, last_synced_at, is_syncing, created_date, last_modified_date"

func (r *DocumentRepository) scanDocument(scanner rowScanner) (*models.Document, error) {
	var d models.Document
	var schedule sql.NullString
	var lastSyncedRaw, createdRaw, modifiedRaw []byte

	if err := scanner.Scan(&d.ID, &d.ProjectID, &d.ExternalDocumentID, &d.Title,
		&d.AutoSync, &schedule, &lastSyncedRaw, &d.IsSyncing, &createdRaw, &modifiedRaw); err != nil {
		return nil, err
	}

	if schedule.Valid && schedule.String != "" {
		d.SyncSchedule = &schedule.String
	}
	d.LastSyncedAt = parseNullableDateTime(lastSyncedRaw)
	d.CreatedDate = parseDateTime(createdRaw)
	d.LastModifiedDate = parseDateTime(modifiedRaw)

	return &d, nil
}

// FindByID retrieves a document by ID, nil when missing
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		documentColumns, constants.TableDocument, constants.FieldID)

	d, err := r.scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// FindByProject retrieves the documents linked to a project
func (r *DocumentRepository) FindByProject(ctx context.Context, projectID string) ([]*models.Document, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s ASC",
		documentColumns, constants.TableDocument, constants.FieldProjectID, constants.FieldTitle)

	return r.queryDocuments(ctx, q, projectID)
}

// FindAutoSyncEnabled retrieves every document with auto sync turned on,
// across all projects. The scheduler polls this.
func (r *DocumentRepository) FindAutoSyncEnabled(ctx context.Context) ([]*models.Document, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = 1",
		documentColumns, constants.TableDocument, constants.FieldAutoSync)

	return r.queryDocuments(ctx, q)
}

func (r *DocumentRepository) queryDocuments(ctx context.Context, q string, args ...interface{}) ([]*models.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		d, err := r.scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Insert stores a new document link
func (r *DocumentRepository) Insert(ctx context.Context, d *models.Document) error {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableDocument, documentColumns)

	_, err := r.db.ExecContext(ctx, q,
		d.ID, d.ProjectID, d.ExternalDocumentID, d.Title,
		d.AutoSync, d.SyncSchedule, d.LastSyncedAt, d.IsSyncing,
		d.CreatedDate, d.LastModifiedDate)
	return err
}

// Update applies field updates to a document
func (r *DocumentRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClauses := []string{}
	args := []interface{}{}

	for _, k := range sortedUpdateKeys(updates) {
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", k))
		args = append(args, updates[k])
	}

	setClauses = append(setClauses, fmt.Sprintf("%s = ?", constants.FieldLastModifiedDate))
	args = append(args, time.Now())

	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		constants.TableDocument, strings.Join(setClauses, ", "), constants.FieldID)
	args = append(args, id)

	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// Delete removes a document link
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", constants.TableDocument, constants.FieldID)
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// TryAcquireSyncLock atomically flags a document as syncing. It succeeds
// when no sync is running, or when the running flag is stale, meaning the
// holder crashed mid-run. Returns false when another sync legitimately
// holds the document.
func (r *DocumentRepository) TryAcquireSyncLock(ctx context.Context, id string, staleAfter time.Duration) (bool, error) {
	staleCutoff := time.Now().Add(-staleAfter)

	q := fmt.Sprintf(
		"UPDATE %s SET %s = 1, %s = ? WHERE %s = ? AND (%s = 0 OR %s < ?)",
		constants.TableDocument, constants.FieldIsSyncing, constants.FieldLastModifiedDate,
		constants.FieldID, constants.FieldIsSyncing, constants.FieldLastModifiedDate)

	result, err := r.db.ExecContext(ctx, q, time.Now(), id, staleCutoff)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ReleaseSyncLock clears the syncing flag without touching sync state
func (r *DocumentRepository) ReleaseSyncLock(ctx context.Context, id string) error {
	q := fmt.Sprintf("UPDATE %s SET %s = 0, %s = ? WHERE %s = ?",
		constants.TableDocument, constants.FieldIsSyncing, constants.FieldLastModifiedDate, constants.FieldID)

	_, err := r.db.ExecContext(ctx, q, time.Now(), id)
	return err
}

// MarkSynced records a completed sync and releases the lock in one step
func (r *DocumentRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	q := fmt.Sprintf("UPDATE %s SET %s = ?, %s = 0, %s = ? WHERE %s = ?",
		constants.TableDocument, constants.FieldLastSyncedAt, constants.FieldIsSyncing,
		constants.FieldLastModifiedDate, constants.FieldID)

	_, err := r.db.ExecContext(ctx, q, at, time.Now(), id)
	return err
}
