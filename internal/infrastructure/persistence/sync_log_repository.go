package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/pkg/constants"
)

type SyncLogRepository struct {
	db *sql.DB
}

func NewSyncLogRepository(db *sql.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

const syncLogColumns = "id, project_id, document_id, created_count, updated_count, error_count, total_count, aliases_discovered, errors, duration_ms, triggered_by, created_date"

func (r *SyncLogRepository) scanLog(scanner rowScanner) (*models.SyncLog, error) {
	var l models.SyncLog
	var errorsRaw, createdRaw []byte

	if err := scanner.Scan(&l.ID, &l.ProjectID, &l.DocumentID,
		&l.CreatedCount, &l.UpdatedCount, &l.ErrorCount, &l.TotalCount,
		&l.AliasesDiscovered, &errorsRaw, &l.DurationMs, &l.TriggeredBy, &createdRaw); err != nil {
		return nil, err
	}

	l.Errors = unmarshalStringList(errorsRaw)
	l.CreatedDate = parseDateTime(createdRaw)

	return &l, nil
}

// Insert stores a sync run record
func (r *SyncLogRepository) Insert(ctx context.Context, l *models.SyncLog) error {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableSyncLog, syncLogColumns)

	_, err := r.db.ExecContext(ctx, q,
		l.ID, l.ProjectID, l.DocumentID,
		l.CreatedCount, l.UpdatedCount, l.ErrorCount, l.TotalCount,
		l.AliasesDiscovered, marshalStringList(l.Errors), l.DurationMs, l.TriggeredBy, l.CreatedDate)
	return err
}

// FindByDocument retrieves recent sync runs for one document, newest first
func (r *SyncLogRepository) FindByDocument(ctx context.Context, documentID string, limit int) ([]*models.SyncLog, error) {
	if limit <= 0 {
		limit = constants.DefaultListLimit
	}

	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s DESC LIMIT %d",
		syncLogColumns, constants.TableSyncLog, constants.FieldDocumentID, constants.FieldCreatedDate, limit)

	return r.queryLogs(ctx, q, documentID)
}

// FindByProject retrieves recent sync runs across a project, newest first
func (r *SyncLogRepository) FindByProject(ctx context.Context, projectID string, limit int) ([]*models.SyncLog, error) {
	if limit <= 0 {
		limit = constants.DefaultListLimit
	}

	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s DESC LIMIT %d",
		syncLogColumns, constants.TableSyncLog, constants.FieldProjectID, constants.FieldCreatedDate, limit)

	return r.queryLogs(ctx, q, projectID)
}

func (r *SyncLogRepository) queryLogs(ctx context.Context, q string, args ...interface{}) ([]*models.SyncLog, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*models.SyncLog, 0)
	for rows.Next() {
		l, err := r.scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
