package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/models"
	"github.com/voltfield/backend/pkg/query"
)

// DropRepository stores wire drops as generic SObject records. Drops keep
// the map shape end to end because the column set varies by installation:
// the geometry columns only exist where the schema has been migrated.
type DropRepository struct {
	db *sql.DB
}

func NewDropRepository(db *sql.DB) *DropRepository {
	return &DropRepository{db: db}
}

// DropListOptions narrows List and Count
type DropListOptions struct {
	FilterSQL  string        // WHERE fragment produced by the expression walker
	FilterArgs []interface{}
	RoomName   string
	Category   string
	Limit      int
	Offset     int
}

// FindByID retrieves one drop, nil when missing
func (r *DropRepository) FindByID(ctx context.Context, id string) (models.SObject, error) {
	q := query.From(constants.TableWireDrop).
		Select([]string{"*"}).
		Where(fmt.Sprintf("`%s`.`%s` = ?", constants.TableWireDrop, constants.FieldID), id).
		Limit(1).
		Build()

	return r.queryOne(ctx, q.SQL, q.Params...)
}

// FindByShapeID retrieves the drop linked to a diagram shape, nil when the
// shape has never been synced.
func (r *DropRepository) FindByShapeID(ctx context.Context, projectID, shapeID string) (models.SObject, error) {
	q := query.From(constants.TableWireDrop).
		Select([]string{"*"}).
		Where(fmt.Sprintf("`%s`.`%s` = ?", constants.TableWireDrop, constants.FieldProjectID), projectID).
		Where(fmt.Sprintf("`%s`.`%s` = ?", constants.TableWireDrop, constants.FieldExternalShapeID), shapeID).
		Limit(1).
		Build()

	return r.queryOne(ctx, q.SQL, q.Params...)
}

// FindByShapeIDs prefetches the drops for a batch of shapes, keyed by
// external shape ID. Shapes without a drop are simply absent.
func (r *DropRepository) FindByShapeIDs(ctx context.Context, projectID string, shapeIDs []string) (map[string]models.SObject, error) {
	result := make(map[string]models.SObject, len(shapeIDs))
	if len(shapeIDs) == 0 {
		return result, nil
	}

	ids := make([]interface{}, len(shapeIDs))
	for i, id := range shapeIDs {
		ids[i] = id
	}

	q := query.From(constants.TableWireDrop).
		Select([]string{"*"}).
		Where(fmt.Sprintf("`%s`.`%s` = ?", constants.TableWireDrop, constants.FieldProjectID), projectID).
		WhereIn(constants.FieldExternalShapeID, ids).
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := query.ScanRowsToSObjects(rows)
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if shapeID := rec.GetString(constants.FieldExternalShapeID); shapeID != "" {
			result[shapeID] = rec
		}
	}
	return result, nil
}

// List retrieves drops for a project with optional filtering
func (r *DropRepository) List(ctx context.Context, projectID string, opts DropListOptions) ([]models.SObject, error) {
	builder := query.From(constants.TableWireDrop).
		Select([]string{"*"}).
		Where(fmt.Sprintf("`%s`.`%s` = ?", constants.TableWireDrop, constants.FieldProjectID), projectID)

	r.applyFilters(builder, opts)

	limit := opts.Limit
	if limit <= 0 {
		limit = constants.DefaultListLimit
	}
	if limit > constants.MaxListLimit {
		limit = constants.MaxListLimit
	}

	q := builder.
		OrderBy(constants.FieldName, "ASC").
		Limit(limit).
		Offset(opts.Offset).
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return query.ScanRowsToSObjects(rows)
}

// Count returns how many drops match the same filters List uses
func (r *DropRepository) Count(ctx context.Context, projectID string, opts DropListOptions) (int, error) {
	builder := query.From(constants.TableWireDrop).
		AddSelectRaw("COUNT(*)").
		Where(fmt.Sprintf("`%s`.`%s` = ?", constants.TableWireDrop, constants.FieldProjectID), projectID)

	r.applyFilters(builder, opts)

	q := builder.Build()

	var count int
	if err := r.db.QueryRowContext(ctx, q.SQL, q.Params...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DropRepository) applyFilters(builder *query.Builder, opts DropListOptions) {
	if opts.FilterSQL != "" {
		builder.WhereRaw(opts.FilterSQL, opts.FilterArgs)
	}
	if opts.RoomName != "" {
		builder.Where(fmt.Sprintf("`%s`.`%s` = ?", constants.TableWireDrop, constants.FieldRoomName), opts.RoomName)
	}
	if opts.Category != "" {
		builder.Where(fmt.Sprintf("`%s`.`%s` = ?", constants.TableWireDrop, constants.FieldCategory), opts.Category)
	}
}

// Insert stores a new drop record
func (r *DropRepository) Insert(ctx context.Context, record models.SObject) error {
	q := query.Insert(constants.TableWireDrop, record).Build()
	_, err := r.db.ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// Update applies updates to a drop record
func (r *DropRepository) Update(ctx context.Context, id string, updates models.SObject) error {
	if len(updates) == 0 {
		return nil
	}

	q := query.Update(constants.TableWireDrop).
		Set(updates).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.db.ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// Delete removes a drop record
func (r *DropRepository) Delete(ctx context.Context, id string) error {
	q := query.Delete(constants.TableWireDrop).
		Where(fmt.Sprintf("`%s` = ?", constants.FieldID), id).
		Build()

	_, err := r.db.ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// NameExists checks whether a drop name is already taken in the project,
// ignoring the excluded record.
func (r *DropRepository) NameExists(ctx context.Context, projectID, name, excludeID string) (bool, error) {
	var exists bool
	q := fmt.Sprintf(
		"SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ? AND %s = ? AND %s != ?)",
		constants.TableWireDrop, constants.FieldProjectID, constants.FieldName, constants.FieldID)

	err := r.db.QueryRowContext(ctx, q, projectID, name, excludeID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// HasGeometryColumns probes whether the geometry columns exist on the
// wire_drops table. Callers probe once per batch, not per shape.
func (r *DropRepository) HasGeometryColumns(ctx context.Context) (bool, error) {
	q := fmt.Sprintf("SHOW COLUMNS FROM %s LIKE '%s'", constants.TableWireDrop, constants.FieldPositionX)

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	return rows.Next(), nil
}

func (r *DropRepository) queryOne(ctx context.Context, sqlText string, args ...interface{}) (models.SObject, error) {
	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := query.ScanRowsToSObjects(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}
