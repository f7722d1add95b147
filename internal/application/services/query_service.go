package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/internal/infrastructure/persistence"
	"github.com/voltfield/backend/pkg/auth"
	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/errors"
	"github.com/voltfield/backend/pkg/expression"
	"github.com/voltfield/backend/pkg/query"
	"github.com/voltfield/backend/pkg/utils"
)

type dropQueryStore interface {
	FindByID(ctx context.Context, id string) (models.SObject, error)
	List(ctx context.Context, projectID string, opts persistence.DropListOptions) ([]models.SObject, error)
	Count(ctx context.Context, projectID string, opts persistence.DropListOptions) (int, error)
	Update(ctx context.Context, id string, updates models.SObject) error
	NameExists(ctx context.Context, projectID, name, excludeID string) (bool, error)
}

// reportExecutor is the slice of the database connection the report
// endpoint needs. Satisfied by database.TiDBConnection and by *sql.DB.
type reportExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// QueryService serves the drop listing, manual drop edits, and the raw
// report endpoint.
type QueryService struct {
	projects  projectStore
	drops     dropQueryStore
	rooms     roomCatalogStore
	reports   reportExecutor
	validator *SecurityValidator
	names     *DropNameService
}

// NewQueryService creates a new QueryService
func NewQueryService(
	projects projectStore,
	drops dropQueryStore,
	rooms roomCatalogStore,
	reports reportExecutor,
) *QueryService {
	return &QueryService{
		projects:  projects,
		drops:     drops,
		rooms:     rooms,
		reports:   reports,
		validator: NewSecurityValidator(),
		names:     NewDropNameService(drops),
	}
}

// ListDrops returns one page of a project's wire drops. The filter
// expression and search term are compiled into SQL conditions and pushed
// down to the store.
func (s *QueryService) ListDrops(ctx context.Context, projectID string, opts models.DropQueryOptions) (*models.DropPage, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = constants.DefaultListLimit
	}
	if limit > constants.MaxListLimit {
		limit = constants.MaxListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	var conditions []string
	var args []interface{}

	if opts.FilterExpr != "" {
		cond, condArgs, err := expression.ToSQL(opts.FilterExpr, constants.DropFilterFields())
		if err != nil {
			return nil, errors.NewValidationError("filter", err.Error())
		}
		conditions = append(conditions, cond)
		args = append(args, condArgs...)
	}

	if search := strings.TrimSpace(opts.Search); search != "" && search != "*" {
		cond, condArgs := dropSearchCondition(search)
		conditions = append(conditions, cond)
		args = append(args, condArgs...)
	}

	listOpts := persistence.DropListOptions{
		FilterSQL:  strings.Join(conditions, " AND "),
		FilterArgs: args,
		RoomName:   opts.RoomName,
		Category:   opts.Category,
		Limit:      limit,
		Offset:     offset,
	}

	items, err := s.drops.List(ctx, projectID, listOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list drops: %w", err)
	}

	total, err := s.drops.Count(ctx, projectID, listOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to count drops: %w", err)
	}

	return &models.DropPage{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// GetDrop loads a single drop and verifies it belongs to the project.
func (s *QueryService) GetDrop(ctx context.Context, projectID, dropID string) (models.SObject, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}

	record, err := s.drops.FindByID(ctx, dropID)
	if err != nil {
		return nil, fmt.Errorf("failed to load drop: %w", err)
	}
	if record == nil || record.GetString(constants.FieldProjectID) != projectID {
		return nil, errors.NewNotFoundError("drop", dropID)
	}

	return record, nil
}

// UpdateDrop applies manual field edits to a drop. Only the editable
// columns are accepted; the shape link and the generated name are never
// written directly. Changing the room or category regenerates the name.
func (s *QueryService) UpdateDrop(ctx context.Context, projectID, dropID string, updates models.SObject, user *auth.UserSession) (models.SObject, error) {
	stored, err := s.GetDrop(ctx, projectID, dropID)
	if err != nil {
		return nil, err
	}

	if len(updates) == 0 {
		return nil, errors.NewValidationError("updates", "no editable fields provided")
	}
	editable := constants.DropEditableFields()
	for field := range updates {
		if !containsString(editable, field) {
			return nil, errors.NewValidationError(field, "field is not editable")
		}
	}

	changes := models.SObject{}
	for field, value := range updates {
		changes[field] = value
	}

	// Room link rules: an explicit room_id wins and snaps room_name to
	// the canonical spelling; a bare room_name edit detaches the link.
	if roomValue, ok := updates[constants.FieldRoomID]; ok {
		roomID := utils.ToString(roomValue)
		if roomID == "" {
			changes[constants.FieldRoomID] = nil
		} else {
			room, err := s.rooms.FindByID(ctx, roomID)
			if err != nil {
				return nil, fmt.Errorf("failed to load room: %w", err)
			}
			if room == nil || room.ProjectID != projectID {
				return nil, errors.NewNotFoundError("room", roomID)
			}
			changes[constants.FieldRoomID] = room.ID
			changes[constants.FieldRoomName] = room.Name
		}
	} else if _, ok := updates[constants.FieldRoomName]; ok {
		changes[constants.FieldRoomID] = nil
	}

	roomName := stored.GetString(constants.FieldRoomName)
	if value, ok := changes[constants.FieldRoomName]; ok {
		roomName = utils.ToString(value)
	}
	category := stored.GetString(constants.FieldCategory)
	if value, ok := changes[constants.FieldCategory]; ok {
		category = utils.ToString(value)
	}

	if roomName != stored.GetString(constants.FieldRoomName) || category != stored.GetString(constants.FieldCategory) {
		name, err := s.names.Generate(ctx, projectID, roomName, category, dropID)
		if err != nil {
			return nil, err
		}
		changes[constants.FieldName] = name
	}

	changes[constants.FieldLastModifiedDate] = time.Now()
	if user != nil {
		changes[constants.FieldLastModifiedByID] = user.ID
	}

	if err := s.drops.Update(ctx, dropID, changes); err != nil {
		return nil, fmt.Errorf("failed to update drop: %w", err)
	}

	log.Printf("✅ Updated wire drop %s (%d fields)", dropID, len(updates))

	return s.drops.FindByID(ctx, dropID)
}

// ExecuteReport validates a raw SELECT against the report contract and
// runs it, returning the rows as generic records.
func (s *QueryService) ExecuteReport(ctx context.Context, rawSQL string) (*models.ReportResult, error) {
	safeSQL, err := s.validator.ValidateAndRewrite(rawSQL)
	if err != nil {
		return nil, err
	}

	rows, err := s.reports.QueryContext(ctx, safeSQL)
	if err != nil {
		return nil, fmt.Errorf("report query failed: %v", err)
	}
	defer rows.Close()

	records, err := query.ScanRowsToSObjects(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan report rows: %v", err)
	}

	log.Printf("📊 Report query returned %d rows", len(records))

	return &models.ReportResult{SQL: safeSQL, Rows: records}, nil
}

func (s *QueryService) requireProject(ctx context.Context, projectID string) error {
	exists, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if !exists {
		return errors.NewNotFoundError("project", projectID)
	}
	return nil
}

// dropSearchCondition turns a search term into a SQL condition. Terms
// shaped like "field=value" over a known drop column become typed
// comparisons; everything else is a substring match across the text
// columns.
func dropSearchCondition(term string) (string, []interface{}) {
	if idx := strings.IndexAny(term, "!<>="); idx > 0 {
		field := strings.TrimSpace(term[:idx])
		if containsString(constants.DropFilterFields(), field) {
			if cond, params, ok := query.ParseFormulaQuery(term, constants.TableWireDrop); ok {
				return cond, params
			}
		}
	}

	like := "%" + term + "%"
	fields := []string{
		constants.FieldName,
		constants.FieldRoomName,
		constants.FieldCategory,
		constants.FieldWireType,
		constants.FieldDevice,
		constants.FieldLocation,
		constants.FieldInstallNote,
	}
	clauses := make([]string, len(fields))
	params := make([]interface{}, len(fields))
	for i, f := range fields {
		clauses[i] = fmt.Sprintf("`%s`.`%s` LIKE ?", constants.TableWireDrop, f)
		params[i] = like
	}
	return "(" + strings.Join(clauses, " OR ") + ")", params
}
