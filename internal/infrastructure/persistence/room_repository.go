package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/query"
)

type RoomRepository struct {
	db *sql.DB
}

func NewRoomRepository(db *sql.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

const roomColumns = "id, project_id, name, normalized_name, is_head_end, created_date, last_modified_date"

func (r *RoomRepository) scanRoom(scanner rowScanner) (*models.Room, error) {
	var room models.Room
	var createdRaw, modifiedRaw []byte

	if err := scanner.Scan(&room.ID, &room.ProjectID, &room.Name, &room.NormalizedName,
		&room.IsHeadEnd, &createdRaw, &modifiedRaw); err != nil {
		return nil, err
	}

	room.CreatedDate = parseDateTime(createdRaw)
	room.LastModifiedDate = parseDateTime(modifiedRaw)

	return &room, nil
}

// FindByProject retrieves all rooms in a project ordered by name
func (r *RoomRepository) FindByProject(ctx context.Context, projectID string) ([]*models.Room, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s ASC",
		roomColumns, constants.TableRoom, constants.FieldProjectID, constants.FieldName)

	rows, err := r.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]*models.Room, 0)
	for rows.Next() {
		room, err := r.scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// FindByProjectWithAliasCounts retrieves rooms plus how many aliases each
// one has accumulated. Grouping by the primary key lets the remaining room
// columns ride along.
func (r *RoomRepository) FindByProjectWithAliasCounts(ctx context.Context, projectID string) ([]*models.Room, error) {
	q := query.From(constants.TableRoom).
		Select([]string{
			constants.FieldProjectID,
			constants.FieldName,
			constants.FieldNormalizedName,
			constants.FieldIsHeadEnd,
			constants.FieldCreatedDate,
			constants.FieldLastModifiedDate,
		}).
		AddSelectRaw("COUNT(`a`.`id`)", "alias_count").
		Join("LEFT", constants.TableRoomAlias, "a", "`a`.`room_id` = `rooms`.`id`").
		Where("`rooms`.`project_id` = ?", projectID).
		GroupBy(constants.FieldID).
		OrderBy(constants.FieldName, "ASC").
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]*models.Room, 0)
	for rows.Next() {
		var room models.Room
		var createdRaw, modifiedRaw []byte

		if err := rows.Scan(&room.ID, &room.ProjectID, &room.Name, &room.NormalizedName,
			&room.IsHeadEnd, &createdRaw, &modifiedRaw, &room.AliasCount); err != nil {
			return nil, err
		}

		room.CreatedDate = parseDateTime(createdRaw)
		room.LastModifiedDate = parseDateTime(modifiedRaw)
		rooms = append(rooms, &room)
	}
	return rooms, rows.Err()
}

// FindByID retrieves a room by ID, nil when missing
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		roomColumns, constants.TableRoom, constants.FieldID)

	room, err := r.scanRoom(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// FindByNormalizedName looks a room up by its normalized name within a
// project, nil when no room carries that form.
func (r *RoomRepository) FindByNormalizedName(ctx context.Context, projectID, normalized string) (*models.Room, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ? LIMIT 1",
		roomColumns, constants.TableRoom, constants.FieldProjectID, constants.FieldNormalizedName)

	room, err := r.scanRoom(r.db.QueryRowContext(ctx, q, projectID, normalized))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}

// NameConflict checks whether another room in the project already owns the
// normalized name. Pass an empty excludeID when creating.
func (r *RoomRepository) NameConflict(ctx context.Context, projectID, normalized, excludeID string) (bool, error) {
	var exists bool
	q := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ? AND %s = ? AND %s != ?)",
		constants.TableRoom, constants.FieldProjectID, constants.FieldNormalizedName, constants.FieldID)
	err := r.db.QueryRowContext(ctx, q, projectID, normalized, excludeID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Insert stores a new room
func (r *RoomRepository) Insert(ctx context.Context, room *models.Room) error {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?)",
		constants.TableRoom, roomColumns)

	_, err := r.db.ExecContext(ctx, q,
		room.ID, room.ProjectID, room.Name, room.NormalizedName,
		room.IsHeadEnd, room.CreatedDate, room.LastModifiedDate)
	return err
}

// Update applies field updates to a room
func (r *RoomRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
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
		constants.TableRoom, strings.Join(setClauses, ", "), constants.FieldID)
	args = append(args, id)

	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// Delete removes a room
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", constants.TableRoom, constants.FieldID)
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
