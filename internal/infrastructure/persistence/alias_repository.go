package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/pkg/constants"
)

type RoomAliasRepository struct {
	db *sql.DB
}

func NewRoomAliasRepository(db *sql.DB) *RoomAliasRepository {
	return &RoomAliasRepository{db: db}
}

const aliasColumns = "id, project_id, room_id, alias, normalized_alias, created_date"

func (r *RoomAliasRepository) scanAlias(scanner rowScanner) (*models.RoomAlias, error) {
	var a models.RoomAlias
	var createdRaw []byte

	if err := scanner.Scan(&a.ID, &a.ProjectID, &a.RoomID, &a.Alias, &a.NormalizedAlias, &createdRaw); err != nil {
		return nil, err
	}

	a.CreatedDate = parseDateTime(createdRaw)
	return &a, nil
}

// FindByProject retrieves every alias in a project
func (r *RoomAliasRepository) FindByProject(ctx context.Context, projectID string) ([]*models.RoomAlias, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s ASC",
		aliasColumns, constants.TableRoomAlias, constants.FieldProjectID, constants.FieldAlias)

	rows, err := r.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aliases := make([]*models.RoomAlias, 0)
	for rows.Next() {
		a, err := r.scanAlias(rows)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

// FindByRoom retrieves the aliases mapped to one room
func (r *RoomAliasRepository) FindByRoom(ctx context.Context, roomID string) ([]*models.RoomAlias, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s ASC",
		aliasColumns, constants.TableRoomAlias, constants.FieldRoomID, constants.FieldAlias)

	rows, err := r.db.QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aliases := make([]*models.RoomAlias, 0)
	for rows.Next() {
		a, err := r.scanAlias(rows)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

// UpsertBatch stores aliases in one statement. A normalized form already
// known to the project is re-pointed at the new room and raw spelling
// instead of erroring, which keeps repeated imports quiet.
func (r *RoomAliasRepository) UpsertBatch(ctx context.Context, aliases []*models.RoomAlias) error {
	if len(aliases) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(aliases))
	args := make([]interface{}, 0, len(aliases)*6)
	for _, a := range aliases {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?)")
		args = append(args, a.ID, a.ProjectID, a.RoomID, a.Alias, a.NormalizedAlias, a.CreatedDate)
	}

	q := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON DUPLICATE KEY UPDATE %s = VALUES(%s), %s = VALUES(%s)",
		constants.TableRoomAlias, aliasColumns, strings.Join(placeholders, ", "),
		constants.FieldRoomID, constants.FieldRoomID,
		constants.FieldAlias, constants.FieldAlias)

	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// Delete removes a single alias
func (r *RoomAliasRepository) Delete(ctx context.Context, id string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", constants.TableRoomAlias, constants.FieldID)
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// DeleteByRoom removes all aliases mapped to a room, used when the room
// itself is deleted.
func (r *RoomAliasRepository) DeleteByRoom(ctx context.Context, roomID string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", constants.TableRoomAlias, constants.FieldRoomID)
	_, err := r.db.ExecContext(ctx, q, roomID)
	return err
}
