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

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = "id, name, status, client_name, created_date, last_modified_date"

func (r *ProjectRepository) scanProject(scanner rowScanner) (*models.Project, error) {
	var p models.Project
	var clientName sql.NullString
	var createdRaw, modifiedRaw []byte

	if err := scanner.Scan(&p.ID, &p.Name, &p.Status, &clientName, &createdRaw, &modifiedRaw); err != nil {
		return nil, err
	}

	if clientName.Valid {
		p.ClientName = &clientName.String
	}
	p.CreatedDate = parseDateTime(createdRaw)
	p.LastModifiedDate = parseDateTime(modifiedRaw)

	return &p, nil
}

// FindAll retrieves all projects, newest first
func (r *ProjectRepository) FindAll(ctx context.Context) ([]*models.Project, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s DESC",
		projectColumns, constants.TableProject, constants.FieldCreatedDate)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]*models.Project, 0)
	for rows.Next() {
		p, err := r.scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// FindByID retrieves a project by ID, nil when missing
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		projectColumns, constants.TableProject, constants.FieldID)

	p, err := r.scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// Exists checks if a project exists by ID
func (r *ProjectRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", constants.TableProject, constants.FieldID)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Insert stores a new project
func (r *ProjectRepository) Insert(ctx context.Context, p *models.Project) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?)",
		constants.TableProject, projectColumns)

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Status, p.ClientName, p.CreatedDate, p.LastModifiedDate)
	return err
}

// Update applies field updates to a project
func (r *ProjectRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
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

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		constants.TableProject, strings.Join(setClauses, ", "), constants.FieldID)
	args = append(args, id)

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}
