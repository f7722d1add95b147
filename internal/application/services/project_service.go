package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/errors"
	"github.com/voltfield/backend/pkg/utils"
)

type projectCatalogStore interface {
	FindAll(ctx context.Context) ([]*models.Project, error)
	FindByID(ctx context.Context, id string) (*models.Project, error)
	Insert(ctx context.Context, p *models.Project) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
}

// ProjectService manages the project catalog.
type ProjectService struct {
	projects projectCatalogStore
}

// NewProjectService creates a new ProjectService
func NewProjectService(projects projectCatalogStore) *ProjectService {
	return &ProjectService{projects: projects}
}

// List returns every project, newest first.
func (s *ProjectService) List(ctx context.Context) ([]*models.Project, error) {
	return s.projects.FindAll(ctx)
}

// Get loads one project.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return nil, errors.NewNotFoundError("project", id)
	}
	return project, nil
}

// Create adds a project to the catalog.
func (s *ProjectService) Create(ctx context.Context, name, clientName string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewValidationError("name", "project name is required")
	}

	now := time.Now()
	project := &models.Project{
		ID:               utils.GenerateID(),
		Name:             name,
		Status:           models.ProjectStatusActive,
		CreatedDate:      now,
		LastModifiedDate: now,
	}
	if clientName = strings.TrimSpace(clientName); clientName != "" {
		project.ClientName = &clientName
	}

	if err := s.projects.Insert(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	log.Printf("✅ Created project %q (%s)", project.Name, project.ID)

	return project, nil
}

// Archive marks a project archived. Archived projects keep their data
// but drop out of the active list on the client.
func (s *ProjectService) Archive(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Status == models.ProjectStatusArchived {
		return project, nil
	}

	updates := map[string]interface{}{
		constants.FieldStatus:           models.ProjectStatusArchived,
		constants.FieldLastModifiedDate: time.Now(),
	}
	if err := s.projects.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("failed to archive project: %w", err)
	}

	log.Printf("📦 Archived project %q (%s)", project.Name, project.ID)

	project.Status = models.ProjectStatusArchived
	return project, nil
}
