package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/errors"
)

type fakeProjectCatalog struct {
	projects map[string]*models.Project
	order    []string
	updates  map[string]map[string]interface{}
}

func newFakeProjectCatalog(projects ...*models.Project) *fakeProjectCatalog {
	f := &fakeProjectCatalog{
		projects: make(map[string]*models.Project),
		updates:  make(map[string]map[string]interface{}),
	}
	for _, p := range projects {
		f.projects[p.ID] = p
		f.order = append(f.order, p.ID)
	}
	return f
}

func (f *fakeProjectCatalog) FindAll(ctx context.Context) ([]*models.Project, error) {
	out := make([]*models.Project, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.projects[id])
	}
	return out, nil
}

func (f *fakeProjectCatalog) FindByID(ctx context.Context, id string) (*models.Project, error) {
	return f.projects[id], nil
}

func (f *fakeProjectCatalog) Insert(ctx context.Context, p *models.Project) error {
	f.projects[p.ID] = p
	f.order = append(f.order, p.ID)
	return nil
}

func (f *fakeProjectCatalog) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	f.updates[id] = updates
	return nil
}

func TestCreateProject(t *testing.T) {
	store := newFakeProjectCatalog()
	svc := NewProjectService(store)

	project, err := svc.Create(context.Background(), "  Hillside Estate  ", " Meridian AV ")

	require.NoError(t, err)
	assert.Equal(t, "Hillside Estate", project.Name)
	assert.Equal(t, models.ProjectStatusActive, project.Status)
	require.NotNil(t, project.ClientName)
	assert.Equal(t, "Meridian AV", *project.ClientName)
	assert.NotEmpty(t, project.ID)
	assert.Contains(t, store.projects, project.ID)
}

func TestCreateProjectWithoutClient(t *testing.T) {
	svc := NewProjectService(newFakeProjectCatalog())

	project, err := svc.Create(context.Background(), "Hillside Estate", "   ")

	require.NoError(t, err)
	assert.Nil(t, project.ClientName)
}

func TestCreateProjectRequiresName(t *testing.T) {
	svc := NewProjectService(newFakeProjectCatalog())

	_, err := svc.Create(context.Background(), "   ", "")

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestGetProject(t *testing.T) {
	store := newFakeProjectCatalog(&models.Project{ID: "p-1", Name: "Hillside Estate", Status: models.ProjectStatusActive})
	svc := NewProjectService(store)

	project, err := svc.Get(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Hillside Estate", project.Name)

	_, err = svc.Get(context.Background(), "p-404")
	assert.True(t, errors.IsNotFound(err))
}

func TestArchiveProject(t *testing.T) {
	store := newFakeProjectCatalog(&models.Project{ID: "p-1", Name: "Hillside Estate", Status: models.ProjectStatusActive})
	svc := NewProjectService(store)

	project, err := svc.Archive(context.Background(), "p-1")

	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusArchived, project.Status)
	changes := store.updates["p-1"]
	require.NotNil(t, changes)
	assert.Equal(t, models.ProjectStatusArchived, changes[constants.FieldStatus])
	assert.Contains(t, changes, constants.FieldLastModifiedDate)
}

func TestArchiveProjectIsIdempotent(t *testing.T) {
	store := newFakeProjectCatalog(&models.Project{ID: "p-1", Name: "Hillside Estate", Status: models.ProjectStatusArchived})
	svc := NewProjectService(store)

	project, err := svc.Archive(context.Background(), "p-1")

	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusArchived, project.Status)
	assert.NotContains(t, store.updates, "p-1")
}
