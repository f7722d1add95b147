package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/internal/infrastructure/diagram"
	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/errors"
)

type fakeDocumentCatalog struct {
	docs    map[string]*models.Document
	order   []string
	updates map[string]map[string]interface{}
}

func newFakeDocumentCatalog(docs ...*models.Document) *fakeDocumentCatalog {
	f := &fakeDocumentCatalog{
		docs:    make(map[string]*models.Document),
		updates: make(map[string]map[string]interface{}),
	}
	for _, d := range docs {
		f.docs[d.ID] = d
		f.order = append(f.order, d.ID)
	}
	return f
}

func (f *fakeDocumentCatalog) FindByID(ctx context.Context, id string) (*models.Document, error) {
	return f.docs[id], nil
}

func (f *fakeDocumentCatalog) FindByProject(ctx context.Context, projectID string) ([]*models.Document, error) {
	var out []*models.Document
	for _, id := range f.order {
		if f.docs[id].ProjectID == projectID {
			out = append(out, f.docs[id])
		}
	}
	return out, nil
}

func (f *fakeDocumentCatalog) Insert(ctx context.Context, d *models.Document) error {
	f.docs[d.ID] = d
	f.order = append(f.order, d.ID)
	return nil
}

func (f *fakeDocumentCatalog) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	f.updates[id] = updates
	return nil
}

type documentFixture struct {
	svc    *DocumentService
	docs   *fakeDocumentCatalog
	source *fakeDiagramSource
}

func newDocumentFixture() *documentFixture {
	docs := newFakeDocumentCatalog()
	source := &fakeDiagramSource{contents: &diagram.DocumentContents{
		DocumentID: "ext-9",
		Title:      "Main Floor Plan",
		Pages:      []diagram.Page{{ID: "pg-1", Title: "First Floor"}},
	}}
	projects := &fakeProjectStore{ids: map[string]bool{"p-1": true}}

	return &documentFixture{
		svc:    NewDocumentService(projects, docs, source),
		docs:   docs,
		source: source,
	}
}

func TestLinkDocument(t *testing.T) {
	fx := newDocumentFixture()

	doc, err := fx.svc.Link(context.Background(), "p-1", " ext-9 ", "", true, "*/15 * * * *")

	require.NoError(t, err)
	assert.Equal(t, "ext-9", doc.ExternalDocumentID)
	assert.Equal(t, "Main Floor Plan", doc.Title)
	assert.True(t, doc.AutoSync)
	require.NotNil(t, doc.SyncSchedule)
	assert.Equal(t, "*/15 * * * *", *doc.SyncSchedule)
	assert.Equal(t, 1, fx.source.calls)
	assert.Contains(t, fx.docs.docs, doc.ID)
}

func TestLinkDocumentKeepsCallerTitle(t *testing.T) {
	fx := newDocumentFixture()

	doc, err := fx.svc.Link(context.Background(), "p-1", "ext-9", "Rack Elevations", false, "")

	require.NoError(t, err)
	assert.Equal(t, "Rack Elevations", doc.Title)
	assert.Nil(t, doc.SyncSchedule)
	assert.False(t, doc.AutoSync)
}

func TestLinkDocumentRejectsDuplicate(t *testing.T) {
	fx := newDocumentFixture()

	_, err := fx.svc.Link(context.Background(), "p-1", "ext-9", "", false, "")
	require.NoError(t, err)

	_, err = fx.svc.Link(context.Background(), "p-1", "ext-9", "", false, "")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestLinkDocumentValidation(t *testing.T) {
	fx := newDocumentFixture()

	_, err := fx.svc.Link(context.Background(), "p-1", "   ", "", false, "")
	assert.True(t, errors.IsValidation(err))

	_, err = fx.svc.Link(context.Background(), "p-1", "ext-9", "", false, "every tuesday")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = fx.svc.Link(context.Background(), "p-404", "ext-9", "", false, "")
	assert.True(t, errors.IsNotFound(err))
}

func TestLinkDocumentFetchFailure(t *testing.T) {
	fx := newDocumentFixture()
	fx.source.err = errors.NewUpstreamError("diagram", 502, "bad gateway")

	_, err := fx.svc.Link(context.Background(), "p-1", "ext-9", "", false, "")

	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
	assert.Empty(t, fx.docs.docs)
}

func TestListDocuments(t *testing.T) {
	fx := newDocumentFixture()
	fx.docs.Insert(context.Background(), &models.Document{ID: "d-1", ProjectID: "p-1", Title: "Plan A"})
	fx.docs.Insert(context.Background(), &models.Document{ID: "d-2", ProjectID: "p-2", Title: "Other"})

	docs, err := fx.svc.List(context.Background(), "p-1")

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d-1", docs[0].ID)

	_, err = fx.svc.List(context.Background(), "p-404")
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateDocumentSettings(t *testing.T) {
	fx := newDocumentFixture()
	fx.docs.Insert(context.Background(), &models.Document{ID: "d-1", ProjectID: "p-1", Title: "Plan A"})

	_, err := fx.svc.UpdateSettings(context.Background(), "p-1", "d-1", models.SObject{
		constants.FieldTitle:        " Plan B ",
		constants.FieldAutoSync:     true,
		constants.FieldSyncSchedule: "0 */2 * * *",
	})

	require.NoError(t, err)
	changes := fx.docs.updates["d-1"]
	require.NotNil(t, changes)
	assert.Equal(t, "Plan B", changes[constants.FieldTitle])
	assert.Equal(t, true, changes[constants.FieldAutoSync])
	assert.Equal(t, "0 */2 * * *", changes[constants.FieldSyncSchedule])
	assert.Contains(t, changes, constants.FieldLastModifiedDate)
}

func TestUpdateDocumentSettingsClearsSchedule(t *testing.T) {
	fx := newDocumentFixture()
	schedule := "0 * * * *"
	fx.docs.Insert(context.Background(), &models.Document{ID: "d-1", ProjectID: "p-1", SyncSchedule: &schedule})

	_, err := fx.svc.UpdateSettings(context.Background(), "p-1", "d-1", models.SObject{
		constants.FieldSyncSchedule: "",
	})

	require.NoError(t, err)
	changes := fx.docs.updates["d-1"]
	require.Contains(t, changes, constants.FieldSyncSchedule)
	assert.Nil(t, changes[constants.FieldSyncSchedule])
}

func TestUpdateDocumentSettingsValidation(t *testing.T) {
	fx := newDocumentFixture()
	fx.docs.Insert(context.Background(), &models.Document{ID: "d-1", ProjectID: "p-1"})
	fx.docs.Insert(context.Background(), &models.Document{ID: "d-2", ProjectID: "p-2"})

	_, err := fx.svc.UpdateSettings(context.Background(), "p-1", "d-1", models.SObject{})
	assert.True(t, errors.IsValidation(err))

	_, err = fx.svc.UpdateSettings(context.Background(), "p-1", "d-1", models.SObject{"is_syncing": true})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = fx.svc.UpdateSettings(context.Background(), "p-1", "d-1", models.SObject{constants.FieldTitle: "  "})
	assert.True(t, errors.IsValidation(err))

	_, err = fx.svc.UpdateSettings(context.Background(), "p-1", "d-2", models.SObject{constants.FieldAutoSync: true})
	assert.True(t, errors.IsNotFound(err))

	_, err = fx.svc.UpdateSettings(context.Background(), "p-404", "d-1", models.SObject{constants.FieldAutoSync: true})
	assert.True(t, errors.IsNotFound(err))
}
