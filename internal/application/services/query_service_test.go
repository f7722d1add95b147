package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/internal/infrastructure/persistence"
	"github.com/voltfield/backend/pkg/auth"
	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/errors"
)

type fakeDropQuery struct {
	records   map[string]models.SObject
	items     []models.SObject
	total     int
	listOpts  *persistence.DropListOptions
	countOpts *persistence.DropListOptions
	updates   map[string]models.SObject
}

func newFakeDropQuery() *fakeDropQuery {
	return &fakeDropQuery{
		records: make(map[string]models.SObject),
		updates: make(map[string]models.SObject),
	}
}

func (f *fakeDropQuery) FindByID(ctx context.Context, id string) (models.SObject, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	out := models.SObject{}
	for k, v := range rec {
		out[k] = v
	}
	return out, nil
}

func (f *fakeDropQuery) List(ctx context.Context, projectID string, opts persistence.DropListOptions) ([]models.SObject, error) {
	f.listOpts = &opts
	return f.items, nil
}

func (f *fakeDropQuery) Count(ctx context.Context, projectID string, opts persistence.DropListOptions) (int, error) {
	f.countOpts = &opts
	return f.total, nil
}

func (f *fakeDropQuery) Update(ctx context.Context, id string, updates models.SObject) error {
	f.updates[id] = updates
	rec, ok := f.records[id]
	if !ok {
		return nil
	}
	for k, v := range updates {
		rec[k] = v
	}
	return nil
}

func (f *fakeDropQuery) NameExists(ctx context.Context, projectID, name, excludeID string) (bool, error) {
	for id, rec := range f.records {
		if id == excludeID {
			continue
		}
		if rec.GetString(constants.FieldProjectID) == projectID && rec.GetString(constants.FieldName) == name {
			return true, nil
		}
	}
	return false, nil
}

type queryFixture struct {
	svc   *QueryService
	drops *fakeDropQuery
	rooms *fakeRoomCatalog
}

func newQueryFixture() *queryFixture {
	drops := newFakeDropQuery()
	rooms := newFakeRoomCatalog(
		makeRoom("r-1", "Living Room"),
		makeRoom("r-2", "Master Bedroom"),
	)
	projects := &fakeProjectStore{ids: map[string]bool{"p-1": true}}

	return &queryFixture{
		svc:   NewQueryService(projects, drops, rooms, nil),
		drops: drops,
		rooms: rooms,
	}
}

func (fx *queryFixture) addDrop(id string, fields models.SObject) models.SObject {
	rec := models.SObject{
		constants.FieldID:        id,
		constants.FieldProjectID: "p-1",
	}
	for k, v := range fields {
		rec[k] = v
	}
	fx.drops.records[id] = rec
	return rec
}

func TestListDropsCompilesFilterExpression(t *testing.T) {
	fx := newQueryFixture()
	fx.drops.items = []models.SObject{{constants.FieldID: "d-1"}}
	fx.drops.total = 1

	page, err := fx.svc.ListDrops(context.Background(), "p-1", models.DropQueryOptions{
		FilterExpr: `category == "Speaker" && floor != "2"`,
	})

	require.NoError(t, err)
	require.NotNil(t, fx.drops.listOpts)
	assert.Contains(t, fx.drops.listOpts.FilterSQL, "`category` = ?")
	assert.Contains(t, fx.drops.listOpts.FilterSQL, "`floor` != ?")
	assert.Equal(t, []interface{}{"Speaker", "2"}, fx.drops.listOpts.FilterArgs)
	assert.Equal(t, 1, page.Total)
	assert.Len(t, page.Items, 1)
}

func TestListDropsRejectsBadFilter(t *testing.T) {
	fx := newQueryFixture()

	_, err := fx.svc.ListDrops(context.Background(), "p-1", models.DropQueryOptions{
		FilterExpr: `secret == "x"`,
	})

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "secret")
	assert.Nil(t, fx.drops.listOpts)
}

func TestListDropsSearchAsComparison(t *testing.T) {
	fx := newQueryFixture()

	_, err := fx.svc.ListDrops(context.Background(), "p-1", models.DropQueryOptions{
		Search: "category=Speaker",
	})

	require.NoError(t, err)
	require.NotNil(t, fx.drops.listOpts)
	assert.Equal(t, "`wire_drops`.`category` = ?", fx.drops.listOpts.FilterSQL)
	assert.Equal(t, []interface{}{"Speaker"}, fx.drops.listOpts.FilterArgs)
}

func TestListDropsSearchAsSubstring(t *testing.T) {
	fx := newQueryFixture()

	_, err := fx.svc.ListDrops(context.Background(), "p-1", models.DropQueryOptions{
		Search: "panel",
	})

	require.NoError(t, err)
	require.NotNil(t, fx.drops.listOpts)
	assert.Contains(t, fx.drops.listOpts.FilterSQL, "LIKE ?")
	assert.Contains(t, fx.drops.listOpts.FilterSQL, constants.FieldInstallNote)
	require.NotEmpty(t, fx.drops.listOpts.FilterArgs)
	assert.Equal(t, "%panel%", fx.drops.listOpts.FilterArgs[0])
}

func TestListDropsSearchUnknownFieldFallsBackToSubstring(t *testing.T) {
	fx := newQueryFixture()

	_, err := fx.svc.ListDrops(context.Background(), "p-1", models.DropQueryOptions{
		Search: "secret=1",
	})

	require.NoError(t, err)
	require.NotNil(t, fx.drops.listOpts)
	assert.Contains(t, fx.drops.listOpts.FilterSQL, "LIKE ?")
	assert.Equal(t, "%secret=1%", fx.drops.listOpts.FilterArgs[0])
}

func TestListDropsIgnoresWildcardSearch(t *testing.T) {
	fx := newQueryFixture()

	_, err := fx.svc.ListDrops(context.Background(), "p-1", models.DropQueryOptions{
		Search: " * ",
	})

	require.NoError(t, err)
	require.NotNil(t, fx.drops.listOpts)
	assert.Empty(t, fx.drops.listOpts.FilterSQL)
}

func TestListDropsCombinesFilterAndSearch(t *testing.T) {
	fx := newQueryFixture()

	_, err := fx.svc.ListDrops(context.Background(), "p-1", models.DropQueryOptions{
		FilterExpr: `category == "Speaker"`,
		Search:     "room_name=Living Room",
		RoomName:   "Living Room",
		Category:   "Speaker",
	})

	require.NoError(t, err)
	require.NotNil(t, fx.drops.listOpts)
	assert.Contains(t, fx.drops.listOpts.FilterSQL, " AND ")
	assert.Equal(t, []interface{}{"Speaker", "Living Room"}, fx.drops.listOpts.FilterArgs)
	assert.Equal(t, "Living Room", fx.drops.listOpts.RoomName)
	assert.Equal(t, "Speaker", fx.drops.listOpts.Category)
}

func TestListDropsNormalizesPaging(t *testing.T) {
	fx := newQueryFixture()
	fx.drops.total = 7

	page, err := fx.svc.ListDrops(context.Background(), "p-1", models.DropQueryOptions{
		Limit:  -5,
		Offset: -3,
	})

	require.NoError(t, err)
	assert.Equal(t, constants.DefaultListLimit, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, 7, page.Total)

	page, err = fx.svc.ListDrops(context.Background(), "p-1", models.DropQueryOptions{
		Limit: 9999,
	})

	require.NoError(t, err)
	assert.Equal(t, constants.MaxListLimit, page.Limit)
}

func TestListDropsUnknownProject(t *testing.T) {
	fx := newQueryFixture()

	_, err := fx.svc.ListDrops(context.Background(), "p-404", models.DropQueryOptions{})

	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGetDropScope(t *testing.T) {
	fx := newQueryFixture()
	fx.addDrop("d-1", models.SObject{constants.FieldName: "Living Room - Speaker 1"})
	fx.drops.records["d-other"] = models.SObject{
		constants.FieldID:        "d-other",
		constants.FieldProjectID: "p-2",
	}

	rec, err := fx.svc.GetDrop(context.Background(), "p-1", "d-1")
	require.NoError(t, err)
	assert.Equal(t, "Living Room - Speaker 1", rec.GetString(constants.FieldName))

	_, err = fx.svc.GetDrop(context.Background(), "p-1", "d-404")
	assert.True(t, errors.IsNotFound(err))

	_, err = fx.svc.GetDrop(context.Background(), "p-1", "d-other")
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateDropEditsFields(t *testing.T) {
	fx := newQueryFixture()
	fx.addDrop("d-1", models.SObject{
		constants.FieldName:     "Living Room - Speaker 1",
		constants.FieldRoomID:   "r-1",
		constants.FieldRoomName: "Living Room",
		constants.FieldCategory: "Speaker",
	})
	user := &auth.UserSession{ID: "u-1", Name: "Dana"}

	rec, err := fx.svc.UpdateDrop(context.Background(), "p-1", "d-1", models.SObject{
		constants.FieldWireType:    "14/2",
		constants.FieldInstallNote: "Behind panel",
	}, user)

	require.NoError(t, err)
	changes := fx.drops.updates["d-1"]
	require.NotNil(t, changes)
	assert.Equal(t, "14/2", changes[constants.FieldWireType])
	assert.Equal(t, "u-1", changes[constants.FieldLastModifiedByID])
	assert.Contains(t, changes, constants.FieldLastModifiedDate)
	assert.NotContains(t, changes, constants.FieldName)
	assert.Equal(t, "14/2", rec.GetString(constants.FieldWireType))
	assert.Equal(t, "Living Room - Speaker 1", rec.GetString(constants.FieldName))
}

func TestUpdateDropRejectsProtectedFields(t *testing.T) {
	fx := newQueryFixture()
	fx.addDrop("d-1", models.SObject{constants.FieldName: "Living Room - Speaker 1"})

	for _, field := range []string{constants.FieldName, constants.FieldExternalShapeID, constants.FieldID, constants.FieldSyncedAt} {
		_, err := fx.svc.UpdateDrop(context.Background(), "p-1", "d-1", models.SObject{field: "x"}, nil)
		require.Error(t, err, field)
		assert.True(t, errors.IsValidation(err), field)
		assert.Contains(t, err.Error(), field)
	}

	_, err := fx.svc.UpdateDrop(context.Background(), "p-1", "d-1", models.SObject{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestUpdateDropRoomChangeRenames(t *testing.T) {
	fx := newQueryFixture()
	fx.addDrop("d-1", models.SObject{
		constants.FieldName:     "Living Room - Speaker 1",
		constants.FieldRoomID:   "r-1",
		constants.FieldRoomName: "Living Room",
		constants.FieldCategory: "Speaker",
	})

	rec, err := fx.svc.UpdateDrop(context.Background(), "p-1", "d-1", models.SObject{
		constants.FieldRoomID: "r-2",
	}, nil)

	require.NoError(t, err)
	changes := fx.drops.updates["d-1"]
	assert.Equal(t, "r-2", changes[constants.FieldRoomID])
	assert.Equal(t, "Master Bedroom", changes[constants.FieldRoomName])
	assert.Equal(t, "Master Bedroom - Speaker 1", changes[constants.FieldName])
	assert.Equal(t, "Master Bedroom - Speaker 1", rec.GetString(constants.FieldName))
}

func TestUpdateDropCategoryChangeRenames(t *testing.T) {
	fx := newQueryFixture()
	fx.addDrop("d-1", models.SObject{
		constants.FieldName:     "Living Room - Speaker 1",
		constants.FieldRoomName: "Living Room",
		constants.FieldCategory: "Speaker",
	})
	fx.addDrop("d-2", models.SObject{
		constants.FieldName:     "Living Room - Keypad 1",
		constants.FieldRoomName: "Living Room",
		constants.FieldCategory: "Keypad",
	})

	_, err := fx.svc.UpdateDrop(context.Background(), "p-1", "d-1", models.SObject{
		constants.FieldCategory: "Keypad",
	}, nil)

	require.NoError(t, err)
	changes := fx.drops.updates["d-1"]
	assert.Equal(t, "Living Room - Keypad 2", changes[constants.FieldName])
}

func TestUpdateDropRoomNameDetachesLink(t *testing.T) {
	fx := newQueryFixture()
	fx.addDrop("d-1", models.SObject{
		constants.FieldName:     "Living Room - Speaker 1",
		constants.FieldRoomID:   "r-1",
		constants.FieldRoomName: "Living Room",
		constants.FieldCategory: "Speaker",
	})

	_, err := fx.svc.UpdateDrop(context.Background(), "p-1", "d-1", models.SObject{
		constants.FieldRoomName: "Wine Cellar",
	}, nil)

	require.NoError(t, err)
	changes := fx.drops.updates["d-1"]
	require.Contains(t, changes, constants.FieldRoomID)
	assert.Nil(t, changes[constants.FieldRoomID])
	assert.Equal(t, "Wine Cellar - Speaker 1", changes[constants.FieldName])
}

func TestUpdateDropClearRoomKeepsName(t *testing.T) {
	fx := newQueryFixture()
	fx.addDrop("d-1", models.SObject{
		constants.FieldName:     "Living Room - Speaker 1",
		constants.FieldRoomID:   "r-1",
		constants.FieldRoomName: "Living Room",
		constants.FieldCategory: "Speaker",
	})

	_, err := fx.svc.UpdateDrop(context.Background(), "p-1", "d-1", models.SObject{
		constants.FieldRoomID: nil,
	}, nil)

	require.NoError(t, err)
	changes := fx.drops.updates["d-1"]
	require.Contains(t, changes, constants.FieldRoomID)
	assert.Nil(t, changes[constants.FieldRoomID])
	assert.NotContains(t, changes, constants.FieldName)
}

func TestUpdateDropUnknownRoom(t *testing.T) {
	fx := newQueryFixture()
	fx.addDrop("d-1", models.SObject{constants.FieldCategory: "Speaker"})
	fx.rooms.add(&models.Room{ID: "r-9", ProjectID: "p-2", Name: "Elsewhere"})

	_, err := fx.svc.UpdateDrop(context.Background(), "p-1", "d-1", models.SObject{
		constants.FieldRoomID: "r-404",
	}, nil)
	assert.True(t, errors.IsNotFound(err))

	_, err = fx.svc.UpdateDrop(context.Background(), "p-1", "d-1", models.SObject{
		constants.FieldRoomID: "r-9",
	}, nil)
	assert.True(t, errors.IsNotFound(err))
}

func TestExecuteReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fx := newQueryFixture()
	svc := NewQueryService(&fakeProjectStore{ids: map[string]bool{"p-1": true}}, fx.drops, fx.rooms, db)

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow("d-1", "Living Room - Speaker 1").
			AddRow("d-2", "Living Room - Speaker 2"))

	result, err := svc.ExecuteReport(context.Background(), "SELECT id, name FROM wire_drops")

	require.NoError(t, err)
	assert.Contains(t, result.SQL, "LIMIT 1000")
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "Living Room - Speaker 1", result.Rows[0].GetString(constants.FieldName))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteReportRejectsWrites(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fx := newQueryFixture()
	svc := NewQueryService(&fakeProjectStore{ids: map[string]bool{"p-1": true}}, fx.drops, fx.rooms, db)

	_, err = svc.ExecuteReport(context.Background(), "DELETE FROM wire_drops")

	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
