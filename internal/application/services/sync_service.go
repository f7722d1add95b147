package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/internal/infrastructure/cache"
	"github.com/voltfield/backend/internal/infrastructure/diagram"
	"github.com/voltfield/backend/pkg/auth"
	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/errors"
	"github.com/voltfield/backend/pkg/matching"
	"github.com/voltfield/backend/pkg/utils"
)

// Store slices consumed by the analysis and sync services. Declared on
// the consumer side so tests can swap in fakes without a database.
type projectStore interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type documentStore interface {
	FindByID(ctx context.Context, id string) (*models.Document, error)
	TryAcquireSyncLock(ctx context.Context, id string, staleAfter time.Duration) (bool, error)
	ReleaseSyncLock(ctx context.Context, id string) error
	MarkSynced(ctx context.Context, id string, at time.Time) error
}

type roomStore interface {
	FindByProject(ctx context.Context, projectID string) ([]*models.Room, error)
}

type aliasStore interface {
	FindByProject(ctx context.Context, projectID string) ([]*models.RoomAlias, error)
	UpsertBatch(ctx context.Context, aliases []*models.RoomAlias) error
}

type dropStore interface {
	FindByShapeIDs(ctx context.Context, projectID string, shapeIDs []string) (map[string]models.SObject, error)
	Insert(ctx context.Context, record models.SObject) error
	Update(ctx context.Context, id string, updates models.SObject) error
	NameExists(ctx context.Context, projectID, name, excludeID string) (bool, error)
	HasGeometryColumns(ctx context.Context) (bool, error)
}

type syncLogStore interface {
	Insert(ctx context.Context, entry *models.SyncLog) error
	FindByDocument(ctx context.Context, documentID string, limit int) ([]*models.SyncLog, error)
}

type diagramSource interface {
	GetDocumentContents(ctx context.Context, externalDocumentID string) (*diagram.DocumentContents, error)
}

// SyncService is the reconciliation engine. It converts a batch of
// diagram shapes into wire drop creates and updates, keyed on the
// external shape id, without ever duplicating a shape link or a name
// and without wiping previously entered data.
type SyncService struct {
	projects  projectStore
	documents documentStore
	rooms     roomStore
	aliases   aliasStore
	drops     dropStore
	syncLogs  syncLogStore
	diagram   diagramSource
	snapshots *cache.SnapshotStore

	extractor *ShapeExtractService
	resolver  *RoomResolverService
	names     *DropNameService

	// Name generation reads a count and then inserts, so concurrent
	// batches for one project could race to the same name. The whole
	// batch runs under its project's mutex.
	mu           sync.Mutex
	projectLocks map[string]*sync.Mutex
}

// NewSyncService creates a new SyncService
func NewSyncService(
	projects projectStore,
	documents documentStore,
	rooms roomStore,
	aliases aliasStore,
	drops dropStore,
	syncLogs syncLogStore,
	diagramClient diagramSource,
	snapshots *cache.SnapshotStore,
) *SyncService {
	return &SyncService{
		projects:     projects,
		documents:    documents,
		rooms:        rooms,
		aliases:      aliases,
		drops:        drops,
		syncLogs:     syncLogs,
		diagram:      diagramClient,
		snapshots:    snapshots,
		extractor:    NewShapeExtractService(),
		resolver:     NewRoomResolverService(),
		names:        NewDropNameService(drops),
		projectLocks: make(map[string]*sync.Mutex),
	}
}

func (s *SyncService) projectLock(projectID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.projectLocks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		s.projectLocks[projectID] = lock
	}
	return lock
}

// Sync runs one reconciliation batch for a document. shapeIDs narrows the
// batch to a selection; empty means every droppable shape. The document's
// DB-level sync lock rejects overlapping runs across instances, on top of
// the in-process per-project mutex.
func (s *SyncService) Sync(ctx context.Context, projectID, documentID string, shapeIDs []string, triggeredBy string, user *auth.UserSession) (*models.SyncResult, error) {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	exists, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check project: %w", err)
	}
	if !exists {
		return nil, errors.NewNotFoundError("project", projectID)
	}

	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil || doc.ProjectID != projectID {
		return nil, errors.NewNotFoundError("document", documentID)
	}

	acquired, err := s.documents.TryAcquireSyncLock(ctx, documentID, constants.SyncMaxRuntimeMins*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		return nil, errors.NewConflictError("document", "sync", documentID)
	}

	completed := false
	defer func() {
		if !completed {
			if err := s.documents.ReleaseSyncLock(context.Background(), documentID); err != nil {
				log.Printf("⚠️ Failed to release sync lock for document %s: %v", documentID, err)
			}
		}
	}()

	started := time.Now()
	log.Printf("🔄 Sync started for document %s (project %s, trigger: %s)", documentID, projectID, triggeredBy)

	contents, err := s.diagram.GetDocumentContents(ctx, doc.ExternalDocumentID)
	if err != nil {
		return nil, err
	}

	roomList, err := s.rooms.FindByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rooms: %w", err)
	}
	aliasList, err := s.aliases.FindByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load aliases: %w", err)
	}
	index := s.resolver.BuildIndex(roomList, aliasList)

	selected := s.collectDroppable(contents, shapeIDs)
	if len(selected) == 0 {
		return nil, errors.NewValidationError("shape_ids", "no droppable shapes selected")
	}

	ids := make([]string, len(selected))
	for i, shape := range selected {
		ids[i] = shape.ShapeID
	}
	existing, err := s.drops.FindByShapeIDs(ctx, projectID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing drops: %w", err)
	}

	hasGeometry, err := s.drops.HasGeometryColumns(ctx)
	if err != nil {
		log.Printf("⚠️ Geometry capability probe failed, skipping geometry fields: %v", err)
		hasGeometry = false
	}

	createdCount, updatedCount := 0, 0
	var shapeErrors []string
	aliasCandidates := make(map[string]*models.RoomAlias)

	for _, shape := range selected {
		if ctx.Err() != nil {
			shapeErrors = append(shapeErrors, fmt.Sprintf("shape %s: %v", shape.ShapeID, ctx.Err()))
			break
		}

		wasCreate, err := s.reconcileShape(ctx, projectID, shape, index, existing, hasGeometry, user, aliasCandidates)
		if err != nil {
			shapeErrors = append(shapeErrors, fmt.Sprintf("shape %s: %v", shape.ShapeID, err))
			continue
		}
		if wasCreate {
			createdCount++
		} else {
			updatedCount++
		}
	}

	discovered := 0
	if len(aliasCandidates) > 0 {
		batch := make([]*models.RoomAlias, 0, len(aliasCandidates))
		for _, candidate := range aliasCandidates {
			batch = append(batch, candidate)
		}
		sort.Slice(batch, func(i, j int) bool { return batch[i].NormalizedAlias < batch[j].NormalizedAlias })

		if err := s.aliases.UpsertBatch(ctx, batch); err != nil {
			log.Printf("⚠️ Failed to persist %d discovered aliases: %v", len(batch), err)
		} else {
			discovered = len(batch)
		}
	}

	syncedAt := time.Now()
	result := &models.SyncResult{
		Created:           createdCount,
		Updated:           updatedCount,
		Total:             len(selected),
		Errors:            shapeErrors,
		AliasesDiscovered: discovered,
		DurationMs:        syncedAt.Sub(started).Milliseconds(),
		SyncedAt:          syncedAt,
		TriggeredBy:       triggeredBy,
	}

	entry := &models.SyncLog{
		ID:                utils.GenerateID(),
		ProjectID:         projectID,
		DocumentID:        documentID,
		CreatedCount:      result.Created,
		UpdatedCount:      result.Updated,
		ErrorCount:        len(result.Errors),
		TotalCount:        result.Total,
		AliasesDiscovered: discovered,
		Errors:            result.Errors,
		DurationMs:        result.DurationMs,
		TriggeredBy:       triggeredBy,
		CreatedDate:       syncedAt,
	}
	if err := s.syncLogs.Insert(ctx, entry); err != nil {
		log.Printf("⚠️ Failed to write sync log for document %s: %v", documentID, err)
	}

	if err := s.snapshots.StoreLastSync(ctx, projectID, documentID, result); err != nil {
		log.Printf("⚠️ Failed to cache sync result: %v", err)
	}
	if err := s.snapshots.InvalidateAnalysis(ctx, projectID, documentID); err != nil {
		log.Printf("⚠️ Failed to invalidate analysis snapshot: %v", err)
	}

	if err := s.documents.MarkSynced(ctx, documentID, syncedAt); err != nil {
		log.Printf("⚠️ Failed to mark document %s synced: %v", documentID, err)
	} else {
		completed = true
	}

	log.Printf("📦 Sync finished for document %s: %d created, %d updated, %d errors in %dms",
		documentID, result.Created, result.Updated, len(result.Errors), result.DurationMs)
	return result, nil
}

// Status reports the last cached sync result plus recent persisted runs
func (s *SyncService) Status(ctx context.Context, projectID, documentID string, limit int) (*models.SyncStatus, error) {
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil || doc.ProjectID != projectID {
		return nil, errors.NewNotFoundError("document", documentID)
	}

	if limit <= 0 {
		limit = 10
	}
	history, err := s.syncLogs.FindByDocument(ctx, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync history: %w", err)
	}

	last, err := s.snapshots.GetLastSync(ctx, projectID, documentID)
	if err != nil {
		log.Printf("⚠️ Failed to read cached sync result: %v", err)
	}

	return &models.SyncStatus{LastResult: last, History: history}, nil
}

// collectDroppable flattens the document into the selected droppable
// shapes. Shapes without a stable id cannot be reconciled and are
// dropped here; duplicate ids keep only their first occurrence.
func (s *SyncService) collectDroppable(contents *diagram.DocumentContents, shapeIDs []string) []models.ExtractedShape {
	wanted := make(map[string]bool, len(shapeIDs))
	for _, id := range shapeIDs {
		if id != "" {
			wanted[id] = true
		}
	}

	var selected []models.ExtractedShape
	seen := make(map[string]bool)
	for _, page := range contents.Pages {
		for _, shape := range page.Shapes {
			if !s.extractor.IsDroppable(shape) {
				continue
			}
			extracted := s.extractor.ExtractShape(shape, page.ID, page.Title)
			if extracted.ShapeID == "" || seen[extracted.ShapeID] {
				continue
			}
			if len(wanted) > 0 && !wanted[extracted.ShapeID] {
				continue
			}
			seen[extracted.ShapeID] = true
			selected = append(selected, extracted)
		}
	}
	return selected
}

// reconcileShape routes one shape to the create or update path and
// registers alias discoveries. Returns whether a new record was created.
func (s *SyncService) reconcileShape(
	ctx context.Context,
	projectID string,
	shape models.ExtractedShape,
	index *RoomIndex,
	existing map[string]models.SObject,
	hasGeometry bool,
	user *auth.UserSession,
	aliasCandidates map[string]*models.RoomAlias,
) (bool, error) {
	matchedRoom, _, matched := index.Resolve(shape.RoomName)

	// A matched shape whose literal spelling differs from the canonical
	// name keeps the alias table current with the spelling in use.
	if matched {
		key := matching.NormalizeName(shape.RoomName)
		roomKey := matchedRoom.NormalizedName
		if roomKey == "" {
			roomKey = matching.NormalizeName(matchedRoom.Name)
		}
		if key != roomKey {
			if _, ok := aliasCandidates[key]; !ok {
				aliasCandidates[key] = &models.RoomAlias{
					ID:              utils.GenerateID(),
					ProjectID:       projectID,
					RoomID:          matchedRoom.ID,
					Alias:           strings.TrimSpace(shape.RoomName),
					NormalizedAlias: key,
					CreatedDate:     time.Now(),
				}
			}
		}
	}

	if stored, ok := existing[shape.ShapeID]; ok {
		return false, s.updateDrop(ctx, projectID, shape, matchedRoom, matched, stored, hasGeometry, user)
	}
	return true, s.createDrop(ctx, projectID, shape, matchedRoom, matched, hasGeometry, user)
}

func (s *SyncService) createDrop(
	ctx context.Context,
	projectID string,
	shape models.ExtractedShape,
	matchedRoom *models.Room,
	matched bool,
	hasGeometry bool,
	user *auth.UserSession,
) error {
	roomDisplay, category := displayLabels(shape, matchedRoom, matched)
	name, err := s.names.Generate(ctx, projectID, roomDisplay, category, "")
	if err != nil {
		return err
	}

	now := time.Now()
	record := models.SObject{
		constants.FieldID:               utils.GenerateID(),
		constants.FieldProjectID:        projectID,
		constants.FieldExternalShapeID:  shape.ShapeID,
		constants.FieldName:             name,
		constants.FieldSyncedAt:         now,
		constants.FieldCreatedDate:      now,
		constants.FieldLastModifiedDate: now,
	}
	if shape.PageID != "" {
		record[constants.FieldPageID] = shape.PageID
	}
	if matched {
		record[constants.FieldRoomID] = matchedRoom.ID
		record[constants.FieldRoomName] = matchedRoom.Name
	} else if label := strings.TrimSpace(shape.RoomName); label != "" {
		record[constants.FieldRoomName] = label
	}

	setIfNotEmpty(record, constants.FieldCategory, shape.Category)
	setIfNotEmpty(record, constants.FieldWireType, shape.WireType)
	setIfNotEmpty(record, constants.FieldDevice, shape.Device)
	setIfNotEmpty(record, constants.FieldInstallNote, shape.InstallNote)
	setIfNotEmpty(record, constants.FieldLocation, shape.Location)
	setIfNotEmpty(record, constants.FieldFloor, shape.Floor)
	setIfNotEmpty(record, constants.FieldColorPrimary, shape.Colors.Primary)
	setIfNotEmpty(record, constants.FieldColorFill, shape.Colors.Fill)
	setIfNotEmpty(record, constants.FieldColorLine, shape.Colors.Line)

	if hasGeometry {
		applyGeometry(record, shape.Position)
	}
	if user != nil {
		record[constants.FieldCreatedByID] = user.ID
		record[constants.FieldLastModifiedByID] = user.ID
	}

	if err := s.drops.Insert(ctx, record); err != nil {
		return err
	}
	log.Printf("✨ Created wire drop %q for shape %s", name, shape.ShapeID)
	return nil
}

func (s *SyncService) updateDrop(
	ctx context.Context,
	projectID string,
	shape models.ExtractedShape,
	matchedRoom *models.Room,
	matched bool,
	stored models.SObject,
	hasGeometry bool,
	user *auth.UserSession,
) error {
	dropID := stored.GetString(constants.FieldID)
	if dropID == "" {
		return fmt.Errorf("existing drop for shape %s has no id", shape.ShapeID)
	}

	// The name is regenerated on every sync, excluding the record itself,
	// so a drop whose room or category drifted gets renamed to match.
	roomDisplay, category := displayLabels(shape, matchedRoom, matched)
	if roomDisplay == "" {
		roomDisplay = stored.GetString(constants.FieldRoomName)
	}
	if category == "" {
		category = stored.GetString(constants.FieldCategory)
	}
	name, err := s.names.Generate(ctx, projectID, roomDisplay, category, dropID)
	if err != nil {
		return err
	}

	updates := models.SObject{
		constants.FieldName:     name,
		constants.FieldSyncedAt: time.Now(),
	}
	if shape.PageID != "" {
		updates[constants.FieldPageID] = shape.PageID
	}

	// Room link follows the diagram: matched goes canonical, a different
	// unmatched label unlinks, no label at all keeps the stored room.
	if matched {
		updates[constants.FieldRoomID] = matchedRoom.ID
		updates[constants.FieldRoomName] = matchedRoom.Name
	} else if label := strings.TrimSpace(shape.RoomName); label != "" {
		updates[constants.FieldRoomID] = nil
		updates[constants.FieldRoomName] = label
	}

	// Fresh values win, but stored values survive when extraction came
	// up empty so a transient gap never wipes real data.
	setIfNotEmpty(updates, constants.FieldCategory, shape.Category)
	setIfNotEmpty(updates, constants.FieldWireType, shape.WireType)
	setIfNotEmpty(updates, constants.FieldDevice, shape.Device)
	setIfNotEmpty(updates, constants.FieldInstallNote, shape.InstallNote)
	setIfNotEmpty(updates, constants.FieldLocation, shape.Location)
	setIfNotEmpty(updates, constants.FieldFloor, shape.Floor)
	setIfNotEmpty(updates, constants.FieldColorPrimary, shape.Colors.Primary)
	setIfNotEmpty(updates, constants.FieldColorFill, shape.Colors.Fill)
	setIfNotEmpty(updates, constants.FieldColorLine, shape.Colors.Line)

	if hasGeometry {
		applyGeometry(updates, shape.Position)
	}
	if user != nil {
		updates[constants.FieldLastModifiedByID] = user.ID
	}

	return s.drops.Update(ctx, dropID, updates)
}

// displayLabels picks the room and category text used for naming: the
// canonical room name when matched, the literal shape text otherwise.
func displayLabels(shape models.ExtractedShape, matchedRoom *models.Room, matched bool) (string, string) {
	room := strings.TrimSpace(shape.RoomName)
	if matched {
		room = matchedRoom.Name
	}
	return room, strings.TrimSpace(shape.Category)
}

func setIfNotEmpty(record models.SObject, field, value string) {
	if v := strings.TrimSpace(value); v != "" {
		record[field] = v
	}
}

func applyGeometry(record models.SObject, pos models.ShapePosition) {
	if pos.X != nil {
		record[constants.FieldPositionX] = *pos.X
	}
	if pos.Y != nil {
		record[constants.FieldPositionY] = *pos.Y
	}
	if pos.Width != nil {
		record[constants.FieldWidth] = *pos.Width
	}
	if pos.Height != nil {
		record[constants.FieldHeight] = *pos.Height
	}
	if pos.Rotation != nil {
		record[constants.FieldRotation] = *pos.Rotation
	}
}
