package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/internal/infrastructure/cache"
	"github.com/voltfield/backend/pkg/errors"
	"github.com/voltfield/backend/pkg/matching"
	"github.com/voltfield/backend/pkg/utils"
)

type roomCatalogStore interface {
	FindByProject(ctx context.Context, projectID string) ([]*models.Room, error)
	FindByProjectWithAliasCounts(ctx context.Context, projectID string) ([]*models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindByNormalizedName(ctx context.Context, projectID, normalized string) (*models.Room, error)
	NameConflict(ctx context.Context, projectID, normalized, excludeID string) (bool, error)
	Insert(ctx context.Context, room *models.Room) error
}

type roomAliasStore interface {
	aliasStore
	FindByRoom(ctx context.Context, roomID string) ([]*models.RoomAlias, error)
}

// RoomCatalogService maintains a project's canonical rooms and their
// learned aliases: listing, creation, bulk import, and the confirmation
// step that turns unmatched analysis labels into alias mappings.
type RoomCatalogService struct {
	projects  projectStore
	rooms     roomCatalogStore
	aliases   roomAliasStore
	snapshots *cache.SnapshotStore
}

// NewRoomCatalogService creates a new RoomCatalogService
func NewRoomCatalogService(projects projectStore, rooms roomCatalogStore, aliases roomAliasStore, snapshots *cache.SnapshotStore) *RoomCatalogService {
	return &RoomCatalogService{
		projects:  projects,
		rooms:     rooms,
		aliases:   aliases,
		snapshots: snapshots,
	}
}

// ListRooms returns a project's rooms with their alias counts
func (s *RoomCatalogService) ListRooms(ctx context.Context, projectID string) ([]*models.Room, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.rooms.FindByProjectWithAliasCounts(ctx, projectID)
}

// ListAliases returns every alias mapping in the project
func (s *RoomCatalogService) ListAliases(ctx context.Context, projectID string) ([]*models.RoomAlias, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.aliases.FindByProject(ctx, projectID)
}

// ListRoomAliases returns the aliases attached to one room.
func (s *RoomCatalogService) ListRoomAliases(ctx context.Context, projectID, roomID string) ([]*models.RoomAlias, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	if room == nil || room.ProjectID != projectID {
		return nil, errors.NewNotFoundError("room", roomID)
	}
	return s.aliases.FindByRoom(ctx, roomID)
}

// CreateRoom adds one canonical room. Names must be unique per project
// after normalization.
func (s *RoomCatalogService) CreateRoom(ctx context.Context, projectID, name string, isHeadEnd bool) (*models.Room, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	normalized := matching.NormalizeName(name)
	if normalized == "" {
		return nil, errors.NewValidationError("name", "room name is required")
	}

	conflict, err := s.rooms.NameConflict(ctx, projectID, normalized, "")
	if err != nil {
		return nil, fmt.Errorf("failed to check room name: %w", err)
	}
	if conflict {
		return nil, errors.NewConflictError("room", "name", name)
	}

	room := s.newRoom(projectID, name, normalized, isHeadEnd)
	if err := s.rooms.Insert(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to insert room: %w", err)
	}

	log.Printf("✅ Created room %q in project %s", room.Name, projectID)
	return room, nil
}

// ImportRooms bulk-creates rooms from tabular rows, skipping rows whose
// normalized name already exists in the project or earlier in the batch.
func (s *RoomCatalogService) ImportRooms(ctx context.Context, projectID string, rows []models.RoomImportRow) ([]*models.Room, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NewValidationError("rooms", "no rooms to import")
	}

	existing, err := s.rooms.FindByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rooms: %w", err)
	}
	taken := make(map[string]bool, len(existing))
	for _, room := range existing {
		taken[room.NormalizedName] = true
	}

	var created []*models.Room
	skipped := 0
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		normalized := matching.NormalizeName(name)
		if normalized == "" || taken[normalized] {
			skipped++
			continue
		}
		taken[normalized] = true

		room := s.newRoom(projectID, name, normalized, row.IsHeadEnd)
		if err := s.rooms.Insert(ctx, room); err != nil {
			return nil, fmt.Errorf("failed to insert room %q: %w", name, err)
		}
		created = append(created, room)
	}

	log.Printf("📦 Imported %d rooms into project %s (%d skipped as duplicates)", len(created), projectID, skipped)
	return created, nil
}

// UpsertAliases records spelling variants for one room. Variants that
// normalize to the room's own name are dropped, and a normalized form
// appearing twice keeps its first spelling.
func (s *RoomCatalogService) UpsertAliases(ctx context.Context, projectID, roomID string, aliasTexts []string) (int, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return 0, err
	}

	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return 0, fmt.Errorf("failed to load room: %w", err)
	}
	if room == nil || room.ProjectID != projectID {
		return 0, errors.NewNotFoundError("room", roomID)
	}

	batch := s.buildAliases(projectID, room, aliasTexts, make(map[string]bool))
	if len(batch) == 0 {
		return 0, nil
	}
	if err := s.aliases.UpsertBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("failed to upsert aliases: %w", err)
	}

	log.Printf("✅ Upserted %d aliases for room %q", len(batch), room.Name)
	return len(batch), nil
}

// ConfirmRooms applies the user's decisions for unmatched room labels.
// Every decision either points at an existing room or names a new one;
// aliases are written for every spelling variant of the decided key, so
// the next import resolves those labels without prompting. Variants come
// from the cached analysis snapshot unioned with the ones the client
// echoes back.
func (s *RoomCatalogService) ConfirmRooms(ctx context.Context, projectID, documentID string, decisions []models.ConfirmRoomDecision) (*models.ConfirmRoomsResult, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	if len(decisions) == 0 {
		return nil, errors.NewValidationError("decisions", "no decisions provided")
	}

	cachedVariants := make(map[string][]string)
	snapshot, err := s.snapshots.GetAnalysis(ctx, projectID, documentID)
	if err != nil {
		log.Printf("⚠️ Failed to read analysis snapshot: %v", err)
	} else if snapshot != nil {
		for _, group := range snapshot.Unmatched {
			cachedVariants[group.NormalizedKey] = group.Variants
		}
	}

	result := &models.ConfirmRoomsResult{}
	var batch []*models.RoomAlias
	queued := make(map[string]bool)

	for _, decision := range decisions {
		room, err := s.resolveDecisionRoom(ctx, projectID, decision, result)
		if err != nil {
			return nil, err
		}

		variants := append([]string{}, decision.Variants...)
		for _, cached := range cachedVariants[decision.NormalizedKey] {
			if !containsString(variants, cached) {
				variants = append(variants, cached)
			}
		}
		// No spelling survived anywhere. Fall back to the normalized key
		// itself so the mapping still resolves on the next import.
		if len(variants) == 0 && decision.NormalizedKey != "" {
			variants = []string{decision.NormalizedKey}
		}

		batch = append(batch, s.buildAliases(projectID, room, variants, queued)...)
	}

	if len(batch) > 0 {
		if err := s.aliases.UpsertBatch(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to persist aliases: %w", err)
		}
	}
	result.AliasesWritten = len(batch)

	if err := s.snapshots.InvalidateAnalysis(ctx, projectID, documentID); err != nil {
		log.Printf("⚠️ Failed to invalidate analysis snapshot: %v", err)
	}

	log.Printf("✅ Confirmed %d room mappings for document %s: %d new rooms, %d aliases",
		len(decisions), documentID, len(result.CreatedRooms), result.AliasesWritten)
	return result, nil
}

// resolveDecisionRoom finds or creates the room a decision points at.
// A new-room name that matches an existing room after normalization
// reuses that room instead of failing.
func (s *RoomCatalogService) resolveDecisionRoom(ctx context.Context, projectID string, decision models.ConfirmRoomDecision, result *models.ConfirmRoomsResult) (*models.Room, error) {
	if decision.RoomID != nil && *decision.RoomID != "" {
		room, err := s.rooms.FindByID(ctx, *decision.RoomID)
		if err != nil {
			return nil, fmt.Errorf("failed to load room: %w", err)
		}
		if room == nil || room.ProjectID != projectID {
			return nil, errors.NewNotFoundError("room", *decision.RoomID)
		}
		return room, nil
	}

	if decision.NewRoomName != nil {
		name := strings.TrimSpace(*decision.NewRoomName)
		normalized := matching.NormalizeName(name)
		if normalized == "" {
			return nil, errors.NewValidationError("new_room_name", "room name is required")
		}

		existing, err := s.rooms.FindByNormalizedName(ctx, projectID, normalized)
		if err != nil {
			return nil, fmt.Errorf("failed to check room name: %w", err)
		}
		if existing != nil {
			return existing, nil
		}

		room := s.newRoom(projectID, name, normalized, decision.IsHeadEnd)
		if err := s.rooms.Insert(ctx, room); err != nil {
			return nil, fmt.Errorf("failed to insert room %q: %w", name, err)
		}
		result.CreatedRooms = append(result.CreatedRooms, room)
		return room, nil
	}

	return nil, errors.NewValidationError("decisions", "decision needs room_id or new_room_name")
}

// buildAliases turns spelling variants into alias records for one room.
// queued carries normalized keys already claimed earlier in the batch.
func (s *RoomCatalogService) buildAliases(projectID string, room *models.Room, variants []string, queued map[string]bool) []*models.RoomAlias {
	roomKey := room.NormalizedName
	if roomKey == "" {
		roomKey = matching.NormalizeName(room.Name)
	}

	var batch []*models.RoomAlias
	now := time.Now()
	for _, variant := range variants {
		text := strings.TrimSpace(variant)
		normalized := matching.NormalizeName(text)
		if normalized == "" || normalized == roomKey || queued[normalized] {
			continue
		}
		queued[normalized] = true

		batch = append(batch, &models.RoomAlias{
			ID:              utils.GenerateID(),
			ProjectID:       projectID,
			RoomID:          room.ID,
			Alias:           text,
			NormalizedAlias: normalized,
			CreatedDate:     now,
		})
	}
	return batch
}

func (s *RoomCatalogService) newRoom(projectID, name, normalized string, isHeadEnd bool) *models.Room {
	now := time.Now()
	return &models.Room{
		ID:               utils.GenerateID(),
		ProjectID:        projectID,
		Name:             name,
		NormalizedName:   normalized,
		IsHeadEnd:        isHeadEnd,
		CreatedDate:      now,
		LastModifiedDate: now,
	}
}

func (s *RoomCatalogService) requireProject(ctx context.Context, projectID string) error {
	exists, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if !exists {
		return errors.NewNotFoundError("project", projectID)
	}
	return nil
}
