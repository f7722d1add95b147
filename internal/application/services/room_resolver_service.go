package services

import (
	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/pkg/matching"
)

// RoomResolverService matches shape room labels against a project's
// canonical rooms and learned aliases.
type RoomResolverService struct{}

// NewRoomResolverService creates a new RoomResolverService
func NewRoomResolverService() *RoomResolverService {
	return &RoomResolverService{}
}

// RoomIndex is a point-in-time lookup view over one project's rooms and
// aliases, built once per analysis or sync batch.
type RoomIndex struct {
	rooms   []*models.Room
	byAlias map[string]*models.Room
	byName  map[string]*models.Room
}

// BuildIndex prepares the lookup maps. Aliases pointing at rooms that no
// longer exist are ignored.
func (s *RoomResolverService) BuildIndex(rooms []*models.Room, aliases []*models.RoomAlias) *RoomIndex {
	index := &RoomIndex{
		rooms:   rooms,
		byAlias: make(map[string]*models.Room, len(aliases)),
		byName:  make(map[string]*models.Room, len(rooms)),
	}

	byID := make(map[string]*models.Room, len(rooms))
	for _, room := range rooms {
		byID[room.ID] = room
		key := room.NormalizedName
		if key == "" {
			key = matching.NormalizeName(room.Name)
		}
		if key != "" {
			index.byName[key] = room
		}
	}

	for _, alias := range aliases {
		room, ok := byID[alias.RoomID]
		if !ok {
			continue
		}
		key := alias.NormalizedAlias
		if key == "" {
			key = matching.NormalizeName(alias.Alias)
		}
		if key != "" {
			index.byAlias[key] = room
		}
	}

	return index
}

// Resolve maps a literal room label to a canonical room. The alias set is
// checked before direct names: an explicit user mapping outranks an
// incidental name collision.
func (ix *RoomIndex) Resolve(literal string) (*models.Room, string, bool) {
	key := matching.NormalizeName(literal)
	if key == "" {
		return nil, "", false
	}
	if room, ok := ix.byAlias[key]; ok {
		return room, models.MatchedByAlias, true
	}
	if room, ok := ix.byName[key]; ok {
		return room, models.MatchedByDirect, true
	}
	return nil, "", false
}

// Suggest returns the closest canonical room for an unmatched normalized
// key, whatever the score. Callers apply the threshold tiers themselves.
// Returns nil only when the project has no rooms at all.
func (ix *RoomIndex) Suggest(normalizedKey string) *models.RoomSuggestion {
	var best *models.RoomSuggestion
	for _, room := range ix.rooms {
		score := matching.Similarity(normalizedKey, room.NormalizedName)
		if best == nil || score > best.Score {
			best = &models.RoomSuggestion{RoomID: room.ID, RoomName: room.Name, Score: score}
		}
	}
	return best
}
