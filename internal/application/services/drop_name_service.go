package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/errors"
)

// maxNameProbes bounds the collision scan when deriving a drop name.
// Hitting it means the naming data is corrupt beyond repair.
const maxNameProbes = 500

// nameIndex is the slice of the drop repository the generator needs
type nameIndex interface {
	NameExists(ctx context.Context, projectID, name, excludeID string) (bool, error)
}

// DropNameService derives the unique human-readable name for a wire drop.
// It is the single source of truth for drop naming: probing the persisted
// record set keeps the sequence anchored to storage truth instead of an
// in-memory counter that could drift.
type DropNameService struct {
	drops nameIndex
}

// NewDropNameService creates a new DropNameService
func NewDropNameService(drops nameIndex) *DropNameService {
	return &DropNameService{drops: drops}
}

// Generate produces the lowest free "<room> - <category> <N>" name within
// the project. excludeID removes one record from the collision check so a
// record being renamed never collides with its own current name. Probing
// from 1 makes regeneration stable: a record that already holds the
// lowest fitting name gets the same name back, and only records whose
// room or category drifted actually change. Deterministic: same inputs
// against the same persisted set always yield the same name.
func (s *DropNameService) Generate(ctx context.Context, projectID, roomName, category, excludeID string) (string, error) {
	room := strings.TrimSpace(roomName)
	if room == "" {
		room = constants.DefaultRoomLabel
	}
	cat := strings.TrimSpace(category)
	if cat == "" {
		cat = constants.DefaultCategoryLabel
	}

	for seq := 1; seq <= maxNameProbes; seq++ {
		candidate := fmt.Sprintf("%s - %s %d", room, cat, seq)
		exists, err := s.drops.NameExists(ctx, projectID, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("failed to check name %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", errors.NewConflictError("wire drop", "name", fmt.Sprintf("%s - %s", room, cat))
}
