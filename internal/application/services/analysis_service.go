package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/internal/infrastructure/cache"
	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/errors"
	"github.com/voltfield/backend/pkg/matching"
)

// AnalysisService produces the dry-run view of a document: which shapes
// would create or update wire drops, and which room labels need a user
// decision before a sync can link them. It writes nothing to the
// database.
type AnalysisService struct {
	projects  projectStore
	documents documentStore
	rooms     roomStore
	aliases   aliasStore
	drops     dropStore
	diagram   diagramSource
	snapshots *cache.SnapshotStore

	extractor *ShapeExtractService
	resolver  *RoomResolverService
}

// NewAnalysisService creates a new AnalysisService
func NewAnalysisService(
	projects projectStore,
	documents documentStore,
	rooms roomStore,
	aliases aliasStore,
	drops dropStore,
	diagramClient diagramSource,
	snapshots *cache.SnapshotStore,
) *AnalysisService {
	return &AnalysisService{
		projects:  projects,
		documents: documents,
		rooms:     rooms,
		aliases:   aliases,
		drops:     drops,
		diagram:   diagramClient,
		snapshots: snapshots,
		extractor: NewShapeExtractService(),
		resolver:  NewRoomResolverService(),
	}
}

// Analyze inspects every drop-marked shape in a document. refresh skips
// the snapshot cache and forces a fresh pull from the diagram source.
func (s *AnalysisService) Analyze(ctx context.Context, projectID, documentID string, refresh bool) (*models.ShapeAnalysis, error) {
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

	if !refresh {
		cached, err := s.snapshots.GetAnalysis(ctx, projectID, documentID)
		if err != nil {
			log.Printf("⚠️ Failed to read analysis snapshot: %v", err)
		} else if cached != nil {
			log.Printf("✅ Analysis for document %s served from cache", documentID)
			return cached, nil
		}
	}

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

	analysis := &models.ShapeAnalysis{
		ProjectID:  projectID,
		DocumentID: documentID,
		AnalyzedAt: time.Now(),
	}

	groups := make(map[string]*models.UnmatchedRoomGroup)
	var groupOrder []string
	var shapeIDs []string
	seen := make(map[string]bool)

	for _, page := range contents.Pages {
		for _, raw := range page.Shapes {
			if !s.extractor.IsDroppable(raw) {
				continue
			}
			analysis.TotalShapes++

			shape := s.extractor.ExtractShape(raw, page.ID, page.Title)
			if shape.ShapeID == "" || seen[shape.ShapeID] {
				analysis.Skipped++
				continue
			}
			seen[shape.ShapeID] = true
			shapeIDs = append(shapeIDs, shape.ShapeID)

			analyzed := models.AnalyzedShape{Shape: shape}
			if room, matchedBy, ok := index.Resolve(shape.RoomName); ok {
				roomID, roomName := room.ID, room.Name
				analyzed.RoomID = &roomID
				analyzed.RoomName = &roomName
				analyzed.MatchedBy = matchedBy
			} else if label := strings.TrimSpace(shape.RoomName); label != "" {
				key := matching.NormalizeName(label)
				group, ok := groups[key]
				if !ok {
					group = &models.UnmatchedRoomGroup{NormalizedKey: key}
					groups[key] = group
					groupOrder = append(groupOrder, key)
				}
				group.ShapeCount++
				if !containsString(group.Variants, label) {
					group.Variants = append(group.Variants, label)
				}
			}
			analysis.Drops = append(analysis.Drops, analyzed)
		}
	}

	existing, err := s.drops.FindByShapeIDs(ctx, projectID, shapeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing drops: %w", err)
	}
	for i := range analysis.Drops {
		if rec, ok := existing[analysis.Drops[i].Shape.ShapeID]; ok {
			dropID := rec.GetString(constants.FieldID)
			analysis.Drops[i].ExistingDropID = &dropID
			analysis.Drops[i].WillUpdate = true
		}
	}

	for _, key := range groupOrder {
		group := groups[key]
		if suggestion := index.Suggest(key); suggestion != nil {
			group.Suggestion = suggestion
			group.Preselect = suggestion.Score >= matching.AutoSelectThreshold
			group.Hint = suggestion.Score >= matching.HintThreshold
		}
		analysis.Unmatched = append(analysis.Unmatched, *group)
	}

	if err := s.snapshots.StoreAnalysis(ctx, analysis); err != nil {
		log.Printf("⚠️ Failed to cache analysis snapshot: %v", err)
	}

	log.Printf("✅ Analyzed document %s: %d drop shapes, %d unmatched room labels",
		documentID, analysis.TotalShapes, len(analysis.Unmatched))
	return analysis, nil
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
