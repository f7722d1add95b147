package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/errors"
	"github.com/voltfield/backend/pkg/utils"
)

type documentCatalogStore interface {
	FindByID(ctx context.Context, id string) (*models.Document, error)
	FindByProject(ctx context.Context, projectID string) ([]*models.Document, error)
	Insert(ctx context.Context, d *models.Document) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
}

// DocumentService links diagram documents to projects and manages their
// sync settings.
type DocumentService struct {
	projects  projectStore
	documents documentCatalogStore
	diagram   diagramSource
	cronSpec  cron.Parser
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(projects projectStore, documents documentCatalogStore, diagram diagramSource) *DocumentService {
	return &DocumentService{
		projects:  projects,
		documents: documents,
		diagram:   diagram,
		cronSpec:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// Link attaches an external diagram document to a project. The document
// is fetched once to prove it is reachable; its title fills in when the
// caller does not provide one.
func (s *DocumentService) Link(ctx context.Context, projectID, externalDocID, title string, autoSync bool, schedule string) (*models.Document, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}

	externalDocID = strings.TrimSpace(externalDocID)
	if externalDocID == "" {
		return nil, errors.NewValidationError("external_document_id", "external document id is required")
	}

	schedule = strings.TrimSpace(schedule)
	if schedule != "" {
		if _, err := s.cronSpec.Parse(schedule); err != nil {
			return nil, errors.NewValidationError("sync_schedule", fmt.Sprintf("invalid cron expression: %v", err))
		}
	}

	existing, err := s.documents.FindByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range existing {
		if doc.ExternalDocumentID == externalDocID {
			return nil, errors.NewConflictError("document", "external_document_id", externalDocID)
		}
	}

	contents, err := s.diagram.GetDocumentContents(ctx, externalDocID)
	if err != nil {
		return nil, err
	}
	if title = strings.TrimSpace(title); title == "" {
		title = contents.Title
	}

	now := time.Now()
	doc := &models.Document{
		ID:                 utils.GenerateID(),
		ProjectID:          projectID,
		ExternalDocumentID: externalDocID,
		Title:              title,
		AutoSync:           autoSync,
		CreatedDate:        now,
		LastModifiedDate:   now,
	}
	if schedule != "" {
		doc.SyncSchedule = &schedule
	}

	if err := s.documents.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to link document: %w", err)
	}

	log.Printf("✅ Linked document %q (%s) to project %s, %d pages",
		doc.Title, doc.ID, projectID, len(contents.Pages))

	return doc, nil
}

// List returns a project's linked documents.
func (s *DocumentService) List(ctx context.Context, projectID string) ([]*models.Document, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.documents.FindByProject(ctx, projectID)
}

// UpdateSettings changes a document's title or auto-sync settings.
// Settable keys: title, auto_sync, sync_schedule.
func (s *DocumentService) UpdateSettings(ctx context.Context, projectID, documentID string, updates models.SObject) (*models.Document, error) {
	if _, err := s.requireDocument(ctx, projectID, documentID); err != nil {
		return nil, err
	}

	if len(updates) == 0 {
		return nil, errors.NewValidationError("updates", "no settings provided")
	}

	changes := map[string]interface{}{}
	for field, value := range updates {
		switch field {
		case constants.FieldTitle:
			title := strings.TrimSpace(utils.ToString(value))
			if title == "" {
				return nil, errors.NewValidationError("title", "title cannot be empty")
			}
			changes[constants.FieldTitle] = title
		case constants.FieldAutoSync:
			changes[constants.FieldAutoSync] = utils.ToBool(value)
		case constants.FieldSyncSchedule:
			schedule := strings.TrimSpace(utils.ToString(value))
			if schedule == "" {
				changes[constants.FieldSyncSchedule] = nil
				continue
			}
			if _, err := s.cronSpec.Parse(schedule); err != nil {
				return nil, errors.NewValidationError("sync_schedule", fmt.Sprintf("invalid cron expression: %v", err))
			}
			changes[constants.FieldSyncSchedule] = schedule
		default:
			return nil, errors.NewValidationError(field, "setting is not editable")
		}
	}

	changes[constants.FieldLastModifiedDate] = time.Now()

	if err := s.documents.Update(ctx, documentID, changes); err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	log.Printf("✅ Updated document %s settings (%d fields)", documentID, len(updates))

	return s.documents.FindByID(ctx, documentID)
}

func (s *DocumentService) requireProject(ctx context.Context, projectID string) error {
	exists, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if !exists {
		return errors.NewNotFoundError("project", projectID)
	}
	return nil
}

func (s *DocumentService) requireDocument(ctx context.Context, projectID, documentID string) (*models.Document, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil || doc.ProjectID != projectID {
		return nil, errors.NewNotFoundError("document", documentID)
	}
	return doc, nil
}
