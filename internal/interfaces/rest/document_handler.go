package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/voltfield/backend/internal/application/services"
	"github.com/voltfield/backend/internal/domain/models"
)

type DocumentHandler struct {
	svc *services.ServiceManager
}

func NewDocumentHandler(svc *services.ServiceManager) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type LinkDocumentRequest struct {
	ExternalDocumentID string `json:"external_document_id" binding:"required"`
	Title              string `json:"title"`
	AutoSync           bool   `json:"auto_sync"`
	SyncSchedule       string `json:"sync_schedule"`
}

// Link handles POST /api/projects/:projectId/documents
func (h *DocumentHandler) Link(c *gin.Context) {
	projectID := c.Param("projectId")

	var req LinkDocumentRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleCreate(c, func() (interface{}, error) {
		return h.svc.Documents.Link(c.Request.Context(), projectID, req.ExternalDocumentID, req.Title, req.AutoSync, req.SyncSchedule)
	})
}

// List handles GET /api/projects/:projectId/documents
func (h *DocumentHandler) List(c *gin.Context) {
	projectID := c.Param("projectId")

	HandleGet(c, func() (interface{}, error) {
		return h.svc.Documents.List(c.Request.Context(), projectID)
	})
}

// UpdateSettings handles PATCH /api/projects/:projectId/documents/:documentId
func (h *DocumentHandler) UpdateSettings(c *gin.Context) {
	projectID := c.Param("projectId")
	documentID := c.Param("documentId")

	updates := make(models.SObject)
	if !BindJSON(c, &updates) {
		return
	}

	HandleGet(c, func() (interface{}, error) {
		return h.svc.Documents.UpdateSettings(c.Request.Context(), projectID, documentID, updates)
	})
}
