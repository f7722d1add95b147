package rest

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/pkg/auth"
	"github.com/voltfield/backend/pkg/constants"
)

// ShapeAnalyzer defines the analyze step of the document workflow
type ShapeAnalyzer interface {
	Analyze(ctx context.Context, projectID, documentID string, refresh bool) (*models.ShapeAnalysis, error)
}

// RoomConfirmer resolves unmatched room groups into rooms and aliases
type RoomConfirmer interface {
	ConfirmRooms(ctx context.Context, projectID, documentID string, decisions []models.ConfirmRoomDecision) (*models.ConfirmRoomsResult, error)
}

// DropSyncer runs the shape-to-record reconciliation
type DropSyncer interface {
	Sync(ctx context.Context, projectID, documentID string, shapeIDs []string, triggeredBy string, user *auth.UserSession) (*models.SyncResult, error)
	Status(ctx context.Context, projectID, documentID string, limit int) (*models.SyncStatus, error)
}

// SyncHandler handles the analyze / confirm-rooms / sync workflow endpoints
type SyncHandler struct {
	analysis ShapeAnalyzer
	rooms    RoomConfirmer
	syncs    DropSyncer
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(analysis ShapeAnalyzer, rooms RoomConfirmer, syncs DropSyncer) *SyncHandler {
	return &SyncHandler{analysis: analysis, rooms: rooms, syncs: syncs}
}

type ConfirmRoomsRequest struct {
	Decisions []models.ConfirmRoomDecision `json:"decisions" binding:"required"`
}

type SyncRequest struct {
	ShapeIDs []string `json:"shape_ids"` // Empty means every droppable shape
}

// Analyze handles POST /api/projects/:projectId/documents/:documentId/analyze
func (h *SyncHandler) Analyze(c *gin.Context) {
	projectID := c.Param("projectId")
	documentID := c.Param("documentId")
	refresh := c.Query("refresh") == "true"

	HandleGet(c, func() (interface{}, error) {
		return h.analysis.Analyze(c.Request.Context(), projectID, documentID, refresh)
	})
}

// ConfirmRooms handles POST /api/projects/:projectId/documents/:documentId/confirm-rooms
func (h *SyncHandler) ConfirmRooms(c *gin.Context) {
	projectID := c.Param("projectId")
	documentID := c.Param("documentId")

	var req ConfirmRoomsRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleGet(c, func() (interface{}, error) {
		return h.rooms.ConfirmRooms(c.Request.Context(), projectID, documentID, req.Decisions)
	})
}

// Sync handles POST /api/projects/:projectId/documents/:documentId/sync
func (h *SyncHandler) Sync(c *gin.Context) {
	projectID := c.Param("projectId")
	documentID := c.Param("documentId")
	user := GetUserFromContext(c)

	var req SyncRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleGet(c, func() (interface{}, error) {
		return h.syncs.Sync(c.Request.Context(), projectID, documentID, req.ShapeIDs, constants.SyncTriggerManual, user)
	})
}

// Status handles GET /api/projects/:projectId/documents/:documentId/sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	projectID := c.Param("projectId")
	documentID := c.Param("documentId")

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	HandleGet(c, func() (interface{}, error) {
		return h.syncs.Status(c.Request.Context(), projectID, documentID, limit)
	})
}
