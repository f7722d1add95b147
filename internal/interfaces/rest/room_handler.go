package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/voltfield/backend/internal/application/services"
	"github.com/voltfield/backend/internal/domain/models"
)

type RoomHandler struct {
	svc *services.ServiceManager
}

func NewRoomHandler(svc *services.ServiceManager) *RoomHandler {
	return &RoomHandler{svc: svc}
}

type CreateRoomRequest struct {
	Name      string `json:"name" binding:"required"`
	IsHeadEnd bool   `json:"is_head_end"`
}

type ImportRoomsRequest struct {
	Rooms []models.RoomImportRow `json:"rooms" binding:"required"`
}

// List handles GET /api/projects/:projectId/rooms
func (h *RoomHandler) List(c *gin.Context) {
	projectID := c.Param("projectId")

	HandleGet(c, func() (interface{}, error) {
		return h.svc.RoomCatalog.ListRooms(c.Request.Context(), projectID)
	})
}

// Create handles POST /api/projects/:projectId/rooms
func (h *RoomHandler) Create(c *gin.Context) {
	projectID := c.Param("projectId")

	var req CreateRoomRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleCreate(c, func() (interface{}, error) {
		return h.svc.RoomCatalog.CreateRoom(c.Request.Context(), projectID, req.Name, req.IsHeadEnd)
	})
}

// Import handles POST /api/projects/:projectId/rooms/import
func (h *RoomHandler) Import(c *gin.Context) {
	projectID := c.Param("projectId")

	var req ImportRoomsRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleCreate(c, func() (interface{}, error) {
		return h.svc.RoomCatalog.ImportRooms(c.Request.Context(), projectID, req.Rooms)
	})
}

// ListAliases handles GET /api/projects/:projectId/aliases
func (h *RoomHandler) ListAliases(c *gin.Context) {
	projectID := c.Param("projectId")

	HandleGet(c, func() (interface{}, error) {
		return h.svc.RoomCatalog.ListAliases(c.Request.Context(), projectID)
	})
}

// ListRoomAliases handles GET /api/projects/:projectId/rooms/:roomId/aliases
func (h *RoomHandler) ListRoomAliases(c *gin.Context) {
	projectID := c.Param("projectId")
	roomID := c.Param("roomId")

	HandleGet(c, func() (interface{}, error) {
		return h.svc.RoomCatalog.ListRoomAliases(c.Request.Context(), projectID, roomID)
	})
}
