package rest

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/voltfield/backend/internal/application/services"
	"github.com/voltfield/backend/internal/domain/models"
)

type DropHandler struct {
	svc *services.ServiceManager
}

func NewDropHandler(svc *services.ServiceManager) *DropHandler {
	return &DropHandler{svc: svc}
}

// List handles GET /api/projects/:projectId/drops
// Supported query params: filter, search, room_name, category, limit, offset
func (h *DropHandler) List(c *gin.Context) {
	projectID := c.Param("projectId")

	opts := models.DropQueryOptions{
		FilterExpr: c.Query("filter"),
		Search:     c.Query("search"),
		RoomName:   c.Query("room_name"),
		Category:   c.Query("category"),
	}
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			opts.Limit = parsed
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			opts.Offset = parsed
		}
	}

	HandleGet(c, func() (interface{}, error) {
		return h.svc.QuerySvc.ListDrops(c.Request.Context(), projectID, opts)
	})
}

// Get handles GET /api/projects/:projectId/drops/:dropId
func (h *DropHandler) Get(c *gin.Context) {
	projectID := c.Param("projectId")
	dropID := c.Param("dropId")

	HandleGet(c, func() (interface{}, error) {
		return h.svc.QuerySvc.GetDrop(c.Request.Context(), projectID, dropID)
	})
}

// Update handles PATCH /api/projects/:projectId/drops/:dropId
func (h *DropHandler) Update(c *gin.Context) {
	projectID := c.Param("projectId")
	dropID := c.Param("dropId")
	user := GetUserFromContext(c)

	updates := make(models.SObject)
	if !BindJSON(c, &updates) {
		return
	}

	HandleGet(c, func() (interface{}, error) {
		return h.svc.QuerySvc.UpdateDrop(c.Request.Context(), projectID, dropID, updates, user)
	})
}
