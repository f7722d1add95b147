package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/voltfield/backend/internal/application/services"
)

type ProjectHandler struct {
	svc *services.ServiceManager
}

func NewProjectHandler(svc *services.ServiceManager) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

type CreateProjectRequest struct {
	Name       string `json:"name" binding:"required"`
	ClientName string `json:"client_name"`
}

// List handles GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	HandleGet(c, func() (interface{}, error) {
		return h.svc.Projects.List(c.Request.Context())
	})
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req CreateProjectRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleCreate(c, func() (interface{}, error) {
		return h.svc.Projects.Create(c.Request.Context(), req.Name, req.ClientName)
	})
}

// Get handles GET /api/projects/:projectId
func (h *ProjectHandler) Get(c *gin.Context) {
	projectID := c.Param("projectId")

	HandleGet(c, func() (interface{}, error) {
		return h.svc.Projects.Get(c.Request.Context(), projectID)
	})
}

// Archive handles POST /api/projects/:projectId/archive
func (h *ProjectHandler) Archive(c *gin.Context) {
	projectID := c.Param("projectId")

	HandleGet(c, func() (interface{}, error) {
		return h.svc.Projects.Archive(c.Request.Context(), projectID)
	})
}
