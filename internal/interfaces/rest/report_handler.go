package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/voltfield/backend/internal/application/services"
)

type ReportHandler struct {
	svc *services.ServiceManager
}

func NewReportHandler(svc *services.ServiceManager) *ReportHandler {
	return &ReportHandler{svc: svc}
}

type ReportQueryRequest struct {
	SQL string `json:"sql" binding:"required"`
}

// Query handles POST /api/reports/query
func (h *ReportHandler) Query(c *gin.Context) {
	var req ReportQueryRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleGet(c, func() (interface{}, error) {
		return h.svc.QuerySvc.ExecuteReport(c.Request.Context(), req.SQL)
	})
}
