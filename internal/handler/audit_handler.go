package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoslavarun/QuoteBuilder/internal/middleware"
	"github.com/khoslavarun/QuoteBuilder/internal/model"
	"github.com/khoslavarun/QuoteBuilder/internal/service"
	"github.com/khoslavarun/QuoteBuilder/pkg/pagination"
	"github.com/khoslavarun/QuoteBuilder/pkg/response"
)

type AuditHandler struct {
	auditService service.AuditService
	auth         *middleware.Authenticator
	log          *zap.Logger
}

func NewAuditHandler(auditService service.AuditService, auth *middleware.Authenticator, log *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, auth: auth, log: log}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(h.auth.RequireRole(model.RoleAdmin))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated audit records with the acting user
// @Summary      Get audit logs
// @Description  Lists catalog, history and user changes, newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Param        action     query     string  false  "Filter by action, e.g. SAVE_RUN"
// @Param        entity_id  query     string  false  "Filter by entity ID"
// @Success      200        {object}  response.Response{data=response.Page{items=[]service.AuditLogResponse}}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), service.AuditQuery{
		Action:   c.Query("action"),
		EntityID: c.Query("entity_id"),
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{
		Items: logs,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}))
}
