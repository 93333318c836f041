package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoslavarun/QuoteBuilder/internal/export"
	"github.com/khoslavarun/QuoteBuilder/internal/middleware"
	"github.com/khoslavarun/QuoteBuilder/internal/model"
	"github.com/khoslavarun/QuoteBuilder/internal/service"
	"github.com/khoslavarun/QuoteBuilder/pkg/pagination"
	"github.com/khoslavarun/QuoteBuilder/pkg/response"
)

type HistoryHandler struct {
	runService service.RunService
	auth       *middleware.Authenticator
	log        *zap.Logger
}

func NewHistoryHandler(runService service.RunService, auth *middleware.Authenticator, log *zap.Logger) *HistoryHandler {
	return &HistoryHandler{runService: runService, auth: auth, log: log}
}

func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	history := router.Group("/api/history")
	history.Use(h.auth.RequireRole(model.RoleAdmin, model.RoleAnalyst))
	{
		history.POST("", h.SaveRun)
		history.GET("", h.ListRuns)
		history.GET("/compare", h.CompareRuns)
		history.GET("/:id", h.GetRun)
		history.POST("/:id/replay", h.ReplayRun)
		history.GET("/:id/export", h.ExportRun)
	}
}

// SaveRun stores a named calculation
// @Summary      Save run
// @Description  Recomputes the outputs from the submitted inputs and stores both
// @Tags         history
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SaveRunRequest  true  "Run"
// @Success      201      {object}  response.Response{data=service.RunResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/history [post]
func (h *HistoryHandler) SaveRun(c *gin.Context) {
	var req service.SaveRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	run, err := h.runService.SaveRun(c.Request.Context(), c.GetString(middleware.CtxUserID), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, run))
}

// ListRuns lists saved runs, newest first
// @Summary      List runs
// @Tags         history
// @Security     BearerAuth
// @Produce      json
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Param        search      query     string  false  "Search by run name"
// @Param        product_id  query     string  false  "Only runs for this product"
// @Success      200         {object}  response.Response{data=response.Page{items=[]service.RunResponse}}
// @Router       /api/history [get]
func (h *HistoryHandler) ListRuns(c *gin.Context) {
	p := pagination.Parse(c)

	runs, total, err := h.runService.ListRuns(c.Request.Context(), service.RunQuery{
		Search:    c.Query("search"),
		ProductID: c.Query("product_id"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{
		Items: runs,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}))
}

// GetRun returns one saved run
// @Summary      Get run
// @Tags         history
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Run ID"
// @Success      200  {object}  response.Response{data=service.RunResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/history/{id} [get]
func (h *HistoryHandler) GetRun(c *gin.Context) {
	run, err := h.runService.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, run))
}

// CompareRuns puts two saved runs side by side
// @Summary      Compare runs
// @Tags         history
// @Security     BearerAuth
// @Produce      json
// @Param        run_a  query     string  true  "First run ID"
// @Param        run_b  query     string  true  "Second run ID"
// @Success      200    {object}  response.Response{data=service.CompareResponse}
// @Failure      400    {object}  response.Response
// @Failure      404    {object}  response.Response
// @Router       /api/history/compare [get]
func (h *HistoryHandler) CompareRuns(c *gin.Context) {
	runA, runB := c.Query("run_a"), c.Query("run_b")
	if runA == "" || runB == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "run_a and run_b are required"))
		return
	}

	res, err := h.runService.CompareRuns(c.Request.Context(), runA, runB)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ReplayRun recomputes a saved run from its stored inputs
// @Summary      Replay run
// @Description  Reports whether recomputing the stored inputs reproduces the stored outputs
// @Tags         history
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Run ID"
// @Success      200  {object}  response.Response{data=service.ReplayResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/history/{id}/replay [post]
func (h *HistoryHandler) ReplayRun(c *gin.Context) {
	res, err := h.runService.ReplayRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ExportRun downloads a saved run
// @Summary      Export run
// @Tags         history
// @Security     BearerAuth
// @Produce      octet-stream
// @Param        id      path      string  true   "Run ID"
// @Param        format  query     string  false  "csv (default), xlsx, md or html"
// @Success      200     {file}    file
// @Failure      400     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Router       /api/history/{id}/export [get]
func (h *HistoryHandler) ExportRun(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	doc, err := h.runService.ExportRun(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	sendDocument(c, doc)
}
