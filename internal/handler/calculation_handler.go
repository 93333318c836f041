package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoslavarun/QuoteBuilder/internal/export"
	"github.com/khoslavarun/QuoteBuilder/internal/quote"
	"github.com/khoslavarun/QuoteBuilder/internal/service"
	"github.com/khoslavarun/QuoteBuilder/pkg/response"
)

type CalculationHandler struct {
	calcService service.CalculationService
	log         *zap.Logger
}

func NewCalculationHandler(calcService service.CalculationService, log *zap.Logger) *CalculationHandler {
	return &CalculationHandler{calcService: calcService, log: log}
}

// RegisterRoutes mounts the stateless calculator. It needs no authentication.
func (h *CalculationHandler) RegisterRoutes(router *gin.RouterGroup) {
	calc := router.Group("/api/calculate")
	{
		calc.POST("", h.Calculate)
		calc.POST("/export", h.Export)
	}
}

// Calculate runs the pricing solver
// @Summary      Calculate a quote
// @Description  Resolves the cost basis and one scenario per advance percentage
// @Tags         calculate
// @Accept       json
// @Produce      json
// @Param        payload  body      quote.Inputs  true  "Quote inputs"
// @Success      200      {object}  response.Response{data=quote.Output}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/calculate [post]
func (h *CalculationHandler) Calculate(c *gin.Context) {
	var in quote.Inputs
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	out, err := h.calcService.Calculate(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, out))
}

// Export calculates and downloads the scenario table
// @Summary      Export a calculation
// @Description  Calculates the inputs and returns the scenario table as csv, xlsx, md or html
// @Tags         calculate
// @Accept       json
// @Produce      octet-stream
// @Param        format   query     string        false  "csv (default), xlsx, md or html"
// @Param        title    query     string        false  "Report title"
// @Param        payload  body      quote.Inputs  true   "Quote inputs"
// @Success      200      {file}    file
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/calculate/export [post]
func (h *CalculationHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	var in quote.Inputs
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	out, err := h.calcService.Calculate(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	doc, err := h.calcService.Render(c.Request.Context(), format, export.Report{
		Title:  c.DefaultQuery("title", "Quote"),
		Inputs: &in,
		Output: out,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	sendDocument(c, doc)
}
