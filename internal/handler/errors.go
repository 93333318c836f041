package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoslavarun/QuoteBuilder/internal/export"
	"github.com/khoslavarun/QuoteBuilder/internal/quote"
	"github.com/khoslavarun/QuoteBuilder/internal/service"
	"github.com/khoslavarun/QuoteBuilder/pkg/response"
)

// writeError maps service and solver errors onto the response envelope.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var fieldErr *quote.FieldError
	var scenarioErr *quote.ScenarioError

	switch {
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails(http.StatusBadRequest, err.Error(),
			map[string]any{"field": fieldErr.Field}))
	case errors.As(err, &scenarioErr):
		c.JSON(http.StatusUnprocessableEntity, response.ErrorWithDetails(http.StatusUnprocessableEntity, err.Error(),
			map[string]any{"advance_pct": scenarioErr.AdvancePct}))
	case errors.Is(err, quote.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, export.ErrUnknownFormat):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, service.ErrDuplicateName), errors.Is(err, service.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

func sendDocument(c *gin.Context, doc service.Document) {
	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}
