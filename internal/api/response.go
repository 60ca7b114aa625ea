package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"historymaker/internal/model"
)

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"data":     data,
		"trace_id": traceIDFromContext(c),
	})
}

func writeError(c *gin.Context, status int, code, message string, details map[string]any) {
	c.JSON(status, gin.H{
		"error": APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		"trace_id": traceIDFromContext(c),
	})
}

func writeUnauthorized(c *gin.Context) {
	writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
}

func writeBadRequest(c *gin.Context, message string) {
	writeError(c, http.StatusBadRequest, "INVALID_REQUEST", message, nil)
}

// writeServiceError maps the stage error taxonomy onto HTTP statuses.
// Missing credentials are a precondition failure the client can fix in
// settings; upstream failures pass the provider's status through in details.
func writeServiceError(c *gin.Context, err error) {
	var upstream *model.UpstreamError
	switch {
	case errors.Is(err, model.ErrInvalid):
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, model.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, model.ErrForbidden):
		writeError(c, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, model.ErrNotConfigured):
		writeError(c, http.StatusPreconditionFailed, "NOT_CONFIGURED", err.Error(), nil)
	case errors.As(err, &upstream):
		writeError(c, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error(), map[string]any{
			"service": upstream.Service,
			"status":  upstream.Status,
		})
	default:
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
}
