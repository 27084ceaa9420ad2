// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"friendus/internal/modules/activity"
	"friendus/internal/modules/aiusage"
	"friendus/internal/modules/planjob"
	"friendus/internal/planner"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts job ids (uuids) and room ids: letters, digits, '-' and '_'.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, planjob.ErrBadRequest), errors.Is(err, activity.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, planjob.ErrNotFound), errors.Is(err, activity.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, activity.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, planjob.ErrInvalidState):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, aiusage.ErrQuotaExceeded):
		writeError(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, planner.ErrIntentUnavailable):
		writeError(c, http.StatusUnprocessableEntity, "could not understand the request")
	case errors.Is(err, planjob.ErrShuttingDown):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, "planning timed out")
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
