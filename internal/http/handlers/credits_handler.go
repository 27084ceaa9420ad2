package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"friendus/internal/http/middleware"
	"friendus/internal/modules/aiusage"
)

// CreditReader reports a user's planning credits. *aiusage.Service implements it.
type CreditReader interface {
	Remaining(ctx context.Context, uid string) (aiusage.Usage, error)
}

type CreditsHandler struct {
	credits CreditReader
}

func NewCreditsHandler(credits CreditReader) *CreditsHandler {
	return &CreditsHandler{credits: credits}
}

func (h *CreditsHandler) Get(c *gin.Context) {
	u, err := h.credits.Remaining(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, u)
}
