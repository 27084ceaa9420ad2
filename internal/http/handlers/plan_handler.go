// README: Plan handlers: submit, poll, cancel, synchronous generate and websocket completion push.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"friendus/internal/http/middleware"
	"friendus/internal/modules/planjob"
)

const wsWriteTimeout = 10 * time.Second

type PlanHandler struct {
	jobs     *planjob.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewPlanHandler(jobs *planjob.Service, logger *zap.Logger) *PlanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanHandler{
		jobs:   jobs,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the gateway in front of the API.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *PlanHandler) bind(c *gin.Context) (planjob.SubmitRequest, bool) {
	var req planjob.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return req, false
	}
	req.UserID = middleware.CallerUID(c)
	return req, true
}

// Submit queues a planning job and answers 202 with the job record.
func (h *PlanHandler) Submit(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	job, err := h.jobs.Submit(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, job)
}

// Generate plans within the request and returns the PlanResult directly.
func (h *PlanHandler) Generate(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	result, err := h.jobs.Generate(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, result)
}

func (h *PlanHandler) Get(c *gin.Context) {
	job, ok := h.ownedJob(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, job)
}

func (h *PlanHandler) Cancel(c *gin.Context) {
	job, ok := h.ownedJob(c)
	if !ok {
		return
	}
	job, err := h.jobs.Cancel(c.Request.Context(), job.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, job)
}

// Watch upgrades to a websocket, sends the job once it finishes and closes.
func (h *PlanHandler) Watch(c *gin.Context) {
	job, ok := h.ownedJob(c)
	if !ok {
		return
	}
	updates, unsubscribe, err := h.jobs.Subscribe(c.Request.Context(), job.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	select {
	case final := <-updates:
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(final); err != nil {
			h.logger.Debug("websocket write failed", zap.String("job_id", job.ID), zap.Error(err))
			return
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(final.Status)))
	case <-gone:
	case <-c.Request.Context().Done():
	}
}

// ownedJob loads the job named by :id. Jobs of other users are reported as missing.
func (h *PlanHandler) ownedJob(c *gin.Context) (planjob.Job, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid plan id")
		return planjob.Job{}, false
	}
	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return planjob.Job{}, false
	}
	if job.UserID != middleware.CallerUID(c) {
		writeServiceError(c, planjob.ErrNotFound)
		return planjob.Job{}, false
	}
	return job, true
}
