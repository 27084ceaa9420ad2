// README: Room activity handlers: accept plan steps, manual activities, constraints and conflict listing.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"friendus/internal/http/middleware"
	"friendus/internal/modules/activity"
	"friendus/internal/modules/planjob"
	"friendus/internal/planner"
)

type ActivityHandler struct {
	activities *activity.Service
	jobs       *planjob.Service
}

func NewActivityHandler(activities *activity.Service, jobs *planjob.Service) *ActivityHandler {
	return &ActivityHandler{activities: activities, jobs: jobs}
}

// acceptPlanReq names a finished job or carries the plan itself.
type acceptPlanReq struct {
	JobID         string              `json:"job_id"`
	Plan          *planner.PlanResult `json:"plan"`
	SelectedSteps []int               `json:"selected_steps"`
}

func (h *ActivityHandler) AcceptPlan(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	var req acceptPlanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	uid := middleware.CallerUID(c)
	var plan planner.PlanResult
	switch {
	case req.JobID != "":
		if !isValidID(req.JobID) {
			writeError(c, http.StatusBadRequest, "invalid job id")
			return
		}
		job, err := h.jobs.Get(c.Request.Context(), req.JobID)
		if err != nil || job.UserID != uid {
			writeError(c, http.StatusNotFound, planjob.ErrNotFound.Error())
			return
		}
		if job.Status != planjob.StatusDone || job.Result == nil {
			writeError(c, http.StatusConflict, "plan is not ready")
			return
		}
		plan = *job.Result
	case req.Plan != nil:
		plan = *req.Plan
	default:
		writeError(c, http.StatusBadRequest, "job_id or plan is required")
		return
	}

	acts, err := h.activities.AcceptPlan(c.Request.Context(), roomID, uid, plan, req.SelectedSteps)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"activities": acts})
}

func (h *ActivityHandler) List(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	rp, err := h.activities.List(c.Request.Context(), roomID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rp)
}

func (h *ActivityHandler) Add(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	var a activity.Activity
	if err := c.ShouldBindJSON(&a); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	a.RoomID = roomID
	a.CreatedBy = middleware.CallerUID(c)
	created, err := h.activities.AddActivity(c.Request.Context(), a)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, created)
}

func (h *ActivityHandler) Delete(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "invalid activity id")
		return
	}
	if err := h.activities.DeleteActivity(c.Request.Context(), roomID, id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ActivityHandler) AddConstraint(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	var con activity.Constraint
	if err := c.ShouldBindJSON(&con); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	con.RoomID = roomID
	con.UserID = middleware.CallerUID(c)
	created, err := h.activities.AddConstraint(c.Request.Context(), con)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, created)
}

// DeleteConstraint lets a member withdraw a constraint they added.
func (h *ActivityHandler) DeleteConstraint(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "invalid constraint id")
		return
	}
	if err := h.activities.DeleteConstraint(c.Request.Context(), roomID, middleware.CallerUID(c), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func roomParam(c *gin.Context) (string, bool) {
	id := c.Param("room_id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid room id")
		return "", false
	}
	return id, true
}
