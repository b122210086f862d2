package handlers

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/observer-backend/internal/http/response"
	"github.com/yungbote/observer-backend/internal/services"
)

type ProgressHandler struct {
	state  services.StateService
	events services.EventService
	now    func() time.Time
}

func NewProgressHandler(state services.StateService, events services.EventService) *ProgressHandler {
	return &ProgressHandler{state: state, events: events, now: time.Now}
}

// GET /api/me/progress
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	rd, ok := actingUser(c)
	if !ok {
		return
	}
	snap, err := h.state.Snapshot(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": snap})
}

// GET /api/me/events?limit=50
func (h *ProgressHandler) ListEvents(c *gin.Context) {
	rd, ok := actingUser(c)
	if !ok {
		return
	}
	rows, err := h.events.ListFired(c.Request.Context(), rd.UserID, queryLimit(c, 50))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": rows})
}

type fireEventReq struct {
	Instance string `json:"instance"`
}

// POST /api/me/events/:id/fire
func (h *ProgressHandler) FireEvent(c *gin.Context) {
	rd, ok := actingUser(c)
	if !ok {
		return
	}
	var req fireEventReq
	// the body is optional
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, 400, "invalid_request", err)
		return
	}
	res, err := h.events.FirePlayerEvent(c.Request.Context(), rd.UserID, strings.TrimSpace(c.Param("id")), req.Instance)
	response.RespondFire(c, res, err)
}

type grantXPReq struct {
	ActivityKey string `json:"activity_key" binding:"required"`
	Instance    string `json:"instance" binding:"required"`
}

// POST /api/me/xp
func (h *ProgressHandler) GrantXP(c *gin.Context) {
	rd, ok := actingUser(c)
	if !ok {
		return
	}
	var req grantXPReq
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.events.GrantXP(c.Request.Context(), services.GrantXPRequest{
		UserID:      rd.UserID,
		ActivityKey: req.ActivityKey,
		Instance:    req.Instance,
		FromPlayer:  true,
	})
	response.RespondFire(c, res, err)
}

// POST /api/me/daily-login
func (h *ProgressHandler) DailyLogin(c *gin.Context) {
	rd, ok := actingUser(c)
	if !ok {
		return
	}
	res, err := h.events.DailyLogin(c.Request.Context(), rd.UserID, h.now())
	response.RespondFire(c, res, err)
}
