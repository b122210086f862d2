package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/http/response"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
	"github.com/yungbote/observer-backend/internal/services"
)

// AdminHandler serves operator routes. Every route sits behind
// RequireAdmin and names its target user explicitly.
type AdminHandler struct {
	log    *logger.Logger
	state  services.StateService
	events services.EventService
	notify services.NotificationService
}

func NewAdminHandler(log *logger.Logger, state services.StateService, events services.EventService, notify services.NotificationService) *AdminHandler {
	return &AdminHandler{
		log:    log.With("handler", "AdminHandler"),
		state:  state,
		events: events,
		notify: notify,
	}
}

type adminFireReq struct {
	UserID  string        `json:"user_id" binding:"required"`
	EventID string        `json:"event_id"`
	Effects types.Effects `json:"effects"`
	// CatalogID fires a catalog event, player flag and instance list aside.
	CatalogID string `json:"catalog_id"`
	Instance  string `json:"instance"`
}

// POST /api/admin/events/fire
// Either {catalog_id, instance?} or {event_id, effects}.
func (h *AdminHandler) FireEvent(c *gin.Context) {
	var req adminFireReq
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	if req.CatalogID != "" {
		if req.EventID != "" || !req.Effects.IsEmpty() {
			response.RespondServiceError(c, fmt.Errorf("%w: catalog_id excludes event_id and effects", services.ErrInvalidArgument))
			return
		}
		res, err := h.events.FireCatalogEvent(ctx, req.UserID, req.CatalogID, req.Instance)
		response.RespondFire(c, res, err)
		return
	}
	if req.EventID == "" {
		response.RespondServiceError(c, fmt.Errorf("%w: event_id or catalog_id is required", services.ErrInvalidArgument))
		return
	}
	// an effect-less fire would burn the event id for nothing
	if req.Effects.IsEmpty() {
		response.RespondServiceError(c, fmt.Errorf("%w: effects must not be empty", services.ErrInvalidArgument))
		return
	}
	res, err := h.events.Fire(ctx, req.UserID, req.EventID, req.Effects)
	response.RespondFire(c, res, err)
}

type adminXPReq struct {
	UserID      string `json:"user_id" binding:"required"`
	Amount      int64  `json:"amount"`
	ActivityKey string `json:"activity_key"`
	Instance    string `json:"instance"`
}

// POST /api/admin/xp
func (h *AdminHandler) GrantXP(c *gin.Context) {
	var req adminXPReq
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.events.GrantXP(c.Request.Context(), services.GrantXPRequest{
		UserID:      req.UserID,
		Amount:      req.Amount,
		ActivityKey: req.ActivityKey,
		Instance:    req.Instance,
	})
	response.RespondFire(c, res, err)
}

type adminNotifyReq struct {
	Target     string `json:"target" binding:"required"`
	Type       string `json:"type" binding:"required"`
	Title      string `json:"title" binding:"required"`
	Body       string `json:"body"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

// POST /api/admin/notifications
func (h *AdminHandler) SendNotification(c *gin.Context) {
	var req adminNotifyReq
	if !bindJSON(c, &req) {
		return
	}
	target, err := services.ParseTarget(req.Target)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	res, err := h.notify.Send(c.Request.Context(), services.SendNotificationRequest{
		Target: target.String(),
		Type:   req.Type,
		Title:  req.Title,
		Body:   req.Body,
		TTL:    time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	h.log.Info("notification batch sent", "target", target.String(), "batch_id", res.BatchID, "sent", res.SentCount)
	response.RespondOK(c, res)
}

type adminFlagReq struct {
	UserID string `json:"user_id" binding:"required"`
	Key    string `json:"key" binding:"required"`
	Value  string `json:"value"`
}

// POST /api/admin/flags
func (h *AdminHandler) SetFlag(c *gin.Context) {
	var req adminFlagReq
	if !bindJSON(c, &req) {
		return
	}
	rd, ok := actingUser(c)
	if !ok {
		return
	}
	if err := h.state.SetFlag(c.Request.Context(), req.UserID, req.Key, req.Value, "admin:"+rd.UserID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user_id": req.UserID, "key": req.Key, "value": req.Value})
}

type adminScoresReq struct {
	UserID        string `json:"user_id" binding:"required"`
	AnomalyDelta  int64  `json:"anomaly_delta"`
	ObserverDelta int64  `json:"observer_delta"`
}

// POST /api/admin/scores
func (h *AdminHandler) AdjustScores(c *gin.Context) {
	var req adminScoresReq
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.events.AdjustScores(c.Request.Context(), req.UserID, req.AnomalyDelta, req.ObserverDelta)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}

type adminVariableReq struct {
	UserID string `json:"user_id" binding:"required"`
	Key    string `json:"key" binding:"required"`
	Delta  *int64 `json:"delta"`
	Value  *int64 `json:"value"`
	Min    *int64 `json:"min"`
	Max    *int64 `json:"max"`
}

// POST /api/admin/variables
// Exactly one of delta or value. min and max bound a delta and come as a pair.
func (h *AdminHandler) UpdateVariable(c *gin.Context) {
	var req adminVariableReq
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	if (req.Delta == nil) == (req.Value == nil) {
		response.RespondServiceError(c, fmt.Errorf("%w: exactly one of delta or value is required", services.ErrInvalidArgument))
		return
	}
	if (req.Min == nil) != (req.Max == nil) || (req.Min != nil && req.Value != nil) {
		response.RespondServiceError(c, fmt.Errorf("%w: min and max go together and only with delta", services.ErrInvalidArgument))
		return
	}

	var (
		value int64
		err   error
	)
	switch {
	case req.Value != nil:
		value = *req.Value
		err = h.state.SetVariable(ctx, req.UserID, req.Key, value)
	case req.Min != nil:
		value, err = h.state.IncrementVariableClamped(ctx, req.UserID, req.Key, *req.Delta, *req.Min, *req.Max)
	default:
		value, err = h.state.IncrementVariable(ctx, req.UserID, req.Key, *req.Delta)
	}
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user_id": req.UserID, "key": req.Key, "value": value})
}
