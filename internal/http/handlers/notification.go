package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/observer-backend/internal/http/response"
	"github.com/yungbote/observer-backend/internal/services"
)

type NotificationHandler struct {
	notify services.NotificationService
}

func NewNotificationHandler(notify services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notify: notify}
}

// GET /api/me/notifications?unread=1&limit=50
func (h *NotificationHandler) List(c *gin.Context) {
	rd, ok := actingUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	rows, err := h.notify.ListForUser(ctx, rd.UserID, queryBool(c, "unread"), queryLimit(c, 50))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	unread, err := h.notify.UnreadCount(ctx, rd.UserID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"notifications": rows, "unread_count": unread})
}

type markReadReq struct {
	IDs []string `json:"ids" binding:"required"`
}

// POST /api/me/notifications/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	rd, ok := actingUser(c)
	if !ok {
		return
	}
	var req markReadReq
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.notify.MarkRead(c.Request.Context(), rd.UserID, req.IDs)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"updated": n})
}
