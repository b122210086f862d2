package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/observer-backend/internal/data/repos"
	"github.com/yungbote/observer-backend/internal/http/response"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
	"github.com/yungbote/observer-backend/internal/services"
)

type ChatHandler struct {
	chat  services.ChatService
	users repos.UserRepo
}

func NewChatHandler(chat services.ChatService, users repos.UserRepo) *ChatHandler {
	return &ChatHandler{chat: chat, users: users}
}

// GET /api/chats/:id/messages?limit=50
func (h *ChatHandler) ListMessages(c *gin.Context) {
	if _, ok := actingUser(c); !ok {
		return
	}
	msgs, err := h.chat.ListMessages(c.Request.Context(), strings.TrimSpace(c.Param("id")), queryLimit(c, 50))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}

type postMessageReq struct {
	Text string `json:"text" binding:"required"`
}

// POST /api/chats/:id/messages
func (h *ChatHandler) PostMessage(c *gin.Context) {
	rd, ok := actingUser(c)
	if !ok {
		return
	}
	var req postMessageReq
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	// display name comes from the account, not the request
	sender := rd.UserID
	if u, err := h.users.GetByID(dbctx.From(ctx), rd.UserID); err == nil && u != nil && u.Username != "" {
		sender = u.Username
	}
	res, err := h.chat.PostMessage(ctx, strings.TrimSpace(c.Param("id")), sender, rd.UserID, req.Text)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}
