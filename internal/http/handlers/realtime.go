package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/observer-backend/internal/http/response"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
	"github.com/yungbote/observer-backend/internal/realtime"
)

var chatChannelID = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *realtime.SSEHub

	mu      sync.RWMutex
	clients map[string]*realtime.SSEClient // key: session id, or user id without one
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		Log:     log.With("handler", "RealtimeHandler"),
		Hub:     hub,
		clients: make(map[string]*realtime.SSEClient),
	}
}

func parseChatChannels(raw string) ([]string, error) {
	var out []string
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !chatChannelID.MatchString(id) {
			return nil, errors.New("invalid chat id")
		}
		out = append(out, realtime.ChatChannel(id))
	}
	return out, nil
}

// GET /api/sse/stream?chats=lobby,ops
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd, ok := actingUser(c)
	if !ok {
		return
	}
	chats, err := parseChatChannels(c.Query("chats"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_channel", err)
		return
	}
	key := rd.SessionID
	if key == "" {
		key = rd.UserID
	}

	h.mu.Lock()
	// a reconnect for the same session replaces the old stream
	if existing, ok := h.clients[key]; ok {
		h.Hub.CloseClient(existing)
	}
	client := h.Hub.NewSSEClient(rd.UserID)
	h.clients[key] = client
	h.mu.Unlock()

	h.Hub.AddChannel(client, realtime.UserChannel(rd.UserID))
	for _, ch := range chats {
		h.Hub.AddChannel(client, ch)
	}
	h.Log.Debug("SSE stream open", "user_id", rd.UserID, "client_id", client.ID, "chats", len(chats))

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[key] == client {
		delete(h.clients, key)
	}
	h.mu.Unlock()
	h.Hub.CloseClient(client)
}

type chatSubscriptionReq struct {
	ChatID string `json:"chat_id" binding:"required"`
}

func (h *RealtimeHandler) sessionClient(c *gin.Context) (*realtime.SSEClient, string, bool) {
	rd, ok := actingUser(c)
	if !ok {
		return nil, "", false
	}
	var req chatSubscriptionReq
	if !bindJSON(c, &req) {
		return nil, "", false
	}
	id := strings.TrimSpace(req.ChatID)
	if !chatChannelID.MatchString(id) {
		response.RespondError(c, http.StatusBadRequest, "invalid_channel", errors.New("invalid chat id"))
		return nil, "", false
	}
	key := rd.SessionID
	if key == "" {
		key = rd.UserID
	}
	h.mu.RLock()
	client, exists := h.clients[key]
	h.mu.RUnlock()
	if !exists {
		response.RespondError(c, http.StatusConflict, "no_stream", errors.New("no active SSE connection for this session"))
		return nil, "", false
	}
	return client, realtime.ChatChannel(id), true
}

// POST /api/sse/subscribe {chat_id}
func (h *RealtimeHandler) SSESubscribe(c *gin.Context) {
	client, channel, ok := h.sessionClient(c)
	if !ok {
		return
	}
	if !h.Hub.AddChannel(client, channel) {
		response.RespondError(c, http.StatusConflict, "no_stream", errors.New("SSE connection closed"))
		return
	}
	response.RespondOK(c, gin.H{"message": "subscribed", "channel": channel})
}

// POST /api/sse/unsubscribe {chat_id}
func (h *RealtimeHandler) SSEUnsubscribe(c *gin.Context) {
	client, channel, ok := h.sessionClient(c)
	if !ok {
		return
	}
	h.Hub.RemoveChannel(client, channel)
	response.RespondOK(c, gin.H{"message": "unsubscribed", "channel": channel})
}
