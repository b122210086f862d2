package realtime

import "strings"

type SSEEvent string

const (
	SSEEventEventFired      SSEEvent = "EventFired"
	SSEEventLevelUp         SSEEvent = "LevelUp"
	SSEEventProgressUpdated SSEEvent = "ProgressUpdated"
	SSEEventNotification    SSEEvent = "Notification"
	SSEEventChatMessage     SSEEvent = "ChatMessage"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the per-user channel every stream is subscribed to.
func UserChannel(userID string) string {
	return "user:" + strings.TrimSpace(userID)
}

func ChatChannel(chatID string) string {
	return "chat:" + strings.TrimSpace(chatID)
}
