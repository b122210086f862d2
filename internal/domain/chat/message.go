package chat

import (
	"time"

	"gorm.io/datatypes"
)

type ChatMessage struct {
	ID           string         `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	ChatID       string         `gorm:"column:chat_id;type:varchar(64);not null;index:idx_chat_message_chat_created,priority:1" json:"chat_id"`
	Sender       string         `gorm:"column:sender;type:varchar(64);not null" json:"sender"`
	SenderUserID string         `gorm:"column:sender_user_id;type:varchar(64);not null;default:''" json:"sender_user_id,omitempty"`
	IsNPC        bool           `gorm:"column:is_npc;not null" json:"is_npc"`
	Content      string         `gorm:"column:content;type:text;not null" json:"content"`
	Metadata     datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null;index:idx_chat_message_chat_created,priority:2" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_message" }
