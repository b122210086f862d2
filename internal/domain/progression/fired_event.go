package progression

import (
	"time"

	"gorm.io/datatypes"
)

const (
	OutcomeApplied = "applied"
	OutcomePartial = "partial"
)

// FiredEvent is the claim row for one (user, event) pair. The composite
// primary key is the only mutual exclusion for firing.
type FiredEvent struct {
	UserID  string         `gorm:"column:user_id;type:varchar(64);primaryKey" json:"user_id"`
	EventID string         `gorm:"column:event_id;type:varchar(191);primaryKey" json:"event_id"`
	FiredAt time.Time      `gorm:"column:fired_at;not null;index" json:"fired_at"`
	Effects datatypes.JSON `gorm:"column:effects" json:"effects,omitempty"`
	Outcome string         `gorm:"column:outcome;type:varchar(16);not null" json:"outcome"`
	Warning string         `gorm:"column:warning;type:text;not null;default:''" json:"warning,omitempty"`
}

func (FiredEvent) TableName() string { return "fired_event" }
