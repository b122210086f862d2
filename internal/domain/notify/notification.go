package notify

import "time"

type Notification struct {
	ID        string     `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	UserID    string     `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	BatchID   string     `gorm:"column:batch_id;type:varchar(64);not null;index" json:"batch_id"`
	Type      string     `gorm:"column:type;type:varchar(32);not null" json:"type"`
	Title     string     `gorm:"column:title;type:text;not null" json:"title"`
	Body      string     `gorm:"column:body;type:text;not null" json:"body"`
	IsRead    bool       `gorm:"column:is_read;not null;index" json:"is_read"`
	CreatedAt time.Time  `gorm:"column:created_at;not null;index" json:"created_at"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index" json:"expires_at,omitempty"`
}

func (Notification) TableName() string { return "notification" }
