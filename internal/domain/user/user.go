package user

import "time"

// User is the engine's read-only view of an account. Accounts are created
// and authenticated elsewhere; the engine reads division/activity/role for
// notification targeting and admin checks.
type User struct {
	ID       string `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Username string `gorm:"column:username;type:varchar(64);not null;uniqueIndex" json:"username"`
	Division string `gorm:"column:division;type:varchar(64);not null;index" json:"division"`
	IsActive bool   `gorm:"column:is_active;not null;index" json:"is_active"`
	IsAdmin  bool   `gorm:"column:is_admin;not null" json:"is_admin"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (User) TableName() string { return "user_account" }
