package progression

import "time"

// Well-known variable keys.
const (
	VarTotalXP      = "total_xp"
	VarAnomalyScore = "anomaly_score"
	VarObserverLoad = "observer_load"
)

// Bounds for score-like variables.
const (
	ScoreMin int64 = 0
	ScoreMax int64 = 100
)

type UserVariable struct {
	UserID    string    `gorm:"column:user_id;type:varchar(64);primaryKey" json:"user_id"`
	VarKey    string    `gorm:"column:var_key;type:varchar(64);primaryKey" json:"key"`
	Value     int64     `gorm:"column:value;not null;default:0" json:"value"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (UserVariable) TableName() string { return "user_variable" }

type UserFlag struct {
	UserID  string    `gorm:"column:user_id;type:varchar(64);primaryKey" json:"user_id"`
	FlagKey string    `gorm:"column:flag_key;type:varchar(64);primaryKey" json:"key"`
	Value   string    `gorm:"column:value;type:text;not null" json:"value"`
	SetAt   time.Time `gorm:"column:set_at;not null" json:"set_at"`
}

func (UserFlag) TableName() string { return "user_flag" }

// UserFlagAudit is an append-only trail of flag writes.
type UserFlagAudit struct {
	ID      string    `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	UserID  string    `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	FlagKey string    `gorm:"column:flag_key;type:varchar(64);not null" json:"key"`
	Value   string    `gorm:"column:value;type:text;not null" json:"value"`
	Source  string    `gorm:"column:source;type:varchar(128);not null" json:"source"`
	SetAt   time.Time `gorm:"column:set_at;not null;index" json:"set_at"`
}

func (UserFlagAudit) TableName() string { return "user_flag_audit" }
