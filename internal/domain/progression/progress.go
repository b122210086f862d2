package progression

import "time"

// UserProgress is a read projection. total_xp in user_variable is the source
// of truth; Level always equals LevelFor(TotalXP) for the table in use.
type UserProgress struct {
	UserID       string    `gorm:"column:user_id;type:varchar(64);primaryKey" json:"user_id"`
	TotalXP      int64     `gorm:"column:total_xp;not null;default:0" json:"total_xp"`
	Level        int       `gorm:"column:level;not null;default:0;index" json:"level"`
	AnomalyScore float64   `gorm:"column:anomaly_score;not null;default:0" json:"anomaly_score"`
	ObserverLoad float64   `gorm:"column:observer_load;not null;default:0" json:"observer_load"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (UserProgress) TableName() string { return "user_progress" }
