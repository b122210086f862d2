package progression

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/data/repos/storeerr"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

type UserProgressRepo interface {
	// Get returns a zero projection for users that never progressed.
	Get(dbc dbctx.Context, userID string) (*types.UserProgress, error)
	// UpsertXP writes total_xp/level. A writer holding an older total never
	// overwrites a newer one.
	UpsertXP(dbc dbctx.Context, userID string, totalXP int64, level int) error
	UpsertScores(dbc dbctx.Context, userID string, anomaly, observer float64) error
	ListAtLeastLevel(dbc dbctx.Context, level int) ([]*types.UserProgress, error)
}

type userProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProgressRepo(db *gorm.DB, baseLog *logger.Logger) UserProgressRepo {
	return &userProgressRepo{db: db, log: baseLog.With("repo", "UserProgressRepo")}
}

func (r *userProgressRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *userProgressRepo) Get(dbc dbctx.Context, userID string) (*types.UserProgress, error) {
	var rows []*types.UserProgress
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, storeerr.Classify("get progress", err)
	}
	if len(rows) == 0 {
		return &types.UserProgress{UserID: userID}, nil
	}
	return rows[0], nil
}

func (r *userProgressRepo) UpsertXP(dbc dbctx.Context, userID string, totalXP int64, level int) error {
	now := time.Now().UTC()
	row := &types.UserProgress{UserID: userID, TotalXP: totalXP, Level: level, UpdatedAt: now}
	err := r.dbx(dbc).WithContext(dbc.Ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_xp":   totalXP,
			"level":      level,
			"updated_at": now,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "user_progress.total_xp <= ?", Vars: []interface{}{totalXP}},
		}},
	}).Create(row).Error
	return storeerr.Classify("upsert progress xp", err)
}

func (r *userProgressRepo) UpsertScores(dbc dbctx.Context, userID string, anomaly, observer float64) error {
	now := time.Now().UTC()
	row := &types.UserProgress{UserID: userID, AnomalyScore: anomaly, ObserverLoad: observer, UpdatedAt: now}
	err := r.dbx(dbc).WithContext(dbc.Ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"anomaly_score": anomaly,
			"observer_load": observer,
			"updated_at":    now,
		}),
	}).Create(row).Error
	return storeerr.Classify("upsert progress scores", err)
}

func (r *userProgressRepo) ListAtLeastLevel(dbc dbctx.Context, level int) ([]*types.UserProgress, error) {
	out := []*types.UserProgress{}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("level >= ?", level).
		Order("user_id ASC").
		Find(&out).Error; err != nil {
		return nil, storeerr.Classify("list progress by level", err)
	}
	return out, nil
}
