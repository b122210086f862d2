package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/data/repos/storeerr"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

type UserFlagRepo interface {
	// Set overwrites value and set_at for (user, key) and appends an audit row.
	Set(dbc dbctx.Context, userID, key, value, source string) (*types.UserFlag, error)
	Get(dbc dbctx.Context, userID, key string) (*types.UserFlag, error)
	ListByUser(dbc dbctx.Context, userID string) ([]*types.UserFlag, error)
	ListAudit(dbc dbctx.Context, userID string, limit int) ([]*types.UserFlagAudit, error)
}

type userFlagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserFlagRepo(db *gorm.DB, baseLog *logger.Logger) UserFlagRepo {
	return &userFlagRepo{db: db, log: baseLog.With("repo", "UserFlagRepo")}
}

func (r *userFlagRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *userFlagRepo) Set(dbc dbctx.Context, userID, key, value, source string) (*types.UserFlag, error) {
	now := time.Now().UTC()
	row := &types.UserFlag{UserID: userID, FlagKey: key, Value: value, SetAt: now}
	err := r.dbx(dbc).WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "flag_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "set_at"}),
		}).Create(row).Error; err != nil {
			return err
		}
		audit := &types.UserFlagAudit{
			ID:      uuid.NewString(),
			UserID:  userID,
			FlagKey: key,
			Value:   value,
			Source:  source,
			SetAt:   now,
		}
		return tx.Create(audit).Error
	})
	if err != nil {
		return nil, storeerr.Classify("set flag", err)
	}
	return row, nil
}

func (r *userFlagRepo) Get(dbc dbctx.Context, userID, key string) (*types.UserFlag, error) {
	var out types.UserFlag
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ? AND flag_key = ?", userID, key).
		Take(&out).Error; err != nil {
		return nil, storeerr.Classify("get flag", err)
	}
	return &out, nil
}

func (r *userFlagRepo) ListByUser(dbc dbctx.Context, userID string) ([]*types.UserFlag, error) {
	out := []*types.UserFlag{}
	if userID == "" {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("flag_key ASC").
		Find(&out).Error; err != nil {
		return nil, storeerr.Classify("list flags", err)
	}
	return out, nil
}

func (r *userFlagRepo) ListAudit(dbc dbctx.Context, userID string, limit int) ([]*types.UserFlagAudit, error) {
	out := []*types.UserFlagAudit{}
	if userID == "" {
		return out, nil
	}
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("set_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, storeerr.Classify("list flag audit", err)
	}
	return out, nil
}
