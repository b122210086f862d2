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

type UserVariableRepo interface {
	// Increment adds delta in a single upsert and returns the stored value.
	Increment(dbc dbctx.Context, userID, key string, delta int64) (int64, error)
	// IncrementClamped is Increment with the result bounded to [lo, hi] in SQL.
	IncrementClamped(dbc dbctx.Context, userID, key string, delta, lo, hi int64) (int64, error)
	Set(dbc dbctx.Context, userID, key string, value int64) error
	Get(dbc dbctx.Context, userID, key string) (int64, error)
	ListByUser(dbc dbctx.Context, userID string) ([]*types.UserVariable, error)
}

type userVariableRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserVariableRepo(db *gorm.DB, baseLog *logger.Logger) UserVariableRepo {
	return &userVariableRepo{db: db, log: baseLog.With("repo", "UserVariableRepo")}
}

func (r *userVariableRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

var variableConflictCols = []clause.Column{{Name: "user_id"}, {Name: "var_key"}}

func (r *userVariableRepo) Increment(dbc dbctx.Context, userID, key string, delta int64) (int64, error) {
	now := time.Now().UTC()
	var out int64
	err := r.dbx(dbc).WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		row := &types.UserVariable{UserID: userID, VarKey: key, Value: delta, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns: variableConflictCols,
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value":      gorm.Expr("user_variable.value + ?", delta),
				"updated_at": now,
			}),
		}).Create(row).Error; err != nil {
			return err
		}
		return readValue(tx, userID, key, &out)
	})
	if err != nil {
		return 0, storeerr.Classify("increment variable", err)
	}
	return out, nil
}

func (r *userVariableRepo) IncrementClamped(dbc dbctx.Context, userID, key string, delta, lo, hi int64) (int64, error) {
	now := time.Now().UTC()
	var out int64
	err := r.dbx(dbc).WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		row := &types.UserVariable{UserID: userID, VarKey: key, Value: clamp(delta, lo, hi), UpdatedAt: now}
		expr := gorm.Expr(
			"CASE WHEN user_variable.value + ? < ? THEN ? WHEN user_variable.value + ? > ? THEN ? ELSE user_variable.value + ? END",
			delta, lo, lo, delta, hi, hi, delta,
		)
		if err := tx.Clauses(clause.OnConflict{
			Columns:   variableConflictCols,
			DoUpdates: clause.Assignments(map[string]interface{}{"value": expr, "updated_at": now}),
		}).Create(row).Error; err != nil {
			return err
		}
		return readValue(tx, userID, key, &out)
	})
	if err != nil {
		return 0, storeerr.Classify("increment clamped variable", err)
	}
	return out, nil
}

func (r *userVariableRepo) Set(dbc dbctx.Context, userID, key string, value int64) error {
	now := time.Now().UTC()
	row := &types.UserVariable{UserID: userID, VarKey: key, Value: value, UpdatedAt: now}
	err := r.dbx(dbc).WithContext(dbc.Ctx).Clauses(clause.OnConflict{
		Columns:   variableConflictCols,
		DoUpdates: clause.Assignments(map[string]interface{}{"value": value, "updated_at": now}),
	}).Create(row).Error
	return storeerr.Classify("set variable", err)
}

// Get returns 0 for a variable that was never written.
func (r *userVariableRepo) Get(dbc dbctx.Context, userID, key string) (int64, error) {
	var out int64
	if err := readValue(r.dbx(dbc).WithContext(dbc.Ctx), userID, key, &out); err != nil {
		return 0, storeerr.Classify("get variable", err)
	}
	return out, nil
}

func (r *userVariableRepo) ListByUser(dbc dbctx.Context, userID string) ([]*types.UserVariable, error) {
	out := []*types.UserVariable{}
	if userID == "" {
		return out, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("var_key ASC").
		Find(&out).Error; err != nil {
		return nil, storeerr.Classify("list variables", err)
	}
	return out, nil
}

func readValue(tx *gorm.DB, userID, key string, out *int64) error {
	var rows []int64
	if err := tx.Model(&types.UserVariable{}).
		Where("user_id = ? AND var_key = ?", userID, key).
		Limit(1).
		Pluck("value", &rows).Error; err != nil {
		return err
	}
	if len(rows) > 0 {
		*out = rows[0]
	} else {
		*out = 0
	}
	return nil
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
