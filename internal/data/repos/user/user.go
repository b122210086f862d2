package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/data/repos/storeerr"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByID(dbc dbctx.Context, userID string) (*types.User, error)
	GetByUsername(dbc dbctx.Context, username string) (*types.User, error)

	// Target resolution. Only active accounts are returned.
	ListActiveIDs(dbc dbctx.Context) ([]string, error)
	ListActiveIDsByDivision(dbc dbctx.Context, division string) ([]string, error)
	ListActiveIDsAtLeastLevel(dbc dbctx.Context, level int) ([]string, error)
	ActiveIDExists(dbc dbctx.Context, userID string) (bool, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return ur.db
}

func (ur *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	now := time.Now().UTC()
	for _, u := range users {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		u.Division = strings.ToLower(strings.TrimSpace(u.Division))
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		u.UpdatedAt = now
	}
	if err := ur.dbx(dbc).WithContext(dbc.Ctx).Create(&users).Error; err != nil {
		return nil, storeerr.Classify("create users", err)
	}
	return users, nil
}

func (ur *userRepo) GetByID(dbc dbctx.Context, userID string) (*types.User, error) {
	var out types.User
	if err := ur.dbx(dbc).WithContext(dbc.Ctx).
		Where("id = ?", userID).
		Take(&out).Error; err != nil {
		return nil, storeerr.Classify("get user", err)
	}
	return &out, nil
}

func (ur *userRepo) GetByUsername(dbc dbctx.Context, username string) (*types.User, error) {
	var out types.User
	if err := ur.dbx(dbc).WithContext(dbc.Ctx).
		Where("username = ?", strings.TrimSpace(username)).
		Take(&out).Error; err != nil {
		return nil, storeerr.Classify("get user by username", err)
	}
	return &out, nil
}

func (ur *userRepo) ListActiveIDs(dbc dbctx.Context) ([]string, error) {
	var ids []string
	if err := ur.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("is_active = ?", true).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, storeerr.Classify("list active users", err)
	}
	return ids, nil
}

func (ur *userRepo) ListActiveIDsByDivision(dbc dbctx.Context, division string) ([]string, error) {
	var ids []string
	if err := ur.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("is_active = ? AND division = ?", true, strings.ToLower(strings.TrimSpace(division))).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, storeerr.Classify("list division users", err)
	}
	return ids, nil
}

// ListActiveIDsAtLeastLevel treats users without a progress row as level 0.
func (ur *userRepo) ListActiveIDsAtLeastLevel(dbc dbctx.Context, level int) ([]string, error) {
	var ids []string
	if err := ur.dbx(dbc).WithContext(dbc.Ctx).
		Table("user_account AS u").
		Joins("LEFT JOIN user_progress AS p ON p.user_id = u.id").
		Where("u.is_active = ? AND COALESCE(p.level, 0) >= ?", true, level).
		Order("u.id ASC").
		Pluck("u.id", &ids).Error; err != nil {
		return nil, storeerr.Classify("list level users", err)
	}
	return ids, nil
}

func (ur *userRepo) ActiveIDExists(dbc dbctx.Context, userID string) (bool, error) {
	var n int64
	if err := ur.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.User{}).
		Where("id = ? AND is_active = ?", userID, true).
		Count(&n).Error; err != nil {
		return false, storeerr.Classify("check user", err)
	}
	return n > 0, nil
}
