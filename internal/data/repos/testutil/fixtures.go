package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/observer-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, username, division string) *types.User {
	tb.Helper()
	now := time.Now().UTC()
	u := &types.User{
		ID:        uuid.NewString(),
		Username:  username,
		Division:  division,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedInactiveUser(tb testing.TB, ctx context.Context, tx *gorm.DB, username, division string) *types.User {
	tb.Helper()
	u := SeedUser(tb, ctx, tx, username, division)
	if err := tx.WithContext(ctx).Model(&types.User{}).Where("id = ?", u.ID).Update("is_active", false).Error; err != nil {
		tb.Fatalf("deactivate user: %v", err)
	}
	u.IsActive = false
	return u
}

// SeedProgress writes both the total_xp variable and the projection.
func SeedProgress(tb testing.TB, ctx context.Context, tx *gorm.DB, userID string, totalXP int64, level int) {
	tb.Helper()
	now := time.Now().UTC()
	if err := tx.WithContext(ctx).Create(&types.UserVariable{
		UserID:    userID,
		VarKey:    types.VarTotalXP,
		Value:     totalXP,
		UpdatedAt: now,
	}).Error; err != nil {
		tb.Fatalf("seed total_xp: %v", err)
	}
	if err := tx.WithContext(ctx).Create(&types.UserProgress{
		UserID:    userID,
		TotalXP:   totalXP,
		Level:     level,
		UpdatedAt: now,
	}).Error; err != nil {
		tb.Fatalf("seed progress: %v", err)
	}
}

func PtrTime(v time.Time) *time.Time { return &v }
