package notify

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/data/repos/storeerr"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

type NotificationRepo interface {
	Create(dbc dbctx.Context, row *types.Notification) (*types.Notification, error)
	// ListByUser excludes expired rows. Newest first.
	ListByUser(dbc dbctx.Context, userID string, unreadOnly bool, limit int) ([]*types.Notification, error)
	// MarkRead only touches rows owned by userID and returns how many changed.
	MarkRead(dbc dbctx.Context, userID string, ids []string) (int64, error)
	CountUnread(dbc dbctx.Context, userID string) (int64, error)
	CountByBatch(dbc dbctx.Context, batchID string) (int64, error)
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{db: db, log: baseLog.With("repo", "NotificationRepo")}
}

func (r *notificationRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *notificationRepo) Create(dbc dbctx.Context, row *types.Notification) (*types.Notification, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, storeerr.Classify("create notification", err)
	}
	return row, nil
}

func (r *notificationRepo) visible(dbc dbctx.Context, userID string) *gorm.DB {
	now := time.Now().UTC()
	return r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.Notification{}).
		Where("user_id = ?", userID).
		Where("(expires_at IS NULL OR expires_at > ?)", now)
}

func (r *notificationRepo) ListByUser(dbc dbctx.Context, userID string, unreadOnly bool, limit int) ([]*types.Notification, error) {
	out := []*types.Notification{}
	if userID == "" {
		return out, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.visible(dbc, userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, storeerr.Classify("list notifications", err)
	}
	return out, nil
}

func (r *notificationRepo) MarkRead(dbc dbctx.Context, userID string, ids []string) (int64, error) {
	if userID == "" || len(ids) == 0 {
		return 0, nil
	}
	res := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.Notification{}).
		Where("user_id = ? AND id IN ? AND is_read = ?", userID, ids, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, storeerr.Classify("mark notifications read", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *notificationRepo) CountUnread(dbc dbctx.Context, userID string) (int64, error) {
	var n int64
	if err := r.visible(dbc, userID).Where("is_read = ?", false).Count(&n).Error; err != nil {
		return 0, storeerr.Classify("count unread notifications", err)
	}
	return n, nil
}

func (r *notificationRepo) CountByBatch(dbc dbctx.Context, batchID string) (int64, error) {
	var n int64
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.Notification{}).
		Where("batch_id = ?", batchID).
		Count(&n).Error; err != nil {
		return 0, storeerr.Classify("count batch notifications", err)
	}
	return n, nil
}
