package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/data/repos/storeerr"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

type ChatMessageRepo interface {
	Create(dbc dbctx.Context, row *types.ChatMessage) (*types.ChatMessage, error)
	// ListRecent returns the newest messages of a channel in chronological order.
	ListRecent(dbc dbctx.Context, chatID string, limit int) ([]*types.ChatMessage, error)
	ListSince(dbc dbctx.Context, chatID string, after time.Time, limit int) ([]*types.ChatMessage, error)
}

type chatMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, log *logger.Logger) ChatMessageRepo {
	return &chatMessageRepo{db: db, log: log.With("repo", "ChatMessageRepo")}
}

func (r *chatMessageRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *chatMessageRepo) Create(dbc dbctx.Context, row *types.ChatMessage) (*types.ChatMessage, error) {
	if row == nil {
		return nil, fmt.Errorf("missing message")
	}
	if strings.TrimSpace(row.ChatID) == "" {
		return nil, fmt.Errorf("missing chat_id")
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, storeerr.Classify("create chat message", err)
	}
	return row, nil
}

func (r *chatMessageRepo) ListRecent(dbc dbctx.Context, chatID string, limit int) ([]*types.ChatMessage, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("missing chat_id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.ChatMessage
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, storeerr.Classify("list chat messages", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *chatMessageRepo) ListSince(dbc dbctx.Context, chatID string, after time.Time, limit int) ([]*types.ChatMessage, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("missing chat_id")
	}
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var out []*types.ChatMessage
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("chat_id = ? AND created_at > ?", chatID, after.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, storeerr.Classify("list chat messages since", err)
	}
	return out, nil
}
