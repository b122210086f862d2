package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/observer-backend/internal/data/repos/chat"
	"github.com/yungbote/observer-backend/internal/data/repos/notify"
	"github.com/yungbote/observer-backend/internal/data/repos/progression"
	"github.com/yungbote/observer-backend/internal/data/repos/user"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

type UserRepo = user.UserRepo

type UserVariableRepo = progression.UserVariableRepo
type UserFlagRepo = progression.UserFlagRepo
type FiredEventRepo = progression.FiredEventRepo
type UserProgressRepo = progression.UserProgressRepo

type NotificationRepo = notify.NotificationRepo

type ChatMessageRepo = chat.ChatMessageRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewUserVariableRepo(db *gorm.DB, baseLog *logger.Logger) UserVariableRepo {
	return progression.NewUserVariableRepo(db, baseLog)
}
func NewUserFlagRepo(db *gorm.DB, baseLog *logger.Logger) UserFlagRepo {
	return progression.NewUserFlagRepo(db, baseLog)
}
func NewFiredEventRepo(db *gorm.DB, baseLog *logger.Logger) FiredEventRepo {
	return progression.NewFiredEventRepo(db, baseLog)
}
func NewUserProgressRepo(db *gorm.DB, baseLog *logger.Logger) UserProgressRepo {
	return progression.NewUserProgressRepo(db, baseLog)
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return notify.NewNotificationRepo(db, baseLog)
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return chat.NewChatMessageRepo(db, baseLog)
}
