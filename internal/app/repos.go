package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/observer-backend/internal/data/repos"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

type Repos struct {
	User         repos.UserRepo
	UserVariable repos.UserVariableRepo
	UserFlag     repos.UserFlagRepo
	FiredEvent   repos.FiredEventRepo
	UserProgress repos.UserProgressRepo
	Notification repos.NotificationRepo
	ChatMessage  repos.ChatMessageRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		UserVariable: repos.NewUserVariableRepo(db, log),
		UserFlag:     repos.NewUserFlagRepo(db, log),
		FiredEvent:   repos.NewFiredEventRepo(db, log),
		UserProgress: repos.NewUserProgressRepo(db, log),
		Notification: repos.NewNotificationRepo(db, log),
		ChatMessage:  repos.NewChatMessageRepo(db, log),
	}
}
