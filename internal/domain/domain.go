package domain

import (
	"github.com/yungbote/observer-backend/internal/domain/chat"
	"github.com/yungbote/observer-backend/internal/domain/notify"
	"github.com/yungbote/observer-backend/internal/domain/progression"
	"github.com/yungbote/observer-backend/internal/domain/user"
)

const (
	VarTotalXP      = progression.VarTotalXP
	VarAnomalyScore = progression.VarAnomalyScore
	VarObserverLoad = progression.VarObserverLoad

	ScoreMin = progression.ScoreMin
	ScoreMax = progression.ScoreMax

	OutcomeApplied = progression.OutcomeApplied
	OutcomePartial = progression.OutcomePartial
)

type User = user.User

type UserProgress = progression.UserProgress
type UserVariable = progression.UserVariable
type UserFlag = progression.UserFlag
type UserFlagAudit = progression.UserFlagAudit
type FiredEvent = progression.FiredEvent
type Effects = progression.Effects
type FlagEffect = progression.FlagEffect
type NotificationEffect = progression.NotificationEffect

type Notification = notify.Notification

type ChatMessage = chat.ChatMessage

// Models lists every table the engine owns, in migration order.
func Models() []any {
	return []any{
		&User{},
		&UserProgress{},
		&UserVariable{},
		&UserFlag{},
		&UserFlagAudit{},
		&FiredEvent{},
		&Notification{},
		&ChatMessage{},
	}
}
