package app

import (
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/observer-backend/internal/narrative"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
	"github.com/yungbote/observer-backend/internal/realtime"
	"github.com/yungbote/observer-backend/internal/services"
)

type Services struct {
	Auth     services.AuthService
	State    services.StateService
	Notify   services.NotificationService
	Events   services.EventService
	Chat     services.ChatService
	Catalog  *narrative.Catalog
	Emitter  services.SSEEmitter
	Matcher  *services.NpcMatcher
	Progress services.ProgressCache
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, hub *realtime.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	catalog, err := narrative.Load(cfg.CatalogPath)
	if err != nil {
		return Services{}, fmt.Errorf("load narrative catalog: %w", err)
	}
	levels, err := cfg.Levels()
	if err != nil {
		return Services{}, err
	}

	var emit services.SSEEmitter = &services.HubEmitter{Hub: hub}
	if clients.SSEBus != nil {
		emit = &services.RedisEmitter{Bus: clients.SSEBus, Log: log}
	}

	var cache services.ProgressCache = services.NoopProgressCache{}
	if clients.Redis != nil && cfg.ProgressCacheTTL > 0 {
		cache = services.NewRedisProgressCache(clients.Redis, cfg.ProgressCacheTTL, log)
	}

	state := services.NewStateService(db, log, levels,
		repos.UserVariable, repos.UserFlag, repos.UserProgress, cache)
	notify := services.NewNotificationService(log, repos.User, repos.Notification, emit, cfg.NotifyConcurrency)
	events := services.NewEventService(log, repos.FiredEvent, state, notify, catalog, emit)

	matcher, err := services.NewNpcMatcher(catalog.Personas, rand.NewSource(time.Now().UnixNano()))
	if err != nil {
		return Services{}, err
	}
	chat := services.NewChatService(log, repos.ChatMessage, events, matcher, emit, services.WithNpcReplyTimeout(cfg.NpcReplyTimeout))

	return Services{
		Auth:     services.NewAuthService(log, repos.User, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		State:    state,
		Notify:   notify,
		Events:   events,
		Chat:     chat,
		Catalog:  catalog,
		Emitter:  emit,
		Matcher:  matcher,
		Progress: cache,
	}, nil
}
