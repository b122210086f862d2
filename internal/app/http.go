package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/observer-backend/internal/http"
	httpH "github.com/yungbote/observer-backend/internal/http/handlers"
	httpMW "github.com/yungbote/observer-backend/internal/http/middleware"
	"github.com/yungbote/observer-backend/internal/observability"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
	"github.com/yungbote/observer-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health       *httpH.HealthHandler
	Progress     *httpH.ProgressHandler
	Notification *httpH.NotificationHandler
	Chat         *httpH.ChatHandler
	Realtime     *httpH.RealtimeHandler
	Admin        *httpH.AdminHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, clients Clients, repos Repos, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	checks := map[string]func(ctx context.Context) error{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if clients.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return clients.Redis.Ping(ctx).Err() }
	}
	return Handlers{
		Health:       httpH.NewHealthHandler(checks),
		Progress:     httpH.NewProgressHandler(services.State, services.Events),
		Notification: httpH.NewNotificationHandler(services.Notify),
		Chat:         httpH.NewChatHandler(services.Chat, repos.User),
		Realtime:     httpH.NewRealtimeHandler(log, sseHub),
		Admin:        httpH.NewAdminHandler(log, services.State, services.Events, services.Notify),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	serviceName := ""
	if cfg.OtelEnabled {
		serviceName = cfg.OtelServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:                 log.With("component", "http"),
		ServiceName:         serviceName,
		CORSOrigins:         cfg.CORSOrigins,
		RequestTimeout:      cfg.RequestTimeout,
		Metrics:             metrics,
		AuthMiddleware:      middleware.Auth,
		HealthHandler:       handlers.Health,
		ProgressHandler:     handlers.Progress,
		NotificationHandler: handlers.Notification,
		ChatHandler:         handlers.Chat,
		RealtimeHandler:     handlers.Realtime,
		AdminHandler:        handlers.Admin,
	})
}
