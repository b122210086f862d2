package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/observer-backend/internal/http/handlers"
	httpMW "github.com/yungbote/observer-backend/internal/http/middleware"
	"github.com/yungbote/observer-backend/internal/observability"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	RequestTimeout time.Duration
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler       *httpH.HealthHandler
	ProgressHandler     *httpH.ProgressHandler
	NotificationHandler *httpH.NotificationHandler
	ChatHandler         *httpH.ChatHandler
	RealtimeHandler     *httpH.RealtimeHandler
	AdminHandler        *httpH.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, httpMW.SSEStreamRoute))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Realtime (SSE); long-lived, so outside the request timeout
	if cfg.RealtimeHandler != nil {
		api.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
	}

	protected := api.Group("")
	protected.Use(httpMW.RequestTimeout(cfg.RequestTimeout))
	{
		if cfg.RealtimeHandler != nil {
			protected.POST("/sse/subscribe", cfg.RealtimeHandler.SSESubscribe)
			protected.POST("/sse/unsubscribe", cfg.RealtimeHandler.SSEUnsubscribe)
		}

		// Progress (Me)
		if cfg.ProgressHandler != nil {
			protected.GET("/me/progress", cfg.ProgressHandler.GetProgress)
			protected.GET("/me/events", cfg.ProgressHandler.ListEvents)
			protected.POST("/me/events/:id/fire", cfg.ProgressHandler.FireEvent)
			protected.POST("/me/xp", cfg.ProgressHandler.GrantXP)
			protected.POST("/me/daily-login", cfg.ProgressHandler.DailyLogin)
		}

		// Notifications
		if cfg.NotificationHandler != nil {
			protected.GET("/me/notifications", cfg.NotificationHandler.List)
			protected.POST("/me/notifications/read", cfg.NotificationHandler.MarkRead)
		}

		// Chat
		if cfg.ChatHandler != nil {
			protected.GET("/chats/:id/messages", cfg.ChatHandler.ListMessages)
			protected.POST("/chats/:id/messages", cfg.ChatHandler.PostMessage)
		}
	}

	// Admin
	if cfg.AdminHandler != nil {
		admin := protected.Group("/admin")
		if cfg.AuthMiddleware != nil {
			admin.Use(cfg.AuthMiddleware.RequireAdmin())
		}
		admin.POST("/events/fire", cfg.AdminHandler.FireEvent)
		admin.POST("/xp", cfg.AdminHandler.GrantXP)
		admin.POST("/notifications", cfg.AdminHandler.SendNotification)
		admin.POST("/variables", cfg.AdminHandler.UpdateVariable)
		admin.POST("/flags", cfg.AdminHandler.SetFlag)
		admin.POST("/scores", cfg.AdminHandler.AdjustScores)
	}

	return r
}
