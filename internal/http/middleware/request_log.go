package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/observer-backend/internal/pkg/ctxutil"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

// SSEStreamRoute is the long-lived event stream; latency rules skip it.
const SSEStreamRoute = "/api/sse/stream"

// slowRequest promotes an otherwise successful request to a warning.
const slowRequest = 2 * time.Second

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		td := ctxutil.GetTraceData(c.Request.Context())
		rd := ctxutil.GetRequestData(c.Request.Context())

		elapsed := time.Since(start)
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		}
		// event keys and chat ids are the useful part of most paths
		for _, p := range c.Params {
			fields = append(fields, "param_"+p.Key, p.Value)
		}
		if td != nil {
			if td.TraceID != "" {
				fields = append(fields, "trace_id", td.TraceID)
			}
			if td.RequestID != "" {
				fields = append(fields, "request_id", td.RequestID)
			}
		}
		if rd != nil {
			if rd.UserID != "" {
				fields = append(fields, "user_id", rd.UserID)
			}
			if rd.SessionID != "" {
				fields = append(fields, "session_id", rd.SessionID)
			}
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, "error", errs.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		case elapsed > slowRequest && c.FullPath() != SSEStreamRoute:
			log.Warn("slow HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
