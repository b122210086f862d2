package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

// Metrics is an in-process registry exposed in Prometheus text format.
// Every method is safe on a nil receiver so callers never branch on
// whether metrics are enabled.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter

	eventsFired       *CounterVec
	xpGranted         *CounterVec
	levelUps          *Counter
	scoreAdjustments  *CounterVec
	notificationsSent *CounterVec
	npcMatches        *CounterVec
	npcReplies        *CounterVec
	storeUnavailable  *CounterVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge

	collectors []promWriter
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init creates the process registry once. It returns nil when disabled.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// New builds a standalone registry; tests use it directly.
func New() *Metrics {
	m := &Metrics{
		apiRequests: NewCounterVec("obs_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"obs_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		apiInflight: NewGauge("obs_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("obs_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("obs_api_requests_error_total", "Total API requests with 5xx status."),

		eventsFired:       NewCounterVec("obs_events_fired_total", "Narrative event fire attempts by outcome.", []string{"outcome"}),
		xpGranted:         NewCounterVec("obs_xp_granted_total", "XP granted by source.", []string{"source"}),
		levelUps:          NewCounter("obs_level_ups_total", "Level-up transitions."),
		scoreAdjustments:  NewCounterVec("obs_score_adjustments_total", "Score adjustments by variable.", []string{"key"}),
		notificationsSent: NewCounterVec("obs_notifications_total", "Notification rows by target kind and status.", []string{"target", "status"}),
		npcMatches:        NewCounterVec("obs_npc_matches_total", "Chat messages that triggered a persona.", []string{"persona"}),
		npcReplies:        NewCounterVec("obs_npc_replies_total", "Delayed persona replies by status.", []string{"persona", "status"}),
		storeUnavailable:  NewCounterVec("obs_store_unavailable_total", "Operations that failed with a transient store error.", []string{"op"}),

		dbStats:   NewGaugeVec("obs_db_pool", "database/sql pool statistics.", []string{"stat"}),
		redisUp:   NewGauge("obs_redis_up", "Redis reachability (1/0)."),
		redisPing: NewGauge("obs_redis_ping_seconds", "Redis ping latency in seconds."),
	}
	m.collectors = []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError,
		m.eventsFired, m.xpGranted, m.levelUps, m.scoreAdjustments,
		m.notificationsSent, m.npcMatches, m.npcReplies, m.storeUnavailable,
		m.dbStats, m.redisUp, m.redisPing,
	}
	return m
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.collectors {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// IncEventFired records one fire attempt: applied, duplicate, partial,
// rejected or error.
func (m *Metrics) IncEventFired(outcome string) {
	if m == nil {
		return
	}
	m.eventsFired.Inc(orUnknown(outcome))
}

func (m *Metrics) AddXPGranted(source string, xp int64, leveledUp bool) {
	if m == nil {
		return
	}
	m.xpGranted.Add(float64(xp), orUnknown(source))
	if leveledUp {
		m.levelUps.Inc()
	}
}

func (m *Metrics) IncScoreAdjustment(key string) {
	if m == nil {
		return
	}
	m.scoreAdjustments.Inc(orUnknown(key))
}

func (m *Metrics) AddNotifications(target string, sent, failed int) {
	if m == nil {
		return
	}
	if sent > 0 {
		m.notificationsSent.Add(float64(sent), orUnknown(target), "sent")
	}
	if failed > 0 {
		m.notificationsSent.Add(float64(failed), orUnknown(target), "failed")
	}
}

func (m *Metrics) IncNpcMatch(persona string) {
	if m == nil {
		return
	}
	m.npcMatches.Inc(orUnknown(persona))
}

func (m *Metrics) IncNpcReply(persona, status string) {
	if m == nil {
		return
	}
	m.npcReplies.Inc(orUnknown(persona), orUnknown(status))
}

func (m *Metrics) IncStoreUnavailable(op string) {
	if m == nil {
		return
	}
	m.storeUnavailable.Inc(orUnknown(op))
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

// StartRedisCollector pings the shared client; it does not own or close it.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

func isServerErrorStatus(status string) bool {
	status = strings.TrimSpace(status)
	return len(status) >= 3 && status[0] == '5'
}
