package services

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/observer-backend/internal/narrative"
	"github.com/yungbote/observer-backend/internal/observability"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

// NpcDeliverFunc writes a persona reply. It runs on a timer goroutine with
// its own bounded context.
type NpcDeliverFunc func(ctx context.Context, chatID string, persona narrative.Persona, match NpcMatchResult) error

// NpcResponder schedules delayed persona replies. Each reply is a
// fire-and-forget timer; Stop cancels everything still pending.
type NpcResponder struct {
	log     *logger.Logger
	deliver NpcDeliverFunc
	timeout time.Duration

	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	stopped bool
	wg      sync.WaitGroup
}

func NewNpcResponder(baseLog *logger.Logger, deliver NpcDeliverFunc, timeout time.Duration) *NpcResponder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NpcResponder{
		log:     baseLog.With("service", "NpcResponder"),
		deliver: deliver,
		timeout: timeout,
		timers:  map[*time.Timer]struct{}{},
	}
}

// Schedule returns false if the responder was stopped.
func (r *NpcResponder) Schedule(chatID string, persona narrative.Persona, match NpcMatchResult) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	delay := time.Duration(match.DelayMs) * time.Millisecond

	var t *time.Timer
	r.wg.Add(1)
	t = time.AfterFunc(delay, func() {
		defer r.wg.Done()
		r.mu.Lock()
		delete(r.timers, t)
		r.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.deliver(ctx, chatID, persona, match); err != nil {
			observability.Current().IncNpcReply(persona.Username, "failed")
			r.log.Warn("npc reply failed", "error", err, "chat_id", chatID, "npc", persona.Username)
			return
		}
		observability.Current().IncNpcReply(persona.Username, "sent")
	})
	r.timers[t] = struct{}{}
	return true
}

// Stop cancels pending replies, waits for in-flight deliveries and reports
// how many replies were cancelled. Later calls return 0.
func (r *NpcResponder) Stop() int {
	r.mu.Lock()
	r.stopped = true
	cancelled := 0
	for t := range r.timers {
		if t.Stop() {
			r.wg.Done()
			cancelled++
		}
		delete(r.timers, t)
	}
	r.mu.Unlock()
	r.wg.Wait()
	return cancelled
}
