package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

// SSEClient is one open event stream. Channels and closed are guarded by
// the hub lock.
type SSEClient struct {
	ID       string
	UserID   string
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	once     sync.Once
	closed   bool
	dropped  atomic.Int64
	Logger   *logger.Logger
}

// Done is closed when the hub drops the client.
func (c *SSEClient) Done() <-chan struct{} { return c.done }

// offer queues msg without blocking and reports whether it fit.
func (c *SSEClient) offer(msg SSEMessage) bool {
	select {
	case c.Outbound <- msg:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

func (c *SSEClient) shutdown(release func(*SSEClient)) {
	c.once.Do(func() {
		close(c.done)
		release(c)
		close(c.Outbound)
	})
}
