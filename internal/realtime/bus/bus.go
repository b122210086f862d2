package bus

import (
	"context"

	"github.com/yungbote/observer-backend/internal/realtime"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "observer:sse"

// Bus carries SSE messages between API instances so a client connected to
// one node sees events emitted on another.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	// StartForwarder returns once the subscription is live.
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
