package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/observer-backend/internal/data/repos"
	"github.com/yungbote/observer-backend/internal/data/repos/testutil"
	"github.com/yungbote/observer-backend/internal/narrative"
	"github.com/yungbote/observer-backend/internal/realtime"
)

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *recordingEmitter) count(ev realtime.SSEEvent) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, m := range e.msgs {
		if m.Event == ev {
			n++
		}
	}
	return n
}

type harness struct {
	db      *gorm.DB
	users   repos.UserRepo
	fired   repos.FiredEventRepo
	notes   repos.NotificationRepo
	chats   repos.ChatMessageRepo
	state   StateService
	notify  NotificationService
	events  EventService
	catalog *narrative.Catalog
	emit    *recordingEmitter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	catalog, err := narrative.Load("")
	require.NoError(t, err)

	h := &harness{
		db:      db,
		users:   repos.NewUserRepo(db, log),
		fired:   repos.NewFiredEventRepo(db, log),
		notes:   repos.NewNotificationRepo(db, log),
		chats:   repos.NewChatMessageRepo(db, log),
		catalog: catalog,
		emit:    &recordingEmitter{},
	}
	h.state = NewStateService(db, log, DefaultLevelTable(),
		repos.NewUserVariableRepo(db, log),
		repos.NewUserFlagRepo(db, log),
		repos.NewUserProgressRepo(db, log),
		nil,
	)
	h.notify = NewNotificationService(log, h.users, h.notes, h.emit, 4)
	h.events = NewEventService(log, h.fired, h.state, h.notify, catalog, h.emit)
	return h
}

// failingNotifier fails every send.
type failingNotifier struct{ NotificationService }

func (failingNotifier) Send(context.Context, SendNotificationRequest) (SendResult, error) {
	return SendResult{}, ErrStoreUnavailable
}
