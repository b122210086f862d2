package services

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/observer-backend/internal/data/repos"
	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/observability"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
	"github.com/yungbote/observer-backend/internal/realtime"
)

const defaultNotifyConcurrency = 8

type SendNotificationRequest struct {
	Target string
	Type   string
	Title  string
	Body   string
	// TTL > 0 sets expires_at; expired rows are hidden from listings.
	TTL time.Duration
}

type SendResult struct {
	BatchID       string `json:"batch_id"`
	ResolvedCount int    `json:"resolved_count"`
	SentCount     int    `json:"sent_count"`
	FailedCount   int    `json:"failed_count"`
}

type NotificationService interface {
	// Send resolves the target and inserts one row per recipient. Insert
	// failures are counted, never fatal. A target that matches nobody
	// yields SentCount 0 and a nil error.
	Send(ctx context.Context, req SendNotificationRequest) (SendResult, error)
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*types.Notification, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	log         *logger.Logger
	users       repos.UserRepo
	notes       repos.NotificationRepo
	emit        SSEEmitter
	concurrency int
}

func NewNotificationService(
	baseLog *logger.Logger,
	users repos.UserRepo,
	notes repos.NotificationRepo,
	emit SSEEmitter,
	concurrency int,
) NotificationService {
	if concurrency <= 0 {
		concurrency = defaultNotifyConcurrency
	}
	return &notificationService{
		log:         baseLog.With("service", "NotificationService"),
		users:       users,
		notes:       notes,
		emit:        emitterOrNop(emit),
		concurrency: concurrency,
	}
}

func validateNotificationContent(typ, title, body string) error {
	if err := validateKey("notification type", strings.TrimSpace(typ)); err != nil {
		return err
	}
	if len(typ) > 32 {
		return invalidArg("notification type must be at most 32 characters")
	}
	if strings.TrimSpace(title) == "" || len(title) > 200 {
		return invalidArg("title must be 1-200 characters")
	}
	if len(body) > 4000 {
		return invalidArg("body must be at most 4000 characters")
	}
	return nil
}

func (s *notificationService) resolve(ctx context.Context, target NotificationTarget) ([]string, error) {
	dbc := dbctx.Context{Ctx: ctx}
	switch target.Kind {
	case TargetAll:
		return s.users.ListActiveIDs(dbc)
	case TargetDivision:
		return s.users.ListActiveIDsByDivision(dbc, target.Value)
	case TargetLevel:
		return s.users.ListActiveIDsAtLeastLevel(dbc, target.Level)
	case TargetUser:
		ok, err := s.users.ActiveIDExists(dbc, target.Value)
		if err != nil || !ok {
			return nil, err
		}
		return []string{target.Value}, nil
	}
	return nil, ErrInvalidTarget
}

func (s *notificationService) Send(ctx context.Context, req SendNotificationRequest) (SendResult, error) {
	target, err := ParseTarget(req.Target)
	if err != nil {
		return SendResult{}, err
	}
	typ := strings.TrimSpace(req.Type)
	if err := validateNotificationContent(typ, req.Title, req.Body); err != nil {
		return SendResult{}, err
	}

	ctx, span := observability.StartSpan(ctx, "notification.send",
		attribute.String("notification.target", target.String()),
	)
	defer span.End()

	recipients, err := s.resolve(ctx, target)
	if err != nil {
		observability.Current().IncStoreUnavailable("notification.resolve")
		return SendResult{}, storeErr("resolve notification target", err)
	}

	res := SendResult{BatchID: uuid.NewString(), ResolvedCount: len(recipients)}
	if len(recipients) == 0 {
		s.log.Info("notification target matched no users", "target", target.String())
		return res, nil
	}

	var expiresAt *time.Time
	if req.TTL > 0 {
		t := time.Now().UTC().Add(req.TTL)
		expiresAt = &t
	}

	var sent, failed int64
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, userID := range recipients {
		userID := userID
		g.Go(func() error {
			row := &types.Notification{
				UserID:    userID,
				BatchID:   res.BatchID,
				Type:      typ,
				Title:     req.Title,
				Body:      req.Body,
				ExpiresAt: expiresAt,
			}
			created, err := s.notes.Create(dbctx.Context{Ctx: ctx}, row)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				s.log.Warn("notification insert failed", "error", err, "user_id", userID, "batch_id", res.BatchID)
				return nil
			}
			atomic.AddInt64(&sent, 1)
			s.emit.Emit(ctx, realtime.SSEMessage{
				Channel: realtime.UserChannel(userID),
				Event:   realtime.SSEEventNotification,
				Data:    created,
			})
			return nil
		})
	}
	_ = g.Wait()

	res.SentCount = int(sent)
	res.FailedCount = int(failed)
	observability.Current().AddNotifications(string(target.Kind), res.SentCount, res.FailedCount)
	span.SetAttributes(
		attribute.Int("notification.resolved", res.ResolvedCount),
		attribute.Int("notification.sent", res.SentCount),
	)
	if res.FailedCount > 0 {
		s.log.Warn("notification batch had failures",
			"batch_id", res.BatchID, "target", target.String(),
			"sent", res.SentCount, "failed", res.FailedCount)
	}
	return res, nil
}

func (s *notificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*types.Notification, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	rows, err := s.notes.ListByUser(dbctx.Context{Ctx: ctx}, userID, unreadOnly, limit)
	if err != nil {
		return nil, storeErr("list notifications", err)
	}
	return rows, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	if err := validateUserID(userID); err != nil {
		return 0, err
	}
	if len(ids) > 500 {
		return 0, invalidArg("at most 500 ids per call")
	}
	n, err := s.notes.MarkRead(dbctx.Context{Ctx: ctx}, userID, ids)
	if err != nil {
		return 0, storeErr("mark notifications read", err)
	}
	return n, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if err := validateUserID(userID); err != nil {
		return 0, err
	}
	n, err := s.notes.CountUnread(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return 0, storeErr("count unread notifications", err)
	}
	return n, nil
}
