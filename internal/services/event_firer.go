package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/yungbote/observer-backend/internal/data/repos"
	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/narrative"
	"github.com/yungbote/observer-backend/internal/observability"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
	"github.com/yungbote/observer-backend/internal/realtime"
)

var (
	eventIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_.:#@-]{1,191}$`)
	instancePattern = regexp.MustCompile(`^[A-Za-z0-9_.:@-]{1,100}$`)
)

// effectTimeout bounds effect application once a claim has succeeded. The
// caller's cancellation is detached at that point so a dropped request
// does not strand a claimed event without its rewards.
const effectTimeout = 15 * time.Second

type FireResult struct {
	EventID          string   `json:"event_id"`
	FiredNow         bool     `json:"fired_now"`
	XPGained         int64    `json:"xp_gained"`
	TotalXP          int64    `json:"total_xp"`
	PreviousLevel    int      `json:"previous_level"`
	NewLevel         int      `json:"new_level"`
	LeveledUp        bool     `json:"leveled_up"`
	FlagSet          bool     `json:"flag_set"`
	ScoresAdjusted   bool     `json:"scores_adjusted"`
	AnomalyScore     float64  `json:"anomaly_score,omitempty"`
	ObserverLoad     float64  `json:"observer_load,omitempty"`
	NotificationSent bool     `json:"notification_sent"`
	Warnings         []string `json:"warnings,omitempty"`
}

type GrantXPRequest struct {
	UserID string
	// Amount is a raw, non-idempotent grant. Used only when ActivityKey is empty.
	Amount      int64
	ActivityKey string
	Instance    string
	// FromPlayer restricts the grant to activities a player may claim
	// directly, and to their declared instances. Raw amounts are refused.
	FromPlayer bool
}

type XPGrantResult struct {
	EventID       string `json:"event_id,omitempty"`
	FiredNow      bool   `json:"fired_now"`
	XPGained      int64  `json:"xp_gained"`
	TotalXP       int64  `json:"total_xp"`
	PreviousLevel int    `json:"previous_level"`
	NewLevel      int    `json:"new_level"`
	LeveledUp     bool   `json:"leveled_up"`
}

type EventService interface {
	// Fire claims (userID, eventID) and applies effects at most once.
	// A repeat returns FiredNow=false with ErrAlreadyFired. Effect failures
	// after the claim return the populated result and a *PartialEffectError.
	Fire(ctx context.Context, userID, eventID string, effects types.Effects) (FireResult, error)
	FireCatalogEvent(ctx context.Context, userID, catalogID, instance string) (FireResult, error)
	// FirePlayerEvent is FireCatalogEvent limited to events marked player
	// and, for repeatable ones, their declared instances.
	FirePlayerEvent(ctx context.Context, userID, catalogID, instance string) (FireResult, error)
	GrantXP(ctx context.Context, req GrantXPRequest) (XPGrantResult, error)
	DailyLogin(ctx context.Context, userID string, now time.Time) (FireResult, error)
	AdjustScores(ctx context.Context, userID string, anomalyDelta, observerDelta int64) (ScoreChange, error)
	ListFired(ctx context.Context, userID string, limit int) ([]*types.FiredEvent, error)
	HasFired(ctx context.Context, userID, eventID string) (bool, error)
}

type eventService struct {
	log      *logger.Logger
	fired    repos.FiredEventRepo
	state    StateService
	notifier NotificationService
	catalog  *narrative.Catalog
	emit     SSEEmitter
}

func NewEventService(
	baseLog *logger.Logger,
	fired repos.FiredEventRepo,
	state StateService,
	notifier NotificationService,
	catalog *narrative.Catalog,
	emit SSEEmitter,
) EventService {
	return &eventService{
		log:      baseLog.With("service", "EventService"),
		fired:    fired,
		state:    state,
		notifier: notifier,
		catalog:  catalog,
		emit:     emitterOrNop(emit),
	}
}

func validateEffects(e types.Effects) error {
	if e.XPGrant < 0 {
		return invalidArg("xp_grant must be >= 0")
	}
	if e.Flag != nil {
		if err := validateKey("flag", e.Flag.Key); err != nil {
			return err
		}
	}
	if n := e.Notification; n != nil {
		if err := validateNotificationContent(n.Type, n.Title, n.Body); err != nil {
			return err
		}
	}
	return nil
}

func (s *eventService) Fire(ctx context.Context, userID, eventID string, effects types.Effects) (FireResult, error) {
	if err := validateUserID(userID); err != nil {
		return FireResult{}, err
	}
	if !eventIDPattern.MatchString(eventID) {
		return FireResult{}, invalidArg("event_id %q is malformed", eventID)
	}
	if err := validateEffects(effects); err != nil {
		return FireResult{}, err
	}

	ctx, span := observability.StartSpan(ctx, "event.fire", attribute.String("event.id", eventID))
	defer span.End()

	snapshot, err := json.Marshal(effects)
	if err != nil {
		return FireResult{}, fmt.Errorf("encode effects: %w", err)
	}
	claimed, err := s.fired.Claim(dbctx.Context{Ctx: ctx}, userID, eventID, datatypes.JSON(snapshot))
	if err != nil {
		observability.Current().IncEventFired("error")
		if errors.Is(err, ErrStoreUnavailable) {
			observability.Current().IncStoreUnavailable("event.claim")
		}
		return FireResult{}, storeErr("claim event", err)
	}
	res := FireResult{EventID: eventID}
	if !claimed {
		observability.Current().IncEventFired("duplicate")
		span.SetAttributes(attribute.Bool("event.fired_now", false))
		return res, ErrAlreadyFired
	}
	res.FiredNow = true
	span.SetAttributes(attribute.Bool("event.fired_now", true))

	effCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), effectTimeout)
	defer cancel()

	var xp XPChange
	if f := effects.Flag; f != nil {
		if err := s.state.SetFlag(effCtx, userID, f.Key, f.Value, "event:"+eventID); err != nil {
			res.Warnings = append(res.Warnings, "flag: "+err.Error())
		} else {
			res.FlagSet = true
		}
	}
	if effects.XPGrant > 0 {
		change, err := s.state.AddXP(effCtx, userID, effects.XPGrant)
		if err != nil {
			res.Warnings = append(res.Warnings, "xp: "+err.Error())
		} else {
			xp = change
			res.XPGained = change.Delta
			res.TotalXP = change.TotalXP
			res.PreviousLevel = change.PreviousLevel
			res.NewLevel = change.NewLevel
			res.LeveledUp = change.LeveledUp
			observability.Current().AddXPGranted("event", change.Delta, change.LeveledUp)
		}
	}
	if effects.AnomalyDelta != 0 || effects.ObserverDelta != 0 {
		scores, err := s.state.AdjustScores(effCtx, userID, effects.AnomalyDelta, effects.ObserverDelta)
		if err != nil {
			res.Warnings = append(res.Warnings, "scores: "+err.Error())
		} else {
			res.ScoresAdjusted = true
			res.AnomalyScore = scores.AnomalyScore
			res.ObserverLoad = scores.ObserverLoad
		}
	}
	if n := effects.Notification; n != nil {
		sent, err := s.notifier.Send(effCtx, SendNotificationRequest{
			Target: "user:" + userID,
			Type:   n.Type,
			Title:  n.Title,
			Body:   n.Body,
		})
		switch {
		case err != nil:
			res.Warnings = append(res.Warnings, "notification: "+err.Error())
		case sent.SentCount == 0:
			res.Warnings = append(res.Warnings, "notification: no recipient delivered")
		default:
			res.NotificationSent = true
		}
	}

	if len(res.Warnings) > 0 {
		warning := strings.Join(res.Warnings, "; ")
		if err := s.fired.MarkPartial(dbctx.Context{Ctx: effCtx}, userID, eventID, warning); err != nil {
			s.log.Error("failed to record partial event outcome", "error", err, "user_id", userID, "event_id", eventID)
		}
		s.log.Warn("event fired with partial effects", "user_id", userID, "event_id", eventID, "warnings", warning)
		observability.Current().IncEventFired("partial")
	} else {
		observability.Current().IncEventFired("applied")
	}

	s.emit.Emit(effCtx, realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventEventFired,
		Data:    res,
	})
	if xp.LeveledUp {
		s.emitLevelUp(effCtx, userID, xp)
	}

	if len(res.Warnings) > 0 {
		return res, &PartialEffectError{EventID: eventID, Warnings: res.Warnings}
	}
	return res, nil
}

func (s *eventService) emitLevelUp(ctx context.Context, userID string, xp XPChange) {
	s.log.Info("user leveled up", "user_id", userID, "from", xp.PreviousLevel, "to", xp.NewLevel)
	s.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventLevelUp,
		Data:    xp,
	})
}

func (s *eventService) FireCatalogEvent(ctx context.Context, userID, catalogID, instance string) (FireResult, error) {
	if err := validateUserID(userID); err != nil {
		return FireResult{}, err
	}
	if s.catalog == nil {
		return FireResult{}, fmt.Errorf("%w: no narrative catalog loaded", ErrNotFound)
	}
	ev, err := s.catalog.Event(catalogID)
	if err != nil {
		return FireResult{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	eventID := ev.ID
	instance = strings.TrimSpace(instance)
	switch {
	case ev.Repeatable && instance == "":
		return FireResult{}, invalidArg("event %s is repeatable and needs an instance", ev.ID)
	case ev.Repeatable:
		if !instancePattern.MatchString(instance) {
			return FireResult{}, invalidArg("instance %q is malformed", instance)
		}
		eventID = ev.ID + "#" + instance
	case instance != "":
		return FireResult{}, invalidArg("event %s fires once and takes no instance", ev.ID)
	}

	for _, req := range ev.RequiresFlags {
		v, ok, err := s.state.GetFlag(ctx, userID, req)
		if err != nil {
			return FireResult{}, err
		}
		if !ok || v == "" || strings.EqualFold(v, "false") {
			observability.Current().IncEventFired("rejected")
			return FireResult{}, fmt.Errorf("%w: %s requires flag %s", ErrPreconditionFailed, ev.ID, req)
		}
	}
	return s.Fire(ctx, userID, eventID, ev.Effects)
}

func (s *eventService) FirePlayerEvent(ctx context.Context, userID, catalogID, instance string) (FireResult, error) {
	if s.catalog == nil {
		return FireResult{}, fmt.Errorf("%w: no narrative catalog loaded", ErrNotFound)
	}
	ev, err := s.catalog.Event(catalogID)
	if err != nil {
		return FireResult{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	instance = strings.TrimSpace(instance)
	if !ev.Player {
		observability.Current().IncEventFired("rejected")
		return FireResult{}, fmt.Errorf("%w: event %s is not player-fireable", ErrForbidden, ev.ID)
	}
	if ev.Repeatable && !ev.PlayerAllows(instance) {
		return FireResult{}, invalidArg("instance %q is not a known %s instance", instance, ev.ID)
	}
	return s.FireCatalogEvent(ctx, userID, catalogID, instance)
}

// ActivityEventID is the idempotency key of one activity grant.
func ActivityEventID(activityKey, instance string) string {
	return "xp:" + activityKey + ":" + instance
}

func (s *eventService) GrantXP(ctx context.Context, req GrantXPRequest) (XPGrantResult, error) {
	if err := validateUserID(req.UserID); err != nil {
		return XPGrantResult{}, err
	}
	key := strings.TrimSpace(req.ActivityKey)
	if key == "" {
		if req.FromPlayer {
			return XPGrantResult{}, fmt.Errorf("%w: raw xp grants are operator-only", ErrForbidden)
		}
		return s.grantRaw(ctx, req.UserID, req.Amount)
	}

	if s.catalog == nil {
		return XPGrantResult{}, fmt.Errorf("%w: no narrative catalog loaded", ErrNotFound)
	}
	activity, err := s.catalog.Activity(key)
	if err != nil {
		return XPGrantResult{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	instance := strings.TrimSpace(req.Instance)
	if !instancePattern.MatchString(instance) {
		return XPGrantResult{}, invalidArg("instance %q is malformed", instance)
	}
	if req.FromPlayer {
		if !activity.Player {
			return XPGrantResult{}, fmt.Errorf("%w: activity %s is granted by the server", ErrForbidden, key)
		}
		if !activity.PlayerAllows(instance) {
			return XPGrantResult{}, invalidArg("instance %q is not a known %s instance", instance, key)
		}
	}
	amount := activity.XP

	eventID := ActivityEventID(key, instance)
	fr, err := s.Fire(ctx, req.UserID, eventID, types.Effects{XPGrant: amount})
	out := XPGrantResult{
		EventID:       eventID,
		FiredNow:      fr.FiredNow,
		XPGained:      fr.XPGained,
		TotalXP:       fr.TotalXP,
		PreviousLevel: fr.PreviousLevel,
		NewLevel:      fr.NewLevel,
		LeveledUp:     fr.LeveledUp,
	}
	if errors.Is(err, ErrAlreadyFired) {
		// report the current standing so clients can render it
		if snap, snapErr := s.state.Snapshot(ctx, req.UserID); snapErr == nil {
			out.TotalXP = snap.TotalXP
			out.PreviousLevel = snap.Level
			out.NewLevel = snap.Level
		}
	}
	return out, err
}

func (s *eventService) grantRaw(ctx context.Context, userID string, amount int64) (XPGrantResult, error) {
	if amount <= 0 {
		return XPGrantResult{}, invalidArg("amount must be > 0 when no activity_key is given")
	}
	change, err := s.state.AddXP(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			observability.Current().IncStoreUnavailable("xp.grant")
		}
		return XPGrantResult{}, err
	}
	observability.Current().AddXPGranted("raw", change.Delta, change.LeveledUp)
	s.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventProgressUpdated,
		Data:    change,
	})
	if change.LeveledUp {
		s.emitLevelUp(ctx, userID, change)
	}
	return XPGrantResult{
		FiredNow:      true,
		XPGained:      change.Delta,
		TotalXP:       change.TotalXP,
		PreviousLevel: change.PreviousLevel,
		NewLevel:      change.NewLevel,
		LeveledUp:     change.LeveledUp,
	}, nil
}

func DailyLoginEventID(now time.Time) string {
	return "daily_login:" + now.UTC().Format("2006-01-02")
}

func (s *eventService) DailyLogin(ctx context.Context, userID string, now time.Time) (FireResult, error) {
	var xp int64
	if s.catalog != nil {
		if v, err := s.catalog.ActivityXP("daily_login"); err == nil {
			xp = v
		}
	}
	return s.Fire(ctx, userID, DailyLoginEventID(now), types.Effects{XPGrant: xp})
}

func (s *eventService) AdjustScores(ctx context.Context, userID string, anomalyDelta, observerDelta int64) (ScoreChange, error) {
	change, err := s.state.AdjustScores(ctx, userID, anomalyDelta, observerDelta)
	if err != nil {
		return ScoreChange{}, err
	}
	if anomalyDelta != 0 {
		observability.Current().IncScoreAdjustment(types.VarAnomalyScore)
	}
	if observerDelta != 0 {
		observability.Current().IncScoreAdjustment(types.VarObserverLoad)
	}
	s.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventProgressUpdated,
		Data:    change,
	})
	return change, nil
}

func (s *eventService) ListFired(ctx context.Context, userID string, limit int) ([]*types.FiredEvent, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	rows, err := s.fired.ListByUser(dbctx.Context{Ctx: ctx}, userID, limit)
	if err != nil {
		return nil, storeErr("list fired events", err)
	}
	return rows, nil
}

func (s *eventService) HasFired(ctx context.Context, userID, eventID string) (bool, error) {
	if err := validateUserID(userID); err != nil {
		return false, err
	}
	ok, err := s.fired.Exists(dbctx.Context{Ctx: ctx}, userID, eventID)
	if err != nil {
		return false, storeErr("check fired event", err)
	}
	return ok, nil
}
