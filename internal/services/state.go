package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/observer-backend/internal/data/repos"
	"github.com/yungbote/observer-backend/internal/data/repos/storeerr"
	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

var stateKeyPattern = regexp.MustCompile(`^[a-z0-9_.:-]{1,64}$`)

// engine-owned variables are only mutated through AddXP / AdjustScores.
var reservedVariables = map[string]bool{
	types.VarTotalXP:      true,
	types.VarAnomalyScore: true,
	types.VarObserverLoad: true,
}

type XPChange struct {
	Delta         int64 `json:"xp_gained"`
	TotalXP       int64 `json:"total_xp"`
	PreviousLevel int   `json:"previous_level"`
	NewLevel      int   `json:"new_level"`
	LeveledUp     bool  `json:"leveled_up"`
}

type ScoreChange struct {
	AnomalyScore float64 `json:"anomaly_score"`
	ObserverLoad float64 `json:"observer_load"`
}

type ProgressSnapshot struct {
	UserID       string            `json:"user_id"`
	TotalXP      int64             `json:"total_xp"`
	Level        int               `json:"level"`
	MaxLevel     int               `json:"max_level"`
	LevelFloorXP int64             `json:"level_floor_xp"`
	NextLevelXP  *int64            `json:"next_level_xp,omitempty"`
	AnomalyScore float64           `json:"anomaly_score"`
	ObserverLoad float64           `json:"observer_load"`
	Flags        map[string]string `json:"flags"`
	Variables    map[string]int64  `json:"variables"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type StateService interface {
	IncrementVariable(ctx context.Context, userID, key string, delta int64) (int64, error)
	IncrementVariableClamped(ctx context.Context, userID, key string, delta, lo, hi int64) (int64, error)
	SetVariable(ctx context.Context, userID, key string, value int64) error
	GetVariables(ctx context.Context, userID string) (map[string]int64, error)

	SetFlag(ctx context.Context, userID, key, value, source string) error
	GetFlag(ctx context.Context, userID, key string) (string, bool, error)
	GetFlags(ctx context.Context, userID string) (map[string]string, error)

	// AddXP atomically raises total_xp and refreshes the level projection.
	AddXP(ctx context.Context, userID string, delta int64) (XPChange, error)
	// AdjustScores applies clamped deltas to anomaly_score and observer_load.
	AdjustScores(ctx context.Context, userID string, anomalyDelta, observerDelta int64) (ScoreChange, error)

	Snapshot(ctx context.Context, userID string) (*ProgressSnapshot, error)
	Levels() *LevelTable
}

type stateService struct {
	db        *gorm.DB
	log       *logger.Logger
	levels    *LevelTable
	variables repos.UserVariableRepo
	flags     repos.UserFlagRepo
	progress  repos.UserProgressRepo
	cache     ProgressCache
}

func NewStateService(
	db *gorm.DB,
	baseLog *logger.Logger,
	levels *LevelTable,
	variables repos.UserVariableRepo,
	flags repos.UserFlagRepo,
	progress repos.UserProgressRepo,
	cache ProgressCache,
) StateService {
	if levels == nil {
		levels = DefaultLevelTable()
	}
	if cache == nil {
		cache = NoopProgressCache{}
	}
	return &stateService{
		db:        db,
		log:       baseLog.With("service", "StateService"),
		levels:    levels,
		variables: variables,
		flags:     flags,
		progress:  progress,
		cache:     cache,
	}
}

// userIDPattern is shared with "user:<id>" notification targets, so any
// user an event can reach is also addressable by its notification effect.
var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:@-]{1,64}$`)

func validateUserID(userID string) error {
	if !userIDPattern.MatchString(userID) {
		return invalidArg("user_id %q must match %s", userID, userIDPattern.String())
	}
	return nil
}

func validateKey(kind, key string) error {
	if !stateKeyPattern.MatchString(key) {
		return invalidArg("%s key %q must match %s", kind, key, stateKeyPattern.String())
	}
	return nil
}

func (s *stateService) Levels() *LevelTable { return s.levels }

func (s *stateService) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn("progress cache invalidate failed", "error", err, "user_id", userID)
	}
}

func (s *stateService) checkGenericVariable(userID, key string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := validateKey("variable", key); err != nil {
		return err
	}
	if reservedVariables[key] {
		return invalidArg("variable %q is engine-owned", key)
	}
	return nil
}

func (s *stateService) IncrementVariable(ctx context.Context, userID, key string, delta int64) (int64, error) {
	if err := s.checkGenericVariable(userID, key); err != nil {
		return 0, err
	}
	v, err := s.variables.Increment(dbctx.Context{Ctx: ctx}, userID, key, delta)
	if err != nil {
		return 0, storeErr("increment variable", err)
	}
	s.invalidate(ctx, userID)
	return v, nil
}

func (s *stateService) IncrementVariableClamped(ctx context.Context, userID, key string, delta, lo, hi int64) (int64, error) {
	if err := s.checkGenericVariable(userID, key); err != nil {
		return 0, err
	}
	if lo > hi {
		return 0, invalidArg("clamp bounds lo=%d > hi=%d", lo, hi)
	}
	v, err := s.variables.IncrementClamped(dbctx.Context{Ctx: ctx}, userID, key, delta, lo, hi)
	if err != nil {
		return 0, storeErr("increment clamped variable", err)
	}
	s.invalidate(ctx, userID)
	return v, nil
}

func (s *stateService) SetVariable(ctx context.Context, userID, key string, value int64) error {
	if err := s.checkGenericVariable(userID, key); err != nil {
		return err
	}
	if err := s.variables.Set(dbctx.Context{Ctx: ctx}, userID, key, value); err != nil {
		return storeErr("set variable", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *stateService) GetVariables(ctx context.Context, userID string) (map[string]int64, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	rows, err := s.variables.ListByUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, storeErr("list variables", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.VarKey] = r.Value
	}
	return out, nil
}

func (s *stateService) SetFlag(ctx context.Context, userID, key, value, source string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := validateKey("flag", key); err != nil {
		return err
	}
	if len(value) > 256 {
		return invalidArg("flag value too long")
	}
	if strings.TrimSpace(source) == "" {
		source = "api"
	}
	if _, err := s.flags.Set(dbctx.Context{Ctx: ctx}, userID, key, value, source); err != nil {
		return storeErr("set flag", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *stateService) GetFlag(ctx context.Context, userID, key string) (string, bool, error) {
	if err := validateUserID(userID); err != nil {
		return "", false, err
	}
	f, err := s.flags.Get(dbctx.Context{Ctx: ctx}, userID, key)
	if err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			return "", false, nil
		}
		return "", false, storeErr("get flag", err)
	}
	return f.Value, true, nil
}

func (s *stateService) GetFlags(ctx context.Context, userID string) (map[string]string, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	rows, err := s.flags.ListByUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, storeErr("list flags", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.FlagKey] = r.Value
	}
	return out, nil
}

func (s *stateService) AddXP(ctx context.Context, userID string, delta int64) (XPChange, error) {
	if err := validateUserID(userID); err != nil {
		return XPChange{}, err
	}
	if delta < 0 {
		return XPChange{}, invalidArg("xp delta must be >= 0")
	}
	var change XPChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		total, err := s.variables.Increment(dbc, userID, types.VarTotalXP, delta)
		if err != nil {
			return err
		}
		// the increment is atomic, so total-delta is exactly the total this
		// grant started from
		change = XPChange{
			Delta:         delta,
			TotalXP:       total,
			PreviousLevel: s.levels.LevelFor(total - delta),
			NewLevel:      s.levels.LevelFor(total),
		}
		change.LeveledUp = change.NewLevel > change.PreviousLevel
		return s.progress.UpsertXP(dbc, userID, total, change.NewLevel)
	})
	if err != nil {
		return XPChange{}, storeErr("add xp", err)
	}
	s.invalidate(ctx, userID)
	return change, nil
}

func (s *stateService) AdjustScores(ctx context.Context, userID string, anomalyDelta, observerDelta int64) (ScoreChange, error) {
	if err := validateUserID(userID); err != nil {
		return ScoreChange{}, err
	}
	var out ScoreChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		// both rows are always written, in a fixed order, so concurrent
		// adjusters serialize on the same locks before touching the projection
		anomaly, err := s.variables.IncrementClamped(dbc, userID, types.VarAnomalyScore, anomalyDelta, types.ScoreMin, types.ScoreMax)
		if err != nil {
			return err
		}
		observer, err := s.variables.IncrementClamped(dbc, userID, types.VarObserverLoad, observerDelta, types.ScoreMin, types.ScoreMax)
		if err != nil {
			return err
		}
		out = ScoreChange{AnomalyScore: float64(anomaly), ObserverLoad: float64(observer)}
		return s.progress.UpsertScores(dbc, userID, out.AnomalyScore, out.ObserverLoad)
	})
	if err != nil {
		return ScoreChange{}, storeErr("adjust scores", err)
	}
	s.invalidate(ctx, userID)
	return out, nil
}

func (s *stateService) Snapshot(ctx context.Context, userID string) (*ProgressSnapshot, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if snap, ok := s.cache.Get(ctx, userID); ok {
		return snap, nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	p, err := s.progress.Get(dbc, userID)
	if err != nil {
		return nil, storeErr("get progress", err)
	}
	flags, err := s.GetFlags(ctx, userID)
	if err != nil {
		return nil, err
	}
	vars, err := s.GetVariables(ctx, userID)
	if err != nil {
		return nil, err
	}
	// total_xp in user_variable is authoritative
	total := p.TotalXP
	if v, ok := vars[types.VarTotalXP]; ok {
		total = v
	}
	level := s.levels.LevelFor(total)
	snap := &ProgressSnapshot{
		UserID:       userID,
		TotalXP:      total,
		Level:        level,
		MaxLevel:     s.levels.MaxLevel(),
		LevelFloorXP: s.levels.Threshold(level),
		AnomalyScore: p.AnomalyScore,
		ObserverLoad: p.ObserverLoad,
		Flags:        flags,
		Variables:    vars,
		UpdatedAt:    p.UpdatedAt,
	}
	if next, ok := s.levels.NextThreshold(level); ok {
		snap.NextLevelXP = &next
	}
	s.cache.Set(ctx, userID, snap)
	return snap, nil
}

func (c XPChange) String() string {
	return fmt.Sprintf("+%d xp (total %d, level %d->%d)", c.Delta, c.TotalXP, c.PreviousLevel, c.NewLevel)
}
