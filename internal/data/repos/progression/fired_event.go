package progression

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/observer-backend/internal/domain"
	"github.com/yungbote/observer-backend/internal/data/repos/storeerr"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

type FiredEventRepo interface {
	// Claim inserts the (user, event) row. claimed is false when the row
	// already existed, whether from an earlier call or a concurrent one.
	Claim(dbc dbctx.Context, userID, eventID string, effects datatypes.JSON) (claimed bool, err error)
	MarkPartial(dbc dbctx.Context, userID, eventID, warning string) error
	Get(dbc dbctx.Context, userID, eventID string) (*types.FiredEvent, error)
	Exists(dbc dbctx.Context, userID, eventID string) (bool, error)
	ListByUser(dbc dbctx.Context, userID string, limit int) ([]*types.FiredEvent, error)
	CountByEvent(dbc dbctx.Context, userID, eventID string) (int64, error)
}

type firedEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFiredEventRepo(db *gorm.DB, baseLog *logger.Logger) FiredEventRepo {
	return &firedEventRepo{db: db, log: baseLog.With("repo", "FiredEventRepo")}
}

func (r *firedEventRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *firedEventRepo) Claim(dbc dbctx.Context, userID, eventID string, effects datatypes.JSON) (bool, error) {
	row := &types.FiredEvent{
		UserID:  userID,
		EventID: eventID,
		FiredAt: time.Now().UTC(),
		Effects: effects,
		Outcome: types.OutcomeApplied,
	}
	res := r.dbx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		// dialects or translated errors that surface the conflict instead
		// of skipping the row still mean someone else holds the claim
		if storeerr.IsUniqueViolation(res.Error) {
			return false, nil
		}
		return false, storeerr.Classify("claim fired event", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *firedEventRepo) MarkPartial(dbc dbctx.Context, userID, eventID, warning string) error {
	err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.FiredEvent{}).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Updates(map[string]interface{}{
			"outcome": types.OutcomePartial,
			"warning": warning,
		}).Error
	return storeerr.Classify("mark fired event partial", err)
}

func (r *firedEventRepo) Get(dbc dbctx.Context, userID, eventID string) (*types.FiredEvent, error) {
	var out types.FiredEvent
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Take(&out).Error; err != nil {
		return nil, storeerr.Classify("get fired event", err)
	}
	return &out, nil
}

func (r *firedEventRepo) Exists(dbc dbctx.Context, userID, eventID string) (bool, error) {
	n, err := r.CountByEvent(dbc, userID, eventID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *firedEventRepo) ListByUser(dbc dbctx.Context, userID string, limit int) ([]*types.FiredEvent, error) {
	out := []*types.FiredEvent{}
	if userID == "" {
		return out, nil
	}
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("fired_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, storeerr.Classify("list fired events", err)
	}
	return out, nil
}

func (r *firedEventRepo) CountByEvent(dbc dbctx.Context, userID, eventID string) (int64, error) {
	var n int64
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.FiredEvent{}).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Count(&n).Error; err != nil {
		return 0, storeerr.Classify("count fired events", err)
	}
	return n, nil
}
