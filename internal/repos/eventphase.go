package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/types"
)

type EventPhaseRepo interface {
	Get(ctx context.Context, tx *gorm.DB) (*types.EventPhaseState, error)
	// EnsureSeed creates the singleton row in pre_event if it does not exist.
	EnsureSeed(ctx context.Context, tx *gorm.DB) error
	// UpdateWithVersion applies the new state only if the stored version still
	// matches expectedVersion, returning whether a row was updated. This is
	// the optimistic check that keeps concurrent controller writes from
	// silently overwriting each other.
	UpdateWithVersion(ctx context.Context, tx *gorm.DB, state *types.EventPhaseState, expectedVersion int) (bool, error)
}

type eventPhaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventPhaseRepo(db *gorm.DB, baseLog *logger.Logger) EventPhaseRepo {
	return &eventPhaseRepo{db: db, log: baseLog.With("repo", "EventPhaseRepo")}
}

func (r *eventPhaseRepo) Get(ctx context.Context, tx *gorm.DB) (*types.EventPhaseState, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.EventPhaseState
	if err := transaction.WithContext(ctx).
		Where("id = ?", types.EventPhaseStateID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *eventPhaseRepo) EnsureSeed(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	seed := types.EventPhaseState{
		ID:         types.EventPhaseStateID,
		Status:     types.PhasePreEvent,
		CurrentDay: 1,
		Version:    0,
		UpdatedAt:  time.Now().UTC(),
	}
	return transaction.WithContext(ctx).
		Where("id = ?", types.EventPhaseStateID).
		FirstOrCreate(&seed).Error
}

func (r *eventPhaseRepo) UpdateWithVersion(ctx context.Context, tx *gorm.DB, state *types.EventPhaseState, expectedVersion int) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	state.ID = types.EventPhaseStateID
	state.Version = expectedVersion + 1
	state.UpdatedAt = time.Now().UTC()
	res := transaction.WithContext(ctx).
		Model(&types.EventPhaseState{}).
		Where("id = ? AND version = ?", types.EventPhaseStateID, expectedVersion).
		Select("*").
		Omit("id").
		Updates(state)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
