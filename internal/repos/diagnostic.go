package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/types"
)

type DiagnosticRepo interface {
	// Upsert by unique (user_id, event_day): last write wins, no merge.
	Upsert(ctx context.Context, tx *gorm.DB, row *types.DiagnosticEntry) error
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.DiagnosticEntry, error)
	GetByUserAndDay(ctx context.Context, tx *gorm.DB, userID uuid.UUID, eventDay int) (*types.DiagnosticEntry, error)
}

type diagnosticRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDiagnosticRepo(db *gorm.DB, baseLog *logger.Logger) DiagnosticRepo {
	return &diagnosticRepo{db: db, log: baseLog.With("repo", "DiagnosticRepo")}
}

func (r *diagnosticRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.DiagnosticEntry) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	// Single INSERT .. ON CONFLICT so two first-time submissions racing on
	// the same (user_id, event_day) both succeed, last write winning.
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "event_day"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"inspiracao", "motivacao", "preparacao",
				"apresentacao", "conversao", "transformacao", "updated_at",
			}),
		}).
		Create(row).Error; err != nil {
		return err
	}
	// Re-read so the caller sees the stored id and created_at when the row
	// already existed.
	return transaction.WithContext(ctx).
		Where("user_id = ? AND event_day = ?", row.UserID, row.EventDay).
		First(row).Error
}

func (r *diagnosticRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.DiagnosticEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.DiagnosticEntry
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("event_day ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *diagnosticRepo) GetByUserAndDay(ctx context.Context, tx *gorm.DB, userID uuid.UUID, eventDay int) (*types.DiagnosticEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.DiagnosticEntry
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND event_day = ?", userID, eventDay).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
