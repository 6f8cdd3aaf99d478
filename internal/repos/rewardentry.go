package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/types"
)

type RewardEntryRepo interface {
	// Insert appends one immutable ledger entry. A duplicate
	// (user_id, action_key) leaves the table untouched and reports
	// inserted=false; the surrounding transaction stays usable. A plain
	// Create would abort the Postgres transaction on the constraint
	// failure, poisoning everything up to the commit.
	Insert(ctx context.Context, tx *gorm.DB, row *types.RewardEntry) (inserted bool, err error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.RewardEntry, error)
	SumXPByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error)
}

type rewardEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRewardEntryRepo(db *gorm.DB, baseLog *logger.Logger) RewardEntryRepo {
	return &rewardEntryRepo{db: db, log: baseLog.With("repo", "RewardEntryRepo")}
}

func (r *rewardEntryRepo) Insert(ctx context.Context, tx *gorm.DB, row *types.RewardEntry) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return false, nil
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "action_key"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *rewardEntryRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.RewardEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.RewardEntry
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *rewardEntryRepo) SumXPByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total *int
	if err := transaction.WithContext(ctx).
		Model(&types.RewardEntry{}).
		Select("SUM(xp_amount)").
		Where("user_id = ?", userID).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
