package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/types"
)

type GeneratedContentRepo interface {
	// GetLatest returns the newest version for (user, kind), or nil.
	GetLatest(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind string) (*types.GeneratedContent, error)
	// ReplaceSingle overwrites the one record kept per (user, kind); used for
	// action plans where no version history is kept.
	ReplaceSingle(ctx context.Context, tx *gorm.DB, row *types.GeneratedContent) error
	// AppendVersion inserts row with version = max(existing)+1; used for
	// scenario projections where history is append-only.
	AppendVersion(ctx context.Context, tx *gorm.DB, row *types.GeneratedContent) error
}

type generatedContentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGeneratedContentRepo(db *gorm.DB, baseLog *logger.Logger) GeneratedContentRepo {
	return &generatedContentRepo{db: db, log: baseLog.With("repo", "GeneratedContentRepo")}
}

func (r *generatedContentRepo) GetLatest(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind string) (*types.GeneratedContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.GeneratedContent
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, kind).
		Order("version DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *generatedContentRepo) ReplaceSingle(ctx context.Context, tx *gorm.DB, row *types.GeneratedContent) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	row.Version = 1
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND version = ?", row.UserID, row.Kind, row.Version).
		Assign(map[string]any{
			"payload":      row.Payload,
			"personalized": row.Personalized,
			"generated_at": row.GeneratedAt,
		}).
		FirstOrCreate(row).Error; err != nil {
		return err
	}
	return nil
}

func (r *generatedContentRepo) AppendVersion(ctx context.Context, tx *gorm.DB, row *types.GeneratedContent) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	var maxVersion *int
	if err := transaction.WithContext(ctx).
		Model(&types.GeneratedContent{}).
		Select("MAX(version)").
		Where("user_id = ? AND kind = ?", row.UserID, row.Kind).
		Scan(&maxVersion).Error; err != nil {
		return err
	}
	row.Version = 1
	if maxVersion != nil {
		row.Version = *maxVersion + 1
	}
	return transaction.WithContext(ctx).Create(row).Error
}
