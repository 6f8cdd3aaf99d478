package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/types"
)

type SurveyResponseRepo interface {
	// Upsert by unique (user_id, question_key).
	Upsert(ctx context.Context, tx *gorm.DB, row *types.SurveyResponse) error
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.SurveyResponse, error)
}

type surveyResponseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSurveyResponseRepo(db *gorm.DB, baseLog *logger.Logger) SurveyResponseRepo {
	return &surveyResponseRepo{db: db, log: baseLog.With("repo", "SurveyResponseRepo")}
}

func (r *surveyResponseRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.SurveyResponse) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND question_key = ?", row.UserID, row.QuestionKey).
		Assign(map[string]any{
			"answer":     row.Answer,
			"updated_at": row.UpdatedAt,
		}).
		FirstOrCreate(row).Error; err != nil {
		return err
	}
	return nil
}

func (r *surveyResponseRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.SurveyResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SurveyResponse
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("question_key ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
