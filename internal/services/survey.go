package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendalab/impact-backend/internal/config"
	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/repos"
	"github.com/vendalab/impact-backend/internal/types"
)

const (
	InteractionRoleUser      = "user"
	InteractionRoleAssistant = "assistant"
)

type SurveyService interface {
	// SubmitResponses upserts one answer per question key; resubmitting a key
	// overwrites the earlier answer.
	SubmitResponses(ctx context.Context, userID uuid.UUID, answers map[string]string) ([]*types.SurveyResponse, error)
	ListResponses(ctx context.Context, userID uuid.UUID) ([]*types.SurveyResponse, error)
	LogInteraction(ctx context.Context, userID uuid.UUID, role, content string) (*types.InteractionEntry, error)
	RecentInteractions(ctx context.Context, userID uuid.UUID) ([]*types.InteractionEntry, error)
}

type surveyService struct {
	db              *gorm.DB
	log             *logger.Logger
	cfg             config.EventConfig
	surveyRepo      repos.SurveyResponseRepo
	interactionRepo repos.InteractionRepo
}

func NewSurveyService(
	db *gorm.DB,
	log *logger.Logger,
	cfg config.EventConfig,
	surveyRepo repos.SurveyResponseRepo,
	interactionRepo repos.InteractionRepo,
) SurveyService {
	return &surveyService{
		db:              db,
		log:             log.With("service", "SurveyService"),
		cfg:             cfg,
		surveyRepo:      surveyRepo,
		interactionRepo: interactionRepo,
	}
}

func (ss *surveyService) SubmitResponses(ctx context.Context, userID uuid.UUID, answers map[string]string) ([]*types.SurveyResponse, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("at least one answer required")
	}

	now := time.Now().UTC()
	rows := make([]*types.SurveyResponse, 0, len(answers))
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, answer := range answers {
			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("empty question key")
			}
			row := &types.SurveyResponse{
				ID:          uuid.New(),
				UserID:      userID,
				QuestionKey: key,
				Answer:      answer,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if uErr := ss.surveyRepo.Upsert(ctx, tx, row); uErr != nil {
				return fmt.Errorf("upsert survey response %q: %w", key, uErr)
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ss.log.Info("Survey responses submitted", "userID", userID, "count", len(rows))
	return rows, nil
}

func (ss *surveyService) ListResponses(ctx context.Context, userID uuid.UUID) ([]*types.SurveyResponse, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	return ss.surveyRepo.GetByUserID(ctx, nil, userID)
}

func (ss *surveyService) LogInteraction(ctx context.Context, userID uuid.UUID, role, content string) (*types.InteractionEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	if role != InteractionRoleUser && role != InteractionRoleAssistant {
		return nil, fmt.Errorf("invalid interaction role %q", role)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content required")
	}
	row := &types.InteractionEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := ss.interactionRepo.Create(ctx, nil, row); err != nil {
		return nil, fmt.Errorf("create interaction entry: %w", err)
	}
	return row, nil
}

func (ss *surveyService) RecentInteractions(ctx context.Context, userID uuid.UUID) ([]*types.InteractionEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	return ss.interactionRepo.GetRecentByUserID(ctx, nil, userID, ss.cfg.InteractionHistoryEntries)
}
