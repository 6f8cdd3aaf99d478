package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vendalab/impact-backend/internal/config"
	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/realtime"
	"github.com/vendalab/impact-backend/internal/repos"
	"github.com/vendalab/impact-backend/internal/types"
)

type CreditInput struct {
	ActionKey   string         `json:"action_key"`
	XPAmount    int            `json:"xp_amount"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type CreditResult struct {
	AlreadyCredited bool                `json:"already_credited"`
	Progress        *types.UserProgress `json:"progress"`
}

type RewardService interface {
	// Credit appends a ledger entry and refreshes the progress aggregate in
	// the same transaction. A repeat (user, action_key) is reported as
	// AlreadyCredited, never as an error.
	Credit(ctx context.Context, userID uuid.UUID, in CreditInput) (*CreditResult, error)
	GetProgress(ctx context.Context, userID uuid.UUID) (*types.UserProgress, error)
	GetLedger(ctx context.Context, userID uuid.UUID) ([]*types.RewardEntry, error)
	TouchLastSeen(ctx context.Context, userID uuid.UUID) error
}

type rewardService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          config.EventConfig
	rewardRepo   repos.RewardEntryRepo
	progressRepo repos.UserProgressRepo
	emitter      SSEEmitter
}

func NewRewardService(
	db *gorm.DB,
	log *logger.Logger,
	cfg config.EventConfig,
	rewardRepo repos.RewardEntryRepo,
	progressRepo repos.UserProgressRepo,
	emitter SSEEmitter,
) RewardService {
	return &rewardService{
		db:           db,
		log:          log.With("service", "RewardService"),
		cfg:          cfg,
		rewardRepo:   rewardRepo,
		progressRepo: progressRepo,
		emitter:      emitter,
	}
}

func (rs *rewardService) Credit(ctx context.Context, userID uuid.UUID, in CreditInput) (*CreditResult, error) {
	actionKey := strings.TrimSpace(in.ActionKey)
	if userID == uuid.Nil || actionKey == "" {
		return nil, fmt.Errorf("user id and action key required")
	}

	xp := in.XPAmount
	if catalogXP, ok := rs.cfg.XPCatalog[actionKey]; ok {
		xp = catalogXP
	}
	if xp < 0 {
		return nil, fmt.Errorf("xp amount must not be negative")
	}

	var metadata datatypes.JSON
	if in.Metadata != nil {
		raw, mErr := json.Marshal(in.Metadata)
		if mErr != nil {
			return nil, fmt.Errorf("encode metadata: %w", mErr)
		}
		metadata = datatypes.JSON(raw)
	}

	result := &CreditResult{}
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := &types.RewardEntry{
			ID:          uuid.New(),
			UserID:      userID,
			ActionKey:   actionKey,
			XPAmount:    xp,
			Description: in.Description,
			Metadata:    metadata,
			CreatedAt:   time.Now().UTC(),
		}
		inserted, insErr := rs.rewardRepo.Insert(ctx, tx, entry)
		if insErr != nil {
			return fmt.Errorf("insert ledger entry: %w", insErr)
		}
		if !inserted {
			result.AlreadyCredited = true
			return nil
		}
		progress, aggErr := rs.reaggregate(ctx, tx, userID)
		if aggErr != nil {
			return aggErr
		}
		result.Progress = progress
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyCredited {
		progress, pErr := rs.GetProgress(ctx, userID)
		if pErr != nil {
			return nil, pErr
		}
		result.Progress = progress
		return result, nil
	}

	rs.log.Info("XP credited", "userID", userID, "actionKey", actionKey, "xp", xp)
	rs.emitter.Emit(ctx, realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventProgressUpdated,
		Data:    result.Progress,
	})
	return result, nil
}

// reaggregate rewrites the progress row from the full ledger inside tx. Full
// re-aggregation instead of an incremental add keeps the row correct even if
// a previous write was interrupted.
func (rs *rewardService) reaggregate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserProgress, error) {
	entries, err := rs.rewardRepo.GetByUserID(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("load ledger entries: %w", err)
	}
	total, err := rs.rewardRepo.SumXPByUserID(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("sum ledger xp: %w", err)
	}

	actionKeys := make([]string, 0, len(entries))
	badges := make([]string, 0)
	for _, e := range entries {
		actionKeys = append(actionKeys, e.ActionKey)
		if e.IsBadge() {
			badges = append(badges, strings.TrimPrefix(e.ActionKey, types.BadgeActionPrefix))
		}
	}
	sort.Strings(actionKeys)
	sort.Strings(badges)

	keysJSON, err := json.Marshal(actionKeys)
	if err != nil {
		return nil, err
	}
	badgesJSON, err := json.Marshal(badges)
	if err != nil {
		return nil, err
	}

	existing, err := rs.progressRepo.GetByUserID(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress row: %w", err)
	}
	row := &types.UserProgress{
		UserID:              userID,
		XPTotal:             total,
		CompletedActionKeys: datatypes.JSON(keysJSON),
		Badges:              datatypes.JSON(badgesJSON),
		UpdatedAt:           time.Now().UTC(),
	}
	if existing != nil {
		row.LastSeenAt = existing.LastSeenAt
	}
	if err := rs.progressRepo.Upsert(ctx, tx, row); err != nil {
		return nil, fmt.Errorf("upsert progress row: %w", err)
	}
	return row, nil
}

func (rs *rewardService) GetProgress(ctx context.Context, userID uuid.UUID) (*types.UserProgress, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	row, err := rs.progressRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		// No ledger entries yet; an empty aggregate, not an error.
		empty, _ := json.Marshal([]string{})
		return &types.UserProgress{
			UserID:              userID,
			XPTotal:             0,
			CompletedActionKeys: datatypes.JSON(empty),
			Badges:              datatypes.JSON(empty),
			UpdatedAt:           time.Now().UTC(),
		}, nil
	}
	return row, nil
}

func (rs *rewardService) GetLedger(ctx context.Context, userID uuid.UUID) ([]*types.RewardEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	return rs.rewardRepo.GetByUserID(ctx, nil, userID)
}

func (rs *rewardService) TouchLastSeen(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user id required")
	}
	return rs.progressRepo.TouchLastSeen(ctx, nil, userID)
}
