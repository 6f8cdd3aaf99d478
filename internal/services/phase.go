package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/realtime"
	"github.com/vendalab/impact-backend/internal/repos"
	"github.com/vendalab/impact-backend/internal/requestdata"
	"github.com/vendalab/impact-backend/internal/types"
)

// PhasePatch carries a partial phase update. Nil fields keep the stored
// value; the controller sends only what changed.
type PhasePatch struct {
	Status                *string    `json:"status,omitempty"`
	CurrentDay            *int       `json:"current_day,omitempty"`
	CurrentModule         *string    `json:"current_module,omitempty"`
	OfferVisible          *bool      `json:"offer_visible,omitempty"`
	BonusTabUnlocksAt     *time.Time `json:"bonus_tab_unlocks_at,omitempty"`
	PostEventTabUnlocksAt *time.Time `json:"post_event_tab_unlocks_at,omitempty"`
}

// TabVisibility is what each client derives from the shared record; it is a
// pure function of the record and the clock, with no per-user state.
type TabVisibility struct {
	BonusTabVisible     bool `json:"bonus_tab_visible"`
	PostEventTabVisible bool `json:"post_event_tab_visible"`
	OfferVisible        bool `json:"offer_visible"`
}

type PhaseService interface {
	Get(ctx context.Context) (*types.EventPhaseState, error)
	// Transition merges patch into the singleton, controller-only. A lost
	// optimistic version check surfaces as ErrPhaseConflict.
	Transition(ctx context.Context, patch PhasePatch) (*types.EventPhaseState, error)
	Visibility(ctx context.Context, now time.Time) (*TabVisibility, error)
}

type phaseService struct {
	db        *gorm.DB
	log       *logger.Logger
	phaseRepo repos.EventPhaseRepo
	emitter   SSEEmitter
}

func NewPhaseService(db *gorm.DB, log *logger.Logger, phaseRepo repos.EventPhaseRepo, emitter SSEEmitter) PhaseService {
	return &phaseService{
		db:        db,
		log:       log.With("service", "PhaseService"),
		phaseRepo: phaseRepo,
		emitter:   emitter,
	}
}

func (ps *phaseService) Get(ctx context.Context) (*types.EventPhaseState, error) {
	return ps.phaseRepo.Get(ctx, nil)
}

// validTransition encodes the status graph: pre_event leads into the live
// window, the four live-window states move freely between each other, and
// post_event is terminal.
func validTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case types.PhasePreEvent:
		return to == types.PhaseLive
	case types.PhaseLive, types.PhasePaused, types.PhaseActivity, types.PhaseLunch:
		return types.LiveWindowStatuses[to] || to == types.PhasePostEvent
	case types.PhasePostEvent:
		return false
	}
	return false
}

func (ps *phaseService) Transition(ctx context.Context, patch PhasePatch) (*types.EventPhaseState, error) {
	rd := requestdata.GetRequestData(ctx)
	if !rd.IsController() {
		return nil, ErrForbidden
	}

	var updated *types.EventPhaseState
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, gErr := ps.phaseRepo.Get(ctx, tx)
		if gErr != nil {
			return fmt.Errorf("load phase state: %w", gErr)
		}

		next := *current
		if patch.Status != nil {
			if !types.IsPhaseStatus(*patch.Status) {
				return fmt.Errorf("unknown phase status %q", *patch.Status)
			}
			if !validTransition(current.Status, *patch.Status) {
				return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, *patch.Status)
			}
			next.Status = *patch.Status
		}
		if patch.CurrentDay != nil {
			if *patch.CurrentDay < 1 {
				return fmt.Errorf("current_day must be at least 1")
			}
			next.CurrentDay = *patch.CurrentDay
		}
		if patch.CurrentModule != nil {
			next.CurrentModule = *patch.CurrentModule
		}
		if patch.OfferVisible != nil {
			next.OfferVisible = *patch.OfferVisible
		}
		if patch.BonusTabUnlocksAt != nil {
			next.BonusTabUnlocksAt = patch.BonusTabUnlocksAt
		}
		if patch.PostEventTabUnlocksAt != nil {
			next.PostEventTabUnlocksAt = patch.PostEventTabUnlocksAt
		}

		ok, uErr := ps.phaseRepo.UpdateWithVersion(ctx, tx, &next, current.Version)
		if uErr != nil {
			return fmt.Errorf("update phase state: %w", uErr)
		}
		if !ok {
			return ErrPhaseConflict
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	ps.log.Info("Phase state updated", "status", updated.Status, "day", updated.CurrentDay, "version", updated.Version)
	ps.emitter.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ChannelEvent,
		Event:   realtime.SSEEventPhaseChanged,
		Data:    updated,
	})
	return updated, nil
}

func (ps *phaseService) Visibility(ctx context.Context, now time.Time) (*TabVisibility, error) {
	state, err := ps.phaseRepo.Get(ctx, nil)
	if err != nil {
		return nil, err
	}
	v := ComputeTabVisibility(state, now)
	return &v, nil
}

// ComputeTabVisibility derives per-page access from the shared record alone.
func ComputeTabVisibility(state *types.EventPhaseState, now time.Time) TabVisibility {
	v := TabVisibility{OfferVisible: state.OfferVisible}
	if state.BonusTabUnlocksAt != nil && !now.Before(*state.BonusTabUnlocksAt) {
		v.BonusTabVisible = true
	}
	if state.Status == types.PhasePostEvent {
		v.PostEventTabVisible = true
	} else if state.PostEventTabUnlocksAt != nil && !now.Before(*state.PostEventTabUnlocksAt) {
		v.PostEventTabVisible = true
	}
	return v
}
