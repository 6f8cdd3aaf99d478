package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vendalab/impact-backend/internal/realtime"
	"github.com/vendalab/impact-backend/internal/repos"
	"github.com/vendalab/impact-backend/internal/repos/testutil"
	"github.com/vendalab/impact-backend/internal/types"

	"gorm.io/gorm"
)

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }
func boolptr(b bool) *bool    { return &b }

func newPhaseService(t *testing.T) (PhaseService, repos.EventPhaseRepo, *gorm.DB, *recordingEmitter) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	phaseRepo := repos.NewEventPhaseRepo(db, log)
	if err := phaseRepo.EnsureSeed(context.Background(), nil); err != nil {
		t.Fatalf("seed phase: %v", err)
	}
	emitter := &recordingEmitter{}
	return NewPhaseService(db, log, phaseRepo, emitter), phaseRepo, db, emitter
}

func TestTransitionRequiresController(t *testing.T) {
	svc, _, db, _ := newPhaseService(t)
	participant := testutil.SeedUser(t, db)

	_, err := svc.Transition(testutil.CtxFor(participant), PhasePatch{Status: strptr(types.PhaseLive)})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	// Nothing applied.
	state, gErr := svc.Get(context.Background())
	if gErr != nil {
		t.Fatalf("get: %v", gErr)
	}
	if state.Status != types.PhasePreEvent {
		t.Fatalf("status = %s, want pre_event untouched", state.Status)
	}
}

func TestTransitionGraph(t *testing.T) {
	svc, _, db, _ := newPhaseService(t)
	controller := testutil.SeedController(t, db)
	ctx := testutil.CtxFor(controller)

	// pre_event cannot jump into the middle of the live window.
	if _, err := svc.Transition(ctx, PhasePatch{Status: strptr(types.PhaseLunch)}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pre_event->lunch err = %v, want ErrInvalidTransition", err)
	}

	steps := []string{types.PhaseLive, types.PhasePaused, types.PhaseActivity, types.PhaseLunch, types.PhaseLive, types.PhasePostEvent}
	for _, status := range steps {
		if _, err := svc.Transition(ctx, PhasePatch{Status: strptr(status)}); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	// post_event is terminal.
	if _, err := svc.Transition(ctx, PhasePatch{Status: strptr(types.PhaseLive)}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("post_event->live err = %v, want ErrInvalidTransition", err)
	}
}

func TestTransitionMergesPartialPatch(t *testing.T) {
	svc, _, db, emitter := newPhaseService(t)
	controller := testutil.SeedController(t, db)
	ctx := testutil.CtxFor(controller)

	state, err := svc.Transition(ctx, PhasePatch{
		Status:        strptr(types.PhaseLive),
		CurrentDay:    intptr(2),
		CurrentModule: strptr("pitch-practice"),
		OfferVisible:  boolptr(true),
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if state.Status != types.PhaseLive || state.CurrentDay != 2 || state.CurrentModule != "pitch-practice" || !state.OfferVisible {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.Version != 1 {
		t.Fatalf("version = %d, want 1", state.Version)
	}

	// Patch without status keeps it.
	state, err = svc.Transition(ctx, PhasePatch{CurrentDay: intptr(3)})
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if state.Status != types.PhaseLive || state.CurrentDay != 3 {
		t.Fatalf("unexpected merged state %+v", state)
	}

	msgs := emitter.messages()
	if len(msgs) != 2 {
		t.Fatalf("emitted %d messages, want 2", len(msgs))
	}
	if msgs[0].Channel != realtime.ChannelEvent || msgs[0].Event != realtime.SSEEventPhaseChanged {
		t.Fatalf("unexpected message %+v", msgs[0])
	}
}

func TestUpdateWithVersionDetectsConflict(t *testing.T) {
	_, phaseRepo, db, _ := newPhaseService(t)
	controller := testutil.SeedController(t, db)
	ctx := testutil.CtxFor(controller)

	current, err := phaseRepo.Get(ctx, nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	winner := *current
	winner.Status = types.PhaseLive
	ok, err := phaseRepo.UpdateWithVersion(ctx, nil, &winner, current.Version)
	if err != nil || !ok {
		t.Fatalf("first write ok=%v err=%v", ok, err)
	}

	// A second writer still holding the old version must lose.
	loser := *current
	loser.Status = types.PhasePaused
	ok, err = phaseRepo.UpdateWithVersion(ctx, nil, &loser, current.Version)
	if err != nil {
		t.Fatalf("second write err: %v", err)
	}
	if ok {
		t.Fatalf("stale version write succeeded")
	}
}

func TestComputeTabVisibility(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		state types.EventPhaseState
		want  TabVisibility
	}{
		{
			name:  "nothing unlocked",
			state: types.EventPhaseState{Status: types.PhaseLive},
			want:  TabVisibility{},
		},
		{
			name:  "bonus unlocked by timestamp",
			state: types.EventPhaseState{Status: types.PhaseLive, BonusTabUnlocksAt: &past},
			want:  TabVisibility{BonusTabVisible: true},
		},
		{
			name:  "bonus still locked",
			state: types.EventPhaseState{Status: types.PhaseLive, BonusTabUnlocksAt: &future},
			want:  TabVisibility{},
		},
		{
			name:  "post event phase forces post tab",
			state: types.EventPhaseState{Status: types.PhasePostEvent},
			want:  TabVisibility{PostEventTabVisible: true},
		},
		{
			name:  "offer visible carries through",
			state: types.EventPhaseState{Status: types.PhaseLive, OfferVisible: true},
			want:  TabVisibility{OfferVisible: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTabVisibility(&tt.state, now)
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
