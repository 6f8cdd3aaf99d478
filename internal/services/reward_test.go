package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/vendalab/impact-backend/internal/config"
	"github.com/vendalab/impact-backend/internal/realtime"
	"github.com/vendalab/impact-backend/internal/repos"
	"github.com/vendalab/impact-backend/internal/repos/testutil"
)

func TestCreditIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	emitter := &recordingEmitter{}
	svc := NewRewardService(db, log, config.Default(),
		repos.NewRewardEntryRepo(db, log), repos.NewUserProgressRepo(db, log), emitter)
	user := testutil.SeedUser(t, db)
	ctx := context.Background()

	first, err := svc.Credit(ctx, user.ID, CreditInput{ActionKey: "watched_intro", XPAmount: 50})
	if err != nil {
		t.Fatalf("first credit: %v", err)
	}
	if first.AlreadyCredited {
		t.Fatalf("first credit reported AlreadyCredited")
	}
	if first.Progress.XPTotal != 50 {
		t.Fatalf("xp_total = %d, want 50", first.Progress.XPTotal)
	}

	second, err := svc.Credit(ctx, user.ID, CreditInput{ActionKey: "watched_intro", XPAmount: 50})
	if err != nil {
		t.Fatalf("second credit: %v", err)
	}
	if !second.AlreadyCredited {
		t.Fatalf("second credit did not report AlreadyCredited")
	}
	if second.Progress.XPTotal != 50 {
		t.Fatalf("xp_total after duplicate = %d, want 50", second.Progress.XPTotal)
	}
}

func TestCreditAggregatesLedger(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	emitter := &recordingEmitter{}
	svc := NewRewardService(db, log, config.Default(),
		repos.NewRewardEntryRepo(db, log), repos.NewUserProgressRepo(db, log), emitter)
	user := testutil.SeedUser(t, db)
	ctx := context.Background()

	actions := map[string]int{"step_one": 10, "step_two": 25, "step_three": 15}
	for key, xp := range actions {
		if _, err := svc.Credit(ctx, user.ID, CreditInput{ActionKey: key, XPAmount: xp}); err != nil {
			t.Fatalf("credit %s: %v", key, err)
		}
	}

	progress, err := svc.GetProgress(ctx, user.ID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if progress.XPTotal != 50 {
		t.Fatalf("xp_total = %d, want 50", progress.XPTotal)
	}
	var keys []string
	if err := json.Unmarshal(progress.CompletedActionKeys, &keys); err != nil {
		t.Fatalf("decode completed keys: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("completed keys = %v, want 3 entries", keys)
	}
}

func TestCreditBadgeNamespace(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	emitter := &recordingEmitter{}
	svc := NewRewardService(db, log, config.Default(),
		repos.NewRewardEntryRepo(db, log), repos.NewUserProgressRepo(db, log), emitter)
	user := testutil.SeedUser(t, db)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, user.ID, CreditInput{ActionKey: "badge:closer", XPAmount: 0}); err != nil {
		t.Fatalf("credit badge: %v", err)
	}
	if _, err := svc.Credit(ctx, user.ID, CreditInput{ActionKey: "plain_step", XPAmount: 5}); err != nil {
		t.Fatalf("credit step: %v", err)
	}

	progress, err := svc.GetProgress(ctx, user.ID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	var badges []string
	if err := json.Unmarshal(progress.Badges, &badges); err != nil {
		t.Fatalf("decode badges: %v", err)
	}
	if len(badges) != 1 || badges[0] != "closer" {
		t.Fatalf("badges = %v, want [closer]", badges)
	}
}

func TestCreditUsesXPCatalogOverride(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	emitter := &recordingEmitter{}
	cfg := config.Default()
	cfg.XPCatalog = map[string]int{"quiz_done": 30}
	svc := NewRewardService(db, log, cfg,
		repos.NewRewardEntryRepo(db, log), repos.NewUserProgressRepo(db, log), emitter)
	user := testutil.SeedUser(t, db)

	result, err := svc.Credit(context.Background(), user.ID, CreditInput{ActionKey: "quiz_done", XPAmount: 999})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if result.Progress.XPTotal != 30 {
		t.Fatalf("xp_total = %d, want catalog value 30", result.Progress.XPTotal)
	}
}

func TestCreditEmitsProgressUpdate(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	emitter := &recordingEmitter{}
	svc := NewRewardService(db, log, config.Default(),
		repos.NewRewardEntryRepo(db, log), repos.NewUserProgressRepo(db, log), emitter)
	user := testutil.SeedUser(t, db)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, user.ID, CreditInput{ActionKey: "first", XPAmount: 10}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	// A duplicate credit must not re-emit.
	if _, err := svc.Credit(ctx, user.ID, CreditInput{ActionKey: "first", XPAmount: 10}); err != nil {
		t.Fatalf("duplicate credit: %v", err)
	}

	msgs := emitter.messages()
	if len(msgs) != 1 {
		t.Fatalf("emitted %d messages, want 1", len(msgs))
	}
	if msgs[0].Event != realtime.SSEEventProgressUpdated || msgs[0].Channel != user.ID.String() {
		t.Fatalf("unexpected message %+v", msgs[0])
	}
}

func TestGetProgressWithoutLedgerIsEmpty(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewRewardService(db, log, config.Default(),
		repos.NewRewardEntryRepo(db, log), repos.NewUserProgressRepo(db, log), &recordingEmitter{})
	user := testutil.SeedUser(t, db)

	progress, err := svc.GetProgress(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if progress.XPTotal != 0 {
		t.Fatalf("xp_total = %d, want 0", progress.XPTotal)
	}
}
