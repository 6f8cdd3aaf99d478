package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/vendalab/impact-backend/internal/config"
	"github.com/vendalab/impact-backend/internal/repos"
	"github.com/vendalab/impact-backend/internal/repos/testutil"
)

func newSurveyService(t *testing.T) (SurveyService, *testutil.Seeded) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	user := testutil.SeedUser(t, db)
	svc := NewSurveyService(db, log, config.Default(),
		repos.NewSurveyResponseRepo(db, log), repos.NewInteractionRepo(db, log))
	return svc, &testutil.Seeded{DB: db, User: user}
}

func TestSubmitResponsesOverwrites(t *testing.T) {
	svc, seeded := newSurveyService(t)
	ctx := context.Background()

	if _, err := svc.SubmitResponses(ctx, seeded.User.ID, map[string]string{"goal": "dobrar vendas"}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.SubmitResponses(ctx, seeded.User.ID, map[string]string{"goal": "triplicar vendas", "sector": "imóveis"}); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	rows, err := svc.ListResponses(ctx, seeded.User.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("responses = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if r.QuestionKey == "goal" && r.Answer != "triplicar vendas" {
			t.Fatalf("goal answer = %q, want overwritten value", r.Answer)
		}
	}
}

func TestRecentInteractionsAreLimited(t *testing.T) {
	svc, seeded := newSurveyService(t)
	ctx := context.Background()

	limit := config.Default().InteractionHistoryEntries
	for i := 0; i < limit+5; i++ {
		if _, err := svc.LogInteraction(ctx, seeded.User.ID, InteractionRoleUser, fmt.Sprintf("mensagem %d", i)); err != nil {
			t.Fatalf("log interaction: %v", err)
		}
	}

	rows, err := svc.RecentInteractions(ctx, seeded.User.ID)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != limit {
		t.Fatalf("recent = %d, want %d", len(rows), limit)
	}
}

func TestLogInteractionValidatesRole(t *testing.T) {
	svc, seeded := newSurveyService(t)
	if _, err := svc.LogInteraction(context.Background(), seeded.User.ID, "narrator", "x"); err == nil {
		t.Fatalf("invalid role accepted")
	}
}
