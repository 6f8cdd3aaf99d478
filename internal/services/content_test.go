package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vendalab/impact-backend/internal/config"
	"github.com/vendalab/impact-backend/internal/repos"
	"github.com/vendalab/impact-backend/internal/repos/testutil"
	"github.com/vendalab/impact-backend/internal/types"
)

func newContentService(t *testing.T, ai *fakeAIClient) (ContentService, *testutil.Seeded, repos.GeneratedContentRepo) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	user := testutil.SeedUser(t, db)
	contentRepo := repos.NewGeneratedContentRepo(db, log)
	svc := NewContentService(db, log, config.Default(),
		contentRepo,
		repos.NewDiagnosticRepo(db, log),
		repos.NewSurveyResponseRepo(db, log),
		repos.NewInteractionRepo(db, log),
		ai,
		&recordingEmitter{},
	)
	return svc, &testutil.Seeded{DB: db, User: user}, contentRepo
}

func TestGetOrGeneratePlanCachesWithinWindow(t *testing.T) {
	ai := &fakeAIClient{payload: validPlanPayload()}
	svc, seeded, _ := newContentService(t, ai)
	ctx := context.Background()

	first, err := svc.GetOrGenerate(ctx, seeded.User.ID, types.ContentKindPlan, false)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first.Cached {
		t.Fatalf("first call reported cached")
	}
	if !first.Personalized {
		t.Fatalf("generated plan not marked personalized")
	}

	second, err := svc.GetOrGenerate(ctx, seeded.User.ID, types.ContentKindPlan, false)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !second.Cached {
		t.Fatalf("second call within freshness window not cached")
	}
	if ai.callCount() != 1 {
		t.Fatalf("generator invoked %d times, want 1", ai.callCount())
	}
}

func TestGetOrGenerateForceBypassesCache(t *testing.T) {
	ai := &fakeAIClient{payload: validPlanPayload()}
	svc, seeded, _ := newContentService(t, ai)
	ctx := context.Background()

	if _, err := svc.GetOrGenerate(ctx, seeded.User.ID, types.ContentKindPlan, false); err != nil {
		t.Fatalf("first call: %v", err)
	}
	result, err := svc.GetOrGenerate(ctx, seeded.User.ID, types.ContentKindPlan, true)
	if err != nil {
		t.Fatalf("forced call: %v", err)
	}
	if result.Cached {
		t.Fatalf("forced regeneration served cache")
	}
	if ai.callCount() != 2 {
		t.Fatalf("generator invoked %d times, want 2", ai.callCount())
	}
}

func TestPlanFallbackOnGeneratorError(t *testing.T) {
	ai := &fakeAIClient{err: fmt.Errorf("upstream 500")}
	svc, seeded, contentRepo := newContentService(t, ai)
	ctx := context.Background()

	result, err := svc.GetOrGenerate(ctx, seeded.User.ID, types.ContentKindPlan, false)
	if err != nil {
		t.Fatalf("plan path must not error: %v", err)
	}
	if result.Personalized {
		t.Fatalf("fallback marked personalized")
	}
	if v, ok := result.Payload["isPersonalized"].(bool); !ok || v {
		t.Fatalf("fallback payload isPersonalized = %v", result.Payload["isPersonalized"])
	}

	// Failures are never persisted; the next call tries generation again.
	stored, gErr := contentRepo.GetLatest(ctx, nil, seeded.User.ID, types.ContentKindPlan)
	if gErr != nil {
		t.Fatalf("get latest: %v", gErr)
	}
	if stored != nil {
		t.Fatalf("failed generation persisted a record")
	}
}

func TestPlanFallbackOnInvalidPayload(t *testing.T) {
	// Missing day7.
	broken := validPlanPayload()
	delete(broken, "day7")
	ai := &fakeAIClient{payload: broken}
	svc, seeded, _ := newContentService(t, ai)

	result, err := svc.GetOrGenerate(context.Background(), seeded.User.ID, types.ContentKindPlan, false)
	if err != nil {
		t.Fatalf("plan path must not error: %v", err)
	}
	if result.Personalized {
		t.Fatalf("invalid payload served as personalized")
	}
}

func TestProjectionFailureSurfacesError(t *testing.T) {
	ai := &fakeAIClient{err: fmt.Errorf("upstream 500")}
	svc, seeded, _ := newContentService(t, ai)

	_, err := svc.GetOrGenerate(context.Background(), seeded.User.ID, types.ContentKindProjection, false)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
}

func TestProjectionInvalidPayloadSurfacesError(t *testing.T) {
	broken := validProjectionPayload()
	broken["projections"] = []any{} // wrong cardinality
	ai := &fakeAIClient{payload: broken}
	svc, seeded, _ := newContentService(t, ai)

	_, err := svc.GetOrGenerate(context.Background(), seeded.User.ID, types.ContentKindProjection, false)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
}

func TestProjectionVersionsAppend(t *testing.T) {
	ai := &fakeAIClient{payload: validProjectionPayload()}
	svc, seeded, contentRepo := newContentService(t, ai)
	ctx := context.Background()

	first, err := svc.GetOrGenerate(ctx, seeded.User.ID, types.ContentKindProjection, false)
	if err != nil {
		t.Fatalf("first projection: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("first version = %d, want 1", first.Version)
	}

	second, err := svc.GetOrGenerate(ctx, seeded.User.ID, types.ContentKindProjection, true)
	if err != nil {
		t.Fatalf("second projection: %v", err)
	}
	if second.Version != 2 {
		t.Fatalf("second version = %d, want 2", second.Version)
	}

	// History is append-only and the latest version wins.
	var count int64
	if err := seeded.DB.Model(&types.GeneratedContent{}).
		Where("user_id = ? AND kind = ?", seeded.User.ID, types.ContentKindProjection).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("stored versions = %d, want 2", count)
	}
	latest, err := contentRepo.GetLatest(ctx, nil, seeded.User.ID, types.ContentKindProjection)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest.Version != 2 {
		t.Fatalf("latest version = %d, want 2", latest.Version)
	}
}

func TestPlanReplacesSingleRecord(t *testing.T) {
	ai := &fakeAIClient{payload: validPlanPayload()}
	svc, seeded, _ := newContentService(t, ai)
	ctx := context.Background()

	if _, err := svc.GetOrGenerate(ctx, seeded.User.ID, types.ContentKindPlan, false); err != nil {
		t.Fatalf("first plan: %v", err)
	}
	if _, err := svc.GetOrGenerate(ctx, seeded.User.ID, types.ContentKindPlan, true); err != nil {
		t.Fatalf("second plan: %v", err)
	}

	var count int64
	if err := seeded.DB.Model(&types.GeneratedContent{}).
		Where("user_id = ? AND kind = ?", seeded.User.ID, types.ContentKindPlan).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("plan rows = %d, want exactly 1", count)
	}
}

// gatedAIClient signals every generation entry and blocks until released, so
// tests can hold one generation in flight while issuing another request.
type gatedAIClient struct {
	payload map[string]any
	entered chan struct{}
	release chan struct{}
}

func (g *gatedAIClient) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.payload, nil
}

// A forced request issued while a normal request is mid-generation must reach
// the generator itself instead of riding the in-flight call.
func TestForceDoesNotJoinInFlightGeneration(t *testing.T) {
	gate := &gatedAIClient{
		payload: validPlanPayload(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	db := testutil.DB(t)
	log := testutil.Logger(t)
	user := testutil.SeedUser(t, db)
	svc := NewContentService(db, log, config.Default(),
		repos.NewGeneratedContentRepo(db, log),
		repos.NewDiagnosticRepo(db, log),
		repos.NewSurveyResponseRepo(db, log),
		repos.NewInteractionRepo(db, log),
		gate,
		&recordingEmitter{},
	)
	ctx := context.Background()

	done := make(chan error, 2)
	go func() {
		_, err := svc.GetOrGenerate(ctx, user.ID, types.ContentKindPlan, false)
		done <- err
	}()
	<-gate.entered

	go func() {
		_, err := svc.GetOrGenerate(ctx, user.ID, types.ContentKindPlan, true)
		done <- err
	}()
	select {
	case <-gate.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("forced request never reached the generator")
	}

	// Release one generation at a time so the persists do not contend.
	for i := 0; i < 2; i++ {
		gate.release <- struct{}{}
		if err := <-done; err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
}

func TestGetOrGenerateUnknownKind(t *testing.T) {
	svc, seeded, _ := newContentService(t, &fakeAIClient{payload: validPlanPayload()})
	if _, err := svc.GetOrGenerate(context.Background(), seeded.User.ID, "poem", false); !errors.Is(err, ErrUnknownContentKind) {
		t.Fatalf("err = %v, want ErrUnknownContentKind", err)
	}
}
