package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vendalab/impact-backend/internal/repos/testutil"
	"github.com/vendalab/impact-backend/internal/types"
)

func diagnosticRow(userID uuid.UUID, day int, inspiracao float64) *types.DiagnosticEntry {
	now := time.Now().UTC()
	return &types.DiagnosticEntry{
		ID:            uuid.New(),
		UserID:        userID,
		EventDay:      day,
		Inspiracao:    inspiracao,
		Motivacao:     5,
		Preparacao:    5,
		Apresentacao:  5,
		Conversao:     5,
		Transformacao: 5,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Both submissions carry a fresh row (and a fresh id), the way two racing
// first-time requests would. The upsert must not surface a duplicated-key
// error; the second write wins and the stored id stays the first one's.
func TestDiagnosticUpsertCollidingInserts(t *testing.T) {
	db := testutil.DB(t)
	repo := NewDiagnosticRepo(db, testutil.Logger(t))
	user := testutil.SeedUser(t, db)
	ctx := context.Background()

	first := diagnosticRow(user.ID, 1, 3)
	if err := repo.Upsert(ctx, nil, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := diagnosticRow(user.ID, 1, 8)
	if err := repo.Upsert(ctx, nil, second); err != nil {
		t.Fatalf("colliding upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("stored id changed: %s -> %s", first.ID, second.ID)
	}

	rows, err := repo.GetByUserID(ctx, nil, user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Inspiracao != 8 {
		t.Fatalf("inspiracao = %v, want last write 8", rows[0].Inspiracao)
	}
}
