package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendalab/impact-backend/internal/repos/testutil"
	"github.com/vendalab/impact-backend/internal/types"
)

func ledgerEntry(userID uuid.UUID, actionKey string, xp int) *types.RewardEntry {
	return &types.RewardEntry{
		ID:        uuid.New(),
		UserID:    userID,
		ActionKey: actionKey,
		XPAmount:  xp,
		CreatedAt: time.Now().UTC(),
	}
}

func TestInsertReportsDuplicateWithoutError(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRewardEntryRepo(db, testutil.Logger(t))
	user := testutil.SeedUser(t, db)
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, nil, ledgerEntry(user.ID, "pitch_done", 50))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatalf("first insert reported as duplicate")
	}

	inserted, err = repo.Insert(ctx, nil, ledgerEntry(user.ID, "pitch_done", 50))
	if err != nil {
		t.Fatalf("duplicate insert errored: %v", err)
	}
	if inserted {
		t.Fatalf("duplicate insert reported as new")
	}

	total, err := repo.SumXPByUserID(ctx, nil, user.ID)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if total != 50 {
		t.Fatalf("total = %d, want 50", total)
	}
}

// A duplicate insert must leave the enclosing transaction committable; later
// writes in the same transaction have to survive.
func TestInsertDuplicateKeepsTransactionUsable(t *testing.T) {
	db := testutil.DB(t)
	repo := NewRewardEntryRepo(db, testutil.Logger(t))
	user := testutil.SeedUser(t, db)
	ctx := context.Background()

	if _, err := repo.Insert(ctx, nil, ledgerEntry(user.ID, "quiz_done", 20)); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		inserted, insErr := repo.Insert(ctx, tx, ledgerEntry(user.ID, "quiz_done", 20))
		if insErr != nil {
			return insErr
		}
		if inserted {
			t.Fatalf("duplicate insert reported as new")
		}
		_, insErr = repo.Insert(ctx, tx, ledgerEntry(user.ID, "after_duplicate", 5))
		return insErr
	})
	if err != nil {
		t.Fatalf("transaction after duplicate: %v", err)
	}

	entries, err := repo.GetByUserID(ctx, nil, user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
}
