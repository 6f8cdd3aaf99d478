package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/requestdata"
	"github.com/vendalab/impact-backend/internal/types"
)

// DB opens a fresh in-memory SQLite database for one test and migrates the
// full schema. cache=shared keeps the database alive across the multiple
// connections gorm opens; the per-test name keeps tests isolated.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.RewardEntry{},
		&types.UserProgress{},
		&types.EventPhaseState{},
		&types.DiagnosticEntry{},
		&types.GeneratedContent{},
		&types.Notification{},
		&types.SurveyResponse{},
		&types.InteractionEntry{},
	); err != nil {
		tb.Fatalf("auto migrate: %v", err)
	}
	return conn
}

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("init logger: %v", err)
	}
	return log
}

// SeedUser inserts a participant and returns it.
func SeedUser(tb testing.TB, db *gorm.DB) *types.User {
	tb.Helper()
	return seed(tb, db, types.RoleParticipant)
}

// SeedController inserts a controller-role user and returns it.
func SeedController(tb testing.TB, db *gorm.DB) *types.User {
	tb.Helper()
	return seed(tb, db, types.RoleController)
}

func seed(tb testing.TB, db *gorm.DB, role string) *types.User {
	tb.Helper()
	now := time.Now().UTC()
	user := &types.User{
		ID:        uuid.New(),
		Email:     fmt.Sprintf("%s@example.com", uuid.New().String()[:8]),
		Password:  "not-a-real-hash",
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(user).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return user
}

// Seeded bundles a test database with its seeded user.
type Seeded struct {
	DB   *gorm.DB
	User *types.User
}

// CtxFor returns a context carrying the user's identity the way the auth
// middleware would.
func CtxFor(user *types.User) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		UserID: user.ID,
		Role:   user.Role,
	})
}
