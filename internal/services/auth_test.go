package services

import (
	"context"
	"testing"
	"time"

	"github.com/vendalab/impact-backend/internal/repos"
	"github.com/vendalab/impact-backend/internal/repos/testutil"
	"github.com/vendalab/impact-backend/internal/requestdata"
	"github.com/vendalab/impact-backend/internal/types"
)

func newAuthService(t *testing.T) AuthService {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewAuthService(db, log,
		repos.NewUserRepo(db, log), repos.NewUserTokenRepo(db, log),
		"test-secret", time.Hour, 24*time.Hour)
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user := &types.User{
		Email:     "Vendedora@Example.com",
		FirstName: "Ana",
		LastName:  "Silva",
		Password:  "supersecret",
		Role:      types.RoleController,
	}
	if err := svc.RegisterUser(ctx, user); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Email is normalized on registration and on login.
	access, refresh, err := svc.LoginUser(ctx, "vendedora@example.com", "supersecret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatalf("empty tokens")
	}

	authedCtx, err := svc.SetContextFromToken(ctx, access)
	if err != nil {
		t.Fatalf("set context: %v", err)
	}
	rd := requestdata.GetRequestData(authedCtx)
	if rd == nil || rd.UserID != user.ID {
		t.Fatalf("request data user = %+v, want %s", rd, user.ID)
	}
	if rd.Role != types.RoleController {
		t.Fatalf("role claim = %s, want controller", rd.Role)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	first := &types.User{Email: "dup@example.com", FirstName: "A", LastName: "B", Password: "password1"}
	if err := svc.RegisterUser(ctx, first); err != nil {
		t.Fatalf("register: %v", err)
	}
	second := &types.User{Email: "dup@example.com", FirstName: "C", LastName: "D", Password: "password2"}
	if err := svc.RegisterUser(ctx, second); err == nil {
		t.Fatalf("duplicate email accepted")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user := &types.User{Email: "w@example.com", FirstName: "A", LastName: "B", Password: "rightpassword"}
	if err := svc.RegisterUser(ctx, user); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.LoginUser(ctx, "w@example.com", "wrongpassword"); err == nil {
		t.Fatalf("wrong password accepted")
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user := &types.User{Email: "r@example.com", FirstName: "A", LastName: "B", Password: "password1"}
	if err := svc.RegisterUser(ctx, user); err != nil {
		t.Fatalf("register: %v", err)
	}
	access, refresh, err := svc.LoginUser(ctx, "r@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	authedCtx, err := svc.SetContextFromToken(ctx, access)
	if err != nil {
		t.Fatalf("set context: %v", err)
	}
	newAccess, newRefresh, err := svc.RefreshUser(authedCtx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if newRefresh == refresh {
		t.Fatalf("refresh token not rotated")
	}
	if newAccess == "" {
		t.Fatalf("empty rotated access token")
	}

	// The old refresh token is gone; reusing it must fail.
	staleCtx := requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString:  access,
		RefreshToken: refresh,
		UserID:       user.ID,
	})
	if _, _, err := svc.RefreshUser(staleCtx); err == nil {
		t.Fatalf("stale refresh token accepted")
	}
}

func TestLogoutDeletesSession(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user := &types.User{Email: "l@example.com", FirstName: "A", LastName: "B", Password: "password1"}
	if err := svc.RegisterUser(ctx, user); err != nil {
		t.Fatalf("register: %v", err)
	}
	access, _, err := svc.LoginUser(ctx, "l@example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	authedCtx, err := svc.SetContextFromToken(ctx, access)
	if err != nil {
		t.Fatalf("set context: %v", err)
	}
	if err := svc.LogoutUser(authedCtx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	// The access token no longer maps to a session.
	if _, err := svc.SetContextFromToken(ctx, access); err == nil {
		t.Fatalf("logged-out token still recognized")
	}
}
