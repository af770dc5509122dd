package accounts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/carelink/carelink-be/internal/apperr"
	"github.com/carelink/carelink-be/internal/auth"
	"github.com/carelink/carelink-be/internal/models/dto"
	"github.com/carelink/carelink-be/internal/ratelimit"
	"github.com/carelink/carelink-be/internal/storage/memory"
)

type fixture struct {
	svc      *Service
	counters *memory.CounterCache
	tokens   *auth.TokenManager
}

func newFixture() fixture {
	counters := memory.NewCounterCache()
	tokens := auth.NewTokenManager("test-secret", "carelink-test", 15*time.Minute, 24*time.Hour)
	svc := NewService(memory.NewStore(), tokens, ratelimit.New(counters), Options{BcryptCost: bcrypt.MinCost})
	return fixture{svc: svc, counters: counters, tokens: tokens}
}

func registration(username string) dto.RegisterRequest {
	return dto.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Name:     "Test User",
		Password: "Kq7!vRm2#xLp",
	}
}

func TestRegisterIssuesTokens(t *testing.T) {
	f := newFixture()
	resp, err := f.svc.Register(context.Background(), "10.0.0.1", registration("alice"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.ID == 0 || resp.User.Username != "alice" || resp.User.Email != "alice@example.com" {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	caller, err := f.tokens.ParseAccess(resp.Tokens.Access)
	if err != nil {
		t.Fatalf("access token rejected: %v", err)
	}
	if caller.UserID != resp.User.ID {
		t.Fatalf("token subject %d, want %d", caller.UserID, resp.User.ID)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "10.0.0.1", registration("alice")); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := f.svc.Register(ctx, "10.0.0.2", registration("alice"))
	if !errors.Is(err, apperr.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	req := registration("bob")
	req.Email = "alice@example.com"
	_, err = f.svc.Register(ctx, "10.0.0.3", req)
	if !errors.Is(err, apperr.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterWithoutEmail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i, name := range []string{"carol", "dave"} {
		req := registration(name)
		req.Email = ""
		if _, err := f.svc.Register(ctx, fmt.Sprintf("10.0.1.%d", i), req); err != nil {
			t.Fatalf("users without email must not collide: %v", err)
		}
	}
}

func TestRegisterAttemptLimit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const ip = "10.0.0.9"

	// Rejected attempts count too.
	for i := 0; i < 5; i++ {
		req := registration(fmt.Sprintf("user%d", i))
		if i%2 == 0 {
			req.Password = "short"
		}
		_, err := f.svc.Register(ctx, ip, req)
		if errors.Is(err, apperr.ErrRateLimited) {
			t.Fatalf("attempt %d limited too early", i+1)
		}
	}

	_, err := f.svc.Register(ctx, ip, registration("sixth"))
	var rl *apperr.RateLimitError
	if !errors.As(err, &rl) || rl.RetryAfter != time.Hour {
		t.Fatalf("expected rate limit, got %v", err)
	}
	n, _ := f.counters.Get(ctx, "register_attempts_"+ip)
	if n != 5 {
		t.Fatalf("rejected attempt must not count, counter=%d", n)
	}

	if _, err := f.svc.Register(ctx, "10.0.0.10", registration("sixth")); err != nil {
		t.Fatalf("other clients are unaffected: %v", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	f := newFixture()
	req := registration("erin")
	req.Password = "12345678"
	_, err := f.svc.Register(context.Background(), "10.0.0.1", req)
	if !errors.Is(err, apperr.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestLoginFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "10.0.0.1", registration("alice")); err != nil {
		t.Fatalf("register: %v", err)
	}

	const ip = "10.0.0.2"
	for i := 0; i < 3; i++ {
		_, err := f.svc.Login(ctx, ip, dto.LoginRequest{Username: "alice", Password: "wrong-pass"})
		if !errors.Is(err, apperr.ErrInvalidCredentials) {
			t.Fatalf("expected invalid credentials, got %v", err)
		}
	}
	if n, _ := f.counters.Get(ctx, "login_attempts_"+ip); n != 3 {
		t.Fatalf("failed logins counted %d, want 3", n)
	}

	pair, err := f.svc.Login(ctx, ip, dto.LoginRequest{Username: "alice", Password: "Kq7!vRm2#xLp"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatalf("missing tokens: %+v", pair)
	}
	if n, _ := f.counters.Get(ctx, "login_attempts_"+ip); n != 0 {
		t.Fatalf("success must clear the counter, got %d", n)
	}

	access, err := f.svc.Refresh(ctx, pair.Refresh)
	if err != nil || access.Access == "" {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, pair.Access); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
}

func TestLoginAttemptLimit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "10.0.0.1", registration("alice")); err != nil {
		t.Fatalf("register: %v", err)
	}

	const ip = "10.0.0.3"
	for i := 0; i < 10; i++ {
		if _, err := f.svc.Login(ctx, ip, dto.LoginRequest{Username: "ghost", Password: "whatever1"}); !errors.Is(err, apperr.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i+1, err)
		}
	}
	_, err := f.svc.Login(ctx, ip, dto.LoginRequest{Username: "alice", Password: "Kq7!vRm2#xLp"})
	if !errors.Is(err, apperr.ErrRateLimited) {
		t.Fatalf("expected rate limit even with valid credentials, got %v", err)
	}
}

func TestLoginMissingFields(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Login(context.Background(), "10.0.0.4", dto.LoginRequest{})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n, _ := f.counters.Get(context.Background(), "login_attempts_10.0.0.4"); n != 0 {
		t.Fatalf("malformed requests are not failed logins, counter=%d", n)
	}
}
