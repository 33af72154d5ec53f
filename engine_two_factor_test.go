package linkauth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func seedTwoFactorAccount(t *testing.T, store *mockAccountStore) Account {
	t.Helper()
	hasher := newTestHasher(t)
	a := seedAccount(t, store, hasher, "acc-1", "alice", "correct-horse-9")
	a.TwoFactorEnabled = true
	store.put(a)
	return a
}

func TestLoginWithTwoFactorIssuesCode(t *testing.T) {
	ctx := context.Background()
	store := newMockAccountStore()
	seedTwoFactorAccount(t, store)

	engine, mailer := newTestEngine(t, store)

	if _, err := engine.Login(ctx, "alice", "correct-horse-9"); !errors.Is(err, ErrTwoFactorRequired) {
		t.Fatalf("expected ErrTwoFactorRequired, got %v", err)
	}

	stored := store.account(t, "acc-1")
	if len(stored.PendingCode) != 6 {
		t.Fatalf("expected 6-char pending code, got %q", stored.PendingCode)
	}
	if !stored.PendingCodeExpiresAt.After(time.Now()) {
		t.Fatal("pending code must not be expired at issue time")
	}

	if mailer.sendCount() != 1 {
		t.Fatalf("expected one email, got %d", mailer.sendCount())
	}
	if mailer.lastTo != stored.Email {
		t.Fatalf("email sent to %q, want %q", mailer.lastTo, stored.Email)
	}
	if !strings.Contains(mailer.lastBody, stored.PendingCode) {
		t.Fatal("email body must carry the code")
	}
}

func TestConfirmTwoFactorCompletesLogin(t *testing.T) {
	ctx := context.Background()
	store := newMockAccountStore()
	seedTwoFactorAccount(t, store)

	engine, _ := newTestEngine(t, store)

	if _, err := engine.Login(ctx, "alice", "correct-horse-9"); !errors.Is(err, ErrTwoFactorRequired) {
		t.Fatalf("expected ErrTwoFactorRequired, got %v", err)
	}
	code := store.account(t, "acc-1").PendingCode

	res, err := engine.ConfirmTwoFactor(ctx, "alice", code)
	if err != nil {
		t.Fatalf("ConfirmTwoFactor failed: %v", err)
	}
	if res.AccessToken == "" {
		t.Fatal("expected access token after confirmation")
	}
	if _, err := engine.Validate(ctx, res.AccessToken); err != nil {
		t.Fatalf("Validate after two-factor login failed: %v", err)
	}

	if store.account(t, "acc-1").PendingCode != "" {
		t.Fatal("pending code must be cleared after redemption")
	}
}

func TestConfirmTwoFactorIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store := newMockAccountStore()
	seedTwoFactorAccount(t, store)

	engine, _ := newTestEngine(t, store)

	if _, err := engine.Login(ctx, "alice", "correct-horse-9"); !errors.Is(err, ErrTwoFactorRequired) {
		t.Fatalf("expected ErrTwoFactorRequired, got %v", err)
	}
	code := store.account(t, "acc-1").PendingCode

	if _, err := engine.ConfirmTwoFactor(ctx, "alice", code); err != nil {
		t.Fatalf("first confirmation failed: %v", err)
	}
	if _, err := engine.ConfirmTwoFactor(ctx, "alice", code); !errors.Is(err, ErrTwoFactorInvalid) {
		t.Fatalf("expected ErrTwoFactorInvalid on replay, got %v", err)
	}
}

func TestConfirmTwoFactorRejectionsAreOpaque(t *testing.T) {
	ctx := context.Background()
	store := newMockAccountStore()
	seedTwoFactorAccount(t, store)

	engine, _ := newTestEngine(t, store)

	if _, err := engine.Login(ctx, "alice", "correct-horse-9"); !errors.Is(err, ErrTwoFactorRequired) {
		t.Fatalf("expected ErrTwoFactorRequired, got %v", err)
	}

	cases := []struct {
		name     string
		loginKey string
		code     string
	}{
		{"wrong code", "alice", "zzzzzz"},
		{"unknown account", "nobody", "zzzzzz"},
		{"malformed code", "alice", "!!"},
		{"empty code", "alice", ""},
	}
	for _, tc := range cases {
		if _, err := engine.ConfirmTwoFactor(ctx, tc.loginKey, tc.code); !errors.Is(err, ErrTwoFactorInvalid) {
			t.Fatalf("%s: expected ErrTwoFactorInvalid, got %v", tc.name, err)
		}
	}
}

func TestConfirmTwoFactorExpiredCodeIsClearedLazily(t *testing.T) {
	ctx := context.Background()
	store := newMockAccountStore()
	seedTwoFactorAccount(t, store)

	engine, _ := newTestEngine(t, store)

	if _, err := engine.Login(ctx, "alice", "correct-horse-9"); !errors.Is(err, ErrTwoFactorRequired) {
		t.Fatalf("expected ErrTwoFactorRequired, got %v", err)
	}

	stale := store.account(t, "acc-1")
	code := stale.PendingCode
	stale.PendingCodeExpiresAt = time.Now().Add(-time.Minute)
	store.put(stale)

	if _, err := engine.ConfirmTwoFactor(ctx, "alice", code); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired for a matching expired code, got %v", err)
	}
	if store.account(t, "acc-1").PendingCode != "" {
		t.Fatal("expired code must be cleared at redemption time")
	}

	// Later guesses find no pending code and stay opaque.
	if _, err := engine.ConfirmTwoFactor(ctx, "alice", "zzzzzz"); !errors.Is(err, ErrTwoFactorInvalid) {
		t.Fatalf("expected ErrTwoFactorInvalid for a non-matching code, got %v", err)
	}
}

func TestSecondLoginOverwritesPendingCode(t *testing.T) {
	ctx := context.Background()
	store := newMockAccountStore()
	seedTwoFactorAccount(t, store)

	engine, _ := newTestEngine(t, store)

	if _, err := engine.Login(ctx, "alice", "correct-horse-9"); !errors.Is(err, ErrTwoFactorRequired) {
		t.Fatalf("first login: expected ErrTwoFactorRequired, got %v", err)
	}
	first := store.account(t, "acc-1").PendingCode

	if _, err := engine.Login(ctx, "alice", "correct-horse-9"); !errors.Is(err, ErrTwoFactorRequired) {
		t.Fatalf("second login: expected ErrTwoFactorRequired, got %v", err)
	}
	second := store.account(t, "acc-1").PendingCode

	if first == second {
		t.Fatal("second login must overwrite the pending code")
	}
	if _, err := engine.ConfirmTwoFactor(ctx, "alice", first); !errors.Is(err, ErrTwoFactorInvalid) {
		t.Fatalf("expected overwritten code to be rejected, got %v", err)
	}
	if _, err := engine.ConfirmTwoFactor(ctx, "alice", second); err != nil {
		t.Fatalf("latest code must redeem, got %v", err)
	}
}
