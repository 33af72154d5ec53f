package linkauth

import (
	"context"
	"testing"
)

func TestActiveSessionIntrospection(t *testing.T) {
	ctx := context.Background()
	store := newMockAccountStore()
	engine, _ := newTestEngine(t, store)
	seedAccount(t, store, engine.hasher, "acc-1", "alice", "correct-horse")
	seedAccount(t, store, engine.hasher, "acc-2", "bob", "battery-staple")

	for i := 0; i < 3; i++ {
		if _, err := engine.Login(ctx, "alice", "correct-horse"); err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
	}
	if _, err := engine.Login(ctx, "bob", "battery-staple"); err != nil {
		t.Fatalf("login bob: %v", err)
	}

	count, err := engine.ActiveSessionCount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("ActiveSessionCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 sessions for acc-1, got %d", count)
	}

	ids, err := engine.ActiveSessionIDs(ctx, "acc-1")
	if err != nil {
		t.Fatalf("ActiveSessionIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 session ids, got %d", len(ids))
	}

	total, err := engine.SessionCount(ctx)
	if err != nil {
		t.Fatalf("SessionCount: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected 4 total sessions, got %d", total)
	}

	if err := engine.LogoutAll(ctx, "acc-1"); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	count, err = engine.ActiveSessionCount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("ActiveSessionCount after logout: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 sessions after LogoutAll, got %d", count)
	}
}

func TestIntrospectionOnNilEngine(t *testing.T) {
	var engine *Engine
	if _, err := engine.ActiveSessionCount(context.Background(), "acc-1"); err != ErrEngineNotReady {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.SecurityReport(context.Background()); err != ErrEngineNotReady {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestSecurityReportSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newMockAccountStore()
	engine, _ := newTestEngine(t, store, func(cfg *Config) {
		cfg.Metrics.Enabled = true
	})
	seedAccount(t, store, engine.hasher, "acc-1", "alice", "correct-horse")

	if _, err := engine.Login(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("login: %v", err)
	}

	report, err := engine.SecurityReport(ctx)
	if err != nil {
		t.Fatalf("SecurityReport: %v", err)
	}
	if !report.RedisAvailable {
		t.Fatal("expected RedisAvailable")
	}
	if report.ActiveSessions != 1 {
		t.Fatalf("expected 1 active session, got %d", report.ActiveSessions)
	}
	if report.Config.BcryptCost != engine.config.Password.BcryptCost {
		t.Fatalf("unexpected bcrypt cost %d", report.Config.BcryptCost)
	}
	if !report.MetricsEnabled {
		t.Fatal("expected MetricsEnabled")
	}
	if report.Metrics.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected one login success in snapshot, got %d", report.Metrics.Counters[MetricLoginSuccess])
	}
	if report.GeneratedAt.IsZero() {
		t.Fatal("expected GeneratedAt to be set")
	}
}
