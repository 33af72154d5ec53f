package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewStore(rdb, "la", true), mr
}

func testSession() *Session {
	now := time.Now()
	return &Session{
		SessionID: "sid-1",
		AccountID: "acc-1",
		LoginKey:  "ada@uni.edu",
		Role:      "student",
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sess := testSession()

	data, err := Encode(sess)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	decoded.SessionID = sess.SessionID
	if *decoded != *sess {
		t.Errorf("round trip mismatch: %+v vs %+v", decoded, sess)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	data, err := Encode(testSession())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data[0] = 99
	if _, err := Decode(data); err == nil {
		t.Error("expected error for unknown format version")
	}
}

func TestSaveAndGet(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()
	sess := testSession()

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}

	got, err := store.Get(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.AccountID != sess.AccountID || got.LoginKey != sess.LoginKey || got.Role != sess.Role {
		t.Errorf("got %+v", got)
	}

	count, err := store.SessionCount(ctx)
	if err != nil {
		t.Fatalf("session count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestGetMissingSession(t *testing.T) {
	store, _ := newSessionStoreTest(t)

	_, err := store.Get(context.Background(), "no-such-session")
	if !errors.Is(err, redis.Nil) {
		t.Fatalf("err = %v, want redis.Nil", err)
	}
}

func TestGetExpiredByAbsoluteStamp(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()

	sess := testSession()
	sess.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}

	if _, err := store.Get(ctx, sess.SessionID); !errors.Is(err, redis.Nil) {
		t.Fatalf("err = %v, want redis.Nil for stale stamp", err)
	}

	// The stale session is cleaned up, index included.
	ids, err := store.ActiveSessionIDs(ctx, sess.AccountID)
	if err != nil {
		t.Fatalf("active ids: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("index still holds %v", ids)
	}
}

func TestDeleteSessionIdempotentCounterAndIndex(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()
	sess := testSession()

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := store.Delete(ctx, sess.SessionID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, sess.SessionID); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	count, err := store.SessionCount(ctx)
	if err != nil {
		t.Fatalf("session count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after double delete", count)
	}

	ids, err := store.ActiveSessionIDs(ctx, sess.AccountID)
	if err != nil {
		t.Fatalf("active ids: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("index still holds %v", ids)
	}
}

func TestDeleteAllForAccount(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()

	for _, sid := range []string{"sid-1", "sid-2", "sid-3"} {
		sess := testSession()
		sess.SessionID = sid
		if err := store.Save(ctx, sess, time.Hour); err != nil {
			t.Fatalf("save %s: %v", sid, err)
		}
	}

	other := testSession()
	other.SessionID = "sid-other"
	other.AccountID = "acc-2"
	if err := store.Save(ctx, other, time.Hour); err != nil {
		t.Fatalf("save other: %v", err)
	}

	if err := store.DeleteAllForAccount(ctx, "acc-1"); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	for _, sid := range []string{"sid-1", "sid-2", "sid-3"} {
		if _, err := store.Get(ctx, sid); !errors.Is(err, redis.Nil) {
			t.Errorf("session %s survived logout-all: %v", sid, err)
		}
	}
	if _, err := store.Get(ctx, "sid-other"); err != nil {
		t.Errorf("unrelated account's session was removed: %v", err)
	}

	count, err := store.SessionCount(ctx)
	if err != nil {
		t.Fatalf("session count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestSlidingRenewalCappedByAbsoluteExpiry(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	ctx := context.Background()

	sess := testSession()
	sess.ExpiresAt = time.Now().Add(10 * time.Second).Unix()
	if err := store.Save(ctx, sess, 5*time.Second); err != nil {
		t.Fatalf("save session: %v", err)
	}

	if _, err := store.Get(ctx, sess.SessionID); err != nil {
		t.Fatalf("get session: %v", err)
	}

	ttl := mr.TTL("la:" + sess.SessionID)
	if ttl <= 0 || ttl > 11*time.Second {
		t.Errorf("renewed TTL = %v, want within absolute expiry", ttl)
	}
}

func TestActiveSessionCount(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()

	for _, sid := range []string{"sid-1", "sid-2"} {
		sess := testSession()
		sess.SessionID = sid
		if err := store.Save(ctx, sess, time.Hour); err != nil {
			t.Fatalf("save %s: %v", sid, err)
		}
	}

	count, err := store.ActiveSessionCount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("active count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestNewIDShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatalf("NewID: %v", err)
		}
		if err := ValidateID(id); err != nil {
			t.Fatalf("ValidateID(%q): %v", id, err)
		}
		if seen[id] {
			t.Fatalf("duplicate session ID %q", id)
		}
		seen[id] = true
	}
}
