package linkauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/campuslink/linkauth/password"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func newTestHasher(t *testing.T) *password.Hasher {
	t.Helper()
	h, err := password.NewHasher(10)
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}

// testConfig returns a config tuned for tests: HS256 signing, minimal
// failure delays, all code flows enabled.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.BcryptCost = 10
	cfg.Timing.MinFailureDelay = time.Millisecond
	cfg.Timing.MaxFailureDelay = 2 * time.Millisecond
	cfg.PasswordReset.Enabled = true
	cfg.EmailVerification.Enabled = true
	cfg.Email.From = "noreply@campuslink.example.edu"
	return cfg
}

func newTestEngine(t *testing.T, store *mockAccountStore, mutate ...func(*Config)) (*Engine, *mockMailer) {
	t.Helper()

	_, rdb := newTestRedis(t)
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	mailer := &mockMailer{}
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(store).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mailer
}

// ---------------------------------------------------------------------------
// mockAccountStore
// ---------------------------------------------------------------------------

type mockAccountStore struct {
	mu    sync.Mutex
	byID  map[string]Account
	byKey map[string]string

	getByKeyCalls int
	getByIDCalls  int
	createCalls   int
	updateCalls   int

	failGetByLoginKey error
	failUpdate        error
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{
		byID:  make(map[string]Account),
		byKey: make(map[string]string),
	}
}

func (s *mockAccountStore) put(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[a.ID] = a
	s.byKey[a.LoginKey] = a.ID
}

func (s *mockAccountStore) account(t *testing.T, id string) Account {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		t.Fatalf("account %q not in store", id)
	}
	return a
}

func (s *mockAccountStore) GetByLoginKey(_ context.Context, loginKey string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getByKeyCalls++
	if s.failGetByLoginKey != nil {
		return Account{}, s.failGetByLoginKey
	}
	id, ok := s.byKey[loginKey]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return s.byID[id], nil
}

func (s *mockAccountStore) GetByID(_ context.Context, accountID string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getByIDCalls++
	a, ok := s.byID[accountID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (s *mockAccountStore) Create(_ context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if _, ok := s.byKey[a.LoginKey]; ok {
		return ErrStoreDuplicateLoginKey
	}
	s.byID[a.ID] = a
	s.byKey[a.LoginKey] = a.ID
	return nil
}

func (s *mockAccountStore) UpdateByID(_ context.Context, accountID string, patch AccountPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.failUpdate != nil {
		return s.failUpdate
	}

	a, ok := s.byID[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	if patch.IfPendingCode != nil && a.PendingCode != *patch.IfPendingCode {
		return ErrStoreCodeConflict
	}
	if patch.CredentialHash != nil {
		a.CredentialHash = *patch.CredentialHash
	}
	if patch.EmailVerifiedAt != nil {
		a.EmailVerifiedAt = *patch.EmailVerifiedAt
	}
	if patch.PendingCode != nil {
		a.PendingCode = *patch.PendingCode
	}
	if patch.PendingCodeExpiresAt != nil {
		a.PendingCodeExpiresAt = *patch.PendingCodeExpiresAt
	}
	s.byID[accountID] = a
	return nil
}

// ---------------------------------------------------------------------------
// mockMailer / mockCaptcha
// ---------------------------------------------------------------------------

type mockMailer struct {
	mu          sync.Mutex
	sends       int
	lastTo      string
	lastSubject string
	lastBody    string
	fail        error
}

func (m *mockMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends++
	if m.fail != nil {
		return m.fail
	}
	m.lastTo = to
	m.lastSubject = subject
	m.lastBody = htmlBody
	return nil
}

func (m *mockMailer) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends
}

type mockCaptcha struct {
	mu        sync.Mutex
	calls     int
	lastToken string
	fail      error
}

func (c *mockCaptcha) Verify(_ context.Context, token, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.lastToken = token
	return c.fail
}

// seedAccount hashes the password at test cost and installs a verified
// account into the store.
func seedAccount(t *testing.T, store *mockAccountStore, hasher *password.Hasher, id, loginKey, plaintext string) Account {
	t.Helper()
	hash, err := hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("seed hash failed: %v", err)
	}
	a := Account{
		ID:              id,
		LoginKey:        loginKey,
		Email:           loginKey + "@campuslink.example.edu",
		Name:            "Test Student",
		Role:            "student",
		CredentialHash:  hash,
		EmailVerifiedAt: time.Now().Add(-time.Hour),
	}
	store.put(a)
	return a
}
