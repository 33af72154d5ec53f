package flows

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	errTestCaptcha   = errors.New("captcha failed")
	errTestDuplicate = errors.New("duplicate account")
	errTestBadInput  = errors.New("invalid input")
	errTestReuse     = errors.New("password reuse")
)

type accountHarness struct {
	accounts map[string]AccountRecord

	created      []AccountRecord
	createErr    error
	captchaErr   error
	captchaCalls int
	sleepCalls   int
	updated      map[string]string
	revoked      []string
	saved        map[string]string
	sent         []string
}

func (h *accountHarness) deps() AccountDeps {
	return AccountDeps{
		RequireCaptcha: true,
		DefaultRole:    "student",
		CodeTTL:        10 * time.Minute,
		CodeLength:     6,
		Now:            func() time.Time { return time.Unix(1_700_000_000, 0) },
		NewID:          func() string { return "acc-new" },
		VerifyCaptcha: func(_ context.Context, token string) error {
			h.captchaCalls++
			return h.captchaErr
		},
		GetAccountByLoginKey: func(_ context.Context, key string) (AccountRecord, error) {
			a, ok := h.accounts[key]
			if !ok {
				return AccountRecord{}, errTestNotFound
			}
			return a, nil
		},
		GetAccountByID: func(_ context.Context, id string) (AccountRecord, error) {
			for _, a := range h.accounts {
				if a.ID == id {
					return a, nil
				}
			}
			return AccountRecord{}, errTestNotFound
		},
		CreateAccount: func(_ context.Context, a AccountRecord) error {
			if h.createErr != nil {
				return h.createErr
			}
			h.created = append(h.created, a)
			return nil
		},
		IsNotFound:  func(err error) bool { return errors.Is(err, errTestNotFound) },
		IsDuplicate: func(err error) bool { return errors.Is(err, errTestDuplicate) },
		HashPassword: func(pw string) (string, error) {
			if len(pw) < 8 {
				return "", errors.New("too short")
			}
			return "hash:" + pw, nil
		},
		ComparePassword: func(hash, pw string) error {
			if hash == "hash:"+pw {
				return nil
			}
			return errTestMismatch
		},
		IsMismatch: func(err error) bool { return errors.Is(err, errTestMismatch) },
		SleepFailureDelay: func(context.Context) error {
			h.sleepCalls++
			return nil
		},
		GenerateCode: func(int) (string, error) { return "m3n5p7", nil },
		SavePendingCode: func(_ context.Context, id, c string, _ int64) error {
			if h.saved == nil {
				h.saved = map[string]string{}
			}
			h.saved[id] = c
			return nil
		},
		SendVerificationCode: func(_ context.Context, _ AccountRecord, c string) error {
			h.sent = append(h.sent, c)
			return nil
		},
		UpdateCredentialHash: func(_ context.Context, id, newHash string) error {
			if h.updated == nil {
				h.updated = map[string]string{}
			}
			h.updated[id] = newHash
			return nil
		},
		RevokeSessions: func(_ context.Context, id string) error {
			h.revoked = append(h.revoked, id)
			return nil
		},
		Errors: AccountErrors{
			EngineNotReady:      errTestNotReady,
			InvalidInput:        errTestBadInput,
			CaptchaFailed:       errTestCaptcha,
			DuplicateAccount:    errTestDuplicate,
			PasswordPolicy:      errTestPolicy,
			PasswordReuse:       errTestReuse,
			InvalidCredentials:  errTestInvalid,
			AccountNotFound:     errTestNotFound,
			SessionInvalidation: errTestRevocation,
			Unavailable:         errTestUnavailable,
		},
	}
}

func TestCreateAccountSuccess(t *testing.T) {
	h := &accountHarness{accounts: map[string]AccountRecord{}}

	account, err := RunCreateAccount(context.Background(), NewAccount{
		LoginKey:     "  Ada@Uni.EDU ",
		Name:         "Ada L",
		Password:     "strong-password",
		CaptchaToken: "tok",
	}, h.deps())
	if err != nil {
		t.Fatalf("RunCreateAccount: %v", err)
	}
	if account.LoginKey != "ada@uni.edu" {
		t.Errorf("loginKey not normalized: %q", account.LoginKey)
	}
	if account.Email != "ada@uni.edu" {
		t.Errorf("email = %q", account.Email)
	}
	if account.Role != "student" {
		t.Errorf("role = %q", account.Role)
	}
	if account.EmailVerified {
		t.Error("new account must start unverified")
	}
	if account.CredentialHash != "hash:strong-password" {
		t.Errorf("hash = %q", account.CredentialHash)
	}
	if h.captchaCalls != 1 {
		t.Errorf("captcha calls = %d", h.captchaCalls)
	}
	// verification code issued and mailed
	if h.saved["acc-new"] != "m3n5p7" || len(h.sent) != 1 {
		t.Errorf("verification issue: saved=%v sent=%v", h.saved, h.sent)
	}
}

func TestCreateAccountCaptchaRejected(t *testing.T) {
	h := &accountHarness{accounts: map[string]AccountRecord{}, captchaErr: errors.New("low score")}

	_, err := RunCreateAccount(context.Background(), NewAccount{
		LoginKey: "ada@uni.edu",
		Password: "strong-password",
	}, h.deps())
	if !errors.Is(err, errTestCaptcha) {
		t.Fatalf("err = %v", err)
	}
	if len(h.created) != 0 {
		t.Error("account created despite failed captcha")
	}
}

func TestCreateAccountDuplicate(t *testing.T) {
	h := &accountHarness{accounts: map[string]AccountRecord{"ada@uni.edu": verifiedAccount()}}

	_, err := RunCreateAccount(context.Background(), NewAccount{
		LoginKey: "ada@uni.edu",
		Password: "strong-password",
	}, h.deps())
	if !errors.Is(err, errTestDuplicate) {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateAccountDuplicateRace(t *testing.T) {
	h := &accountHarness{accounts: map[string]AccountRecord{}, createErr: errTestDuplicate}

	_, err := RunCreateAccount(context.Background(), NewAccount{
		LoginKey: "ada@uni.edu",
		Password: "strong-password",
	}, h.deps())
	if !errors.Is(err, errTestDuplicate) {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateAccountRejectsBadInput(t *testing.T) {
	h := &accountHarness{accounts: map[string]AccountRecord{}}

	for _, in := range []NewAccount{
		{LoginKey: "", Password: "strong-password"},
		{LoginKey: "not-an-email", Password: "strong-password"},
	} {
		if _, err := RunCreateAccount(context.Background(), in, h.deps()); !errors.Is(err, errTestBadInput) {
			t.Errorf("input %+v: err = %v", in, err)
		}
	}
}

func TestChangePasswordSuccess(t *testing.T) {
	account := verifiedAccount()
	account.CredentialHash = "hash:old-password-1"
	h := &accountHarness{accounts: map[string]AccountRecord{"ada@uni.edu": account}}

	if err := RunChangePassword(context.Background(), "acc-1", "old-password-1", "new-password-1", h.deps()); err != nil {
		t.Fatalf("RunChangePassword: %v", err)
	}
	if h.updated["acc-1"] != "hash:new-password-1" {
		t.Errorf("updated = %v", h.updated)
	}
	if len(h.revoked) != 1 || h.revoked[0] != "acc-1" {
		t.Errorf("sessions not revoked: %v", h.revoked)
	}
}

func TestChangePasswordWrongOldDelays(t *testing.T) {
	account := verifiedAccount()
	account.CredentialHash = "hash:old-password-1"
	h := &accountHarness{accounts: map[string]AccountRecord{"ada@uni.edu": account}}

	err := RunChangePassword(context.Background(), "acc-1", "not-the-old-one", "new-password-1", h.deps())
	if !errors.Is(err, errTestInvalid) {
		t.Fatalf("err = %v", err)
	}
	if h.sleepCalls != 1 {
		t.Errorf("delays = %d, want 1", h.sleepCalls)
	}
	if len(h.updated) != 0 {
		t.Error("hash rotated despite wrong old password")
	}
}

func TestChangePasswordReuseRejected(t *testing.T) {
	account := verifiedAccount()
	account.CredentialHash = "hash:same-password-1"
	h := &accountHarness{accounts: map[string]AccountRecord{"ada@uni.edu": account}}

	err := RunChangePassword(context.Background(), "acc-1", "same-password-1", "same-password-1", h.deps())
	if !errors.Is(err, errTestReuse) {
		t.Fatalf("err = %v", err)
	}
}
