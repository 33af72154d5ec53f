package pgstore

import (
	"reflect"
	"testing"
	"time"

	linkauth "github.com/campuslink/linkauth"
)

func strPtr(s string) *string        { return &s }
func timePtr(t time.Time) *time.Time { return &t }

func TestBuildUpdateQueryEmptyPatch(t *testing.T) {
	_, _, empty := buildUpdateQuery("acc-1", linkauth.AccountPatch{})
	if !empty {
		t.Fatal("expected empty patch to produce no query")
	}

	// A bare condition with nothing to set is still a no-op.
	_, _, empty = buildUpdateQuery("acc-1", linkauth.AccountPatch{IfPendingCode: strPtr("abc234")})
	if !empty {
		t.Fatal("expected condition-only patch to produce no query")
	}
}

func TestBuildUpdateQuerySingleField(t *testing.T) {
	query, args, empty := buildUpdateQuery("acc-1", linkauth.AccountPatch{
		CredentialHash: strPtr("$2a$12$hash"),
	})
	if empty {
		t.Fatal("expected a query")
	}
	want := `UPDATE linkauth_accounts SET credential_hash = $2 WHERE id = $1`
	if query != want {
		t.Fatalf("query = %q, want %q", query, want)
	}
	if !reflect.DeepEqual(args, []any{"acc-1", "$2a$12$hash"}) {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestBuildUpdateQueryConditionalConsume(t *testing.T) {
	query, args, empty := buildUpdateQuery("acc-1", linkauth.AccountPatch{
		PendingCode:          strPtr(""),
		PendingCodeExpiresAt: timePtr(time.Time{}),
		IfPendingCode:        strPtr("x7k2m9"),
	})
	if empty {
		t.Fatal("expected a query")
	}
	want := `UPDATE linkauth_accounts SET pending_code = $2, pending_code_expires_at = $3 WHERE id = $1 AND pending_code = $4`
	if query != want {
		t.Fatalf("query = %q, want %q", query, want)
	}
	if len(args) != 4 || args[0] != "acc-1" || args[1] != "" || args[3] != "x7k2m9" {
		t.Fatalf("unexpected args: %#v", args)
	}
	// Zero expiry must be stored as NULL, not the zero timestamp.
	if args[2] != nil {
		t.Fatalf("expected nil for cleared expiry, got %#v", args[2])
	}
}

func TestBuildUpdateQueryClearsVerification(t *testing.T) {
	now := time.Now()
	query, args, empty := buildUpdateQuery("acc-2", linkauth.AccountPatch{
		EmailVerifiedAt: timePtr(now),
	})
	if empty {
		t.Fatal("expected a query")
	}
	want := `UPDATE linkauth_accounts SET email_verified_at = $2 WHERE id = $1`
	if query != want {
		t.Fatalf("query = %q, want %q", query, want)
	}
	if got, ok := args[1].(time.Time); !ok || !got.Equal(now) {
		t.Fatalf("unexpected verified-at arg: %#v", args[1])
	}
}

func TestNullableTime(t *testing.T) {
	if nullableTime(time.Time{}) != nil {
		t.Fatal("zero time should map to nil")
	}
	now := time.Now()
	if got, ok := nullableTime(now).(time.Time); !ok || !got.Equal(now) {
		t.Fatal("non-zero time should pass through")
	}
}
