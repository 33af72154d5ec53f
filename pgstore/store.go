// Package pgstore implements the linkauth AccountStore on PostgreSQL using
// pgx. Conditional patches are applied as single UPDATE statements so that
// pending-code consumption stays atomic under concurrent redemption.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	linkauth "github.com/campuslink/linkauth"
)

const uniqueViolation = "23505"

// Schema is the table this store expects. Ship it through your migration
// tool of choice; it is exported so callers can embed it in test setups.
const Schema = `
CREATE TABLE IF NOT EXISTS linkauth_accounts (
    id                      TEXT PRIMARY KEY,
    login_key               TEXT NOT NULL UNIQUE,
    email                   TEXT NOT NULL DEFAULT '',
    name                    TEXT NOT NULL DEFAULT '',
    role                    TEXT NOT NULL DEFAULT '',
    credential_hash         TEXT NOT NULL,
    email_verified_at       TIMESTAMPTZ,
    two_factor_enabled      BOOLEAN NOT NULL DEFAULT FALSE,
    pending_code            TEXT NOT NULL DEFAULT '',
    pending_code_expires_at TIMESTAMPTZ
);
`

// Store is a PostgreSQL-backed AccountStore. Store instances are intended to
// be configured during initialization and then treated as immutable unless
// documented otherwise.
type Store struct {
	db *pgxpool.Pool
}

// NewStore wraps an existing connection pool.
func NewStore(db *pgxpool.Pool) (*Store, error) {
	if db == nil {
		return nil, errors.New("pgstore: nil pool")
	}
	return &Store{db: db}, nil
}

const selectColumns = `id, login_key, email, name, role, credential_hash,
	email_verified_at, two_factor_enabled, pending_code, pending_code_expires_at`

func (s *Store) GetByLoginKey(ctx context.Context, loginKey string) (linkauth.Account, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM linkauth_accounts WHERE login_key = $1`, loginKey)
	return scanAccount(row)
}

func (s *Store) GetByID(ctx context.Context, accountID string) (linkauth.Account, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM linkauth_accounts WHERE id = $1`, accountID)
	return scanAccount(row)
}

func (s *Store) Create(ctx context.Context, account linkauth.Account) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO linkauth_accounts
			(id, login_key, email, name, role, credential_hash,
			 email_verified_at, two_factor_enabled, pending_code, pending_code_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		account.ID, account.LoginKey, account.Email, account.Name, account.Role,
		account.CredentialHash,
		nullableTime(account.EmailVerifiedAt), account.TwoFactorEnabled,
		account.PendingCode, nullableTime(account.PendingCodeExpiresAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return linkauth.ErrStoreDuplicateLoginKey
		}
		return fmt.Errorf("pgstore: create account: %w", err)
	}
	return nil
}

// UpdateByID applies the patch in one statement. When patch.IfPendingCode is
// set and the stored code differs, the update matches zero rows and the call
// reports ErrStoreCodeConflict so redemption flows can treat the code as
// already used.
func (s *Store) UpdateByID(ctx context.Context, accountID string, patch linkauth.AccountPatch) error {
	query, args, empty := buildUpdateQuery(accountID, patch)
	if empty {
		return nil
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("pgstore: update account: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if patch.IfPendingCode != nil {
		var exists bool
		err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM linkauth_accounts WHERE id = $1)`, accountID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("pgstore: update account: %w", err)
		}
		if exists {
			return linkauth.ErrStoreCodeConflict
		}
	}
	return linkauth.ErrAccountNotFound
}

func buildUpdateQuery(accountID string, patch linkauth.AccountPatch) (string, []any, bool) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 6)
	args = append(args, accountID)

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.CredentialHash != nil {
		add("credential_hash", *patch.CredentialHash)
	}
	if patch.EmailVerifiedAt != nil {
		add("email_verified_at", nullableTime(*patch.EmailVerifiedAt))
	}
	if patch.PendingCode != nil {
		add("pending_code", *patch.PendingCode)
	}
	if patch.PendingCodeExpiresAt != nil {
		add("pending_code_expires_at", nullableTime(*patch.PendingCodeExpiresAt))
	}
	if len(sets) == 0 {
		return "", nil, true
	}

	query := `UPDATE linkauth_accounts SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	if patch.IfPendingCode != nil {
		args = append(args, *patch.IfPendingCode)
		query += ` AND pending_code = $` + strconv.Itoa(len(args))
	}
	return query, args, false
}

func scanAccount(row pgx.Row) (linkauth.Account, error) {
	var (
		acc         linkauth.Account
		verifiedAt  *time.Time
		codeExpires *time.Time
	)
	err := row.Scan(
		&acc.ID, &acc.LoginKey, &acc.Email, &acc.Name, &acc.Role,
		&acc.CredentialHash, &verifiedAt, &acc.TwoFactorEnabled,
		&acc.PendingCode, &codeExpires,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return linkauth.Account{}, linkauth.ErrAccountNotFound
		}
		return linkauth.Account{}, fmt.Errorf("pgstore: scan account: %w", err)
	}
	if verifiedAt != nil {
		acc.EmailVerifiedAt = *verifiedAt
	}
	if codeExpires != nil {
		acc.PendingCodeExpiresAt = *codeExpires
	}
	return acc, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
