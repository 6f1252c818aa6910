package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medregistry.org/internal/account"
)

const accountColumns = `id, name, email, role, status, phone, postal_code, license_number,
	credential_hash, credential_reset_required, registered_at,
	terminated_at, terminated_by, termination_reason`

func (s *Store) CreateAccount(ctx context.Context, a account.Account) error {
	var email any
	if a.Email != "" {
		email = a.Email
	}
	_, err := s.db.ExecContext(ctx, `
		insert into accounts (id, name, email, role, status, phone, postal_code, license_number,
			credential_hash, credential_reset_required, registered_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.ID, a.Name, email, a.Role, a.Status, a.Phone, a.PostalCode, a.LicenseNumber,
		a.CredentialHash, a.CredentialResetRequired, a.RegisteredAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return account.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id = $1`, id)
	return scanAccount(row)
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where email = $1`, email)
	return scanAccount(row)
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+accountColumns+` from accounts order by registered_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Apply runs mutate inside a transaction that locks the account row, so the
// read-validate-write cycle is atomic per account.
func (s *Store) Apply(ctx context.Context, id string, mutate func(*account.Account) error) (account.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return account.Account{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id = $1 for update`, id)
	a, err := scanAccount(row)
	if err != nil {
		return account.Account{}, err
	}
	if err := mutate(&a); err != nil {
		return account.Account{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		update accounts
		set name = $2, status = $3, phone = $4, postal_code = $5, license_number = $6,
			credential_hash = $7, credential_reset_required = $8,
			terminated_at = $9, terminated_by = $10, termination_reason = $11
		where id = $1
	`, a.ID, a.Name, a.Status, a.Phone, a.PostalCode, a.LicenseNumber,
		a.CredentialHash, a.CredentialResetRequired,
		a.TerminatedAt, nullIfEmpty(a.TerminatedBy), nullIfEmpty(a.TerminationReason)); err != nil {
		return account.Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return account.Account{}, err
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (account.Account, error) {
	var (
		a          account.Account
		email      sql.NullString
		termBy     sql.NullString
		termReason sql.NullString
		termAt     sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Name, &email, &a.Role, &a.Status, &a.Phone, &a.PostalCode,
		&a.LicenseNumber, &a.CredentialHash, &a.CredentialResetRequired, &a.RegisteredAt,
		&termAt, &termBy, &termReason)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Account{}, account.ErrNotFound
	}
	if err != nil {
		return account.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.Email = email.String
	a.TerminatedBy = termBy.String
	a.TerminationReason = termReason.String
	if termAt.Valid {
		t := termAt.Time
		a.TerminatedAt = &t
	}
	return a, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
