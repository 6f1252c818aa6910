package account

import (
	"context"
	"errors"
	"time"
)

// Role classifies a registrant. Staff identities live in the auth package and
// never pass through the applicant lifecycle.
type Role string

const (
	RolePractitioner Role = "PRACTITIONER"
	RoleDispensary   Role = "DISPENSARY"
)

// Status is the verification state of an account.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusVerified   Status = "VERIFIED"
	StatusRejected   Status = "REJECTED"
	StatusDirectory  Status = "DIRECTORY"
	StatusTerminated Status = "TERMINATED"
)

// Account represents any registrant subject to the verification lifecycle:
// a practitioner, a dispensing entity or a directory lead.
type Account struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Role          Role   `json:"role"`
	Status        Status `json:"status"`
	Phone         string `json:"phone,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`

	// CredentialHash is empty for DIRECTORY accounts; they hold no login.
	CredentialHash          string `json:"-"`
	CredentialResetRequired bool   `json:"credential_reset_required,omitempty"`

	RegisteredAt time.Time `json:"registered_at"`

	TerminatedAt      *time.Time `json:"terminated_at,omitempty"`
	TerminatedBy      string     `json:"terminated_by,omitempty"`
	TerminationReason string     `json:"termination_reason,omitempty"`
}

// Draft carries the input of a registration application.
type Draft struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	Phone         string `json:"phone"`
	PostalCode    string `json:"postal_code"`
	LicenseNumber string `json:"license_number"`
	Credential    string `json:"credential"`
}

// LeadEntry carries the partial, unauthenticated data of a directory lead.
type LeadEntry struct {
	Name       string `json:"name"`
	Role       Role   `json:"role"`
	Phone      string `json:"phone"`
	PostalCode string `json:"postal_code"`
}

// ProfileUpdate carries admin-editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name          *string `json:"name"`
	Phone         *string `json:"phone"`
	PostalCode    *string `json:"postal_code"`
	LicenseNumber *string `json:"license_number"`
}

var (
	ErrValidation        = errors.New("account: invalid input")
	ErrDuplicate         = errors.New("account: email already registered")
	ErrInvalidTransition = errors.New("account: illegal status transition")
	ErrNotFound          = errors.New("account: not found")
	ErrPersistence       = errors.New("account: persistence failure")
)

// Store describes persistence for accounts. Apply runs mutate under per-account
// mutual exclusion: the mutate closure observes the current row, may reject the
// change by returning an error (nothing is written), and otherwise its edits are
// committed atomically. Transitions are linearizable per account id.
type Store interface {
	CreateAccount(ctx context.Context, acct Account) error
	GetAccount(ctx context.Context, id string) (Account, error)
	FindAccountByEmail(ctx context.Context, email string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	Apply(ctx context.Context, id string, mutate func(*Account) error) (Account, error)
}
