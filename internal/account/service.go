package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medregistry.org/internal/audit"
	"medregistry.org/internal/auth"
	"medregistry.org/internal/ids"
	"medregistry.org/internal/notify"
	"medregistry.org/internal/obs"
)

// Recorder is the slice of the audit engine the lifecycle engine needs.
type Recorder interface {
	Record(ctx context.Context, actorID, action, details string) (audit.Event, error)
}

// Service is the verification state machine. It validates and applies status
// transitions and emits one audit event per mutation. Authorization is the
// caller's concern: the engine trusts that the boundary already consulted the
// guard, which keeps the state machine pure.
type Service struct {
	store  Store
	audit  Recorder
	notify notify.Sender
	now    func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the lifecycle engine. notifier may be nil; credential
// reset notices are then skipped.
func NewService(store Store, recorder Recorder, notifier notify.Sender, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	svc := &Service{
		store:  store,
		audit:  recorder,
		notify: notifier,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SubmitApplication creates an account in state PENDING.
func (s *Service) SubmitApplication(ctx context.Context, draft Draft) (Account, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Email = strings.TrimSpace(strings.ToLower(draft.Email))
	if draft.Name == "" {
		return Account{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if draft.Email == "" || !strings.Contains(draft.Email, "@") {
		return Account{}, fmt.Errorf("%w: valid email is required", ErrValidation)
	}
	if draft.Role != RolePractitioner && draft.Role != RoleDispensary {
		return Account{}, fmt.Errorf("%w: role must be PRACTITIONER or DISPENSARY", ErrValidation)
	}

	acct := Account{
		ID:            ids.New(),
		Name:          draft.Name,
		Email:         draft.Email,
		Role:          draft.Role,
		Status:        StatusPending,
		Phone:         strings.TrimSpace(draft.Phone),
		PostalCode:    strings.TrimSpace(draft.PostalCode),
		LicenseNumber: strings.TrimSpace(draft.LicenseNumber),
		RegisteredAt:  s.now().UTC(),
	}
	if cred := strings.TrimSpace(draft.Credential); cred != "" {
		hash, err := auth.HashPassword(cred)
		if err != nil {
			return Account{}, err
		}
		acct.CredentialHash = hash
	}

	if err := s.store.CreateAccount(ctx, acct); err != nil {
		return Account{}, err
	}
	if _, err := s.audit.Record(ctx, acct.ID, audit.ActionAccountRegistered,
		fmt.Sprintf("%s %q registered (%s)", strings.ToLower(string(acct.Role)), acct.Name, acct.Email)); err != nil {
		return acct, err
	}
	obs.TransitionApplied(string(StatusPending))
	return acct, nil
}

// Decide applies a VERIFIED or REJECTED decision to a PENDING account. Any
// other current state, including a concurrent decision that won the race,
// yields ErrInvalidTransition.
func (s *Service) Decide(ctx context.Context, accountID, actorID string, decision Status) (Account, error) {
	if decision != StatusVerified && decision != StatusRejected {
		return Account{}, fmt.Errorf("%w: decision must be VERIFIED or REJECTED", ErrValidation)
	}
	var old Status
	acct, err := s.store.Apply(ctx, accountID, func(a *Account) error {
		if a.Status != StatusPending {
			return fmt.Errorf("%w: account is %s, decisions apply to PENDING only", ErrInvalidTransition, a.Status)
		}
		old = a.Status
		a.Status = decision
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	if _, err := s.audit.Record(ctx, actorID, audit.ActionStatusChange,
		fmt.Sprintf("account %s: %s -> %s", accountID, old, decision)); err != nil {
		return acct, err
	}
	obs.TransitionApplied(string(decision))
	return acct, nil
}

// Terminate moves a VERIFIED or DIRECTORY account into the TERMINATED sink
// state. The reason is mandatory; termination is one-way by design and no
// reinstate operation exists.
func (s *Service) Terminate(ctx context.Context, accountID, actorID, reason string) (Account, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Account{}, fmt.Errorf("%w: termination reason is required", ErrValidation)
	}
	when := s.now().UTC()
	acct, err := s.store.Apply(ctx, accountID, func(a *Account) error {
		if a.Status != StatusVerified && a.Status != StatusDirectory {
			return fmt.Errorf("%w: cannot terminate account in state %s", ErrInvalidTransition, a.Status)
		}
		a.Status = StatusTerminated
		a.TerminatedAt = &when
		a.TerminatedBy = actorID
		a.TerminationReason = reason
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	if _, err := s.audit.Record(ctx, actorID, audit.ActionTermination,
		fmt.Sprintf("account %s terminated: %s", accountID, reason)); err != nil {
		return acct, err
	}
	obs.TransitionApplied(string(StatusTerminated))
	return acct, nil
}

// PromoteDirectoryLead attaches a login credential to a DIRECTORY account and
// moves it to PENDING, re-entering the normal approval path.
func (s *Service) PromoteDirectoryLead(ctx context.Context, accountID, credential string) (Account, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Account{}, fmt.Errorf("%w: a credential is required to claim a listing", ErrValidation)
	}
	hash, err := auth.HashPassword(credential)
	if err != nil {
		return Account{}, err
	}
	acct, err := s.store.Apply(ctx, accountID, func(a *Account) error {
		if a.Status != StatusDirectory {
			return fmt.Errorf("%w: only DIRECTORY accounts can be claimed, account is %s", ErrInvalidTransition, a.Status)
		}
		a.Status = StatusPending
		a.CredentialHash = hash
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	if _, err := s.audit.Record(ctx, accountID, audit.ActionLeadPromoted,
		fmt.Sprintf("directory lead %s claimed, awaiting review", accountID)); err != nil {
		return acct, err
	}
	obs.TransitionApplied(string(StatusPending))
	return acct, nil
}

// ResetCredential flags the account to require a new credential on next
// authentication. The verification state is unchanged. Terminated accounts
// cannot be reset.
func (s *Service) ResetCredential(ctx context.Context, accountID, actorID string) (Account, error) {
	acct, err := s.store.Apply(ctx, accountID, func(a *Account) error {
		if a.Status == StatusTerminated {
			return fmt.Errorf("%w: account is terminated", ErrInvalidTransition)
		}
		a.CredentialResetRequired = true
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	if _, err := s.audit.Record(ctx, actorID, audit.ActionCredentialReset,
		fmt.Sprintf("credential reset requested for account %s", accountID)); err != nil {
		return acct, err
	}
	if s.notify != nil {
		// Best-effort notice; delivery failure never fails the reset.
		_ = s.notify.Send(ctx, accountID, "A credential reset was requested for your account. Set a new credential on next sign-in.")
	}
	return acct, nil
}

// AddDirectoryLead creates a DIRECTORY account from partial, unauthenticated
// listing data. No credential and no documents are required at this stage.
func (s *Service) AddDirectoryLead(ctx context.Context, entry LeadEntry) (Account, error) {
	entry.Name = strings.TrimSpace(entry.Name)
	entry.Phone = strings.TrimSpace(entry.Phone)
	entry.PostalCode = strings.TrimSpace(entry.PostalCode)
	if entry.Name == "" || entry.Phone == "" || entry.PostalCode == "" {
		return Account{}, fmt.Errorf("%w: name, phone and postal code are required", ErrValidation)
	}
	role := entry.Role
	if role == "" {
		role = RoleDispensary
	}
	if role != RolePractitioner && role != RoleDispensary {
		return Account{}, fmt.Errorf("%w: role must be PRACTITIONER or DISPENSARY", ErrValidation)
	}

	acct := Account{
		ID:           ids.New(),
		Name:         entry.Name,
		Role:         role,
		Status:       StatusDirectory,
		Phone:        entry.Phone,
		PostalCode:   entry.PostalCode,
		RegisteredAt: s.now().UTC(),
	}
	if err := s.store.CreateAccount(ctx, acct); err != nil {
		return Account{}, err
	}
	if _, err := s.audit.Record(ctx, "portal-guest", audit.ActionLeadAdded,
		fmt.Sprintf("directory lead %q added (%s)", acct.Name, acct.ID)); err != nil {
		return acct, err
	}
	obs.TransitionApplied(string(StatusDirectory))
	return acct, nil
}

// UpdateProfile applies admin edits to profile fields. Edits bypass the state
// machine but not the audit trail: every update emits account.profile_update.
func (s *Service) UpdateProfile(ctx context.Context, accountID, actorID string, upd ProfileUpdate) (Account, error) {
	var changed []string
	acct, err := s.store.Apply(ctx, accountID, func(a *Account) error {
		if a.Status == StatusTerminated {
			return fmt.Errorf("%w: account is terminated", ErrInvalidTransition)
		}
		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if name == "" {
				return fmt.Errorf("%w: name cannot be blank", ErrValidation)
			}
			a.Name = name
			changed = append(changed, "name")
		}
		if upd.Phone != nil {
			a.Phone = strings.TrimSpace(*upd.Phone)
			changed = append(changed, "phone")
		}
		if upd.PostalCode != nil {
			a.PostalCode = strings.TrimSpace(*upd.PostalCode)
			changed = append(changed, "postal_code")
		}
		if upd.LicenseNumber != nil {
			a.LicenseNumber = strings.TrimSpace(*upd.LicenseNumber)
			changed = append(changed, "license_number")
		}
		if len(changed) == 0 {
			return fmt.Errorf("%w: no fields to update", ErrValidation)
		}
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	if _, err := s.audit.Record(ctx, actorID, audit.ActionProfileUpdate,
		fmt.Sprintf("account %s fields updated: %s", accountID, strings.Join(changed, ", "))); err != nil {
		return acct, err
	}
	return acct, nil
}

// ReviewDocument marks a credential document as reviewed. It is an audit-only
// action; the verification decision itself goes through Decide.
func (s *Service) ReviewDocument(ctx context.Context, accountID, actorID, note string) error {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		note = "document reviewed"
	}
	_, err := s.audit.Record(ctx, actorID, audit.ActionDocumentReview,
		fmt.Sprintf("account %s: %s", accountID, note))
	return err
}

// Get loads one account.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Account{}, fmt.Errorf("%w: account id is required", ErrValidation)
	}
	return s.store.GetAccount(ctx, id)
}

// List returns accounts filtered by role and/or status; zero values match all.
func (s *Service) List(ctx context.Context, role Role, status Status) ([]Account, error) {
	all, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(all))
	for _, a := range all {
		if role != "" && a.Role != role {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
