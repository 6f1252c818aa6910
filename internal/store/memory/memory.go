// Package memory provides an in-process store used by tests and as the local
// fallback when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"medregistry.org/internal/account"
	"medregistry.org/internal/audit"
	"medregistry.org/internal/auth"
)

var (
	_ account.Store        = (*Store)(nil)
	_ auth.ActorStore      = (*Store)(nil)
	_ audit.Store          = (*Store)(nil)
	_ audit.ActorDirectory = (*Store)(nil)
)

// Store keeps accounts, admin actors and audit events behind one mutex.
// Apply holds the write lock for the whole read-validate-write cycle, which
// makes transitions linearizable per account.
type Store struct {
	mu          sync.RWMutex
	accounts    map[string]*account.Account
	emails      map[string]string // login email -> account id
	actors      map[string]*auth.Actor
	actorEmails map[string]string
	events      []audit.Event
	seq         uint64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:    make(map[string]*account.Account),
		emails:      make(map[string]string),
		actors:      make(map[string]*auth.Actor),
		actorEmails: make(map[string]string),
	}
}

// --- account.Store ---

func (s *Store) CreateAccount(ctx context.Context, acct account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct.Email != "" {
		if _, exists := s.emails[acct.Email]; exists {
			return account.ErrDuplicate
		}
	}
	cp := acct
	s.accounts[acct.ID] = &cp
	if acct.Email != "" {
		s.emails[acct.Email] = acct.ID
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return *a, nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return *s.accounts[id], nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]account.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (s *Store) Apply(ctx context.Context, id string, mutate func(*account.Account) error) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	draft := *a
	if err := mutate(&draft); err != nil {
		return account.Account{}, err
	}
	*a = draft
	return draft, nil
}

// --- auth.ActorStore ---

func (s *Store) CreateActor(ctx context.Context, actor auth.Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.actorEmails[actor.Email]; exists {
		return fmt.Errorf("%w: %s", auth.ErrConflict, actor.Email)
	}
	cp := actor
	s.actors[actor.ID] = &cp
	s.actorEmails[actor.Email] = actor.ID
	return nil
}

func (s *Store) GetActor(ctx context.Context, id string) (auth.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[id]
	if !ok {
		return auth.Actor{}, auth.ErrNotFound
	}
	return *a, nil
}

func (s *Store) FindActorByEmail(ctx context.Context, email string) (auth.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.actorEmails[email]
	if !ok {
		return auth.Actor{}, auth.ErrNotFound
	}
	return *s.actors[id], nil
}

func (s *Store) ListActors(ctx context.Context) ([]auth.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]auth.Actor, 0, len(s.actors))
	for _, a := range s.actors {
		out = append(out, *a)
	}
	return out, nil
}

// --- audit.Store ---

func (s *Store) AppendEvent(ctx context.Context, e audit.Event) (audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e.Seq = s.seq
	s.events = append(s.events, e)
	return e, nil
}

func (s *Store) ListEvents(ctx context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out, nil
}

// --- audit.ActorDirectory ---

func (s *Store) ResolveActor(ctx context.Context, id string) (audit.ActorInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[id]; ok {
		return audit.ActorInfo{ID: id, Name: a.Name, Category: categoryForRole(a.Role)}, true
	}
	if a, ok := s.actors[id]; ok {
		return audit.ActorInfo{ID: id, Name: a.Name, Category: audit.CategoryAdmin}, true
	}
	return audit.ActorInfo{}, false
}

func categoryForRole(role account.Role) audit.Category {
	switch role {
	case account.RolePractitioner:
		return audit.CategoryPractitioner
	case account.RoleDispensary:
		return audit.CategoryDispensary
	default:
		return audit.CategoryUnknown
	}
}
