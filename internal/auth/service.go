package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medregistry.org/internal/ids"
)

const defaultSessionTTL = 8 * time.Hour

// Service manages admin actors and their session tokens.
type Service struct {
	store      ActorStore
	sessionTTL time.Duration
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithSessionTTL overrides the session token lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs an admin Service over the given store.
func NewService(store ActorStore, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("actor store is required")
	}
	svc := &Service{
		store:      store,
		sessionTTL: defaultSessionTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateActor registers a new admin actor. The permission set is derived from
// the Catalog at this moment and never edited afterwards.
func (s *Service) CreateActor(ctx context.Context, name, email, password string, role Role) (Actor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Actor{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return Actor{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return Actor{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	perms, ok := PermissionsFor(role)
	if !ok {
		return Actor{}, fmt.Errorf("%w: unknown role %s", ErrInvalidInput, role)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Actor{}, err
	}
	actor := Actor{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Permissions:  perms,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateActor(ctx, actor); err != nil {
		return Actor{}, err
	}
	return actor, nil
}

// GetActor loads an admin actor by id.
func (s *Service) GetActor(ctx context.Context, id string) (Actor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Actor{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	return s.store.GetActor(ctx, id)
}

// ListActors returns all admin actors.
func (s *Service) ListActors(ctx context.Context) ([]Actor, error) {
	return s.store.ListActors(ctx)
}

// Login verifies credentials and issues a session token for the actor.
func (s *Service) Login(ctx context.Context, email, password string) (Actor, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Actor{}, "", ErrUnauthorized
	}
	actor, err := s.store.FindActorByEmail(ctx, email)
	if err != nil {
		return Actor{}, "", ErrUnauthorized
	}
	if err := VerifyPassword(actor.PasswordHash, password); err != nil {
		return Actor{}, "", ErrUnauthorized
	}
	token, err := GenerateToken(actor.ID, actor.Role, s.sessionTTL)
	if err != nil {
		return Actor{}, "", err
	}
	return actor, token, nil
}

// Authenticate validates a session token and loads the referenced actor.
func (s *Service) Authenticate(ctx context.Context, token string) (Actor, error) {
	claims, err := ParseAndValidate(token)
	if err != nil {
		return Actor{}, ErrInvalidToken
	}
	actor, err := s.store.GetActor(ctx, claims.Subject)
	if err != nil {
		return Actor{}, ErrInvalidToken
	}
	return actor, nil
}
