package audit

import (
	"context"
	"errors"
	"time"
)

// Action codes form a closed vocabulary of security-relevant events.
const (
	ActionAccountRegistered = "account.registered"
	ActionStatusChange      = "account.status_change"
	ActionTermination       = "account.termination"
	ActionCredentialReset   = "account.credential_reset"
	ActionProfileUpdate     = "account.profile_update"
	ActionLeadAdded         = "directory.lead_added"
	ActionLeadPromoted      = "directory.lead_promoted"
	ActionLoginSuccess      = "auth.login_success"
	ActionLoginFailure      = "auth.login_failure"
	ActionDocumentReview    = "document.review"
)

// Event is one immutable record of a security-relevant action. Seq is assigned
// by the store at append time and breaks timestamp ties for display ordering.
type Event struct {
	ID         string    `json:"id"`
	Seq        uint64    `json:"seq"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	Details    string    `json:"details"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Category classifies the actor behind an event for read-side filtering.
type Category string

const (
	CategoryAll          Category = "ALL"
	CategoryPractitioner Category = "PRACTITIONER"
	CategoryDispensary   Category = "DISPENSARY"
	CategoryAdmin        Category = "ADMIN"
	CategoryExternal     Category = "EXTERNAL"
	CategoryUnknown      Category = "UNKNOWN"
)

// ActorInfo is the resolved display identity of an event's actor.
type ActorInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// ActorDirectory resolves actor ids against the current directory of accounts
// and admin actors. Resolution is display-only; the event store keeps no
// referential integrity towards it.
type ActorDirectory interface {
	ResolveActor(ctx context.Context, id string) (ActorInfo, bool)
}

// Store is the append-only persistence behind the log. Append assigns Seq;
// List returns events in insertion order.
type Store interface {
	AppendEvent(ctx context.Context, e Event) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
}

var (
	ErrInvalidInput = errors.New("audit: invalid input")
	ErrPersistence  = errors.New("audit: persistence failure")
)
