package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medregistry.org/internal/ids"
	"medregistry.org/internal/obs"
)

const defaultPageSize = 50

// wellKnownActors are synthetic ids for actions not tied to a stored identity.
var wellKnownActors = map[string]ActorInfo{
	"system":       {ID: "system", Name: "System", Category: CategoryExternal},
	"portal-guest": {ID: "portal-guest", Name: "Portal guest", Category: CategoryExternal},
}

// Log is the append-only audit engine: a write side (Record) and a read side
// (Query) over the same store.
type Log struct {
	store    Store
	dir      ActorDirectory
	pageSize int
	now      func() time.Time
}

// Option configures the Log.
type Option func(*Log)

// WithPageSize overrides the query page size.
func WithPageSize(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(l *Log) {
		if fn != nil {
			l.now = fn
		}
	}
}

// New constructs the audit log engine. dir may be nil, in which case every
// actor resolves as UNKNOWN except the well-known synthetic ids.
func New(store Store, dir ActorDirectory, opts ...Option) (*Log, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	l := &Log{
		store:    store,
		dir:      dir,
		pageSize: defaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Record appends one event with a server-assigned id and UTC timestamp.
// A storage fault surfaces as ErrPersistence and is never swallowed: losing
// an audit write is at least as serious as the action it records.
func (l *Log) Record(ctx context.Context, actorID, action, details string) (Event, error) {
	actorID = strings.TrimSpace(actorID)
	action = strings.TrimSpace(action)
	if actorID == "" || action == "" {
		return Event{}, fmt.Errorf("%w: actor id and action are required", ErrInvalidInput)
	}
	e := Event{
		ID:         ids.New(),
		ActorID:    actorID,
		Action:     action,
		Details:    details,
		OccurredAt: l.now().UTC(),
	}
	stored, err := l.store.AppendEvent(ctx, e)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	obs.AuditEventRecorded(action)
	obs.LogEntry(map[string]any{
		"ts":       stored.OccurredAt.Format(time.RFC3339Nano),
		"type":     "audit",
		"event":    action,
		"actor_id": actorID,
		"details":  details,
	})
	return stored, nil
}

func (l *Log) resolveActor(ctx context.Context, id string) ActorInfo {
	if info, ok := wellKnownActors[id]; ok {
		return info
	}
	if l.dir != nil {
		if info, ok := l.dir.ResolveActor(ctx, id); ok {
			return info
		}
	}
	// Unresolvable ids degrade to the raw id; historical events outlive the
	// identities that produced them.
	return ActorInfo{ID: id, Name: id, Category: CategoryUnknown}
}
