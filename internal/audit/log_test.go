package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"medregistry.org/internal/audit"
	"medregistry.org/internal/store/memory"
)

type failingStore struct{}

func (failingStore) AppendEvent(ctx context.Context, e audit.Event) (audit.Event, error) {
	return audit.Event{}, errors.New("disk full")
}

func (failingStore) ListEvents(ctx context.Context) ([]audit.Event, error) {
	return nil, errors.New("disk full")
}

func TestRecordAssignsIdentityAndTimestamp(t *testing.T) {
	store := memory.New()
	when := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	log, err := audit.New(store, store, audit.WithClock(func() time.Time { return when }))
	if err != nil {
		t.Fatal(err)
	}

	e, err := log.Record(context.Background(), "admin-1", audit.ActionStatusChange, "account x: PENDING -> VERIFIED")
	if err != nil {
		t.Fatal(err)
	}
	if e.ID == "" {
		t.Fatal("event id not assigned")
	}
	if e.Seq == 0 {
		t.Fatal("event seq not assigned")
	}
	if !e.OccurredAt.Equal(when) {
		t.Fatalf("occurred_at = %v, want %v", e.OccurredAt, when)
	}
}

func TestRecordRequiresActorAndAction(t *testing.T) {
	store := memory.New()
	log, err := audit.New(store, store)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := log.Record(ctx, "", audit.ActionStatusChange, "x"); !errors.Is(err, audit.ErrInvalidInput) {
		t.Fatalf("missing actor: err = %v, want ErrInvalidInput", err)
	}
	if _, err := log.Record(ctx, "admin-1", "  ", "x"); !errors.Is(err, audit.ErrInvalidInput) {
		t.Fatalf("missing action: err = %v, want ErrInvalidInput", err)
	}
}

func TestRecordSurfacesStorageFault(t *testing.T) {
	log, err := audit.New(failingStore{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := log.Record(context.Background(), "admin-1", audit.ActionTermination, "x"); !errors.Is(err, audit.ErrPersistence) {
		t.Fatalf("storage fault: err = %v, want ErrPersistence", err)
	}
}
