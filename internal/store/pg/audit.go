package pg

import (
	"context"

	"medregistry.org/internal/account"
	"medregistry.org/internal/audit"
)

func (s *Store) AppendEvent(ctx context.Context, e audit.Event) (audit.Event, error) {
	err := s.db.QueryRowContext(ctx, `
		insert into audit_events (id, actor_id, action, details, occurred_at)
		values ($1, $2, $3, $4, $5)
		returning seq
	`, e.ID, e.ActorID, e.Action, e.Details, e.OccurredAt).Scan(&e.Seq)
	if err != nil {
		return audit.Event{}, err
	}
	return e, nil
}

func (s *Store) ListEvents(ctx context.Context) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, seq, actor_id, action, details, occurred_at
		from audit_events order by seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []audit.Event
	for rows.Next() {
		var e audit.Event
		if err := rows.Scan(&e.ID, &e.Seq, &e.ActorID, &e.Action, &e.Details, &e.OccurredAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveActor looks the id up as an account first, then as an admin actor.
func (s *Store) ResolveActor(ctx context.Context, id string) (audit.ActorInfo, bool) {
	var (
		name string
		role account.Role
	)
	err := s.db.QueryRowContext(ctx,
		`select name, role from accounts where id = $1`, id).Scan(&name, &role)
	if err == nil {
		return audit.ActorInfo{ID: id, Name: name, Category: categoryForRole(role)}, true
	}
	err = s.db.QueryRowContext(ctx,
		`select name from admin_actors where id = $1`, id).Scan(&name)
	if err == nil {
		return audit.ActorInfo{ID: id, Name: name, Category: audit.CategoryAdmin}, true
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
