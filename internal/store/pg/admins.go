package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"medregistry.org/internal/auth"
)

func (s *Store) CreateActor(ctx context.Context, actor auth.Actor) error {
	perms, err := json.Marshal(actor.PermissionList())
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into admin_actors (id, name, email, password_hash, role, permissions, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, actor.ID, actor.Name, actor.Email, actor.PasswordHash, actor.Role, perms, actor.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: %s", auth.ErrConflict, actor.Email)
		}
		return err
	}
	return nil
}

func (s *Store) GetActor(ctx context.Context, id string) (auth.Actor, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, role, permissions, created_at
		from admin_actors where id = $1
	`, id)
	return scanActor(row)
}

func (s *Store) FindActorByEmail(ctx context.Context, email string) (auth.Actor, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, role, permissions, created_at
		from admin_actors where email = $1
	`, email)
	return scanActor(row)
}

func (s *Store) ListActors(ctx context.Context) ([]auth.Actor, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, email, password_hash, role, permissions, created_at
		from admin_actors order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Actor
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, actor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanActor(row rowScanner) (auth.Actor, error) {
	var (
		actor auth.Actor
		raw   []byte
	)
	err := row.Scan(&actor.ID, &actor.Name, &actor.Email, &actor.PasswordHash,
		&actor.Role, &raw, &actor.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Actor{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Actor{}, fmt.Errorf("scan actor: %w", err)
	}
	var perms []auth.Permission
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &perms); err != nil {
			return auth.Actor{}, fmt.Errorf("decode permissions: %w", err)
		}
	}
	actor.Permissions = make(map[auth.Permission]struct{}, len(perms))
	for _, p := range perms {
		actor.Permissions[p] = struct{}{}
	}
	return actor, nil
}
