package auth

import "context"

// ActorStore describes persistence operations for admin actors.
type ActorStore interface {
	CreateActor(ctx context.Context, actor Actor) error
	GetActor(ctx context.Context, id string) (Actor, error)
	FindActorByEmail(ctx context.Context, email string) (Actor, error)
	ListActors(ctx context.Context) ([]Actor, error)
}
