package types

import "context"

// Actor represents the authenticated entity performing an operation.
// The auth collaborator resolves bearer tokens into Actors; handlers read
// them from the request context.
type Actor struct {
	UserID string
	Email  string
}

// Context Keys
type contextKey string

const (
	actorKey     contextKey = "actor"
	requestIDKey contextKey = "request_id"
)

// WithActor stores the Actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor retrieves the Actor from the context.
func GetActor(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// GetUserID retrieves the authenticated user's ID from the context.
func GetUserID(ctx context.Context) (string, bool) {
	actor, ok := GetActor(ctx)
	return actor.UserID, ok && actor.UserID != ""
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
