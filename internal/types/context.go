package types

import (
	"context"
	"strings"
)

// Actor identifies who is submitting a command. Authentication itself happens
// upstream; an authenticated Actor carries the verified account email.
type Actor struct {
	Authenticated bool
	Email         string
}

// Anonymous is the actor used when no account is attached to the request.
var Anonymous = Actor{}

// NewAccountActor returns an authenticated actor for the given account email.
func NewAccountActor(email string) Actor {
	return Actor{Authenticated: true, Email: strings.TrimSpace(email)}
}

// Owns reports whether the actor is authenticated as exactly the given email.
// Comparison is exact, matching how submitted addresses are stored.
func (a Actor) Owns(email string) bool {
	return a.Authenticated && a.Email != "" && a.Email == email
}

// Context Keys
type contextKey string

const (
	actorKey     contextKey = "actor"
	requestIDKey contextKey = "request_id"
	loggerKey    contextKey = "logger"
)

// WithActor stores the Actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor retrieves the Actor from the context. Missing actors are anonymous.
func GetActor(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorKey).(Actor)
	return actor
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

// WithLogger stores a Logger in the context.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves the Logger from the context.
// Returns nil if no logger has been set.
func LoggerFromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return nil
}
