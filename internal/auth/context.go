package auth

import "context"

// Caller is the identity resolved from a bearer token.
type Caller struct {
	UserID   int64
	Username string
}

type contextKey string

const callerKey = contextKey("caller")

// WithCaller stores the authenticated caller on ctx.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFrom returns the caller stored by WithCaller.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok
}
