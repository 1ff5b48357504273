package service

import "context"

type sessionIDKey struct{}

// ContextWithSessionID records the caller's own device session so bulk
// revocations triggered on its behalf can spare it.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// SessionIDFromContext returns the session recorded by ContextWithSessionID.
func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey{}).(string)
	return sid
}
