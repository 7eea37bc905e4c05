// internal/auth/context.go
//
// Request-identity helpers.
//
// Context
// -------
// Forge trusts the edge proxy to authenticate callers and forward the
// opaque user id in the X-Forge-User header.  The identity middleware
// stores that id here; handlers read it back through UserID.  The id is
// never parsed or interpreted, only compared against row ownership.

package auth

import "context"

// userKey is unexported to avoid context-key collisions.
type userKey struct{}

// WithUser returns a new context carrying the given user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID extracts the user id from ctx.  It returns ("", false) when no
// identity is attached.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
