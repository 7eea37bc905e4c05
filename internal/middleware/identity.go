// internal/middleware/identity.go
//
// Caller-identity middleware.
//
// The edge proxy authenticates requests and forwards the opaque user id
// in X-Forge-User.  This wrapper copies it into the request context and
// rejects management calls that arrive without one.  Ownership checks
// against that id happen in the services, not here.

package middleware

import (
	"net/http"

	"github.com/yanizio/forge/internal/auth"
)

// UserHeader is the trusted header carrying the caller's opaque id.
const UserHeader = "X-Forge-User"

// Identity attaches the caller id to the context, or answers 401 when the
// header is absent.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(UserHeader)
		if id == "" {
			http.Error(w, "missing identity", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), id)))
	})
}
