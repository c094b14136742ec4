package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/openpulpit/sermon-api/internal/api/shared"
)

// RequireSecret returns middleware that demands the configured shared
// secret as a bearer token. Used by the trigger endpoint and the worker
// callback endpoints, which authenticate with a machine secret rather than
// an admin session.
//
// An empty configured secret disables the check so local setups work
// without one.
func RequireSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			presented, ok := bearerToken(r)
			if !ok {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
				return
			}

			if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid secret")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
