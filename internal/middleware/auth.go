package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tandalabs/tanda/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// CallerKey is the context key for storing the authenticated caller
	// address.
	CallerKey contextKey = "caller"
	// EmailKey is the context key for storing the authenticated account's
	// email.
	EmailKey contextKey = "email"
	// callerRefKey holds the per-request callerRef placed by Logging.
	callerRefKey contextKey = "callerRef"
)

// GetCaller extracts the authenticated caller address from the context.
// Returns empty string if not found.
func GetCaller(ctx context.Context) string {
	caller, _ := ctx.Value(CallerKey).(string)
	return caller
}

// GetEmail extracts the authenticated account email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// RequireAuth returns middleware that validates the Bearer token and injects
// the caller address into the request context. Requests without a valid
// token are rejected with 401 before any handler runs.
func RequireAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, auth.ErrMissingToken)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, auth.ErrInvalidToken)
				return
			}

			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				unauthorized(w, auth.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), CallerKey, claims.Address)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)
			setCaller(ctx, claims.Address)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"kind":"Unauthorized","message":"` + err.Error() + `"}}`))
}
