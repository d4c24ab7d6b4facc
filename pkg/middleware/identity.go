package middleware

import (
	"context"
	"net/http"
)

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// Identity lifts the authenticated user id forwarded by the platform gateway
// (X-User-ID header) into the request context. Token validation happens at
// the gateway; services behind it trust the forwarded identity.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-User-ID"); id != "" {
			r = r.WithContext(ContextWithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// ContextWithUserID returns a context carrying the given user id.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
