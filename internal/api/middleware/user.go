package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// UserIDKey is the context key for the calling user.
const UserIDKey contextKey = "user_id"

// DefaultUserID is used when a request names no user.
const DefaultUserID = "default"

// UserExtractor extracts the calling user from the request.
// It checks the X-User-Id header, then the user query parameter,
// and falls back to "default".
func UserExtractor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if user == "" {
			user = strings.TrimSpace(r.URL.Query().Get("user"))
		}
		if user == "" {
			user = DefaultUserID
		}

		ctx := context.WithValue(r.Context(), UserIDKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID retrieves the user id from the request context.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return DefaultUserID
}
