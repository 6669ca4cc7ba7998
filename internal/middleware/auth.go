package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// BearerKey holds the Authorization bearer token, when one was sent.
const BearerKey contextKey = "bearer_token"

// BearerToken extracts "Bearer <token>" from the Authorization header.
func BearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

// SessionBearer makes a bearer token available to handlers that also accept
// the token in the request body. Verification happens in the handler's use
// case, not here.
func SessionBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := BearerToken(r); tok != "" {
			r = r.WithContext(context.WithValue(r.Context(), BearerKey, tok))
		}
		next.ServeHTTP(w, r)
	})
}

// BearerFrom returns the token stored by SessionBearer, or "".
func BearerFrom(ctx context.Context) string {
	v, _ := ctx.Value(BearerKey).(string)
	return v
}
