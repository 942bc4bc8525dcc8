package common

import (
	"context"
	"net/http"
	"strings"
)

// SessionHeader identifies the storefront session carrying the cart. The value
// is an opaque identifier minted by the client; there is no authentication
// attached to it.
const SessionHeader = "X-Session-ID"

type ctxKey string

const sessionIDKey ctxKey = "session/id"

// WithSessionID stores the session identifier on the provided context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID extracts the session identifier from the context if present.
func SessionID(ctx context.Context) (string, bool) {
	v := ctx.Value(sessionIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// SessionMiddleware extracts the session header into the request context.
// Requests without a session are still served; handlers that need one respond
// with a validation error instead.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(SessionHeader))
		if id != "" {
			r = r.WithContext(WithSessionID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
