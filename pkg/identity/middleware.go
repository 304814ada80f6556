package identity

import (
	"context"
	"net/http"
	"strings"

	"goingviral/pkg/errors"
)

// SessionVerifier resolves an access token to a user; *Client satisfies it.
type SessionVerifier interface {
	User(ctx context.Context, accessToken string) (*User, error)
}

type contextKey struct{}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the user RequireSession stored, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextKey{}).(*User)
	return u, ok && u != nil
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// RequireSession rejects requests without a valid session through onError
// and passes the rest on with the user in their context. OPTIONS requests
// pass through untouched.
func RequireSession(v SessionVerifier, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := BearerToken(r)
			if token == "" {
				onError(w, r, errors.Auth("Missing session"))
				return
			}
			u, err := v.User(r.Context(), token)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}
