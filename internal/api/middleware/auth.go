package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hszk-dev/gostream/internal/api/problem"
	"github.com/hszk-dev/gostream/internal/auth"
	"github.com/hszk-dev/gostream/internal/domain/repository"
)

type authCtxKey int

const principalKey authCtxKey = iota

// Principal identifies the authenticated caller of a protected request.
type Principal struct {
	UserID   int64
	Username string
}

// PrincipalFromContext retrieves the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// WithPrincipal returns a copy of ctx carrying p as the authenticated
// principal. Exported for handler-level tests that exercise a route
// directly, bypassing Auth.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// Auth gates protected endpoints per spec.md §4.F: bearer token, fingerprint
// cookie, signature/issuer/expiry, and a constant-time fingerprint compare,
// in that order. Any failure yields 401 with no further detail.
func Auth(issuer *auth.TokenIssuer, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, r)
				return
			}

			cookie, err := r.Cookie(auth.FingerprintCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w, r)
				return
			}

			claims, err := issuer.Verify(token)
			if err != nil {
				unauthorized(w, r)
				return
			}

			if err := auth.VerifyFingerprint(claims, cookie.Value); err != nil {
				unauthorized(w, r)
				return
			}

			user, err := users.FindByUsername(r.Context(), claims.Subject)
			if err != nil {
				unauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, Principal{UserID: user.ID, Username: user.Username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	problem.Write(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
}
