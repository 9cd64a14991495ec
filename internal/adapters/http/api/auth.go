package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the bearer token claims the API reads. Subject is the user id.
type Claims struct {
	Admin bool `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// Authenticator verifies HMAC-signed bearer tokens.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an authenticator. An empty secret disables
// verification: every request is anonymous and admin routes are open.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Enabled reports whether tokens are verified.
func (a *Authenticator) Enabled() bool { return len(a.secret) > 0 }

// Parse validates a token string.
func (a *Authenticator) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// Sign issues a token for claims. Used by tooling and tests.
func (a *Authenticator) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Middleware attaches verified claims to the request context. A missing
// token passes through anonymously; an invalid one is rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "api.authenticate"
		raw := bearer(r)
		if raw == "" || !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := a.Parse(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", WrapKind(op, ErrUnauthorized, err))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// RequireAdmin rejects callers without the admin claim when tokens are
// verified.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "api.require_admin"
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		claims := ClaimsFrom(r.Context())
		switch {
		case claims == nil:
			writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		case !claims.Admin:
			writeError(w, http.StatusForbidden, "forbidden", NewKind(op, ErrForbidden))
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// ClaimsFrom returns the verified claims of a request, or nil.
func ClaimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
