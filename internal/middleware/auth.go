package middleware

import (
	"errors"
	"net/http"
	"strings"

	"pokedex/internal/audit"
	"pokedex/internal/auth"
)

// TokenVerifier checks a serialized bearer token and returns the identity
// it binds.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RevocationList answers whether a token was explicitly invalidated before
// its natural expiry (logout, password change).
type RevocationList interface {
	Contains(token string) bool
}

// AuthMiddleware is the token-checking stage of the admission pipeline.
type AuthMiddleware struct {
	verifier TokenVerifier
	revoked  RevocationList
	sink     audit.Sink
}

func NewAuth(verifier TokenVerifier, revoked RevocationList, sink audit.Sink) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, revoked: revoked, sink: sink}
}

// Handle verifies the Authorization credential on protected routes and
// attaches the resolved identity to the request context. Every failure is
// surfaced as the same unauthorized outcome; the audit detail keeps the
// real reason so a stale client and a forged token stay distinguishable in
// the log.
func (m *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := RouteOf(r.Context())

		tokenStr := bearerToken(r)

		if route.Public {
			// Anonymous routes skip the token check, but a valid token
			// still resolves the identity so quota keys on it.
			if tokenStr != "" {
				if identity, err := m.verifier.Verify(tokenStr); err == nil && !m.revoked.Contains(tokenStr) {
					r = r.WithContext(WithIdentity(r.Context(), identity))
				}
			}
			next.ServeHTTP(w, r)
			return
		}

		if tokenStr == "" {
			m.reject(w, r, "", "missing credentials")
			return
		}

		identity, err := m.verifier.Verify(tokenStr)
		if err != nil {
			detail := "token invalid"
			if errors.Is(err, auth.ErrTokenExpired) {
				detail = "token expired"
			}
			m.reject(w, r, "", detail)
			return
		}

		if m.revoked.Contains(tokenStr) {
			m.reject(w, r, identity, "token revoked")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, identity, detail string) {
	m.sink.Emit(audit.Event{
		Kind:     audit.AuthFailure,
		Identity: identity,
		Route:    r.URL.Path,
		Detail:   detail,
	})
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// BearerToken re-extracts the presented token. Logout and password-change
// handlers use it to place the live token on the revocation list.
func BearerToken(r *http.Request) string {
	return bearerToken(r)
}
