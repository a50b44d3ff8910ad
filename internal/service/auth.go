// Package service holds the application services behind the HTTP surface.
// Every operation on an owned resource takes the requester identity and
// threads it into the repository owner filter.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pokedex/internal/audit"
	"pokedex/internal/auth"
	"pokedex/internal/cache"
	"pokedex/internal/db"
	"pokedex/internal/repository"
)

var (
	// ErrInvalidCredential rejects registration input: short or empty
	// secret, empty principal.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrDuplicatePrincipal means the username or email is taken.
	ErrDuplicatePrincipal = errors.New("principal already registered")
	// ErrAuthenticationFailed covers unknown principal and hash mismatch
	// alike, so a caller cannot probe which usernames exist.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.JWTManager
	revoked   *cache.TTLSet
	sink      audit.Sink
	minSecret int
}

func NewAuthService(users repository.UserRepository, tokens *auth.JWTManager, revoked *cache.TTLSet, sink audit.Sink, minSecretLength int) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		revoked:   revoked,
		sink:      sink,
		minSecret: minSecretLength,
	}
}

func (s *AuthService) TokenManager() *auth.JWTManager { return s.tokens }

// Revoked exposes the revocation list for the admission pipeline.
func (s *AuthService) Revoked() *cache.TTLSet { return s.revoked }

// Register creates a principal and returns its new identity. The plaintext
// secret exists only on this call stack; storage and logs only ever see the
// bcrypt hash.
func (s *AuthService) Register(ctx context.Context, username, email, secret string) (*db.User, error) {
	if username == "" || len(secret) < s.minSecret {
		return nil, ErrInvalidCredential
	}

	hash, err := auth.HashPassword(secret)
	if err != nil {
		return nil, err
	}

	user := &db.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicatePrincipal
		}
		return nil, err
	}

	return user, nil
}

// Login verifies the credential and issues a session token. Both outcomes
// are audited; failure never says whether the principal exists.
func (s *AuthService) Login(ctx context.Context, username, secret string) (token string, expiresAt time.Time, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.sink.Emit(audit.Event{
				Kind:   audit.AuthFailure,
				Route:  "login",
				Detail: "unknown principal",
			})
			return "", time.Time{}, ErrAuthenticationFailed
		}
		return "", time.Time{}, err
	}

	if !auth.CheckPasswordHash(secret, user.PasswordHash) {
		s.sink.Emit(audit.Event{
			Kind:     audit.AuthFailure,
			Identity: user.ID,
			Route:    "login",
			Detail:   "hash mismatch",
		})
		return "", time.Time{}, ErrAuthenticationFailed
	}

	token, expiresAt, err = s.tokens.Issue(user.ID)
	if err != nil {
		return "", time.Time{}, err
	}

	s.sink.Emit(audit.Event{
		Kind:     audit.AuthSuccess,
		Identity: user.ID,
		Route:    "login",
	})
	return token, expiresAt, nil
}

// Me returns the authenticated principal's record.
func (s *AuthService) Me(ctx context.Context, identity string) (*db.User, error) {
	return s.users.GetUserByID(ctx, identity)
}

// Logout revokes the presented token. The denylist entry lives for the full
// token lifetime, an upper bound on how long the token could still verify.
func (s *AuthService) Logout(ctx context.Context, identity, token string) {
	s.revoked.Add(token, s.tokens.Lifetime())
	s.sink.Emit(audit.Event{
		Kind:     audit.AuthSuccess,
		Identity: identity,
		Route:    "logout",
		Detail:   "token revoked",
	})
}

// ChangePassword verifies the current secret, atomically replaces the
// stored hash, and revokes the presenting token so the old session dies
// with the old secret.
func (s *AuthService) ChangePassword(ctx context.Context, identity, token, current, next string) error {
	if len(next) < s.minSecret {
		return ErrInvalidCredential
	}

	user, err := s.users.GetUserByID(ctx, identity)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(current, user.PasswordHash) {
		s.sink.Emit(audit.Event{
			Kind:     audit.AuthFailure,
			Identity: identity,
			Route:    "password-change",
			Detail:   "hash mismatch",
		})
		return ErrAuthenticationFailed
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, identity, hash); err != nil {
		return err
	}

	s.revoked.Add(token, s.tokens.Lifetime())
	return nil
}
