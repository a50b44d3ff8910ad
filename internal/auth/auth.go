// Package auth implements credential hashing and the signed session tokens
// presented on every protected request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrTokenInvalid covers malformed or tampered tokens. Routine from
	// buggy or malicious clients, but always worth an audit event.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired means the signature checked out but the token is past
	// its expiry; the client should re-authenticate.
	ErrTokenExpired = errors.New("token has expired")
)

// Password Hashing (Bcrypt)
// bcrypt embeds the salt in the hash and compares in constant time, so a
// wrong guess costs the same no matter how close it is.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// JWTManager issues and verifies the bearer tokens. The signing key is
// loaded once at startup and read-only afterwards: any worker can verify a
// token issued by any other worker without coordination. Rotating the key
// invalidates all outstanding tokens; rotation means restarting with new
// configuration.
type JWTManager struct {
	secretKey []byte
	lifetime  time.Duration
	now       func() time.Time
}

func NewJWTManager(secretKey string, lifetime time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		lifetime:  lifetime,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Tests use it to pin the expiry
// window; production code never calls it.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

func (m *JWTManager) Lifetime() time.Duration {
	return m.lifetime
}

// Issue mints a signed token bound to the given identity. The returned
// expiry is for client display; the authoritative copy is inside the token.
func (m *JWTManager) Issue(identity string) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.lifetime)

	claims := jwt.RegisteredClaims{
		Subject:   identity,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Issuer:    "pokedex",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature integrity and expiry and returns the embedded
// identity. Expiry and tampering are distinguished so the audit trail can
// tell a stale client from a forged token; callers surface both as the same
// unauthorized outcome.
func (m *JWTManager) Verify(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	if !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
