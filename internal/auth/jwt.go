package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"drive-go/internal/drive"
)

// ErrInvalidToken is returned for a bearer token that is malformed, expired,
// or signed with the wrong key.
var ErrInvalidToken = errors.New("invalid token")

// JWTAuthenticator issues and verifies HS256 tokens whose subject is the
// user id.
type JWTAuthenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  drive.Clock
}

// NewJWTAuthenticator creates an authenticator. A nil clock uses the real
// time.
func NewJWTAuthenticator(secret []byte, issuer string, ttl time.Duration, clock drive.Clock) *JWTAuthenticator {
	if clock == nil {
		clock = drive.RealClock{}
	}
	return &JWTAuthenticator{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		clock:  clock,
	}
}

// IssueToken signs a token for userID. A zero ttl uses the configured one.
func (a *JWTAuthenticator) IssueToken(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if ttl <= 0 {
		ttl = a.ttl
	}

	now := a.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// Verify checks a token and returns its subject.
func (a *JWTAuthenticator) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.clock.Now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Authenticate returns the principal of a request. Requests without an
// Authorization header are anonymous and yield drive.Anonymous.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return drive.Anonymous, nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: expected a bearer token", ErrInvalidToken)
	}
	return a.Verify(strings.TrimSpace(token))
}
