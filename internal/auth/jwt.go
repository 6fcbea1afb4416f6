// Package auth provides credential hashing, access tokens and the HTTP
// authentication middleware.
//
// AUTHENTICATION FLOW:
//  1. POST /api/register stores a bcrypt digest of the password
//  2. POST /api/login verifies the password and returns a signed JWT
//  3. Protected routes run RequireAuth, which finds the token, validates it
//     and puts the caller's Identity into the request context
//
// The token is an identity assertion only (user id + name). Profile fields
// and the admin flag are always read from the database, never from the token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/attendance-tracker/internal/model"
)

// DefaultTokenTTL is the access token lifetime.
const DefaultTokenTTL = 8 * 24 * time.Hour

const issuer = "attendance-tracker"

// ErrTokenInvalid is the only error Validate reports to callers. Malformed,
// tampered and expired tokens are indistinguishable from the outside; the
// wrapped cause is for server-side logs.
var ErrTokenInvalid = errors.New("auth: invalid token")

// TokenService handles JWT creation and validation.
//
// The HMAC secret is fixed for the lifetime of the process.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret and token
// lifetime. A non-positive ttl means DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// claims is the JWT payload: "sub" holds the user ID, "name" the user name.
type claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Generate signs a new access token for the given identity.
func (s *TokenService) Generate(id model.Identity) (string, error) {
	if id.UserID == "" {
		return "", errors.New("auth: cannot issue a token without a user ID")
	}

	now := s.now()
	c := claims{
		Name: id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the identity it
// carries.
//
// Checks: HS256 signature, issuer, expiry (required), non-empty subject.
// Every failure wraps ErrTokenInvalid.
func (s *TokenService) Validate(tokenStr string) (model.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return model.Identity{}, fmt.Errorf("%w: unexpected claims", ErrTokenInvalid)
	}
	if c.Subject == "" {
		return model.Identity{}, fmt.Errorf("%w: token has no subject", ErrTokenInvalid)
	}

	return model.Identity{UserID: c.Subject, Name: c.Name}, nil
}
