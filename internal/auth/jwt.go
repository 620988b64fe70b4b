// Package auth issues and verifies access tokens, hashes passwords, and
// resolves the caller's user id on protected routes.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client POSTs /auth/register or /auth/login with email + password
//  2. Server verifies the password (bcrypt) and issues a signed JWT
//  3. Client keeps the token and its user id
//  4. On protected routes the caller middleware resolves the user id, either
//     from the x-user-id header (header mode) or from the verified token
//     (token mode), and stores it in the request context
//
// WHY JWT?
// JWT (JSON Web Token) is stateless: all the information needed (user id,
// expiry) is inside the signed token, so verifying it needs no DB lookup.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":42,"email":"a@b.c","exp":1234567890,...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// DefaultIssuer is the "iss" claim used when none is configured.
const DefaultIssuer = "flavorai"

// DefaultTTL is the access token lifetime used when none is configured.
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken is returned by Validate for any token that fails
// verification. The wrapped cause says why.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used to sign and verify tokens. The same secret
// must be used for both operations.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithIssuer overrides the "iss" claim written and required by the service.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithTTL overrides the lifetime of tokens issued by Generate.
func WithTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	s := &TokenService{
		secret: []byte(secret),
		issuer: DefaultIssuer,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// claims is the JWT payload.
//
// NUMERIC SUBJECT:
// RegisteredClaims.Subject is a string, but clients of this API expect "sub"
// to be the numeric user id. UserID carries the same JSON name and, being the
// shallower field, wins over the embedded Subject during encoding/json
// marshalling and unmarshalling.
type claims struct {
	UserID int64  `json:"sub"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Generate creates and signs an access token for the given user using the
// service's configured lifetime.
func (s *TokenService) Generate(userID int64, email string) (string, error) {
	return s.GenerateWithDuration(userID, email, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
//
// Signing algorithm: HS256 (HMAC-SHA256). Symmetric: the same key signs and
// verifies, which suits a single-service deployment.
func (s *TokenService) GenerateWithDuration(userID int64, email string, d time.Duration) (string, error) {
	now := s.now()

	c := claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the user id held in
// its "sub" claim.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired and carries an expiry at all
//   - Issuer matches ours (prevents tokens minted for other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// ALGORITHM CONFUSION ATTACK:
// Without checking the algorithm, an attacker could send a token signed with
// "none" and the library might accept it. jwt.WithValidMethods prevents this.
func (s *TokenService) Validate(tokenStr string) (int64, error) {
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
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	if c.UserID <= 0 {
		return 0, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	return c.UserID, nil
}
