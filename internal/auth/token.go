// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token configuration.
const (
	MinSecretLength  = 32
	DefaultTokenTTL  = 24 * time.Hour
	DefaultIssuer    = "tasklane"
	tokenSigningAlgo = "HS256"
)

// Claims is the signed payload of a session token.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// IssuedToken is a freshly signed session token.
type IssuedToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Session is the verified content of a session token.
type Session struct {
	UserID    ulid.ULID
	TokenID   string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Issue(userID ulid.ULID) (*IssuedToken, error)
	Verify(token string) (*Session, error)
	TTL() time.Duration
}

// TokenService issues HS256 session tokens with a fixed lifetime.
// The secret is copied at construction and never changes afterwards.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService. The secret must be at least
// MinSecretLength bytes.
func NewTokenService(secret []byte, ttl time.Duration, issuer string, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, oops.Code("AUTH_CONFIG_INVALID").
			With("min", MinSecretLength).
			Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("token ttl must be positive")
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}

	s := &TokenService{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{tokenSigningAlgo}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(s.issuer),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a new token for the user. Every call gets a fresh token ID.
func (s *TokenService) Issue(userID ulid.ULID) (*IssuedToken, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").Errorf("user ID cannot be zero")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	tokenID := uuid.NewString()

	claims := Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "sign token").
			Wrap(err)
	}

	return &IssuedToken{
		Value:     signed,
		ID:        tokenID,
		ExpiresAt: jwt.NewNumericDate(expiresAt).Time,
	}, nil
}

// Verify checks signature, algorithm, issuer and expiry and returns the
// session the token describes.
func (s *TokenService) Verify(token string) (*Session, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, oops.Code(CodeTokenInvalid).Wrap(err)
	}

	userID, err := ulid.Parse(claims.UserID)
	if err != nil {
		return nil, oops.Code(CodeTokenInvalid).
			With("claim", "uid").
			Wrap(err)
	}
	if claims.ID == "" {
		return nil, oops.Code(CodeTokenInvalid).
			With("claim", "jti").
			Errorf("token has no id")
	}

	return &Session{
		UserID:    userID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
