// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklane/tasklane/internal/auth"
	"github.com/tasklane/tasklane/pkg/errutil"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTokenService(t *testing.T, opts ...auth.TokenOption) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(testSecret, time.Hour, "tasklane-test", opts...)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService_Validation(t *testing.T) {
	tests := []struct {
		name   string
		secret []byte
		ttl    time.Duration
		errMsg string
	}{
		{"short secret", []byte("too-short"), time.Hour, "at least 32 bytes"},
		{"zero ttl", testSecret, 0, "ttl must be positive"},
		{"negative ttl", testSecret, -time.Minute, "ttl must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewTokenService(tt.secret, tt.ttl, "")
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := newTokenService(t)
	userID := ulid.Make()

	issued, err := svc.Issue(userID)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Value)
	assert.NotEmpty(t, issued.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 2*time.Second)

	session, err := svc.Verify(issued.Value)
	require.NoError(t, err)
	assert.Equal(t, userID, session.UserID)
	assert.Equal(t, issued.ID, session.TokenID)
	assert.True(t, issued.ExpiresAt.Equal(session.ExpiresAt))
}

func TestTokenService_IssueIsUnique(t *testing.T) {
	svc := newTokenService(t)
	userID := ulid.Make()

	first, err := svc.Issue(userID)
	require.NoError(t, err)
	second, err := svc.Issue(userID)
	require.NoError(t, err)

	assert.NotEqual(t, first.Value, second.Value)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestTokenService_IssueRejectsZeroUser(t *testing.T) {
	svc := newTokenService(t)

	_, err := svc.Issue(ulid.ULID{})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_TOKEN_ISSUE_FAILED")
}

func TestTokenService_VerifyRejectsEveryFlippedBit(t *testing.T) {
	svc := newTokenService(t)
	issued, err := svc.Issue(ulid.Make())
	require.NoError(t, err)

	raw := []byte(issued.Value)
	for i := range raw {
		for _, bit := range []byte{0x01, 0x02, 0x20} {
			tampered := append([]byte(nil), raw...)
			tampered[i] ^= bit

			_, err := svc.Verify(string(tampered))
			require.Error(t, err, "flip 0x%02x at %d accepted", bit, i)
			errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
		}
	}
}

func TestTokenService_VerifyRejects(t *testing.T) {
	svc := newTokenService(t)
	userID := ulid.Make()
	now := time.Now()

	sign := func(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
		t.Helper()
		signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return signed
	}
	validClaims := func() *auth.Claims {
		return &auth.Claims{
			UserID: userID.String(),
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        "token-id",
				Issuer:    "tasklane-test",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"empty", func(*testing.T) string { return "" }},
		{"garbage", func(*testing.T) string { return "not.a.token" }},
		{"alg none", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims())
		}},
		{"alg HS512 with same secret", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS512, testSecret, validClaims())
		}},
		{"wrong secret", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(strings.Repeat("x", 32)), validClaims())
		}},
		{"expired", func(t *testing.T) string {
			c := validClaims()
			c.IssuedAt = jwt.NewNumericDate(now.Add(-2 * time.Hour))
			c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
			return sign(t, jwt.SigningMethodHS256, testSecret, c)
		}},
		{"missing expiry", func(t *testing.T) string {
			c := validClaims()
			c.ExpiresAt = nil
			return sign(t, jwt.SigningMethodHS256, testSecret, c)
		}},
		{"wrong issuer", func(t *testing.T) string {
			c := validClaims()
			c.Issuer = "someone-else"
			return sign(t, jwt.SigningMethodHS256, testSecret, c)
		}},
		{"user id not a ULID", func(t *testing.T) string {
			c := validClaims()
			c.UserID = "64f1c0ffee"
			return sign(t, jwt.SigningMethodHS256, testSecret, c)
		}},
		{"missing token id", func(t *testing.T) string {
			c := validClaims()
			c.ID = ""
			return sign(t, jwt.SigningMethodHS256, testSecret, c)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.Verify(tt.token(t))
			require.Error(t, err)
			assert.Nil(t, session)
			errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
		})
	}
}

func TestTokenService_ExpiresWithClock(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := newTokenService(t, auth.WithClock(clock))

	issued, err := svc.Issue(ulid.Make())
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), issued.ExpiresAt.UTC())

	_, err = svc.Verify(issued.Value)
	require.NoError(t, err)

	now = now.Add(time.Hour + time.Second)
	_, err = svc.Verify(issued.Value)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
}
