// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tasklane/tasklane/internal/auth"
	"github.com/tasklane/tasklane/internal/auth/mocks"
	"github.com/tasklane/tasklane/pkg/errutil"
)

type serviceMocks struct {
	users       *mocks.MockUserRepository
	revocations *mocks.MockRevocationList
	hasher      *mocks.MockPasswordHasher
	tokens      *mocks.MockTokenIssuer
}

func newServiceWithMocks(t *testing.T) (*auth.Service, serviceMocks) {
	t.Helper()
	m := serviceMocks{
		users:       mocks.NewMockUserRepository(t),
		revocations: mocks.NewMockRevocationList(t),
		hasher:      mocks.NewMockPasswordHasher(t),
		tokens:      mocks.NewMockTokenIssuer(t),
	}
	svc, err := auth.NewService(m.users, m.revocations, m.hasher, m.tokens)
	require.NoError(t, err)
	return svc, m
}

func errInvalidToken() error {
	return oops.Code(auth.CodeTokenInvalid).Errorf("token signature is invalid")
}

func TestNewService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		users       auth.UserRepository
		revocations auth.RevocationList
		hasher      auth.PasswordHasher
		tokens      auth.TokenIssuer
		expectError string
	}{
		{
			name:        "nil users repository",
			revocations: mocks.NewMockRevocationList(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			tokens:      mocks.NewMockTokenIssuer(t),
			expectError: "users repository is required",
		},
		{
			name:        "nil revocation list",
			users:       mocks.NewMockUserRepository(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			tokens:      mocks.NewMockTokenIssuer(t),
			expectError: "revocation list is required",
		},
		{
			name:        "nil password hasher",
			users:       mocks.NewMockUserRepository(t),
			revocations: mocks.NewMockRevocationList(t),
			tokens:      mocks.NewMockTokenIssuer(t),
			expectError: "password hasher is required",
		},
		{
			name:        "nil token issuer",
			users:       mocks.NewMockUserRepository(t),
			revocations: mocks.NewMockRevocationList(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "token issuer is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewService(tt.users, tt.revocations, tt.hasher, tt.tokens)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestNewServiceWithLogger_NilLogger(t *testing.T) {
	svc, err := auth.NewServiceWithLogger(
		mocks.NewMockUserRepository(t),
		mocks.NewMockRevocationList(t),
		mocks.NewMockPasswordHasher(t),
		mocks.NewMockTokenIssuer(t),
		nil,
	)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "logger")
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates normalized user and issues token", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		reg := auth.Registration{
			FirstName: "ada",
			LastName:  "lovelace",
			Username:  " Ada ",
			Email:     "ADA@example.com",
			Password:  "s3cret!",
		}
		issued := &auth.IssuedToken{Value: "tok", ID: "jti"}

		m.hasher.On("Hash", "s3cret!").Return("$argon2id$digest", nil)
		m.users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Username == "ada" && u.Email == "ada@example.com" &&
				u.FirstName == "Ada" && u.PasswordHash == "$argon2id$digest"
		})).Return(nil)
		m.tokens.On("Issue", mock.AnythingOfType("ulid.ULID")).Return(issued, nil)

		user, token, err := svc.Register(ctx, reg)
		require.NoError(t, err)
		assert.Equal(t, "ada", user.Username)
		assert.NotEqual(t, "s3cret!", user.PasswordHash)
		assert.Same(t, issued, token)
	})

	t.Run("validation failure writes nothing", func(t *testing.T) {
		svc, _ := newServiceWithMocks(t)
		reg := validRegistration()
		reg.Password = "123"

		user, token, err := svc.Register(ctx, reg)
		require.Error(t, err)
		assert.Nil(t, user)
		assert.Nil(t, token)
		errutil.AssertErrorCode(t, err, auth.CodeValidationFailed)
		errutil.AssertErrorContext(t, err, "field", "password")
	})

	t.Run("duplicate credential from storage is surfaced", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)

		m.hasher.On("Hash", "s3cret!").Return("$argon2id$digest", nil)
		m.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).
			Return(auth.DuplicateCredentialError("username"))

		_, token, err := svc.Register(ctx, validRegistration())
		require.Error(t, err)
		assert.Nil(t, token)
		errutil.AssertErrorCode(t, err, auth.CodeDuplicateCredential)
		errutil.AssertErrorContext(t, err, "field", "username")
	})

	t.Run("storage failure is wrapped", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)

		m.hasher.On("Hash", "s3cret!").Return("$argon2id$digest", nil)
		m.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).
			Return(errors.New("connection reset"))

		_, _, err := svc.Register(ctx, validRegistration())
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_REGISTER_FAILED")
		errutil.AssertErrorContext(t, err, "operation", "create user")
	})

	t.Run("hash failure is wrapped", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)

		m.hasher.On("Hash", "s3cret!").Return("", errors.New("entropy exhausted"))

		_, _, err := svc.Register(ctx, validRegistration())
		require.Error(t, err)
		errutil.AssertErrorContext(t, err, "operation", "hash password")
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()
	storedUser := func() *auth.User {
		return &auth.User{
			ID:           userID,
			Username:     "ada",
			Email:        "ada@example.com",
			PasswordHash: "$argon2id$stored",
		}
	}

	t.Run("identifier is normalized and token issued", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		issued := &auth.IssuedToken{Value: "tok", ID: "jti"}

		m.users.On("GetByIdentifier", ctx, "ada@example.com").Return(storedUser(), nil)
		m.hasher.On("Verify", "s3cret!", "$argon2id$stored").Return(true, nil)
		m.hasher.On("NeedsUpgrade", "$argon2id$stored").Return(false)
		m.tokens.On("Issue", userID).Return(issued, nil)

		user, token, err := svc.Login(ctx, "  ADA@example.com ", "s3cret!")
		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		assert.Same(t, issued, token)
	})

	t.Run("unknown identifier still verifies against dummy digest", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)

		m.users.On("GetByIdentifier", ctx, "nobody").Return(nil, auth.ErrNotFound)
		m.hasher.On("Verify", "s3cret!", mock.AnythingOfType("string")).Return(false, nil)

		user, token, err := svc.Login(ctx, "nobody", "s3cret!")
		require.Error(t, err)
		assert.Nil(t, user)
		assert.Nil(t, token)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
		m.hasher.AssertNumberOfCalls(t, "Verify", 1)
	})

	t.Run("wrong password matches unknown identifier", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)

		m.users.On("GetByIdentifier", ctx, "ada").Return(storedUser(), nil)
		m.users.On("GetByIdentifier", ctx, "nobody").Return(nil, auth.ErrNotFound)
		m.hasher.On("Verify", "wrong", mock.AnythingOfType("string")).Return(false, nil)

		_, _, wrongPassword := svc.Login(ctx, "ada", "wrong")
		_, _, unknownUser := svc.Login(ctx, "nobody", "wrong")

		require.Error(t, wrongPassword)
		require.Error(t, unknownUser)
		errutil.AssertErrorCode(t, wrongPassword, auth.CodeInvalidCredentials)
		errutil.AssertErrorCode(t, unknownUser, auth.CodeInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	})

	t.Run("dummy digest error is reported as invalid credentials", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)

		m.users.On("GetByIdentifier", ctx, "nobody").Return(nil, auth.ErrNotFound)
		m.hasher.On("Verify", "pw", mock.AnythingOfType("string")).
			Return(false, errors.New("bad digest"))

		_, _, err := svc.Login(ctx, "nobody", "pw")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	})

	t.Run("corrupt stored digest is an internal failure", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)

		m.users.On("GetByIdentifier", ctx, "ada").Return(storedUser(), nil)
		m.hasher.On("Verify", "pw", "$argon2id$stored").Return(false, errors.New("bad digest"))

		_, _, err := svc.Login(ctx, "ada", "pw")
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
		errutil.AssertErrorContext(t, err, "operation", "verify password")
	})

	t.Run("lookup failure is not reported as bad credentials", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)

		m.users.On("GetByIdentifier", ctx, "ada").Return(nil, errors.New("db down"))

		_, _, err := svc.Login(ctx, "ada", "pw")
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})

	t.Run("legacy digest is upgraded", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		legacy := storedUser()
		legacy.PasswordHash = "$2a$10$legacy"

		m.users.On("GetByIdentifier", ctx, "ada").Return(legacy, nil)
		m.hasher.On("Verify", "s3cret!", "$2a$10$legacy").Return(true, nil)
		m.hasher.On("NeedsUpgrade", "$2a$10$legacy").Return(true)
		m.hasher.On("Hash", "s3cret!").Return("$argon2id$fresh", nil)
		m.users.On("UpdatePasswordHash", ctx, userID, "$argon2id$fresh").Return(nil)
		m.tokens.On("Issue", userID).Return(&auth.IssuedToken{Value: "tok"}, nil)

		user, _, err := svc.Login(ctx, "ada", "s3cret!")
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$fresh", user.PasswordHash)
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	session := &auth.Session{UserID: ulid.Make(), TokenID: "jti-1", ExpiresAt: time.Now().Add(time.Hour)}

	t.Run("valid token", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.tokens.On("Verify", "tok").Return(session, nil)
		m.revocations.On("IsRevoked", ctx, "jti-1").Return(false, nil)

		got, err := svc.Authenticate(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, session.UserID, got.UserID)
	})

	t.Run("empty token is missing", func(t *testing.T) {
		svc, _ := newServiceWithMocks(t)

		_, err := svc.Authenticate(ctx, "")
		errutil.AssertErrorCode(t, err, auth.CodeTokenMissing)
	})

	t.Run("invalid token", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.tokens.On("Verify", "bad").Return(nil, errInvalidToken())

		_, err := svc.Authenticate(ctx, "bad")
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
	})

	t.Run("revoked token is invalid", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.tokens.On("Verify", "tok").Return(session, nil)
		m.revocations.On("IsRevoked", ctx, "jti-1").Return(true, nil)

		_, err := svc.Authenticate(ctx, "tok")
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
	})

	t.Run("revocation lookup failure is internal", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.tokens.On("Verify", "tok").Return(session, nil)
		m.revocations.On("IsRevoked", ctx, "jti-1").Return(false, errors.New("redis down"))

		_, err := svc.Authenticate(ctx, "tok")
		errutil.AssertErrorCode(t, err, "AUTH_SESSION_CHECK_FAILED")
	})
}

func TestService_CheckSession(t *testing.T) {
	ctx := context.Background()
	session := &auth.Session{UserID: ulid.Make(), TokenID: "jti-1", ExpiresAt: time.Now().Add(time.Hour)}

	t.Run("live session", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.tokens.On("Verify", "tok").Return(session, nil)
		m.revocations.On("IsRevoked", ctx, "jti-1").Return(false, nil)
		assert.True(t, svc.CheckSession(ctx, "tok"))
	})

	t.Run("no token", func(t *testing.T) {
		svc, _ := newServiceWithMocks(t)
		assert.False(t, svc.CheckSession(ctx, ""))
	})

	t.Run("lookup failure counts as unauthenticated", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.tokens.On("Verify", "tok").Return(session, nil)
		m.revocations.On("IsRevoked", ctx, "jti-1").Return(false, errors.New("redis down"))
		assert.False(t, svc.CheckSession(ctx, "tok"))
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)
	session := &auth.Session{UserID: ulid.Make(), TokenID: "jti-1", ExpiresAt: expiresAt}

	t.Run("revokes verified token until expiry", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.tokens.On("Verify", "tok").Return(session, nil)
		m.revocations.On("Revoke", ctx, "jti-1", expiresAt).Return(nil)

		svc.Logout(ctx, "tok")
	})

	t.Run("no token is a no-op", func(t *testing.T) {
		svc, _ := newServiceWithMocks(t)
		svc.Logout(ctx, "")
	})

	t.Run("unverifiable token is a no-op", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.tokens.On("Verify", "junk").Return(nil, errInvalidToken())

		svc.Logout(ctx, "junk")
		m.revocations.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_CurrentUser(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()

	t.Run("found", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.users.On("GetByID", ctx, userID).Return(&auth.User{ID: userID, Username: "ada"}, nil)

		user, err := svc.CurrentUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "ada", user.Username)
	})

	t.Run("deleted user", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.users.On("GetByID", ctx, userID).Return(nil, auth.ErrNotFound)

		_, err := svc.CurrentUser(ctx, userID)
		errutil.AssertErrorCode(t, err, auth.CodeUserNotFound)
		errutil.AssertErrorContext(t, err, "user_id", userID.String())
	})

	t.Run("lookup failure", func(t *testing.T) {
		svc, m := newServiceWithMocks(t)
		m.users.On("GetByID", ctx, userID).Return(nil, errors.New("db down"))

		_, err := svc.CurrentUser(ctx, userID)
		errutil.AssertErrorCode(t, err, "AUTH_USER_LOOKUP_FAILED")
	})
}
