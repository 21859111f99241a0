// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tasklane/tasklane/pkg/errutil"
)

// Service provides registration, login and session operations.
type Service struct {
	users       UserRepository
	revocations RevocationList
	hasher      PasswordHasher
	tokens      TokenIssuer
	logger      *slog.Logger
}

// NewService creates a new Service that logs to slog.Default().
func NewService(users UserRepository, revocations RevocationList, hasher PasswordHasher, tokens TokenIssuer) (*Service, error) {
	return NewServiceWithLogger(users, revocations, hasher, tokens, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(
	users UserRepository,
	revocations RevocationList,
	hasher PasswordHasher,
	tokens TokenIssuer,
	logger *slog.Logger,
) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if revocations == nil {
		return nil, oops.Errorf("revocation list is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		users:       users,
		revocations: revocations,
		hasher:      hasher,
		tokens:      tokens,
		logger:      logger,
	}, nil
}

// dummyPasswordHash is verified when the identifier is unknown so that
// response time does not reveal whether an account exists. It never matches.
//
//nolint:gosec // G101: intentionally fake digest, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates an account and issues its first session token.
// Uniqueness is decided by the repository's constraints, not by a pre-read.
func (s *Service) Register(ctx context.Context, reg Registration) (*User, *IssuedToken, error) {
	reg = reg.Normalized()
	if err := reg.Validate(); err != nil {
		return nil, nil, err
	}

	digest, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(reg, digest)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errutil.HasCode(err, CodeDuplicateCredential) {
			return nil, nil, err
		}
		return nil, nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			With("username", user.Username).
			Wrap(err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "issue token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return user, token, nil
}

// Login verifies credentials by username or email and issues a session token.
// Unknown identifiers and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, identifier, password string) (*User, *IssuedToken, error) {
	identifier = NormalizeIdentifier(identifier)

	user, lookupErr := s.users.GetByIdentifier(ctx, identifier)

	var targetHash string
	var userExists bool

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by identifier").
				Wrap(lookupErr)
		}
		targetHash = dummyPasswordHash
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, nil, oops.Code(CodeInvalidCredentials).Errorf(invalidCredentialsMessage)
		}
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return nil, nil, oops.Code(CodeInvalidCredentials).Errorf(invalidCredentialsMessage)
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return user, token, nil
}

func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("best-effort password hash upgrade failed",
			"operation", "rehash_password",
			"user_id", user.ID.String(),
			"error", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, digest); err != nil {
		s.logger.Warn("best-effort password hash upgrade failed",
			"operation", "store_password_hash",
			"user_id", user.ID.String(),
			"error", err)
		return
	}
	user.PasswordHash = digest
}

// Logout revokes the presented token until its expiry. It never fails: an
// absent or unverifiable token has nothing to revoke, and revocation errors
// are logged.
func (s *Service) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	session, err := s.tokens.Verify(token)
	if err != nil {
		return
	}
	if err := s.revocations.Revoke(ctx, session.TokenID, session.ExpiresAt); err != nil {
		s.logger.Warn("best-effort token revocation failed",
			"operation", "revoke_token",
			"user_id", session.UserID.String(),
			"token_id", session.TokenID,
			"error", err)
	}
}

// Authenticate verifies a token and checks it has not been revoked.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	session, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, session.TokenID)
	if err != nil {
		return nil, oops.Code("AUTH_SESSION_CHECK_FAILED").
			With("operation", "check revocation").
			With("token_id", session.TokenID).
			Wrap(err)
	}
	if revoked {
		return nil, oops.Code(CodeTokenInvalid).
			With("token_id", session.TokenID).
			Errorf("token has been revoked")
	}

	return session, nil
}

// CheckSession reports whether the token identifies a live session.
// It never returns an error; lookup failures count as unauthenticated.
func (s *Service) CheckSession(ctx context.Context, token string) bool {
	_, err := s.Authenticate(ctx, token)
	if err != nil && !errutil.HasCode(err, CodeTokenMissing) && !errutil.HasCode(err, CodeTokenInvalid) {
		s.logger.Warn("session check failed", "operation", "check_session", "error", err)
	}
	return err == nil
}

// CurrentUser loads the user a session belongs to.
func (s *Service) CurrentUser(ctx context.Context, userID ulid.ULID) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUserNotFound).
				With("user_id", userID.String()).
				Errorf("user not found")
		}
		return nil, oops.Code("AUTH_USER_LOOKUP_FAILED").
			With("operation", "get user by id").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return user, nil
}
