// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Field constraints for registration.
const (
	MinNameLength     = 2
	MaxNameLength     = 16
	MinUsernameLength = 2
	MaxUsernameLength = 26
	MinEmailLength    = 6
	MaxEmailLength    = 255
	MinPasswordLength = 6
	MaxPasswordLength = 24
)

var emailRegex = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// User is a registered account. PasswordHash never leaves the process.
type User struct {
	ID           ulid.ULID
	FirstName    string
	LastName     string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Registration holds the client-supplied fields for a new account.
type Registration struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

// Normalized returns a copy with names trimmed and capitalized, and username
// and email trimmed and lower-cased. The password is left untouched.
func (r Registration) Normalized() Registration {
	return Registration{
		FirstName: capitalize(strings.TrimSpace(r.FirstName)),
		LastName:  capitalize(strings.TrimSpace(r.LastName)),
		Username:  NormalizeIdentifier(r.Username),
		Email:     NormalizeIdentifier(r.Email),
		Password:  r.Password,
	}
}

// Validate checks every field against the registration constraints.
// Call it on a normalized registration.
func (r Registration) Validate() error {
	if err := r.validateProfile(); err != nil {
		return err
	}
	return checkLength("password", "Password", r.Password, MinPasswordLength, MaxPasswordLength)
}

func (r Registration) validateProfile() error {
	if err := checkLength("firstName", "First name", r.FirstName, MinNameLength, MaxNameLength); err != nil {
		return err
	}
	if err := checkLength("lastName", "Last name", r.LastName, MinNameLength, MaxNameLength); err != nil {
		return err
	}
	if err := checkLength("username", "Username", r.Username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}
	if err := checkLength("email", "Email", r.Email, MinEmailLength, MaxEmailLength); err != nil {
		return err
	}
	if !emailRegex.MatchString(r.Email) {
		return oops.Code(CodeValidationFailed).
			With("field", "email").
			Errorf("Email must be a valid email")
	}
	return nil
}

// NewUser creates a validated User from a registration and a password digest.
func NewUser(reg Registration, passwordHash string) (*User, error) {
	reg = reg.Normalized()
	if err := reg.validateProfile(); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeValidationFailed).
			With("field", "passwordHash").
			Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeIdentifier trims and lower-cases a username or email.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func checkLength(field, label, value string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		return oops.Code(CodeValidationFailed).
			With("field", field).
			Errorf("%s cannot be empty", label)
	case n < minLen:
		return oops.Code(CodeValidationFailed).
			With("field", field).
			With("min", minLen).
			Errorf("%s should have a minimum length of %d", label, minLen)
	case n > maxLen:
		return oops.Code(CodeValidationFailed).
			With("field", field).
			With("max", maxLen).
			Errorf("%s should have a maximum length of %d", label, maxLen)
	}
	return nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns an AUTH_DUPLICATE_CREDENTIAL error when
	// the username or email is already taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByIdentifier retrieves a user whose username or email equals the
	// normalized identifier. Returns ErrNotFound if absent.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)

	// UpdatePasswordHash replaces the stored digest for a user.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error
}
