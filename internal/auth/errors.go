// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes carried by errors returned from this package.
const (
	CodeValidationFailed    = "AUTH_VALIDATION_FAILED"
	CodeDuplicateCredential = "AUTH_DUPLICATE_CREDENTIAL"
	CodeInvalidCredentials  = "AUTH_INVALID_CREDENTIALS"
	CodeTokenMissing        = "AUTH_TOKEN_MISSING"
	CodeTokenInvalid        = "AUTH_TOKEN_INVALID"
	CodeUserNotFound        = "AUTH_USER_NOT_FOUND"
	CodeEmptyPassword       = "AUTH_EMPTY_PASSWORD"
	CodeInvalidHash         = "AUTH_INVALID_HASH"
	CodeHashFailed          = "AUTH_HASH_FAILED"
)

// invalidCredentialsMessage is shared by every login failure so that unknown
// identifiers and wrong passwords cannot be told apart.
const invalidCredentialsMessage = "invalid username/email or password"

// DuplicateCredentialError is returned by repositories when a unique
// credential (username or email) is already registered.
func DuplicateCredentialError(field string) error {
	label := field
	switch field {
	case "username":
		label = "Username"
	case "email":
		label = "Email"
	}
	return oops.Code(CodeDuplicateCredential).
		With("field", field).
		Errorf("%s already exists", label)
}
