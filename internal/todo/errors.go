// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package todo

import "errors"

// ErrNotFound is returned by repositories when a todo does not exist.
var ErrNotFound = errors.New("not found")

// Error codes carried by errors returned from this package.
const (
	CodeInvalid       = "TODO_INVALID"
	CodeNotFound      = "TODO_NOT_FOUND"
	CodeForbidden     = "TODO_FORBIDDEN"
	CodeOwnerNotFound = "TODO_OWNER_NOT_FOUND"
)
