// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

// Package httpapi exposes the auth and todo services over JSON/HTTP.
//
// Routes live under a configurable prefix (default /api/v1). Request bodies
// are checked against JSON Schemas reflected from the request types before
// they are decoded, and every error leaving a handler is mapped to a status
// through its oops code in one place (see statusFor).
package httpapi
