// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

// Package auth provides authentication primitives for Tasklane.
//
// # Domain Types
//
// Users are created through NewUser, which normalizes and validates a
// Registration. Direct struct initialization bypasses validation.
// Repository implementations receive pre-validated users.
//
// # Sessions
//
// A session is a signed HS256 token (TokenService) handed to the client by a
// Carrier, either an HttpOnly cookie or an Authorization bearer header. Tokens
// expire on their own; logging out records the token ID in a RevocationList
// until that expiry.
//
// # Services
//
// Service coordinates registration, login, logout and session checks.
// It is created with NewService or NewServiceWithLogger, which validate
// dependencies.
package auth
