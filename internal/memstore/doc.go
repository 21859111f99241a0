// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

// Package memstore provides in-memory implementations of the auth and todo
// repositories. It backs the server when storage.backend is "memory" and is
// used by handler tests. Data does not survive a restart.
package memstore
