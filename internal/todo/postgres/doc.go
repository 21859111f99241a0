// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

// Package postgres implements the todo repository on PostgreSQL.
package postgres
