// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

// Package todo manages per-user to-do items.
//
// Every mutation goes through Guard.AuthorizeMutation, which loads the target
// and refuses it unless the acting user owns it. New items receive their owner
// from Guard.StampOwner, never from client input.
package todo
