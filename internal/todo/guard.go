// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package todo

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Guard enforces single-owner access to todos.
type Guard struct {
	todos Repository
}

// NewGuard creates a Guard reading through the given repository.
func NewGuard(todos Repository) *Guard {
	return &Guard{todos: todos}
}

// AuthorizeMutation loads the todo and returns it only if actor owns it.
// Returns TODO_NOT_FOUND when it does not exist and TODO_FORBIDDEN when
// someone else owns it.
func (g *Guard) AuthorizeMutation(ctx context.Context, actor, id ulid.ULID) (*Todo, error) {
	t, err := g.todos.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeNotFound).
				With("todo_id", id.String()).
				Errorf("todo not found")
		}
		return nil, oops.Code("TODO_LOOKUP_FAILED").
			With("operation", "get todo").
			With("todo_id", id.String()).
			Wrap(err)
	}

	if t.OwnerID.Compare(actor) != 0 {
		return nil, oops.Code(CodeForbidden).
			With("todo_id", id.String()).
			With("actor_id", actor.String()).
			Errorf("todo belongs to another user")
	}

	return t, nil
}

// StampOwner makes actor the owner of a todo being created.
func (g *Guard) StampOwner(actor ulid.ULID, t *Todo) {
	t.OwnerID = actor
}
