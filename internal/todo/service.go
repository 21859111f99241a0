// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package todo

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tasklane/tasklane/pkg/errutil"
)

// Service implements todo operations on behalf of an authenticated user.
type Service struct {
	todos Repository
	tx    Transactor
	guard *Guard
}

// NewService creates a new Service.
func NewService(todos Repository, tx Transactor) (*Service, error) {
	if todos == nil {
		return nil, oops.Errorf("todo repository is required")
	}
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}
	return &Service{
		todos: todos,
		tx:    tx,
		guard: NewGuard(todos),
	}, nil
}

// Create adds a todo owned by actor.
func (s *Service) Create(ctx context.Context, actor ulid.ULID, title string) (*Todo, error) {
	t, err := NewTodo(title)
	if err != nil {
		return nil, err
	}
	s.guard.StampOwner(actor, t)

	if err := s.todos.Create(ctx, t); err != nil {
		if errutil.HasCode(err, CodeOwnerNotFound) {
			return nil, err
		}
		return nil, oops.Code("TODO_CREATE_FAILED").
			With("operation", "create todo").
			With("owner_id", actor.String()).
			Wrap(err)
	}
	return t, nil
}

// Rename changes the title of a todo actor owns.
func (s *Service) Rename(ctx context.Context, actor, id ulid.ULID, title string) (*Todo, error) {
	return s.mutate(ctx, actor, id, "rename todo", func(t *Todo) error {
		return t.Rename(title)
	})
}

// ToggleStatus flips the completion state of a todo actor owns.
func (s *Service) ToggleStatus(ctx context.Context, actor, id ulid.ULID) (*Todo, error) {
	return s.mutate(ctx, actor, id, "toggle todo", func(t *Todo) error {
		t.ToggleStatus()
		return nil
	})
}

// Delete removes a todo actor owns.
func (s *Service) Delete(ctx context.Context, actor, id ulid.ULID) error {
	return s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.guard.AuthorizeMutation(ctx, actor, id); err != nil {
			return err
		}
		if err := s.todos.Delete(ctx, id); err != nil {
			return oops.Code("TODO_DELETE_FAILED").
				With("operation", "delete todo").
				With("todo_id", id.String()).
				Wrap(err)
		}
		return nil
	})
}

// ListByOwner returns the owner's todos, newest first.
func (s *Service) ListByOwner(ctx context.Context, owner ulid.ULID) ([]*Todo, error) {
	todos, err := s.todos.ListByOwner(ctx, owner)
	if err != nil {
		return nil, oops.Code("TODO_LIST_FAILED").
			With("operation", "list todos").
			With("owner_id", owner.String()).
			Wrap(err)
	}
	return todos, nil
}

// mutate runs load, ownership check, change and save as one unit of work so
// concurrent mutations of the same todo are serialized.
func (s *Service) mutate(ctx context.Context, actor, id ulid.ULID, operation string, change func(*Todo) error) (*Todo, error) {
	var result *Todo
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		t, err := s.guard.AuthorizeMutation(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := change(t); err != nil {
			return err
		}
		if err := s.todos.Update(ctx, t); err != nil {
			return oops.Code("TODO_UPDATE_FAILED").
				With("operation", operation).
				With("todo_id", id.String()).
				Wrap(err)
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
