// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package todo

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Title length constraints, counted in characters after trimming.
const (
	MinTitleLength = 2
	MaxTitleLength = 100
)

// Todo is a single to-do item owned by exactly one user.
type Todo struct {
	ID          ulid.ULID
	Title       string
	IsCompleted bool
	OwnerID     ulid.ULID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTodo creates an unowned, incomplete todo with a validated title.
// The owner is assigned by Guard.StampOwner.
func NewTodo(title string) (*Todo, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Todo{
		ID:        ulid.Make(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Rename replaces the title after validating it.
func (t *Todo) Rename(title string) error {
	title, err := normalizeTitle(title)
	if err != nil {
		return err
	}
	t.Title = title
	t.UpdatedAt = time.Now()
	return nil
}

// ToggleStatus flips IsCompleted.
func (t *Todo) ToggleStatus() {
	t.IsCompleted = !t.IsCompleted
	t.UpdatedAt = time.Now()
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	n := utf8.RuneCountInString(title)
	switch {
	case n == 0:
		return "", oops.Code(CodeInvalid).With("field", "title").Errorf("Title cannot be empty")
	case n < MinTitleLength:
		return "", oops.Code(CodeInvalid).
			With("field", "title").
			With("min", MinTitleLength).
			Errorf("Title should have a minimum length of %d", MinTitleLength)
	case n > MaxTitleLength:
		return "", oops.Code(CodeInvalid).
			With("field", "title").
			With("max", MaxTitleLength).
			Errorf("Title should have a maximum length of %d", MaxTitleLength)
	}
	return title, nil
}

// Repository manages todo persistence.
type Repository interface {
	// Create stores a new todo. Returns a TODO_OWNER_NOT_FOUND error when the
	// owner does not exist.
	Create(ctx context.Context, todo *Todo) error

	// Get retrieves a todo by ID. Inside a transaction the row stays locked
	// until the transaction ends. Returns ErrNotFound if absent.
	Get(ctx context.Context, id ulid.ULID) (*Todo, error)

	// Update persists title, completion state and UpdatedAt.
	Update(ctx context.Context, todo *Todo) error

	// Delete removes a todo. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id ulid.ULID) error

	// ListByOwner returns the owner's todos, newest first.
	ListByOwner(ctx context.Context, ownerID ulid.ULID) ([]*Todo, error)
}

// Transactor runs fn inside a unit of work. Repository calls made with the
// context passed to fn take part in it.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
