// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package postgres

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tasklane/tasklane/internal/todo"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var todoColumns = []string{"id", "owner_id", "title", "is_completed", "created_at", "updated_at"}

// TodoRepository implements todo.Repository using PostgreSQL.
type TodoRepository struct {
	pool poolIface
}

var _ todo.Repository = (*TodoRepository)(nil)

// NewTodoRepository creates a new TodoRepository.
func NewTodoRepository(pool poolIface) *TodoRepository {
	return &TodoRepository{pool: pool}
}

// conn returns the transaction in ctx, or the pool.
func (r *TodoRepository) conn(ctx context.Context) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return r.pool
}

// Create stores a new todo.
func (r *TodoRepository) Create(ctx context.Context, t *todo.Todo) error {
	query, args, err := psql.Insert("todos").
		Columns(todoColumns...).
		Values(t.ID.String(), t.OwnerID.String(), t.Title, t.IsCompleted, t.CreatedAt, t.UpdatedAt).
		ToSql()
	if err != nil {
		return oops.With("operation", "build insert todo").Wrap(err)
	}

	if _, err := r.conn(ctx).Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return oops.Code(todo.CodeOwnerNotFound).
				With("owner_id", t.OwnerID.String()).
				Errorf("owner not found")
		}
		return oops.Code("TODO_INSERT_FAILED").
			With("operation", "insert todo").
			With("id", t.ID.String()).
			Wrap(err)
	}
	return nil
}

// Get retrieves a todo by ID. Inside a transaction the row is locked with
// SELECT ... FOR UPDATE.
func (r *TodoRepository) Get(ctx context.Context, id ulid.ULID) (*todo.Todo, error) {
	builder := psql.Select(todoColumns...).From("todos").Where(sq.Eq{"id": id.String()})
	if _, ok := txFromContext(ctx); ok {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, oops.With("operation", "build select todo").Wrap(err)
	}

	t, err := scanTodo(r.conn(ctx).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(todo.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get todo").With("id", id.String()).Wrap(err)
	}
	return t, nil
}

// Update persists title, completion state and UpdatedAt.
func (r *TodoRepository) Update(ctx context.Context, t *todo.Todo) error {
	query, args, err := psql.Update("todos").
		Set("title", t.Title).
		Set("is_completed", t.IsCompleted).
		Set("updated_at", t.UpdatedAt).
		Where(sq.Eq{"id": t.ID.String()}).
		ToSql()
	if err != nil {
		return oops.With("operation", "build update todo").Wrap(err)
	}

	result, err := r.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		return oops.With("operation", "update todo").With("id", t.ID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", t.ID.String()).Wrap(todo.ErrNotFound)
	}
	return nil
}

// Delete removes a todo by ID.
func (r *TodoRepository) Delete(ctx context.Context, id ulid.ULID) error {
	query, args, err := psql.Delete("todos").Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return oops.With("operation", "build delete todo").Wrap(err)
	}

	result, err := r.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		return oops.With("operation", "delete todo").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", id.String()).Wrap(todo.ErrNotFound)
	}
	return nil
}

// ListByOwner returns the owner's todos, newest first.
func (r *TodoRepository) ListByOwner(ctx context.Context, ownerID ulid.ULID) ([]*todo.Todo, error) {
	query, args, err := psql.Select(todoColumns...).
		From("todos").
		Where(sq.Eq{"owner_id": ownerID.String()}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, oops.With("operation", "build list todos").Wrap(err)
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, oops.With("operation", "list todos").With("owner_id", ownerID.String()).Wrap(err)
	}
	defer rows.Close()

	todos := make([]*todo.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, oops.With("operation", "scan todo").Wrap(err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate todos").Wrap(err)
	}
	return todos, nil
}

func scanTodo(row pgx.Row) (*todo.Todo, error) {
	var t todo.Todo
	var idStr, ownerStr string
	if err := row.Scan(&idStr, &ownerStr, &t.Title, &t.IsCompleted, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with query context
	}

	var err error
	if t.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.With("operation", "parse todo id").With("id", idStr).Wrap(err)
	}
	if t.OwnerID, err = ulid.Parse(ownerStr); err != nil {
		return nil, oops.With("operation", "parse owner_id").With("owner_id", ownerStr).Wrap(err)
	}
	return &t, nil
}
