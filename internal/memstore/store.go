// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tasklane/tasklane/internal/auth"
	"github.com/tasklane/tasklane/internal/todo"
)

// Store holds users, todos and revoked token IDs behind one lock.
// Records are copied on the way in and out.
type Store struct {
	mu      sync.RWMutex
	users   map[ulid.ULID]auth.User
	todos   map[ulid.ULID]todo.Todo
	revoked map[string]time.Time
	now     func() time.Time

	// txMu serializes units of work. It is separate from mu so repository
	// calls made inside a transaction can still take mu.
	txMu sync.Mutex
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:   make(map[ulid.ULID]auth.User),
		todos:   make(map[ulid.ULID]todo.Todo),
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Users returns the store's auth.UserRepository.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Todos returns the store's todo.Repository.
func (s *Store) Todos() *TodoRepository { return &TodoRepository{s: s} }

// Revocations returns the store's auth.RevocationList.
func (s *Store) Revocations() *RevocationList { return &RevocationList{s: s} }

// Transactor returns the store's todo.Transactor.
func (s *Store) Transactor() *Transactor { return &Transactor{s: s} }

// UserRepository implements auth.UserRepository in memory.
type UserRepository struct{ s *Store }

var _ auth.UserRepository = (*UserRepository)(nil)

// Create stores a user, enforcing case-insensitive uniqueness of username
// and email.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	username := auth.NormalizeIdentifier(user.Username)
	email := auth.NormalizeIdentifier(user.Email)
	for _, existing := range r.s.users {
		if auth.NormalizeIdentifier(existing.Username) == username {
			return auth.DuplicateCredentialError("username")
		}
		if auth.NormalizeIdentifier(existing.Email) == email {
			return auth.DuplicateCredentialError("email")
		}
	}
	if _, ok := r.s.users[user.ID]; ok {
		return oops.Code("USER_CREATE_FAILED").With("id", user.ID.String()).Errorf("user id already exists")
	}
	r.s.users[user.ID] = *user
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return &user, nil
}

// GetByIdentifier retrieves a user by username or email. A username match
// wins over an email match.
func (r *UserRepository) GetByIdentifier(_ context.Context, identifier string) (*auth.User, error) {
	identifier = auth.NormalizeIdentifier(identifier)

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var byEmail *auth.User
	for _, user := range r.s.users {
		if auth.NormalizeIdentifier(user.Username) == identifier {
			return &user, nil
		}
		if byEmail == nil && auth.NormalizeIdentifier(user.Email) == identifier {
			byEmail = &user
		}
	}
	if byEmail != nil {
		return byEmail, nil
	}
	return nil, oops.With("identifier", identifier).Wrap(auth.ErrNotFound)
}

// UpdatePasswordHash replaces the stored digest.
func (r *UserRepository) UpdatePasswordHash(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = r.s.now()
	r.s.users[id] = user
	return nil
}

// TodoRepository implements todo.Repository in memory.
type TodoRepository struct{ s *Store }

var _ todo.Repository = (*TodoRepository)(nil)

// Create stores a todo. The owner must exist.
func (r *TodoRepository) Create(_ context.Context, t *todo.Todo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[t.OwnerID]; !ok {
		return oops.Code(todo.CodeOwnerNotFound).
			With("owner_id", t.OwnerID.String()).
			Errorf("owner not found")
	}
	r.s.todos[t.ID] = *t
	return nil
}

// Get retrieves a todo by ID.
func (r *TodoRepository) Get(_ context.Context, id ulid.ULID) (*todo.Todo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.todos[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(todo.ErrNotFound)
	}
	return &t, nil
}

// Update persists title, completion state and UpdatedAt.
func (r *TodoRepository) Update(_ context.Context, t *todo.Todo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.todos[t.ID]
	if !ok {
		return oops.With("id", t.ID.String()).Wrap(todo.ErrNotFound)
	}
	stored.Title = t.Title
	stored.IsCompleted = t.IsCompleted
	stored.UpdatedAt = t.UpdatedAt
	r.s.todos[t.ID] = stored
	return nil
}

// Delete removes a todo.
func (r *TodoRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.todos[id]; !ok {
		return oops.With("id", id.String()).Wrap(todo.ErrNotFound)
	}
	delete(r.s.todos, id)
	return nil
}

// ListByOwner returns the owner's todos, newest first.
func (r *TodoRepository) ListByOwner(_ context.Context, ownerID ulid.ULID) ([]*todo.Todo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	todos := make([]*todo.Todo, 0)
	for _, t := range r.s.todos {
		if t.OwnerID == ownerID {
			todos = append(todos, &t)
		}
	}
	slices.SortFunc(todos, func(a, b *todo.Todo) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID.String(), a.ID.String())
	})
	return todos, nil
}

// RevocationList implements auth.RevocationList in memory.
type RevocationList struct{ s *Store }

var _ auth.RevocationList = (*RevocationList)(nil)

// Revoke records a token ID. Revoking twice keeps the later expiry.
func (l *RevocationList) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	if existing, ok := l.s.revoked[tokenID]; !ok || expiresAt.After(existing) {
		l.s.revoked[tokenID] = expiresAt
	}
	return nil
}

// IsRevoked reports whether the token ID was revoked.
func (l *RevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	_, ok := l.s.revoked[tokenID]
	return ok, nil
}

// Purge drops revocations whose tokens have expired.
func (l *RevocationList) Purge(_ context.Context) (int64, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	now := l.s.now()
	var purged int64
	for id, expiresAt := range l.s.revoked {
		if expiresAt.Before(now) {
			delete(l.s.revoked, id)
			purged++
		}
	}
	return purged, nil
}

type txKey struct{}

// Transactor implements todo.Transactor by running units of work one at a
// time. Writes made before fn fails are not undone.
type Transactor struct{ s *Store }

var _ todo.Transactor = (*Transactor)(nil)

// InTransaction runs fn while holding the store's transaction lock. Nested
// calls run inside the outer unit of work.
func (t *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}
