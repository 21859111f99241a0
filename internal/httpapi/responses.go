// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tasklane/tasklane/internal/auth"
	"github.com/tasklane/tasklane/internal/todo"
)

// UserView is the public shape of a user. It never carries the digest.
type UserView struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserProfile is a user together with their todos, newest first.
type UserProfile struct {
	UserView
	Todos []TodoView `json:"todos"`
}

// TodoView is the public shape of a todo.
type TodoView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	IsCompleted bool      `json:"isCompleted"`
	OwnerID     string    `json:"user"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type sessionResponse struct {
	Message string   `json:"message"`
	User    UserView `json:"user"`
	Token   string   `json:"token,omitempty"`
}

type loggedInResponse struct {
	Message       string `json:"message"`
	Authenticated bool   `json:"authenticated"`
}

type profileResponse struct {
	Message string      `json:"message"`
	User    UserProfile `json:"user"`
}

type todoResponse struct {
	Message string   `json:"message"`
	Todo    TodoView `json:"todo"`
}

func newUserView(u *auth.User) UserView {
	return UserView{
		ID:        u.ID.String(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func newTodoView(t *todo.Todo) TodoView {
	return TodoView{
		ID:          t.ID.String(),
		Title:       t.Title,
		IsCompleted: t.IsCompleted,
		OwnerID:     t.OwnerID.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func newUserProfile(u *auth.User, todos []*todo.Todo) UserProfile {
	views := make([]TodoView, 0, len(todos))
	for _, t := range todos {
		views = append(views, newTodoView(t))
	}
	return UserProfile{UserView: newUserView(u), Todos: views}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the client may have gone away
	json.NewEncoder(w).Encode(body)
}
