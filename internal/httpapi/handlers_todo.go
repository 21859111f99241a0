// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tasklane/tasklane/internal/todo"
)

func (h *handler) createTodo(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	var req TodoRequest
	if err := decodeBody(w, r, "todo", &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	created, err := h.todos.Create(r.Context(), session.UserID, req.Title)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, todoResponse{Message: "Todo created", Todo: newTodoView(created)})
}

func (h *handler) renameTodo(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	id, err := todoID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req TodoRequest
	if err := decodeBody(w, r, "todo", &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	updated, err := h.todos.Rename(r.Context(), session.UserID, id, req.Title)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, todoResponse{Message: "Todo updated", Todo: newTodoView(updated)})
}

func (h *handler) toggleTodo(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	id, err := todoID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	updated, err := h.todos.ToggleStatus(r.Context(), session.UserID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, todoResponse{Message: "Todo status updated", Todo: newTodoView(updated)})
}

func (h *handler) deleteTodo(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	id, err := todoID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.todos.Delete(r.Context(), session.UserID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Todo deleted"})
}

// todoID parses the {id} path parameter. A malformed id cannot name an
// existing todo, so it reads as not found.
func todoID(r *http.Request) (ulid.ULID, error) {
	raw := chi.URLParam(r, "id")
	id, err := ulid.ParseStrict(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code(todo.CodeNotFound).With("todo_id", raw).Errorf("todo not found")
	}
	return id, nil
}
