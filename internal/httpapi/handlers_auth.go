// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package httpapi

import (
	"net/http"

	"github.com/tasklane/tasklane/internal/auth"
)

// Auth event names recorded in tasklane_auth_events_total.
const (
	EventRegister = "register"
	EventLogin    = "login"
	EventLogout   = "logout"
)

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(w, r, "register", &req); err != nil {
		h.metrics.RecordAuthEvent(EventRegister, false)
		writeError(w, r, h.logger, err)
		return
	}

	user, token, err := h.auth.Register(r.Context(), auth.Registration{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
	})
	h.metrics.RecordAuthEvent(EventRegister, err == nil)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.carrier.Attach(w, token)
	writeJSON(w, http.StatusCreated, h.sessionResponse("User created successfully", user, token))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, "login", &req); err != nil {
		h.metrics.RecordAuthEvent(EventLogin, false)
		writeError(w, r, h.logger, err)
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Identifier, req.Password)
	h.metrics.RecordAuthEvent(EventLogin, err == nil)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.carrier.Attach(w, token)
	writeJSON(w, http.StatusOK, h.sessionResponse("Login successful", user, token))
}

// logout always succeeds: whatever token was presented is revoked and the
// carrier is cleared.
func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if token, err := h.carrier.Extract(r); err == nil {
		h.auth.Logout(r.Context(), token)
	}
	h.metrics.RecordAuthEvent(EventLogout, true)
	h.carrier.Clear(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logout successful"})
}

func (h *handler) isLoggedIn(w http.ResponseWriter, r *http.Request) {
	authenticated := false
	if token, err := h.carrier.Extract(r); err == nil {
		authenticated = h.auth.CheckSession(r.Context(), token)
	}

	msg := "User is not logged in"
	if authenticated {
		msg = "User is logged in"
	}
	writeJSON(w, http.StatusOK, loggedInResponse{Message: msg, Authenticated: authenticated})
}

func (h *handler) getMe(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	user, err := h.auth.CurrentUser(r.Context(), session.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	todos, err := h.todos.ListByOwner(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Message: "User found", User: newUserProfile(user, todos)})
}

func (h *handler) sessionResponse(msg string, user *auth.User, token *auth.IssuedToken) sessionResponse {
	resp := sessionResponse{Message: msg, User: newUserView(user)}
	if h.carrier.ExposesToken() {
		resp.Token = token.Value
	}
	return resp
}
