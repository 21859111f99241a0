// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/tasklane/tasklane/internal/auth"
	"github.com/tasklane/tasklane/internal/todo"
	"github.com/tasklane/tasklane/pkg/errutil"
)

// Error codes raised by the HTTP layer itself.
const (
	CodeRequestInvalid   = "REQUEST_INVALID"
	CodeRequestMalformed = "REQUEST_MALFORMED"
	CodeRequestTooLarge  = "REQUEST_TOO_LARGE"
	CodeRouteNotFound    = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

const internalErrorMessage = "internal server error"

var statusByCode = map[string]int{
	CodeRequestInvalid:           http.StatusUnprocessableEntity,
	auth.CodeValidationFailed:    http.StatusUnprocessableEntity,
	auth.CodeEmptyPassword:       http.StatusUnprocessableEntity,
	todo.CodeInvalid:             http.StatusUnprocessableEntity,
	CodeRequestMalformed:         http.StatusBadRequest,
	CodeRequestTooLarge:          http.StatusRequestEntityTooLarge,
	auth.CodeDuplicateCredential: http.StatusConflict,
	auth.CodeInvalidCredentials:  http.StatusUnauthorized,
	auth.CodeTokenMissing:        http.StatusUnauthorized,
	auth.CodeTokenInvalid:        http.StatusUnauthorized,
	todo.CodeForbidden:           http.StatusForbidden,
	auth.CodeUserNotFound:        http.StatusNotFound,
	todo.CodeNotFound:            http.StatusNotFound,
	todo.CodeOwnerNotFound:       http.StatusNotFound,
	CodeRouteNotFound:            http.StatusNotFound,
	CodeMethodNotAllowed:         http.StatusMethodNotAllowed,
}

// statusFor maps an error to its response status. Codes not in the table
// are internal errors.
func statusFor(err error) int {
	if status, ok := statusByCode[errutil.Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

// writeError renders err as JSON. Internal errors are logged with their code
// and context and reach the client only as a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		errutil.LogError(logger.With(
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
		), "request failed", err)
		writeJSON(w, status, errorBody{Message: internalErrorMessage})
		return
	}

	body := errorBody{Message: err.Error(), Code: errutil.Code(err)}
	if oopsErr, ok := oops.AsOops(err); ok {
		if field, ok := oopsErr.Context()["field"].(string); ok {
			body.Field = field
		}
	}
	writeJSON(w, status, body)
}
