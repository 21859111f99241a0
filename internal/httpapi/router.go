// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tasklane/tasklane/internal/auth"
	"github.com/tasklane/tasklane/internal/todo"
)

// DefaultAPIPrefix is the path every route is mounted under.
const DefaultAPIPrefix = "/api/v1"

const tracerName = "github.com/tasklane/tasklane/internal/httpapi"

// AuthService is the subset of *auth.Service the handlers use.
type AuthService interface {
	Register(ctx context.Context, reg auth.Registration) (*auth.User, *auth.IssuedToken, error)
	Login(ctx context.Context, identifier, password string) (*auth.User, *auth.IssuedToken, error)
	Logout(ctx context.Context, token string)
	Authenticate(ctx context.Context, token string) (*auth.Session, error)
	CheckSession(ctx context.Context, token string) bool
	CurrentUser(ctx context.Context, userID ulid.ULID) (*auth.User, error)
}

// TodoService is the subset of *todo.Service the handlers use.
type TodoService interface {
	Create(ctx context.Context, actor ulid.ULID, title string) (*todo.Todo, error)
	Rename(ctx context.Context, actor, id ulid.ULID, title string) (*todo.Todo, error)
	ToggleStatus(ctx context.Context, actor, id ulid.ULID) (*todo.Todo, error)
	Delete(ctx context.Context, actor, id ulid.ULID) error
	ListByOwner(ctx context.Context, owner ulid.ULID) ([]*todo.Todo, error)
}

// Deps are the collaborators of the router. Metrics, Tracer and Logger are
// optional.
type Deps struct {
	Auth        AuthService
	Todos       TodoService
	Carrier     auth.Carrier
	Metrics     Recorder
	Tracer      trace.Tracer
	Logger      *slog.Logger
	APIPrefix   string
	CORSOrigins []string
}

type handler struct {
	auth    AuthService
	todos   TodoService
	carrier auth.Carrier
	metrics Recorder
	logger  *slog.Logger
}

// NewRouter builds the API handler.
func NewRouter(deps Deps) (http.Handler, error) {
	if deps.Auth == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if deps.Todos == nil {
		return nil, oops.Errorf("todo service is required")
	}
	if deps.Carrier == nil {
		return nil, oops.Errorf("token carrier is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(tracerName)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if _, err := compiledSchemas(); err != nil {
		return nil, oops.Code("REQUEST_SCHEMA_INVALID").Wrap(err)
	}
	corsMiddleware, err := corsHandler(deps.CORSOrigins)
	if err != nil {
		return nil, err
	}

	h := &handler{
		auth:    deps.Auth,
		todos:   deps.Todos,
		carrier: deps.Carrier,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(instrument(deps.Tracer, deps.Metrics, deps.Logger))
	r.Use(recoverPanics(deps.Logger))
	r.Use(corsMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, h.logger, oops.Code(CodeRouteNotFound).
			With("path", r.URL.Path).
			Errorf("route %s %s not found", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, h.logger, oops.Code(CodeMethodNotAllowed).
			With("path", r.URL.Path).
			Errorf("method %s not allowed on %s", r.Method, r.URL.Path))
	})

	prefix := strings.TrimSuffix(deps.APIPrefix, "/")
	if prefix == "" {
		h.routes(r)
	} else {
		r.Route(prefix, h.routes)
	}
	return r, nil
}

func (h *handler) routes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Get("/is-logged-in", h.isLoggedIn)
		r.Post("/is-logged-in", h.isLoggedIn)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)
			r.Get("/get-me", h.getMe)
			r.Post("/get-me", h.getMe)
		})
	})

	r.Route("/todo", func(r chi.Router) {
		r.Use(h.requireSession)
		r.Post("/create", h.createTodo)
		r.Post("/update/{id}", h.renameTodo)
		r.Post("/update-status/{id}", h.toggleTodo)
		r.Delete("/delete/{id}", h.deleteTodo)
	})
}
