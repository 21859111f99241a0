// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tasklane/tasklane/internal/auth"
	authpg "github.com/tasklane/tasklane/internal/auth/postgres"
	authredis "github.com/tasklane/tasklane/internal/auth/redis"
	"github.com/tasklane/tasklane/internal/config"
	"github.com/tasklane/tasklane/internal/httpapi"
	"github.com/tasklane/tasklane/internal/logging"
	"github.com/tasklane/tasklane/internal/memstore"
	"github.com/tasklane/tasklane/internal/observability"
	"github.com/tasklane/tasklane/internal/store"
	"github.com/tasklane/tasklane/internal/todo"
	todopg "github.com/tasklane/tasklane/internal/todo/postgres"
)

const serviceName = "tasklane"

// NewServeCmd creates the serve subcommand. A nil deps uses the defaults.
func NewServeCmd(opts *globalOptions, deps *ServeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Long: `Run the JSON API together with the metrics and health listener.
With --auto-migrate, pending schema migrations are applied first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, deps)
		},
	}

	config.RegisterServeFlags(cmd.Flags())
	return cmd
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.PoolOpener == nil {
		out.PoolOpener = store.Open
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if out.RedisConnector == nil {
		out.RedisConnector = func(ctx context.Context, url string) (goredis.UniversalClient, error) {
			return authredis.Connect(ctx, url)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if out.APIServerFactory == nil {
		out.APIServerFactory = func(addr string, handler http.Handler, readHeaderTimeout time.Duration, logger *slog.Logger) APIServer {
			return httpapi.NewServer(addr, handler, readHeaderTimeout, logger)
		}
	}
	if out.LogOutput == nil {
		out.LogOutput = os.Stderr
	}
	return &out
}

// backends are the repositories the services run on, plus whatever must be
// closed at shutdown.
type backends struct {
	users       auth.UserRepository
	revocations auth.RevocationList
	todos       todo.Repository
	tx          todo.Transactor
	sweep       bool
	closers     []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// runServeWithDeps starts the server and blocks until ctx is cancelled, a
// shutdown signal arrives or a listener fails.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.Setup(serviceName, version, cfg.Log.Format, level, deps.LogOutput)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting tasklane",
		"addr", cfg.Server.Addr,
		"storage", cfg.Storage.Backend,
		"revocation", cfg.Auth.RevocationBackend,
		"carrier", cfg.Auth.Carrier,
	)

	b, err := openBackends(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer b.close()

	tokens, err := auth.NewTokenService([]byte(cfg.Auth.TokenSecret), cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "auth.token_secret").Wrap(err)
	}
	authSvc, err := auth.NewServiceWithLogger(b.users, b.revocations, auth.NewArgon2idHasher(), tokens, logger)
	if err != nil {
		return err
	}
	todoSvc, err := todo.NewService(b.todos, b.tx)
	if err != nil {
		return err
	}
	carrier, err := auth.NewCarrier(auth.CarrierConfig{
		Mode:     cfg.Auth.Carrier,
		MaxAge:   cfg.Auth.TokenTTL,
		Secure:   cfg.Auth.CookieSecure,
		SameSite: cfg.Auth.CookieSameSite,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if b.sweep {
		sweeper := auth.NewRevocationSweeper(b.revocations, cfg.Auth.RevocationSweepInterval, logger)
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	var ready atomic.Bool
	routerDeps := httpapi.Deps{
		Auth:        authSvc,
		Todos:       todoSvc,
		Carrier:     carrier,
		Logger:      logger,
		APIPrefix:   cfg.Server.APIPrefix,
		CORSOrigins: cfg.Server.CORSOrigins,
	}

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load, logger)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
		routerDeps.Metrics = obsServer.Metrics()
	}

	handler, err := httpapi.NewRouter(routerDeps)
	if err != nil {
		stopServer(obsServer, cfg.Server.ShutdownTimeout, logger, "observability")
		return err
	}

	apiServer := deps.APIServerFactory(cfg.Server.Addr, handler, cfg.Server.ReadHeaderTimeout, logger)
	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopServer(obsServer, cfg.Server.ShutdownTimeout, logger, "observability")
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api", logger)
	ready.Store(true)

	cmd.Printf("Tasklane serving on %s\n", apiServer.Addr())
	logger.Info("tasklane ready", "addr", apiServer.Addr(), "api_prefix", cfg.Server.APIPrefix)

	<-ctx.Done()
	logger.Info("shutting down")
	ready.Store(false)

	stopServer(apiServer, cfg.Server.ShutdownTimeout, logger, "api")
	stopServer(obsServer, cfg.Server.ShutdownTimeout, logger, "observability")

	logger.Info("shutdown complete")
	return nil
}

// openBackends connects the configured storage and revocation backends,
// applying migrations first when asked to.
func openBackends(ctx context.Context, cfg *config.Config, deps *ServeDeps, logger *slog.Logger) (*backends, error) {
	b := &backends{}

	var pool *pgxpool.Pool
	if cfg.NeedsDatabase() {
		if cfg.Database.AutoMigrate {
			if err := autoMigrate(deps, cfg.Database.URL, logger); err != nil {
				return nil, err
			}
		}
		var err error
		pool, err = deps.PoolOpener(ctx, cfg.Database.URL, cfg.Database.ConnectRetries, logger)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
	}

	var mem *memstore.Store
	if cfg.Storage.Backend == config.BackendMemory || cfg.Auth.RevocationBackend == config.BackendMemory {
		mem = memstore.New()
	}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		b.users, b.todos, b.tx = mem.Users(), mem.Todos(), mem.Transactor()
		logger.Warn("memory storage selected; data is lost on exit")
	default:
		b.users = authpg.NewUserRepository(pool)
		b.todos = todopg.NewTodoRepository(pool)
		b.tx = todopg.NewTransactor(pool)
	}

	switch cfg.Auth.RevocationBackend {
	case config.BackendMemory:
		b.revocations = mem.Revocations()
		b.sweep = true
	case config.BackendRedis:
		client, err := deps.RedisConnector(ctx, cfg.Auth.RedisURL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("error closing redis client", "error", err)
			}
		})
		b.revocations = authredis.NewRevocationList(client)
	default:
		b.revocations = authpg.NewRevocationRepository(pool)
		b.sweep = true
	}

	return b, nil
}

// autoMigrate applies pending migrations before the pool is opened.
func autoMigrate(deps *ServeDeps, url string, logger *slog.Logger) error {
	migrator, err := deps.MigratorFactory(url)
	if err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	pending, err := migrator.PendingMigrations()
	if err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	if len(pending) == 0 {
		logger.Info("database schema is up to date")
		return nil
	}

	logger.Info("applying migrations", "count", len(pending))
	if err := migrator.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	version, _, err := migrator.Version()
	if err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	logger.Info("migrations applied", "version", version)
	return nil
}

type stoppable interface {
	Stop(ctx context.Context) error
}

func stopServer(s stoppable, timeout time.Duration, logger *slog.Logger, name string) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels the process context when a server fails. It
// exits when the error channel closes or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
