// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

// Package store owns the PostgreSQL schema and connection pool.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DefaultConnectRetries is how many times Open retries the first ping.
const DefaultConnectRetries = 5

// connectBackoff is the first retry delay; later delays double.
var connectBackoff = 250 * time.Millisecond

// pinger is the subset of *pgxpool.Pool that Open waits on.
type pinger interface {
	Ping(ctx context.Context) error
}

// Open creates a pgx pool and waits until the database answers a ping,
// retrying with exponential backoff. The pool is closed if it never does.
func Open(ctx context.Context, databaseURL string, retries uint64, logger *slog.Logger) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, oops.Code("DATABASE_URL_MISSING").Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DATABASE_CONFIG_INVALID").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DATABASE_POOL_FAILED").Wrap(err)
	}

	if err := waitForPing(ctx, pool, retries, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func waitForPing(ctx context.Context, db pinger, retries uint64, logger *slog.Logger) error {
	attempt := 0
	backoff := retry.WithMaxRetries(retries, retry.NewExponential(connectBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := db.Ping(ctx); err != nil {
			logger.Warn("database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DATABASE_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}
	return nil
}
