// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

// Package redis implements the auth revocation list on Redis.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/tasklane/tasklane/internal/auth"
)

const keyPrefix = "tasklane:revoked:"

// RevocationList stores revoked token IDs as keys that expire together with
// the token, so Purge has nothing to do.
type RevocationList struct {
	client goredis.UniversalClient
	now    func() time.Time
}

var _ auth.RevocationList = (*RevocationList)(nil)

// NewRevocationList creates a RevocationList on the given client.
func NewRevocationList(client goredis.UniversalClient) *RevocationList {
	return &RevocationList{client: client, now: time.Now}
}

// Connect parses a redis:// URL, opens a client and pings it.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("REDIS_CONFIG_INVALID").
			With("operation", "parse redis url").
			Wrap(err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").
			With("operation", "ping").
			With("addr", opts.Addr).
			Wrap(err)
	}
	return client, nil
}

// Revoke stores the token ID until expiresAt. Tokens that already expired
// need no entry.
func (r *RevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, keyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return oops.Code("REVOCATION_WRITE_FAILED").
			With("operation", "redis set").
			With("token_id", tokenID).
			Wrap(err)
	}
	return nil
}

// IsRevoked reports whether a key exists for the token ID.
func (r *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, oops.Code("REVOCATION_READ_FAILED").
			With("operation", "redis exists").
			With("token_id", tokenID).
			Wrap(err)
	}
	return n > 0, nil
}

// Purge is a no-op: Redis expires the keys itself.
func (r *RevocationList) Purge(context.Context) (int64, error) {
	return 0, nil
}
