// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package postgres

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/tasklane/tasklane/internal/auth"
)

// RevocationRepository implements auth.RevocationList on the revoked_tokens table.
type RevocationRepository struct {
	pool poolIface
}

var _ auth.RevocationList = (*RevocationRepository)(nil)

// NewRevocationRepository creates a new RevocationRepository.
func NewRevocationRepository(pool poolIface) *RevocationRepository {
	return &RevocationRepository{pool: pool}
}

// Revoke records the token ID. Revoking twice is not an error.
func (r *RevocationRepository) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, tokenID, expiresAt)
	if err != nil {
		return oops.Code("REVOCATION_WRITE_FAILED").
			With("operation", "insert revoked token").
			With("token_id", tokenID).
			Wrap(err)
	}
	return nil
}

// IsRevoked reports whether the token ID is on the list.
func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)
	`, tokenID).Scan(&revoked)
	if err != nil {
		return false, oops.Code("REVOCATION_READ_FAILED").
			With("operation", "check revoked token").
			With("token_id", tokenID).
			Wrap(err)
	}
	return revoked, nil
}

// Purge deletes entries whose tokens have expired.
func (r *RevocationRepository) Purge(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < now()`)
	if err != nil {
		return 0, oops.Code("REVOCATION_PURGE_FAILED").
			With("operation", "delete expired revocations").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}
