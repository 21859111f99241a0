// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often expired revocations are purged.
const DefaultSweepInterval = 10 * time.Minute

// RevocationList remembers the IDs of logged-out tokens until they expire.
type RevocationList interface {
	// Revoke records a token ID as revoked until expiresAt.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error

	// IsRevoked reports whether the token ID was revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// Purge drops entries whose tokens have expired and returns how many were removed.
	Purge(ctx context.Context) (int64, error)
}

// RevocationSweeper periodically purges expired revocations.
type RevocationSweeper struct {
	list     RevocationList
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRevocationSweeper creates a sweeper. A non-positive interval uses
// DefaultSweepInterval; a nil logger uses slog.Default().
func NewRevocationSweeper(list RevocationList, interval time.Duration, logger *slog.Logger) *RevocationSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RevocationSweeper{
		list:     list,
		interval: interval,
		logger:   logger,
	}
}

// RunOnce purges expired revocations once.
func (s *RevocationSweeper) RunOnce(ctx context.Context) {
	purged, err := s.list.Purge(ctx)
	if err != nil {
		s.logger.Warn("best-effort revocation purge failed",
			"operation", "purge_revocations",
			"error", err)
		return
	}
	if purged > 0 {
		s.logger.Info("purged expired revocations", "count", purged)
	}
}

// Start begins periodic purging.
func (s *RevocationSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the sweeper and waits for it to exit.
func (s *RevocationSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *RevocationSweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}
