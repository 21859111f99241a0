// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"

	"github.com/tasklane/tasklane/internal/auth"
	"github.com/tasklane/tasklane/internal/auth/mocks"
)

func TestRevocationSweeper_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("logs purged count", func(t *testing.T) {
		var buf bytes.Buffer
		list := mocks.NewMockRevocationList(t)
		list.On("Purge", ctx).Return(int64(3), nil)

		sweeper := auth.NewRevocationSweeper(list, time.Minute, slog.New(slog.NewJSONHandler(&buf, nil)))
		sweeper.RunOnce(ctx)

		assert.Contains(t, buf.String(), "purged expired revocations")
		assert.Contains(t, buf.String(), `"count":3`)
	})

	t.Run("failure is logged as best-effort", func(t *testing.T) {
		var buf bytes.Buffer
		list := mocks.NewMockRevocationList(t)
		list.On("Purge", ctx).Return(int64(0), errors.New("db down"))

		sweeper := auth.NewRevocationSweeper(list, time.Minute, slog.New(slog.NewJSONHandler(&buf, nil)))
		sweeper.RunOnce(ctx)

		assert.Contains(t, buf.String(), "best-effort")
		assert.Contains(t, buf.String(), "purge_revocations")
	})
}

func TestRevocationSweeper_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	list := mocks.NewMockRevocationList(t)
	purged := make(chan struct{}, 1)
	list.On("Purge", mock.Anything).Return(int64(0), nil).Run(func(mock.Arguments) {
		select {
		case purged <- struct{}{}:
		default:
		}
	})

	sweeper := auth.NewRevocationSweeper(list, 10*time.Millisecond, slog.New(slog.DiscardHandler))
	sweeper.Start(context.Background())

	select {
	case <-purged:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper never purged")
	}
	sweeper.Stop()
}
