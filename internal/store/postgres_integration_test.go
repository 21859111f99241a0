// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

//go:build integration

package store_test

import (
	"context"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tasklane/tasklane/internal/store"
)

var _ = Describe("Open", func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("tasklane_test"),
			postgres.WithUsername("tasklane"),
			postgres.WithPassword("tasklane"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())
		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if container != nil {
			_ = testcontainers.TerminateContainer(container)
		}
	})

	It("connects and serves the migrated schema", func() {
		pool, err := store.Open(ctx, connStr, 3, slog.New(slog.DiscardHandler))
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		defer migrator.Close()
		Expect(migrator.Up()).To(Succeed())

		var tables int
		err = pool.QueryRow(ctx, `
			SELECT count(*) FROM information_schema.tables
			WHERE table_name IN ('users', 'todos', 'revoked_tokens')`).Scan(&tables)
		Expect(err).NotTo(HaveOccurred())
		Expect(tables).To(Equal(3))
	})

	It("gives up when the server is gone", func() {
		Expect(testcontainers.TerminateContainer(container)).To(Succeed())
		container = nil

		_, err := store.Open(ctx, connStr, 1, slog.New(slog.DiscardHandler))
		Expect(err).To(HaveOccurred())
	})
})
