// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package main

import (
	"fmt"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tasklane/tasklane/internal/config"
	"github.com/tasklane/tasklane/internal/store"
)

// NewMigrateCmd creates the migrate subcommand and its children. A nil deps
// uses store.NewMigrator.
func NewMigrateCmd(opts *globalOptions, deps *MigrateDeps) *cobra.Command {
	if deps == nil {
		deps = &MigrateDeps{}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back and inspect the embedded PostgreSQL schema migrations.`,
	}
	config.RegisterDatabaseFlags(cmd.PersistentFlags())

	withMigrator := func(run func(cmd *cobra.Command, m Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return oops.Code("CONFIG_INVALID").
					With("key", "database.url").
					Errorf("database.url is required (set --database-url, DATABASE_URL or %sDATABASE__URL)", config.EnvPrefix)
			}
			m, err := deps.MigratorFactory(cfg.Database.URL)
			if err != nil {
				return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
			}
			defer func() {
				if closeErr := m.Close(); closeErr != nil {
					cmd.PrintErrf("Warning: closing migrator: %v\n", closeErr)
				}
			}()
			return run(cmd, m, args)
		}
	}

	var downAll bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
			if downAll {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Rolled back all migrations")
				return nil
			}
			if err := m.Steps(-1); err != nil {
				return err
			}
			return printVersion(cmd, m)
		}),
	}
	down.Flags().BoolVar(&downAll, "all", false, "roll back every migration, dropping all data")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
				pending, err := m.PendingMigrations()
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					cmd.Println("No pending migrations")
					return nil
				}
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Printf("Applied %d migration(s)\n", len(pending))
				return printVersion(cmd, m)
			}),
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
				return printVersion(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
				return printMigrationStatus(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Mark VERSION as applied without running it",
			Long: `Record VERSION as the current schema version and clear the dirty flag.
Use it only after repairing a failed migration by hand.`,
			Args: cobra.ExactArgs(1),
			RunE: withMigrator(func(cmd *cobra.Command, m Migrator, args []string) error {
				version, err := parseForceVersion(args[0])
				if err != nil {
					return err
				}
				if err := m.Force(version); err != nil {
					return err
				}
				return printVersion(cmd, m)
			}),
		},
	)

	return cmd
}

func parseForceVersion(s string) (int, error) {
	version, err := strconv.Atoi(s)
	if err != nil || version < 0 {
		return 0, oops.Code("INVALID_VERSION").
			With("version", s).
			Errorf("version must be a non-negative integer, got %q", s)
	}
	return version, nil
}

func printVersion(cmd *cobra.Command, m Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		cmd.Println("Schema version: none")
		return nil
	}
	suffix := ""
	if dirty {
		suffix = " (dirty)"
	}
	cmd.Printf("Schema version: %d%s\n", version, suffix)
	return nil
}

func printMigrationStatus(cmd *cobra.Command, m Migrator) error {
	applied, err := m.AppliedMigrations()
	if err != nil {
		return err
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}

	for _, v := range applied {
		cmd.Printf("  [x] %s\n", migrationLabel(v))
	}
	for _, v := range pending {
		cmd.Printf("  [ ] %s\n", migrationLabel(v))
	}
	cmd.Printf("%d applied, %d pending\n", len(applied), len(pending))
	return nil
}

func migrationLabel(version uint) string {
	name, err := store.MigrationName(version)
	if err != nil {
		return fmt.Sprintf("%06d", version)
	}
	return name
}
