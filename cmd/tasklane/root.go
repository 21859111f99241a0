// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/tasklane/tasklane/internal/config"
)

// globalOptions holds the persistent flags every subcommand sees.
type globalOptions struct {
	configFile string
	envFile    string
}

// NewRootCmd creates the root command for the tasklane CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "tasklane",
		Short: "Tasklane - a multi-user task list service",
		Long: `Tasklane serves a JSON API where users register, log in and manage
their own todo lists. Sessions are signed tokens carried in a cookie or a
bearer header; every todo mutation is checked against its owner.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"config file path (default: $XDG_CONFIG_HOME/tasklane/config.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded into the environment if present")
	config.RegisterLogFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(opts, nil))
	cmd.AddCommand(NewMigrateCmd(opts, nil))
	cmd.AddCommand(NewStatusCmd(opts))
	cmd.AddCommand(NewConfigCmd(opts))

	return cmd
}

// loadConfig layers the configuration sources for cmd. Flags of cmd and its
// parents that are listed in config.FlagKeys take part.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	return config.Load(config.Options{
		ConfigFile: opts.configFile,
		DotEnvFile: opts.envFile,
		Flags:      cmd.Flags(),
	})
}
