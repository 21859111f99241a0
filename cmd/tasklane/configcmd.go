// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tasklane/tasklane/internal/config"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd(opts *globalOptions) *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration serve would run with, after layering defaults,
the config file, .env, the environment and flags. Secrets are redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(cfg.Redacted())
			if err != nil {
				return oops.With("operation", "encode config").Wrap(err)
			}
			cmd.Print(string(out))

			if validate {
				return cfg.Validate()
			}
			return nil
		},
	}

	config.RegisterServeFlags(cmd.Flags())
	cmd.Flags().BoolVar(&validate, "validate", false, "exit non-zero if the configuration is invalid")
	return cmd
}
