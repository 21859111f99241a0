// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

// Package xdg resolves XDG Base Directory paths for tasklane.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "tasklane"

// ConfigDir returns $XDG_CONFIG_HOME/tasklane, falling back to
// ~/.config/tasklane.
func ConfigDir() (string, error) {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", oops.Code("XDG_HOME_UNKNOWN").With("operation", "resolve home directory").Wrap(err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigFile returns the default config file path, config.yaml inside
// ConfigDir.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}
