// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

// Command gen-schema writes the JSON Schemas of the API request bodies.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/tasklane/tasklane/internal/httpapi"
)

func main() {
	written, err := writeSchemas("schemas")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, path := range written {
		fmt.Printf("Generated %s\n", path)
	}
}

// writeSchemas writes one file per request schema into dir and returns the
// paths written, sorted.
func writeSchemas(dir string) ([]string, error) {
	schemas, err := httpapi.GenerateSchemas()
	if err != nil {
		return nil, fmt.Errorf("generating schemas: %w", err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}

	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	slices.Sort(names)

	written := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, append(schemas[name], '\n'), 0o600); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
