// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tasklane/tasklane/pkg/errutil"
)

func TestConfigCmd_PrintsRedactedYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "tasklane.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
database:
  url: postgres://tasklane:hunter2@db:5432/tasklane
auth:
  token_secret: `+testSecret+`
`), 0o600))

	output, err := execute(t, "config", "--config", path, "--storage", "memory", "--validate")
	require.NoError(t, err, output)

	var printed map[string]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(output), &printed))
	assert.Equal(t, ":9090", printed["server"]["addr"])
	assert.Equal(t, "memory", printed["storage"]["backend"])
	assert.Equal(t, "REDACTED", printed["auth"]["token_secret"])
	assert.NotContains(t, output, "hunter2")
	assert.NotContains(t, output, testSecret)
	assert.Equal(t, "24h0m0s", printed["auth"]["token_ttl"])
}

func TestConfigCmd_Validate(t *testing.T) {
	isolate(t)

	output, err := execute(t, "config", "--storage", "memory", "--revocation", "memory", "--validate")
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "key", "auth.token_secret")
	assert.Contains(t, output, "server:")
}

func TestConfigCmd_LegacyEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "3000")
	t.Setenv("CLIENT_URL", "https://app.example.com, https://admin.example.com")

	output, err := execute(t, "config")
	require.NoError(t, err)

	var printed map[string]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(output), &printed))
	assert.Equal(t, ":3000", printed["server"]["addr"])
	assert.Equal(t, []any{"https://app.example.com", "https://admin.example.com"}, printed["server"]["cors_origins"])
}
