// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tasklane/tasklane/internal/config"
)

// ProbeStatus is the result of querying one health probe.
type ProbeStatus struct {
	Probe      string `json:"probe"`
	Healthy    bool   `json:"healthy"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Body       string `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ServerStatus is what the status command reports.
type ServerStatus struct {
	MetricsAddr string        `json:"metrics_addr"`
	Probes      []ProbeStatus `json:"probes"`
}

type statusConfig struct {
	jsonOutput bool
	timeout    time.Duration
}

var probePaths = []struct {
	name string
	path string
}{
	{"liveness", "/healthz/liveness"},
	{"readiness", "/healthz/readiness"},
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd(opts *globalOptions) *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the health of a running server",
		Long: `Query the liveness and readiness probes of a running tasklane server
on its metrics address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runStatus(cmd, cfg, appCfg.Metrics.Addr)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 2*time.Second, "per-probe timeout")
	cmd.Flags().String("metrics-addr", config.Default().Metrics.Addr, "metrics and health address of the server")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig, metricsAddr string) error {
	if metricsAddr == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "metrics.addr").
			Errorf("metrics.addr is empty; the server exposes no probes")
	}

	status := queryServerStatus(cmd.Context(), &http.Client{Timeout: cfg.timeout}, metricsAddr)

	if cfg.jsonOutput {
		output, err := formatStatusJSON(status)
		if err != nil {
			return err
		}
		cmd.Println(output)
	} else {
		cmd.Print(formatStatusTable(status))
	}

	for _, p := range status.Probes {
		if !p.Healthy {
			return oops.Code("SERVER_UNHEALTHY").With("probe", p.Probe).Errorf("%s probe failed", p.Probe)
		}
	}
	return nil
}

func queryServerStatus(ctx context.Context, client *http.Client, metricsAddr string) ServerStatus {
	status := ServerStatus{MetricsAddr: metricsAddr}
	for _, probe := range probePaths {
		status.Probes = append(status.Probes, queryProbe(ctx, client, "http://"+metricsAddr+probe.path, probe.name))
	}
	return status
}

func queryProbe(ctx context.Context, client *http.Client, url, name string) ProbeStatus {
	status := ProbeStatus{Probe: name}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	resp, err := client.Do(req)
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		status.Error = fmt.Sprintf("failed to read response: %v", err)
		return status
	}

	status.HTTPStatus = resp.StatusCode
	status.Body = strings.TrimSpace(string(body))
	status.Healthy = resp.StatusCode == http.StatusOK
	return status
}

func formatStatusTable(status ServerStatus) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "PROBE\tSTATUS\tDETAIL\n")
	_, _ = fmt.Fprintf(w, "-----\t------\t------\n")
	for _, p := range status.Probes {
		state := "ok"
		if !p.Healthy {
			state = "failing"
		}
		detail := p.Body
		if p.Error != "" {
			detail = p.Error
		} else if p.HTTPStatus != 0 {
			detail = fmt.Sprintf("%d %s", p.HTTPStatus, p.Body)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", p.Probe, state, detail)
	}

	_ = w.Flush()
	return buf.String()
}

func formatStatusJSON(status ServerStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", oops.With("operation", "format status").Wrap(err)
	}
	return string(data), nil
}
