// ABOUTME: health command probing a running server's health endpoints
// ABOUTME: Reports liveness and readiness of the configured HTTP address

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

func newHealthCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check gateway health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				_, cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				addr = cfg.Server.HTTPAddr
			}
			base := addr
			if !strings.Contains(base, "://") {
				base = "http://" + base
			}

			if _, err := probe(cmd.Context(), base+"/health"); err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			ready, err := probe(cmd.Context(), base+"/health/ready")
			if err != nil {
				return fmt.Errorf("readiness check failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "healthy: %s\n", ready)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "server address (default server.http_addr from config)")
	return cmd
}

// probe GETs url and returns the body, failing on any non-200 status.
func probe(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return strings.TrimSpace(string(body)), nil
}
