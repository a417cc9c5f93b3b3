// ABOUTME: serve command starting the HTTP and gRPC servers
// ABOUTME: Prints the startup banner and blocks until interrupted

package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/viewgate/internal/builtins"
	"github.com/2389/viewgate/internal/config"
	"github.com/2389/viewgate/internal/gateway"
)

const banner = `
        _                            _
 __   _(_) _____      ____ _  __ _| |_ ___
 \ \ / / |/ _ \ \ /\ / / _' |/ _' | __/ _ \
  \ V /| |  __/\ V  V / (_| | (_| | ||  __/
   \_/ |_|\___| \_/\_/ \__, |\__,_|\__\___|
                       |___/
`

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			printStartup(cmd.OutOrStdout(), configPath, cfg)

			logger := setupLogger(cfg.Logging, cmd.OutOrStdout())
			logger.Info("starting viewgate",
				"config", configPath,
				"grpc_addr", cfg.Server.GRPCAddr,
				"http_addr", cfg.Server.HTTPAddr,
			)

			gw, err := gateway.New(cfg, logger, builtins.All()...)
			if err != nil {
				return fmt.Errorf("creating gateway: %w", err)
			}
			return gw.Run(cmd.Context())
		},
	}
}

func printStartup(w io.Writer, configPath string, cfg *config.Config) {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(w, banner)
	gray.Fprintf(w, "    version: %s\n\n", version)

	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "Config:    %s\n", configPath)
	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "RPC:       %s/{view}\n", cfg.Server.RPCPrefix)
	if cfg.Server.GRPCAddr != "" {
		green.Fprint(w, "    ▶ ")
		fmt.Fprintf(w, "gRPC:      %s\n", cfg.Server.GRPCAddr)
	}
	green.Fprint(w, "    ▶ ")
	fmt.Fprintf(w, "Database:  %s (%s)\n", cfg.Database.Path, cfg.Database.Driver)

	if cfg.Tailscale.Enabled {
		green.Fprint(w, "    ▶ ")
		fmt.Fprint(w, "Tailscale: ")
		cyan.Fprint(w, cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Fprint(w, " [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Fprint(w, " (ephemeral)")
		}
		fmt.Fprintln(w)
	}
	if cfg.Metrics.Enabled {
		green.Fprint(w, "    ▶ ")
		fmt.Fprintf(w, "Metrics:   %s\n", cfg.Metrics.Path)
	}

	fmt.Fprintln(w)
}
