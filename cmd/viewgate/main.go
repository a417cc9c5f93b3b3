// ABOUTME: Entry point for the viewgate server and its maintenance commands
// ABOUTME: Builds the cobra command tree and runs it with a signal-aware context

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389/viewgate/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

func (o *rootOptions) loadConfig() (string, *config.Config, error) {
	path := config.ResolvePath(o.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return path, nil, fmt.Errorf("loading config: %w", err)
	}
	return path, cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "viewgate",
		Short: "viewgate serves stateful view controllers over RPC",
		Long: `viewgate runs view controllers behind an authenticated RPC endpoint.
Each (session, view) pair keeps its own persisted view data and calls to
the same pair run one at a time.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file (default $"+config.EnvConfigPath+", ./config.yaml, ./config.toml)")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newUserAddCmd(opts),
		newPurgeCmd(opts),
		newHealthCmd(opts),
	)
	return root
}
