// ABOUTME: migrate command applying the embedded schema migrations
// ABOUTME: --target stops at a version; applied migrations with drifted checksums abort the run

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/viewgate/internal/store"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var target int64
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			setupLogger(cfg.Logging, cmd.ErrOrStderr())

			s, err := store.OpenSQLiteStore(cmd.Context(), cfg.Database.Driver, cfg.Database.Path, false)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer s.Close()

			var targetPtr *int64
			if cmd.Flags().Changed("target") {
				targetPtr = &target
			}
			result, err := s.Migrate(cmd.Context(), targetPtr)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			green := color.New(color.FgGreen)
			gray := color.New(color.FgHiBlack)
			for _, v := range result.AppliedVersions {
				green.Fprintf(out, "  ✓ applied %d\n", v)
			}
			for _, v := range result.SkippedVersions {
				gray.Fprintf(out, "  - skipped %d (already applied)\n", v)
			}
			fmt.Fprintf(out, "schema version: %d\n", result.CurrentVersion)
			return nil
		},
	}
	cmd.Flags().Int64Var(&target, "target", 0, "highest migration version to apply (default: all)")
	return cmd
}
