// ABOUTME: purge command deleting the stored view data of one session and view
// ABOUTME: The next call for that pair runs the view's initializer again

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389/viewgate/internal/store"
)

func newPurgeCmd(opts *rootOptions) *cobra.Command {
	var sessionID, viewKey string
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete the stored view data of a session",
		Long: `Delete the stored view data of one (session, view) pair.

While the server is running prefer DELETE /admin/sessions/{session}/views/{view},
which waits for in-flight calls on that pair to finish first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID == "" || viewKey == "" {
				return errors.New("--session and --view are required")
			}
			_, cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			setupLogger(cfg.Logging, cmd.ErrOrStderr())

			s, err := store.OpenSQLiteStore(cmd.Context(), cfg.Database.Driver, cfg.Database.Path, true)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer s.Close()

			if err := s.DeleteViewData(cmd.Context(), sessionID, viewKey); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged view %q for session %s\n", viewKey, sessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	cmd.Flags().StringVar(&viewKey, "view", "", "view key")
	return cmd
}
