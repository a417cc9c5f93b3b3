// ABOUTME: useradd command creating a password login with roles
// ABOUTME: The password is read from --password or prompted on stdin and stored as a bcrypt hash

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/2389/viewgate/internal/store"
)

// maxUsernameLength bounds usernames accepted by useradd.
const maxUsernameLength = 100

type userAddOptions struct {
	username string
	password string
	roles    []string
}

func newUserAddCmd(opts *rootOptions) *cobra.Command {
	o := &userAddOptions{}
	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create a user that can log in with a password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			setupLogger(cfg.Logging, cmd.ErrOrStderr())

			username := strings.TrimSpace(o.username)
			if username == "" {
				return errors.New("--username is required")
			}
			if len(username) > maxUsernameLength {
				return fmt.Errorf("username exceeds maximum length of %d characters", maxUsernameLength)
			}

			password := o.password
			if password == "" {
				password, err = readPassword(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}
			if password == "" {
				return errors.New("password cannot be empty")
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}

			s, err := store.OpenSQLiteStore(cmd.Context(), cfg.Database.Driver, cfg.Database.Path, true)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer s.Close()

			user := &store.User{
				ID:           uuid.New().String(),
				Username:     username,
				PasswordHash: string(hash),
				Roles:        cleanRoles(o.roles),
				CreatedAt:    time.Now().UTC(),
			}
			if err := s.CreateUser(cmd.Context(), user); err != nil {
				if errors.Is(err, store.ErrDuplicateUser) {
					return fmt.Errorf("user %q already exists", username)
				}
				return fmt.Errorf("creating user: %w", err)
			}

			out := cmd.OutOrStdout()
			color.New(color.FgGreen).Fprintf(out, "  ✓ Created user: %s\n", username)
			fmt.Fprintf(out, "  ID:    %s\n", user.ID)
			fmt.Fprintf(out, "  Roles: %s\n", strings.Join(user.Roles, ", "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&o.username, "username", "u", "", "login name")
	cmd.Flags().StringVarP(&o.password, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().StringSliceVarP(&o.roles, "roles", "r", nil, "comma-separated roles")
	return cmd
}

// readPassword prompts for a password. On a terminal the input is not
// echoed; otherwise one line is read from in.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ")
	defer fmt.Fprintln(out)

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// cleanRoles trims, drops empty entries and removes duplicates, keeping order.
func cleanRoles(roles []string) []string {
	seen := make(map[string]bool, len(roles))
	out := []string{}
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
