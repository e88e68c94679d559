// ABOUTME: bootstrap-admin subcommand that creates an admin account offline
// ABOUTME: Talks to the database directly so it works without an admin key

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/trellis/internal/config"
	"github.com/2389/trellis/internal/identity"
	"github.com/2389/trellis/internal/server"
)

func newBootstrapAdminCmd() *cobra.Command {
	var in identity.CreateInput

	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create an admin user directly in the database",
		Long: `Create an admin user directly in the database.

The password is read from TRELLIS_ADMIN_PASSWORD when set, otherwise from
the first line of standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(getConfigPath())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			in.Password, err = readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if in.FullName == "" {
				in.FullName = in.Username
			}

			logger := setupLogger(config.LoggingConfig{Level: "warn", Format: cfg.Logging.Format}, os.Stderr)
			u, err := server.BootstrapAdmin(cmd.Context(), cfg.Database, in, logger)
			if err != nil {
				return fmt.Errorf("creating admin: %w", err)
			}

			out := cmd.OutOrStdout()
			green := color.New(color.FgGreen)
			cyan := color.New(color.FgCyan)
			green.Fprintf(out, "  ✓ Created admin: %s\n", u.Username)
			fmt.Fprintln(out)
			cyan.Fprintln(out, "  Admin User")
			cyan.Fprintln(out, "  ----------")
			fmt.Fprintf(out, "  ID:       %s\n", u.ID)
			fmt.Fprintf(out, "  Username: %s\n", u.Username)
			fmt.Fprintf(out, "  Email:    %s\n", u.Email)
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in.Username, "username", "u", "", "admin username (required)")
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "admin email (required)")
	cmd.Flags().StringVar(&in.FullName, "full-name", "", "display name (defaults to the username)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func readPassword(stdin io.Reader) (string, error) {
	if pw := os.Getenv("TRELLIS_ADMIN_PASSWORD"); pw != "" {
		return pw, nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return "", fmt.Errorf("password required: set TRELLIS_ADMIN_PASSWORD or pipe it on stdin")
	}
	return line, nil
}
