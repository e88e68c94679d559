// ABOUTME: Entry point for the trellis project-management server
// ABOUTME: Cobra root command with serve, init, bootstrap-admin, health and version

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var version = "dev"

const banner = `
 _            _ _ _
| |_ _ __ ___| | (_)___
| __| '__/ _ \ | | / __|
| |_| | |  __/ | | \__ \
 \__|_|  \___|_|_|_|___/
`

// configFlag holds --config; empty means use the default path.
var configFlag string

// getConfigPath returns the path to the trellis config file.
// Priority: --config flag > TRELLIS_CONFIG env var > XDG_CONFIG_HOME/trellis/config.yaml > ~/.config/trellis/config.yaml
func getConfigPath() string {
	if configFlag != "" {
		return configFlag
	}
	if envPath := os.Getenv("TRELLIS_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "trellis", "config.yaml")
}

// getDataPath returns the directory for the default SQLite database.
// Priority: XDG_DATA_HOME/trellis > ~/.local/share/trellis
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "trellis")
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trellis",
		Short: "Workspaces, projects, boards and tasks with role-based access",
		Long: `trellis serves a project-management API: workspaces contain projects,
projects contain boards, boards contain lists and lists contain tasks.
Admins, team leads and board members get different write access.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file (YAML, or TOML with a .toml extension)")

	root.AddCommand(
		newServeCmd(),
		newInitCmd(),
		newBootstrapAdminCmd(),
		newHealthCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trellis %s\n", version)
		},
	}
}
