// ABOUTME: serve and health subcommands
// ABOUTME: serve runs the HTTP API until SIGINT/SIGTERM, health probes a running server

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/trellis/internal/config"
	"github.com/2389/trellis/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := getConfigPath()

			cyan := color.New(color.FgCyan)
			cyan.Print(banner)
			gray := color.New(color.FgHiBlack)
			gray.Printf("    version: %s\n\n", version)

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := setupLogger(cfg.Logging, os.Stdout)

			green := color.New(color.FgGreen)
			yellow := color.New(color.FgYellow)
			green.Print("    ▶ ")
			fmt.Printf("Config:    %s\n", configPath)
			green.Print("    ▶ ")
			fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
			green.Print("    ▶ ")
			fmt.Printf("Database:  %s", cfg.Database.Driver)
			if cfg.Database.Driver == "sqlite" {
				gray.Printf(" (%s)", cfg.Database.DSN)
			}
			fmt.Println()
			if cfg.Auth.AdminKey == "" {
				yellow.Println("    ! admin self-registration disabled (auth.admin_key empty)")
			}
			fmt.Println()

			srv, err := server.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return srv.Run(cmd.Context())
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check a running server's health and database readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(getConfigPath())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			for _, path := range []string{"/health", "/health/ready"} {
				body, err := probe(cmd, fmt.Sprintf("http://%s%s", cfg.Server.HTTPAddr, path))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", path, body)
			}
			return nil
		},
	}
}

// probe GETs url and returns the body, failing on any non-200 status.
func probe(cmd *cobra.Command, url string) (string, error) {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, body)
	}
	return string(body), nil
}
