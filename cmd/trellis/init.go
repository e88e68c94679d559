// ABOUTME: init subcommand that writes a new config file interactively
// ABOUTME: Generates random token secrets and writes YAML or TOML by extension

package main

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/2389/trellis/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new config file interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout())
		},
	}
}

func runInit(reader *bufio.Reader, out io.Writer) error {
	fmt.Fprintln(out, "trellis configuration setup")
	fmt.Fprintln(out, "===========================")
	fmt.Fprintln(out)

	outputFile := prompt(reader, out, "Config file path (.yaml or .toml)", getConfigPath())
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, out, "File exists. Overwrite?", "no")
		if !yes(overwrite) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	var cfg config.Config

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	cfg.Server.HTTPAddr = prompt(reader, out, "HTTP address", "localhost:8080")

	fmt.Fprintln(out, "\n--- Database Configuration ---")
	cfg.Database.Driver = prompt(reader, out, "Driver (sqlite/postgres)", "sqlite")
	defaultDSN := filepath.Join(getDataPath(), "trellis.db")
	if cfg.Database.Driver == "postgres" {
		defaultDSN = "postgres://trellis@localhost:5432/trellis?sslmode=disable"
	}
	cfg.Database.DSN = prompt(reader, out, "DSN", defaultDSN)

	fmt.Fprintln(out, "\n--- Auth Configuration ---")
	var err error
	if cfg.Auth.AccessSecret, err = randomSecret(); err != nil {
		return err
	}
	if cfg.Auth.RefreshSecret, err = randomSecret(); err != nil {
		return err
	}
	if yes(prompt(reader, out, "Allow admin self-registration with an admin key?", "yes")) {
		if cfg.Auth.AdminKey, err = randomSecret(); err != nil {
			return err
		}
	}
	cfg.Auth.AccessTTLRaw = prompt(reader, out, "Access token lifetime", config.DefaultAccessTTL.String())
	cfg.Auth.RefreshTTLRaw = prompt(reader, out, "Refresh token lifetime", config.DefaultRefreshTTL.String())

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, out, "Log level (debug/info/warn/error)", "info")
	cfg.Logging.Format = prompt(reader, out, "Log format (text/json)", "text")

	data, err := encodeConfig(&cfg, outputFile)
	if err != nil {
		return err
	}
	if _, err := config.Parse(string(data), formatOf(outputFile)); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if cfg.Database.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	if cfg.Auth.AdminKey != "" {
		fmt.Fprintf(out, "Admin key: %s\n", cfg.Auth.AdminKey)
	}
	fmt.Fprintln(out, "\nTo start the server:")
	fmt.Fprintln(out, "  trellis serve")
	return nil
}

func formatOf(path string) config.Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return config.FormatTOML
	}
	return config.FormatYAML
}

// encodeConfig renders cfg in the format implied by path.
func encodeConfig(cfg *config.Config, path string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# trellis configuration\n# Generated by trellis init\n\n")

	if formatOf(path) == config.FormatTOML {
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("encoding config: %w", err)
		}
		return buf.Bytes(), nil
	}

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func yes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if err != nil && input == "" {
		// On EOF or error, return default
		fmt.Fprintln(out)
		return defaultVal
	}
	if input == "" {
		return defaultVal
	}
	return input
}
