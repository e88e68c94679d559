// ABOUTME: Tests for the trellis CLI commands and log handler
// ABOUTME: Runs init, bootstrap-admin and version through cobra against temp files

package main

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/2389/trellis/internal/config"
	"github.com/2389/trellis/internal/server"
	"github.com/2389/trellis/internal/store"
)

func TestGetConfigPath(t *testing.T) {
	t.Cleanup(func() { configFlag = "" })

	t.Setenv("TRELLIS_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := getConfigPath(); got != filepath.Join("/xdg", "trellis", "config.yaml") {
		t.Errorf("getConfigPath() = %q", got)
	}

	t.Setenv("TRELLIS_CONFIG", "/etc/trellis.toml")
	if got := getConfigPath(); got != "/etc/trellis.toml" {
		t.Errorf("getConfigPath() = %q, want env path", got)
	}

	configFlag = "/flag.yaml"
	if got := getConfigPath(); got != "/flag.yaml" {
		t.Errorf("getConfigPath() = %q, want flag path", got)
	}
}

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.Debug("hidden")
	logger.With("component", "api").WithGroup("req").Info("request", "status", 200)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record should be filtered at info level")
	}
	for _, want := range []string{"request", "req.component=", "api", "req.status=", "200"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("quiet")
	logger.Warn("loud", "k", "v")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"loud"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("unexpected JSON output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// answers feeds one line per prompt; empty lines take the default.
func answers(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func TestRunInit(t *testing.T) {
	for _, ext := range []string{".yaml", ".toml"} {
		t.Run(ext, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config"+ext)
			dsn := filepath.Join(dir, "data", "trellis.db")

			var out bytes.Buffer
			err := runInit(answers(path, "127.0.0.1:9999", "sqlite", dsn, "yes", "", "", "debug", "json"), &out)
			if err != nil {
				t.Fatalf("runInit() error = %v", err)
			}

			cfg, err := config.Load(path)
			if err != nil {
				t.Fatalf("generated config does not load: %v", err)
			}
			if cfg.Server.HTTPAddr != "127.0.0.1:9999" {
				t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
			}
			if cfg.Database.DSN != dsn {
				t.Errorf("DSN = %q, want %q", cfg.Database.DSN, dsn)
			}
			if cfg.Auth.AdminKey == "" || cfg.Auth.AccessSecret == cfg.Auth.RefreshSecret {
				t.Errorf("secrets not generated: %+v", cfg.Auth)
			}
			if cfg.Auth.AccessTTL != config.DefaultAccessTTL {
				t.Errorf("AccessTTL = %v", cfg.Auth.AccessTTL)
			}
			if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
				t.Errorf("Logging = %+v", cfg.Logging)
			}
			if _, err := os.Stat(filepath.Dir(dsn)); err != nil {
				t.Errorf("data directory not created: %v", err)
			}
		})
	}
}

func TestRunInit_KeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("original"), 0600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runInit(answers(path, "no"), &out); err != nil {
		t.Fatalf("runInit() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "original" {
		t.Errorf("file was overwritten: %q", data)
	}
	if !strings.Contains(out.String(), "Aborted.") {
		t.Errorf("output %q missing Aborted.", out.String())
	}
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n  dsn: \"" + filepath.Join(dir, "trellis.db") + "\"\n" +
		"auth:\n  access_secret: access-secret-0123456789\n  refresh_secret: refresh-secret-0123456789\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBootstrapAdminCommand(t *testing.T) {
	path := writeTestConfig(t)
	t.Cleanup(func() { configFlag = "" })
	t.Setenv("TRELLIS_ADMIN_PASSWORD", "")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("hunter22\n"))
	root.SetArgs([]string{"--config", path, "bootstrap-admin", "--username", "root", "--email", "root@example.com"})
	if err := root.Execute(); err != nil {
		t.Fatalf("bootstrap-admin error = %v", err)
	}
	if !strings.Contains(out.String(), "root@example.com") {
		t.Errorf("output %q missing email", out.String())
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	s, err := server.OpenStore(cfg.Database)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	u, err := s.GetUserByEmail(context.Background(), "root@example.com")
	if err != nil {
		t.Fatalf("admin not stored: %v", err)
	}
	if u.Role != store.RoleAdmin || u.FullName != "root" {
		t.Errorf("user = %+v", u)
	}
}

func TestBootstrapAdminCommand_NoPassword(t *testing.T) {
	path := writeTestConfig(t)
	t.Cleanup(func() { configFlag = "" })
	t.Setenv("TRELLIS_ADMIN_PASSWORD", "")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetIn(strings.NewReader(""))
	root.SetArgs([]string{"--config", path, "bootstrap-admin", "-u", "root", "-e", "root@example.com"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "password required") {
		t.Errorf("error = %v, want password required", err)
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "trellis dev" {
		t.Errorf("version output = %q", out.String())
	}
}
