// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  http_addr: "127.0.0.1:9090"
  read_timeout: "5s"
  write_timeout: "10s"

database:
  driver: "postgres"
  dsn: "postgres://trellis@localhost/trellis?sslmode=disable"

auth:
  access_secret: "access-secret-0123456789"
  refresh_secret: "refresh-secret-0123456789"
  admin_key: "bootstrap"
  access_ttl: "30m"
  refresh_ttl: "72h"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:9090" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", cfg.Server.WriteTimeout)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Auth.AdminKey != "bootstrap" {
		t.Errorf("AdminKey = %q", cfg.Auth.AdminKey)
	}
	if cfg.Auth.AccessTTL != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want 30m", cfg.Auth.AccessTTL)
	}
	if cfg.Auth.RefreshTTL != 72*time.Hour {
		t.Errorf("RefreshTTL = %v, want 72h", cfg.Auth.RefreshTTL)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[server]
http_addr = "127.0.0.1:7070"

[database]
driver = "sqlite"
dsn = "/var/lib/trellis/trellis.db"

[auth]
access_secret = "access-secret-0123456789"
refresh_secret = "refresh-secret-0123456789"
access_ttl = "5m"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPAddr != "127.0.0.1:7070" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Database.DSN != "/var/lib/trellis/trellis.db" {
		t.Errorf("DSN = %q", cfg.Database.DSN)
	}
	if cfg.Auth.AccessTTL != 5*time.Minute {
		t.Errorf("AccessTTL = %v, want 5m", cfg.Auth.AccessTTL)
	}
	if cfg.Auth.RefreshTTL != DefaultRefreshTTL {
		t.Errorf("RefreshTTL = %v, want default", cfg.Auth.RefreshTTL)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TRELLIS_TEST_ACCESS", "access-from-env-0123456789")
	t.Setenv("TRELLIS_TEST_REFRESH", "refresh-from-env-0123456789")
	t.Setenv("TRELLIS_TEST_ADMIN_KEY", "env-admin-key")

	path := writeConfig(t, "config.yaml", `
auth:
  access_secret: "${TRELLIS_TEST_ACCESS}"
  refresh_secret: "${TRELLIS_TEST_REFRESH}"
  admin_key: "${TRELLIS_TEST_ADMIN_KEY}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.AccessSecret != "access-from-env-0123456789" {
		t.Errorf("AccessSecret = %q", cfg.Auth.AccessSecret)
	}
	if cfg.Auth.AdminKey != "env-admin-key" {
		t.Errorf("AdminKey = %q", cfg.Auth.AdminKey)
	}
}

func TestExpandEnvVars_UnsetBecomesEmpty(t *testing.T) {
	got := expandEnvVars("key: ${TRELLIS_DEFINITELY_UNSET_VAR}")
	if got != "key: " {
		t.Errorf("expandEnvVars() = %q, want %q", got, "key: ")
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "config.yml", `
auth:
  access_secret: "access-secret-0123456789"
  refresh_secret: "refresh-secret-0123456789"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPAddr != DefaultHTTPAddr {
		t.Errorf("HTTPAddr = %q, want default", cfg.Server.HTTPAddr)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("ReadTimeout = %v, want default", cfg.Server.ReadTimeout)
	}
	if cfg.Database.Driver != DefaultDriver || cfg.Database.DSN != DefaultDSN {
		t.Errorf("Database = %+v, want defaults", cfg.Database)
	}
	if cfg.Auth.AccessTTL != DefaultAccessTTL || cfg.Auth.RefreshTTL != DefaultRefreshTTL {
		t.Errorf("TTLs = %v/%v, want defaults", cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text", cfg.Logging)
	}
}

func TestLoad_Errors(t *testing.T) {
	secrets := `
auth:
  access_secret: "access-secret-0123456789"
  refresh_secret: "refresh-secret-0123456789"
`
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			file:    "config.yaml",
			content: "server: [unclosed",
			wantErr: "parsing config file",
		},
		{
			name:    "invalid toml",
			file:    "config.toml",
			content: "[server\nhttp_addr = 1",
			wantErr: "parsing config file",
		},
		{
			name:    "bad duration",
			file:    "config.yaml",
			content: secrets + "  access_ttl: \"soon\"\n",
			wantErr: "auth.access_ttl",
		},
		{
			name:    "short secret",
			file:    "config.yaml",
			content: "auth:\n  access_secret: short\n  refresh_secret: refresh-secret-0123456789\n",
			wantErr: "auth.access_secret",
		},
		{
			name:    "same secrets",
			file:    "config.yaml",
			content: "auth:\n  access_secret: same-secret-0123456789\n  refresh_secret: same-secret-0123456789\n",
			wantErr: "must differ",
		},
		{
			name:    "unknown driver",
			file:    "config.yaml",
			content: secrets + "database:\n  driver: mysql\n",
			wantErr: "database.driver",
		},
		{
			name:    "postgres without dsn",
			file:    "config.yaml",
			content: secrets + "database:\n  driver: postgres\n",
			wantErr: "database.dsn",
		},
		{
			name:    "bad log level",
			file:    "config.yaml",
			content: secrets + "logging:\n  level: loud\n",
			wantErr: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("Load() error = %v, want reading config file", err)
	}
}
