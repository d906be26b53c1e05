package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rconduit/rconduit/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rconctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadClientConfigOverrides(t *testing.T) {
	testlog.Start(t)

	path := writeConfig(t, `
addr = "play.example.com:27015"
password = "letmein"
response_timeout = "45s"
lenient_auth = true

[tls]
enabled = true
mutual = true
ca_file = "ca.pem"
cert_file = "client.pem"
key_file = "client.key"
`)

	cfg, err := loadClientConfig(path)
	if err != nil {
		t.Fatalf("loadClientConfig() error: %v", err)
	}
	if cfg.Addr != "play.example.com:27015" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.Password != "letmein" {
		t.Fatalf("Password = %q", cfg.Password)
	}
	if cfg.Engine.ResponseTimeout != 45*time.Second {
		t.Fatalf("ResponseTimeout = %v", cfg.Engine.ResponseTimeout)
	}
	if !cfg.Engine.AllowMissingAuthEcho {
		t.Fatalf("AllowMissingAuthEcho = false, want true")
	}
	if !cfg.Transport.TLS.Enabled || !cfg.Transport.TLS.Mutual {
		t.Fatalf("TLS = %+v, want enabled mutual", cfg.Transport.TLS)
	}
	if cfg.Transport.TLS.CertFile != "client.pem" || cfg.Transport.TLS.KeyFile != "client.key" {
		t.Fatalf("TLS keypair = %q/%q", cfg.Transport.TLS.CertFile, cfg.Transport.TLS.KeyFile)
	}
}

func TestLoadClientConfigDefaults(t *testing.T) {
	testlog.Start(t)

	path := writeConfig(t, `addr = "127.0.0.1:27015"`)

	cfg, err := loadClientConfig(path)
	if err != nil {
		t.Fatalf("loadClientConfig() error: %v", err)
	}
	if cfg.Engine.ResponseTimeout != 15*time.Second {
		t.Fatalf("ResponseTimeout = %v, want default 15s", cfg.Engine.ResponseTimeout)
	}
	if cfg.Engine.AllowMissingAuthEcho {
		t.Fatalf("AllowMissingAuthEcho = true, want default false")
	}
	if cfg.Transport.TLS.Enabled {
		t.Fatalf("TLS.Enabled = true, want default false")
	}
}

func TestResolveClientConfigFlagBeatsFile(t *testing.T) {
	testlog.Start(t)

	path := writeConfig(t, `
addr = "file.example.com:27015"
password = "from-file"
`)

	flagConfig = path
	flagAddr = "flag.example.com:27016"
	flagPassword = ""
	flagTimeout = 0
	t.Cleanup(func() {
		flagConfig = ""
		flagAddr = ""
	})

	cfg, err := resolveClientConfig(rootCmd)
	if err != nil {
		t.Fatalf("resolveClientConfig() error: %v", err)
	}
	if cfg.Addr != "flag.example.com:27016" {
		t.Fatalf("Addr = %q, want flag value", cfg.Addr)
	}
	if cfg.Password != "from-file" {
		t.Fatalf("Password = %q, want file value", cfg.Password)
	}
}

func TestResolveClientConfigPasswordFromEnv(t *testing.T) {
	testlog.Start(t)

	t.Setenv("RCONDUIT_CONSOLE_PASSWORD", "from-env")
	flagConfig = ""
	flagAddr = "env.example.com:27015"
	flagPassword = ""
	t.Cleanup(func() { flagAddr = "" })

	cfg, err := resolveClientConfig(rootCmd)
	if err != nil {
		t.Fatalf("resolveClientConfig() error: %v", err)
	}
	if cfg.Password != "from-env" {
		t.Fatalf("Password = %q, want env value", cfg.Password)
	}
}
