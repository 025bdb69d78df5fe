package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPathMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	content := "client:\n  serverUrl: https://registry.example\n  refreshInterval: 30s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg := LoadFromPath(path)
	if cfg.ServerURL != "https://registry.example" {
		t.Fatalf("unexpected server url: %q", cfg.ServerURL)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Fatalf("unexpected refresh interval: %v", cfg.RefreshInterval)
	}
	if cfg.HTTPTimeout != DefaultConfig().HTTPTimeout {
		t.Fatal("unset fields must keep defaults")
	}
}

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	cfg := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if cfg.ServerURL != DefaultConfig().ServerURL {
		t.Fatalf("missing file must fall back to defaults, got %q", cfg.ServerURL)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(path, []byte("client:\n  serverUrl: https://from-file\n"), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	t.Setenv("MATCHLOBBY_SERVER_URL", "https://from-env")
	t.Setenv("MATCHLOBBY_REFRESH_INTERVAL", "2s")

	cfg := LoadFromPath(path)
	if cfg.ServerURL != "https://from-env" {
		t.Fatalf("env override lost: %q", cfg.ServerURL)
	}
	if cfg.RefreshInterval != 2*time.Second {
		t.Fatalf("env refresh interval lost: %v", cfg.RefreshInterval)
	}
}

func TestEndpointResolveAndRuntimeChange(t *testing.T) {
	ep := NewEndpoint("http://localhost:3536/")
	if got := ep.Resolve("/auth/challenge"); got != "http://localhost:3536/auth/challenge" {
		t.Fatalf("unexpected resolve: %q", got)
	}
	if got := ep.Resolve("lobbies"); got != "http://localhost:3536/lobbies" {
		t.Fatalf("unexpected resolve without slash: %q", got)
	}
	ep.SetBaseURL("https://registry.example")
	if got := ep.Resolve("/lobbies"); got != "https://registry.example/lobbies" {
		t.Fatalf("base url change must apply immediately: %q", got)
	}
}
