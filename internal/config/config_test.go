package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1ureka/blockwire/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Listen != ":2247" {
		t.Errorf("Listen: got %q", cfg.Server.Listen)
	}
	if cfg.Server.StaleTimeout != 30*time.Second || cfg.Server.Cooldown != 5*time.Second {
		t.Errorf("timeouts: got %s / %s", cfg.Server.StaleTimeout, cfg.Server.Cooldown)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  listen: "127.0.0.1:4000"
  max_players: 2
  stale_timeout: 45s
  auto_start: true
client:
  name: Alice
log:
  debug: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Listen != "127.0.0.1:4000" || cfg.Server.MaxPlayers != 2 {
		t.Errorf("server: got %+v", cfg.Server)
	}
	if cfg.Server.StaleTimeout != 45*time.Second {
		t.Errorf("stale_timeout: got %s", cfg.Server.StaleTimeout)
	}
	if !cfg.Server.AutoStart {
		t.Error("auto_start: got false")
	}
	if cfg.Server.Cooldown != 5*time.Second {
		t.Errorf("cooldown default lost: got %s", cfg.Server.Cooldown)
	}
	if cfg.Client.Name != "Alice" || !cfg.Log.Debug {
		t.Errorf("client/log: got %+v %+v", cfg.Client, cfg.Log)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "server: [", "parse"},
		{"zero players", "server:\n  max_players: 0\n", "max_players"},
		{"bad tick rate", "client:\n  tick_rate: 5000\n", "tick_rate"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := config.Default()
	cfg.Client.Name = "Bob"
	cfg.Server.HTTPListen = ":8080"

	if err := config.Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *got != *cfg {
		t.Fatalf("got %+v, want %+v", got, cfg)
	}
}

func TestTickInterval(t *testing.T) {
	if got := config.TickInterval(50); got != 20*time.Millisecond {
		t.Fatalf("got %s", got)
	}
}
