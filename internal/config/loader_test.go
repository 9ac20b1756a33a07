package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Store.Driver != DriverMemory || !cfg.Store.Seed {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Daily.Cutoff.Hour != 16 || cfg.Daily.Cutoff.Minute != 0 {
		t.Fatalf("unexpected cutoff: %+v", cfg.Daily.Cutoff)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  addr: ":9090"
store:
  driver: sqlite
daily:
  cutoff: "17:30"
  timezone: "UTC"
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CLIENTOPS_SERVER_ADDR", ":7070")
	t.Setenv("CLIENTOPS_SERVER_CORS_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("expected env override, got %q", cfg.Server.Addr)
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.Store.Driver)
	}
	if cfg.Daily.Cutoff.String() != "17:30" || cfg.Daily.Location != time.UTC {
		t.Fatalf("unexpected daily config: %+v", cfg.Daily)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.example" {
		t.Fatalf("unexpected cors origins: %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"CLIENTOPS_DAILY_CUTOFF":   "25:00",
		"CLIENTOPS_DAILY_TIMEZONE": "Mars/Olympus",
		"CLIENTOPS_STORE_DRIVER":   "mysql",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(t.TempDir()); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}
