package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"database": {"path": "workflows.db"},
		"webhook": {"secret": "hunter2"},
		"backend": {"host": "127.0.0.1", "port": 8000},
		"frontend": {"host": "0.0.0.0", "port": 8001}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Path != "workflows.db" {
		t.Fatalf("unexpected database path: %s", cfg.Database.Path)
	}
	if cfg.Webhook.Secret != "hunter2" {
		t.Fatalf("unexpected webhook secret: %s", cfg.Webhook.Secret)
	}
	if cfg.Backend.Addr() != "127.0.0.1:8000" {
		t.Fatalf("unexpected backend addr: %s", cfg.Backend.Addr())
	}
	if cfg.Frontend.Addr() != "0.0.0.0:8001" {
		t.Fatalf("unexpected frontend addr: %s", cfg.Frontend.Addr())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"database": `)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestLoadMissingDatabasePath(t *testing.T) {
	path := writeConfig(t, `{
		"backend": {"port": 8000},
		"frontend": {"port": 8001}
	}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation to reject a missing database path")
	}
}

func TestLoadMissingPorts(t *testing.T) {
	path := writeConfig(t, `{"database": {"path": "workflows.db"}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation to reject missing ports")
	}
}
