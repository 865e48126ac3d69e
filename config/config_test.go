package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// nothingFS finds no config or env files, forcing pure defaults.
type nothingFS struct{}

func (nothingFS) Exists(string) bool   { return false }
func (nothingFS) LoadEnv(string) error { return nil }

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(WithFileSystem(nothingFS{}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "scribe" {
		t.Errorf("Name = %q, want scribe", cfg.Name)
	}
	if cfg.Environment != "development" || !cfg.Debug {
		t.Errorf("Environment/Debug = %q/%v, want development/true", cfg.Environment, cfg.Debug)
	}
	if cfg.Server.Port != 8386 {
		t.Errorf("Server.Port = %d, want 8386", cfg.Server.Port)
	}
	if cfg.Segmenter.SegmentSeconds != 900 {
		t.Errorf("Segmenter.SegmentSeconds = %d, want 900", cfg.Segmenter.SegmentSeconds)
	}
	if cfg.Worker.MaxRetries != 5 {
		t.Errorf("Worker.MaxRetries = %d, want 5", cfg.Worker.MaxRetries)
	}
	if cfg.Reconciler.Interval != time.Minute || cfg.Reconciler.MaxCycles != 30 {
		t.Errorf("Reconciler = %+v, want 1m interval and 30 cycles", cfg.Reconciler)
	}
	if cfg.Queue.Capacity != 200 {
		t.Errorf("Queue.Capacity = %d, want 200", cfg.Queue.Capacity)
	}
	if cfg.Observability.Enabled() {
		t.Error("Observability should be disabled without an endpoint")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := `
environment: production
server:
  port: 9090
store:
  data_dir: /var/lib/scribe
worker:
  workers: 2
  language: en
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(WithFileSystem(nothingFS{}), WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "production" {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
	if cfg.Debug {
		t.Error("Debug should stay false outside development")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Store.DataDir != "/var/lib/scribe" {
		t.Errorf("Store.DataDir = %q, want /var/lib/scribe", cfg.Store.DataDir)
	}
	if cfg.Worker.Workers != 2 || cfg.Worker.Language != "en" {
		t.Errorf("Worker = %+v, want 2 workers and language en", cfg.Worker)
	}
	// Unset sections still get defaults.
	if cfg.Whisper.Model != "medium" {
		t.Errorf("Whisper.Model = %q, want medium", cfg.Whisper.Model)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SCRIBE_SERVER_PORT", "7070")
	t.Setenv("SCRIBE_WHISPER_MODEL", "large-v3")

	cfg, err := Load(WithFileSystem(nothingFS{}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Whisper.Model != "large-v3" {
		t.Errorf("Whisper.Model = %q, want large-v3", cfg.Whisper.Model)
	}
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("environment: weird\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(WithFileSystem(nothingFS{}), WithConfigFile(path)); err == nil {
		t.Fatal("expected validation error for unknown environment")
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("SERVER_MAX_BODY_SIZE")
	want := []string{
		"server_max_body_size",
		"server.max.body.size",
		"server.max_body_size",
		"server.max.body_size",
		"server.max.body.size",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("envKeyVariants = %v, want %v", got, want)
	}
	if got := envKeyVariants("DEBUG"); !reflect.DeepEqual(got, []string{"debug"}) {
		t.Errorf("single part = %v", got)
	}
}
