package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "9000")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.NATSURL == "" {
		t.Fatal("expected a default NATS URL")
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: \"7777\"\nnats_url: nats://broker:4222\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, "9000")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7777" || cfg.NATSURL != "nats://broker:4222" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: \"7777\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "8888")

	cfg, err := Load(path, "9000")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8888" {
		t.Fatalf("environment must win, got %q", cfg.Port)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path, "9000"); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}
