package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Chat.Selectors.Input == "" || cfg.Chat.Selectors.Response == "" {
		t.Error("default selectors must be populated")
	}
}

func TestLoadMissingFileReturnsNotExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Errorf("expected a not-exist error, got %v", err)
	}
}

func TestLoadEmptyPathFails(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("expected an error for an empty config path")
	}
}

func TestLoadSparseFileBackfillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte("chat:\n  target_url: http://example.test:8080\n  selectors:\n    input: 'textarea#prompt'\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Chat.TargetURL != "http://example.test:8080" {
		t.Errorf("target_url = %q, want the file's value", cfg.Chat.TargetURL)
	}
	if cfg.Chat.Selectors.Input != "textarea#prompt" {
		t.Errorf("selectors.input = %q, want the file's value", cfg.Chat.Selectors.Input)
	}

	def := DefaultConfig()
	if cfg.Chat.DebugPort != def.Chat.DebugPort {
		t.Errorf("debug_port = %d, want default %d", cfg.Chat.DebugPort, def.Chat.DebugPort)
	}
	if cfg.Chat.Selectors.Send != def.Chat.Selectors.Send {
		t.Errorf("selectors.send = %q, want default", cfg.Chat.Selectors.Send)
	}
	if cfg.Server.Name != def.Server.Name {
		t.Errorf("server.name = %q, want default", cfg.Server.Name)
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("chat:\n  debug_port: 70000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation to reject an out-of-range debug port")
	}
}

func TestDurationGetters(t *testing.T) {
	var zero ChatConfig
	if got := zero.OperationTimeout(); got != 120*time.Second {
		t.Errorf("zero OperationTimeout = %v, want 120s", got)
	}
	if got := zero.PollInterval(); got != 500*time.Millisecond {
		t.Errorf("zero PollInterval = %v, want 500ms", got)
	}

	cfg := ChatConfig{OperationTimeoutMs: 1500, PollIntervalMs: 25}
	if got := cfg.OperationTimeout(); got != 1500*time.Millisecond {
		t.Errorf("OperationTimeout = %v, want 1.5s", got)
	}
	if got := cfg.PollInterval(); got != 25*time.Millisecond {
		t.Errorf("PollInterval = %v, want 25ms", got)
	}
}
