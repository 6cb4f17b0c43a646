package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Session.FrameTimeoutMs != 15000 {
		t.Fatalf("frame_timeout_ms = %d", cfg.Session.FrameTimeoutMs)
	}
	if cfg.Session.ToolTimeoutMs != 8000 {
		t.Fatalf("tool_timeout_ms = %d", cfg.Session.ToolTimeoutMs)
	}
	if cfg.Session.ToolRetries != 1 || cfg.Session.RepairRetries != 1 {
		t.Fatalf("retries = %d/%d", cfg.Session.ToolRetries, cfg.Session.RepairRetries)
	}
	if cfg.Session.Temperature != 0.2 || cfg.Session.Seed != 42 || cfg.Session.MaxTokens != 384 {
		t.Fatalf("sampling defaults = %+v", cfg.Session)
	}
	if cfg.Session.MaxQueuedChunks != 128 {
		t.Fatalf("max_queued_chunks = %d", cfg.Session.MaxQueuedChunks)
	}
	if cfg.Provider.Type != "scripted" {
		t.Fatalf("provider type = %s", cfg.Provider.Type)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("FRAME_TIMEOUT_MS", "500")
	t.Setenv("MODEL_ID", "gpt-test")
	t.Setenv("PROVIDER_TYPE", "openai")
	t.Setenv("PROVIDER_BASE_URL", "http://localhost:9999/v1")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.FrameTimeoutMs != 500 {
		t.Fatalf("frame_timeout_ms = %d", cfg.Session.FrameTimeoutMs)
	}
	if cfg.Provider.Model != "gpt-test" || cfg.Provider.BaseURL != "http://localhost:9999/v1" {
		t.Fatalf("provider = %+v", cfg.Provider)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := "session:\n  tool_retries: 3\nlog:\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.ToolRetries != 3 {
		t.Fatalf("tool_retries = %d", cfg.Session.ToolRetries)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %s", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("FRAME_TIMEOUT_MS", "0")
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestLoadRequiresBaseURLForOpenAI(t *testing.T) {
	t.Setenv("PROVIDER_TYPE", "openai")
	t.Setenv("PROVIDER_BASE_URL", "")
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestToSessionConfig(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sc := cfg.ToSessionConfig()
	if sc.FrameTimeout != 15*time.Second || sc.ToolTimeout != 8*time.Second {
		t.Fatalf("durations = %v/%v", sc.FrameTimeout, sc.ToolTimeout)
	}
	if sc.Model != cfg.Provider.Model {
		t.Fatalf("model = %s", sc.Model)
	}
}

func TestWatchFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("log:\n  level: info\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	changed := make(chan struct{}, 1)
	stop, err := Watch(file, zap.NewNop(), func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	if err := os.WriteFile(file, []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not fire")
	}
}
