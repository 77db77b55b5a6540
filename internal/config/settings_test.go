package config

import (
	"path/filepath"
	"testing"

	"drop-desktop/internal/database"
)

func setupConfig(t *testing.T) *ConfigManager {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "drop.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewConfigManager(db)
}

func TestMaxDownloadThreadsDefault(t *testing.T) {
	cfg := setupConfig(t)
	if got := cfg.MaxDownloadThreads(); got != defaultMaxDownloadThreads {
		t.Errorf("expected default %d, got %d", defaultMaxDownloadThreads, got)
	}
}

func TestMaxDownloadThreadsRoundTrip(t *testing.T) {
	cfg := setupConfig(t)
	if err := cfg.SetMaxDownloadThreads(8); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if got := cfg.MaxDownloadThreads(); got != 8 {
		t.Errorf("expected 8, got %d", got)
	}

	// Nonsense values clamp to at least one worker
	if err := cfg.SetMaxDownloadThreads(-3); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if got := cfg.MaxDownloadThreads(); got != 1 {
		t.Errorf("expected clamp to 1, got %d", got)
	}
}

func TestBooleanSettings(t *testing.T) {
	cfg := setupConfig(t)

	if cfg.Autostart() {
		t.Error("autostart should default off")
	}
	if err := cfg.SetAutostart(true); err != nil {
		t.Fatal(err)
	}
	if !cfg.Autostart() {
		t.Error("autostart not persisted")
	}

	if cfg.ForceOffline() {
		t.Error("force offline should default off")
	}
	if err := cfg.SetForceOffline(true); err != nil {
		t.Fatal(err)
	}
	if !cfg.ForceOffline() {
		t.Error("force offline not persisted")
	}
}

func TestDownloadRateLimit(t *testing.T) {
	cfg := setupConfig(t)

	if got := cfg.DownloadRateLimit(); got != 0 {
		t.Errorf("expected unlimited by default, got %d", got)
	}
	if err := cfg.SetDownloadRateLimit(1 << 20); err != nil {
		t.Fatal(err)
	}
	if got := cfg.DownloadRateLimit(); got != 1<<20 {
		t.Errorf("expected 1MiB/s, got %d", got)
	}
}

func TestControlToken(t *testing.T) {
	cfg := setupConfig(t)
	if cfg.ControlToken() != "" {
		t.Error("expected empty token before generation")
	}
	if err := cfg.SetControlToken("tok-1"); err != nil {
		t.Fatal(err)
	}
	if cfg.ControlToken() != "tok-1" {
		t.Error("token not persisted")
	}
	if cfg.ControlPort() != defaultControlPort {
		t.Errorf("expected default port, got %d", cfg.ControlPort())
	}
}
