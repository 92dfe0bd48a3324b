package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestGetServerURLPriority(t *testing.T) {
	isolateHome(t)

	if got := GetServerURL(); got != defaultServerURL {
		t.Errorf("default url = %q", got)
	}

	if err := Save(&Config{Sync: SyncConfig{URL: "https://cfg.example"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got := GetServerURL(); got != "https://cfg.example" {
		t.Errorf("config url = %q", got)
	}

	t.Setenv("DAYBOOK_SYNC_URL", "https://env.example")
	if got := GetServerURL(); got != "https://env.example" {
		t.Errorf("env must beat config, got %q", got)
	}
}

func TestAuthRoundTrip(t *testing.T) {
	isolateHome(t)

	if IsAuthenticated() {
		t.Fatal("fresh home must not be authenticated")
	}

	creds := &AuthCredentials{APIKey: "k", UserID: "u1", Email: "a@b.c", DeviceID: "d1"}
	if err := SaveAuth(creds); err != nil {
		t.Fatalf("SaveAuth failed: %v", err)
	}

	if !IsAuthenticated() {
		t.Error("expected authenticated")
	}
	if got := GetAPIKey(); got != "k" {
		t.Errorf("api key = %q", got)
	}
	if got := GetUserID(); got != "u1" {
		t.Errorf("user id = %q", got)
	}

	id, err := GetDeviceID()
	if err != nil || id != "d1" {
		t.Errorf("device id = %q, %v", id, err)
	}

	if err := ClearAuth(); err != nil {
		t.Fatalf("ClearAuth failed: %v", err)
	}
	if IsAuthenticated() {
		t.Error("still authenticated after logout")
	}
	// Clearing twice is fine
	if err := ClearAuth(); err != nil {
		t.Errorf("second ClearAuth: %v", err)
	}
}

func TestSaveWritesAtomically(t *testing.T) {
	isolateHome(t)

	if err := SaveAuth(&AuthCredentials{APIKey: "k", UserID: "u1"}); err != nil {
		t.Fatalf("SaveAuth failed: %v", err)
	}
	if err := Save(&Config{Sync: SyncConfig{URL: "https://cfg.example"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}

	// No temp files may survive a successful save.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "config.json" && e.Name() != "auth.json" {
			t.Errorf("leftover file %q in config dir", e.Name())
		}
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dir, "auth.json"))
		if err != nil {
			t.Fatalf("Stat auth.json failed: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("auth.json perms = %o, want 0600", perm)
		}
	}

	// The renamed file is complete and parseable.
	creds, err := LoadAuth()
	if err != nil || creds == nil || creds.APIKey != "k" {
		t.Fatalf("LoadAuth after atomic save: %+v, %v", creds, err)
	}
}

func TestEnvOverridesAuth(t *testing.T) {
	isolateHome(t)

	t.Setenv("DAYBOOK_AUTH_KEY", "env-key")
	if got := GetAPIKey(); got != "env-key" {
		t.Errorf("api key = %q", got)
	}
}

func TestGetDeviceIDGenerates(t *testing.T) {
	isolateHome(t)

	id, err := GetDeviceID()
	if err != nil {
		t.Fatalf("GetDeviceID failed: %v", err)
	}
	if len(id) != 32 {
		t.Errorf("device id length = %d, want 32 hex chars", len(id))
	}
}

func TestAutoSyncSettings(t *testing.T) {
	isolateHome(t)

	if !GetAutoSyncEnabled() {
		t.Error("auto-sync should default on")
	}
	if got := GetAutoSyncDebounce(); got != 3*time.Second {
		t.Errorf("debounce = %v, want 3s", got)
	}
	if got := GetAutoSyncInterval(); got != 5*time.Minute {
		t.Errorf("interval = %v, want 5m", got)
	}

	t.Setenv("DAYBOOK_SYNC_AUTO", "false")
	if GetAutoSyncEnabled() {
		t.Error("env disable ignored")
	}

	t.Setenv("DAYBOOK_SYNC_AUTO_DEBOUNCE", "250ms")
	if got := GetAutoSyncDebounce(); got != 250*time.Millisecond {
		t.Errorf("debounce = %v", got)
	}

	enabled := false
	if err := Save(&Config{Sync: SyncConfig{Auto: AutoSyncConfig{Enabled: &enabled, Interval: "1m"}}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	t.Setenv("DAYBOOK_SYNC_AUTO", "")
	if GetAutoSyncEnabled() {
		t.Error("config disable ignored")
	}
	if got := GetAutoSyncInterval(); got != time.Minute {
		t.Errorf("interval = %v, want 1m", got)
	}
}

func TestGetDeadLetterCeiling(t *testing.T) {
	isolateHome(t)

	if got := GetDeadLetterCeiling(); got != 0 {
		t.Errorf("default ceiling = %d, want 0 (retry forever)", got)
	}

	t.Setenv("DAYBOOK_SYNC_DEAD_LETTER", "25")
	if got := GetDeadLetterCeiling(); got != 25 {
		t.Errorf("ceiling = %d, want 25", got)
	}
}
