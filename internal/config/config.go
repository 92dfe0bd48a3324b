// Package config reads daybook settings from ~/.config/daybook. Every getter
// applies the same priority: DAYBOOK_* environment variable, then
// config.json, then a built-in default. Credentials live in a separate
// auth.json with tighter permissions.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AutoSyncConfig holds background sync settings.
type AutoSyncConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`  // nil = default true
	OnStart  *bool  `json:"on_start,omitempty"` // nil = default true
	Debounce string `json:"debounce,omitempty"` // duration string, default "3s"
	Interval string `json:"interval,omitempty"` // duration string, default "5m"
}

// SyncConfig holds backend sync settings.
type SyncConfig struct {
	URL               string         `json:"url"`
	Enabled           bool           `json:"enabled"`
	DeadLetterCeiling *int           `json:"dead_letter_ceiling,omitempty"` // nil or 0 = retry forever
	Auto              AutoSyncConfig `json:"auto"`
}

// Config is the global config stored at ~/.config/daybook/config.json.
type Config struct {
	Sync SyncConfig `json:"sync"`
}

// AuthCredentials stores authentication state at ~/.config/daybook/auth.json.
type AuthCredentials struct {
	APIKey    string `json:"api_key"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ServerURL string `json:"server_url"`
	DeviceID  string `json:"device_id"`
}

const defaultServerURL = "http://localhost:8080"

// Dir returns ~/.config/daybook, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "daybook")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load reads the global config from config.json. A missing file is a zero
// config, not an error.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the global config to config.json.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, "config.json"), data, 0644)
}

// writeFileAtomic writes data to a temp file in the target's directory and
// renames it into place, so a crash mid-write never leaves a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// LoadAuth reads credentials from auth.json. Returns nil when the file does
// not exist.
func LoadAuth() (*AuthCredentials, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "auth.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds AuthCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// SaveAuth writes credentials to auth.json (0600 perms).
func SaveAuth(creds *AuthCredentials) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, "auth.json"), data, 0600)
}

// ClearAuth removes auth.json.
func ClearAuth() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, "auth.json"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// GetServerURL returns the backend URL.
// Priority: DAYBOOK_SYNC_URL env > config.json > default.
func GetServerURL() string {
	if v := os.Getenv("DAYBOOK_SYNC_URL"); v != "" {
		return v
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.URL != "" {
		return cfg.Sync.URL
	}
	return defaultServerURL
}

// GetAPIKey returns the API key.
// Priority: DAYBOOK_AUTH_KEY env > auth.json.
func GetAPIKey() string {
	if v := os.Getenv("DAYBOOK_AUTH_KEY"); v != "" {
		return v
	}
	creds, err := LoadAuth()
	if err == nil && creds != nil {
		return creds.APIKey
	}
	return ""
}

// GetUserID returns the signed-in user ID.
// Priority: DAYBOOK_USER_ID env > auth.json.
func GetUserID() string {
	if v := os.Getenv("DAYBOOK_USER_ID"); v != "" {
		return v
	}
	creds, err := LoadAuth()
	if err == nil && creds != nil {
		return creds.UserID
	}
	return ""
}

// IsAuthenticated returns true if an API key is available.
func IsAuthenticated() bool {
	return GetAPIKey() != ""
}

// GetDeviceID returns the device ID from auth.json, generating one if needed.
func GetDeviceID() (string, error) {
	creds, err := LoadAuth()
	if err != nil {
		return "", err
	}
	if creds != nil && creds.DeviceID != "" {
		return creds.DeviceID, nil
	}
	return GenerateDeviceID()
}

// GenerateDeviceID creates a new random device ID (16 bytes hex).
func GenerateDeviceID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetDeadLetterCeiling returns the retry count at which a queue entry is
// parked for manual revival.
// Priority: DAYBOOK_SYNC_DEAD_LETTER env > config.json > 0 (retry forever).
func GetDeadLetterCeiling() int {
	if v := os.Getenv("DAYBOOK_SYNC_DEAD_LETTER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.DeadLetterCeiling != nil && *cfg.Sync.DeadLetterCeiling >= 0 {
		return *cfg.Sync.DeadLetterCeiling
	}
	return 0
}

// parseBoolEnv returns nil if env not set, pointer to bool if set.
func parseBoolEnv(envKey string) *bool {
	v := strings.ToLower(os.Getenv(envKey))
	switch v {
	case "1", "true":
		b := true
		return &b
	case "0", "false":
		b := false
		return &b
	}
	return nil
}

// GetAutoSyncEnabled returns whether background sync is enabled.
// Priority: DAYBOOK_SYNC_AUTO env > config.json sync.auto.enabled > true.
func GetAutoSyncEnabled() bool {
	if v := parseBoolEnv("DAYBOOK_SYNC_AUTO"); v != nil {
		return *v
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.Auto.Enabled != nil {
		return *cfg.Sync.Auto.Enabled
	}
	return true
}

// GetAutoSyncOnStart returns whether to sync on startup.
// Priority: DAYBOOK_SYNC_AUTO_START env > config.json sync.auto.on_start > true.
func GetAutoSyncOnStart() bool {
	if v := parseBoolEnv("DAYBOOK_SYNC_AUTO_START"); v != nil {
		return *v
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.Auto.OnStart != nil {
		return *cfg.Sync.Auto.OnStart
	}
	return true
}

// GetAutoSyncDebounce returns the quiet window after a mutation before the
// background push fires.
// Priority: DAYBOOK_SYNC_AUTO_DEBOUNCE env > config.json > 3s.
func GetAutoSyncDebounce() time.Duration {
	if v := os.Getenv("DAYBOOK_SYNC_AUTO_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.Auto.Debounce != "" {
		if d, err := time.ParseDuration(cfg.Sync.Auto.Debounce); err == nil {
			return d
		}
	}
	return 3 * time.Second
}

// GetAutoSyncInterval returns the periodic sync interval.
// Priority: DAYBOOK_SYNC_AUTO_INTERVAL env > config.json > 5m.
func GetAutoSyncInterval() time.Duration {
	if v := os.Getenv("DAYBOOK_SYNC_AUTO_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.Auto.Interval != "" {
		if d, err := time.ParseDuration(cfg.Sync.Auto.Interval); err == nil {
			return d
		}
	}
	return 5 * time.Minute
}
