// Package prefs persists user preferences as a JSON file under the
// user config directory. Unlike credentials these are not secret, so
// they live on disk rather than in the keyring.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/godigitalafrica/gdchat/internal/notify"
)

const (
	appDirName = "gdchat"
	fileName   = "prefs.json"

	envPrefsDir             = "GDCHAT_PREFS_DIR"
	envNotificationsEnabled = "GDCHAT_NOTIFICATIONS_ENABLED"
	envNotificationSound    = "GDCHAT_NOTIFICATION_SOUND"
	envNotificationVolume   = "GDCHAT_NOTIFICATION_VOLUME"
)

// Preferences is the full persisted preference set.
type Preferences struct {
	Notifications notify.Preferences `json:"notifications"`
}

// Defaults returns the preference set used before anything is saved.
func Defaults() Preferences {
	return Preferences{Notifications: notify.DefaultPreferences()}
}

// Store reads and writes the preferences file. Reads fall back to
// defaults when the file is missing or unreadable, so a corrupt prefs
// file never breaks the CLI.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store backed by an explicit file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore creates a store at the standard location,
// "$XDG_CONFIG_HOME/gdchat/prefs.json" or equivalent.
// GDCHAT_PREFS_DIR overrides the directory.
func DefaultStore() (*Store, error) {
	if dir := strings.TrimSpace(os.Getenv(envPrefsDir)); dir != "" {
		return NewStore(filepath.Join(dir, fileName)), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locate config dir: %w", err)
	}
	return NewStore(filepath.Join(base, appDirName, fileName)), nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads preferences from disk, applying environment overrides.
// A missing file yields defaults, not an error.
func (s *Store) Load() (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Defaults()
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// first run
	case err != nil:
		return p, fmt.Errorf("read preferences: %w", err)
	default:
		if err := json.Unmarshal(data, &p); err != nil {
			return Defaults(), fmt.Errorf("parse preferences: %w", err)
		}
	}
	applyEnvOverrides(&p)
	return p, nil
}

// Save writes preferences to disk. The write is temp-then-rename so a
// crash mid-write never leaves a truncated file.
func (s *Store) Save(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

// Update loads, applies fn, and saves. Unknown fields in the file are
// dropped on rewrite.
func (s *Store) Update(fn func(*Preferences)) (Preferences, error) {
	p, err := s.Load()
	if err != nil {
		return p, err
	}
	fn(&p)
	if err := s.Save(p); err != nil {
		return p, err
	}
	return p, nil
}

// NotificationPrefs implements notify.PreferencesSource. Errors fall
// back to defaults so notification dispatch never fails on a bad file.
func (s *Store) NotificationPrefs() notify.Preferences {
	p, err := s.Load()
	if err != nil {
		return notify.DefaultPreferences()
	}
	return p.Notifications
}

func applyEnvOverrides(p *Preferences) {
	if v := strings.TrimSpace(os.Getenv(envNotificationsEnabled)); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			p.Notifications.Enabled = enabled
		}
	}
	if v := strings.TrimSpace(os.Getenv(envNotificationSound)); v != "" {
		p.Notifications.Sound = v
	}
	if v := strings.TrimSpace(os.Getenv(envNotificationVolume)); v != "" {
		if vol, err := strconv.ParseFloat(v, 64); err == nil && vol >= 0 && vol <= 1 {
			p.Notifications.Volume = vol
		}
	}
}
