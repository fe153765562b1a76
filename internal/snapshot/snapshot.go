// Package snapshot caches guest conversations so a visitor who comes
// back within a day can resume where they left off. Entries older than
// the retention window are swept, and the store is capped so an
// unattended kiosk cannot grow it without bound.
//
// Two backends exist: a JSON file per room under the user cache dir,
// and Redis for deployments where several consoles share state.
package snapshot

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/godigitalafrica/gdchat/internal/session"
)

const (
	// DefaultMaxAge is how long a guest conversation survives without
	// activity before the sweeper removes it.
	DefaultMaxAge = 24 * time.Hour

	// DefaultMaxEntries caps how many conversations the store keeps.
	DefaultMaxEntries = 50

	filePrefix = "conv_"
	fileSuffix = ".json"
)

// Conversation is one cached guest conversation.
type Conversation struct {
	RoomID   string            `json:"roomId"`
	Guest    string            `json:"guest,omitempty"`
	Messages []session.Message `json:"messages"`
	SavedAt  time.Time         `json:"savedAt"`
}

// FileStore keeps one JSON file per conversation in a directory.
type FileStore struct {
	dir        string
	maxAge     time.Duration
	maxEntries int
	now        func() time.Time
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithMaxAge overrides the retention window.
func WithMaxAge(d time.Duration) FileOption {
	return func(s *FileStore) { s.maxAge = d }
}

// WithMaxEntries overrides the entry cap.
func WithMaxEntries(n int) FileOption {
	return func(s *FileStore) { s.maxEntries = n }
}

// WithNow overrides the time source, for tests.
func WithNow(now func() time.Time) FileOption {
	return func(s *FileStore) { s.now = now }
}

// NewFileStore creates a file-backed store in dir.
func NewFileStore(dir string, opts ...FileOption) *FileStore {
	s := &FileStore{
		dir:        dir,
		maxAge:     DefaultMaxAge,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultDir returns the platform cache directory for snapshots,
// "$XDG_CACHE_HOME/gdchat/conversations" or equivalent.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "gdchat", "conversations"), nil
}

// Save stores a conversation, stamping SavedAt, and enforces the entry
// cap by dropping the oldest conversations.
func (s *FileStore) Save(conv Conversation) error {
	if strings.TrimSpace(conv.RoomID) == "" {
		return errors.New("snapshot: empty room id")
	}
	conv.SavedAt = s.now()

	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	path := s.pathFor(conv.RoomID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.enforceCap()
	return nil
}

// Load returns the cached conversation for a room. The second return
// is false on miss or when the entry has aged out.
func (s *FileStore) Load(roomID string) (Conversation, bool) {
	data, err := os.ReadFile(s.pathFor(roomID))
	if err != nil {
		return Conversation{}, false
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return Conversation{}, false
	}
	if s.now().Sub(conv.SavedAt) > s.maxAge {
		return Conversation{}, false
	}
	return conv, true
}

// Delete removes one conversation.
func (s *FileStore) Delete(roomID string) {
	_ = os.Remove(s.pathFor(roomID))
}

// Sweep removes conversations older than the retention window and
// reports how many were removed.
func (s *FileStore) Sweep() (int, error) {
	convs, err := s.list()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	cutoff := s.now().Add(-s.maxAge)
	for _, c := range convs {
		if c.conv.SavedAt.Before(cutoff) {
			_ = os.Remove(c.path)
			removed++
		}
	}
	return removed, nil
}

// List returns all live conversations, newest first.
func (s *FileStore) List() ([]Conversation, error) {
	convs, err := s.list()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	cutoff := s.now().Add(-s.maxAge)
	var out []Conversation
	for _, c := range convs {
		if !c.conv.SavedAt.Before(cutoff) {
			out = append(out, c.conv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SavedAt.After(out[j].SavedAt)
	})
	return out, nil
}

// Clear removes every snapshot file in the directory. Only files
// matching the snapshot filename scheme are touched.
func (s *FileStore) Clear() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		_ = os.Remove(filepath.Join(s.dir, name))
	}
}

type fileConv struct {
	path string
	conv Conversation
}

func (s *FileStore) list() ([]fileConv, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []fileConv
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var conv Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			// Unreadable snapshots are junk; drop them.
			_ = os.Remove(path)
			continue
		}
		out = append(out, fileConv{path: path, conv: conv})
	}
	return out, nil
}

func (s *FileStore) enforceCap() {
	if s.maxEntries <= 0 {
		return
	}
	convs, err := s.list()
	if err != nil || len(convs) <= s.maxEntries {
		return
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].conv.SavedAt.Before(convs[j].conv.SavedAt)
	})
	for _, c := range convs[:len(convs)-s.maxEntries] {
		_ = os.Remove(c.path)
	}
}

func (s *FileStore) pathFor(roomID string) string {
	hash := sha1.Sum([]byte(roomID))
	suffix := hex.EncodeToString(hash[:6])
	return filepath.Join(s.dir, filePrefix+sanitizeKey(roomID)+"_"+suffix+fileSuffix)
}

func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "room"
	}
	key = strings.ReplaceAll(key, "/", "-")
	key = strings.ReplaceAll(key, "\\", "-")
	key = strings.ReplaceAll(key, ":", "-")
	return key
}
