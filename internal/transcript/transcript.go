package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"omnichat/internal/session"
)

// Store persists session records as JSON files under the user data dir.
type Store struct {
	dir string
}

// NewStore opens a store rooted at dir; empty dir uses the default
// location under the user's home.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".local", "share", "omnichat", "sessions")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the record under its session ID.
func (s *Store) Save(record session.Record) error {
	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	path := filepath.Join(s.dir, record.SessionID+".json")
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// Load reads a record by session ID.
func (s *Store) Load(id string) (session.Record, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return session.Record{}, fmt.Errorf("read transcript: %w", err)
	}
	var record session.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return session.Record{}, fmt.Errorf("decode transcript: %w", err)
	}
	return record, nil
}

// List returns up to limit session IDs, most recent first by mtime.
func (s *Store) List(limit int) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	type item struct {
		id    string
		mtime int64
	}
	var items []item
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, item{id: entry.Name()[:len(entry.Name())-len(".json")], mtime: info.ModTime().UnixNano()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].mtime > items[j].mtime })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.id)
	}
	return ids, nil
}
