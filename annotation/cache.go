package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CachedSession is the locally mirrored working batch: the last fetch
// payload plus the progress counters. It exists purely so an interrupted
// client can resume offline; on any conflict the server copy wins.
type CachedSession struct {
	TotalCount   int             `json:"totalCount"`
	CurrentIndex int             `json:"currentIndex"`
	Batch        json.RawMessage `json:"batch"`
}

// SessionCache persists one CachedSession as a JSON file.
type SessionCache struct {
	path string
}

// NewSessionCache builds a cache rooted at path.
func NewSessionCache(path string) *SessionCache {
	return &SessionCache{path: path}
}

// Load reads the cached session, returning nil if none is stored.
func (c *SessionCache) Load() (*CachedSession, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while reading session cache: %w", err)
	}
	var cached CachedSession
	if err := json.Unmarshal(data, &cached); err != nil {
		// A torn write is not worth failing resume over; drop the mirror
		// and let the server copy repopulate it.
		return nil, nil
	}
	if cached.TotalCount <= 0 || cached.CurrentIndex <= 0 {
		return nil, nil
	}
	return &cached, nil
}

// Save writes the cached session atomically.
func (c *SessionCache) Save(cached *CachedSession) error {
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("while encoding session cache: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("while creating session cache dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("while writing session cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}

// Clear removes the cached session.
func (c *SessionCache) Clear() error {
	err := os.Remove(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Reconcile applies the single source-of-truth rule: whenever the server
// reports a session, its copy replaces the local mirror; the local copy is
// only used when the server has nothing.
func (c *SessionCache) Reconcile(server *CachedSession) (*CachedSession, error) {
	if server != nil {
		if err := c.Save(server); err != nil {
			return nil, err
		}
		return server, nil
	}
	return c.Load()
}
