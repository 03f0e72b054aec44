package annotation

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestSessionCache(t *testing.T) {
	newCache := func(t *testing.T) *SessionCache {
		t.Helper()
		return NewSessionCache(filepath.Join(t.TempDir(), "session.json"))
	}

	t.Run("load without a stored session returns nil", func(t *testing.T) {
		c := newCache(t)
		cached, err := c.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cached != nil {
			t.Errorf("Load() = %+v, want nil", cached)
		}
	})

	t.Run("save then load round-trips", func(t *testing.T) {
		c := newCache(t)
		in := &CachedSession{
			TotalCount:   5,
			CurrentIndex: 3,
			Batch:        json.RawMessage(`{"images":[]}`),
		}
		if err := c.Save(in); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		out, err := c.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if out == nil || out.TotalCount != 5 || out.CurrentIndex != 3 {
			t.Errorf("Load() = %+v, want saved counters", out)
		}
	})

	t.Run("clear removes the mirror and is idempotent", func(t *testing.T) {
		c := newCache(t)
		if err := c.Save(&CachedSession{TotalCount: 1, CurrentIndex: 1}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := c.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if err := c.Clear(); err != nil {
			t.Fatalf("second Clear() error = %v", err)
		}
		cached, _ := c.Load()
		if cached != nil {
			t.Errorf("Load() after Clear() = %+v, want nil", cached)
		}
	})

	t.Run("server copy wins on reconcile", func(t *testing.T) {
		c := newCache(t)
		if err := c.Save(&CachedSession{TotalCount: 5, CurrentIndex: 2}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		server := &CachedSession{TotalCount: 5, CurrentIndex: 4}
		got, err := c.Reconcile(server)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if got.CurrentIndex != 4 {
			t.Errorf("CurrentIndex = %d, want server value 4", got.CurrentIndex)
		}

		stored, _ := c.Load()
		if stored == nil || stored.CurrentIndex != 4 {
			t.Errorf("stored mirror = %+v, want server copy", stored)
		}
	})

	t.Run("local mirror survives when server has nothing", func(t *testing.T) {
		c := newCache(t)
		if err := c.Save(&CachedSession{TotalCount: 5, CurrentIndex: 2}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := c.Reconcile(nil)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if got == nil || got.CurrentIndex != 2 {
			t.Errorf("Reconcile(nil) = %+v, want local mirror", got)
		}
	})
}
