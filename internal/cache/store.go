package cache

import (
	"context"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/skyyyyy916/my-cyber-dashboard/internal/engine"
)

// Key returns the content identity of raw file bytes.
func Key(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// entry is a parsed table. The table and info never change after insertion;
// only the access time moves.
type entry struct {
	table   *engine.Table
	info    engine.LoadInfo
	lastHit atomic.Int64
}

// Store memoizes parsed tables by content key.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewStore creates an empty cache.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
	}
}

// Get returns the table stored under key.
func (s *Store) Get(key string) (*engine.Table, engine.LoadInfo, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, engine.LoadInfo{}, false
	}
	e.lastHit.Store(time.Now().UnixNano())
	return e.table, e.info, true
}

// Put stores a parsed table. An existing entry for key is kept as is, so a
// table handed out by Get is never replaced underneath its readers.
func (s *Store) Put(key string, t *engine.Table, info engine.LoadInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		return
	}
	now := time.Now().UnixNano()
	e := &entry{table: t, info: info}
	e.lastHit.Store(now)
	s.entries[key] = e
}

// Len returns the number of cached tables.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// PruneIdle removes entries that have not been read for the given duration.
func (s *Store) PruneIdle(timeout time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-timeout).UnixNano()
	count := 0
	for key, e := range s.entries {
		if e.lastHit.Load() < cutoff {
			delete(s.entries, key)
			count++
		}
	}
	return count
}

// StartCleanupLoop prunes idle entries every interval until ctx is done.
func (s *Store) StartCleanupLoop(ctx context.Context, interval, timeout time.Duration, onPrune func(n int)) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.PruneIdle(timeout); n > 0 && onPrune != nil {
					onPrune(n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
