// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scoring

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
)

// CachedSession is the locally cached view of a match: the last server
// snapshot and roster the session saw. A restarted console renders this while
// the bootstrap refetch is in flight. It is a display fallback, never a source
// of truth, and holds no draft — drafts are not persisted.
type CachedSession struct {
	MatchID   string         `json:"matchId"`
	Phase     string         `json:"phase"`
	Target    int            `json:"target,omitempty"`
	Score     ScoreSnapshot  `json:"score"`
	Players   CurrentPlayers `json:"currentPlayers"`
	Roster    []RosterPlayer `json:"roster"`
	UpdatedAt int64          `json:"updatedAt"`
}

// SessionCache persists CachedSession records, one file per match, encrypted
// at rest when the storage layer has a master key.
type SessionCache struct {
	DataDir string
	storage *storage.Storage
	mu      sync.Map // *sync.Mutex per matchId to protect writes
}

// NewSessionCache creates a cache on top of the given storage.
func NewSessionCache(dataDir string, s *storage.Storage) *SessionCache {
	return &SessionCache{DataDir: dataDir, storage: s}
}

func sessionCacheFile(matchID string) string {
	return filepath.Join("sessions", fmt.Sprintf("%s.json", url.PathEscape(matchID)))
}

// Save writes the cached view atomically.
func (sc *SessionCache) Save(cached *CachedSession) error {
	if sc == nil || sc.storage == nil {
		return nil
	}
	m, _ := sc.mu.LoadOrStore(cached.MatchID, &sync.Mutex{})
	mutex := m.(*sync.Mutex)
	mutex.Lock()
	defer mutex.Unlock()

	cached.UpdatedAt = time.Now().Unix()
	if err := sc.storage.SaveDataFile(sessionCacheFile(cached.MatchID), cached); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	return nil
}

// Load reads the cached view for a match, os.ErrNotExist when absent.
func (sc *SessionCache) Load(matchID string) (*CachedSession, error) {
	if sc == nil || sc.storage == nil {
		return nil, os.ErrNotExist
	}
	var cached CachedSession
	if err := sc.storage.ReadDataFile(sessionCacheFile(matchID), &cached); err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	return &cached, nil
}

// Purge removes the cached view for a match (used once a match completes).
func (sc *SessionCache) Purge(matchID string) error {
	if sc == nil || sc.storage == nil {
		return nil
	}
	m, _ := sc.mu.LoadOrStore(matchID, &sync.Mutex{})
	mutex := m.(*sync.Mutex)
	mutex.Lock()
	defer mutex.Unlock()

	fullPath := filepath.Join(sc.DataDir, sessionCacheFile(matchID))
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil // Already gone
		}
		return fmt.Errorf("could not purge session cache: %w", err)
	}
	return nil
}
