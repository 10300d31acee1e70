// Package dedupe guarantees at-most-one notification per drive. It keeps
// an in-process "seen this run" set used to debounce transient drive data,
// and a persisted notified map that survives restarts inside a freshness
// window.
package dedupe

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Store tracks seen and notified drives. Safe for use from a single
// writer; reads may come from anywhere.
type Store struct {
	mu        sync.Mutex
	path      string
	freshness time.Duration

	seen     map[string]map[string]bool
	notified map[string][]string
}

// Open loads the notified map from path. A file older than the freshness
// window is discarded and replaced with an empty map, so stale state from
// a previous week can never suppress notifications.
func Open(path string, freshness time.Duration) (*Store, error) {
	s := &Store{
		path:      path,
		freshness: freshness,
		seen:      make(map[string]map[string]bool),
		notified:  make(map[string][]string),
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && time.Since(info.ModTime()) < freshness:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrap(err, "dedupe: read notified map")
		}
		if err := json.Unmarshal(data, &s.notified); err != nil {
			return nil, eris.Wrap(err, "dedupe: decode notified map")
		}
	case err == nil:
		zap.L().Info("dedupe: notified map is stale, resetting",
			zap.String("path", path),
			zap.Time("mod_time", info.ModTime()),
		)
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
	default:
		return nil, eris.Wrap(err, "dedupe: stat notified map")
	}

	return s, nil
}

// Observed records a drive sighting and reports whether the drive had
// already been seen this run. The first sighting returns false: callers
// must observe a drive on two consecutive cycles before acting on it,
// which debounces partially-populated drive data.
func (s *Store) Observed(gameID, driveID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	drives := s.seen[gameID]
	if drives == nil {
		drives = make(map[string]bool)
		s.seen[gameID] = drives
	}
	if drives[driveID] {
		return true
	}
	drives[driveID] = true
	return false
}

// HasBeenNotified reports whether a notification was already dispatched
// for the drive, in this run or a prior one inside the freshness window.
func (s *Store) HasBeenNotified(gameID, driveID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.notified[gameID] {
		if id == driveID {
			return true
		}
	}
	return false
}

// MarkNotified appends the drive to the notified map and persists it
// synchronously. On a persistence failure the in-memory record is kept
// anyway; dropping it would invite a duplicate notification after the
// next restart.
func (s *Store) MarkNotified(gameID, driveID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notified[gameID] = append(s.notified[gameID], driveID)
	return s.persistLocked()
}

// ResetSeen clears the in-run seen set, for the daily rollover.
func (s *Store) ResetSeen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]map[string]bool)
}

func (s *Store) persistLocked() error {
	data, err := json.Marshal(s.notified)
	if err != nil {
		return eris.Wrap(err, "dedupe: encode notified map")
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return eris.Wrap(err, "dedupe: write notified map")
	}
	return nil
}
