package store

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/plenumlabs/scribe/errors"
	"github.com/plenumlabs/scribe/logger"
)

// lockMarker is the JSON content of a lock file. Its presence signals
// "locked"; its age decides staleness.
type lockMarker struct {
	Owner      string    `json:"owner"`
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// heldLock is a successfully acquired lock, released exactly once.
type heldLock struct {
	path     string
	released bool
}

func (l *heldLock) release() {
	if l.released {
		return
	}
	l.released = true
	_ = os.Remove(l.path)
}

// lockPath returns the lock marker path for a session record.
func (s *Store) lockPath(sessionID string) string {
	return s.RecordPath(sessionID) + ".lock"
}

// acquireLock takes the per-session advisory lock, or returns a retryable
// StoreLocked error when another live updater holds it. Markers older than
// the staleness threshold belong to a crashed updater and are removed.
func (s *Store) acquireLock(sessionID string) (*heldLock, error) {
	path := s.lockPath(sessionID)

	if age, held := s.markerAge(path); held {
		if age > s.cfg.LockStaleAfter {
			s.log.Warn("removing stale lock marker", logger.Fields(
				logger.FieldSessionID, sessionID,
				"age", age.String(),
			))
			_ = os.Remove(path)
		} else {
			return nil, errors.StoreLocked(sessionID)
		}
	}

	marker := lockMarker{
		Owner:      uuid.NewString(),
		PID:        os.Getpid(),
		AcquiredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(marker)
	if err != nil {
		return nil, errors.Internal(err)
	}

	// O_EXCL makes creation the atomic acquisition step; losing the race
	// surfaces as contention, not corruption.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.StoreLocked(sessionID)
		}
		return nil, errors.Internal(err)
	}
	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(path)
		return nil, errors.StoreLocked(sessionID)
	}

	return &heldLock{path: path}, nil
}

// markerAge reports whether a marker exists and how old it is. The recorded
// acquisition time is preferred; file mtime covers unreadable markers.
func (s *Store) markerAge(path string) (time.Duration, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}

	if data, err := os.ReadFile(path); err == nil {
		var marker lockMarker
		if json.Unmarshal(data, &marker) == nil && !marker.AcquiredAt.IsZero() {
			return time.Since(marker.AcquiredAt), true
		}
	}
	return time.Since(info.ModTime()), true
}
