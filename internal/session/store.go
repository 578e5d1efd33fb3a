package session

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loriensleafs/brain/internal/brainerr"
	"github.com/loriensleafs/brain/internal/clock"
	"github.com/loriensleafs/brain/internal/notestore"
)

const (
	sessionsFolder = "sessions"
	pointerTitle   = "current-session"
	stateMarker    = "<!-- session-state -->"

	backoffBase   = 50 * time.Millisecond
	backoffCap    = 500 * time.Millisecond
	backoffJitter = 0.2
	maxRetries    = 3
)

// Store persists SessionState through a notestore.Store, signing on write
// and verifying on read. It is the single writer for SessionState; all
// reads route through it so signatures are always checked.
type Store struct {
	mu    sync.Mutex
	notes notestore.Store
	codec *Codec
	clock clock.Clock
}

// NewStore constructs a session Store.
func NewStore(notes notestore.Store, codec *Codec) *Store {
	return &Store{notes: notes, codec: codec, clock: clock.System{}}
}

func sessionTitle(sessionID string) string { return "session-" + sessionID }

// Get reads and verifies the session identified by sessionID.
func (s *Store) Get(sessionID string) (SessionState, error) {
	note, err := s.notes.ReadNote(sessionsFolder + "/" + sessionTitle(sessionID))
	if err != nil {
		return SessionState{}, err
	}
	return s.decode(note.Body)
}

// CurrentSessionID returns the active session_id, or "" if none.
func (s *Store) CurrentSessionID() (string, error) {
	note, err := s.notes.ReadNote(sessionsFolder + "/" + pointerTitle)
	if err != nil {
		if brainerr.Is(err, brainerr.NotFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(note.Body), nil
}

func (s *Store) setCurrentSessionID(sessionID string) error {
	_, err := s.notes.WriteNote(sessionsFolder, pointerTitle, sessionID, nil)
	return err
}

// All lists every session record under the sessions folder.
func (s *Store) All() ([]SessionState, error) {
	entries, err := s.notes.ListDirectory(sessionsFolder, 1, "session-*")
	if err != nil {
		return nil, err
	}
	out := make([]SessionState, 0, len(entries))
	for _, e := range entries {
		if e.Kind != "file" {
			continue
		}
		note, err := s.notes.ReadNote(e.Permalink)
		if err != nil {
			continue
		}
		st, err := s.decode(note.Body)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// create signs and persists a brand-new SessionState, unconditionally
// overwriting any existing record for the same session_id.
func (s *Store) create(state SessionState) (SessionState, error) {
	signed, err := s.codec.Sign(state)
	if err != nil {
		return SessionState{}, err
	}
	if err := s.write(signed); err != nil {
		return SessionState{}, err
	}
	return signed, nil
}

func (s *Store) write(state SessionState) error {
	body, err := s.render(state)
	if err != nil {
		return err
	}
	_, err = s.notes.WriteNote(sessionsFolder, sessionTitle(state.SessionID), body, nil)
	return err
}

func (s *Store) render(state SessionState) (string, error) {
	payload, err := s.codec.Marshal(state)
	if err != nil {
		return "", err
	}
	header := fmt.Sprintf("# Session %s\n\nStatus: %s | Mode: %s | Version: %d\n\n%s\n",
		state.SessionID, state.Status, state.CurrentMode, state.Version, stateMarker)
	return header + string(payload) + "\n", nil
}

func (s *Store) decode(body string) (SessionState, error) {
	idx := strings.Index(body, stateMarker)
	if idx < 0 {
		return SessionState{}, brainerr.New(brainerr.Protocol, "session note missing state marker", nil)
	}
	jsonPart := strings.TrimSpace(body[idx+len(stateMarker):])
	var state SessionState
	if err := json.Unmarshal([]byte(jsonPart), &state); err != nil {
		return SessionState{}, brainerr.Wrap(brainerr.Protocol, "session note body is not valid JSON", err, nil)
	}
	if err := s.codec.Verify(state); err != nil {
		return SessionState{}, err
	}
	return state, nil
}

// UpdaterFunc mutates a copy of the session state in place.
type UpdaterFunc func(*SessionState)

// Update applies updater to the session identified by sessionID under
// optimistic locking: unconditionally bumps updated_at and version,
// appends to mode_history on a mode change, clears active_task on an
// active_feature change, then re-signs and writes. On a version conflict
// it retries with jittered exponential backoff up to max_retries, after
// which it raises VersionConflict.
func (s *Store) Update(sessionID string, updater UpdaterFunc) (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(jitteredBackoff(attempt))
		}

		current, err := s.Get(sessionID)
		if err != nil {
			return SessionState{}, err
		}
		expectedVersion := current.Version

		next := current
		prevMode := next.CurrentMode
		prevFeature := next.ActiveFeature
		updater(&next)

		next.UpdatedAt = s.clock.Now()
		next.Version = current.Version + 1
		if next.CurrentMode != prevMode {
			next.ModeHistory = append(next.ModeHistory, ModeTransition{Mode: next.CurrentMode, Timestamp: next.UpdatedAt})
		}
		if next.ActiveFeature != prevFeature {
			next.ActiveTask = ""
		}

		signed, err := s.codec.Sign(next)
		if err != nil {
			return SessionState{}, err
		}

		reread, err := s.Get(sessionID)
		if err != nil {
			return SessionState{}, err
		}
		if reread.Version != expectedVersion {
			lastErr = brainerr.New(brainerr.VersionConflict, "session version changed before write", map[string]any{
				"session_id": sessionID, "expected": expectedVersion, "actual": reread.Version,
			})
			continue
		}

		if err := s.write(signed); err != nil {
			return SessionState{}, err
		}
		return signed, nil
	}
	if lastErr == nil {
		lastErr = brainerr.New(brainerr.VersionConflict, "session update exhausted retries", map[string]any{"session_id": sessionID})
	}
	return SessionState{}, lastErr
}

func jitteredBackoff(attempt int) time.Duration {
	d := backoffBase * time.Duration(1<<uint(attempt-1))
	if d > backoffCap {
		d = backoffCap
	}
	jitter := 1 + (rand.Float64()*2-1)*backoffJitter
	return time.Duration(float64(d) * jitter)
}

// NewSessionID generates a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
