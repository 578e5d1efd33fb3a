package session

import (
	"github.com/loriensleafs/brain/internal/brainerr"
	"github.com/loriensleafs/brain/internal/clock"
)

// StateMachine enforces the status transition table and the at-most-one-
// IN_PROGRESS invariant on top of a Store.
type StateMachine struct {
	store *Store
	clock clock.Clock
}

// NewStateMachine constructs a StateMachine over store.
func NewStateMachine(store *Store) *StateMachine {
	return &StateMachine{store: store, clock: clock.System{}}
}

// Create starts a new session in IN_PROGRESS, auto-pausing any other
// IN_PROGRESS session first. If the auto-pause fails, Create aborts with
// AutoPauseFailed naming the conflicting session_id.
func (m *StateMachine) Create(topic string, mode Mode) (SessionState, error) {
	if err := m.autoPauseConflicting(""); err != nil {
		return SessionState{}, err
	}

	now := m.clock.Now()
	id := NewSessionID()
	state := SessionState{
		SessionID:   id,
		Version:     1,
		Status:      StatusInProgress,
		CurrentMode: mode,
		ModeHistory: []ModeTransition{{Mode: mode, Timestamp: now}},
		ActiveTask:  topic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := m.store.create(state)
	if err != nil {
		return SessionState{}, err
	}
	if err := m.store.setCurrentSessionID(id); err != nil {
		return SessionState{}, err
	}
	return created, nil
}

// Pause transitions sessionID from IN_PROGRESS to PAUSED.
func (m *StateMachine) Pause(sessionID string) (SessionState, error) {
	return m.transition(sessionID, StatusInProgress, StatusPaused)
}

// Resume transitions sessionID from PAUSED to IN_PROGRESS, auto-pausing
// any other IN_PROGRESS session first.
func (m *StateMachine) Resume(sessionID string) (SessionState, error) {
	current, err := m.store.Get(sessionID)
	if err != nil {
		return SessionState{}, err
	}
	if current.Status != StatusPaused {
		return SessionState{}, brainerr.New(brainerr.InvalidStatusTransition, "cannot resume session not in PAUSED", map[string]any{
			"session_id": sessionID, "expected": StatusPaused, "actual": current.Status,
		})
	}
	if err := m.autoPauseConflicting(sessionID); err != nil {
		return SessionState{}, err
	}
	next, err := m.transition(sessionID, StatusPaused, StatusInProgress)
	if err != nil {
		return SessionState{}, err
	}
	if err := m.store.setCurrentSessionID(sessionID); err != nil {
		return SessionState{}, err
	}
	return next, nil
}

// Complete transitions sessionID from IN_PROGRESS to the terminal COMPLETE.
func (m *StateMachine) Complete(sessionID string) (SessionState, error) {
	next, err := m.transition(sessionID, StatusInProgress, StatusComplete)
	if err != nil {
		return SessionState{}, err
	}
	if current, _ := m.store.CurrentSessionID(); current == sessionID {
		_ = m.store.setCurrentSessionID("")
	}
	return next, nil
}

func (m *StateMachine) transition(sessionID string, from, to Status) (SessionState, error) {
	current, err := m.store.Get(sessionID)
	if err != nil {
		return SessionState{}, err
	}
	if current.Status != from {
		return SessionState{}, brainerr.New(brainerr.InvalidStatusTransition, "session is not in the expected source status", map[string]any{
			"session_id": sessionID, "expected": from, "actual": current.Status,
		})
	}
	return m.store.Update(sessionID, func(s *SessionState) {
		s.Status = to
	})
}

func (m *StateMachine) autoPauseConflicting(exceptSessionID string) error {
	all, err := m.store.All()
	if err != nil {
		return err
	}
	for _, s := range all {
		if s.Status != StatusInProgress || s.SessionID == exceptSessionID {
			continue
		}
		if _, err := m.store.Update(s.SessionID, func(st *SessionState) {
			st.Status = StatusPaused
		}); err != nil {
			return brainerr.New(brainerr.AutoPauseFailed, "failed to auto-pause conflicting session", map[string]any{
				"session_id": s.SessionID, "cause": err.Error(),
			})
		}
	}
	return nil
}
