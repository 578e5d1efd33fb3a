package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loriensleafs/brain/internal/brainerr"
	"github.com/loriensleafs/brain/internal/notestore/filestore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	notes, err := filestore.Open(t.TempDir())
	require.NoError(t, err)
	codec, err := NewCodec([]byte("test-secret"))
	require.NoError(t, err)
	return NewStore(notes, codec)
}

func TestStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	sm := NewStateMachine(store)

	created, err := sm.Create("write the docs", ModePlanning)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, created.Status)

	got, err := store.Get(created.SessionID)
	require.NoError(t, err)
	require.Equal(t, created.SessionID, got.SessionID)
	require.Equal(t, 1, got.Version)

	current, err := store.CurrentSessionID()
	require.NoError(t, err)
	require.Equal(t, created.SessionID, current)
}

func TestStoreGetMissingSessionIsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get("does-not-exist")
	require.True(t, brainerr.Is(err, brainerr.NotFound))
}

func TestUpdateBumpsVersionAndTimestamps(t *testing.T) {
	store := newTestStore(t)
	sm := NewStateMachine(store)
	created, err := sm.Create("topic", ModeCoding)
	require.NoError(t, err)

	updated, err := store.Update(created.SessionID, func(s *SessionState) {
		s.ActiveTask = "implement feature"
	})
	require.NoError(t, err)
	require.Equal(t, 2, updated.Version)
	require.Equal(t, "implement feature", updated.ActiveTask)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))
}

func TestUpdateClearsActiveTaskOnFeatureChange(t *testing.T) {
	store := newTestStore(t)
	sm := NewStateMachine(store)
	created, err := sm.Create("topic", ModeCoding)
	require.NoError(t, err)

	_, err = store.Update(created.SessionID, func(s *SessionState) {
		s.ActiveTask = "step one"
	})
	require.NoError(t, err)

	updated, err := store.Update(created.SessionID, func(s *SessionState) {
		s.ActiveFeature = "new-feature"
	})
	require.NoError(t, err)
	require.Equal(t, "new-feature", updated.ActiveFeature)
	require.Empty(t, updated.ActiveTask)
}

func TestUpdateAppendsModeHistoryOnModeChange(t *testing.T) {
	store := newTestStore(t)
	sm := NewStateMachine(store)
	created, err := sm.Create("topic", ModeAnalysis)
	require.NoError(t, err)
	require.Len(t, created.ModeHistory, 1)

	updated, err := store.Update(created.SessionID, func(s *SessionState) {
		s.CurrentMode = ModeCoding
	})
	require.NoError(t, err)
	require.Len(t, updated.ModeHistory, 2)
	require.Equal(t, ModeCoding, updated.ModeHistory[1].Mode)
}

func TestConcurrentUpdatesAllSucceedSerialized(t *testing.T) {
	store := newTestStore(t)
	sm := NewStateMachine(store)
	created, err := sm.Create("topic", ModeCoding)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(created.SessionID, func(s *SessionState) {
				s.ActiveTask = "writer"
			})
			errs[i] = err
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	final, err := store.Get(created.SessionID)
	require.NoError(t, err)
	require.Equal(t, 6, final.Version) // 1 (create) + 5 updates
}

// TestUpdateAcrossIndependentStoresPicksUpLatestVersion exercises the
// read-before-write path through two independently-locked Store instances
// (simulating two separate processes) against the same underlying
// NoteStore: storeA must base its update on storeB's prior write rather
// than a stale in-memory copy.
func TestUpdateAcrossIndependentStoresPicksUpLatestVersion(t *testing.T) {
	notes, err := filestore.Open(t.TempDir())
	require.NoError(t, err)
	codec, err := NewCodec([]byte("test-secret"))
	require.NoError(t, err)

	storeA := NewStore(notes, codec)
	storeB := NewStore(notes, codec)
	sm := NewStateMachine(storeA)
	created, err := sm.Create("topic", ModeCoding)
	require.NoError(t, err)

	// storeB writes an update first, moving the stored record to version 2.
	_, err = storeB.Update(created.SessionID, func(s *SessionState) {
		s.ActiveTask = "from B"
	})
	require.NoError(t, err)

	// storeA's Update reads the stored record fresh rather than any cached
	// copy, so it builds on storeB's write and lands at version 3.
	updated, err := storeA.Update(created.SessionID, func(s *SessionState) {
		s.ActiveTask = "from A"
	})
	require.NoError(t, err)
	require.Equal(t, "from A", updated.ActiveTask)
	require.Equal(t, 3, updated.Version)
}
