package filestore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loriensleafs/brain/internal/brainerr"
)

func TestWriteReadRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	id, err := s.WriteNote("projects", "widget", "# Widget\n\nbody text", map[string]any{"title": "Widget", "type": "note"})
	require.NoError(t, err)
	require.Equal(t, "projects/widget", id)

	note, err := s.ReadNote(id)
	require.NoError(t, err)
	require.Contains(t, note.Body, "body text")
	require.Equal(t, "Widget", note.Frontmatter["title"])
}

func TestWriteNoteIsIdempotentByFolderTitle(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	id1, err := s.WriteNote("projects", "widget", "first", nil)
	require.NoError(t, err)
	id2, err := s.WriteNote("projects", "widget", "second", nil)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	note, err := s.ReadNote(id1)
	require.NoError(t, err)
	require.Equal(t, "second", note.Body)
}

func TestReadMissingNoteIsNotFound(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	_, err = s.ReadNote("nope")
	require.True(t, brainerr.Is(err, brainerr.NotFound))
}

func TestSearchFindsSubstring(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	_, err = s.WriteNote("notes", "alpha", "this mentions kubernetes deeply", nil)
	require.NoError(t, err)
	_, err = s.WriteNote("notes", "beta", "unrelated content", nil)
	require.NoError(t, err)

	hits, err := s.Search("kubernetes", nil, false)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "notes/alpha", hits[0].Permalink)
}

func TestListDirectoryRespectsDepth(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	_, err = s.WriteNote("a", "one", "x", nil)
	require.NoError(t, err)
	_, err = s.WriteNote("a/b", "two", "y", nil)
	require.NoError(t, err)

	entries, err := s.ListDirectory("a", 1, "")
	require.NoError(t, err)
	var sawNested bool
	for _, e := range entries {
		if e.Permalink == "a/b/two" {
			sawNested = true
		}
	}
	require.False(t, sawNested)
}

func TestDeleteNote(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	id, err := s.WriteNote("n", "one", "x", nil)
	require.NoError(t, err)
	require.NoError(t, s.DeleteNote(id))
	_, err = s.ReadNote(id)
	require.True(t, brainerr.Is(err, brainerr.NotFound))
}
