package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loriensleafs/brain/internal/notestore"
	"github.com/loriensleafs/brain/internal/vectorstore"
)

type fakeNotes struct {
	mu    sync.Mutex
	notes map[string]notestore.Note
}

func newFakeNotes() *fakeNotes { return &fakeNotes{notes: map[string]notestore.Note{}} }

func (f *fakeNotes) WriteNote(folder, title, body string, fm map[string]any) (string, error) {
	id := folder + "/" + title
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[id] = notestore.Note{Identifier: id, Body: body}
	return id, nil
}
func (f *fakeNotes) ReadNote(id string) (notestore.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notes[id], nil
}
func (f *fakeNotes) ListDirectory(path string, depth int, glob string) ([]notestore.ListEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notestore.ListEntry
	for id := range f.notes {
		out = append(out, notestore.ListEntry{Kind: "file", Permalink: id})
	}
	return out, nil
}
func (f *fakeNotes) Search(query string, folders []string, fullContent bool) ([]notestore.SearchHit, error) {
	return nil, nil
}
func (f *fakeNotes) DeleteNote(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.notes, id)
	return nil
}

type fakeEmbedder struct {
	dims      int
	healthErr error
	failOn    string // EmbedBatch fails when any text contains this
}

func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	out, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}
func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		if f.failOn != "" && strings.Contains(texts[i], f.failOn) {
			return nil, errors.New("fake embed failure")
		}
		v := make([]float32, f.dims)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}
func (f *fakeEmbedder) Health(ctx context.Context) error { return f.healthErr }
func (f *fakeEmbedder) Model() string                    { return "fake" }
func (f *fakeEmbedder) Dimensions() int                  { return f.dims }

func newTestPipeline(t *testing.T) (*Pipeline, *fakeNotes, *vectorstore.Store) {
	t.Helper()
	notes := newFakeNotes()
	vs, err := vectorstore.OpenMemory(4)
	require.NoError(t, err)
	t.Cleanup(func() { vs.Close() })
	p := New(notes, vs, &fakeEmbedder{dims: 4}, Config{Concurrency: 2}, nil)
	return p, notes, vs
}

func TestProcessNoteIndexesChunks(t *testing.T) {
	p, notes, vs := newTestPipeline(t)
	notes.notes["projects/a"] = notestore.Note{Identifier: "projects/a", Body: "hello world, a short note."}

	require.NoError(t, p.ProcessNote(context.Background(), "projects/a"))
	n, err := vs.Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestProcessNoteEmptyBodyDeletesRows(t *testing.T) {
	p, notes, vs := newTestPipeline(t)
	notes.notes["projects/a"] = notestore.Note{Identifier: "projects/a", Body: "content"}
	require.NoError(t, p.ProcessNote(context.Background(), "projects/a"))

	notes.notes["projects/a"] = notestore.Note{Identifier: "projects/a", Body: ""}
	require.NoError(t, p.ProcessNote(context.Background(), "projects/a"))

	n, err := vs.Count()
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestProcessManyIsolatesFailures(t *testing.T) {
	notes := newFakeNotes()
	vs, err := vectorstore.OpenMemory(4)
	require.NoError(t, err)
	defer vs.Close()
	p := New(notes, vs, &fakeEmbedder{dims: 4, failOn: "boom"}, Config{Concurrency: 2}, nil)
	notes.notes["a"] = notestore.Note{Identifier: "a", Body: "ok"}
	notes.notes["b"] = notestore.Note{Identifier: "b", Body: "boom"}
	// "missing" is not in the fake store's map, ReadNote returns a zero Note (empty body -> delete path, not an error)

	results := p.ProcessMany(context.Background(), []string{"a", "b", "missing"}, 2)
	require.Len(t, results, 3)
	errs := map[string]error{}
	for _, r := range results {
		errs[r.Identifier] = r.Err
	}
	require.NoError(t, errs["a"])
	require.Error(t, errs["b"])
	require.NoError(t, errs["missing"])

	n, err := vs.Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestCatchUpIsFireAndForget(t *testing.T) {
	p, notes, vs := newTestPipeline(t)
	notes.notes["projects/a"] = notestore.Note{Identifier: "projects/a", Body: "hello world"}

	start := time.Now()
	p.CatchUp("projects")
	require.Less(t, time.Since(start), 100*time.Millisecond)

	require.Eventually(t, func() bool {
		n, err := vs.Count()
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCatchUpAbortsOnHealthFailure(t *testing.T) {
	notes := newFakeNotes()
	vs, err := vectorstore.OpenMemory(4)
	require.NoError(t, err)
	defer vs.Close()
	notes.notes["projects/a"] = notestore.Note{Identifier: "projects/a", Body: "hello"}

	p := New(notes, vs, &fakeEmbedder{dims: 4, healthErr: context.DeadlineExceeded}, Config{}, nil)
	p.CatchUp("projects")

	time.Sleep(50 * time.Millisecond)
	n, err := vs.Count()
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
