package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loriensleafs/brain/internal/notestore"
	"github.com/loriensleafs/brain/internal/vectorstore"
)

type fakeNoteSearch struct {
	hits []notestore.SearchHit
	err  error
}

func (f *fakeNoteSearch) WriteNote(folder, title, body string, fm map[string]any) (string, error) {
	return "", nil
}
func (f *fakeNoteSearch) ReadNote(id string) (notestore.Note, error) { return notestore.Note{}, nil }
func (f *fakeNoteSearch) ListDirectory(path string, depth int, glob string) ([]notestore.ListEntry, error) {
	return nil, nil
}
func (f *fakeNoteSearch) Search(query string, folders []string, fullContent bool) ([]notestore.SearchHit, error) {
	return f.hits, f.err
}
func (f *fakeNoteSearch) DeleteNote(id string) error { return nil }

type fakeQueryEmbedder struct {
	vec []float32
	err error
}

func (f *fakeQueryEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}
func (f *fakeQueryEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, f.err
}
func (f *fakeQueryEmbedder) Health(ctx context.Context) error { return nil }
func (f *fakeQueryEmbedder) Model() string                    { return "fake" }
func (f *fakeQueryEmbedder) Dimensions() int                  { return len(f.vec) }

func seedVectorStore(t *testing.T, dims int) *vectorstore.Store {
	t.Helper()
	vs, err := vectorstore.OpenMemory(dims)
	require.NoError(t, err)
	t.Cleanup(func() { vs.Close() })
	return vs
}

func unitVec(dims, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1
	return v
}

func TestSearchFusesAndPrefersHigherScore(t *testing.T) {
	vs := seedVectorStore(t, 4)
	require.NoError(t, vs.ReplaceChunks("notes/alpha", []vectorstore.Row{
		{EntityID: "notes/alpha", ChunkIndex: 0, ChunkText: "alpha content about kubernetes", Vector: unitVec(4, 0)},
	}))

	notes := &fakeNoteSearch{hits: []notestore.SearchHit{
		{Permalink: "notes/alpha", Title: "Alpha", Snippet: "alpha content about kubernetes"},
	}}
	embedder := &fakeQueryEmbedder{vec: []float32{1, 1, 0, 0}} // cosine ~0.707 against alpha

	e := New(notes, vs, embedder)
	results, err := e.Search(context.Background(), "kubernetes", Options{Mode: ModeAuto, Threshold: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "notes/alpha", results[0].Permalink)
	require.Equal(t, SourceKeyword, results[0].Source) // keyword's score of 1.0 beats semantic cosine
}

func TestSearchKeywordOnlyMode(t *testing.T) {
	vs := seedVectorStore(t, 4)
	notes := &fakeNoteSearch{hits: []notestore.SearchHit{
		{Permalink: "notes/beta", Title: "Beta", Snippet: "beta"},
	}}
	e := New(notes, vs, &fakeQueryEmbedder{vec: unitVec(4, 0)})

	results, err := e.Search(context.Background(), "beta", Options{Mode: ModeKeyword})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, SourceKeyword, results[0].Source)
}

func TestSearchSemanticOnlyModeAppliesThreshold(t *testing.T) {
	vs := seedVectorStore(t, 4)
	require.NoError(t, vs.ReplaceChunks("notes/gamma", []vectorstore.Row{
		{EntityID: "notes/gamma", ChunkIndex: 0, ChunkText: "gamma", Vector: unitVec(4, 1)},
	}))
	notes := &fakeNoteSearch{}
	embedder := &fakeQueryEmbedder{vec: unitVec(4, 0)} // orthogonal to stored vector: cosine 0

	e := New(notes, vs, embedder)
	results, err := e.Search(context.Background(), "gamma", Options{Mode: ModeSemantic, Threshold: 0.5})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchBothSubsystemsFailReturnsCombinedError(t *testing.T) {
	vs := seedVectorStore(t, 4)
	notes := &fakeNoteSearch{err: errors.New("lexical index down")}
	embedder := &fakeQueryEmbedder{err: errors.New("embedding service down")}

	e := New(notes, vs, embedder)
	_, err := e.Search(context.Background(), "q", Options{Mode: ModeAuto})
	require.Error(t, err)
	require.Contains(t, err.Error(), "lexical index down")
	require.Contains(t, err.Error(), "embedding service down")
}

func TestSearchPartialFailureReturnsSurvivingSubsystem(t *testing.T) {
	vs := seedVectorStore(t, 4)
	require.NoError(t, vs.ReplaceChunks("notes/delta", []vectorstore.Row{
		{EntityID: "notes/delta", ChunkIndex: 0, ChunkText: "delta", Vector: unitVec(4, 0)},
	}))
	notes := &fakeNoteSearch{err: errors.New("lexical index down")}
	embedder := &fakeQueryEmbedder{vec: unitVec(4, 0)}

	e := New(notes, vs, embedder)
	results, err := e.Search(context.Background(), "delta", Options{Mode: ModeAuto, Threshold: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, SourceSemantic, results[0].Source)
}

func TestSearchRespectsLimit(t *testing.T) {
	vs := seedVectorStore(t, 4)
	hits := []notestore.SearchHit{
		{Permalink: "a", Title: "a", Snippet: "x"},
		{Permalink: "b", Title: "b", Snippet: "x"},
		{Permalink: "c", Title: "c", Snippet: "x"},
	}
	notes := &fakeNoteSearch{hits: hits}
	e := New(notes, vs, &fakeQueryEmbedder{vec: unitVec(4, 0)})

	results, err := e.Search(context.Background(), "x", Options{Mode: ModeKeyword, Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
}
