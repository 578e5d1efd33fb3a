package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitEmptyBody(t *testing.T) {
	require.Nil(t, Split("", Default()))
}

func TestSplitSingleChunkForShortBody(t *testing.T) {
	body := "a short note about one thing."
	chunks := Split(body, Default())
	require.Len(t, chunks, 1)
	require.Equal(t, 0, chunks[0].Index)
	require.Equal(t, 1, chunks[0].TotalChunks)
	require.Equal(t, body, chunks[0].Text)
}

func TestSplitIsDeterministic(t *testing.T) {
	body := strings.Repeat("word ", 2000)
	cfg := Config{TargetSize: 500, OverlapFrac: 0.2}
	a := Split(body, cfg)
	b := Split(body, cfg)
	require.Equal(t, a, b)
}

func TestSplitIndicesHaveNoGaps(t *testing.T) {
	body := strings.Repeat("sentence one. sentence two. ", 500)
	chunks := Split(body, Config{TargetSize: 300, OverlapFrac: 0.1})
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		require.Equal(t, i, c.Index)
		require.Equal(t, len(chunks), c.TotalChunks)
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	body := strings.Repeat("x", 100) + "\n\n" + strings.Repeat("y", 100)
	chunks := Split(body, Config{TargetSize: 150, OverlapFrac: 0})
	require.GreaterOrEqual(t, len(chunks), 2)
	require.True(t, strings.HasSuffix(strings.TrimRight(chunks[0].Text, "\n"), "x"))
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	body := strings.Repeat("abcdefghij ", 200)
	chunks := Split(body, Config{TargetSize: 100, OverlapFrac: 0.2})
	require.Greater(t, len(chunks), 1)
	// Consecutive chunks should overlap in byte ranges.
	require.Less(t, chunks[1].Start, chunks[0].End)
}
