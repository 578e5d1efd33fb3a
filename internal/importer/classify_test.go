package importer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyByFrontmatterType(t *testing.T) {
	doc := SourceDoc{Path: "misc/x.md", Frontmatter: map[string]any{"type": "requirement"}}
	require.Equal(t, TypeRequirement, Classify(doc))
}

func TestClassifyByDirectoryPrefix(t *testing.T) {
	doc := SourceDoc{Path: "decisions/use-postgres.md"}
	require.Equal(t, TypeDecision, Classify(doc))
}

func TestClassifyByFilenameRegex(t *testing.T) {
	require.Equal(t, TypeDecision, Classify(SourceDoc{Path: "misc/ADR-001-use-postgres.md"}))
	require.Equal(t, TypeRequirement, Classify(SourceDoc{Path: "misc/REQ-42.md"}))
	require.Equal(t, TypeSession, Classify(SourceDoc{Path: "misc/2026-07-31-session.md"}))
}

func TestClassifyFallsBackToNote(t *testing.T) {
	doc := SourceDoc{Path: "misc/random-thoughts.md"}
	require.Equal(t, TypeNote, Classify(doc))
}
