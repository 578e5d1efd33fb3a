package importer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractRelationsFindsWikilinks(t *testing.T) {
	doc := SourceDoc{Body: "see [[ADR-001]] and [[other note|Other]]"}
	rels := ExtractRelations(doc)
	targets := targetsOf(rels)
	require.Contains(t, targets, "ADR-001")
	require.Contains(t, targets, "other note")
}

func TestExtractRelationsFromFrontmatterFields(t *testing.T) {
	doc := SourceDoc{
		Frontmatter: map[string]any{
			"depends_on": []any{"REQ-1", "REQ-2"},
			"implements": "DESIGN-9",
		},
	}
	rels := ExtractRelations(doc)
	targets := targetsOf(rels)
	require.Contains(t, targets, "REQ-1")
	require.Contains(t, targets, "DESIGN-9")
}

func TestExtractRelationsSweepsEntityIDs(t *testing.T) {
	doc := SourceDoc{Body: "This builds on TASK-7 and references ADR-2 directly in prose."}
	rels := ExtractRelations(doc)
	targets := targetsOf(rels)
	require.Contains(t, targets, "TASK-7")
	require.Contains(t, targets, "ADR-2")
}

func TestExtractRelationsDedupsByTargetAndCapsAtMax(t *testing.T) {
	doc := SourceDoc{Body: "ADR-1 ADR-1 ADR-2 ADR-3 ADR-4 ADR-5 ADR-6 ADR-7"}
	rels := ExtractRelations(doc)
	require.LessOrEqual(t, len(rels), maxRelations)

	seen := map[string]bool{}
	for _, r := range rels {
		require.False(t, seen[r.Target], "duplicate target %s", r.Target)
		seen[r.Target] = true
	}
}

func targetsOf(rels []Relation) []string {
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = r.Target
	}
	return out
}
