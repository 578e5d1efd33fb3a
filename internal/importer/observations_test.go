package importer

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractObservationsMinimumPadded(t *testing.T) {
	doc := SourceDoc{
		Path:         "notes/thin.md",
		Title:        "Thin Note",
		SectionOrder: []string{""},
		Sections:     map[string]string{"": "just a short paragraph of prose."},
	}
	obs := ExtractObservations(doc, TypeNote)
	require.GreaterOrEqual(t, len(obs), minObservations)
}

func TestExtractObservationsCapsAtMaximum(t *testing.T) {
	bullets := ""
	for i := 0; i < 20; i++ {
		bullets += "- item " + strconv.Itoa(i) + "\n"
	}
	doc := SourceDoc{
		Title:        "Decision",
		SectionOrder: []string{"Context", "Decision", "Consequences"},
		Sections: map[string]string{
			"Context":      bullets,
			"Decision":     bullets,
			"Consequences": bullets,
		},
	}
	obs := ExtractObservations(doc, TypeDecision)
	require.LessOrEqual(t, len(obs), maxObservations)
	require.Len(t, obs, maxObservations)
}

func TestExtractObservationsDedupsIdentical(t *testing.T) {
	doc := SourceDoc{
		Title:        "Decision",
		SectionOrder: []string{"Decision"},
		Sections:     map[string]string{"Decision": "- same point\n- same point\n"},
	}
	obs := ExtractObservations(doc, TypeDecision)
	count := 0
	for _, o := range obs {
		if o.Content == "same point" {
			count++
		}
	}
	require.Equal(t, 1, count)
}
