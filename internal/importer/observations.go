package importer

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	minObservations = 3
	maxObservations = 10
)

var sentenceSplitRe = regexp.MustCompile(`(?m)^[-*]\s+(.+)$`)

// ExtractObservations pulls per-type observations out of doc, padding with
// deterministic filler (title, type, source path, first paragraph) when
// the extraction strategy falls short of minObservations, and truncating
// to maxObservations.
func ExtractObservations(doc SourceDoc, entityType EntityType) []Observation {
	var obs []Observation

	switch entityType {
	case TypeDecision:
		obs = append(obs, strategyBulletsIn(doc, "Context", ObsFact)...)
		obs = append(obs, strategyBulletsIn(doc, "Decision", ObsDecision)...)
		obs = append(obs, strategyBulletsIn(doc, "Consequences", ObsOutcome)...)
	case TypeRequirement:
		obs = append(obs, strategyBulletsIn(doc, "Requirements", ObsRequirement)...)
		obs = append(obs, strategyBulletsIn(doc, "Acceptance Criteria", ObsRequirement)...)
	case TypeTask:
		obs = append(obs, strategyBulletsIn(doc, "Steps", ObsTechnique)...)
		obs = append(obs, strategyBulletsIn(doc, "Notes", ObsInsight)...)
	default:
		for _, heading := range doc.SectionOrder {
			obs = append(obs, strategyBulletsIn(doc, heading, ObsFact)...)
		}
	}

	obs = dedupObservations(obs)
	obs = padObservations(obs, doc, entityType)

	if len(obs) > maxObservations {
		obs = obs[:maxObservations]
	}
	return obs
}

func strategyBulletsIn(doc SourceDoc, heading string, category ObservationCategory) []Observation {
	content, ok := doc.Sections[heading]
	if !ok {
		return nil
	}
	matches := sentenceSplitRe.FindAllStringSubmatch(content, -1)
	var out []Observation
	for _, m := range matches {
		out = append(out, Observation{Category: category, Content: strings.TrimSpace(m[1])})
	}
	return out
}

func dedupObservations(obs []Observation) []Observation {
	seen := map[string]bool{}
	var out []Observation
	for _, o := range obs {
		key := string(o.Category) + "|" + o.Content
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, o)
	}
	return out
}

// padObservations fills any shortfall below minObservations with
// deterministic filler derived from doc: title, type, source path, first
// paragraph, in that order, never repeating an already-present content
// string. Title, type, and source path are always non-empty, so three
// fillers are guaranteed even for a content-less doc.
func padObservations(obs []Observation, doc SourceDoc, entityType EntityType) []Observation {
	if len(obs) >= minObservations {
		return obs
	}
	seen := map[string]bool{}
	for _, o := range obs {
		seen[o.Content] = true
	}

	fillers := []Observation{
		{Category: ObsFact, Content: fmt.Sprintf("Title: %s", doc.Title)},
		{Category: ObsFact, Content: fmt.Sprintf("Type: %s", entityType)},
		{Category: ObsFact, Content: fmt.Sprintf("Source path: %s", doc.Path)},
		{Category: ObsFact, Content: firstParagraph(doc)},
	}
	for _, f := range fillers {
		if len(obs) >= minObservations {
			break
		}
		if f.Content == "" || seen[f.Content] {
			continue
		}
		seen[f.Content] = true
		obs = append(obs, f)
	}
	return obs
}

func firstParagraph(doc SourceDoc) string {
	for _, heading := range doc.SectionOrder {
		content := strings.TrimSpace(doc.Sections[heading])
		if content == "" {
			continue
		}
		paragraphs := strings.SplitN(content, "\n\n", 2)
		p := strings.TrimSpace(paragraphs[0])
		if p != "" {
			return p
		}
	}
	return ""
}
