package importer

import (
	"regexp"
	"strings"
)

const (
	minRelations = 2
	maxRelations = 5
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)
	entityIDRe = regexp.MustCompile(`(?i)\b((?:ADR|REQ|DESIGN|TASK)-\d+)\b`)
)

type relationField struct {
	name string
	typ  RelationType
}

// frontmatterRelationFields is swept in this fixed order so that a source
// with multiple relation fields renders its relations deterministically —
// a map iteration here would make import non-idempotent (§4.8/§8).
var frontmatterRelationFields = []relationField{
	{"related", RelRelatesTo},
	{"implements", RelImplements},
	{"depends_on", RelDependsOn},
	{"extends", RelExtends},
	{"part_of", RelPartOf},
}

// ExtractRelations sweeps doc for wikilinks, front matter relation fields,
// bare entity-ID mentions, and a front matter "parent" field (as part_of),
// dedups by target, and clamps the result to [minRelations, maxRelations] — below
// the minimum is left as-is (callers may flag it as a missing_relations
// conformance issue rather than fabricate targets). The body's section
// headings are not scanned for hierarchical relations.
func ExtractRelations(doc SourceDoc) []Relation {
	var rels []Relation

	for _, m := range wikilinkRe.FindAllStringSubmatch(doc.Body, -1) {
		rels = append(rels, Relation{Type: RelRelatesTo, Target: strings.TrimSpace(m[1])})
	}

	for _, f := range frontmatterRelationFields {
		raw, ok := doc.Frontmatter[f.name]
		if !ok {
			continue
		}
		for _, target := range stringsFromAny(raw) {
			rels = append(rels, Relation{Type: f.typ, Target: target})
		}
	}

	for _, m := range entityIDRe.FindAllStringSubmatch(doc.Body, -1) {
		rels = append(rels, Relation{Type: RelRelatesTo, Target: strings.ToUpper(m[1])})
	}

	if parent, ok := doc.Frontmatter["parent"]; ok {
		if s, ok := parent.(string); ok && s != "" {
			rels = append(rels, Relation{Type: RelPartOf, Target: s})
		}
	}

	rels = dedupRelationsByTarget(rels)
	if len(rels) > maxRelations {
		rels = rels[:maxRelations]
	}
	return rels
}

func stringsFromAny(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []any:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func dedupRelationsByTarget(rels []Relation) []Relation {
	seen := map[string]bool{}
	var out []Relation
	for _, r := range rels {
		if seen[r.Target] {
			continue
		}
		seen[r.Target] = true
		out = append(out, r)
	}
	return out
}
