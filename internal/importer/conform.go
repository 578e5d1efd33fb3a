package importer

import (
	"strings"

	"github.com/loriensleafs/brain/internal/brainerr"
)

var badPrefixes = []string{"spec-", "decision-", "req-", "task-", "design-"}

// scopedTypes are entity types expected to live at
// <type>/<slug>/overview.md rather than directly at <type>/<slug>.md.
var scopedTypes = map[EntityType]bool{
	TypeDecision: true, TypeDesign: true, TypeRequirement: true,
}

// Plan is one proposed change a conform fix would apply.
type Plan struct {
	Permalink string
	Action    string // "rename", "restructure", "move"
	From      string
	To        string
}

// Preview groups proposed fixes by action and flags conflicts where
// multiple sources map to the same destination.
type Preview struct {
	Renames      []Plan
	Restructures []Plan
	Moves        []Plan
	Conflicts    []Plan // subset of the above whose To collides with another plan's To
}

// Conform audits the notes under folder and returns one Issue per problem
// found, covering both auto-fixable structural issues and content
// shortfalls (missing_observations / missing_relations) that are not.
func (e *Engine) Conform(folder string) ([]Issue, error) {
	entries, err := e.notes.ListDirectory(folder, 0, "")
	if err != nil {
		return nil, err
	}

	var issues []Issue
	for _, entry := range entries {
		if entry.Kind != "file" {
			continue
		}
		note, err := e.notes.ReadNote(entry.Permalink)
		if err != nil {
			if brainerr.Is(err, brainerr.NotFound) {
				continue
			}
			return nil, err
		}
		issues = append(issues, conformanceIssuesFor(note.Identifier, note.Frontmatter, note.Body)...)
	}
	return issues, nil
}

func conformanceIssuesFor(permalink string, fm map[string]any, body string) []Issue {
	var issues []Issue

	if len(fm) == 0 {
		issues = append(issues, Issue{Permalink: permalink, Kind: "missing_frontmatter", AutoFixable: true,
			Description: "note has no front matter"})
	}

	base := baseName(permalink)
	for _, prefix := range badPrefixes {
		if strings.HasPrefix(base, prefix) {
			issues = append(issues, Issue{Permalink: permalink, Kind: "bad_prefix", AutoFixable: true,
				Description: "filename carries redundant prefix " + prefix})
			break
		}
	}

	entityType := TypeNote
	if fm != nil {
		if raw, ok := fm["type"].(string); ok {
			if t, ok := validTypes[strings.ToLower(raw)]; ok {
				entityType = t
			}
		}
	}

	parts := strings.Split(permalink, "/")
	if scopedTypes[entityType] {
		if len(parts) == 2 {
			issues = append(issues, Issue{Permalink: permalink, Kind: "root_level_scoped", AutoFixable: true,
				Description: "scoped type note lives at folder root instead of <type>/<slug>/overview.md"})
		} else if len(parts) >= 3 {
			parentSlug := parts[len(parts)-2]
			if base == parentSlug+"-"+lastSegment(parts) || strings.HasPrefix(base, parentSlug+"-") {
				issues = append(issues, Issue{Permalink: permalink, Kind: "redundant_child_prefix", AutoFixable: true,
					Description: "child file repeats parent slug as a prefix"})
			}
			if base != "overview" {
				issues = append(issues, Issue{Permalink: permalink, Kind: "not_overview", AutoFixable: true,
					Description: "scoped type's main file is not named overview.md"})
			}
		}
	}

	if !strings.Contains(body, "## Observations") {
		issues = append(issues, Issue{Permalink: permalink, Kind: "missing_observations", AutoFixable: false,
			Description: "note has no Observations section"})
	}
	if !strings.Contains(body, "## Relations") {
		issues = append(issues, Issue{Permalink: permalink, Kind: "missing_relations", AutoFixable: false,
			Description: "note has no Relations section"})
	}

	return issues
}

func baseName(permalink string) string {
	parts := strings.Split(permalink, "/")
	return parts[len(parts)-1]
}

func lastSegment(parts []string) string {
	return parts[len(parts)-1]
}

// BuildPreview groups fixes for issues into a dry-run plan, detecting
// conflicts where two different sources would resolve to the same
// destination.
func BuildPreview(issues []Issue) Preview {
	var p Preview
	seenTo := map[string][]Plan{}

	add := func(plan Plan, bucket *[]Plan) {
		*bucket = append(*bucket, plan)
		seenTo[plan.To] = append(seenTo[plan.To], plan)
	}

	for _, issue := range issues {
		if !issue.AutoFixable {
			continue
		}
		switch issue.Kind {
		case "bad_prefix":
			to := stripKnownPrefix(issue.Permalink)
			add(Plan{Permalink: issue.Permalink, Action: "rename", From: issue.Permalink, To: to}, &p.Renames)
		case "root_level_scoped":
			to := restructureTarget(issue.Permalink)
			add(Plan{Permalink: issue.Permalink, Action: "restructure", From: issue.Permalink, To: to}, &p.Restructures)
		case "redundant_child_prefix":
			to := dropParentPrefix(issue.Permalink)
			add(Plan{Permalink: issue.Permalink, Action: "rename", From: issue.Permalink, To: to}, &p.Renames)
		case "not_overview":
			parts := strings.Split(issue.Permalink, "/")
			to := strings.Join(parts[:len(parts)-1], "/") + "/overview"
			add(Plan{Permalink: issue.Permalink, Action: "rename", From: issue.Permalink, To: to}, &p.Renames)
		case "missing_frontmatter":
			// in-place fix, no path change to track for conflicts
		}
	}

	for _, plans := range seenTo {
		if len(plans) > 1 {
			p.Conflicts = append(p.Conflicts, plans...)
		}
	}
	return p
}

func stripKnownPrefix(permalink string) string {
	base := baseName(permalink)
	for _, prefix := range badPrefixes {
		if strings.HasPrefix(base, prefix) {
			dir := strings.TrimSuffix(permalink, base)
			return dir + strings.TrimPrefix(base, prefix)
		}
	}
	return permalink
}

func restructureTarget(permalink string) string {
	base := baseName(permalink)
	dir := strings.TrimSuffix(permalink, "/"+base)
	return dir + "/" + base + "/overview"
}

func dropParentPrefix(permalink string) string {
	parts := strings.Split(permalink, "/")
	if len(parts) < 2 {
		return permalink
	}
	parent := parts[len(parts)-2]
	base := parts[len(parts)-1]
	trimmed := strings.TrimPrefix(base, parent+"-")
	parts[len(parts)-1] = trimmed
	return strings.Join(parts, "/")
}
