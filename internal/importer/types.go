// Package importer implements the AnalyzeImporter component (C8): two
// modes over a tree of markdown files — conform (audit existing
// target-schema notes) and import (transform an external tree into
// target-schema notes).
//
// Grounded in the teacher's internal/graph/extraction.go regex-sweep idiom
// (compiled pattern tables, FindAllStringSubmatch, dedup-by-target maps),
// generalized from graph-edge extraction to the relation/observation
// extraction this spec calls for.
package importer

import (
	"path/filepath"
	"strings"

	"github.com/loriensleafs/brain/internal/notestore"
	"github.com/loriensleafs/brain/internal/pipeline"
)

// EntityType is the classified type of a source or target note.
type EntityType string

const (
	TypeDecision    EntityType = "decision"
	TypeRequirement EntityType = "requirement"
	TypeDesign      EntityType = "design"
	TypeTask        EntityType = "task"
	TypeSession     EntityType = "session"
	TypeNote        EntityType = "note"
)

// ObservationCategory classifies one extracted observation.
type ObservationCategory string

const (
	ObsFact        ObservationCategory = "fact"
	ObsDecision    ObservationCategory = "decision"
	ObsRequirement ObservationCategory = "requirement"
	ObsTechnique   ObservationCategory = "technique"
	ObsInsight     ObservationCategory = "insight"
	ObsProblem     ObservationCategory = "problem"
	ObsSolution    ObservationCategory = "solution"
	ObsOutcome     ObservationCategory = "outcome"
)

// Observation is one extracted (category, content, tags) triple.
type Observation struct {
	Category ObservationCategory
	Content  string
	Tags     []string
}

// RelationType classifies a Relation's edge kind.
type RelationType string

const (
	RelImplements RelationType = "implements"
	RelDependsOn  RelationType = "depends_on"
	RelRelatesTo  RelationType = "relates_to"
	RelExtends    RelationType = "extends"
	RelPartOf     RelationType = "part_of"
	RelInspiredBy RelationType = "inspired_by"
	RelContains   RelationType = "contains"
	RelPairsWith  RelationType = "pairs_with"
	RelSupersedes RelationType = "supersedes"
	RelLeadsTo    RelationType = "leads_to"
	RelCausedBy   RelationType = "caused_by"
)

// Relation is one extracted (type, target, context) triple.
type Relation struct {
	Type    RelationType
	Target  string
	Context string
}

// SourceDoc is a parsed markdown file prior to classification.
type SourceDoc struct {
	Path         string
	Title        string
	Frontmatter  map[string]any
	Body         string
	Sections     map[string]string // heading -> section body, order given by SectionOrder
	SectionOrder []string
}

// TargetNote is the canonical note AnalyzeImporter emits.
type TargetNote struct {
	Folder       string
	Title        string
	Type         EntityType
	Tags         []string
	Permalink    string
	Context      string
	Observations []Observation
	Relations    []Relation
}

// Issue is one conformance finding against an existing target note.
type Issue struct {
	Permalink   string
	Kind        string
	AutoFixable bool
	Description string
}

// Engine runs the conform and import pipelines against a NoteStore.
type Engine struct {
	notes    notestore.Store
	pipeline *pipeline.Pipeline // optional; triggers ProcessNote after each import write
}

// New constructs an Engine. pipe may be nil to skip the post-write
// embedding trigger.
func New(notes notestore.Store, pipe *pipeline.Pipeline) *Engine {
	return &Engine{notes: notes, pipeline: pipe}
}

func slug(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	lastDash := false
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		out = "untitled"
	}
	return out
}

func permalinkFor(folder, title string) string {
	return filepath.ToSlash(filepath.Join(folder, slug(title)))
}
