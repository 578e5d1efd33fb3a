package importer

import (
	"context"
	"fmt"
	"strings"
)

// BuildTargetNote classifies doc and runs the extraction pipeline,
// producing the canonical TargetNote the import step writes.
func BuildTargetNote(doc SourceDoc) TargetNote {
	entityType := Classify(doc)
	title := doc.Title
	if title == "" {
		title = doc.Path
	}
	folder := string(entityType) + "s"
	return TargetNote{
		Folder:       folder,
		Title:        title,
		Type:         entityType,
		Permalink:    permalinkFor(folder, title),
		Context:      doc.Sections[""],
		Observations: ExtractObservations(doc, entityType),
		Relations:    ExtractRelations(doc),
	}
}

// Render produces the canonical markdown body for a TargetNote: H1 +
// Context + Observations + Relations. Front matter is written separately
// through NoteStore's WriteNote frontmatter parameter.
func (t TargetNote) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	if t.Context != "" {
		b.WriteString("## Context\n\n")
		b.WriteString(t.Context)
		b.WriteString("\n\n")
	}
	b.WriteString("## Observations\n\n")
	for _, o := range t.Observations {
		fmt.Fprintf(&b, "- [%s] %s\n", o.Category, o.Content)
	}
	b.WriteString("\n## Relations\n\n")
	for _, r := range t.Relations {
		if r.Context != "" {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", r.Type, r.Target, r.Context)
		} else {
			fmt.Fprintf(&b, "- %s: %s\n", r.Type, r.Target)
		}
	}
	return b.String()
}

func (t TargetNote) frontmatter() map[string]any {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"title":     t.Title,
		"type":      string(t.Type),
		"tags":      tags,
		"permalink": t.Permalink,
	}
}

// ImportResult reports the outcome of one import.
type ImportResult struct {
	SourcePath string
	Permalink  string
	Err        error
}

// Import transforms each (path, raw markdown) pair in sources into a
// target note and writes it via NoteStore, idempotently: re-running
// Import with unchanged sources produces byte-identical target bodies. If
// pipe is configured, ProcessNote fires after each successful write so the
// embedding index stays current.
func (e *Engine) Import(ctx context.Context, sources map[string]string) []ImportResult {
	results := make([]ImportResult, 0, len(sources))
	for path, raw := range sources {
		doc := ParseSource(path, raw)
		target := BuildTargetNote(doc)
		permalink, err := e.notes.WriteNote(target.Folder, slug(target.Title), target.Render(), target.frontmatter())
		if err == nil && e.pipeline != nil {
			err = e.pipeline.ProcessNote(ctx, permalink)
		}
		results = append(results, ImportResult{SourcePath: path, Permalink: permalink, Err: err})
	}
	return results
}
