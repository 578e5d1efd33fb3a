package importer

import (
	"path/filepath"
	"regexp"
	"strings"
)

// directoryPrefixTable maps a leading path component to the entity type
// notes under it default to.
var directoryPrefixTable = map[string]EntityType{
	"decisions":    TypeDecision,
	"adrs":         TypeDecision,
	"requirements": TypeRequirement,
	"designs":      TypeDesign,
	"tasks":        TypeTask,
	"sessions":     TypeSession,
}

var (
	adrRe     = regexp.MustCompile(`(?i)^ADR-\d+`)
	reqRe     = regexp.MustCompile(`(?i)^REQ-\d+`)
	designRe  = regexp.MustCompile(`(?i)^DESIGN-\d+`)
	taskRe    = regexp.MustCompile(`(?i)^TASK-\d+`)
	sessionRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-session`)
)

var validTypes = map[string]EntityType{
	"decision":    TypeDecision,
	"requirement": TypeRequirement,
	"design":      TypeDesign,
	"task":        TypeTask,
	"session":     TypeSession,
	"note":        TypeNote,
}

// Classify determines doc's entity type: front matter `type` if valid,
// else directory prefix, else filename regex, else the "note" fallback.
func Classify(doc SourceDoc) EntityType {
	if raw, ok := doc.Frontmatter["type"]; ok {
		if s, ok := raw.(string); ok {
			if t, ok := validTypes[strings.ToLower(s)]; ok {
				return t
			}
		}
	}

	firstComponent := strings.Split(filepath.ToSlash(doc.Path), "/")[0]
	if t, ok := directoryPrefixTable[strings.ToLower(firstComponent)]; ok {
		return t
	}

	base := strings.TrimSuffix(filepath.Base(doc.Path), filepath.Ext(doc.Path))
	switch {
	case adrRe.MatchString(base):
		return TypeDecision
	case reqRe.MatchString(base):
		return TypeRequirement
	case designRe.MatchString(base):
		return TypeDesign
	case taskRe.MatchString(base):
		return TypeTask
	case sessionRe.MatchString(base):
		return TypeSession
	}
	return TypeNote
}
