package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/loriensleafs/brain/internal/brainerr"
)

// ToolClass classifies a tool name for admission purposes.
type ToolClass string

const (
	ToolReadOnly    ToolClass = "read_only"
	ToolDestructive ToolClass = "destructive"
)

var toolClasses = map[string]ToolClass{
	"Read":      ToolReadOnly,
	"Glob":      ToolReadOnly,
	"Grep":      ToolReadOnly,
	"LSP":       ToolReadOnly,
	"WebFetch":  ToolReadOnly,
	"WebSearch": ToolReadOnly,
	"Edit":      ToolDestructive,
	"Write":     ToolDestructive,
	"Bash":      ToolDestructive,
	"TodoWrite": ToolDestructive,
}

// ClassifyTool returns the ToolClass for name, defaulting to destructive
// for any name outside the known closed set (fail-closed on unknowns).
func ClassifyTool(name string) ToolClass {
	if c, ok := toolClasses[name]; ok {
		return c
	}
	return ToolDestructive
}

// Decision is the gate's admission verdict for one tool call.
type Decision struct {
	Allowed bool
	Reason  string
}

// AuditEntry is one line in the gate's append-only audit log, grounded on
// the teacher's guard.AuditEntry shape.
type AuditEntry struct {
	Timestamp string `json:"timestamp"`
	SessionID string `json:"session_id,omitempty"`
	Tool      string `json:"tool"`
	Class     string `json:"class"`
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason"`
}

// Gate evaluates tool-admission requests against the current session.
type Gate struct {
	store     *Store
	auditPath string
}

// NewGate constructs a Gate. auditPath is the JSONL file admission
// decisions are appended to; pass "" to disable auditing.
func NewGate(store *Store, auditPath string) *Gate {
	return &Gate{store: store, auditPath: auditPath}
}

// Evaluate decides whether toolName is admitted given the current session.
//
//   - current_mode == disabled: always allowed (explicit opt-out).
//   - session unavailable or signature invalid: fail-closed, read-only
//     tools allowed, destructive tools blocked.
//   - otherwise: mode-specific policy. analysis/planning modes block
//     destructive tools; coding mode allows both.
func (g *Gate) Evaluate(toolName string) Decision {
	class := ClassifyTool(toolName)

	currentID, err := g.store.CurrentSessionID()
	decision := g.evaluateLocked(currentID, err, class)
	g.audit(currentID, toolName, class, decision)
	return decision
}

func (g *Gate) evaluateLocked(currentID string, lookupErr error, class ToolClass) Decision {
	if lookupErr != nil || currentID == "" {
		return g.failClosed(class, "no active session")
	}

	state, err := g.store.Get(currentID)
	if err != nil {
		if brainerr.Is(err, brainerr.SignatureInvalid) {
			return g.failClosed(class, "session signature invalid")
		}
		return g.failClosed(class, "session unavailable: "+err.Error())
	}

	if state.CurrentMode == ModeDisabled {
		return Decision{Allowed: true, Reason: "mode disabled: gate bypassed"}
	}

	if class == ToolReadOnly {
		return Decision{Allowed: true, Reason: "read-only tool"}
	}

	switch state.CurrentMode {
	case ModeCoding:
		return Decision{Allowed: true, Reason: "coding mode admits destructive tools"}
	default:
		return Decision{Allowed: false, Reason: "mode " + string(state.CurrentMode) + " does not admit destructive tools"}
	}
}

func (g *Gate) failClosed(class ToolClass, reason string) Decision {
	if class == ToolReadOnly {
		return Decision{Allowed: true, Reason: "fail-closed: " + reason + " (read-only admitted)"}
	}
	return Decision{Allowed: false, Reason: "fail-closed: " + reason}
}

func (g *Gate) audit(sessionID, tool string, class ToolClass, decision Decision) {
	if g.auditPath == "" {
		return
	}
	entry := AuditEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		SessionID: sessionID,
		Tool:      tool,
		Class:     string(class),
		Allowed:   decision.Allowed,
		Reason:    decision.Reason,
	}
	_ = appendAudit(g.auditPath, entry)
}

func appendAudit(path string, entry AuditEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}
