// Package session implements the SessionStore (C6), SessionStateMachine
// (C7), and IntegrityCodec (C9) components: a NoteStore-backed, HMAC-signed,
// optimistically-locked session record with a status state machine and a
// fail-closed tool-admission gate.
//
// Grounded in the teacher's internal/store/sessions.go persistence idiom
// (a flat append/query log of session records), generalized to a single
// mutable, versioned, signed record since no teacher precedent exists for
// HMAC signing or optimistic locking — those are authored fresh from the
// distilled contract, in the teacher's typed-error, mutex-guarded-store
// idiom.
package session

import "time"

// Status is the session's lifecycle state.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusPaused     Status = "PAUSED"
	StatusComplete   Status = "COMPLETE"
)

// Mode is the current working mode, which also governs tool admission.
type Mode string

const (
	ModeAnalysis Mode = "analysis"
	ModePlanning Mode = "planning"
	ModeCoding   Mode = "coding"
	ModeDisabled Mode = "disabled"
)

// ModeTransition records one entry in mode_history.
type ModeTransition struct {
	Mode      Mode      `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentHandoff is a pending handoff within an orchestrator workflow.
type AgentHandoff struct {
	FromAgent string `json:"from_agent"`
	ToAgent   string `json:"to_agent"`
	Reason    string `json:"reason"`
}

// CompactionEvent records one context-compaction event during a workflow.
type CompactionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary"`
}

// OrchestratorWorkflow is the optional nested multi-agent workflow record.
type OrchestratorWorkflow struct {
	ActiveAgent    string            `json:"active_agent"`
	Phase          string            `json:"phase"`
	AgentHistory   []string          `json:"agent_history"`
	Decisions      []string          `json:"decisions"`
	Verdicts       map[string]string `json:"verdicts"`
	PendingHandoff []AgentHandoff    `json:"pending_handoffs"`
	Compactions    []CompactionEvent `json:"compaction_history"`
}

// SessionState is the signed, versioned record SessionStore manages.
// Signature covers every field below except Signature itself, computed over
// the canonical JSON encoding.
type SessionState struct {
	SessionID             string                 `json:"session_id"`
	Version               int                    `json:"version"`
	Status                Status                 `json:"status"`
	CurrentMode           Mode                   `json:"current_mode"`
	ModeHistory           []ModeTransition       `json:"mode_history"`
	ActiveTask            string                 `json:"active_task,omitempty"`
	ActiveFeature         string                 `json:"active_feature,omitempty"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
	ProtocolStartComplete bool                   `json:"protocol_start_complete"`
	ProtocolEndComplete   bool                   `json:"protocol_end_complete"`
	ProtocolStartEvidence map[string]any         `json:"protocol_start_evidence,omitempty"`
	ProtocolEndEvidence   map[string]any         `json:"protocol_end_evidence,omitempty"`
	OrchestratorWorkflow  *OrchestratorWorkflow  `json:"orchestrator_workflow,omitempty"`
	Signature             string                 `json:"signature"`
}

// withSignature returns a copy of s with Signature set to sig.
func (s SessionState) withSignature(sig string) SessionState {
	s.Signature = sig
	return s
}

// unsigned returns a copy of s with Signature cleared, for computing the
// signing input.
func (s SessionState) unsigned() SessionState {
	s.Signature = ""
	return s
}
