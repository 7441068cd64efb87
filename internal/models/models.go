// Package models defines the core data types shared across the sales
// training conversation engine: turns, analysis results, objection
// classifications, and API response envelopes.
package models

import (
	"fmt"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single role-tagged message in the conversation history.
// Turns are immutable once appended to an engine's history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IntentLevel describes how ready the user appears to be to act.
type IntentLevel string

const (
	IntentLow    IntentLevel = "low"
	IntentMedium IntentLevel = "medium"
	IntentHigh   IntentLevel = "high"
)

// AnalysisResult is the per-turn output of the NLU analyzer. It is derived
// fresh from history plus the current message and never cached across turns.
type AnalysisResult struct {
	Intent          IntentLevel `json:"intent"`
	Guarded         bool        `json:"guarded"`
	QuestionFatigue bool        `json:"questionFatigue"`
}

// ObjectionType tags a classified user objection.
type ObjectionType string

const (
	ObjectionPrice      ObjectionType = "price"
	ObjectionTime       ObjectionType = "time"
	ObjectionSkepticism ObjectionType = "skepticism"
	ObjectionDelegation ObjectionType = "delegation"
	ObjectionFear       ObjectionType = "fear"
	ObjectionLogistics  ObjectionType = "logistics"
	ObjectionUnknown    ObjectionType = "unknown"
)

// ObjectionClassification is the result of classifying a user objection:
// the matched type, the reframing strategy chosen for this turn, and the
// guidance text handed to the prompt assembler. Computed on demand, never
// persisted.
type ObjectionClassification struct {
	Type     ObjectionType `json:"type"`
	Strategy string        `json:"strategy"`
	Guidance string        `json:"guidance"`
}

// ChatResponse is returned to the caller after each completed exchange.
// Degraded indicates the generation service failed and a fallback message
// was recorded instead.
type ChatResponse struct {
	Text     string        `json:"text"`
	FlowID   string        `json:"flowId"`
	Stage    string        `json:"stage"`
	Latency  time.Duration `json:"-"`
	Bytes    int           `json:"bytes"`
	Degraded bool          `json:"degraded"`
}

// LatencyMs exposes the generation latency in whole milliseconds for
// JSON-facing callers.
func (r *ChatResponse) LatencyMs() int64 {
	return r.Latency.Milliseconds()
}

// SessionSummary describes the current position of a conversation session.
type SessionSummary struct {
	SessionID  string         `json:"sessionId"`
	FlowID     string         `json:"flowId"`
	Stage      string         `json:"stage"`
	StageTurns int            `json:"stageTurns"`
	TotalTurns int            `json:"totalTurns"`
	TurnCounts map[string]int `json:"turnCounts"`
}

// Validate checks that a turn carries a known role and non-empty content.
func (t Turn) Validate() error {
	if t.Role != RoleUser && t.Role != RoleAssistant {
		return fmt.Errorf("invalid turn role %q", t.Role)
	}
	if t.Content == "" {
		return fmt.Errorf("turn content must not be empty")
	}
	return nil
}
