package engine

import (
	"github.com/shaf-aston/salestrainer/internal/models"
	"github.com/shaf-aston/salestrainer/internal/signals"
)

// RuleID identifies an advancement rule. The set is closed: flow
// definitions referencing an ID outside ruleTable are rejected at
// construction, never at runtime.
type RuleID string

const (
	RuleClearIntent           RuleID = "clear_intent"
	RuleDoubt                 RuleID = "doubt"
	RuleStakes                RuleID = "stakes"
	RuleCommitmentOrObjection RuleID = "commitment_or_objection"
	RuleCommitmentOrWalkaway  RuleID = "commitment_or_walkaway"
)

// ruleInput is what an advancement rule sees: the turn history so far, the
// latest user message, the stage-local turn count, and the cap that applies
// at the user's current intent level.
type ruleInput struct {
	history    []models.Turn
	message    string
	stageTurns int
	turnCap    int
}

// ruleFunc decides whether the engine should move to the configured
// successor of the current stage.
type ruleFunc func(e *Engine, in ruleInput) bool

// ruleTable is the strategy table mapping rule identifiers to their typed
// implementations.
var ruleTable = map[RuleID]ruleFunc{
	RuleClearIntent:           ruleClearIntent,
	RuleDoubt:                 ruleDoubt,
	RuleStakes:                ruleStakes,
	RuleCommitmentOrObjection: ruleCommitmentOrObjection,
	RuleCommitmentOrWalkaway:  ruleCommitmentOrWalkaway,
}

// minimum history sizes before the doubt and stakes rules start reading
// signals out of the conversation; before that only the turn cap applies.
const (
	doubtMinHistory  = 4
	stakesMinHistory = 6
)

// ruleClearIntent advances once the user shows purchase intent, in the
// message or anywhere in history, or when the per-intent turn cap is
// reached so intent gathering can never loop forever.
func ruleClearIntent(e *Engine, in ruleInput) bool {
	if e.matcher.MatchesAny(in.message, e.catalog.Category(signals.CategoryPurchaseVerbs)) {
		return true
	}
	if e.matcher.MatchesAny(in.message, e.catalog.Category(signals.CategoryIntentKeywords)) {
		return true
	}
	if e.matcher.MatchesAny(userText(in.history), e.catalog.Category(signals.CategoryIntentKeywords)) {
		return true
	}
	return in.stageTurns >= in.turnCap
}

// ruleDoubt advances once the history carries doubt-signaling language, or
// on the turn cap.
func ruleDoubt(e *Engine, in ruleInput) bool {
	if len(in.history) >= doubtMinHistory &&
		e.matcher.MatchesAny(userText(in.history), e.catalog.Category(signals.CategoryDoubt)) {
		return true
	}
	return in.stageTurns >= in.turnCap
}

// ruleStakes advances once the history carries emotional-stakes language,
// or on the turn cap.
func ruleStakes(e *Engine, in ruleInput) bool {
	if len(in.history) >= stakesMinHistory &&
		e.matcher.MatchesAny(userText(in.history), e.catalog.Category(signals.CategoryEmotionalStakes)) {
		return true
	}
	return in.stageTurns >= in.turnCap
}

// ruleCommitmentOrObjection advances when the user either commits or
// objects; both outcomes move the conversation past the pitch.
func ruleCommitmentOrObjection(e *Engine, in ruleInput) bool {
	if e.matcher.MatchesAny(in.message, e.catalog.Category(signals.CategoryCommitment)) {
		return true
	}
	return e.matcher.MatchesAny(in.message, e.catalog.Category(signals.CategoryObjection))
}

// ruleCommitmentOrWalkaway ends the flow on either a commitment (success)
// or the user walking away (failure).
func ruleCommitmentOrWalkaway(e *Engine, in ruleInput) bool {
	if e.matcher.MatchesAny(in.message, e.catalog.Category(signals.CategoryCommitment)) {
		return true
	}
	return e.matcher.MatchesAny(in.message, e.catalog.Category(signals.CategoryWalkaway))
}

// userText joins the user side of a history slice.
func userText(history []models.Turn) string {
	var b []byte
	for _, turn := range history {
		if turn.Role != models.RoleUser {
			continue
		}
		if len(b) > 0 {
			b = append(b, ' ')
		}
		b = append(b, turn.Content...)
	}
	return string(b)
}
