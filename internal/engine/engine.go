package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shaf-aston/salestrainer/internal/models"
	"github.com/shaf-aston/salestrainer/internal/nlu"
	"github.com/shaf-aston/salestrainer/internal/signals"
)

// ErrInvalidRewind is returned when a rewind index is out of range or does
// not land on a user/assistant pair boundary. The engine state is left
// untouched.
var ErrInvalidRewind = errors.New("invalid rewind turn index")

// Decision is the outcome of ShouldAdvance: either stay, move to the
// configured successor, or jump directly to a named stage.
type Decision struct {
	Advance bool
	Target  string // non-empty means a direct jump, bypassing the successor chain
}

// Engine owns the conversational state of one session: the active flow
// definition, the current stage, a stage-local turn counter, and the full
// turn history. One engine per session; never shared.
type Engine struct {
	flow       *FlowDefinition
	stage      string
	stageTurns int
	history    []models.Turn
	turnCounts map[string]int

	catalog  *signals.Catalog
	matcher  *signals.Matcher
	analyzer *nlu.Analyzer
}

// New creates an engine positioned at the first stage of the flow.
func New(flow *FlowDefinition, catalog *signals.Catalog, matcher *signals.Matcher, analyzer *nlu.Analyzer) *Engine {
	slog.Debug("engine.New: creating engine", "flowID", flow.ID, "initialStage", flow.First().Name)
	return &Engine{
		flow:       flow,
		stage:      flow.First().Name,
		turnCounts: make(map[string]int),
		catalog:    catalog,
		matcher:    matcher,
		analyzer:   analyzer,
	}
}

// override is one entry of the priority-ordered advancement checks that run
// before the stage's normal rule. First match wins.
type override struct {
	name  string
	check func(e *Engine, message string) (Decision, bool)
}

// overrides are evaluated top to bottom; the order is the priority
// contract: frustration beats direct requests beats urgency skips beats the
// normal advancement rule.
var overrides = []override{
	{name: "frustration", check: (*Engine).frustrationOverride},
	{name: "direct_request", check: (*Engine).directRequestOverride},
	{name: "urgency", check: (*Engine).urgencyOverride},
}

// ShouldAdvance decides whether and where the engine should move after the
// latest exchange. Callers record the exchange with AddTurn first, then ask.
// It never mutates state; callers apply the decision via Advance.
func (e *Engine) ShouldAdvance(message string) Decision {
	for _, ov := range overrides {
		if decision, ok := ov.check(e, message); ok {
			slog.Debug("Engine.ShouldAdvance: override matched",
				"flowID", e.flow.ID, "stage", e.stage, "override", ov.name, "target", decision.Target)
			return decision
		}
	}

	spec, _ := e.flow.Stage(e.stage)
	if spec.Next == "" {
		return Decision{}
	}

	rule := ruleTable[spec.Rule]
	in := ruleInput{
		history:    e.history,
		message:    message,
		stageTurns: e.stageTurns,
		turnCap:    e.turnCap(spec, message),
	}
	if rule(e, in) {
		slog.Debug("Engine.ShouldAdvance: rule fired",
			"flowID", e.flow.ID, "stage", e.stage, "rule", spec.Rule)
		return Decision{Advance: true}
	}
	return Decision{}
}

// priorHistory is the history without the exchange recorded for the
// current message. ShouldAdvance runs after AddTurn, so analyzer views on
// the advancement path must drop the final pair to match the pre-recording
// views used during prompt assembly; without this the current message is
// counted twice.
func (e *Engine) priorHistory() []models.Turn {
	if n := len(e.history); n >= 2 {
		return e.history[:n-2]
	}
	return e.history
}

// frustrationOverride skips straight to the pitch stage when the user
// demands directness and a pitch stage lies ahead of the current one.
func (e *Engine) frustrationOverride(message string) (Decision, bool) {
	if !e.analyzer.UserDemandsDirectness(e.priorHistory(), message) {
		return Decision{}, false
	}
	return e.jumpToPitch()
}

// directRequestOverride skips to the pitch stage on an explicit request for
// product information.
func (e *Engine) directRequestOverride(message string) (Decision, bool) {
	if !e.matcher.MatchesAny(message, e.catalog.Category(signals.CategoryDirectInfoRequest)) {
		return Decision{}, false
	}
	return e.jumpToPitch()
}

// urgencyOverride jumps to the current stage's configured skip target on
// impatience signals.
func (e *Engine) urgencyOverride(message string) (Decision, bool) {
	spec, _ := e.flow.Stage(e.stage)
	if spec.UrgencySkip == "" {
		return Decision{}, false
	}
	if !e.matcher.MatchesAny(message, e.catalog.Category(signals.CategoryImpatience)) {
		return Decision{}, false
	}
	return Decision{Advance: true, Target: spec.UrgencySkip}, true
}

// jumpToPitch builds a direct-jump decision to the pitch stage, but only
// when the flow defines one ahead of the current stage. Jumping backward
// would rewind a conversation that already pitched.
func (e *Engine) jumpToPitch() (Decision, bool) {
	pitchIdx := e.flow.StageIndex(PitchStage)
	if pitchIdx < 0 || pitchIdx <= e.flow.StageIndex(e.stage) {
		return Decision{}, false
	}
	return Decision{Advance: true, Target: PitchStage}, true
}

// turnCap resolves the per-intent-level turn cap for a stage using the
// analyzer's current intent estimate. Only confirmed high intent gets the
// tighter High cap; medium intent is treated as patiently as low.
func (e *Engine) turnCap(spec StageSpec, message string) int {
	analysis := e.analyzer.AnalyzeState(e.priorHistory(), message)
	if analysis.Intent == models.IntentHigh {
		return spec.TurnCaps.High
	}
	return spec.TurnCaps.Low
}

// Advance applies a transition. With a target it jumps directly to that
// stage; otherwise it moves to the configured successor. Both reset the
// stage-turn counter to zero. Advancing a terminal stage without a target
// is a no-op.
func (e *Engine) Advance(target string) error {
	if target != "" {
		if !e.flow.HasStage(target) {
			return fmt.Errorf("flow %q has no stage %q", e.flow.ID, target)
		}
		slog.Info("Engine.Advance: direct jump", "flowID", e.flow.ID, "from", e.stage, "to", target)
		e.stage = target
		e.stageTurns = 0
		return nil
	}

	spec, _ := e.flow.Stage(e.stage)
	if spec.Next == "" {
		slog.Debug("Engine.Advance: terminal stage, no-op", "flowID", e.flow.ID, "stage", e.stage)
		return nil
	}
	slog.Info("Engine.Advance: transition", "flowID", e.flow.ID, "from", e.stage, "to", spec.Next)
	e.stage = spec.Next
	e.stageTurns = 0
	return nil
}

// AddTurn appends one completed user/assistant exchange and increments the
// stage-turn counter. This happens exactly once per exchange, never
// partially.
func (e *Engine) AddTurn(userMsg, assistantMsg string) {
	e.history = append(e.history,
		models.Turn{Role: models.RoleUser, Content: userMsg},
		models.Turn{Role: models.RoleAssistant, Content: assistantMsg},
	)
	e.stageTurns++
	e.turnCounts[e.stage]++
}

// RewindToTurn truncates the conversation at an even turn boundary and
// deterministically replays the surviving exchanges through the same
// AddTurn/ShouldAdvance/Advance sequence the live engine ran, reproducing
// the stage trajectory exactly. Invalid indexes leave state unchanged.
func (e *Engine) RewindToTurn(turnIndex int) error {
	if turnIndex < 0 || turnIndex > len(e.history) || turnIndex%2 != 0 {
		slog.Warn("Engine.RewindToTurn: rejected",
			"flowID", e.flow.ID, "turnIndex", turnIndex, "historyLen", len(e.history))
		return fmt.Errorf("%w: index %d with history length %d", ErrInvalidRewind, turnIndex, len(e.history))
	}

	replay := make([]models.Turn, turnIndex)
	copy(replay, e.history[:turnIndex])

	e.stage = e.flow.First().Name
	e.stageTurns = 0
	e.history = e.history[:0]
	e.turnCounts = make(map[string]int)

	for i := 0; i+1 < len(replay); i += 2 {
		userMsg := replay[i].Content
		e.AddTurn(userMsg, replay[i+1].Content)
		decision := e.ShouldAdvance(userMsg)
		if decision.Advance {
			if err := e.Advance(decision.Target); err != nil {
				return fmt.Errorf("rewind replay failed at turn %d: %w", i, err)
			}
		}
	}

	slog.Info("Engine.RewindToTurn: replay complete",
		"flowID", e.flow.ID, "turnIndex", turnIndex, "stage", e.stage, "stageTurns", e.stageTurns)
	return nil
}

// FlowID returns the identifier of the active flow.
func (e *Engine) FlowID() string { return e.flow.ID }

// Stage returns the name of the current stage.
func (e *Engine) Stage() string { return e.stage }

// StageSpec returns the spec of the current stage.
func (e *Engine) StageSpec() StageSpec {
	spec, _ := e.flow.Stage(e.stage)
	return spec
}

// StageTurns returns the stage-local turn counter.
func (e *Engine) StageTurns() int { return e.stageTurns }

// History returns the turn history. Callers must not mutate it.
func (e *Engine) History() []models.Turn { return e.history }

// TurnCounts returns a copy of the per-stage exchange counts.
func (e *Engine) TurnCounts() map[string]int {
	counts := make(map[string]int, len(e.turnCounts))
	for stage, n := range e.turnCounts {
		counts[stage] = n
	}
	return counts
}

// IsTerminal reports whether the engine sits in a terminal stage.
func (e *Engine) IsTerminal() bool {
	return e.flow.IsTerminal(e.stage)
}
