// Package engine implements the conversation stage engine: flow
// definitions, per-stage advancement rules, and the per-session finite
// state machine that tracks stage, stage-turn counters, and turn history.
package engine

import (
	"fmt"
)

// PitchStage is the conventional name of the pitch-equivalent stage. The
// frustration and direct-request overrides jump here when the flow defines
// it.
const PitchStage = "pitch"

// TurnCaps carries the per-intent-level turn caps for a stage: the forced
// advance safeguard fires at High turns when intent is high and Low turns
// otherwise.
type TurnCaps struct {
	Low  int `yaml:"low"`
	High int `yaml:"high"`
}

// StageSpec describes one stage of a flow: its successor (empty = terminal),
// the advancement rule that gates the normal transition, turn caps, and an
// optional urgency-skip target for impatience signals.
type StageSpec struct {
	Name        string   `yaml:"name"`
	Next        string   `yaml:"next"`
	Rule        RuleID   `yaml:"rule"`
	TurnCaps    TurnCaps `yaml:"turn_caps"`
	UrgencySkip string   `yaml:"urgency_skip"`
}

// FlowDefinition is an ordered list of stages defining one conversation
// style. Definitions are validated at construction and immutable after.
type FlowDefinition struct {
	ID     string
	Stages []StageSpec

	index map[string]int
}

// NewFlowDefinition validates stages and builds a flow definition.
// Validation failures here abort startup so a broken flow is never reached
// mid-conversation.
func NewFlowDefinition(id string, stages []StageSpec) (*FlowDefinition, error) {
	if id == "" {
		return nil, fmt.Errorf("flow definition: id must not be empty")
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("flow %q: must define at least one stage", id)
	}

	index := make(map[string]int, len(stages))
	for i, stage := range stages {
		if stage.Name == "" {
			return nil, fmt.Errorf("flow %q: stage %d has no name", id, i)
		}
		if _, dup := index[stage.Name]; dup {
			return nil, fmt.Errorf("flow %q: duplicate stage name %q", id, stage.Name)
		}
		index[stage.Name] = i
	}

	last := len(stages) - 1
	for i, stage := range stages {
		if i == last {
			if stage.Next != "" {
				return nil, fmt.Errorf("flow %q: terminal stage %q must not have a successor", id, stage.Name)
			}
			continue
		}
		if stage.Next == "" {
			return nil, fmt.Errorf("flow %q: stage %q has no successor but is not terminal", id, stage.Name)
		}
		if _, ok := index[stage.Next]; !ok {
			return nil, fmt.Errorf("flow %q: stage %q successor %q is not defined", id, stage.Name, stage.Next)
		}
		if _, ok := ruleTable[stage.Rule]; !ok {
			return nil, fmt.Errorf("flow %q: stage %q uses unregistered rule %q", id, stage.Name, stage.Rule)
		}
		if stage.TurnCaps.Low <= 0 || stage.TurnCaps.High <= 0 {
			return nil, fmt.Errorf("flow %q: stage %q turn caps must be positive", id, stage.Name)
		}
		if stage.UrgencySkip != "" {
			if _, ok := index[stage.UrgencySkip]; !ok {
				return nil, fmt.Errorf("flow %q: stage %q urgency skip target %q is not defined", id, stage.Name, stage.UrgencySkip)
			}
		}
	}

	return &FlowDefinition{ID: id, Stages: stages, index: index}, nil
}

// StageIndex returns the position of a stage within the flow, or -1 if the
// stage is not defined.
func (f *FlowDefinition) StageIndex(name string) int {
	if i, ok := f.index[name]; ok {
		return i
	}
	return -1
}

// Stage returns the spec for a named stage.
func (f *FlowDefinition) Stage(name string) (StageSpec, bool) {
	i, ok := f.index[name]
	if !ok {
		return StageSpec{}, false
	}
	return f.Stages[i], true
}

// First returns the initial stage of the flow.
func (f *FlowDefinition) First() StageSpec {
	return f.Stages[0]
}

// HasStage reports whether the flow defines a stage with the given name.
func (f *FlowDefinition) HasStage(name string) bool {
	_, ok := f.index[name]
	return ok
}

// IsTerminal reports whether the named stage has no successor.
func (f *FlowDefinition) IsTerminal(name string) bool {
	spec, ok := f.Stage(name)
	return ok && spec.Next == ""
}
