package engine

import (
	"strings"
	"testing"
)

func validStages() []StageSpec {
	return []StageSpec{
		{Name: "intent", Next: "pitch", Rule: RuleClearIntent, TurnCaps: TurnCaps{Low: 3, High: 1}},
		{Name: "pitch", Next: "close", Rule: RuleCommitmentOrObjection, TurnCaps: TurnCaps{Low: 3, High: 2}},
		{Name: "close"},
	}
}

func TestNewFlowDefinition_Valid(t *testing.T) {
	flow, err := NewFlowDefinition("basic", validStages())
	if err != nil {
		t.Fatalf("expected valid flow, got %v", err)
	}
	if flow.First().Name != "intent" {
		t.Errorf("unexpected first stage: %s", flow.First().Name)
	}
	if !flow.IsTerminal("close") {
		t.Error("close should be terminal")
	}
	if flow.IsTerminal("pitch") {
		t.Error("pitch should not be terminal")
	}
	if flow.StageIndex("pitch") != 1 {
		t.Errorf("unexpected pitch index: %d", flow.StageIndex("pitch"))
	}
	if flow.StageIndex("missing") != -1 {
		t.Error("missing stage should index as -1")
	}
}

func TestNewFlowDefinition_EmptyID(t *testing.T) {
	if _, err := NewFlowDefinition("", validStages()); err == nil {
		t.Fatal("expected error for empty flow id")
	}
}

func TestNewFlowDefinition_NoStages(t *testing.T) {
	if _, err := NewFlowDefinition("basic", nil); err == nil {
		t.Fatal("expected error for empty stage list")
	}
}

func TestNewFlowDefinition_DuplicateStage(t *testing.T) {
	stages := validStages()
	stages[1].Name = "intent"
	if _, err := NewFlowDefinition("basic", stages); err == nil {
		t.Fatal("expected error for duplicate stage name")
	}
}

func TestNewFlowDefinition_TerminalWithSuccessor(t *testing.T) {
	stages := validStages()
	stages[2].Next = "intent"
	if _, err := NewFlowDefinition("basic", stages); err == nil {
		t.Fatal("expected error for terminal stage with successor")
	}
}

func TestNewFlowDefinition_UnresolvableSuccessor(t *testing.T) {
	stages := validStages()
	stages[0].Next = "nowhere"
	_, err := NewFlowDefinition("basic", stages)
	if err == nil {
		t.Fatal("expected error for unresolvable successor")
	}
	if !strings.Contains(err.Error(), "nowhere") {
		t.Errorf("error should name the bad successor: %v", err)
	}
}

func TestNewFlowDefinition_UnregisteredRule(t *testing.T) {
	stages := validStages()
	stages[0].Rule = "made_up_rule"
	_, err := NewFlowDefinition("basic", stages)
	if err == nil {
		t.Fatal("expected error for unregistered rule")
	}
	if !strings.Contains(err.Error(), "made_up_rule") {
		t.Errorf("error should name the rule: %v", err)
	}
}

func TestNewFlowDefinition_NonPositiveTurnCaps(t *testing.T) {
	stages := validStages()
	stages[0].TurnCaps.High = 0
	if _, err := NewFlowDefinition("basic", stages); err == nil {
		t.Fatal("expected error for non-positive turn cap")
	}
}

func TestNewFlowDefinition_BadUrgencySkip(t *testing.T) {
	stages := validStages()
	stages[0].UrgencySkip = "nowhere"
	if _, err := NewFlowDefinition("basic", stages); err == nil {
		t.Fatal("expected error for unresolvable urgency skip target")
	}
}
