package nlu_test

import (
	"testing"

	"github.com/shaf-aston/salestrainer/internal/models"
	"github.com/shaf-aston/salestrainer/internal/nlu"
	"github.com/shaf-aston/salestrainer/internal/signals"
	"github.com/shaf-aston/salestrainer/internal/testutil"
)

// fixedRand always selects the same index, making strategy choice
// deterministic.
type fixedRand struct{ n int }

func (f fixedRand) IntN(n int) int {
	if f.n >= n {
		return n - 1
	}
	return f.n
}

func newClassifier(t *testing.T, rng nlu.Rand) *nlu.ObjectionClassifier {
	t.Helper()
	catalog := testutil.Catalog(t)
	matcher := signals.NewMatcher()
	if rng == nil {
		return nlu.NewObjectionClassifier(catalog, matcher)
	}
	return nlu.NewObjectionClassifierWithRand(catalog, matcher, rng)
}

func TestClassify_PriceObjection(t *testing.T) {
	oc := newClassifier(t, nil)

	result := oc.Classify("that's too expensive", nil)
	if result.Type != models.ObjectionPrice {
		t.Errorf("expected price objection, got %s", result.Type)
	}
	if result.Guidance == "" {
		t.Error("expected non-empty guidance")
	}
	if result.Strategy == "" {
		t.Error("expected a strategy to be selected")
	}
}

func TestClassify_TypeSelectionIsDeterministic(t *testing.T) {
	oc := newClassifier(t, nil)
	for i := 0; i < 10; i++ {
		result := oc.Classify("I can't afford the price right now", nil)
		if result.Type != models.ObjectionPrice {
			t.Fatalf("iteration %d: type flipped to %s", i, result.Type)
		}
	}
}

func TestClassify_SeededStrategyIsDeterministic(t *testing.T) {
	oc := newClassifier(t, fixedRand{n: 1})
	result := oc.Classify("way too expensive for me", nil)
	if result.Strategy != "cost_of_inaction" {
		t.Errorf("expected seeded strategy cost_of_inaction, got %s", result.Strategy)
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	oc := newClassifier(t, fixedRand{n: 0})
	// Matches both price ("expensive") and time ("busy"); price is listed
	// first and must win.
	result := oc.Classify("it's expensive and I'm busy", nil)
	if result.Type != models.ObjectionPrice {
		t.Errorf("expected price to win priority, got %s", result.Type)
	}
}

func TestClassify_UsesRecentUserHistory(t *testing.T) {
	oc := newClassifier(t, fixedRand{n: 0})
	history := []models.Turn{
		{Role: models.RoleUser, Content: "seems too good to be true honestly"},
		{Role: models.RoleAssistant, Content: "I understand the hesitation."},
	}
	result := oc.Classify("I don't know", history)
	if result.Type != models.ObjectionSkepticism {
		t.Errorf("expected skepticism from history, got %s", result.Type)
	}
}

func TestClassify_UnknownFallback(t *testing.T) {
	oc := newClassifier(t, nil)
	result := oc.Classify("the weather is nice today", nil)
	if result.Type != models.ObjectionUnknown {
		t.Errorf("expected unknown type, got %s", result.Type)
	}
	if result.Guidance != nlu.UnknownObjectionGuidance {
		t.Errorf("expected generic guidance, got %q", result.Guidance)
	}
}
