// Package testutil provides common test fixtures shared across salestrainer
// tests: a fully-populated signal catalog spec and flow definitions.
package testutil

import (
	"testing"

	"github.com/shaf-aston/salestrainer/internal/engine"
	"github.com/shaf-aston/salestrainer/internal/models"
	"github.com/shaf-aston/salestrainer/internal/signals"
)

// CatalogSpec returns a valid, fully-populated catalog spec mirroring the
// shipped signals.yaml closely enough for behavioral tests.
func CatalogSpec() signals.CatalogSpec {
	return signals.CatalogSpec{
		Categories: map[string][]string{
			signals.CategoryLowIntent:         {"just browsing", "no rush", "just looking"},
			signals.CategoryHighIntent:        {"ready to buy", "this week", "today"},
			signals.CategoryGoalIndicators:    {"i need", "i am looking for", "i want"},
			signals.CategoryGuarded:           {"fine", "ok", "sure", "maybe", "i guess"},
			signals.CategoryDirectInfoRequest: {"how much", "what is the price", "give me the details"},
			signals.CategoryImpatience:        {"hurry", "get to the point", "no time"},
			signals.CategoryDemandDirectness:  {"just tell me", "stop asking", "be direct"},
			signals.CategoryRepetitionMarkers: {"i already said", "like i said"},
			signals.CategoryCommitment:        {"i will take it", "sign me up", "i am in"},
			signals.CategoryObjection:         {"too expensive", "not worth", "need to think", "worried"},
			signals.CategoryWalkaway:          {"not interested", "no thanks", "goodbye"},
			signals.CategoryDoubt:             {"not sure", "skeptical", "doubt"},
			signals.CategoryEmotionalStakes:   {"family", "kids", "worried", "safety"},
			signals.CategoryPurchaseVerbs:     {"buy", "purchase", "order", "finance"},
			signals.CategoryIntentKeywords:    {"need", "budget", "deadline", "looking for"},
			signals.CategoryValidationPhrases: {"makes sense", "got it", "i hear you"},
			signals.CategoryQuestionWords:     {"what", "how", "why", "when", "which", "can", "does", "is"},
			signals.CategoryRhetoricalMarkers: {"who knows", "who cares", "you know what i mean"},
			signals.CategorySoftPositive:      {"sounds good", "interesting", "tell me more"},
			signals.CategoryStopWords:         {"the", "and", "for", "that", "with", "just", "about", "not"},
		},
		Thresholds: signals.Thresholds{
			ShortMessageMaxWords:  4,
			SubstantiveMinWords:   6,
			QuestionFatigueWindow: 4,
			QuestionFatigueMin:    2,
			ValidationWindow:      5,
			ValidationMin:         2,
			RecentUserTurns:       2,
			MaxUserKeywords:       6,
			MinKeywordLength:      3,
			HistoryWindow:         8,
			ChatWindow:            12,
		},
		Objections: []signals.ObjectionSpec{
			{
				Type:       models.ObjectionPrice,
				Keywords:   []string{"expensive", "too much", "price", "afford"},
				Strategies: []string{"value_reframe", "cost_of_inaction", "payment_breakdown"},
				Guidance:   "Reframe price as value over time.",
			},
			{
				Type:       models.ObjectionTime,
				Keywords:   []string{"not now", "later", "busy"},
				Strategies: []string{"urgency_anchor", "small_commitment"},
				Guidance:   "Shrink the decision to a smaller immediate step.",
			},
			{
				Type:       models.ObjectionSkepticism,
				Keywords:   []string{"prove", "really work", "too good to be true"},
				Strategies: []string{"social_proof"},
				Guidance:   "Offer concrete evidence instead of arguing.",
			},
		},
		Preferences: []signals.PreferenceCategory{
			{Name: "budget", Keywords: []string{"cheap", "affordable", "budget", "price"}},
			{Name: "safety", Keywords: []string{"safe", "safety", "airbags"}},
			{Name: "reliability", Keywords: []string{"reliable", "dependable", "warranty"}},
		},
	}
}

// Catalog builds an immutable catalog from CatalogSpec, failing the test on
// validation errors.
func Catalog(t *testing.T) *signals.Catalog {
	t.Helper()
	catalog, err := signals.NewCatalog(CatalogSpec())
	if err != nil {
		t.Fatalf("failed to build test catalog: %v", err)
	}
	return catalog
}

// TransactionalFlow returns the intent -> pitch -> objection -> close flow
// used throughout the engine and orchestrator tests.
func TransactionalFlow(t *testing.T) *engine.FlowDefinition {
	t.Helper()
	flow, err := engine.NewFlowDefinition("transactional", []engine.StageSpec{
		{Name: "intent", Next: "pitch", Rule: engine.RuleClearIntent, TurnCaps: engine.TurnCaps{Low: 3, High: 1}, UrgencySkip: "pitch"},
		{Name: "pitch", Next: "objection", Rule: engine.RuleCommitmentOrObjection, TurnCaps: engine.TurnCaps{Low: 3, High: 2}},
		{Name: "objection", Next: "close", Rule: engine.RuleCommitmentOrWalkaway, TurnCaps: engine.TurnCaps{Low: 3, High: 3}},
		{Name: "close"},
	})
	if err != nil {
		t.Fatalf("failed to build transactional flow: %v", err)
	}
	return flow
}

// ConsultativeFlow returns the six-stage deep-discovery flow.
func ConsultativeFlow(t *testing.T) *engine.FlowDefinition {
	t.Helper()
	flow, err := engine.NewFlowDefinition("consultative", []engine.StageSpec{
		{Name: "intent", Next: "discovery", Rule: engine.RuleClearIntent, TurnCaps: engine.TurnCaps{Low: 4, High: 2}, UrgencySkip: "pitch"},
		{Name: "discovery", Next: "stakes", Rule: engine.RuleDoubt, TurnCaps: engine.TurnCaps{Low: 5, High: 5}, UrgencySkip: "pitch"},
		{Name: "stakes", Next: "pitch", Rule: engine.RuleStakes, TurnCaps: engine.TurnCaps{Low: 6, High: 6}, UrgencySkip: "pitch"},
		{Name: "pitch", Next: "objection", Rule: engine.RuleCommitmentOrObjection, TurnCaps: engine.TurnCaps{Low: 4, High: 3}},
		{Name: "objection", Next: "close", Rule: engine.RuleCommitmentOrWalkaway, TurnCaps: engine.TurnCaps{Low: 4, High: 4}},
		{Name: "close"},
	})
	if err != nil {
		t.Fatalf("failed to build consultative flow: %v", err)
	}
	return flow
}
