package prompt_test

import (
	"strings"
	"testing"

	"github.com/shaf-aston/salestrainer/internal/models"
	"github.com/shaf-aston/salestrainer/internal/nlu"
	"github.com/shaf-aston/salestrainer/internal/prompt"
	"github.com/shaf-aston/salestrainer/internal/signals"
	"github.com/shaf-aston/salestrainer/internal/testutil"
)

func newAssembler(t *testing.T) *prompt.Assembler {
	t.Helper()
	catalog := testutil.Catalog(t)
	matcher := signals.NewMatcher()
	analyzer := nlu.NewAnalyzer(catalog, matcher)
	classifier := nlu.NewObjectionClassifier(catalog, matcher)
	return prompt.NewAssembler(catalog, matcher, analyzer, classifier)
}

func turns(pairs ...string) []models.Turn {
	history := make([]models.Turn, 0, len(pairs))
	for i, content := range pairs {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		history = append(history, models.Turn{Role: role, Content: content})
	}
	return history
}

func TestStagePrompt_AlwaysCarriesBaseRules(t *testing.T) {
	a := newAssembler(t)
	out := a.StagePrompt("transactional", "intent", "Used sedans and SUVs.", nil, "hello there everyone")

	for _, section := range []string{"<HARD RULES>", "<STRONG PREFERENCES>", "<GUIDELINES>", "<PRODUCT CONTEXT>", "<THIS TURN>"} {
		if !strings.Contains(out, section) {
			t.Errorf("prompt missing section %s", section)
		}
	}
	if !strings.Contains(out, "Used sedans and SUVs.") {
		t.Error("product context text not included")
	}
}

func TestStagePrompt_OmitsEmptyProductContext(t *testing.T) {
	a := newAssembler(t)
	out := a.StagePrompt("transactional", "intent", "", nil, "hello there everyone")
	if strings.Contains(out, "<PRODUCT CONTEXT>") {
		t.Error("empty product context should not emit the section")
	}
}

func TestStagePrompt_DirectQuestionBeatsObjectionRoute(t *testing.T) {
	a := newAssembler(t)
	// A literal question during the objection stage must get a direct answer
	// body, not an objection reframe.
	out := a.StagePrompt("transactional", "objection", "", nil, "what warranty do you offer?")

	if !strings.Contains(out, "Answer it plainly") {
		t.Error("expected direct-answer body for a literal question")
	}
	if strings.Contains(out, "raised a") {
		t.Error("objection body must not appear when a direct question is pending")
	}
}

func TestStagePrompt_ObjectionRoute(t *testing.T) {
	a := newAssembler(t)
	out := a.StagePrompt("transactional", "objection", "", nil, "that's just too expensive honestly")

	if !strings.Contains(out, "price objection") {
		t.Errorf("expected price objection body, got:\n%s", out)
	}
	if !strings.Contains(out, "Reframe price as value over time.") {
		t.Error("expected the catalog guidance in the body")
	}
}

func TestStagePrompt_SoftPositiveInPitch(t *testing.T) {
	a := newAssembler(t)
	out := a.StagePrompt("transactional", "pitch", "", nil, "that sounds good actually")

	if !strings.Contains(out, "warming up to the pitch") {
		t.Error("expected soft-positive body in pitch stage")
	}

	// The same message outside the pitch stage falls through to the default.
	out = a.StagePrompt("transactional", "close", "", nil, "that sounds good actually")
	if strings.Contains(out, "warming up to the pitch") {
		t.Error("soft-positive body must be pitch-only")
	}
}

func TestStagePrompt_ValidationLoopRoute(t *testing.T) {
	a := newAssembler(t)
	history := turns(
		"I drive a lot",
		"Makes sense.",
		"mostly highway",
		"Got it, that makes sense.",
	)
	out := a.StagePrompt("consultative", "discovery", "", history, "mostly highway miles")

	if !strings.Contains(out, "acknowledging without progressing") {
		t.Error("expected validation-loop body")
	}
}

func TestStagePrompt_LowIntentRoute(t *testing.T) {
	a := newAssembler(t)
	out := a.StagePrompt("transactional", "intent", "", nil, "just browsing, no rush")

	if !strings.Contains(out, "browsing with no stated goal") {
		t.Error("expected low-intent body in intent stage")
	}
}

func TestStagePrompt_StageDefaultRoute(t *testing.T) {
	a := newAssembler(t)
	out := a.StagePrompt("transactional", "close", "", nil, "alright then, moving along")
	if !strings.Contains(out, "specific commitment") {
		t.Error("expected close stage template in default route")
	}

	out = a.StagePrompt("transactional", "unmapped_stage", "", nil, "alright then, moving along")
	if !strings.Contains(out, "Advance the conversation toward the current stage goal") {
		t.Error("expected generic template for an unmapped stage")
	}
}

func TestStagePrompt_GuardedAdjustment(t *testing.T) {
	a := newAssembler(t)
	out := a.StagePrompt("transactional", "discovery", "", nil, "fine")

	if !strings.Contains(out, "<ADJUSTMENTS>") {
		t.Fatal("expected adjustments section for guarded reply")
	}
	if !strings.Contains(out, "short, guarded replies") {
		t.Error("expected guarded adjustment line")
	}
}

func TestStagePrompt_QuestionFatigueAdjustment(t *testing.T) {
	a := newAssembler(t)
	history := turns(
		"it runs fine",
		"What's your budget?",
		"around twenty",
		"And when do you need it?",
	)
	out := a.StagePrompt("transactional", "discovery", "", history, "soon I suppose, fairly soon")

	if !strings.Contains(out, "must not end with a question") {
		t.Error("expected question-fatigue adjustment line")
	}
}

func TestStagePrompt_NoAdjustmentsWhenCalm(t *testing.T) {
	a := newAssembler(t)
	out := a.StagePrompt("transactional", "discovery", "", nil, "I drive about forty miles every day")
	if strings.Contains(out, "<ADJUSTMENTS>") {
		t.Error("no adjustments expected for a neutral substantive message")
	}
}

func TestStagePrompt_BuyerSignals(t *testing.T) {
	a := newAssembler(t)
	history := turns(
		"I want something safe for the kids",
		"Safety first, understood.",
		"and affordable, we are on a budget",
		"Noted.",
	)
	out := a.StagePrompt("transactional", "pitch", "", history, "so what do you have")

	if !strings.Contains(out, "<BUYER SIGNALS>") {
		t.Fatal("expected buyer signals section")
	}
	if !strings.Contains(out, "Stated priorities: budget, safety") {
		t.Errorf("expected extracted priorities, got:\n%s", out)
	}
	if !strings.Contains(out, "Their own words:") {
		t.Error("expected user vocabulary line")
	}
}

func TestStagePrompt_HistoryWindow(t *testing.T) {
	a := newAssembler(t)
	history := turns(
		"turn one content here",
		"reply one",
		"turn two content here",
		"reply two",
		"turn three content here",
		"reply three",
		"turn four content here",
		"reply four",
		"turn five content here",
		"reply five",
	)
	out := a.StagePrompt("transactional", "pitch", "", history, "anything else to mention")

	if !strings.Contains(out, "<RECENT CONVERSATION>") {
		t.Fatal("expected recent conversation section")
	}
	// Window of eight keeps the last four exchanges only.
	if strings.Contains(out, "turn one content here") {
		t.Error("oldest turn should fall outside the history window")
	}
	if !strings.Contains(out, "Buyer: turn two content here") {
		t.Error("expected windowed turns with role labels")
	}
	if !strings.Contains(out, "Seller: reply five") {
		t.Error("expected latest assistant turn in window")
	}
}
