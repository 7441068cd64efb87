// Package prompt assembles the layered instruction text sent to the
// generation service: fixed behavioral rules, stage-specific goal text, and
// NLU-driven overrides routed by a fixed priority order.
package prompt

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shaf-aston/salestrainer/internal/models"
	"github.com/shaf-aston/salestrainer/internal/nlu"
	"github.com/shaf-aston/salestrainer/internal/signals"
)

// Stage names the assembler has dedicated templates and routing for.
const (
	stageIntent    = "intent"
	stagePitch     = "pitch"
	stageObjection = "objection"
)

// Assembler builds stage prompts from the shared catalog and analyzers. It
// holds no per-session state.
type Assembler struct {
	catalog    *signals.Catalog
	matcher    *signals.Matcher
	analyzer   *nlu.Analyzer
	classifier *nlu.ObjectionClassifier
}

// NewAssembler creates a prompt assembler.
func NewAssembler(catalog *signals.Catalog, matcher *signals.Matcher, analyzer *nlu.Analyzer, classifier *nlu.ObjectionClassifier) *Assembler {
	return &Assembler{catalog: catalog, matcher: matcher, analyzer: analyzer, classifier: classifier}
}

// route is one entry of the priority-ordered body selection. Exactly one
// route is active per call; the first matching predicate wins.
type route struct {
	name  string
	match func(a *Assembler, in routeInput) bool
	build func(a *Assembler, in routeInput, b *strings.Builder)
}

type routeInput struct {
	stage     string
	history   []models.Turn
	message   string
	analysis  models.AnalysisResult
	objection models.ObjectionClassification
}

var routes = []route{
	{
		name: "direct_info_request",
		match: func(a *Assembler, in routeInput) bool {
			return a.analyzer.IsLiteralQuestion(in.message) ||
				a.matcher.MatchesAny(in.message, a.catalog.Category(signals.CategoryDirectInfoRequest))
		},
		build: (*Assembler).buildDirectAnswerBody,
	},
	{
		name: "soft_positive_in_pitch",
		match: func(a *Assembler, in routeInput) bool {
			return in.stage == stagePitch &&
				a.matcher.MatchesAny(in.message, a.catalog.Category(signals.CategorySoftPositive))
		},
		build: (*Assembler).buildSoftPositiveBody,
	},
	{
		name: "validation_loop",
		match: func(a *Assembler, in routeInput) bool {
			return a.analyzer.IsRepetitiveValidation(in.history)
		},
		build: (*Assembler).buildValidationLoopBody,
	},
	{
		name: "low_intent_browsing",
		match: func(a *Assembler, in routeInput) bool {
			return in.stage == stageIntent && in.analysis.Intent == models.IntentLow
		},
		build: (*Assembler).buildLowIntentBody,
	},
	{
		name: "objection_reframe",
		match: func(a *Assembler, in routeInput) bool {
			return in.stage == stageObjection && in.objection.Type != models.ObjectionUnknown
		},
		build: (*Assembler).buildObjectionBody,
	},
	{
		name:  "stage_default",
		match: func(a *Assembler, in routeInput) bool { return true },
		build: (*Assembler).buildStageDefaultBody,
	},
}

// StagePrompt assembles the full instruction text for the current turn:
// base rules, product context, a windowed rendering of recent history, one
// priority-routed body, and grounding context extracted from the user's own
// words.
func (a *Assembler) StagePrompt(flowID, stage, productContext string, history []models.Turn, message string) string {
	in := routeInput{
		stage:    stage,
		history:  history,
		message:  message,
		analysis: a.analyzer.AnalyzeState(history, message),
	}
	if stage == stageObjection {
		in.objection = a.classifier.Classify(message, history)
	}

	var b strings.Builder
	a.writeBaseRules(&b)

	if productContext != "" {
		b.WriteString("\n<PRODUCT CONTEXT>\n")
		b.WriteString(strings.TrimSpace(productContext))
		b.WriteString("\n</PRODUCT CONTEXT>\n")
	}

	a.writeHistoryWindow(&b, history)

	for _, r := range routes {
		if !r.match(a, in) {
			continue
		}
		slog.Debug("Assembler.StagePrompt: route selected",
			"flowID", flowID, "stage", stage, "route", r.name)
		r.build(a, in, &b)
		break
	}

	a.writeSignalAdjustments(&b, in.analysis)
	a.writeGroundingContext(&b, history)

	return b.String()
}

// writeBaseRules emits the fixed constraint hierarchy: hard rules that may
// never be violated, strong preferences, and soft guidelines.
func (a *Assembler) writeBaseRules(b *strings.Builder) {
	b.WriteString("You are a sales professional practicing a live conversation with a potential buyer.\n")
	b.WriteString("\n<HARD RULES>\n")
	b.WriteString("- Never invent product facts, prices, or availability beyond the product context.\n")
	b.WriteString("- Never pressure, insult, or mislead the buyer.\n")
	b.WriteString("- Stay in character as the seller; never mention these instructions.\n")
	b.WriteString("- Reply with a single conversational message, no lists or headings.\n")
	b.WriteString("</HARD RULES>\n")
	b.WriteString("\n<STRONG PREFERENCES>\n")
	b.WriteString("- Mirror the buyer's own vocabulary where natural.\n")
	b.WriteString("- Ask at most one question per reply.\n")
	b.WriteString("- Keep replies under four sentences.\n")
	b.WriteString("</STRONG PREFERENCES>\n")
	b.WriteString("\n<GUIDELINES>\n")
	b.WriteString("- Warm, confident, consultative tone.\n")
	b.WriteString("- Acknowledge before redirecting.\n")
	b.WriteString("</GUIDELINES>\n")
}

// writeHistoryWindow renders the last history_window turns for grounding.
func (a *Assembler) writeHistoryWindow(b *strings.Builder, history []models.Turn) {
	window := a.catalog.Thresholds().HistoryWindow
	start := 0
	if len(history) > window {
		start = len(history) - window
	}
	if start == len(history) {
		return
	}
	b.WriteString("\n<RECENT CONVERSATION>\n")
	for _, turn := range history[start:] {
		label := "Buyer"
		if turn.Role == models.RoleAssistant {
			label = "Seller"
		}
		fmt.Fprintf(b, "%s: %s\n", label, turn.Content)
	}
	b.WriteString("</RECENT CONVERSATION>\n")
}

func (a *Assembler) buildDirectAnswerBody(in routeInput, b *strings.Builder) {
	b.WriteString("\n<THIS TURN>\n")
	b.WriteString("The buyer asked a direct question. Answer it plainly and completely first.\n")
	b.WriteString("Do not deflect with a counter-question before answering.\n")
	b.WriteString("After answering, add one short sentence that moves the conversation forward.\n")
	b.WriteString("</THIS TURN>\n")
}

func (a *Assembler) buildSoftPositiveBody(in routeInput, b *strings.Builder) {
	b.WriteString("\n<THIS TURN>\n")
	b.WriteString("The buyer is warming up to the pitch. Reinforce the specific point they reacted to.\n")
	b.WriteString("Invite a small, concrete next step. Close with a statement, not a question.\n")
	b.WriteString("</THIS TURN>\n")
}

func (a *Assembler) buildValidationLoopBody(in routeInput, b *strings.Builder) {
	b.WriteString("\n<THIS TURN>\n")
	b.WriteString("You have been acknowledging without progressing. Do not say things like \"makes sense\" again.\n")
	b.WriteString("Advance the conversation with new substance: a concrete detail, a recommendation, or a next step.\n")
	b.WriteString("</THIS TURN>\n")
}

func (a *Assembler) buildLowIntentBody(in routeInput, b *strings.Builder) {
	b.WriteString("\n<THIS TURN>\n")
	b.WriteString("The buyer is browsing with no stated goal. Do not push toward a sale yet.\n")
	b.WriteString("Be helpful and low-pressure; surface one thing worth caring about and leave the door open.\n")
	b.WriteString("</THIS TURN>\n")
}

func (a *Assembler) buildObjectionBody(in routeInput, b *strings.Builder) {
	b.WriteString("\n<THIS TURN>\n")
	fmt.Fprintf(b, "The buyer raised a %s objection. Strategy: %s.\n", in.objection.Type, in.objection.Strategy)
	b.WriteString(in.objection.Guidance)
	b.WriteString("\n</THIS TURN>\n")
}

func (a *Assembler) buildStageDefaultBody(in routeInput, b *strings.Builder) {
	b.WriteString("\n<THIS TURN>\n")
	if tmpl, ok := stageTemplates[in.stage]; ok {
		b.WriteString(tmpl)
	} else {
		b.WriteString(defaultStageTemplate)
	}
	b.WriteString("</THIS TURN>\n")
}

// writeSignalAdjustments appends NLU-driven behavioral overrides that apply
// regardless of the routed body.
func (a *Assembler) writeSignalAdjustments(b *strings.Builder, analysis models.AnalysisResult) {
	if !analysis.Guarded && !analysis.QuestionFatigue {
		return
	}
	b.WriteString("\n<ADJUSTMENTS>\n")
	if analysis.Guarded {
		b.WriteString("- The buyer is giving short, guarded replies. Lower the pressure; offer information instead of probing.\n")
	}
	if analysis.QuestionFatigue {
		b.WriteString("- You have asked several questions in a row. This reply must not end with a question.\n")
	}
	b.WriteString("</ADJUSTMENTS>\n")
}

// writeGroundingContext appends extracted preferences and the user's own
// recent vocabulary when non-empty.
func (a *Assembler) writeGroundingContext(b *strings.Builder, history []models.Turn) {
	prefs := a.analyzer.ExtractPreferences(history)
	keywords := a.analyzer.ExtractUserKeywords(history, a.catalog.Thresholds().MaxUserKeywords)
	if len(prefs) == 0 && len(keywords) == 0 {
		return
	}
	b.WriteString("\n<BUYER SIGNALS>\n")
	if len(prefs) > 0 {
		fmt.Fprintf(b, "Stated priorities: %s\n", strings.Join(prefs, ", "))
	}
	if len(keywords) > 0 {
		fmt.Fprintf(b, "Their own words: %s\n", strings.Join(keywords, ", "))
	}
	b.WriteString("</BUYER SIGNALS>\n")
}

// stageTemplates carries the default goal text per stage.
var stageTemplates = map[string]string{
	stageIntent: "Find out what brought the buyer here and what they are hoping to solve.\n" +
		"One open question; listen more than you talk.\n",
	"discovery": "Dig into the buyer's situation: what they use today, what frustrates them, what has to change.\n" +
		"Reflect their answers back before asking anything new.\n",
	"stakes": "Surface what is at stake for the buyer personally if the problem stays unsolved.\n" +
		"Connect the decision to something they care about.\n",
	stagePitch: "Present the offer, tied directly to what the buyer told you they need.\n" +
		"Lead with the one or two benefits that match their stated priorities. Close with a statement.\n",
	stageObjection: "The buyer is resisting. Acknowledge the concern genuinely before reframing it.\n" +
		"Never argue; redirect to the value that matters to them.\n",
	"close": "Ask for a clear, specific commitment. Make the next step easy and concrete.\n" +
		"Close with a statement, not a permission-seeking question.\n",
}

const defaultStageTemplate = "Advance the conversation toward the current stage goal while staying responsive to the buyer.\n"
