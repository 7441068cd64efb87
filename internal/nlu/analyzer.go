// Package nlu provides lightweight natural-language signal analysis over
// conversation history: intent estimation, guardedness, question fatigue,
// preference and vocabulary extraction, and objection classification. All
// analysis is stateless; results are derived fresh each turn from history
// plus the current message and never cached.
package nlu

import (
	"log/slog"
	"strings"

	"github.com/shaf-aston/salestrainer/internal/models"
	"github.com/shaf-aston/salestrainer/internal/signals"
)

// Analyzer bundles the shared catalog and matcher. It holds no per-session
// state and is safe to share across sessions.
type Analyzer struct {
	catalog *signals.Catalog
	matcher *signals.Matcher
}

// NewAnalyzer creates an analyzer over the given catalog and matcher.
func NewAnalyzer(catalog *signals.Catalog, matcher *signals.Matcher) *Analyzer {
	return &Analyzer{catalog: catalog, matcher: matcher}
}

// AnalyzeState derives the per-turn analysis result from history and the
// latest user message.
//
// Intent defaults to medium and is pulled low or high by phrase matches in
// the recent user text. A goal-indicator match anywhere in the visible user
// history locks intent to high: once the user has stated a clear goal the
// conversation is never treated as browsing again, regardless of later
// low-intent phrasing.
func (a *Analyzer) AnalyzeState(history []models.Turn, message string) models.AnalysisResult {
	result := models.AnalysisResult{Intent: models.IntentMedium}

	recent := a.recentUserText(history, message)
	if a.matcher.MatchesAny(recent, a.catalog.Category(signals.CategoryLowIntent)) {
		result.Intent = models.IntentLow
	} else if a.matcher.MatchesAny(recent, a.catalog.Category(signals.CategoryHighIntent)) {
		result.Intent = models.IntentHigh
	}

	// Intent lock takes precedence over both the low/high phrase scan and
	// any turn-cap safeguards downstream: stated goals beat timeouts.
	if a.matcher.MatchesAny(a.allUserText(history, message), a.catalog.Category(signals.CategoryGoalIndicators)) {
		result.Intent = models.IntentHigh
	}

	result.Guarded = a.isGuarded(history, message)
	result.QuestionFatigue = a.QuestionFatigue(history)

	slog.Debug("Analyzer.AnalyzeState: analysis complete",
		"intent", result.Intent, "guarded", result.Guarded, "questionFatigue", result.QuestionFatigue)
	return result
}

// isGuarded flags short, deflecting replies. A short affirmative directly
// after a substantive answer to an assistant question is an agreement
// pattern, not guardedness.
func (a *Analyzer) isGuarded(history []models.Turn, message string) bool {
	t := a.catalog.Thresholds()
	if wordCount(message) > t.ShortMessageMaxWords {
		return false
	}
	if !a.matcher.MatchesAny(message, a.catalog.Category(signals.CategoryGuarded)) {
		return false
	}

	lastAssistant, okA := lastTurnOfRole(history, models.RoleAssistant)
	lastUser, okU := lastTurnOfRole(history, models.RoleUser)
	if okA && okU &&
		strings.Contains(lastAssistant.Content, "?") &&
		wordCount(lastUser.Content) >= t.SubstantiveMinWords {
		return false
	}
	return true
}

// QuestionFatigue reports whether the assistant has been peppering the user
// with questions: at least question_fatigue_min of the assistant turns
// among the last question_fatigue_window turns contain a question mark.
func (a *Analyzer) QuestionFatigue(history []models.Turn) bool {
	t := a.catalog.Thresholds()
	window := lastTurns(history, t.QuestionFatigueWindow)
	questions := 0
	for _, turn := range window {
		if turn.Role == models.RoleAssistant && strings.Contains(turn.Content, "?") {
			questions++
		}
	}
	return questions >= t.QuestionFatigueMin
}

// ExtractPreferences scans all user turns for configured preference
// categories. Set semantics: duplicates collapse, and the result is
// returned in catalog order for determinism.
func (a *Analyzer) ExtractPreferences(history []models.Turn) []string {
	var found []string
	for _, pref := range a.catalog.Preferences() {
		for _, turn := range history {
			if turn.Role != models.RoleUser {
				continue
			}
			if a.matcher.MatchesAny(turn.Content, pref.Keywords) {
				found = append(found, pref.Name)
				break
			}
		}
	}
	return found
}

// ExtractUserKeywords tokenizes all user turns, drops short tokens and stop
// words, deduplicates preserving first-seen order, and returns the last max
// unique tokens. The most recent vocabulary is the most relevant for
// mirroring the user's own words back.
func (a *Analyzer) ExtractUserKeywords(history []models.Turn, max int) []string {
	t := a.catalog.Thresholds()
	seen := make(map[string]bool)
	var unique []string
	for _, turn := range history {
		if turn.Role != models.RoleUser {
			continue
		}
		for _, token := range strings.Fields(signals.Normalize(turn.Content)) {
			token = strings.Trim(token, ".,!?;:'\"()")
			if len(token) < t.MinKeywordLength || a.catalog.IsStopWord(token) || seen[token] {
				continue
			}
			seen[token] = true
			unique = append(unique, token)
		}
	}
	if len(unique) > max {
		unique = unique[len(unique)-max:]
	}
	return unique
}

// IsRepetitiveValidation detects the assistant stalling by repeatedly
// acknowledging instead of progressing: at least validation_min of the
// assistant turns among the last validation_window turns contain a
// validation phrase.
func (a *Analyzer) IsRepetitiveValidation(history []models.Turn) bool {
	t := a.catalog.Thresholds()
	window := lastTurns(history, t.ValidationWindow)
	count := 0
	for _, turn := range window {
		if turn.Role != models.RoleAssistant {
			continue
		}
		if a.matcher.MatchesAny(turn.Content, a.catalog.Category(signals.CategoryValidationPhrases)) {
			count++
		}
	}
	return count >= t.ValidationMin
}

// IsLiteralQuestion reports whether the message is a direct question that
// deserves a direct answer. Rhetorical questions and compound multi-clause
// remarks are excluded so they do not trigger the direct-answer override.
func (a *Analyzer) IsLiteralQuestion(message string) bool {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return false
	}

	normalized := signals.Normalize(trimmed)
	firstWord := normalized
	if idx := strings.IndexByte(normalized, ' '); idx > 0 {
		firstWord = normalized[:idx]
	}

	startsWithQuestionWord := false
	for _, qw := range a.catalog.Category(signals.CategoryQuestionWords) {
		if firstWord == signals.Normalize(qw) {
			startsWithQuestionWord = true
			break
		}
	}
	if !startsWithQuestionWord && !strings.HasSuffix(trimmed, "?") {
		return false
	}

	if a.matcher.MatchesAny(message, a.catalog.Category(signals.CategoryRhetoricalMarkers)) {
		return false
	}
	// Any comma-separated clause before the question reads as commentary
	// with a tag question, not a direct question.
	if clauseCount(trimmed) > 1 {
		return false
	}
	return true
}

// UserDemandsDirectness reports whether the user is explicitly demanding a
// direct answer, or repeating themselves after at least one full exchange.
func (a *Analyzer) UserDemandsDirectness(history []models.Turn, message string) bool {
	if a.matcher.MatchesAny(message, a.catalog.Category(signals.CategoryDemandDirectness)) {
		return true
	}
	if len(history) >= 2 &&
		a.matcher.MatchesAny(message, a.catalog.Category(signals.CategoryRepetitionMarkers)) {
		return true
	}
	return false
}

// recentUserText joins the current message with the last recent_user_turns
// user turns.
func (a *Analyzer) recentUserText(history []models.Turn, message string) string {
	t := a.catalog.Thresholds()
	parts := []string{message}
	count := 0
	for i := len(history) - 1; i >= 0 && count < t.RecentUserTurns; i-- {
		if history[i].Role == models.RoleUser {
			parts = append(parts, history[i].Content)
			count++
		}
	}
	return strings.Join(parts, " ")
}

// allUserText joins every user turn with the current message.
func (a *Analyzer) allUserText(history []models.Turn, message string) string {
	parts := []string{message}
	for _, turn := range history {
		if turn.Role == models.RoleUser {
			parts = append(parts, turn.Content)
		}
	}
	return strings.Join(parts, " ")
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func clauseCount(s string) int {
	count := 0
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count
}

func lastTurns(history []models.Turn, n int) []models.Turn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func lastTurnOfRole(history []models.Turn, role models.Role) (models.Turn, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == role {
			return history[i], true
		}
	}
	return models.Turn{}, false
}
