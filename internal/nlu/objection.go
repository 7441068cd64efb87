package nlu

import (
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/shaf-aston/salestrainer/internal/models"
	"github.com/shaf-aston/salestrainer/internal/signals"
)

// objectionHistoryWindow is how many trailing user turns are combined with
// the current message when classifying an objection.
const objectionHistoryWindow = 4

// UnknownObjectionGuidance is used when no configured objection type
// matches.
const UnknownObjectionGuidance = "Acknowledge the concern, recall the user's stated goal, and ask what specifically is blocking them."

// Rand is the injectable randomness source used for strategy selection,
// seedable in tests for deterministic output.
type Rand interface {
	IntN(n int) int
}

// defaultRand delegates to math/rand/v2's shared generator.
type defaultRand struct{}

func (defaultRand) IntN(n int) int { return rand.IntN(n) }

// ObjectionClassifier classifies user objections against the catalog's
// priority-ordered objection specs. Type selection is deterministic; only
// the reframing strategy within the matched type is randomized.
type ObjectionClassifier struct {
	catalog *signals.Catalog
	matcher *signals.Matcher
	rng     Rand
}

// NewObjectionClassifier creates a classifier using the shared generator
// for strategy selection.
func NewObjectionClassifier(catalog *signals.Catalog, matcher *signals.Matcher) *ObjectionClassifier {
	return &ObjectionClassifier{catalog: catalog, matcher: matcher, rng: defaultRand{}}
}

// NewObjectionClassifierWithRand creates a classifier with an explicit
// randomness source.
func NewObjectionClassifierWithRand(catalog *signals.Catalog, matcher *signals.Matcher, rng Rand) *ObjectionClassifier {
	return &ObjectionClassifier{catalog: catalog, matcher: matcher, rng: rng}
}

// Classify tests the catalog's objection specs, in order, against the
// combined text of the last few user turns plus the current message and
// returns the first matching type. When nothing matches it returns the
// unknown type with generic guidance.
func (oc *ObjectionClassifier) Classify(message string, history []models.Turn) models.ObjectionClassification {
	combined := oc.combinedUserText(message, history)

	for _, spec := range oc.catalog.Objections() {
		if !oc.matcher.MatchesAny(combined, spec.Keywords) {
			continue
		}
		strategy := spec.Strategies[oc.rng.IntN(len(spec.Strategies))]
		slog.Debug("ObjectionClassifier.Classify: objection matched",
			"type", spec.Type, "strategy", strategy)
		return models.ObjectionClassification{
			Type:     spec.Type,
			Strategy: strategy,
			Guidance: spec.Guidance,
		}
	}

	slog.Debug("ObjectionClassifier.Classify: no objection type matched")
	return models.ObjectionClassification{
		Type:     models.ObjectionUnknown,
		Strategy: "acknowledge_and_refocus",
		Guidance: UnknownObjectionGuidance,
	}
}

func (oc *ObjectionClassifier) combinedUserText(message string, history []models.Turn) string {
	parts := []string{message}
	count := 0
	for i := len(history) - 1; i >= 0 && count < objectionHistoryWindow; i-- {
		if history[i].Role == models.RoleUser {
			parts = append(parts, history[i].Content)
			count++
		}
	}
	return strings.Join(parts, " ")
}
