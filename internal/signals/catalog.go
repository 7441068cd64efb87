// Package signals provides the immutable signal catalog loaded at startup
// and the whole-word keyword matcher used by the NLU analyzer and the stage
// engine. The catalog is shared read-only across all conversation sessions.
package signals

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/shaf-aston/salestrainer/internal/models"
)

// Category names that must be present in the signals configuration.
// Startup fails if any of these is missing or empty.
const (
	CategoryLowIntent         = "low_intent"
	CategoryHighIntent        = "high_intent"
	CategoryGoalIndicators    = "goal_indicators"
	CategoryGuarded           = "guarded"
	CategoryDirectInfoRequest = "direct_info_request"
	CategoryImpatience        = "impatience"
	CategoryDemandDirectness  = "demand_directness"
	CategoryRepetitionMarkers = "repetition_markers"
	CategoryCommitment        = "commitment"
	CategoryObjection         = "objection"
	CategoryWalkaway          = "walkaway"
	CategoryDoubt             = "doubt"
	CategoryEmotionalStakes   = "emotional_stakes"
	CategoryPurchaseVerbs     = "purchase_verbs"
	CategoryIntentKeywords    = "intent_keywords"
	CategoryValidationPhrases = "validation_phrases"
	CategoryQuestionWords     = "question_words"
	CategoryRhetoricalMarkers = "rhetorical_markers"
	CategorySoftPositive      = "soft_positive"
	CategoryStopWords         = "stop_words"
)

// RequiredCategories lists every category the catalog must carry.
var RequiredCategories = []string{
	CategoryLowIntent,
	CategoryHighIntent,
	CategoryGoalIndicators,
	CategoryGuarded,
	CategoryDirectInfoRequest,
	CategoryImpatience,
	CategoryDemandDirectness,
	CategoryRepetitionMarkers,
	CategoryCommitment,
	CategoryObjection,
	CategoryWalkaway,
	CategoryDoubt,
	CategoryEmotionalStakes,
	CategoryPurchaseVerbs,
	CategoryIntentKeywords,
	CategoryValidationPhrases,
	CategoryQuestionWords,
	CategoryRhetoricalMarkers,
	CategorySoftPositive,
	CategoryStopWords,
}

// Thresholds holds the numeric cutoffs that gate analyzer decisions.
type Thresholds struct {
	ShortMessageMaxWords  int `yaml:"short_message_max_words"`
	SubstantiveMinWords   int `yaml:"substantive_min_words"`
	QuestionFatigueWindow int `yaml:"question_fatigue_window"`
	QuestionFatigueMin    int `yaml:"question_fatigue_min"`
	ValidationWindow      int `yaml:"validation_window"`
	ValidationMin         int `yaml:"validation_min"`
	RecentUserTurns       int `yaml:"recent_user_turns"`
	MaxUserKeywords       int `yaml:"max_user_keywords"`
	MinKeywordLength      int `yaml:"min_keyword_length"`
	HistoryWindow         int `yaml:"history_window"`
	ChatWindow            int `yaml:"chat_window"`
}

// ObjectionSpec describes one objection type: the keywords that identify it,
// the reframing strategies to choose between, and guidance text for the
// prompt assembler. Specs are evaluated in catalog order, first match wins.
type ObjectionSpec struct {
	Type       models.ObjectionType `yaml:"type"`
	Keywords   []string             `yaml:"keywords"`
	Strategies []string             `yaml:"strategies"`
	Guidance   string               `yaml:"guidance"`
}

// PreferenceCategory maps a named user preference (budget, safety, ...) to
// the keywords that signal it.
type PreferenceCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CatalogSpec is the raw, decoded form of the signals configuration
// document. config.Load decodes YAML into this and hands it to NewCatalog.
type CatalogSpec struct {
	Categories  map[string][]string  `yaml:"categories"`
	Thresholds  Thresholds           `yaml:"thresholds"`
	Objections  []ObjectionSpec      `yaml:"objections"`
	Preferences []PreferenceCategory `yaml:"preferences"`
}

// Catalog is the immutable, process-wide table of signal keyword lists and
// thresholds. It is constructed once at startup and never mutated, so it
// needs no locking when shared across sessions.
type Catalog struct {
	categories  map[string][]string
	thresholds  Thresholds
	objections  []ObjectionSpec
	preferences []PreferenceCategory
	stopWords   map[string]struct{}
}

// NewCatalog validates a decoded catalog spec and builds the immutable
// catalog. Any missing required category, empty keyword list, or
// non-positive threshold is a startup failure.
func NewCatalog(spec CatalogSpec) (*Catalog, error) {
	if spec.Categories == nil {
		return nil, fmt.Errorf("signals catalog: categories section missing")
	}
	for _, name := range RequiredCategories {
		keywords, ok := spec.Categories[name]
		if !ok {
			return nil, fmt.Errorf("signals catalog: required category %q missing", name)
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("signals catalog: required category %q is empty", name)
		}
	}

	if err := validateThresholds(spec.Thresholds); err != nil {
		return nil, err
	}

	if len(spec.Objections) == 0 {
		return nil, fmt.Errorf("signals catalog: objections section missing or empty")
	}
	seenTypes := make(map[models.ObjectionType]bool)
	for i, obj := range spec.Objections {
		if obj.Type == "" {
			return nil, fmt.Errorf("signals catalog: objection %d has no type", i)
		}
		if seenTypes[obj.Type] {
			return nil, fmt.Errorf("signals catalog: duplicate objection type %q", obj.Type)
		}
		seenTypes[obj.Type] = true
		if len(obj.Keywords) == 0 {
			return nil, fmt.Errorf("signals catalog: objection %q has no keywords", obj.Type)
		}
		if len(obj.Strategies) == 0 {
			return nil, fmt.Errorf("signals catalog: objection %q has no strategies", obj.Type)
		}
		if obj.Guidance == "" {
			return nil, fmt.Errorf("signals catalog: objection %q has no guidance", obj.Type)
		}
	}

	if len(spec.Preferences) == 0 {
		return nil, fmt.Errorf("signals catalog: preferences section missing or empty")
	}
	for i, pref := range spec.Preferences {
		if pref.Name == "" || len(pref.Keywords) == 0 {
			return nil, fmt.Errorf("signals catalog: preference %d malformed", i)
		}
	}

	stopWords := make(map[string]struct{}, len(spec.Categories[CategoryStopWords]))
	for _, w := range spec.Categories[CategoryStopWords] {
		stopWords[w] = struct{}{}
	}

	slog.Info("signals.NewCatalog: catalog constructed",
		"categories", len(spec.Categories),
		"objectionTypes", len(spec.Objections),
		"preferences", len(spec.Preferences))

	return &Catalog{
		categories:  spec.Categories,
		thresholds:  spec.Thresholds,
		objections:  spec.Objections,
		preferences: spec.Preferences,
		stopWords:   stopWords,
	}, nil
}

func validateThresholds(t Thresholds) error {
	checks := []struct {
		name  string
		value int
	}{
		{"short_message_max_words", t.ShortMessageMaxWords},
		{"substantive_min_words", t.SubstantiveMinWords},
		{"question_fatigue_window", t.QuestionFatigueWindow},
		{"question_fatigue_min", t.QuestionFatigueMin},
		{"validation_window", t.ValidationWindow},
		{"validation_min", t.ValidationMin},
		{"recent_user_turns", t.RecentUserTurns},
		{"max_user_keywords", t.MaxUserKeywords},
		{"min_keyword_length", t.MinKeywordLength},
		{"history_window", t.HistoryWindow},
		{"chat_window", t.ChatWindow},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("signals catalog: threshold %s must be positive, got %d", c.name, c.value)
		}
	}
	return nil
}

// Category returns the keyword list for a named category. Unknown names
// return nil; callers use the Category* constants so this only happens for
// optional product-specific categories.
func (c *Catalog) Category(name string) []string {
	return c.categories[name]
}

// Thresholds returns the numeric cutoffs loaded at startup.
func (c *Catalog) Thresholds() Thresholds {
	return c.thresholds
}

// Objections returns the priority-ordered objection specs.
func (c *Catalog) Objections() []ObjectionSpec {
	return c.objections
}

// Preferences returns the configured preference categories.
func (c *Catalog) Preferences() []PreferenceCategory {
	return c.preferences
}

// IsStopWord reports whether a token belongs to the stop-word set.
func (c *Catalog) IsStopWord(token string) bool {
	_, ok := c.stopWords[token]
	return ok
}

// CategoryNames returns the sorted names of all loaded categories, for
// logging and diagnostics.
func (c *Catalog) CategoryNames() []string {
	names := make([]string, 0, len(c.categories))
	for name := range c.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
