package signals

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// contractions expanded during normalization so that keyword lists only
// need the long form.
var contractions = map[string]string{
	"i'm": "i am", "i've": "i have", "i'll": "i will", "i'd": "i would",
	"can't": "cannot", "won't": "will not", "don't": "do not",
	"doesn't": "does not", "didn't": "did not", "isn't": "is not",
	"aren't": "are not", "wasn't": "was not", "weren't": "were not",
	"hasn't": "has not", "haven't": "have not", "hadn't": "had not",
	"wouldn't": "would not", "shouldn't": "should not", "couldn't": "could not",
	"you're": "you are", "you've": "you have", "you'll": "you will",
	"he's": "he is", "she's": "she is", "it's": "it is", "that's": "that is",
	"what's": "what is", "where's": "where is", "who's": "who is",
	"there's": "there is", "we're": "we are", "we've": "we have",
	"they're": "they are", "they've": "they have",
}

var multiSpace = regexp.MustCompile(`\s+`)

// Matcher performs whole-word, case-insensitive keyword matching. Compiled
// patterns are cached per keyword so repeated lookups across turns are
// cheap; the cache is a performance optimization only and never changes
// matching semantics. Safe for concurrent use across sessions.
type Matcher struct {
	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

// NewMatcher creates a matcher with an empty pattern cache.
func NewMatcher() *Matcher {
	return &Matcher{patterns: make(map[string]*regexp.Regexp)}
}

// Normalize lowercases, NFKD-normalizes, expands contractions, and
// collapses whitespace. Both message text and keywords pass through this so
// matching is stable under punctuation-adjacent unicode and contracted
// phrasing.
func Normalize(text string) string {
	text = norm.NFKD.String(text)

	text = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, text)

	text = strings.ToLower(strings.TrimSpace(text))

	words := strings.Fields(text)
	for i, word := range words {
		trimmed := strings.TrimFunc(word, func(r rune) bool {
			return unicode.IsPunct(r) && r != '\''
		})
		if expansion, ok := contractions[trimmed]; ok {
			words[i] = expansion
		}
	}
	text = strings.Join(words, " ")

	return multiSpace.ReplaceAllString(text, " ")
}

// MatchesAny reports whether any keyword occurs in text as a whole word,
// case-insensitively. Substring hits inside longer words do not count:
// "yes" never matches inside "yesterday".
func (m *Matcher) MatchesAny(text string, keywords []string) bool {
	if text == "" || len(keywords) == 0 {
		return false
	}
	normalized := Normalize(text)
	for _, kw := range keywords {
		if m.pattern(kw).MatchString(normalized) {
			return true
		}
	}
	return false
}

// MatchesAnyCategory is a convenience wrapper for matching against a named
// catalog category.
func (m *Matcher) MatchesAnyCategory(text string, catalog *Catalog, category string) bool {
	return m.MatchesAny(text, catalog.Category(category))
}

// pattern returns the compiled word-boundary pattern for a keyword,
// compiling and caching it on first use.
func (m *Matcher) pattern(keyword string) *regexp.Regexp {
	normalized := Normalize(keyword)

	m.mu.RLock()
	re, ok := m.patterns[normalized]
	m.mu.RUnlock()
	if ok {
		return re
	}

	re = regexp.MustCompile(`\b` + regexp.QuoteMeta(normalized) + `\b`)

	m.mu.Lock()
	m.patterns[normalized] = re
	m.mu.Unlock()
	return re
}
