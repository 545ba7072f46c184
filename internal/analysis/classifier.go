package analysis

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Classifier tags instructional text with the subtopics it covers.
// Implementations return tags in the order they were detected; an unknown
// subject yields no tags and no error.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, subject, text string) ([]string, error)
}

// KeywordClassifier matches text against the configured keyword tables.
type KeywordClassifier struct {
	cfg Config
}

// NewKeywordClassifier creates a classifier over cfg's subtopic tables.
func NewKeywordClassifier(cfg Config) *KeywordClassifier {
	return &KeywordClassifier{cfg: cfg}
}

// Name returns "keyword".
func (k *KeywordClassifier) Name() string { return ClassifierKeyword }

// Classify returns every tag whose keywords appear in text, in table order.
func (k *KeywordClassifier) Classify(_ context.Context, subject, text string) ([]string, error) {
	rules := k.cfg.Subtopics[k.cfg.ResolveSubject(subject)]
	if len(rules) == 0 {
		return nil, nil
	}
	norm := normalize(text)
	var tags []string
	for _, r := range rules {
		if containsAny(norm, r.Keywords) {
			tags = append(tags, r.Tag)
		}
	}
	return tags, nil
}

// Tags lists the tags known for subject.
func (k *KeywordClassifier) Tags(subject string) []string {
	return k.cfg.Tags(subject)
}

// FallbackClassifier uses Primary and falls back to Secondary when Primary
// returns an error.
type FallbackClassifier struct {
	Primary   Classifier
	Secondary Classifier
	Logger    *zap.Logger
}

// Name joins the primary and secondary names with "+".
func (f *FallbackClassifier) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

// Classify returns the primary result, or the secondary one when the
// primary fails.
func (f *FallbackClassifier) Classify(ctx context.Context, subject, text string) ([]string, error) {
	tags, err := f.Primary.Classify(ctx, subject, text)
	if err == nil {
		return tags, nil
	}
	if f.Logger != nil {
		f.Logger.Warn("subtopic classifier failed, using fallback",
			zap.String("classifier", f.Primary.Name()),
			zap.String("fallback", f.Secondary.Name()),
			zap.Error(err))
	}
	return f.Secondary.Classify(ctx, subject, text)
}

// normalize lower-cases s and folds typographic apostrophes so that
// "don’t" matches "don't".
func normalize(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer("’", "'", "‘", "'").Replace(s)
}

// containsAny reports whether norm contains any needle as a substring.
// Subtopic keywords are stems ("factoris", "inequalit") and rely on this.
func containsAny(norm string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(norm, normalize(n)) {
			return true
		}
	}
	return false
}

// containsPhrase reports whether norm contains any needle as a whole word
// or phrase, so "correct" does not match "incorrect" and "help" does not
// match "helpful".
func containsPhrase(norm string, needles []string) bool {
	for _, n := range needles {
		n = normalize(n)
		if n == "" {
			continue
		}
		for from := 0; from < len(norm); {
			i := strings.Index(norm[from:], n)
			if i < 0 {
				break
			}
			start, end := from+i, from+i+len(n)
			if wordBoundaryBefore(norm, start) && wordBoundaryAfter(norm, end) {
				return true
			}
			from = start + 1
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordBoundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func wordBoundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

// appendUnique appends the values of add not already in dst, preserving
// first-seen order.
func appendUnique(dst []string, add ...string) []string {
	for _, a := range add {
		dup := false
		for _, d := range dst {
			if d == a {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, a)
		}
	}
	return dst
}
