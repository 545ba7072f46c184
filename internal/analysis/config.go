package analysis

import (
	"fmt"
	"strings"
)

// Classifier modes.
const (
	ClassifierKeyword = "keyword"
	ClassifierLLM     = "llm"
)

// SubtopicRule maps any of its keywords to Tag.
type SubtopicRule struct {
	Tag      string   `mapstructure:"tag" yaml:"tag"`
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`
}

// Config holds the lexicons, thresholds and subtopic tables used by the
// analyzer.
type Config struct {
	ConfusionLexicon []string `mapstructure:"confusion_lexicon" yaml:"confusion_lexicon"`
	SuccessLexicon   []string `mapstructure:"success_lexicon" yaml:"success_lexicon"`

	// TutorTurnThreshold: more tutor turns than this flags a conceptual gap.
	TutorTurnThreshold int `mapstructure:"tutor_turn_threshold" yaml:"tutor_turn_threshold"`

	ProblemSolvingMinCorrect int     `mapstructure:"problem_solving_min_correct" yaml:"problem_solving_min_correct"`
	CoreConceptsAccuracy     float64 `mapstructure:"core_concepts_accuracy" yaml:"core_concepts_accuracy"`

	// ConceptsForFullAccuracy is the number of learned concepts that counts
	// as full accuracy when no questions were answered.
	ConceptsForFullAccuracy int `mapstructure:"concepts_for_full_accuracy" yaml:"concepts_for_full_accuracy"`

	PracticeAccuracy       float64 `mapstructure:"practice_accuracy" yaml:"practice_accuracy"`
	RemediateAccuracy      float64 `mapstructure:"remediate_accuracy" yaml:"remediate_accuracy"`
	PracticeLearningRatio  int     `mapstructure:"practice_learning_ratio" yaml:"practice_learning_ratio"`
	RemediateLearningRatio int     `mapstructure:"remediate_learning_ratio" yaml:"remediate_learning_ratio"`
	BalancedLearningRatio  int     `mapstructure:"balanced_learning_ratio" yaml:"balanced_learning_ratio"`

	// MasteryScale is the session count a zero-accuracy student is
	// estimated to need.
	MasteryScale int `mapstructure:"mastery_scale" yaml:"mastery_scale"`

	// Subtopics is keyed by lower-case subject name. Rule order is the
	// order tags are reported in.
	Subtopics      map[string][]SubtopicRule `mapstructure:"subtopics" yaml:"subtopics"`
	SubjectAliases map[string]string         `mapstructure:"subject_aliases" yaml:"subject_aliases"`

	Classifier string `mapstructure:"classifier" yaml:"classifier"`
}

// DefaultConfig returns the built-in lexicons and subject tables.
func DefaultConfig() Config {
	return Config{
		ConfusionLexicon:         []string{"confused", "don't understand", "help", "explain again", "stuck"},
		SuccessLexicon:           []string{"excellent", "great job", "correct", "well done", "mastered"},
		TutorTurnThreshold:       2,
		ProblemSolvingMinCorrect: 3,
		CoreConceptsAccuracy:     0.75,
		ConceptsForFullAccuracy:  5,
		PracticeAccuracy:         0.8,
		RemediateAccuracy:        0.5,
		PracticeLearningRatio:    30,
		RemediateLearningRatio:   75,
		BalancedLearningRatio:    50,
		MasteryScale:             5,
		Subtopics: map[string][]SubtopicRule{
			"algebra": {
				{Tag: "linear_equations", Keywords: []string{"linear equation", "linear", "solve for x", "ax + b"}},
				{Tag: "quadratic_equations", Keywords: []string{"quadratic", "x²", "x^2", "second degree"}},
				{Tag: "factorisation", Keywords: []string{"factoris", "factoriz", "factor", "common factor"}},
				{Tag: "quadratic_formula", Keywords: []string{"quadratic formula", "discriminant", "b² - 4ac", "b^2 - 4ac"}},
				{Tag: "simultaneous_equations", Keywords: []string{"simultaneous", "system of equations", "elimination method", "substitution method"}},
				{Tag: "inequalities", Keywords: []string{"inequalit", "greater than", "less than"}},
			},
			"kinematics": {
				{Tag: "displacement", Keywords: []string{"displacement", "distance travelled", "distance traveled"}},
				{Tag: "velocity", Keywords: []string{"velocity", "speed"}},
				{Tag: "acceleration", Keywords: []string{"acceleration", "accelerat", "decelerat"}},
				{Tag: "kinematic_equations", Keywords: []string{"kinematic equation", "equations of motion", "suvat", "v = u + at", "s = ut"}},
			},
		},
		SubjectAliases: map[string]string{
			"math":        "algebra",
			"maths":       "algebra",
			"mathematics": "algebra",
			"physics":     "kinematics",
		},
		Classifier: ClassifierKeyword,
	}
}

// ResolveSubject maps a subject name or alias to its table key.
func (c Config) ResolveSubject(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))
	if alias, ok := c.SubjectAliases[s]; ok {
		return alias
	}
	return s
}

// Tags returns the known tags for subject in table order.
func (c Config) Tags(subject string) []string {
	rules := c.Subtopics[c.ResolveSubject(subject)]
	tags := make([]string, 0, len(rules))
	for _, r := range rules {
		tags = append(tags, r.Tag)
	}
	return tags
}

// Validate rejects thresholds and ratios that cannot be applied.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"core_concepts_accuracy": c.CoreConceptsAccuracy,
		"practice_accuracy":      c.PracticeAccuracy,
		"remediate_accuracy":     c.RemediateAccuracy,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("analysis: %s %.2f outside [0,1]", name, v)
		}
	}
	for name, v := range map[string]int{
		"practice_learning_ratio":  c.PracticeLearningRatio,
		"remediate_learning_ratio": c.RemediateLearningRatio,
		"balanced_learning_ratio":  c.BalancedLearningRatio,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("analysis: %s %d outside 0..100", name, v)
		}
	}
	if c.ConceptsForFullAccuracy <= 0 {
		return fmt.Errorf("analysis: concepts_for_full_accuracy must be positive")
	}
	if c.MasteryScale <= 0 {
		return fmt.Errorf("analysis: mastery_scale must be positive")
	}
	for subject, rules := range c.Subtopics {
		seen := make(map[string]bool, len(rules))
		for _, r := range rules {
			if r.Tag == "" || len(r.Keywords) == 0 {
				return fmt.Errorf("analysis: subject %s has a rule without tag or keywords", subject)
			}
			if seen[r.Tag] {
				return fmt.Errorf("analysis: subject %s lists tag %s twice", subject, r.Tag)
			}
			seen[r.Tag] = true
		}
	}
	switch c.Classifier {
	case "", ClassifierKeyword, ClassifierLLM:
	default:
		return fmt.Errorf("analysis: unknown classifier %q", c.Classifier)
	}
	return nil
}
