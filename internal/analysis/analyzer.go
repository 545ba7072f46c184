// Package analysis turns a finished session's counters and transcript into
// struggling areas, mastered concepts, covered subtopics and a next-steps
// recommendation.
package analysis

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/Bradley1112/nurture/internal/agent"
)

// Struggle and mastery labels.
const (
	AreaConceptual   = "conceptual understanding"
	AreaExplanations = "requires additional explanations"

	ConceptProblemSolving = "basic problem-solving"
	ConceptCore           = "core concepts"
	ConceptCompetency     = "demonstrated competency"
)

// Analyzer derives a Recommendation from a session. It has no side effects
// beyond logging.
type Analyzer struct {
	cfg        Config
	classifier Classifier
	log        *zap.Logger
}

// NewAnalyzer creates an Analyzer. A nil classifier selects the keyword
// tables from cfg.
func NewAnalyzer(cfg Config, classifier Classifier, log *zap.Logger) *Analyzer {
	if classifier == nil {
		classifier = NewKeywordClassifier(cfg)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{cfg: cfg, classifier: classifier, log: log}
}

// Accuracy returns correct/answered, or the concepts-learned proxy when no
// questions were answered. The result is clamped to [0,1].
func (a *Analyzer) Accuracy(t Telemetry) float64 {
	var acc float64
	if t.QuestionsAnswered > 0 {
		acc = float64(t.CorrectAnswers) / float64(t.QuestionsAnswered)
	} else {
		acc = float64(t.ConceptsLearned) / float64(a.cfg.ConceptsForFullAccuracy)
	}
	return clamp01(acc)
}

// Analyze never fails: a classifier error drops that message's tags and is
// logged.
func (a *Analyzer) Analyze(ctx context.Context, in Input) *Outcome {
	acc := a.Accuracy(in.Telemetry)
	struggling := a.struggling(in.Transcript)
	mastered := a.mastered(in.Telemetry, acc, in.Transcript)
	covered := a.covered(ctx, in.Subject, in.Transcript)

	rec := Recommendation{
		StrugglingAreas:            struggling,
		MasteredConcepts:           mastered,
		CoveredSubtopics:           covered,
		Confidence:                 confidence(acc, len(struggling)),
		EstimatedSessionsToMastery: a.sessionsToMastery(acc),
	}

	var learning int
	var branch string
	switch {
	case acc > a.cfg.PracticeAccuracy && len(mastered) > 0:
		branch = branchPractice
		rec.RecommendedMode, rec.RecommendedAgent = agent.Practice, agent.Teacher
		learning = a.cfg.PracticeLearningRatio
	case acc < a.cfg.RemediateAccuracy || len(struggling) > 0:
		branch = branchRemediate
		rec.RecommendedMode, rec.RecommendedAgent = agent.Learning, agent.Tutor
		learning = a.cfg.RemediateLearningRatio
	default:
		branch = branchBalanced
		rec.RecommendedMode, rec.RecommendedAgent = agent.Learning, agent.Teacher
		learning = a.cfg.BalancedLearningRatio
	}
	blend := agent.NewBlend(learning)
	rec.LearningRatio, rec.PracticeRatio = blend.Learning, blend.Practice
	rec.Content = renderContent(branch, contentData{
		Accuracy:   int(math.Round(acc * 100)),
		Struggling: topN(struggling, 2),
		Mastered:   topN(mastered, 2),
	})

	return &Outcome{Accuracy: acc, Recommendation: rec}
}

func (a *Analyzer) struggling(transcript []Message) []string {
	areas := []string{}
	tutorTurns := 0
	confused := false
	for _, m := range transcript {
		switch {
		case strings.EqualFold(string(m.Sender), string(agent.Tutor)):
			tutorTurns++
		case strings.EqualFold(string(m.Sender), string(agent.Student)):
			if containsPhrase(normalize(m.Content), a.cfg.ConfusionLexicon) {
				confused = true
			}
		}
	}
	if tutorTurns > a.cfg.TutorTurnThreshold {
		areas = appendUnique(areas, AreaConceptual)
	}
	if confused {
		areas = appendUnique(areas, AreaExplanations)
	}
	return areas
}

func (a *Analyzer) mastered(t Telemetry, acc float64, transcript []Message) []string {
	concepts := []string{}
	if t.CorrectAnswers >= a.cfg.ProblemSolvingMinCorrect {
		concepts = appendUnique(concepts, ConceptProblemSolving)
	}
	if acc > a.cfg.CoreConceptsAccuracy {
		concepts = appendUnique(concepts, ConceptCore)
	}
	for _, m := range transcript {
		if m.Sender.IsInstructor() && containsPhrase(normalize(m.Content), a.cfg.SuccessLexicon) {
			concepts = appendUnique(concepts, ConceptCompetency)
			break
		}
	}
	return concepts
}

func (a *Analyzer) covered(ctx context.Context, subject string, transcript []Message) []string {
	tags := []string{}
	for i, m := range transcript {
		if !m.Sender.IsInstructor() {
			continue
		}
		found, err := a.classifier.Classify(ctx, subject, m.Content)
		if err != nil {
			a.log.Warn("subtopic classification failed",
				zap.String("classifier", a.classifier.Name()),
				zap.String("subject", subject),
				zap.Int("message", i),
				zap.Error(err))
			continue
		}
		tags = appendUnique(tags, found...)
	}
	return tags
}

func (a *Analyzer) sessionsToMastery(acc float64) int {
	// Round away float noise such as (1-0.6)*5 = 2.0000000000000004.
	n := int(math.Ceil(math.Round((1-acc)*float64(a.cfg.MasteryScale)*1e9) / 1e9))
	if n < 1 {
		return 1
	}
	return n
}

func confidence(acc float64, struggling int) int {
	c := int(math.Round(acc*10)) - struggling
	switch {
	case c < 0:
		return 0
	case c > 10:
		return 10
	}
	return c
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func topN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
