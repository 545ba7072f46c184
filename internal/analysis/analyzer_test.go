package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Bradley1112/nurture/internal/agent"
)

func msg(sender agent.Role, content string) Message {
	return Message{Sender: sender, Content: content}
}

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(DefaultConfig(), nil, zap.NewNop())
}

func TestAccuracy(t *testing.T) {
	a := newTestAnalyzer()
	tests := []struct {
		name string
		in   Telemetry
		want float64
	}{
		{"answered", Telemetry{QuestionsAnswered: 4, CorrectAnswers: 3}, 0.75},
		{"proxy", Telemetry{ConceptsLearned: 2}, 0.4},
		{"proxy capped", Telemetry{ConceptsLearned: 9}, 1},
		{"nothing", Telemetry{}, 0},
		{"over-reported correct", Telemetry{QuestionsAnswered: 2, CorrectAnswers: 5}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, a.Accuracy(tt.in), 1e-9)
		})
	}
}

func TestAnalyze_ConfusedStudentWithThreeTutorTurns(t *testing.T) {
	out := newTestAnalyzer().Analyze(context.Background(), Input{
		Subject:   "algebra",
		Telemetry: Telemetry{QuestionsAnswered: 4, CorrectAnswers: 2},
		Transcript: []Message{
			msg(agent.Tutor, "Let's start with the basics."),
			msg(agent.Student, "I'm confused about this"),
			msg(agent.Tutor, "No problem, let's go slower."),
			msg(agent.Tutor, "Here is another way to see it."),
		},
	})

	assert.Equal(t, []string{AreaConceptual, AreaExplanations}, out.Recommendation.StrugglingAreas)
	assert.Equal(t, agent.Learning, out.Recommendation.RecommendedMode)
	assert.Equal(t, agent.Tutor, out.Recommendation.RecommendedAgent)
	assert.Equal(t, 75, out.Recommendation.LearningRatio)
	assert.Equal(t, 25, out.Recommendation.PracticeRatio)
	assert.Contains(t, out.Recommendation.Content, "conceptual understanding and requires additional explanations")
}

func TestAnalyze_PerfectFirstSession(t *testing.T) {
	out := newTestAnalyzer().Analyze(context.Background(), Input{
		Subject:   "algebra",
		Telemetry: Telemetry{QuestionsAnswered: 5, CorrectAnswers: 5},
	})

	assert.Equal(t, 1.0, out.Accuracy)
	assert.Equal(t, []string{ConceptProblemSolving, ConceptCore}, out.Recommendation.MasteredConcepts)
	assert.Empty(t, out.Recommendation.StrugglingAreas)
	assert.NotNil(t, out.Recommendation.StrugglingAreas)
	assert.Equal(t, agent.Practice, out.Recommendation.RecommendedMode)
	assert.Equal(t, agent.Teacher, out.Recommendation.RecommendedAgent)
	assert.Equal(t, 30, out.Recommendation.LearningRatio)
	assert.Equal(t, 70, out.Recommendation.PracticeRatio)
	assert.Equal(t, 10, out.Recommendation.Confidence)
	assert.Equal(t, 1, out.Recommendation.EstimatedSessionsToMastery)
}

func TestAnalyze_Branches(t *testing.T) {
	tests := []struct {
		name     string
		tel      Telemetry
		script   []Message
		mode     agent.Mode
		agent    agent.Role
		learning int
	}{
		{
			name:     "high accuracy with mastery goes to practice",
			tel:      Telemetry{QuestionsAnswered: 10, CorrectAnswers: 9},
			mode:     agent.Practice,
			agent:    agent.Teacher,
			learning: 30,
		},
		{
			name:     "high accuracy but struggling still remediates",
			tel:      Telemetry{QuestionsAnswered: 10, CorrectAnswers: 7},
			script:   []Message{msg(agent.Student, "I'm stuck")},
			mode:     agent.Learning,
			agent:    agent.Tutor,
			learning: 75,
		},
		{
			name:     "low accuracy remediates",
			tel:      Telemetry{QuestionsAnswered: 10, CorrectAnswers: 4},
			mode:     agent.Learning,
			agent:    agent.Tutor,
			learning: 75,
		},
		{
			name:     "middle ground is balanced",
			tel:      Telemetry{QuestionsAnswered: 10, CorrectAnswers: 6},
			mode:     agent.Learning,
			agent:    agent.Teacher,
			learning: 50,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := newTestAnalyzer().Analyze(context.Background(), Input{Subject: "algebra", Telemetry: tt.tel, Transcript: tt.script})
			rec := out.Recommendation
			assert.Equal(t, tt.mode, rec.RecommendedMode)
			assert.Equal(t, tt.agent, rec.RecommendedAgent)
			assert.Equal(t, tt.learning, rec.LearningRatio)
			assert.Equal(t, 100, rec.LearningRatio+rec.PracticeRatio)
			assert.NotEmpty(t, rec.Content)
		})
	}
}

func TestAnalyze_SuccessLexiconOnlyCountsInstructors(t *testing.T) {
	a := newTestAnalyzer()

	out := a.Analyze(context.Background(), Input{Transcript: []Message{msg(agent.Student, "I think that's correct")}})
	assert.NotContains(t, out.Recommendation.MasteredConcepts, ConceptCompetency)

	out = a.Analyze(context.Background(), Input{Transcript: []Message{msg(agent.PerfectScorer, "Well done!")}})
	assert.Contains(t, out.Recommendation.MasteredConcepts, ConceptCompetency)
}

func TestAnalyze_LexiconsMatchWholeWords(t *testing.T) {
	a := newTestAnalyzer()

	out := a.Analyze(context.Background(), Input{Transcript: []Message{msg(agent.Teacher, "Not quite, that's incorrect.")}})
	assert.NotContains(t, out.Recommendation.MasteredConcepts, ConceptCompetency)

	out = a.Analyze(context.Background(), Input{Transcript: []Message{msg(agent.Student, "This is helpful, thanks")}})
	assert.Empty(t, out.Recommendation.StrugglingAreas)

	out = a.Analyze(context.Background(), Input{Transcript: []Message{msg(agent.Teacher, "Correct, well done.")}})
	assert.Contains(t, out.Recommendation.MasteredConcepts, ConceptCompetency)

	out = a.Analyze(context.Background(), Input{Transcript: []Message{msg(agent.Student, "help!")}})
	assert.Equal(t, []string{AreaExplanations}, out.Recommendation.StrugglingAreas)
}

func TestContainsPhrase(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"that's correct", true},
		{"incorrect", false},
		{"correctly done", false},
		{"i don't understand", true},
		{"i don't understandably", false},
		{"stuck.", true},
		{"unstuck now", false},
		{"", false},
	}
	needles := []string{"correct", "don't understand", "stuck"}
	for _, tt := range tests {
		assert.Equal(t, tt.want, containsPhrase(tt.text, needles), tt.text)
	}
}

func TestAnalyze_CurlyApostropheMatchesLexicon(t *testing.T) {
	out := newTestAnalyzer().Analyze(context.Background(), Input{
		Transcript: []Message{msg(agent.Student, "I don’t understand step two")},
	})
	assert.Equal(t, []string{AreaExplanations}, out.Recommendation.StrugglingAreas)
}

func TestAnalyze_CoveredSubtopicsInstructorOnlyDeduped(t *testing.T) {
	out := newTestAnalyzer().Analyze(context.Background(), Input{
		Subject: "Mathematics",
		Transcript: []Message{
			msg(agent.Student, "Can we do inequalities?"),
			msg(agent.Teacher, "First, a linear equation: solve for x."),
			msg(agent.Tutor, "Now the quadratic formula uses the discriminant."),
			msg(agent.Teacher, "Back to linear equations once more."),
		},
	})
	assert.Equal(t, []string{"linear_equations", "quadratic_equations", "quadratic_formula"}, out.Recommendation.CoveredSubtopics)
}

func TestAnalyze_UnknownSubjectHasNoSubtopics(t *testing.T) {
	out := newTestAnalyzer().Analyze(context.Background(), Input{
		Subject:    "history",
		Transcript: []Message{msg(agent.Teacher, "velocity and displacement")},
	})
	assert.Empty(t, out.Recommendation.CoveredSubtopics)
	assert.NotNil(t, out.Recommendation.CoveredSubtopics)
}

type failingClassifier struct{}

func (failingClassifier) Name() string { return "failing" }
func (failingClassifier) Classify(context.Context, string, string) ([]string, error) {
	return nil, errors.New("boom")
}

func TestAnalyze_ClassifierErrorIsLoggedAndSkipped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	a := NewAnalyzer(DefaultConfig(), failingClassifier{}, zap.New(core))

	out := a.Analyze(context.Background(), Input{
		Subject:    "kinematics",
		Telemetry:  Telemetry{QuestionsAnswered: 1, CorrectAnswers: 1},
		Transcript: []Message{msg(agent.Teacher, "velocity")},
	})
	require.NotNil(t, out)
	assert.Empty(t, out.Recommendation.CoveredSubtopics)
	assert.Equal(t, 1, logs.FilterMessage("subtopic classification failed").Len())
}

func TestSessionsToMastery(t *testing.T) {
	a := newTestAnalyzer()
	tests := []struct {
		acc  float64
		want int
	}{
		{0, 5},
		{0.2, 4},
		{0.6, 2},
		{0.75, 2},
		{0.8, 1},
		{0.95, 1},
		{1, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.sessionsToMastery(tt.acc), "accuracy %.2f", tt.acc)
	}
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 10, confidence(1, 0))
	assert.Equal(t, 5, confidence(0.7, 2))
	assert.Equal(t, 0, confidence(0.1, 2))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.PracticeAccuracy = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Classifier = "magic"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Subtopics["algebra"] = append(cfg.Subtopics["algebra"], SubtopicRule{Tag: "inequalities", Keywords: []string{"x"}})
	assert.Error(t, cfg.Validate())
}
