package personalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bradley1112/nurture/internal/agent"
	"github.com/Bradley1112/nurture/internal/analysis"
	"github.com/Bradley1112/nurture/internal/expertise"
	"github.com/Bradley1112/nurture/internal/orchestrator"
	"github.com/Bradley1112/nurture/internal/progress"
	"github.com/Bradley1112/nurture/internal/store"
)

var key = store.Key{UserID: "u1", SubjectID: "algebra", TopicID: "quadratics"}

func studied() *progress.TopicProgress {
	tp := progress.Scaffold(key)
	last := "quadratic_formula"
	at := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	tp.TotalSessions = 2
	tp.LastStudied = &at
	tp.PerformanceHistory.AverageAccuracy = 0.7
	tp.PerformanceHistory.Trend = expertise.TrendImproving
	tp.RecentSessions = []progress.SessionSummary{
		{SessionID: "s2", Summary: "Practiced the quadratic formula with the teacher.", Accuracy: 0.8},
		{SessionID: "s1", Summary: "Intro.", Accuracy: 0.6},
	}
	tp.Progression = progress.Progression{
		CoveredSubtopics: []string{"quadratic_equations", "quadratic_formula"},
		LastSubtopic:     &last,
		ProgressionStage: 2,
	}
	tp.NextSteps = &analysis.Recommendation{
		Content:          "Good progress at 80% accuracy.",
		RecommendedMode:  agent.Learning,
		RecommendedAgent: agent.Teacher,
		LearningRatio:    50,
		PracticeRatio:    50,
		StrugglingAreas:  []string{},
		MasteredConcepts: []string{"core concepts"},
		Confidence:       8,
	}
	return tp
}

func TestBuild_NilWithoutNextSteps(t *testing.T) {
	assert.Nil(t, Build(progress.Scaffold(key)))
	assert.Nil(t, Build(nil))
}

func TestBuild_FromHistory(t *testing.T) {
	cfg := Build(studied())
	require.NotNil(t, cfg)

	assert.Equal(t, agent.Learning, cfg.InitialMode)
	assert.Equal(t, agent.Teacher, cfg.PrimaryAgent)
	assert.Equal(t, 50, cfg.LearningRatio)
	assert.Equal(t, 50, cfg.PracticeRatio)

	ctx := cfg.Context
	assert.Equal(t, []string{"core concepts"}, ctx.MasteredConcepts)
	assert.Equal(t, 0.8, ctx.PreviousAccuracy)
	assert.Equal(t, expertise.TrendImproving, ctx.Trend)
	assert.Equal(t, 2, ctx.TotalPreviousSessions)
	assert.Equal(t, "quadratic_formula", ctx.LastSubtopic)
	assert.Equal(t, 2, ctx.ProgressionStage)

	assert.Equal(t, "Welcome back! Last time: Practiced the quadratic formula with the teacher.\n"+
		"Today's focus: Good progress at 80% accuracy.\n"+
		"We left off at quadratic formula.\n"+
		"Progress trend: ↗ improving\n"+
		"Confidence: 8/10", cfg.WelcomeMessage)
}

func TestBuild_NoLastSubtopicLine(t *testing.T) {
	tp := studied()
	tp.Progression.LastSubtopic = nil
	cfg := Build(tp)
	require.NotNil(t, cfg)
	assert.NotContains(t, cfg.WelcomeMessage, "left off")
	assert.Empty(t, cfg.Context.LastSubtopic)
}

func TestBuild_Idempotent(t *testing.T) {
	tp := studied()
	first := Build(tp)
	second := Build(tp)
	assert.Equal(t, first, second)

	// Mutating the output does not leak into the record.
	first.Context.CoveredSubtopics[0] = "changed"
	assert.Equal(t, "quadratic_equations", tp.Progression.CoveredSubtopics[0])
	assert.Equal(t, second, Build(tp))
}

func TestDefaults(t *testing.T) {
	cfg := Defaults(expertise.Grandmaster, orchestrator.DefaultConfig())
	assert.Equal(t, agent.Practice, cfg.InitialMode)
	assert.Equal(t, agent.PerfectScorer, cfg.PrimaryAgent)
	assert.Equal(t, 20, cfg.LearningRatio)
	assert.Equal(t, 80, cfg.PracticeRatio)
	assert.Empty(t, cfg.WelcomeMessage)

	cfg = Defaults("unknown", orchestrator.DefaultConfig())
	assert.Equal(t, agent.Tutor, cfg.PrimaryAgent)
	assert.Equal(t, expertise.TrendNew, cfg.Context.Trend)
}

func TestTrendIndicator(t *testing.T) {
	assert.Equal(t, "↗", TrendIndicator(expertise.TrendImproving))
	assert.Equal(t, "↘", TrendIndicator(expertise.TrendDeclining))
	assert.Equal(t, "→", TrendIndicator(expertise.TrendStable))
	assert.Equal(t, "✨", TrendIndicator(expertise.TrendNew))
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "kinematic equations", Humanize("kinematic_equations"))
	assert.Equal(t, "", Humanize(""))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 88, Percent(0.875))
}
