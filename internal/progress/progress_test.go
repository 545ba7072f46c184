package progress

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bradley1112/nurture/internal/agent"
	"github.com/Bradley1112/nurture/internal/analysis"
	"github.com/Bradley1112/nurture/internal/expertise"
	"github.com/Bradley1112/nurture/internal/store"
)

var key = store.Key{UserID: "u1", SubjectID: "physics", TopicID: "motion"}

var t0 = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func machine() *expertise.Machine {
	return expertise.NewMachine(expertise.DefaultConfig(), nil)
}

// session applies one session with the given accuracy and subtopics.
func session(prev *TopicProgress, n int, acc float64, subtopics ...string) *TopicProgress {
	stats := Accumulate(prev, acc, machine())
	level, _ := machine().Evaluate(prev.ExpertiseLevel, stats)
	return Apply(prev, SessionUpdate{
		Summary:           SessionSummary{SessionID: fmt.Sprintf("s%d", n), Date: t0.Add(time.Duration(n) * time.Hour), Accuracy: acc, PrimaryAgent: agent.Tutor, Mode: agent.Learning},
		QuestionsAnswered: 5,
		Stats:             stats,
		Level:             level,
		NextSteps:         analysis.Recommendation{Content: fmt.Sprintf("after %d", n), StrugglingAreas: []string{}},
		Subtopics:         subtopics,
		At:                t0.Add(time.Duration(n) * time.Hour),
	})
}

func TestScaffold(t *testing.T) {
	tp := Scaffold(key)
	assert.Equal(t, expertise.Beginner, tp.ExpertiseLevel)
	assert.Equal(t, 0, tp.TotalSessions)
	assert.Equal(t, expertise.TrendNew, tp.PerformanceHistory.Trend)
	assert.Empty(t, tp.RecentSessions)
	assert.Nil(t, tp.NextSteps)
	assert.Equal(t, key, tp.Key())
	assert.False(t, tp.HasHistory())
	assert.Nil(t, tp.LastSession())
}

func TestAccumulate(t *testing.T) {
	first := Accumulate(Scaffold(key), 0.9, machine())
	assert.InDelta(t, 0.9, first.AverageAccuracy, 1e-9)
	assert.Equal(t, 1, first.TotalSessions)
	assert.Equal(t, expertise.TrendNew, first.Trend)

	prev := Scaffold(key)
	prev.TotalSessions = 1
	prev.PerformanceHistory.AverageAccuracy = 0.9
	second := Accumulate(prev, 0.85, machine())
	assert.InDelta(t, 0.875, second.AverageAccuracy, 1e-9)
	assert.Equal(t, 2, second.TotalSessions)
	assert.Equal(t, expertise.TrendStable, second.Trend)
}

func TestAccumulate_DecimalBoundaries(t *testing.T) {
	m := machine()

	// 0.90 then 0.75 is a drop of exactly the trend band: stable, and the
	// 0.825 average promotes a beginner.
	prev := Scaffold(key)
	prev.TotalSessions = 1
	prev.PerformanceHistory.AverageAccuracy = 0.90
	stats := Accumulate(prev, 0.75, m)
	assert.Equal(t, expertise.TrendStable, stats.Trend)
	lv, p := m.Evaluate(expertise.Beginner, stats)
	assert.Equal(t, expertise.Apprentice, lv)
	assert.NotNil(t, p)

	// 0.7, 0.8, 0.9 average to exactly the apprentice-to-pro threshold.
	tp := Scaffold(key)
	for _, acc := range []float64{0.7, 0.8, 0.9} {
		st := Accumulate(tp, acc, m)
		tp.TotalSessions = st.TotalSessions
		tp.PerformanceHistory.AverageAccuracy = st.AverageAccuracy
	}
	assert.Equal(t, 0.8, tp.PerformanceHistory.AverageAccuracy)
	lv, _ = m.Evaluate(expertise.Apprentice, expertise.Stats{
		AverageAccuracy: tp.PerformanceHistory.AverageAccuracy, TotalSessions: 3, Trend: expertise.TrendStable,
	})
	assert.Equal(t, expertise.Pro, lv)
}

func TestApply_FirstSession(t *testing.T) {
	prev := Scaffold(key)
	next := session(prev, 1, 1.0, "velocity", "acceleration")

	assert.Equal(t, 1, next.TotalSessions)
	assert.Equal(t, expertise.Beginner, next.ExpertiseLevel)
	assert.Equal(t, 5, next.PerformanceHistory.QuestionsAnswered)
	assert.Equal(t, []string{"velocity", "acceleration"}, next.Progression.CoveredSubtopics)
	assert.Equal(t, 2, next.Progression.ProgressionStage)
	require.NotNil(t, next.Progression.LastSubtopic)
	assert.Equal(t, "acceleration", *next.Progression.LastSubtopic)
	require.NotNil(t, next.LastStudied)
	assert.Equal(t, t0.Add(time.Hour), *next.LastStudied)
	require.NotNil(t, next.NextSteps)
	assert.Equal(t, "after 1", next.NextSteps.Content)

	// prev is untouched.
	assert.Equal(t, 0, prev.TotalSessions)
	assert.Empty(t, prev.Progression.CoveredSubtopics)
}

func TestApply_LastSubtopicUnchangedWithoutNewTags(t *testing.T) {
	tp := session(Scaffold(key), 1, 0.8, "velocity")
	tp = session(tp, 2, 0.8, "velocity")
	require.NotNil(t, tp.Progression.LastSubtopic)
	assert.Equal(t, "velocity", *tp.Progression.LastSubtopic)

	tp = session(tp, 3, 0.8)
	assert.Equal(t, "velocity", *tp.Progression.LastSubtopic)
	assert.Equal(t, 1, tp.Progression.ProgressionStage)
}

func TestApply_PromotesAfterTwoStrongSessions(t *testing.T) {
	tp := session(Scaffold(key), 1, 0.9)
	assert.Equal(t, expertise.Beginner, tp.ExpertiseLevel)
	tp = session(tp, 2, 0.85)
	assert.Equal(t, expertise.Apprentice, tp.ExpertiseLevel)
}

func TestApply_RecentSessionsCapped(t *testing.T) {
	tp := Scaffold(key)
	for i := 1; i <= 10; i++ {
		tp = session(tp, i, 0.5)
		assert.LessOrEqual(t, len(tp.RecentSessions), DefaultRecentSessionsCap)
	}
	ids := []string{}
	for _, s := range tp.RecentSessions {
		ids = append(ids, s.SessionID)
	}
	assert.Equal(t, []string{"s10", "s9", "s8"}, ids)
}

func TestApply_InvariantsUnderRandomSessions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tags := []string{"displacement", "velocity", "acceleration", "kinematic_equations"}

	tp := Scaffold(key)
	for i := 1; i <= 200; i++ {
		var detected []string
		for _, tag := range tags {
			if rng.Intn(4) == 0 {
				detected = append(detected, tag)
			}
		}
		before := tp.ExpertiseLevel.Rank()
		tp = session(tp, i, rng.Float64(), detected...)

		require.GreaterOrEqual(t, tp.PerformanceHistory.AverageAccuracy, 0.0)
		require.LessOrEqual(t, tp.PerformanceHistory.AverageAccuracy, 1.0)
		require.Equal(t, len(tp.Progression.CoveredSubtopics), tp.Progression.ProgressionStage)
		require.LessOrEqual(t, len(tp.RecentSessions), 3)
		require.GreaterOrEqual(t, tp.ExpertiseLevel.Rank(), before)

		seen := map[string]bool{}
		for _, s := range tp.Progression.CoveredSubtopics {
			require.False(t, seen[s], "duplicate subtopic %s", s)
			seen[s] = true
		}
	}
}

func TestMergeSubtopics(t *testing.T) {
	merged, added := MergeSubtopics([]string{"a", "b"}, []string{"b", "c", "a", "d", ""})
	assert.Equal(t, []string{"a", "b", "c", "d"}, merged)
	assert.True(t, added)

	merged, added = MergeSubtopics([]string{"a"}, []string{"a"})
	assert.Equal(t, []string{"a"}, merged)
	assert.False(t, added)

	merged, added = MergeSubtopics(nil, nil)
	assert.NotNil(t, merged)
	assert.False(t, added)
}

func TestPrependSession(t *testing.T) {
	prior := []SessionSummary{{SessionID: "b"}, {SessionID: "a"}}
	got := PrependSession(prior, SessionSummary{SessionID: "c"}, 2)
	assert.Equal(t, []SessionSummary{{SessionID: "c"}, {SessionID: "b"}}, got)
	assert.Len(t, prior, 2)
}
