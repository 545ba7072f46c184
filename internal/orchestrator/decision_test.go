package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bradley1112/nurture/internal/agent"
	"github.com/Bradley1112/nurture/internal/expertise"
)

var refNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func examIn(days int) *time.Time {
	t := refNow.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

func TestDecide_BaseProfiles(t *testing.T) {
	tests := []struct {
		level    expertise.Level
		learning int
		agent    agent.Role
		mode     agent.Mode
	}{
		{expertise.Beginner, 80, agent.Tutor, agent.Learning},
		{expertise.Apprentice, 60, agent.Teacher, agent.Learning},
		{expertise.Pro, 40, agent.Teacher, agent.Learning},
		{expertise.Grandmaster, 20, agent.PerfectScorer, agent.Practice},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			d := Decide(DefaultConfig(), Inputs{ExpertiseLevel: tt.level, FocusLevel: 7, StressLevel: 3}, refNow)
			assert.Equal(t, tt.learning, d.LearningRatio)
			assert.Equal(t, 100-tt.learning, d.PracticeRatio)
			assert.Equal(t, tt.agent, d.PrimaryAgent)
			assert.Equal(t, tt.mode, d.InitialMode)
			assert.Equal(t, IntensityModerate, d.Intensity)
			assert.Equal(t, 90, d.TimeToExam)
			assert.Equal(t, AdaptiveFactors{}, d.AdaptiveFactors)
		})
	}
}

func TestDecide_StressedProWithExamSoon(t *testing.T) {
	d := Decide(DefaultConfig(), Inputs{
		ExpertiseLevel: expertise.Pro,
		FocusLevel:     7,
		StressLevel:    6,
		ExamDate:       examIn(10),
	}, refNow)

	assert.Equal(t, agent.PerfectScorer, d.PrimaryAgent)
	assert.Equal(t, IntensityIntensive, d.Intensity)
	assert.Equal(t, 40, d.LearningRatio)
	assert.Equal(t, 60, d.PracticeRatio)
	assert.Equal(t, 10, d.TimeToExam)
	assert.Equal(t, "Applied Problem Solving (Exam Focused)", d.Strategy)
	assert.True(t, d.AdaptiveFactors.HighStress)
	assert.True(t, d.AdaptiveFactors.ExamUrgency)
	assert.False(t, d.AdaptiveFactors.LowFocus)
}

func TestDecide_LowFocusKeepsRatio(t *testing.T) {
	d := Decide(DefaultConfig(), Inputs{ExpertiseLevel: expertise.Apprentice, FocusLevel: 1, StressLevel: 2}, refNow)
	assert.Equal(t, agent.PerfectScorer, d.PrimaryAgent)
	assert.Equal(t, IntensityEngaging, d.Intensity)
	assert.Equal(t, 60, d.LearningRatio)
	assert.True(t, d.AdaptiveFactors.LowFocus)
}

func TestDecide_StressWinsOverLowFocus(t *testing.T) {
	d := Decide(DefaultConfig(), Inputs{ExpertiseLevel: expertise.Beginner, FocusLevel: 1, StressLevel: 9}, refNow)
	assert.Equal(t, IntensityGentle, d.Intensity)
	assert.True(t, d.AdaptiveFactors.HighStress)
	assert.False(t, d.AdaptiveFactors.LowFocus)
	assert.Equal(t, 100, d.LearningRatio)
	assert.Equal(t, 0, d.PracticeRatio)
}

func TestDecide_UnknownLevelUsesBeginnerProfile(t *testing.T) {
	d := Decide(DefaultConfig(), Inputs{ExpertiseLevel: "sage", FocusLevel: 5, StressLevel: 1}, refNow)
	assert.Equal(t, 80, d.LearningRatio)
	assert.Equal(t, agent.Tutor, d.PrimaryAgent)
}

func TestDecide_RatiosAlwaysSumTo100(t *testing.T) {
	windows := []*time.Time{nil, examIn(5), examIn(29), examIn(30), examIn(200), examIn(-3)}
	for _, lv := range expertise.Ladder {
		for stress := 1; stress <= 10; stress++ {
			for focus := 1; focus <= 10; focus++ {
				for _, exam := range windows {
					d := Decide(DefaultConfig(), Inputs{ExpertiseLevel: lv, FocusLevel: focus, StressLevel: stress, ExamDate: exam}, refNow)
					require.Equal(t, 100, d.LearningRatio+d.PracticeRatio)
					require.GreaterOrEqual(t, d.LearningRatio, 0)
					require.LessOrEqual(t, d.LearningRatio, 100)
				}
			}
		}
	}
}

func TestDecide_Deterministic(t *testing.T) {
	in := Inputs{ExpertiseLevel: expertise.Pro, FocusLevel: 3, StressLevel: 5, ExamDate: examIn(12)}
	assert.Equal(t, Decide(DefaultConfig(), in, refNow), Decide(DefaultConfig(), in, refNow))
}

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, 90, DaysUntil(nil, refNow, 90))
	assert.Equal(t, 30, DaysUntil(examIn(30), refNow, 90))
	partial := refNow.Add(36 * time.Hour)
	assert.Equal(t, 2, DaysUntil(&partial, refNow, 90))
	assert.Equal(t, 0, DaysUntil(examIn(-4), refNow, 90))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	delete(cfg.Profiles, "pro")
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	p := cfg.Profiles["beginner"]
	p.LearningRatio = 130
	cfg.Profiles["beginner"] = p
	assert.Error(t, cfg.Validate())
}
