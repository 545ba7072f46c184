// Package orchestrator decides, before a session starts, how to blend
// instruction and practice and which agent leads.
//
// Decide is a pure function: all inputs, including the reference time, are
// explicit, so the same inputs always yield the same Decision.
package orchestrator

import (
	"math"
	"time"

	"github.com/Bradley1112/nurture/internal/agent"
	"github.com/Bradley1112/nurture/internal/expertise"
)

// Inputs are the pre-session signals the decision is made on.
type Inputs struct {
	ExpertiseLevel         expertise.Level `json:"expertiseLevel"`
	FocusLevel             int             `json:"focusLevel"`  // 1-10
	StressLevel            int             `json:"stressLevel"` // 1-10
	SessionDurationMinutes int             `json:"sessionDurationMinutes"`
	ExamDate               *time.Time      `json:"examDate,omitempty"`
}

// AdaptiveFactors records which overrides fired.
type AdaptiveFactors struct {
	HighStress  bool `json:"highStress"`
	LowFocus    bool `json:"lowFocus"`
	ExamUrgency bool `json:"examUrgency"`
}

// Decision is the initial strategy for a session.
type Decision struct {
	Strategy               string          `json:"strategy"`
	LearningRatio          int             `json:"learningRatio"`
	PracticeRatio          int             `json:"practiceRatio"`
	PrimaryAgent           agent.Role      `json:"primaryAgent"`
	Intensity              Intensity       `json:"intensity"`
	InitialMode            agent.Mode      `json:"initialMode"`
	TimeToExam             int             `json:"timeToExam"`
	SessionDurationMinutes int             `json:"sessionDurationMinutes"`
	AdaptiveFactors        AdaptiveFactors `json:"adaptiveFactors"`
}

// Decide applies the decision table to in.
//
// Rule order matters: the stress/focus override runs before exam urgency, so
// exam urgency has the last word on intensity, while ratio adjustments add up
// and are normalized only at the end.
func Decide(cfg Config, in Inputs, now time.Time) Decision {
	level, ok := expertise.ParseLevel(string(in.ExpertiseLevel))
	if !ok {
		level = expertise.Beginner
	}
	base := cfg.Profile(level)

	d := Decision{
		Strategy:               base.Strategy,
		PrimaryAgent:           base.Agent,
		Intensity:              base.Intensity,
		InitialMode:            base.Mode,
		TimeToExam:             DaysUntil(in.ExamDate, now, cfg.DefaultExamHorizonDays),
		SessionDurationMinutes: in.SessionDurationMinutes,
	}
	learning := base.LearningRatio

	switch {
	case in.StressLevel > cfg.StressThreshold:
		d.PrimaryAgent = agent.PerfectScorer
		d.Intensity = IntensityGentle
		d.AdaptiveFactors.HighStress = true
		learning += cfg.StressLearningBoost
	case in.FocusLevel < cfg.FocusThreshold:
		d.PrimaryAgent = agent.PerfectScorer
		d.Intensity = IntensityEngaging
		d.AdaptiveFactors.LowFocus = true
	}

	if d.TimeToExam < cfg.ExamWindowDays {
		d.Strategy += cfg.ExamStrategySuffix
		d.Intensity = IntensityIntensive
		d.AdaptiveFactors.ExamUrgency = true
		learning -= cfg.ExamLearningCut
	}

	blend := agent.NewBlend(learning)
	d.LearningRatio, d.PracticeRatio = blend.Learning, blend.Practice
	return d
}

// DaysUntil returns the whole days from now until exam, rounded up.
// A nil exam yields fallback; an exam already in the past yields 0.
func DaysUntil(exam *time.Time, now time.Time, fallback int) int {
	if exam == nil || exam.IsZero() {
		return fallback
	}
	days := int(math.Ceil(exam.Sub(now).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}
