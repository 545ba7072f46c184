package orchestrator

import (
	"fmt"

	"github.com/Bradley1112/nurture/internal/agent"
	"github.com/Bradley1112/nurture/internal/expertise"
)

// Intensity describes how hard a session pushes the student.
type Intensity string

const (
	IntensityModerate  Intensity = "moderate"
	IntensityGentle    Intensity = "gentle"
	IntensityEngaging  Intensity = "engaging"
	IntensityIntensive Intensity = "intensive"
)

// Profile is the base session shape for one expertise level.
type Profile struct {
	Strategy      string     `mapstructure:"strategy" yaml:"strategy"`
	LearningRatio int        `mapstructure:"learning_ratio" yaml:"learning_ratio"`
	Agent         agent.Role `mapstructure:"agent" yaml:"agent"`
	Mode          agent.Mode `mapstructure:"mode" yaml:"mode"`
	Intensity     Intensity  `mapstructure:"intensity" yaml:"intensity"`
}

// Config is the data-driven decision table.
type Config struct {
	// Profiles is keyed by expertise level name.
	Profiles map[string]Profile `mapstructure:"profiles" yaml:"profiles"`

	// DefaultExamHorizonDays is used when no exam date is known.
	DefaultExamHorizonDays int `mapstructure:"default_exam_horizon_days" yaml:"default_exam_horizon_days"`

	// StressThreshold: stress strictly above this triggers the calming override.
	StressThreshold     int `mapstructure:"stress_threshold" yaml:"stress_threshold"`
	StressLearningBoost int `mapstructure:"stress_learning_boost" yaml:"stress_learning_boost"`

	// FocusThreshold: focus strictly below this triggers the engagement override.
	FocusThreshold int `mapstructure:"focus_threshold" yaml:"focus_threshold"`

	// ExamWindowDays: an exam strictly closer than this triggers exam focus.
	ExamWindowDays     int    `mapstructure:"exam_window_days" yaml:"exam_window_days"`
	ExamLearningCut    int    `mapstructure:"exam_learning_cut" yaml:"exam_learning_cut"`
	ExamStrategySuffix string `mapstructure:"exam_strategy_suffix" yaml:"exam_strategy_suffix"`
}

// DefaultConfig returns the standard decision table.
func DefaultConfig() Config {
	return Config{
		Profiles: map[string]Profile{
			string(expertise.Beginner): {
				Strategy: "Foundation Building", LearningRatio: 80,
				Agent: agent.Tutor, Mode: agent.Learning, Intensity: IntensityModerate,
			},
			string(expertise.Apprentice): {
				Strategy: "Guided Practice", LearningRatio: 60,
				Agent: agent.Teacher, Mode: agent.Learning, Intensity: IntensityModerate,
			},
			string(expertise.Pro): {
				Strategy: "Applied Problem Solving", LearningRatio: 40,
				Agent: agent.Teacher, Mode: agent.Learning, Intensity: IntensityModerate,
			},
			string(expertise.Grandmaster): {
				Strategy: "Exam Mastery", LearningRatio: 20,
				Agent: agent.PerfectScorer, Mode: agent.Practice, Intensity: IntensityModerate,
			},
		},
		DefaultExamHorizonDays: 90,
		StressThreshold:        4,
		StressLearningBoost:    20,
		FocusThreshold:         2,
		ExamWindowDays:         30,
		ExamLearningCut:        20,
		ExamStrategySuffix:     " (Exam Focused)",
	}
}

// Profile returns the base profile for level, falling back to the beginner
// profile for an unknown level.
func (c Config) Profile(level expertise.Level) Profile {
	if p, ok := c.Profiles[string(level)]; ok {
		return p
	}
	return c.Profiles[string(expertise.Beginner)]
}

// Validate checks that every level has a profile with a usable ratio.
func (c Config) Validate() error {
	for _, lv := range expertise.Ladder {
		p, ok := c.Profiles[string(lv)]
		if !ok {
			return fmt.Errorf("orchestrator: no profile for level %s", lv)
		}
		if p.LearningRatio < 0 || p.LearningRatio > 100 {
			return fmt.Errorf("orchestrator: %s learning ratio %d outside 0..100", lv, p.LearningRatio)
		}
		if !p.Mode.Valid() {
			return fmt.Errorf("orchestrator: %s has unknown mode %q", lv, p.Mode)
		}
		if p.Agent == "" {
			return fmt.Errorf("orchestrator: %s has no agent", lv)
		}
	}
	if c.DefaultExamHorizonDays <= 0 {
		return fmt.Errorf("orchestrator: default exam horizon must be positive")
	}
	return nil
}
