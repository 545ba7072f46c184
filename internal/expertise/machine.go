// Package expertise tracks a student's mastery tier per topic and decides
// when the tier advances.
//
// The ladder is forward-only: beginner → apprentice → pro → grandmaster.
// Grandmaster is absorbing and no input ever lowers a level.
package expertise

import (
	"fmt"

	"go.uber.org/zap"
)

// Stats are the post-session statistics a promotion is judged on.
type Stats struct {
	AverageAccuracy float64
	TotalSessions   int
	Trend           Trend
}

// Promotion records a level change for display and logging.
type Promotion struct {
	From    Level
	To      Level
	Stats   Stats
	Message string
}

// Machine evaluates the promotion ladder.
type Machine struct {
	rules     map[Level]Rule
	threshold float64
	log       *zap.Logger
}

// NewMachine builds a Machine from cfg. A nil logger discards anomaly reports.
func NewMachine(cfg Config, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	rules := make(map[Level]Rule, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rules[r.From] = r
	}
	return &Machine{rules: rules, threshold: cfg.TrendThreshold, log: log}
}

// Trend classifies this session's accuracy against the prior average using
// the configured band.
func (m *Machine) Trend(priorAverage float64, hasHistory bool, accuracy float64) Trend {
	return ClassifyTrend(priorAverage, hasHistory, accuracy, m.threshold)
}

// Normalize returns stored as a Level, coercing anything unrecognized to
// Beginner and logging the anomaly.
func (m *Machine) Normalize(stored Level) Level {
	if lv, ok := ParseLevel(string(stored)); ok {
		return lv
	}
	m.log.Warn("expertise level anomaly: coercing to beginner",
		zap.String("stored_level", string(stored)))
	return Beginner
}

// Evaluate returns the level after this session and, when the level moved,
// the Promotion that moved it. At most one step is taken per call.
func (m *Machine) Evaluate(current Level, stats Stats) (Level, *Promotion) {
	current = m.Normalize(current)

	rule, ok := m.rules[current]
	if !ok {
		// No outgoing rule: grandmaster, or a ladder configured to stop early.
		return current, nil
	}
	if Round(stats.AverageAccuracy) < rule.MinAccuracy ||
		stats.TotalSessions < rule.MinSessions ||
		!stats.Trend.AllowsPromotion() {
		return current, nil
	}

	p := &Promotion{
		From:  current,
		To:    rule.To,
		Stats: stats,
		Message: fmt.Sprintf("Congratulations! You've been promoted from %s to %s with %.0f%% average accuracy across %d sessions.",
			current.Title(), rule.To.Title(), stats.AverageAccuracy*100, stats.TotalSessions),
	}
	m.log.Info("expertise promotion",
		zap.String("from", string(p.From)),
		zap.String("to", string(p.To)),
		zap.Float64("average_accuracy", stats.AverageAccuracy),
		zap.Int("total_sessions", stats.TotalSessions),
		zap.String("trend", string(stats.Trend)))
	return rule.To, p
}
