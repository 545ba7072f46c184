package progress

import (
	"math"
	"time"

	"github.com/Bradley1112/nurture/internal/analysis"
	"github.com/Bradley1112/nurture/internal/expertise"
)

// Accumulate folds this session's accuracy into prev's statistics.
func Accumulate(prev *TopicProgress, accuracy float64, m *expertise.Machine) expertise.Stats {
	n := prev.TotalSessions
	if n < 0 {
		n = 0
	}
	avg := (prev.PerformanceHistory.AverageAccuracy*float64(n) + accuracy) / float64(n+1)
	return expertise.Stats{
		AverageAccuracy: clamp01(expertise.Round(avg)),
		TotalSessions:   n + 1,
		Trend:           m.Trend(prev.PerformanceHistory.AverageAccuracy, n > 0, accuracy),
	}
}

// SessionUpdate is everything one finished session contributes.
type SessionUpdate struct {
	Summary           SessionSummary
	QuestionsAnswered int
	Stats             expertise.Stats
	Level             expertise.Level
	NextSteps         analysis.Recommendation
	Subtopics         []string
	At                time.Time

	// RecentCap bounds RecentSessions; zero means DefaultRecentSessionsCap.
	RecentCap int
}

// Apply returns the record that results from adding u to prev. prev is not
// modified.
func Apply(prev *TopicProgress, u SessionUpdate) *TopicProgress {
	next := *prev
	at := u.At.UTC()

	next.ExpertiseLevel = u.Level
	next.TotalSessions = u.Stats.TotalSessions
	next.LastStudied = &at

	next.PerformanceHistory = PerformanceHistory{
		AverageAccuracy:   clamp01(u.Stats.AverageAccuracy),
		QuestionsAnswered: prev.PerformanceHistory.QuestionsAnswered + max(u.QuestionsAnswered, 0),
		LastSessionDate:   &at,
		Trend:             u.Stats.Trend,
	}

	limit := u.RecentCap
	if limit <= 0 {
		limit = DefaultRecentSessionsCap
	}
	next.RecentSessions = PrependSession(prev.RecentSessions, u.Summary, limit)

	merged, added := MergeSubtopics(prev.Progression.CoveredSubtopics, u.Subtopics)
	next.Progression = Progression{
		CoveredSubtopics: merged,
		LastSubtopic:     prev.Progression.LastSubtopic,
		ProgressionStage: len(merged),
		LastUpdated:      &at,
	}
	if added {
		last := merged[len(merged)-1]
		next.Progression.LastSubtopic = &last
	}

	rec := u.NextSteps
	next.NextSteps = &rec
	return &next
}

// PrependSession puts s first and keeps at most limit summaries.
func PrependSession(prior []SessionSummary, s SessionSummary, limit int) []SessionSummary {
	out := make([]SessionSummary, 0, limit)
	out = append(out, s)
	for _, p := range prior {
		if len(out) == limit {
			break
		}
		out = append(out, p)
	}
	return out
}

// MergeSubtopics returns the ordered union of prior and detected and whether
// detected contributed any new tag.
func MergeSubtopics(prior, detected []string) ([]string, bool) {
	merged := make([]string, 0, len(prior)+len(detected))
	seen := make(map[string]bool, len(prior)+len(detected))
	for _, s := range prior {
		if !seen[s] {
			seen[s] = true
			merged = append(merged, s)
		}
	}
	added := false
	for _, s := range detected {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		merged = append(merged, s)
		added = true
	}
	return merged, added
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
