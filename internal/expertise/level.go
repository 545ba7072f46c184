package expertise

import (
	"math"
	"strings"
)

// Level is a student's discrete mastery tier on one topic.
type Level string

const (
	Beginner    Level = "beginner"
	Apprentice  Level = "apprentice"
	Pro         Level = "pro"
	Grandmaster Level = "grandmaster"
)

// Ladder is the promotion order, lowest tier first.
var Ladder = []Level{Beginner, Apprentice, Pro, Grandmaster}

// Rank returns the position of l on the ladder, or -1 for an unknown level.
func (l Level) Rank() int {
	for i, lv := range Ladder {
		if lv == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is one of the four known tiers.
func (l Level) Valid() bool {
	return l.Rank() >= 0
}

// Title returns the display name of the level.
func (l Level) Title() string {
	if l == "" {
		return ""
	}
	return strings.ToUpper(string(l[:1])) + string(l[1:])
}

// ParseLevel normalizes s into a Level. The boolean is false when s does not
// name a known tier.
func ParseLevel(s string) (Level, bool) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	return l, l.Valid()
}

// Trend is the short-term direction of accuracy between consecutive sessions.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
	TrendNew       Trend = "new"
)

// AllowsPromotion reports whether a promotion may fire under this trend.
func (t Trend) AllowsPromotion() bool {
	return t == TrendImproving || t == TrendStable
}

// Round drops float noise below 1e-9 so that decimal thresholds compare
// as written: 0.75-0.9 is exactly -0.15 and the mean of 0.7, 0.8 and 0.9
// is exactly 0.8.
func Round(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

// ClassifyTrend compares this session's accuracy with the prior cumulative
// average. Without prior history the trend is TrendNew.
func ClassifyTrend(priorAverage float64, hasHistory bool, accuracy, threshold float64) Trend {
	if !hasHistory {
		return TrendNew
	}
	delta := Round(accuracy - priorAverage)
	switch {
	case delta > threshold:
		return TrendImproving
	case delta < -threshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}
