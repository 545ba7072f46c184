// Package card renders a topic's progress record for the terminal.
package card

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/Bradley1112/nurture/internal/expertise"
	"github.com/Bradley1112/nurture/internal/personalize"
	"github.com/Bradley1112/nurture/internal/progress"
	"github.com/Bradley1112/nurture/internal/ui/theme"
)

const minWidth = 40

// Bar draws a horizontal bar of the given width filled to fraction (0..1),
// followed by the percentage.
func Bar(fraction float64, width int) string {
	width = max(width, 4)
	fraction = min(max(fraction, 0), 1)
	filled := int(float64(width) * fraction)
	return theme.BarFilled.Render(strings.Repeat(" ", filled)) +
		theme.BarEmpty.Render(strings.Repeat(" ", width-filled)) +
		theme.Label.Render(fmt.Sprintf("  %d%%", personalize.Percent(fraction)))
}

func trendStyle(t expertise.Trend) lipgloss.Style {
	switch t {
	case expertise.TrendImproving:
		return theme.Good
	case expertise.TrendDeclining:
		return theme.Bad
	}
	return theme.Body
}

func row(label, value string) string {
	return theme.Label.Render(fmt.Sprintf("%-12s", label)) + value
}

// Render returns the card for tp, at least minWidth columns wide.
func Render(tp *progress.TopicProgress, width int) string {
	width = max(width, minWidth)
	inner := width - 6 // border + padding

	var b strings.Builder
	b.WriteString(theme.Title.Render(fmt.Sprintf("%s / %s", tp.SubjectID, tp.TopicID)))
	b.WriteString("\n")
	b.WriteString(theme.Hint.Render(tp.UserID))
	b.WriteString("\n\n")

	b.WriteString(row("Level", theme.Body.Render(tp.ExpertiseLevel.Title())) + "\n")
	b.WriteString(row("Sessions", theme.Body.Render(fmt.Sprintf("%d", tp.TotalSessions))) + "\n")
	b.WriteString(row("Accuracy", Bar(tp.PerformanceHistory.AverageAccuracy, inner-20)) + "\n")
	trend := tp.PerformanceHistory.Trend
	b.WriteString(row("Trend", trendStyle(trend).Render(personalize.TrendIndicator(trend)+" "+string(trend))) + "\n")
	if tp.LastStudied != nil {
		b.WriteString(row("Last", theme.Body.Render(tp.LastStudied.UTC().Format(time.DateOnly))) + "\n")
	}

	if n := len(tp.Progression.CoveredSubtopics); n > 0 {
		topics := make([]string, n)
		for i, s := range tp.Progression.CoveredSubtopics {
			topics[i] = personalize.Humanize(s)
		}
		b.WriteString("\n")
		b.WriteString(row("Covered", theme.Body.Width(inner-12).Render(strings.Join(topics, ", "))) + "\n")
	}

	if ns := tp.NextSteps; ns != nil {
		b.WriteString("\n")
		if len(ns.StrugglingAreas) > 0 {
			b.WriteString(row("Needs work", theme.Warn.Render(strings.Join(humanizeAll(ns.StrugglingAreas), ", "))) + "\n")
		}
		if len(ns.MasteredConcepts) > 0 {
			b.WriteString(row("Mastered", theme.Good.Render(strings.Join(humanizeAll(ns.MasteredConcepts), ", "))) + "\n")
		}
		b.WriteString(row("Next", theme.Body.Render(fmt.Sprintf("%s mode, %d%% learning", ns.RecommendedMode, ns.LearningRatio))) + "\n")
	}

	if len(tp.RecentSessions) > 0 {
		b.WriteString("\n")
		b.WriteString(theme.Label.Render("Recent sessions") + "\n")
		for _, s := range tp.RecentSessions {
			line := fmt.Sprintf("%s  %3d%%  %s", s.Date.UTC().Format(time.DateOnly), personalize.Percent(s.Accuracy), s.Summary)
			b.WriteString(theme.Body.Width(inner).Render(line) + "\n")
		}
	}

	return theme.Card.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func humanizeAll(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = personalize.Humanize(t)
	}
	return out
}
