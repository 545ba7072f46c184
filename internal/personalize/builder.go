// Package personalize builds the configuration a new session starts from,
// using what was learned in earlier sessions on the same topic.
package personalize

import (
	"bytes"
	"math"
	"strings"
	"text/template"

	"github.com/Bradley1112/nurture/internal/agent"
	"github.com/Bradley1112/nurture/internal/expertise"
	"github.com/Bradley1112/nurture/internal/orchestrator"
	"github.com/Bradley1112/nurture/internal/progress"
)

// SessionInitConfig is the personalized starting point of a session.
type SessionInitConfig struct {
	InitialMode    agent.Mode `json:"initialMode"`
	PrimaryAgent   agent.Role `json:"primaryAgent"`
	LearningRatio  int        `json:"learningRatio"`
	PracticeRatio  int        `json:"practiceRatio"`
	Context        Context    `json:"context"`
	WelcomeMessage string     `json:"welcomeMessage"`
}

// Context is what the agents are told about the student's history.
type Context struct {
	StrugglingAreas       []string        `json:"strugglingAreas"`
	MasteredConcepts      []string        `json:"masteredConcepts"`
	PreviousAccuracy      float64         `json:"previousAccuracy"`
	Trend                 expertise.Trend `json:"trend"`
	TotalPreviousSessions int             `json:"totalPreviousSessions"`
	NextStepsGuidance     string          `json:"nextStepsGuidance"`
	CoveredSubtopics      []string        `json:"coveredSubtopics"`
	LastSubtopic          string          `json:"lastSubtopic,omitempty"`
	ProgressionStage      int             `json:"progressionStage"`
}

// Build returns the personalized config for tp, or nil when tp carries no
// next-steps recommendation yet. Callers treat nil as "apply Defaults and
// show no personalization banner".
func Build(tp *progress.TopicProgress) *SessionInitConfig {
	if tp == nil || tp.NextSteps == nil {
		return nil
	}
	ns := tp.NextSteps

	ctx := Context{
		StrugglingAreas:       clone(ns.StrugglingAreas),
		MasteredConcepts:      clone(ns.MasteredConcepts),
		PreviousAccuracy:      previousAccuracy(tp),
		Trend:                 tp.PerformanceHistory.Trend,
		TotalPreviousSessions: tp.TotalSessions,
		NextStepsGuidance:     ns.Content,
		CoveredSubtopics:      clone(tp.Progression.CoveredSubtopics),
		ProgressionStage:      tp.Progression.ProgressionStage,
	}
	if tp.Progression.LastSubtopic != nil {
		ctx.LastSubtopic = *tp.Progression.LastSubtopic
	}

	blend := agent.NewBlend(ns.LearningRatio)
	cfg := &SessionInitConfig{
		InitialMode:   ns.RecommendedMode,
		PrimaryAgent:  ns.RecommendedAgent,
		LearningRatio: blend.Learning,
		PracticeRatio: blend.Practice,
		Context:       ctx,
	}

	summary := ""
	if last := tp.LastSession(); last != nil {
		summary = last.Summary
	}
	cfg.WelcomeMessage = welcome(welcomeData{
		Summary:      summary,
		Guidance:     ns.Content,
		LastSubtopic: Humanize(ctx.LastSubtopic),
		Indicator:    TrendIndicator(ctx.Trend),
		Trend:        string(ctx.Trend),
		Confidence:   ns.Confidence,
	})
	return cfg
}

// Defaults is the config for a session with no history, shaped by the
// decision table's profile for level.
func Defaults(level expertise.Level, cfg orchestrator.Config) *SessionInitConfig {
	lv, ok := expertise.ParseLevel(string(level))
	if !ok {
		lv = expertise.Beginner
	}
	p := cfg.Profile(lv)
	blend := agent.NewBlend(p.LearningRatio)
	return &SessionInitConfig{
		InitialMode:   p.Mode,
		PrimaryAgent:  p.Agent,
		LearningRatio: blend.Learning,
		PracticeRatio: blend.Practice,
		Context: Context{
			StrugglingAreas:  []string{},
			MasteredConcepts: []string{},
			Trend:            expertise.TrendNew,
			CoveredSubtopics: []string{},
		},
	}
}

// TrendIndicator returns the arrow shown next to a trend.
func TrendIndicator(t expertise.Trend) string {
	switch t {
	case expertise.TrendImproving:
		return "↗"
	case expertise.TrendDeclining:
		return "↘"
	case expertise.TrendStable:
		return "→"
	default:
		return "✨"
	}
}

// Humanize turns a subtopic tag such as "quadratic_formula" into
// "quadratic formula".
func Humanize(tag string) string {
	return strings.ReplaceAll(strings.TrimSpace(tag), "_", " ")
}

// previousAccuracy is the newest session's accuracy, or the cumulative
// average when no summaries are kept.
func previousAccuracy(tp *progress.TopicProgress) float64 {
	if last := tp.LastSession(); last != nil {
		return last.Accuracy
	}
	return tp.PerformanceHistory.AverageAccuracy
}

type welcomeData struct {
	Summary      string
	Guidance     string
	LastSubtopic string
	Indicator    string
	Trend        string
	Confidence   int
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(
	`Welcome back!{{if .Summary}} Last time: {{.Summary}}{{end}}
Today's focus: {{.Guidance}}
{{if .LastSubtopic}}We left off at {{.LastSubtopic}}.
{{end}}Progress trend: {{.Indicator}} {{.Trend}}
Confidence: {{.Confidence}}/10`))

func welcome(d welcomeData) string {
	var buf bytes.Buffer
	if err := welcomeTemplate.Execute(&buf, d); err != nil {
		return "Welcome back!"
	}
	return buf.String()
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Percent formats an accuracy in [0,1] as a whole percentage.
func Percent(acc float64) int {
	return int(math.Round(acc * 100))
}
