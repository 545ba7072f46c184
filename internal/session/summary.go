package session

import (
	"fmt"
	"strings"

	"github.com/Bradley1112/nurture/internal/agent"
	"github.com/Bradley1112/nurture/internal/analysis"
	"github.com/Bradley1112/nurture/internal/personalize"
)

// DominantAgentAndMode returns the most frequent agent and mode in the
// interaction log. Without a log, instructor senders in the transcript
// decide the agent. Ties go to whichever was seen first.
func DominantAgentAndMode(log []Interaction, transcript []analysis.Message, defAgent agent.Role, defMode agent.Mode) (agent.Role, agent.Mode) {
	var agents, modes []string
	for _, e := range log {
		if e.Agent.IsInstructor() {
			agents = append(agents, string(e.Agent))
		}
		if e.Mode.Valid() {
			modes = append(modes, string(e.Mode))
		}
	}
	if len(agents) == 0 {
		for _, m := range transcript {
			if m.Sender.IsInstructor() {
				agents = append(agents, string(m.Sender))
			}
		}
	}

	a, m := defAgent, defMode
	if top := mostFrequent(agents); top != "" {
		a = agent.Role(top)
	}
	if top := mostFrequent(modes); top != "" {
		m = agent.Mode(top)
	}
	return a, m
}

func mostFrequent(values []string) string {
	counts := make(map[string]int, len(values))
	best, bestN := "", 0
	for _, v := range values {
		counts[v]++
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best
}

// SummaryInput is what a session summary line describes.
type SummaryInput struct {
	Telemetry analysis.Telemetry
	Accuracy  float64
	Agent     agent.Role
	Mode      agent.Mode
	Outcome   analysis.Recommendation
}

// Summarize renders the one-paragraph, human-readable session summary.
func Summarize(in SummaryInput) string {
	var b strings.Builder
	if in.Telemetry.QuestionsAnswered > 0 {
		fmt.Fprintf(&b, "Answered %d of %d questions correctly (%d%%)",
			in.Telemetry.CorrectAnswers, in.Telemetry.QuestionsAnswered, personalize.Percent(in.Accuracy))
	} else {
		fmt.Fprintf(&b, "Learned %d concept%s", in.Telemetry.ConceptsLearned, plural(in.Telemetry.ConceptsLearned))
	}
	fmt.Fprintf(&b, " with the %s in %s mode.", in.Agent.Label(), in.Mode)

	if len(in.Outcome.CoveredSubtopics) > 0 {
		topics := make([]string, len(in.Outcome.CoveredSubtopics))
		for i, t := range in.Outcome.CoveredSubtopics {
			topics[i] = personalize.Humanize(t)
		}
		fmt.Fprintf(&b, " Covered %s.", strings.Join(topics, ", "))
	}
	if len(in.Outcome.StrugglingAreas) > 0 {
		fmt.Fprintf(&b, " Needs work on %s.", strings.Join(in.Outcome.StrugglingAreas, ", "))
	}
	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
