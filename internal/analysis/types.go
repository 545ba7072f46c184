package analysis

import (
	"time"

	"github.com/Bradley1112/nurture/internal/agent"
)

// Message is one transcript turn.
type Message struct {
	Sender    agent.Role `json:"sender"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
}

// Telemetry holds the aggregate counters reported for a finished session.
type Telemetry struct {
	QuestionsAnswered int `json:"questionsAnswered"`
	CorrectAnswers    int `json:"correctAnswers"`
	ConceptsLearned   int `json:"conceptsLearned"`
}

// Recommendation is the next-steps guidance derived from one session.
// Set-valued fields are never nil so that a stored recommendation is fully
// replaced rather than merged with the previous one.
type Recommendation struct {
	Content                    string     `json:"content"`
	RecommendedMode            agent.Mode `json:"recommendedMode"`
	RecommendedAgent           agent.Role `json:"recommendedAgent"`
	LearningRatio              int        `json:"learningRatio"`
	PracticeRatio              int        `json:"practiceRatio"`
	StrugglingAreas            []string   `json:"strugglingAreas"`
	MasteredConcepts           []string   `json:"masteredConcepts"`
	CoveredSubtopics           []string   `json:"coveredSubtopics"`
	Confidence                 int        `json:"confidence"`
	EstimatedSessionsToMastery int        `json:"estimatedSessionsToMastery"`
}

// Input is everything the analyzer looks at.
type Input struct {
	Subject    string
	Telemetry  Telemetry
	Transcript []Message
}

// Outcome is the analyzer's result.
type Outcome struct {
	Accuracy       float64
	Recommendation Recommendation
}
