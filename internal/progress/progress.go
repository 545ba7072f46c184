// Package progress defines the persisted per-topic progress record and the
// pure update applied to it once per finished session.
package progress

import (
	"time"

	"github.com/Bradley1112/nurture/internal/agent"
	"github.com/Bradley1112/nurture/internal/analysis"
	"github.com/Bradley1112/nurture/internal/expertise"
	"github.com/Bradley1112/nurture/internal/store"
)

// DefaultRecentSessionsCap bounds RecentSessions.
const DefaultRecentSessionsCap = 3

// TopicProgress is one student's progress on one topic.
type TopicProgress struct {
	UserID             string                   `json:"userId"`
	SubjectID          string                   `json:"subjectId"`
	TopicID            string                   `json:"topicId"`
	ExpertiseLevel     expertise.Level          `json:"expertiseLevel"`
	LastStudied        *time.Time               `json:"lastStudied"`
	TotalSessions      int                      `json:"totalSessions"`
	PerformanceHistory PerformanceHistory       `json:"performanceHistory"`
	RecentSessions     []SessionSummary         `json:"recentSessions"`
	Progression        Progression              `json:"progression"`
	NextSteps          *analysis.Recommendation `json:"nextSteps"`
	UpdatedAt          *time.Time               `json:"updatedAt"`

	// Version is the store version this record was read at.
	Version int64 `json:"-"`
}

// PerformanceHistory holds cumulative statistics.
type PerformanceHistory struct {
	AverageAccuracy   float64         `json:"averageAccuracy"`
	QuestionsAnswered int             `json:"questionsAnswered"`
	LastSessionDate   *time.Time      `json:"lastSessionDate"`
	Trend             expertise.Trend `json:"trend"`
}

// Progression tracks subtopic coverage.
type Progression struct {
	CoveredSubtopics []string   `json:"coveredSubtopics"`
	LastSubtopic     *string    `json:"lastSubtopic"`
	ProgressionStage int        `json:"progressionStage"`
	LastUpdated      *time.Time `json:"lastUpdated"`
}

// SessionSummary describes one completed session.
type SessionSummary struct {
	SessionID    string     `json:"sessionId"`
	Date         time.Time  `json:"date"`
	Summary      string     `json:"summary"`
	Accuracy     float64    `json:"accuracy"`
	PrimaryAgent agent.Role `json:"primaryAgent"`
	Mode         agent.Mode `json:"mode"`
}

// Key returns the record's store key.
func (tp *TopicProgress) Key() store.Key {
	return store.Key{UserID: tp.UserID, SubjectID: tp.SubjectID, TopicID: tp.TopicID}
}

// HasHistory reports whether any session has been recorded.
func (tp *TopicProgress) HasHistory() bool {
	return tp.TotalSessions > 0
}

// LastSession returns the newest session summary, or nil.
func (tp *TopicProgress) LastSession() *SessionSummary {
	if len(tp.RecentSessions) == 0 {
		return nil
	}
	return &tp.RecentSessions[0]
}

// Scaffold is the record of a topic that has never been studied.
func Scaffold(key store.Key) *TopicProgress {
	return &TopicProgress{
		UserID:         key.UserID,
		SubjectID:      key.SubjectID,
		TopicID:        key.TopicID,
		ExpertiseLevel: expertise.Beginner,
		PerformanceHistory: PerformanceHistory{
			Trend: expertise.TrendNew,
		},
		RecentSessions: []SessionSummary{},
		Progression: Progression{
			CoveredSubtopics: []string{},
		},
	}
}
