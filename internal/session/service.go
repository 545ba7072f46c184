// Package session runs the two ends of a study session: building the
// initial configuration from stored progress, and folding a finished
// session back into that progress.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Bradley1112/nurture/internal/agent"
	"github.com/Bradley1112/nurture/internal/analysis"
	"github.com/Bradley1112/nurture/internal/expertise"
	"github.com/Bradley1112/nurture/internal/metrics"
	"github.com/Bradley1112/nurture/internal/orchestrator"
	"github.com/Bradley1112/nurture/internal/personalize"
	"github.com/Bradley1112/nurture/internal/progress"
	"github.com/Bradley1112/nurture/internal/store"
)

// Interaction is one entry of the session's interaction log.
type Interaction struct {
	Agent     agent.Role `json:"agent"`
	Mode      agent.Mode `json:"mode"`
	Timestamp time.Time  `json:"timestamp"`
}

// FinalizeInput is what the caller reports when a session ends.
type FinalizeInput struct {
	Telemetry      analysis.Telemetry
	Transcript     []analysis.Message
	InteractionLog []Interaction

	// SessionID is generated when empty.
	SessionID string
}

// FinalizeResult is the outcome of FinalizeSession. It is returned even
// when the write fails, with Persisted false.
type FinalizeResult struct {
	UpdatedProgress  *progress.TopicProgress `json:"updatedProgress"`
	WasPromoted      bool                    `json:"wasPromoted"`
	PromotionMessage *string                 `json:"promotionMessage"`
	Persisted        bool                    `json:"persisted"`
}

// StartInput carries the pre-session signals.
type StartInput struct {
	FocusLevel             int
	StressLevel            int
	SessionDurationMinutes int
	ExamDate               *time.Time
}

// StartResult is the decision and configuration a session begins with.
type StartResult struct {
	Decision orchestrator.Decision          `json:"decision"`
	Config   *personalize.SessionInitConfig `json:"config"`

	// Personalized is false when Config holds the level defaults.
	Personalized bool                    `json:"personalized"`
	Progress     *progress.TopicProgress `json:"progress"`
}

// Options configures a Service. Only Repo is required.
type Options struct {
	Repo              store.Repo
	Analyzer          *analysis.Analyzer
	Promotion         *expertise.Machine
	Orchestrator      *orchestrator.Config
	RecentSessionsCap int
	OptimisticLocking bool
	Metrics           *metrics.Metrics
	Logger            *zap.Logger
	Now               func() time.Time
	NewID             func() string
}

// Service implements the session start and finalize pipelines.
type Service struct {
	repo      store.Repo
	analyzer  *analysis.Analyzer
	machine   *expertise.Machine
	orch      orchestrator.Config
	recentCap int
	locking   bool
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewService fills unset options with defaults.
func NewService(opts Options) *Service {
	s := &Service{
		repo:      opts.Repo,
		analyzer:  opts.Analyzer,
		machine:   opts.Promotion,
		recentCap: opts.RecentSessionsCap,
		locking:   opts.OptimisticLocking,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.analyzer == nil {
		s.analyzer = analysis.NewAnalyzer(analysis.DefaultConfig(), nil, s.log)
	}
	if s.machine == nil {
		s.machine = expertise.NewMachine(expertise.DefaultConfig(), s.log)
	}
	if opts.Orchestrator != nil {
		s.orch = *opts.Orchestrator
	} else {
		s.orch = orchestrator.DefaultConfig()
	}
	if s.recentCap <= 0 {
		s.recentCap = progress.DefaultRecentSessionsCap
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Progress reads the stored record for key. A missing record yields the
// scaffold; any other failure is returned.
func (s *Service) Progress(ctx context.Context, key store.Key) (*progress.TopicProgress, bool, error) {
	rec, err := s.repo.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return progress.Scaffold(key), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	tp, err := progress.Decode(rec)
	if err != nil {
		return nil, false, err
	}
	return tp, true, nil
}

// loadOrScaffold never fails on store faults: the scaffold stands in and
// the fault is logged. A first read persists the scaffold.
func (s *Service) loadOrScaffold(ctx context.Context, key store.Key) *progress.TopicProgress {
	tp, found, err := s.Progress(ctx, key)
	if err != nil {
		s.metrics.ObserveStoreError("get")
		s.log.Warn("progress read failed, using default scaffold",
			zap.Stringer("key", key), zap.Error(err))
		return progress.Scaffold(key)
	}
	if !found {
		s.persistScaffold(ctx, tp)
	}
	return tp
}

func (s *Service) persistScaffold(ctx context.Context, tp *progress.TopicProgress) {
	doc, err := progress.Document(tp)
	if err != nil {
		s.log.Error("encode scaffold", zap.Stringer("key", tp.Key()), zap.Error(err))
		return
	}
	// Always guarded: a concurrent creator simply wins.
	rec, err := s.repo.Merge(ctx, tp.Key(), doc, store.ExpectVersion(0))
	if err != nil {
		if !errors.Is(err, store.ErrVersionConflict) {
			s.metrics.ObserveStoreError("merge")
		}
		s.log.Warn("could not persist progress scaffold",
			zap.Stringer("key", tp.Key()), zap.Error(err))
		return
	}
	tp.Version = rec.Version
	ts := rec.UpdatedAt
	tp.UpdatedAt = &ts
}

// InitializeSessionConfig returns the personalized configuration for the
// next session on key, or nil when the topic has no recommendation yet
// (callers then apply personalize.Defaults). Store faults never surface
// here; only an invalid key is an error.
func (s *Service) InitializeSessionConfig(ctx context.Context, key store.Key) (*personalize.SessionInitConfig, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return personalize.Build(s.loadOrScaffold(ctx, key)), nil
}

// StartSession runs the orchestrator on the stored expertise level and
// returns it with the session configuration.
func (s *Service) StartSession(ctx context.Context, key store.Key, in StartInput) (*StartResult, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	tp := s.loadOrScaffold(ctx, key)
	level := s.machine.Normalize(tp.ExpertiseLevel)

	res := &StartResult{
		Decision: orchestrator.Decide(s.orch, orchestrator.Inputs{
			ExpertiseLevel:         level,
			FocusLevel:             in.FocusLevel,
			StressLevel:            in.StressLevel,
			SessionDurationMinutes: in.SessionDurationMinutes,
			ExamDate:               in.ExamDate,
		}, s.now()),
		Progress: tp,
	}
	if cfg := personalize.Build(tp); cfg != nil {
		res.Config, res.Personalized = cfg, true
	} else {
		res.Config = personalize.Defaults(level, s.orch)
	}
	return res, nil
}

// FinalizeSession analyzes a finished session, evaluates promotion and
// persists the updated progress.
//
// A read failure returns nil and the error. A write failure (including a
// version conflict) returns the computed result with Persisted false and the
// error; nothing is retried.
func (s *Service) FinalizeSession(ctx context.Context, key store.Key, in FinalizeInput) (*FinalizeResult, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	prev, _, err := s.Progress(ctx, key)
	if err != nil {
		s.metrics.ObserveStoreError("get")
		s.metrics.ObserveFinalize(metrics.OutcomeReadFailed, 0)
		s.log.Error("progress read failed, session not graded",
			zap.Stringer("key", key), zap.Error(err))
		return nil, fmt.Errorf("read progress %s: %w", key, err)
	}

	tel := s.sanitize(key, in.Telemetry)
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = s.newID()
	}
	now := s.now().UTC()

	outcome := s.analyzer.Analyze(ctx, analysis.Input{
		Subject:    key.SubjectID,
		Telemetry:  tel,
		Transcript: in.Transcript,
	})
	stats := progress.Accumulate(prev, outcome.Accuracy, s.machine)
	level, promo := s.machine.Evaluate(prev.ExpertiseLevel, stats)

	profile := s.orch.Profile(s.machine.Normalize(prev.ExpertiseLevel))
	leadAgent, mode := DominantAgentAndMode(in.InteractionLog, in.Transcript, profile.Agent, profile.Mode)
	summary := progress.SessionSummary{
		SessionID:    sessionID,
		Date:         now,
		Accuracy:     outcome.Accuracy,
		PrimaryAgent: leadAgent,
		Mode:         mode,
		Summary: Summarize(SummaryInput{
			Telemetry: tel,
			Accuracy:  outcome.Accuracy,
			Agent:     leadAgent,
			Mode:      mode,
			Outcome:   outcome.Recommendation,
		}),
	}

	updated := progress.Apply(prev, progress.SessionUpdate{
		Summary:           summary,
		QuestionsAnswered: tel.QuestionsAnswered,
		Stats:             stats,
		Level:             level,
		NextSteps:         outcome.Recommendation,
		Subtopics:         outcome.Recommendation.CoveredSubtopics,
		At:                now,
		RecentCap:         s.recentCap,
	})

	res := &FinalizeResult{UpdatedProgress: updated}
	if promo != nil {
		res.WasPromoted = true
		msg := promo.Message
		res.PromotionMessage = &msg
	}

	if err := s.persist(ctx, key, prev, updated); err != nil {
		outcomeLabel := metrics.OutcomeWriteFailed
		if errors.Is(err, store.ErrVersionConflict) {
			outcomeLabel = metrics.OutcomeConflict
			s.log.Warn("progress version conflict, session progress not saved",
				zap.Stringer("key", key), zap.String("session_id", sessionID), zap.Error(err))
		} else {
			s.log.Error("progress write failed, session progress not saved",
				zap.Stringer("key", key), zap.String("session_id", sessionID), zap.Error(err))
		}
		s.metrics.ObserveStoreError("merge")
		s.metrics.ObserveFinalize(outcomeLabel, outcome.Accuracy)
		return res, fmt.Errorf("persist progress %s: %w", key, err)
	}

	res.Persisted = true
	s.metrics.ObserveFinalize(metrics.OutcomePersisted, outcome.Accuracy)
	if promo != nil {
		s.metrics.ObservePromotion(string(promo.From), string(promo.To))
	}
	s.log.Info("session finalized",
		zap.Stringer("key", key),
		zap.String("session_id", sessionID),
		zap.Float64("accuracy", outcome.Accuracy),
		zap.String("level", string(updated.ExpertiseLevel)),
		zap.Int("total_sessions", updated.TotalSessions))
	return res, nil
}

func (s *Service) persist(ctx context.Context, key store.Key, prev, updated *progress.TopicProgress) error {
	doc, err := progress.Document(updated)
	if err != nil {
		return err
	}
	var opts store.MergeOptions
	if s.locking {
		opts = store.ExpectVersion(prev.Version)
	}
	rec, err := s.repo.Merge(ctx, key, doc, opts)
	if err != nil {
		return err
	}
	updated.Version = rec.Version
	ts := rec.UpdatedAt
	updated.UpdatedAt = &ts
	return nil
}

// sanitize clamps counters a client got wrong instead of rejecting the
// session.
func (s *Service) sanitize(key store.Key, t analysis.Telemetry) analysis.Telemetry {
	orig := t
	t.QuestionsAnswered = max(t.QuestionsAnswered, 0)
	t.CorrectAnswers = max(t.CorrectAnswers, 0)
	t.ConceptsLearned = max(t.ConceptsLearned, 0)
	if t.QuestionsAnswered > 0 && t.CorrectAnswers > t.QuestionsAnswered {
		t.CorrectAnswers = t.QuestionsAnswered
	}
	if t != orig {
		s.log.Warn("telemetry sanitized",
			zap.Stringer("key", key),
			zap.Any("reported", orig),
			zap.Any("used", t))
	}
	return t
}
