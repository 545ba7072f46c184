package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Bradley1112/nurture/internal/analysis"
	"github.com/Bradley1112/nurture/internal/config"
	"github.com/Bradley1112/nurture/internal/expertise"
	"github.com/Bradley1112/nurture/internal/llm"
	"github.com/Bradley1112/nurture/internal/metrics"
	"github.com/Bradley1112/nurture/internal/session"
	"github.com/Bradley1112/nurture/internal/store"
)

// engine is the wired session service plus what it needs to shut down.
type engine struct {
	svc      *session.Service
	repo     store.Repo
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	ping     func(ctx context.Context) error
}

func (e *engine) Close() error { return e.repo.Close() }

func openRepo(ctx context.Context, cfg config.Config) (store.Repo, func(context.Context) error, error) {
	switch cfg.Store.Driver {
	case config.DriverRedis:
		r, err := store.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis store: %w", err)
		}
		return r, r.Ping, nil
	default:
		path := cfg.Store.Path
		var err error
		if path == "" {
			path, err = store.DefaultDBPath()
		} else {
			err = store.EnsureDir(path)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("resolve db path: %w", err)
		}
		r, err := store.OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return r, r.Ping, nil
	}
}

func newClassifier(ctx context.Context, cfg config.Config, log *zap.Logger) (analysis.Classifier, error) {
	keyword := analysis.NewKeywordClassifier(cfg.Engine.Analysis)
	if cfg.Engine.Analysis.Classifier != analysis.ClassifierLLM {
		return keyword, nil
	}
	provider, err := llm.NewProvider(ctx, cfg.LLM, log)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	return &analysis.FallbackClassifier{
		Primary:   analysis.NewLLMClassifier(provider, cfg.Engine.Analysis, analysis.DefaultLLMClassifierConfig()),
		Secondary: keyword,
		Logger:    log,
	}, nil
}

func openEngine(ctx context.Context, cfg config.Config, log *zap.Logger) (*engine, error) {
	repo, ping, err := openRepo(ctx, cfg)
	if err != nil {
		return nil, err
	}
	classifier, err := newClassifier(ctx, cfg, log)
	if err != nil {
		repo.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	orch := cfg.Engine.Orchestrator
	svc := session.NewService(session.Options{
		Repo:              repo,
		Analyzer:          analysis.NewAnalyzer(cfg.Engine.Analysis, classifier, log),
		Promotion:         expertise.NewMachine(cfg.Engine.Promotion, log),
		Orchestrator:      &orch,
		RecentSessionsCap: cfg.Engine.RecentSessionsCap,
		OptimisticLocking: cfg.Engine.OptimisticLocking,
		Metrics:           m,
		Logger:            log,
	})
	log.Debug("engine ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("classifier", classifier.Name()))
	return &engine{svc: svc, repo: repo, registry: reg, metrics: m, ping: ping}, nil
}
