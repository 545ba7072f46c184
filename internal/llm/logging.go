package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LoggingProvider logs one line per attempt with purpose, latency and usage.
type LoggingProvider struct {
	inner Provider
	log   *zap.Logger
}

// WithLogging wraps p. A nil logger disables output.
func WithLogging(p Provider, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingProvider{inner: p, log: log.Named("llm")}
}

// Generate calls the inner provider and logs the outcome.
func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	fields := []zap.Field{
		zap.String("purpose", PurposeFrom(ctx)),
		zap.String("model", l.inner.ModelID()),
		zap.Duration("latency", time.Since(start)),
	}
	if req.Schema != nil {
		fields = append(fields, zap.String("schema", req.Schema.Name))
	}
	if err != nil {
		l.log.Warn("llm request failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	l.log.Debug("llm request",
		append(fields,
			zap.String("served_by", resp.Model),
			zap.Int("input_tokens", resp.Usage.InputTokens),
			zap.Int("output_tokens", resp.Usage.OutputTokens),
			zap.String("stop_reason", resp.StopReason),
		)...)
	return resp, nil
}

// ModelID returns the inner provider's model.
func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }

type timeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout bounds each Generate call, retries included.
func WithTimeout(p Provider, d time.Duration) Provider {
	return &timeoutProvider{inner: p, timeout: d}
}

func (t *timeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *timeoutProvider) ModelID() string { return t.inner.ModelID() }
