package expertise

import "fmt"

// Rule is the guard for a single step up the ladder.
type Rule struct {
	From        Level   `mapstructure:"from" json:"from" yaml:"from"`
	To          Level   `mapstructure:"to" json:"to" yaml:"to"`
	MinAccuracy float64 `mapstructure:"min_accuracy" json:"minAccuracy" yaml:"min_accuracy"`
	MinSessions int     `mapstructure:"min_sessions" json:"minSessions" yaml:"min_sessions"`
}

// Config holds the promotion ladder and the trend classification band.
type Config struct {
	// TrendThreshold is the accuracy delta beyond which a session counts as
	// improving or declining.
	TrendThreshold float64 `mapstructure:"trend_threshold" yaml:"trend_threshold"`

	Rules []Rule `mapstructure:"rules" yaml:"rules"`
}

// DefaultConfig returns the standard ladder:
// beginner→apprentice (0.75, 2), apprentice→pro (0.80, 3), pro→grandmaster (0.90, 4).
func DefaultConfig() Config {
	return Config{
		TrendThreshold: 0.15,
		Rules: []Rule{
			{From: Beginner, To: Apprentice, MinAccuracy: 0.75, MinSessions: 2},
			{From: Apprentice, To: Pro, MinAccuracy: 0.80, MinSessions: 3},
			{From: Pro, To: Grandmaster, MinAccuracy: 0.90, MinSessions: 4},
		},
	}
}

// Validate checks that every rule moves exactly one tier forward with sane guards.
func (c Config) Validate() error {
	if c.TrendThreshold < 0 || c.TrendThreshold > 1 {
		return fmt.Errorf("trend threshold %.2f outside [0,1]", c.TrendThreshold)
	}
	seen := make(map[Level]bool, len(c.Rules))
	for _, r := range c.Rules {
		if !r.From.Valid() || !r.To.Valid() {
			return fmt.Errorf("rule %s→%s: unknown level", r.From, r.To)
		}
		if r.To.Rank() != r.From.Rank()+1 {
			return fmt.Errorf("rule %s→%s: must advance exactly one level", r.From, r.To)
		}
		if r.MinAccuracy < 0 || r.MinAccuracy > 1 {
			return fmt.Errorf("rule %s→%s: min accuracy %.2f outside [0,1]", r.From, r.To, r.MinAccuracy)
		}
		if r.MinSessions < 1 {
			return fmt.Errorf("rule %s→%s: min sessions must be at least 1", r.From, r.To)
		}
		if seen[r.From] {
			return fmt.Errorf("duplicate rule for level %s", r.From)
		}
		seen[r.From] = true
	}
	return nil
}
