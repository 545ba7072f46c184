package progress

import (
	"encoding/json"
	"fmt"

	"github.com/Bradley1112/nurture/internal/expertise"
	"github.com/Bradley1112/nurture/internal/store"
)

// Document converts tp to the map written to the store, with unset fields
// removed.
func Document(tp *TopicProgress) (map[string]any, error) {
	data, err := json.Marshal(tp)
	if err != nil {
		return nil, fmt.Errorf("marshal progress: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal progress: %w", err)
	}
	// The store owns the timestamp.
	delete(doc, store.UpdatedAtField)
	return StripUnset(doc), nil
}

// StripUnset removes nil values from m, recursing into nested objects and
// arrays. Empty collections are kept: they are values, not absences.
func StripUnset(m map[string]any) map[string]any {
	for k, v := range m {
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = stripValue(v)
	}
	return m
}

func stripValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return StripUnset(t)
	case []any:
		out := t[:0]
		for _, e := range t {
			if e != nil {
				out = append(out, stripValue(e))
			}
		}
		return out
	default:
		return v
	}
}

// Decode reads a stored record. Missing collections are normalized to
// empty ones.
func Decode(rec *store.Record) (*TopicProgress, error) {
	data, err := json.Marshal(rec.Document)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	tp := Scaffold(rec.Key)
	if err := json.Unmarshal(data, tp); err != nil {
		return nil, fmt.Errorf("decode progress %s: %w", rec.Key, err)
	}
	tp.UserID, tp.SubjectID, tp.TopicID = rec.Key.UserID, rec.Key.SubjectID, rec.Key.TopicID
	tp.Version = rec.Version
	if tp.RecentSessions == nil {
		tp.RecentSessions = []SessionSummary{}
	}
	if tp.Progression.CoveredSubtopics == nil {
		tp.Progression.CoveredSubtopics = []string{}
	}
	if tp.PerformanceHistory.Trend == "" {
		tp.PerformanceHistory.Trend = expertise.TrendNew
	}
	if !rec.UpdatedAt.IsZero() {
		ts := rec.UpdatedAt
		tp.UpdatedAt = &ts
	}
	return tp, nil
}
