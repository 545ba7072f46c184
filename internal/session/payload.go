package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/Bradley1112/nurture/internal/analysis"
	"github.com/Bradley1112/nurture/internal/store"
)

// ErrInvalidPayload is returned for a request body that fails validation.
var ErrInvalidPayload = errors.New("session: invalid payload")

// FinalizeRequest is the wire form of a finalize call.
type FinalizeRequest struct {
	store.Key
	SessionID      string             `json:"sessionId,omitempty"`
	Telemetry      analysis.Telemetry `json:"telemetry"`
	Transcript     []analysis.Message `json:"transcript"`
	InteractionLog []Interaction      `json:"interactionLog"`
}

// Input converts the request to service arguments.
func (r FinalizeRequest) Input() FinalizeInput {
	return FinalizeInput{
		Telemetry:      r.Telemetry,
		Transcript:     r.Transcript,
		InteractionLog: r.InteractionLog,
		SessionID:      r.SessionID,
	}
}

// StartRequest is the wire form of a start call.
type StartRequest struct {
	store.Key
	FocusLevel             int    `json:"focusLevel"`
	StressLevel            int    `json:"stressLevel"`
	SessionDurationMinutes int    `json:"sessionDurationMinutes"`
	ExamDate               string `json:"examDate,omitempty"`
}

// Input converts the request to service arguments.
func (r StartRequest) Input() (StartInput, error) {
	in := StartInput{
		FocusLevel:             r.FocusLevel,
		StressLevel:            r.StressLevel,
		SessionDurationMinutes: r.SessionDurationMinutes,
	}
	if r.ExamDate != "" {
		t, err := ParseExamDate(r.ExamDate)
		if err != nil {
			return in, err
		}
		in.ExamDate = &t
	}
	return in, nil
}

// ParseExamDate accepts RFC 3339 timestamps and plain dates.
func ParseExamDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: examDate %q is neither a date nor a timestamp", ErrInvalidPayload, s)
	}
	return t, nil
}

var idSchema = map[string]any{"type": "string", "minLength": 1, "pattern": "^[^:/]+$"}

var timestampSchema = map[string]any{"type": "string", "format": "date-time"}

var finalizeSchema = map[string]any{
	"type":     "object",
	"required": []any{"userId", "subjectId", "topicId", "telemetry"},
	"properties": map[string]any{
		"userId":    idSchema,
		"subjectId": idSchema,
		"topicId":   idSchema,
		"sessionId": map[string]any{"type": "string"},
		"telemetry": map[string]any{
			"type":     "object",
			"required": []any{"questionsAnswered", "correctAnswers"},
			"properties": map[string]any{
				"questionsAnswered": map[string]any{"type": "integer", "minimum": 0},
				"correctAnswers":    map[string]any{"type": "integer", "minimum": 0},
				"conceptsLearned":   map[string]any{"type": "integer", "minimum": 0},
			},
		},
		"transcript": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"sender", "content"},
				"properties": map[string]any{
					"sender":    map[string]any{"type": "string", "minLength": 1},
					"content":   map[string]any{"type": "string"},
					"timestamp": timestampSchema,
				},
			},
		},
		"interactionLog": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"agent", "mode"},
				"properties": map[string]any{
					"agent":     map[string]any{"type": "string", "minLength": 1},
					"mode":      map[string]any{"enum": []any{"learning", "practice"}},
					"timestamp": timestampSchema,
				},
			},
		},
	},
}

var startSchema = map[string]any{
	"type":     "object",
	"required": []any{"userId", "subjectId", "topicId", "focusLevel", "stressLevel"},
	"properties": map[string]any{
		"userId":                 idSchema,
		"subjectId":              idSchema,
		"topicId":                idSchema,
		"focusLevel":             map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
		"stressLevel":            map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
		"sessionDurationMinutes": map[string]any{"type": "integer", "minimum": 0},
		"examDate": map[string]any{
			"type":  "string",
			"anyOf": []any{map[string]any{"format": "date-time"}, map[string]any{"format": "date"}},
		},
	},
}

var (
	compileOnce     sync.Once
	compiledSchemas map[string]*jsonschema.Schema
	compileErr      error
)

func schemaFor(name string) (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchemas = map[string]*jsonschema.Schema{}
		for n, def := range map[string]map[string]any{"finalize": finalizeSchema, "start": startSchema} {
			c := jsonschema.NewCompiler()
			c.AssertFormat()
			url := fmt.Sprintf("schema://%s-request.json", n)
			if err := c.AddResource(url, roundTrip(def)); err != nil {
				compileErr = fmt.Errorf("add %s schema: %w", n, err)
				return
			}
			s, err := c.Compile(url)
			if err != nil {
				compileErr = fmt.Errorf("compile %s schema: %w", n, err)
				return
			}
			compiledSchemas[n] = s
		}
	})
	if compileErr != nil {
		return nil, compileErr
	}
	return compiledSchemas[name], nil
}

// roundTrip normalizes a Go literal into the generic JSON value the
// compiler expects.
func roundTrip(v any) any {
	data, _ := json.Marshal(v)
	var out any
	_ = json.Unmarshal(data, &out)
	return out
}

func validate(name string, data []byte, dst any) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	s, err := schemaFor(name)
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// DecodeFinalize validates and decodes a finalize request body.
func DecodeFinalize(data []byte) (*FinalizeRequest, error) {
	var req FinalizeRequest
	if err := validate("finalize", data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// DecodeStart validates and decodes a start request body.
func DecodeStart(data []byte) (*StartRequest, error) {
	var req StartRequest
	if err := validate("start", data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
