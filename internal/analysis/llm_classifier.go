package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/Bradley1112/nurture/internal/llm"
)

// LLMClassifierConfig holds generation settings for the model-backed
// classifier.
type LLMClassifierConfig struct {
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
}

// DefaultLLMClassifierConfig returns sensible defaults.
func DefaultLLMClassifierConfig() LLMClassifierConfig {
	return LLMClassifierConfig{
		MaxTokens:   256,
		Temperature: 0,
	}
}

// LLMClassifier asks a model which of the subject's known subtopics a
// message covers. Tags outside the known set are discarded.
type LLMClassifier struct {
	provider llm.Provider
	tables   Config
	cfg      LLMClassifierConfig
}

// NewLLMClassifier creates a classifier restricted to the tags in tables.
func NewLLMClassifier(provider llm.Provider, tables Config, cfg LLMClassifierConfig) *LLMClassifier {
	return &LLMClassifier{provider: provider, tables: tables, cfg: cfg}
}

// Name returns "llm".
func (c *LLMClassifier) Name() string { return ClassifierLLM }

type subtopicOutput struct {
	Subtopics []string `json:"subtopics"`
}

// Classify sends text to the model. A subject with no known tags is not
// sent at all.
func (c *LLMClassifier) Classify(ctx context.Context, subject, text string) ([]string, error) {
	known := c.tables.Tags(subject)
	if len(known) == 0 {
		return nil, nil
	}
	ctx = llm.WithPurpose(ctx, "subtopic-tagging")

	msg, err := buildSubtopicMessage(subject, known, text)
	if err != nil {
		return nil, fmt.Errorf("build subtopic prompt: %w", err)
	}

	resp, err := c.provider.Generate(ctx, llm.Request{
		System:      subtopicSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: msg}},
		Schema:      SubtopicSchema(c.tables.ResolveSubject(subject), known),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM subtopic tagging failed: %w", err)
	}

	var out subtopicOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("failed to parse subtopic response: %w", err)
	}

	allowed := make(map[string]bool, len(known))
	for _, k := range known {
		allowed[k] = true
	}
	var tags []string
	for _, t := range out.Subtopics {
		if allowed[t] {
			tags = appendUnique(tags, t)
		}
	}
	return tags, nil
}

// SubtopicSchema is the structured-output schema for one subject.
func SubtopicSchema(subject string, known []string) *llm.Schema {
	enum := make([]any, len(known))
	for i, k := range known {
		enum[i] = k
	}
	return &llm.Schema{
		Name:        "subtopic-tags-" + subject,
		Description: "Subtopics of " + subject + " covered by a tutoring message",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"subtopics": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string", "enum": enum},
					"description": "Subtopic tags the message teaches or discusses, in order of appearance",
				},
			},
			"required":             []any{"subtopics"},
			"additionalProperties": false,
		},
	}
}

const subtopicSystemPrompt = `You label tutoring messages with the curriculum subtopics they cover.

Instructions:
- Only use tags from the list provided.
- Return an empty list when the message covers none of them.
- A message may cover several subtopics; list them in the order they appear.`

var subtopicUserTemplate = template.Must(template.New("subtopics").Parse(`Subject: {{.Subject}}

Known subtopics:
{{range .Known}}- {{.}}
{{end}}
Message:
{{.Text}}`))

func buildSubtopicMessage(subject string, known []string, text string) (string, error) {
	var buf bytes.Buffer
	err := subtopicUserTemplate.Execute(&buf, struct {
		Subject string
		Known   []string
		Text    string
	}{subject, known, text})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
