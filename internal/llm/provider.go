// Package llm is a thin, provider-neutral client for structured LLM calls.
// Callers describe the JSON they want with a Schema and get validated JSON
// back, whichever vendor SDK serves the request.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates a completion for a Request.
type Provider interface {
	// Generate returns the model output. When req.Schema is set the
	// Content has already been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the resolved model identifier.
	ModelID() string
}

// Request is a single completion request.
type Request struct {
	System      string
	Messages    []Message
	Schema      *Schema
	MaxTokens   int
	Temperature float64 // 0 means provider default
}

// Message is one turn of the prompt.
type Message struct {
	Role    Role
	Content string
}

// Role of a prompt message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema the model output must satisfy.
type Schema struct {
	// Name is kebab-case; Anthropic and OpenAI both surface it to the model.
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the normalized model output.
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string // "end" or "max_tokens"
}

// Usage reports token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type purposeKey struct{}

// WithPurpose labels the calls made with ctx, for logs and metrics.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// resolveModel maps a short alias to a vendor model id. Unknown names pass
// through unchanged so full ids can be configured directly.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
