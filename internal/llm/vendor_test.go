package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagSchema() *Schema {
	return &Schema{
		Name: "test-tags",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"subtopics": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string", "enum": []string{"velocity", "displacement"}},
				},
			},
			"required": []string{"subtopics"},
		},
	}
}

func serve(t *testing.T, status int, body any) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// the SDK retries 429 and 5xx on its own
func noRetries() option.RequestOption { return option.WithMaxRetries(0) }

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_1",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 12},
	}
}

func TestAnthropicProvider_Generate(t *testing.T) {
	url := serve(t, http.StatusOK, anthropicMessage(`{"subtopics":["velocity"]}`, "end_turn"))
	p, err := NewAnthropicProvider(VendorConfig{APIKey: "k", Model: "claude-haiku", BaseURL: url})
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5-20251001", p.ModelID())

	resp, err := p.Generate(context.Background(), Request{
		System:    "tag it",
		Messages:  []Message{{Role: RoleUser, Content: "how fast?"}},
		Schema:    tagSchema(),
		MaxTokens: 64,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"subtopics":["velocity"]}`, string(resp.Content))
	assert.Equal(t, Usage{InputTokens: 50, OutputTokens: 12, TotalTokens: 62}, resp.Usage)
	assert.Equal(t, "end", resp.StopReason)
}

func TestAnthropicProvider_SchemaViolation(t *testing.T) {
	url := serve(t, http.StatusOK, anthropicMessage(`{"subtopics":["teleportation"]}`, "end_turn"))
	p, err := NewAnthropicProvider(VendorConfig{APIKey: "k", BaseURL: url})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{MaxTokens: 64, Schema: tagSchema()})
	var invalid *ErrInvalidResponse
	assert.ErrorAs(t, err, &invalid)
}

func TestAnthropicProvider_Truncated(t *testing.T) {
	url := serve(t, http.StatusOK, anthropicMessage(`{"subtop`, "max_tokens"))
	p, err := NewAnthropicProvider(VendorConfig{APIKey: "k", BaseURL: url})
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{MaxTokens: 4})
	var truncated *ErrMaxTokensExceeded
	assert.ErrorAs(t, err, &truncated)
}

func TestAnthropicProvider_StatusMapping(t *testing.T) {
	body := map[string]any{"type": "error", "error": map[string]any{"type": "x", "message": "x"}}
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusTooManyRequests, func(err error) bool { var e *ErrRateLimit; return errors.As(err, &e) }},
		{http.StatusInternalServerError, func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) }},
	}
	for _, tc := range cases {
		url := serve(t, tc.status, body)
		p, err := NewAnthropicProvider(VendorConfig{APIKey: "k", BaseURL: url}, noRetries())
		require.NoError(t, err)
		_, err = p.Generate(context.Background(), Request{MaxTokens: 8})
		assert.True(t, tc.check(err), "status %d: %v", tc.status, err)
	}
}

func TestAnthropicProvider_RequiresKey(t *testing.T) {
	_, err := NewAnthropicProvider(VendorConfig{})
	assert.Error(t, err)
}

func openAICompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 8, "total_tokens": 48},
	}
}

func TestOpenAIProvider_Generate(t *testing.T) {
	url := serve(t, http.StatusOK, openAICompletion(`{"subtopics":["displacement"]}`, "stop"))
	p, err := NewOpenAIProvider(VendorConfig{APIKey: "k", Model: "gpt-4o-mini", BaseURL: url + "/v1"})
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), Request{
		System:   "tag it",
		Messages: []Message{{Role: RoleUser, Content: "how far?"}},
		Schema:   tagSchema(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"subtopics":["displacement"]}`, string(resp.Content))
	assert.Equal(t, 48, resp.Usage.TotalTokens)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
}

func TestOpenAIProvider_Errors(t *testing.T) {
	url := serve(t, http.StatusOK, openAICompletion(`{"subtopics":`, "length"))
	p, err := NewOpenAIProvider(VendorConfig{APIKey: "k", BaseURL: url + "/v1"})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), Request{})
	var truncated *ErrMaxTokensExceeded
	assert.ErrorAs(t, err, &truncated)

	url = serve(t, http.StatusTooManyRequests, map[string]any{"error": map[string]any{"message": "slow down"}})
	p, err = NewOpenAIProvider(VendorConfig{APIKey: "k", BaseURL: url + "/v1"})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	assert.ErrorAs(t, err, &rl)
}

func TestNewOpenRouterProvider_DefaultsBaseURL(t *testing.T) {
	p, err := NewOpenRouterProvider(VendorConfig{APIKey: "k", Model: "google/gemini-2.0-flash-exp"})
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-2.0-flash-exp", p.ModelID())

	_, err = NewOpenRouterProvider(VendorConfig{})
	assert.ErrorContains(t, err, "openrouter")
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(tagSchema().Definition)
	require.Contains(t, s.Properties, "subtopics")
	items := s.Properties["subtopics"].Items
	require.NotNil(t, items)
	assert.Equal(t, []string{"velocity", "displacement"}, items.Enum)
	assert.Equal(t, []string{"subtopics"}, s.Required)
	assert.Equal(t, geminiTypes["object"], s.Type)
}

func TestResolveModel(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash", resolveModel("gemini-flash", geminiModels))
	assert.Equal(t, "claude-sonnet-4-20250514", resolveModel("claude-sonnet", anthropicModels))
	assert.Equal(t, "custom-model", resolveModel("custom-model", openaiModels))
}
