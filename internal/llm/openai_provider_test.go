package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIProvider(t *testing.T) {
	provider := NewOpenAIProvider("test-api-key")
	require.NotNil(t, provider)
	assert.Equal(t, "openai", provider.Name())
	assert.NotNil(t, provider.client)
}

func TestOpenAIProvider_BuildRequestParams(t *testing.T) {
	provider := NewOpenAIProvider("test-key")

	tests := []struct {
		name    string
		request *GenerationRequest
		checks  func(t *testing.T, provider *OpenAIProvider, request *GenerationRequest)
	}{
		{
			name: "basic request with user message",
			request: &GenerationRequest{
				Model:         "gpt-5-mini",
				ReasoningMode: "medium",
				SystemPrompt:  "test system prompt",
				InputArray: []map[string]any{
					{"role": "user", "content": "test content"},
				},
			},
			checks: func(t *testing.T, provider *OpenAIProvider, request *GenerationRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				assert.Equal(t, "gpt-5-mini", params.Model)
				assert.Equal(t, "test system prompt", params.Instructions.Value)
				assert.Len(t, params.Input.OfInputItemList, 1)
				assert.Equal(t, responses.ReasoningEffortMedium, params.Reasoning.Effort)
			},
		},
		{
			name: "invalid items are skipped",
			request: &GenerationRequest{
				Model:        "gpt-4.1-mini",
				SystemPrompt: "test prompt",
				InputArray: []map[string]any{
					{"role": "developer", "content": "dev message"},
					{"role": "user"},
				},
			},
			checks: func(t *testing.T, provider *OpenAIProvider, request *GenerationRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				assert.Len(t, params.Input.OfInputItemList, 1)
			},
		},
		{
			name: "non reasoning model omits reasoning",
			request: &GenerationRequest{
				Model:         "gpt-4.1-mini",
				ReasoningMode: "high",
				InputArray:    []map[string]any{UserMessage("hi")},
			},
			checks: func(t *testing.T, provider *OpenAIProvider, request *GenerationRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				assert.Empty(t, params.Reasoning.Effort)
			},
		},
		{
			name: "request with output schema",
			request: &GenerationRequest{
				Model:        "gpt-4.1-mini",
				SystemPrompt: "test prompt",
				InputArray:   []map[string]any{UserMessage("test")},
				OutputSchema: IntentOutputSchema(),
			},
			checks: func(t *testing.T, provider *OpenAIProvider, request *GenerationRequest) {
				t.Helper()
				params := provider.buildRequestParams(request)
				require.NotNil(t, params.Text.Format.OfJSONSchema)
				assert.Equal(t, "music_parameters", params.Text.Format.OfJSONSchema.Name)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.checks(t, provider, tt.request)
		})
	}
}

func TestOpenAIProvider_ReasoningModeMapping(t *testing.T) {
	tests := []struct {
		mode     string
		expected responses.ReasoningEffort
	}{
		{"minimal", responses.ReasoningEffortLow},
		{"min", responses.ReasoningEffortLow},
		{"low", responses.ReasoningEffortLow},
		{"medium", responses.ReasoningEffortMedium},
		{"med", responses.ReasoningEffortMedium},
		{"high", responses.ReasoningEffortHigh},
		{"", responses.ReasoningEffortLow},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			assert.Equal(t, tt.expected, reasoningEffort(tt.mode))
		})
	}
}

func TestOpenAIProvider_GenerateAgainstFakeServer(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_1",
			"object": "response",
			"created_at": 0,
			"model": "gpt-4.1-mini",
			"status": "completed",
			"output": [{
				"type": "message",
				"id": "msg_1",
				"role": "assistant",
				"status": "completed",
				"content": [{"type": "output_text", "text": "{\"tempo\": 132}", "annotations": []}]
			}],
			"usage": {
				"input_tokens": 12,
				"output_tokens": 4,
				"total_tokens": 16,
				"input_tokens_details": {"cached_tokens": 0},
				"output_tokens_details": {"reasoning_tokens": 0}
			}
		}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	resp, err := provider.Generate(context.Background(), &GenerationRequest{
		Model:        "gpt-4.1-mini",
		SystemPrompt: "system",
		InputArray:   []map[string]any{UserMessage("fast rock")},
		OutputSchema: IntentOutputSchema(),
	})
	require.NoError(t, err)

	var out struct {
		Tempo int `json:"tempo"`
	}
	require.NoError(t, resp.DecodeJSON(&out))
	assert.Equal(t, 132, out.Tempo)
	assert.Equal(t, "gpt-4.1-mini", gotBody["model"])
	assert.Equal(t, "system", gotBody["instructions"])
}

func TestOpenAIProvider_GenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("bad-key", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	_, err := provider.Generate(context.Background(), &GenerationRequest{
		Model:      "gpt-4.1-mini",
		InputArray: []map[string]any{UserMessage("x")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai request failed")
}

func TestCleanTextOutput(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanTextOutput("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanTextOutput("  {\"a\":1} "))
	assert.Equal(t, "", cleanTextOutput("```"))
}
