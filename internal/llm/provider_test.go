package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider is a test implementation of the Provider interface
type MockProvider struct {
	name         string
	generateFunc func(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, request)
	}
	return &GenerationResponse{}, nil
}

func TestProviderInterface(t *testing.T) {
	var p Provider = &MockProvider{name: "mock"}
	assert.Equal(t, "mock", p.Name())
}

func TestMockProviderGenerate(t *testing.T) {
	callCount := 0
	mock := &MockProvider{
		name: "test",
		generateFunc: func(_ context.Context, request *GenerationRequest) (*GenerationResponse, error) {
			callCount++
			require.Equal(t, "test-model", request.Model)
			return &GenerationResponse{RawOutput: `{"chord_progression": ["C", "G", "Am", "F"]}`}, nil
		},
	}

	resp, err := mock.Generate(context.Background(), &GenerationRequest{Model: "test-model"})
	require.NoError(t, err)
	assert.Equal(t, 1, callCount)

	var plan struct {
		Chords []string `json:"chord_progression"`
	}
	require.NoError(t, resp.DecodeJSON(&plan))
	assert.Equal(t, []string{"C", "G", "Am", "F"}, plan.Chords)
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		resp    *GenerationResponse
		wantErr bool
	}{
		{"plain json", &GenerationResponse{RawOutput: `{"tempo": 90}`}, false},
		{"fenced json", &GenerationResponse{RawOutput: "```json\n{\"tempo\": 90}\n```"}, false},
		{"empty", &GenerationResponse{RawOutput: "  "}, true},
		{"garbage", &GenerationResponse{RawOutput: "not json"}, true},
		{"nil", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Tempo int `json:"tempo"`
			}
			err := tt.resp.DecodeJSON(&out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 90, out.Tempo)
		})
	}
}

func TestProviderFactory(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		openai   string
		gemini   string
		model    string
		provider string
		wantName string
		wantErr  bool
	}{
		{name: "gpt model", openai: "k", model: "gpt-4.1-mini", wantName: "openai"},
		{name: "unknown model defaults to openai", openai: "k", model: "custom", wantName: "openai"},
		{name: "gemini model", gemini: "k", model: "gemini-2.5-flash", wantName: "gemini"},
		{name: "explicit gemini", gemini: "k", provider: "Gemini", wantName: "gemini"},
		{name: "missing openai key", model: "gpt-4.1-mini", wantErr: true},
		{name: "missing gemini key", provider: "gemini", wantErr: true},
		{name: "unknown provider", openai: "k", provider: "anthropic", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewProviderFactory(tt.openai, tt.gemini)
			p, err := f.GetProvider(ctx, tt.model, tt.provider)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestIntentOutputSchemaRequiresEveryProperty(t *testing.T) {
	for _, s := range []*OutputSchema{IntentOutputSchema(), ArrangementPlanSchema()} {
		props := s.Schema["properties"].(map[string]any)
		required := s.Schema["required"].([]string)
		assert.Len(t, required, len(props), s.Name)
		for _, r := range required {
			assert.Contains(t, props, r, s.Name)
		}
	}
}
