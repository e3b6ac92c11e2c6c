package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiProvider_Name(t *testing.T) {
	// We can't create a real client without an API key
	// So just test the name method with a nil client
	provider := &GeminiProvider{client: nil}
	assert.Equal(t, "gemini", provider.Name())
}

func TestGeminiProvider_BuildContents(t *testing.T) {
	provider := &GeminiProvider{client: nil}

	tests := []struct {
		name       string
		inputArray []map[string]any
		wantLen    int
	}{
		{
			name: "single user message",
			inputArray: []map[string]any{
				{"role": "user", "content": "test content"},
			},
			wantLen: 1,
		},
		{
			name: "developer role converted to user",
			inputArray: []map[string]any{
				{"role": "developer", "content": "system message"},
			},
			wantLen: 1,
		},
		{
			name: "multiple messages",
			inputArray: []map[string]any{
				{"role": "user", "content": "message 1"},
				{"role": "user", "content": "message 2"},
			},
			wantLen: 2,
		},
		{
			name: "invalid message skipped",
			inputArray: []map[string]any{
				{"role": "user", "content": "valid"},
				{"role": "user"}, // missing content
			},
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents := provider.buildGeminiContents(tt.inputArray)
			assert.Len(t, contents, tt.wantLen)

			// Verify all contents have user role
			for _, content := range contents {
				assert.Equal(t, "user", content.Role)
				assert.NotEmpty(t, content.Parts)
			}
		})
	}
}

func TestConvertSchemaToGemini_IntentSchema(t *testing.T) {
	schema := convertSchemaToGemini(IntentOutputSchema().Schema)
	require.NotNil(t, schema)
	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Contains(t, schema.Required, "tempo")

	tempo := schema.Properties["tempo"]
	require.NotNil(t, tempo)
	assert.Equal(t, genai.TypeInteger, tempo.Type)
	require.NotNil(t, tempo.Nullable)
	assert.True(t, *tempo.Nullable)
	require.NotNil(t, tempo.Minimum)
	assert.Equal(t, 40.0, *tempo.Minimum)
	assert.Equal(t, 240.0, *tempo.Maximum)

	genre := schema.Properties["genre"]
	require.NotNil(t, genre)
	assert.Contains(t, genre.Enum, "hip_hop")
	assert.NotContains(t, genre.Enum, "")

	instruments := schema.Properties["instruments"]
	require.NotNil(t, instruments)
	assert.Equal(t, genai.TypeArray, instruments.Type)
	require.NotNil(t, instruments.Items)
	assert.Contains(t, instruments.Items.Enum, "piano")
}

func TestConvertSchemaToGemini_PlanSchema(t *testing.T) {
	schema := convertSchemaToGemini(ArrangementPlanSchema().Schema)
	require.NotNil(t, schema)

	sections := schema.Properties["sections"]
	require.NotNil(t, sections)
	require.NotNil(t, sections.Items)
	assert.Equal(t, genai.TypeObject, sections.Items.Type)
	assert.ElementsMatch(t, []string{"name", "length_bars"}, sections.Items.Required)
	assert.Equal(t, genai.TypeString, schema.Properties["chord_progression"].Items.Type)
}

func TestConvertSchemaToGemini_Nil(t *testing.T) {
	assert.Nil(t, convertSchemaToGemini(nil))
}

func TestNewGeminiProvider_InvalidKey(t *testing.T) {
	ctx := context.Background()
	provider, err := NewGeminiProvider(ctx, "invalid-key")

	// Client creation does not contact the API, so only the object is checked
	if err != nil {
		assert.Error(t, err)
	} else {
		assert.NotNil(t, provider)
		assert.Equal(t, "gemini", provider.Name())
	}
}
