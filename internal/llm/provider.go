package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Provider defines the interface for LLM providers
// All providers MUST support structured output (JSON Schema) for reliable response parsing
type Provider interface {
	// Generate runs one request. When OutputSchema is set the provider MUST enforce it
	// so RawOutput is a JSON document matching the schema.
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// GenerationRequest contains all parameters needed for generation
type GenerationRequest struct {
	Model         string
	InputArray    []map[string]any
	ReasoningMode string
	SystemPrompt  string
	// Structured output schema - REQUIRED for reliable JSON parsing
	OutputSchema *OutputSchema
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
}

// GenerationResponse contains the result from the LLM
type GenerationResponse struct {
	RawOutput string `json:"-"` // Raw JSON text output
	Usage     any    `json:"usage"`
}

// UserMessage builds a single user input item.
func UserMessage(content string) map[string]any {
	return map[string]any{"role": userRole, "content": content}
}

// DecodeJSON strips optional markdown fences and unmarshals RawOutput into v.
func (r *GenerationResponse) DecodeJSON(v any) error {
	if r == nil {
		return fmt.Errorf("nil response")
	}
	raw := cleanTextOutput(r.RawOutput)
	if raw == "" {
		return fmt.Errorf("empty model output")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse model output %q: %w", truncate(raw, maxOutputTrunc), err)
	}
	return nil
}
