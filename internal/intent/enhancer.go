package intent

import (
	"context"
	"fmt"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/llm"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/logger"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/observability"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/prompt"
)

// Enhancer refines heuristically derived parameters. Implementations may return any
// subset of fields; invalid fields are discarded by the caller.
type Enhancer interface {
	Enhance(ctx context.Context, text string, current models.MusicParameters) (models.PartialParameters, error)
}

// LLMEnhancer asks an LLM provider for a structured parameter suggestion.
type LLMEnhancer struct {
	provider llm.Provider
	model    string
	builder  *prompt.Builder
}

// NewLLMEnhancer creates an enhancer backed by provider.
func NewLLMEnhancer(provider llm.Provider, model string) *LLMEnhancer {
	return &LLMEnhancer{
		provider: provider,
		model:    model,
		builder:  prompt.NewPromptBuilder(),
	}
}

// suggestion mirrors the intent output schema; null fields mean "no opinion".
type suggestion struct {
	Description   *string  `json:"description"`
	Tempo         *int     `json:"tempo"`
	Key           *string  `json:"key"`
	TimeSignature *string  `json:"time_signature"`
	Genre         *string  `json:"genre"`
	Mood          *string  `json:"mood"`
	Instruments   []string `json:"instruments"`
	Duration      *int     `json:"duration"`
	Complexity    *int     `json:"complexity"`
}

func (s suggestion) partial() models.PartialParameters {
	return models.PartialParameters{
		Description:   s.Description,
		Tempo:         s.Tempo,
		Key:           s.Key,
		TimeSignature: s.TimeSignature,
		Genre:         s.Genre,
		Mood:          s.Mood,
		Instruments:   s.Instruments,
		Duration:      s.Duration,
		Complexity:    s.Complexity,
	}
}

// Enhance implements Enhancer.
func (e *LLMEnhancer) Enhance(ctx context.Context, text string, current models.MusicParameters) (models.PartialParameters, error) {
	system, user, err := e.builder.BuildIntentPrompt(text, current)
	if err != nil {
		return models.PartialParameters{}, err
	}

	input := []map[string]any{llm.UserMessage(user)}
	trace := observability.GetClient().StartTrace(ctx, "intent.enhance", map[string]any{
		"provider": e.provider.Name(),
		"model":    e.model,
	})
	defer trace.Finish()
	gen := trace.Generation(e.provider.Name(), nil)
	defer gen.Finish()

	start := time.Now()
	resp, err := e.provider.Generate(ctx, &llm.GenerationRequest{
		Model:        e.model,
		SystemPrompt: system,
		InputArray:   input,
		OutputSchema: llm.IntentOutputSchema(),
	})
	if err != nil {
		gen.Input(input)
		gen.Fail(err)
		return models.PartialParameters{}, fmt.Errorf("intent enhancement failed: %w", err)
	}
	gen.LogLLMResponse(e.model, input, resp, map[string]any{"duration_ms": time.Since(start).Milliseconds()})

	var s suggestion
	if err := resp.DecodeJSON(&s); err != nil {
		gen.Fail(err)
		return models.PartialParameters{}, err
	}
	return s.partial(), nil
}

// sanitize normalizes each suggested field on its own and drops the ones that fail,
// so one bad value does not throw away the rest of the suggestion.
func sanitize(p models.PartialParameters) models.PartialParameters {
	var out models.PartialParameters
	fields := []struct {
		name  string
		part  models.PartialParameters
		apply func(n models.PartialParameters)
	}{
		{"description", models.PartialParameters{Description: p.Description}, func(n models.PartialParameters) { out.Description = n.Description }},
		{"tempo", models.PartialParameters{Tempo: p.Tempo}, func(n models.PartialParameters) { out.Tempo = n.Tempo }},
		{"key", models.PartialParameters{Key: p.Key}, func(n models.PartialParameters) { out.Key = n.Key }},
		{"time_signature", models.PartialParameters{TimeSignature: p.TimeSignature}, func(n models.PartialParameters) { out.TimeSignature = n.TimeSignature }},
		{"genre", models.PartialParameters{Genre: p.Genre}, func(n models.PartialParameters) { out.Genre = n.Genre }},
		{"mood", models.PartialParameters{Mood: p.Mood}, func(n models.PartialParameters) { out.Mood = n.Mood }},
		{"instruments", models.PartialParameters{Instruments: p.Instruments}, func(n models.PartialParameters) { out.Instruments = n.Instruments }},
		{"duration", models.PartialParameters{Duration: p.Duration}, func(n models.PartialParameters) { out.Duration = n.Duration }},
		{"complexity", models.PartialParameters{Complexity: p.Complexity}, func(n models.PartialParameters) { out.Complexity = n.Complexity }},
	}

	for _, f := range fields {
		if f.part.IsEmpty() {
			continue
		}
		n, err := f.part.Normalize()
		if err != nil {
			logger.Warn("Discarding invalid enhanced parameter", logger.Fields{"field": f.name, "error": err.Error()})
			continue
		}
		f.apply(n)
	}
	return out
}
