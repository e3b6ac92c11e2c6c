package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/llm"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/logger"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/observability"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/prompt"
)

// LLMBackend asks a language model for the harmonic plan and section layout, then
// voices and renders it with the algorithmic backend.
type LLMBackend struct {
	provider llm.Provider
	model    string
	builder  *prompt.Builder
	voicer   *AlgorithmicBackend
}

func NewLLMBackend(provider llm.Provider, model string) *LLMBackend {
	return &LLMBackend{
		provider: provider,
		model:    model,
		builder:  prompt.NewPromptBuilder(),
		voicer:   NewAlgorithmicBackend(),
	}
}

func (b *LLMBackend) Name() string { return BackendLLM }

type planOutput struct {
	Description      string   `json:"description"`
	ChordProgression []string `json:"chord_progression"`
	Sections         []struct {
		Name       string `json:"name"`
		LengthBars int    `json:"length_bars"`
	} `json:"sections"`
}

// Generate requests a plan and arranges it. Provider or plan errors fail the command;
// there is no silent fallback to the algorithmic progression.
func (b *LLMBackend) Generate(ctx context.Context, params models.MusicParameters, melody *models.MelodyInput) (*models.Arrangement, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	plan, err := b.Plan(ctx, params, plannedBars(params, melody))
	if err != nil {
		return nil, err
	}
	return b.voicer.arrange(ctx, params, melody, plan)
}

// Plan returns a validated arrangement plan for the given length.
func (b *LLMBackend) Plan(ctx context.Context, params models.MusicParameters, bars int) (*models.ArrangementPlan, error) {
	system, user, err := b.builder.BuildArrangementPlanPrompt(params, bars)
	if err != nil {
		return nil, err
	}

	input := []map[string]any{llm.UserMessage(user)}
	trace := observability.GetClient().StartTrace(ctx, "generation.plan", map[string]any{
		"provider": b.provider.Name(),
		"model":    b.model,
		"bars":     bars,
	})
	defer trace.Finish()
	gen := trace.Generation(b.provider.Name(), nil)
	defer gen.Finish()

	start := time.Now()
	resp, err := b.provider.Generate(ctx, &llm.GenerationRequest{
		Model:        b.model,
		SystemPrompt: system,
		InputArray:   input,
		OutputSchema: llm.ArrangementPlanSchema(),
	})
	if err != nil {
		gen.Input(input)
		gen.Fail(err)
		return nil, fmt.Errorf("arrangement plan request failed: %w", err)
	}
	gen.LogLLMResponse(b.model, input, resp, map[string]any{"duration_ms": time.Since(start).Milliseconds()})

	var out planOutput
	if err := resp.DecodeJSON(&out); err != nil {
		gen.Fail(err)
		return nil, err
	}
	return validatePlan(out)
}

// validatePlan drops unparseable chords and empty sections and fails when no chords remain.
func validatePlan(out planOutput) (*models.ArrangementPlan, error) {
	plan := &models.ArrangementPlan{Description: strings.TrimSpace(out.Description)}
	for _, c := range out.ChordProgression {
		c = strings.TrimSpace(c)
		if _, err := ChordToMIDI(c, chordOct); err != nil {
			logger.Warn("Dropping invalid chord from plan", logger.Fields{"chord": c, "error": err.Error()})
			continue
		}
		plan.ChordProgression = append(plan.ChordProgression, c)
	}
	if len(plan.ChordProgression) == 0 {
		return nil, fmt.Errorf("arrangement plan contained no usable chords")
	}

	for _, s := range out.Sections {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "" || s.LengthBars < 1 {
			continue
		}
		plan.Sections = append(plan.Sections, models.Section{Name: name, LengthBar: s.LengthBars})
	}
	return plan, nil
}

func (b *LLMBackend) Render(ctx context.Context, arr *models.Arrangement, params models.MusicParameters) (*Rendered, error) {
	return render(ctx, arr, params)
}
