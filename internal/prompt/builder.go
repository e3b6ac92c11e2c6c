package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

// Builder builds the user-facing halves of LLM prompts
type Builder struct {
	loader *Loader
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder() *Builder {
	return &Builder{loader: NewPromptLoader()}
}

// BuildIntentPrompt returns the system instructions and user input for parameter enhancement.
func (b *Builder) BuildIntentPrompt(text string, derived models.MusicParameters) (string, string, error) {
	system, err := b.loader.GetIntentSystemPrompt()
	if err != nil {
		return "", "", err
	}

	current, err := json.Marshal(derived)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode derived parameters: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("REQUEST:\n")
	sb.WriteString(strings.TrimSpace(text))
	sb.WriteString("\n\nDERIVED PARAMETERS:\n")
	sb.Write(current)
	return system, sb.String(), nil
}

// BuildArrangementPlanPrompt returns the system instructions and user input for an arrangement plan.
func (b *Builder) BuildArrangementPlanPrompt(params models.MusicParameters, bars int) (string, string, error) {
	system, err := b.loader.GetArrangementPlanPrompt()
	if err != nil {
		return "", "", err
	}

	sections := []string{
		fmt.Sprintf("Key: %s", params.Key),
		fmt.Sprintf("Tempo: %d BPM", params.Tempo),
		fmt.Sprintf("Time signature: %s", params.TimeSignature),
		fmt.Sprintf("Genre: %s", params.Genre),
		fmt.Sprintf("Mood: %s", params.Mood),
		fmt.Sprintf("Complexity: %d/5", params.Complexity),
		fmt.Sprintf("Total length: %d bars", bars),
	}
	if params.Description != "" {
		sections = append(sections, "Description: "+params.Description)
	}
	return system, strings.Join(sections, "\n"), nil
}
