package prompt

import (
	"strings"

	"github.com/Sixshoes/ai-music-assistant-sub000/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetIntentSystemPrompt loads the system prompt for parameter enhancement
func (l *Loader) GetIntentSystemPrompt() (string, error) {
	return strings.TrimSpace(string(embedded.IntentSystemPromptTxt)), nil
}

// GetArrangementPlanPrompt loads the system prompt for chord/section planning
func (l *Loader) GetArrangementPlanPrompt() (string, error) {
	return strings.TrimSpace(string(embedded.ArrangementPlanPromptTxt)), nil
}

// GetMCPServerInstructions loads MCP server instructions
func (l *Loader) GetMCPServerInstructions() (string, error) {
	return strings.TrimSpace(string(embedded.MCPServerInstructionsTxt)), nil
}

// GetIntentLexicon returns the raw YAML keyword lexicon
func (l *Loader) GetIntentLexicon() []byte {
	return embedded.IntentLexiconYAML
}
