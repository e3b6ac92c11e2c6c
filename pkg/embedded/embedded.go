package embedded

import (
	_ "embed"
)

// Embed all prompt and lexicon data files
//
//go:embed data/intent_lexicon.yaml
var IntentLexiconYAML []byte

//go:embed data/prompts/intent_system_prompt.txt
var IntentSystemPromptTxt []byte

//go:embed data/prompts/arrangement_plan_prompt.txt
var ArrangementPlanPromptTxt []byte

//go:embed data/prompts/mcp_server_instructions.txt
var MCPServerInstructionsTxt []byte
