package llm

import "github.com/Sixshoes/ai-music-assistant-sub000/internal/models"

const (
	planChordsMin    = 4
	planChordsMax    = 8
	planSectionMin   = 1
	planSectionMax   = 16
	planSectionsMax  = 8
	intentSchemaName = "music_parameters"
	planSchemaName   = "arrangement_plan"
)

// IntentOutputSchema describes a partial parameter suggestion.
// OpenAI strict mode requires every property in 'required', so absent values are null.
func IntentOutputSchema() *OutputSchema {
	return &OutputSchema{
		Name:        intentSchemaName,
		Description: "Musical parameters suggested for a natural-language request",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description":    map[string]any{"type": []any{"string", "null"}},
				"tempo":          map[string]any{"type": []any{"integer", "null"}, "minimum": models.MinTempo, "maximum": models.MaxTempo},
				"key":            map[string]any{"type": []any{"string", "null"}},
				"time_signature": map[string]any{"type": []any{"string", "null"}, "enum": enumOrNull(stringsOf(models.TimeSignatures()))},
				"genre":          map[string]any{"type": []any{"string", "null"}, "enum": enumOrNull(stringsOf(models.Genres()))},
				"mood":           map[string]any{"type": []any{"string", "null"}, "enum": enumOrNull(stringsOf(models.Moods()))},
				"instruments": map[string]any{
					"type":  []any{"array", "null"},
					"items": map[string]any{"type": "string", "enum": stringsOf(models.Instruments())},
				},
				"duration":   map[string]any{"type": []any{"integer", "null"}, "minimum": models.MinDuration, "maximum": models.MaxDuration},
				"complexity": map[string]any{"type": []any{"integer", "null"}, "minimum": models.MinComplexity, "maximum": models.MaxComplexity},
			},
			"required": []string{
				"description", "tempo", "key", "time_signature", "genre", "mood", "instruments", "duration", "complexity",
			},
			"additionalProperties": false,
		},
	}
}

// ArrangementPlanSchema describes a chord progression plus section layout.
func ArrangementPlanSchema() *OutputSchema {
	return &OutputSchema{
		Name:        planSchemaName,
		Description: "Chord progression and section layout for an arrangement",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description": map[string]any{"type": "string"},
				"chord_progression": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"minItems": planChordsMin,
					"maxItems": planChordsMax,
				},
				"sections": map[string]any{
					"type":     "array",
					"maxItems": planSectionsMax,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":        map[string]any{"type": "string"},
							"length_bars": map[string]any{"type": "integer", "minimum": planSectionMin, "maximum": planSectionMax},
						},
						"required":             []string{"name", "length_bars"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"description", "chord_progression", "sections"},
			"additionalProperties": false,
		},
	}
}

func stringsOf[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func enumOrNull(values []string) []any {
	out := make([]any, 0, len(values)+1)
	for _, v := range values {
		out = append(out, v)
	}
	return append(out, nil)
}
