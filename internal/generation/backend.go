package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/llm"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

// ErrEmptyArrangement is returned when a backend produced nothing playable.
var ErrEmptyArrangement = errors.New("arrangement contains no notes")

// Backend turns finalized parameters into an arrangement and renders it.
type Backend interface {
	Generate(ctx context.Context, params models.MusicParameters, melody *models.MelodyInput) (*models.Arrangement, error)
	Render(ctx context.Context, arr *models.Arrangement, params models.MusicParameters) (*Rendered, error)
	Name() string
}

// Rendered holds the encoded artifacts of one arrangement.
type Rendered struct {
	MIDI     []byte
	Audio    []byte
	MusicXML []byte
	PDF      []byte
}

const (
	BackendAlgorithmic = "algorithmic"
	BackendLLM         = "llm"
)

// NewBackend selects a backend by name. The llm backend needs a provider and model.
func NewBackend(name string, provider llm.Provider, model string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendAlgorithmic:
		return NewAlgorithmicBackend(), nil
	case BackendLLM:
		if provider == nil {
			return nil, fmt.Errorf("generation backend %q requires an LLM provider", name)
		}
		return NewLLMBackend(provider, model), nil
	default:
		return nil, fmt.Errorf("unknown generation backend %q", name)
	}
}
