package intent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/cache"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/logger"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

// CacheNamespace holds enhancement results keyed by text and explicit parameters.
const CacheNamespace = "intent_analysis"

// Source records which layer produced the final parameter set.
type Source string

const (
	SourceDefaults  Source = "defaults"
	SourceHeuristic Source = "heuristic"
	SourceEnhanced  Source = "enhanced"
	SourceExplicit  Source = "explicit"
)

// Options tune a single Derive call.
type Options struct {
	Enhance bool
}

// Stage turns text plus caller parameters into a complete, validated parameter set.
// Precedence: explicit caller values, then enhancement, then text-derived values, then defaults.
type Stage struct {
	analyzer *Analyzer
	enhancer Enhancer
	cache    *cache.Cache
}

// NewStage builds a stage. enhancer and c may be nil.
func NewStage(analyzer *Analyzer, enhancer Enhancer, c *cache.Cache) *Stage {
	return &Stage{analyzer: analyzer, enhancer: enhancer, cache: c}
}

// TextHints returns what the heuristic analyzer reads from text alone.
func (s *Stage) TextHints(text string) models.PartialParameters {
	return s.analyzer.Analyze(text)
}

// Derive resolves the parameters for one command. Out-of-range explicit values are
// returned as models.FieldErrors and never clamped.
func (s *Stage) Derive(ctx context.Context, text string, explicit models.PartialParameters, opts Options) (models.MusicParameters, Source, error) {
	normalized, err := explicit.Normalize()
	if err != nil {
		return models.MusicParameters{}, "", err
	}

	source := SourceDefaults
	params := models.DefaultParameters()

	derived := s.analyzer.Analyze(text)
	if hasMusicalHints(derived) {
		source = SourceHeuristic
	}
	params = derived.ApplyTo(params)

	if opts.Enhance && strings.TrimSpace(text) != "" {
		if suggestion, ok := s.enhance(ctx, text, normalized, normalized.ApplyTo(params)); ok {
			params = suggestion.ApplyTo(params)
			source = SourceEnhanced
		}
	}

	if !normalized.IsEmpty() && source == SourceDefaults {
		source = SourceExplicit
	}
	params = normalized.ApplyTo(params)
	params.Instruments = models.SortInstruments(params.Instruments)

	if err := params.Validate(); err != nil {
		return models.MusicParameters{}, "", err
	}
	return params, source, nil
}

// enhance consults the cache, then the enhancer. Failures fall back silently to the
// heuristic result.
func (s *Stage) enhance(ctx context.Context, text string, explicit models.PartialParameters, current models.MusicParameters) (models.PartialParameters, bool) {
	if s.enhancer == nil {
		logger.Warn("Parameter enhancement requested but no LLM provider is configured", nil)
		return models.PartialParameters{}, false
	}

	key := enhancementKey(text, explicit)
	if s.cache != nil {
		if v, ok := s.cache.Get(key, CacheNamespace); ok {
			if cached, ok := v.(models.PartialParameters); ok {
				return cached, true
			}
		}
	}

	suggestion, err := s.enhancer.Enhance(ctx, text, current)
	if err != nil {
		logger.Warn("Parameter enhancement failed, using heuristic parameters", logger.Fields{"error": err.Error()})
		return models.PartialParameters{}, false
	}

	clean := sanitize(suggestion)
	if s.cache != nil {
		if err := s.cache.Set(key, clean, CacheNamespace); err != nil {
			logger.Debug("Intent cache unavailable", logger.Fields{"error": err.Error()})
		}
	}
	return clean, true
}

func hasMusicalHints(p models.PartialParameters) bool {
	p.Description = nil
	return !p.IsEmpty()
}

func enhancementKey(text string, explicit models.PartialParameters) string {
	payload, _ := json.Marshal(struct {
		Text     string                   `json:"text"`
		Explicit models.PartialParameters `json:"explicit"`
	}{strings.TrimSpace(text), explicit})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
