package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

// Analyzer derives parameter hints from free text using a Lexicon. It is pure and
// deterministic: the same text always yields the same hints.
type Analyzer struct {
	lex *Lexicon
}

// NewAnalyzer returns an analyzer over lex.
func NewAnalyzer(lex *Lexicon) *Analyzer {
	return &Analyzer{lex: lex}
}

// Analyze returns the text-derived parameters in normalized form. Fields the text
// says nothing about stay nil. Numbers found in the text outside the accepted
// bounds are ignored rather than reported.
func (a *Analyzer) Analyze(text string) models.PartialParameters {
	var out models.PartialParameters

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return out
	}
	lower := strings.ToLower(trimmed)
	out.Description = &trimmed

	genre := a.bestGenre(lower)
	if genre != nil {
		g := genre.Value
		out.Genre = &g
	}

	if mood := bestEntry(lower, a.lex.Moods); mood != "" {
		out.Mood = &mood
	}

	if ts := bestEntry(lower, a.lex.TimeSignatures); ts != "" {
		out.TimeSignature = &ts
	}

	if k, ok := a.key(trimmed); ok {
		s := string(k)
		out.Key = &s
	}

	if tempo, ok := a.tempo(trimmed, lower); ok {
		out.Tempo = &tempo
	} else if genre != nil && genre.Tempo > 0 {
		t := genre.Tempo
		out.Tempo = &t
	}

	if d, ok := a.duration(trimmed); ok {
		out.Duration = &d
	}

	if c, ok := bestNumber(lower, a.lex.ComplexityHints, func(e NumberEntry) int { return e.Complexity }); ok {
		out.Complexity = &c
	}

	instruments := a.instruments(lower)
	if len(instruments) == 0 && genre != nil {
		instruments = append(instruments, genre.Instruments...)
	}
	if len(instruments) > 0 {
		out.Instruments = sortedUnique(instruments)
	}

	return out
}

func (a *Analyzer) bestGenre(lower string) *GenreEntry {
	best, bestScore := -1, 0
	for i, g := range a.lex.Genres {
		if s := score(lower, g.Words); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return nil
	}
	return &a.lex.Genres[best]
}

func bestEntry(lower string, entries []Entry) string {
	best, bestScore := "", 0
	for _, e := range entries {
		if s := score(lower, e.Words); s > bestScore {
			best, bestScore = e.Value, s
		}
	}
	return best
}

func bestNumber(lower string, entries []NumberEntry, value func(NumberEntry) int) (int, bool) {
	best, bestScore := 0, 0
	for _, e := range entries {
		if s := score(lower, e.Words); s > bestScore {
			best, bestScore = value(e), s
		}
	}
	return best, bestScore > 0
}

func (a *Analyzer) instruments(lower string) []string {
	var out []string
	for _, e := range a.lex.Instruments {
		if score(lower, e.Words) > 0 {
			out = append(out, e.Value)
		}
	}
	return out
}

// tempo prefers an explicit "<n> bpm" over tempo words.
func (a *Analyzer) tempo(text, lower string) (int, bool) {
	for _, re := range a.lex.bpmPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= models.MinTempo && n <= models.MaxTempo {
				return n, true
			}
		}
	}
	return bestNumber(lower, a.lex.TempoHints, func(e NumberEntry) int { return e.Tempo })
}

func (a *Analyzer) key(text string) (models.Key, bool) {
	for _, re := range a.lex.keyPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if k, err := models.ParseKey(m[1]); err == nil {
				return k, true
			}
		}
	}
	return "", false
}

func (a *Analyzer) duration(text string) (int, bool) {
	if d, ok := firstInRange(a.lex.secondsPatterns, text, 1); ok {
		return d, true
	}
	return firstInRange(a.lex.minutesPatterns, text, 60)
}

// firstInRange returns the first captured number that, scaled by mul, is a valid duration.
func firstInRange(patterns []*regexp.Regexp, text string, mul int) (int, bool) {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 || n > models.MaxDuration {
				continue
			}
			if d := n * mul; d >= models.MinDuration && d <= models.MaxDuration {
				return d, true
			}
		}
	}
	return 0, false
}

func sortedUnique(in []string) []string {
	insts := make([]models.Instrument, len(in))
	for i, s := range in {
		insts[i] = models.Instrument(s)
	}
	sorted := models.SortInstruments(insts)
	out := make([]string, len(sorted))
	for i, inst := range sorted {
		out[i] = string(inst)
	}
	return out
}
