package intent

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/prompt"
	"gopkg.in/yaml.v3"
)

// Lexicon is the compiled keyword table the heuristic analyzer matches against.
type Lexicon struct {
	Genres          []GenreEntry
	Moods           []Entry
	Instruments     []Entry
	TempoHints      []NumberEntry
	TimeSignatures  []Entry
	ComplexityHints []NumberEntry

	keyPatterns     []*regexp.Regexp
	bpmPatterns     []*regexp.Regexp
	secondsPatterns []*regexp.Regexp
	minutesPatterns []*regexp.Regexp
}

// Entry maps keywords to one enumerated value.
type Entry struct {
	Value string   `yaml:"value"`
	Words []string `yaml:"words"`
}

// GenreEntry adds the typical tempo and ensemble for a genre.
type GenreEntry struct {
	Entry       `yaml:",inline"`
	Tempo       int      `yaml:"tempo"`
	Instruments []string `yaml:"instruments"`
}

// NumberEntry maps keywords to a numeric hint (tempo or complexity).
type NumberEntry struct {
	Tempo      int      `yaml:"tempo"`
	Complexity int      `yaml:"complexity"`
	Words      []string `yaml:"words"`
}

type lexiconFile struct {
	Genres                  []GenreEntry  `yaml:"genres"`
	Moods                   []Entry       `yaml:"moods"`
	Instruments             []Entry       `yaml:"instruments"`
	TempoHints              []NumberEntry `yaml:"tempo_hints"`
	TimeSignatures          []Entry       `yaml:"time_signatures"`
	ComplexityHints         []NumberEntry `yaml:"complexity_hints"`
	KeyPatterns             []string      `yaml:"key_patterns"`
	BPMPatterns             []string      `yaml:"bpm_patterns"`
	DurationSecondsPatterns []string      `yaml:"duration_seconds_patterns"`
	DurationMinutesPatterns []string      `yaml:"duration_minutes_patterns"`
}

var (
	defaultLexicon     *Lexicon
	defaultLexiconErr  error
	defaultLexiconOnce sync.Once
)

// DefaultLexicon parses the embedded lexicon once.
func DefaultLexicon() (*Lexicon, error) {
	defaultLexiconOnce.Do(func() {
		defaultLexicon, defaultLexiconErr = ParseLexicon(prompt.NewPromptLoader().GetIntentLexicon())
	})
	return defaultLexicon, defaultLexiconErr
}

// ParseLexicon decodes and validates a YAML lexicon. Every value must belong to the
// closed parameter enumerations and every pattern must compile.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse intent lexicon: %w", err)
	}

	lex := &Lexicon{
		Genres:          f.Genres,
		Moods:           f.Moods,
		Instruments:     f.Instruments,
		TempoHints:      f.TempoHints,
		TimeSignatures:  f.TimeSignatures,
		ComplexityHints: f.ComplexityHints,
	}

	for _, g := range f.Genres {
		if !models.Genre(g.Value).Valid() {
			return nil, fmt.Errorf("lexicon: unknown genre %q", g.Value)
		}
		if g.Tempo != 0 && (g.Tempo < models.MinTempo || g.Tempo > models.MaxTempo) {
			return nil, fmt.Errorf("lexicon: genre %s tempo %d out of range", g.Value, g.Tempo)
		}
		for _, inst := range g.Instruments {
			if !models.Instrument(inst).Valid() {
				return nil, fmt.Errorf("lexicon: genre %s lists unknown instrument %q", g.Value, inst)
			}
		}
	}
	for _, m := range f.Moods {
		if !models.Mood(m.Value).Valid() {
			return nil, fmt.Errorf("lexicon: unknown mood %q", m.Value)
		}
	}
	for _, i := range f.Instruments {
		if !models.Instrument(i.Value).Valid() {
			return nil, fmt.Errorf("lexicon: unknown instrument %q", i.Value)
		}
	}
	for _, ts := range f.TimeSignatures {
		if !models.TimeSignature(ts.Value).Valid() {
			return nil, fmt.Errorf("lexicon: unknown time signature %q", ts.Value)
		}
	}
	for _, h := range f.TempoHints {
		if h.Tempo < models.MinTempo || h.Tempo > models.MaxTempo {
			return nil, fmt.Errorf("lexicon: tempo hint %d out of range", h.Tempo)
		}
	}
	for _, h := range f.ComplexityHints {
		if h.Complexity < models.MinComplexity || h.Complexity > models.MaxComplexity {
			return nil, fmt.Errorf("lexicon: complexity hint %d out of range", h.Complexity)
		}
	}

	var err error
	if lex.keyPatterns, err = compileAll("key_patterns", f.KeyPatterns); err != nil {
		return nil, err
	}
	if lex.bpmPatterns, err = compileAll("bpm_patterns", f.BPMPatterns); err != nil {
		return nil, err
	}
	if lex.secondsPatterns, err = compileAll("duration_seconds_patterns", f.DurationSecondsPatterns); err != nil {
		return nil, err
	}
	if lex.minutesPatterns, err = compileAll("duration_minutes_patterns", f.DurationMinutesPatterns); err != nil {
		return nil, err
	}
	return lex, nil
}

func compileAll(section string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("lexicon: invalid pattern in %s %q: %w", section, p, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("lexicon: pattern in %s %q has no capture group", section, p)
		}
		out = append(out, re)
	}
	return out, nil
}

// score sums the rune length of every distinct keyword found in lower, so longer
// and more specific phrases outweigh short ones ("very fast" beats "fast").
func score(lower string, words []string) int {
	total := 0
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && containsWord(lower, w) {
			total += utf8.RuneCountInString(w)
		}
	}
	return total
}

// containsWord matches ASCII keywords on word boundaries and anything else as a substring.
func containsWord(text, word string) bool {
	if !isASCII(word) {
		return strings.Contains(text, word)
	}
	for start := 0; start <= len(text)-len(word); {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(word)
		if (idx == 0 || !isWordByte(text[idx-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		start = idx + 1
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
