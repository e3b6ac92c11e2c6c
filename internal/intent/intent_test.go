package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/cache"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStage(t *testing.T, enhancer Enhancer) (*Stage, *cache.Cache) {
	t.Helper()
	lex, err := DefaultLexicon()
	require.NoError(t, err)

	c := cache.New(0)
	t.Cleanup(c.Close)
	require.NoError(t, c.CreateNamespace(CacheNamespace, time.Hour, 10))

	return NewStage(NewAnalyzer(lex), enhancer, c), c
}

type fakeEnhancer struct {
	calls int
	out   models.PartialParameters
	err   error
}

func (f *fakeEnhancer) Enhance(_ context.Context, _ string, _ models.MusicParameters) (models.PartialParameters, error) {
	f.calls++
	return f.out, f.err
}

func ptr[T any](v T) *T { return &v }

func TestDefaultLexiconLoads(t *testing.T) {
	lex, err := DefaultLexicon()
	require.NoError(t, err)
	assert.NotEmpty(t, lex.Genres)
	assert.NotEmpty(t, lex.Moods)
	assert.NotEmpty(t, lex.Instruments)
	assert.NotEmpty(t, lex.keyPatterns)
}

func TestParseLexiconRejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown genre", "genres:\n  - value: polka\n    words: [polka]\n"},
		{"unknown mood", "moods:\n  - value: grumpy\n    words: [grumpy]\n"},
		{"tempo hint out of range", "tempo_hints:\n  - tempo: 500\n    words: [ludicrous]\n"},
		{"bad regex", "key_patterns:\n  - '([A-G'\n"},
		{"pattern without group", "bpm_patterns:\n  - '\\d+ bpm'\n"},
		{"not yaml", "genres: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLexicon([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text string
		word string
		want bool
	}{
		{"a pop song", "pop", true},
		{"popular music", "pop", false},
		{"k-pop", "pop", true},
		{"in 3/4 time", "3/4", true},
		{"13/4", "3/4", false},
		{"流行歌曲", "流行", true},
		{"very fast tune", "very fast", true},
		{"breakfast", "fast", false},
	}

	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, containsWord(tt.text, tt.word))
		})
	}
}

func TestAnalyze(t *testing.T) {
	lex, err := DefaultLexicon()
	require.NoError(t, err)
	a := NewAnalyzer(lex)

	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, p models.PartialParameters)
	}{
		{
			name: "chinese pop request",
			text: "輕快的C大調流行歌曲",
			check: func(t *testing.T, p models.PartialParameters) {
				require.NotNil(t, p.Key)
				assert.Equal(t, "C", *p.Key)
				require.NotNil(t, p.Genre)
				assert.Equal(t, "pop", *p.Genre)
				require.NotNil(t, p.Tempo)
				assert.Greater(t, *p.Tempo, 120)
				require.NotNil(t, p.Mood)
				assert.Equal(t, "happy", *p.Mood)
			},
		},
		{
			name: "english minor key and instruments",
			text: "A sad piano and cello ballad in E minor, slow",
			check: func(t *testing.T, p models.PartialParameters) {
				assert.Equal(t, "Em", *p.Key)
				assert.Equal(t, "sad", *p.Mood)
				assert.Equal(t, 76, *p.Tempo)
				assert.Equal(t, []string{"cello", "piano"}, p.Instruments)
				assert.Equal(t, "folk", *p.Genre)
			},
		},
		{
			name: "explicit bpm beats tempo words",
			text: "fast techno at 150 bpm",
			check: func(t *testing.T, p models.PartialParameters) {
				assert.Equal(t, 150, *p.Tempo)
				assert.Equal(t, "electronic", *p.Genre)
			},
		},
		{
			name: "out of range bpm ignored",
			text: "rock at 400 bpm",
			check: func(t *testing.T, p models.PartialParameters) {
				assert.Equal(t, 132, *p.Tempo, "falls back to the genre tempo")
			},
		},
		{
			name: "longer phrase wins",
			text: "a very fast jazz number",
			check: func(t *testing.T, p models.PartialParameters) {
				assert.Equal(t, 170, *p.Tempo)
			},
		},
		{
			name: "genre supplies default ensemble",
			text: "hard rock anthem",
			check: func(t *testing.T, p models.PartialParameters) {
				assert.Equal(t, []string{"bass", "drums", "guitar"}, p.Instruments)
			},
		},
		{
			name: "waltz and duration",
			text: "a gentle waltz, 2 minutes long",
			check: func(t *testing.T, p models.PartialParameters) {
				assert.Equal(t, "3/4", *p.TimeSignature)
				assert.Equal(t, 120, *p.Duration)
				assert.Equal(t, "calm", *p.Mood)
			},
		},
		{
			name: "seconds in chinese",
			text: "30秒的爵士",
			check: func(t *testing.T, p models.PartialParameters) {
				assert.Equal(t, 30, *p.Duration)
				assert.Equal(t, "jazz", *p.Genre)
			},
		},
		{
			name: "decades are not durations",
			text: "80s synth pop",
			check: func(t *testing.T, p models.PartialParameters) {
				assert.Nil(t, p.Duration)
			},
		},
		{
			name: "complexity hint",
			text: "simple folk tune",
			check: func(t *testing.T, p models.PartialParameters) {
				assert.Equal(t, 2, *p.Complexity)
			},
		},
		{
			name: "nothing recognised",
			text: "something nice",
			check: func(t *testing.T, p models.PartialParameters) {
				assert.Nil(t, p.Genre)
				assert.Nil(t, p.Tempo)
				assert.Nil(t, p.Instruments)
				require.NotNil(t, p.Description)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, a.Analyze(tt.text))
		})
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	lex, err := DefaultLexicon()
	require.NoError(t, err)
	a := NewAnalyzer(lex)

	first := a.Analyze("romantic jazz with saxophone, piano and strings")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, a.Analyze("romantic jazz with saxophone, piano and strings"))
	}
}

func TestDeriveDefaults(t *testing.T) {
	stage, _ := newTestStage(t, nil)

	params, source, err := stage.Derive(context.Background(), "", models.PartialParameters{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, SourceDefaults, source)
	assert.Equal(t, models.DefaultParameters(), params)
}

func TestDerivePrecedence(t *testing.T) {
	stage, _ := newTestStage(t, nil)

	explicit := models.PartialParameters{
		Tempo:       ptr(90),
		Instruments: []string{"Violin", "piano", "violin"},
	}
	params, source, err := stage.Derive(context.Background(), "fast rock in D major", explicit, Options{})
	require.NoError(t, err)

	assert.Equal(t, SourceHeuristic, source)
	assert.Equal(t, 90, params.Tempo, "explicit beats text")
	assert.Equal(t, models.Key("D"), params.Key, "text beats defaults")
	assert.Equal(t, models.GenreRock, params.Genre)
	assert.Equal(t, []models.Instrument{"piano", "violin"}, params.Instruments)
	assert.Equal(t, 60, params.Duration, "default when nothing says otherwise")
}

func TestDeriveExplicitOnly(t *testing.T) {
	stage, _ := newTestStage(t, nil)

	params, source, err := stage.Derive(context.Background(), "", models.PartialParameters{Genre: ptr("Hip-Hop")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, SourceExplicit, source)
	assert.Equal(t, models.GenreHipHop, params.Genre)
}

func TestDeriveRejectsOutOfRange(t *testing.T) {
	stage, _ := newTestStage(t, nil)

	tests := []struct {
		name  string
		in    models.PartialParameters
		field string
	}{
		{"tempo too high", models.PartialParameters{Tempo: ptr(500)}, "tempo"},
		{"tempo too low", models.PartialParameters{Tempo: ptr(39)}, "tempo"},
		{"duration", models.PartialParameters{Duration: ptr(301)}, "duration"},
		{"complexity", models.PartialParameters{Complexity: ptr(0)}, "complexity"},
		{"key", models.PartialParameters{Key: ptr("H")}, "key"},
		{"genre", models.PartialParameters{Genre: ptr("polka")}, "genre"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := stage.Derive(context.Background(), "pop", tt.in, Options{})
			var fe models.FieldErrors
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe[0].Field)
		})
	}
}

func TestDeriveBoundariesAccepted(t *testing.T) {
	stage, _ := newTestStage(t, nil)

	for _, tempo := range []int{40, 240} {
		params, _, err := stage.Derive(context.Background(), "", models.PartialParameters{Tempo: ptr(tempo)}, Options{})
		require.NoError(t, err)
		assert.Equal(t, tempo, params.Tempo)
	}
}

func TestDeriveEnhancement(t *testing.T) {
	enh := &fakeEnhancer{out: models.PartialParameters{
		Mood:       ptr("Epic"),
		Tempo:      ptr(999),
		Complexity: ptr(4),
		Genre:      ptr("rock"),
	}}
	stage, c := newTestStage(t, enh)

	explicit := models.PartialParameters{Genre: ptr("classical")}
	params, source, err := stage.Derive(context.Background(), "a film score", explicit, Options{Enhance: true})
	require.NoError(t, err)

	assert.Equal(t, SourceEnhanced, source)
	assert.Equal(t, models.MoodEpic, params.Mood)
	assert.Equal(t, 4, params.Complexity)
	assert.Equal(t, 120, params.Tempo, "invalid suggested tempo is discarded")
	assert.Equal(t, models.GenreClassical, params.Genre, "explicit beats enhancement")

	again, _, err := stage.Derive(context.Background(), "a film score", explicit, Options{Enhance: true})
	require.NoError(t, err)
	assert.Equal(t, params, again)
	assert.Equal(t, 1, enh.calls, "second call served from cache")

	stats, err := c.Stats(CacheNamespace)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
}

func TestDeriveEnhancementFallback(t *testing.T) {
	enh := &fakeEnhancer{err: errors.New("provider down")}
	stage, _ := newTestStage(t, enh)

	withEnh, source, err := stage.Derive(context.Background(), "sad blues", models.PartialParameters{}, Options{Enhance: true})
	require.NoError(t, err)
	assert.Equal(t, SourceHeuristic, source)

	without, _, err := stage.Derive(context.Background(), "sad blues", models.PartialParameters{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, without, withEnh)
	assert.Equal(t, 1, enh.calls)
}

func TestDeriveEnhancementWithoutProvider(t *testing.T) {
	stage, _ := newTestStage(t, nil)

	params, source, err := stage.Derive(context.Background(), "calm ambient", models.PartialParameters{}, Options{Enhance: true})
	require.NoError(t, err)
	assert.Equal(t, SourceHeuristic, source)
	assert.Equal(t, models.GenreAmbient, params.Genre)
}

func TestDeriveWithoutCacheNamespace(t *testing.T) {
	lex, err := DefaultLexicon()
	require.NoError(t, err)
	c := cache.New(0)
	defer c.Close()

	enh := &fakeEnhancer{out: models.PartialParameters{Mood: ptr("tense")}}
	stage := NewStage(NewAnalyzer(lex), enh, c)

	params, _, err := stage.Derive(context.Background(), "thriller cue", models.PartialParameters{}, Options{Enhance: true})
	require.NoError(t, err, "cache errors degrade to a miss")
	assert.Equal(t, models.MoodTense, params.Mood)
}

func TestSanitize(t *testing.T) {
	out := sanitize(models.PartialParameters{
		Key:         ptr("a minor"),
		Instruments: []string{"drums", "kazoo"},
		Duration:    ptr(45),
	})
	assert.Equal(t, "Am", *out.Key)
	assert.Nil(t, out.Instruments, "one bad instrument drops the list")
	assert.Equal(t, 45, *out.Duration)
	assert.Nil(t, out.Tempo)
}
