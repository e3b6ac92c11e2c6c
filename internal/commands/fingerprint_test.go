package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

func normalized(t *testing.T, p models.PartialParameters) models.PartialParameters {
	t.Helper()
	out, err := p.Normalize()
	require.NoError(t, err)
	return out
}

func TestFingerprint(t *testing.T) {
	melody := &models.MelodyInput{Notes: []models.Note{{Pitch: 60, Duration: 1, Velocity: 90}}}
	base := Fingerprint(models.CommandTextToMusic, "calm piano",
		normalized(t, models.PartialParameters{Instruments: []string{"piano", "strings"}, Tempo: intPtr(90)}), false, nil, nil)

	tests := []struct {
		name string
		fp   string
		same bool
	}{
		{
			name: "instrument order and case",
			fp: Fingerprint(models.CommandTextToMusic, "  calm piano ",
				normalized(t, models.PartialParameters{Instruments: []string{"Strings", "piano", "piano"}, Tempo: intPtr(90)}), false, nil, nil),
			same: true,
		},
		{
			name: "different text",
			fp: Fingerprint(models.CommandTextToMusic, "calm guitar",
				normalized(t, models.PartialParameters{Instruments: []string{"piano", "strings"}, Tempo: intPtr(90)}), false, nil, nil),
		},
		{
			name: "different type",
			fp: Fingerprint(models.CommandImprovisation, "calm piano",
				normalized(t, models.PartialParameters{Instruments: []string{"piano", "strings"}, Tempo: intPtr(90)}), false, nil, nil),
		},
		{
			name: "enhance flag",
			fp: Fingerprint(models.CommandTextToMusic, "calm piano",
				normalized(t, models.PartialParameters{Instruments: []string{"piano", "strings"}, Tempo: intPtr(90)}), true, nil, nil),
		},
		{
			name: "different tempo",
			fp: Fingerprint(models.CommandTextToMusic, "calm piano",
				normalized(t, models.PartialParameters{Instruments: []string{"piano", "strings"}, Tempo: intPtr(91)}), false, nil, nil),
		},
		{
			name: "melody attached",
			fp: Fingerprint(models.CommandTextToMusic, "calm piano",
				normalized(t, models.PartialParameters{Instruments: []string{"piano", "strings"}, Tempo: intPtr(90)}), false, melody, nil),
		},
		{
			name: "audio attached",
			fp: Fingerprint(models.CommandTextToMusic, "calm piano",
				normalized(t, models.PartialParameters{Instruments: []string{"piano", "strings"}, Tempo: intPtr(90)}), false, nil,
				&models.AudioInput{Data: []byte{1, 2, 3}, Format: "wav"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.fp, 64)
			if tt.same {
				assert.Equal(t, base, tt.fp)
			} else {
				assert.NotEqual(t, base, tt.fp)
			}
		})
	}
}

func TestFingerprintMelodyNoteOrder(t *testing.T) {
	params := normalized(t, models.PartialParameters{Tempo: intPtr(100)})
	notes := []models.Note{
		{Pitch: 60, StartTime: 0, Duration: 0.5, Velocity: 90},
		{Pitch: 64, StartTime: 0.5, Duration: 0.5, Velocity: 90},
		{Pitch: 67, StartTime: 0.5, Duration: 1, Velocity: 80},
		{Pitch: 72, StartTime: 1.5, Duration: 0.5, Velocity: 100},
	}
	shuffled := []models.Note{notes[3], notes[2], notes[0], notes[1]}

	ordered := &models.MelodyInput{Notes: notes}
	fp := func(m *models.MelodyInput) string {
		return Fingerprint(models.CommandImprovisation, "", params, false, m, nil)
	}

	assert.Equal(t, fp(ordered), fp(&models.MelodyInput{Notes: shuffled}))
	assert.Equal(t, 64, ordered.Notes[1].Pitch, "caller's notes must not be reordered")
	assert.Equal(t, 72, shuffled[0].Pitch, "caller's notes must not be reordered")

	moved := append([]models.Note(nil), notes...)
	moved[3].StartTime = 2
	assert.NotEqual(t, fp(ordered), fp(&models.MelodyInput{Notes: moved}))
}

func TestFingerprintAudioContent(t *testing.T) {
	a := Fingerprint(models.CommandMusicAnalysis, "", models.PartialParameters{}, false, nil, &models.AudioInput{Data: []byte("one"), Format: "wav"})
	b := Fingerprint(models.CommandMusicAnalysis, "", models.PartialParameters{}, false, nil, &models.AudioInput{Data: []byte("two"), Format: "wav"})
	c := Fingerprint(models.CommandMusicAnalysis, "", models.PartialParameters{}, false, nil, &models.AudioInput{Data: []byte("one"), Format: "WAV"})

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
}
