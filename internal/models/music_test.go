package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Key
		wantErr bool
	}{
		{name: "plain major", input: "C", want: "C"},
		{name: "lower case", input: "g", want: "G"},
		{name: "spelled major", input: "C major", want: "C"},
		{name: "chinese major", input: "C大調", want: "C"},
		{name: "short minor", input: "Am", want: "Am"},
		{name: "spelled minor", input: "A minor", want: "Am"},
		{name: "chinese minor", input: "A小調", want: "Am"},
		{name: "flat minor", input: "Bbm", want: "Bbm"},
		{name: "sharp major", input: "F#", want: "F#"},
		{name: "min suffix", input: "Emin", want: "Em"},
		{name: "unknown root", input: "H", wantErr: true},
		{name: "empty", input: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyRootAndMode(t *testing.T) {
	assert.Equal(t, "Bb", Key("Bbm").Root())
	assert.True(t, Key("Bbm").IsMinor())
	assert.Equal(t, "C", Key("C").Root())
	assert.False(t, Key("C").IsMinor())
}

func TestDefaultParametersAreValid(t *testing.T) {
	p := DefaultParameters()
	require.NoError(t, p.Validate())
	assert.Equal(t, 120, p.Tempo)
	assert.Equal(t, Key("C"), p.Key)
	assert.Equal(t, GenrePop, p.Genre)
	assert.Equal(t, 60, p.Duration)
	assert.Equal(t, 3, p.Complexity)
	assert.Equal(t, []Instrument{InstrumentPiano}, p.Instruments)
}

func TestPartialNormalizeRejectsOutOfRange(t *testing.T) {
	tempo := 500
	duration := 5
	complexity := 9
	_, err := PartialParameters{Tempo: &tempo, Duration: &duration, Complexity: &complexity}.Normalize()
	require.Error(t, err)

	var fieldErrs FieldErrors
	require.True(t, errors.As(err, &fieldErrs))
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"tempo", "duration", "complexity"}, fields)
}

func TestPartialNormalizeBoundaries(t *testing.T) {
	for _, tempo := range []int{MinTempo, MaxTempo} {
		tempo := tempo
		_, err := PartialParameters{Tempo: &tempo}.Normalize()
		assert.NoError(t, err)
	}
	for _, tempo := range []int{MinTempo - 1, MaxTempo + 1} {
		tempo := tempo
		_, err := PartialParameters{Tempo: &tempo}.Normalize()
		assert.Error(t, err)
	}
}

func TestPartialNormalizeCanonicalises(t *testing.T) {
	key := "a minor"
	genre := " Hip-Hop "
	mood := "CALM"
	p, err := PartialParameters{
		Key:         &key,
		Genre:       &genre,
		Mood:        &mood,
		Instruments: []string{"Strings", "piano", "strings", "Bass"},
	}.Normalize()
	require.NoError(t, err)

	assert.Equal(t, "Am", *p.Key)
	assert.Equal(t, "hip_hop", *p.Genre)
	assert.Equal(t, "calm", *p.Mood)
	assert.Equal(t, []string{"bass", "piano", "strings"}, p.Instruments)
}

func TestPartialNormalizeRejectsUnknownEnums(t *testing.T) {
	genre := "polka-metal"
	_, err := PartialParameters{Genre: &genre, Instruments: []string{"kazoo"}}.Normalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "genre")
	assert.Contains(t, err.Error(), "instruments[0]")
}

func TestApplyToOverlaysOnlyPresentFields(t *testing.T) {
	tempo := 90
	p := PartialParameters{Tempo: &tempo, Instruments: []string{"guitar"}}
	out := p.ApplyTo(DefaultParameters())

	assert.Equal(t, 90, out.Tempo)
	assert.Equal(t, []Instrument{InstrumentGuitar}, out.Instruments)
	assert.Equal(t, Key("C"), out.Key)
	assert.Equal(t, GenrePop, out.Genre)
}

func TestTimeSignatureBeats(t *testing.T) {
	assert.Equal(t, 4.0, TimeSignature("4/4").BeatsPerBar())
	assert.Equal(t, 3.0, TimeSignature("3/4").BeatsPerBar())
	assert.Equal(t, 3.0, TimeSignature("6/8").BeatsPerBar())
	assert.Equal(t, 6, TimeSignature("6/8").Numerator())
	assert.Equal(t, 8, TimeSignature("6/8").Denominator())
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to CommandStatus
		allowed  bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusCompleted, false},
		{StatusCancelled, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
}

func TestNoteValidate(t *testing.T) {
	errs := Note{Pitch: 128, Velocity: 0, StartTime: -1, Duration: 0}.Validate("n")
	assert.Len(t, errs, 4)
	assert.Empty(t, Note{Pitch: 60, Velocity: 100, StartTime: 0, Duration: 0.5}.Validate("n"))
}

func TestCommandCloneIsDeep(t *testing.T) {
	tempo := 100
	cmd := &Command{
		ID:         "c1",
		Melody:     &MelodyInput{Notes: []Note{{Pitch: 60, Duration: 1, Velocity: 90}}},
		Parameters: PartialParameters{Tempo: &tempo, Instruments: []string{"piano"}},
		Result:     &MusicResult{MusicData: MusicData{MIDIData: []byte{1, 2, 3}}},
	}

	cp := cmd.Clone()
	cp.Melody.Notes[0].Pitch = 61
	*cp.Parameters.Tempo = 130
	cp.Parameters.Instruments[0] = "organ"
	cp.Result.MusicData.MIDIData[0] = 9

	assert.Equal(t, 60, cmd.Melody.Notes[0].Pitch)
	assert.Equal(t, 100, *cmd.Parameters.Tempo)
	assert.Equal(t, "piano", cmd.Parameters.Instruments[0])
	assert.Equal(t, byte(1), cmd.Result.MusicData.MIDIData[0])
}
