package generation

import (
	"reflect"
	"testing"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

func TestChordToMIDI(t *testing.T) {
	tests := []struct {
		name          string
		chordSymbol   string
		octave        int
		expectedNotes []int
		expectError   bool
	}{
		{name: "C major", chordSymbol: "C", octave: 4, expectedNotes: []int{60, 64, 67}},
		{name: "E minor", chordSymbol: "Em", octave: 4, expectedNotes: []int{64, 67, 71}},
		{name: "A minor", chordSymbol: "Am", octave: 4, expectedNotes: []int{69, 72, 76}},
		{name: "B flat", chordSymbol: "Bb", octave: 4, expectedNotes: []int{70, 74, 77}},
		{name: "A minor 7th", chordSymbol: "Am7", octave: 4, expectedNotes: []int{69, 72, 76, 79}},
		{name: "D min7 spelling", chordSymbol: "Dmin7", octave: 4, expectedNotes: []int{62, 65, 69, 72}},
		{name: "C major 7th", chordSymbol: "Cmaj7", octave: 4, expectedNotes: []int{60, 64, 67, 71}},
		{name: "G dominant 7th", chordSymbol: "G7", octave: 4, expectedNotes: []int{67, 71, 74, 77}},
		{name: "B diminished", chordSymbol: "Bdim", octave: 4, expectedNotes: []int{71, 74, 77}},
		{name: "C sus4", chordSymbol: "Csus4", octave: 4, expectedNotes: []int{60, 65, 67}},
		{name: "C add9", chordSymbol: "Cadd9", octave: 4, expectedNotes: []int{60, 64, 67, 74}},
		{name: "slash bass", chordSymbol: "C/E", octave: 4, expectedNotes: []int{52, 60, 64, 67}},
		{name: "octave 3", chordSymbol: "C", octave: 3, expectedNotes: []int{48, 52, 55}},
		{name: "invalid root", chordSymbol: "H", octave: 4, expectError: true},
		{name: "empty", chordSymbol: "", octave: 4, expectError: true},
		{name: "invalid slash bass", chordSymbol: "C/X", octave: 4, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes, err := ChordToMIDI(tt.chordSymbol, tt.octave)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !reflect.DeepEqual(notes, tt.expectedNotes) {
				t.Errorf("Expected %v, got %v", tt.expectedNotes, notes)
			}
		})
	}
}

func TestNoteNameToMIDI(t *testing.T) {
	tests := []struct {
		name     string
		expected int
		wantErr  bool
	}{
		{"C4", 60, false},
		{"E1", 28, false},
		{"F#3", 54, false},
		{"Bb2", 46, false},
		{"C-1", 0, false},
		{"G9", 127, false},
		{"A9", 0, true},
		{"X4", 0, true},
		{"C", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NoteNameToMIDI(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %s", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("NoteNameToMIDI(%s) = %d, want %d", tt.name, got, tt.expected)
			}
			if back := MIDIToNoteName(got); tt.name != "Bb2" && back != tt.name {
				t.Errorf("MIDIToNoteName(%d) = %s, want %s", got, back, tt.name)
			}
		})
	}
}

func TestDegreeChord(t *testing.T) {
	tests := []struct {
		key    models.Key
		degree string
		want   string
	}{
		{"C", "1", "C"},
		{"C", "5", "G"},
		{"C", "6", "Am"},
		{"C", "7", "Bdim"},
		{"C", "2-7", "Dm7"},
		{"C", "1-7", "Cmaj7"},
		{"C", "5-7", "G7"},
		{"Am", "1", "Am"},
		{"Am", "5", "Em"},
		{"F", "4", "Bb"},
		{"D", "3", "F#m"},
	}

	for _, tt := range tests {
		t.Run(string(tt.key)+"/"+tt.degree, func(t *testing.T) {
			if got := DegreeChord(tt.key, tt.degree); got != tt.want {
				t.Errorf("DegreeChord(%s, %s) = %s, want %s", tt.key, tt.degree, got, tt.want)
			}
		})
	}
}

func TestProgression(t *testing.T) {
	tests := []struct {
		name  string
		key   models.Key
		genre models.Genre
		mood  models.Mood
		want  []string
	}{
		{"pop major", "C", models.GenrePop, models.MoodHappy, []string{"C", "G", "Am", "F"}},
		{"pop minor key", "Am", models.GenrePop, models.MoodHappy, []string{"Am", "F", "C", "G"}},
		{"sad major key", "C", models.GenrePop, models.MoodSad, []string{"Am", "F", "C", "G"}},
		{"jazz ii-V-I", "C", models.GenreJazz, models.MoodCalm, []string{"Dm7", "G7", "Cmaj7", "Am7"}},
		{"rock in G", "G", models.GenreRock, models.MoodEnergetic, []string{"G", "C", "D", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Progression(tt.key, tt.genre, tt.mood)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Progression = %v, want %v", got, tt.want)
			}
			for _, c := range got {
				if _, err := ChordToMIDI(c, 4); err != nil {
					t.Errorf("progression chord %s does not parse: %v", c, err)
				}
			}
		})
	}
}

func TestScale(t *testing.T) {
	if got := Scale("C"); !reflect.DeepEqual(got, []int{0, 2, 4, 5, 7, 9, 11}) {
		t.Errorf("Scale(C) = %v", got)
	}
	if got := Scale("Am"); !reflect.DeepEqual(got, []int{9, 11, 0, 2, 4, 5, 7}) {
		t.Errorf("Scale(Am) = %v", got)
	}
	if !InScale(61, "D") || InScale(61, "C") {
		t.Error("C#4 should be in D major and not in C major")
	}
}

func TestGetRhythmTemplate(t *testing.T) {
	tmpl, ok := GetRhythmTemplate("swing")
	if !ok {
		t.Fatal("swing template missing")
	}
	if len(tmpl.Offsets) != len(tmpl.Accents) {
		t.Errorf("swing offsets/accents mismatch: %d vs %d", len(tmpl.Offsets), len(tmpl.Accents))
	}
	if _, ok := GetRhythmTemplate("polka"); ok {
		t.Error("unexpected polka template")
	}

	for name, tmpl := range rhythmTemplates {
		if len(tmpl.Offsets) != len(tmpl.Accents) {
			t.Errorf("%s: offsets/accents mismatch", name)
		}
		for i := 1; i < len(tmpl.Offsets); i++ {
			if tmpl.Offsets[i] <= tmpl.Offsets[i-1] {
				t.Errorf("%s: offsets not increasing at %d", name, i)
			}
		}
	}
}
