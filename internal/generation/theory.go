package generation

import (
	"fmt"
	"strings"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

// RhythmTemplate defines hit positions and accents for one 4/4 cycle.
// Offsets are scaled to the bar length when the meter differs.
type RhythmTemplate struct {
	Name string
	// Offsets within a bar, in quarter-note beats (0-4)
	Offsets []float64
	// Velocity multipliers per offset (1.0 = normal)
	Accents []float64
	// Fraction of the gap to the next hit that a note sounds
	Articulation float64
}

const (
	articulationHigh    = 0.9
	articulationMedium  = 0.8
	articulationMidHigh = 0.85
	articulationShort   = 0.4
	articulationFull    = 1.0
)

var rhythmTemplates = map[string]RhythmTemplate{
	"whole": {
		Name:         "whole",
		Offsets:      []float64{0},
		Accents:      []float64{1.0},
		Articulation: articulationFull,
	},
	"half": {
		Name:         "half",
		Offsets:      []float64{0, 2},
		Accents:      []float64{1.0, 0.9},
		Articulation: articulationFull,
	},
	"quarters": {
		Name:         "quarters",
		Offsets:      []float64{0, 1, 2, 3},
		Accents:      []float64{1.0, 0.8, 0.9, 0.8},
		Articulation: articulationHigh,
	},
	"8ths": {
		Name:         "8ths",
		Offsets:      []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5},
		Accents:      []float64{1.0, 0.7, 0.9, 0.7, 0.95, 0.7, 0.9, 0.7},
		Articulation: articulationMidHigh,
	},
	"swing": {
		Name:         "swing",
		Offsets:      []float64{0, 0.67, 1, 1.67, 2, 2.67, 3, 3.67},
		Accents:      []float64{1.0, 0.7, 0.9, 0.7, 0.95, 0.7, 0.9, 0.7},
		Articulation: articulationMidHigh,
	},
	"shuffle": {
		Name:         "shuffle",
		Offsets:      []float64{0, 0.67, 1, 1.67, 2, 2.67, 3, 3.67},
		Accents:      []float64{1.0, 0.8, 0.9, 0.8, 1.0, 0.8, 0.9, 0.8},
		Articulation: articulationHigh,
	},
	"bossa": {
		Name:         "bossa",
		Offsets:      []float64{0, 1.5, 3},
		Accents:      []float64{1.0, 0.8, 0.9},
		Articulation: articulationHigh,
	},
	"waltz": {
		Name:         "waltz",
		Offsets:      []float64{0, 1, 2},
		Accents:      []float64{1.0, 0.7, 0.75},
		Articulation: articulationHigh,
	},
	"6/8": {
		Name:         "6/8",
		Offsets:      []float64{0, 0.5, 1, 1.5, 2, 2.5},
		Accents:      []float64{1.0, 0.6, 0.7, 0.9, 0.6, 0.7},
		Articulation: articulationMidHigh,
	},
	"offbeat": {
		Name:         "offbeat",
		Offsets:      []float64{0.5, 1.5, 2.5, 3.5},
		Accents:      []float64{0.9, 0.85, 0.9, 0.85},
		Articulation: articulationMidHigh,
	},
	"syncopated": {
		Name:         "syncopated",
		Offsets:      []float64{0, 0.5, 1.5, 2, 3, 3.5},
		Accents:      []float64{1.0, 0.8, 0.9, 0.85, 0.95, 0.8},
		Articulation: articulationMidHigh,
	},
	"staccato": {
		Name:         "staccato",
		Offsets:      []float64{0, 1, 2, 3},
		Accents:      []float64{1.0, 0.9, 0.95, 0.9},
		Articulation: articulationShort,
	},
}

// GetRhythmTemplate returns a rhythm template by name
func GetRhythmTemplate(name string) (RhythmTemplate, bool) {
	tmpl, ok := rhythmTemplates[name]
	return tmpl, ok
}

// comping picks the chord rhythm for a genre.
func comping(genre models.Genre, ts models.TimeSignature) RhythmTemplate {
	switch ts {
	case "3/4":
		return rhythmTemplates["waltz"]
	case "6/8", "12/8":
		return rhythmTemplates["6/8"]
	}
	name := "half"
	switch genre {
	case models.GenreJazz:
		name = "swing"
	case models.GenreBlues:
		name = "shuffle"
	case models.GenreLatin:
		name = "bossa"
	case models.GenreRock, models.GenreCountry:
		name = "8ths"
	case models.GenreElectronic:
		name = "offbeat"
	case models.GenreHipHop, models.GenreRnB:
		name = "syncopated"
	case models.GenreClassical, models.GenreAmbient:
		name = "whole"
	case models.GenreFolk:
		name = "quarters"
	}
	return rhythmTemplates[name]
}

var semitones = map[string]int{
	"C": 0, "C#": 1, "Db": 1, "D": 2, "D#": 3, "Eb": 3, "E": 4, "F": 5,
	"F#": 6, "Gb": 6, "G": 7, "G#": 8, "Ab": 8, "A": 9, "A#": 10, "Bb": 10, "B": 11,
}

var (
	sharpNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	flatNames  = []string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}
)

var (
	majorScale = []int{0, 2, 4, 5, 7, 9, 11}
	minorScale = []int{0, 2, 3, 5, 7, 8, 10}
)

// ChordToMIDI converts a chord symbol to MIDI note numbers with the root in the given octave
// (C4 = 60). Supports triads, sus, 7/maj7/m7, 9/11/13, add-tones and slash basses ("C/E").
func ChordToMIDI(chordSymbol string, octave int) ([]int, error) {
	baseChord := strings.TrimSpace(chordSymbol)
	bassNote := ""
	if parts := strings.Split(baseChord, "/"); len(parts) == 2 {
		baseChord = strings.TrimSpace(parts[0])
		bassNote = strings.TrimSpace(parts[1])
	}

	root, err := parseRootNote(baseChord)
	if err != nil {
		return nil, fmt.Errorf("invalid chord root: %w", err)
	}

	rootMIDI := noteToMIDI(root, octave)
	suffix := baseChord[len(root):]
	intervals := buildChordIntervals(parseChordQuality(suffix), parseExtensions(suffix))

	notes := make([]int, 0, len(intervals)+1)
	for _, interval := range intervals {
		n := rootMIDI + interval
		if n < models.MinPitch || n > models.MaxPitch {
			continue
		}
		notes = append(notes, n)
	}

	if bassNote != "" {
		bassRoot, err := parseRootNote(bassNote)
		if err != nil {
			return nil, fmt.Errorf("invalid bass note in %q: %w", chordSymbol, err)
		}
		if b := noteToMIDI(bassRoot, octave-1); b >= models.MinPitch {
			notes = append([]int{b}, notes...)
		}
	}

	if len(notes) == 0 {
		return nil, fmt.Errorf("no valid MIDI notes generated for chord: %s", chordSymbol)
	}
	return notes, nil
}

// ChordRoot returns the pitch class (0-11) of a chord symbol's root, ignoring slash basses.
func ChordRoot(chordSymbol string) (int, error) {
	base := strings.TrimSpace(chordSymbol)
	if i := strings.Index(base, "/"); i >= 0 {
		base = base[:i]
	}
	root, err := parseRootNote(base)
	if err != nil {
		return 0, err
	}
	return semitones[root], nil
}

// NoteNameToMIDI converts names like "E1", "C4", "F#3" or "Bb2" to MIDI numbers (C4 = 60).
func NoteNameToMIDI(noteName string) (int, error) {
	if len(noteName) < 2 {
		return 0, fmt.Errorf("note name too short: %s", noteName)
	}

	letter := strings.ToUpper(noteName[:1])
	semitone, ok := semitones[letter]
	if !ok {
		return 0, fmt.Errorf("invalid note letter: %s", letter)
	}

	idx := 1
	switch noteName[idx] {
	case '#':
		semitone++
		idx++
	case 'b':
		semitone--
		idx++
	}
	if idx >= len(noteName) {
		return 0, fmt.Errorf("missing octave in note name: %s", noteName)
	}

	var octave int
	if _, err := fmt.Sscanf(noteName[idx:], "%d", &octave); err != nil {
		return 0, fmt.Errorf("invalid octave in note name %s: %w", noteName, err)
	}

	n := (octave+1)*12 + semitone
	if n < models.MinPitch || n > models.MaxPitch {
		return 0, fmt.Errorf("note %s is outside the MIDI range", noteName)
	}
	return n, nil
}

// MIDIToNoteName is the inverse of NoteNameToMIDI, spelled with sharps.
func MIDIToNoteName(n int) string {
	return fmt.Sprintf("%s%d", sharpNames[((n%12)+12)%12], n/12-1)
}

// Scale returns the seven pitch classes of a key, tonic first.
func Scale(key models.Key) []int {
	tonic := semitones[key.Root()]
	steps := majorScale
	if key.IsMinor() {
		steps = minorScale
	}
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = (tonic + s) % 12
	}
	return out
}

// InScale reports whether the pitch belongs to the key.
func InScale(pitch int, key models.Key) bool {
	pc := ((pitch % 12) + 12) % 12
	for _, s := range Scale(key) {
		if s == pc {
			return true
		}
	}
	return false
}

// progressions are scale-degree sequences (1-based); a trailing 7 marks a seventh chord.
var progressions = map[string][]string{
	"pop":        {"1", "5", "6", "4"},
	"rock":       {"1", "4", "5", "4"},
	"jazz":       {"2-7", "5-7", "1-7", "6-7"},
	"blues":      {"1-7", "4-7", "1-7", "5-7"},
	"classical":  {"1", "4", "5", "1"},
	"folk":       {"1", "4", "1", "5"},
	"electronic": {"6", "4", "1", "5"},
	"hip_hop":    {"6", "4", "5", "6"},
	"rnb":        {"2-7", "5-7", "1-7", "1-7"},
	"latin":      {"1", "4", "5", "1"},
	"ambient":    {"1", "4", "6", "4"},
	"country":    {"1", "4", "5", "1"},
	"sad":        {"6", "4", "1", "5"},
	"minor":      {"1", "6", "3", "7"},
}

// Progression returns chord symbols for the key, chosen by genre and mood.
func Progression(key models.Key, genre models.Genre, mood models.Mood) []string {
	degrees, ok := progressions[string(genre)]
	if !ok {
		degrees = progressions["pop"]
	}
	if key.IsMinor() && genre != models.GenreJazz && genre != models.GenreBlues {
		degrees = progressions["minor"]
	} else if !key.IsMinor() && (mood == models.MoodSad || mood == models.MoodMelancholic) {
		degrees = progressions["sad"]
	}

	chords := make([]string, len(degrees))
	for i, d := range degrees {
		chords[i] = DegreeChord(key, d)
	}
	return chords
}

// DegreeChord spells the diatonic chord on a degree such as "5" or "2-7".
func DegreeChord(key models.Key, degree string) string {
	seventh := strings.HasSuffix(degree, "-7")
	var d int
	if _, err := fmt.Sscanf(degree, "%d", &d); err != nil || d < 1 || d > 7 {
		d = 1
	}

	scale := Scale(key)
	root := scale[d-1]
	third := (scale[(d+1)%7] - root + 12) % 12
	fifth := (scale[(d+3)%7] - root + 12) % 12

	names := sharpNames
	if prefersFlats(key) {
		names = flatNames
	}

	var quality string
	switch {
	case third == 3 && fifth == 6:
		quality = "dim"
	case third == 3:
		quality = "m"
	}
	if seventh {
		sev := (scale[(d+5)%7] - root + 12) % 12
		switch {
		case quality == "dim":
		case quality == "" && sev == 11:
			quality = "maj7"
		case quality == "":
			quality = "7"
		default:
			quality = "m7"
		}
	}
	return names[root] + quality
}

func prefersFlats(key models.Key) bool {
	root := key.Root()
	if strings.HasSuffix(root, "b") {
		return true
	}
	switch key {
	case "F", "Dm", "Gm", "Cm", "Fm":
		return true
	}
	return false
}

func parseRootNote(chordSymbol string) (string, error) {
	if chordSymbol == "" {
		return "", fmt.Errorf("empty chord symbol")
	}
	root := chordSymbol[:1]
	if len(chordSymbol) > 1 && (chordSymbol[1] == '#' || chordSymbol[1] == 'b') {
		root = chordSymbol[:2]
	}
	if _, ok := semitones[root]; !ok {
		return "", fmt.Errorf("invalid root note: %s", root)
	}
	return root, nil
}

func parseChordQuality(suffix string) string {
	switch {
	case strings.HasPrefix(suffix, "maj"):
		return "major"
	case strings.HasPrefix(suffix, "min"), strings.HasPrefix(suffix, "m"):
		return "minor"
	case strings.HasPrefix(suffix, "dim"):
		return "diminished"
	case strings.HasPrefix(suffix, "aug"), strings.HasPrefix(suffix, "+"):
		return "augmented"
	case strings.HasPrefix(suffix, "sus2"):
		return "sus2"
	case strings.HasPrefix(suffix, "sus4"), strings.HasPrefix(suffix, "sus"):
		return "sus4"
	}
	return "major"
}

// parseExtensions pulls maj7/min7 out before stripping quality markers so "maj7" never
// degrades into "aj7".
func parseExtensions(suffix string) []string {
	var extensions []string
	if strings.Contains(suffix, "maj7") {
		extensions = append(extensions, "maj7")
		suffix = strings.ReplaceAll(suffix, "maj7", "")
	}
	if strings.Contains(suffix, "min7") {
		extensions = append(extensions, "7")
		suffix = strings.ReplaceAll(suffix, "min7", "")
	}
	for _, marker := range []string{"min", "dim", "aug", "sus2", "sus4", "sus", "m", "+"} {
		suffix = strings.TrimPrefix(suffix, marker)
	}

	for _, add := range []string{"add9", "add11", "add13"} {
		if strings.Contains(suffix, add) {
			extensions = append(extensions, add)
			suffix = strings.ReplaceAll(suffix, add, "")
		}
	}
	if strings.Contains(suffix, "13") {
		extensions = append(extensions, "13")
		suffix = strings.ReplaceAll(suffix, "13", "")
	}
	if strings.Contains(suffix, "11") {
		extensions = append(extensions, "11")
		suffix = strings.ReplaceAll(suffix, "11", "")
	}
	if strings.Contains(suffix, "9") {
		extensions = append(extensions, "9")
	}
	if strings.Contains(suffix, "7") {
		extensions = append(extensions, "7")
	}
	return extensions
}

func buildChordIntervals(quality string, extensions []string) []int {
	var intervals []int
	switch quality {
	case "minor":
		intervals = []int{0, 3, 7}
	case "diminished":
		intervals = []int{0, 3, 6}
	case "augmented":
		intervals = []int{0, 4, 8}
	case "sus2":
		intervals = []int{0, 2, 7}
	case "sus4":
		intervals = []int{0, 5, 7}
	default:
		intervals = []int{0, 4, 7}
	}

	for _, ext := range extensions {
		switch ext {
		case "7":
			if quality == "diminished" {
				intervals = append(intervals, 9)
			} else {
				intervals = append(intervals, 10)
			}
		case "maj7":
			intervals = append(intervals, 11)
		case "9", "add9":
			intervals = append(intervals, 14)
		case "11", "add11":
			intervals = append(intervals, 17)
		case "13", "add13":
			intervals = append(intervals, 21)
		}
	}
	return intervals
}

func noteToMIDI(note string, octave int) int {
	return (octave+1)*12 + semitones[note]
}
