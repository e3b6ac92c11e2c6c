package models

// NoteEvent is a note positioned in beats, the unit the arranger works in.
type NoteEvent struct {
	MidiNoteNumber int     `json:"midiNoteNumber"`
	Velocity       int     `json:"velocity"`
	StartBeats     float64 `json:"startBeats"`
	DurationBeats  float64 `json:"durationBeats"`
}

// ChordEvent represents a chord with timing information
type ChordEvent struct {
	ChordSymbol   string  `json:"chordSymbol"`
	StartBeats    float64 `json:"startBeats"`
	DurationBeats float64 `json:"durationBeats"`
}

// Section is a named span of bars ("intro", "verse", ...).
type Section struct {
	Name      string `json:"name"`
	StartBar  int    `json:"startBar"`
	LengthBar int    `json:"lengthBars"`
}

// Arrangement is the backend's symbolic output before rendering.
type Arrangement struct {
	Melody      []NoteEvent  `json:"melody"`
	Chords      []ChordEvent `json:"chords"`
	ChordVoices []NoteEvent  `json:"chordVoices"`
	Bass        []NoteEvent  `json:"bass"`
	Drums       []NoteEvent  `json:"drums"`
	Sections    []Section    `json:"sections"`
	TotalBeats  float64      `json:"totalBeats"`
}

// NoteCount returns the number of pitched and percussive events.
func (a *Arrangement) NoteCount() int {
	return len(a.Melody) + len(a.ChordVoices) + len(a.Bass) + len(a.Drums)
}

// ArrangementPlan is the structured plan a language model returns for an arrangement.
type ArrangementPlan struct {
	Description      string    `json:"description"`
	ChordProgression []string  `json:"chordProgression"`
	Sections         []Section `json:"sections"`
}
