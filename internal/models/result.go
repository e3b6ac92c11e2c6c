package models

// MusicResult is written once at the completed transition and never mutated afterwards.
// []byte fields marshal to base64 in JSON.
type MusicResult struct {
	CommandID   string        `json:"command_id"`
	Status      CommandStatus `json:"status"`
	MusicData   MusicData     `json:"music_data"`
	Analysis    Analysis      `json:"analysis"`
	Suggestions []string      `json:"suggestions"`
	Backend     string        `json:"backend,omitempty"`
	CacheHit    bool          `json:"cache_hit,omitempty"`
}

// MusicData holds the rendered artifacts.
type MusicData struct {
	MIDIData  []byte    `json:"midi_data"`
	AudioData []byte    `json:"audio_data"`
	ScoreData ScoreData `json:"score_data"`
}

// ScoreData holds notation renderings.
type ScoreData struct {
	MusicXML []byte `json:"musicxml"`
	PDF      []byte `json:"pdf"`
}

// Analysis describes what was generated or detected.
type Analysis struct {
	Key              Key             `json:"key"`
	Tempo            int             `json:"tempo"`
	TimeSignature    TimeSignature   `json:"time_signature"`
	ChordProgression []string        `json:"chord_progression"`
	Structure        []string        `json:"structure"`
	Genre            Genre           `json:"genre,omitempty"`
	Mood             Mood            `json:"mood,omitempty"`
	Instruments      []Instrument    `json:"instruments,omitempty"`
	Duration         int             `json:"duration,omitempty"`
	NoteCount        int             `json:"note_count,omitempty"`
	Parameters       MusicParameters `json:"parameters"`
}

// Clone returns a deep copy so cached results and stored results never share buffers.
func (r *MusicResult) Clone() *MusicResult {
	if r == nil {
		return nil
	}
	out := *r
	out.MusicData.MIDIData = cloneBytes(r.MusicData.MIDIData)
	out.MusicData.AudioData = cloneBytes(r.MusicData.AudioData)
	out.MusicData.ScoreData.MusicXML = cloneBytes(r.MusicData.ScoreData.MusicXML)
	out.MusicData.ScoreData.PDF = cloneBytes(r.MusicData.ScoreData.PDF)
	out.Analysis.ChordProgression = append([]string(nil), r.Analysis.ChordProgression...)
	out.Analysis.Structure = append([]string(nil), r.Analysis.Structure...)
	out.Analysis.Instruments = append([]Instrument(nil), r.Analysis.Instruments...)
	out.Analysis.Parameters = r.Analysis.Parameters.Clone()
	out.Suggestions = append([]string(nil), r.Suggestions...)
	return &out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
