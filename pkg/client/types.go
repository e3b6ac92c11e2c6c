package client

import "time"

// Command types accepted by the API.
const (
	TextToMusic         = "text_to_music"
	MelodyToArrangement = "melody_to_arrangement"
	PitchCorrection     = "pitch_correction"
	MusicAnalysis       = "music_analysis"
	StyleTransfer       = "style_transfer"
	Improvisation       = "improvisation"
)

// Lifecycle states as reported by the status endpoint. A failed command reports "error".
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
	StatusCancelled  = "cancelled"
)

// Parameters are explicit overrides. Nil fields are derived by the server.
type Parameters struct {
	Description   *string  `json:"description,omitempty"`
	Key           *string  `json:"key,omitempty"`
	Tempo         *int     `json:"tempo,omitempty"`
	TimeSignature *string  `json:"time_signature,omitempty"`
	Genre         *string  `json:"genre,omitempty"`
	Mood          *string  `json:"mood,omitempty"`
	Instruments   []string `json:"instruments,omitempty"`
	Duration      *int     `json:"duration,omitempty"`
	Complexity    *int     `json:"complexity,omitempty"`
}

type Note struct {
	Pitch     int     `json:"pitch"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
	Velocity  int     `json:"velocity"`
}

type Melody struct {
	Notes []Note `json:"notes"`
	Tempo *int   `json:"tempo,omitempty"`
}

type TextRequest struct {
	Text        string      `json:"text"`
	Parameters  *Parameters `json:"parameters,omitempty"`
	CommandType string      `json:"command_type,omitempty"`
	Melody      *Melody     `json:"melody,omitempty"`
	Enhance     bool        `json:"enhance,omitempty"`
}

type AudioRequest struct {
	AudioDataURL   string      `json:"audio_data_url"`
	AdditionalText string      `json:"additional_text,omitempty"`
	Parameters     *Parameters `json:"parameters,omitempty"`
	CommandType    string      `json:"command_type,omitempty"`
	Enhance        bool        `json:"enhance,omitempty"`
}

type Submission struct {
	CommandID      string `json:"command_id"`
	Status         string `json:"status"`
	PollIntervalMS int64  `json:"poll_interval_ms,omitempty"`
}

type Status struct {
	CommandID   string     `json:"command_id"`
	CommandType string     `json:"command_type"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	TimedOut    bool       `json:"timed_out,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the command will not change state again.
func (s *Status) Terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	}
	return false
}

type Cancellation struct {
	Message   string `json:"message"`
	CommandID string `json:"command_id"`
	Status    string `json:"status"`
}

type Analysis struct {
	Key              string   `json:"key"`
	Tempo            int      `json:"tempo"`
	TimeSignature    string   `json:"time_signature"`
	ChordProgression []string `json:"chord_progression"`
	Structure        []string `json:"structure"`
	Genre            string   `json:"genre,omitempty"`
	Mood             string   `json:"mood,omitempty"`
	Instruments      []string `json:"instruments,omitempty"`
	Duration         int      `json:"duration,omitempty"`
	NoteCount        int      `json:"note_count,omitempty"`
}

type ScoreData struct {
	MusicXML []byte `json:"musicxml"`
	PDF      []byte `json:"pdf"`
}

type MusicData struct {
	MIDIData  []byte    `json:"midi_data"`
	AudioData []byte    `json:"audio_data"`
	ScoreData ScoreData `json:"score_data"`
}

type Result struct {
	CommandID   string    `json:"command_id"`
	Status      string    `json:"status"`
	MusicData   MusicData `json:"music_data"`
	Analysis    Analysis  `json:"analysis"`
	Suggestions []string  `json:"suggestions"`
	Backend     string    `json:"backend,omitempty"`
	CacheHit    bool      `json:"cache_hit,omitempty"`
}
