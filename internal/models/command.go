package models

import (
	"fmt"
	"strings"
	"time"
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors collects every invalid field of a request.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// Note is a single pitched event. Times are in seconds.
type Note struct {
	Pitch     int     `json:"pitch"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
	Velocity  int     `json:"velocity"`
}

// Validate checks the note against MIDI ranges; field names are prefixed with path.
func (n Note) Validate(path string) FieldErrors {
	var errs FieldErrors
	if n.Pitch < MinPitch || n.Pitch > MaxPitch {
		errs = append(errs, FieldError{Field: path + ".pitch", Message: fmt.Sprintf("must be between %d and %d, got %d", MinPitch, MaxPitch, n.Pitch)})
	}
	if n.Velocity < MinVelocity || n.Velocity > MaxVelocity {
		errs = append(errs, FieldError{Field: path + ".velocity", Message: fmt.Sprintf("must be between %d and %d, got %d", MinVelocity, MaxVelocity, n.Velocity)})
	}
	if n.StartTime < 0 {
		errs = append(errs, FieldError{Field: path + ".start_time", Message: "must not be negative"})
	}
	if n.Duration <= 0 {
		errs = append(errs, FieldError{Field: path + ".duration", Message: "must be positive"})
	}
	return errs
}

// MelodyInput is a seed melody. Notes need not be sorted.
type MelodyInput struct {
	Notes []Note `json:"notes"`
	Tempo *int   `json:"tempo,omitempty"`
}

// Validate checks every note and the optional tempo override.
func (m *MelodyInput) Validate() FieldErrors {
	var errs FieldErrors
	if len(m.Notes) == 0 {
		errs = append(errs, FieldError{Field: "melody.notes", Message: "melody must contain at least one note"})
	}
	for i, n := range m.Notes {
		errs = append(errs, n.Validate(fmt.Sprintf("melody.notes[%d]", i))...)
	}
	if m.Tempo != nil {
		errs = append(errs, checkRange("melody.tempo", *m.Tempo, MinTempo, MaxTempo)...)
	}
	return errs
}

// Clone returns an independent copy.
func (m *MelodyInput) Clone() *MelodyInput {
	if m == nil {
		return nil
	}
	out := &MelodyInput{Notes: append([]Note(nil), m.Notes...)}
	if m.Tempo != nil {
		t := *m.Tempo
		out.Tempo = &t
	}
	return out
}

// AudioInput is an opaque audio payload with its declared format ("wav", "mp3", ...).
type AudioInput struct {
	Data   []byte `json:"data,omitempty"`
	Format string `json:"format"`
}

// Clone returns an independent copy.
func (a *AudioInput) Clone() *AudioInput {
	if a == nil {
		return nil
	}
	return &AudioInput{Data: append([]byte(nil), a.Data...), Format: a.Format}
}

// CommandType selects the pipeline variant.
type CommandType string

const (
	CommandTextToMusic         CommandType = "text_to_music"
	CommandMelodyToArrangement CommandType = "melody_to_arrangement"
	CommandPitchCorrection     CommandType = "pitch_correction"
	CommandMusicAnalysis       CommandType = "music_analysis"
	CommandStyleTransfer       CommandType = "style_transfer"
	CommandImprovisation       CommandType = "improvisation"
)

var commandTypes = []CommandType{
	CommandTextToMusic, CommandMelodyToArrangement, CommandPitchCorrection,
	CommandMusicAnalysis, CommandStyleTransfer, CommandImprovisation,
}

// CommandTypes returns all supported command types.
func CommandTypes() []CommandType { return append([]CommandType(nil), commandTypes...) }

func (t CommandType) Valid() bool {
	for _, v := range commandTypes {
		if v == t {
			return true
		}
	}
	return false
}

// NeedsSeed reports whether the type operates on a melody or audio input.
func (t CommandType) NeedsSeed() bool {
	switch t {
	case CommandMelodyToArrangement, CommandPitchCorrection, CommandMusicAnalysis, CommandStyleTransfer:
		return true
	}
	return false
}

// CommandStatus is the lifecycle state of a command.
type CommandStatus string

const (
	StatusPending    CommandStatus = "pending"
	StatusProcessing CommandStatus = "processing"
	StatusCompleted  CommandStatus = "completed"
	StatusFailed     CommandStatus = "failed"
	StatusCancelled  CommandStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s CommandStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransitionTo encodes the lifecycle DAG:
// pending -> processing | completed (cache hit) | failed | cancelled
// processing -> completed | failed | cancelled
func (s CommandStatus) CanTransitionTo(next CommandStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	default:
		return false
	}
}

// Command is one tracked request.
type Command struct {
	ID          string            `json:"command_id"`
	Type        CommandType       `json:"command_type"`
	TextInput   string            `json:"text_input,omitempty"`
	Melody      *MelodyInput      `json:"melody_input,omitempty"`
	Audio       *AudioInput       `json:"audio_input,omitempty"`
	Parameters  PartialParameters `json:"parameters"`
	Enhance     bool              `json:"enhance,omitempty"`
	Status      CommandStatus     `json:"status"`
	Result      *MusicResult      `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	TimedOut    bool              `json:"timed_out,omitempty"`
	CallerID    string            `json:"caller_id,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Clone returns a deep copy safe to hand outside the store.
func (c *Command) Clone() *Command {
	if c == nil {
		return nil
	}
	out := *c
	out.Melody = c.Melody.Clone()
	out.Audio = c.Audio.Clone()
	out.Parameters = clonePartial(c.Parameters)
	out.Result = c.Result.Clone()
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

func clonePartial(p PartialParameters) PartialParameters {
	out := p
	if p.Description != nil {
		out.Description = strPtr(*p.Description)
	}
	if p.Tempo != nil {
		out.Tempo = intPtr(*p.Tempo)
	}
	if p.Key != nil {
		out.Key = strPtr(*p.Key)
	}
	if p.TimeSignature != nil {
		out.TimeSignature = strPtr(*p.TimeSignature)
	}
	if p.Genre != nil {
		out.Genre = strPtr(*p.Genre)
	}
	if p.Mood != nil {
		out.Mood = strPtr(*p.Mood)
	}
	if p.Instruments != nil {
		out.Instruments = append([]string{}, p.Instruments...)
	}
	if p.Duration != nil {
		out.Duration = intPtr(*p.Duration)
	}
	if p.Complexity != nil {
		out.Complexity = intPtr(*p.Complexity)
	}
	return out
}
