package models

import (
	"fmt"
	"sort"
	"strings"
)

// Parameter bounds. Values outside these ranges are rejected, never clamped.
const (
	MinTempo      = 40
	MaxTempo      = 240
	MinDuration   = 10
	MaxDuration   = 300
	MinComplexity = 1
	MaxComplexity = 5
	MinPitch      = 0
	MaxPitch      = 127
	MinVelocity   = 1
	MaxVelocity   = 127
)

// Key is a canonical key name: root with optional "m" for minor ("C", "F#", "Am", "Bbm").
type Key string

// TimeSignature is a meter such as "4/4".
type TimeSignature string

// Genre is a lower-case genre identifier.
type Genre string

// Mood is a lower-case mood identifier.
type Mood string

// Instrument is a lower-case instrument identifier.
type Instrument string

const (
	GenrePop        Genre = "pop"
	GenreRock       Genre = "rock"
	GenreJazz       Genre = "jazz"
	GenreClassical  Genre = "classical"
	GenreElectronic Genre = "electronic"
	GenreHipHop     Genre = "hip_hop"
	GenreFolk       Genre = "folk"
	GenreBlues      Genre = "blues"
	GenreCountry    Genre = "country"
	GenreRnB        Genre = "rnb"
	GenreLatin      Genre = "latin"
	GenreAmbient    Genre = "ambient"
)

const (
	MoodHappy       Mood = "happy"
	MoodSad         Mood = "sad"
	MoodCalm        Mood = "calm"
	MoodEnergetic   Mood = "energetic"
	MoodRomantic    Mood = "romantic"
	MoodMysterious  Mood = "mysterious"
	MoodEpic        Mood = "epic"
	MoodMelancholic Mood = "melancholic"
	MoodPlayful     Mood = "playful"
	MoodTense       Mood = "tense"
)

const (
	InstrumentPiano     Instrument = "piano"
	InstrumentGuitar    Instrument = "guitar"
	InstrumentBass      Instrument = "bass"
	InstrumentDrums     Instrument = "drums"
	InstrumentStrings   Instrument = "strings"
	InstrumentViolin    Instrument = "violin"
	InstrumentCello     Instrument = "cello"
	InstrumentFlute     Instrument = "flute"
	InstrumentSaxophone Instrument = "saxophone"
	InstrumentTrumpet   Instrument = "trumpet"
	InstrumentSynth     Instrument = "synth"
	InstrumentOrgan     Instrument = "organ"
	InstrumentChoir     Instrument = "choir"
)

var (
	genres = []Genre{
		GenrePop, GenreRock, GenreJazz, GenreClassical, GenreElectronic, GenreHipHop,
		GenreFolk, GenreBlues, GenreCountry, GenreRnB, GenreLatin, GenreAmbient,
	}
	moods = []Mood{
		MoodHappy, MoodSad, MoodCalm, MoodEnergetic, MoodRomantic,
		MoodMysterious, MoodEpic, MoodMelancholic, MoodPlayful, MoodTense,
	}
	instruments = []Instrument{
		InstrumentPiano, InstrumentGuitar, InstrumentBass, InstrumentDrums, InstrumentStrings,
		InstrumentViolin, InstrumentCello, InstrumentFlute, InstrumentSaxophone,
		InstrumentTrumpet, InstrumentSynth, InstrumentOrgan, InstrumentChoir,
	}
	timeSignatures = []TimeSignature{"4/4", "3/4", "6/8", "2/4", "5/4", "12/8"}

	keyRoots = []string{
		"C", "C#", "Db", "D", "D#", "Eb", "E", "F", "F#", "Gb", "G", "G#", "Ab", "A", "A#", "Bb", "B",
	}
)

// Genres returns the accepted genre values.
func Genres() []Genre { return append([]Genre(nil), genres...) }

// Moods returns the accepted mood values.
func Moods() []Mood { return append([]Mood(nil), moods...) }

// Instruments returns the accepted instrument values.
func Instruments() []Instrument { return append([]Instrument(nil), instruments...) }

// TimeSignatures returns the accepted meters.
func TimeSignatures() []TimeSignature { return append([]TimeSignature(nil), timeSignatures...) }

func (g Genre) Valid() bool {
	for _, v := range genres {
		if v == g {
			return true
		}
	}
	return false
}

func (m Mood) Valid() bool {
	for _, v := range moods {
		if v == m {
			return true
		}
	}
	return false
}

func (i Instrument) Valid() bool {
	for _, v := range instruments {
		if v == i {
			return true
		}
	}
	return false
}

func (t TimeSignature) Valid() bool {
	for _, v := range timeSignatures {
		if v == t {
			return true
		}
	}
	return false
}

// BeatsPerBar returns the number of quarter-note beats in one bar.
func (t TimeSignature) BeatsPerBar() float64 {
	var num, den int
	if _, err := fmt.Sscanf(string(t), "%d/%d", &num, &den); err != nil || den == 0 {
		return 4
	}
	return float64(num) * 4 / float64(den)
}

// Numerator and Denominator split the meter, defaulting to 4/4.
func (t TimeSignature) Numerator() int {
	var num, den int
	if _, err := fmt.Sscanf(string(t), "%d/%d", &num, &den); err != nil {
		return 4
	}
	return num
}

func (t TimeSignature) Denominator() int {
	var num, den int
	if _, err := fmt.Sscanf(string(t), "%d/%d", &num, &den); err != nil || den == 0 {
		return 4
	}
	return den
}

// ParseKey canonicalises spellings such as "c", "C major", "A minor", "Amin", "C大調" and "A小調".
func ParseKey(s string) (Key, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return "", fmt.Errorf("empty key")
	}

	minor := false
	lower := strings.ToLower(raw)
	for _, suffix := range []string{" minor", "minor", " min", "min", "小調", "小调"} {
		if strings.HasSuffix(lower, suffix) {
			minor = true
			raw = strings.TrimSpace(raw[:len(raw)-len(suffix)])
			break
		}
	}
	if !minor {
		lower = strings.ToLower(raw)
		for _, suffix := range []string{" major", "major", " maj", "maj", "大調", "大调"} {
			if strings.HasSuffix(lower, suffix) {
				raw = strings.TrimSpace(raw[:len(raw)-len(suffix)])
				break
			}
		}
	}
	if !minor && len(raw) > 1 && strings.HasSuffix(raw, "m") {
		minor = true
		raw = raw[:len(raw)-1]
	}
	if raw == "" {
		return "", fmt.Errorf("invalid key %q", s)
	}

	root := strings.ToUpper(raw[:1]) + raw[1:]
	for _, r := range keyRoots {
		if r == root {
			if minor {
				return Key(root + "m"), nil
			}
			return Key(root), nil
		}
	}
	return "", fmt.Errorf("invalid key %q", s)
}

// Valid reports whether k is already in canonical form.
func (k Key) Valid() bool {
	parsed, err := ParseKey(string(k))
	return err == nil && parsed == k
}

// Root returns the tonic without the minor marker.
func (k Key) Root() string {
	if k.IsMinor() {
		return string(k[:len(k)-1])
	}
	return string(k)
}

// IsMinor reports whether the key is minor.
func (k Key) IsMinor() bool {
	return len(k) > 1 && strings.HasSuffix(string(k), "m")
}

// MusicParameters is the fully populated, bounded parameter set the backend consumes.
type MusicParameters struct {
	Description   string        `json:"description,omitempty"`
	Tempo         int           `json:"tempo"`
	Key           Key           `json:"key"`
	TimeSignature TimeSignature `json:"time_signature"`
	Genre         Genre         `json:"genre"`
	Mood          Mood          `json:"mood"`
	Instruments   []Instrument  `json:"instruments"`
	Duration      int           `json:"duration"`
	Complexity    int           `json:"complexity"`
}

// DefaultParameters is the documented fallback set.
func DefaultParameters() MusicParameters {
	return MusicParameters{
		Tempo:         120,
		Key:           "C",
		TimeSignature: "4/4",
		Genre:         GenrePop,
		Mood:          MoodHappy,
		Instruments:   []Instrument{InstrumentPiano},
		Duration:      60,
		Complexity:    3,
	}
}

// Validate checks every field of a complete parameter set.
func (p MusicParameters) Validate() error {
	var errs FieldErrors
	errs = append(errs, checkRange("tempo", p.Tempo, MinTempo, MaxTempo)...)
	errs = append(errs, checkRange("duration", p.Duration, MinDuration, MaxDuration)...)
	errs = append(errs, checkRange("complexity", p.Complexity, MinComplexity, MaxComplexity)...)
	if !p.Key.Valid() {
		errs = append(errs, FieldError{Field: "key", Message: fmt.Sprintf("unsupported key %q", p.Key)})
	}
	if !p.TimeSignature.Valid() {
		errs = append(errs, FieldError{Field: "time_signature", Message: fmt.Sprintf("unsupported time signature %q", p.TimeSignature)})
	}
	if !p.Genre.Valid() {
		errs = append(errs, FieldError{Field: "genre", Message: fmt.Sprintf("unsupported genre %q", p.Genre)})
	}
	if !p.Mood.Valid() {
		errs = append(errs, FieldError{Field: "mood", Message: fmt.Sprintf("unsupported mood %q", p.Mood)})
	}
	if len(p.Instruments) == 0 {
		errs = append(errs, FieldError{Field: "instruments", Message: "at least one instrument is required"})
	}
	for i, inst := range p.Instruments {
		if !inst.Valid() {
			errs = append(errs, FieldError{Field: fmt.Sprintf("instruments[%d]", i), Message: fmt.Sprintf("unsupported instrument %q", inst)})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Clone returns a copy with its own instrument slice.
func (p MusicParameters) Clone() MusicParameters {
	p.Instruments = append([]Instrument(nil), p.Instruments...)
	return p
}

// HasInstrument reports whether inst is part of the ensemble.
func (p MusicParameters) HasInstrument(inst Instrument) bool {
	for _, i := range p.Instruments {
		if i == inst {
			return true
		}
	}
	return false
}

// PartialParameters carries caller-supplied parameters; nil means "not specified".
type PartialParameters struct {
	Description   *string  `json:"description,omitempty"`
	Tempo         *int     `json:"tempo,omitempty"`
	Key           *string  `json:"key,omitempty"`
	TimeSignature *string  `json:"time_signature,omitempty"`
	Genre         *string  `json:"genre,omitempty"`
	Mood          *string  `json:"mood,omitempty"`
	Instruments   []string `json:"instruments,omitempty"`
	Duration      *int     `json:"duration,omitempty"`
	Complexity    *int     `json:"complexity,omitempty"`
}

// Normalize validates the present fields and returns them in canonical form:
// trimmed lower-case enums, canonical key names, sorted de-duplicated instruments.
func (p PartialParameters) Normalize() (PartialParameters, error) {
	var errs FieldErrors
	out := PartialParameters{}

	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		out.Description = &d
	}
	if p.Tempo != nil {
		errs = append(errs, checkRange("tempo", *p.Tempo, MinTempo, MaxTempo)...)
		out.Tempo = intPtr(*p.Tempo)
	}
	if p.Duration != nil {
		errs = append(errs, checkRange("duration", *p.Duration, MinDuration, MaxDuration)...)
		out.Duration = intPtr(*p.Duration)
	}
	if p.Complexity != nil {
		errs = append(errs, checkRange("complexity", *p.Complexity, MinComplexity, MaxComplexity)...)
		out.Complexity = intPtr(*p.Complexity)
	}
	if p.Key != nil {
		k, err := ParseKey(*p.Key)
		if err != nil {
			errs = append(errs, FieldError{Field: "key", Message: err.Error()})
		} else {
			out.Key = strPtr(string(k))
		}
	}
	if p.TimeSignature != nil {
		ts := TimeSignature(strings.TrimSpace(*p.TimeSignature))
		if !ts.Valid() {
			errs = append(errs, FieldError{Field: "time_signature", Message: fmt.Sprintf("unsupported time signature %q", *p.TimeSignature)})
		} else {
			out.TimeSignature = strPtr(string(ts))
		}
	}
	if p.Genre != nil {
		g := Genre(canonicalName(*p.Genre))
		if !g.Valid() {
			errs = append(errs, FieldError{Field: "genre", Message: fmt.Sprintf("unsupported genre %q", *p.Genre)})
		} else {
			out.Genre = strPtr(string(g))
		}
	}
	if p.Mood != nil {
		m := Mood(canonicalName(*p.Mood))
		if !m.Valid() {
			errs = append(errs, FieldError{Field: "mood", Message: fmt.Sprintf("unsupported mood %q", *p.Mood)})
		} else {
			out.Mood = strPtr(string(m))
		}
	}
	if p.Instruments != nil {
		seen := make(map[string]bool, len(p.Instruments))
		list := make([]string, 0, len(p.Instruments))
		for i, raw := range p.Instruments {
			inst := Instrument(canonicalName(raw))
			if !inst.Valid() {
				errs = append(errs, FieldError{Field: fmt.Sprintf("instruments[%d]", i), Message: fmt.Sprintf("unsupported instrument %q", raw)})
				continue
			}
			if !seen[string(inst)] {
				seen[string(inst)] = true
				list = append(list, string(inst))
			}
		}
		if len(p.Instruments) == 0 {
			errs = append(errs, FieldError{Field: "instruments", Message: "instrument list must not be empty"})
		}
		sort.Strings(list)
		out.Instruments = list
	}

	if len(errs) > 0 {
		return PartialParameters{}, errs
	}
	return out, nil
}

// ApplyTo overlays the present fields on base. p must already be normalized.
func (p PartialParameters) ApplyTo(base MusicParameters) MusicParameters {
	out := base.Clone()
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Tempo != nil {
		out.Tempo = *p.Tempo
	}
	if p.Key != nil {
		out.Key = Key(*p.Key)
	}
	if p.TimeSignature != nil {
		out.TimeSignature = TimeSignature(*p.TimeSignature)
	}
	if p.Genre != nil {
		out.Genre = Genre(*p.Genre)
	}
	if p.Mood != nil {
		out.Mood = Mood(*p.Mood)
	}
	if p.Instruments != nil {
		out.Instruments = make([]Instrument, len(p.Instruments))
		for i, inst := range p.Instruments {
			out.Instruments[i] = Instrument(inst)
		}
	}
	if p.Duration != nil {
		out.Duration = *p.Duration
	}
	if p.Complexity != nil {
		out.Complexity = *p.Complexity
	}
	return out
}

// IsEmpty reports whether no field was supplied.
func (p PartialParameters) IsEmpty() bool {
	return p.Description == nil && p.Tempo == nil && p.Key == nil && p.TimeSignature == nil &&
		p.Genre == nil && p.Mood == nil && p.Instruments == nil && p.Duration == nil && p.Complexity == nil
}

// SortInstruments returns a sorted, de-duplicated copy.
func SortInstruments(in []Instrument) []Instrument {
	seen := make(map[Instrument]bool, len(in))
	out := make([]Instrument, 0, len(in))
	for _, i := range in {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

func canonicalName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	switch s {
	case "hiphop", "hip_hop", "rap":
		return string(GenreHipHop)
	case "r&b", "r_and_b", "rhythm_and_blues":
		return string(GenreRnB)
	}
	return s
}

func checkRange(field string, v, lo, hi int) FieldErrors {
	if v < lo || v > hi {
		return FieldErrors{{Field: field, Message: fmt.Sprintf("must be between %d and %d, got %d", lo, hi, v)}}
	}
	return nil
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
