package generation

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/logger"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

// General MIDI percussion keys.
const (
	drumKick      = 36
	drumSnare     = 38
	drumClosedHat = 42
	drumRide      = 51
)

const (
	melodyLow  = 60
	melodyHigh = 84
	chordOct   = 4
	bassOct    = 2
)

// AlgorithmicBackend arranges music from music-theory rules only. Output is a pure
// function of the parameters and seed melody.
type AlgorithmicBackend struct{}

func NewAlgorithmicBackend() *AlgorithmicBackend {
	return &AlgorithmicBackend{}
}

func (b *AlgorithmicBackend) Name() string { return BackendAlgorithmic }

// Generate builds melody, chords, bass and drums bar by bar, checking ctx between bars.
func (b *AlgorithmicBackend) Generate(ctx context.Context, params models.MusicParameters, melody *models.MelodyInput) (*models.Arrangement, error) {
	return b.arrange(ctx, params, melody, nil)
}

func (b *AlgorithmicBackend) arrange(ctx context.Context, params models.MusicParameters, melody *models.MelodyInput, plan *models.ArrangementPlan) (*models.Arrangement, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	start := time.Now()

	beatsPerBar := params.TimeSignature.BeatsPerBar()
	bars := plannedBars(params, melody)

	var seeded []models.NoteEvent
	if melody != nil && len(melody.Notes) > 0 {
		seeded = MelodyToBeats(melody.Notes, params.Tempo)
	}

	progression := Progression(params.Key, params.Genre, params.Mood)
	sections := defaultSections(bars)
	var harmonized []string
	if seeded != nil && plan == nil {
		harmonized = HarmonizeBars(seeded, bars, beatsPerBar, params.Key)
	}
	if plan != nil {
		if len(plan.ChordProgression) > 0 {
			progression = plan.ChordProgression
		}
		if len(plan.Sections) > 0 {
			sections = fitSections(plan.Sections, bars)
		}
	}

	rng := rand.New(rand.NewPCG(seedFor(params, melody), 0x6d75736963))
	comp := comping(params.Genre, params.TimeSignature)
	pool := scalePitches(params.Key, melodyLow, melodyHigh)
	harmony := len(pitchedInstruments(params.Instruments)) > 0
	velocity := moodVelocity(params.Mood)

	arr := &models.Arrangement{
		Sections:   sections,
		TotalBeats: float64(bars) * beatsPerBar,
	}
	cursor := len(pool) / 2

	for bar := 0; bar < bars; bar++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		barStart := float64(bar) * beatsPerBar
		symbol := progression[bar%len(progression)]
		if bar < len(harmonized) && harmonized[bar] != "" {
			symbol = harmonized[bar]
		}

		voicing, err := ChordToMIDI(symbol, chordOct)
		if err != nil {
			return nil, fmt.Errorf("bar %d: %w", bar+1, err)
		}
		arr.Chords = append(arr.Chords, models.ChordEvent{
			ChordSymbol:   symbol,
			StartBeats:    barStart,
			DurationBeats: beatsPerBar,
		})

		if harmony {
			arr.ChordVoices = append(arr.ChordVoices,
				applyRhythmTemplate(voicing, velocity-16, barStart, beatsPerBar, comp)...)
		}
		if params.HasInstrument(models.InstrumentBass) {
			arr.Bass = append(arr.Bass, bassBar(symbol, velocity, barStart, beatsPerBar, params.Genre)...)
		}
		if params.HasInstrument(models.InstrumentDrums) {
			arr.Drums = append(arr.Drums, drumBar(barStart, beatsPerBar, params)...)
		}
		if seeded == nil {
			var notes []models.NoteEvent
			notes, cursor = melodyBar(rng, pool, voicing, cursor, velocity, barStart, beatsPerBar, params.Complexity)
			arr.Melody = append(arr.Melody, notes...)
		}
	}
	if seeded != nil {
		arr.Melody = seeded
	}

	if arr.NoteCount() == 0 {
		return nil, ErrEmptyArrangement
	}

	logger.Debug("Arrangement generated", logger.Fields{
		"bars":     bars,
		"notes":    arr.NoteCount(),
		"chords":   len(progression),
		"duration": time.Since(start).String(),
	})
	return arr, nil
}

// Render encodes the arrangement to MIDI, a WAV preview, MusicXML and a PDF lead sheet.
func (b *AlgorithmicBackend) Render(ctx context.Context, arr *models.Arrangement, params models.MusicParameters) (*Rendered, error) {
	return render(ctx, arr, params)
}

func render(ctx context.Context, arr *models.Arrangement, params models.MusicParameters) (*Rendered, error) {
	if arr == nil || arr.NoteCount() == 0 {
		return nil, ErrEmptyArrangement
	}

	midiData, err := EncodeMIDI(arr, params)
	if err != nil {
		return nil, fmt.Errorf("encode midi: %w", err)
	}
	if len(midiData) == 0 {
		return nil, fmt.Errorf("encode midi: empty output")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	audio, err := RenderWAV(ctx, arr, params)
	if err != nil {
		return nil, fmt.Errorf("render audio: %w", err)
	}

	xmlData, err := EncodeMusicXML(arr, params)
	if err != nil {
		return nil, fmt.Errorf("encode musicxml: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdfData, err := RenderLeadSheet(arr, params)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	return &Rendered{MIDI: midiData, Audio: audio, MusicXML: xmlData, PDF: pdfData}, nil
}

// plannedBars covers the requested duration, extended to fit a longer seed melody.
func plannedBars(params models.MusicParameters, melody *models.MelodyInput) int {
	totalBeats := float64(params.Duration) * float64(params.Tempo) / 60
	if melody != nil {
		if end := endBeat(MelodyToBeats(melody.Notes, params.Tempo)); end > totalBeats {
			totalBeats = end
		}
	}
	bars := int(math.Ceil(totalBeats / params.TimeSignature.BeatsPerBar()))
	if bars < 1 {
		bars = 1
	}
	return bars
}

// MelodyToBeats converts second-based notes to beat positions, sorted by start.
func MelodyToBeats(notes []models.Note, tempo int) []models.NoteEvent {
	beatsPerSecond := float64(tempo) / 60
	out := make([]models.NoteEvent, len(notes))
	for i, n := range notes {
		out[i] = models.NoteEvent{
			MidiNoteNumber: n.Pitch,
			Velocity:       n.Velocity,
			StartBeats:     n.StartTime * beatsPerSecond,
			DurationBeats:  n.Duration * beatsPerSecond,
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].StartBeats < out[b].StartBeats })
	return out
}

// applyRhythmTemplate repeats notes at each template hit within one bar.
func applyRhythmTemplate(notes []int, velocity int, barStart, barBeats float64, tmpl RhythmTemplate) []models.NoteEvent {
	cycle := templateCycle(tmpl)
	scale := barBeats / cycle

	var events []models.NoteEvent
	for i, offset := range tmpl.Offsets {
		pos := offset * scale
		if pos >= barBeats {
			break
		}
		next := barBeats
		if i+1 < len(tmpl.Offsets) && tmpl.Offsets[i+1]*scale < barBeats {
			next = tmpl.Offsets[i+1] * scale
		}

		accent := 1.0
		if i < len(tmpl.Accents) {
			accent = tmpl.Accents[i]
		}
		for _, n := range notes {
			events = append(events, models.NoteEvent{
				MidiNoteNumber: n,
				Velocity:       clampVelocity(float64(velocity) * accent),
				StartBeats:     barStart + pos,
				DurationBeats:  (next - pos) * tmpl.Articulation,
			})
		}
	}
	return events
}

func templateCycle(tmpl RhythmTemplate) float64 {
	switch tmpl.Name {
	case "waltz", "6/8":
		return 3
	}
	return 4
}

func bassBar(symbol string, velocity int, barStart, barBeats float64, genre models.Genre) []models.NoteEvent {
	base := symbol
	if i := strings.Index(base, "/"); i >= 0 {
		base = base[:i]
	}
	tones, err := ChordToMIDI(base, bassOct)
	if err != nil || len(tones) < 3 {
		return nil
	}
	root, third, fifth := tones[0], tones[1], tones[2]

	note := func(pitch int, at, dur float64, accent float64) models.NoteEvent {
		return models.NoteEvent{
			MidiNoteNumber: pitch,
			Velocity:       clampVelocity(float64(velocity) * accent),
			StartBeats:     barStart + at,
			DurationBeats:  dur,
		}
	}

	var out []models.NoteEvent
	switch genre {
	case models.GenreRock, models.GenreElectronic, models.GenreCountry:
		for at := 0.0; at < barBeats; at += 0.5 {
			out = append(out, note(root, at, 0.45, 0.85))
		}
	case models.GenreJazz, models.GenreBlues:
		walk := []int{root, third, fifth, third}
		for i, at := 0, 0.0; at < barBeats; i, at = i+1, at+1 {
			out = append(out, note(walk[i%len(walk)], at, 0.9, 0.9))
		}
	default:
		half := barBeats / 2
		out = append(out, note(root, 0, half*0.95, 1.0))
		if barBeats >= 2 {
			out = append(out, note(fifth, half, half*0.95, 0.85))
		}
	}
	return out
}

func drumBar(barStart, barBeats float64, params models.MusicParameters) []models.NoteEvent {
	hit := func(key int, at float64, vel int) models.NoteEvent {
		return models.NoteEvent{MidiNoteNumber: key, Velocity: vel, StartBeats: barStart + at, DurationBeats: 0.25}
	}

	cymbal := drumClosedHat
	if params.Genre == models.GenreJazz {
		cymbal = drumRide
	}
	step := 1.0
	if params.Complexity >= 3 {
		step = 0.5
	}

	var out []models.NoteEvent
	for at := 0.0; at < barBeats; at += step {
		vel := 70
		if math.Mod(at, 1) == 0 {
			vel = 85
		}
		out = append(out, hit(cymbal, at, vel))
	}

	beats := int(barBeats)
	out = append(out, hit(drumKick, 0, 110))
	switch {
	case beats == 3:
		// waltz feel: kick on one only
	case beats == 4:
		out = append(out, hit(drumSnare, 1, 100), hit(drumKick, 2, 100), hit(drumSnare, 3, 100))
		if params.Genre == models.GenreElectronic {
			out = append(out, hit(drumKick, 1, 100), hit(drumKick, 3, 100))
		}
	default:
		for b := 2; b < beats; b += 2 {
			out = append(out, hit(drumSnare, float64(b-1), 95))
		}
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].StartBeats < out[b].StartBeats })
	return out
}

// melodyBar writes one bar of melody as a random walk over the scale that lands on
// a chord tone at the downbeat. It returns the notes and the new pool cursor.
func melodyBar(rng *rand.Rand, pool, voicing []int, cursor, velocity int, barStart, barBeats float64, complexity int) ([]models.NoteEvent, int) {
	cursor = nearestChordTone(pool, voicing, cursor)

	var out []models.NoteEvent
	for pos := 0.0; pos < barBeats-1e-9; {
		dur := noteLength(rng, complexity)
		if pos+dur > barBeats {
			dur = barBeats - pos
		}

		rest := pos > 0 && complexity > 2 && rng.Float64() < 0.12
		if !rest {
			accent := 0.85
			if pos == 0 {
				accent = 1.0
			}
			out = append(out, models.NoteEvent{
				MidiNoteNumber: pool[cursor],
				Velocity:       clampVelocity(float64(velocity) * accent),
				StartBeats:     barStart + pos,
				DurationBeats:  dur * 0.9,
			})
		}

		step := rng.IntN(5) - 2
		cursor += step
		if cursor < 0 {
			cursor = -cursor
		}
		if cursor >= len(pool) {
			cursor = 2*(len(pool)-1) - cursor
		}
		pos += dur
	}
	return out, cursor
}

func noteLength(rng *rand.Rand, complexity int) float64 {
	switch complexity {
	case 1:
		return 2
	case 2:
		return 1
	case 3:
		if rng.IntN(2) == 0 {
			return 1
		}
		return 0.5
	case 4:
		return 0.5
	default:
		if rng.IntN(3) == 0 {
			return 0.25
		}
		return 0.5
	}
}

func nearestChordTone(pool, voicing []int, cursor int) int {
	best, bestDist := cursor, math.MaxInt
	for i, p := range pool {
		for _, v := range voicing {
			if p%12 != v%12 {
				continue
			}
			d := i - cursor
			if d < 0 {
				d = -d
			}
			if d < bestDist {
				best, bestDist = i, d
			}
		}
	}
	return best
}

func scalePitches(key models.Key, low, high int) []int {
	var out []int
	for p := low; p <= high; p++ {
		if InScale(p, key) {
			out = append(out, p)
		}
	}
	return out
}

func pitchedInstruments(in []models.Instrument) []models.Instrument {
	var out []models.Instrument
	for _, i := range in {
		if i != models.InstrumentDrums && i != models.InstrumentBass {
			out = append(out, i)
		}
	}
	return out
}

func moodVelocity(m models.Mood) int {
	switch m {
	case models.MoodEnergetic, models.MoodEpic, models.MoodTense:
		return 104
	case models.MoodCalm, models.MoodSad, models.MoodMelancholic, models.MoodRomantic:
		return 72
	}
	return 90
}

func defaultSections(bars int) []models.Section {
	if bars < 12 {
		return []models.Section{{Name: "main", StartBar: 0, LengthBar: bars}}
	}

	sections := []models.Section{{Name: "intro", StartBar: 0, LengthBar: 2}}
	at, body := 2, bars-4
	block := 8
	names := []string{"verse", "chorus"}
	for i := 0; body > 0; i++ {
		n := block
		if n > body {
			n = body
		}
		sections = append(sections, models.Section{Name: names[i%2], StartBar: at, LengthBar: n})
		at += n
		body -= n
	}
	return append(sections, models.Section{Name: "outro", StartBar: at, LengthBar: bars - at})
}

// fitSections lays the planned sections end to end, repeating the plan until it covers
// bars and truncating the final section.
func fitSections(plan []models.Section, bars int) []models.Section {
	var out []models.Section
	at := 0
	for i := 0; at < bars; i++ {
		s := plan[i%len(plan)]
		n := s.LengthBar
		if n < 1 {
			n = 1
		}
		if at+n > bars {
			n = bars - at
		}
		out = append(out, models.Section{Name: s.Name, StartBar: at, LengthBar: n})
		at += n
	}
	return out
}

// Structure lists section names in order.
func Structure(arr *models.Arrangement) []string {
	out := make([]string, len(arr.Sections))
	for i, s := range arr.Sections {
		out[i] = s.Name
	}
	return out
}

// ChordSymbols returns the distinct progression in first-seen order.
func ChordSymbols(arr *models.Arrangement) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range arr.Chords {
		if !seen[c.ChordSymbol] {
			seen[c.ChordSymbol] = true
			out = append(out, c.ChordSymbol)
		}
	}
	return out
}

func seedFor(params models.MusicParameters, melody *models.MelodyInput) uint64 {
	payload, _ := json.Marshal(struct {
		Params models.MusicParameters `json:"params"`
		Melody *models.MelodyInput    `json:"melody,omitempty"`
	}{params, melody})
	sum := sha256.Sum256(payload)
	return binary.BigEndian.Uint64(sum[:8])
}

func endBeat(events []models.NoteEvent) float64 {
	var end float64
	for _, e := range events {
		if t := e.StartBeats + e.DurationBeats; t > end {
			end = t
		}
	}
	return end
}

func clampVelocity(v float64) int {
	n := int(math.Round(v))
	if n < models.MinVelocity {
		return models.MinVelocity
	}
	if n > models.MaxVelocity {
		return models.MaxVelocity
	}
	return n
}
