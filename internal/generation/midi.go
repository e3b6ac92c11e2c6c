package generation

import (
	"bytes"
	"math"
	"sort"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	ticksPerQuarter = 960
	drumChannel     = 9
)

// gmPrograms maps instruments to General MIDI programs (0-based).
var gmPrograms = map[models.Instrument]uint8{
	models.InstrumentPiano:     0,
	models.InstrumentOrgan:     16,
	models.InstrumentGuitar:    25,
	models.InstrumentBass:      33,
	models.InstrumentViolin:    40,
	models.InstrumentCello:     42,
	models.InstrumentStrings:   48,
	models.InstrumentChoir:     52,
	models.InstrumentTrumpet:   56,
	models.InstrumentSaxophone: 65,
	models.InstrumentFlute:     73,
	models.InstrumentSynth:     80,
}

// part is one MIDI track worth of notes.
type part struct {
	name    string
	channel uint8
	program uint8
	notes   []models.NoteEvent
}

// parts assigns arrangement lines to instruments: the first pitched instrument leads,
// the second (or the lead again) plays the chords.
func parts(arr *models.Arrangement, params models.MusicParameters) []part {
	pitched := pitchedInstruments(params.Instruments)
	lead := models.InstrumentPiano
	if len(pitched) > 0 {
		lead = pitched[0]
	}
	harmony := lead
	if len(pitched) > 1 {
		harmony = pitched[1]
	}

	var out []part
	if len(arr.Melody) > 0 {
		out = append(out, part{name: "Melody (" + string(lead) + ")", channel: 0, program: gmPrograms[lead], notes: arr.Melody})
	}
	if len(arr.ChordVoices) > 0 {
		out = append(out, part{name: "Chords (" + string(harmony) + ")", channel: 1, program: gmPrograms[harmony], notes: arr.ChordVoices})
	}
	if len(arr.Bass) > 0 {
		out = append(out, part{name: "Bass", channel: 2, program: gmPrograms[models.InstrumentBass], notes: arr.Bass})
	}
	if len(arr.Drums) > 0 {
		out = append(out, part{name: "Drums", channel: drumChannel, notes: arr.Drums})
	}
	return out
}

type timedMessage struct {
	tick uint32
	off  bool
	msg  midi.Message
}

// EncodeMIDI writes a format 1 Standard MIDI File: a conductor track with tempo and
// meter, then one track per part.
func EncodeMIDI(arr *models.Arrangement, params models.MusicParameters) ([]byte, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var conductor smf.Track
	conductor.Add(0, smf.MetaTrackSequenceName(title(params)))
	conductor.Add(0, smf.MetaMeter(uint8(params.TimeSignature.Numerator()), uint8(params.TimeSignature.Denominator())))
	conductor.Add(0, smf.MetaTempo(float64(params.Tempo)))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return nil, err
	}

	for _, p := range parts(arr, params) {
		var tr smf.Track
		tr.Add(0, smf.MetaTrackSequenceName(p.name))
		if p.channel != drumChannel {
			tr.Add(0, midi.ProgramChange(p.channel, p.program))
		}

		events := make([]timedMessage, 0, len(p.notes)*2)
		for _, n := range p.notes {
			on := beatsToTicks(n.StartBeats)
			off := beatsToTicks(n.StartBeats + n.DurationBeats)
			if off <= on {
				off = on + 1
			}
			key, vel := uint8(n.MidiNoteNumber), uint8(n.Velocity)
			events = append(events,
				timedMessage{tick: on, msg: midi.NoteOn(p.channel, key, vel)},
				timedMessage{tick: off, off: true, msg: midi.NoteOff(p.channel, key)},
			)
		}
		// note-offs sort before note-ons on the same tick so repeated pitches retrigger
		sort.SliceStable(events, func(a, b int) bool {
			if events[a].tick != events[b].tick {
				return events[a].tick < events[b].tick
			}
			return events[a].off && !events[b].off
		})

		var last uint32
		for _, e := range events {
			tr.Add(e.tick-last, e.msg)
			last = e.tick
		}
		tr.Close(0)
		if err := s.Add(tr); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func beatsToTicks(beats float64) uint32 {
	if beats <= 0 {
		return 0
	}
	return uint32(math.Round(beats * ticksPerQuarter))
}

func title(params models.MusicParameters) string {
	return string(params.Key) + " " + string(params.Genre) + " (" + string(params.Mood) + ")"
}
