package generation

import (
	"bytes"
	"encoding/xml"
	"math"
	"strings"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

const xmlDivisions = 480

const musicXMLHeader = `<!DOCTYPE score-partwise PUBLIC "-//Recordare//DTD MusicXML 4.0 Partwise//EN" "http://www.musicxml.org/dtds/partwise.dtd">` + "\n"

type scorePartwise struct {
	XMLName  xml.Name    `xml:"score-partwise"`
	Version  string      `xml:"version,attr"`
	Work     xmlWork     `xml:"work"`
	PartList xmlPartList `xml:"part-list"`
	Parts    []xmlPart   `xml:"part"`
}

type xmlWork struct {
	Title string `xml:"work-title"`
}

type xmlPartList struct {
	ScoreParts []xmlScorePart `xml:"score-part"`
}

type xmlScorePart struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"part-name"`
}

type xmlPart struct {
	ID       string       `xml:"id,attr"`
	Measures []xmlMeasure `xml:"measure"`
}

type xmlMeasure struct {
	Number     int            `xml:"number,attr"`
	Attributes *xmlAttributes `xml:"attributes,omitempty"`
	Direction  *xmlDirection  `xml:"direction,omitempty"`
	Harmony    *xmlHarmony    `xml:"harmony,omitempty"`
	Notes      []xmlNote      `xml:"note"`
}

type xmlAttributes struct {
	Divisions int     `xml:"divisions"`
	Key       xmlKey  `xml:"key"`
	Time      xmlTime `xml:"time"`
	Clef      xmlClef `xml:"clef"`
}

type xmlKey struct {
	Fifths int    `xml:"fifths"`
	Mode   string `xml:"mode"`
}

type xmlTime struct {
	Beats    int `xml:"beats"`
	BeatType int `xml:"beat-type"`
}

type xmlClef struct {
	Sign string `xml:"sign"`
	Line int    `xml:"line"`
}

type xmlDirection struct {
	Placement string           `xml:"placement,attr"`
	Type      xmlDirectionType `xml:"direction-type"`
	Sound     xmlSound         `xml:"sound"`
}

type xmlDirectionType struct {
	Metronome xmlMetronome `xml:"metronome"`
}

type xmlMetronome struct {
	BeatUnit  string `xml:"beat-unit"`
	PerMinute int    `xml:"per-minute"`
}

type xmlSound struct {
	Tempo int `xml:"tempo,attr"`
}

type xmlHarmony struct {
	Root xmlHarmonyRoot `xml:"root"`
	Kind xmlKind        `xml:"kind"`
}

type xmlHarmonyRoot struct {
	Step  string `xml:"root-step"`
	Alter int    `xml:"root-alter,omitempty"`
}

type xmlKind struct {
	Text  string `xml:"text,attr,omitempty"`
	Value string `xml:",chardata"`
}

type xmlNote struct {
	Rest     *struct{} `xml:"rest,omitempty"`
	Pitch    *xmlPitch `xml:"pitch,omitempty"`
	Duration int       `xml:"duration"`
	Ties     []xmlTie  `xml:"tie,omitempty"`
	Voice    int       `xml:"voice"`
}

type xmlPitch struct {
	Step   string `xml:"step"`
	Alter  int    `xml:"alter,omitempty"`
	Octave int    `xml:"octave"`
}

type xmlTie struct {
	Type string `xml:"type,attr"`
}

// segment is a monophonic span in divisions; pitch < 0 is a rest.
type segment struct {
	start, end int
	pitch      int
}

// EncodeMusicXML writes the melody as a single-part partwise score with chord symbols
// at each barline. Overlapping melody notes are truncated to keep the line monophonic.
func EncodeMusicXML(arr *models.Arrangement, params models.MusicParameters) ([]byte, error) {
	barDiv := int(math.Round(params.TimeSignature.BeatsPerBar() * xmlDivisions))
	bars := int(math.Ceil(arr.TotalBeats / params.TimeSignature.BeatsPerBar()))
	if bars < 1 {
		bars = 1
	}
	total := bars * barDiv
	flats := prefersFlats(params.Key)

	chordAt := make(map[int]string, len(arr.Chords))
	for _, c := range arr.Chords {
		chordAt[int(math.Round(c.StartBeats*xmlDivisions))/barDiv] = c.ChordSymbol
	}

	measures := make([]xmlMeasure, bars)
	for i := range measures {
		measures[i].Number = i + 1
		if sym, ok := chordAt[i]; ok {
			measures[i].Harmony = harmonyFor(sym)
		}
	}
	mode := "major"
	if params.Key.IsMinor() {
		mode = "minor"
	}
	measures[0].Attributes = &xmlAttributes{
		Divisions: xmlDivisions,
		Key:       xmlKey{Fifths: keyFifths(params.Key), Mode: mode},
		Time:      xmlTime{Beats: params.TimeSignature.Numerator(), BeatType: params.TimeSignature.Denominator()},
		Clef:      xmlClef{Sign: "G", Line: 2},
	}
	measures[0].Direction = &xmlDirection{
		Placement: "above",
		Type:      xmlDirectionType{Metronome: xmlMetronome{BeatUnit: "quarter", PerMinute: params.Tempo}},
		Sound:     xmlSound{Tempo: params.Tempo},
	}

	for _, seg := range monophonic(arr.Melody, total) {
		for at := seg.start; at < seg.end; {
			bar := at / barDiv
			end := (bar + 1) * barDiv
			if end > seg.end {
				end = seg.end
			}
			n := xmlNote{Duration: end - at, Voice: 1}
			if seg.pitch < 0 {
				n.Rest = &struct{}{}
			} else {
				n.Pitch = pitchFor(seg.pitch, flats)
				if at > seg.start {
					n.Ties = append(n.Ties, xmlTie{Type: "stop"})
				}
				if end < seg.end {
					n.Ties = append(n.Ties, xmlTie{Type: "start"})
				}
			}
			measures[bar].Notes = append(measures[bar].Notes, n)
			at = end
		}
	}

	score := scorePartwise{
		Version:  "4.0",
		Work:     xmlWork{Title: title(params)},
		PartList: xmlPartList{ScoreParts: []xmlScorePart{{ID: "P1", Name: "Melody"}}},
		Parts:    []xmlPart{{ID: "P1", Measures: measures}},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(musicXMLHeader)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(score); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func monophonic(melody []models.NoteEvent, total int) []segment {
	var out []segment
	cursor := 0
	for _, n := range melody {
		s := int(math.Round(n.StartBeats * xmlDivisions))
		e := int(math.Round((n.StartBeats + n.DurationBeats) * xmlDivisions))
		if s < cursor {
			s = cursor
		}
		if e > total {
			e = total
		}
		if e <= s {
			continue
		}
		if s > cursor {
			out = append(out, segment{start: cursor, end: s, pitch: -1})
		}
		out = append(out, segment{start: s, end: e, pitch: n.MidiNoteNumber})
		cursor = e
	}
	if cursor < total {
		out = append(out, segment{start: cursor, end: total, pitch: -1})
	}
	return out
}

func pitchFor(midiNote int, flats bool) *xmlPitch {
	name := sharpNames[midiNote%12]
	if flats {
		name = flatNames[midiNote%12]
	}
	p := &xmlPitch{Step: name[:1], Octave: midiNote/12 - 1}
	switch {
	case strings.HasSuffix(name, "#"):
		p.Alter = 1
	case strings.HasSuffix(name, "b"):
		p.Alter = -1
	}
	return p
}

var majorFifths = map[int]int{0: 0, 7: 1, 2: 2, 9: 3, 4: 4, 11: 5, 6: 6, 1: -5, 8: -4, 3: -3, 10: -2, 5: -1}

func keyFifths(key models.Key) int {
	pc := semitones[key.Root()]
	if key.IsMinor() {
		pc = (pc + 3) % 12
	}
	f := majorFifths[pc]
	if f == 6 && prefersFlats(key) {
		return -6
	}
	return f
}

func harmonyFor(symbol string) *xmlHarmony {
	base := symbol
	if i := strings.Index(base, "/"); i >= 0 {
		base = base[:i]
	}
	root, err := parseRootNote(base)
	if err != nil {
		return nil
	}
	h := &xmlHarmony{Root: xmlHarmonyRoot{Step: root[:1]}}
	switch {
	case strings.HasSuffix(root, "#"):
		h.Root.Alter = 1
	case strings.HasSuffix(root, "b"):
		h.Root.Alter = -1
	}

	suffix := base[len(root):]
	kinds := map[string]string{
		"":     "major",
		"m":    "minor",
		"7":    "dominant",
		"maj7": "major-seventh",
		"m7":   "minor-seventh",
		"dim":  "diminished",
		"dim7": "diminished-seventh",
		"aug":  "augmented",
		"sus2": "suspended-second",
		"sus4": "suspended-fourth",
	}
	kind, ok := kinds[suffix]
	if !ok {
		kind = "other"
	}
	h.Kind = xmlKind{Text: suffix, Value: kind}
	return h
}
