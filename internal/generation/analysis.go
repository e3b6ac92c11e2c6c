package generation

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

// Krumhansl-Kessler key profiles, tonic first.
var (
	majorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}

	majorKeyNames = []models.Key{"C", "Db", "D", "Eb", "E", "F", "F#", "G", "Ab", "A", "Bb", "B"}
	minorKeyNames = []models.Key{"Cm", "C#m", "Dm", "Ebm", "Em", "Fm", "F#m", "Gm", "G#m", "Am", "Bbm", "Bm"}
)

// DetectKey correlates the duration-weighted pitch-class histogram with every major and
// minor profile and returns the best key with its correlation. Empty input yields C.
func DetectKey(notes []models.Note) (models.Key, float64) {
	var hist [12]float64
	var total float64
	for _, n := range notes {
		w := n.Duration
		if w <= 0 {
			w = 0.01
		}
		hist[((n.Pitch%12)+12)%12] += w
		total += w
	}
	if total == 0 {
		return "C", 0
	}

	best, bestScore := models.Key("C"), math.Inf(-1)
	for tonic := 0; tonic < 12; tonic++ {
		if s := correlate(hist[:], majorProfile, tonic); s > bestScore {
			best, bestScore = majorKeyNames[tonic], s
		}
	}
	for tonic := 0; tonic < 12; tonic++ {
		if s := correlate(hist[:], minorProfile, tonic); s > bestScore {
			best, bestScore = minorKeyNames[tonic], s
		}
	}
	return best, bestScore
}

func correlate(hist, profile []float64, tonic int) float64 {
	var mh, mp float64
	for i := 0; i < 12; i++ {
		mh += hist[i]
		mp += profile[i]
	}
	mh /= 12
	mp /= 12

	var num, dh, dp float64
	for i := 0; i < 12; i++ {
		h := hist[(i+tonic)%12] - mh
		p := profile[i] - mp
		num += h * p
		dh += h * h
		dp += p * p
	}
	if dh == 0 || dp == 0 {
		return 0
	}
	return num / math.Sqrt(dh*dp)
}

// EstimateTempo derives a tempo from the median inter-onset interval, folded into a
// 70-160 BPM window. It reports false when fewer than two distinct onsets exist.
func EstimateTempo(notes []models.Note) (int, bool) {
	onsets := make([]float64, 0, len(notes))
	for _, n := range notes {
		onsets = append(onsets, n.StartTime)
	}
	return tempoFromOnsets(onsets)
}

func tempoFromOnsets(onsets []float64) (int, bool) {
	sort.Float64s(onsets)
	var iois []float64
	for i := 1; i < len(onsets); i++ {
		if d := onsets[i] - onsets[i-1]; d > 0.05 {
			iois = append(iois, d)
		}
	}
	if len(iois) == 0 {
		return 0, false
	}
	sort.Float64s(iois)
	median := iois[len(iois)/2]
	if len(iois)%2 == 0 {
		median = (iois[len(iois)/2-1] + iois[len(iois)/2]) / 2
	}

	bpm := 60 / median
	for bpm < 70 {
		bpm *= 2
	}
	for bpm > 160 {
		bpm /= 2
	}
	tempo := int(math.Round(bpm))
	if tempo < models.MinTempo || tempo > models.MaxTempo {
		return 0, false
	}
	return tempo, true
}

// CorrectPitch snaps every out-of-key note to the nearest scale tone (downward on ties)
// and returns the corrected copy with the number of changed notes.
func CorrectPitch(notes []models.Note, key models.Key) ([]models.Note, int) {
	out := make([]models.Note, len(notes))
	changed := 0
	for i, n := range notes {
		out[i] = n
		if InScale(n.Pitch, key) {
			continue
		}
		for d := 1; d < 12; d++ {
			if n.Pitch-d >= models.MinPitch && InScale(n.Pitch-d, key) {
				out[i].Pitch = n.Pitch - d
				break
			}
			if n.Pitch+d <= models.MaxPitch && InScale(n.Pitch+d, key) {
				out[i].Pitch = n.Pitch + d
				break
			}
		}
		if out[i].Pitch != n.Pitch {
			changed++
		}
	}
	return out, changed
}

// HarmonizeBars picks the diatonic triad that best covers each bar of the melody.
// Bars without notes get an empty symbol.
func HarmonizeBars(melody []models.NoteEvent, bars int, beatsPerBar float64, key models.Key) []string {
	hists := make([][12]float64, bars)
	for _, n := range melody {
		bar := int(n.StartBeats / beatsPerBar)
		if bar < 0 || bar >= bars {
			continue
		}
		w := n.DurationBeats
		if math.Mod(n.StartBeats, beatsPerBar) < 1e-9 {
			w *= 1.5
		}
		hists[bar][((n.MidiNoteNumber%12)+12)%12] += w
	}

	triads := make([]string, 7)
	tones := make([][]int, 7)
	for d := 1; d <= 7; d++ {
		triads[d-1] = DegreeChord(key, fmt.Sprint(d))
		notes, _ := ChordToMIDI(triads[d-1], chordOct)
		tones[d-1] = notes
	}

	out := make([]string, bars)
	for bar, h := range hists {
		best, bestScore := -1, 0.0
		for i, chord := range tones {
			var score float64
			for _, n := range chord {
				score += h[n%12]
			}
			// ties keep the lower degree
			if score > bestScore+1e-9 {
				best, bestScore = i, score
			}
		}
		if best >= 0 {
			out[bar] = triads[best]
		}
	}
	return out
}

// Suggestions returns follow-up ideas for the caller based on what was generated.
func Suggestions(params models.MusicParameters, arr *models.Arrangement) []string {
	var out []string
	if !params.HasInstrument(models.InstrumentDrums) {
		out = append(out, "Add drums to give the arrangement more rhythmic drive.")
	}
	if !params.HasInstrument(models.InstrumentBass) {
		out = append(out, "Add a bass line to anchor the harmony.")
	}
	if len(params.Instruments) == 1 {
		out = append(out, "Layer strings or a pad under the lead for a fuller sound.")
	}
	if params.Complexity <= 2 {
		out = append(out, "Raise the complexity for busier melodic rhythms.")
	} else if params.Complexity >= 5 {
		out = append(out, "Lower the complexity if the melody feels crowded.")
	}
	if chords := ChordSymbols(arr); len(chords) > 0 {
		out = append(out, fmt.Sprintf("Try a contrasting bridge against the %s loop.", strings.Join(chords, "-")))
	}
	if params.Key.IsMinor() {
		out = append(out, "Modulate to the relative major for a brighter chorus.")
	} else {
		out = append(out, "Borrow a chord from the parallel minor for extra color.")
	}
	return out
}

// AudioProbe describes a decoded audio header.
type AudioProbe struct {
	FormatName string
	Duration   float64
	SampleRate int
	Channels   int
	BitDepth   int
}

// ErrUnsupportedAudio is returned for payloads that are not PCM WAV.
var ErrUnsupportedAudio = errors.New("unsupported audio encoding")

// ProbeWAV reads the RIFF header of a PCM WAV payload.
func ProbeWAV(data []byte) (AudioProbe, []byte, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return AudioProbe{}, nil, ErrUnsupportedAudio
	}

	var probe AudioProbe
	var pcm []byte
	le := binary.LittleEndian
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(le.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return AudioProbe{}, nil, fmt.Errorf("wav fmt chunk too short")
			}
			if format := le.Uint16(data[body:]); format != 1 {
				return AudioProbe{}, nil, fmt.Errorf("%w: wav format %d", ErrUnsupportedAudio, format)
			}
			probe.Channels = int(le.Uint16(data[body+2:]))
			probe.SampleRate = int(le.Uint32(data[body+4:]))
			probe.BitDepth = int(le.Uint16(data[body+14:]))
		case "data":
			pcm = data[body : body+size]
		}
		off = body + size + size%2
	}

	if probe.SampleRate == 0 || probe.Channels == 0 || probe.BitDepth == 0 {
		return AudioProbe{}, nil, fmt.Errorf("wav missing fmt chunk")
	}
	frame := probe.Channels * probe.BitDepth / 8
	if frame > 0 {
		probe.Duration = float64(len(pcm)/frame) / float64(probe.SampleRate)
	}
	probe.FormatName = "wav"
	return probe, pcm, nil
}

// EstimateAudioTempo finds energy onsets in 16-bit PCM and derives a tempo from them.
func EstimateAudioTempo(probe AudioProbe, pcm []byte) (int, bool) {
	if probe.BitDepth != 16 || probe.Channels < 1 {
		return 0, false
	}
	const hop = 512
	frame := probe.Channels * 2
	samples := len(pcm) / frame

	var energies []float64
	for start := 0; start+hop <= samples; start += hop {
		var e float64
		for i := start; i < start+hop; i++ {
			v := float64(int16(binary.LittleEndian.Uint16(pcm[i*frame:]))) / math.MaxInt16
			e += v * v
		}
		energies = append(energies, e/hop)
	}
	if len(energies) < 3 {
		return 0, false
	}

	var mean float64
	for _, e := range energies {
		mean += e
	}
	mean /= float64(len(energies))

	var onsets []float64
	for i := 1; i < len(energies)-1; i++ {
		rise := energies[i] - energies[i-1]
		if rise > mean*0.5 && energies[i] >= energies[i+1] {
			onsets = append(onsets, float64(i*hop)/float64(probe.SampleRate))
		}
	}
	return tempoFromOnsets(onsets)
}
