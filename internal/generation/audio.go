package generation

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

const (
	// SampleRate of the preview render.
	SampleRate = 22050
	// MaxPreviewSeconds caps the rendered preview length.
	MaxPreviewSeconds = 30

	bitsPerSample = 16
	releaseSec    = 0.08
	attackSec     = 0.005
	peakLevel     = 0.8
)

// RenderWAV synthesises a mono 16-bit PCM preview of the arrangement with additive
// sine voices for pitched parts and simple noise/sine hits for drums.
func RenderWAV(ctx context.Context, arr *models.Arrangement, params models.MusicParameters) ([]byte, error) {
	secPerBeat := 60 / float64(params.Tempo)
	length := arr.TotalBeats * secPerBeat
	if length > MaxPreviewSeconds {
		length = MaxPreviewSeconds
	}
	if length <= 0 {
		return nil, fmt.Errorf("nothing to render")
	}

	buf := make([]float64, int(length*SampleRate)+1)

	layers := []struct {
		notes []models.NoteEvent
		gain  float64
	}{
		{arr.Melody, 0.5},
		{arr.ChordVoices, 0.18},
		{arr.Bass, 0.4},
	}
	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, n := range layer.notes {
			addTone(buf, n, secPerBeat, layer.gain)
		}
	}

	noise := uint32(0x9e3779b9)
	for _, n := range arr.Drums {
		addDrum(buf, n, secPerBeat, &noise)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalize(buf)
	return encodeWAV(buf), nil
}

func addTone(buf []float64, n models.NoteEvent, secPerBeat, gain float64) {
	freq := 440 * math.Pow(2, float64(n.MidiNoteNumber-69)/12)
	amp := gain * float64(n.Velocity) / models.MaxVelocity
	start := int(n.StartBeats * secPerBeat * SampleRate)
	held := n.DurationBeats * secPerBeat
	total := int((held + releaseSec) * SampleRate)

	for i := 0; i < total; i++ {
		idx := start + i
		if idx >= len(buf) {
			return
		}
		t := float64(i) / SampleRate
		env := 1.0
		switch {
		case t < attackSec:
			env = t / attackSec
		case t > held:
			env = math.Exp(-(t - held) / (releaseSec / 4))
		}
		phase := 2 * math.Pi * freq * t
		buf[idx] += amp * env * (math.Sin(phase) + 0.3*math.Sin(2*phase))
	}
}

func addDrum(buf []float64, n models.NoteEvent, secPerBeat float64, state *uint32) {
	start := int(n.StartBeats * secPerBeat * SampleRate)
	amp := 0.35 * float64(n.Velocity) / models.MaxVelocity
	decay := 0.03
	if n.MidiNoteNumber == drumKick {
		decay = 0.12
	}
	total := int(decay * 4 * SampleRate)

	for i := 0; i < total; i++ {
		idx := start + i
		if idx >= len(buf) {
			return
		}
		t := float64(i) / SampleRate
		env := math.Exp(-t / decay)
		var v float64
		if n.MidiNoteNumber == drumKick {
			v = math.Sin(2 * math.Pi * 55 * t)
		} else {
			// xorshift32 keeps the noise reproducible across renders
			*state ^= *state << 13
			*state ^= *state >> 17
			*state ^= *state << 5
			v = float64(*state)/math.MaxUint32*2 - 1
		}
		buf[idx] += amp * env * v
	}
}

func normalize(buf []float64) {
	var peak float64
	for _, v := range buf {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}
	scale := peakLevel / peak
	for i := range buf {
		buf[i] *= scale
	}
}

func encodeWAV(samples []float64) []byte {
	dataLen := uint32(len(samples) * bitsPerSample / 8)
	var b bytes.Buffer
	b.Grow(44 + int(dataLen))

	le := binary.LittleEndian
	b.WriteString("RIFF")
	_ = binary.Write(&b, le, uint32(36)+dataLen)
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	_ = binary.Write(&b, le, uint32(16))
	_ = binary.Write(&b, le, uint16(1)) // PCM
	_ = binary.Write(&b, le, uint16(1)) // mono
	_ = binary.Write(&b, le, uint32(SampleRate))
	_ = binary.Write(&b, le, uint32(SampleRate*bitsPerSample/8))
	_ = binary.Write(&b, le, uint16(bitsPerSample/8))
	_ = binary.Write(&b, le, uint16(bitsPerSample))
	b.WriteString("data")
	_ = binary.Write(&b, le, dataLen)

	pcm := make([]byte, 2)
	for _, s := range samples {
		v := int16(math.Max(-1, math.Min(1, s)) * math.MaxInt16)
		le.PutUint16(pcm, uint16(v))
		b.Write(pcm)
	}
	return b.Bytes()
}
