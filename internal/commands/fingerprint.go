package commands

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

// Fingerprint identifies commands that must produce the same result. params must already
// be normalized so that instrument order and enum spelling do not matter.
func Fingerprint(t models.CommandType, text string, params models.PartialParameters, enhance bool, melody *models.MelodyInput, audio *models.AudioInput) string {
	payload := struct {
		Type       models.CommandType       `json:"type"`
		Text       string                   `json:"text"`
		Parameters models.PartialParameters `json:"parameters"`
		Enhance    bool                     `json:"enhance"`
		Melody     string                   `json:"melody,omitempty"`
		Audio      string                   `json:"audio,omitempty"`
	}{
		Type:       t,
		Text:       strings.TrimSpace(text),
		Parameters: params,
		Enhance:    enhance,
	}
	if melody != nil {
		raw, _ := json.Marshal(canonicalMelody(melody))
		payload.Melody = digest(raw)
	}
	if audio != nil {
		payload.Audio = digest(append([]byte(strings.ToLower(audio.Format)+":"), audio.Data...))
	}

	raw, _ := json.Marshal(payload)
	return digest(raw)
}

// canonicalMelody orders notes by onset so that submission order does not matter.
func canonicalMelody(melody *models.MelodyInput) *models.MelodyInput {
	out := melody.Clone()
	sort.Slice(out.Notes, func(i, j int) bool {
		a, b := out.Notes[i], out.Notes[j]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.Pitch != b.Pitch {
			return a.Pitch < b.Pitch
		}
		if a.Duration != b.Duration {
			return a.Duration < b.Duration
		}
		return a.Velocity < b.Velocity
	})
	return out
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
