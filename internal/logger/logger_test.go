package logger

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func TestFormatFieldsIsSorted(t *testing.T) {
	got := formatFields(Fields{"zeta": 1, "alpha": "a", "mid": 2.5})
	assert.Equal(t, "{alpha=a, mid=2.50, zeta=1}", got)
	assert.Equal(t, "", formatFields(nil))
}

func TestLevels(t *testing.T) {
	buf := captureLog(t)

	Info("queued", ForCommand("cmd-1", "text_to_music"))
	Warn("slow", Fields{"ms": int64(1200)})
	Error("boom", errors.New("backend down"), Fields{"command_id": "cmd-1"})

	out := buf.String()
	assert.Contains(t, out, "[INFO] queued {command_id=cmd-1, command_type=text_to_music}")
	assert.Contains(t, out, "[WARN] slow {ms=1200}")
	assert.Contains(t, out, "[ERROR] boom: backend down {command_id=cmd-1}")
}

func TestFieldsWithDoesNotMutate(t *testing.T) {
	base := ForCommand("cmd-2", "improvisation")
	extended := base.With(Fields{"attempt": 1})

	assert.Len(t, base, 2)
	assert.Len(t, extended, 3)
	assert.Equal(t, 1, extended["attempt"])
}

func TestLogTransition(t *testing.T) {
	buf := captureLog(t)

	LogTransition("cmd-3", "pending", "processing", nil)

	assert.Contains(t, buf.String(), "from=pending")
	assert.Contains(t, buf.String(), "to=processing")
}
